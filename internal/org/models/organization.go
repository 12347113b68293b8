package models

import (
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Factor is one kind of unlock factor an organization may enable.
type Factor string

const (
	FactorPassphrase Factor = "passphrase"
	FactorDevice     Factor = "device"
	FactorPIN        Factor = "pin"
)

// IsValid reports whether f is a known factor kind.
func (f Factor) IsValid() bool {
	switch f {
	case FactorPassphrase, FactorDevice, FactorPIN:
		return true
	}
	return false
}

// MKDFConfig captures the multi-factor key-derivation parameters of an
// organization. The server never derives keys itself; it stores the
// configuration so clients can reconstruct the master key.
type MKDFConfig struct {
	Version                   int      `json:"version"`
	RequiredFactors           int      `json:"requiredFactors"`
	EnabledFactors            []Factor `json:"enabledFactors"`
	DeviceFingerprintRequired bool     `json:"deviceFingerprintRequired"`
	RecoveryThreshold         int      `json:"recoveryThreshold"`
}

// Validate checks the MKDF invariants.
// In particular: RequiredFactors can never exceed the number of enabled
// factors, or the organization could be locked out by construction.
func (c MKDFConfig) Validate() error {
	if c.RequiredFactors < 1 {
		return dErrors.New(dErrors.CodeInvariantViolation, "at least one unlock factor must be required")
	}
	if len(c.EnabledFactors) == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "at least one unlock factor must be enabled")
	}
	seen := make(map[Factor]bool, len(c.EnabledFactors))
	for _, f := range c.EnabledFactors {
		if !f.IsValid() {
			return dErrors.New(dErrors.CodeInvariantViolation, "unknown unlock factor "+string(f))
		}
		if seen[f] {
			return dErrors.New(dErrors.CodeInvariantViolation, "duplicate unlock factor "+string(f))
		}
		seen[f] = true
	}
	if c.RequiredFactors > len(c.EnabledFactors) {
		return dErrors.New(dErrors.CodeInvariantViolation, "required factors cannot exceed enabled factors")
	}
	if c.RecoveryThreshold < 1 {
		return dErrors.New(dErrors.CodeInvariantViolation, "recovery threshold must be positive")
	}
	return nil
}

// Organization is the aggregate root for a vault tenant.
//
// Invariants:
//   - Name is non-empty and at most 255 characters
//   - OwnerID identifies exactly one user; ownership is exclusive
//   - MKDF config satisfies RequiredFactors <= |EnabledFactors|
//   - All key material fields are opaque client-produced blobs; the server
//     stores and releases them without interpretation
//
// Lifecycle: created only through the atomic creation transaction (together
// with the first device registration and the recovery-backup placeholder),
// renamed by the owner, deleted through cascading teardown.
type Organization struct {
	ID                  id.OrgID   `json:"id"`
	Name                string     `json:"name"`
	OwnerID             id.UserID  `json:"ownerId"`
	PublicKey           string     `json:"publicKey"`
	EncryptedPrivateKey string     `json:"-"`
	KeyDerivationSalt   string     `json:"-"`
	EncryptionIV        string     `json:"-"`
	MKDF                MKDFConfig `json:"mkdf"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ValidateName checks the name invariant shared by creation and rename.
func ValidateName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "organization name cannot be empty")
	}
	if len(name) > 255 {
		return dErrors.New(dErrors.CodeInvariantViolation, "organization name must be 255 characters or less")
	}
	return nil
}

// NewOrganization constructs an Organization, enforcing invariants.
func NewOrganization(orgID id.OrgID, ownerID id.UserID, p *CreateOrganizationParams, now time.Time) (*Organization, error) {
	if err := ValidateName(p.Name); err != nil {
		return nil, err
	}
	if ownerID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization owner is required")
	}
	if p.PublicKey == "" || p.EncryptedPrivateKey == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization key material is required")
	}
	if p.KeyDerivationSalt == "" || p.EncryptionIV == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "key derivation salt and encryption iv are required")
	}
	if err := p.MKDF.Validate(); err != nil {
		return nil, err
	}
	return &Organization{
		ID:                  orgID,
		Name:                p.Name,
		OwnerID:             ownerID,
		PublicKey:           p.PublicKey,
		EncryptedPrivateKey: p.EncryptedPrivateKey,
		KeyDerivationSalt:   p.KeyDerivationSalt,
		EncryptionIV:        p.EncryptionIV,
		MKDF:                p.MKDF,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}
