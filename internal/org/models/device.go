package models

import (
	"time"

	"github.com/google/uuid"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// DeviceStatus is the explicit two-state lifecycle of a device registration.
type DeviceStatus string

const (
	DeviceStatusActive  DeviceStatus = "active"
	DeviceStatusRevoked DeviceStatus = "revoked"
)

// DeviceRegistration binds one user's device to an encrypted share of an
// organization's unlock material.
//
// Owned by the (organization, user) pair. Created exactly once per
// organization-creation call; transitions Active -> Revoked via revocation.
// Revoked is terminal: no operation re-activates a device. Rows are only
// hard-deleted by organization teardown.
type DeviceRegistration struct {
	ID                 id.DeviceID  `json:"id"`
	OrganizationID     id.OrgID     `json:"organizationId"`
	UserID             id.UserID    `json:"userId"`
	DeviceName         string       `json:"deviceName"`
	DeviceFingerprint  string       `json:"deviceFingerprint"`
	PublicKey          string       `json:"publicKey"`
	EncryptedDeviceKey string       `json:"-"`
	KeyDerivationSalt  string       `json:"-"`
	EncryptionIV       string       `json:"-"`
	CombinationSalt    string       `json:"-"`
	PINSalt            *string      `json:"-"`
	Status             DeviceStatus `json:"status"`
	LastUsed           *time.Time   `json:"lastUsed"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// IsActive reports whether the device can still unlock the organization.
func (d *DeviceRegistration) IsActive() bool {
	return d.Status == DeviceStatusActive
}

// CanRevoke checks the Active -> Revoked transition.
func (d *DeviceRegistration) CanRevoke() error {
	if d.Status != DeviceStatusActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "device is already revoked")
	}
	return nil
}

// ApplyRevocation transitions the device to revoked. Call CanRevoke first.
func (d *DeviceRegistration) ApplyRevocation(now time.Time) {
	d.Status = DeviceStatusRevoked
	d.UpdatedAt = now
}

// NewDeviceRegistration constructs a device registration for a newly created
// organization, enforcing invariants. Devices always start Active.
func NewDeviceRegistration(deviceID id.DeviceID, orgID id.OrgID, userID id.UserID, info *DeviceInfo, now time.Time) (*DeviceRegistration, error) {
	if info.DeviceName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device name cannot be empty")
	}
	if len(info.DeviceName) > 255 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device name must be 255 characters or less")
	}
	if info.DeviceFingerprint == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device fingerprint is required")
	}
	if info.EncryptedDeviceKey == "" || info.KeyDerivationSalt == "" || info.EncryptionIV == "" || info.CombinationSalt == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device key material is required")
	}
	return &DeviceRegistration{
		ID:                 deviceID,
		OrganizationID:     orgID,
		UserID:             userID,
		DeviceName:         info.DeviceName,
		DeviceFingerprint:  info.DeviceFingerprint,
		PublicKey:          info.PublicKey,
		EncryptedDeviceKey: info.EncryptedDeviceKey,
		KeyDerivationSalt:  info.KeyDerivationSalt,
		EncryptionIV:       info.EncryptionIV,
		CombinationSalt:    info.CombinationSalt,
		PINSalt:            info.PINSalt,
		Status:             DeviceStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// DeviceRevocation is one append-only audit record of a revocation.
// The trail is never updated or deleted by the application.
type DeviceRevocation struct {
	ID             uuid.UUID   `json:"id"`
	OrganizationID id.OrgID    `json:"organizationId"`
	DeviceID       id.DeviceID `json:"deviceId"`
	ActorID        id.UserID   `json:"actorId"`
	ClientIP       string      `json:"clientIp,omitempty"`
	UserAgent      string      `json:"userAgent,omitempty"`
	OccurredAt     time.Time   `json:"occurredAt"`
}
