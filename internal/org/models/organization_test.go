package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

func validParams() *CreateOrganizationParams {
	pin := "pin-salt"
	return &CreateOrganizationParams{
		Name:                "Acme",
		PublicKey:           "pub",
		EncryptedPrivateKey: "enc-priv",
		KeyDerivationSalt:   "kd-salt",
		EncryptionIV:        "iv",
		MKDF: MKDFConfig{
			Version:           1,
			RequiredFactors:   2,
			EnabledFactors:    []Factor{FactorPassphrase, FactorDevice},
			RecoveryThreshold: 2,
		},
		Device: DeviceInfo{
			DeviceName:         "Chrome on macOS",
			DeviceFingerprint:  "fp1",
			EncryptedDeviceKey: "enc-dev",
			KeyDerivationSalt:  "kd-salt",
			EncryptionIV:       "iv",
			CombinationSalt:    "comb",
			PINSalt:            &pin,
		},
	}
}

func TestNewOrganization(t *testing.T) {
	now := time.Now()
	owner := id.UserID(mustUUID(t))

	t.Run("constructs with valid params", func(t *testing.T) {
		org, err := NewOrganization(id.NewOrgID(), owner, validParams(), now)
		require.NoError(t, err)
		assert.Equal(t, "Acme", org.Name)
		assert.Equal(t, owner, org.OwnerID)
		assert.Equal(t, now, org.CreatedAt)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		p := validParams()
		p.Name = ""
		_, err := NewOrganization(id.NewOrgID(), owner, p, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects missing key material", func(t *testing.T) {
		p := validParams()
		p.EncryptedPrivateKey = ""
		_, err := NewOrganization(id.NewOrgID(), owner, p, now)
		require.Error(t, err)
	})

	t.Run("rejects zero owner", func(t *testing.T) {
		_, err := NewOrganization(id.NewOrgID(), id.UserID{}, validParams(), now)
		require.Error(t, err)
	})
}

func TestMKDFConfigValidate(t *testing.T) {
	base := MKDFConfig{
		Version:           1,
		RequiredFactors:   2,
		EnabledFactors:    []Factor{FactorPassphrase, FactorDevice},
		RecoveryThreshold: 2,
	}

	t.Run("accepts consistent config", func(t *testing.T) {
		assert.NoError(t, base.Validate())
	})

	t.Run("rejects required factors above enabled count", func(t *testing.T) {
		c := base
		c.RequiredFactors = 3
		err := c.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects unknown factor", func(t *testing.T) {
		c := base
		c.EnabledFactors = []Factor{FactorPassphrase, Factor("retina")}
		require.Error(t, c.Validate())
	})

	t.Run("rejects duplicate factor", func(t *testing.T) {
		c := base
		c.EnabledFactors = []Factor{FactorDevice, FactorDevice}
		require.Error(t, c.Validate())
	})

	t.Run("rejects empty factor set", func(t *testing.T) {
		c := base
		c.EnabledFactors = nil
		require.Error(t, c.Validate())
	})
}
