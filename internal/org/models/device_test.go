package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

func TestDeviceStateMachine(t *testing.T) {
	now := time.Now()
	info := &DeviceInfo{
		DeviceName:         "Firefox on Linux",
		DeviceFingerprint:  "fp",
		EncryptedDeviceKey: "enc",
		KeyDerivationSalt:  "salt",
		EncryptionIV:       "iv",
		CombinationSalt:    "comb",
	}

	t.Run("starts active", func(t *testing.T) {
		d, err := NewDeviceRegistration(id.NewDeviceID(), id.NewOrgID(), id.UserID(mustUUID(t)), info, now)
		require.NoError(t, err)
		assert.Equal(t, DeviceStatusActive, d.Status)
		assert.True(t, d.IsActive())
		assert.Nil(t, d.LastUsed)
	})

	t.Run("active device can be revoked once", func(t *testing.T) {
		d, err := NewDeviceRegistration(id.NewDeviceID(), id.NewOrgID(), id.UserID(mustUUID(t)), info, now)
		require.NoError(t, err)

		require.NoError(t, d.CanRevoke())
		later := now.Add(time.Minute)
		d.ApplyRevocation(later)

		assert.Equal(t, DeviceStatusRevoked, d.Status)
		assert.False(t, d.IsActive())
		assert.Equal(t, later, d.UpdatedAt)
	})

	t.Run("revoked is terminal", func(t *testing.T) {
		d, err := NewDeviceRegistration(id.NewDeviceID(), id.NewOrgID(), id.UserID(mustUUID(t)), info, now)
		require.NoError(t, err)
		d.ApplyRevocation(now)

		err = d.CanRevoke()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestNewDeviceRegistration_Invariants(t *testing.T) {
	now := time.Now()
	owner := id.UserID(mustUUID(t))

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewDeviceRegistration(id.NewDeviceID(), id.NewOrgID(), owner, &DeviceInfo{
			DeviceFingerprint:  "fp",
			EncryptedDeviceKey: "enc",
			KeyDerivationSalt:  "salt",
			EncryptionIV:       "iv",
			CombinationSalt:    "comb",
		}, now)
		require.Error(t, err)
	})

	t.Run("rejects missing fingerprint", func(t *testing.T) {
		_, err := NewDeviceRegistration(id.NewDeviceID(), id.NewOrgID(), owner, &DeviceInfo{
			DeviceName:         "X",
			EncryptedDeviceKey: "enc",
			KeyDerivationSalt:  "salt",
			EncryptionIV:       "iv",
			CombinationSalt:    "comb",
		}, now)
		require.Error(t, err)
	})

	t.Run("rejects missing key material", func(t *testing.T) {
		_, err := NewDeviceRegistration(id.NewDeviceID(), id.NewOrgID(), owner, &DeviceInfo{
			DeviceName:        "X",
			DeviceFingerprint: "fp",
		}, now)
		require.Error(t, err)
	})
}
