package models

import (
	"time"

	id "custodia/pkg/domain"
)

// DeviceUnlockInfo is the encrypted device share released with a key bundle.
// Nil when the caller has no active device; the client must then fall back
// to another unlock factor.
type DeviceUnlockInfo struct {
	ID                 id.DeviceID `json:"id"`
	DeviceName         string      `json:"deviceName"`
	DeviceFingerprint  string      `json:"deviceFingerprint"`
	PublicKey          string      `json:"publicKey"`
	EncryptedDeviceKey string      `json:"encryptedDeviceKey"`
	KeyDerivationSalt  string      `json:"keyDerivationSalt"`
	EncryptionIV       string      `json:"encryptionIv"`
	CombinationSalt    string      `json:"combinationSalt"`
	PINSalt            *string     `json:"pinSalt,omitempty"`
	LastUsed           *time.Time  `json:"lastUsed"`
}

// KeyBundle is the encrypted key material released to an authorized owner.
// Everything here is opaque to the server; decryption happens client-side.
type KeyBundle struct {
	OrganizationID      id.OrgID          `json:"organizationId"`
	PublicKey           string            `json:"publicKey"`
	EncryptedPrivateKey string            `json:"encryptedPrivateKey"`
	KeyDerivationSalt   string            `json:"keyDerivationSalt"`
	EncryptionIV        string            `json:"encryptionIv"`
	MKDF                MKDFConfig        `json:"mkdf"`
	DeviceInfo          *DeviceUnlockInfo `json:"deviceInfo"`
}

// UnlockInfo projects a registration into the bundle payload.
func (d *DeviceRegistration) UnlockInfo() *DeviceUnlockInfo {
	return &DeviceUnlockInfo{
		ID:                 d.ID,
		DeviceName:         d.DeviceName,
		DeviceFingerprint:  d.DeviceFingerprint,
		PublicKey:          d.PublicKey,
		EncryptedDeviceKey: d.EncryptedDeviceKey,
		KeyDerivationSalt:  d.KeyDerivationSalt,
		EncryptionIV:       d.EncryptionIV,
		CombinationSalt:    d.CombinationSalt,
		PINSalt:            d.PINSalt,
		LastUsed:           d.LastUsed,
	}
}
