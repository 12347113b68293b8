// Package domain holds the typed identifiers shared by every module.
//
// Each aggregate gets its own uuid-backed type so the compiler rejects
// cross-type assignment (an OrgID can never be passed where a DeviceID is
// expected). Parsing happens once, at the trust boundary.
package domain

import (
	"github.com/google/uuid"

	dErrors "custodia/pkg/domain-errors"
)

type (
	// OrgID identifies an organization.
	OrgID uuid.UUID
	// UserID identifies an organization owner (issued by the external
	// authentication collaborator).
	UserID uuid.UUID
	// DeviceID identifies a device registration.
	DeviceID uuid.UUID
	// BackupID identifies a recovery backup row.
	BackupID uuid.UUID
)

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return id, nil
}

// ParseOrgID parses and validates an organization id.
func ParseOrgID(raw string) (OrgID, error) {
	id, err := parseUUID(raw, "organization")
	return OrgID(id), err
}

// ParseUserID parses and validates a user id.
func ParseUserID(raw string) (UserID, error) {
	id, err := parseUUID(raw, "user")
	return UserID(id), err
}

// ParseDeviceID parses and validates a device id.
func ParseDeviceID(raw string) (DeviceID, error) {
	id, err := parseUUID(raw, "device")
	return DeviceID(id), err
}

// ParseBackupID parses and validates a backup id.
func ParseBackupID(raw string) (BackupID, error) {
	id, err := parseUUID(raw, "backup")
	return BackupID(id), err
}

// NewOrgID returns a fresh random organization id.
func NewOrgID() OrgID { return OrgID(uuid.New()) }

// NewDeviceID returns a fresh random device id.
func NewDeviceID() DeviceID { return DeviceID(uuid.New()) }

// NewBackupID returns a fresh random backup id.
func NewBackupID() BackupID { return BackupID(uuid.New()) }

func (id OrgID) String() string    { return uuid.UUID(id).String() }
func (id UserID) String() string   { return uuid.UUID(id).String() }
func (id DeviceID) String() string { return uuid.UUID(id).String() }
func (id BackupID) String() string { return uuid.UUID(id).String() }

func (id OrgID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsZero() bool   { return uuid.UUID(id) == uuid.Nil }
func (id DeviceID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id BackupID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

func (id OrgID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id DeviceID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id BackupID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *OrgID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrgID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DeviceID) UnmarshalText(b []byte) error {
	parsed, err := ParseDeviceID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *BackupID) UnmarshalText(b []byte) error {
	parsed, err := ParseBackupID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
