package models

import (
	"time"

	id "custodia/pkg/domain"
)

// BackupPendingSentinel marks a recovery-backup row whose encrypted payload
// has not been uploaded yet. The placeholder is created inside the
// organization-creation transaction; population and consumption happen
// through the recovery flows, not this core.
const BackupPendingSentinel = "pending"

// BackupMetadata bounds how often a backup may be consumed.
type BackupMetadata struct {
	UsageLimit int `json:"usageLimit"`
	UsageCount int `json:"usageCount"`
}

// RecoveryBackup is an out-of-band encrypted copy of master key material.
type RecoveryBackup struct {
	ID              id.BackupID    `json:"id"`
	OrganizationID  id.OrgID       `json:"organizationId"`
	UserID          id.UserID      `json:"userId"`
	BackupType      string         `json:"backupType"`
	EncryptedBackup string         `json:"-"`
	Metadata        BackupMetadata `json:"metadata"`
	IsUsed          bool           `json:"isUsed"`
	ExpiresAt       *time.Time     `json:"expiresAt"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewPendingBackup constructs the placeholder recovery-backup row created
// alongside a new organization.
func NewPendingBackup(backupID id.BackupID, orgID id.OrgID, userID id.UserID, now time.Time) *RecoveryBackup {
	return &RecoveryBackup{
		ID:              backupID,
		OrganizationID:  orgID,
		UserID:          userID,
		BackupType:      "master_key",
		EncryptedBackup: BackupPendingSentinel,
		Metadata:        BackupMetadata{UsageLimit: 1, UsageCount: 0},
		IsUsed:          false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
