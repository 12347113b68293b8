package backup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/tx"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists recovery backups in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.pool
}

// Create inserts a recovery-backup row. Joins the ambient transaction when
// one is present in ctx.
func (s *PostgresStore) Create(ctx context.Context, b *models.RecoveryBackup) error {
	meta, err := json.Marshal(b.Metadata)
	if err != nil {
		return fmt.Errorf("marshal backup metadata: %w", err)
	}
	_, err = s.q(ctx).Exec(ctx, `
		INSERT INTO recovery_backups (id, organization_id, user_id, backup_type,
			encrypted_backup, backup_metadata, is_used, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID.String(), b.OrganizationID.String(), b.UserID.String(), b.BackupType,
		b.EncryptedBackup, meta, b.IsUsed, b.ExpiresAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recovery backup: %w", err)
	}
	return nil
}

// ListByOrg returns the organization's backups, newest first.
func (s *PostgresStore) ListByOrg(ctx context.Context, orgID id.OrgID) ([]*models.RecoveryBackup, error) {
	rows, err := s.q(ctx).Query(ctx, `
		SELECT id, organization_id, user_id, backup_type, encrypted_backup,
			backup_metadata, is_used, expires_at, created_at, updated_at
		FROM recovery_backups
		WHERE organization_id = $1
		ORDER BY created_at DESC`,
		orgID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list recovery backups: %w", err)
	}
	defer rows.Close()

	var out []*models.RecoveryBackup
	for rows.Next() {
		var (
			b       models.RecoveryBackup
			rawID   string
			rawOrg  string
			rawUser string
			rawMeta []byte
		)
		err := rows.Scan(&rawID, &rawOrg, &rawUser, &b.BackupType, &b.EncryptedBackup,
			&rawMeta, &b.IsUsed, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan recovery backup: %w", err)
		}
		backupID, err := id.ParseBackupID(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse backup id: %w", err)
		}
		orgID, err := id.ParseOrgID(rawOrg)
		if err != nil {
			return nil, fmt.Errorf("parse organization id: %w", err)
		}
		userID, err := id.ParseUserID(rawUser)
		if err != nil {
			return nil, fmt.Errorf("parse user id: %w", err)
		}
		b.ID = backupID
		b.OrganizationID = orgID
		b.UserID = userID
		if err := json.Unmarshal(rawMeta, &b.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal backup metadata: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// DeleteByOrg removes every backup of an organization. Used by the teardown
// transaction; the FK cascade is only a backstop.
func (s *PostgresStore) DeleteByOrg(ctx context.Context, orgID id.OrgID) error {
	_, err := s.q(ctx).Exec(ctx, `DELETE FROM recovery_backups WHERE organization_id = $1`, orgID.String())
	if err != nil {
		return fmt.Errorf("delete recovery backups for organization: %w", err)
	}
	return nil
}
