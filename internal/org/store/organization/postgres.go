package organization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so queries join an
// ambient transaction when one is carried in the context.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists organizations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed organization store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.pool
}

// factorConfig is the jsonb shape of the factor_config column.
type factorConfig struct {
	EnabledFactors            []models.Factor `json:"enabledFactors"`
	DeviceFingerprintRequired bool            `json:"deviceFingerprintRequired"`
}

const orgColumns = `id, name, owner_id, public_key, private_key_encrypted,
	key_derivation_salt, encryption_iv, mkdf_version, required_factors,
	factor_config, recovery_threshold, created_at, updated_at`

// Create inserts an organization row. Joins the ambient transaction when
// one is present in ctx.
func (s *PostgresStore) Create(ctx context.Context, org *models.Organization) error {
	cfg, err := json.Marshal(factorConfig{
		EnabledFactors:            org.MKDF.EnabledFactors,
		DeviceFingerprintRequired: org.MKDF.DeviceFingerprintRequired,
	})
	if err != nil {
		return fmt.Errorf("marshal factor config: %w", err)
	}
	_, err = s.q(ctx).Exec(ctx, `
		INSERT INTO organizations (id, name, owner_id, public_key, private_key_encrypted,
			key_derivation_salt, encryption_iv, mkdf_version, required_factors,
			factor_config, recovery_threshold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		org.ID.String(), org.Name, org.OwnerID.String(), org.PublicKey, org.EncryptedPrivateKey,
		org.KeyDerivationSalt, org.EncryptionIV, org.MKDF.Version, org.MKDF.RequiredFactors,
		cfg, org.MKDF.RecoveryThreshold, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

// FindByIDAndOwner returns the organization matching both id and owner in a
// single predicate, so absence and wrong ownership are indistinguishable.
func (s *PostgresStore) FindByIDAndOwner(ctx context.Context, orgID id.OrgID, ownerID id.UserID) (*models.Organization, error) {
	row := s.q(ctx).QueryRow(ctx, `
		SELECT `+orgColumns+`
		FROM organizations
		WHERE id = $1 AND owner_id = $2`,
		orgID.String(), ownerID.String(),
	)
	return scanOrganization(row)
}

// ExistsByIDAndOwner is the single-predicate access check.
func (s *PostgresStore) ExistsByIDAndOwner(ctx context.Context, orgID id.OrgID, ownerID id.UserID) (bool, error) {
	var exists bool
	err := s.q(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM organizations WHERE id = $1 AND owner_id = $2)`,
		orgID.String(), ownerID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check organization ownership: %w", err)
	}
	return exists, nil
}

// ListByOwner returns one page of the owner's organizations, newest first.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.UserID, offset, limit int) ([]*models.Organization, error) {
	rows, err := s.q(ctx).Query(ctx, `
		SELECT `+orgColumns+`
		FROM organizations
		WHERE owner_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`,
		ownerID.String(), offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

// CountByOwner returns the owner's total organization count.
func (s *PostgresStore) CountByOwner(ctx context.Context, ownerID id.UserID) (int, error) {
	var count int
	err := s.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM organizations WHERE owner_id = $1`, ownerID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count organizations: %w", err)
	}
	return count, nil
}

// UpdateName renames an organization, scoped by owner. Zero rows matched
// maps to ErrNotFound.
func (s *PostgresStore) UpdateName(ctx context.Context, orgID id.OrgID, ownerID id.UserID, name string, now time.Time) error {
	tag, err := s.q(ctx).Exec(ctx, `
		UPDATE organizations SET name = $3, updated_at = $4
		WHERE id = $1 AND owner_id = $2`,
		orgID.String(), ownerID.String(), name, now,
	)
	if err != nil {
		return fmt.Errorf("rename organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes the organization row, scoped by owner. Zero rows matched
// maps to ErrNotFound.
func (s *PostgresStore) Delete(ctx context.Context, orgID id.OrgID, ownerID id.UserID) error {
	tag, err := s.q(ctx).Exec(ctx, `
		DELETE FROM organizations WHERE id = $1 AND owner_id = $2`,
		orgID.String(), ownerID.String(),
	)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var (
		org     models.Organization
		rawID   string
		rawUser string
		rawCfg  []byte
	)
	err := row.Scan(
		&rawID, &org.Name, &rawUser, &org.PublicKey, &org.EncryptedPrivateKey,
		&org.KeyDerivationSalt, &org.EncryptionIV, &org.MKDF.Version, &org.MKDF.RequiredFactors,
		&rawCfg, &org.MKDF.RecoveryThreshold, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan organization: %w", err)
	}
	orgID, err := id.ParseOrgID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse organization id: %w", err)
	}
	ownerID, err := id.ParseUserID(rawUser)
	if err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}
	org.ID = orgID
	org.OwnerID = ownerID

	var cfg factorConfig
	if err := json.Unmarshal(rawCfg, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal factor config: %w", err)
	}
	org.MKDF.EnabledFactors = cfg.EnabledFactors
	org.MKDF.DeviceFingerprintRequired = cfg.DeviceFingerprintRequired
	return &org, nil
}
