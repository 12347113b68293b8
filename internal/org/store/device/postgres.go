package device

import (
	"context"
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

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists device registrations in PostgreSQL.
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

const deviceColumns = `id, organization_id, user_id, device_name, device_fingerprint,
	public_key, encrypted_device_key, key_derivation_salt, encryption_iv,
	combination_salt, pin_salt, is_active, last_used, created_at, updated_at`

// Create inserts a device registration. Joins the ambient transaction when
// one is present in ctx.
func (s *PostgresStore) Create(ctx context.Context, d *models.DeviceRegistration) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO device_registrations (id, organization_id, user_id, device_name,
			device_fingerprint, public_key, encrypted_device_key, key_derivation_salt,
			encryption_iv, combination_salt, pin_salt, is_active, last_used, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		d.ID.String(), d.OrganizationID.String(), d.UserID.String(), d.DeviceName,
		d.DeviceFingerprint, d.PublicKey, d.EncryptedDeviceKey, d.KeyDerivationSalt,
		d.EncryptionIV, d.CombinationSalt, d.PINSalt, d.IsActive(), d.LastUsed, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert device registration: %w", err)
	}
	return nil
}

// ListByOrg returns all registrations for an organization ordered
// most-recently-used first. The caller is responsible for the ownership
// gate; this query is not scoped by user.
func (s *PostgresStore) ListByOrg(ctx context.Context, orgID id.OrgID) ([]*models.DeviceRegistration, error) {
	rows, err := s.q(ctx).Query(ctx, `
		SELECT `+deviceColumns+`
		FROM device_registrations
		WHERE organization_id = $1
		ORDER BY last_used DESC NULLS LAST, created_at DESC`,
		orgID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var out []*models.DeviceRegistration
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Revoke performs the scoped soft revocation: the update is filtered by the
// full (device, organization, owner) triple plus the active flag, so a
// caller can never revoke a device outside their own organization. When no
// active row matches, the store distinguishes an already-revoked row
// (ErrInvalidState) from absence (ErrNotFound).
func (s *PostgresStore) Revoke(ctx context.Context, deviceID id.DeviceID, orgID id.OrgID, ownerID id.UserID, now time.Time) error {
	tag, err := s.q(ctx).Exec(ctx, `
		UPDATE device_registrations
		SET is_active = FALSE, updated_at = $4
		WHERE id = $1 AND organization_id = $2 AND user_id = $3 AND is_active`,
		deviceID.String(), orgID.String(), ownerID.String(), now,
	)
	if err != nil {
		return fmt.Errorf("revoke device: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var isActive bool
	err = s.q(ctx).QueryRow(ctx, `
		SELECT is_active FROM device_registrations
		WHERE id = $1 AND organization_id = $2 AND user_id = $3`,
		deviceID.String(), orgID.String(), ownerID.String(),
	).Scan(&isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("inspect device after revoke: %w", err)
	}
	return sentinel.ErrInvalidState
}

// FindActiveForUnlock selects the single active device used for key
// release, deterministically the most recently used one.
func (s *PostgresStore) FindActiveForUnlock(ctx context.Context, orgID id.OrgID, ownerID id.UserID) (*models.DeviceRegistration, error) {
	row := s.q(ctx).QueryRow(ctx, `
		SELECT `+deviceColumns+`
		FROM device_registrations
		WHERE organization_id = $1 AND user_id = $2 AND is_active
		ORDER BY last_used DESC NULLS LAST, created_at DESC
		LIMIT 1`,
		orgID.String(), ownerID.String(),
	)
	return scanDevice(row)
}

// TouchLastUsed advances last_used monotonically: a concurrent touch with
// an older timestamp never moves the column backward.
func (s *PostgresStore) TouchLastUsed(ctx context.Context, deviceID id.DeviceID, now time.Time) error {
	_, err := s.q(ctx).Exec(ctx, `
		UPDATE device_registrations
		SET last_used = GREATEST(COALESCE(last_used, $2), $2)
		WHERE id = $1`,
		deviceID.String(), now,
	)
	if err != nil {
		return fmt.Errorf("touch device last_used: %w", err)
	}
	return nil
}

// DeleteByOrg removes every registration of an organization. Used by the
// teardown transaction; the FK cascade is only a backstop.
func (s *PostgresStore) DeleteByOrg(ctx context.Context, orgID id.OrgID) error {
	_, err := s.q(ctx).Exec(ctx, `DELETE FROM device_registrations WHERE organization_id = $1`, orgID.String())
	if err != nil {
		return fmt.Errorf("delete devices for organization: %w", err)
	}
	return nil
}

func scanDevice(row pgx.Row) (*models.DeviceRegistration, error) {
	var (
		d        models.DeviceRegistration
		rawID    string
		rawOrg   string
		rawUser  string
		isActive bool
	)
	err := row.Scan(
		&rawID, &rawOrg, &rawUser, &d.DeviceName, &d.DeviceFingerprint,
		&d.PublicKey, &d.EncryptedDeviceKey, &d.KeyDerivationSalt, &d.EncryptionIV,
		&d.CombinationSalt, &d.PINSalt, &isActive, &d.LastUsed, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan device registration: %w", err)
	}
	deviceID, err := id.ParseDeviceID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse device id: %w", err)
	}
	orgID, err := id.ParseOrgID(rawOrg)
	if err != nil {
		return nil, fmt.Errorf("parse organization id: %w", err)
	}
	userID, err := id.ParseUserID(rawUser)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	d.ID = deviceID
	d.OrganizationID = orgID
	d.UserID = userID
	if isActive {
		d.Status = models.DeviceStatusActive
	} else {
		d.Status = models.DeviceStatusRevoked
	}
	return &d, nil
}
