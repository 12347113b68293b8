package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
)

// PostgresStore persists the device-revocation trail through database/sql.
// The trail is append-only and read outside the request hot path, so it
// rides a plain *sql.DB rather than the pgx pool the main stores share.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append records one revocation event. Failures here must not undo the
// revocation itself; the caller logs and continues.
func (s *PostgresStore) Append(ctx context.Context, rec *models.DeviceRevocation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO device_revocations (id, organization_id, device_id, actor_id,
			client_ip, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID.String(), rec.OrganizationID.String(), rec.DeviceID.String(), rec.ActorID.String(),
		rec.ClientIP, rec.UserAgent, rec.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append device revocation: %w", err)
	}
	return nil
}

// ListByOrg returns the organization's revocation trail, newest first.
func (s *PostgresStore) ListByOrg(ctx context.Context, orgID id.OrgID) ([]*models.DeviceRevocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, device_id, actor_id, client_ip, user_agent, occurred_at
		FROM device_revocations
		WHERE organization_id = $1
		ORDER BY occurred_at DESC`,
		orgID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list device revocations: %w", err)
	}
	defer rows.Close()

	var out []*models.DeviceRevocation
	for rows.Next() {
		var (
			rec       models.DeviceRevocation
			rawID     string
			rawOrg    string
			rawDevice string
			rawActor  string
		)
		err := rows.Scan(&rawID, &rawOrg, &rawDevice, &rawActor, &rec.ClientIP, &rec.UserAgent, &rec.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("scan device revocation: %w", err)
		}
		recID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse revocation id: %w", err)
		}
		orgID, err := id.ParseOrgID(rawOrg)
		if err != nil {
			return nil, fmt.Errorf("parse organization id: %w", err)
		}
		deviceID, err := id.ParseDeviceID(rawDevice)
		if err != nil {
			return nil, fmt.Errorf("parse device id: %w", err)
		}
		actorID, err := id.ParseUserID(rawActor)
		if err != nil {
			return nil, fmt.Errorf("parse actor id: %w", err)
		}
		rec.ID = recID
		rec.OrganizationID = orgID
		rec.DeviceID = deviceID
		rec.ActorID = actorID
		out = append(out, &rec)
	}
	return out, rows.Err()
}
