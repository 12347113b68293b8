package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// ListDevices returns every registration of the organization, including
// revoked ones, most recently used first. Gated by ownership.
func (s *Service) ListDevices(ctx context.Context, orgID id.OrgID, ownerID id.UserID) ([]*models.DeviceRegistration, error) {
	ctx, span := s.tracer.Start(ctx, "org.ListDevices")
	defer span.End()

	if err := s.access.Ensure(ctx, orgID, ownerID); err != nil {
		return nil, err
	}
	devices, err := s.devices.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, internal(err, "failed to list devices")
	}
	if devices == nil {
		devices = []*models.DeviceRegistration{}
	}
	return devices, nil
}

// RevokeDevice soft-revokes a device registration. Revoked is terminal: the
// registration stays visible in listings but can never unlock the
// organization again. A second revocation is a conflict, not a no-op.
func (s *Service) RevokeDevice(ctx context.Context, orgID id.OrgID, deviceID id.DeviceID, ownerID id.UserID) error {
	ctx, span := s.tracer.Start(ctx, "org.RevokeDevice")
	defer span.End()

	if err := s.access.Ensure(ctx, orgID, ownerID); err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	if err := s.devices.Revoke(ctx, deviceID, orgID, ownerID, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return deviceNotFound()
		case errors.Is(err, sentinel.ErrInvalidState):
			return deviceAlreadyRevoked()
		default:
			return internal(err, "failed to revoke device")
		}
	}

	s.appendRevocationRecord(ctx, orgID, deviceID, ownerID)
	s.logInfo(ctx, "device revoked",
		"organization_id", orgID,
		"device_id", deviceID,
		"actor_id", ownerID)
	if s.metrics != nil {
		s.metrics.IncrementDevicesRevoked()
	}
	return nil
}

// appendRevocationRecord writes the audit-trail entry for a completed
// revocation. The revocation itself already committed, so a trail failure is
// logged and swallowed.
func (s *Service) appendRevocationRecord(ctx context.Context, orgID id.OrgID, deviceID id.DeviceID, actorID id.UserID) {
	if s.audit == nil {
		return
	}
	rec := &models.DeviceRevocation{
		ID:             uuid.New(),
		OrganizationID: orgID,
		DeviceID:       deviceID,
		ActorID:        actorID,
		ClientIP:       requestcontext.ClientIP(ctx),
		UserAgent:      requestcontext.UserAgent(ctx),
		OccurredAt:     requestcontext.Now(ctx),
	}
	if err := s.audit.Append(ctx, rec); err != nil {
		s.logWarn(ctx, "failed to record device revocation",
			"organization_id", orgID,
			"device_id", deviceID,
			"error", err)
	}
}

// ListRevocations returns the organization's revocation trail, newest first.
// Gated by ownership.
func (s *Service) ListRevocations(ctx context.Context, orgID id.OrgID, ownerID id.UserID) ([]*models.DeviceRevocation, error) {
	ctx, span := s.tracer.Start(ctx, "org.ListRevocations")
	defer span.End()

	if err := s.access.Ensure(ctx, orgID, ownerID); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []*models.DeviceRevocation{}, nil
	}
	records, err := s.audit.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, internal(err, "failed to list device revocations")
	}
	if records == nil {
		records = []*models.DeviceRevocation{}
	}
	return records, nil
}
