package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// CreateOrganization provisions a vault tenant. The organization, its first
// device registration and the pending recovery-backup placeholder are
// written in one transaction: either all three exist afterwards or none do.
func (s *Service) CreateOrganization(ctx context.Context, ownerID id.UserID, p *models.CreateOrganizationParams) (*models.OrganizationCreated, error) {
	ctx, span := s.tracer.Start(ctx, "org.CreateOrganization")
	defer span.End()
	start := time.Now()

	p.Name = strings.TrimSpace(p.Name)
	now := requestcontext.Now(ctx)

	org, err := models.NewOrganization(id.NewOrgID(), ownerID, p, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, validation(err)
		}
		return nil, err
	}
	device, err := models.NewDeviceRegistration(id.NewDeviceID(), org.ID, ownerID, &p.Device, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, validation(err)
		}
		return nil, err
	}
	backup := models.NewPendingBackup(id.NewBackupID(), org.ID, ownerID, now)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.orgs.Create(ctx, org); err != nil {
			return err
		}
		if err := s.devices.Create(ctx, device); err != nil {
			return err
		}
		return s.backups.Create(ctx, backup)
	})
	if err != nil {
		return nil, internal(err, "failed to create organization")
	}

	s.logInfo(ctx, "organization created",
		"organization_id", org.ID,
		"device_id", device.ID,
		"owner_id", ownerID)
	if s.metrics != nil {
		s.metrics.IncrementOrganizationsCreated()
		s.metrics.ObserveCreateOrg(start)
	}
	return &models.OrganizationCreated{
		OrganizationID:       org.ID,
		DeviceRegistrationID: device.ID,
	}, nil
}

// ListOrganizations returns one page of the caller's organizations, newest
// first. Page and limit are clamped rather than rejected.
func (s *Service) ListOrganizations(ctx context.Context, ownerID id.UserID, page, limit int) (*models.OrganizationPage, error) {
	ctx, span := s.tracer.Start(ctx, "org.ListOrganizations")
	defer span.End()

	page = models.ClampPage(page)
	limit = models.ClampLimit(limit)

	total, err := s.orgs.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, internal(err, "failed to count organizations")
	}
	orgs, err := s.orgs.ListByOwner(ctx, ownerID, (page-1)*limit, limit)
	if err != nil {
		return nil, internal(err, "failed to list organizations")
	}
	if orgs == nil {
		orgs = []*models.Organization{}
	}
	return &models.OrganizationPage{
		Organizations: orgs,
		PageInfo:      models.NewPageInfo(total, page, limit),
	}, nil
}

// GetOrganization returns the organization only to its owner.
func (s *Service) GetOrganization(ctx context.Context, orgID id.OrgID, ownerID id.UserID) (*models.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "org.GetOrganization")
	defer span.End()

	org, err := s.orgs.FindByIDAndOwner(ctx, orgID, ownerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, orgNotFound()
		}
		return nil, internal(err, "failed to load organization")
	}
	return org, nil
}

// RenameOrganization changes the display name, scoped to the owner.
func (s *Service) RenameOrganization(ctx context.Context, orgID id.OrgID, ownerID id.UserID, name string) (*models.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "org.RenameOrganization")
	defer span.End()

	name = strings.TrimSpace(name)
	if err := models.ValidateName(name); err != nil {
		return nil, validation(err)
	}

	now := requestcontext.Now(ctx)
	if err := s.orgs.UpdateName(ctx, orgID, ownerID, name, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, orgNotFound()
		}
		return nil, internal(err, "failed to rename organization")
	}

	s.logInfo(ctx, "organization renamed", "organization_id", orgID)
	return s.GetOrganization(ctx, orgID, ownerID)
}

// RemoveOrganization tears an organization down: every device registration
// and recovery backup goes with it, in one transaction. When the transaction
// fails, existence is re-checked so the caller learns whether the teardown
// took effect despite the error.
func (s *Service) RemoveOrganization(ctx context.Context, orgID id.OrgID, ownerID id.UserID) error {
	ctx, span := s.tracer.Start(ctx, "org.RemoveOrganization")
	defer span.End()

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.devices.DeleteByOrg(ctx, orgID); err != nil {
			return err
		}
		if err := s.backups.DeleteByOrg(ctx, orgID); err != nil {
			return err
		}
		return s.orgs.Delete(ctx, orgID, ownerID)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return orgNotFound()
		}
		exists, checkErr := s.orgs.ExistsByIDAndOwner(ctx, orgID, ownerID)
		if checkErr == nil && !exists {
			// The organization is gone even though the transaction errored.
			// Surface the ambiguity instead of claiming a clean failure.
			return dErrors.Wrap(err, dErrors.CodeInternal, "organization removal finished in an unknown state").
				WithPublic(models.PublicCodeUnknown)
		}
		return internal(err, "failed to remove organization")
	}

	s.access.Invalidate(ctx, orgID, ownerID)
	s.logInfo(ctx, "organization removed", "organization_id", orgID, "owner_id", ownerID)
	if s.metrics != nil {
		s.metrics.IncrementOrganizationsRemoved()
	}
	return nil
}
