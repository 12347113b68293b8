package service

import (
	"io"
	"log/slog"

	"github.com/google/uuid"

	"custodia/internal/org/models"
	"custodia/internal/org/store"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

func (s *ServiceSuite) TestCreateOrganization() {
	s.Run("creates organization with first device and pending backup", func() {
		created := s.mustCreate("Acme Vault")
		s.False(created.OrganizationID.IsZero())
		s.False(created.DeviceRegistrationID.IsZero())

		org, err := s.service.GetOrganization(s.ctx, created.OrganizationID, s.owner)
		s.Require().NoError(err)
		s.Equal("Acme Vault", org.Name)
		s.Equal(s.owner, org.OwnerID)

		devices, err := s.devices.ListByOrg(s.ctx, created.OrganizationID)
		s.Require().NoError(err)
		s.Require().Len(devices, 1)
		s.Equal(created.DeviceRegistrationID, devices[0].ID)
		s.True(devices[0].IsActive())

		backups, err := s.backups.ListByOrg(s.ctx, created.OrganizationID)
		s.Require().NoError(err)
		s.Require().Len(backups, 1)
		s.Equal(models.BackupPendingSentinel, backups[0].EncryptedBackup)
		s.False(backups[0].IsUsed)
	})

	s.Run("empty name is a validation error", func() {
		p := validParams("   ")
		_, err := s.service.CreateOrganization(s.ctx, s.owner, p)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(models.PublicCodeValidation, dErrors.PublicCode(err))
	})

	s.Run("required factors above enabled factors is a validation error", func() {
		p := validParams("Overconstrained")
		p.MKDF.RequiredFactors = 3
		_, err := s.service.CreateOrganization(s.ctx, s.owner, p)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing device key material is a validation error", func() {
		p := validParams("No Device Key")
		p.Device.EncryptedDeviceKey = ""
		_, err := s.service.CreateOrganization(s.ctx, s.owner, p)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

}

// Runs as its own test method so the rollback is asserted against fresh
// store state.
func (s *ServiceSuite) TestCreateOrganizationRollback() {
	backups := &failingBackupStore{s.backups}
	txr := store.NewInMemoryTx(s.orgs, s.devices, s.backups)
	svc := New(s.orgs, s.devices, s.backups, txr,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	svc.backups = backups

	_, err := svc.CreateOrganization(s.ctx, s.owner, validParams("Doomed"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	count, err := s.orgs.CountByOwner(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Equal(0, count, "the organization insert must be rolled back")
}

func (s *ServiceSuite) TestListOrganizations() {
	s.Run("empty listing returns an empty page", func() {
		page, err := s.service.ListOrganizations(s.ctx, s.owner, 1, 10)
		s.Require().NoError(err)
		s.NotNil(page.Organizations)
		s.Empty(page.Organizations)
		s.Equal(0, page.PageInfo.Total)
	})

	s.Run("paginates newest first with clamped inputs", func() {
		for i := 0; i < 15; i++ {
			s.mustCreate("Org")
		}

		// Page and limit below bounds are clamped, not rejected.
		page, err := s.service.ListOrganizations(s.ctx, s.owner, 0, 0)
		s.Require().NoError(err)
		s.Equal(1, page.PageInfo.Page)
		s.Equal(models.DefaultPageLimit, page.PageInfo.Limit)
		s.Len(page.Organizations, models.DefaultPageLimit)
		s.Equal(15, page.PageInfo.Total)
		s.Equal(2, page.PageInfo.Pages)
		s.True(page.PageInfo.HasNext)
		s.False(page.PageInfo.HasPrev)

		last, err := s.service.ListOrganizations(s.ctx, s.owner, 2, 10)
		s.Require().NoError(err)
		s.Len(last.Organizations, 5)
		s.False(last.PageInfo.HasNext)
		s.True(last.PageInfo.HasPrev)
	})

	s.Run("oversized limit is clamped to the maximum", func() {
		page, err := s.service.ListOrganizations(s.ctx, s.owner, 1, 5000)
		s.Require().NoError(err)
		s.Equal(models.MaxPageLimit, page.PageInfo.Limit)
	})

	s.Run("only the caller's organizations are listed", func() {
		s.mustCreate("Mine")
		page, err := s.service.ListOrganizations(s.ctx, id.UserID(uuid.New()), 1, 10)
		s.Require().NoError(err)
		s.Empty(page.Organizations)
	})
}

func (s *ServiceSuite) TestGetOrganization() {
	created := s.mustCreate("Private")

	s.Run("owner can read it", func() {
		org, err := s.service.GetOrganization(s.ctx, created.OrganizationID, s.owner)
		s.Require().NoError(err)
		s.Equal("Private", org.Name)
	})

	s.Run("non-owner sees not found, not forbidden", func() {
		_, err := s.service.GetOrganization(s.ctx, created.OrganizationID, id.UserID(uuid.New()))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(models.PublicCodeOrgNotFound, dErrors.PublicCode(err))
	})
}

func (s *ServiceSuite) TestRenameOrganization() {
	created := s.mustCreate("Before")

	s.Run("owner renames", func() {
		org, err := s.service.RenameOrganization(s.ctx, created.OrganizationID, s.owner, "  After  ")
		s.Require().NoError(err)
		s.Equal("After", org.Name)
	})

	s.Run("empty name is a validation error", func() {
		_, err := s.service.RenameOrganization(s.ctx, created.OrganizationID, s.owner, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("non-owner sees not found", func() {
		_, err := s.service.RenameOrganization(s.ctx, created.OrganizationID, id.UserID(uuid.New()), "Taken")
		s.Require().Error(err)
		s.Equal(models.PublicCodeOrgNotFound, dErrors.PublicCode(err))
	})
}

func (s *ServiceSuite) TestRemoveOrganization() {
	s.Run("teardown cascades to devices and backups", func() {
		created := s.mustCreate("Doomed")
		s.Require().NoError(s.service.RemoveOrganization(s.ctx, created.OrganizationID, s.owner))

		_, err := s.service.GetOrganization(s.ctx, created.OrganizationID, s.owner)
		s.Require().Error(err)
		s.Equal(models.PublicCodeOrgNotFound, dErrors.PublicCode(err))

		devices, err := s.devices.ListByOrg(s.ctx, created.OrganizationID)
		s.Require().NoError(err)
		s.Empty(devices)

		backups, err := s.backups.ListByOrg(s.ctx, created.OrganizationID)
		s.Require().NoError(err)
		s.Empty(backups)
	})

	s.Run("non-owner cannot tear down", func() {
		created := s.mustCreate("Kept")
		err := s.service.RemoveOrganization(s.ctx, created.OrganizationID, id.UserID(uuid.New()))
		s.Require().Error(err)
		s.Equal(models.PublicCodeOrgNotFound, dErrors.PublicCode(err))

		_, err = s.service.GetOrganization(s.ctx, created.OrganizationID, s.owner)
		s.Require().NoError(err)
	})

	s.Run("owner can start fresh after teardown", func() {
		created := s.mustCreate("Rebuilt")
		s.Require().NoError(s.service.RemoveOrganization(s.ctx, created.OrganizationID, s.owner))

		again := s.mustCreate("Rebuilt")
		s.NotEqual(created.OrganizationID, again.OrganizationID)

		org, err := s.service.GetOrganization(s.ctx, again.OrganizationID, s.owner)
		s.Require().NoError(err)
		s.Equal("Rebuilt", org.Name)
	})
}
