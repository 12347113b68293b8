package service

import (
	"github.com/google/uuid"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

func (s *ServiceSuite) TestListDevices() {
	created := s.mustCreate("Acme")

	s.Run("owner sees registrations including revoked ones", func() {
		s.Require().NoError(s.service.RevokeDevice(s.ctx, created.OrganizationID, created.DeviceRegistrationID, s.owner))

		devices, err := s.service.ListDevices(s.ctx, created.OrganizationID, s.owner)
		s.Require().NoError(err)
		s.Require().Len(devices, 1)
		s.Equal(models.DeviceStatusRevoked, devices[0].Status)
	})

	s.Run("non-owner sees organization not found", func() {
		_, err := s.service.ListDevices(s.ctx, created.OrganizationID, id.UserID(uuid.New()))
		s.Require().Error(err)
		s.Equal(models.PublicCodeOrgNotFound, dErrors.PublicCode(err))
	})
}

func (s *ServiceSuite) TestRevokeDevice() {
	s.Run("revocation is terminal and repeat attempts conflict", func() {
		created := s.mustCreate("Acme")

		s.Require().NoError(s.service.RevokeDevice(s.ctx, created.OrganizationID, created.DeviceRegistrationID, s.owner))

		err := s.service.RevokeDevice(s.ctx, created.OrganizationID, created.DeviceRegistrationID, s.owner)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(models.PublicCodeDeviceAlreadyRevoked, dErrors.PublicCode(err))

		devices, lerr := s.service.ListDevices(s.ctx, created.OrganizationID, s.owner)
		s.Require().NoError(lerr)
		s.Require().Len(devices, 1)
		s.Equal(models.DeviceStatusRevoked, devices[0].Status)
	})

	s.Run("a device from a sibling organization is not found", func() {
		first := s.mustCreate("First")
		second := s.mustCreate("Second")

		// Both organizations belong to the caller, but the device lives in
		// the other one; the scoped filter must reject the cross-reference.
		err := s.service.RevokeDevice(s.ctx, first.OrganizationID, second.DeviceRegistrationID, s.owner)
		s.Require().Error(err)
		s.Equal(models.PublicCodeDeviceNotFound, dErrors.PublicCode(err))

		devices, lerr := s.service.ListDevices(s.ctx, second.OrganizationID, s.owner)
		s.Require().NoError(lerr)
		s.Require().Len(devices, 1)
		s.True(devices[0].IsActive(), "the foreign device must stay active")
	})

	s.Run("non-owner is stopped at the organization gate", func() {
		created := s.mustCreate("Gated")
		err := s.service.RevokeDevice(s.ctx, created.OrganizationID, created.DeviceRegistrationID, id.UserID(uuid.New()))
		s.Require().Error(err)
		s.Equal(models.PublicCodeOrgNotFound, dErrors.PublicCode(err))
	})

	s.Run("unknown device is not found", func() {
		created := s.mustCreate("Sparse")
		err := s.service.RevokeDevice(s.ctx, created.OrganizationID, id.DeviceID(uuid.New()), s.owner)
		s.Require().Error(err)
		s.Equal(models.PublicCodeDeviceNotFound, dErrors.PublicCode(err))
	})
}

func (s *ServiceSuite) TestListRevocations() {
	created := s.mustCreate("Audited")

	s.Run("trail starts empty", func() {
		records, err := s.service.ListRevocations(s.ctx, created.OrganizationID, s.owner)
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("revocation appends a trail record with client metadata", func() {
		ctx := requestcontext.WithClientMetadata(s.ctx, "198.51.100.7", "custodia-cli/1.0", "custodia-cli")
		s.Require().NoError(s.service.RevokeDevice(ctx, created.OrganizationID, created.DeviceRegistrationID, s.owner))

		records, err := s.service.ListRevocations(s.ctx, created.OrganizationID, s.owner)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal(created.DeviceRegistrationID, records[0].DeviceID)
		s.Equal(s.owner, records[0].ActorID)
		s.Equal("198.51.100.7", records[0].ClientIP)
		s.Equal("custodia-cli/1.0", records[0].UserAgent)
	})

	s.Run("non-owner sees organization not found", func() {
		_, err := s.service.ListRevocations(s.ctx, created.OrganizationID, id.UserID(uuid.New()))
		s.Require().Error(err)
		s.Equal(models.PublicCodeOrgNotFound, dErrors.PublicCode(err))
	})
}
