package service

import (
	"time"

	"github.com/google/uuid"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

func (s *ServiceSuite) TestKeys() {
	s.Run("releases the bundle with the registered device", func() {
		created := s.mustCreate("Acme")

		bundle, err := s.service.Keys(s.ctx, created.OrganizationID, s.owner)
		s.Require().NoError(err)
		s.Equal(created.OrganizationID, bundle.OrganizationID)
		s.Equal("org-pub", bundle.PublicKey)
		s.Equal("org-priv", bundle.EncryptedPrivateKey)
		s.Equal(2, bundle.MKDF.RequiredFactors)
		s.Require().NotNil(bundle.DeviceInfo)
		s.Equal(created.DeviceRegistrationID, bundle.DeviceInfo.ID)
		s.Equal("dev-edk", bundle.DeviceInfo.EncryptedDeviceKey)
	})

	s.Run("release marks the device as used", func() {
		created := s.mustCreate("Tracked")
		released := time.Now().Truncate(time.Millisecond)
		ctx := requestcontext.WithTime(s.ctx, released)

		_, err := s.service.Keys(ctx, created.OrganizationID, s.owner)
		s.Require().NoError(err)

		devices, err := s.devices.ListByOrg(s.ctx, created.OrganizationID)
		s.Require().NoError(err)
		s.Require().Len(devices, 1)
		s.Require().NotNil(devices[0].LastUsed)
		s.True(devices[0].LastUsed.Equal(released))
	})

	s.Run("all devices revoked still releases the bundle without device info", func() {
		created := s.mustCreate("Deviceless")
		s.Require().NoError(s.service.RevokeDevice(s.ctx, created.OrganizationID, created.DeviceRegistrationID, s.owner))

		bundle, err := s.service.Keys(s.ctx, created.OrganizationID, s.owner)
		s.Require().NoError(err)
		s.Nil(bundle.DeviceInfo, "clients fall back to their other unlock factors")
		s.Equal("org-priv", bundle.EncryptedPrivateKey)
	})

	s.Run("non-owner sees organization not found", func() {
		created := s.mustCreate("Private")
		_, err := s.service.Keys(s.ctx, created.OrganizationID, id.UserID(uuid.New()))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(models.PublicCodeOrgNotFound, dErrors.PublicCode(err))
	})

	s.Run("revoking the selected device shifts release to the next one", func() {
		created := s.mustCreate("Rotating")

		// Register a second device directly; creation only ever registers one.
		secondID := id.NewDeviceID()
		second, err := models.NewDeviceRegistration(secondID, created.OrganizationID, s.owner, &models.DeviceInfo{
			DeviceName:         "phone",
			DeviceFingerprint:  "fp-phone",
			PublicKey:          "dev-pub-2",
			EncryptedDeviceKey: "dev-edk-2",
			KeyDerivationSalt:  "dev-salt-2",
			EncryptionIV:       "dev-iv-2",
			CombinationSalt:    "dev-combo-2",
		}, time.Now())
		s.Require().NoError(err)
		s.Require().NoError(s.devices.Create(s.ctx, second))
		s.Require().NoError(s.devices.TouchLastUsed(s.ctx, secondID, time.Now()))

		bundle, err := s.service.Keys(s.ctx, created.OrganizationID, s.owner)
		s.Require().NoError(err)
		s.Require().NotNil(bundle.DeviceInfo)
		s.Equal(secondID, bundle.DeviceInfo.ID, "the most recently used device wins")

		s.Require().NoError(s.service.RevokeDevice(s.ctx, created.OrganizationID, secondID, s.owner))

		bundle, err = s.service.Keys(s.ctx, created.OrganizationID, s.owner)
		s.Require().NoError(err)
		s.Require().NotNil(bundle.DeviceInfo)
		s.Equal(created.DeviceRegistrationID, bundle.DeviceInfo.ID)
	})
}
