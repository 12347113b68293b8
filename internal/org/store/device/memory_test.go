package device

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type DeviceStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	org   id.OrgID
	owner id.UserID
}

func (s *DeviceStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.org = id.OrgID(uuid.New())
	s.owner = id.UserID(uuid.New())
}

func TestDeviceStoreSuite(t *testing.T) {
	suite.Run(t, new(DeviceStoreSuite))
}

func (s *DeviceStoreSuite) newDevice(name string, createdAt time.Time) *models.DeviceRegistration {
	return &models.DeviceRegistration{
		ID:                 id.DeviceID(uuid.New()),
		OrganizationID:     s.org,
		UserID:             s.owner,
		DeviceName:         name,
		DeviceFingerprint:  "fp-" + name,
		PublicKey:          "pub",
		EncryptedDeviceKey: "edk",
		KeyDerivationSalt:  "salt",
		EncryptionIV:       "iv",
		CombinationSalt:    "combo",
		Status:             models.DeviceStatusActive,
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
	}
}

// TestRevocation verifies the scoped soft revocation and its terminal state.
func (s *DeviceStoreSuite) TestRevocation() {
	s.Run("revokes an active device", func() {
		d := s.newDevice("laptop", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, d))

		s.Require().NoError(s.store.Revoke(s.ctx, d.ID, s.org, s.owner, time.Now()))

		devices, err := s.store.ListByOrg(s.ctx, s.org)
		s.Require().NoError(err)
		s.Require().Len(devices, 1)
		s.Equal(models.DeviceStatusRevoked, devices[0].Status)
	})

	s.Run("second revocation reports invalid state", func() {
		d := s.newDevice("phone", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, d))
		s.Require().NoError(s.store.Revoke(s.ctx, d.ID, s.org, s.owner, time.Now()))

		err := s.store.Revoke(s.ctx, d.ID, s.org, s.owner, time.Now())
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("wrong organization or owner reports not found", func() {
		s.store = NewInMemory()
		d := s.newDevice("tablet", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, d))

		err := s.store.Revoke(s.ctx, d.ID, id.OrgID(uuid.New()), s.owner, time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		err = s.store.Revoke(s.ctx, d.ID, s.org, id.UserID(uuid.New()), time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		// The device must still be active after both rejections.
		devices, lerr := s.store.ListByOrg(s.ctx, s.org)
		s.Require().NoError(lerr)
		s.Require().Len(devices, 1)
		s.True(devices[0].IsActive())
	})
}

// TestUnlockSelection verifies the deterministic most-recently-used pick.
func (s *DeviceStoreSuite) TestUnlockSelection() {
	s.Run("prefers the most recently used active device", func() {
		older := s.newDevice("older", time.Now().Add(-2*time.Hour))
		newer := s.newDevice("newer", time.Now().Add(-time.Hour))
		s.Require().NoError(s.store.Create(s.ctx, older))
		s.Require().NoError(s.store.Create(s.ctx, newer))

		used := time.Now()
		s.Require().NoError(s.store.TouchLastUsed(s.ctx, older.ID, used))

		picked, err := s.store.FindActiveForUnlock(s.ctx, s.org, s.owner)
		s.Require().NoError(err)
		s.Equal(older.ID, picked.ID)
	})

	s.Run("falls back to newest created when never used", func() {
		s.store = NewInMemory()
		first := s.newDevice("first", time.Now().Add(-2*time.Hour))
		second := s.newDevice("second", time.Now().Add(-time.Hour))
		s.Require().NoError(s.store.Create(s.ctx, first))
		s.Require().NoError(s.store.Create(s.ctx, second))

		picked, err := s.store.FindActiveForUnlock(s.ctx, s.org, s.owner)
		s.Require().NoError(err)
		s.Equal(second.ID, picked.ID)
	})

	s.Run("skips revoked devices", func() {
		s.store = NewInMemory()
		active := s.newDevice("active", time.Now().Add(-2*time.Hour))
		revoked := s.newDevice("revoked", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, active))
		s.Require().NoError(s.store.Create(s.ctx, revoked))
		s.Require().NoError(s.store.Revoke(s.ctx, revoked.ID, s.org, s.owner, time.Now()))

		picked, err := s.store.FindActiveForUnlock(s.ctx, s.org, s.owner)
		s.Require().NoError(err)
		s.Equal(active.ID, picked.ID)
	})

	s.Run("no active device reports not found", func() {
		s.store = NewInMemory()
		_, err := s.store.FindActiveForUnlock(s.ctx, s.org, s.owner)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestTouchLastUsed verifies the monotonic last-used update.
func (s *DeviceStoreSuite) TestTouchLastUsed() {
	d := s.newDevice("laptop", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, d))

	later := time.Now()
	earlier := later.Add(-time.Minute)

	s.Require().NoError(s.store.TouchLastUsed(s.ctx, d.ID, later))
	s.Require().NoError(s.store.TouchLastUsed(s.ctx, d.ID, earlier))

	devices, err := s.store.ListByOrg(s.ctx, s.org)
	s.Require().NoError(err)
	s.Require().Len(devices, 1)
	s.Require().NotNil(devices[0].LastUsed)
	s.True(devices[0].LastUsed.Equal(later), "an older touch must not move last_used backward")
}

// TestListOrdering verifies most-recently-used-first listing.
func (s *DeviceStoreSuite) TestListOrdering() {
	neverUsed := s.newDevice("never", time.Now())
	used := s.newDevice("used", time.Now().Add(-time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, neverUsed))
	s.Require().NoError(s.store.Create(s.ctx, used))
	s.Require().NoError(s.store.TouchLastUsed(s.ctx, used.ID, time.Now()))

	devices, err := s.store.ListByOrg(s.ctx, s.org)
	s.Require().NoError(err)
	s.Require().Len(devices, 2)
	s.Equal(used.ID, devices[0].ID, "used devices sort before never-used ones")
}

// TestDeleteByOrg verifies the teardown path removes every registration.
func (s *DeviceStoreSuite) TestDeleteByOrg() {
	d1 := s.newDevice("one", time.Now())
	d2 := s.newDevice("two", time.Now())
	other := s.newDevice("other", time.Now())
	other.OrganizationID = id.OrgID(uuid.New())
	s.Require().NoError(s.store.Create(s.ctx, d1))
	s.Require().NoError(s.store.Create(s.ctx, d2))
	s.Require().NoError(s.store.Create(s.ctx, other))

	s.Require().NoError(s.store.DeleteByOrg(s.ctx, s.org))

	devices, err := s.store.ListByOrg(s.ctx, s.org)
	s.Require().NoError(err)
	s.Empty(devices)

	kept, err := s.store.ListByOrg(s.ctx, other.OrganizationID)
	s.Require().NoError(err)
	s.Len(kept, 1)
}
