package organization

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

type OrgStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *OrgStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestOrgStoreSuite(t *testing.T) {
	suite.Run(t, new(OrgStoreSuite))
}

func (s *OrgStoreSuite) newOrg(owner id.UserID, name string, createdAt time.Time) *models.Organization {
	return &models.Organization{
		ID:                  id.OrgID(uuid.New()),
		Name:                name,
		OwnerID:             owner,
		PublicKey:           "pub",
		EncryptedPrivateKey: "priv",
		KeyDerivationSalt:   "salt",
		EncryptionIV:        "iv",
		MKDF: models.MKDFConfig{
			Version:           1,
			RequiredFactors:   2,
			EnabledFactors:    []models.Factor{models.FactorPassphrase, models.FactorDevice},
			RecoveryThreshold: 1,
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// TestCreationAndLookups verifies create plus the owner-scoped lookups.
func (s *OrgStoreSuite) TestCreationAndLookups() {
	owner := id.UserID(uuid.New())

	s.Run("creates and finds by id and owner", func() {
		org := s.newOrg(owner, "Acme", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, org))

		found, err := s.store.FindByIDAndOwner(s.ctx, org.ID, owner)
		s.Require().NoError(err)
		s.Equal(org.Name, found.Name)
	})

	s.Run("wrong owner is indistinguishable from absence", func() {
		org := s.newOrg(owner, "Scoped", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, org))

		_, err := s.store.FindByIDAndOwner(s.ctx, org.ID, id.UserID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByIDAndOwner(s.ctx, id.OrgID(uuid.New()), owner)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate id", func() {
		org := s.newOrg(owner, "Dup", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, org))
		s.Require().ErrorIs(s.store.Create(s.ctx, org), sentinel.ErrConflict)
	})

	s.Run("existence check is owner-scoped", func() {
		org := s.newOrg(owner, "Exists", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, org))

		ok, err := s.store.ExistsByIDAndOwner(s.ctx, org.ID, owner)
		s.Require().NoError(err)
		s.True(ok)

		ok, err = s.store.ExistsByIDAndOwner(s.ctx, org.ID, id.UserID(uuid.New()))
		s.Require().NoError(err)
		s.False(ok)
	})
}

// TestListing verifies pagination ordering and counting.
func (s *OrgStoreSuite) TestListing() {
	owner := id.UserID(uuid.New())
	base := time.Now()
	for i := 0; i < 5; i++ {
		org := s.newOrg(owner, "Org", base.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(s.store.Create(s.ctx, org))
	}
	other := s.newOrg(id.UserID(uuid.New()), "Other", base)
	s.Require().NoError(s.store.Create(s.ctx, other))

	s.Run("lists newest first with offset and limit", func() {
		page, err := s.store.ListByOwner(s.ctx, owner, 0, 2)
		s.Require().NoError(err)
		s.Require().Len(page, 2)
		s.True(page[0].CreatedAt.After(page[1].CreatedAt))

		rest, err := s.store.ListByOwner(s.ctx, owner, 2, 10)
		s.Require().NoError(err)
		s.Len(rest, 3)
	})

	s.Run("offset past the end returns empty", func() {
		page, err := s.store.ListByOwner(s.ctx, owner, 50, 10)
		s.Require().NoError(err)
		s.Empty(page)
	})

	s.Run("counts only the owner's organizations", func() {
		count, err := s.store.CountByOwner(s.ctx, owner)
		s.Require().NoError(err)
		s.Equal(5, count)
	})
}

// TestMutations verifies owner-scoped rename and delete.
func (s *OrgStoreSuite) TestMutations() {
	owner := id.UserID(uuid.New())

	s.Run("renames and bumps updated_at", func() {
		org := s.newOrg(owner, "Before", time.Now().Add(-time.Hour))
		s.Require().NoError(s.store.Create(s.ctx, org))

		now := time.Now()
		s.Require().NoError(s.store.UpdateName(s.ctx, org.ID, owner, "After", now))

		found, err := s.store.FindByIDAndOwner(s.ctx, org.ID, owner)
		s.Require().NoError(err)
		s.Equal("After", found.Name)
		s.True(found.UpdatedAt.Equal(now))
	})

	s.Run("rename by non-owner returns ErrNotFound", func() {
		org := s.newOrg(owner, "Held", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, org))

		err := s.store.UpdateName(s.ctx, org.ID, id.UserID(uuid.New()), "Taken", time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("deletes only for the owner", func() {
		org := s.newOrg(owner, "Doomed", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, org))

		s.Require().ErrorIs(s.store.Delete(s.ctx, org.ID, id.UserID(uuid.New())), sentinel.ErrNotFound)
		s.Require().NoError(s.store.Delete(s.ctx, org.ID, owner))

		_, err := s.store.FindByIDAndOwner(s.ctx, org.ID, owner)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestSnapshotRestore verifies the transaction runner contract.
func (s *OrgStoreSuite) TestSnapshotRestore() {
	owner := id.UserID(uuid.New())
	org := s.newOrg(owner, "Kept", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, org))

	snap := s.store.Snapshot()
	s.Require().NoError(s.store.Create(s.ctx, s.newOrg(owner, "Discarded", time.Now())))

	s.store.Restore(snap)

	count, err := s.store.CountByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(1, count)
}
