//go:build integration

package organization_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"custodia/internal/org/models"
	"custodia/internal/org/store"
	"custodia/internal/org/store/organization"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *organization.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = organization.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "device_registrations", "recovery_backups", "organizations")
	s.Require().NoError(err)
}

func newTestOrg(owner id.UserID, name string) *models.Organization {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Organization{
		ID:                  id.OrgID(uuid.New()),
		Name:                name,
		OwnerID:             owner,
		PublicKey:           "pub",
		EncryptedPrivateKey: "priv",
		KeyDerivationSalt:   "salt",
		EncryptionIV:        "iv",
		MKDF: models.MKDFConfig{
			Version:                   1,
			RequiredFactors:           2,
			EnabledFactors:            []models.Factor{models.FactorPassphrase, models.FactorDevice},
			DeviceFingerprintRequired: true,
			RecoveryThreshold:         1,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestRoundTrip verifies the factor config survives the jsonb round trip.
func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	org := newTestOrg(owner, "Acme")

	s.Require().NoError(s.store.Create(ctx, org))

	found, err := s.store.FindByIDAndOwner(ctx, org.ID, owner)
	s.Require().NoError(err)
	s.Equal(org.Name, found.Name)
	s.Equal(org.MKDF.RequiredFactors, found.MKDF.RequiredFactors)
	s.Equal(org.MKDF.EnabledFactors, found.MKDF.EnabledFactors)
	s.True(found.MKDF.DeviceFingerprintRequired)
}

// TestOwnerScoping verifies the single-predicate ownership filter.
func (s *PostgresStoreSuite) TestOwnerScoping() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	org := newTestOrg(owner, "Scoped")
	s.Require().NoError(s.store.Create(ctx, org))

	_, err := s.store.FindByIDAndOwner(ctx, org.ID, id.UserID(uuid.New()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().ErrorIs(s.store.UpdateName(ctx, org.ID, id.UserID(uuid.New()), "Taken", time.Now()), sentinel.ErrNotFound)
	s.Require().ErrorIs(s.store.Delete(ctx, org.ID, id.UserID(uuid.New())), sentinel.ErrNotFound)

	ok, err := s.store.ExistsByIDAndOwner(ctx, org.ID, owner)
	s.Require().NoError(err)
	s.True(ok)
}

// TestPagination verifies newest-first ordering with offset and limit.
func (s *PostgresStoreSuite) TestPagination() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	for i := 0; i < 5; i++ {
		org := newTestOrg(owner, "Org")
		org.CreatedAt = org.CreatedAt.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.store.Create(ctx, org))
	}

	page, err := s.store.ListByOwner(ctx, owner, 0, 3)
	s.Require().NoError(err)
	s.Require().Len(page, 3)
	s.True(page[0].CreatedAt.After(page[1].CreatedAt))

	count, err := s.store.CountByOwner(ctx, owner)
	s.Require().NoError(err)
	s.Equal(5, count)
}

// TestTxRollback verifies that a failed transaction leaves no rows behind.
func (s *PostgresStoreSuite) TestTxRollback() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	org := newTestOrg(owner, "Ghost")

	runner := store.NewPgxTx(s.postgres.Pool)
	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, org); err != nil {
			return err
		}
		return sentinel.ErrUnavailable
	})
	s.Require().ErrorIs(err, sentinel.ErrUnavailable)

	_, err = s.store.FindByIDAndOwner(ctx, org.ID, owner)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
