//go:build integration

package bank_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"hemobank/internal/bank"
	"hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
	"hemobank/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *bank.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = bank.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "blood_inventory", "banks"))
}

func newPersistedBank(name string) *bank.Bank {
	now := time.Now()
	return &bank.Bank{
		ID:        domain.NewBankID(),
		Name:      name,
		Address:   "1 Main St",
		City:      "Metropolis",
		CreatedBy: domain.UserID(uuid.New()),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	b := newPersistedBank("Central Blood Bank")
	s.Require().NoError(s.store.Create(ctx, b))

	got, err := s.store.FindByID(ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(b.Name, got.Name)
	s.Equal(b.City, got.City)
}

func (s *PostgresStoreSuite) TestFindByNameIsCaseInsensitive() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newPersistedBank("Central Blood Bank")))

	got, err := s.store.FindByName(ctx, "central blood bank")
	s.Require().NoError(err)
	s.Equal("Central Blood Bank", got.Name)

	_, err = s.store.FindByName(ctx, "Nonexistent Bank")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateNameConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newPersistedBank("Central Blood Bank")))

	err := s.store.Create(ctx, newPersistedBank("CENTRAL BLOOD BANK"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	b := newPersistedBank("Regional Bank")
	s.Require().NoError(s.store.Create(ctx, b))

	b.City = "Gotham"
	b.Phone = "555-0100"
	b.UpdatedAt = time.Now()
	s.Require().NoError(s.store.Update(ctx, b))

	got, err := s.store.FindByID(ctx, b.ID)
	s.Require().NoError(err)
	s.Equal("Gotham", got.City)
	s.Equal("555-0100", got.Phone)
}

func (s *PostgresStoreSuite) TestListSortedByName() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newPersistedBank("Zeta Bank")))
	s.Require().NoError(s.store.Create(ctx, newPersistedBank("Alpha Bank")))

	banks, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(banks, 2)
	s.Equal("Alpha Bank", banks[0].Name)
	s.Equal("Zeta Bank", banks[1].Name)
}
