package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{
		Email:        "  Owner@Example.com ",
		PasswordHash: "hash",
		DisplayName:  "Owner",
	})
	require.NoError(t, err)
	require.Equal(t, "owner@example.com", user.Email)
	require.Equal(t, enums.UserRoleCustomer, user.Role)

	found, err := repo.FindByEmail(ctx, "OWNER@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryFindByIDsBatches(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	a, err := repo.Create(ctx, CreateUserDTO{Email: "a@example.com", PasswordHash: "h", DisplayName: "A"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, CreateUserDTO{Email: "b@example.com", PasswordHash: "h", DisplayName: "B"})
	require.NoError(t, err)

	rows, err := repo.FindByIDs(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRepositoryEmailTakenAndColumnUpdates(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	taken, err := repo.EmailTaken(ctx, "buyer@example.com")
	require.NoError(t, err)
	require.False(t, taken)

	user, err := repo.Create(ctx, CreateUserDTO{Email: "buyer@example.com", PasswordHash: "old", DisplayName: "Buyer"})
	require.NoError(t, err)

	taken, err = repo.EmailTaken(ctx, " BUYER@example.com")
	require.NoError(t, err)
	require.True(t, taken)

	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))
	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "new"))

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "new", stored.PasswordHash)
	require.NotNil(t, stored.LastLoginAt)
	require.True(t, at.Equal(*stored.LastLoginAt))
}
