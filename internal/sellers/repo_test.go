package sellers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func TestRepositoryActivateAgainstDatabase(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	owner := uuid.New()
	seller, err := svc.Register(ctx, owner, "Acme")
	require.NoError(t, err)

	require.NoError(t, svc.Activate(ctx, seller.ID))
	require.NoError(t, svc.Activate(ctx, seller.ID))

	stored, err := repo.FindByID(ctx, seller.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SellerStatusActive, stored.Status)

	byUser, err := svc.GetByUser(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, seller.ID, byUser.ID)
}

func TestRepositoryFindByIDs(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	a, err := repo.Create(ctx, &models.Seller{UserID: uuid.New(), CompanyName: "A", Status: enums.SellerStatusInactive})
	require.NoError(t, err)
	b, err := repo.Create(ctx, &models.Seller{UserID: uuid.New(), CompanyName: "B", Status: enums.SellerStatusActive})
	require.NoError(t, err)

	rows, err := repo.FindByIDs(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
