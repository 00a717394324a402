package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func TestTransitionStatusOnlyFromExpectedState(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order, err := repo.CreateOrder(ctx, &models.Order{UserID: uuid.New(), Status: enums.OrderStatusPending, PaymentMethod: enums.PaymentMethodGateway, TotalAmount: 12})
	require.NoError(t, err)

	rows, err := repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPaid, map[string]any{"paid_amount": 12.0})
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	rows, err = repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, nil)
	require.NoError(t, err)
	require.Zero(t, rows)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAmount)
}

func TestItemsAndTotalAdjustment(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order, err := repo.CreateOrder(ctx, &models.Order{UserID: uuid.New(), Status: enums.OrderStatusPending, PaymentMethod: enums.PaymentMethodCOD, TotalAmount: 30})
	require.NoError(t, err)
	require.NoError(t, repo.CreateItems(ctx, []models.OrderItem{
		{OrderID: order.ID, ProductID: uuid.New(), Quantity: 1, Price: 10},
		{OrderID: order.ID, ProductID: uuid.New(), Quantity: 2, Price: 10},
	}))
	require.NoError(t, repo.CreateItems(ctx, nil))

	items, err := repo.ListItems(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	deleted, err := repo.DeleteItem(ctx, items[0].ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
	require.NoError(t, repo.AdjustTotal(ctx, order.ID, -10))

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.InDelta(t, 20, stored.TotalAmount, 0.0001)

	_, err = repo.FindItem(ctx, items[0].ID)
	require.Error(t, err)
}
