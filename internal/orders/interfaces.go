package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	DeleteItem(ctx context.Context, itemID uuid.UUID) (int64, error)
	AdjustTotal(ctx context.Context, orderID uuid.UUID, delta float64) error
	FindStalePending(ctx context.Context, method enums.PaymentMethod, cutoff time.Time, limit int) ([]models.Order, error)
	// TransitionStatus moves an order out of `from` only; the returned count is
	// zero when another writer changed the status first.
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, fields map[string]any) (int64, error)
}
