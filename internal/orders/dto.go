package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// CheckoutInput turns the caller's cart into an order.
type CheckoutInput struct {
	UserID        uuid.UUID
	CartID        uuid.UUID
	Method        enums.PaymentMethod
	ReturnURL     string
	CustomerEmail string
	CustomerName  string
}

// CheckoutResult is the created order. RedirectURL is set for gateway payments.
type CheckoutResult struct {
	Order       *models.Order
	Items       []models.OrderItem
	RedirectURL string
}
