package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Order is a customer purchase spanning one or more sellers.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	TotalAmount   float64             `gorm:"column:total_amount;not null;default:0"`
	PaidAmount    *float64            `gorm:"column:paid_amount"`
	PaymentRef    *string             `gorm:"column:payment_ref"`
	DeliveredAt   *time.Time          `gorm:"column:delivered_at"`
	CancelledAt   *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is a single purchased line. Price is the unit price at checkout.
type OrderItem struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	ProductID       uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	SellerProductID *uuid.UUID `gorm:"column:seller_product_id;type:uuid"`
	Quantity        int        `gorm:"column:quantity;not null"`
	Price           float64    `gorm:"column:price;not null"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
}
