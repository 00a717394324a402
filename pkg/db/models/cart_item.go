package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a product snapshot inside a cart. Two items are the same line
// when cart, product, seller product and the full variants map agree.
type CartItem struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID          uuid.UUID         `gorm:"column:cart_id;type:uuid;not null"`
	ProductID       uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	SellerProductID *uuid.UUID        `gorm:"column:seller_product_id;type:uuid"`
	Variants        map[string]string `gorm:"column:variants;type:jsonb;serializer:json"`
	Quantity        int               `gorm:"column:quantity;not null"`
	Price           float64           `gorm:"column:price;not null"`
	Title           string            `gorm:"column:title;not null"`
	Image           *string           `gorm:"column:image"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
