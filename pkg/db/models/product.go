package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry shared across sellers.
type Product struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string    `gorm:"column:title;not null"`
	ImageURL  *string   `gorm:"column:image_url"`
	BasePrice float64   `gorm:"column:base_price;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// SellerProduct is a seller's offer of a catalog product.
type SellerProduct struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID       uuid.UUID `gorm:"column:seller_id;type:uuid;not null"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Price          float64   `gorm:"column:price;not null"`
	StockQuantity  int       `gorm:"column:stock_quantity;not null;default:0"`
	CommissionRate float64   `gorm:"column:commission_rate;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
