package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Seller is a merchant account owned by a user. Rows are never hard-deleted.
type Seller struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	CompanyName string             `gorm:"column:company_name;not null"`
	Status      enums.SellerStatus `gorm:"column:status;type:text;not null;default:'inactive'"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
