package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart belongs either to a signed-in user or to an anonymous token.
type Cart struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         *uuid.UUID `gorm:"column:user_id;type:uuid"`
	AnonymousToken *string    `gorm:"column:anonymous_token"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
