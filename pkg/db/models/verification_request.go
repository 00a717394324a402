package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// VerificationRequest is one submission of seller identity documents. A
// resubmission inserts a new row; the latest by submitted_at is operative.
type VerificationRequest struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID      uuid.UUID                `gorm:"column:seller_id;type:uuid;not null"`
	SubmittedAt   time.Time                `gorm:"column:submitted_at;not null"`
	Status        enums.VerificationStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ReviewerID    *uuid.UUID               `gorm:"column:reviewer_id;type:uuid"`
	ReviewedAt    *time.Time               `gorm:"column:reviewed_at"`
	Notes         *string                  `gorm:"column:notes"`
	LicenseNumber string                   `gorm:"column:license_number;not null"`
	AddressLine1  string                   `gorm:"column:address_line1;not null"`
	AddressLine2  *string                  `gorm:"column:address_line2"`
	City          string                   `gorm:"column:city;not null"`
	State         string                   `gorm:"column:state;not null"`
	PostalCode    string                   `gorm:"column:postal_code;not null"`
	Country       string                   `gorm:"column:country;not null"`
	DocumentRef   string                   `gorm:"column:document_ref;not null;default:''"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
