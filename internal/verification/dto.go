package verification

import (
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/documents"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// StatusFilterAll lists requests regardless of status.
const StatusFilterAll = "all"

// Actor is the authenticated caller of a verification operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) isAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// Address is the postal address submitted with a request.
type Address struct {
	Line1      string  `json:"line1" validate:"required,notblank"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required,notblank"`
	State      string  `json:"state" validate:"required,notblank"`
	PostalCode string  `json:"postal_code" validate:"required,notblank"`
	Country    string  `json:"country" validate:"required,notblank"`
}

func (a Address) missingField() string {
	switch {
	case strings.TrimSpace(a.Line1) == "":
		return "address.line1"
	case strings.TrimSpace(a.City) == "":
		return "address.city"
	case strings.TrimSpace(a.State) == "":
		return "address.state"
	case strings.TrimSpace(a.PostalCode) == "":
		return "address.postal_code"
	case strings.TrimSpace(a.Country) == "":
		return "address.country"
	}
	return ""
}

// SubmitInput holds a seller's verification submission.
type SubmitInput struct {
	SellerID      uuid.UUID
	LicenseNumber string
	Address       Address
	DocumentRef   string
	Note          string
}

// UploadInput is an identity document upload.
type UploadInput struct {
	SellerID    uuid.UUID
	Filename    string
	ContentType string
	Body        io.Reader
}

// ListParams filter and paginate the admin listing.
type ListParams struct {
	Status   string
	Page     int
	PageSize int
}

// RequestView is a verification request enriched for display.
type RequestView struct {
	ID            uuid.UUID                `json:"id"`
	SellerID      uuid.UUID                `json:"seller_id"`
	SellerName    string                   `json:"seller_name"`
	OwnerName     string                   `json:"owner_name"`
	OwnerEmail    string                   `json:"owner_email"`
	SubmittedAt   time.Time                `json:"submitted_at"`
	Status        enums.VerificationStatus `json:"status"`
	ReviewerID    *uuid.UUID               `json:"reviewer_id,omitempty"`
	ReviewedAt    *time.Time               `json:"reviewed_at,omitempty"`
	Notes         *string                  `json:"notes,omitempty"`
	LicenseNumber string                   `json:"license_number"`
	Address       Address                  `json:"address"`
	Document      documents.Link           `json:"document"`

	documentRef string
	ownerID     uuid.UUID
}

// ListResult is a page of enriched requests. Degraded is set when a secondary
// lookup failed and some rows carry default labels.
type ListResult struct {
	pagination.Page[RequestView]
	Degraded bool `json:"degraded"`
}

func viewFromModel(m *models.VerificationRequest, labels Labels) RequestView {
	return RequestView{
		ID:            m.ID,
		SellerID:      m.SellerID,
		SellerName:    labels.UnknownSeller,
		OwnerName:     labels.UnknownUser,
		SubmittedAt:   m.SubmittedAt,
		Status:        m.Status,
		ReviewerID:    m.ReviewerID,
		ReviewedAt:    m.ReviewedAt,
		Notes:         m.Notes,
		LicenseNumber: m.LicenseNumber,
		Address: Address{
			Line1:      m.AddressLine1,
			Line2:      m.AddressLine2,
			City:       m.City,
			State:      m.State,
			PostalCode: m.PostalCode,
			Country:    m.Country,
		},
		documentRef: m.DocumentRef,
	}
}

// Labels are the display defaults used when enrichment data is missing.
type Labels struct {
	UnknownSeller string
	UnknownUser   string
}

func (l Labels) withDefaults() Labels {
	if l.UnknownSeller == "" {
		l.UnknownSeller = "Unknown Seller"
	}
	if l.UnknownUser == "" {
		l.UnknownUser = "Unknown User"
	}
	return l
}
