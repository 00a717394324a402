package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/users"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// SignUpRequest registers a customer, or a seller when CompanyName is set
// with the seller role.
type SignUpRequest struct {
	Email       string         `json:"email" validate:"required,email"`
	Password    string         `json:"password" validate:"required,min=8"`
	DisplayName string         `json:"display_name" validate:"required,notblank"`
	Role        enums.UserRole `json:"role,omitempty"`
	CompanyName string         `json:"company_name,omitempty"`
}

// SignUpResponse describes the created account.
type SignUpResponse struct {
	User     *users.UserDTO `json:"user"`
	SellerID *uuid.UUID     `json:"seller_id,omitempty"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
// CartToken comes from the X-Cart-Token header, not the body.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	CartToken string `json:"-"`
}

// LoginResponse contains the token pair and the signed-in user.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
	SellerID     *uuid.UUID     `json:"seller_id,omitempty"`
	MergedItems  int            `json:"merged_cart_items,omitempty"`
}

// RefreshRequest rotates a session. AccessToken may be expired.
type RefreshRequest struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse is the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
