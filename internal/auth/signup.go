package auth

import (
	"context"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/sellers"
	"github.com/angelmondragon/bazaar-backend/internal/users"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/security"
)

const (
	minPasswordLength = 8
	emailConstraint   = "users_email_key"
)

// SignUp creates the user and, for sellers, the inactive seller profile in
// one transaction. Admins are never created through this path.
func (s *service) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResponse, error) {
	email := users.NormalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display_name is required")
	}
	role := req.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}
	switch role {
	case enums.UserRoleCustomer:
	case enums.UserRoleSeller:
		if strings.TrimSpace(req.CompanyName) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "company_name is required for sellers")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be customer or seller")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	resp := &SignUpResponse{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		taken, err := userRepo.EmailTaken(ctx, email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			DisplayName:  displayName,
			Role:         role,
		})
		if err != nil {
			if db.IsUniqueViolation(err, emailConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		resp.User = users.FromModel(user)

		if role != enums.UserRoleSeller {
			return nil
		}
		sellerSvc, err := sellers.NewService(sellers.NewRepository(tx))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build seller service")
		}
		seller, err := sellerSvc.Register(ctx, user.ID, req.CompanyName)
		if err != nil {
			return err
		}
		resp.SellerID = &seller.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithUserID(ctx, resp.User.ID.String())
	s.logg.Info(s.logg.WithActorRole(ctx, role.String()), "user signed up")
	return resp, nil
}
