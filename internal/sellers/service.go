package sellers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type sellersRepository interface {
	Create(ctx context.Context, seller *models.Seller) (*models.Seller, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Seller, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SellerStatus) (int64, error)
}

// Service owns the seller lifecycle. Activation is idempotent.
type Service interface {
	Register(ctx context.Context, userID uuid.UUID, companyName string) (*models.Seller, error)
	Get(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Seller, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Seller, error)
	Activate(ctx context.Context, sellerID uuid.UUID) error
	Deactivate(ctx context.Context, sellerID uuid.UUID) error
}

type service struct {
	repo sellersRepository
}

// NewService builds the seller service.
func NewService(repo sellersRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("seller repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Register(ctx context.Context, userID uuid.UUID, companyName string) (*models.Seller, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	name := strings.TrimSpace(companyName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company_name is required")
	}
	seller, err := s.repo.Create(ctx, &models.Seller{
		UserID:      userID,
		CompanyName: name,
		Status:      enums.SellerStatusInactive,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create seller")
	}
	return seller, nil
}

func (s *service) Get(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	seller, err := s.repo.FindByID(ctx, sellerID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return seller, nil
}

func (s *service) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Seller, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	seller, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return seller, nil
}

func (s *service) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Seller, error) {
	rows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sellers")
	}
	return rows, nil
}

func (s *service) Activate(ctx context.Context, sellerID uuid.UUID) error {
	return s.setStatus(ctx, sellerID, enums.SellerStatusActive)
}

func (s *service) Deactivate(ctx context.Context, sellerID uuid.UUID) error {
	return s.setStatus(ctx, sellerID, enums.SellerStatusInactive)
}

// setStatus is a no-op when the seller already has the target status.
func (s *service) setStatus(ctx context.Context, sellerID uuid.UUID, status enums.SellerStatus) error {
	seller, err := s.Get(ctx, sellerID)
	if err != nil {
		return err
	}
	if seller.Status == status {
		return nil
	}
	if _, err := s.repo.UpdateStatus(ctx, sellerID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update seller status")
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
}
