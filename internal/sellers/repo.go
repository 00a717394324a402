package sellers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Repository exposes seller persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a seller repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new seller row.
func (r *Repository) Create(ctx context.Context, seller *models.Seller) (*models.Seller, error) {
	if err := r.db.WithContext(ctx).Create(seller).Error; err != nil {
		return nil, err
	}
	return seller, nil
}

// FindByID loads a seller by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).First(&seller, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

// FindByUserID returns the seller owned by the user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

// FindByIDs loads every seller in ids with one query.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Seller, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Seller
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus sets the seller status and reports how many rows changed.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SellerStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status})
	return res.RowsAffected, res.Error
}
