package verification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Repository persists verification requests.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a verification repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ReviewUpdate carries the fields written when a request is decided.
type ReviewUpdate struct {
	Status     enums.VerificationStatus
	ReviewerID uuid.UUID
	ReviewedAt time.Time
	Notes      *string
}

// listQuery selects one page of requests, newest submission first.
type listQuery struct {
	Status *enums.VerificationStatus
	Offset int
	Limit  int
}

// ActivationCandidate is an approved request whose seller is still inactive.
type ActivationCandidate struct {
	RequestID uuid.UUID `gorm:"column:request_id"`
	SellerID  uuid.UUID `gorm:"column:seller_id"`
}

// Create inserts a new request row.
func (r *Repository) Create(ctx context.Context, req *models.VerificationRequest) (*models.VerificationRequest, error) {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// FindByID loads a request by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VerificationRequest, error) {
	var req models.VerificationRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ReviewPending decides a request only while it is still pending. A zero row
// count means another reviewer got there first or the request is terminal.
func (r *Repository) ReviewPending(ctx context.Context, id uuid.UUID, update ReviewUpdate) (int64, error) {
	values := map[string]any{
		"status":      update.Status,
		"reviewer_id": update.ReviewerID,
		"reviewed_at": update.ReviewedAt,
	}
	if update.Notes != nil {
		values["notes"] = *update.Notes
	}
	res := r.db.WithContext(ctx).
		Model(&models.VerificationRequest{}).
		Where("id = ? AND status = ?", id, enums.VerificationStatusPending).
		Updates(values)
	return res.RowsAffected, res.Error
}

// List returns one page of requests and the exact count matching the filter.
func (r *Repository) List(ctx context.Context, q listQuery) ([]models.VerificationRequest, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.VerificationRequest{})
	if q.Status != nil {
		base = base.Where("status = ?", *q.Status)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.VerificationRequest
	err := base.Session(&gorm.Session{}).
		Order("submitted_at DESC").
		Order("id DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// LatestForSeller returns the operative request for a seller.
func (r *Repository) LatestForSeller(ctx context.Context, sellerID uuid.UUID) (*models.VerificationRequest, error) {
	var req models.VerificationRequest
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("submitted_at DESC").
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ApprovedWithInactiveSeller finds sellers whose operative request is approved
// but whose status never flipped. Sellers touched after the review (a manual
// deactivation) are left alone.
func (r *Repository) ApprovedWithInactiveSeller(ctx context.Context, limit int) ([]ActivationCandidate, error) {
	var out []ActivationCandidate
	err := r.db.WithContext(ctx).Raw(`
		SELECT vr.id AS request_id, vr.seller_id AS seller_id
		FROM verification_requests vr
		JOIN sellers s ON s.id = vr.seller_id
		WHERE vr.status = ?
		  AND s.status = ?
		  AND vr.reviewed_at IS NOT NULL
		  AND s.updated_at <= vr.reviewed_at
		  AND NOT EXISTS (
			SELECT 1 FROM verification_requests newer
			WHERE newer.seller_id = vr.seller_id
			  AND newer.submitted_at > vr.submitted_at
		  )
		ORDER BY vr.reviewed_at ASC
		LIMIT ?`,
		enums.VerificationStatusApproved,
		enums.SellerStatusInactive,
		limit,
	).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
