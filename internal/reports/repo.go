package reports

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Repository runs the report queries.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a reports repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type commissionQuery struct {
	SellerID *uuid.UUID
	Range    Range
	Offset   int
	Limit    int
}

type stockQuery struct {
	SellerID    *uuid.UUID
	LowStockAt  *int
	TitleSearch string
	Offset      int
	Limit       int
}

type salesQuery struct {
	SellerID *uuid.UUID
	Range    Range
	Statuses []enums.OrderStatus
	Offset   int
	Limit    int
}

// CommissionLine is an order item with its seller offer terms.
type CommissionLine struct {
	ItemID         uuid.UUID  `gorm:"column:item_id"`
	OrderID        uuid.UUID  `gorm:"column:order_id"`
	ProductID      uuid.UUID  `gorm:"column:product_id"`
	SellerID       *uuid.UUID `gorm:"column:seller_id"`
	Quantity       int        `gorm:"column:quantity"`
	Price          float64    `gorm:"column:price"`
	CommissionRate float64    `gorm:"column:commission_rate"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
}

// SaleLine is one sold item attributed to a seller.
type SaleLine struct {
	SellerID       uuid.UUID `gorm:"column:seller_id"`
	OrderID        uuid.UUID `gorm:"column:order_id"`
	Quantity       int       `gorm:"column:quantity"`
	Price          float64   `gorm:"column:price"`
	CommissionRate float64   `gorm:"column:commission_rate"`
}

// CommissionLines pages order items newest first.
func (r *Repository) CommissionLines(ctx context.Context, q commissionQuery) ([]CommissionLine, int64, error) {
	base := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Joins("LEFT JOIN seller_products sp ON sp.id = oi.seller_product_id")
	if q.SellerID != nil {
		base = base.Where("sp.seller_id = ?", *q.SellerID)
	}
	if q.Range.From != nil {
		base = base.Where("oi.created_at >= ?", *q.Range.From)
	}
	if q.Range.To != nil {
		base = base.Where("oi.created_at < ?", *q.Range.To)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var lines []CommissionLine
	err := base.Session(&gorm.Session{}).
		Select(`oi.id AS item_id, oi.order_id AS order_id, oi.product_id AS product_id,
			sp.seller_id AS seller_id, oi.quantity AS quantity, oi.price AS price,
			COALESCE(sp.commission_rate, 0) AS commission_rate, oi.created_at AS created_at`).
		Order("oi.created_at DESC").
		Order("oi.id DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Scan(&lines).Error
	if err != nil {
		return nil, 0, err
	}
	return lines, total, nil
}

// StockRows pages seller offers, lowest stock first.
func (r *Repository) StockRows(ctx context.Context, q stockQuery) ([]models.SellerProduct, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.SellerProduct{})
	if q.SellerID != nil {
		base = base.Where("seller_id = ?", *q.SellerID)
	}
	if q.LowStockAt != nil {
		base = base.Where("stock_quantity <= ?", *q.LowStockAt)
	}
	if search := strings.ToLower(strings.TrimSpace(q.TitleSearch)); search != "" {
		titles := r.db.WithContext(ctx).
			Model(&models.Product{}).
			Select("id").
			Where("lower(title) LIKE ?", "%"+search+"%")
		base = base.Where("product_id IN (?)", titles)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SellerProduct
	err := base.Session(&gorm.Session{}).
		Order("stock_quantity ASC").
		Order("id ASC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SoldQuantities sums sold units per seller offer.
func (r *Repository) SoldQuantities(ctx context.Context, sellerProductIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(sellerProductIDs))
	if len(sellerProductIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		SellerProductID uuid.UUID `gorm:"column:seller_product_id"`
		Sold            int       `gorm:"column:sold"`
	}
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("seller_product_id, SUM(quantity) AS sold").
		Where("seller_product_id IN ?", sellerProductIDs).
		Group("seller_product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SellerProductID] = row.Sold
	}
	return out, nil
}

// ProductsByIDs loads catalog products in one query.
func (r *Repository) ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) salesScope(ctx context.Context, q salesQuery) *gorm.DB {
	scope := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Joins("JOIN seller_products sp ON sp.id = oi.seller_product_id").
		Joins("JOIN orders o ON o.id = oi.order_id")
	if len(q.Statuses) > 0 {
		scope = scope.Where("o.status IN ?", q.Statuses)
	}
	if q.SellerID != nil {
		scope = scope.Where("sp.seller_id = ?", *q.SellerID)
	}
	if q.Range.From != nil {
		scope = scope.Where("o.created_at >= ?", *q.Range.From)
	}
	if q.Range.To != nil {
		scope = scope.Where("o.created_at < ?", *q.Range.To)
	}
	return scope
}

// SalesSellerPage pages the sellers that have qualifying sales.
func (r *Repository) SalesSellerPage(ctx context.Context, q salesQuery) ([]uuid.UUID, int64, error) {
	var total int64
	if err := r.salesScope(ctx, q).Distinct("sp.seller_id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var keys []struct {
		SellerID uuid.UUID `gorm:"column:seller_id"`
	}
	err := r.salesScope(ctx, q).
		Select("sp.seller_id AS seller_id").
		Group("sp.seller_id").
		Order("sp.seller_id ASC").
		Offset(q.Offset).
		Limit(q.Limit).
		Scan(&keys).Error
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uuid.UUID, len(keys))
	for i, k := range keys {
		ids[i] = k.SellerID
	}
	return ids, total, nil
}

// SalesLines loads every qualifying line for the given sellers.
func (r *Repository) SalesLines(ctx context.Context, sellerIDs []uuid.UUID, q salesQuery) ([]SaleLine, error) {
	if len(sellerIDs) == 0 {
		return nil, nil
	}
	var lines []SaleLine
	err := r.salesScope(ctx, q).
		Where("sp.seller_id IN ?", sellerIDs).
		Select(`sp.seller_id AS seller_id, oi.order_id AS order_id, oi.quantity AS quantity,
			oi.price AS price, sp.commission_rate AS commission_rate`).
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}
