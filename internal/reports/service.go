package reports

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/enrichment"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

type reportsRepository interface {
	CommissionLines(ctx context.Context, q commissionQuery) ([]CommissionLine, int64, error)
	StockRows(ctx context.Context, q stockQuery) ([]models.SellerProduct, int64, error)
	SoldQuantities(ctx context.Context, sellerProductIDs []uuid.UUID) (map[uuid.UUID]int, error)
	ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	SalesSellerPage(ctx context.Context, q salesQuery) ([]uuid.UUID, int64, error)
	SalesLines(ctx context.Context, sellerIDs []uuid.UUID, q salesQuery) ([]SaleLine, error)
}

type sellerLookup interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Seller, error)
}

// Service builds the back-office aggregation reports.
type Service interface {
	Commission(ctx context.Context, params CommissionParams) (Report[CommissionRow], error)
	Stock(ctx context.Context, params StockParams) (Report[StockRow], error)
	SellerSales(ctx context.Context, params SalesParams) (Report[SellerSalesRow], error)
	Wallet(ctx context.Context, params SalesParams) (Report[WalletRow], error)
}

// Labels are shown when an enrichment value is missing.
type Labels struct {
	UnknownSeller  string
	UnknownProduct string
	UnknownUser    string
}

// ServiceParams wires the reports service.
type ServiceParams struct {
	Repo            reportsRepository
	Sellers         sellerLookup
	Logger          *logger.Logger
	Metrics         *metrics.DomainMetrics
	Labels          Labels
	DefaultPageSize int
	MaxPageSize     int
}

type service struct {
	repo     reportsRepository
	sellers  sellerLookup
	logg     *logger.Logger
	enricher *enrichment.Runner
	labels   Labels
	defSize  int
	maxSize  int
}

// NewService builds the reports service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("seller lookup required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	labels := params.Labels
	if labels.UnknownSeller == "" {
		labels.UnknownSeller = "Unknown Seller"
	}
	if labels.UnknownProduct == "" {
		labels.UnknownProduct = "Unknown Product"
	}
	if labels.UnknownUser == "" {
		labels.UnknownUser = "Unknown User"
	}
	return &service{
		repo:     params.Repo,
		sellers:  params.Sellers,
		logg:     params.Logger,
		enricher: enrichment.NewRunner(params.Logger, params.Metrics),
		labels:   labels,
		defSize:  params.DefaultPageSize,
		maxSize:  params.MaxPageSize,
	}, nil
}

// page applies the configured size bounds before the package-wide caps.
func (s *service) page(page, size int) pagination.Params {
	if size <= 0 && s.defSize > 0 {
		size = s.defSize
	}
	if s.maxSize > 0 && size > s.maxSize {
		size = s.maxSize
	}
	return pagination.Params{Page: page, PageSize: size}.Normalize()
}

// primaryFailure logs the failed page query and returns the empty report with
// its error message alongside the typed error.
func primaryFailure[T any](ctx context.Context, s *service, report string, params pagination.Params, err error) (Report[T], error) {
	wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("load %s report", report))
	s.logg.Error(s.logg.WithField(ctx, "report", report), "report query failed", err)
	return Report[T]{
		Page:  pagination.NewPage[T](nil, 0, params),
		Error: wrapped.Message(),
	}, wrapped
}

func validateRange(r Range) error {
	if r.From != nil && r.To != nil && !r.From.Before(*r.To) {
		return pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	return nil
}

func sellerNameStep[T any](s *service, key func(*T) (uuid.UUID, bool), attach func(*T, string)) enrichment.Step[T] {
	return enrichment.NewStep(
		"sellers",
		key,
		func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
			sellers, err := s.sellers.ListByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			out := make(map[uuid.UUID]string, len(sellers))
			for _, seller := range sellers {
				out[seller.ID] = seller.CompanyName
			}
			return out, nil
		},
		attach,
	)
}

func productTitleStep[T any](s *service, key func(*T) (uuid.UUID, bool), attach func(*T, string)) enrichment.Step[T] {
	return enrichment.NewStep(
		"products",
		key,
		func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
			products, err := s.repo.ProductsByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			out := make(map[uuid.UUID]string, len(products))
			for _, product := range products {
				out[product.ID] = product.Title
			}
			return out, nil
		},
		attach,
	)
}
