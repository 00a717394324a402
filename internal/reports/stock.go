package reports

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/enrichment"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Stock pages seller offers with their remaining and sold quantities.
func (s *service) Stock(ctx context.Context, params StockParams) (Report[StockRow], error) {
	if params.LowStockAt != nil && *params.LowStockAt < 0 {
		return Report[StockRow]{}, pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold must not be negative")
	}
	page := s.page(params.Page, params.PageSize)

	offers, total, err := s.repo.StockRows(ctx, stockQuery{
		SellerID:    params.SellerID,
		LowStockAt:  params.LowStockAt,
		TitleSearch: params.TitleSearch,
		Offset:      page.Offset(),
		Limit:       page.Limit(),
	})
	if err != nil {
		return primaryFailure[StockRow](ctx, s, "stock", page, err)
	}

	rows := make([]StockRow, len(offers))
	for i, offer := range offers {
		rows[i] = StockRow{
			SellerProductID: offer.ID,
			ProductID:       offer.ProductID,
			ProductTitle:    s.labels.UnknownProduct,
			SellerID:        offer.SellerID,
			SellerName:      s.labels.UnknownSeller,
			Price:           Money(offer.Price),
			StockQuantity:   offer.StockQuantity,
		}
	}

	outcome := enrichment.Run(ctx, s.enricher, rows,
		productTitleStep(s,
			func(r *StockRow) (uuid.UUID, bool) { return r.ProductID, true },
			func(r *StockRow, title string) { r.ProductTitle = title },
		),
		sellerNameStep(s,
			func(r *StockRow) (uuid.UUID, bool) { return r.SellerID, true },
			func(r *StockRow, name string) { r.SellerName = name },
		),
		enrichment.NewStep(
			"sold_quantities",
			func(r *StockRow) (uuid.UUID, bool) { return r.SellerProductID, true },
			s.repo.SoldQuantities,
			func(r *StockRow, sold int) { r.SoldQuantity = sold },
		),
	)

	return Report[StockRow]{
		Page:     pagination.NewPage(rows, total, page),
		Degraded: outcome.Degraded,
	}, nil
}
