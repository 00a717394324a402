package reports

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/enrichment"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Commission pages order items with the commission owed on each line.
func (s *service) Commission(ctx context.Context, params CommissionParams) (Report[CommissionRow], error) {
	if err := validateRange(params.Range); err != nil {
		return Report[CommissionRow]{}, err
	}
	page := s.page(params.Page, params.PageSize)

	lines, total, err := s.repo.CommissionLines(ctx, commissionQuery{
		SellerID: params.SellerID,
		Range:    params.Range,
		Offset:   page.Offset(),
		Limit:    page.Limit(),
	})
	if err != nil {
		return primaryFailure[CommissionRow](ctx, s, "commission", page, err)
	}

	rows := make([]CommissionRow, len(lines))
	var summary Summary
	for i, line := range lines {
		amount := LineAmount(line.Price, line.Quantity)
		commission := amount * Money(line.CommissionRate)
		rows[i] = CommissionRow{
			ItemID:         line.ItemID,
			OrderID:        line.OrderID,
			ProductID:      line.ProductID,
			ProductTitle:   s.labels.UnknownProduct,
			SellerID:       line.SellerID,
			SellerName:     s.labels.UnknownSeller,
			Quantity:       line.Quantity,
			UnitPrice:      Money(line.Price),
			LineAmount:     amount,
			CommissionRate: line.CommissionRate,
			Commission:     commission,
			CreatedAt:      line.CreatedAt,
		}
		summary.Amount += amount
		summary.Commission += commission
	}
	summary.Net = summary.Amount - summary.Commission

	outcome := enrichment.Run(ctx, s.enricher, rows,
		sellerNameStep(s,
			func(r *CommissionRow) (uuid.UUID, bool) {
				if r.SellerID == nil {
					return uuid.Nil, false
				}
				return *r.SellerID, true
			},
			func(r *CommissionRow, name string) { r.SellerName = name },
		),
		productTitleStep(s,
			func(r *CommissionRow) (uuid.UUID, bool) { return r.ProductID, true },
			func(r *CommissionRow, title string) { r.ProductTitle = title },
		),
	)

	return Report[CommissionRow]{
		Page:     pagination.NewPage(rows, total, page),
		Summary:  &summary,
		Degraded: outcome.Degraded,
	}, nil
}
