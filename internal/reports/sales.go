package reports

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/enrichment"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Cancelled orders never count as sales.
var salesStatuses = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusPaid,
	enums.OrderStatusDelivered,
}

// Only delivered orders are owed to sellers.
var walletStatuses = []enums.OrderStatus{enums.OrderStatusDelivered}

type sellerTotals struct {
	orders     map[uuid.UUID]struct{}
	items      int
	gross      Money
	commission Money
}

// rollupBySeller folds sale lines into per-seller totals.
func rollupBySeller(lines []SaleLine) map[uuid.UUID]*sellerTotals {
	out := make(map[uuid.UUID]*sellerTotals)
	for _, line := range lines {
		t, ok := out[line.SellerID]
		if !ok {
			t = &sellerTotals{orders: make(map[uuid.UUID]struct{})}
			out[line.SellerID] = t
		}
		amount := LineAmount(line.Price, line.Quantity)
		t.orders[line.OrderID] = struct{}{}
		t.items += line.Quantity
		t.gross += amount
		t.commission += amount * Money(line.CommissionRate)
	}
	return out
}

// loadSales runs the primary seller page and its lines.
func (s *service) loadSales(ctx context.Context, params SalesParams, statuses []enums.OrderStatus, page pagination.Params) ([]uuid.UUID, map[uuid.UUID]*sellerTotals, int64, error) {
	q := salesQuery{
		SellerID: params.SellerID,
		Range:    params.Range,
		Statuses: statuses,
		Offset:   page.Offset(),
		Limit:    page.Limit(),
	}
	ids, total, err := s.repo.SalesSellerPage(ctx, q)
	if err != nil {
		return nil, nil, 0, err
	}
	lines, err := s.repo.SalesLines(ctx, ids, q)
	if err != nil {
		return nil, nil, 0, err
	}
	return ids, rollupBySeller(lines), total, nil
}

// SellerSales reports order count, item count and order amount per seller.
func (s *service) SellerSales(ctx context.Context, params SalesParams) (Report[SellerSalesRow], error) {
	if err := validateRange(params.Range); err != nil {
		return Report[SellerSalesRow]{}, err
	}
	page := s.page(params.Page, params.PageSize)

	ids, totals, total, err := s.loadSales(ctx, params, salesStatuses, page)
	if err != nil {
		return primaryFailure[SellerSalesRow](ctx, s, "seller-sales", page, err)
	}

	rows := make([]SellerSalesRow, len(ids))
	for i, id := range ids {
		row := SellerSalesRow{SellerID: id, SellerName: s.labels.UnknownSeller}
		if t, ok := totals[id]; ok {
			row.OrderCount = len(t.orders)
			row.ItemCount = t.items
			row.OrderAmount = t.gross
		}
		rows[i] = row
	}

	outcome := enrichment.Run(ctx, s.enricher, rows,
		sellerNameStep(s,
			func(r *SellerSalesRow) (uuid.UUID, bool) { return r.SellerID, true },
			func(r *SellerSalesRow, name string) { r.SellerName = name },
		),
	)
	return Report[SellerSalesRow]{
		Page:     pagination.NewPage(rows, total, page),
		Degraded: outcome.Degraded,
	}, nil
}

// Wallet reports what each seller is owed from delivered orders.
func (s *service) Wallet(ctx context.Context, params SalesParams) (Report[WalletRow], error) {
	if err := validateRange(params.Range); err != nil {
		return Report[WalletRow]{}, err
	}
	page := s.page(params.Page, params.PageSize)

	ids, totals, total, err := s.loadSales(ctx, params, walletStatuses, page)
	if err != nil {
		return primaryFailure[WalletRow](ctx, s, "wallet", page, err)
	}

	rows := make([]WalletRow, len(ids))
	var summary Summary
	for i, id := range ids {
		row := WalletRow{SellerID: id, SellerName: s.labels.UnknownSeller}
		if t, ok := totals[id]; ok {
			row.OrderCount = len(t.orders)
			row.Gross = t.gross
			row.Commission = t.commission
			row.NetPayable = t.gross - t.commission
		}
		summary.Amount += row.Gross
		summary.Commission += row.Commission
		rows[i] = row
	}
	summary.Net = summary.Amount - summary.Commission

	outcome := enrichment.Run(ctx, s.enricher, rows,
		sellerNameStep(s,
			func(r *WalletRow) (uuid.UUID, bool) { return r.SellerID, true },
			func(r *WalletRow, name string) { r.SellerName = name },
		),
	)
	return Report[WalletRow]{
		Page:     pagination.NewPage(rows, total, page),
		Summary:  &summary,
		Degraded: outcome.Degraded,
	}, nil
}
