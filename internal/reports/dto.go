package reports

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Range bounds a report by time; either end may be open. To is exclusive.
type Range struct {
	From *time.Time
	To   *time.Time
}

// CommissionParams filter the commission report.
type CommissionParams struct {
	SellerID *uuid.UUID
	Range    Range
	Page     int
	PageSize int
}

// StockParams filter the stock report.
type StockParams struct {
	SellerID    *uuid.UUID
	LowStockAt  *int
	TitleSearch string
	Page        int
	PageSize    int
}

// SalesParams filter the seller-sales and wallet reports.
type SalesParams struct {
	SellerID *uuid.UUID
	Range    Range
	Page     int
	PageSize int
}

// Summary holds page totals.
type Summary struct {
	Amount     Money `json:"amount"`
	Commission Money `json:"commission"`
	Net        Money `json:"net"`
}

// Report is one page of a reporter. Error is set, with no items, when the
// primary query failed. Degraded marks rows that kept default labels.
type Report[T any] struct {
	pagination.Page[T]
	Summary  *Summary `json:"summary,omitempty"`
	Degraded bool     `json:"degraded"`
	Error    string   `json:"error,omitempty"`
}

type CommissionRow struct {
	ItemID         uuid.UUID  `json:"item_id"`
	OrderID        uuid.UUID  `json:"order_id"`
	ProductID      uuid.UUID  `json:"product_id"`
	ProductTitle   string     `json:"product_title"`
	SellerID       *uuid.UUID `json:"seller_id,omitempty"`
	SellerName     string     `json:"seller_name"`
	Quantity       int        `json:"quantity"`
	UnitPrice      Money      `json:"unit_price"`
	LineAmount     Money      `json:"line_amount"`
	CommissionRate float64    `json:"commission_rate"`
	Commission     Money      `json:"commission"`
	CreatedAt      time.Time  `json:"created_at"`
}

type StockRow struct {
	SellerProductID uuid.UUID `json:"seller_product_id"`
	ProductID       uuid.UUID `json:"product_id"`
	ProductTitle    string    `json:"product_title"`
	SellerID        uuid.UUID `json:"seller_id"`
	SellerName      string    `json:"seller_name"`
	Price           Money     `json:"price"`
	StockQuantity   int       `json:"stock_quantity"`
	SoldQuantity    int       `json:"sold_quantity"`
}

type SellerSalesRow struct {
	SellerID    uuid.UUID `json:"seller_id"`
	SellerName  string    `json:"seller_name"`
	OrderCount  int       `json:"order_count"`
	ItemCount   int       `json:"item_count"`
	OrderAmount Money     `json:"order_amount"`
}

type WalletRow struct {
	SellerID   uuid.UUID `json:"seller_id"`
	SellerName string    `json:"seller_name"`
	OrderCount int       `json:"order_count"`
	Gross      Money     `json:"gross"`
	Commission Money     `json:"commission"`
	NetPayable Money     `json:"net_payable"`
}
