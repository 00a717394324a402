package square

import (
	"strings"

	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// InitiateParams describes a hosted checkout for one order.
type InitiateParams struct {
	Amount         float64
	OrderRef       string
	CustomerEmail  string
	CustomerName   string
	ReturnURL      string
	IdempotencyKey string
}

// Initiation is returned to the caller after a checkout was created.
type Initiation struct {
	TransactionRef string
	RedirectURL    string
}

// LookupResult is the normalized state of a gateway transaction.
type LookupResult struct {
	Status   enums.PaymentStatus
	Amount   float64
	OrderRef string
}

func (p InitiateParams) validate() error {
	if toCents(p.Amount) <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(p.OrderRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
	}
	if strings.TrimSpace(p.ReturnURL) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "return url is required")
	}
	return nil
}

func (p InitiateParams) toSquareRequest(locationID, currency, idempotencyKey string) *sqcheckout.CreatePaymentLinkRequest {
	name := "Order " + p.OrderRef
	if trimmed := strings.TrimSpace(p.CustomerName); trimmed != "" {
		name = name + " for " + trimmed
	}
	req := &sqcheckout.CreatePaymentLinkRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		Order: &sq.Order{
			LocationID:  locationID,
			ReferenceID: ptrString(p.OrderRef),
			LineItems: []*sq.OrderLineItem{{
				Name:           ptrString(name),
				Quantity:       "1",
				BasePriceMoney: moneyPtr(toCents(p.Amount), currency),
			}},
		},
		CheckoutOptions: &sq.CheckoutOptions{
			RedirectURL: ptrString(p.ReturnURL),
		},
		PaymentNote: ptrString(p.OrderRef),
	}
	if email := strings.TrimSpace(p.CustomerEmail); email != "" {
		req.PrePopulatedData = &sq.PrePopulatedData{BuyerEmail: ptrString(email)}
	}
	return req
}

// lookupFromOrder maps a Square order onto the gateway's three states. A
// payment link order stays OPEN after payment, so a settled balance with at
// least one tender counts as completed.
func lookupFromOrder(order *sq.Order) *LookupResult {
	out := &LookupResult{
		Status:   enums.PaymentStatusPending,
		Amount:   fromMoney(order.TotalMoney),
		OrderRef: stringValue(order.ReferenceID),
	}
	state := sq.OrderState("")
	if order.State != nil {
		state = *order.State
	}
	switch state {
	case sq.OrderStateCanceled:
		out.Status = enums.PaymentStatusFailed
	case sq.OrderStateCompleted:
		out.Status = enums.PaymentStatusCompleted
	default:
		if len(order.Tenders) > 0 && order.NetAmountDueMoney != nil && fromMoney(order.NetAmountDueMoney) == 0 {
			out.Status = enums.PaymentStatusCompleted
		}
	}
	return out
}

func toCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

func fromMoney(m *sq.Money) float64 {
	if m == nil || m.Amount == nil {
		return 0
	}
	return decimal.NewFromInt(*m.Amount).Div(hundred).InexactFloat64()
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
