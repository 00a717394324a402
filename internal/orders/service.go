package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/square"
)

const (
	EventPaymentMismatch = "orders.payment.amount_mismatch"
	EventPaymentSettled  = "orders.payment.settled"

	// amountTolerance absorbs float rounding between our total and the
	// gateway's minor-unit amount.
	amountTolerance = 0.005
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	WithTx(tx *gorm.DB) cart.CartRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
}

// PaymentGateway is the hosted payment provider used for gateway orders.
type PaymentGateway interface {
	Initiate(ctx context.Context, params square.InitiateParams) (*square.Initiation, error)
	Lookup(ctx context.Context, transactionRef string) (*square.LookupResult, error)
}

// Service exposes order operations.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	ConfirmPayment(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	CancelItem(ctx context.Context, itemID uuid.UUID) error
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo    Repository
	carts   cartStore
	tx      txRunner
	gateway PaymentGateway
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the orders service. A nil gateway disables gateway payments.
func NewService(repo Repository, carts cartStore, tx txRunner, gateway PaymentGateway, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		carts:   carts,
		tx:      tx,
		gateway: gateway,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.Method == enums.PaymentMethodGateway {
		if s.gateway == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway payments are not available")
		}
		if strings.TrimSpace(input.ReturnURL) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "return url required for gateway payments")
		}
	}

	c, err := s.carts.FindByID(ctx, input.CartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if c.UserID == nil || *c.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart does not belong to user")
	}
	lines, err := s.carts.ListItems(ctx, c.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	total := cartTotal(lines)

	orderID := uuid.New()
	result := &CheckoutResult{}
	var paymentRef *string
	if input.Method == enums.PaymentMethodGateway {
		initiation, err := s.gateway.Initiate(ctx, square.InitiateParams{
			Amount:         total,
			OrderRef:       orderID.String(),
			CustomerEmail:  input.CustomerEmail,
			CustomerName:   input.CustomerName,
			ReturnURL:      input.ReturnURL,
			IdempotencyKey: "checkout-" + orderID.String(),
		})
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil {
				return nil, typed
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initiate payment")
		}
		ref := initiation.TransactionRef
		paymentRef = &ref
		result.RedirectURL = initiation.RedirectURL
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		carts := s.carts.WithTx(tx)

		current, err := carts.ListItems(ctx, c.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart items")
		}
		if len(current) == 0 || !sameAmount(cartTotal(current), total) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout")
		}

		order, err := repo.CreateOrder(ctx, &models.Order{
			ID:            orderID,
			UserID:        input.UserID,
			Status:        enums.OrderStatusPending,
			PaymentMethod: input.Method,
			TotalAmount:   total,
			PaymentRef:    paymentRef,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderItem, 0, len(current))
		for _, line := range current {
			items = append(items, models.OrderItem{
				OrderID:         order.ID,
				ProductID:       line.ProductID,
				SellerProductID: line.SellerProductID,
				Quantity:        line.Quantity,
				Price:           line.Price,
			})
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		if err := carts.DeleteItems(ctx, c.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		result.Order = order
		result.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":       orderID.String(),
		"payment_method": input.Method.String(),
		"item_count":     len(result.Items),
	})
	s.logg.Info(ctx, "order created")
	return result, nil
}

func (s *service) ConfirmPayment(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != uuid.Nil && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.PaymentMethod != enums.PaymentMethodGateway {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not paid through the gateway")
	}
	if order.Status != enums.OrderStatusPending {
		return order, nil
	}
	if order.PaymentRef == nil || strings.TrimSpace(*order.PaymentRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order has no payment reference")
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}

	lookup, err := s.gateway.Lookup(ctx, *order.PaymentRef)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":       order.ID.String(),
		"payment_ref":    *order.PaymentRef,
		"payment_status": lookup.Status.String(),
	})

	switch lookup.Status {
	case enums.PaymentStatusPending:
		return order, nil
	case enums.PaymentStatusCompleted:
		if !sameAmount(lookup.Amount, order.TotalAmount) {
			ctx = s.logg.WithEvent(ctx, EventPaymentMismatch)
			ctx = s.logg.WithFields(ctx, map[string]any{
				"expected_amount": order.TotalAmount,
				"paid_amount":     lookup.Amount,
			})
			s.logg.Warn(ctx, "gateway amount does not match order total")
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "paid amount does not match order total").WithDetails(map[string]any{
				"expected_amount": order.TotalAmount,
				"paid_amount":     lookup.Amount,
			})
		}
		return s.settle(ctx, order.ID, enums.OrderStatusPaid, map[string]any{"paid_amount": lookup.Amount})
	case enums.PaymentStatusFailed:
		return s.settle(ctx, order.ID, enums.OrderStatusCancelled, map[string]any{"cancelled_at": s.now()})
	default:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "unknown payment status")
	}
}

// settle applies a transition out of pending. Losing a race is not an error:
// the caller receives whatever state won.
func (s *service) settle(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, fields map[string]any) (*models.Order, error) {
	if _, err := s.repo.TransitionStatus(ctx, orderID, enums.OrderStatusPending, to, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithEvent(ctx, EventPaymentSettled), "order payment settled")
	return order, nil
}

func (s *service) CancelItem(ctx context.Context, itemID uuid.UUID) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order item id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		rows, err := repo.DeleteItem(ctx, item.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order item")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		amount := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		if err := repo.AdjustTotal(ctx, item.OrderID, amount.Neg().InexactFloat64()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust order total")
		}
		return nil
	})
}

func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch {
	case order.Status == enums.OrderStatusDelivered:
		return order, nil
	case order.Status == enums.OrderStatusPaid:
	case order.Status == enums.OrderStatusPending && order.PaymentMethod == enums.PaymentMethodCOD:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order cannot be delivered in its current state").WithDetails(map[string]any{
			"status": order.Status.String(),
		})
	}

	rows, err := s.repo.TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusDelivered, map[string]any{"delivered_at": s.now()})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently")
	}
	return s.loadOrder(ctx, order.ID)
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func cartTotal(lines []models.CartItem) float64 {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return sum.Round(2).InexactFloat64()
}

func sameAmount(a, b float64) bool {
	return math.Abs(a-b) < amountTolerance
}
