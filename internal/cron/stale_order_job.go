package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	StaleOrderJobName     = "stale-gateway-order-expiry"
	EventStaleOrderClosed = "orders.pending.expired"

	defaultPendingOrderTTL = 72 * time.Hour
	staleOrderBatch        = 200
)

type staleOrderStore interface {
	FindStalePending(ctx context.Context, method enums.PaymentMethod, cutoff time.Time, limit int) ([]models.Order, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, fields map[string]any) (int64, error)
}

// StaleOrderJobParams configure the pending order expiry job.
type StaleOrderJobParams struct {
	Logger *logger.Logger
	Orders staleOrderStore
	TTL    time.Duration
}

type staleOrderJob struct {
	logg   *logger.Logger
	orders staleOrderStore
	ttl    time.Duration
	now    func() time.Time
}

// NewStaleOrderJob builds the job that cancels gateway orders whose payment
// never completed within the TTL. Cash-on-delivery orders are left alone.
func NewStaleOrderJob(params StaleOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &staleOrderJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (j *staleOrderJob) Name() string { return StaleOrderJobName }

func (j *staleOrderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	stale, err := j.orders.FindStalePending(ctx, enums.PaymentMethodGateway, now.Add(-j.ttl), staleOrderBatch)
	if err != nil {
		return fmt.Errorf("query stale orders: %w", err)
	}

	var errs error
	closed := 0
	for _, order := range stale {
		rows, err := j.orders.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, map[string]any{"cancelled_at": now})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
			continue
		}
		if rows == 0 {
			continue
		}
		closed++
		logCtx := j.logg.WithEvent(ctx, EventStaleOrderClosed)
		j.logg.Info(j.logg.WithOrderID(logCtx, order.ID.String()), "stale pending order cancelled")
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": closed})
	j.logg.Info(logCtx, "stale order loop complete")
	return errs
}
