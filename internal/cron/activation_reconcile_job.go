package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/internal/verification"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
)

const (
	ActivationReconcileJobName = "seller-activation-reconcile"
	EventActivationReconciled  = "seller.activation.reconciled"

	defaultReconcileBatch = 200
)

type strandedApprovals interface {
	ApprovedWithInactiveSeller(ctx context.Context, limit int) ([]verification.ActivationCandidate, error)
}

type sellerActivator interface {
	Activate(ctx context.Context, sellerID uuid.UUID) error
}

// ActivationReconcileJobParams configure the reconcile job.
type ActivationReconcileJobParams struct {
	Logger    *logger.Logger
	Approvals strandedApprovals
	Sellers   sellerActivator
	Metrics   *metrics.DomainMetrics
	BatchSize int
}

type activationReconcileJob struct {
	logg      *logger.Logger
	approvals strandedApprovals
	sellers   sellerActivator
	metrics   *metrics.DomainMetrics
	batch     int
}

// NewActivationReconcileJob builds the job that activates sellers whose
// approval was stored but whose activation never landed.
func NewActivationReconcileJob(params ActivationReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Approvals == nil {
		return nil, fmt.Errorf("verification repository required")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("seller service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &activationReconcileJob{
		logg:      params.Logger,
		approvals: params.Approvals,
		sellers:   params.Sellers,
		metrics:   params.Metrics,
		batch:     batch,
	}, nil
}

func (j *activationReconcileJob) Name() string { return ActivationReconcileJobName }

func (j *activationReconcileJob) Run(ctx context.Context) error {
	candidates, err := j.approvals.ApprovedWithInactiveSeller(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("query stranded approvals: %w", err)
	}

	var errs error
	activated := 0
	for _, candidate := range candidates {
		if err := j.sellers.Activate(ctx, candidate.SellerID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("activate seller %s: %w", candidate.SellerID, err))
			continue
		}
		activated++
		logCtx := j.logg.WithEvent(ctx, EventActivationReconciled)
		logCtx = j.logg.WithSellerID(logCtx, candidate.SellerID.String())
		logCtx = j.logg.WithField(logCtx, "request_id", candidate.RequestID.String())
		j.logg.Info(logCtx, "seller activation reconciled")
	}
	j.metrics.AddActivationReconciled(activated)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"activated":  activated,
	})
	j.logg.Info(logCtx, "activation reconcile loop complete")
	return errs
}
