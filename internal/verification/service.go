package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/documents"
	"github.com/angelmondragon/bazaar-backend/internal/enrichment"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
)

const (
	EventSubmitRejected   = "verification.submit.rejected"
	EventActivationFailed = "verification.activation.failed"
)

type requestsRepository interface {
	Create(ctx context.Context, req *models.VerificationRequest) (*models.VerificationRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.VerificationRequest, error)
	ReviewPending(ctx context.Context, id uuid.UUID, update ReviewUpdate) (int64, error)
	List(ctx context.Context, q listQuery) ([]models.VerificationRequest, int64, error)
	LatestForSeller(ctx context.Context, sellerID uuid.UUID) (*models.VerificationRequest, error)
}

type sellerService interface {
	Get(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Seller, error)
	Activate(ctx context.Context, sellerID uuid.UUID) error
}

type usersLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
}

type linkResolver interface {
	ResolveRaw(ctx context.Context, raw string) documents.Link
	ResolveMany(ctx context.Context, raws []string) map[string]documents.Link
}

type documentStore interface {
	Put(ctx context.Context, sellerID uuid.UUID, filename, contentType string, body io.Reader) (string, error)
}

// Service manages seller verification requests.
type Service interface {
	Submit(ctx context.Context, actor Actor, input SubmitInput) (uuid.UUID, error)
	Review(ctx context.Context, requestID uuid.UUID, decision enums.ReviewDecision, reviewerID uuid.UUID, note string) (*models.VerificationRequest, error)
	ListRequests(ctx context.Context, params ListParams) (*ListResult, error)
	LatestForSeller(ctx context.Context, actor Actor, sellerID uuid.UUID) (*RequestView, error)
	UploadDocument(ctx context.Context, actor Actor, input UploadInput) (string, error)
}

// ServiceParams wires the verification service.
type ServiceParams struct {
	Repo      requestsRepository
	Sellers   sellerService
	Users     usersLookup
	Resolver  linkResolver
	Documents documentStore
	Logger    *logger.Logger
	Metrics   *metrics.DomainMetrics
	Labels    Labels
}

type service struct {
	repo      requestsRepository
	sellers   sellerService
	users     usersLookup
	resolver  linkResolver
	documents documentStore
	logg      *logger.Logger
	metrics   *metrics.DomainMetrics
	enricher  *enrichment.Runner
	labels    Labels
	now       func() time.Time
}

// NewService builds the verification service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("verification repository required")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("seller service required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users lookup required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("document resolver required")
	}
	if params.Documents == nil {
		return nil, fmt.Errorf("document store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		sellers:   params.Sellers,
		users:     params.Users,
		resolver:  params.Resolver,
		documents: params.Documents,
		logg:      params.Logger,
		metrics:   params.Metrics,
		enricher:  enrichment.NewRunner(params.Logger, params.Metrics),
		labels:    params.Labels.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Submit(ctx context.Context, actor Actor, input SubmitInput) (uuid.UUID, error) {
	if err := validateSubmit(actor, input); err != nil {
		return uuid.Nil, err
	}

	seller, err := s.sellers.Get(ctx, input.SellerID)
	if err != nil {
		return uuid.Nil, err
	}
	if seller.UserID != actor.UserID && !actor.isAdmin() {
		s.logRejected(ctx, actor, input.SellerID, "seller not owned by caller")
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller does not belong to caller")
	}

	req := &models.VerificationRequest{
		SellerID:      input.SellerID,
		SubmittedAt:   s.now(),
		Status:        enums.VerificationStatusPending,
		LicenseNumber: strings.TrimSpace(input.LicenseNumber),
		AddressLine1:  strings.TrimSpace(input.Address.Line1),
		AddressLine2:  trimmedOrNil(input.Address.Line2),
		City:          strings.TrimSpace(input.Address.City),
		State:         strings.TrimSpace(input.Address.State),
		PostalCode:    strings.TrimSpace(input.Address.PostalCode),
		Country:       strings.TrimSpace(input.Address.Country),
		DocumentRef:   strings.TrimSpace(input.DocumentRef),
	}
	if note := strings.TrimSpace(input.Note); note != "" {
		req.Notes = &note
	}

	created, err := s.repo.Create(ctx, req)
	if err != nil {
		s.logRejected(ctx, actor, input.SellerID, err.Error())
		if db.IsPolicyViolation(err) {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "verification submission refused")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create verification request")
	}
	return created.ID, nil
}

func (s *service) Review(ctx context.Context, requestID uuid.UUID, decision enums.ReviewDecision, reviewerID uuid.UUID, note string) (*models.VerificationRequest, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}
	if reviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviewer identity missing")
	}
	if !decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approved or rejected")
	}
	note = strings.TrimSpace(note)
	if decision == enums.ReviewDecisionRejected && note == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a note is required when rejecting")
	}

	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "verification request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification request")
	}
	if req.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "verification request already reviewed").
			WithDetails(map[string]any{"status": req.Status})
	}

	update := ReviewUpdate{
		Status:     decision.Status(),
		ReviewerID: reviewerID,
		ReviewedAt: s.now(),
	}
	if note != "" {
		update.Notes = &note
	}
	affected, err := s.repo.ReviewPending(ctx, requestID, update)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update verification request")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "verification request already reviewed")
	}

	req.Status = update.Status
	req.ReviewerID = &update.ReviewerID
	req.ReviewedAt = &update.ReviewedAt
	if update.Notes != nil {
		req.Notes = update.Notes
	}

	if decision != enums.ReviewDecisionApproved {
		return req, nil
	}
	if err := s.sellers.Activate(ctx, req.SellerID); err != nil {
		s.metrics.IncActivationFailure()
		logCtx := s.logg.WithEvent(ctx, EventActivationFailed)
		logCtx = s.logg.WithSellerID(logCtx, req.SellerID.String())
		logCtx = s.logg.WithField(logCtx, "request_id", req.ID.String())
		s.logg.Error(logCtx, "request approved but seller activation failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeActivationPending, err, "review saved but seller activation failed").
			WithDetails(map[string]any{
				"request_id": req.ID.String(),
				"seller_id":  req.SellerID.String(),
			})
	}
	return req, nil
}

func (s *service) LatestForSeller(ctx context.Context, actor Actor, sellerID uuid.UUID) (*RequestView, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	seller, err := s.sellers.Get(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if seller.UserID != actor.UserID && !actor.isAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller does not belong to caller")
	}

	req, err := s.repo.LatestForSeller(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no verification request submitted")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification request")
	}
	view := viewFromModel(req, s.labels)
	view.SellerName = seller.CompanyName
	view.Document = s.resolver.ResolveRaw(ctx, req.DocumentRef)
	return &view, nil
}

func (s *service) UploadDocument(ctx context.Context, actor Actor, input UploadInput) (string, error) {
	if input.SellerID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if input.Body == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	seller, err := s.sellers.Get(ctx, input.SellerID)
	if err != nil {
		return "", err
	}
	if seller.UserID != actor.UserID && !actor.isAdmin() {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "seller does not belong to caller")
	}
	return s.documents.Put(ctx, input.SellerID, input.Filename, input.ContentType, input.Body)
}

func (s *service) logRejected(ctx context.Context, actor Actor, sellerID uuid.UUID, reason string) {
	ctx = s.logg.WithEvent(ctx, EventSubmitRejected)
	ctx = s.logg.WithUserID(ctx, actor.UserID.String())
	ctx = s.logg.WithSellerID(ctx, sellerID.String())
	ctx = s.logg.WithField(ctx, "reason", reason)
	s.logg.Warn(ctx, "verification submission rejected")
}

func validateSubmit(actor Actor, input SubmitInput) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.SellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller_id is required")
	}
	if strings.TrimSpace(input.LicenseNumber) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "license_number is required")
	}
	if field := input.Address.missingField(); field != "" {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
	}
	return nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
