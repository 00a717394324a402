package verification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/documents"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type stubRequests struct {
	rows        map[uuid.UUID]*models.VerificationRequest
	order       []uuid.UUID
	createErr   error
	listErr     error
	findCalls   int
	reviewCalls int
	forceZero   bool
}

func newStubRequests(rows ...*models.VerificationRequest) *stubRequests {
	s := &stubRequests{rows: map[uuid.UUID]*models.VerificationRequest{}}
	for _, r := range rows {
		s.rows[r.ID] = r
		s.order = append(s.order, r.ID)
	}
	return s
}

func (s *stubRequests) Create(_ context.Context, req *models.VerificationRequest) (*models.VerificationRequest, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	req.ID = uuid.New()
	s.rows[req.ID] = req
	s.order = append(s.order, req.ID)
	return req, nil
}

func (s *stubRequests) FindByID(_ context.Context, id uuid.UUID) (*models.VerificationRequest, error) {
	s.findCalls++
	r, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *r
	return &out, nil
}

func (s *stubRequests) ReviewPending(_ context.Context, id uuid.UUID, update ReviewUpdate) (int64, error) {
	s.reviewCalls++
	r, ok := s.rows[id]
	if !ok || s.forceZero || r.Status != enums.VerificationStatusPending {
		return 0, nil
	}
	r.Status = update.Status
	r.ReviewerID = &update.ReviewerID
	r.ReviewedAt = &update.ReviewedAt
	r.Notes = update.Notes
	return 1, nil
}

func (s *stubRequests) List(_ context.Context, q listQuery) ([]models.VerificationRequest, int64, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var out []models.VerificationRequest
	for _, id := range s.order {
		r := s.rows[id]
		if q.Status != nil && r.Status != *q.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func (s *stubRequests) LatestForSeller(_ context.Context, sellerID uuid.UUID) (*models.VerificationRequest, error) {
	var latest *models.VerificationRequest
	for _, r := range s.rows {
		if r.SellerID != sellerID {
			continue
		}
		if latest == nil || r.SubmittedAt.After(latest.SubmittedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

type stubSellers struct {
	sellers       map[uuid.UUID]models.Seller
	activateCalls int
	activateErr   error
	listErr       error
}

func (s *stubSellers) Get(_ context.Context, id uuid.UUID) (*models.Seller, error) {
	seller, ok := s.sellers[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	return &seller, nil
}

func (s *stubSellers) ListByIDs(_ context.Context, ids []uuid.UUID) ([]models.Seller, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Seller
	for _, id := range ids {
		if seller, ok := s.sellers[id]; ok {
			out = append(out, seller)
		}
	}
	return out, nil
}

func (s *stubSellers) Activate(_ context.Context, id uuid.UUID) error {
	s.activateCalls++
	if s.activateErr != nil {
		return s.activateErr
	}
	seller := s.sellers[id]
	seller.Status = enums.SellerStatusActive
	s.sellers[id] = seller
	return nil
}

type stubUsers struct {
	users map[uuid.UUID]models.User
	err   error
	calls int
}

func (s *stubUsers) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type stubResolver struct {
	batches [][]string
}

func (s *stubResolver) ResolveRaw(_ context.Context, raw string) documents.Link {
	return linkFor(raw)
}

func (s *stubResolver) ResolveMany(_ context.Context, raws []string) map[string]documents.Link {
	s.batches = append(s.batches, raws)
	out := map[string]documents.Link{}
	for _, raw := range raws {
		out[raw] = linkFor(raw)
	}
	return out
}

func linkFor(raw string) documents.Link {
	if raw == "" {
		return documents.Link{State: documents.LinkPending}
	}
	return documents.Link{State: documents.LinkReady, URL: "https://signed.example/" + raw}
}

type stubStore struct {
	puts int
}

func (s *stubStore) Put(_ context.Context, sellerID uuid.UUID, _ string, _ string, _ io.Reader) (string, error) {
	s.puts++
	return sellerID.String() + "/doc.pdf", nil
}

type fixture struct {
	svc      Service
	requests *stubRequests
	sellers  *stubSellers
	users    *stubUsers
	resolver *stubResolver
	store    *stubStore
	logs     *bytes.Buffer
}

func newFixture(t *testing.T, requests *stubRequests, sellers ...models.Seller) *fixture {
	t.Helper()
	f := &fixture{
		requests: requests,
		sellers:  &stubSellers{sellers: map[uuid.UUID]models.Seller{}},
		users:    &stubUsers{users: map[uuid.UUID]models.User{}},
		resolver: &stubResolver{},
		store:    &stubStore{},
		logs:     &bytes.Buffer{},
	}
	for _, s := range sellers {
		f.sellers.sellers[s.ID] = s
	}
	svc, err := NewService(ServiceParams{
		Repo:      requests,
		Sellers:   f.sellers,
		Users:     f.users,
		Resolver:  f.resolver,
		Documents: f.store,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: f.logs}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func pendingRequest(sellerID uuid.UUID) *models.VerificationRequest {
	return &models.VerificationRequest{
		ID:          uuid.New(),
		SellerID:    sellerID,
		Status:      enums.VerificationStatusPending,
		DocumentRef: sellerID.String() + "/123.png",
	}
}

func TestReviewRejectionRequiresNote(t *testing.T) {
	seller := models.Seller{ID: uuid.New(), Status: enums.SellerStatusInactive}
	req := pendingRequest(seller.ID)
	f := newFixture(t, newStubRequests(req), seller)

	_, err := f.svc.Review(context.Background(), req.ID, enums.ReviewDecisionRejected, uuid.New(), "   ")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.requests.findCalls != 0 || f.requests.reviewCalls != 0 {
		t.Fatalf("expected no repository calls, got find=%d review=%d", f.requests.findCalls, f.requests.reviewCalls)
	}
	if f.sellers.activateCalls != 0 {
		t.Fatal("activate must not be called")
	}
	if f.requests.rows[req.ID].Status != enums.VerificationStatusPending {
		t.Fatal("request mutated")
	}
}

func TestReviewRejectsUnknownDecision(t *testing.T) {
	f := newFixture(t, newStubRequests())
	_, err := f.svc.Review(context.Background(), uuid.New(), enums.ReviewDecision("maybe"), uuid.New(), "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.requests.findCalls != 0 {
		t.Fatal("expected no lookup")
	}
}

func TestReviewApprovalActivatesExactlyOnce(t *testing.T) {
	seller := models.Seller{ID: uuid.New(), Status: enums.SellerStatusInactive}
	req := pendingRequest(seller.ID)
	f := newFixture(t, newStubRequests(req), seller)
	ctx := context.Background()
	reviewer := uuid.New()

	got, err := f.svc.Review(ctx, req.ID, enums.ReviewDecisionApproved, reviewer, "")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if got.Status != enums.VerificationStatusApproved || got.ReviewerID == nil || *got.ReviewerID != reviewer {
		t.Fatalf("unexpected reviewed request %+v", got)
	}
	if f.sellers.sellers[seller.ID].Status != enums.SellerStatusActive {
		t.Fatal("expected seller active")
	}

	_, err = f.svc.Review(ctx, req.ID, enums.ReviewDecisionApproved, reviewer, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on terminal request, got %v", err)
	}
	if f.sellers.activateCalls != 1 {
		t.Fatalf("expected one activation, got %d", f.sellers.activateCalls)
	}
}

func TestReviewLosingConcurrentReviewerGetsConflict(t *testing.T) {
	seller := models.Seller{ID: uuid.New()}
	req := pendingRequest(seller.ID)
	requests := newStubRequests(req)
	requests.forceZero = true
	f := newFixture(t, requests, seller)

	_, err := f.svc.Review(context.Background(), req.ID, enums.ReviewDecisionApproved, uuid.New(), "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.sellers.activateCalls != 0 {
		t.Fatal("loser must not activate")
	}
}

func TestReviewActivationFailureIsDistinct(t *testing.T) {
	seller := models.Seller{ID: uuid.New()}
	req := pendingRequest(seller.ID)
	f := newFixture(t, newStubRequests(req), seller)
	f.sellers.activateErr = errors.New("connection reset")

	_, err := f.svc.Review(context.Background(), req.ID, enums.ReviewDecisionApproved, uuid.New(), "looks good")
	if !pkgerrors.IsCode(err, pkgerrors.CodeActivationPending) {
		t.Fatalf("expected activation pending, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok || details["request_id"] != req.ID.String() || details["seller_id"] != seller.ID.String() {
		t.Fatalf("unexpected details %#v", pkgerrors.As(err).Details())
	}
	if f.requests.rows[req.ID].Status != enums.VerificationStatusApproved {
		t.Fatal("review should stay persisted")
	}
	if !strings.Contains(f.logs.String(), EventActivationFailed) {
		t.Fatalf("expected %s log, got %s", EventActivationFailed, f.logs.String())
	}
}

func TestReviewMissingRequest(t *testing.T) {
	f := newFixture(t, newStubRequests())
	_, err := f.svc.Review(context.Background(), uuid.New(), enums.ReviewDecisionApproved, uuid.New(), "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func validInput(sellerID uuid.UUID) SubmitInput {
	return SubmitInput{
		SellerID:      sellerID,
		LicenseNumber: "LIC-1",
		Address: Address{
			Line1:      "1 Main St",
			City:       "Springfield",
			State:      "IL",
			PostalCode: "62701",
			Country:    "US",
		},
		DocumentRef: sellerID.String() + "/123.png",
	}
}

func TestSubmitValidatesBeforeLookup(t *testing.T) {
	owner := uuid.New()
	seller := models.Seller{ID: uuid.New(), UserID: owner}
	f := newFixture(t, newStubRequests(), seller)

	input := validInput(seller.ID)
	input.Address.City = " "
	_, err := f.svc.Submit(context.Background(), Actor{UserID: owner, Role: enums.UserRoleSeller}, input)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.requests.rows) != 0 {
		t.Fatal("expected nothing stored")
	}
}

func TestSubmitStoresPendingRequest(t *testing.T) {
	owner := uuid.New()
	seller := models.Seller{ID: uuid.New(), UserID: owner}
	f := newFixture(t, newStubRequests(), seller)

	id, err := f.svc.Submit(context.Background(), Actor{UserID: owner, Role: enums.UserRoleSeller}, validInput(seller.ID))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	stored := f.requests.rows[id]
	if stored == nil || stored.Status != enums.VerificationStatusPending || stored.SubmittedAt.IsZero() {
		t.Fatalf("unexpected stored request %+v", stored)
	}
}

func TestSubmitRejectsForeignSeller(t *testing.T) {
	seller := models.Seller{ID: uuid.New(), UserID: uuid.New()}
	f := newFixture(t, newStubRequests(), seller)
	intruder := uuid.New()

	_, err := f.svc.Submit(context.Background(), Actor{UserID: intruder, Role: enums.UserRoleSeller}, validInput(seller.ID))
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	logs := f.logs.String()
	if !strings.Contains(logs, EventSubmitRejected) || !strings.Contains(logs, intruder.String()) || !strings.Contains(logs, seller.ID.String()) {
		t.Fatalf("expected rejection log with identities, got %s", logs)
	}
}

func TestSubmitMapsBackendRejections(t *testing.T) {
	owner := uuid.New()
	seller := models.Seller{ID: uuid.New(), UserID: owner}
	actor := Actor{UserID: owner, Role: enums.UserRoleSeller}

	requests := newStubRequests()
	requests.createErr = errors.New(`new row violates row-level security policy for table "verification_requests"`)
	f := newFixture(t, requests, seller)
	if _, err := f.svc.Submit(context.Background(), actor, validInput(seller.ID)); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if !strings.Contains(f.logs.String(), EventSubmitRejected) {
		t.Fatal("expected rejection log")
	}

	requests = newStubRequests()
	requests.createErr = errors.New("i/o timeout")
	f = newFixture(t, requests, seller)
	if _, err := f.svc.Submit(context.Background(), actor, validInput(seller.ID)); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency, got %v", err)
	}
}

func TestSubmitUnknownSeller(t *testing.T) {
	f := newFixture(t, newStubRequests())
	_, err := f.svc.Submit(context.Background(), Actor{UserID: uuid.New()}, validInput(uuid.New()))
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListRequestsEnrichesRows(t *testing.T) {
	owner := models.User{ID: uuid.New(), DisplayName: "Dana", Email: "dana@example.com"}
	sellerA := models.Seller{ID: uuid.New(), UserID: owner.ID, CompanyName: "Acme"}
	sellerB := models.Seller{ID: uuid.New(), UserID: uuid.New(), CompanyName: "Globex"}
	first := pendingRequest(sellerA.ID)
	second := pendingRequest(sellerA.ID)
	third := pendingRequest(sellerB.ID)
	third.DocumentRef = ""

	f := newFixture(t, newStubRequests(first, second, third), sellerA, sellerB)
	f.users.users[owner.ID] = owner

	res, err := f.svc.ListRequests(context.Background(), ListParams{Status: "all"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Degraded {
		t.Fatal("did not expect degraded result")
	}
	if res.Total != 3 || len(res.Items) != 3 || res.TotalPages != 1 {
		t.Fatalf("unexpected page %+v", res.Page)
	}
	if res.Items[0].SellerName != "Acme" || res.Items[0].OwnerName != "Dana" || res.Items[0].OwnerEmail != owner.Email {
		t.Fatalf("unexpected enrichment %+v", res.Items[0])
	}
	if res.Items[2].OwnerName != "Unknown User" {
		t.Fatalf("expected default owner label, got %q", res.Items[2].OwnerName)
	}
	if res.Items[2].Document.State != documents.LinkPending {
		t.Fatalf("expected pending document, got %+v", res.Items[2].Document)
	}
	if len(f.resolver.batches) != 1 || len(f.resolver.batches[0]) != 2 {
		t.Fatalf("expected one batch of distinct refs, got %v", f.resolver.batches)
	}
	if f.users.calls != 1 {
		t.Fatalf("expected one batched users lookup, got %d", f.users.calls)
	}
}

func TestListRequestsDegradesOnSecondaryFailure(t *testing.T) {
	seller := models.Seller{ID: uuid.New(), UserID: uuid.New(), CompanyName: "Acme"}
	f := newFixture(t, newStubRequests(pendingRequest(seller.ID)), seller)
	f.sellers.listErr = errors.New("timeout")

	res, err := f.svc.ListRequests(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	if len(res.Items) != 1 || res.Items[0].SellerName != "Unknown Seller" {
		t.Fatalf("expected default seller label, got %+v", res.Items)
	}
	if !strings.Contains(f.logs.String(), "enrichment.degraded") {
		t.Fatal("expected degraded log")
	}
}

func TestListRequestsFilterValidationAndPrimaryFailure(t *testing.T) {
	f := newFixture(t, newStubRequests())
	if _, err := f.svc.ListRequests(context.Background(), ListParams{Status: "archived"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	f.requests.listErr = errors.New("down")
	if _, err := f.svc.ListRequests(context.Background(), ListParams{Status: "pending"}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestLatestForSellerResolvesDocument(t *testing.T) {
	owner := uuid.New()
	seller := models.Seller{ID: uuid.New(), UserID: owner, CompanyName: "Acme"}
	req := pendingRequest(seller.ID)
	f := newFixture(t, newStubRequests(req), seller)

	view, err := f.svc.LatestForSeller(context.Background(), Actor{UserID: owner, Role: enums.UserRoleSeller}, seller.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if view.ID != req.ID || view.Document.State != documents.LinkReady || view.SellerName != "Acme" {
		t.Fatalf("unexpected view %+v", view)
	}

	_, err = f.svc.LatestForSeller(context.Background(), Actor{UserID: uuid.New()}, seller.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUploadDocumentChecksOwnership(t *testing.T) {
	owner := uuid.New()
	seller := models.Seller{ID: uuid.New(), UserID: owner}
	f := newFixture(t, newStubRequests(), seller)
	input := UploadInput{SellerID: seller.ID, Filename: "id.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF")}

	if _, err := f.svc.UploadDocument(context.Background(), Actor{UserID: uuid.New()}, input); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	path, err := f.svc.UploadDocument(context.Background(), Actor{UserID: owner}, input)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(path, seller.ID.String()+"/") || f.store.puts != 1 {
		t.Fatalf("unexpected upload result %q (puts=%d)", path, f.store.puts)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error")
	}
}

func (f *fixture) logsLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: f.logs})
}
