package verification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/sellers"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func seedSeller(t *testing.T, conn *gorm.DB, status enums.SellerStatus) *models.Seller {
	t.Helper()
	seller := &models.Seller{UserID: uuid.New(), CompanyName: "Acme", Status: status}
	require.NoError(t, conn.Create(seller).Error)
	return seller
}

func seedRequest(t *testing.T, repo *Repository, sellerID uuid.UUID, submitted time.Time) *models.VerificationRequest {
	t.Helper()
	req, err := repo.Create(context.Background(), &models.VerificationRequest{
		SellerID:      sellerID,
		SubmittedAt:   submitted,
		Status:        enums.VerificationStatusPending,
		LicenseNumber: "LIC",
		AddressLine1:  "1 Main St",
		City:          "Springfield",
		State:         "IL",
		PostalCode:    "62701",
		Country:       "US",
		DocumentRef:   sellerID.String() + "/123.png",
	})
	require.NoError(t, err)
	return req
}

func TestRepositoryReviewPendingOnlyOnce(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	seller := seedSeller(t, conn, enums.SellerStatusInactive)
	req := seedRequest(t, repo, seller.ID, time.Now().UTC())

	update := ReviewUpdate{Status: enums.VerificationStatusApproved, ReviewerID: uuid.New(), ReviewedAt: time.Now().UTC()}
	affected, err := repo.ReviewPending(ctx, req.ID, update)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	note := "late reviewer"
	affected, err = repo.ReviewPending(ctx, req.ID, ReviewUpdate{
		Status:     enums.VerificationStatusRejected,
		ReviewerID: uuid.New(),
		ReviewedAt: time.Now().UTC(),
		Notes:      &note,
	})
	require.NoError(t, err)
	require.EqualValues(t, 0, affected)

	stored, err := repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, enums.VerificationStatusApproved, stored.Status)
	require.NotNil(t, stored.ReviewerID)
	require.Equal(t, update.ReviewerID, *stored.ReviewerID)
	require.Nil(t, stored.Notes)
}

func TestRepositoryListNewestFirst(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	seller := seedSeller(t, conn, enums.SellerStatusInactive)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	oldest := seedRequest(t, repo, seller.ID, base)
	middle := seedRequest(t, repo, seller.ID, base.Add(time.Hour))
	newest := seedRequest(t, repo, seller.ID, base.Add(2*time.Hour))

	_, err := repo.ReviewPending(ctx, middle.ID, ReviewUpdate{Status: enums.VerificationStatusApproved, ReviewerID: uuid.New(), ReviewedAt: base})
	require.NoError(t, err)

	rows, total, err := repo.List(ctx, listQuery{Offset: 0, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, rows, 2)
	require.Equal(t, newest.ID, rows[0].ID)
	require.Equal(t, middle.ID, rows[1].ID)

	rows, _, err = repo.List(ctx, listQuery{Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, oldest.ID, rows[0].ID)

	pending := enums.VerificationStatusPending
	rows, total, err = repo.List(ctx, listQuery{Status: &pending, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, rows, 2)

	latest, err := repo.LatestForSeller(ctx, seller.ID)
	require.NoError(t, err)
	require.Equal(t, newest.ID, latest.ID)
}

func TestRepositoryApprovedWithInactiveSeller(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	approve := func(req *models.VerificationRequest, at time.Time) {
		_, err := repo.ReviewPending(ctx, req.ID, ReviewUpdate{Status: enums.VerificationStatusApproved, ReviewerID: uuid.New(), ReviewedAt: at})
		require.NoError(t, err)
	}
	touchSeller := func(id uuid.UUID, at time.Time) {
		require.NoError(t, conn.Exec("UPDATE sellers SET updated_at = ? WHERE id = ?", at, id).Error)
	}

	stranded := seedSeller(t, conn, enums.SellerStatusInactive)
	strandedReq := seedRequest(t, repo, stranded.ID, base)
	approve(strandedReq, base.Add(time.Hour))
	touchSeller(stranded.ID, base)

	active := seedSeller(t, conn, enums.SellerStatusActive)
	approve(seedRequest(t, repo, active.ID, base), base.Add(time.Hour))
	touchSeller(active.ID, base)

	deactivated := seedSeller(t, conn, enums.SellerStatusInactive)
	approve(seedRequest(t, repo, deactivated.ID, base), base.Add(time.Hour))
	touchSeller(deactivated.ID, base.Add(48*time.Hour))

	resubmitted := seedSeller(t, conn, enums.SellerStatusInactive)
	approve(seedRequest(t, repo, resubmitted.ID, base), base.Add(time.Hour))
	seedRequest(t, repo, resubmitted.ID, base.Add(2*time.Hour))
	touchSeller(resubmitted.ID, base)

	got, err := repo.ApprovedWithInactiveSeller(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, strandedReq.ID, got[0].RequestID)
	require.Equal(t, stranded.ID, got[0].SellerID)
}

func TestServiceReviewAgainstDatabase(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	sellerSvc, err := sellers.NewService(sellers.NewRepository(conn))
	require.NoError(t, err)
	seller := seedSeller(t, conn, enums.SellerStatusInactive)
	req := seedRequest(t, repo, seller.ID, time.Now().UTC())

	f := newFixture(t, newStubRequests())
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Sellers:   sellerSvc,
		Users:     f.users,
		Resolver:  f.resolver,
		Documents: f.store,
		Logger:    f.logsLogger(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Review(ctx, req.ID, enums.ReviewDecisionApproved, uuid.New(), "")
	require.NoError(t, err)

	stored, err := sellerSvc.Get(ctx, seller.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SellerStatusActive, stored.Status)

	reviewed, err := repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, enums.VerificationStatusApproved, reviewed.Status)
}
