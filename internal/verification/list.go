package verification

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/documents"
	"github.com/angelmondragon/bazaar-backend/internal/enrichment"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// ListRequests pages through requests newest first. Seller and owner details
// are attached afterwards; a failed lookup keeps the default labels and marks
// the result degraded instead of failing the listing.
func (s *service) ListRequests(ctx context.Context, params ListParams) (*ListResult, error) {
	status, err := parseStatusFilter(params.Status)
	if err != nil {
		return nil, err
	}
	page := pagination.Params{Page: params.Page, PageSize: params.PageSize}.Normalize()

	rows, total, err := s.repo.List(ctx, listQuery{
		Status: status,
		Offset: page.Offset(),
		Limit:  page.Limit(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list verification requests")
	}

	views := make([]RequestView, len(rows))
	for i := range rows {
		views[i] = viewFromModel(&rows[i], s.labels)
	}

	// Owners are keyed by the seller rows, so they run once sellers are attached.
	first := enrichment.Run(ctx, s.enricher, views, s.sellerStep(), s.documentStep())
	second := enrichment.Run(ctx, s.enricher, views, s.ownerStep())

	return &ListResult{
		Page:     pagination.NewPage(views, total, page),
		Degraded: first.Degraded || second.Degraded,
	}, nil
}

func (s *service) sellerStep() enrichment.Step[RequestView] {
	return enrichment.NewStep(
		"sellers",
		func(row *RequestView) (uuid.UUID, bool) { return row.SellerID, row.SellerID != uuid.Nil },
		func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Seller, error) {
			sellers, err := s.sellers.ListByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			out := make(map[uuid.UUID]models.Seller, len(sellers))
			for _, seller := range sellers {
				out[seller.ID] = seller
			}
			return out, nil
		},
		func(row *RequestView, seller models.Seller) {
			row.SellerName = seller.CompanyName
			row.ownerID = seller.UserID
		},
	)
}

func (s *service) ownerStep() enrichment.Step[RequestView] {
	return enrichment.NewStep(
		"users",
		func(row *RequestView) (uuid.UUID, bool) { return row.ownerID, row.ownerID != uuid.Nil },
		func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
			users, err := s.users.FindByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			out := make(map[uuid.UUID]models.User, len(users))
			for _, user := range users {
				out[user.ID] = user
			}
			return out, nil
		},
		func(row *RequestView, user models.User) {
			row.OwnerName = user.DisplayName
			row.OwnerEmail = user.Email
		},
	)
}

func (s *service) documentStep() enrichment.Step[RequestView] {
	return enrichment.NewStep(
		"documents",
		func(row *RequestView) (string, bool) { return row.documentRef, true },
		func(ctx context.Context, refs []string) (map[string]documents.Link, error) {
			return s.resolver.ResolveMany(ctx, refs), nil
		},
		func(row *RequestView, link documents.Link) { row.Document = link },
	)
}

func parseStatusFilter(raw string) (*enums.VerificationStatus, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == StatusFilterAll {
		return nil, nil
	}
	status, err := enums.ParseVerificationStatus(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be all, pending, approved or rejected")
	}
	return &status, nil
}
