package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/sellers"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type sellerDTO struct {
	ID          uuid.UUID `json:"id"`
	CompanyName string    `json:"company_name"`
	Status      string    `json:"status"`
}

func AdminActivateSeller(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return sellerStatusHandler(svc, logg, func(ctx context.Context, id uuid.UUID) error {
		return svc.Activate(ctx, id)
	})
}

func AdminDeactivateSeller(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return sellerStatusHandler(svc, logg, func(ctx context.Context, id uuid.UUID) error {
		return svc.Deactivate(ctx, id)
	})
}

func sellerStatusHandler(svc sellers.Service, logg *logger.Logger, apply func(context.Context, uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seller service unavailable"))
			return
		}

		sellerID, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := apply(r.Context(), sellerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		seller, err := svc.Get(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithSellerID(r.Context(), sellerID.String())
			logg.Info(logg.WithField(ctx, "status", string(seller.Status)), "seller status changed")
		}
		responses.WriteSuccess(w, sellerFromModel(seller))
	}
}

func sellerFromModel(s *models.Seller) sellerDTO {
	return sellerDTO{ID: s.ID, CompanyName: s.CompanyName, Status: string(s.Status)}
}
