package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const maxTitleLength = 200

type cartItemRequest struct {
	ProductID       uuid.UUID         `json:"product_id" validate:"required"`
	SellerProductID *uuid.UUID        `json:"seller_product_id,omitempty"`
	Variants        map[string]string `json:"variants,omitempty"`
	Quantity        int               `json:"quantity" validate:"required,min=1"`
	Price           float64           `json:"price" validate:"min=0"`
	Title           string            `json:"title" validate:"required,notblank"`
	Image           *string           `json:"image,omitempty"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// resolveCart loads the caller's cart: the user's when signed in, otherwise
// the anonymous cart named by X-Cart-Token. The token is echoed back so new
// anonymous callers can keep it.
func resolveCart(w http.ResponseWriter, r *http.Request, svc cart.Service) (*cart.CartView, error) {
	owner := cart.Owner{Token: strings.TrimSpace(r.Header.Get(middleware.CartTokenHeader))}
	if middleware.UserIDFromContext(r.Context()) != "" {
		userID, err := userIDFromContext(r.Context())
		if err != nil {
			return nil, err
		}
		owner.UserID = &userID
	}
	view, err := svc.EnsureCart(r.Context(), owner)
	if err != nil {
		return nil, err
	}
	if view.Token != "" {
		w.Header().Set(middleware.CartTokenHeader, view.Token)
	}
	return view, nil
}

func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		view, err := resolveCart(w, r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartFromView(view))
	}
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var body cartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := resolveCart(w, r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.SaveItem(r.Context(), cart.SaveItemInput{
			CartID:          view.Cart.ID,
			ProductID:       body.ProductID,
			SellerProductID: body.SellerProductID,
			Variants:        body.Variants,
			Quantity:        body.Quantity,
			Price:           body.Price,
			Title:           validators.SanitizeString(body.Title, maxTitleLength),
			Image:           body.Image,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cartItemFromModel(*item))
	}
}

func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		itemID, err := validators.ParsePathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body cartQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := resolveCart(w, r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateQuantity(r.Context(), view.Cart.ID, itemID, body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CartRemoveItem deletes a line; the caller must pass confirm=true.
func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		if err := validators.RequireConfirm(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParsePathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := resolveCart(w, r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveItem(r.Context(), view.Cart.ID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
