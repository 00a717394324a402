package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type recordingCart struct {
	cart.Service
	cartID  uuid.UUID
	owner   cart.Owner
	saved   cart.SaveItemInput
	removed uuid.UUID
}

func (s *recordingCart) EnsureCart(_ context.Context, owner cart.Owner) (*cart.CartView, error) {
	s.owner = owner
	token := owner.Token
	if owner.UserID == nil && token == "" {
		token = "fresh-token"
	}
	return &cart.CartView{Cart: &models.Cart{ID: s.cartID}, Token: token}, nil
}

func (s *recordingCart) SaveItem(_ context.Context, input cart.SaveItemInput) (*models.CartItem, error) {
	s.saved = input
	return &models.CartItem{ID: uuid.New(), CartID: input.CartID, ProductID: input.ProductID, Quantity: input.Quantity, Price: input.Price, Title: input.Title}, nil
}

func (s *recordingCart) RemoveItem(_ context.Context, cartID, itemID uuid.UUID) error {
	s.removed = itemID
	return nil
}

func TestCartGetIssuesAnonymousToken(t *testing.T) {
	svc := &recordingCart{cartID: uuid.New()}
	rec := httptest.NewRecorder()
	CartGet(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "fresh-token", rec.Header().Get(middleware.CartTokenHeader))
	require.Nil(t, svc.owner.UserID)
}

func TestCartAddItemUsesSignedInUser(t *testing.T) {
	svc := &recordingCart{cartID: uuid.New()}
	userID := uuid.New()
	body := `{"product_id":"` + uuid.NewString() + `","quantity":2,"price":4.5,"title":"  Lamp  "}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)), userID.String(), string(enums.UserRoleCustomer), "")
	rec := httptest.NewRecorder()
	CartAddItem(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, userID, *svc.owner.UserID)
	require.Equal(t, svc.cartID, svc.saved.CartID)
	require.Equal(t, "Lamp", svc.saved.Title)
	require.Equal(t, 2, svc.saved.Quantity)
}

func TestCartAddItemValidatesQuantity(t *testing.T) {
	svc := &recordingCart{}
	body := `{"product_id":"` + uuid.NewString() + `","quantity":0,"price":1,"title":"Lamp"}`
	rec := httptest.NewRecorder()
	CartAddItem(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestCartRemoveItemRequiresConfirm(t *testing.T) {
	svc := &recordingCart{cartID: uuid.New()}
	itemID := uuid.New()

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/"+itemID.String(), nil), "itemId", itemID.String())
	rec := httptest.NewRecorder()
	CartRemoveItem(svc, testLogger()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, uuid.Nil, svc.removed)

	req = withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/"+itemID.String()+"?confirm=true", nil), "itemId", itemID.String())
	req.Header.Set(middleware.CartTokenHeader, "anon-1")
	rec = httptest.NewRecorder()
	CartRemoveItem(svc, testLogger()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, itemID, svc.removed)
	require.Equal(t, "anon-1", svc.owner.Token)
}
