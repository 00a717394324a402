package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/api/controllers"
	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/reports"
	pkgAuth "github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/auth/session"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubReports struct {
	reports.Service
	calls int
}

func (s *stubReports) Wallet(_ context.Context, params reports.SalesParams) (reports.Report[reports.WalletRow], error) {
	s.calls++
	return reports.Report[reports.WalletRow]{Page: pagination.NewPage([]reports.WalletRow{}, 0, pagination.Params{Page: params.Page, PageSize: 20})}, nil
}

type stubCart struct {
	cart.Service
	ensured int
}

func (s *stubCart) EnsureCart(_ context.Context, owner cart.Owner) (*cart.CartView, error) {
	s.ensured++
	return &cart.CartView{Cart: &models.Cart{ID: uuid.New()}, Token: "anon-token"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "bazaar", ExpirationMinutes: 60},
	}
}

func newTestRouter(t *testing.T, p RouterParams) http.Handler {
	t.Helper()
	p.Config = testConfig()
	p.Logger = logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})
	p.Sessions = stubSessions{}
	return NewRouter(p)
}

func bearer(t *testing.T, role enums.UserRole) string {
	t.Helper()
	payload := pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role, JTI: session.NewAccessID()}
	if role == enums.UserRoleSeller {
		sellerID := uuid.New()
		payload.SellerID = &sellerID
	}
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), payload)
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(h http.Handler, method, path, auth string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	h := newTestRouter(t, RouterParams{Health: map[string]controllers.Pinger{
		"db":    stubPinger{},
		"redis": stubPinger{err: errors.New("connection refused")},
	}})

	live := serve(h, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, live.Code)
	require.Equal(t, "test", live.Header().Get("X-Bazaar-Env"))
	require.NotEmpty(t, live.Header().Get("X-Request-Id"))

	ready := serve(h, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, ready.Code)
	require.Contains(t, ready.Body.String(), "redis")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	rep := &stubReports{}
	h := newTestRouter(t, RouterParams{Reports: rep})

	require.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, "/api/admin/v1/reports/wallet", "", nil).Code)
	require.Equal(t, http.StatusForbidden, serve(h, http.MethodGet, "/api/admin/v1/reports/wallet", bearer(t, enums.UserRoleCustomer), nil).Code)
	require.Equal(t, 0, rep.calls)

	ok := serve(h, http.MethodGet, "/api/admin/v1/reports/wallet?page=2", bearer(t, enums.UserRoleAdmin), nil)
	require.Equal(t, http.StatusOK, ok.Code)
	require.Equal(t, 1, rep.calls)
}

func TestAdminReportRejectsBadQuery(t *testing.T) {
	rep := &stubReports{}
	h := newTestRouter(t, RouterParams{Reports: rep})

	rec := serve(h, http.MethodGet, "/api/admin/v1/reports/wallet?from=2026-02-01&to=2026-01-01", bearer(t, enums.UserRoleAdmin), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, rep.calls)
}

func TestSellerRoutesRequireSellerRole(t *testing.T) {
	h := newTestRouter(t, RouterParams{})
	rec := serve(h, http.MethodGet, "/api/v1/seller/verification/latest", bearer(t, enums.UserRoleCustomer), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCartRoutesAllowAnonymousCallers(t *testing.T) {
	carts := &stubCart{}
	h := newTestRouter(t, RouterParams{Cart: carts})

	rec := serve(h, http.MethodGet, "/api/v1/cart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "anon-token", rec.Header().Get("X-Cart-Token"))

	// Removal without confirm=true never reaches the cart.
	before := carts.ensured
	rec = serve(h, http.MethodDelete, "/api/v1/cart/items/"+uuid.NewString(), "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, before, carts.ensured)
}

func TestCheckoutRequiresAuthentication(t *testing.T) {
	h := newTestRouter(t, RouterParams{})
	rec := serve(h, http.MethodPost, "/api/v1/checkout", "", strings.NewReader(`{"payment_method":"cod"}`))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterRecordsRouteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newTestRouter(t, RouterParams{HTTPMetrics: metrics.NewHTTPMetrics(reg)})

	serve(h, http.MethodGet, "/health/live", "", nil)
	serve(h, http.MethodGet, "/health/live", "", nil)
	serve(h, http.MethodGet, "/no/such/route", "", nil)

	require.Equal(t, float64(2), requestCount(t, reg, "/health/live", "200"))
	require.Equal(t, float64(1), requestCount(t, reg, "unmatched", "404"))
}

func requestCount(t *testing.T, reg *prometheus.Registry, route, code string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "bazaar_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["route"] == route && labels["code"] == code {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
