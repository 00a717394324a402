package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type sampleBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","password":"short"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be a valid email", details["email"])
	require.Equal(t, "must be at least 8", details["password"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"longenough","admin":true}`))
	var body sampleBody
	require.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestRequireConfirm(t *testing.T) {
	require.Error(t, RequireConfirm(httptest.NewRequest(http.MethodDelete, "/x", nil)))
	require.Error(t, RequireConfirm(httptest.NewRequest(http.MethodDelete, "/x?confirm=no", nil)))
	require.NoError(t, RequireConfirm(httptest.NewRequest(http.MethodDelete, "/x?confirm=true", nil)))
}

func TestParseQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/r?page=3&from=2026-01-02&seller_id=bad&low=5", nil)

	page, err := ParseQueryInt(req, "page", 1, 1, 1000)
	require.NoError(t, err)
	require.Equal(t, 3, page)

	size, err := ParseQueryInt(req, "page_size", 20, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 20, size)

	from, err := ParseQueryTime(req, "from")
	require.NoError(t, err)
	require.Equal(t, "2026-01-02T00:00:00Z", from.Format("2006-01-02T15:04:05Z07:00"))

	_, err = ParseQueryUUID(req, "seller_id")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	low, err := ParseQueryOptionalInt(req, "low", 0, 1<<20)
	require.NoError(t, err)
	require.Equal(t, 5, *low)

	missing, err := ParseQueryOptionalInt(req, "absent", 0, 10)
	require.NoError(t, err)
	require.Nil(t, missing)
}

type nestedBody struct {
	Title   string `json:"title" validate:"required,notblank"`
	Address struct {
		City string `json:"city" validate:"required,notblank"`
	} `json:"address"`
}

func TestDecodeJSONBodyNestedAndBlankFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"   ","address":{"city":" "}}`))
	var body nestedBody
	err := DecodeJSONBody(req, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "is required", details["title"])
	require.Equal(t, "is required", details["address.city"])
}

func TestDecodeJSONBodyRejectsMalformedBodies(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"trailing": `{"email":"a@b.co","password":"longenough"}{"email":"x"}`,
		"syntax":   `{"email":`,
		"too big":  `{"email":"` + strings.Repeat("a", MaxJSONBodyBytes) + `"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
			var body sampleBody
			require.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
		})
	}
}
