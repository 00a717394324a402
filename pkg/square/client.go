package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	callTimeout = 15 * time.Second
	redacted    = "[REDACTED]"
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationIDRequired  = errors.New("square location id is required")
	errInvalidSquareEnv    = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired      = errors.New("square logger is required")
)

// Log fields whose names contain any of these fragments are masked.
var sensitiveFields = []string{"card", "nonce", "token", "secret", "email", "phone"}

// statusCodes maps Square HTTP statuses onto domain codes; other 4xx are
// validation failures and everything else is a dependency failure.
var statusCodes = map[int]pkgerrors.Code{
	http.StatusUnauthorized:    pkgerrors.CodeUnauthorized,
	http.StatusForbidden:       pkgerrors.CodeForbidden,
	http.StatusNotFound:        pkgerrors.CodeNotFound,
	http.StatusConflict:        pkgerrors.CodeConflict,
	http.StatusTooManyRequests: pkgerrors.CodeRateLimit,
}

type paymentLinksAPI interface {
	Create(ctx context.Context, request *sqcheckout.CreatePaymentLinkRequest, opts ...sqoption.RequestOption) (*sq.CreatePaymentLinkResponse, error)
}

type ordersAPI interface {
	Get(ctx context.Context, request *sq.GetOrdersRequest, opts ...sqoption.RequestOption) (*sq.GetOrderResponse, error)
}

// Client is the hosted-checkout payment gateway. Initiate creates a Square
// payment link for an order; Lookup reads the backing Square order.
type Client struct {
	links       paymentLinksAPI
	orders      ordersAPI
	environment string
	locationID  string
	currency    string
	logger      *logger.Logger
}

// NewClient initializes the Square wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, baseURL, err := resolveEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}
	locationID := strings.TrimSpace(cfg.LocationID)
	if locationID == "" {
		return nil, errLocationIDRequired
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(accessToken),
	)

	c := &Client{
		links:       sdk.Checkout.PaymentLinks,
		orders:      sdk.Orders,
		environment: env,
		locationID:  locationID,
		currency:    cfg.Currency,
		logger:      logg,
	}

	logg.Info(logg.WithField(ctx, "square_env", env), "square client initialized")
	return c, nil
}

// Environment reports the normalized Square environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// NewIdempotencyKey returns a unique key for Square operations.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "bz"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

// Initiate creates a hosted checkout for the order and returns the transaction
// reference to persist alongside the order plus the URL to send the buyer to.
func (c *Client) Initiate(ctx context.Context, params InitiateParams) (*Initiation, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	req := params.toSquareRequest(c.locationID, c.currency, c.ensureIdempotencyKey("checkout", params.IdempotencyKey))
	c.logCall(ctx, "create_payment_link", map[string]any{
		"order_ref":      params.OrderRef,
		"amount":         params.Amount,
		"customer_email": params.CustomerEmail,
	})

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	resp, err := c.links.Create(callCtx, req)
	if err != nil {
		c.logFailure(ctx, "create_payment_link", err)
		return nil, mapSquareError(err, "create payment link")
	}

	link := resp.PaymentLink
	if link == nil || stringValue(link.OrderID) == "" || stringValue(link.URL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square returned an incomplete payment link")
	}

	out := &Initiation{
		TransactionRef: stringValue(link.OrderID),
		RedirectURL:    stringValue(link.URL),
	}
	c.logCall(ctx, "create_payment_link.done", map[string]any{
		"transaction_ref": out.TransactionRef,
		"payment_link_id": stringValue(link.ID),
	})
	return out, nil
}

// Lookup resolves the current state of a previously initiated transaction.
func (c *Client) Lookup(ctx context.Context, transactionRef string) (*LookupResult, error) {
	ref := strings.TrimSpace(transactionRef)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	resp, err := c.orders.Get(callCtx, &sq.GetOrdersRequest{OrderID: ref})
	if err != nil {
		c.logFailure(ctx, "get_order", err)
		return nil, mapSquareError(err, "get order")
	}

	order := resp.Order
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	out := lookupFromOrder(order)
	c.logCall(ctx, "get_order.done", map[string]any{
		"transaction_ref": ref,
		"status":          out.Status.String(),
	})
	return out, nil
}

func (c *Client) ensureIdempotencyKey(prefix, provided string) string {
	if strings.TrimSpace(provided) != "" {
		return provided
	}
	return c.NewIdempotencyKey(prefix)
}

func (c *Client) logCall(ctx context.Context, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	safe := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		safe[k] = redact(k, v)
	}
	safe["square_op"] = op
	c.logger.Info(c.logger.WithFields(ctx, safe), "square call")
}

func (c *Client) logFailure(ctx context.Context, op string, err error) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.Error(c.logger.WithField(ctx, "square_op", op), "square call failed", err)
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	if slices.ContainsFunc(sensitiveFields, func(fragment string) bool { return strings.Contains(lower, fragment) }) {
		return redacted
	}
	return value
}

// mapSquareError classifies SDK failures. Square error codes in the response
// body win over the HTTP status; transport errors are dependency failures.
func mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf("square %s failed", op)
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
	code := domainCodeForStatus(apiErr.StatusCode)
	for _, detail := range squareErrors(apiErr) {
		switch {
		case detail == nil:
			continue
		case detail.Code == sq.ErrorCodeIdempotencyKeyReused:
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, msg)
		case detail.Category == sq.ErrorCategoryAuthenticationError:
			return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg)
		}
	}
	return pkgerrors.Wrap(code, err, msg)
}

// squareErrors decodes the {"errors":[...]} body the SDK keeps as the
// wrapped error text.
func squareErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(inner.Error())), &body); err != nil {
		return nil
	}
	return body.Errors
}

func domainCodeForStatus(status int) pkgerrors.Code {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	if status >= 400 && status < 500 {
		return pkgerrors.CodeValidation
	}
	return pkgerrors.CodeDependency
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

// resolveEnv defaults to sandbox and returns the API base URL for env.
func resolveEnv(raw string) (string, string, error) {
	env := strings.ToLower(strings.TrimSpace(raw))
	if env == "" {
		env = sandboxEnv
	}
	baseURL, ok := baseURLs[env]
	if !ok {
		return "", "", errInvalidSquareEnv
	}
	return env, baseURL, nil
}
