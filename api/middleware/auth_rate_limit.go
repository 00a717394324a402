package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

// authBodyPeekLimit bounds how much of a credential body is read to find the email.
const authBodyPeekLimit = 16 << 10

// RateLimitStore counts hits in fixed windows.
type RateLimitStore interface {
	FixedWindow(ctx context.Context, scope string, limit int64, window time.Duration) (redis.Window, error)
}

// AuthRateLimitPolicy throttles one credential endpoint by client IP and by
// the email in the request body.
type AuthRateLimitPolicy struct {
	Name       string
	Window     time.Duration
	IPLimit    int
	EmailLimit int
}

func (p AuthRateLimitPolicy) active() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.EmailLimit > 0)
}

type limitCheck struct {
	dimension string
	subject   string
	limit     int
}

// AuthRateLimit rejects requests over either limit with 429 and Retry-After.
// A store failure is a 503 rather than an open door.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	name := strings.ToLower(strings.TrimSpace(policy.Name))
	if name == "" {
		name = "auth"
	}
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var checks []limitCheck
			if ip := clientIP(r); ip != "" && policy.IPLimit > 0 {
				checks = append(checks, limitCheck{dimension: "ip", subject: ip, limit: policy.IPLimit})
			}
			if policy.EmailLimit > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				if email != "" {
					checks = append(checks, limitCheck{dimension: "email", subject: digest(email), limit: policy.EmailLimit})
				}
			}

			for _, check := range checks {
				scope := name + ":" + check.dimension + ":" + check.subject
				win, err := store.FixedWindow(ctx, scope, int64(check.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
					return
				}
				setRateLimitHeaders(w, win)
				if !win.Allowed() {
					rejectRateLimited(ctx, logg, w, name, check, win)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, win redis.Window) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.FormatInt(win.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(win.Remaining(), 10))
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy string, check limitCheck, win redis.Window) {
	retryAfter := int(math.Ceil(win.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"policy":    policy,
			"dimension": check.dimension,
			"subject":   check.subject,
			"attempts":  win.Count,
			"limit":     check.limit,
		})
		logg.Warn(logCtx, "auth.rate_limit.blocked")
	}
	err := pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts").
		WithDetails(map[string]any{"retry_after_seconds": retryAfter})
	responses.WriteError(ctx, nil, w, err)
}

// peekEmail reads the body, restores it for the handler and returns the
// normalized "email" field when present.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, authBodyPeekLimit))
	if err != nil {
		return "", err
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(raw), r.Body), r.Body}

	var probe struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &probe) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(probe.Email)), nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:12])
}
