package session

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	redisclient "github.com/angelmondragon/bazaar-backend/pkg/redis"
	"github.com/angelmondragon/bazaar-backend/pkg/security"
)

const refreshTokenBytes = 32

// ErrInvalidRefreshToken covers every way a refresh can fail on the caller's
// side: unknown session, wrong token, or a token already rotated.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Identity is the principal a session was opened for.
type Identity struct {
	UserID   uuid.UUID      `json:"user_id"`
	Role     enums.UserRole `json:"role"`
	SellerID *uuid.UUID     `json:"seller_id,omitempty"`
}

// stored is the Redis value under an access id. Only a digest of the refresh
// token is kept.
type stored struct {
	Identity
	RefreshDigest string    `json:"refresh_digest"`
	IssuedAt      time.Time `json:"issued_at"`
}

// AccessSessionChecker is what the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager keys one session per access token id (the JWT jti). Rotating a
// session retires the old id, so a stolen access token dies with it.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case ttl <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case ttl <= accessTTL:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyer: client, ttl: ttl, now: time.Now}, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

// Start opens a session and returns its access id and refresh token.
func (m *Manager) Start(ctx context.Context, identity Identity) (accessID, refreshToken string, err error) {
	if identity.UserID == uuid.Nil {
		return "", "", errors.New("user id is required")
	}
	accessID = NewAccessID()
	refreshToken, err = m.save(ctx, accessID, identity)
	if err != nil {
		return "", "", err
	}
	return accessID, refreshToken, nil
}

// Rotate trades a refresh token for a new session. The old entry is claimed
// with a compare-and-delete, so two concurrent refreshes with the same token
// cannot both succeed.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, refreshToken string) (string, string, *Identity, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(refreshToken) == "" {
		return "", "", nil, ErrInvalidRefreshToken
	}
	key := m.keyer.AccessSessionKey(oldAccessID)
	raw, current, err := m.read(ctx, key)
	if err != nil {
		return "", "", nil, err
	}
	if subtle.ConstantTimeCompare([]byte(current.RefreshDigest), []byte(digest(refreshToken))) != 1 {
		return "", "", nil, ErrInvalidRefreshToken
	}

	claimed, err := m.store.CompareAndDelete(ctx, key, raw)
	if err != nil {
		return "", "", nil, err
	}
	if !claimed {
		return "", "", nil, ErrInvalidRefreshToken
	}

	identity := current.Identity
	accessID := NewAccessID()
	next, err := m.save(ctx, accessID, identity)
	if err != nil {
		return "", "", nil, err
	}
	return accessID, next, &identity, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errors.New("access id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// Lookup returns the identity behind a live session, or ErrInvalidRefreshToken.
func (m *Manager) Lookup(ctx context.Context, accessID string) (*Identity, error) {
	if strings.TrimSpace(accessID) == "" {
		return nil, ErrInvalidRefreshToken
	}
	_, current, err := m.read(ctx, m.keyer.AccessSessionKey(accessID))
	if err != nil {
		return nil, err
	}
	identity := current.Identity
	return &identity, nil
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errors.New("access id is required")
	}
	_, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case redisclient.IsMiss(err):
		return false, nil
	default:
		return false, err
	}
}

func (m *Manager) save(ctx context.Context, accessID string, identity Identity) (string, error) {
	token, err := security.NewOpaqueToken(refreshTokenBytes)
	if err != nil {
		return "", err
	}
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	payload, err := json.Marshal(stored{Identity: identity, RefreshDigest: digest(token), IssuedAt: now().UTC()})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// read returns the raw value too; Rotate needs it for compare-and-delete.
func (m *Manager) read(ctx context.Context, key string) (string, *stored, error) {
	raw, err := m.store.Get(ctx, key)
	if redisclient.IsMiss(err) {
		return "", nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return "", nil, err
	}
	var current stored
	if err := json.Unmarshal([]byte(raw), &current); err != nil {
		return "", nil, ErrInvalidRefreshToken
	}
	return raw, &current, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
