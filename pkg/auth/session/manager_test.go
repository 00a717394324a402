package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.data[key]; !ok || current != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func newTestManager(store *mockStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour}
}

func TestManagerStartAndRotate(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	sellerID := uuid.New()
	identity := Identity{UserID: uuid.New(), Role: enums.UserRoleSeller, SellerID: &sellerID}

	accessID, token, err := manager.Start(ctx, identity)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, ok := store.data[store.AccessSessionKey(accessID)]; !ok {
		t.Fatalf("expected session to be stored")
	}

	if _, _, _, err := manager.Rotate(ctx, accessID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}

	newAccessID, newToken, rotated, err := manager.Rotate(ctx, accessID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, exists := store.data[store.AccessSessionKey(accessID)]; exists {
		t.Fatalf("old access key left behind")
	}
	if newAccessID == accessID || newToken == token {
		t.Fatalf("expected a fresh access id and token")
	}
	if rotated.UserID != identity.UserID || rotated.SellerID == nil || *rotated.SellerID != sellerID {
		t.Fatalf("identity not carried across rotation: %+v", rotated)
	}
}

func TestManagerLookupAndRevoke(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	identity := Identity{UserID: uuid.New(), Role: enums.UserRoleCustomer}

	accessID, _, err := manager.Start(ctx, identity)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	got, err := manager.Lookup(ctx, accessID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.UserID != identity.UserID || got.Role != enums.UserRoleCustomer {
		t.Fatalf("unexpected identity %+v", got)
	}

	ok, err := manager.HasSession(ctx, accessID)
	if err != nil || !ok {
		t.Fatalf("expected active session, ok=%v err=%v", ok, err)
	}

	if err := manager.Revoke(ctx, accessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = manager.HasSession(ctx, accessID)
	if err != nil || ok {
		t.Fatalf("expected revoked session, ok=%v err=%v", ok, err)
	}
	if _, err := manager.Lookup(ctx, accessID); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token after revoke, got %v", err)
	}
}

func TestManagerStartRequiresUser(t *testing.T) {
	manager := newTestManager(newMockStore())
	if _, _, err := manager.Start(context.Background(), Identity{Role: enums.UserRoleCustomer}); err == nil {
		t.Fatal("expected error for missing user id")
	}
}

func TestManagerStoresOnlyRefreshDigest(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	accessID, token, err := manager.Start(context.Background(), Identity{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	raw := store.data[store.AccessSessionKey(accessID)]
	if strings.Contains(raw, token) {
		t.Fatalf("refresh token persisted in clear: %s", raw)
	}
	if !strings.Contains(raw, digest(token)) {
		t.Fatalf("expected refresh digest in stored session: %s", raw)
	}
}

func TestManagerRotateIsSingleUse(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	accessID, token, err := manager.Start(ctx, Identity{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _, err := manager.Rotate(ctx, accessID, token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrInvalidRefreshToken):
			t.Fatalf("unexpected rotate error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one rotation to win, got %d", succeeded)
	}
}
