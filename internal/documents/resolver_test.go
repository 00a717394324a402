package documents

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSigner struct {
	signCalls   atomic.Int32
	publicCalls atomic.Int32
	signErr     error
	publicErr   error
	delay       time.Duration
}

func (f *fakeSigner) SignedReadURL(_ context.Context, bucket, object string, _ time.Duration) (string, error) {
	f.signCalls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example/" + bucket + "/" + object, nil
}

func (f *fakeSigner) PublicURL(bucket, object string) (string, error) {
	f.publicCalls.Add(1)
	if f.publicErr != nil {
		return "", f.publicErr
	}
	return "https://public.example/" + bucket + "/" + object, nil
}

func newTestResolver(t *testing.T, signer *fakeSigner, cache LinkCache) *Resolver {
	t.Helper()
	r, err := NewResolver(ResolverParams{Signer: signer, Bucket: "docs", Cache: cache})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return r
}

func TestResolveAbsoluteURLWithoutStorageCalls(t *testing.T) {
	signer := &fakeSigner{}
	r := newTestResolver(t, signer, nil)

	link := r.ResolveRaw(context.Background(), "https://x/y.pdf")
	if link.State != LinkReady || link.URL != "https://x/y.pdf" {
		t.Fatalf("expected url unchanged, got %+v", link)
	}
	if signer.signCalls.Load() != 0 || signer.publicCalls.Load() != 0 {
		t.Fatalf("expected zero storage calls, got sign=%d public=%d", signer.signCalls.Load(), signer.publicCalls.Load())
	}
}

func TestResolveStoragePathSignsOncePerRef(t *testing.T) {
	signer := &fakeSigner{}
	r := newTestResolver(t, signer, nil)
	ctx := context.Background()

	first := r.ResolveRaw(ctx, "sellerid/123.png")
	for i := 0; i < 5; i++ {
		again := r.ResolveRaw(ctx, "sellerid/123.png")
		if again.URL != first.URL {
			t.Fatalf("expected memoized url %q, got %q", first.URL, again.URL)
		}
	}
	if first.State != LinkReady || first.URL != "https://signed.example/docs/sellerid/123.png" {
		t.Fatalf("unexpected link %+v", first)
	}
	if first.ExpiresAt == nil {
		t.Fatal("signed link should carry its expiry")
	}
	if got := signer.signCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one signed-url request, got %d", got)
	}

	r.ResolveRaw(ctx, "sellerid/456.png")
	if got := signer.signCalls.Load(); got != 2 {
		t.Fatalf("expected a second request for a new ref, got %d", got)
	}
}

func TestResolveConcurrentCallersShareOneSignature(t *testing.T) {
	signer := &fakeSigner{delay: 20 * time.Millisecond}
	r := newTestResolver(t, signer, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if link := r.ResolveRaw(context.Background(), "sellerid/123.png"); link.State != LinkReady {
				t.Errorf("unexpected state %s", link.State)
			}
		}()
	}
	wg.Wait()
	if got := signer.signCalls.Load(); got != 1 {
		t.Fatalf("expected one signed-url request across concurrent callers, got %d", got)
	}
}

func TestResolveFallsBackToPublicURL(t *testing.T) {
	signer := &fakeSigner{signErr: errors.New("no key")}
	r := newTestResolver(t, signer, nil)

	link := r.ResolveRaw(context.Background(), "sellerid/123.png")
	if link.State != LinkReady || link.URL != "https://public.example/docs/sellerid/123.png" {
		t.Fatalf("expected public fallback, got %+v", link)
	}
	if link.ExpiresAt != nil {
		t.Fatal("public links do not expire")
	}
}

func TestResolveUnavailableWhenBothFail(t *testing.T) {
	signer := &fakeSigner{signErr: errors.New("no key"), publicErr: errors.New("bucket private")}
	r := newTestResolver(t, signer, nil)

	link := r.ResolveRaw(context.Background(), "sellerid/123.png")
	if link.State != LinkUnavailable || link.URL != "" {
		t.Fatalf("expected unavailable, got %+v", link)
	}
}

func TestResolveBlankRefIsPending(t *testing.T) {
	signer := &fakeSigner{}
	r := newTestResolver(t, signer, nil)

	if link := r.ResolveRaw(context.Background(), "   "); link.State != LinkPending {
		t.Fatalf("expected pending, got %+v", link)
	}
	if signer.signCalls.Load() != 0 {
		t.Fatal("blank ref must not reach storage")
	}
}

func TestResolveMemoExpiresBeforeSignedURL(t *testing.T) {
	signer := &fakeSigner{}
	r := newTestResolver(t, signer, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.ResolveRaw(context.Background(), "sellerid/123.png")
	now = now.Add(DefaultLinkTTL - memoSafetyMargin + time.Second)
	r.ResolveRaw(context.Background(), "sellerid/123.png")

	if got := signer.signCalls.Load(); got != 2 {
		t.Fatalf("expected re-sign after memo expiry, got %d calls", got)
	}
}

type mapCache struct {
	mu    sync.Mutex
	links map[string]Link
	puts  int
}

func (m *mapCache) Get(_ context.Context, ref string) (Link, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[ref]
	return l, ok, nil
}

func (m *mapCache) Put(_ context.Context, ref string, link Link, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[ref] = link
	m.puts++
	return nil
}

func TestResolveSharesLinksThroughCache(t *testing.T) {
	cache := &mapCache{links: map[string]Link{}}
	signer := &fakeSigner{}

	first := newTestResolver(t, signer, cache)
	first.ResolveRaw(context.Background(), "sellerid/123.png")

	second := newTestResolver(t, signer, cache)
	link := second.ResolveRaw(context.Background(), "sellerid/123.png")

	if link.State != LinkReady {
		t.Fatalf("expected cached link, got %+v", link)
	}
	if got := signer.signCalls.Load(); got != 1 {
		t.Fatalf("second instance should reuse cached link, got %d sign calls", got)
	}
	if cache.puts != 1 {
		t.Fatalf("expected one cache write, got %d", cache.puts)
	}
}

func TestResolveManyDeduplicates(t *testing.T) {
	signer := &fakeSigner{}
	r := newTestResolver(t, signer, nil)

	links := r.ResolveMany(context.Background(), []string{"a/1.pdf", "a/1.pdf", "https://x/y.pdf", "", "b/2.png"})
	if len(links) != 4 {
		t.Fatalf("expected 4 distinct refs, got %d", len(links))
	}
	if links[""].State != LinkPending || links["https://x/y.pdf"].URL != "https://x/y.pdf" {
		t.Fatalf("unexpected links %+v", links)
	}
	if got := signer.signCalls.Load(); got != 2 {
		t.Fatalf("expected 2 sign calls, got %d", got)
	}
}

func TestNewResolverValidates(t *testing.T) {
	if _, err := NewResolver(ResolverParams{Bucket: "b"}); err == nil {
		t.Fatal("expected signer error")
	}
	if _, err := NewResolver(ResolverParams{Signer: &fakeSigner{}}); err == nil {
		t.Fatal("expected bucket error")
	}
}
