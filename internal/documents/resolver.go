package documents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
)

const (
	// DefaultLinkTTL is the validity of issued signed URLs.
	DefaultLinkTTL = 30 * time.Minute

	memoSafetyMargin   = 2 * time.Minute
	unavailableMemoTTL = 30 * time.Second
	resolveFanout      = 8
)

type urlSigner interface {
	SignedReadURL(ctx context.Context, bucket, object string, expires time.Duration) (string, error)
	PublicURL(bucket, object string) (string, error)
}

// LinkCache shares resolved links between API instances.
type LinkCache interface {
	Get(ctx context.Context, ref string) (Link, bool, error)
	Put(ctx context.Context, ref string, link Link, ttl time.Duration) error
}

// ResolverParams configure a Resolver.
type ResolverParams struct {
	Signer  urlSigner
	Bucket  string
	TTL     time.Duration
	Cache   LinkCache
	Logger  *logger.Logger
	Metrics *metrics.DomainMetrics
}

type memoEntry struct {
	link    Link
	expires time.Time
}

// Resolver turns document references into displayable links. Storage paths
// are signed at most once per distinct path while the memoized link is fresh.
type Resolver struct {
	signer  urlSigner
	bucket  string
	ttl     time.Duration
	cache   LinkCache
	logg    *logger.Logger
	metrics *metrics.DomainMetrics
	now     func() time.Time

	mu    sync.Mutex
	memo  map[string]memoEntry
	group singleflight.Group
}

// NewResolver builds a resolver backed by the storage signer.
func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Signer == nil {
		return nil, fmt.Errorf("storage signer required")
	}
	if params.Bucket == "" {
		return nil, fmt.Errorf("document bucket required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	return &Resolver{
		signer:  params.Signer,
		bucket:  params.Bucket,
		ttl:     ttl,
		cache:   params.Cache,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     time.Now,
		memo:    make(map[string]memoEntry),
	}, nil
}

// Resolve never fails: problems degrade to an unavailable link.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) Link {
	switch ref.Kind {
	case KindNone:
		r.metrics.IncDocumentLink(metrics.LinkOutcomePending)
		return pendingLink()
	case KindURL:
		r.metrics.IncDocumentLink(metrics.LinkOutcomeDirect)
		return Link{State: LinkReady, URL: ref.Value}
	}

	if link, ok := r.memoized(ref.Value); ok {
		return link
	}

	v, _, _ := r.group.Do(ref.Value, func() (any, error) {
		if link, ok := r.memoized(ref.Value); ok {
			return link, nil
		}
		return r.resolvePath(ctx, ref.Value), nil
	})
	return v.(Link)
}

// ResolveRaw parses and resolves a stored reference.
func (r *Resolver) ResolveRaw(ctx context.Context, raw string) Link {
	return r.Resolve(ctx, ParseRef(raw))
}

// ResolveMany resolves every distinct raw reference once, concurrently.
func (r *Resolver) ResolveMany(ctx context.Context, raws []string) map[string]Link {
	out := make(map[string]Link, len(raws))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(resolveFanout)
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		g.Go(func() error {
			link := r.ResolveRaw(ctx, raw)
			mu.Lock()
			out[raw] = link
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Resolver) resolvePath(ctx context.Context, path string) Link {
	if r.cache != nil {
		if link, ok, err := r.cache.Get(ctx, path); err != nil {
			r.warn(ctx, path, "document link cache read failed", err)
		} else if ok && link.ExpiresAt != nil && link.ExpiresAt.Sub(r.now()) > memoSafetyMargin {
			r.remember(path, link, link.ExpiresAt.Sub(r.now())-memoSafetyMargin)
			r.metrics.IncDocumentLink(metrics.LinkOutcomeSigned)
			return link
		}
	}

	r.metrics.IncSignerCall()
	signed, err := r.signer.SignedReadURL(ctx, r.bucket, path, r.ttl)
	if err == nil {
		expires := r.now().Add(r.ttl)
		link := Link{State: LinkReady, URL: signed, ExpiresAt: &expires}
		r.remember(path, link, r.memoTTL())
		if r.cache != nil {
			if cacheErr := r.cache.Put(ctx, path, link, r.memoTTL()); cacheErr != nil {
				r.warn(ctx, path, "document link cache write failed", cacheErr)
			}
		}
		r.metrics.IncDocumentLink(metrics.LinkOutcomeSigned)
		return link
	}
	r.warn(ctx, path, "signed url failed; trying public url", err)

	public, pubErr := r.signer.PublicURL(r.bucket, path)
	if pubErr == nil && public != "" {
		link := Link{State: LinkReady, URL: public}
		r.remember(path, link, r.memoTTL())
		r.metrics.IncDocumentLink(metrics.LinkOutcomePublic)
		return link
	}
	if pubErr != nil {
		r.warn(ctx, path, "public url failed", pubErr)
	}

	link := unavailableLink()
	r.remember(path, link, unavailableMemoTTL)
	r.metrics.IncDocumentLink(metrics.LinkOutcomeUnavailable)
	return link
}

// memoTTL keeps memoized links shorter lived than the URL they hold.
func (r *Resolver) memoTTL() time.Duration {
	if r.ttl > 2*memoSafetyMargin {
		return r.ttl - memoSafetyMargin
	}
	return r.ttl / 2
}

func (r *Resolver) memoized(path string) (Link, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.memo[path]
	if !ok {
		return Link{}, false
	}
	if !r.now().Before(entry.expires) {
		delete(r.memo, path)
		return Link{}, false
	}
	return entry.link, true
}

func (r *Resolver) remember(path string, link Link, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	r.mu.Lock()
	r.memo[path] = memoEntry{link: link, expires: r.now().Add(ttl)}
	r.mu.Unlock()
}

func (r *Resolver) warn(ctx context.Context, path, msg string, err error) {
	if r.logg == nil {
		return
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"document_path": path,
		"error":         err.Error(),
	})
	r.logg.Warn(ctx, msg)
}
