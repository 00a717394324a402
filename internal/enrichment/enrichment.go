// Package enrichment attaches fields from secondary tables onto a page of
// primary rows. Every step deduplicates its keys and issues one batched fetch;
// steps run concurrently and a failed step leaves its fields at their defaults.
package enrichment

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
)

// EventDegraded is the log event emitted when a step falls back to defaults.
const EventDegraded = "enrichment.degraded"

// Step enriches rows of type T from one secondary source.
type Step[T any] interface {
	Name() string
	fetch(ctx context.Context, rows []T) (func(rows []T), error)
}

type step[T any, K comparable, V any] struct {
	name   string
	key    func(row *T) (K, bool)
	load   func(ctx context.Context, keys []K) (map[K]V, error)
	attach func(row *T, value V)
}

// NewStep describes one enrichment: key extracts the foreign key of a row (ok
// false skips the row), load fetches all referenced values in a single call,
// and attach copies a found value onto the row.
func NewStep[T any, K comparable, V any](
	name string,
	key func(row *T) (K, bool),
	load func(ctx context.Context, keys []K) (map[K]V, error),
	attach func(row *T, value V),
) Step[T] {
	return &step[T, K, V]{name: name, key: key, load: load, attach: attach}
}

func (s *step[T, K, V]) Name() string { return s.name }

func (s *step[T, K, V]) fetch(ctx context.Context, rows []T) (func(rows []T), error) {
	keys := DistinctKeys(rows, s.key)
	if len(keys) == 0 {
		return func([]T) {}, nil
	}
	values, err := s.load(ctx, keys)
	if err != nil {
		return nil, err
	}
	return func(rows []T) {
		for i := range rows {
			k, ok := s.key(&rows[i])
			if !ok {
				continue
			}
			if v, found := values[k]; found {
				s.attach(&rows[i], v)
			}
		}
	}, nil
}

// DistinctKeys returns the unique keys of rows in first-seen order.
func DistinctKeys[T any, K comparable](rows []T, key func(row *T) (K, bool)) []K {
	seen := make(map[K]struct{}, len(rows))
	keys := make([]K, 0, len(rows))
	for i := range rows {
		k, ok := key(&rows[i])
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// Outcome reports which steps fell back to defaults.
type Outcome struct {
	Degraded    bool
	FailedSteps []string
}

// Runner carries the logging and metrics sinks for enrichment runs.
type Runner struct {
	logg    *logger.Logger
	metrics *metrics.DomainMetrics
}

// NewRunner builds a runner. Both sinks are optional.
func NewRunner(logg *logger.Logger, m *metrics.DomainMetrics) *Runner {
	return &Runner{logg: logg, metrics: m}
}

// Run executes every step against rows and returns once all of them finished.
// Fetches run concurrently; attaching happens afterwards on the caller's
// goroutine so steps never write to rows at the same time.
func Run[T any](ctx context.Context, r *Runner, rows []T, steps ...Step[T]) Outcome {
	if len(rows) == 0 || len(steps) == 0 {
		return Outcome{}
	}

	attachers := make([]func([]T), len(steps))
	failures := make([]error, len(steps))

	var g errgroup.Group
	for i, st := range steps {
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					failures[i] = fmt.Errorf("enrichment step %s panicked: %v", st.Name(), rec)
				}
			}()
			attach, fetchErr := st.fetch(ctx, rows)
			if fetchErr != nil {
				failures[i] = fetchErr
				return nil
			}
			attachers[i] = attach
			return nil
		})
	}
	_ = g.Wait()

	var out Outcome
	for i, st := range steps {
		if failures[i] != nil {
			out.Degraded = true
			out.FailedSteps = append(out.FailedSteps, st.Name())
			r.reportDegraded(ctx, st.Name(), failures[i])
			continue
		}
		attachers[i](rows)
	}
	return out
}

func (r *Runner) reportDegraded(ctx context.Context, name string, err error) {
	if r == nil {
		return
	}
	r.metrics.IncEnrichmentDegraded(name)
	if r.logg == nil {
		return
	}
	ctx = r.logg.WithEvent(ctx, EventDegraded)
	ctx = r.logg.WithFields(ctx, map[string]any{
		"step":  name,
		"error": err.Error(),
	})
	r.logg.Warn(ctx, "enrichment lookup failed; using defaults")
}
