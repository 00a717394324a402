package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
	fn   func(ctx context.Context) error
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(ctx context.Context) error {
	c.runs++
	if c.fn != nil {
		return c.fn(ctx)
	}
	return c.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}})
}

func newTestService(t *testing.T, lock Lock, params ServiceParams, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	params.Logger = quietLogger()
	params.Registry = registry
	params.Lock = lock
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestRunOnceRunsEveryJobAndJoinsFailures(t *testing.T) {
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	after := &countingJob{name: "after"}
	lock := &fakeLock{}
	svc := newTestService(t, lock, ServiceParams{}, ok, bad, after)

	err := svc.RunOnce(context.Background())
	require.ErrorContains(t, err, "bad: boom")
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, bad.runs)
	require.Equal(t, 1, after.runs)
	require.Equal(t, 1, lock.releases)
	require.False(t, lock.held)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "reconcile"}
	reg := prometheus.NewRegistry()
	svc := newTestService(t, &fakeLock{held: true}, ServiceParams{Metrics: metrics.NewCronJobMetrics(reg)}, job)

	require.NoError(t, svc.RunOnce(context.Background()))
	require.Zero(t, job.runs)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var skipped float64
	for _, mf := range mfs {
		if mf.GetName() == "bazaar_cron_cycles_skipped_total" {
			skipped = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	require.Equal(t, float64(1), skipped)
}

func TestJobTimeoutCancelsRun(t *testing.T) {
	slow := &countingJob{name: "slow", fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	svc := newTestService(t, &fakeLock{}, ServiceParams{JobTimeout: 10 * time.Millisecond}, slow)

	err := svc.RunOnce(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &countingJob{name: "once", fn: func(context.Context) error {
		cancel()
		return nil
	}}
	svc := newTestService(t, &fakeLock{}, ServiceParams{Interval: time.Hour}, job)

	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
	require.Equal(t, 1, job.runs)
}

func TestNewServiceValidates(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)
	_, err = NewService(ServiceParams{Lock: &fakeLock{}, Registry: registry})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: quietLogger(), Registry: registry})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: quietLogger(), Lock: &fakeLock{}})
	require.Error(t, err)
}
