package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rt0111/onayformukontrol/internal/jobs"
	"github.com/rt0111/onayformukontrol/internal/logging"
	"github.com/rt0111/onayformukontrol/internal/metrics"
	"github.com/rt0111/onayformukontrol/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestRunnerCompletesJobs(t *testing.T) {
	ctx := context.Background()
	store := jobs.NewMemoryStore(time.Minute)
	m := metrics.New()
	inFlight := testutil.ToFloat64(m.JobsInFlight)

	analyze := func(_ context.Context, name string, data []byte) (*models.AnalysisResult, error) {
		switch string(data) {
		case "fail":
			return nil, errors.New("decode failed")
		case "panic":
			panic("boom")
		}
		return &models.AnalysisResult{Source: models.Source{Name: name}}, nil
	}

	logger := logging.NewTestLogger()
	r := jobs.NewRunner(store, analyze, 2, 10, logger.Logger, m)
	r.Start(ctx)

	ok, err := r.Submit(ctx, "ok.pdf", []byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusQueued, ok.Status)

	failed, err := r.Submit(ctx, "fail.pdf", []byte("fail"))
	require.NoError(t, err)
	panicked, err := r.Submit(ctx, "panic.pdf", []byte("panic"))
	require.NoError(t, err)

	r.Stop()

	got, err := store.Get(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusSucceeded, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "ok.pdf", got.Result.Source.Name)

	got, err = store.Get(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Equal(t, "decode failed", got.Error)

	got, err = store.Get(ctx, panicked.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "panicked")

	assert.Equal(t, inFlight, testutil.ToFloat64(m.JobsInFlight))
	logger.AssertLogged(t, zapcore.InfoLevel, "Job succeeded")
	logger.AssertLogged(t, zapcore.WarnLevel, "Job failed")
}

func TestRunnerRejectsWhenQueueIsFull(t *testing.T) {
	ctx := context.Background()
	store := jobs.NewMemoryStore(time.Minute)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	analyze := func(context.Context, string, []byte) (*models.AnalysisResult, error) {
		started <- struct{}{}
		<-release
		return &models.AnalysisResult{}, nil
	}

	r := jobs.NewRunner(store, analyze, 1, 1, nil, nil)
	r.Start(ctx)

	_, err := r.Submit(ctx, "a.pdf", nil)
	require.NoError(t, err)
	<-started

	queued, err := r.Submit(ctx, "b.pdf", nil)
	require.NoError(t, err)

	_, err = r.Submit(ctx, "c.pdf", nil)
	assert.True(t, errors.Is(err, jobs.ErrQueueFull))

	close(release)
	<-started
	r.Stop()

	got, err := store.Get(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusSucceeded, got.Status)
}

func TestRunnerRejectsAfterStop(t *testing.T) {
	r := jobs.NewRunner(jobs.NewMemoryStore(0), func(context.Context, string, []byte) (*models.AnalysisResult, error) {
		return nil, nil
	}, 1, 1, nil, nil)
	r.Start(context.Background())
	r.Stop()
	r.Stop()

	_, err := r.Submit(context.Background(), "late.pdf", nil)
	assert.True(t, errors.Is(err, jobs.ErrStopped))
}
