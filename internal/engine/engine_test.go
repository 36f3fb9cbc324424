package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/forkadarshp/metrix/internal/adapter/mockvendor"
	"github.com/forkadarshp/metrix/internal/artifact"
	"github.com/forkadarshp/metrix/internal/config"
	"github.com/forkadarshp/metrix/internal/core"
	"github.com/forkadarshp/metrix/internal/domain"
	"github.com/forkadarshp/metrix/internal/engine"
	"github.com/forkadarshp/metrix/internal/observability"
	"github.com/forkadarshp/metrix/internal/repository"
)

func newTestEngine(t *testing.T) (*engine.Engine, *repository.Repository) {
	t.Helper()

	repo, err := repository.Open(":memory:")
	require.NoError(t, err)

	store, err := artifact.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	registry := core.NewRegistry()
	mock := mockvendor.New()
	registry.RegisterSynthesizer("vendorA", mock, mock)
	registry.RegisterTranscriber("vendorA", mock, mock)
	registry.RegisterSynthesizer("vendorB", mock, mock)
	registry.RegisterTranscriber("vendorB", mock, mock)

	events := engine.NewEventPublisher(config.EventsConfig{Enabled: false}, testLogger(t))
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	e := engine.New(registry, repo, store, events, metrics, testLogger(t), 4, "vendorA", "vendorB")

	return e, repo
}

func waitForTerminal(t *testing.T, repo *repository.Repository, runID string) domain.Run {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		run, _, err := repo.GetRun(context.Background(), runID)
		require.NoError(t, err)

		if run.Status == domain.StatusCompleted || run.Status == domain.StatusFailed || run.Status == domain.StatusPartial {
			return run
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("run %s never reached a terminal status", runID)

	return domain.Run{}
}

func TestEngine_IsolatedTTS_EndToEnd(t *testing.T) {
	t.Parallel()

	e, repo := newTestEngine(t)
	ctx := context.Background()

	runID, accepted, err := e.CreateRun(ctx, domain.ModeIsolated, []string{"vendorA"}, []string{"The quick brown fox jumps over the lazy dog"}, domain.RunConfig{
		Service: domain.ServiceTTS,
	})
	require.NoError(t, err)
	require.Equal(t, 1, accepted)

	run := waitForTerminal(t, repo, runID)
	require.Equal(t, domain.StatusCompleted, run.Status)

	items, err := repo.ListItemsByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	require.Equal(t, domain.StatusCompleted, item.Status)
	require.NotEmpty(t, item.AudioLocator)
	require.NotEmpty(t, item.TranscriptLoc)

	metricsByName := metricsMap(t, repo, item.ID)
	require.Greater(t, metricsByName[domain.MetricTTSLatency], 0.0)
	require.Greater(t, metricsByName[domain.MetricAudioDuration], 0.0)
	require.InDelta(t, metricsByName[domain.MetricTTSLatency]/metricsByName[domain.MetricAudioDuration], metricsByName[domain.MetricTTSRTF], 1e-6)
	require.GreaterOrEqual(t, metricsByName[domain.MetricWER], 0.0)
	require.InDelta(t, 100.0, metricsByName[domain.MetricAccuracy], 0.1)
	require.GreaterOrEqual(t, metricsByName[domain.MetricConfidence], 0.0)
	require.LessOrEqual(t, metricsByName[domain.MetricConfidence], 1.0)
}

func TestEngine_IsolatedSTT_EndToEnd(t *testing.T) {
	t.Parallel()

	e, repo := newTestEngine(t)
	ctx := context.Background()

	runID, accepted, err := e.CreateRun(ctx, domain.ModeIsolated, []string{"vendorB"}, []string{"Hello world"}, domain.RunConfig{
		Service: domain.ServiceSTT,
	})
	require.NoError(t, err)
	require.Equal(t, 1, accepted)

	run := waitForTerminal(t, repo, runID)
	require.Equal(t, domain.StatusCompleted, run.Status)

	items, err := repo.ListItemsByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotEmpty(t, items[0].AudioLocator)
	require.NotEmpty(t, items[0].TranscriptLoc)

	metricsByName := metricsMap(t, repo, items[0].ID)
	require.Greater(t, metricsByName[domain.MetricSTTLatency], 0.0)
	require.InDelta(t, 0.0, metricsByName[domain.MetricWER], 1e-9)
}

func TestEngine_Chained_EndToEnd(t *testing.T) {
	t.Parallel()

	e, repo := newTestEngine(t)
	ctx := context.Background()

	runID, accepted, err := e.CreateRun(ctx, domain.ModeChained, []string{"vendorA", "vendorB"}, []string{"Hello world"}, domain.RunConfig{
		ChainTTSVendor: "vendorA",
		ChainSTTVendor: "vendorB",
	})
	require.NoError(t, err)
	require.Equal(t, 1, accepted)

	run := waitForTerminal(t, repo, runID)
	require.Equal(t, domain.StatusCompleted, run.Status)

	items, err := repo.ListItemsByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "vendorA→vendorB", items[0].VendorLabel)

	metricsByName := metricsMap(t, repo, items[0].ID)
	require.InDelta(t, metricsByName[domain.MetricTTSLatency]+metricsByName[domain.MetricSTTLatency], metricsByName[domain.MetricE2ELatency], 0.001)
}

func TestEngine_CreateRun_ItemCountLaws(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, isolatedCount, err := e.CreateRun(ctx, domain.ModeIsolated, []string{"vendorA", "vendorB"}, []string{"a", "b", "c"}, domain.RunConfig{Service: domain.ServiceTTS})
	require.NoError(t, err)
	require.Equal(t, 6, isolatedCount)

	_, chainedCount, err := e.CreateRun(ctx, domain.ModeChained, []string{"vendorA"}, []string{"a", "b", "c"}, domain.RunConfig{
		ChainTTSVendor: "vendorA",
		ChainSTTVendor: "vendorB",
	})
	require.NoError(t, err)
	require.Equal(t, 3, chainedCount)
}

func TestEngine_CreateRun_ValidationErrors(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.CreateRun(ctx, domain.RunMode("bogus"), []string{"vendorA"}, []string{"a"}, domain.RunConfig{Service: domain.ServiceTTS})
	require.Error(t, err)

	_, _, err = e.CreateRun(ctx, domain.ModeIsolated, nil, []string{"a"}, domain.RunConfig{Service: domain.ServiceTTS})
	require.Error(t, err)

	_, _, err = e.CreateRun(ctx, domain.ModeIsolated, []string{"vendorA"}, nil, domain.RunConfig{Service: domain.ServiceTTS})
	require.Error(t, err)

	_, _, err = e.CreateRun(ctx, domain.ModeIsolated, []string{"does-not-exist"}, []string{"a"}, domain.RunConfig{Service: domain.ServiceTTS})
	require.Error(t, err)

	_, _, err = e.CreateRun(ctx, domain.ModeIsolated, []string{"vendorA"}, []string{"a"}, domain.RunConfig{})
	require.Error(t, err)

	_, _, err = e.CreateRun(ctx, domain.ModeChained, []string{"vendorA"}, []string{"a"}, domain.RunConfig{})
	require.Error(t, err)
}

func TestEngine_VendorFailure_MarksItemFailedRunPartial(t *testing.T) {
	t.Parallel()

	repo, err := repository.Open(":memory:")
	require.NoError(t, err)

	store, err := artifact.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	registry := core.NewRegistry()
	mock := mockvendor.New()
	registry.RegisterSynthesizer("vendorA", mock, mock)
	registry.RegisterTranscriber("vendorA", mock, mock)
	registry.RegisterSynthesizer("vendorB", mock, mock)
	registry.RegisterTranscriber("vendorB", mock, mock)
	registry.RegisterSynthesizer("broken", &alwaysFailSynth{}, &alwaysFailSynth{})

	events := engine.NewEventPublisher(config.EventsConfig{Enabled: false}, testLogger(t))
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	e := engine.New(registry, repo, store, events, metrics, testLogger(t), 4, "vendorA", "vendorB")

	ctx := context.Background()

	runID, accepted, err := e.CreateRun(ctx, domain.ModeIsolated, []string{"vendorA", "broken"}, []string{"hello"}, domain.RunConfig{Service: domain.ServiceTTS})
	require.NoError(t, err)
	require.Equal(t, 2, accepted)

	run := waitForTerminal(t, repo, runID)
	require.Equal(t, domain.StatusPartial, run.Status)

	items, err := repo.ListItemsByRun(ctx, runID)
	require.NoError(t, err)

	var sawFailed, sawCompleted bool

	for _, it := range items {
		switch it.Status {
		case domain.StatusFailed:
			sawFailed = true
			require.NotEmpty(t, it.FailureReason)
		case domain.StatusCompleted:
			sawCompleted = true
		}
	}

	require.True(t, sawFailed)
	require.True(t, sawCompleted)
}

func metricsMap(t *testing.T, repo *repository.Repository, itemID string) map[domain.MetricName]float64 {
	t.Helper()

	ms, err := repo.ItemMetrics(context.Background(), itemID)
	require.NoError(t, err)

	out := make(map[domain.MetricName]float64, len(ms))
	for _, m := range ms {
		out[m.Name] = m.Value
	}

	return out
}

// alwaysFailSynth simulates a vendor whose Synthesize call always fails
// with a non-retryable VendorError, exercising the engine's
// per-item-never-aborts-the-run behavior.
type alwaysFailSynth struct{}

func (a *alwaysFailSynth) VendorID() string { return "broken" }

func (a *alwaysFailSynth) Synthesize(_ context.Context, _ core.SynthesizeRequest) (core.SynthesizeResult, error) {
	return core.SynthesizeResult{}, &core.VendorError{
		Vendor:     "broken",
		Capability: core.CapabilitySynthesize,
		Status:     401,
		Retryable:  false,
		Err:        errUnauthorized,
	}
}
