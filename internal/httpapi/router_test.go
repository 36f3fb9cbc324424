package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/forkadarshp/metrix/internal/adapter/mockvendor"
	"github.com/forkadarshp/metrix/internal/aggregation"
	"github.com/forkadarshp/metrix/internal/artifact"
	"github.com/forkadarshp/metrix/internal/config"
	"github.com/forkadarshp/metrix/internal/core"
	"github.com/forkadarshp/metrix/internal/domain"
	"github.com/forkadarshp/metrix/internal/engine"
	"github.com/forkadarshp/metrix/internal/httpapi"
	"github.com/forkadarshp/metrix/internal/observability"
	"github.com/forkadarshp/metrix/internal/repository"

	"github.com/book-expert/logger"
)

func newTestServer(t *testing.T) (*httptest.Server, *repository.Repository) {
	t.Helper()

	repo, err := repository.Open(":memory:")
	require.NoError(t, err)

	store, err := artifact.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	registry := core.NewRegistry()
	mock := mockvendor.New()
	registry.RegisterSynthesizer("vendorA", mock, mock)
	registry.RegisterTranscriber("vendorA", mock, mock)

	log, err := logger.New(t.TempDir(), "httpapi-test.log")
	require.NoError(t, err)

	events := engine.NewEventPublisher(config.EventsConfig{Enabled: false}, log)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	eng := engine.New(registry, repo, store, events, metrics, log, 4, "vendorA", "vendorA")
	agg := aggregation.New(repo, 7)

	handler := httpapi.NewRouter(eng, repo, store, agg)

	return httptest.NewServer(handler), repo
}

func TestCreateRun_AcceptsDirectInputsAndReturns202(t *testing.T) {
	t.Parallel()

	server, repo := newTestServer(t)
	defer server.Close()

	body, err := json.Marshal(map[string]any{
		"mode":    "isolated",
		"vendors": []string{"vendorA"},
		"inputs":  []string{"hello there"},
		"service": "tts",
	})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/v1/runs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out struct {
		RunID             string `json:"run_id"`
		AcceptedItemCount int    `json:"accepted_items_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.RunID)
	require.Equal(t, 1, out.AcceptedItemCount)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, _, err := repo.GetRun(context.Background(), out.RunID)
		require.NoError(t, err)

		if run.Status == domain.StatusCompleted {
			break
		}

		time.Sleep(5 * time.Millisecond)
	}
}

func TestCreateRun_AcceptsBatchInputAndReturns202(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	defer server.Close()

	body, err := json.Marshal(map[string]any{
		"mode":         "isolated",
		"vendors":      []string{"vendorA"},
		"batch_input":  "{\"prompt\": \"hello from batch\"}\n{\"sentence\": \"second line\"}\n",
		"batch_format": "jsonl",
		"service":      "tts",
	})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/v1/runs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out struct {
		AcceptedItemCount int `json:"accepted_items_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, 2, out.AcceptedItemCount)
}

func TestCreateRun_RejectsMalformedMode(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	defer server.Close()

	body, err := json.Marshal(map[string]any{
		"mode":    "bogus",
		"vendors": []string{"vendorA"},
		"inputs":  []string{"hello"},
		"service": "tts",
	})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/v1/runs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRun_RejectsBothInputsAndScriptID(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	defer server.Close()

	body, err := json.Marshal(map[string]any{
		"mode":      "isolated",
		"vendors":   []string{"vendorA"},
		"inputs":    []string{"hello"},
		"script_id": "script-1",
		"service":   "tts",
	})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/v1/runs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRun_NotFoundReturns404(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/runs/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRuns_ReturnsEmptyArrayInitially(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/runs")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Empty(t, runs)
}

func TestDashboardStats_ReturnsZeroValuesWithNoRuns(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/dashboard/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		TotalRuns int `json:"total_runs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, 0, out.TotalRuns)
}

func TestGetArtifact_MalformedFilenameReturns400(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/artifacts/audio/not-a-valid-name")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListScripts_ReturnsEmptyArrayInitially(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/scripts")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var scripts []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scripts))
	require.Empty(t, scripts)
}
