package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GapSentinel/internal/guard"
	"GapSentinel/internal/metrics"
	"GapSentinel/internal/model"
	"GapSentinel/internal/risk"
	"GapSentinel/internal/state"
)

func newTestServer(t *testing.T) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	store := state.NewStore(0)
	store.RecordHeartbeat("c1", time.Now())
	store.SetScanner([]model.Candidate{{Symbol: "GAPR", RelativeVolume: 4}}, time.Now())

	pending := guard.NewPendingOrders(guard.DefaultTTL)
	pending.Reserve("GAPR")

	ledger := &risk.MemoryLedger{}
	require.NoError(t, ledger.SetDailyLoss(42))

	m := metrics.New()
	ts := httptest.NewServer(New(":0", store, pending, ledger, m).Router())
	t.Cleanup(ts.Close)
	return ts, m
}

func TestServer_State(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body StateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 42.0, body.DailyLoss)
	assert.Contains(t, body.Pending, "GAPR")
	require.Len(t, body.Scanner, 1)
	assert.Equal(t, "GAPR", body.Scanner[0].Symbol)
	assert.Equal(t, 1, body.Stats.Cycles)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	ts, m := newTestServer(t)
	m.CountOrder(metrics.ResultSubmitted)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Post(ts.URL+"/api/state", "application/json", nil)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}
