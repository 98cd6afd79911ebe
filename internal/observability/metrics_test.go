package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_ObserveStageAndVerdict(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith("triage", reg, reg)

	m.ObserveStage("generating", "ok", 250*time.Millisecond)
	m.ObserveStage("generating", "failed", time.Second)
	m.ObserveStage("generating", "ok", 100*time.Millisecond)
	m.ObserveVerdict("fr", "EMERGENCY")

	body := scrape(t, m)
	require.Contains(t, body, `triage_pipeline_stage_total{outcome="ok",stage="generating"} 2`)
	require.Contains(t, body, `triage_pipeline_stage_total{outcome="failed",stage="generating"} 1`)
	require.Contains(t, body, `triage_pipeline_stage_latency_ms_count{stage="generating"} 3`)
	require.Contains(t, body, `triage_urgency_verdicts_total{language="fr",verdict="EMERGENCY"} 1`)
}

func TestNewMetrics_UsesIsolatedRegistry(t *testing.T) {
	a := NewMetrics("triage")
	b := NewMetrics("triage")
	a.ObserveVerdict("en", "ROUTINE")

	require.Contains(t, scrape(t, a), `triage_urgency_verdicts_total{language="en",verdict="ROUTINE"} 1`)
	require.NotContains(t, scrape(t, b), `verdict="ROUTINE"`)
	require.Contains(t, scrape(t, b), "go_goroutines")
}
