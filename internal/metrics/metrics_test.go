package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/resources/person/{accountId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/resources/person/{accountId}", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resources/person/jdoe", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/resources/person/{accountId}", "418"))
	assert.Equal(t, before+1, after)
}

func TestRecordActionAndQueue(t *testing.T) {
	before := testutil.ToFloat64(actionExecutions.WithLabelValues("getPerson", "ok"))
	RecordAction("getPerson", "ok", 3*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(actionExecutions.WithLabelValues("getPerson", "ok")))

	SetQueueDepth(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(queueDepth))

	RecordDropped("persistUsageMetric")
	assert.GreaterOrEqual(t, testutil.ToFloat64(queueDropped.WithLabelValues("persistUsageMetric")), 1.0)
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordJobRun("generateDailyUsageSummary", true)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "eureka_scheduler_job_runs_total"))
}

func TestCanonicalPath(t *testing.T) {
	assert.Equal(t, "/", canonicalPath("/"))
	assert.Equal(t, "/api/actions", canonicalPath("/api/actions/getPerson"))
	assert.Equal(t, "/healthz", canonicalPath("/healthz"))
}
