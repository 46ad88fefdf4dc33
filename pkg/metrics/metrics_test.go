package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersLiveOnPrivateRegistry(t *testing.T) {
	// Two instances must not collide on registration.
	m1 := New()
	m2 := New()

	m1.RunsStarted.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m1.RunsStarted))
	assert.Equal(t, 0.0, testutil.ToFloat64(m2.RunsStarted))
}

func TestRunMetrics(t *testing.T) {
	m := New()

	m.RunsStarted.Inc()
	m.RunsInProgress.Inc()
	m.FindingsTotal.WithLabelValues("critical").Inc()
	m.FindingsTotal.WithLabelValues("critical").Inc()
	m.RunsFinished.WithLabelValues("completed").Inc()
	m.RunsInProgress.Dec()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsStarted))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunsInProgress))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FindingsTotal.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsFinished.WithLabelValues("completed")))
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/targets", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/targets", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/targets", "200"))
	assert.Equal(t, 1.0, count)
}

func TestMiddlewareLabelsUnmatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	assert.Equal(t, 1.0, count)
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	m := New()
	m.RunsStarted.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "assessment_runs_started_total 1")
}
