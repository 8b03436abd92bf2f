package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun("completed", 20*time.Millisecond, 3, 1)
	m.ObserveRun("failed", time.Millisecond, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.products.WithLabelValues("projected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.products.WithLabelValues("skipped")))
}

func TestObserveCache(t *testing.T) {
	m := New()
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping/:id", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/7", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/ping/:id", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
