package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinMiddleware_UsesRouteTemplate(t *testing.T) {
	m := New()
	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/v1/catalog/products/:slug", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, slug := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products/"+slug, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/catalog/products/:slug", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "storefront_http_requests_total"))
}

func TestBusinessCounters(t *testing.T) {
	m := New()

	m.RecordCheckout(CheckoutPlaced)
	m.RecordCheckout(CheckoutPlaced)
	m.RecordCheckout(CheckoutOutOfStock)
	m.RecordOrderPlaced("USD", 42.5)
	m.RecordOrderTransition("paid")
	m.RecordLogin("locked")
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	m.ObserveEventHandler("OrderPlaced", time.Millisecond, nil)
	m.RecordJobRun("expire_pending_orders", time.Second, errors.New("db down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkouts.WithLabelValues(CheckoutPlaced)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues(CheckoutOutOfStock)))
	assert.Equal(t, 42.5, testutil.ToFloat64(m.orderRevenue.WithLabelValues("USD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orderStatus.WithLabelValues("paid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("locked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("expire_pending_orders", "false")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.eventHandlers))
}
