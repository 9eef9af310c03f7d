package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_CountsByRouteAndStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewHTTPMetrics("test-svc")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/things/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	before := testutil.ToFloat64(RequestCounter.WithLabelValues("test-svc", "GET", "/things/:id", "404"))
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/abc", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	after := testutil.ToFloat64(RequestCounter.WithLabelValues("test-svc", "GET", "/things/:id", "404"))
	assert.Equal(t, before+2, after)
	assert.GreaterOrEqual(t, testutil.ToFloat64(StatusCodeCategoryCounter.WithLabelValues("test-svc", "4xx", "GET", "/things/:id")), 2.0)
}

func TestRecordEvent(t *testing.T) {
	Register()
	before := testutil.ToFloat64(DomainEventCounter.WithLabelValues(EventOrderCreated))
	RecordEvent(EventOrderCreated)
	assert.Equal(t, before+1, testutil.ToFloat64(DomainEventCounter.WithLabelValues(EventOrderCreated)))
}

func TestStatusCategory(t *testing.T) {
	assert.Equal(t, "2xx", statusCategory(201))
	assert.Equal(t, "4xx", statusCategory(409))
	assert.Equal(t, "5xx", statusCategory(500))
	assert.Equal(t, "", statusCategory(302))
}
