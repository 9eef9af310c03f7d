package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DFBlok/market-link-app/internal/api/middleware"
	"github.com/DFBlok/market-link-app/internal/captcha"
	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockTurnstileVerifier implements captcha.ITurnstileVerifier
type MockTurnstileVerifier struct {
	mock.Mock
}

func (m *MockTurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	args := m.Called(ctx, token, remoteIP)
	return args.Bool(0), args.Error(1)
}
func (m *MockTurnstileVerifier) GenerateHumanToken(userID, ip, fingerprint, spaSession string, ttl time.Duration) (string, error) {
	args := m.Called(userID, ip, fingerprint, spaSession, ttl)
	return args.String(0), args.Error(1)
}
func (m *MockTurnstileVerifier) ValidateHumanToken(tokenString, ip, fingerprint, spaSession string) bool {
	args := m.Called(tokenString, ip, fingerprint, spaSession)
	return args.Bool(0)
}

func setupTestEngine(t *testing.T, cfg *config.Config, routes map[string]middleware.RouteLimits, verifier captcha.ITurnstileVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := gin.New()
	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg, routes)
	r.Use(middleware.CaptchaMiddleware(cfg, verifier))
	r.Use(rateLimiter.Limit())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.POST("/auth/login", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}

func doRequest(router *gin.Engine, method, path, addr string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	req.RemoteAddr = addr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiterMiddleware_HardLimit(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 1, // 1 token per second
		RateLimitHardBucketSize: 1,
		RateLimitSoftRefillRate: 10,
		RateLimitSoftBucketSize: 10,
	}
	mockVerifier := new(MockTurnstileVerifier)
	router := setupTestEngine(t, cfg, nil, mockVerifier)

	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "1.2.3.4:12345", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "GET", "/test", "1.2.3.4:12345", nil).Code)

	// Another client has its own bucket.
	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "1.2.3.5:12345", nil).Code)
	mockVerifier.AssertNotCalled(t, "Verify")
}

func TestRateLimiterMiddleware_SoftLimit_CaptchaRequired(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	mockVerifier := new(MockTurnstileVerifier)
	router := setupTestEngine(t, cfg, nil, mockVerifier)

	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "5.6.7.8:12345", nil).Code)

	w2 := doRequest(router, "GET", "/test", "5.6.7.8:12345", nil)
	assert.Equal(t, http.StatusTeapot, w2.Code)
	var respBody map[string]interface{}
	err := json.Unmarshal(w2.Body.Bytes(), &respBody)
	assert.NoError(t, err)
	assert.Contains(t, respBody["error"], "Captcha validation required")
}

func TestRateLimiterMiddleware_SoftLimit_BypassWithCaptchaHeader(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	mockVerifier := new(MockTurnstileVerifier)
	mockVerifier.On("ValidateHumanToken", "valid-turnstile-token", "9.1.2.3", "", "").Return(true)
	router := setupTestEngine(t, cfg, nil, mockVerifier)

	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "9.1.2.3:12345", nil).Code)

	w2 := doRequest(router, "GET", "/test", "9.1.2.3:12345", map[string]string{"X-C-T": "valid-turnstile-token"})
	assert.Equal(t, http.StatusOK, w2.Code)
	mockVerifier.AssertExpectations(t)
	mockVerifier.AssertNotCalled(t, "Verify")
}

func TestRateLimiterMiddleware_RouteOverride(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 10,
		RateLimitSoftBucketSize: 10,
	}
	routes := map[string]middleware.RouteLimits{
		"POST /auth/login": {Hard: &middleware.Limit{RefillRate: 1, BucketSize: 1}},
	}
	router := setupTestEngine(t, cfg, routes, new(MockTurnstileVerifier))

	assert.Equal(t, http.StatusOK, doRequest(router, "POST", "/auth/login", "7.7.7.7:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "POST", "/auth/login", "7.7.7.7:1", nil).Code)

	// Default limits still apply elsewhere.
	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "7.7.7.7:1", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/test", "7.7.7.7:1", nil).Code)
}
