package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DFBlok/market-link-app/internal/api/middleware"
	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/DFBlok/market-link-app/internal/logger"
)

const captchaTTL = 10 * time.Minute

// captchaEngine runs CaptchaMiddleware behind a stand-in for the auth and request
// logging middleware, so the signed-in user id and the request logger are under test control.
func captchaEngine(t *testing.T, verifier *MockTurnstileVerifier, userID string) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := &config.Config{CaptchaTokenTTL: captchaTTL}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(logger.GinLoggerKey, zap.New(core))
		if userID != "" {
			c.Set(middleware.ContextKeyUserID, userID)
		}
		c.Next()
	})
	r.Use(middleware.CaptchaMiddleware(cfg, verifier))
	r.POST("/inquiries", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"human": c.GetBool(middleware.ContextKeyIsHumanVerified)})
	})
	return r, logs
}

func humanFlag(t *testing.T, body []byte) bool {
	t.Helper()
	var out struct {
		Human bool `json:"human"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Human
}

func TestCaptchaMiddleware(t *testing.T) {
	const (
		ip          = "41.0.0.7"
		fingerprint = "bfp-7"
		session     = "spa-7"
	)
	client := map[string]string{"X-BFP": fingerprint, "X-SPA": session}
	with := func(extra map[string]string) map[string]string {
		h := map[string]string{}
		for k, v := range client {
			h[k] = v
		}
		for k, v := range extra {
			h[k] = v
		}
		return h
	}

	tests := []struct {
		name      string
		userID    string
		headers   map[string]string
		setup     func(m *MockTurnstileVerifier)
		wantHuman bool
		wantToken string
		wantLog   string
	}{
		{
			name:    "anonymous client without captcha headers",
			headers: client,
		},
		{
			name:      "stored human token is honoured without a challenge",
			headers:   with(map[string]string{"X-C-T": "xct-ok"}),
			setup:     func(m *MockTurnstileVerifier) { m.On("ValidateHumanToken", "xct-ok", ip, fingerprint, session).Return(true) },
			wantHuman: true,
		},
		{
			name:    "stale human token falls back to the challenge",
			headers: with(map[string]string{"X-C-T": "xct-stale", "X-C-V": "challenge"}),
			setup: func(m *MockTurnstileVerifier) {
				m.On("ValidateHumanToken", "xct-stale", ip, fingerprint, session).Return(false)
				m.On("Verify", mock.Anything, "challenge", ip).Return(true, nil)
				m.On("GenerateHumanToken", "", ip, fingerprint, session, captchaTTL).Return("xct-fresh", nil)
			},
			wantHuman: true,
			wantToken: "xct-fresh",
		},
		{
			name:    "token issued to a signed-in supplier carries its id",
			userID:  "7KQ2M9X4TA",
			headers: with(map[string]string{"X-C-V": "challenge"}),
			setup: func(m *MockTurnstileVerifier) {
				m.On("Verify", mock.Anything, "challenge", ip).Return(true, nil)
				m.On("GenerateHumanToken", "7KQ2M9X4TA", ip, fingerprint, session, captchaTTL).Return("xct-user", nil)
			},
			wantHuman: true,
			wantToken: "xct-user",
		},
		{
			name:    "failed challenge",
			headers: with(map[string]string{"X-C-V": "bot"}),
			setup:   func(m *MockTurnstileVerifier) { m.On("Verify", mock.Anything, "bot", ip).Return(false, nil) },
		},
		{
			name:    "siteverify outage is logged and treated as not human",
			headers: with(map[string]string{"X-C-V": "challenge"}),
			setup: func(m *MockTurnstileVerifier) {
				m.On("Verify", mock.Anything, "challenge", ip).Return(false, errors.New("siteverify unreachable"))
			},
			wantLog: "Turnstile verification failed",
		},
		{
			name:    "verified client without a token when signing fails",
			headers: with(map[string]string{"X-C-V": "challenge"}),
			setup: func(m *MockTurnstileVerifier) {
				m.On("Verify", mock.Anything, "challenge", ip).Return(true, nil)
				m.On("GenerateHumanToken", "", ip, fingerprint, session, captchaTTL).Return("", errors.New("no key"))
			},
			wantHuman: true,
			wantLog:   "Failed to issue X-C-T token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := new(MockTurnstileVerifier)
			if tt.setup != nil {
				tt.setup(verifier)
			}
			router, logs := captchaEngine(t, verifier, tt.userID)

			w := doRequest(router, http.MethodPost, "/inquiries", ip+":443", tt.headers)

			require.Equal(t, http.StatusOK, w.Code, "captcha never blocks on its own")
			assert.Equal(t, tt.wantHuman, humanFlag(t, w.Body.Bytes()))
			assert.Equal(t, tt.wantToken, w.Header().Get("X-C-T"))
			if tt.wantLog != "" {
				assert.Equal(t, 1, logs.FilterMessage(tt.wantLog).Len())
			} else {
				assert.Zero(t, logs.Len())
			}
			verifier.AssertExpectations(t)
			if tt.headers["X-C-V"] == "" {
				verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCaptchaMiddleware_ChallengeLiftsSoftLimitOnLogin(t *testing.T) {
	cfg := &config.Config{
		CaptchaTokenTTL:         captchaTTL,
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 10,
		RateLimitSoftBucketSize: 10,
	}
	routes := map[string]middleware.RouteLimits{
		"POST /auth/login": {Soft: &middleware.Limit{RefillRate: 1, BucketSize: 1}},
	}
	verifier := new(MockTurnstileVerifier)
	verifier.On("Verify", mock.Anything, "challenge", "41.0.0.8").Return(true, nil)
	verifier.On("GenerateHumanToken", "", "41.0.0.8", "", "", captchaTTL).Return("xct-login", nil)
	router := setupTestEngine(t, cfg, routes, verifier)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/auth/login", "41.0.0.8:443", nil).Code)
	assert.Equal(t, http.StatusTeapot, doRequest(router, http.MethodPost, "/auth/login", "41.0.0.8:443", nil).Code)

	w := doRequest(router, http.MethodPost, "/auth/login", "41.0.0.8:443", map[string]string{"X-C-V": "challenge"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "xct-login", w.Header().Get("X-C-T"))

	// The default soft bucket still applies elsewhere.
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/test", "41.0.0.8:443", nil).Code)
	verifier.AssertExpectations(t)
}
