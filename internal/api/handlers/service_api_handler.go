package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DFBlok/market-link-app/internal/email"
	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// JsonApiRequest defines the expected structure for service API requests.
type JsonApiRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// JsonApiResponse defines the structure for service API responses.
type JsonApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ApiError is a method failure with the status it is reported with.
type ApiError struct {
	Status  int
	Message string
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(status int, message string) *ApiError {
	return &ApiError{Status: status, Message: message}
}

// apiMethodFunc defines the signature for service API methods.
type apiMethodFunc func(c *gin.Context, args json.RawMessage) (interface{}, *ApiError)

// MockEmailStore is the part of the redis client getTestEmail reads through.
type MockEmailStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ServiceApiHandler serves the internal JSON API used by operators and
// integration tests. It listens on its own port and is never exposed publicly.
type ServiceApiHandler struct {
	mockEmails   MockEmailStore
	shutdownChan chan<- struct{}
	pollInterval time.Duration
	pollAttempts int
	methods      map[string]apiMethodFunc
}

// NewServiceApiHandler creates the handler. mockEmails may be nil when redis is disabled.
func NewServiceApiHandler(mockEmails MockEmailStore, shutdownChan chan<- struct{}) *ServiceApiHandler {
	h := &ServiceApiHandler{
		mockEmails:   mockEmails,
		shutdownChan: shutdownChan,
		pollInterval: 200 * time.Millisecond,
		pollAttempts: 10,
	}
	h.methods = map[string]apiMethodFunc{
		"shutdown":     h.shutdown,
		"getTestEmail": h.getTestEmail,
	}
	return h
}

// HandleRequest is the entry point for POST /api
func (h *ServiceApiHandler) HandleRequest(c *gin.Context) {
	var req JsonApiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, JsonApiResponse{Error: "Invalid request format"})
		return
	}

	handlerFunc, ok := h.methods[req.Method]
	if !ok {
		c.JSON(http.StatusNotFound, JsonApiResponse{Error: fmt.Sprintf("Unknown service method: %s", req.Method)})
		return
	}

	result, apiErr := handlerFunc(c, req.Arguments)
	if apiErr != nil {
		c.JSON(apiErr.Status, JsonApiResponse{Error: apiErr.Message})
		return
	}
	c.JSON(http.StatusOK, JsonApiResponse{Success: true, Data: result})
}

func (h *ServiceApiHandler) shutdown(c *gin.Context, _ json.RawMessage) (interface{}, *ApiError) {
	log := logger.FromGin(c)
	log.Info("Received shutdown command via service API")
	select {
	case h.shutdownChan <- struct{}{}:
	default:
		log.Warn("Shutdown already signaled")
	}
	return "Shutdown initiated", nil
}

// getTestEmail takes [templateId, email] and returns the captured mock email,
// polling briefly since delivery is asynchronous. The capture is consumed.
func (h *ServiceApiHandler) getTestEmail(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	if h.mockEmails == nil {
		return nil, NewApiError(http.StatusServiceUnavailable, "Mock email capture is disabled")
	}
	var params []string
	if err := json.Unmarshal(args, &params); err != nil || len(params) != 2 {
		return nil, NewApiError(http.StatusBadRequest, "Invalid arguments: expected JSON array [templateId, email]")
	}
	key := email.MockEmailKey(params[1], params[0])

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	for i := 0; i < h.pollAttempts; i++ {
		raw, err := h.mockEmails.Get(ctx, key).Result()
		if err == nil {
			h.mockEmails.Del(ctx, key)
			var doc email.MockEmail
			if err := json.Unmarshal([]byte(raw), &doc); err != nil {
				logger.FromGin(c).Error("Stored mock email is not valid JSON", zap.String("key", key), zap.Error(err))
				return nil, NewApiError(http.StatusInternalServerError, "Failed to parse stored email data")
			}
			return doc, nil
		}
		if !errors.Is(err, redis.Nil) {
			logger.FromGin(c).Error("Mock email lookup failed", zap.String("key", key), zap.Error(err))
			return nil, NewApiError(http.StatusInternalServerError, "Redis error")
		}
		select {
		case <-ctx.Done():
			i = h.pollAttempts
		case <-time.After(h.pollInterval):
		}
	}
	return nil, NewApiError(http.StatusNotFound, fmt.Sprintf("Test email not found for key %s", key))
}
