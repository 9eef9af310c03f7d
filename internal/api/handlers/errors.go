package handlers

import (
	"net/http"

	"github.com/DFBlok/market-link-app/internal/api/middleware"
	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/services"
	"github.com/DFBlok/market-link-app/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps a service error kind to its HTTP status.
func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindConflict, services.KindInvalidStateTransition:
		return http.StatusConflict
	case services.KindNotFoundOrUnauthorized:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": message}. Internal errors are logged
// with their cause and replaced by a generic message.
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	if kind == services.KindInternal {
		_ = c.Error(err)
		logger.FromGin(c).Error("Request failed", zap.Error(err))
	}
	c.JSON(statusFor(kind), gin.H{"error": services.PublicMessage(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// pathID parses the :id route parameter. An id that cannot exist is reported as
// not found, like any other id the caller cannot see.
func pathID(c *gin.Context, what string) (utils.SixID, bool) {
	id, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found or unauthorized"})
		return utils.SixID{}, false
	}
	return id, true
}

// mustCaller returns the authenticated caller. Routes using it sit behind AuthMiddleware.
func mustCaller(c *gin.Context) (models.Caller, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return models.Caller{}, false
	}
	return caller, true
}

// callerPtr returns the caller when one is authenticated, nil otherwise.
func callerPtr(c *gin.Context) *models.Caller {
	if caller, ok := middleware.CallerFrom(c); ok {
		return &caller
	}
	return nil
}
