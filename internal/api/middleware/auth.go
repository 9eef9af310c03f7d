package middleware

import (
	"net/http"
	"strings"

	"github.com/DFBlok/market-link-app/internal/auth"
	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ContextKeyUserID holds the key for user ID in Gin context.
	ContextKeyUserID = "userID"
	// ContextKeyUserType holds the key for the user type (manufacturer/supplier) in Gin context.
	ContextKeyUserType = "userType"
	// ContextKeyIsAdmin holds the key for admin status in Gin context.
	ContextKeyIsAdmin = "isAdmin"
)

// bearerClaims extracts and validates the bearer token. present is false when no
// Authorization header is present; errMsg is set when one is present but invalid.
func bearerClaims(c *gin.Context, jwtSecret string) (claims *auth.Claims, present bool, errMsg string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false, ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, true, "Authorization header format must be Bearer {token}"
	}

	claims, err := auth.ValidateJWT(parts[1], jwtSecret)
	if err != nil {
		logger.FromGin(c).Debug("Rejected bearer token", zap.Error(err))
		return nil, true, "Invalid or expired token"
	}
	if _, err := utils.ParseSixID(claims.UserID); err != nil {
		return nil, true, "Invalid or expired token"
	}
	return claims, true, ""
}

func setCaller(c *gin.Context, claims *auth.Claims) {
	// Set user info in context for handlers to use
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyUserType, claims.UserType)
	c.Set(ContextKeyIsAdmin, claims.IsAdmin)
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, present, errMsg := bearerClaims(c, jwtSecret)
		if !present {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		if errMsg != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
			return
		}
		setCaller(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the caller when a bearer token is sent and
// lets anonymous requests through. A token that is sent but invalid is still rejected.
func OptionalAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, present, errMsg := bearerClaims(c, jwtSecret)
		if present && errMsg != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
			return
		}
		if present {
			setCaller(c, claims)
		}
		c.Next()
	}
}

// AdminMiddleware creates a Gin middleware to check for admin privileges.
// Assumes AuthMiddleware runs first.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextKeyIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrator privileges required"})
			return
		}
		c.Next()
	}
}

// SupplierMiddleware only admits supplier accounts. Assumes AuthMiddleware runs first.
func SupplierMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextKeyUserType) != string(models.UserTypeSupplier) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Supplier account required"})
			return
		}
		c.Next()
	}
}

// CallerFrom returns the authenticated caller, if any.
func CallerFrom(c *gin.Context) (models.Caller, bool) {
	raw := c.GetString(ContextKeyUserID)
	if raw == "" {
		return models.Caller{}, false
	}
	id, err := utils.ParseSixID(raw)
	if err != nil {
		return models.Caller{}, false
	}
	return models.Caller{
		ID:       id,
		UserType: models.UserType(c.GetString(ContextKeyUserType)),
		IsAdmin:  c.GetBool(ContextKeyIsAdmin),
	}, true
}
