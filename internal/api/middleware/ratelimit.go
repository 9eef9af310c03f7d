package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// clientLimiter stores rate limiters for a specific client.
type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// Limit is a token bucket: RefillRate tokens per second up to BucketSize.
type Limit struct {
	RefillRate int
	BucketSize int
}

// RouteLimits overrides the default soft and hard limits for one route.
// A nil field keeps the default.
type RouteLimits struct {
	Soft *Limit
	Hard *Limit
}

// RateLimiterMiddleware manages rate limiting for API endpoints.
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	cfg     *config.Config
	// routes is keyed by "METHOD /full/path" as registered with gin.
	routes map[string]RouteLimits
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware. Cleanup of idle
// clients runs until ctx is cancelled.
func NewRateLimiterMiddleware(ctx context.Context, cfg *config.Config, routes map[string]RouteLimits) *RateLimiterMiddleware {
	if routes == nil {
		routes = map[string]RouteLimits{}
	}
	rm := &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
		routes:  routes,
	}
	go rm.cleanupClients(ctx, 10*time.Minute, 30*time.Minute)
	return rm
}

// getClientIdentifier creates a unique key based on IP, Fingerprint, SPA Session ID and route.
func getClientIdentifier(c *gin.Context, route string) string {
	ip := c.ClientIP()
	fingerprint := c.GetHeader("X-BFP")
	spaSession := c.GetHeader("X-SPA")
	return fmt.Sprintf("%s|%s|%s|%s", ip, fingerprint, spaSession, route)
}

// getClientLimiter retrieves or creates the rate limiters for a given client identifier.
func (rm *RateLimiterMiddleware) getClientLimiter(identifier string, soft, hard Limit) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(soft.RefillRate), soft.BucketSize),
			hardLimiter: rate.NewLimiter(rate.Limit(hard.RefillRate), hard.BucketSize),
		}
		rm.clients[identifier] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter
}

// cleanupClients periodically removes client entries idle for longer than maxIdle.
func (rm *RateLimiterMiddleware) cleanupClients(ctx context.Context, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rm.evictIdle(maxIdle); n > 0 {
				logger.GetLogger().Debug("Rate limiter cleanup", zap.Int("removed", n))
			}
		}
	}
}

func (rm *RateLimiterMiddleware) evictIdle(maxIdle time.Duration) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if time.Since(client.lastSeen) > maxIdle {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

func (rm *RateLimiterMiddleware) limitsFor(route string) (soft, hard Limit) {
	soft = Limit{RefillRate: rm.cfg.RateLimitSoftRefillRate, BucketSize: rm.cfg.RateLimitSoftBucketSize}
	hard = Limit{RefillRate: rm.cfg.RateLimitHardRefillRate, BucketSize: rm.cfg.RateLimitHardBucketSize}
	if override, ok := rm.routes[route]; ok {
		if override.Soft != nil {
			soft = *override.Soft
		}
		if override.Hard != nil {
			hard = *override.Hard
		}
	}
	return soft, hard
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.FullPath()
		clientKey := getClientIdentifier(c, route)
		soft, hard := rm.limitsFor(route)
		limiter := rm.getClientLimiter(clientKey, soft, hard)

		if !limiter.hardLimiter.Allow() {
			logger.FromGin(c).Warn("Hard rate limit exceeded", zap.String("client", clientKey))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		// Clients verified by CaptchaMiddleware skip the soft limit.
		isHuman := c.GetBool(ContextKeyIsHumanVerified)
		if !isHuman && !limiter.softLimiter.Allow() {
			logger.FromGin(c).Info("Soft rate limit exceeded, captcha required", zap.String("client", clientKey))
			c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"error": "Captcha validation required"})
			return
		}

		c.Next()
	}
}
