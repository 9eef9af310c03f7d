package middleware

import (
	"github.com/DFBlok/market-link-app/internal/captcha"
	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ContextKeyIsHumanVerified holds the key for captcha status in Gin context.
	ContextKeyIsHumanVerified = "isHumanVerified"
)

// CaptchaMiddleware handles Cloudflare Turnstile verification (X-C-V) and token (X-C-T) checks.
func CaptchaMiddleware(cfg *config.Config, verifier captcha.ITurnstileVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromGin(c)
		clientIP := c.ClientIP()
		fingerprint := c.GetHeader("X-BFP")
		spaSession := c.GetHeader("X-SPA")
		turnstileToken := c.GetHeader("X-C-T")
		turnstileChallenge := c.GetHeader("X-C-V")

		isHuman := false

		// 1. Check for existing valid X-C-T token
		if turnstileToken != "" && verifier.ValidateHumanToken(turnstileToken, clientIP, fingerprint, spaSession) {
			isHuman = true
		}

		// 2. If no valid X-C-T, check for X-C-V challenge
		if !isHuman && turnstileChallenge != "" {
			verified, err := verifier.Verify(c.Request.Context(), turnstileChallenge, clientIP)
			if err != nil {
				// Treated as non-human, the rate limiter decides.
				log.Warn("Turnstile verification failed", zap.String("ip", clientIP), zap.Error(err))
			} else if verified {
				isHuman = true
				newHumanToken, tokenErr := verifier.GenerateHumanToken(c.GetString(ContextKeyUserID), clientIP, fingerprint, spaSession, cfg.CaptchaTokenTTL)
				if tokenErr != nil {
					log.Error("Failed to issue X-C-T token", zap.Error(tokenErr))
				} else {
					c.Header("X-C-T", newHumanToken)
				}
			}
		}

		c.Set(ContextKeyIsHumanVerified, isHuman)
		c.Next()
	}
}
