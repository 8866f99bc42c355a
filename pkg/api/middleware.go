package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// loggingMiddleware provides structured request logging via slog.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		s.logger.Info("http request",
			"method", param.Method,
			"path", param.Path,
			"status", param.StatusCode,
			"latency", param.Latency,
			"ip", param.ClientIP,
			"error", param.ErrorMessage,
		)
		return ""
	})
}

// corsMiddleware configures CORS based on application configuration.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	if !s.config.Server.Cors.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	corsConfig := cors.Config{
		AllowOrigins:     s.config.Server.Cors.AllowedOrigins,
		AllowMethods:     s.config.Server.Cors.AllowedMethods,
		AllowHeaders:     s.config.Server.Cors.AllowedHeaders,
		AllowCredentials: s.config.Server.Cors.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	if len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowOrigins = nil
	}

	return cors.New(corsConfig)
}

// securityMiddleware adds standard security headers.
func (s *Server) securityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Server", "metasched")
		c.Next()
	}
}

// rateLimitMiddleware applies a per-client-IP token bucket
// (golang.org/x/time/rate), mirroring the config's RequestsPerSecond/Burst.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	limiters := make(map[string]*rate.Limiter)
	var mu sync.Mutex

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		mu.Lock()
		limiter, exists := limiters[clientIP]
		if !exists {
			limiter = rate.NewLimiter(rate.Limit(s.config.Server.RateLimit.RequestsPerSecond), s.config.Server.RateLimit.Burst)
			limiters[clientIP] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "too many requests, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// requestSizeMiddleware limits request body size.
func (s *Server) requestSizeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.Server.MaxBodySize)
		c.Next()
	}
}
