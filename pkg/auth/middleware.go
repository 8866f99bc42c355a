package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware provides JWT authentication middleware for Gin
type AuthMiddleware struct {
	jwtService *JWTService
	rbac       *RBAC
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(jwtService *JWTService, rbac *RBAC) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		rbac:       rbac,
	}
}

// RequireAuth middleware that requires valid JWT authentication
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := am.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token required",
				"code":  "AUTH_TOKEN_MISSING",
			})
			c.Abort()
			return
		}

		claims, err := am.jwtService.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
				"code":  "AUTH_TOKEN_INVALID",
			})
			c.Abort()
			return
		}

		// Check if user is active
		user, err := am.rbac.GetUser(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not found",
				"code":  "AUTH_USER_NOT_FOUND",
			})
			c.Abort()
			return
		}

		if !user.Active {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User account is inactive",
				"code":  "AUTH_USER_INACTIVE",
			})
			c.Abort()
			return
		}

		// Store claims in context for use in handlers
		c.Set("claims", claims)
		c.Set("user", user)
	}
}

// RequirePermission middleware that requires specific permission. It
// authenticates the request itself, so it does not need to be chained
// after RequireAuth.
func (am *AuthMiddleware) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		am.RequireAuth()(c)
		if c.IsAborted() {
			return
		}

		claims, exists := c.Get("claims")
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication context not found",
				"code":  "AUTH_CONTEXT_MISSING",
			})
			c.Abort()
			return
		}

		userClaims := claims.(*Claims)
		hasPermission, err := am.rbac.HasPermission(userClaims.UserID, permission)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Permission check failed",
				"code":  "AUTH_PERMISSION_CHECK_FAILED",
			})
			c.Abort()
			return
		}

		if !hasPermission {
			c.JSON(http.StatusForbidden, gin.H{
				"error":     "Insufficient permissions",
				"code":      "AUTH_INSUFFICIENT_PERMISSIONS",
				"required":  permission,
				"user_role": userClaims.Role,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractToken extracts JWT token from Authorization header
func (am *AuthMiddleware) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	// Check for Bearer token format
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
