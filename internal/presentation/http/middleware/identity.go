package middleware

import (
	"net/http"
	"strings"

	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/orderstack-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// IdentityMiddleware validates an optional bearer token and attaches the
// caller's identity to the request context. A missing or invalid token is
// not an error: public dashboard routes must keep working unauthenticated.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := BearerToken(c.GetHeader("Authorization")); token != "" {
			if claims, err := security.ValidateJWT(token, config.JWTSecret); err == nil {
				c.Set("userId", security.UserIDFromClaims(claims))
				if role, ok := claims["role"].(string); ok {
					c.Set("userRole", role)
				}
				if tenantID, ok := claims["tenantId"].(string); ok {
					c.Set("userTenantId", tenantID)
				}
			}
		}
		c.Next()
	}
}

// RequireIdentity aborts with 401 when no verified identity is attached.
// Placed after IdentityMiddleware on routes that need a caller.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("userId") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// BearerToken strips the Bearer prefix from an Authorization header value,
// returning empty when absent.
func BearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// GetUserID retrieves the verified user id, or empty for anonymous callers.
func GetUserID(c *gin.Context) string {
	return c.GetString("userId")
}

// GetUserTenantID retrieves the tenant id carried by the caller's verified
// token. Unlike the X-Tenant-ID header this cannot be set by the client, so
// it is the value tenant guards must compare against.
func GetUserTenantID(c *gin.Context) string {
	return c.GetString("userTenantId")
}
