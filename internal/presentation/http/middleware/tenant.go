// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TenantMiddleware extracts the tenant id from the X-Tenant-ID header.
// Every tenant-scoped route runs behind it; handlers read the id from the
// gin context.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		if tenantID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Tenant-ID header is required"})
			c.Abort()
			return
		}

		c.Set("tenantId", tenantID)
		c.Next()
	}
}

// GetTenantID retrieves the tenant id placed by TenantMiddleware.
func GetTenantID(c *gin.Context) string {
	return c.GetString("tenantId")
}
