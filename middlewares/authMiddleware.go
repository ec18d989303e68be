package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nexweave/vendordesk_backend/utils"
)

// AuthMiddleware resolves the caller identity from the bearer token and puts
// vendor id, role and user name on the request context. Identity is resolved
// upstream; the lifecycle code trusts this context and enforces authorization
// purely against it.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization token is required"})
			c.Abort()
			return
		}

		parsed, err := utils.JwtValidate(token)
		if err != nil || !parsed.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}
		claims, ok := parsed.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetVendorIdInContext(ctx, claims.VendorId)
		ctx = utils.SetRoleInContext(ctx, claims.Role)
		ctx = utils.SetUserNameInContext(ctx, claims.Name)
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId(c))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	auth := c.Request.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// Legacy clients send the raw token header.
	return c.Request.Header.Get("token")
}

func correlationId(c *gin.Context) string {
	if v := c.Request.Header.Get("X-Correlation-Id"); v != "" {
		return v
	}
	return uuid.NewString()
}
