package middleware

import (
	"net/http"
	"strings"

	"storefront-support/internal/services"
	"storefront-support/internal/transport/httpdto"
	"storefront-support/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware rejects requests without a valid access token.
func AuthMiddleware(service *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := service.ParseAccessToken(extractToken(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}
		setCaller(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware lets anonymous requests through but still rejects a token that fails verification.
func OptionalAuthMiddleware(service *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}
		claims, err := service.ParseAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}
		setCaller(c, claims)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if services.RoleFromContext(c.Request.Context()) != role {
			c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func setCaller(c *gin.Context, claims services.AccessClaims) {
	ctx := services.WithCallerContext(c.Request.Context(), claims)
	ctx = logger.WithUserID(ctx, claims.UserID)
	c.Request = c.Request.WithContext(ctx)
}

// extractToken reads the bearer header. Browsers cannot set headers on a websocket
// handshake, so upgrades may pass the token as a query parameter instead.
func extractToken(c *gin.Context) string {
	if token := extractBearer(c); token != "" {
		return token
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("token")
	}
	return ""
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
