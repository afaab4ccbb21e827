// api/middleware/auth_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nimbusdb/nimbus-backend/config"
	"github.com/nimbusdb/nimbus-backend/internal/auth"
	"github.com/nimbusdb/nimbus-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// AuthMiddleware guards the management surface. It validates a bearer token
// minted by the external identity provider (shared HS256 secret) and puts
// the user id and role on the context. The gateway endpoint does not use
// this middleware; it authenticates per-database API keys itself.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			err := errors.New("authorization header required")
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			err := errors.New("authorization header format must be Bearer {token}")
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		tokenString := parts[1]

		userID, role, err := auth.ValidateJWT(tokenString, cfg.JWTSecret)
		if err != nil {
			customLog.Printf("AuthMiddleware: Token validation failed: %v", err)
			errMsg := "Invalid token"
			switch {
			case errors.Is(err, auth.ErrTokenMalformed):
				errMsg = err.Error()
			case errors.Is(err, auth.ErrTokenExpired):
				errMsg = err.Error()
			}

			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
			return
		}

		c.Set("userId", userID)
		c.Set("userRole", role)

		c.Next()
	}
}

// RequireAdmin gates an endpoint on the identity provider's admin role.
// It must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("userRole")
		if role != "admin" {
			_ = c.Error(auth.ErrForbidden)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
			return
		}
		c.Next()
	}
}
