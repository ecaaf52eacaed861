package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"foundlink/internal/auth"
)

// TokenVerifier validates a bearer credential.
type TokenVerifier interface {
	ValidateToken(ctx context.Context, token string) (auth.Identity, error)
}

// AuthMiddleware validates the Authorization header and records the
// identity on the request context.
func AuthMiddleware(verifier TokenVerifier, registrar *auth.Registrar) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		identity, err := verifier.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		registrar.Ensure(c.Request.Context(), identity)

		c.Set("userID", identity.UserID)
		c.Set("userRole", identity.Role)
		c.Next()
	}
}
