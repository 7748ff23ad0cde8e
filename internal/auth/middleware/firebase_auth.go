package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/identity"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
)

// FirebaseAuthMiddleware validates Firebase ID tokens and rejects requests without one.
func FirebaseAuthMiddleware(verifier identity.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		principal, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		auth.SetPrincipal(c, principal)
		c.Next()
	}
}

// OptionalFirebaseAuth sets the principal when a valid token is present and
// otherwise lets the request through unauthenticated, leaving the decision to
// the access guard.
func OptionalFirebaseAuth(verifier identity.TokenVerifier, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		principal, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			logging.FromContext(c.Request.Context(), log).Info("ignoring invalid token", logging.Err(err))
			c.Next()
			return
		}

		auth.SetPrincipal(c, principal)
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.EqualFold(bearerToken[:7], "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return ""
}
