package guard

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
)

// Require gates the route on Evaluate. JSON clients get 401/403 with the
// redirect target in the body; browsers get a 302.
func (g *Guard) Require(allowed ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Evaluate(c.Request.Context(), auth.PrincipalFrom(c), allowed...)

		switch d.State {
		case StateAuthorized:
			auth.SetRole(c, d.Role)
			c.Next()
		case StateUnauthenticated:
			deny(c, http.StatusUnauthorized, "authentication required", loginRedirect(c, d.Redirect))
		case StateUnauthorized:
			deny(c, http.StatusForbidden, "insufficient role", d.Redirect)
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "access check did not complete"})
		}
	}
}

func deny(c *gin.Context, status int, msg, redirect string) {
	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEJSON {
		c.AbortWithStatusJSON(status, gin.H{"error": msg, "redirect": redirect})
		return
	}
	c.Redirect(http.StatusFound, redirect)
	c.Abort()
}

func loginRedirect(c *gin.Context, base string) string {
	q := url.Values{}
	q.Set("next", c.Request.URL.RequestURI())
	return base + "?" + q.Encode()
}
