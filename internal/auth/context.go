package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
)

const (
	CtxPrincipal   = "principal"
	CtxFirebaseUID = "firebase_uid"
	CtxRole        = "role"
)

// SetPrincipal stores the verified principal in the Gin context.
func SetPrincipal(c *gin.Context, p *domain.Principal) {
	c.Set(CtxPrincipal, p)
	c.Set(CtxFirebaseUID, p.ID)
}

// PrincipalFrom returns the principal set by the auth middleware, or nil.
func PrincipalFrom(c *gin.Context) *domain.Principal {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*domain.Principal)
	return p
}

// UserFirebaseUID extracts the Firebase UID from the Gin context.
func UserFirebaseUID(c *gin.Context) string {
	return c.GetString(CtxFirebaseUID)
}

// SetRole records the role resolved by the access guard.
func SetRole(c *gin.Context, r domain.Role) {
	c.Set(CtxRole, r)
}

// RoleFrom returns the role resolved by the access guard, or RoleUnknown.
func RoleFrom(c *gin.Context) domain.Role {
	v, ok := c.Get(CtxRole)
	if !ok {
		return domain.RoleUnknown
	}
	r, _ := v.(domain.Role)
	return r
}
