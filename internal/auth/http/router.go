package http

import "github.com/gin-gonic/gin"

// Register mounts the auth routes. requireToken must reject requests without a
// verified principal; limit throttles the unauthenticated endpoints.
func (h *Handler) Register(rg *gin.RouterGroup, requireToken, limit gin.HandlerFunc) {
	rg.POST("/signup", limit, h.Signup)
	rg.POST("/password-reset", limit, h.PasswordReset)
	rg.GET("/role", requireToken, h.GetRole)
	rg.GET("/profile", requireToken, h.GetProfile)
}

// RegisterAdmin mounts profile mutation routes. The group must be behind an
// admin-only guard.
func (h *Handler) RegisterAdmin(rg *gin.RouterGroup) {
	rg.GET("/users", h.ListUsers)
	rg.PUT("/users/:id/role", h.SetRole)
	rg.PUT("/users/:id/access", h.SetAccess)
}
