package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
)

func (h *Handler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	users, err := h.authService.ListUsers(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

func (h *Handler) SetRole(c *gin.Context) {
	var body roleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	role, err := domain.ParseRole(body.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.SetRole(c.Request.Context(), c.Param("id"), role)
	if err != nil {
		writeMutationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) SetAccess(c *gin.Context) {
	var body accessBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if vs := body.VerificationStatus; vs != nil {
		switch *vs {
		case domain.VerificationNone, domain.VerificationPending, domain.VerificationVerified, domain.VerificationRejected:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown verificationStatus"})
			return
		}
	}

	user, err := h.authService.SetAccess(c.Request.Context(), c.Param("id"), body.update())
	if err != nil {
		writeMutationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func writeMutationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, domain.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
	}
}
