package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Store     string    `json:"store"`
	Directory string    `json:"directory,omitempty"`
}

// StoreCheck probes the user directory.
type StoreCheck func(ctx context.Context) error

type HealthHandler struct {
	serviceName string
	version     string
	store       string
	check       StoreCheck
}

func NewHealthHandler(serviceName, version, store string, check StoreCheck) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		store:       store,
		check:       check,
	}
}

// HealthCheck reports 503 when the directory is unreachable, since neither
// signup nor role resolution can work without it.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status, code, dirStatus := "healthy", http.StatusOK, "disabled"
	if h.check != nil {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.check(pingCtx); err != nil {
			status, code, dirStatus = "degraded", http.StatusServiceUnavailable, "down"
		} else {
			dirStatus = "up"
		}
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Store:     h.store,
		Directory: dirStatus,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
