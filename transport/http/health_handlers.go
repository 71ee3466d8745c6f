package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dshuvalov/jumper-challenge/ports"
	"github.com/gin-gonic/gin"
)

// HealthHandlers reports service liveness
type HealthHandlers struct {
	store  ports.SessionStore
	logger *slog.Logger
}

// NewHealthHandlers creates new health handlers
func NewHealthHandlers(store ports.SessionStore, logger *slog.Logger) *HealthHandlers {
	return &HealthHandlers{store: store, logger: logger}
}

// Check pings the session store
//
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  ServiceResponse
// @Failure      503  {object}  ServiceResponse
// @Router       /health-check [get]
func (h *HealthHandlers) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "session store unreachable", "error", err)
		respond(c, http.StatusServiceUnavailable, "Service is unhealthy", nil)
		return
	}

	respond(c, http.StatusOK, "Service is healthy", nil)
}
