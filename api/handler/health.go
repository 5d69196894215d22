package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/plantcare/api/transport"
	"github.com/fastygo/plantcare/internal/infrastructure/monitor"
	"github.com/fastygo/plantcare/internal/services"
	"github.com/fastygo/plantcare/pkg/httpcontext"
)

// StatusSource reports the last storage probe.
type StatusSource interface {
	GetStatus() monitor.Status
}

// DigestSource exposes the most recent reminder run.
type DigestSource interface {
	LastDigest() *services.Digest
}

type HealthHandler struct {
	baseHandler
	monitor  StatusSource
	reminder DigestSource
}

// NewHealthHandler builds the health endpoint. reminder may be nil.
func NewHealthHandler(mon StatusSource, reminder DigestSource, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
		reminder:    reminder,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"storage": map[string]interface{}{
			"data_dir": status.DataDir,
			"uploads":  status.Uploads,
			"journal": map[string]interface{}{
				"online": status.Journal,
				"size":   status.JournalSize,
			},
			"last_check": status.LastCheck,
		},
	}
	if h.reminder != nil {
		if digest := h.reminder.LastDigest(); digest != nil {
			payload["reminder"] = digest
		}
	}

	if status.Healthy() {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "storage unhealthy", payload))
}
