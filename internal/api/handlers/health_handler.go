package handlers

import (
	"net/http"
	"time"

	"norelock.dev/listenify/gateway/internal/services/system"
	"norelock.dev/listenify/gateway/internal/utils"
)

// HealthHandler handles HTTP requests related to system health.
type HealthHandler struct {
	health HealthReporter
	logger *utils.Logger
}

// NewHealthHandler creates a new health handler. health may be nil, in which
// case only the liveness check is served.
func NewHealthHandler(health HealthReporter, logger *utils.Logger) *HealthHandler {
	return &HealthHandler{
		health: health,
		logger: logger.Named("health_handler"),
	}
}

// Check reports liveness. It never touches the resolution engine.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Details reports the health of each component.
func (h *HealthHandler) Details(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		utils.RespondWithError(w, http.StatusNotFound, "health details are not available")
		return
	}

	health := h.health.GetHealth(r.Context())

	statusCode := http.StatusOK
	if health.Status == system.StatusDown {
		statusCode = http.StatusServiceUnavailable
	}

	utils.RespondWithJSON(w, statusCode, health)
}
