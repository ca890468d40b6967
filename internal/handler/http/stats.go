package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"collab-engine/internal/hub"
	"collab-engine/internal/repository"
)

// StatsHandler serves liveness and instance-wide statistics.
type StatsHandler struct {
	liveHub  *hub.Hub
	fileRepo repository.FileRepository
	started  time.Time
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(liveHub *hub.Hub, fileRepo repository.FileRepository) *StatsHandler {
	if liveHub == nil || fileRepo == nil {
		panic("Hub and FileRepository cannot be nil for StatsHandler")
	}
	return &StatsHandler{liveHub: liveHub, fileRepo: fileRepo, started: time.Now().UTC()}
}

// Healthz handles GET /healthz.
func (h *StatsHandler) Healthz(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, gin.H{"status": "ok"})
}

// Stats handles GET /api/stats.
func (h *StatsHandler) Stats(c *gin.Context) {
	totalFiles, err := h.fileRepo.CountAll(c.Request.Context())
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "failed to count files")
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"active_rooms":   h.liveHub.ActiveRooms(),
		"active_users":   h.liveHub.ActiveUsers(),
		"tracked_files":  totalFiles,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}
