package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-engine/internal/service"
)

// SnapshotHandler serves point-in-time document copies.
type SnapshotHandler struct {
	snapshotService *service.SnapshotService
}

// NewSnapshotHandler creates a SnapshotHandler.
func NewSnapshotHandler(snapshotService *service.SnapshotService) *SnapshotHandler {
	if snapshotService == nil {
		panic("SnapshotService cannot be nil for SnapshotHandler")
	}
	return &SnapshotHandler{snapshotService: snapshotService}
}

// CreateSnapshotRequest is the body of POST /api/rooms/:id/snapshots.
type CreateSnapshotRequest struct {
	FileID      string `json:"file_id" binding:"required"`
	Description string `json:"description"`
}

// Create handles POST /api/rooms/:id/snapshots.
func (h *SnapshotHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req CreateSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: file_id is required")
		return
	}

	snapshot, err := h.snapshotService.Create(c.Request.Context(), roomID, req.FileID, userID, req.Description)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, snapshot)
}

// List handles GET /api/rooms/:id/snapshots.
func (h *SnapshotHandler) List(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	snapshots, err := h.snapshotService.List(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"snapshots": snapshots})
}

// Get handles GET /api/snapshots/:snapshotId.
func (h *SnapshotHandler) Get(c *gin.Context) {
	snapshotID := c.Param("snapshotId")
	if snapshotID == "" {
		ErrorResponse(c, http.StatusBadRequest, "snapshotId is required")
		return
	}
	snapshot, err := h.snapshotService.Get(c.Request.Context(), snapshotID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, snapshot)
}
