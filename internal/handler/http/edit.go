package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-engine/internal/domain"
	"collab-engine/internal/hub"
	"collab-engine/internal/service"
)

// EditHandler is the REST edit path. It runs the same pipeline as the
// WebSocket path, so offline or scripted clients get identical semantics,
// and live sessions still see the fan-out.
type EditHandler struct {
	collabService *service.CollaborationService
	liveHub       *hub.Hub
}

// NewEditHandler creates an EditHandler.
func NewEditHandler(collabService *service.CollaborationService, liveHub *hub.Hub) *EditHandler {
	if collabService == nil || liveHub == nil {
		panic("CollaborationService and Hub cannot be nil for EditHandler")
	}
	return &EditHandler{collabService: collabService, liveHub: liveHub}
}

// ApplyOperationsRequest is the body of POST /api/files/:fileId/operations.
type ApplyOperationsRequest struct {
	RoomID          uint                   `json:"room_id" binding:"required"`
	Operations      []domain.EditOperation `json:"operations" binding:"required"`
	DocumentVersion int64                  `json:"document_version"`
}

// Apply handles POST /api/files/:fileId/operations.
func (h *EditHandler) Apply(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	fileID := c.Param("fileId")
	if fileID == "" {
		ErrorResponse(c, http.StatusBadRequest, "fileId is required")
		return
	}

	var req ApplyOperationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: room_id and operations are required")
		return
	}

	result, err := h.collabService.ApplyEdit(c.Request.Context(), req.RoomID, fileID, userID, req.Operations, req.DocumentVersion)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	h.liveHub.BroadcastToRoom(req.RoomID, gin.H{
		"type":        hub.MsgEditApplied,
		"file_id":     fileID,
		"user_id":     userID,
		"new_version": result.NewVersion,
		"operations":  result.Ops,
	})
	SuccessResponse(c, http.StatusOK, gin.H{
		"file_id":     result.FileID,
		"new_version": result.NewVersion,
		"operations":  result.Ops,
	})
}

// FileState handles GET /api/files/:fileId. Query parameter room_id scopes
// the lazy load for files not yet tracked in memory.
func (h *EditHandler) FileState(c *gin.Context) {
	fileID := c.Param("fileId")
	if fileID == "" {
		ErrorResponse(c, http.StatusBadRequest, "fileId is required")
		return
	}
	roomID, ok := parseQueryRoomID(c)
	if !ok {
		return
	}

	content, version, err := h.collabService.FileState(c.Request.Context(), fileID, roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"file_id": fileID,
		"content": content,
		"version": version,
	})
}
