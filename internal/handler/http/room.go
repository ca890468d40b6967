package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collab-engine/internal/hub"
	"collab-engine/internal/service"
)

// RoomHandler serves room management endpoints.
type RoomHandler struct {
	roomService *service.RoomService
	liveHub     *hub.Hub
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(roomService *service.RoomService, liveHub *hub.Hub) *RoomHandler {
	if roomService == nil || liveHub == nil {
		panic("RoomService and Hub cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService, liveHub: liveHub}
}

// CreateRoomRequest is the body of POST /api/rooms.
type CreateRoomRequest struct {
	ProjectID  string `json:"project_id" binding:"required"`
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	MaxUsers   int    `json:"max_users"`
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: project_id is required")
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), req.ProjectID, req.Name, userID, req.Visibility, req.MaxUsers)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{"room_id": room.ID, "user_id": userID}).Info("Room created via REST")
	SuccessResponse(c, http.StatusCreated, room)
}

// GetRoom handles GET /api/rooms/:id.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"room":         room,
		"active_users": h.liveHub.RoomOccupancy(roomID),
	})
}

// ListProjectRooms handles GET /api/projects/:projectId/rooms.
func (h *RoomHandler) ListProjectRooms(c *gin.Context) {
	projectID := c.Param("projectId")
	if projectID == "" {
		ErrorResponse(c, http.StatusBadRequest, "projectId is required")
		return
	}
	rooms, err := h.roomService.ListProjectRooms(c.Request.Context(), projectID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"rooms": rooms})
}

// RoomStats handles GET /api/rooms/:id/stats.
func (h *RoomHandler) RoomStats(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	stats, err := h.roomService.RoomStats(c.Request.Context(), roomID, h.liveHub.RoomOccupancy(roomID))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, stats)
}

// parseRoomID reads the :id path parameter. On failure it writes the 400
// itself and returns false.
func parseRoomID(c *gin.Context) (uint, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "invalid room id")
		return 0, false
	}
	return uint(id), true
}

// parseQueryRoomID reads the room_id query parameter the same way.
func parseQueryRoomID(c *gin.Context) (uint, bool) {
	idStr := c.Query("room_id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "room_id query parameter is required")
		return 0, false
	}
	return uint(id), true
}
