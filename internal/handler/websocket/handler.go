// Package websocket upgrades authenticated HTTP requests into live hub
// sessions.
package websocket

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"collab-engine/internal/domain"
	"collab-engine/internal/hub"
	"collab-engine/internal/middleware"
	"collab-engine/internal/service"
)

// participantColors are assigned round-robin by user ID hash; clients use
// them to tint cursors and selections.
var participantColors = []string{
	"#e06c75", "#61afef", "#98c379", "#c678dd",
	"#d19a66", "#56b6c2", "#be5046", "#528bff",
}

// WebSocketHandler validates the room, upgrades the connection, and hands
// the session to the hub.
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	liveHub     *hub.Hub
	roomService *service.RoomService
}

// NewWebSocketHandler creates a WebSocketHandler.
func NewWebSocketHandler(liveHub *hub.Hub, roomService *service.RoomService) *WebSocketHandler {
	if liveHub == nil || roomService == nil {
		panic("Hub and RoomService cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict origins once the frontend deployment is fixed
				return true
			},
		},
		liveHub:     liveHub,
		roomService: roomService,
	}
}

// HandleConnection handles GET /ws/rooms/:roomId. Errors before the upgrade
// are plain HTTP responses; after the upgrade the connection speaks the hub
// protocol only.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userIDAny, exists := c.Get(middleware.CtxUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, ok := userIDAny.(string)
	if !ok || userID == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	roomIDUint64, err := strconv.ParseUint(c.Param("roomId"), 10, 32)
	if err != nil || roomIDUint64 == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID format"})
		return
	}
	roomID := uint(roomIDUint64)
	logCtx = logCtx.WithField("room_id", roomID)

	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if err == service.ErrRoomNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		} else {
			logCtx.WithError(err).Error("WS Handler: failed to validate room")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate room"})
		}
		return
	}

	displayName := c.GetString(middleware.CtxDisplayName)
	if displayName == "" {
		displayName = "user-" + userID
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade writes its own HTTP error response.
		logCtx.WithError(err).Error("WS Handler: failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.liveHub, conn, room, domain.Participant{
		UserID:      userID,
		DisplayName: displayName,
		Color:       colorFor(userID),
		JoinedAt:    time.Now().UTC(),
	})
	if err := h.liveHub.Register(client); err != nil {
		logCtx.WithError(err).Info("WS Handler: registration rejected")
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"room is at capacity"}`))
		conn.Close()
		return
	}

	client.Run()
	logCtx.Info("WS Handler: session established")
}

func colorFor(userID string) string {
	var sum int
	for _, r := range userID {
		sum += int(r)
	}
	return participantColors[sum%len(participantColors)]
}
