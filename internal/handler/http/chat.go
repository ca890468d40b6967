package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"collab-engine/internal/hub"
	"collab-engine/internal/service"
)

// ChatHandler serves the REST chat surface. Messages sent here are fanned
// out to live WebSocket sessions too, so both transports stay in sync.
type ChatHandler struct {
	chatService *service.ChatService
	liveHub     *hub.Hub
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(chatService *service.ChatService, liveHub *hub.Hub) *ChatHandler {
	if chatService == nil || liveHub == nil {
		panic("ChatService and Hub cannot be nil for ChatHandler")
	}
	return &ChatHandler{chatService: chatService, liveHub: liveHub}
}

// SendMessageRequest is the body of POST /api/rooms/:id/messages.
type SendMessageRequest struct {
	Message     string `json:"message" binding:"required"`
	MessageType string `json:"message_type"`
	ReplyTo     string `json:"reply_to"`
	Metadata    string `json:"metadata"`
}

// Send handles POST /api/rooms/:id/messages.
func (h *ChatHandler) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: message is required")
		return
	}

	msg, err := h.chatService.Send(c.Request.Context(), roomID, userID, req.Message, req.MessageType, req.ReplyTo, req.Metadata)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	h.liveHub.BroadcastToRoom(roomID, gin.H{"type": hub.MsgChat, "message": msg})
	SuccessResponse(c, http.StatusCreated, msg)
}

// History handles GET /api/rooms/:id/messages. Query parameters: limit and
// before (RFC 3339 timestamp) page backwards through the log.
func (h *ChatHandler) History(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 0 {
			ErrorResponse(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	var before time.Time
	if beforeStr := c.Query("before"); beforeStr != "" {
		t, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "invalid before timestamp, expected RFC 3339")
			return
		}
		before = t
	}

	msgs, err := h.chatService.History(c.Request.Context(), roomID, limit, before)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"messages": msgs})
}

// Delete handles DELETE /api/rooms/:id/messages/:messageId. Only the author
// can delete their own message.
func (h *ChatHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	messageID := c.Param("messageId")
	if messageID == "" {
		ErrorResponse(c, http.StatusBadRequest, "messageId is required")
		return
	}

	if err := h.chatService.Delete(c.Request.Context(), roomID, messageID, userID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"deleted": messageID})
}
