// Package hub owns live WebSocket sessions: room membership, inbound message
// routing, and fan-out. Each room has a single processing goroutine, so
// messages from the same room are handled in arrival order. Durable state
// lives in the services; the hub only coordinates delivery.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"collab-engine/internal/docstore"
	"collab-engine/internal/domain"
	"collab-engine/internal/metrics"
	"collab-engine/internal/service"
)

// inboundQueueSize bounds the per-room processing queue. A full queue drops
// the message rather than blocking the client's read pump.
const inboundQueueSize = 512

// ErrRoomFull rejects a registration against a room at capacity.
var ErrRoomFull = errors.New("room is at capacity")

type inboundMessage struct {
	client *Client
	raw    []byte
}

// liveRoom is the in-memory session state of one room. clients is keyed by
// user ID: one session per user, a newer connection replaces the older one.
type liveRoom struct {
	room    domain.Room
	clients map[string]*Client
	inbound chan inboundMessage
}

// Hub coordinates all live rooms.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]*liveRoom

	collabSvc   *service.CollaborationService
	presenceSvc *service.PresenceService
	chatSvc     *service.ChatService
	roomSvc     *service.RoomService
}

// NewHub creates a Hub.
func NewHub(collabSvc *service.CollaborationService, presenceSvc *service.PresenceService, chatSvc *service.ChatService, roomSvc *service.RoomService) *Hub {
	if collabSvc == nil || presenceSvc == nil || chatSvc == nil || roomSvc == nil {
		panic("all services must be non-nil for Hub")
	}
	return &Hub{
		rooms:       make(map[uint]*liveRoom),
		collabSvc:   collabSvc,
		presenceSvc: presenceSvc,
		chatSvc:     chatSvc,
		roomSvc:     roomSvc,
	}
}

// Register adds a session to its room. It enforces capacity, replaces an
// older session of the same user, announces the join, and pushes the full
// room state to the newcomer.
func (h *Hub) Register(client *Client) error {
	roomID := client.RoomID()
	userID := client.UserID()
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	var replaced *Client
	created := false
	h.mu.Lock()
	lr, ok := h.rooms[roomID]
	if !ok {
		lr = &liveRoom{
			room:    *client.room,
			clients: make(map[string]*Client),
			inbound: make(chan inboundMessage, inboundQueueSize),
		}
		h.rooms[roomID] = lr
		created = true
		go h.runRoom(lr)
		metrics.ActiveRooms.Inc()
	}
	if old, exists := lr.clients[userID]; exists {
		// Same user reconnecting; the stale session is evicted and its
		// eventual unregister is a no-op because the map now points here.
		replaced = old
	} else if len(lr.clients) >= lr.room.Capacity {
		h.mu.Unlock()
		logCtx.WithField("capacity", lr.room.Capacity).Info("Join rejected, room full")
		return ErrRoomFull
	}
	lr.clients[userID] = client
	h.mu.Unlock()

	if replaced != nil {
		replaced.closeSend()
		logCtx.Info("Replaced existing session for user")
	} else {
		metrics.ActiveConnections.Inc()
	}

	ctx := context.Background()
	if created {
		// Presence mirrored by a previous process (or another instance) is
		// folded back in before this room starts reporting state.
		h.presenceSvc.Rehydrate(ctx, roomID)
	}
	h.presenceSvc.Update(ctx, domain.UserPresence{UserID: userID, RoomID: roomID})

	if replaced == nil {
		h.broadcastPayload(roomID, userJoinedPayload{
			Type:        MsgUserJoined,
			RoomID:      roomID,
			Participant: client.participant,
		}, client)
		h.collabSvc.EmitAudit(domain.AuditEvent{
			RoomID:    roomID,
			UserID:    userID,
			Kind:      domain.AuditUserJoined,
			CreatedAt: time.Now().UTC(),
		})
	}

	go h.pushRoomState(client)
	logCtx.Info("Client registered")
	return nil
}

// Unregister removes a session. Idempotent: only the session currently in
// the membership map triggers the leave side effects, so an evicted stale
// session unwinding late changes nothing.
func (h *Hub) Unregister(client *Client) {
	roomID := client.RoomID()
	userID := client.UserID()

	removed := false
	emptied := false
	h.mu.Lock()
	if lr, ok := h.rooms[roomID]; ok {
		if current, exists := lr.clients[userID]; exists && current == client {
			delete(lr.clients, userID)
			removed = true
			if len(lr.clients) == 0 {
				delete(h.rooms, roomID)
				close(lr.inbound)
				emptied = true
			}
		}
	}
	h.mu.Unlock()

	client.closeSend()
	if !removed {
		return
	}
	metrics.ActiveConnections.Dec()

	ctx := context.Background()
	h.presenceSvc.Remove(ctx, roomID, userID)
	h.broadcastPayload(roomID, userLeftPayload{Type: MsgUserLeft, RoomID: roomID, UserID: userID}, nil)
	h.collabSvc.EmitAudit(domain.AuditEvent{
		RoomID:    roomID,
		UserID:    userID,
		Kind:      domain.AuditUserLeft,
		CreatedAt: time.Now().UTC(),
	})

	if emptied {
		metrics.ActiveRooms.Dec()
		h.collabSvc.ReleaseRoom(roomID)
		h.presenceSvc.ReleaseRoom(ctx, roomID)
		logrus.WithField("room_id", roomID).Info("Room emptied, live state released")
	}
	logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).Info("Client unregistered")
}

// route hands an inbound frame to the room's processing queue without
// blocking the read pump. The read lock is held across the send: the queue is
// only ever closed under the write lock, so the channel cannot close mid-send.
func (h *Hub) route(client *Client, raw []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	lr, ok := h.rooms[client.RoomID()]
	if !ok {
		return
	}
	select {
	case lr.inbound <- inboundMessage{client: client, raw: raw}:
	default:
		metrics.MessagesDropped.Inc()
		logrus.WithFields(logrus.Fields{"room_id": client.RoomID(), "user_id": client.UserID()}).Warn("Room inbound queue full, dropping message")
	}
}

// runRoom is the room's single processing loop. Running every message for a
// room on one goroutine gives per-room ordering without any further locking
// in the handlers.
func (h *Hub) runRoom(lr *liveRoom) {
	for msg := range lr.inbound {
		h.dispatch(lr, msg.client, msg.raw)
	}
}

func (h *Hub) dispatch(lr *liveRoom, client *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.MessagesDropped.Inc()
		h.sendTo(client, errorPayload{Type: MsgError, Message: "malformed message"})
		return
	}

	switch env.Type {
	case MsgOperation:
		h.handleOperation(lr, client, &env)
	case MsgPresence:
		h.handlePresence(lr, client, &env)
	case MsgChat:
		h.handleChat(lr, client, &env)
	case MsgCursor:
		h.handleCursor(lr, client, &env)
	case MsgPing, MsgKeepalive:
		h.sendTo(client, pongPayload{Type: MsgPong})
	default:
		logrus.WithFields(logrus.Fields{"room_id": lr.room.ID, "user_id": client.UserID(), "type": env.Type}).Warn("Unknown message type, ignoring")
	}
}

func (h *Hub) handleOperation(lr *liveRoom, client *Client, env *Envelope) {
	ops := env.Operations
	if len(ops) == 0 && env.Operation != nil {
		ops = []domain.EditOperation{*env.Operation}
	}
	if len(ops) == 0 {
		h.sendTo(client, errorPayload{Type: MsgError, Message: "operation message carries no operations"})
		return
	}
	fileID := env.FileID
	if fileID == "" {
		fileID = ops[0].FileID
	}
	baseVersion := ops[0].BaseVersion

	ctx := context.Background()
	result, err := h.collabSvc.ApplyEdit(ctx, lr.room.ID, fileID, client.UserID(), ops, baseVersion)
	if err != nil {
		var resync *docstore.ResyncError
		if errors.As(err, &resync) {
			metrics.ResyncsIssued.Inc()
			h.sendTo(client, operationResultPayload{
				Type:    MsgOperationResult,
				Success: false,
				FileID:  fileID,
				Resync:  true,
				Version: resync.Version,
				Content: resync.Content,
			})
			return
		}
		h.sendTo(client, errorPayload{Type: MsgError, Message: fmt.Sprintf("edit rejected: %v", err)})
		return
	}

	metrics.EditBatchesApplied.Inc()
	h.sendTo(client, operationResultPayload{
		Type:       MsgOperationResult,
		Success:    true,
		FileID:     fileID,
		NewVersion: result.NewVersion,
	})
	h.broadcastPayload(lr.room.ID, editAppliedPayload{
		Type:       MsgEditApplied,
		FileID:     fileID,
		UserID:     client.UserID(),
		NewVersion: result.NewVersion,
		Operations: result.Ops,
	}, client)
}

func (h *Hub) handlePresence(lr *liveRoom, client *Client, env *Envelope) {
	p := domain.UserPresence{UserID: client.UserID(), RoomID: lr.room.ID}
	if env.Activity != nil {
		p.CursorPosition = env.Activity.CursorPosition
		p.FileID = env.Activity.CurrentFile
		p.Typing = env.Activity.Typing
		if sel := env.Activity.CurrentSelection; sel != nil {
			p.SelectionStart = sel.Start
			p.SelectionEnd = sel.End
		}
	}
	stored := h.presenceSvc.Update(context.Background(), p)
	h.broadcastPayload(lr.room.ID, presencePayload{Type: MsgPresence, UserID: client.UserID(), Presence: stored}, client)
}

func (h *Hub) handleChat(lr *liveRoom, client *Client, env *Envelope) {
	msg, err := h.chatSvc.Send(context.Background(), lr.room.ID, client.UserID(), env.Message, env.MessageType, env.ReplyTo, string(env.Metadata))
	if err != nil {
		h.sendTo(client, errorPayload{Type: MsgError, Message: "chat message rejected"})
		return
	}
	// Sender included: everyone renders the same persisted copy.
	h.broadcastPayload(lr.room.ID, chatPayload{Type: MsgChat, Message: msg}, nil)
}

func (h *Hub) handleCursor(lr *liveRoom, client *Client, env *Envelope) {
	h.presenceSvc.UpdateCursor(context.Background(), lr.room.ID, client.UserID(), env.Position)
	h.broadcastPayload(lr.room.ID, cursorPayload{Type: MsgCursor, UserID: client.UserID(), Position: env.Position}, client)
}

// pushRoomState sends the joining client a full snapshot: room record,
// participants, presence, recent chat, and file contents. Runs off the room
// loop because it reads from the database.
func (h *Hub) pushRoomState(client *Client) {
	roomID := client.RoomID()
	ctx := context.Background()
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": client.UserID()})

	history, err := h.chatSvc.History(ctx, roomID, 0, time.Time{})
	if err != nil {
		logCtx.WithError(err).Warn("Room state push: chat history unavailable")
	}
	files, err := h.roomSvc.ListFiles(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Warn("Room state push: file list unavailable")
	}

	h.mu.RLock()
	var participants []domain.Participant
	if lr, ok := h.rooms[roomID]; ok {
		participants = make([]domain.Participant, 0, len(lr.clients))
		for _, c := range lr.clients {
			participants = append(participants, c.participant)
		}
	}
	h.mu.RUnlock()

	h.sendTo(client, roomStatePayload{
		Type:         MsgRoomState,
		Room:         client.room,
		Participants: participants,
		Presences:    h.presenceSvc.ListActive(roomID),
		ChatHistory:  history,
		Files:        files,
	})
}

// sendTo serializes and queues one payload for one client. A full buffer
// disconnects the client; it is too far behind to recover in-band.
func (h *Hub) sendTo(client *Client, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal outbound payload")
		return
	}
	if !client.trySend(data) {
		metrics.MessagesDropped.Inc()
		logrus.WithFields(logrus.Fields{"room_id": client.RoomID(), "user_id": client.UserID()}).Warn("Client send buffer full, disconnecting")
		go h.Unregister(client)
	}
}

// broadcastPayload serializes once and fans out to every client in the room
// except exclude. Slow clients are disconnected, not waited on.
func (h *Hub) broadcastPayload(roomID uint, payload any, exclude *Client) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal broadcast payload")
		return
	}

	h.mu.RLock()
	lr, ok := h.rooms[roomID]
	var targets []*Client
	if ok {
		targets = make([]*Client, 0, len(lr.clients))
		for _, c := range lr.clients {
			if c != exclude {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.trySend(data) {
			metrics.BroadcastsSent.Inc()
		} else {
			metrics.MessagesDropped.Inc()
			logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": c.UserID()}).Warn("Client send buffer full during broadcast, disconnecting")
			go h.Unregister(c)
		}
	}
}

// BroadcastToRoom lets REST handlers fan a payload out to a live room.
func (h *Hub) BroadcastToRoom(roomID uint, payload any) {
	h.broadcastPayload(roomID, payload, nil)
}

// ActiveRooms reports the number of rooms with live sessions.
func (h *Hub) ActiveRooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ActiveUsers reports the number of live sessions across all rooms.
func (h *Hub) ActiveUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, lr := range h.rooms {
		n += len(lr.clients)
	}
	return n
}

// RoomOccupancy reports live sessions in one room.
func (h *Hub) RoomOccupancy(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if lr, ok := h.rooms[roomID]; ok {
		return len(lr.clients)
	}
	return 0
}

// ActiveRoomIDs lists rooms with live sessions, for housekeeping.
func (h *Hub) ActiveRoomIDs() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]uint, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	return ids
}

// Stop force-closes every session. Used during shutdown.
func (h *Hub) Stop() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[uint]*liveRoom)
	for _, lr := range rooms {
		close(lr.inbound)
	}
	h.mu.Unlock()

	for _, lr := range rooms {
		for _, c := range lr.clients {
			c.closeSend()
		}
	}
	logrus.Info("Hub stopped, all sessions closed")
}
