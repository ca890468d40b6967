package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-engine/internal/docstore"
	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
	"collab-engine/internal/repository/mocks"
	"collab-engine/internal/service"
)

// newTestHub wires a hub over real services backed by permissive repository
// mocks, so registration side effects (presence, audit, state push) all
// succeed without a database.
func newTestHub(t *testing.T) *Hub {
	t.Helper()
	roomRepo := new(mocks.RoomRepository)
	chatRepo := new(mocks.ChatRepository)
	fileRepo := new(mocks.FileRepository)
	opRepo := new(mocks.OperationRepository)
	presenceRepo := new(mocks.PresenceRepository)

	roomRepo.On("TouchLastActive", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	chatRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	chatRepo.On("History", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]domain.ChatMessage{}, nil)
	fileRepo.On("FindByID", mock.Anything, mock.Anything).Return(nil, repository.ErrFileNotFound)
	fileRepo.On("FindByRoom", mock.Anything, mock.Anything).Return([]domain.FileVersion{}, nil)
	fileRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	opRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)
	presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	presenceRepo.On("Remove", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	presenceRepo.On("ListByRoom", mock.Anything, mock.Anything).Return([]domain.UserPresence{}, nil)
	presenceRepo.On("PurgeRoom", mock.Anything, mock.Anything).Return(nil)

	store := docstore.NewStore(fileRepo, opRepo, 0)
	roomSvc := service.NewRoomService(roomRepo, chatRepo, fileRepo)
	collabSvc := service.NewCollaborationService(store, roomSvc, nil)
	presenceSvc := service.NewPresenceService(presenceRepo, 0)
	chatSvc := service.NewChatService(chatRepo)
	return NewHub(collabSvc, presenceSvc, chatSvc, roomSvc)
}

func newTestClient(h *Hub, room *domain.Room, userID string) *Client {
	return NewClient(h, nil, room, domain.Participant{UserID: userID, DisplayName: userID})
}

// waitForType drains a client's send buffer until a frame of the wanted type
// arrives. Registration pushes room state asynchronously, so other frames may
// be interleaved.
func waitForType(t *testing.T, c *Client, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case data, ok := <-c.send:
			require.True(t, ok, "send channel closed while waiting for %s", want)
			var env struct {
				Type string `json:"type"`
			}
			require.NoError(t, json.Unmarshal(data, &env))
			if env.Type == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s frame", want)
		}
	}
}

// waitForClosed drains a client's send buffer until the channel closes.
func waitForClosed(t *testing.T, c *Client) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for send channel to close")
		}
	}
}

// drainTypes empties whatever is currently buffered for a client and returns
// the frame types, without waiting for more.
func drainTypes(t *testing.T, c *Client) []string {
	t.Helper()
	var types []string
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return types
			}
			var env struct {
				Type string `json:"type"`
			}
			require.NoError(t, json.Unmarshal(data, &env))
			types = append(types, env.Type)
		default:
			return types
		}
	}
}

func TestHub_RegisterTracksOccupancy(t *testing.T) {
	h := newTestHub(t)
	room := &domain.Room{ID: 1, Capacity: 10}

	alice := newTestClient(h, room, "alice")
	bob := newTestClient(h, room, "bob")
	require.NoError(t, h.Register(alice))
	require.NoError(t, h.Register(bob))

	assert.Equal(t, 1, h.ActiveRooms())
	assert.Equal(t, 2, h.ActiveUsers())
	assert.Equal(t, 2, h.RoomOccupancy(1))
	assert.Equal(t, []uint{1}, h.ActiveRoomIDs())

	// Alice hears about Bob's join; Bob himself does not.
	waitForType(t, alice, MsgUserJoined)
	waitForType(t, bob, MsgRoomState)
}

func TestHub_RegisterRejectsFullRoom(t *testing.T) {
	h := newTestHub(t)
	room := &domain.Room{ID: 1, Capacity: 1}

	require.NoError(t, h.Register(newTestClient(h, room, "alice")))
	err := h.Register(newTestClient(h, room, "bob"))
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, 1, h.RoomOccupancy(1))
}

func TestHub_RegisterReplacesSameUserSession(t *testing.T) {
	h := newTestHub(t)
	room := &domain.Room{ID: 1, Capacity: 10}

	stale := newTestClient(h, room, "alice")
	require.NoError(t, h.Register(stale))
	fresh := newTestClient(h, room, "alice")
	require.NoError(t, h.Register(fresh))

	assert.Equal(t, 1, h.RoomOccupancy(1))
	waitForClosed(t, stale)

	// The evicted session's late unregister is a no-op.
	h.Unregister(stale)
	assert.Equal(t, 1, h.RoomOccupancy(1))
}

func TestHub_UnregisterReleasesEmptiedRoom(t *testing.T) {
	h := newTestHub(t)
	room := &domain.Room{ID: 1, Capacity: 10}

	alice := newTestClient(h, room, "alice")
	require.NoError(t, h.Register(alice))
	require.Equal(t, 1, h.ActiveRooms())

	h.Unregister(alice)
	assert.Equal(t, 0, h.ActiveRooms())
	assert.Equal(t, 0, h.RoomOccupancy(1))

	// Idempotent.
	h.Unregister(alice)
	assert.Equal(t, 0, h.ActiveRooms())
}

func TestHub_UnregisterAnnouncesLeave(t *testing.T) {
	h := newTestHub(t)
	room := &domain.Room{ID: 1, Capacity: 10}

	alice := newTestClient(h, room, "alice")
	bob := newTestClient(h, room, "bob")
	require.NoError(t, h.Register(alice))
	require.NoError(t, h.Register(bob))

	h.Unregister(bob)
	waitForType(t, alice, MsgUserLeft)
}

func TestHub_PresenceBroadcastExcludesSender(t *testing.T) {
	h := newTestHub(t)
	room := &domain.Room{ID: 1, Capacity: 10}

	alice := newTestClient(h, room, "alice")
	bob := newTestClient(h, room, "bob")
	require.NoError(t, h.Register(alice))
	require.NoError(t, h.Register(bob))

	h.route(alice, []byte(`{"type":"presence","activity":{"cursor_position":7,"typing":true}}`))
	waitForType(t, bob, MsgPresence)

	// Bob got the frame, so the room loop is done with it; the sender is
	// never a broadcast target, so nothing can still be in flight for Alice.
	assert.NotContains(t, drainTypes(t, alice), MsgPresence)
}

func TestHub_CursorBroadcastExcludesSender(t *testing.T) {
	h := newTestHub(t)
	room := &domain.Room{ID: 1, Capacity: 10}

	alice := newTestClient(h, room, "alice")
	bob := newTestClient(h, room, "bob")
	require.NoError(t, h.Register(alice))
	require.NoError(t, h.Register(bob))

	h.route(alice, []byte(`{"type":"cursor","position":12}`))
	waitForType(t, bob, MsgCursor)
	assert.NotContains(t, drainTypes(t, alice), MsgCursor)
}

func TestHub_ChatBroadcastIncludesSender(t *testing.T) {
	h := newTestHub(t)
	room := &domain.Room{ID: 1, Capacity: 10}

	alice := newTestClient(h, room, "alice")
	bob := newTestClient(h, room, "bob")
	require.NoError(t, h.Register(alice))
	require.NoError(t, h.Register(bob))

	h.route(alice, []byte(`{"type":"chat_message","message":"hi room"}`))
	waitForType(t, alice, MsgChat)
	waitForType(t, bob, MsgChat)
}

func TestHub_DoubleUnregisterEmitsSingleUserLeft(t *testing.T) {
	h := newTestHub(t)
	room := &domain.Room{ID: 1, Capacity: 10}

	alice := newTestClient(h, room, "alice")
	bob := newTestClient(h, room, "bob")
	require.NoError(t, h.Register(alice))
	require.NoError(t, h.Register(bob))

	h.Unregister(bob)
	h.Unregister(bob)

	waitForType(t, alice, MsgUserLeft)
	assert.NotContains(t, drainTypes(t, alice), MsgUserLeft)
}

func TestHub_BroadcastToRoomReachesAllMembers(t *testing.T) {
	h := newTestHub(t)
	room := &domain.Room{ID: 1, Capacity: 10}

	alice := newTestClient(h, room, "alice")
	bob := newTestClient(h, room, "bob")
	require.NoError(t, h.Register(alice))
	require.NoError(t, h.Register(bob))

	h.BroadcastToRoom(1, map[string]string{"type": "announcement"})
	waitForType(t, alice, "announcement")
	waitForType(t, bob, "announcement")
}

func TestHub_StopClosesAllSessions(t *testing.T) {
	h := newTestHub(t)
	room := &domain.Room{ID: 1, Capacity: 10}

	alice := newTestClient(h, room, "alice")
	require.NoError(t, h.Register(alice))

	h.Stop()
	assert.Equal(t, 0, h.ActiveRooms())
	waitForClosed(t, alice)
}
