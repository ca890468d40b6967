package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"collab-engine/internal/domain"
	"collab-engine/internal/repository"
)

// RoomService owns durable room records and room-level reads. Live session
// state (connected members, transport handles) belongs to the hub.
type RoomService struct {
	roomRepo repository.RoomRepository
	chatRepo repository.ChatRepository
	fileRepo repository.FileRepository
}

// RoomStats is the per-room view reported by the stats endpoints.
type RoomStats struct {
	RoomID       uint  `json:"room_id"`
	ActiveUsers  int   `json:"active_users"`
	Capacity     int   `json:"capacity"`
	TrackedFiles int   `json:"tracked_files"`
	ChatMessages int64 `json:"chat_messages"`
}

// NewRoomService creates a RoomService.
func NewRoomService(roomRepo repository.RoomRepository, chatRepo repository.ChatRepository, fileRepo repository.FileRepository) *RoomService {
	if roomRepo == nil || chatRepo == nil || fileRepo == nil {
		panic("all repositories must be non-nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo, chatRepo: chatRepo, fileRepo: fileRepo}
}

// CreateRoom creates a durable room record for a project.
func (s *RoomService) CreateRoom(ctx context.Context, projectID, name, ownerID, visibility string, maxUsers int) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"project_id": projectID, "owner_id": ownerID})

	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(ownerID) == "" {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(name) == "" {
		name = "Untitled room"
	}
	if maxUsers <= 0 {
		maxUsers = domain.DefaultRoomCapacity
	}
	if visibility != domain.VisibilityPublic {
		visibility = domain.VisibilityPrivate
	}

	room := &domain.Room{
		ProjectID:  projectID,
		OwnerID:    ownerID,
		Name:       name,
		Capacity:   maxUsers,
		Visibility: visibility,
		LastActive: time.Now().UTC(),
	}
	if err := s.roomRepo.Save(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to save new room")
		return nil, ErrInternalServer
	}

	logCtx.WithField("room_id", room.ID).Info("Room created")
	return room, nil
}

// GetRoom returns the durable room record.
func (s *RoomService) GetRoom(ctx context.Context, roomID uint) (*domain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to load room")
		return nil, ErrInternalServer
	}
	return room, nil
}

// ListProjectRooms lists rooms bound to a project, newest first.
func (s *RoomService) ListProjectRooms(ctx context.Context, projectID string) ([]domain.Room, error) {
	rooms, err := s.roomRepo.FindByProject(ctx, projectID)
	if err != nil {
		logrus.WithError(err).WithField("project_id", projectID).Error("Failed to list project rooms")
		return nil, ErrInternalServer
	}
	return rooms, nil
}

// RoomStats assembles the stats view for one room. activeUsers comes from
// the hub, which owns the live membership map.
func (s *RoomService) RoomStats(ctx context.Context, roomID uint, activeUsers int) (*RoomStats, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	files, err := s.fileRepo.FindByRoom(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to count room files")
		return nil, ErrInternalServer
	}
	msgs, err := s.chatRepo.CountByRoom(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to count room messages")
		return nil, ErrInternalServer
	}
	return &RoomStats{
		RoomID:       room.ID,
		ActiveUsers:  activeUsers,
		Capacity:     room.Capacity,
		TrackedFiles: len(files),
		ChatMessages: msgs,
	}, nil
}

// ListFiles returns the persisted files of a room, used to assemble the
// initial state pushed to a joining client.
func (s *RoomService) ListFiles(ctx context.Context, roomID uint) ([]domain.FileVersion, error) {
	files, err := s.fileRepo.FindByRoom(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to list room files")
		return nil, ErrInternalServer
	}
	return files, nil
}

// TouchActive bumps last_active. Failures are logged only; activity
// bookkeeping never fails a user-visible operation.
func (s *RoomService) TouchActive(ctx context.Context, roomID uint) {
	if err := s.roomRepo.TouchLastActive(ctx, roomID, time.Now().UTC()); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to touch room last_active")
	}
}
