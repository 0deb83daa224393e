package rooms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
	"github.com/dddd2356/sunhan-websocket-backend/modules/directory"
)

// ErrNotDirectRoom is returned when a direct-only operation hits a group room.
var ErrNotDirectRoom = errors.New("room is not a direct chat")

// ErrNotGroupRoom is returned when a group-only operation hits a direct room.
var ErrNotGroupRoom = errors.New("room is not a group chat")

// DirectRoomName is the name given to rooms created through the direct path.
const DirectRoomName = "DirectChat"

// EmptyRoomPolicy controls what happens to a room when its last active
// participant leaves. Direct rooms default to deletion; group rooms are
// retained so their history survives a full exodus.
type EmptyRoomPolicy struct {
	DeleteDirect bool
	DeleteGroup  bool
}

// DefaultEmptyRoomPolicy returns the default empty-room policy.
func DefaultEmptyRoomPolicy() EmptyRoomPolicy {
	return EmptyRoomPolicy{
		DeleteDirect: true,
		DeleteGroup:  false,
	}
}

// Service provides room and participant lifecycle operations.
type Service struct {
	repo      *Repository
	directory directory.Port
	policy    EmptyRoomPolicy
}

// NewService creates a new rooms service.
func NewService(repo *Repository, dir directory.Port, policy EmptyRoomPolicy) *Service {
	return &Service{
		repo:      repo,
		directory: dir,
		policy:    policy,
	}
}

// resolveMember verifies that the member exists in the directory.
func (s *Service) resolveMember(ctx context.Context, memberID string) error {
	if memberID == "" {
		return fmt.Errorf("member id is required")
	}
	if _, err := s.directory.Lookup(ctx, memberID); err != nil {
		return fmt.Errorf("failed to resolve member %s: %w", memberID, err)
	}
	return nil
}

// CreateRoom creates a room with the creator as its first active participant.
func (s *Service) CreateRoom(ctx context.Context, name, creatorID string, groupChat bool) (*chat.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("room name is required")
	}
	if err := s.resolveMember(ctx, creatorID); err != nil {
		return nil, err
	}

	now := time.Now()
	room := &chat.Room{
		ID:                 uuid.New().String(),
		Name:               name,
		CreatedBy:          creatorID,
		GroupChat:          groupChat,
		CreatedAt:          now,
		LastActivity:       now,
		LastMessageContent: chat.RoomCreatedText,
		Participants: []chat.Participant{
			{MemberID: creatorID, JoinedAt: now, Active: true},
		},
	}

	if err := s.repo.Create(room); err != nil {
		return nil, err
	}
	return room, nil
}

// CreateGroupRoom creates a group room with the creator and the given members
// all active. Every member must resolve in the directory.
func (s *Service) CreateGroupRoom(ctx context.Context, name, creatorID string, memberIDs []string) (*chat.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("room name is required")
	}
	if err := s.resolveMember(ctx, creatorID); err != nil {
		return nil, err
	}

	now := time.Now()
	participants := []chat.Participant{
		{MemberID: creatorID, JoinedAt: now, Active: true},
	}
	seen := map[string]bool{creatorID: true}
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		if err := s.resolveMember(ctx, id); err != nil {
			return nil, err
		}
		seen[id] = true
		participants = append(participants, chat.Participant{
			MemberID: id, JoinedAt: now, Active: true,
		})
	}

	room := &chat.Room{
		ID:                 uuid.New().String(),
		Name:               name,
		CreatedBy:          creatorID,
		GroupChat:          true,
		CreatedAt:          now,
		LastActivity:       now,
		LastMessageContent: chat.RoomCreatedText,
		Participants:       participants,
	}

	if err := s.repo.Create(room); err != nil {
		return nil, err
	}
	return room, nil
}

// GetOrCreateDirectRoom returns the direct room for the unordered pair,
// creating it on first use. When the room already exists, any party that
// previously left is reactivated with a fresh join timestamp.
func (s *Service) GetOrCreateDirectRoom(ctx context.Context, memberA, memberB string) (*chat.Room, bool, error) {
	if memberA == memberB {
		return nil, false, fmt.Errorf("cannot open a direct chat with yourself")
	}
	if err := s.resolveMember(ctx, memberA); err != nil {
		return nil, false, err
	}
	if err := s.resolveMember(ctx, memberB); err != nil {
		return nil, false, err
	}

	room, err := s.repo.FindDirectRoom(memberA, memberB)
	if err == nil {
		if err := s.reactivateParties(room); err != nil {
			return nil, false, err
		}
		return room, false, nil
	}
	if !errors.Is(err, ErrRoomNotFound) {
		return nil, false, err
	}

	now := time.Now()
	room = &chat.Room{
		ID:                 uuid.New().String(),
		Name:               DirectRoomName,
		CreatedBy:          memberA,
		GroupChat:          false,
		CreatedAt:          now,
		LastActivity:       now,
		LastMessageContent: chat.RoomCreatedText,
		Participants: []chat.Participant{
			{MemberID: memberA, JoinedAt: now, Active: true},
			{MemberID: memberB, JoinedAt: now, Active: true},
		},
	}

	if err := s.repo.Create(room); err != nil {
		return nil, false, err
	}
	return room, true, nil
}

// reactivateParties rejoins every inactive party of an existing direct room.
func (s *Service) reactivateParties(room *chat.Room) error {
	now := time.Now()
	for i := range room.Participants {
		p := &room.Participants[i]
		if p.Active {
			continue
		}
		p.Rejoin(now)
		if err := s.repo.SaveParticipant(p); err != nil {
			return err
		}
	}
	return nil
}

// GetRoom retrieves a room with its participants.
func (s *Service) GetRoom(_ context.Context, roomID string) (*chat.Room, error) {
	return s.repo.FindByID(roomID)
}

// ListRoomsForMember returns the member's active rooms, most recent first.
func (s *Service) ListRoomsForMember(_ context.Context, memberID string) ([]*chat.Room, error) {
	return s.repo.ListForMember(memberID)
}

// GetParticipant returns the member's participant record in a room.
func (s *Service) GetParticipant(_ context.Context, roomID, memberID string) (*chat.Participant, error) {
	return s.repo.FindParticipant(roomID, memberID)
}

// AddParticipant adds a member to a room. A missing record is created active;
// an inactive record is rejoined only when allowRejoin is set; an active
// record is left untouched. Returns true when membership actually changed.
func (s *Service) AddParticipant(ctx context.Context, roomID, memberID string, allowRejoin bool) (bool, error) {
	if _, err := s.repo.FindByID(roomID); err != nil {
		return false, err
	}
	if err := s.resolveMember(ctx, memberID); err != nil {
		return false, err
	}

	participant, err := s.repo.FindParticipant(roomID, memberID)
	if errors.Is(err, ErrParticipantNotFound) {
		p := &chat.Participant{
			RoomID:   roomID,
			MemberID: memberID,
			JoinedAt: time.Now(),
			Active:   true,
		}
		if err := s.repo.CreateParticipant(p); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	if participant.Active || !allowRejoin {
		return false, nil
	}

	participant.Rejoin(time.Now())
	if err := s.repo.SaveParticipant(participant); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveParticipant deactivates a member's membership, keeping the record for
// visibility-window computation. When the room goes empty the configured
// policy decides whether it is deleted. Returns true when the room was deleted.
func (s *Service) RemoveParticipant(_ context.Context, roomID, memberID string) (bool, error) {
	room, err := s.repo.FindByID(roomID)
	if err != nil {
		return false, err
	}

	participant, err := s.repo.FindParticipant(roomID, memberID)
	if err != nil {
		return false, err
	}
	if !participant.Active {
		return false, nil
	}

	participant.Leave(time.Now())
	if err := s.repo.SaveParticipant(participant); err != nil {
		return false, err
	}

	remaining, err := s.repo.CountActiveParticipants(roomID)
	if err != nil {
		return false, err
	}
	if remaining > 0 {
		return false, nil
	}

	deleteRoom := s.policy.DeleteGroup
	if !room.GroupChat {
		deleteRoom = s.policy.DeleteDirect
	}
	if !deleteRoom {
		return false, nil
	}

	if err := s.repo.Delete(roomID); err != nil {
		return false, err
	}
	return true, nil
}

// Touch records message activity against a room.
func (s *Service) Touch(_ context.Context, roomID, lastMessageContent string) error {
	return s.repo.Touch(roomID, lastMessageContent)
}
