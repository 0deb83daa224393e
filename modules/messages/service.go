package messages

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
	"github.com/dddd2356/sunhan-websocket-backend/events"
	"github.com/dddd2356/sunhan-websocket-backend/modules/attachments"
	"github.com/dddd2356/sunhan-websocket-backend/modules/directory"
	"github.com/dddd2356/sunhan-websocket-backend/modules/rooms"
)

// ErrPermissionDenied is returned when a member attempts an operation on a
// message they do not own.
var ErrPermissionDenied = errors.New("permission denied")

// inviteHistoryDepth is how many recent messages are scanned for previous
// senders when an invite reopens a direct conversation.
const inviteHistoryDepth = 50

// SystemSenderName is the display name attached to system messages.
const SystemSenderName = "System"

// AttachmentInput carries an already-stored attachment into a send.
type AttachmentInput struct {
	Type string
	URL  string
	Name string
}

// Service provides message log operations: sends, soft deletes, read
// tracking and date separators. Sends are serialized per room so the
// separator check and the participant snapshot read a consistent state.
type Service struct {
	repo        *Repository
	rooms       rooms.Port
	directory   directory.Port
	attachments attachments.Port
	broadcaster Broadcaster

	mu        sync.Mutex
	roomLocks map[string]*sync.Mutex
}

// NewService creates a new message service.
func NewService(repo *Repository, roomsPort rooms.Port, dir directory.Port, att attachments.Port, broadcaster Broadcaster) *Service {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	return &Service{
		repo:        repo,
		rooms:       roomsPort,
		directory:   dir,
		attachments: att,
		broadcaster: broadcaster,
		roomLocks:   make(map[string]*sync.Mutex),
	}
}

// roomLock returns the per-room send mutex, creating it on first use.
func (s *Service) roomLock(roomID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		s.roomLocks[roomID] = lock
	}
	return lock
}

// activeCountExcluding counts the room's active participants other than the
// given member. The count is taken before the sender is auto-added, so a
// returning sender is never part of their own denominator.
func activeCountExcluding(room *rooms.RoomResponse, memberID string) int {
	count := 0
	for _, p := range room.Participants {
		if p.Active && p.MemberID != memberID {
			count++
		}
	}
	return count
}

// hasActiveParticipant reports whether the member is active in the room.
func hasActiveParticipant(room *rooms.RoomResponse, memberID string) bool {
	for _, p := range room.Participants {
		if p.MemberID == memberID && p.Active {
			return true
		}
	}
	return false
}

// findParticipant returns the member's participant record from the room
// snapshot, if any.
func findParticipant(room *rooms.RoomResponse, memberID string) (*rooms.ParticipantResponse, bool) {
	for i := range room.Participants {
		if room.Participants[i].MemberID == memberID {
			return &room.Participants[i], true
		}
	}
	return nil, false
}

// Send appends a chat message to a room's log. The sender is auto-added to
// the room (with rejoin) when not an active participant, the room preview is
// updated and the message plus fresh unread counts are broadcast.
func (s *Service) Send(ctx context.Context, roomID, senderID, content string, attachment *AttachmentInput) (*chat.Message, error) {
	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	return s.sendChat(ctx, room, senderID, content, attachment)
}

// SendDirect appends a message to a direct room. With invite set, every
// distinct sender in recent history is brought back into the room and the
// message is persisted as an invite notice that even the sender owes a read
// on; otherwise it behaves like a plain send.
func (s *Service) SendDirect(ctx context.Context, roomID, senderID, content string, invite bool) (*chat.Message, error) {
	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.GroupChat {
		return nil, rooms.ErrNotDirectRoom
	}

	if !invite {
		return s.sendChat(ctx, room, senderID, content, nil)
	}
	return s.sendInvite(ctx, room, senderID, content)
}

// sendChat is the shared send path. The caller holds the room lock.
func (s *Service) sendChat(ctx context.Context, room *rooms.RoomResponse, senderID, content string, attachment *AttachmentInput) (*chat.Message, error) {
	if err := s.insertDateSeparatorIfNeeded(ctx, room.ID); err != nil {
		return nil, err
	}

	// Snapshot before the sender is auto-added.
	participantCount := activeCountExcluding(room, senderID)

	sender, err := s.directory.Lookup(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sender %s: %w", senderID, err)
	}

	if !hasActiveParticipant(room, senderID) {
		if _, err := s.rooms.AddParticipant(ctx, room.ID, senderID, true); err != nil {
			return nil, fmt.Errorf("failed to add sender to room: %w", err)
		}
	}

	message := &chat.Message{
		ID:                     uuid.New().String(),
		RoomID:                 room.ID,
		SenderID:               senderID,
		SenderName:             sender.Name,
		Content:                content,
		Timestamp:              time.Now(),
		Kind:                   chat.KindChat,
		ReadBy:                 []string{senderID},
		ParticipantCountAtSend: participantCount,
	}
	if attachment != nil {
		message.AttachmentType = attachment.Type
		message.AttachmentURL = attachment.URL
		message.AttachmentName = attachment.Name
	}

	if err := s.repo.Save(message); err != nil {
		return nil, err
	}

	preview := message.Preview()
	if err := s.rooms.Touch(ctx, room.ID, preview); err != nil {
		return nil, err
	}

	s.broadcaster.MessageSent(events.MessageSentEvent{
		RoomID:  room.ID,
		Message: events.NewMessagePayload(message),
	})
	s.broadcastUnreadCounts(ctx, room.ID, "", preview)

	return message, nil
}

// sendInvite persists an invite notice and resurrects previous conversation
// parties. The caller holds the room lock.
func (s *Service) sendInvite(ctx context.Context, room *rooms.RoomResponse, senderID, content string) (*chat.Message, error) {
	if err := s.insertDateSeparatorIfNeeded(ctx, room.ID); err != nil {
		return nil, err
	}

	participantCount := activeCountExcluding(room, senderID)

	sender, err := s.directory.Lookup(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sender %s: %w", senderID, err)
	}

	if !hasActiveParticipant(room, senderID) {
		if _, err := s.rooms.AddParticipant(ctx, room.ID, senderID, true); err != nil {
			return nil, fmt.Errorf("failed to add sender to room: %w", err)
		}
	}

	// Bring back everyone who spoke in recent history.
	recent, err := s.repo.FindTopN(room.ID, inviteHistoryDepth)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{senderID: true, chat.SystemSenderID: true}
	for _, msg := range recent {
		if seen[msg.SenderID] {
			continue
		}
		seen[msg.SenderID] = true
		if hasActiveParticipant(room, msg.SenderID) {
			continue
		}
		if _, err := s.directory.Lookup(ctx, msg.SenderID); err != nil {
			log.Printf("[messages] Skipping invite for unresolvable member %s: %v", msg.SenderID, err)
			continue
		}
		if _, err := s.rooms.AddParticipant(ctx, room.ID, msg.SenderID, true); err != nil {
			return nil, fmt.Errorf("failed to re-add participant %s: %w", msg.SenderID, err)
		}
	}

	// Empty ReadBy: the re-invited parties, and the sender, owe a read.
	message := &chat.Message{
		ID:                     uuid.New().String(),
		RoomID:                 room.ID,
		SenderID:               senderID,
		SenderName:             sender.Name,
		Content:                content,
		Timestamp:              time.Now(),
		Kind:                   chat.KindSystemInvite,
		ReadBy:                 []string{},
		ParticipantCountAtSend: participantCount,
	}

	if err := s.repo.Save(message); err != nil {
		return nil, err
	}

	if err := s.rooms.Touch(ctx, room.ID, message.Content); err != nil {
		return nil, err
	}

	s.broadcaster.MessageSent(events.MessageSentEvent{
		RoomID:  room.ID,
		Message: events.NewMessagePayload(message),
	})
	s.broadcastUnreadCounts(ctx, room.ID, "", message.Content)

	return message, nil
}

// CreateSystemMessage appends a server-inserted notice to a room's log.
func (s *Service) CreateSystemMessage(ctx context.Context, roomID, kind, content string) (*chat.Message, error) {
	switch kind {
	case chat.KindSystemJoin, chat.KindSystemLeave, chat.KindSystemInvite, chat.KindSystemDate:
	default:
		return nil, fmt.Errorf("invalid system message kind: %s", kind)
	}

	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	message := &chat.Message{
		ID:         uuid.New().String(),
		RoomID:     roomID,
		SenderID:   chat.SystemSenderID,
		SenderName: SystemSenderName,
		Content:    content,
		Timestamp:  time.Now(),
		Kind:       kind,
		ReadBy:     []string{},
	}

	if err := s.repo.Save(message); err != nil {
		return nil, err
	}

	if err := s.rooms.Touch(ctx, roomID, content); err != nil {
		return nil, err
	}

	s.broadcaster.MessageSent(events.MessageSentEvent{
		RoomID:  roomID,
		Message: events.NewMessagePayload(message),
	})

	return message, nil
}

// Delete soft-deletes a message. Only the sender may delete; the attachment
// is removed best-effort, the content is replaced by a tombstone and the
// updated message is broadcast.
func (s *Service) Delete(ctx context.Context, messageID, requesterID string) (*chat.Message, error) {
	message, err := s.repo.FindByID(messageID)
	if err != nil {
		return nil, err
	}

	if message.SenderID != requesterID {
		return nil, ErrPermissionDenied
	}

	if message.HasAttachment() {
		if err := s.attachments.Remove(ctx, message.AttachmentURL); err != nil {
			// Best-effort: an orphaned attachment must not block deletion.
			log.Printf("[messages] Failed to remove attachment %s for message %s: %v",
				message.AttachmentURL, messageID, err)
		}
		message.ClearAttachment()
	}

	message.Deleted = true
	message.Content = chat.DeletedTombstone

	if err := s.repo.Update(message); err != nil {
		return nil, err
	}

	s.broadcaster.MessageDeleted(events.MessageDeletedEvent{
		RoomID:  message.RoomID,
		Message: events.NewMessagePayload(message),
	})

	return message, nil
}
