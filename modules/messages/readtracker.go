package messages

import (
	"context"
	"log"
	"time"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
	"github.com/dddd2356/sunhan-websocket-backend/events"
	"github.com/dddd2356/sunhan-websocket-backend/modules/rooms"
)

// windowStart computes the start of a member's visibility window. A member
// who never left, or whose join predates the room itself, sees everything
// since room creation; otherwise only messages after their latest rejoin.
func windowStart(room *rooms.RoomResponse, participant *rooms.ParticipantResponse) time.Time {
	if participant.LastLeftAt == nil || participant.JoinedAt.Before(room.CreatedAt) {
		return room.CreatedAt
	}
	return participant.JoinedAt
}

// visibleMessages returns the member's in-window slice of the room log in
// ascending timestamp order.
func (s *Service) visibleMessages(room *rooms.RoomResponse, participant *rooms.ParticipantResponse) ([]*chat.Message, error) {
	all, err := s.repo.FindByRoomAsc(room.ID)
	if err != nil {
		return nil, err
	}

	start := windowStart(room, participant)
	visible := make([]*chat.Message, 0, len(all))
	for _, msg := range all {
		if msg.Timestamp.After(start) {
			visible = append(visible, msg)
		}
	}
	return visible, nil
}

// countsTowardUnread reports whether a message contributes to the member's
// unread count. Date separators and leave notices never do; deleted messages
// and the member's own messages never do.
func countsTowardUnread(msg *chat.Message, memberID string) bool {
	if msg.Deleted {
		return false
	}
	if msg.SenderID == memberID {
		return false
	}
	if msg.Kind == chat.KindSystemDate || msg.Kind == chat.KindSystemLeave {
		return false
	}
	return !msg.ReadByMember(memberID)
}

// unreadCountFor computes a member's unread count from the room snapshot.
// Members without a participant record have nothing unread.
func (s *Service) unreadCountFor(room *rooms.RoomResponse, memberID string) (int64, error) {
	participant, ok := findParticipant(room, memberID)
	if !ok {
		return 0, nil
	}

	visible, err := s.visibleMessages(room, participant)
	if err != nil {
		return 0, err
	}

	var count int64
	for _, msg := range visible {
		if countsTowardUnread(msg, memberID) {
			count++
		}
	}
	return count, nil
}

// UnreadCount returns the member's current unread count for a room. The
// count is always recomputed from the log, never cached.
func (s *Service) UnreadCount(ctx context.Context, roomID, memberID string) (int64, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return s.unreadCountFor(room, memberID)
}

// unreadCountsMap recomputes the unread map for every active participant.
func (s *Service) unreadCountsMap(room *rooms.RoomResponse) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, p := range room.Participants {
		if !p.Active {
			continue
		}
		count, err := s.unreadCountFor(room, p.MemberID)
		if err != nil {
			return nil, err
		}
		counts[p.MemberID] = count
	}
	return counts, nil
}

// broadcastUnreadCounts publishes the room's fresh unread map. When preview
// is empty the room's stored last-message content is used. Failures are
// logged and swallowed: the write this follows has already committed.
func (s *Service) broadcastUnreadCounts(ctx context.Context, roomID, readerID, preview string) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		log.Printf("[messages] Skipping unread broadcast for room %s: %v", roomID, err)
		return
	}

	counts, err := s.unreadCountsMap(room)
	if err != nil {
		log.Printf("[messages] Failed to compute unread counts for room %s: %v", roomID, err)
		return
	}

	if preview == "" {
		preview = room.LastMessageContent
	}

	s.broadcaster.UnreadCounts(events.UnreadCountsEvent{
		RoomID:             roomID,
		ReaderID:           readerID,
		UnreadCounts:       counts,
		LastMessageContent: preview,
	})
}

// GetPage returns one page of the member's visible messages in ascending
// timestamp order, marking every unread visible message as read first. A
// caller who is not an active participant gets an empty page.
func (s *Service) GetPage(ctx context.Context, roomID, memberID string, page, size int) ([]*chat.Message, int64, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}

	participant, ok := findParticipant(room, memberID)
	if !ok || !participant.Active {
		return []*chat.Message{}, 0, nil
	}

	visible, err := s.visibleMessages(room, participant)
	if err != nil {
		return nil, 0, err
	}

	// Reading the page acknowledges everything in it.
	changed := false
	for _, msg := range visible {
		if msg.SenderID == memberID || msg.ReadByMember(memberID) {
			continue
		}
		msg.AddReadBy(memberID)
		if err := s.repo.Update(msg); err != nil {
			return nil, 0, err
		}
		changed = true
	}
	if changed {
		s.broadcastUnreadCounts(ctx, roomID, memberID, "")
	}

	total := int64(len(visible))
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	start := page * size
	if start >= len(visible) {
		return []*chat.Message{}, total, nil
	}
	end := start + size
	if end > len(visible) {
		end = len(visible)
	}
	return visible[start:end], total, nil
}

// MarkRead records that a member has read a single message. The sender is
// never added to their own ReadBy. On change the read mark and the fresh
// unread map are broadcast.
func (s *Service) MarkRead(ctx context.Context, messageID, memberID string) error {
	message, err := s.repo.FindByID(messageID)
	if err != nil {
		return err
	}

	if memberID == message.SenderID || !message.AddReadBy(memberID) {
		return nil
	}

	if err := s.repo.Update(message); err != nil {
		return err
	}

	s.broadcaster.MessageRead(events.MessageReadEvent{
		RoomID:    message.RoomID,
		MessageID: message.ID,
		MemberID:  memberID,
	})
	s.broadcastUnreadCounts(ctx, message.RoomID, memberID, "")

	return nil
}

// MarkAllRead marks every unread visible message in the room as read by the
// member, then publishes a single trailing unread broadcast. Returns the
// number of messages whose read set changed.
func (s *Service) MarkAllRead(ctx context.Context, roomID, memberID string) (int, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}

	participant, ok := findParticipant(room, memberID)
	if !ok {
		return 0, nil
	}

	visible, err := s.visibleMessages(room, participant)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, msg := range visible {
		if msg.SenderID == memberID || !msg.AddReadBy(memberID) {
			continue
		}
		if err := s.repo.Update(msg); err != nil {
			return changed, err
		}
		s.broadcaster.MessageRead(events.MessageReadEvent{
			RoomID:    roomID,
			MessageID: msg.ID,
			MemberID:  memberID,
		})
		changed++
	}

	if changed > 0 {
		s.broadcastUnreadCounts(ctx, roomID, memberID, "")
	}
	return changed, nil
}
