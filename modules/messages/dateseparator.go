package messages

import (
	"context"
	"time"

	"github.com/google/uuid"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
	"github.com/dddd2356/sunhan-websocket-backend/events"
)

// dateSeparatorLayout formats a separator's content, e.g. "2026년 08월 30일".
const dateSeparatorLayout = "2006년 01월 02일"

// sameCalendarDay reports whether two instants fall on the same local date.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// insertDateSeparatorIfNeeded inserts a date separator before the next
// message when the room is fresh or the calendar day has changed since the
// last chat message. The caller holds the room lock.
func (s *Service) insertDateSeparatorIfNeeded(ctx context.Context, roomID string) error {
	lastTwo, err := s.repo.FindTopN(roomID, 2)
	if err != nil {
		return err
	}

	now := time.Now()

	// A room with fewer than two messages is still on its first exchange.
	if len(lastTwo) < 2 {
		return s.insertDateSeparator(ctx, roomID, now)
	}

	// Compare today against the most recent chat message among the two;
	// separators and other notices don't reset the day.
	var lastChat *chat.Message
	for _, msg := range lastTwo {
		if msg.Kind == chat.KindChat {
			lastChat = msg
			break
		}
	}

	if lastChat == nil || !sameCalendarDay(lastChat.Timestamp, now) {
		return s.insertDateSeparator(ctx, roomID, now)
	}
	return nil
}

// insertDateSeparator persists and broadcasts a separator for the given day.
func (s *Service) insertDateSeparator(_ context.Context, roomID string, day time.Time) error {
	separator := &chat.Message{
		ID:         uuid.New().String(),
		RoomID:     roomID,
		SenderID:   chat.SystemSenderID,
		SenderName: SystemSenderName,
		Content:    day.Format(dateSeparatorLayout),
		Timestamp:  day,
		Kind:       chat.KindSystemDate,
		ReadBy:     []string{},
	}

	if err := s.repo.Save(separator); err != nil {
		return err
	}

	s.broadcaster.MessageSent(events.MessageSentEvent{
		RoomID:  roomID,
		Message: events.NewMessagePayload(separator),
	})
	return nil
}
