package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
)

// MessagePayload is the wire shape of a message inside broadcast events.
type MessagePayload struct {
	ID                     string    `json:"id"`
	RoomID                 string    `json:"room_id"`
	SenderID               string    `json:"sender_id"`
	SenderName             string    `json:"sender_name"`
	Content                string    `json:"content"`
	Timestamp              time.Time `json:"timestamp"`
	Kind                   string    `json:"kind"`
	AttachmentType         string    `json:"attachment_type,omitempty"`
	AttachmentURL          string    `json:"attachment_url,omitempty"`
	AttachmentName         string    `json:"attachment_name,omitempty"`
	ReadBy                 []string  `json:"read_by"`
	ParticipantCountAtSend int       `json:"participant_count_at_send"`
	Deleted                bool      `json:"deleted"`
}

// NewMessagePayload converts a domain message into its event shape.
func NewMessagePayload(m *chat.Message) MessagePayload {
	return MessagePayload{
		ID:                     m.ID,
		RoomID:                 m.RoomID,
		SenderID:               m.SenderID,
		SenderName:             m.SenderName,
		Content:                m.Content,
		Timestamp:              m.Timestamp,
		Kind:                   m.Kind,
		AttachmentType:         m.AttachmentType,
		AttachmentURL:          m.AttachmentURL,
		AttachmentName:         m.AttachmentName,
		ReadBy:                 m.ReadBy,
		ParticipantCountAtSend: m.ParticipantCountAtSend,
		Deleted:                m.Deleted,
	}
}

// MessageSentEvent is emitted after a message (chat or system) is committed
// to a room's log.
type MessageSentEvent struct {
	RoomID  string         `json:"room_id"`
	Message MessagePayload `json:"message"`
}

// MessageSentV1 is the typed event definition for new messages.
// Subject: events.messages.v1.message-sent
var MessageSentV1 = helper.EventDefinition[MessageSentEvent](
	"messages", "MessageSent", "v1",
)

// MessageDeletedEvent is emitted after a message is soft-deleted. The
// payload carries the tombstoned message state.
type MessageDeletedEvent struct {
	RoomID  string         `json:"room_id"`
	Message MessagePayload `json:"message"`
}

// MessageDeletedV1 is the typed event definition for message deletion.
var MessageDeletedV1 = helper.EventDefinition[MessageDeletedEvent](
	"messages", "MessageDeleted", "v1",
)

// MessageReadEvent is emitted when a single message gains a reader.
type MessageReadEvent struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	MemberID  string `json:"member_id"`
}

// MessageReadV1 is the typed event definition for per-message read marks.
var MessageReadV1 = helper.EventDefinition[MessageReadEvent](
	"messages", "MessageRead", "v1",
)

// UnreadCountsEvent carries the freshly recomputed unread map for every
// active participant of a room, published after any mutation that changes
// unread state.
type UnreadCountsEvent struct {
	RoomID             string           `json:"room_id"`
	ReaderID           string           `json:"reader_id,omitempty"`
	UnreadCounts       map[string]int64 `json:"unread_counts"`
	LastMessageContent string           `json:"last_message_content"`
}

// UnreadCountsV1 is the typed event definition for unread-count updates.
var UnreadCountsV1 = helper.EventDefinition[UnreadCountsEvent](
	"messages", "UnreadCounts", "v1",
)

// Participant-change actions.
const (
	ParticipantJoined  = "joined"
	ParticipantLeft    = "left"
	ParticipantInvited = "invited"
	RoomCreated        = "created"
	RoomDeleted        = "deleted"
)

// ParticipantsChangedEvent is emitted after any participant-set mutation,
// carrying the canonical post-mutation active membership.
type ParticipantsChangedEvent struct {
	RoomID        string    `json:"room_id"`
	Action        string    `json:"action"`
	MemberID      string    `json:"member_id,omitempty"`
	ActiveMembers []string  `json:"active_members"`
	Timestamp     time.Time `json:"timestamp"`
}

// ParticipantsChangedV1 is the typed event definition for membership changes.
var ParticipantsChangedV1 = helper.EventDefinition[ParticipantsChangedEvent](
	"rooms", "ParticipantsChanged", "v1",
)
