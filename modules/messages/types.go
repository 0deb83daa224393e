package messages

import (
	"time"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
)

// MessageResponse represents a message in service responses.
type MessageResponse struct {
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

// toMessageResponse converts a Message entity to its response shape.
func toMessageResponse(m *chat.Message) MessageResponse {
	return MessageResponse{
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

// SendMessageRequest represents a send-message request.
type SendMessageRequest struct {
	RoomID         string `json:"room_id"`
	SenderID       string `json:"sender_id"`
	Content        string `json:"content"`
	AttachmentType string `json:"attachment_type,omitempty"`
	AttachmentURL  string `json:"attachment_url,omitempty"`
	AttachmentName string `json:"attachment_name,omitempty"`
}

// SendDirectMessageRequest represents a send-direct-message request.
type SendDirectMessageRequest struct {
	RoomID   string `json:"room_id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	Invite   bool   `json:"invite"`
}

// SystemMessageRequest represents a create-system-message request.
type SystemMessageRequest struct {
	RoomID  string `json:"room_id"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// DeleteMessageRequest represents a delete-message request.
type DeleteMessageRequest struct {
	MessageID   string `json:"message_id"`
	RequesterID string `json:"requester_id"`
}

// GetMessagesRequest represents a paged get-messages request.
type GetMessagesRequest struct {
	RoomID   string `json:"room_id"`
	MemberID string `json:"member_id"`
	Page     int    `json:"page"`
	Size     int    `json:"size"`
}

// GetMessagesResponse represents a paged get-messages response.
type GetMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Size     int               `json:"size"`
}

// UnreadCountRequest represents an unread-count request.
type UnreadCountRequest struct {
	RoomID   string `json:"room_id"`
	MemberID string `json:"member_id"`
}

// UnreadCountResponse represents an unread-count response.
type UnreadCountResponse struct {
	RoomID   string `json:"room_id"`
	MemberID string `json:"member_id"`
	Count    int64  `json:"count"`
}

// MarkReadRequest represents a mark-read request.
type MarkReadRequest struct {
	MessageID string `json:"message_id"`
	MemberID  string `json:"member_id"`
}

// MarkReadResponse represents a mark-read response.
type MarkReadResponse struct {
	Marked bool `json:"marked"`
}

// MarkAllReadRequest represents a mark-all-read request.
type MarkAllReadRequest struct {
	RoomID   string `json:"room_id"`
	MemberID string `json:"member_id"`
}

// MarkAllReadResponse represents a mark-all-read response.
type MarkAllReadResponse struct {
	Changed int `json:"changed"`
}
