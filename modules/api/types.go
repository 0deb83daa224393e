package api

import (
	"github.com/dddd2356/sunhan-websocket-backend/modules/messages"
	"github.com/dddd2356/sunhan-websocket-backend/modules/rooms"
)

// ErrorResponse is the error body returned by all handlers.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// TokenRequest is the body of POST /api/v1/auth/token.
type TokenRequest struct {
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// CreateRoomRequest is the body of POST /api/v1/chat/rooms.
type CreateRoomRequest struct {
	Name      string `json:"name"`
	GroupChat bool   `json:"group_chat"`
}

// DirectRoomRequest is the body of POST /api/v1/chat/direct.
type DirectRoomRequest struct {
	MemberID string `json:"member_id"`
}

// GroupRoomRequest is the body of POST /api/v1/chat/group.
type GroupRoomRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

// AddParticipantRequest is the body of POST /api/v1/chat/rooms/:id/participants.
type AddParticipantRequest struct {
	MemberID string `json:"member_id"`
}

// SendMessageRequest is the body of POST /api/v1/chat/rooms/:id/messages.
type SendMessageRequest struct {
	Content        string `json:"content"`
	AttachmentType string `json:"attachment_type,omitempty"`
	AttachmentURL  string `json:"attachment_url,omitempty"`
	AttachmentName string `json:"attachment_name,omitempty"`
}

// SendDirectRequest is the body of POST /api/v1/chat/direct/message.
type SendDirectRequest struct {
	RoomID  string `json:"room_id"`
	Content string `json:"content"`
	Invite  bool   `json:"invite"`
}

// RoomSummary is one entry of the caller's room list, pairing the room
// with the caller's unread count.
type RoomSummary struct {
	Room        rooms.RoomResponse `json:"room"`
	UnreadCount int64              `json:"unread_count"`
}

// RoomListResponse is the body of GET /api/v1/chat/rooms.
type RoomListResponse struct {
	Rooms []RoomSummary `json:"rooms"`
}

// ParticipantListResponse is the body of GET /api/v1/chat/rooms/:id/participants.
type ParticipantListResponse struct {
	RoomID       string                      `json:"room_id"`
	Participants []rooms.ParticipantResponse `json:"participants"`
}

// LeaveRoomResponse is the body of DELETE /api/v1/chat/rooms/:id/participants/me.
type LeaveRoomResponse struct {
	RoomID      string `json:"room_id"`
	RoomDeleted bool   `json:"room_deleted"`
}

// MessagePageResponse is the body of GET /api/v1/chat/rooms/:id/messages.
type MessagePageResponse struct {
	RoomID   string                     `json:"room_id"`
	Messages []messages.MessageResponse `json:"messages"`
	Total    int64                      `json:"total"`
	Page     int                        `json:"page"`
	Size     int                        `json:"size"`
}

// UnreadCountResponse is the body of GET /api/v1/chat/rooms/:id/unread-count.
type UnreadCountResponse struct {
	RoomID   string `json:"room_id"`
	MemberID string `json:"member_id"`
	Count    int64  `json:"count"`
}

// MarkAllReadResponse is the body of POST /api/v1/chat/rooms/:id/read.
type MarkAllReadResponse struct {
	RoomID  string `json:"room_id"`
	Changed int    `json:"changed"`
}
