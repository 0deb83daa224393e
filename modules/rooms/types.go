package rooms

import (
	"time"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
)

// ParticipantResponse represents a participant in service responses.
type ParticipantResponse struct {
	MemberID   string     `json:"member_id"`
	JoinedAt   time.Time  `json:"joined_at"`
	LastLeftAt *time.Time `json:"last_left_at,omitempty"`
	Active     bool       `json:"active"`
}

// RoomResponse represents a room in service responses.
type RoomResponse struct {
	ID                 string                `json:"id"`
	Name               string                `json:"name"`
	CreatedBy          string                `json:"created_by"`
	GroupChat          bool                  `json:"group_chat"`
	CreatedAt          time.Time             `json:"created_at"`
	LastActivity       time.Time             `json:"last_activity"`
	LastMessageContent string                `json:"last_message_content"`
	Participants       []ParticipantResponse `json:"participants"`
}

// toParticipantResponse converts a Participant entity to its response shape.
func toParticipantResponse(p *chat.Participant) ParticipantResponse {
	return ParticipantResponse{
		MemberID:   p.MemberID,
		JoinedAt:   p.JoinedAt,
		LastLeftAt: p.LastLeftAt,
		Active:     p.Active,
	}
}

// toRoomResponse converts a Room entity to its response shape.
func toRoomResponse(room *chat.Room) RoomResponse {
	participants := make([]ParticipantResponse, 0, len(room.Participants))
	for i := range room.Participants {
		participants = append(participants, toParticipantResponse(&room.Participants[i]))
	}
	return RoomResponse{
		ID:                 room.ID,
		Name:               room.Name,
		CreatedBy:          room.CreatedBy,
		GroupChat:          room.GroupChat,
		CreatedAt:          room.CreatedAt,
		LastActivity:       room.LastActivity,
		LastMessageContent: room.LastMessageContent,
		Participants:       participants,
	}
}

// CreateRoomRequest represents a create-room request.
type CreateRoomRequest struct {
	Name      string `json:"name"`
	CreatorID string `json:"creator_id"`
	GroupChat bool   `json:"group_chat"`
}

// CreateGroupRoomRequest represents a create-group-room request.
type CreateGroupRoomRequest struct {
	Name      string   `json:"name"`
	CreatorID string   `json:"creator_id"`
	MemberIDs []string `json:"member_ids"`
}

// DirectRoomRequest represents a get-or-create-direct-room request.
type DirectRoomRequest struct {
	MemberA string `json:"member_a"`
	MemberB string `json:"member_b"`
}

// DirectRoomResponse represents a get-or-create-direct-room response.
type DirectRoomResponse struct {
	Room    RoomResponse `json:"room"`
	Created bool         `json:"created"`
}

// GetRoomRequest represents a get-room request.
type GetRoomRequest struct {
	RoomID string `json:"room_id"`
}

// ListRoomsRequest represents a list-rooms request.
type ListRoomsRequest struct {
	MemberID string `json:"member_id"`
}

// ListRoomsResponse represents a list-rooms response.
type ListRoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
	Total int            `json:"total"`
}

// AddParticipantRequest represents an add-participant request.
type AddParticipantRequest struct {
	RoomID      string `json:"room_id"`
	MemberID    string `json:"member_id"`
	AllowRejoin bool   `json:"allow_rejoin"`
}

// AddParticipantResponse represents an add-participant response.
type AddParticipantResponse struct {
	Changed bool `json:"changed"`
}

// RemoveParticipantRequest represents a remove-participant request.
type RemoveParticipantRequest struct {
	RoomID   string `json:"room_id"`
	MemberID string `json:"member_id"`
}

// RemoveParticipantResponse represents a remove-participant response.
type RemoveParticipantResponse struct {
	RoomDeleted bool `json:"room_deleted"`
}

// GetParticipantRequest represents a get-participant request.
type GetParticipantRequest struct {
	RoomID   string `json:"room_id"`
	MemberID string `json:"member_id"`
}

// GetParticipantResponse represents a get-participant response.
type GetParticipantResponse struct {
	Found       bool                `json:"found"`
	Participant ParticipantResponse `json:"participant,omitempty"`
}

// TouchRoomRequest represents a touch-room request.
type TouchRoomRequest struct {
	RoomID             string `json:"room_id"`
	LastMessageContent string `json:"last_message_content"`
}

// TouchRoomResponse represents a touch-room response.
type TouchRoomResponse struct {
	Touched bool `json:"touched"`
}
