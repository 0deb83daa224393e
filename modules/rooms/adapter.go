package rooms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Port defines the interface other modules use for room operations.
type Port interface {
	CreateRoom(ctx context.Context, name, creatorID string, groupChat bool) (*RoomResponse, error)
	CreateGroupRoom(ctx context.Context, name, creatorID string, memberIDs []string) (*RoomResponse, error)
	GetOrCreateDirectRoom(ctx context.Context, memberA, memberB string) (*DirectRoomResponse, error)
	GetRoom(ctx context.Context, roomID string) (*RoomResponse, error)
	ListRooms(ctx context.Context, memberID string) ([]RoomResponse, error)
	AddParticipant(ctx context.Context, roomID, memberID string, allowRejoin bool) (bool, error)
	RemoveParticipant(ctx context.Context, roomID, memberID string) (bool, error)
	GetParticipant(ctx context.Context, roomID, memberID string) (*ParticipantResponse, error)
	Touch(ctx context.Context, roomID, lastMessageContent string) error
}

// Adapter implements Port using the service container.
type Adapter struct {
	container mono.ServiceContainer
}

var _ Port = (*Adapter)(nil)

// NewAdapter creates a new rooms Adapter.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	if container == nil {
		panic("rooms adapter requires a service container")
	}
	return &Adapter{
		container: container,
	}
}

// call invokes a rooms service with JSON codecs.
func (a *Adapter) call(ctx context.Context, service string, req, resp any) error {
	if err := helper.CallRequestReplyService[any, any](
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}

// CreateRoom creates a room with the creator as first participant.
func (a *Adapter) CreateRoom(ctx context.Context, name, creatorID string, groupChat bool) (*RoomResponse, error) {
	req := CreateRoomRequest{Name: name, CreatorID: creatorID, GroupChat: groupChat}
	var resp RoomResponse
	if err := a.call(ctx, "create-room", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateGroupRoom creates a group room with the given members.
func (a *Adapter) CreateGroupRoom(ctx context.Context, name, creatorID string, memberIDs []string) (*RoomResponse, error) {
	req := CreateGroupRoomRequest{Name: name, CreatorID: creatorID, MemberIDs: memberIDs}
	var resp RoomResponse
	if err := a.call(ctx, "create-group-room", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetOrCreateDirectRoom returns the direct room for the unordered pair.
func (a *Adapter) GetOrCreateDirectRoom(ctx context.Context, memberA, memberB string) (*DirectRoomResponse, error) {
	req := DirectRoomRequest{MemberA: memberA, MemberB: memberB}
	var resp DirectRoomResponse
	if err := a.call(ctx, "direct-room", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRoom retrieves a room with its participants.
func (a *Adapter) GetRoom(ctx context.Context, roomID string) (*RoomResponse, error) {
	req := GetRoomRequest{RoomID: roomID}
	var resp RoomResponse
	if err := a.call(ctx, "get-room", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRooms returns the member's active rooms, most recent first.
func (a *Adapter) ListRooms(ctx context.Context, memberID string) ([]RoomResponse, error) {
	req := ListRoomsRequest{MemberID: memberID}
	var resp ListRoomsResponse
	if err := a.call(ctx, "list-rooms", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

// AddParticipant adds a member to a room. Returns true when membership changed.
func (a *Adapter) AddParticipant(ctx context.Context, roomID, memberID string, allowRejoin bool) (bool, error) {
	req := AddParticipantRequest{RoomID: roomID, MemberID: memberID, AllowRejoin: allowRejoin}
	var resp AddParticipantResponse
	if err := a.call(ctx, "add-participant", &req, &resp); err != nil {
		return false, err
	}
	return resp.Changed, nil
}

// RemoveParticipant deactivates a membership. Returns true when the room was
// deleted by the empty-room policy.
func (a *Adapter) RemoveParticipant(ctx context.Context, roomID, memberID string) (bool, error) {
	req := RemoveParticipantRequest{RoomID: roomID, MemberID: memberID}
	var resp RemoveParticipantResponse
	if err := a.call(ctx, "remove-participant", &req, &resp); err != nil {
		return false, err
	}
	return resp.RoomDeleted, nil
}

// GetParticipant returns the member's participant record in a room, or
// ErrParticipantNotFound when no record exists.
func (a *Adapter) GetParticipant(ctx context.Context, roomID, memberID string) (*ParticipantResponse, error) {
	req := GetParticipantRequest{RoomID: roomID, MemberID: memberID}
	var resp GetParticipantResponse
	if err := a.call(ctx, "get-participant", &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, ErrParticipantNotFound
	}
	return &resp.Participant, nil
}

// Touch records message activity against a room.
func (a *Adapter) Touch(ctx context.Context, roomID, lastMessageContent string) error {
	req := TouchRoomRequest{RoomID: roomID, LastMessageContent: lastMessageContent}
	var resp TouchRoomResponse
	return a.call(ctx, "touch-room", &req, &resp)
}
