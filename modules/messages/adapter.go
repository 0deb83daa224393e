package messages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Port defines the interface other modules use for message operations.
type Port interface {
	Send(ctx context.Context, req SendMessageRequest) (*MessageResponse, error)
	SendDirect(ctx context.Context, req SendDirectMessageRequest) (*MessageResponse, error)
	CreateSystemMessage(ctx context.Context, roomID, kind, content string) (*MessageResponse, error)
	Delete(ctx context.Context, messageID, requesterID string) (*MessageResponse, error)
	GetPage(ctx context.Context, roomID, memberID string, page, size int) (*GetMessagesResponse, error)
	UnreadCount(ctx context.Context, roomID, memberID string) (int64, error)
	MarkRead(ctx context.Context, messageID, memberID string) error
	MarkAllRead(ctx context.Context, roomID, memberID string) (int, error)
}

// Adapter implements Port using the service container.
type Adapter struct {
	container mono.ServiceContainer
}

var _ Port = (*Adapter)(nil)

// NewAdapter creates a new messages Adapter.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	if container == nil {
		panic("messages adapter requires a service container")
	}
	return &Adapter{
		container: container,
	}
}

// call invokes a messages service with JSON codecs.
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

// Send appends a chat message to a room's log.
func (a *Adapter) Send(ctx context.Context, req SendMessageRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := a.call(ctx, "send-message", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendDirect appends a message to a direct room, optionally as an invite.
func (a *Adapter) SendDirect(ctx context.Context, req SendDirectMessageRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := a.call(ctx, "send-direct-message", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateSystemMessage appends a server-inserted notice to a room's log.
func (a *Adapter) CreateSystemMessage(ctx context.Context, roomID, kind, content string) (*MessageResponse, error) {
	req := SystemMessageRequest{RoomID: roomID, Kind: kind, Content: content}
	var resp MessageResponse
	if err := a.call(ctx, "create-system-message", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete soft-deletes a message on behalf of its sender.
func (a *Adapter) Delete(ctx context.Context, messageID, requesterID string) (*MessageResponse, error) {
	req := DeleteMessageRequest{MessageID: messageID, RequesterID: requesterID}
	var resp MessageResponse
	if err := a.call(ctx, "delete-message", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPage returns one page of the member's visible messages.
func (a *Adapter) GetPage(ctx context.Context, roomID, memberID string, page, size int) (*GetMessagesResponse, error) {
	req := GetMessagesRequest{RoomID: roomID, MemberID: memberID, Page: page, Size: size}
	var resp GetMessagesResponse
	if err := a.call(ctx, "get-messages", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UnreadCount returns the member's current unread count for a room.
func (a *Adapter) UnreadCount(ctx context.Context, roomID, memberID string) (int64, error) {
	req := UnreadCountRequest{RoomID: roomID, MemberID: memberID}
	var resp UnreadCountResponse
	if err := a.call(ctx, "unread-count", &req, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// MarkRead records that a member has read a single message.
func (a *Adapter) MarkRead(ctx context.Context, messageID, memberID string) error {
	req := MarkReadRequest{MessageID: messageID, MemberID: memberID}
	var resp MarkReadResponse
	return a.call(ctx, "mark-read", &req, &resp)
}

// MarkAllRead marks every unread visible message in the room as read.
func (a *Adapter) MarkAllRead(ctx context.Context, roomID, memberID string) (int, error) {
	req := MarkAllReadRequest{RoomID: roomID, MemberID: memberID}
	var resp MarkAllReadResponse
	if err := a.call(ctx, "mark-all-read", &req, &resp); err != nil {
		return 0, err
	}
	return resp.Changed, nil
}
