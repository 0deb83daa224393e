package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/dddd2356/sunhan-websocket-backend/events"
)

// Frame types delivered to WebSocket clients.
const (
	FrameMessage      = "message"
	FrameDeleted      = "message_deleted"
	FrameRead         = "message_read"
	FrameUnread       = "unread_counts"
	FrameParticipants = "participants"
)

// BroadcastModule consumes chat events and fans them out to WebSocket
// clients subscribed to the affected room.
type BroadcastModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.EventConsumerModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule() *BroadcastModule {
	return &BroadcastModule{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start initializes the module and starts the hub.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - WebSocket hub running")
	return nil
}

// Stop shuts down the module.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageDeletedV1, m.handleMessageDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageDeleted consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageReadV1, m.handleMessageRead, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageRead consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UnreadCountsV1, m.handleUnreadCounts, m,
	); err != nil {
		return fmt.Errorf("failed to register UnreadCounts consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ParticipantsChangedV1, m.handleParticipantsChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register ParticipantsChanged consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: MessageSent, MessageDeleted, MessageRead, UnreadCounts, ParticipantsChanged")
	return nil
}

func (m *BroadcastModule) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	message := event.Message
	m.hub.Broadcast(&Frame{
		Type:    FrameMessage,
		RoomID:  event.RoomID,
		Message: &message,
	})
	return nil
}

func (m *BroadcastModule) handleMessageDeleted(_ context.Context, event events.MessageDeletedEvent, _ *mono.Msg) error {
	message := event.Message
	m.hub.Broadcast(&Frame{
		Type:    FrameDeleted,
		RoomID:  event.RoomID,
		Message: &message,
	})
	return nil
}

func (m *BroadcastModule) handleMessageRead(_ context.Context, event events.MessageReadEvent, _ *mono.Msg) error {
	m.hub.Broadcast(&Frame{
		Type:      FrameRead,
		RoomID:    event.RoomID,
		MessageID: event.MessageID,
		MemberID:  event.MemberID,
	})
	return nil
}

func (m *BroadcastModule) handleUnreadCounts(_ context.Context, event events.UnreadCountsEvent, _ *mono.Msg) error {
	m.hub.Broadcast(&Frame{
		Type:               FrameUnread,
		RoomID:             event.RoomID,
		MemberID:           event.ReaderID,
		UnreadCounts:       event.UnreadCounts,
		LastMessageContent: event.LastMessageContent,
	})
	return nil
}

func (m *BroadcastModule) handleParticipantsChanged(_ context.Context, event events.ParticipantsChangedEvent, _ *mono.Msg) error {
	m.hub.Broadcast(&Frame{
		Type:          FrameParticipants,
		RoomID:        event.RoomID,
		Action:        event.Action,
		MemberID:      event.MemberID,
		ActiveMembers: event.ActiveMembers,
	})
	return nil
}

// GetHub returns the WebSocket hub for the API module to use.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}
