package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
	"github.com/dddd2356/sunhan-websocket-backend/events"
	"github.com/dddd2356/sunhan-websocket-backend/modules/attachments"
	"github.com/dddd2356/sunhan-websocket-backend/modules/directory"
	"github.com/dddd2356/sunhan-websocket-backend/modules/rooms"
)

// Module provides the message log services. The log lives on its own
// database handle, separate from the room store: the two are only ever
// reconciled through the services, never a shared transaction.
type Module struct {
	db       *gorm.DB
	service  *Service
	dbPath   string
	eventBus mono.EventBus

	roomsPort       rooms.Port
	directoryPort   directory.Port
	attachmentsPort attachments.Port
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
)

// NewModule creates a new messages Module.
func NewModule() *Module {
	dbPath := os.Getenv("MESSAGES_DB_PATH")
	if dbPath == "" {
		dbPath = "messages.db"
	}
	return &Module{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "messages"
}

// Dependencies declares the modules this module depends on.
func (m *Module) Dependencies() []string {
	return []string{"rooms", "directory", "attachments"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "rooms":
		m.roomsPort = rooms.NewAdapter(container)
	case "directory":
		m.directoryPort = directory.NewAdapter(container)
	case "attachments":
		m.attachmentsPort = attachments.NewAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
		events.MessageDeletedV1.ToBase(),
		events.MessageReadV1.ToBase(),
		events.UnreadCountsV1.ToBase(),
	}
}

// Start initializes the messages module.
func (m *Module) Start(_ context.Context) error {
	if m.roomsPort == nil || m.directoryPort == nil || m.attachmentsPort == nil {
		return fmt.Errorf("module dependencies not set")
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&chat.Message{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var broadcaster Broadcaster
	if m.eventBus != nil {
		broadcaster = NewEventBusBroadcaster(m.eventBus)
	} else {
		log.Println("[messages] Warning: eventBus not set, broadcasts will be dropped")
		broadcaster = nopBroadcaster{}
	}

	repo := NewRepository(db)
	m.service = NewService(repo, m.roomsPort, m.directoryPort, m.attachmentsPort, broadcaster)

	log.Printf("[messages] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[messages] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	services := []struct {
		name     string
		register func() error
	}{
		{"send-message", func() error {
			return helper.RegisterTypedRequestReplyService(container, "send-message", json.Unmarshal, json.Marshal, m.sendMessage)
		}},
		{"send-direct-message", func() error {
			return helper.RegisterTypedRequestReplyService(container, "send-direct-message", json.Unmarshal, json.Marshal, m.sendDirectMessage)
		}},
		{"create-system-message", func() error {
			return helper.RegisterTypedRequestReplyService(container, "create-system-message", json.Unmarshal, json.Marshal, m.createSystemMessage)
		}},
		{"delete-message", func() error {
			return helper.RegisterTypedRequestReplyService(container, "delete-message", json.Unmarshal, json.Marshal, m.deleteMessage)
		}},
		{"get-messages", func() error {
			return helper.RegisterTypedRequestReplyService(container, "get-messages", json.Unmarshal, json.Marshal, m.getMessages)
		}},
		{"unread-count", func() error {
			return helper.RegisterTypedRequestReplyService(container, "unread-count", json.Unmarshal, json.Marshal, m.unreadCount)
		}},
		{"mark-read", func() error {
			return helper.RegisterTypedRequestReplyService(container, "mark-read", json.Unmarshal, json.Marshal, m.markRead)
		}},
		{"mark-all-read", func() error {
			return helper.RegisterTypedRequestReplyService(container, "mark-all-read", json.Unmarshal, json.Marshal, m.markAllRead)
		}},
	}

	for _, svc := range services {
		if err := svc.register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", svc.name, err)
		}
	}

	log.Printf("[messages] Registered services: send-message, send-direct-message, create-system-message, delete-message, get-messages, unread-count, mark-read, mark-all-read")
	return nil
}

// sendMessage handles the send-message service request.
func (m *Module) sendMessage(ctx context.Context, req SendMessageRequest, _ *mono.Msg) (MessageResponse, error) {
	var attachment *AttachmentInput
	if req.AttachmentURL != "" {
		attachment = &AttachmentInput{
			Type: req.AttachmentType,
			URL:  req.AttachmentURL,
			Name: req.AttachmentName,
		}
	}

	message, err := m.service.Send(ctx, req.RoomID, req.SenderID, req.Content, attachment)
	if err != nil {
		return MessageResponse{}, err
	}
	return toMessageResponse(message), nil
}

// sendDirectMessage handles the send-direct-message service request.
func (m *Module) sendDirectMessage(ctx context.Context, req SendDirectMessageRequest, _ *mono.Msg) (MessageResponse, error) {
	message, err := m.service.SendDirect(ctx, req.RoomID, req.SenderID, req.Content, req.Invite)
	if err != nil {
		return MessageResponse{}, err
	}
	return toMessageResponse(message), nil
}

// createSystemMessage handles the create-system-message service request.
func (m *Module) createSystemMessage(ctx context.Context, req SystemMessageRequest, _ *mono.Msg) (MessageResponse, error) {
	message, err := m.service.CreateSystemMessage(ctx, req.RoomID, req.Kind, req.Content)
	if err != nil {
		return MessageResponse{}, err
	}
	return toMessageResponse(message), nil
}

// deleteMessage handles the delete-message service request.
func (m *Module) deleteMessage(ctx context.Context, req DeleteMessageRequest, _ *mono.Msg) (MessageResponse, error) {
	message, err := m.service.Delete(ctx, req.MessageID, req.RequesterID)
	if err != nil {
		return MessageResponse{}, err
	}
	return toMessageResponse(message), nil
}

// getMessages handles the get-messages service request.
func (m *Module) getMessages(ctx context.Context, req GetMessagesRequest, _ *mono.Msg) (GetMessagesResponse, error) {
	page, total, err := m.service.GetPage(ctx, req.RoomID, req.MemberID, req.Page, req.Size)
	if err != nil {
		return GetMessagesResponse{}, err
	}

	response := GetMessagesResponse{
		Messages: make([]MessageResponse, 0, len(page)),
		Total:    total,
		Page:     req.Page,
		Size:     req.Size,
	}
	for _, msg := range page {
		response.Messages = append(response.Messages, toMessageResponse(msg))
	}
	return response, nil
}

// unreadCount handles the unread-count service request.
func (m *Module) unreadCount(ctx context.Context, req UnreadCountRequest, _ *mono.Msg) (UnreadCountResponse, error) {
	count, err := m.service.UnreadCount(ctx, req.RoomID, req.MemberID)
	if err != nil {
		return UnreadCountResponse{}, err
	}
	return UnreadCountResponse{
		RoomID:   req.RoomID,
		MemberID: req.MemberID,
		Count:    count,
	}, nil
}

// markRead handles the mark-read service request.
func (m *Module) markRead(ctx context.Context, req MarkReadRequest, _ *mono.Msg) (MarkReadResponse, error) {
	if err := m.service.MarkRead(ctx, req.MessageID, req.MemberID); err != nil {
		return MarkReadResponse{}, err
	}
	return MarkReadResponse{Marked: true}, nil
}

// markAllRead handles the mark-all-read service request.
func (m *Module) markAllRead(ctx context.Context, req MarkAllReadRequest, _ *mono.Msg) (MarkAllReadResponse, error) {
	changed, err := m.service.MarkAllRead(ctx, req.RoomID, req.MemberID)
	if err != nil {
		return MarkAllReadResponse{}, err
	}
	return MarkAllReadResponse{Changed: changed}, nil
}
