package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
	"github.com/dddd2356/sunhan-websocket-backend/events"
	"github.com/dddd2356/sunhan-websocket-backend/modules/directory"
)

// Module provides room and participant lifecycle services.
type Module struct {
	db       *gorm.DB
	repo     *Repository
	service  *Service
	dbPath   string
	policy   EmptyRoomPolicy
	eventBus mono.EventBus
	dirPort  directory.Port
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

// NewModule creates a new rooms Module.
func NewModule() *Module {
	dbPath := os.Getenv("ROOMS_DB_PATH")
	if dbPath == "" {
		dbPath = "rooms.db"
	}

	policy := DefaultEmptyRoomPolicy()
	if v := os.Getenv("RETAIN_EMPTY_DIRECT_ROOMS"); v == "true" {
		policy.DeleteDirect = false
	}
	if v := os.Getenv("DELETE_EMPTY_GROUP_ROOMS"); v == "true" {
		policy.DeleteGroup = true
	}

	return &Module{
		dbPath: dbPath,
		policy: policy,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "rooms"
}

// Dependencies declares the modules this module depends on.
func (m *Module) Dependencies() []string {
	return []string{"directory"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "directory" {
		m.dirPort = directory.NewAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ParticipantsChangedV1.ToBase(),
	}
}

// Start initializes the rooms module.
func (m *Module) Start(_ context.Context) error {
	if m.dirPort == nil {
		return fmt.Errorf("directory dependency not set")
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&chat.Room{}, &chat.Participant{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.repo = NewRepository(db)
	m.service = NewService(m.repo, m.dirPort, m.policy)

	log.Printf("[rooms] Module started (database: %s)", m.dbPath)
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
	log.Println("[rooms] Module stopped")
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
		{"create-room", func() error {
			return helper.RegisterTypedRequestReplyService(container, "create-room", json.Unmarshal, json.Marshal, m.createRoom)
		}},
		{"create-group-room", func() error {
			return helper.RegisterTypedRequestReplyService(container, "create-group-room", json.Unmarshal, json.Marshal, m.createGroupRoom)
		}},
		{"direct-room", func() error {
			return helper.RegisterTypedRequestReplyService(container, "direct-room", json.Unmarshal, json.Marshal, m.directRoom)
		}},
		{"get-room", func() error {
			return helper.RegisterTypedRequestReplyService(container, "get-room", json.Unmarshal, json.Marshal, m.getRoom)
		}},
		{"list-rooms", func() error {
			return helper.RegisterTypedRequestReplyService(container, "list-rooms", json.Unmarshal, json.Marshal, m.listRooms)
		}},
		{"add-participant", func() error {
			return helper.RegisterTypedRequestReplyService(container, "add-participant", json.Unmarshal, json.Marshal, m.addParticipant)
		}},
		{"remove-participant", func() error {
			return helper.RegisterTypedRequestReplyService(container, "remove-participant", json.Unmarshal, json.Marshal, m.removeParticipant)
		}},
		{"get-participant", func() error {
			return helper.RegisterTypedRequestReplyService(container, "get-participant", json.Unmarshal, json.Marshal, m.getParticipant)
		}},
		{"touch-room", func() error {
			return helper.RegisterTypedRequestReplyService(container, "touch-room", json.Unmarshal, json.Marshal, m.touchRoom)
		}},
	}

	for _, svc := range services {
		if err := svc.register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", svc.name, err)
		}
	}

	log.Printf("[rooms] Registered services: create-room, create-group-room, direct-room, get-room, list-rooms, add-participant, remove-participant, get-participant, touch-room")
	return nil
}

// publishParticipantsChanged broadcasts the post-mutation active membership.
// Publishing is best-effort; failures never roll back the write.
func (m *Module) publishParticipantsChanged(action, roomID, memberID string, activeMembers []string) {
	if m.eventBus == nil {
		return
	}
	event := events.ParticipantsChangedEvent{
		RoomID:        roomID,
		Action:        action,
		MemberID:      memberID,
		ActiveMembers: activeMembers,
		Timestamp:     time.Now(),
	}
	if err := events.ParticipantsChangedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[rooms] Failed to publish ParticipantsChanged event: %v", err)
	}
}

// activeMemberIDs re-reads the room's current active membership.
func (m *Module) activeMemberIDs(ctx context.Context, roomID string) []string {
	room, err := m.service.GetRoom(ctx, roomID)
	if err != nil {
		return nil
	}
	return room.ActiveMemberIDs()
}

// createRoom handles the create-room service request.
func (m *Module) createRoom(ctx context.Context, req CreateRoomRequest, _ *mono.Msg) (RoomResponse, error) {
	room, err := m.service.CreateRoom(ctx, req.Name, req.CreatorID, req.GroupChat)
	if err != nil {
		return RoomResponse{}, err
	}

	m.publishParticipantsChanged(events.RoomCreated, room.ID, req.CreatorID, room.ActiveMemberIDs())
	return toRoomResponse(room), nil
}

// createGroupRoom handles the create-group-room service request.
func (m *Module) createGroupRoom(ctx context.Context, req CreateGroupRoomRequest, _ *mono.Msg) (RoomResponse, error) {
	room, err := m.service.CreateGroupRoom(ctx, req.Name, req.CreatorID, req.MemberIDs)
	if err != nil {
		return RoomResponse{}, err
	}

	m.publishParticipantsChanged(events.RoomCreated, room.ID, req.CreatorID, room.ActiveMemberIDs())
	return toRoomResponse(room), nil
}

// directRoom handles the direct-room service request.
func (m *Module) directRoom(ctx context.Context, req DirectRoomRequest, _ *mono.Msg) (DirectRoomResponse, error) {
	room, created, err := m.service.GetOrCreateDirectRoom(ctx, req.MemberA, req.MemberB)
	if err != nil {
		return DirectRoomResponse{}, err
	}

	if created {
		m.publishParticipantsChanged(events.RoomCreated, room.ID, req.MemberA, room.ActiveMemberIDs())
	}
	return DirectRoomResponse{
		Room:    toRoomResponse(room),
		Created: created,
	}, nil
}

// getRoom handles the get-room service request.
func (m *Module) getRoom(ctx context.Context, req GetRoomRequest, _ *mono.Msg) (RoomResponse, error) {
	room, err := m.service.GetRoom(ctx, req.RoomID)
	if err != nil {
		return RoomResponse{}, err
	}
	return toRoomResponse(room), nil
}

// listRooms handles the list-rooms service request.
func (m *Module) listRooms(ctx context.Context, req ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	rooms, err := m.service.ListRoomsForMember(ctx, req.MemberID)
	if err != nil {
		return ListRoomsResponse{}, err
	}

	response := ListRoomsResponse{
		Rooms: make([]RoomResponse, 0, len(rooms)),
		Total: len(rooms),
	}
	for _, room := range rooms {
		response.Rooms = append(response.Rooms, toRoomResponse(room))
	}
	return response, nil
}

// addParticipant handles the add-participant service request.
func (m *Module) addParticipant(ctx context.Context, req AddParticipantRequest, _ *mono.Msg) (AddParticipantResponse, error) {
	changed, err := m.service.AddParticipant(ctx, req.RoomID, req.MemberID, req.AllowRejoin)
	if err != nil {
		return AddParticipantResponse{}, err
	}

	if changed {
		m.publishParticipantsChanged(events.ParticipantJoined, req.RoomID, req.MemberID, m.activeMemberIDs(ctx, req.RoomID))
	}
	return AddParticipantResponse{Changed: changed}, nil
}

// removeParticipant handles the remove-participant service request.
func (m *Module) removeParticipant(ctx context.Context, req RemoveParticipantRequest, _ *mono.Msg) (RemoveParticipantResponse, error) {
	roomDeleted, err := m.service.RemoveParticipant(ctx, req.RoomID, req.MemberID)
	if err != nil {
		return RemoveParticipantResponse{}, err
	}

	action := events.ParticipantLeft
	if roomDeleted {
		action = events.RoomDeleted
	}
	m.publishParticipantsChanged(action, req.RoomID, req.MemberID, m.activeMemberIDs(ctx, req.RoomID))
	return RemoveParticipantResponse{RoomDeleted: roomDeleted}, nil
}

// getParticipant handles the get-participant service request.
func (m *Module) getParticipant(ctx context.Context, req GetParticipantRequest, _ *mono.Msg) (GetParticipantResponse, error) {
	participant, err := m.service.GetParticipant(ctx, req.RoomID, req.MemberID)
	if errors.Is(err, ErrParticipantNotFound) {
		return GetParticipantResponse{Found: false}, nil
	}
	if err != nil {
		return GetParticipantResponse{}, err
	}
	return GetParticipantResponse{
		Found:       true,
		Participant: toParticipantResponse(participant),
	}, nil
}

// touchRoom handles the touch-room service request.
func (m *Module) touchRoom(ctx context.Context, req TouchRoomRequest, _ *mono.Msg) (TouchRoomResponse, error) {
	if err := m.service.Touch(ctx, req.RoomID, req.LastMessageContent); err != nil {
		return TouchRoomResponse{}, err
	}
	return TouchRoomResponse{Touched: true}, nil
}
