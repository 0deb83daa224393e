package messages

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
	"github.com/dddd2356/sunhan-websocket-backend/events"
	"github.com/dddd2356/sunhan-websocket-backend/modules/attachments"
	"github.com/dddd2356/sunhan-websocket-backend/modules/directory"
	"github.com/dddd2356/sunhan-websocket-backend/modules/rooms"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&chat.Message{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// fakeRooms is an in-memory rooms.Port for tests.
type fakeRooms struct {
	rooms map[string]*rooms.RoomResponse
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{rooms: make(map[string]*rooms.RoomResponse)}
}

// addRoom registers a room with every listed member active since createdAt.
func (f *fakeRooms) addRoom(groupChat bool, createdAt time.Time, memberIDs ...string) string {
	roomID := uuid.New().String()
	participants := make([]rooms.ParticipantResponse, 0, len(memberIDs))
	for _, id := range memberIDs {
		participants = append(participants, rooms.ParticipantResponse{
			MemberID: id, JoinedAt: createdAt, Active: true,
		})
	}
	f.rooms[roomID] = &rooms.RoomResponse{
		ID:           roomID,
		Name:         "test room",
		GroupChat:    groupChat,
		CreatedAt:    createdAt,
		LastActivity: createdAt,
		Participants: participants,
	}
	return roomID
}

// setParticipant overwrites a member's participant record in the room.
func (f *fakeRooms) setParticipant(roomID string, p rooms.ParticipantResponse) {
	room := f.rooms[roomID]
	for i := range room.Participants {
		if room.Participants[i].MemberID == p.MemberID {
			room.Participants[i] = p
			return
		}
	}
	room.Participants = append(room.Participants, p)
}

func (f *fakeRooms) GetRoom(_ context.Context, roomID string) (*rooms.RoomResponse, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, rooms.ErrRoomNotFound
	}
	snapshot := *room
	snapshot.Participants = append([]rooms.ParticipantResponse(nil), room.Participants...)
	return &snapshot, nil
}

func (f *fakeRooms) AddParticipant(_ context.Context, roomID, memberID string, allowRejoin bool) (bool, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return false, rooms.ErrRoomNotFound
	}
	for i := range room.Participants {
		p := &room.Participants[i]
		if p.MemberID != memberID {
			continue
		}
		if p.Active || !allowRejoin {
			return false, nil
		}
		p.Active = true
		p.JoinedAt = time.Now()
		return true, nil
	}
	room.Participants = append(room.Participants, rooms.ParticipantResponse{
		MemberID: memberID, JoinedAt: time.Now(), Active: true,
	})
	return true, nil
}

func (f *fakeRooms) Touch(_ context.Context, roomID, lastMessageContent string) error {
	room, ok := f.rooms[roomID]
	if !ok {
		return rooms.ErrRoomNotFound
	}
	room.LastMessageContent = lastMessageContent
	room.LastActivity = time.Now()
	return nil
}

func (f *fakeRooms) CreateRoom(context.Context, string, string, bool) (*rooms.RoomResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRooms) CreateGroupRoom(context.Context, string, string, []string) (*rooms.RoomResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRooms) GetOrCreateDirectRoom(context.Context, string, string) (*rooms.DirectRoomResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRooms) ListRooms(context.Context, string) ([]rooms.RoomResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRooms) RemoveParticipant(context.Context, string, string) (bool, error) {
	return false, errors.New("not implemented")
}

func (f *fakeRooms) GetParticipant(context.Context, string, string) (*rooms.ParticipantResponse, error) {
	return nil, errors.New("not implemented")
}

// fakeDirectory resolves member IDs from a static map.
type fakeDirectory struct {
	members map[string]string
}

func (f *fakeDirectory) Lookup(_ context.Context, memberID string) (*directory.MemberInfo, error) {
	name, ok := f.members[memberID]
	if !ok {
		return nil, directory.ErrMemberNotFound
	}
	return &directory.MemberInfo{MemberID: memberID, Name: name}, nil
}

func (f *fakeDirectory) Upsert(_ context.Context, info directory.MemberInfo) error {
	f.members[info.MemberID] = info.Name
	return nil
}

// fakeAttachments records Remove calls and can fail on demand.
type fakeAttachments struct {
	removed   []string
	removeErr error
}

func (f *fakeAttachments) Upload(context.Context, string, []byte, string) (*attachments.StoredAttachment, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAttachments) Fetch(context.Context, string) (*attachments.FetchResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAttachments) Remove(_ context.Context, reference string) error {
	f.removed = append(f.removed, reference)
	return f.removeErr
}

// recordingBroadcaster captures every broadcast for assertions.
type recordingBroadcaster struct {
	sent    []events.MessageSentEvent
	deleted []events.MessageDeletedEvent
	read    []events.MessageReadEvent
	unread  []events.UnreadCountsEvent
}

func (b *recordingBroadcaster) MessageSent(event events.MessageSentEvent) {
	b.sent = append(b.sent, event)
}

func (b *recordingBroadcaster) MessageDeleted(event events.MessageDeletedEvent) {
	b.deleted = append(b.deleted, event)
}

func (b *recordingBroadcaster) MessageRead(event events.MessageReadEvent) {
	b.read = append(b.read, event)
}

func (b *recordingBroadcaster) UnreadCounts(event events.UnreadCountsEvent) {
	b.unread = append(b.unread, event)
}

func (b *recordingBroadcaster) reset() {
	b.sent = nil
	b.deleted = nil
	b.read = nil
	b.unread = nil
}

type fixture struct {
	service     *Service
	repo        *Repository
	rooms       *fakeRooms
	attachments *fakeAttachments
	broadcaster *recordingBroadcaster
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	repo := NewRepository(setupTestDB(t))
	roomsPort := newFakeRooms()
	att := &fakeAttachments{}
	broadcaster := &recordingBroadcaster{}
	dir := &fakeDirectory{members: map[string]string{
		"alice": "Alice Kim",
		"bob":   "Bob Lee",
		"carol": "Carol Park",
	}}
	return &fixture{
		service:     NewService(repo, roomsPort, dir, att, broadcaster),
		repo:        repo,
		rooms:       roomsPort,
		attachments: att,
		broadcaster: broadcaster,
	}
}

// seedMessage inserts a chat message with an explicit timestamp.
func (f *fixture) seedMessage(t *testing.T, roomID, senderID, content string, ts time.Time) *chat.Message {
	t.Helper()

	message := &chat.Message{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		Timestamp: ts,
		Kind:      chat.KindChat,
		ReadBy:    []string{senderID},
	}
	if err := f.repo.Save(message); err != nil {
		t.Fatalf("failed to seed message: %v", err)
	}
	return message
}

func TestService_Send_FirstMessageInsertsOneDateSeparator(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	roomID := f.rooms.addRoom(false, time.Now(), "alice", "bob")

	if _, err := f.service.Send(ctx, roomID, "alice", "hello", nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := f.service.Send(ctx, roomID, "alice", "again", nil); err != nil {
		t.Fatalf("second Send failed: %v", err)
	}

	all, err := f.repo.FindByRoomAsc(roomID)
	if err != nil {
		t.Fatalf("FindByRoomAsc failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected separator plus two messages, got %d", len(all))
	}

	separator := all[0]
	if separator.Kind != chat.KindSystemDate {
		t.Errorf("expected first message to be a date separator, got kind %s", separator.Kind)
	}
	if separator.SenderID != chat.SystemSenderID {
		t.Errorf("expected system sender, got %s", separator.SenderID)
	}
	want := time.Now().Format(dateSeparatorLayout)
	if separator.Content != want {
		t.Errorf("expected separator content %q, got %q", want, separator.Content)
	}

	for _, msg := range all[1:] {
		if msg.Kind != chat.KindChat {
			t.Errorf("expected chat message, got kind %s", msg.Kind)
		}
	}
}

func TestService_Send_CountsRecipientsBeforeSenderRejoin(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	roomID := f.rooms.addRoom(false, time.Now().Add(-time.Hour), "alice", "bob")

	// Alice left earlier; sending brings her back.
	left := time.Now().Add(-time.Minute)
	f.rooms.setParticipant(roomID, rooms.ParticipantResponse{
		MemberID: "alice", JoinedAt: time.Now().Add(-time.Hour), LastLeftAt: &left, Active: false,
	})

	message, err := f.service.Send(ctx, roomID, "alice", "I am back", nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if message.ParticipantCountAtSend != 1 {
		t.Errorf("expected recipient count 1, got %d", message.ParticipantCountAtSend)
	}
	if len(message.ReadBy) != 1 || message.ReadBy[0] != "alice" {
		t.Errorf("expected ReadBy to contain only the sender, got %v", message.ReadBy)
	}

	room, err := f.rooms.GetRoom(ctx, roomID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if !hasActiveParticipant(room, "alice") {
		t.Error("expected sender to be active again after sending")
	}
}

func TestService_Send_UpdatesRoomPreview(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		attachment *AttachmentInput
		want       string
	}{
		{
			name:    "plain text",
			content: "see you tomorrow",
			want:    "see you tomorrow",
		},
		{
			name:       "image attachment",
			content:    "",
			attachment: &AttachmentInput{Type: chat.AttachmentImage, URL: "/attachments/a.png", Name: "a.png"},
			want:       chat.PhotoPreview,
		},
		{
			name:       "file attachment",
			content:    "",
			attachment: &AttachmentInput{Type: chat.AttachmentFile, URL: "/attachments/b.pdf", Name: "b.pdf"},
			want:       chat.FilePreview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupFixture(t)
			ctx := context.Background()
			roomID := f.rooms.addRoom(false, time.Now(), "alice", "bob")

			if _, err := f.service.Send(ctx, roomID, "alice", tt.content, tt.attachment); err != nil {
				t.Fatalf("Send failed: %v", err)
			}

			room, err := f.rooms.GetRoom(ctx, roomID)
			if err != nil {
				t.Fatalf("GetRoom failed: %v", err)
			}
			if room.LastMessageContent != tt.want {
				t.Errorf("expected preview %q, got %q", tt.want, room.LastMessageContent)
			}
		})
	}
}

func TestService_SendDirect_RejectsGroupRoom(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	roomID := f.rooms.addRoom(true, time.Now(), "alice", "bob", "carol")

	if _, err := f.service.SendDirect(ctx, roomID, "alice", "hello", false); !errors.Is(err, rooms.ErrNotDirectRoom) {
		t.Errorf("expected ErrNotDirectRoom, got %v", err)
	}
}

func TestService_SendDirect_InviteResurrectsRecentSenders(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	roomID := f.rooms.addRoom(false, base, "alice", "bob")

	// Bob spoke earlier, then left. A ghost sender is no longer resolvable
	// and a system notice must never be re-invited.
	f.seedMessage(t, roomID, "bob", "old message", base.Add(time.Minute))
	f.seedMessage(t, roomID, "ghost", "who am I", base.Add(2*time.Minute))
	notice := &chat.Message{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		SenderID:  chat.SystemSenderID,
		Content:   "Bob left.",
		Timestamp: base.Add(3 * time.Minute),
		Kind:      chat.KindSystemLeave,
		ReadBy:    []string{},
	}
	if err := f.repo.Save(notice); err != nil {
		t.Fatalf("failed to seed system message: %v", err)
	}
	left := base.Add(3 * time.Minute)
	f.rooms.setParticipant(roomID, rooms.ParticipantResponse{
		MemberID: "bob", JoinedAt: base, LastLeftAt: &left, Active: false,
	})

	message, err := f.service.SendDirect(ctx, roomID, "alice", "come back", true)
	if err != nil {
		t.Fatalf("SendDirect failed: %v", err)
	}

	if message.Kind != chat.KindSystemInvite {
		t.Errorf("expected invite kind, got %s", message.Kind)
	}
	if len(message.ReadBy) != 0 {
		t.Errorf("expected empty ReadBy on invite, got %v", message.ReadBy)
	}

	room, err := f.rooms.GetRoom(ctx, roomID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if !hasActiveParticipant(room, "bob") {
		t.Error("expected bob to be active again after the invite")
	}
	if hasActiveParticipant(room, "ghost") {
		t.Error("expected unresolvable sender to be skipped")
	}
	if hasActiveParticipant(room, chat.SystemSenderID) {
		t.Error("expected system sender to be skipped")
	}
}

func TestService_CreateSystemMessage(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	roomID := f.rooms.addRoom(false, time.Now(), "alice", "bob")

	message, err := f.service.CreateSystemMessage(ctx, roomID, chat.KindSystemLeave, "Bob left.")
	if err != nil {
		t.Fatalf("CreateSystemMessage failed: %v", err)
	}
	if message.SenderID != chat.SystemSenderID {
		t.Errorf("expected system sender, got %s", message.SenderID)
	}
	if len(message.ReadBy) != 0 {
		t.Errorf("expected empty ReadBy, got %v", message.ReadBy)
	}

	if _, err := f.service.CreateSystemMessage(ctx, roomID, chat.KindChat, "nope"); err == nil {
		t.Error("expected error for non-system kind")
	}
	if _, err := f.service.CreateSystemMessage(ctx, roomID, "bogus", "nope"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestService_Delete(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	roomID := f.rooms.addRoom(false, time.Now(), "alice", "bob")

	message := f.seedMessage(t, roomID, "alice", "delete me", time.Now())
	message.AttachmentType = chat.AttachmentFile
	message.AttachmentURL = "/attachments/doc.pdf"
	message.AttachmentName = "doc.pdf"
	if err := f.repo.Update(message); err != nil {
		t.Fatalf("failed to attach file: %v", err)
	}

	deleted, err := f.service.Delete(ctx, message.ID, "alice")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if !deleted.Deleted {
		t.Error("expected message to be marked deleted")
	}
	if deleted.Content != chat.DeletedTombstone {
		t.Errorf("expected tombstone content, got %q", deleted.Content)
	}
	if deleted.HasAttachment() {
		t.Error("expected attachment fields to be cleared")
	}
	if len(f.attachments.removed) != 1 || f.attachments.removed[0] != "/attachments/doc.pdf" {
		t.Errorf("expected attachment removal, got %v", f.attachments.removed)
	}
	if len(f.broadcaster.deleted) != 1 {
		t.Errorf("expected one MessageDeleted broadcast, got %d", len(f.broadcaster.deleted))
	}
}

func TestService_Delete_NonSenderDenied(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	roomID := f.rooms.addRoom(false, time.Now(), "alice", "bob")
	message := f.seedMessage(t, roomID, "alice", "keep me", time.Now())

	if _, err := f.service.Delete(ctx, message.ID, "bob"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	stored, err := f.repo.FindByID(message.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if stored.Deleted || stored.Content != "keep me" {
		t.Error("expected message to be unchanged after denied delete")
	}
}

func TestService_Delete_AttachmentFailureStillDeletes(t *testing.T) {
	f := setupFixture(t)
	f.attachments.removeErr = errors.New("object store unavailable")
	ctx := context.Background()
	roomID := f.rooms.addRoom(false, time.Now(), "alice", "bob")

	message := f.seedMessage(t, roomID, "alice", "photo", time.Now())
	message.AttachmentType = chat.AttachmentImage
	message.AttachmentURL = "/attachments/pic.png"
	message.AttachmentName = "pic.png"
	if err := f.repo.Update(message); err != nil {
		t.Fatalf("failed to attach file: %v", err)
	}

	deleted, err := f.service.Delete(ctx, message.ID, "alice")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted.Deleted || !strings.Contains(deleted.Content, "deleted") {
		t.Error("expected deletion to survive a failed attachment removal")
	}
}

func TestService_Send_UnknownRoomAndSender(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	if _, err := f.service.Send(ctx, "missing", "alice", "hi", nil); !errors.Is(err, rooms.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}

	roomID := f.rooms.addRoom(false, time.Now(), "alice", "bob")
	if _, err := f.service.Send(ctx, roomID, "stranger", "hi", nil); err == nil {
		t.Error("expected error for unresolvable sender")
	}
}
