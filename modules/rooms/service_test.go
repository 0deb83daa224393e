package rooms

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
	"github.com/dddd2356/sunhan-websocket-backend/modules/directory"
)

// fakeDirectory is an in-memory directory.Port for testing.
type fakeDirectory struct {
	members map[string]string // memberID -> name
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

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&chat.Room{}, &chat.Participant{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func setupService(t *testing.T, policy EmptyRoomPolicy) (*Service, *Repository) {
	t.Helper()

	db := setupTestDB(t)
	repo := NewRepository(db)
	dir := &fakeDirectory{members: map[string]string{
		"alice": "Alice Kim",
		"bob":   "Bob Lee",
		"carol": "Carol Park",
	}}
	return NewService(repo, dir, policy), repo
}

func TestService_CreateRoom(t *testing.T) {
	service, _ := setupService(t, DefaultEmptyRoomPolicy())
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, "standup", "alice", true)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	if room.LastMessageContent != chat.RoomCreatedText {
		t.Errorf("LastMessageContent = %q, want %q", room.LastMessageContent, chat.RoomCreatedText)
	}
	if !room.HasActiveParticipant("alice") {
		t.Error("creator should be an active participant")
	}

	if _, err := service.CreateRoom(ctx, "nope", "stranger", true); !errors.Is(err, directory.ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound for unknown creator, got %v", err)
	}
}

func TestService_GetOrCreateDirectRoom_DedupInBothOrders(t *testing.T) {
	service, _ := setupService(t, DefaultEmptyRoomPolicy())
	ctx := context.Background()

	first, created, err := service.GetOrCreateDirectRoom(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("GetOrCreateDirectRoom() error = %v", err)
	}
	if !created {
		t.Error("first call should create the room")
	}
	if first.GroupChat {
		t.Error("direct room should not be a group chat")
	}
	if first.Name != DirectRoomName {
		t.Errorf("room name = %q, want %q", first.Name, DirectRoomName)
	}

	// Reversed argument order must find the same room.
	second, created, err := service.GetOrCreateDirectRoom(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("GetOrCreateDirectRoom() reversed error = %v", err)
	}
	if created {
		t.Error("reversed call should not create a second room")
	}
	if second.ID != first.ID {
		t.Errorf("reversed call returned room %s, want %s", second.ID, first.ID)
	}

	// A different pair still gets its own room.
	third, created, err := service.GetOrCreateDirectRoom(ctx, "alice", "carol")
	if err != nil {
		t.Fatalf("GetOrCreateDirectRoom() error = %v", err)
	}
	if !created || third.ID == first.ID {
		t.Error("a distinct pair should get a distinct room")
	}
}

func TestService_GetOrCreateDirectRoom_SelfAndUnknown(t *testing.T) {
	service, _ := setupService(t, DefaultEmptyRoomPolicy())
	ctx := context.Background()

	if _, _, err := service.GetOrCreateDirectRoom(ctx, "alice", "alice"); err == nil {
		t.Error("expected error for a self-pair")
	}
	if _, _, err := service.GetOrCreateDirectRoom(ctx, "alice", "ghost"); !errors.Is(err, directory.ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestService_GetOrCreateDirectRoom_ReactivatesLeftParty(t *testing.T) {
	service, repo := setupService(t, EmptyRoomPolicy{DeleteDirect: false})
	ctx := context.Background()

	room, _, err := service.GetOrCreateDirectRoom(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("GetOrCreateDirectRoom() error = %v", err)
	}

	if _, err := service.RemoveParticipant(ctx, room.ID, "bob"); err != nil {
		t.Fatalf("RemoveParticipant() error = %v", err)
	}

	before, err := repo.FindParticipant(room.ID, "bob")
	if err != nil {
		t.Fatalf("FindParticipant() error = %v", err)
	}
	if before.Active || before.LastLeftAt == nil {
		t.Fatal("bob should be inactive with a recorded leave time")
	}

	again, created, err := service.GetOrCreateDirectRoom(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("GetOrCreateDirectRoom() error = %v", err)
	}
	if created || again.ID != room.ID {
		t.Error("reopening the pair should reuse the existing room")
	}

	after, err := repo.FindParticipant(room.ID, "bob")
	if err != nil {
		t.Fatalf("FindParticipant() error = %v", err)
	}
	if !after.Active {
		t.Error("bob should be reactivated")
	}
	if !after.JoinedAt.After(before.JoinedAt) {
		t.Error("rejoin should refresh the join timestamp")
	}
}

func TestService_AddParticipant(t *testing.T) {
	service, _ := setupService(t, DefaultEmptyRoomPolicy())
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, "team", "alice", true)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	t.Run("new member joins", func(t *testing.T) {
		changed, err := service.AddParticipant(ctx, room.ID, "bob", false)
		if err != nil {
			t.Fatalf("AddParticipant() error = %v", err)
		}
		if !changed {
			t.Error("adding a new member should report a change")
		}
	})

	t.Run("active member is a no-op", func(t *testing.T) {
		changed, err := service.AddParticipant(ctx, room.ID, "bob", true)
		if err != nil {
			t.Fatalf("AddParticipant() error = %v", err)
		}
		if changed {
			t.Error("adding an active member should be a no-op")
		}
	})

	t.Run("rejoin requires allowRejoin", func(t *testing.T) {
		if _, err := service.RemoveParticipant(ctx, room.ID, "bob"); err != nil {
			t.Fatalf("RemoveParticipant() error = %v", err)
		}

		changed, err := service.AddParticipant(ctx, room.ID, "bob", false)
		if err != nil {
			t.Fatalf("AddParticipant() error = %v", err)
		}
		if changed {
			t.Error("inactive member without allowRejoin should be a no-op")
		}

		changed, err = service.AddParticipant(ctx, room.ID, "bob", true)
		if err != nil {
			t.Fatalf("AddParticipant() error = %v", err)
		}
		if !changed {
			t.Error("inactive member with allowRejoin should rejoin")
		}
	})

	t.Run("unknown room", func(t *testing.T) {
		if _, err := service.AddParticipant(ctx, "missing", "bob", false); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("expected ErrRoomNotFound, got %v", err)
		}
	})
}

func TestService_OneRecordPerMemberAcrossCycles(t *testing.T) {
	service, _ := setupService(t, EmptyRoomPolicy{})
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, "cycles", "alice", true)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := service.AddParticipant(ctx, room.ID, "bob", true); err != nil {
			t.Fatalf("AddParticipant() cycle %d error = %v", i, err)
		}
		if _, err := service.RemoveParticipant(ctx, room.ID, "bob"); err != nil {
			t.Fatalf("RemoveParticipant() cycle %d error = %v", i, err)
		}
	}

	got, err := service.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}

	records := 0
	for _, p := range got.Participants {
		if p.MemberID == "bob" {
			records++
		}
	}
	if records != 1 {
		t.Errorf("expected exactly 1 participant record for bob, got %d", records)
	}
}

func TestService_RemoveParticipant_EmptyRoomPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("empty direct room deleted by default", func(t *testing.T) {
		service, _ := setupService(t, DefaultEmptyRoomPolicy())

		room, _, err := service.GetOrCreateDirectRoom(ctx, "alice", "bob")
		if err != nil {
			t.Fatalf("GetOrCreateDirectRoom() error = %v", err)
		}

		if deleted, err := service.RemoveParticipant(ctx, room.ID, "alice"); err != nil || deleted {
			t.Fatalf("first leave: deleted = %v, err = %v", deleted, err)
		}
		deleted, err := service.RemoveParticipant(ctx, room.ID, "bob")
		if err != nil {
			t.Fatalf("last leave error = %v", err)
		}
		if !deleted {
			t.Error("last leave should delete the direct room")
		}

		if _, err := service.GetRoom(ctx, room.ID); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("expected ErrRoomNotFound after deletion, got %v", err)
		}
	})

	t.Run("empty group room retained by default", func(t *testing.T) {
		service, _ := setupService(t, DefaultEmptyRoomPolicy())

		room, err := service.CreateRoom(ctx, "team", "alice", true)
		if err != nil {
			t.Fatalf("CreateRoom() error = %v", err)
		}

		deleted, err := service.RemoveParticipant(ctx, room.ID, "alice")
		if err != nil {
			t.Fatalf("RemoveParticipant() error = %v", err)
		}
		if deleted {
			t.Error("empty group room should be retained by default")
		}

		if _, err := service.GetRoom(ctx, room.ID); err != nil {
			t.Errorf("room should still exist, got %v", err)
		}
	})

	t.Run("policy can delete empty group rooms", func(t *testing.T) {
		service, _ := setupService(t, EmptyRoomPolicy{DeleteGroup: true})

		room, err := service.CreateRoom(ctx, "team", "alice", true)
		if err != nil {
			t.Fatalf("CreateRoom() error = %v", err)
		}

		deleted, err := service.RemoveParticipant(ctx, room.ID, "alice")
		if err != nil {
			t.Fatalf("RemoveParticipant() error = %v", err)
		}
		if !deleted {
			t.Error("policy should delete the empty group room")
		}
	})
}

func TestService_CreateGroupRoom(t *testing.T) {
	service, _ := setupService(t, DefaultEmptyRoomPolicy())
	ctx := context.Background()

	room, err := service.CreateGroupRoom(ctx, "project", "alice", []string{"bob", "carol", "bob", "alice"})
	if err != nil {
		t.Fatalf("CreateGroupRoom() error = %v", err)
	}

	if len(room.Participants) != 3 {
		t.Errorf("expected 3 participants after dedup, got %d", len(room.Participants))
	}
	for _, id := range []string{"alice", "bob", "carol"} {
		if !room.HasActiveParticipant(id) {
			t.Errorf("%s should be an active participant", id)
		}
	}

	if _, err := service.CreateGroupRoom(ctx, "bad", "alice", []string{"ghost"}); !errors.Is(err, directory.ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound for unknown member, got %v", err)
	}
}

func TestService_ListRoomsForMember(t *testing.T) {
	service, _ := setupService(t, DefaultEmptyRoomPolicy())
	ctx := context.Background()

	first, err := service.CreateRoom(ctx, "first", "alice", true)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	second, err := service.CreateRoom(ctx, "second", "alice", true)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	// Activity on the first room moves it to the front.
	if err := service.Touch(ctx, first.ID, "hello"); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	roomList, err := service.ListRoomsForMember(ctx, "alice")
	if err != nil {
		t.Fatalf("ListRoomsForMember() error = %v", err)
	}
	if len(roomList) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(roomList))
	}
	if roomList[0].ID != first.ID {
		t.Errorf("most recently active room should come first, got %s", roomList[0].Name)
	}
	if roomList[0].LastMessageContent != "hello" {
		t.Errorf("preview = %q, want %q", roomList[0].LastMessageContent, "hello")
	}

	// Leaving removes the room from the member's list.
	if _, err := service.RemoveParticipant(ctx, second.ID, "alice"); err != nil {
		t.Fatalf("RemoveParticipant() error = %v", err)
	}
	roomList, err = service.ListRoomsForMember(ctx, "alice")
	if err != nil {
		t.Fatalf("ListRoomsForMember() error = %v", err)
	}
	if len(roomList) != 1 || roomList[0].ID != first.ID {
		t.Errorf("expected only the first room after leaving the second")
	}
}
