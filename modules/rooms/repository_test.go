package rooms

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
)

func makeRoom(name string, groupChat bool, memberIDs ...string) *chat.Room {
	now := time.Now()
	participants := make([]chat.Participant, 0, len(memberIDs))
	for _, id := range memberIDs {
		participants = append(participants, chat.Participant{
			MemberID: id, JoinedAt: now, Active: true,
		})
	}
	return &chat.Room{
		ID:           uuid.New().String(),
		Name:         name,
		GroupChat:    groupChat,
		CreatedAt:    now,
		LastActivity: now,
		Participants: participants,
	}
}

func TestRepository_FindDirectRoom_ExactPairOnly(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	direct := makeRoom("DirectChat", false, "alice", "bob")
	if err := repo.Create(direct); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// A group room containing the same pair plus one more must not match.
	group := makeRoom("team", true, "alice", "bob", "carol")
	if err := repo.Create(group); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := repo.FindDirectRoom("alice", "bob")
	if err != nil {
		t.Fatalf("FindDirectRoom() error = %v", err)
	}
	if found.ID != direct.ID {
		t.Errorf("FindDirectRoom() = %s, want %s", found.ID, direct.ID)
	}

	if _, err := repo.FindDirectRoom("alice", "carol"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound for unpaired members, got %v", err)
	}
}

func TestRepository_ParticipantUniqueIndex(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	room := makeRoom("idx", true, "alice")
	if err := repo.Create(room); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := &chat.Participant{
		RoomID:   room.ID,
		MemberID: "alice",
		JoinedAt: time.Now(),
		Active:   true,
	}
	if err := repo.CreateParticipant(dup); err == nil {
		t.Error("expected unique index violation for duplicate (room, member) record")
	}
}

func TestRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	room := makeRoom("gone", false, "alice", "bob")
	if err := repo.Create(room); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(room.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.FindByID(room.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := repo.FindParticipant(room.ID, "alice"); !errors.Is(err, ErrParticipantNotFound) {
		t.Errorf("expected participant records to be removed, got %v", err)
	}

	if err := repo.Delete("missing"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Delete() on missing room = %v, want ErrRoomNotFound", err)
	}
}
