package rooms

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
)

var (
	// ErrRoomNotFound is returned when a room is not found.
	ErrRoomNotFound = errors.New("room not found")
	// ErrParticipantNotFound is returned when a member has no participant
	// record in a room.
	ErrParticipantNotFound = errors.New("participant not found")
)

// Repository provides access to room and participant storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new rooms repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create saves a new room together with its initial participants.
func (r *Repository) Create(room *chat.Room) error {
	if err := r.db.Create(room).Error; err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// FindByID retrieves a room with its participants.
func (r *Repository) FindByID(roomID string) (*chat.Room, error) {
	var room chat.Room
	if err := r.db.Preload("Participants").First(&room, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	return &room, nil
}

// FindDirectRoom looks up the non-group room whose participant set is exactly
// the given pair. The lookup is order-independent, so a second direct room
// for the same pair can never be created through this path.
func (r *Repository) FindDirectRoom(memberA, memberB string) (*chat.Room, error) {
	var room chat.Room
	err := r.db.Preload("Participants").
		Where("group_chat = ?", false).
		Where("EXISTS (SELECT 1 FROM chat_room_participants p WHERE p.room_id = chat_rooms.id AND p.member_id = ?)", memberA).
		Where("EXISTS (SELECT 1 FROM chat_room_participants p WHERE p.room_id = chat_rooms.id AND p.member_id = ?)", memberB).
		Where("(SELECT COUNT(*) FROM chat_room_participants p WHERE p.room_id = chat_rooms.id) = 2").
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find direct room: %w", err)
	}
	return &room, nil
}

// ListForMember returns the rooms where the member is an active participant,
// most recently active first.
func (r *Repository) ListForMember(memberID string) ([]*chat.Room, error) {
	var rooms []*chat.Room
	err := r.db.Preload("Participants").
		Joins("JOIN chat_room_participants p ON p.room_id = chat_rooms.id").
		Where("p.member_id = ? AND p.active = ?", memberID, true).
		Order("chat_rooms.last_activity DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// FindParticipant retrieves the single participant record for a member in a
// room. A unique index on (room_id, member_id) guarantees at most one exists.
func (r *Repository) FindParticipant(roomID, memberID string) (*chat.Participant, error) {
	var participant chat.Participant
	err := r.db.First(&participant, "room_id = ? AND member_id = ?", roomID, memberID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return &participant, nil
}

// CreateParticipant saves a new participant record.
func (r *Repository) CreateParticipant(participant *chat.Participant) error {
	if err := r.db.Create(participant).Error; err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

// SaveParticipant persists changes to an existing participant record.
func (r *Repository) SaveParticipant(participant *chat.Participant) error {
	// Select all mutable columns so Active=false and LastLeftAt=nil survive
	// gorm's zero-value skipping.
	err := r.db.Model(participant).
		Select("joined_at", "last_left_at", "active").
		Updates(participant).Error
	if err != nil {
		return fmt.Errorf("failed to save participant: %w", err)
	}
	return nil
}

// CountActiveParticipants returns the number of active participants in a room.
func (r *Repository) CountActiveParticipants(roomID string) (int64, error) {
	var count int64
	err := r.db.Model(&chat.Participant{}).
		Where("room_id = ? AND active = ?", roomID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// Touch updates the room's last-activity timestamp and denormalized preview.
func (r *Repository) Touch(roomID, lastMessageContent string) error {
	result := r.db.Model(&chat.Room{}).
		Where("id = ?", roomID).
		Updates(map[string]any{
			"last_activity":        time.Now(),
			"last_message_content": lastMessageContent,
		})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// Delete removes a room and all its participant records.
func (r *Repository) Delete(roomID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&chat.Participant{}, "room_id = ?", roomID).Error; err != nil {
			return fmt.Errorf("failed to delete participants: %w", err)
		}
		result := tx.Delete(&chat.Room{}, "id = ?", roomID)
		if err := result.Error; err != nil {
			return fmt.Errorf("failed to delete room: %w", err)
		}
		if result.RowsAffected == 0 {
			return ErrRoomNotFound
		}
		return nil
	})
}
