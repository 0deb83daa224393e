package messages

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
)

// ErrMessageNotFound is returned when a message is not found.
var ErrMessageNotFound = errors.New("message not found")

// Repository provides access to the append-oriented message log. It runs on
// its own database handle, independent of the room store.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new message repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save persists a new message.
func (r *Repository) Save(message *chat.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// Update persists changes to an existing message (read marks, soft delete).
func (r *Repository) Update(message *chat.Message) error {
	// Select mutable columns explicitly so cleared attachment fields are
	// written even though they are zero values.
	err := r.db.Model(message).
		Select("content", "attachment_type", "attachment_url", "attachment_name", "read_by", "deleted").
		Updates(message).Error
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return nil
}

// FindByID retrieves a message by ID.
func (r *Repository) FindByID(messageID string) (*chat.Message, error) {
	var message chat.Message
	if err := r.db.First(&message, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &message, nil
}

// FindByRoomAsc returns a room's full log in ascending timestamp order.
func (r *Repository) FindByRoomAsc(roomID string) ([]*chat.Message, error) {
	var messages []*chat.Message
	err := r.db.Where("room_id = ?", roomID).
		Order("timestamp ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// FindTopN returns the room's most recent n messages, newest first.
func (r *Repository) FindTopN(roomID string, n int) ([]*chat.Message, error) {
	var messages []*chat.Message
	err := r.db.Where("room_id = ?", roomID).
		Order("timestamp DESC").
		Limit(n).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	return messages, nil
}
