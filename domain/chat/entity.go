package chat

import (
	"time"
)

// Message kinds. A message is either an ordinary chat message or one of the
// system notices the server inserts into the log.
const (
	KindChat          = "chat"
	KindSystemJoin    = "system_join"
	KindSystemLeave   = "system_leave"
	KindSystemInvite  = "system_invite"
	KindSystemDate    = "system_date"
)

// SystemSenderID is the reserved sender identity for system messages.
const SystemSenderID = "system"

// Attachment types.
const (
	AttachmentImage = "image"
	AttachmentFile  = "file"
)

// Denormalized previews stored on the room. Attachment messages always
// render as a fixed label instead of their content.
const (
	PhotoPreview     = "📷 Photo"
	FilePreview      = "📄 File"
	RoomCreatedText  = "Chat room created."
	DeletedTombstone = "This message was deleted."
)

// Room is a named conversation context, either two-party direct or
// multi-party group. It owns its participant records; a participant never
// points back at the room.
type Room struct {
	ID                 string    `gorm:"primaryKey;type:text" json:"id"`
	Name               string    `gorm:"size:100;not null" json:"name"`
	CreatedBy          string    `gorm:"type:text" json:"created_by"`
	GroupChat          bool      `gorm:"not null" json:"group_chat"`
	CreatedAt          time.Time `json:"created_at"`
	LastActivity       time.Time `gorm:"index" json:"last_activity"`
	LastMessageContent string    `gorm:"size:500" json:"last_message_content"`

	Participants []Participant `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"participants"`
}

// TableName returns the table name for the Room entity.
func (Room) TableName() string {
	return "chat_rooms"
}

// FindParticipant returns the participant record for the given member, if
// one exists. At most one record exists per (room, member).
func (r *Room) FindParticipant(memberID string) (*Participant, bool) {
	for i := range r.Participants {
		if r.Participants[i].MemberID == memberID {
			return &r.Participants[i], true
		}
	}
	return nil, false
}

// HasActiveParticipant reports whether the member is currently in the room.
func (r *Room) HasActiveParticipant(memberID string) bool {
	p, ok := r.FindParticipant(memberID)
	return ok && p.Active
}

// ActiveParticipants returns the participants whose membership is active.
func (r *Room) ActiveParticipants() []Participant {
	var active []Participant
	for _, p := range r.Participants {
		if p.Active {
			active = append(active, p)
		}
	}
	return active
}

// ActiveMemberIDs returns the identities of all active participants.
func (r *Room) ActiveMemberIDs() []string {
	ids := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		if p.Active {
			ids = append(ids, p.MemberID)
		}
	}
	return ids
}

// Touch updates the room's last-activity timestamp.
func (r *Room) Touch() {
	r.LastActivity = time.Now()
}

// Participant links a member identity to a room with join/leave history.
// The record survives a leave so that visibility windows can be computed
// from the rejoin timestamp.
type Participant struct {
	ID         uint       `gorm:"primaryKey" json:"-"`
	RoomID     string     `gorm:"type:text;uniqueIndex:idx_room_member;not null" json:"room_id"`
	MemberID   string     `gorm:"type:text;uniqueIndex:idx_room_member;not null" json:"member_id"`
	JoinedAt   time.Time  `json:"joined_at"`
	LastLeftAt *time.Time `json:"last_left_at,omitempty"`
	Active     bool       `gorm:"not null" json:"active"`
}

// TableName returns the table name for the Participant entity.
func (Participant) TableName() string {
	return "chat_room_participants"
}

// Leave deactivates the membership, recording when the member left.
func (p *Participant) Leave(now time.Time) {
	p.Active = false
	p.LastLeftAt = &now
}

// Rejoin reactivates the membership with a fresh join timestamp. Messages
// sent before this point fall outside the member's visibility window.
func (p *Participant) Rejoin(now time.Time) {
	p.Active = true
	p.JoinedAt = now
}

// Message is an entry in a room's ordered log. Content is immutable until
// soft-deleted; ReadBy only ever grows.
type Message struct {
	ID                     string    `gorm:"primaryKey;type:text" json:"id"`
	RoomID                 string    `gorm:"type:text;index;not null" json:"room_id"`
	SenderID               string    `gorm:"type:text;not null" json:"sender_id"`
	SenderName             string    `gorm:"type:text" json:"sender_name"`
	Content                string    `json:"content"`
	Timestamp              time.Time `gorm:"index" json:"timestamp"`
	Kind                   string    `gorm:"type:text;not null;default:chat" json:"kind"`
	AttachmentType         string    `gorm:"type:text" json:"attachment_type,omitempty"`
	AttachmentURL          string    `gorm:"type:text" json:"attachment_url,omitempty"`
	AttachmentName         string    `gorm:"type:text" json:"attachment_name,omitempty"`
	ReadBy                 []string  `gorm:"serializer:json" json:"read_by"`
	ParticipantCountAtSend int       `json:"participant_count_at_send"`
	Deleted                bool      `gorm:"not null" json:"deleted"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "chat_messages"
}

// ReadByMember reports whether the member has acknowledged the message.
func (m *Message) ReadByMember(memberID string) bool {
	for _, id := range m.ReadBy {
		if id == memberID {
			return true
		}
	}
	return false
}

// AddReadBy appends the member to ReadBy if not already present. Returns
// true when the set changed.
func (m *Message) AddReadBy(memberID string) bool {
	if m.ReadByMember(memberID) {
		return false
	}
	m.ReadBy = append(m.ReadBy, memberID)
	return true
}

// IsSystem reports whether the message is a server-inserted notice.
func (m *Message) IsSystem() bool {
	return m.Kind != KindChat
}

// HasAttachment reports whether the message carries an attachment reference.
func (m *Message) HasAttachment() bool {
	return m.AttachmentURL != ""
}

// Preview returns the denormalized content stored on the room after this
// message is accepted. Attachments render as a fixed label.
func (m *Message) Preview() string {
	switch m.AttachmentType {
	case AttachmentImage:
		return PhotoPreview
	case AttachmentFile:
		return FilePreview
	default:
		return m.Content
	}
}

// ClearAttachment removes the attachment reference, used on soft delete.
func (m *Message) ClearAttachment() {
	m.AttachmentType = ""
	m.AttachmentURL = ""
	m.AttachmentName = ""
}
