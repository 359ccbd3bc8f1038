package models

import "time"

// ChatMessage is a single direct message between two users. A message is
// created by the sender, visible to both participants and only ever mutated
// to flip IsRead.
type ChatMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   string    `gorm:"size:64;index" json:"sender_id"`
	ReceiverID string    `gorm:"size:64;index" json:"receiver_id"`
	Content    string    `gorm:"type:text" json:"content"`
	SentAt     time.Time `gorm:"index;not null" json:"sent_at"`
	IsRead     bool      `gorm:"not null;default:false" json:"is_read"`
}

// TableName keeps the legacy table name used by the web client.
func (ChatMessage) TableName() string {
	return "chats"
}
