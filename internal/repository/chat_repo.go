package repository

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/sbel2/citale-api/internal/models"
)

// ChatRepository persists direct messages.
type ChatRepository interface {
	Save(ctx context.Context, message *models.ChatMessage) error
	// ListInvolving returns every message the user sent or received,
	// newest first.
	ListInvolving(ctx context.Context, userID string) ([]models.ChatMessage, error)
	// ListBetween returns the full two-party thread in ascending sent_at order.
	ListBetween(ctx context.Context, viewerID, partnerID string) ([]models.ChatMessage, error)
	// MarkThreadRead flips is_read on every message the viewer received from
	// the partner.
	MarkThreadRead(ctx context.Context, viewerID, partnerID string) error
	// HasUnread reports whether the user has any unread received message.
	HasUnread(ctx context.Context, userID string) (bool, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs a chat repository backed by GORM.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Save(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *chatRepository) ListInvolving(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("sent_at DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *chatRepository) ListBetween(ctx context.Context, viewerID, partnerID string) ([]models.ChatMessage, error) {
	var sent []models.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("sender_id = ? AND receiver_id = ?", viewerID, partnerID).
		Find(&sent).Error; err != nil {
		return nil, err
	}

	var received []models.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("sender_id = ? AND receiver_id = ?", partnerID, viewerID).
		Find(&received).Error; err != nil {
		return nil, err
	}

	messages := append(sent, received...)
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})

	return messages, nil
}

func (r *chatRepository) MarkThreadRead(ctx context.Context, viewerID, partnerID string) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", viewerID, partnerID, false).
		Update("is_read", true).Error
}

func (r *chatRepository) HasUnread(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
