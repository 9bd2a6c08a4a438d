package postgres

import (
	"context"

	"rideshare-service/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListBefore returns up to limit messages of the channel with id < before (or the
// newest when before is zero), ordered newest first.
func (r *MessageRepository) ListBefore(ctx context.Context, channelID, before uint, limit int) ([]models.MessageResponse, error) {
	var out []models.MessageResponse
	q := r.db.WithContext(ctx).Table("messages").
		Select(`messages.id, messages.channel_id, messages.sender_id, users.username AS sender_name,
			messages.text, messages.url, messages.file_name, messages.created_at`).
		Joins("JOIN users ON users.id = messages.sender_id").
		Where("messages.channel_id = ? AND messages.deleted_at IS NULL", channelID)
	if before > 0 {
		q = q.Where("messages.id < ?", before)
	}
	err := q.Order("messages.id DESC").Limit(limit).Scan(&out).Error
	return out, err
}
