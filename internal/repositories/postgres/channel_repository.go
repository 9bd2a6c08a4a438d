package postgres

import (
	"context"

	"rideshare-service/internal/models"

	"gorm.io/gorm"
)

type ChannelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db}
}

func memberColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id, username, email, role, avatar, created_at, updated_at, deleted_at")
}

func (r *ChannelRepository) Create(ctx context.Context, channel *models.Channel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

// Delete clears the memberships and soft-deletes the channel.
func (r *ChannelRepository) Delete(ctx context.Context, channelID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Channel{Model: gorm.Model{ID: channelID}}).Association("Members").Clear()
		if err != nil {
			return err
		}
		return tx.Delete(&models.Channel{}, channelID).Error
	})
}

func (r *ChannelRepository) GetByID(ctx context.Context, channelID uint) (*models.Channel, error) {
	var c models.Channel
	err := r.db.WithContext(ctx).Preload("Members", memberColumns).First(&c, channelID).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChannelRepository) ListForUser(ctx context.Context, userID uint) ([]models.Channel, error) {
	var c []models.Channel
	err := r.db.WithContext(ctx).
		Preload("Members", memberColumns).
		Joins("JOIN channel_members ON channels.id = channel_members.channel_id").
		Where("channel_members.user_id = ?", userID).
		Order("channels.updated_at DESC").
		Find(&c).Error
	return c, err
}

func (r *ChannelRepository) IsMember(ctx context.Context, userID, channelID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("channel_members").
		Joins("JOIN channels ON channels.id = channel_members.channel_id AND channels.deleted_at IS NULL").
		Where("channel_members.channel_id = ? AND channel_members.user_id = ?", channelID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *ChannelRepository) AddUser(ctx context.Context, channelID, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Channel{Model: gorm.Model{ID: channelID}}).
		Association("Members").
		Append(&models.User{Model: gorm.Model{ID: userID}})
}

func (r *ChannelRepository) RemoveUser(ctx context.Context, channelID, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Channel{Model: gorm.Model{ID: channelID}}).
		Association("Members").
		Delete(&models.User{Model: gorm.Model{ID: userID}})
}

// FindDirect returns the direct channel shared by exactly these two users.
func (r *ChannelRepository) FindDirect(ctx context.Context, userA, userB uint) (*models.Channel, error) {
	var c models.Channel
	err := r.db.WithContext(ctx).
		Where("channels.type = ?", models.ChannelTypeDirect).
		Where("channels.id IN (?)", r.db.Table("channel_members").Select("channel_id").Where("user_id = ?", userA)).
		Where("channels.id IN (?)", r.db.Table("channel_members").Select("channel_id").Where("user_id = ?", userB)).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindSupport returns the user's open support channel.
func (r *ChannelRepository) FindSupport(ctx context.Context, userID uint) (*models.Channel, error) {
	var c models.Channel
	err := r.db.WithContext(ctx).
		Where("type = ? AND owner_id = ?", models.ChannelTypeSupport, userID).
		Order("id DESC").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}
