package services

import (
	"context"
	"errors"
	"time"

	"rideshare-service/internal/models"
	"rideshare-service/internal/ws"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidRequest     = errors.New("invalid request")

	ErrChannelNotFound      = errors.New("channel not found")
	ErrNotChannelMember     = errors.New("not a member of this channel")
	ErrNotChannelOwner      = errors.New("only the channel owner can do this")
	ErrAlreadyMember        = errors.New("user is already a member")
	ErrOwnerCannotLeave     = errors.New("the owner cannot leave the channel")
	ErrInvalidChannel       = errors.New("invalid channel request")
	ErrSupportNotConfigured = errors.New("no support agent is configured")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrAttachmentsDisabled  = errors.New("attachment storage is not configured")
	ErrAttachmentTooLarge   = errors.New("attachment exceeds the size limit")
)

// Realtime is the push side of the websocket hub the services talk to.
type Realtime interface {
	ToChannel(ctx context.Context, channelID uint, e ws.Event) (ws.Delivery, error)
	ToChannelExcept(ctx context.Context, channelID uint, e ws.Event, excludeUserID uint) (ws.Delivery, error)
	ToUser(ctx context.Context, userID uint, e ws.Event) (ws.Delivery, error)
	DropChannel(channelID uint)
	RemoveUserFromChannel(userID, channelID uint)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	FindFirstByRole(ctx context.Context, role models.Role) (*models.User, error)
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	Delete(ctx context.Context, channelID uint) error
	GetByID(ctx context.Context, channelID uint) (*models.Channel, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Channel, error)
	IsMember(ctx context.Context, userID, channelID uint) (bool, error)
	AddUser(ctx context.Context, channelID, userID uint) error
	RemoveUser(ctx context.Context, channelID, userID uint) error
	FindDirect(ctx context.Context, userA, userB uint) (*models.Channel, error)
	FindSupport(ctx context.Context, userID uint) (*models.Channel, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListBefore(ctx context.Context, channelID, before uint, limit int) ([]models.MessageResponse, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, id uint, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error)
	Exists(ctx context.Context, userID, id uint) (bool, error)
}

// clampLimit applies the default page size and the upper bound.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
