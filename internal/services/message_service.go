package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rideshare-service/internal/models"
	"rideshare-service/internal/ws"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type MessageService struct {
	repo        MessageRepository
	channelRepo ChannelRepository
	userRepo    UserRepository
	realtime    Realtime
}

func NewMessageService(repo MessageRepository, channelRepo ChannelRepository, userRepo UserRepository, realtime Realtime) *MessageService {
	return &MessageService{
		repo:        repo,
		channelRepo: channelRepo,
		userRepo:    userRepo,
		realtime:    realtime,
	}
}

// Send persists a message and pushes it live: new_message to the other
// subscribers of the channel, message_sent to every connection of the sender.
func (s *MessageService) Send(ctx context.Context, senderID, channelID uint, req *models.SendMessageRequest) (*models.MessageResponse, error) {
	if err := s.requireMember(ctx, senderID, channelID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ChannelID: channelID,
		SenderID:  senderID,
		Text:      req.Text,
		URL:       req.URL,
		FileName:  req.FileName,
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	resp := models.MessageResponse{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		SenderID:  msg.SenderID,
		Text:      msg.Text,
		URL:       msg.URL,
		FileName:  msg.FileName,
		CreatedAt: msg.CreatedAt,
	}
	if sender, err := s.userRepo.FindByID(ctx, senderID); err == nil {
		resp.SenderName = sender.Username
	}

	if s.realtime != nil {
		payload := ws.MessagePayload(resp)
		d, err := s.realtime.ToChannelExcept(ctx, channelID, ws.NewMessage(payload), senderID)
		if err != nil {
			slog.Error("Failed to broadcast message", "messageID", msg.ID, "channelID", channelID, "error", err)
		} else {
			slog.Debug("Message broadcast", "messageID", msg.ID, "channelID", channelID,
				"recipients", d.Recipients, "failed", d.Failed)
		}
		if _, err := s.realtime.ToUser(ctx, senderID, ws.MessageSent(payload)); err != nil {
			slog.Error("Failed to confirm message", "messageID", msg.ID, "userID", senderID, "error", err)
		}
	}
	return &resp, nil
}

// List returns one page of history, oldest first. before is the NextCursor of
// the previous page, zero for the newest page.
func (s *MessageService) List(ctx context.Context, userID, channelID, before uint, limit int) (*models.MessagePage, error) {
	if err := s.requireMember(ctx, userID, channelID); err != nil {
		return nil, err
	}
	limit = clampLimit(limit, defaultPageSize, maxPageSize)

	rows, err := s.repo.ListBefore(ctx, channelID, before, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	page := &models.MessagePage{Messages: rows}
	if len(rows) > limit {
		page.Messages = rows[:limit]
	}
	// rows come newest first
	for i, j := 0, len(page.Messages)-1; i < j; i, j = i+1, j-1 {
		page.Messages[i], page.Messages[j] = page.Messages[j], page.Messages[i]
	}
	if len(rows) > limit {
		page.NextCursor = page.Messages[0].ID
	}
	if page.Messages == nil {
		page.Messages = []models.MessageResponse{}
	}
	return page, nil
}

func (s *MessageService) requireMember(ctx context.Context, userID, channelID uint) error {
	ok, err := s.channelRepo.IsMember(ctx, userID, channelID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	// tell a missing channel apart from a foreign one
	if _, err := s.channelRepo.GetByID(ctx, channelID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChannelNotFound
		}
		return fmt.Errorf("failed to load channel: %w", err)
	}
	return ErrNotChannelMember
}
