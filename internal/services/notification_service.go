package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"rideshare-service/internal/models"
	"rideshare-service/internal/ws"
)

type NotificationService struct {
	repo     NotificationRepository
	realtime Realtime
	now      func() time.Time
}

func NewNotificationService(repo NotificationRepository, realtime Realtime) *NotificationService {
	return &NotificationService{repo: repo, realtime: realtime, now: time.Now}
}

// Create stores a notification and pushes it to the user's live connections.
func (s *NotificationService) Create(ctx context.Context, req *models.CreateNotificationRequest) (*models.NotificationResponse, error) {
	if req.UserID == 0 || req.Title == "" || req.Kind == "" {
		return nil, ErrInvalidRequest
	}
	if len(req.Data) > 0 && !json.Valid(req.Data) {
		return nil, fmt.Errorf("%w: data is not valid JSON", ErrInvalidRequest)
	}

	n := &models.Notification{
		UserID: req.UserID,
		Kind:   req.Kind,
		Title:  req.Title,
		Body:   req.Body,
		Data:   string(req.Data),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to save notification: %w", err)
	}

	resp := n.ToResponse()
	if s.realtime != nil {
		event := ws.Notification{
			ID:        resp.ID,
			Kind:      string(resp.Kind),
			Title:     resp.Title,
			Body:      resp.Body,
			Data:      resp.Data,
			CreatedAt: resp.CreatedAt,
		}
		if _, err := s.realtime.ToUser(ctx, n.UserID, event); err != nil {
			slog.Error("Failed to push notification", "notificationID", n.ID, "userID", n.UserID, "error", err)
		}
	}
	return &resp, nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.NotificationResponse, error) {
	limit = clampLimit(limit, defaultPageSize, maxPageSize)
	if offset < 0 {
		offset = 0
	}
	rows, err := s.repo.ListForUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	out := make([]models.NotificationResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToResponse())
	}
	return out, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkRead marks one notification read. Only the call that actually flips it
// returns true and pushes notification_read; repeats are no-ops.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (bool, error) {
	updated, err := s.repo.MarkRead(ctx, userID, id, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !updated {
		exists, err := s.repo.Exists(ctx, userID, id)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, ErrNotificationNotFound
		}
		return false, nil
	}

	if s.realtime != nil {
		if _, err := s.realtime.ToUser(ctx, userID, ws.NotificationRead{ID: id}); err != nil {
			slog.Error("Failed to push notification_read", "notificationID", id, "userID", userID, "error", err)
		}
	}
	return true, nil
}

// MarkAllRead marks every unread notification of the user read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	if n > 0 && s.realtime != nil {
		if _, err := s.realtime.ToUser(ctx, userID, ws.NotificationRead{All: true}); err != nil {
			slog.Error("Failed to push notification_read", "userID", userID, "error", err)
		}
	}
	return n, nil
}
