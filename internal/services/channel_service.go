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

type ChannelService struct {
	repo     ChannelRepository
	userRepo UserRepository
	realtime Realtime
}

func NewChannelService(repo ChannelRepository, userRepo UserRepository, realtime Realtime) *ChannelService {
	return &ChannelService{repo: repo, userRepo: userRepo, realtime: realtime}
}

// IsMember reports durable membership. The websocket hub uses it to authorize subscriptions.
func (s *ChannelService) IsMember(ctx context.Context, userID, channelID uint) (bool, error) {
	return s.repo.IsMember(ctx, userID, channelID)
}

// Create builds a channel owned by ownerID with the requested members. A direct
// channel that already exists between the two users is returned as is.
func (s *ChannelService) Create(ctx context.Context, ownerID uint, req *models.CreateChannelRequest) (*models.Channel, error) {
	owner, err := s.userRepo.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find owner: %w", err)
	}

	others := uniqueExcept(req.UserIDs, ownerID)

	switch req.Type {
	case models.ChannelTypeDirect:
		if len(others) != 1 {
			return nil, fmt.Errorf("%w: a direct channel needs exactly one other user", ErrInvalidChannel)
		}
		if existing, err := s.repo.FindDirect(ctx, ownerID, others[0]); err == nil {
			return existing, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	case models.ChannelTypeRide:
		if req.RideID == nil {
			return nil, fmt.Errorf("%w: a ride channel needs a ride id", ErrInvalidChannel)
		}
	case models.ChannelTypeSupport:
		return s.OpenSupport(ctx, ownerID)
	case models.ChannelTypeGroup:
		if req.Name == "" {
			return nil, fmt.Errorf("%w: a group channel needs a name", ErrInvalidChannel)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidChannel, req.Type)
	}

	members := []*models.User{owner}
	if len(others) > 0 {
		users, err := s.userRepo.FindByIDs(ctx, others)
		if err != nil {
			return nil, fmt.Errorf("failed to load members: %w", err)
		}
		if len(users) != len(others) {
			return nil, ErrUserNotFound
		}
		for i := range users {
			members = append(members, &users[i])
		}
	}

	name := req.Name
	if name == "" && req.Type == models.ChannelTypeDirect {
		name = members[1].Username
	}
	if name == "" && req.Type == models.ChannelTypeRide {
		name = fmt.Sprintf("Ride #%d", *req.RideID)
	}

	channel := &models.Channel{
		Name:    name,
		OwnerID: ownerID,
		Type:    req.Type,
		RideID:  req.RideID,
		Members: members,
	}
	if err := s.repo.Create(ctx, channel); err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	slog.Info("Channel created", "channelID", channel.ID, "type", channel.Type, "members", len(members))
	for _, m := range members[1:] {
		s.push(ctx, m.ID, ws.MemberAdded{ChannelID: channel.ID, UserID: m.ID})
	}
	return channel, nil
}

// OpenSupport returns the user's support channel, creating one with the first
// admin when none exists. Without an admin there is nobody to talk to.
func (s *ChannelService) OpenSupport(ctx context.Context, userID uint) (*models.Channel, error) {
	existing, err := s.repo.FindSupport(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	agent, err := s.userRepo.FindFirstByRole(ctx, models.RoleAdmin)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupportNotConfigured
		}
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	members := []*models.User{user}
	if agent.ID != user.ID {
		members = append(members, agent)
	}
	channel := &models.Channel{
		Name:    "Support",
		OwnerID: userID,
		Type:    models.ChannelTypeSupport,
		Members: members,
	}
	if err := s.repo.Create(ctx, channel); err != nil {
		return nil, fmt.Errorf("failed to create support channel: %w", err)
	}
	s.push(ctx, agent.ID, ws.MemberAdded{ChannelID: channel.ID, UserID: agent.ID})
	return channel, nil
}

// Get returns the channel when userID is a member of it.
func (s *ChannelService) Get(ctx context.Context, userID, channelID uint) (*models.Channel, error) {
	channel, err := s.load(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !hasMember(channel, userID) {
		return nil, ErrNotChannelMember
	}
	return channel, nil
}

func (s *ChannelService) ListForUser(ctx context.Context, userID uint) ([]models.Channel, error) {
	return s.repo.ListForUser(ctx, userID)
}

// AddMember lets the owner add a user to a group or ride channel.
func (s *ChannelService) AddMember(ctx context.Context, actorID, channelID, userID uint) error {
	channel, err := s.load(ctx, channelID)
	if err != nil {
		return err
	}
	if channel.OwnerID != actorID {
		return ErrNotChannelOwner
	}
	if channel.Type == models.ChannelTypeDirect {
		return fmt.Errorf("%w: direct channels have fixed members", ErrInvalidChannel)
	}
	if hasMember(channel, userID) {
		return ErrAlreadyMember
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.repo.AddUser(ctx, channelID, userID); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	event := ws.MemberAdded{ChannelID: channelID, UserID: userID}
	s.pushChannel(ctx, channelID, event)
	// the new member is not subscribed yet
	s.push(ctx, userID, event)
	return nil
}

// RemoveMember lets the owner remove anyone but themselves.
func (s *ChannelService) RemoveMember(ctx context.Context, actorID, channelID, userID uint) error {
	channel, err := s.load(ctx, channelID)
	if err != nil {
		return err
	}
	if channel.OwnerID != actorID {
		return ErrNotChannelOwner
	}
	if userID == channel.OwnerID {
		return ErrOwnerCannotLeave
	}
	if !hasMember(channel, userID) {
		return ErrNotChannelMember
	}
	return s.removeMember(ctx, channelID, userID)
}

// Leave removes the caller from a channel they do not own.
func (s *ChannelService) Leave(ctx context.Context, userID, channelID uint) error {
	channel, err := s.load(ctx, channelID)
	if err != nil {
		return err
	}
	if !hasMember(channel, userID) {
		return ErrNotChannelMember
	}
	if channel.OwnerID == userID {
		return ErrOwnerCannotLeave
	}
	return s.removeMember(ctx, channelID, userID)
}

func (s *ChannelService) removeMember(ctx context.Context, channelID, userID uint) error {
	if err := s.repo.RemoveUser(ctx, channelID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	event := ws.MemberRemoved{ChannelID: channelID, UserID: userID}
	if s.realtime != nil {
		s.realtime.RemoveUserFromChannel(userID, channelID)
	}
	s.pushChannel(ctx, channelID, event)
	s.push(ctx, userID, event)
	return nil
}

// Delete removes a channel. Live subscribers get channel_deleted before the live
// subscription set is dropped.
func (s *ChannelService) Delete(ctx context.Context, actorID, channelID uint) error {
	channel, err := s.load(ctx, channelID)
	if err != nil {
		return err
	}
	if channel.OwnerID != actorID {
		return ErrNotChannelOwner
	}

	if err := s.repo.Delete(ctx, channelID); err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	slog.Info("Channel deleted", "channelID", channelID, "deletedBy", actorID)

	s.pushChannel(ctx, channelID, ws.ChannelDeleted{ChannelID: channelID, DeletedBy: actorID})
	if s.realtime != nil {
		s.realtime.DropChannel(channelID)
	}
	return nil
}

func (s *ChannelService) load(ctx context.Context, channelID uint) (*models.Channel, error) {
	channel, err := s.repo.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	return channel, nil
}

func (s *ChannelService) push(ctx context.Context, userID uint, e ws.Event) {
	if s.realtime == nil {
		return
	}
	if _, err := s.realtime.ToUser(ctx, userID, e); err != nil {
		slog.Error("Failed to push event", "type", e.Type(), "userID", userID, "error", err)
	}
}

func (s *ChannelService) pushChannel(ctx context.Context, channelID uint, e ws.Event) {
	if s.realtime == nil {
		return
	}
	if _, err := s.realtime.ToChannel(ctx, channelID, e); err != nil {
		slog.Error("Failed to push event", "type", e.Type(), "channelID", channelID, "error", err)
	}
}

func hasMember(channel *models.Channel, userID uint) bool {
	for _, m := range channel.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

func uniqueExcept(ids []uint, except uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || id == except {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
