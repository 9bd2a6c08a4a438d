package handlers

import (
	"context"
	"net/http"

	"rideshare-service/internal/api/middleware"
	"rideshare-service/internal/models"

	"github.com/gin-gonic/gin"
)

type ChannelService interface {
	Create(ctx context.Context, ownerID uint, req *models.CreateChannelRequest) (*models.Channel, error)
	OpenSupport(ctx context.Context, userID uint) (*models.Channel, error)
	Get(ctx context.Context, userID, channelID uint) (*models.Channel, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Channel, error)
	AddMember(ctx context.Context, actorID, channelID, userID uint) error
	RemoveMember(ctx context.Context, actorID, channelID, userID uint) error
	Leave(ctx context.Context, userID, channelID uint) error
	Delete(ctx context.Context, actorID, channelID uint) error
}

type ChannelHandler struct {
	channels ChannelService
}

func NewChannelHandler(channels ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// GetUserChannels godoc
// @Summary Get user's channels
// @Description Get all channels that the current user is a member of
// @Tags channels
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ChannelResponse "List of user's channels"
// @Failure 401 {object} response.Body "Unauthorized - invalid or missing token"
// @Failure 500 {object} response.Body "Internal server error"
// @Router /channels [get]
func (h *ChannelHandler) GetUserChannels(c *gin.Context) {
	channels, err := h.channels.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]models.ChannelResponse, 0, len(channels))
	for i := range channels {
		out = append(out, channels[i].ToResponse())
	}
	c.JSON(http.StatusOK, out)
}

// CreateChannel godoc
// @Summary Create a new channel
// @Description Create a direct, group, ride or support channel. Direct and support channels are reused when they already exist.
// @Tags channels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateChannelRequest true "Channel creation data"
// @Success 201 {object} models.ChannelResponse "Channel created successfully"
// @Failure 400 {object} response.Body "Bad request - invalid input data"
// @Failure 404 {object} response.Body "A member does not exist"
// @Failure 503 {object} response.Body "No support agent configured"
// @Router /channels [post]
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req models.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	channel, err := h.channels.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, channel.ToResponse())
}

// OpenSupport godoc
// @Summary Open the support conversation
// @Tags channels
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.ChannelResponse
// @Failure 503 {object} response.Body "No support agent configured"
// @Router /channels/support [post]
func (h *ChannelHandler) OpenSupport(c *gin.Context) {
	channel, err := h.channels.OpenSupport(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, channel.ToResponse())
}

// GetChannelByID godoc
// @Summary Get channel by ID
// @Tags channels
// @Produce json
// @Security BearerAuth
// @Param id path int true "Channel ID"
// @Success 200 {object} models.ChannelResponse
// @Failure 403 {object} response.Body "Not a member"
// @Failure 404 {object} response.Body "Channel not found"
// @Router /channels/{id} [get]
func (h *ChannelHandler) GetChannelByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	channel, err := h.channels.Get(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, channel.ToResponse())
}

// DeleteChannel godoc
// @Summary Delete channel
// @Description Owner only. Live subscribers receive channel_deleted.
// @Tags channels
// @Security BearerAuth
// @Param id path int true "Channel ID"
// @Success 204
// @Failure 403 {object} response.Body "Not the owner"
// @Failure 404 {object} response.Body "Channel not found"
// @Router /channels/{id} [delete]
func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.channels.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddMember godoc
// @Summary Add user to channel
// @Tags channels
// @Accept json
// @Security BearerAuth
// @Param id path int true "Channel ID"
// @Param request body models.MemberRequest true "User to add"
// @Success 204
// @Failure 403 {object} response.Body "Not the owner"
// @Failure 409 {object} response.Body "Already a member"
// @Router /channels/{id}/members [post]
func (h *ChannelHandler) AddMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.channels.AddMember(c.Request.Context(), middleware.UserID(c), id, req.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveMember godoc
// @Summary Remove user from channel
// @Tags channels
// @Accept json
// @Security BearerAuth
// @Param id path int true "Channel ID"
// @Param request body models.MemberRequest true "User to remove"
// @Success 204
// @Router /channels/{id}/members [delete]
func (h *ChannelHandler) RemoveMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.channels.RemoveMember(c.Request.Context(), middleware.UserID(c), id, req.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LeaveChannel godoc
// @Summary Leave channel
// @Tags channels
// @Security BearerAuth
// @Param id path int true "Channel ID"
// @Success 204
// @Failure 409 {object} response.Body "The owner cannot leave"
// @Router /channels/{id}/leave [put]
func (h *ChannelHandler) LeaveChannel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.channels.Leave(c.Request.Context(), middleware.UserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
