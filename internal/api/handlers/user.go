package handlers

import (
	"context"
	"net/http"

	"rideshare-service/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

// PresenceReader answers whether a user has a live connection anywhere.
type PresenceReader interface {
	IsUserOnline(ctx context.Context, userID uint) (bool, error)
	OnlineUsers(ctx context.Context) ([]uint, error)
}

type UserHandler struct {
	users    AuthService
	presence PresenceReader
}

func NewUserHandler(users AuthService, presence PresenceReader) *UserHandler {
	return &UserHandler{users: users, presence: presence}
}

// GetProfile godoc
// @Summary Current user profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /users/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.users.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetPresence godoc
// @Summary Whether a user is online
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /users/{id}/presence [get]
func (h *UserHandler) GetPresence(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	online := false
	if h.presence != nil {
		var err error
		online, err = h.presence.IsUserOnline(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "online": online})
}

// GetOnlineUsers godoc
// @Summary Users with a live connection
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} response.Body
// @Failure 500 {object} response.Body
// @Router /users/online [get]
func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	userIDs := []uint{}
	if h.presence != nil {
		ids, err := h.presence.OnlineUsers(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		userIDs = append(userIDs, ids...)
	}
	c.JSON(http.StatusOK, gin.H{"userIds": userIDs, "count": len(userIDs)})
}
