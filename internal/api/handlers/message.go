package handlers

import (
	"context"
	"io"
	"net/http"

	"rideshare-service/internal/api/middleware"
	"rideshare-service/internal/models"
	"rideshare-service/internal/utils"

	"github.com/gin-gonic/gin"
)

type MessageService interface {
	Send(ctx context.Context, senderID, channelID uint, req *models.SendMessageRequest) (*models.MessageResponse, error)
	List(ctx context.Context, userID, channelID, before uint, limit int) (*models.MessagePage, error)
}

type AttachmentService interface {
	Upload(ctx context.Context, userID uint, fileName, contentType string, size int64, r io.Reader) (*models.AttachmentResponse, error)
}

type MessageHandler struct {
	messages    MessageService
	attachments AttachmentService
}

func NewMessageHandler(messages MessageService, attachments AttachmentService) *MessageHandler {
	return &MessageHandler{messages: messages, attachments: attachments}
}

// GetChannelMessages godoc
// @Summary Channel history
// @Description Returns one page of messages, oldest first. Pass nextCursor back as before for older messages.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Channel ID"
// @Param before query int false "Cursor from the previous page"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} models.MessagePage
// @Failure 403 {object} response.Body "Not a member"
// @Router /channels/{id}/messages [get]
func (h *MessageHandler) GetChannelMessages(c *gin.Context) {
	channelID, ok := pathID(c, "id")
	if !ok {
		return
	}
	before, err := utils.OptionalUint(c.Query("before"), 0)
	if err != nil {
		badRequest(c, "invalid before")
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	page, err := h.messages.List(c.Request.Context(), middleware.UserID(c), channelID, before, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SendMessage godoc
// @Summary Send a message
// @Description Stores the message, pushes new_message to the other live members and message_sent to the sender.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Channel ID"
// @Param request body models.SendMessageRequest true "Message"
// @Success 201 {object} models.MessageResponse
// @Failure 400 {object} response.Body
// @Failure 403 {object} response.Body "Not a member"
// @Router /channels/{id}/messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	channelID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), middleware.UserID(c), channelID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UploadAttachment godoc
// @Summary Upload a message attachment
// @Description Stores the file and returns a URL to send in a message.
// @Tags messages
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Attachment"
// @Success 201 {object} models.AttachmentResponse
// @Failure 413 {object} response.Body
// @Failure 503 {object} response.Body "Storage not configured"
// @Router /messages/attachments [post]
func (h *MessageHandler) UploadAttachment(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	src, err := file.Open()
	if err != nil {
		badRequest(c, "cannot read file")
		return
	}
	defer src.Close()

	resp, err := h.attachments.Upload(c.Request.Context(), middleware.UserID(c),
		file.Filename, file.Header.Get("Content-Type"), file.Size, src)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
