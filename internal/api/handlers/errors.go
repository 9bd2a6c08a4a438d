package handlers

import (
	"net/http"

	"rideshare-service/internal/services"
	"rideshare-service/internal/ws"
	"rideshare-service/pkg/response"

	"github.com/gin-gonic/gin"
)

var errorStatus = []response.Mapping{
	{Err: services.ErrInvalidRequest, Status: http.StatusBadRequest},
	{Err: services.ErrInvalidChannel, Status: http.StatusBadRequest},
	{Err: services.ErrInvalidCredentials, Status: http.StatusUnauthorized},
	{Err: services.ErrInvalidToken, Status: http.StatusUnauthorized},
	{Err: services.ErrNotChannelMember, Status: http.StatusForbidden},
	{Err: services.ErrNotChannelOwner, Status: http.StatusForbidden},
	{Err: services.ErrOwnerCannotLeave, Status: http.StatusConflict},
	{Err: ws.ErrForbidden, Status: http.StatusForbidden},
	{Err: services.ErrUserNotFound, Status: http.StatusNotFound},
	{Err: services.ErrChannelNotFound, Status: http.StatusNotFound},
	{Err: services.ErrNotificationNotFound, Status: http.StatusNotFound},
	{Err: services.ErrUserAlreadyExists, Status: http.StatusConflict},
	{Err: services.ErrAlreadyMember, Status: http.StatusConflict},
	{Err: services.ErrAttachmentTooLarge, Status: http.StatusRequestEntityTooLarge},
	{Err: services.ErrSupportNotConfigured, Status: http.StatusServiceUnavailable},
	{Err: services.ErrAttachmentsDisabled, Status: http.StatusServiceUnavailable},
}

func writeError(c *gin.Context, err error) {
	response.FromError(c, err, errorStatus)
}

func badRequest(c *gin.Context, details string) {
	response.Error(c, http.StatusBadRequest, "invalid input data", details)
}
