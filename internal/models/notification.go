package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type NotificationKind string

const (
	NotificationRideUpdate NotificationKind = "ride_update"
	NotificationMessage    NotificationKind = "message"
	NotificationPayment    NotificationKind = "payment"
	NotificationSystem     NotificationKind = "system"
)

/** --------------------ENTITIES-------------------- */
type Notification struct {
	gorm.Model
	UserID uint             `gorm:"not null;index" json:"userId"`
	Kind   NotificationKind `gorm:"type:varchar(32);not null" json:"kind"`
	Title  string           `gorm:"not null" json:"title"`
	Body   string           `gorm:"type:text" json:"body"`
	Data   string           `gorm:"type:text" json:"-"` // raw JSON
	Read   bool             `gorm:"column:is_read;not null;default:false" json:"read"`
	ReadAt *time.Time       `json:"readAt,omitempty"`
}

/** -------------------- DTOs -------------------- */
type CreateNotificationRequest struct {
	UserID uint             `json:"userId" binding:"required"`
	Kind   NotificationKind `json:"kind" binding:"required"`
	Title  string           `json:"title" binding:"required"`
	Body   string           `json:"body"`
	Data   json.RawMessage  `json:"data,omitempty"`
}

type NotificationResponse struct {
	ID        uint             `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Data      json.RawMessage  `json:"data,omitempty"`
	Read      bool             `json:"read"`
	ReadAt    *time.Time       `json:"readAt,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

type MarkReadResponse struct {
	Updated bool `json:"updated"`
}

func (n *Notification) ToResponse() NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID,
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
	if n.Data != "" {
		resp.Data = json.RawMessage(n.Data)
	}
	return resp
}
