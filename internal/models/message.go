package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrEmptyMessage = errors.New("message needs text or an attachment")

/** --------------------ENTITIES-------------------- */
type Message struct {
	gorm.Model
	ChannelID uint    `gorm:"not null;index" json:"channelId"`
	SenderID  uint    `gorm:"not null;index" json:"senderId"`
	Text      *string `json:"text,omitempty"`
	URL       *string `json:"url,omitempty"`
	FileName  *string `json:"fileName,omitempty"`

	Sender User `gorm:"foreignKey:SenderID" json:"-"`
}

// Validate requires a non-empty text or an attachment URL.
func (m *Message) Validate() error {
	hasText := m.Text != nil && *m.Text != ""
	hasURL := m.URL != nil && *m.URL != ""
	if !hasText && !hasURL {
		return ErrEmptyMessage
	}
	return nil
}

/** -------------------- DTOs -------------------- */
type SendMessageRequest struct {
	Text     *string `json:"text,omitempty"`
	URL      *string `json:"url,omitempty"`
	FileName *string `json:"fileName,omitempty"`
}

type MessageResponse struct {
	ID         uint      `json:"id"`
	ChannelID  uint      `json:"channelId"`
	SenderID   uint      `json:"senderId"`
	SenderName string    `json:"senderName,omitempty"`
	Text       *string   `json:"text,omitempty"`
	URL        *string   `json:"url,omitempty"`
	FileName   *string   `json:"fileName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MessagePage is one page of history, oldest first. NextCursor is passed as
// ?before= to fetch the previous page and is zero when there is none.
type MessagePage struct {
	Messages   []MessageResponse `json:"messages"`
	NextCursor uint              `json:"nextCursor,omitempty"`
}

type AttachmentResponse struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
}
