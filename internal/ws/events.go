package ws

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the value of the "type" key of every outbound frame.
type EventType string

const (
	EventConnected          EventType = "connected"
	EventNewMessage         EventType = "new_message"
	EventMessageSent        EventType = "message_sent"
	EventChannelDeleted     EventType = "channel_deleted"
	EventMemberAdded        EventType = "member_added"
	EventMemberRemoved      EventType = "member_removed"
	EventNotification       EventType = "notification"
	EventNotificationRead   EventType = "notification_read"
	EventUserTyping         EventType = "user_typing"
	EventJoinedConversation EventType = "joined_conversation"
	EventLeftConversation   EventType = "left_conversation"
	EventPong               EventType = "pong"
	EventError              EventType = "error"
)

func (t EventType) String() string {
	return string(t)
}

// Event is the closed set of payloads the realtime layer pushes to clients.
type Event interface {
	Type() EventType
	payload() any
}

// envelope is the wire shape shared by every event.
type envelope struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// Encode serializes an event into a text frame.
func Encode(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("encode: nil event")
	}
	return json.Marshal(envelope{Type: e.Type(), Data: e.payload()})
}

// MessagePayload describes a persisted chat message.
type MessagePayload struct {
	ID         uint      `json:"id"`
	ChannelID  uint      `json:"channelId"`
	SenderID   uint      `json:"senderId"`
	SenderName string    `json:"senderName,omitempty"`
	Text       *string   `json:"text,omitempty"`
	URL        *string   `json:"url,omitempty"`
	FileName   *string   `json:"fileName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewMessage is pushed to the other live subscribers of the message's channel.
type NewMessage MessagePayload

// MessageSent acknowledges a persisted message to its sender's connections.
type MessageSent MessagePayload

type ChannelDeleted struct {
	ChannelID uint `json:"channelId"`
	DeletedBy uint `json:"deletedBy"`
}

type MemberAdded struct {
	ChannelID uint `json:"channelId"`
	UserID    uint `json:"userId"`
}

type MemberRemoved struct {
	ChannelID uint `json:"channelId"`
	UserID    uint `json:"userId"`
}

type Notification struct {
	ID        uint            `json:"id"`
	Kind      string          `json:"kind"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NotificationRead with All set means every notification of the user was marked read.
type NotificationRead struct {
	ID  uint `json:"id,omitempty"`
	All bool `json:"all,omitempty"`
}

type UserTyping struct {
	ChannelID uint `json:"channelId"`
	UserID    uint `json:"userId"`
	IsTyping  bool `json:"isTyping"`
}

type JoinedConversation struct {
	ChannelID uint `json:"channelId"`
}

type LeftConversation struct {
	ChannelID uint `json:"channelId"`
}

// Pong answers a client ping; Timestamp echoes the client's value when it sent one.
type Pong struct {
	Timestamp *int64 `json:"timestamp,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Connected struct {
	ClientID string `json:"clientId"`
	UserID   uint   `json:"userId"`
}

func (e NewMessage) Type() EventType         { return EventNewMessage }
func (e MessageSent) Type() EventType        { return EventMessageSent }
func (e ChannelDeleted) Type() EventType     { return EventChannelDeleted }
func (e MemberAdded) Type() EventType        { return EventMemberAdded }
func (e MemberRemoved) Type() EventType      { return EventMemberRemoved }
func (e Notification) Type() EventType       { return EventNotification }
func (e NotificationRead) Type() EventType   { return EventNotificationRead }
func (e UserTyping) Type() EventType         { return EventUserTyping }
func (e JoinedConversation) Type() EventType { return EventJoinedConversation }
func (e LeftConversation) Type() EventType   { return EventLeftConversation }
func (e Pong) Type() EventType               { return EventPong }
func (e Error) Type() EventType              { return EventError }
func (e Connected) Type() EventType          { return EventConnected }

func (e NewMessage) payload() any         { return e }
func (e MessageSent) payload() any        { return e }
func (e ChannelDeleted) payload() any     { return e }
func (e MemberAdded) payload() any        { return e }
func (e MemberRemoved) payload() any      { return e }
func (e Notification) payload() any       { return e }
func (e NotificationRead) payload() any   { return e }
func (e UserTyping) payload() any         { return e }
func (e JoinedConversation) payload() any { return e }
func (e LeftConversation) payload() any   { return e }
func (e Error) payload() any              { return e }
func (e Connected) payload() any          { return e }

func (e Pong) payload() any {
	if e.Timestamp == nil {
		return nil
	}
	return e
}

// DecodeEvent rebuilds an event from its wire type and data, used by ingest paths
// that receive events produced outside this process.
func DecodeEvent(t EventType, data json.RawMessage) (Event, error) {
	var (
		e   Event
		err error
	)
	switch t {
	case EventNewMessage:
		e, err = decodeAs[NewMessage](data)
	case EventMessageSent:
		e, err = decodeAs[MessageSent](data)
	case EventChannelDeleted:
		e, err = decodeAs[ChannelDeleted](data)
	case EventMemberAdded:
		e, err = decodeAs[MemberAdded](data)
	case EventMemberRemoved:
		e, err = decodeAs[MemberRemoved](data)
	case EventNotification:
		e, err = decodeAs[Notification](data)
	case EventNotificationRead:
		e, err = decodeAs[NotificationRead](data)
	case EventUserTyping:
		e, err = decodeAs[UserTyping](data)
	case EventJoinedConversation:
		e, err = decodeAs[JoinedConversation](data)
	case EventLeftConversation:
		e, err = decodeAs[LeftConversation](data)
	case EventPong:
		e, err = decodeAs[Pong](data)
	case EventError:
		e, err = decodeAs[Error](data)
	case EventConnected:
		e, err = decodeAs[Connected](data)
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return e, nil
}

func decodeAs[T Event](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 || string(data) == "null" {
		return v, nil
	}
	err := json.Unmarshal(data, &v)
	return v, err
}
