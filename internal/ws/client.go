package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Frames queued per connection before it is considered dead
	sendBufferSize = 256
)

// Inbound control frame types.
const (
	frameSubscribe         = "subscribe"
	frameJoinConversation  = "join_conversation"
	frameUnsubscribe       = "unsubscribe"
	frameLeaveConversation = "leave_conversation"
	frameTyping            = "typing"
	frameTypingIndicator   = "typing_indicator"
	framePing              = "ping"
)

// Error codes carried by error frames.
const (
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeUnknownType    = "UNKNOWN_TYPE"
	CodeMissingChannel = "MISSING_CHANNEL"
	CodeForbidden      = "FORBIDDEN"
	CodeNotJoined      = "NOT_JOINED"
	CodeInternal       = "INTERNAL_ERROR"
)

// controlFrame is what clients send. Both the channel_* and conversation_* spellings
// are accepted for the same field.
type controlFrame struct {
	Type           string `json:"type"`
	ChannelID      *uint  `json:"channel_id,omitempty"`
	ConversationID *uint  `json:"conversation_id,omitempty"`
	IsTyping       *bool  `json:"is_typing,omitempty"`
	Timestamp      *int64 `json:"timestamp,omitempty"`
}

func (f controlFrame) channel() (uint, bool) {
	switch {
	case f.ChannelID != nil && *f.ChannelID != 0:
		return *f.ChannelID, true
	case f.ConversationID != nil && *f.ConversationID != 0:
		return *f.ConversationID, true
	}
	return 0, false
}

// Client is one gorilla/websocket connection. Outbound frames go through a
// buffered queue drained by writePump, so a slow peer never blocks a broadcaster.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint

	ctx    context.Context
	cancel context.CancelFunc
	closed int32

	wg sync.WaitGroup
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:     uuid.New().String(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() uint {
	return c.userID
}

// Send queues a frame for writePump. It fails when the client is closed or its
// queue is full; a full queue closes the client. Enqueueing never blocks, so the
// caller's context is not consulted: a finished request must not look like a dead socket.
func (c *Client) Send(_ context.Context, frame []byte) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		slog.Warn("Send buffer full, closing client", "clientID", c.id, "userID", c.userID)
		c.close()
		return ErrClientDisconnected
	}
}

// Close stops the client. readPump notices, unregisters and closes the socket.
func (c *Client) Close() error {
	c.close()
	return nil
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
		slog.Debug("Client marked as closed", "clientID", c.id, "userID", c.userID)
	}
}

// Run registers the client with the hub and starts its pumps.
func (c *Client) Run() {
	c.hub.Connect(c.ctx, c.userID, c)
	c.sendEvent(Connected{ClientID: c.id, UserID: c.userID})

	c.wg.Add(2)
	go c.writePump()
	go c.readPump()
}

// Wait blocks until both pumps have exited or the timeout elapses.
func (c *Client) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		slog.Warn("Timeout waiting for client goroutines", "clientID", c.id, "userID", c.userID, "timeout", timeout)
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		c.wg.Done()
		c.close()
		c.hub.Disconnect(context.Background(), c.userID, c)
		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "clientID", c.id, "userID", c.userID, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "userID", c.userID, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.userID, "error", err)
			}
			return
		}
		if c.isClosed() {
			return
		}
		c.handleFrame(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		// unblocks readPump so it can unregister
		c.conn.Close()
		c.wg.Done()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "userID", c.userID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "clientID", c.id, "userID", c.userID, "error", err)
				return
			}

		case <-c.ctx.Done():
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// handleFrame applies one inbound control frame. Malformed frames are answered
// with an error frame; the connection stays open.
func (c *Client) handleFrame(raw []byte) {
	var f controlFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		slog.Debug("Failed to unmarshal frame", "clientID", c.id, "userID", c.userID, "error", err)
		c.sendError(CodeInvalidMessage, "invalid message format")
		return
	}

	switch f.Type {
	case framePing:
		c.sendEvent(Pong{Timestamp: f.Timestamp})

	case frameSubscribe, frameJoinConversation:
		channelID, ok := f.channel()
		if !ok {
			c.sendError(CodeMissingChannel, "channel_id is required")
			return
		}
		if err := c.hub.Join(c.ctx, c.userID, c, channelID); err != nil {
			if errors.Is(err, ErrForbidden) {
				c.sendError(CodeForbidden, err.Error())
				return
			}
			slog.Error("Failed to join channel", "clientID", c.id, "userID", c.userID, "channelID", channelID, "error", err)
			c.sendError(CodeInternal, "could not join channel")
			return
		}
		c.sendEvent(JoinedConversation{ChannelID: channelID})

	case frameUnsubscribe, frameLeaveConversation:
		channelID, ok := f.channel()
		if !ok {
			c.sendError(CodeMissingChannel, "channel_id is required")
			return
		}
		c.hub.Leave(c.userID, c, channelID)
		c.sendEvent(LeftConversation{ChannelID: channelID})

	case frameTyping, frameTypingIndicator:
		channelID, ok := f.channel()
		if !ok {
			c.sendError(CodeMissingChannel, "channel_id is required")
			return
		}
		if !c.hub.Joined(c, channelID) {
			c.sendError(CodeNotJoined, "join the channel before sending typing updates")
			return
		}
		typing := true
		if f.IsTyping != nil {
			typing = *f.IsTyping
		}
		c.hub.ToChannelExcept(c.ctx, channelID, UserTyping{
			ChannelID: channelID,
			UserID:    c.userID,
			IsTyping:  typing,
		}, c.userID)

	default:
		c.sendError(CodeUnknownType, "unknown message type: "+f.Type)
	}
}

func (c *Client) sendEvent(e Event) {
	frame, err := Encode(e)
	if err != nil {
		slog.Error("Failed to encode event", "clientID", c.id, "type", e.Type(), "error", err)
		return
	}
	if err := c.Send(c.ctx, frame); err != nil {
		slog.Debug("Dropped reply to closed client", "clientID", c.id, "type", e.Type(), "error", err)
	}
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(Error{Code: code, Message: message})
}

// NewUpgrader builds the upgrader used for every connection. An empty
// allowedOrigins list accepts any origin.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
}

// ServeWS upgrades an authenticated request and runs a Client for it.
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, userID uint) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "userID", userID, "error", err)
		return nil, err
	}

	client := NewClient(hub, conn, userID)
	slog.Info("New WebSocket connection established", "clientID", client.id, "userID", userID)
	client.Run()
	return client, nil
}
