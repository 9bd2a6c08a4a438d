package ws

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrForbidden          = errors.New("not a member of this channel")
)

// Authorizer checks durable channel membership before a live subscription is made.
type Authorizer interface {
	IsMember(ctx context.Context, userID, channelID uint) (bool, error)
}

// PresenceTracker records users going online and offline.
type PresenceTracker interface {
	SetUserOnline(ctx context.Context, userID uint) error
	SetUserOffline(ctx context.Context, userID uint) error
}

// Hub owns the live state of the realtime layer for one process. It is built once
// at startup and handed to every handler and service that pushes events.
//
// Live subscriptions are not persisted: after a restart every client has to
// reconnect and send its subscribe frames again, then re-fetch unread state over HTTP.
type Hub struct {
	*Broadcaster

	registry   *Registry
	membership *Membership
	authorizer Authorizer
	presence   PresenceTracker

	// channels each connection subscribed to, so a disconnect can undo them
	mu   sync.Mutex
	subs map[Conn]map[uint]struct{}
}

type HubOption func(*Hub)

func WithAuthorizer(a Authorizer) HubOption {
	return func(h *Hub) { h.authorizer = a }
}

func WithPresence(p PresenceTracker) HubOption {
	return func(h *Hub) { h.presence = p }
}

func WithMirror(m EventMirror) HubOption {
	return func(h *Hub) { h.Broadcaster.SetMirror(m) }
}

func NewHub(opts ...HubOption) *Hub {
	registry := NewRegistry()
	membership := NewMembership()
	h := &Hub{
		Broadcaster: NewBroadcaster(registry, membership),
		registry:    registry,
		membership:  membership,
		subs:        make(map[Conn]map[uint]struct{}),
	}
	h.Broadcaster.SetEvictHandler(h.evict)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetAuthorizer installs a after construction, for authorizers that themselves
// need the hub. Call it before any connection is served.
func (h *Hub) SetAuthorizer(a Authorizer) {
	h.authorizer = a
}

func (h *Hub) Registry() *Registry     { return h.registry }
func (h *Hub) Membership() *Membership { return h.membership }

// Connect registers an authenticated connection.
func (h *Hub) Connect(ctx context.Context, userID uint, conn Conn) {
	first := h.registry.Register(userID, conn)
	slog.Info("Client registered", "connID", conn.ID(), "userID", userID, "firstConnection", first)

	if first && h.presence != nil {
		if err := h.presence.SetUserOnline(ctx, userID); err != nil {
			slog.Error("Failed to set user online", "userID", userID, "error", err)
		}
	}
}

// Disconnect removes conn from the registry and from every channel it subscribed to.
// The user stays subscribed to a channel while another of their connections still is.
func (h *Hub) Disconnect(ctx context.Context, userID uint, conn Conn) {
	registered := slices.Contains(h.registry.ConnectionsFor(userID), conn)
	h.registry.Unregister(conn, userID)
	last := !h.registry.IsOnline(userID)

	h.mu.Lock()
	channels, subscribed := h.subs[conn]
	if !registered && !subscribed {
		// already torn down by an eviction
		h.mu.Unlock()
		return
	}
	delete(h.subs, conn)
	for channelID := range channels {
		if !h.heldByOtherConnLocked(userID, channelID, conn) {
			h.membership.Unsubscribe(userID, channelID)
		}
	}
	h.mu.Unlock()

	slog.Info("Client unregistered", "connID", conn.ID(), "userID", userID, "channels", len(channels))

	if last && h.presence != nil {
		if err := h.presence.SetUserOffline(ctx, userID); err != nil {
			slog.Error("Failed to set user offline", "userID", userID, "error", err)
		}
	}
}

// evict tears down a connection whose send failed: registry, subscriptions and
// presence as Disconnect does, then closes it so its owner stops as well.
func (h *Hub) evict(userID uint, conn Conn) {
	h.Disconnect(context.Background(), userID, conn)
	if cl, ok := conn.(Closer); ok {
		if err := cl.Close(); err != nil {
			slog.Debug("Error closing evicted connection", "connID", conn.ID(), "error", err)
		}
	}
}

// Join subscribes the user to live updates of a channel after checking durable
// membership with the Authorizer, when one is configured.
func (h *Hub) Join(ctx context.Context, userID uint, conn Conn, channelID uint) error {
	if h.authorizer != nil {
		ok, err := h.authorizer.IsMember(ctx, userID, channelID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrForbidden
		}
	}

	h.mu.Lock()
	set, ok := h.subs[conn]
	if !ok {
		set = make(map[uint]struct{})
		h.subs[conn] = set
	}
	set[channelID] = struct{}{}
	h.membership.Subscribe(userID, channelID)
	h.mu.Unlock()

	slog.Debug("Client joined channel", "connID", conn.ID(), "userID", userID, "channelID", channelID)
	return nil
}

// Leave undoes Join for one connection.
func (h *Hub) Leave(userID uint, conn Conn, channelID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[conn]; ok {
		delete(set, channelID)
		if len(set) == 0 {
			delete(h.subs, conn)
		}
	}
	if !h.heldByOtherConnLocked(userID, channelID, conn) {
		h.membership.Unsubscribe(userID, channelID)
	}
	slog.Debug("Client left channel", "connID", conn.ID(), "userID", userID, "channelID", channelID)
}

// Joined reports whether conn has subscribed to the channel.
func (h *Hub) Joined(conn Conn, channelID uint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.subs[conn][channelID]
	return ok
}

// DropChannel forgets every live subscription to a deleted channel.
func (h *Hub) DropChannel(channelID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, set := range h.subs {
		delete(set, channelID)
		if len(set) == 0 {
			delete(h.subs, conn)
		}
	}
	h.membership.Drop(channelID)
}

// RemoveUserFromChannel drops a user's live subscription on every connection,
// used when the user loses durable membership.
func (h *Hub) RemoveUserFromChannel(userID, channelID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conn := range h.registry.ConnectionsFor(userID) {
		if set, ok := h.subs[conn]; ok {
			delete(set, channelID)
			if len(set) == 0 {
				delete(h.subs, conn)
			}
		}
	}
	h.membership.Unsubscribe(userID, channelID)
}

// heldByOtherConnLocked reports whether another live connection of the user is
// still subscribed to the channel. h.mu must be held.
func (h *Hub) heldByOtherConnLocked(userID, channelID uint, except Conn) bool {
	for _, c := range h.registry.ConnectionsFor(userID) {
		if c == except {
			continue
		}
		if _, ok := h.subs[c][channelID]; ok {
			return true
		}
	}
	return false
}

// Closer is implemented by connections the hub can close on shutdown.
type Closer interface {
	Close() error
}

// Shutdown closes every live connection. Their read loops then call Disconnect.
func (h *Hub) Shutdown(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	slog.Info("Shutting down WebSocket hub", "connections", h.registry.Count())
	closed := 0
	for _, userID := range h.registry.Users() {
		for _, c := range h.registry.ConnectionsFor(userID) {
			if cl, ok := c.(Closer); ok {
				if err := cl.Close(); err != nil {
					slog.Debug("Error closing connection", "connID", c.ID(), "error", err)
				}
				closed++
			}
		}
		if time.Now().After(deadline) {
			slog.Warn("Hub shutdown timed out", "closed", closed)
			return
		}
	}
	slog.Info("WebSocket hub shut down", "closed", closed)
}
