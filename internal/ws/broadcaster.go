package ws

import (
	"context"
	"errors"
	"log/slog"
)

// Delivery summarizes one broadcast. It exists for logging and metrics; a failed
// send is never reported to the caller as an error.
type Delivery struct {
	Recipients int
	Attempted  int
	Failed     int
}

func (d *Delivery) add(o Delivery) {
	d.Recipients += o.Recipients
	d.Attempted += o.Attempted
	d.Failed += o.Failed
}

// Broadcaster pushes events to the live connections resolved through the
// registry and the channel membership. Delivery is best effort and at most once:
// a connection whose send fails is evicted, never retried.
type Broadcaster struct {
	registry   *Registry
	membership *Membership
	mirror     EventMirror
	onEvict    func(userID uint, c Conn)
}

// EventMirror receives a copy of every event the broadcaster delivers, e.g. to
// publish it on a message bus for other consumers.
type EventMirror interface {
	Mirror(ctx context.Context, target Target, e Event)
}

// Target identifies the recipients of a broadcast.
type Target struct {
	UserID        uint `json:"userId,omitempty"`
	ChannelID     uint `json:"channelId,omitempty"`
	ExcludeUserID uint `json:"excludeUserId,omitempty"`
}

func NewBroadcaster(registry *Registry, membership *Membership) *Broadcaster {
	return &Broadcaster{
		registry:   registry,
		membership: membership,
	}
}

// SetMirror installs an EventMirror. It must be called before the broadcaster is shared.
func (b *Broadcaster) SetMirror(m EventMirror) {
	b.mirror = m
}

// SetEvictHandler replaces the default eviction, which only unregisters the
// connection. The Hub installs one that also undoes its subscriptions and closes it.
func (b *Broadcaster) SetEvictHandler(fn func(userID uint, c Conn)) {
	b.onEvict = fn
}

// ToChannel delivers e to every live subscriber of the channel. A channel nobody
// listens to is a no-op.
func (b *Broadcaster) ToChannel(ctx context.Context, channelID uint, e Event) (Delivery, error) {
	return b.toChannel(ctx, Target{ChannelID: channelID}, e)
}

// ToChannelExcept is ToChannel without any send to excludeUserID's connections.
func (b *Broadcaster) ToChannelExcept(ctx context.Context, channelID uint, e Event, excludeUserID uint) (Delivery, error) {
	return b.toChannel(ctx, Target{ChannelID: channelID, ExcludeUserID: excludeUserID}, e)
}

func (b *Broadcaster) toChannel(ctx context.Context, target Target, e Event) (Delivery, error) {
	frame, err := Encode(e)
	if err != nil {
		return Delivery{}, err
	}

	var total Delivery
	for _, userID := range b.membership.SubscribersFor(target.ChannelID) {
		if target.ExcludeUserID != 0 && userID == target.ExcludeUserID {
			continue
		}
		total.add(b.deliver(ctx, userID, frame))
	}

	if total.Failed > 0 {
		slog.Warn("Channel broadcast had failed sends",
			"channelID", target.ChannelID, "type", e.Type(),
			"attempted", total.Attempted, "failed", total.Failed)
	} else {
		slog.Debug("Channel broadcast delivered",
			"channelID", target.ChannelID, "type", e.Type(), "attempted", total.Attempted)
	}

	b.mirrorEvent(ctx, target, e)
	return total, nil
}

// ToUser delivers e to every live connection of the user. The event is encoded
// once and the same frame is sent on each connection.
func (b *Broadcaster) ToUser(ctx context.Context, userID uint, e Event) (Delivery, error) {
	frame, err := Encode(e)
	if err != nil {
		return Delivery{}, err
	}
	d := b.deliver(ctx, userID, frame)
	b.mirrorEvent(ctx, Target{UserID: userID}, e)
	return d, nil
}

// deliver sends frame on a snapshot of the user's connections. A failure evicts
// that connection and moves on to the next one. An error caused by the caller's
// own context ending says nothing about the connection, so it is not evicted.
func (b *Broadcaster) deliver(ctx context.Context, userID uint, frame []byte) Delivery {
	conns := b.registry.ConnectionsFor(userID)
	d := Delivery{}
	if len(conns) > 0 {
		d.Recipients = 1
	}
	for _, c := range conns {
		d.Attempted++
		err := c.Send(ctx, frame)
		if err == nil {
			continue
		}
		d.Failed++
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			slog.Debug("Send abandoned by caller", "userID", userID, "connID", c.ID(), "error", err)
			continue
		}
		b.evict(userID, c)
		slog.Warn("Evicted connection after failed send",
			"userID", userID, "connID", c.ID(), "error", err)
	}
	return d
}

func (b *Broadcaster) evict(userID uint, c Conn) {
	if b.onEvict != nil {
		b.onEvict(userID, c)
		return
	}
	b.registry.Unregister(c, userID)
}

func (b *Broadcaster) mirrorEvent(ctx context.Context, target Target, e Event) {
	if b.mirror == nil {
		return
	}
	b.mirror.Mirror(ctx, target, e)
}
