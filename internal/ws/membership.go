package ws

import "sync"

// Membership tracks which users currently want live pushes for a channel.
// It is a cache of "who is listening", not an authorization boundary: callers
// check durable channel membership before calling Subscribe.
type Membership struct {
	mu       sync.RWMutex
	channels map[uint]map[uint]struct{}
}

func NewMembership() *Membership {
	return &Membership{
		channels: make(map[uint]map[uint]struct{}),
	}
}

func (m *Membership) Subscribe(userID, channelID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users, ok := m.channels[channelID]
	if !ok {
		users = make(map[uint]struct{})
		m.channels[channelID] = users
	}
	users[userID] = struct{}{}
}

// Unsubscribe removes the user from the channel's live set and drops the
// channel entry when nobody is left.
func (m *Membership) Unsubscribe(userID, channelID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users, ok := m.channels[channelID]
	if !ok {
		return
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(m.channels, channelID)
	}
}

// SubscribersFor returns a snapshot of the channel's live subscribers.
func (m *Membership) SubscribersFor(channelID uint) []uint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := m.channels[channelID]
	out := make([]uint, 0, len(users))
	for id := range users {
		out = append(out, id)
	}
	return out
}

func (m *Membership) IsSubscribed(userID, channelID uint) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.channels[channelID][userID]
	return ok
}

// Drop forgets every live subscriber of a channel, used when the channel is deleted.
func (m *Membership) Drop(channelID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, channelID)
}
