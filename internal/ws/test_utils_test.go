package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var errBrokenPipe = errors.New("broken pipe")

var mockConnSeq int64

// mockConn records every frame sent to it and can be told to fail.
type mockConn struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool
}

func newMockConn() *mockConn {
	return &mockConn{id: fmt.Sprintf("mock-%d", atomic.AddInt64(&mockConnSeq, 1))}
}

func newFailingConn() *mockConn {
	c := newMockConn()
	c.fail = true
	return c
}

func (m *mockConn) ID() string {
	return m.id
}

func (m *mockConn) Send(_ context.Context, frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail || m.closed {
		return errBrokenPipe
	}
	m.frames = append(m.frames, frame)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockConn) getFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.frames))
	copy(out, m.frames)
	return out
}

// fakeAuthorizer allows exactly the (user, channel) pairs it was given.
type fakeAuthorizer struct {
	members map[[2]uint]bool
	err     error
}

func newFakeAuthorizer(pairs ...[2]uint) *fakeAuthorizer {
	a := &fakeAuthorizer{members: make(map[[2]uint]bool)}
	for _, p := range pairs {
		a.members[p] = true
	}
	return a
}

func (a *fakeAuthorizer) IsMember(_ context.Context, userID, channelID uint) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return a.members[[2]uint{userID, channelID}], nil
}

// fakePresence counts online/offline transitions.
type fakePresence struct {
	mu      sync.Mutex
	online  map[uint]bool
	changes int
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: make(map[uint]bool)}
}

func (p *fakePresence) SetUserOnline(_ context.Context, userID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = true
	p.changes++
	return nil
}

func (p *fakePresence) SetUserOffline(_ context.Context, userID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
	p.changes++
	return nil
}

func (p *fakePresence) isOnline(userID uint) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

// recordingMirror keeps every mirrored event.
type recordingMirror struct {
	mu      sync.Mutex
	targets []Target
	events  []Event
}

func (r *recordingMirror) Mirror(_ context.Context, target Target, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, target)
	r.events = append(r.events, e)
}

// ctxConn fails sends only when the caller's context has ended.
type ctxConn struct {
	*mockConn
}

func newCtxConn() *ctxConn {
	return &ctxConn{mockConn: newMockConn()}
}

func (c *ctxConn) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.mockConn.Send(ctx, frame)
}
