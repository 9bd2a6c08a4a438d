package services

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"

	"rideshare-service/internal/models"
	"rideshare-service/internal/repositories/postgres"
	"rideshare-service/internal/ws"

	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the gorm repositories.
type memStore struct {
	mu            sync.Mutex
	nextID        uint
	users         map[uint]*models.User
	channels      map[uint]*models.Channel
	messages      []models.Message
	notifications map[uint]*models.Notification
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[uint]*models.User),
		channels:      make(map[uint]*models.Channel),
		notifications: make(map[uint]*models.Notification),
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(name string, role models.Role) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{Username: name, Email: name + "@example.com", Role: role}
	u.ID = m.id()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return u
}

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return postgres.ErrEmailTaken
		}
	}
	user.ID = r.id()
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memUsers) FindByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) FindByIDs(_ context.Context, ids []uint) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r memUsers) FindFirstByRole(_ context.Context, role models.Role) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.User
	for _, u := range r.users {
		if u.Role == role && (found == nil || u.ID < found.ID) {
			found = u
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *found
	return &cp, nil
}

type memChannels struct{ *memStore }

func (r memChannels) Create(_ context.Context, c *models.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.id()
	c.CreatedAt = time.Now()
	cp := *c
	cp.Members = append([]*models.User(nil), c.Members...)
	r.channels[c.ID] = &cp
	return nil
}

func (r memChannels) Delete(_ context.Context, channelID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, channelID)
	return nil
}

func (r memChannels) GetByID(_ context.Context, channelID uint) (*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.channels[channelID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	cp.Members = append([]*models.User(nil), c.Members...)
	return &cp, nil
}

func (r memChannels) ListForUser(_ context.Context, userID uint) ([]models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Channel
	for _, c := range r.channels {
		if hasMember(c, userID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memChannels) IsMember(_ context.Context, userID, channelID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.channels[channelID]
	return ok && hasMember(c, userID), nil
}

func (r memChannels) AddUser(_ context.Context, channelID, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.channels[channelID]
	c.Members = append(c.Members, r.users[userID])
	return nil
}

func (r memChannels) RemoveUser(_ context.Context, channelID, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.channels[channelID]
	kept := c.Members[:0]
	for _, m := range c.Members {
		if m.ID != userID {
			kept = append(kept, m)
		}
	}
	c.Members = kept
	return nil
}

func (r memChannels) FindDirect(_ context.Context, a, b uint) (*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.channels {
		if c.Type == models.ChannelTypeDirect && hasMember(c, a) && hasMember(c, b) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memChannels) FindSupport(_ context.Context, userID uint) (*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.channels {
		if c.Type == models.ChannelTypeSupport && c.OwnerID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type memMessages struct{ *memStore }

func (r memMessages) Create(_ context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = r.id()
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r memMessages) ListBefore(_ context.Context, channelID, before uint, limit int) ([]models.MessageResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MessageResponse
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := r.messages[i]
		if m.ChannelID != channelID || (before > 0 && m.ID >= before) {
			continue
		}
		out = append(out, models.MessageResponse{
			ID: m.ID, ChannelID: m.ChannelID, SenderID: m.SenderID,
			SenderName: r.users[m.SenderID].Username, Text: m.Text, CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

type memNotifications struct{ *memStore }

func (r memNotifications) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = r.id()
	n.CreatedAt = time.Now()
	cp := *n
	r.notifications[n.ID] = &cp
	return nil
}

func (r memNotifications) ListForUser(_ context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Notification
	for _, n := range r.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			all = append(all, *n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r memNotifications) UnreadCount(_ context.Context, userID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			c++
		}
	}
	return c, nil
}

func (r memNotifications) MarkRead(_ context.Context, userID, id uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok || n.UserID != userID || n.Read {
		return false, nil
	}
	n.Read = true
	n.ReadAt = &at
	return true, nil
}

func (r memNotifications) MarkAllRead(_ context.Context, userID uint, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.ReadAt = &at
			c++
		}
	}
	return c, nil
}

func (r memNotifications) Exists(_ context.Context, userID, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	return ok && n.UserID == userID, nil
}

// pushed is one event handed to the realtime layer.
type pushed struct {
	userID    uint
	channelID uint
	exclude   uint
	event     ws.Event
}

type recordingRealtime struct {
	mu      sync.Mutex
	pushes  []pushed
	dropped []uint
	removed [][2]uint
}

func (r *recordingRealtime) ToChannel(_ context.Context, channelID uint, e ws.Event) (ws.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, pushed{channelID: channelID, event: e})
	return ws.Delivery{}, nil
}

func (r *recordingRealtime) ToChannelExcept(_ context.Context, channelID uint, e ws.Event, exclude uint) (ws.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, pushed{channelID: channelID, exclude: exclude, event: e})
	return ws.Delivery{}, nil
}

func (r *recordingRealtime) ToUser(_ context.Context, userID uint, e ws.Event) (ws.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, pushed{userID: userID, event: e})
	return ws.Delivery{}, nil
}

func (r *recordingRealtime) DropChannel(channelID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = append(r.dropped, channelID)
}

func (r *recordingRealtime) RemoveUserFromChannel(userID, channelID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, [2]uint{userID, channelID})
}

func (r *recordingRealtime) eventsOfType(t ws.EventType) []pushed {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []pushed
	for _, p := range r.pushes {
		if p.event.Type() == t {
			out = append(out, p)
		}
	}
	return out
}

// memObjectStore keeps uploads in memory.
type memObjectStore struct {
	objects map[string][]byte
	opts    map[string]minio.PutObjectOptions
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte), opts: make(map[string]minio.PutObjectOptions)}
}

func (s *memObjectStore) PutObject(_ context.Context, bucket, objectName string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	s.objects[bucket+"/"+objectName] = data
	s.opts[bucket+"/"+objectName] = opts
	return minio.UploadInfo{Bucket: bucket, Key: objectName, Size: int64(len(data))}, nil
}

func (s *memObjectStore) EndpointURL() *url.URL {
	return &url.URL{Scheme: "http", Host: "minio:9000"}
}

var errDBDown = errors.New("connection refused")

// outageChannels fails every channel lookup the way a lost database connection does.
type outageChannels struct{ memChannels }

func (outageChannels) GetByID(context.Context, uint) (*models.Channel, error) {
	return nil, errDBDown
}

type outageUsers struct{ memUsers }

func (outageUsers) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, errDBDown
}
