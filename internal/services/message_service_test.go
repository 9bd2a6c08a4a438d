package services

import (
	"context"
	"fmt"
	"testing"

	"rideshare-service/internal/models"
	"rideshare-service/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

type messageFixture struct {
	store    *memStore
	realtime *recordingRealtime
	svc      *MessageService
	channel  *models.Channel
	rider    *models.User
	driver   *models.User
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()
	store := newMemStore()
	rt := &recordingRealtime{}
	rider := store.addUser("rider", models.RoleRider)
	driver := store.addUser("driver", models.RoleDriver)
	channels := NewChannelService(memChannels{store}, memUsers{store}, nil)
	ch, err := channels.Create(context.Background(), rider.ID, &models.CreateChannelRequest{
		Type: models.ChannelTypeDirect, UserIDs: []uint{driver.ID},
	})
	require.NoError(t, err)

	return &messageFixture{
		store:    store,
		realtime: rt,
		svc:      NewMessageService(memMessages{store}, memChannels{store}, memUsers{store}, rt),
		channel:  ch,
		rider:    rider,
		driver:   driver,
	}
}

func TestSendPushesToOthersAndConfirmsToSender(t *testing.T) {
	f := newMessageFixture(t)

	msg, err := f.svc.Send(context.Background(), f.rider.ID, f.channel.ID, &models.SendMessageRequest{Text: strPtr("on my way")})
	require.NoError(t, err)
	assert.Equal(t, "rider", msg.SenderName)

	news := f.realtime.eventsOfType(ws.EventNewMessage)
	require.Len(t, news, 1)
	assert.Equal(t, f.channel.ID, news[0].channelID)
	assert.Equal(t, f.rider.ID, news[0].exclude)
	assert.Equal(t, msg.ID, news[0].event.(ws.NewMessage).ID)

	sent := f.realtime.eventsOfType(ws.EventMessageSent)
	require.Len(t, sent, 1)
	assert.Equal(t, f.rider.ID, sent[0].userID)
}

func TestSendRejectsNonMembersAndEmptyMessages(t *testing.T) {
	f := newMessageFixture(t)
	stranger := f.store.addUser("stranger", models.RoleRider)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, stranger.ID, f.channel.ID, &models.SendMessageRequest{Text: strPtr("hi")})
	assert.ErrorIs(t, err, ErrNotChannelMember)

	_, err = f.svc.Send(ctx, f.rider.ID, 999, &models.SendMessageRequest{Text: strPtr("hi")})
	assert.ErrorIs(t, err, ErrChannelNotFound)

	_, err = f.svc.Send(ctx, f.rider.ID, f.channel.ID, &models.SendMessageRequest{Text: strPtr("")})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.Empty(t, f.realtime.pushes)
}

func TestListPaginatesByCursor(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := f.svc.Send(ctx, f.rider.ID, f.channel.ID, &models.SendMessageRequest{Text: strPtr(fmt.Sprintf("m%d", i))})
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, f.driver.ID, f.channel.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "m4", *page.Messages[0].Text)
	assert.Equal(t, "m5", *page.Messages[1].Text)
	require.NotZero(t, page.NextCursor)

	page, err = f.svc.List(ctx, f.driver.ID, f.channel.ID, page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "m2", *page.Messages[0].Text)

	page, err = f.svc.List(ctx, f.driver.ID, f.channel.ID, page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "m1", *page.Messages[0].Text)
	assert.Zero(t, page.NextCursor)
}

func TestListEmptyChannel(t *testing.T) {
	f := newMessageFixture(t)

	page, err := f.svc.List(context.Background(), f.rider.ID, f.channel.ID, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, page.Messages)
	assert.Empty(t, page.Messages)
}

func TestSendWithRealHubSkipsSenderDevices(t *testing.T) {
	store := newMemStore()
	hub := ws.NewHub()
	rider := store.addUser("rider", models.RoleRider)
	driver := store.addUser("driver", models.RoleDriver)
	channels := NewChannelService(memChannels{store}, memUsers{store}, hub)
	ctx := context.Background()
	ch, err := channels.Create(ctx, rider.ID, &models.CreateChannelRequest{Type: models.ChannelTypeDirect, UserIDs: []uint{driver.ID}})
	require.NoError(t, err)

	riderConn, driverConn := &captureConn{id: "r"}, &captureConn{id: "d"}
	hub.Connect(ctx, rider.ID, riderConn)
	hub.Connect(ctx, driver.ID, driverConn)
	require.NoError(t, hub.Join(ctx, rider.ID, riderConn, ch.ID))
	require.NoError(t, hub.Join(ctx, driver.ID, driverConn, ch.ID))

	svc := NewMessageService(memMessages{store}, memChannels{store}, memUsers{store}, hub)
	_, err = svc.Send(ctx, rider.ID, ch.ID, &models.SendMessageRequest{Text: strPtr("hello")})
	require.NoError(t, err)

	require.Len(t, driverConn.frames, 1)
	assert.Contains(t, string(driverConn.frames[0]), `"type":"new_message"`)
	require.Len(t, riderConn.frames, 1)
	assert.Contains(t, string(riderConn.frames[0]), `"type":"message_sent"`)
}

type captureConn struct {
	id     string
	frames [][]byte
}

func (c *captureConn) ID() string { return c.id }

func (c *captureConn) Send(_ context.Context, frame []byte) error {
	c.frames = append(c.frames, frame)
	return nil
}

func TestSendReportsStoreErrorsForNonMembers(t *testing.T) {
	f := newMessageFixture(t)
	stranger := f.store.addUser("stranger", models.RoleRider)
	svc := NewMessageService(memMessages{f.store}, outageChannels{memChannels{f.store}}, memUsers{f.store}, f.realtime)

	_, err := svc.Send(context.Background(), stranger.ID, f.channel.ID, &models.SendMessageRequest{Text: strPtr("hi")})

	assert.ErrorIs(t, err, errDBDown)
	assert.NotErrorIs(t, err, ErrNotChannelMember)
}
