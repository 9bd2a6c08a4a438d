package services

import (
	"context"
	"testing"

	"rideshare-service/internal/models"
	"rideshare-service/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelFixture struct {
	store    *memStore
	realtime *recordingRealtime
	svc      *ChannelService
}

func newChannelFixture() *channelFixture {
	store := newMemStore()
	rt := &recordingRealtime{}
	return &channelFixture{
		store:    store,
		realtime: rt,
		svc:      NewChannelService(memChannels{store}, memUsers{store}, rt),
	}
}

func TestCreateGroupChannel(t *testing.T) {
	f := newChannelFixture()
	owner := f.store.addUser("owner", models.RoleRider)
	friend := f.store.addUser("friend", models.RoleRider)

	ch, err := f.svc.Create(context.Background(), owner.ID, &models.CreateChannelRequest{
		Name: "Carpool", Type: models.ChannelTypeGroup, UserIDs: []uint{friend.ID, friend.ID, owner.ID},
	})
	require.NoError(t, err)
	assert.Len(t, ch.Members, 2)

	added := f.realtime.eventsOfType(ws.EventMemberAdded)
	require.Len(t, added, 1)
	assert.Equal(t, friend.ID, added[0].userID)
}

func TestCreateChannelValidation(t *testing.T) {
	f := newChannelFixture()
	owner := f.store.addUser("owner", models.RoleRider)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, owner.ID, &models.CreateChannelRequest{Type: models.ChannelTypeDirect})
	assert.ErrorIs(t, err, ErrInvalidChannel)

	_, err = f.svc.Create(ctx, owner.ID, &models.CreateChannelRequest{Type: models.ChannelTypeRide})
	assert.ErrorIs(t, err, ErrInvalidChannel)

	_, err = f.svc.Create(ctx, owner.ID, &models.CreateChannelRequest{Type: models.ChannelTypeGroup, Name: "x", UserIDs: []uint{404}})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Create(ctx, 404, &models.CreateChannelRequest{Type: models.ChannelTypeGroup, Name: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateDirectReusesExisting(t *testing.T) {
	f := newChannelFixture()
	rider := f.store.addUser("rider", models.RoleRider)
	driver := f.store.addUser("driver", models.RoleDriver)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, rider.ID, &models.CreateChannelRequest{Type: models.ChannelTypeDirect, UserIDs: []uint{driver.ID}})
	require.NoError(t, err)
	assert.Equal(t, "driver", first.Name)

	second, err := f.svc.Create(ctx, driver.ID, &models.CreateChannelRequest{Type: models.ChannelTypeDirect, UserIDs: []uint{rider.ID}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateRideChannelNamesAfterRide(t *testing.T) {
	f := newChannelFixture()
	rider := f.store.addUser("rider", models.RoleRider)
	driver := f.store.addUser("driver", models.RoleDriver)
	rideID := uint(77)

	ch, err := f.svc.Create(context.Background(), rider.ID, &models.CreateChannelRequest{
		Type: models.ChannelTypeRide, RideID: &rideID, UserIDs: []uint{driver.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ride #77", ch.Name)
	assert.Equal(t, &rideID, ch.RideID)
}

func TestOpenSupportWithoutAgent(t *testing.T) {
	f := newChannelFixture()
	rider := f.store.addUser("rider", models.RoleRider)

	_, err := f.svc.OpenSupport(context.Background(), rider.ID)
	assert.ErrorIs(t, err, ErrSupportNotConfigured)
}

func TestOpenSupportIsIdempotent(t *testing.T) {
	f := newChannelFixture()
	rider := f.store.addUser("rider", models.RoleRider)
	agent := f.store.addUser("agent", models.RoleAdmin)
	ctx := context.Background()

	ch, err := f.svc.OpenSupport(ctx, rider.ID)
	require.NoError(t, err)
	assert.True(t, hasMember(ch, agent.ID))

	again, err := f.svc.Create(ctx, rider.ID, &models.CreateChannelRequest{Type: models.ChannelTypeSupport})
	require.NoError(t, err)
	assert.Equal(t, ch.ID, again.ID)
}

func TestGetRequiresMembership(t *testing.T) {
	f := newChannelFixture()
	owner := f.store.addUser("owner", models.RoleRider)
	stranger := f.store.addUser("stranger", models.RoleRider)
	ctx := context.Background()
	ch, err := f.svc.Create(ctx, owner.ID, &models.CreateChannelRequest{Name: "g", Type: models.ChannelTypeGroup})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, stranger.ID, ch.ID)
	assert.ErrorIs(t, err, ErrNotChannelMember)

	_, err = f.svc.Get(ctx, owner.ID, 999)
	assert.ErrorIs(t, err, ErrChannelNotFound)

	ok, err := f.svc.IsMember(ctx, owner.ID, ch.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddAndRemoveMember(t *testing.T) {
	f := newChannelFixture()
	owner := f.store.addUser("owner", models.RoleRider)
	guest := f.store.addUser("guest", models.RoleRider)
	ctx := context.Background()
	ch, err := f.svc.Create(ctx, owner.ID, &models.CreateChannelRequest{Name: "g", Type: models.ChannelTypeGroup})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.AddMember(ctx, guest.ID, ch.ID, guest.ID), ErrNotChannelOwner)
	require.NoError(t, f.svc.AddMember(ctx, owner.ID, ch.ID, guest.ID))
	assert.ErrorIs(t, f.svc.AddMember(ctx, owner.ID, ch.ID, guest.ID), ErrAlreadyMember)

	added := f.realtime.eventsOfType(ws.EventMemberAdded)
	require.Len(t, added, 2)
	assert.Equal(t, ch.ID, added[0].channelID)
	assert.Equal(t, guest.ID, added[1].userID)

	assert.ErrorIs(t, f.svc.RemoveMember(ctx, owner.ID, ch.ID, owner.ID), ErrOwnerCannotLeave)
	require.NoError(t, f.svc.RemoveMember(ctx, owner.ID, ch.ID, guest.ID))
	assert.Equal(t, [][2]uint{{guest.ID, ch.ID}}, f.realtime.removed)
	assert.Len(t, f.realtime.eventsOfType(ws.EventMemberRemoved), 2)

	assert.ErrorIs(t, f.svc.RemoveMember(ctx, owner.ID, ch.ID, guest.ID), ErrNotChannelMember)
}

func TestLeave(t *testing.T) {
	f := newChannelFixture()
	owner := f.store.addUser("owner", models.RoleRider)
	guest := f.store.addUser("guest", models.RoleRider)
	ctx := context.Background()
	ch, err := f.svc.Create(ctx, owner.ID, &models.CreateChannelRequest{Name: "g", Type: models.ChannelTypeGroup, UserIDs: []uint{guest.ID}})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Leave(ctx, owner.ID, ch.ID), ErrOwnerCannotLeave)
	require.NoError(t, f.svc.Leave(ctx, guest.ID, ch.ID))

	ok, err := f.svc.IsMember(ctx, guest.ID, ch.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteBroadcastsThenDrops(t *testing.T) {
	f := newChannelFixture()
	owner := f.store.addUser("owner", models.RoleRider)
	guest := f.store.addUser("guest", models.RoleRider)
	ctx := context.Background()
	ch, err := f.svc.Create(ctx, owner.ID, &models.CreateChannelRequest{Name: "g", Type: models.ChannelTypeGroup, UserIDs: []uint{guest.ID}})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, guest.ID, ch.ID), ErrNotChannelOwner)
	require.NoError(t, f.svc.Delete(ctx, owner.ID, ch.ID))

	deleted := f.realtime.eventsOfType(ws.EventChannelDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, ws.ChannelDeleted{ChannelID: ch.ID, DeletedBy: owner.ID}, deleted[0].event)
	assert.Equal(t, []uint{ch.ID}, f.realtime.dropped)

	_, err = f.svc.Get(ctx, owner.ID, ch.ID)
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestDeleteWithRealHub(t *testing.T) {
	store := newMemStore()
	hub := ws.NewHub()
	svc := NewChannelService(memChannels{store}, memUsers{store}, hub)
	owner := store.addUser("owner", models.RoleRider)
	ctx := context.Background()
	ch, err := svc.Create(ctx, owner.ID, &models.CreateChannelRequest{Name: "g", Type: models.ChannelTypeGroup})
	require.NoError(t, err)
	hub.Membership().Subscribe(owner.ID, ch.ID)

	require.NoError(t, svc.Delete(ctx, owner.ID, ch.ID))

	assert.Empty(t, hub.Membership().SubscribersFor(ch.ID))
}
