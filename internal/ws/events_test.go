package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUsesDataEnvelope(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"channel deleted", ChannelDeleted{ChannelID: 4, DeletedBy: 2}, `{"type":"channel_deleted","data":{"channelId":4,"deletedBy":2}}`},
		{"typing", UserTyping{ChannelID: 4, UserID: 2, IsTyping: true}, `{"type":"user_typing","data":{"channelId":4,"userId":2,"isTyping":true}}`},
		{"joined", JoinedConversation{ChannelID: 4}, `{"type":"joined_conversation","data":{"channelId":4}}`},
		{"left", LeftConversation{ChannelID: 4}, `{"type":"left_conversation","data":{"channelId":4}}`},
		{"error", Error{Code: CodeForbidden, Message: "no"}, `{"type":"error","data":{"code":"FORBIDDEN","message":"no"}}`},
		{"bare pong", Pong{}, `{"type":"pong"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestPongEchoesTimestamp(t *testing.T) {
	ts := int64(1712345678)
	got, err := Encode(Pong{Timestamp: &ts})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong","data":{"timestamp":1712345678}}`, string(got))
}

func TestNotificationKeepsRawData(t *testing.T) {
	got, err := Encode(Notification{ID: 3, Kind: "booking", Title: "Booked", Data: json.RawMessage(`{"rideId":8}`)})
	require.NoError(t, err)

	var decoded struct {
		Type string `json:"type"`
		Data struct {
			Data struct {
				RideID int `json:"rideId"`
			} `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, "notification", decoded.Type)
	assert.Equal(t, 8, decoded.Data.Data.RideID)
}

func TestDecodeEvent(t *testing.T) {
	e, err := DecodeEvent(EventChannelDeleted, json.RawMessage(`{"channelId":12,"deletedBy":1}`))
	require.NoError(t, err)
	assert.Equal(t, ChannelDeleted{ChannelID: 12, DeletedBy: 1}, e)

	e, err = DecodeEvent(EventPong, nil)
	require.NoError(t, err)
	assert.Equal(t, Pong{}, e)
}

func TestDecodeEventRejectsUnknownType(t *testing.T) {
	_, err := DecodeEvent("ride_exploded", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestDecodeEventRejectsBadData(t *testing.T) {
	_, err := DecodeEvent(EventMemberAdded, json.RawMessage(`{"channelId":"x"}`))
	assert.Error(t, err)
}
