// Package events connects the realtime hub to Kafka: a mirror publishes every
// broadcast event, an ingestor turns events published by other services into
// broadcasts.
package events

import (
	"encoding/json"
	"fmt"

	"rideshare-service/internal/ws"
)

// Envelope is the Kafka record value in both directions.
type Envelope struct {
	Target ws.Target       `json:"target"`
	Type   ws.EventType    `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(target ws.Target, e ws.Event) (*Envelope, error) {
	frame, err := ws.Encode(e)
	if err != nil {
		return nil, err
	}
	env := &Envelope{}
	if err := json.Unmarshal(frame, env); err != nil {
		return nil, fmt.Errorf("failed to re-read encoded event: %w", err)
	}
	env.Target = target
	return env, nil
}

// Key groups records of the same recipient on one partition.
func (e *Envelope) Key() string {
	if e.Target.ChannelID != 0 {
		return fmt.Sprintf("channel:%d", e.Target.ChannelID)
	}
	return fmt.Sprintf("user:%d", e.Target.UserID)
}

func (e *Envelope) Event() (ws.Event, error) {
	return ws.DecodeEvent(e.Type, e.Data)
}

// connectionLocal events only make sense on the connection that caused them.
func connectionLocal(t ws.EventType) bool {
	switch t {
	case ws.EventUserTyping, ws.EventPong, ws.EventError, ws.EventConnected,
		ws.EventJoinedConversation, ws.EventLeftConversation:
		return true
	}
	return false
}
