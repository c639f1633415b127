package events

import (
	"context"
	"encoding/json"
)

// HubPublisher pushes events to a broadcast channel as JSON. Used to feed the
// realtime operator hub.
type HubPublisher struct {
	broadcast chan<- []byte
}

// NewHubPublisher constructs a publisher targeting the given broadcast
// channel.
func NewHubPublisher(broadcast chan<- []byte) *HubPublisher {
	return &HubPublisher{broadcast: broadcast}
}

// Publish marshals the event and hands it to the hub. Blocks only until ctx
// ends, so a stalled hub cannot wedge settlement.
func (p *HubPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case p.broadcast <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
