package events

import (
	"context"
	"errors"
)

// FanoutPublisher publishes each event to every target in order, collecting
// errors so all targets get a chance to see the event.
type FanoutPublisher struct {
	targets []Publisher
}

// NewFanoutPublisher constructs a fanout over the given targets. Nil targets
// are skipped so callers can wire optional sinks unconditionally.
func NewFanoutPublisher(targets ...Publisher) *FanoutPublisher {
	kept := make([]Publisher, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &FanoutPublisher{targets: kept}
}

// Publish forwards the event to each target.
func (f *FanoutPublisher) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, target := range f.targets {
		if err := target.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
