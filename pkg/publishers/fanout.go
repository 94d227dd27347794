package publishers

import (
	"context"
	"errors"
	"fmt"
)

// Fanout delivers one event to every configured sink. Sinks are independent:
// a failing one never blocks or cancels the rest, and the caller gets the
// delivered count plus the joined failures to decide what to log.
type Fanout struct {
	sinks []Publisher
}

// NewFanout collects the non-nil publishers into a dispatcher.
func NewFanout(pubs []Publisher) *Fanout {
	sinks := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			sinks = append(sinks, p)
		}
	}
	return &Fanout{sinks: sinks}
}

// Publish sends evt to each sink in turn and reports how many accepted it.
// The returned error joins every per-sink failure, tagged with the sink's
// type and id.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil {
		return 0, nil
	}

	delivered := 0
	var failures []error
	for _, sink := range f.sinks {
		err := sink.Publish(ctx, evt)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s publisher[%s]: %w", sink.Type(), sink.ID(), err))
			continue
		}
		delivered++
	}
	return delivered, errors.Join(failures...)
}

// Size reports how many sinks will receive each event.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}
