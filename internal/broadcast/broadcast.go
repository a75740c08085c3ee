package broadcast

import (
	"context"
	"errors"

	"github.com/jmehdipour/event-stream/internal/model"
)

// Broadcaster fans an event-change message out to live listeners. Delivery
// is best effort: the durable record lives in the store, the broadcast is
// the real-time side channel.
type Broadcaster interface {
	Publish(ctx context.Context, msg model.Message) error
}

// Multi publishes to every channel in order. All channels are attempted
// even when one fails; the errors are joined.
type Multi []Broadcaster

func (m Multi) Publish(ctx context.Context, msg model.Message) error {
	var errs []error
	for _, b := range m {
		if err := b.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
