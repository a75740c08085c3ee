package stream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmehdipour/event-stream/internal/model"
)

func TestHooksRegistriesAreIsolated(t *testing.T) {
	a := NewHooks()
	b := NewHooks()

	a.Subscribe("topic", func(context.Context, model.Event) error { return nil })

	assert.Len(t, a.Handlers("topic"), 1)
	assert.Empty(t, b.Handlers("topic"), "no ambient shared state between registries")
}

func TestHooksHandlersReturnsSnapshot(t *testing.T) {
	h := NewHooks()
	h.Subscribe("topic", func(context.Context, model.Event) error { return nil })

	snap := h.Handlers("topic")
	h.Subscribe("topic", func(context.Context, model.Event) error { return nil })

	assert.Len(t, snap, 1, "snapshot is not affected by later registrations")
	assert.Len(t, h.Handlers("topic"), 2)
}

func TestHooksUnknownTopic(t *testing.T) {
	h := NewHooks()
	assert.Nil(t, h.Handlers("unknown"))
}
