// Package stream implements the event stream facade: a durable, queryable
// record of asynchronous work items combined with a real-time broadcast
// fan-out and process-local reactive hooks.
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/event-stream/internal/broadcast"
	"github.com/jmehdipour/event-stream/internal/metrics"
	"github.com/jmehdipour/event-stream/internal/model"
	"github.com/jmehdipour/event-stream/internal/repository"
	"github.com/jmehdipour/event-stream/internal/util"
)

// ErrNotFound aliases the store sentinel so consumers only import this
// package.
var ErrNotFound = repository.ErrNotFound

// IsConstraint reports whether err is a store constraint violation
// (duplicate hash, missing dependency, blocked reuse).
func IsConstraint(err error) bool {
	return repository.IsConstraint(err)
}

// Stream is the public API over the event store and the broadcast channel.
type Stream struct {
	store repository.EventsRepository
	bc    broadcast.Broadcaster
	hooks *Hooks
	log   *zap.Logger
}

func New(store repository.EventsRepository, bc broadcast.Broadcaster, hooks *Hooks, log *zap.Logger) *Stream {
	if hooks == nil {
		hooks = NewHooks()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Stream{store: store, bc: bc, hooks: hooks, log: log}
}

// Subscribe registers a process-local handler for an exact topic.
func (s *Stream) Subscribe(topic string, handler Handler) {
	s.hooks.Subscribe(topic, handler)
}

// Dispatch creates an event and returns its id.
//
// The call runs in two phases. Phase one persists the row (unless
// opts.Transient) and publishes the broadcast message; if anything in phase
// one fails, the call fails before any further side effect and no id is
// returned. Phase two invokes the local hooks for the topic, in
// registration order. Hooks run after the event already exists and was
// already announced, so a hook failure cannot undo phase one: the error is
// returned together with the valid event id.
//
// With opts.Reuse, dispatching against an existing hash replaces the stored
// row wholesale, id included. The logical event keeps its hash but gets the
// freshly generated id, and Get on the previous id fails from then on.
// Deliberate sharp edge, kept for parity with the idempotency protocol:
// callers that cache ids must not combine that with Reuse.
func (s *Stream) Dispatch(ctx context.Context, topic string, opts DispatchOpts) (string, error) {
	id := util.NewID()

	hash := id
	if opts.Hash != nil {
		hash = *opts.Hash
	}

	status := model.StatusFinished
	progress := 100.0
	if opts.Pending {
		status = model.StatusPending
		progress = 0
	}

	summary := opts.Summary
	if summary == nil {
		summary = model.JSONMap{}
	}
	payload := opts.Payload
	if payload == nil {
		payload = model.JSONMap{}
	}

	now := time.Now().UTC()
	ev := model.Event{
		ID:          id,
		Hash:        hash,
		Sender:      opts.Sender,
		Topic:       topic,
		Project:     opts.Project,
		User:        opts.User,
		DependsOn:   opts.DependsOn,
		Status:      status,
		Description: opts.Description,
		Summary:     summary,
		Payload:     payload,
		Progress:    progress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	stored := !opts.Transient
	if stored {
		if err := s.store.Insert(ctx, ev, opts.Reuse); err != nil {
			outcome := "error"
			if IsConstraint(err) {
				outcome = "conflict"
			}
			metrics.EventsDispatchedTotal.WithLabelValues(outcome, "true").Inc()
			return "", fmt.Errorf("store event %s: %w", topic, err)
		}
	}

	// Transient events are broadcast too: that is how ephemeral
	// progress-only events reach live listeners without costing a row.
	msg := model.NewMessage(ev, stored, &progress, opts.Recipients)
	if err := s.bc.Publish(ctx, msg); err != nil {
		metrics.EventsDispatchedTotal.WithLabelValues("error", storedLabel(stored)).Inc()
		return "", fmt.Errorf("broadcast event %s: %w", topic, err)
	}
	metrics.EventsDispatchedTotal.WithLabelValues("ok", storedLabel(stored)).Inc()

	for i, handler := range s.hooks.Handlers(topic) {
		if err := handler(ctx, ev); err != nil {
			s.log.Error("event hook failed",
				zap.String("topic", topic),
				zap.String("event_id", id),
				zap.Int("hook", i),
				zap.Error(err))
			return id, fmt.Errorf("hook %d for %s: %w", i, topic, err)
		}
	}

	return id, nil
}

// Update patches an event and broadcasts the change. It reports false,
// without an error, when no event has that id: progress reporters fire
// updates at high frequency and must stay cheap even when the subject is
// already swept. Real store or broker failures are returned as errors.
//
// With opts.Transient the patch is overlaid on the current row in memory
// for the broadcast only; nothing is written.
func (s *Stream) Update(ctx context.Context, id string, opts UpdateOpts) (bool, error) {
	var ev model.Event

	if opts.Transient {
		current, err := s.store.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			metrics.EventsUpdatedTotal.WithLabelValues("missing").Inc()
			return false, nil
		}
		if err != nil {
			metrics.EventsUpdatedTotal.WithLabelValues("error").Inc()
			return false, fmt.Errorf("load event %s: %w", id, err)
		}
		ev = opts.patch().Apply(current)
	} else {
		updated, err := s.store.Update(ctx, id, opts.patch())
		if err != nil {
			metrics.EventsUpdatedTotal.WithLabelValues("error").Inc()
			return false, fmt.Errorf("update event %s: %w", id, err)
		}
		if updated == nil {
			metrics.EventsUpdatedTotal.WithLabelValues("missing").Inc()
			return false, nil
		}
		ev = *updated
	}

	msg := model.NewMessage(ev, !opts.Transient, opts.Progress, opts.Recipients)
	if err := s.bc.Publish(ctx, msg); err != nil {
		metrics.EventsUpdatedTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("broadcast update %s: %w", id, err)
	}

	metrics.EventsUpdatedTotal.WithLabelValues("ok").Inc()
	return true, nil
}

// Get returns the stored event, or ErrNotFound. Transient events were never
// stored and are not retrievable.
func (s *Stream) Get(ctx context.Context, id string) (model.Event, error) {
	return s.store.Get(ctx, id)
}

func storedLabel(stored bool) string {
	if stored {
		return "true"
	}
	return "false"
}
