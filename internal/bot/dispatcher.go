package bot

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/okonst/taskmate/internal/observability"
	"github.com/okonst/taskmate/internal/vkteams"
)

// Dispatcher is the polling loop: it repeatedly long-polls the gateway for
// events after the last-seen event id and routes each one to the engine.
//
// The cursor lives in the loop's state only. A restart resets it to zero,
// so events inside the last poll window may be replayed; handlers are
// written to tolerate that.
type Dispatcher struct {
	logger       *slog.Logger
	source       EventSource
	engine       *Engine
	pollInterval time.Duration
	pollTimeout  time.Duration
	metrics      *observability.Metrics
}

// NewDispatcher creates the polling loop. metrics may be nil.
func NewDispatcher(
	logger *slog.Logger,
	source EventSource,
	engine *Engine,
	pollInterval, pollTimeout time.Duration,
	metrics *observability.Metrics,
) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{
		logger:       logger.With("component", "dispatcher"),
		source:       source,
		engine:       engine,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		metrics:      metrics,
	}
}

// Run polls until ctx is cancelled. A failed poll or a failed dispatch is
// logged and retried on the next tick; nothing here is fatal.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.InfoContext(ctx, "Dispatcher started",
		"poll_interval", d.pollInterval, "poll_timeout", d.pollTimeout)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	var cursor int64
	for {
		select {
		case <-ctx.Done():
			d.logger.InfoContext(ctx, "Dispatcher stopped", "last_event_id", cursor)
			return nil
		case <-ticker.C:
			cursor = d.Tick(ctx, cursor)
		}
	}
}

// Tick performs one poll-and-dispatch pass and returns the new cursor.
// Events are processed strictly in order; the cursor advances past an event
// only after its dispatch succeeded, so a mid-batch failure leaves the
// remainder for redelivery on a later poll.
func (d *Dispatcher) Tick(ctx context.Context, cursor int64) int64 {
	events, err := d.source.FetchEvents(ctx, cursor, d.pollTimeout)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to fetch events", "last_event_id", cursor, "error", err)
		if d.metrics != nil {
			d.metrics.HandlerErrors.WithLabelValues("dispatcher").Inc()
		}
		return cursor
	}

	for _, ev := range events {
		if err := d.dispatch(ctx, ev); err != nil {
			d.logger.ErrorContext(ctx, "Event dispatch failed, will redeliver",
				"event_id", ev.ID, "event_type", string(ev.Type), "error", err)
			if d.metrics != nil {
				d.metrics.HandlerErrors.WithLabelValues("dispatcher").Inc()
			}
			return cursor
		}
		cursor = ev.ID
		if d.metrics != nil {
			d.metrics.EventsProcessed.WithLabelValues(string(ev.Type)).Inc()
		}
	}
	return cursor
}

func (d *Dispatcher) dispatch(ctx context.Context, ev vkteams.Event) error {
	switch ev.Type {
	case vkteams.EventNewMessage:
		if ev.Message == nil {
			return nil
		}
		return d.engine.HandleMessage(ctx, ev.Message)

	case vkteams.EventCallbackQuery:
		if ev.Callback == nil {
			return nil
		}
		return d.engine.HandleCallback(ctx, ev.Callback)

	default:
		d.logger.DebugContext(ctx, "Ignoring unrecognized event type",
			"event_id", ev.ID, "event_type", string(ev.Type))
		return nil
	}
}
