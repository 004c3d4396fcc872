// Package audit owns the safety event log: an in-memory append-only list
// of events fanned out to durable sinks (hash-chained JSONL file, Redis
// stream, SQLite table).
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ppiankov/promptguard/internal/model"
)

// Sink persists events. Implementations must be safe for concurrent use.
type Sink interface {
	Name() string
	Write(ctx context.Context, ev model.SafetyEvent) error
	Close() error
}

// LogWriteError reports a sink that failed to persist an event.
type LogWriteError struct {
	Sink    string
	EventID string
	Err     error
}

func (e *LogWriteError) Error() string {
	return fmt.Sprintf("audit: write event %s to %s: %v", e.EventID, e.Sink, e.Err)
}

func (e *LogWriteError) Unwrap() error { return e.Err }

// Hook observes every appended event.
type Hook func(ev model.SafetyEvent)

// EventLog is the process- or session-scoped safety event log.
type EventLog struct {
	mu     sync.RWMutex
	events []model.SafetyEvent

	// writeMu keeps sink order identical to memory order.
	writeMu sync.Mutex
	sinks   []Sink
	hooks   []Hook
	logger  zerolog.Logger
}

// Option configures an EventLog.
type Option func(*EventLog)

// WithSink adds a durable sink.
func WithSink(s Sink) Option {
	return func(l *EventLog) {
		if s != nil {
			l.sinks = append(l.sinks, s)
		}
	}
}

// WithHook registers a callback run after each append.
func WithHook(h Hook) Option {
	return func(l *EventLog) { l.hooks = append(l.hooks, h) }
}

// WithLogger sets the logger used for swallowed sink failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *EventLog) { l.logger = logger }
}

// NewEventLog builds an empty log.
func NewEventLog(opts ...Option) *EventLog {
	l := &EventLog{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records ev in memory, then writes it synchronously to every sink.
// Sink failures never undo the in-memory append; they are logged and
// returned joined as *LogWriteError values for callers that care.
func (l *EventLog) Append(ctx context.Context, ev model.SafetyEvent) error {
	l.writeMu.Lock()

	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()

	var errs []error
	for _, s := range l.sinks {
		if err := s.Write(ctx, ev); err != nil {
			werr := &LogWriteError{Sink: s.Name(), EventID: ev.ID, Err: err}
			l.logger.Error().Err(err).Str("sink", s.Name()).Str("event_id", ev.ID).Msg("failed to write safety event")
			errs = append(errs, werr)
		}
	}
	l.writeMu.Unlock()

	for _, h := range l.hooks {
		h(ev)
	}
	return errors.Join(errs...)
}

// Events returns a copy of the logged events in append order.
func (l *EventLog) Events() []model.SafetyEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.SafetyEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of events in memory.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Stats aggregates the events currently in memory.
func (l *EventLog) Stats() model.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return model.ComputeStats(l.events)
}

// Clear empties the in-memory log. Durable sinks are append-only and keep
// their records.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// Close closes every sink.
func (l *EventLog) Close() error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	var errs []error
	for _, s := range l.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audit: close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
