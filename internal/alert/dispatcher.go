package alert

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ppiankov/promptguard/internal/model"
)

// Dispatcher fans out alert events to matching webhook configurations.
type Dispatcher struct {
	configs []AlertConfig
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []AlertConfig, logger zerolog.Logger) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs, logger: logger}
}

// Hook adapts the dispatcher to an event log hook.
func (d *Dispatcher) Hook(ev model.SafetyEvent) {
	d.Dispatch(EventFromSafety(ev))
}

// Dispatch sends the event to all webhooks whose Events list matches.
// Matching is on direction, on the highest violation severity, or "all".
// Safe events are never alerted. Fires goroutines and does not block the caller.
func (d *Dispatcher) Dispatch(event AlertEvent) {
	if event.Safe {
		return
	}
	for _, cfg := range d.configs {
		if !matches(cfg.Events, event) {
			continue
		}
		d.wg.Add(1)
		go func(cfg AlertConfig) {
			defer d.wg.Done()
			if err := Send(context.Background(), cfg, event); err != nil {
				d.logger.Warn().Err(err).Str("url", cfg.URL).Str("event_id", event.EventID).Msg("alert delivery failed")
			}
		}(cfg)
	}
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func matches(events []string, event AlertEvent) bool {
	for _, e := range events {
		switch e {
		case "all", event.Direction:
			return true
		}
		if event.Severity != "" && e == event.Severity {
			return true
		}
	}
	return false
}
