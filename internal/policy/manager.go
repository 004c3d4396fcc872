// Package policy coordinates the input and output validators, applies the
// configured enforcement action, and records safety events.
//
// The manager never blocks delivery on its own failures: a validator that
// errors or panics degrades the call to safe (fail-open) with the error
// reported on the result. Only a configured refuse action withholds text.
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ppiankov/promptguard/internal/audit"
	"github.com/ppiankov/promptguard/internal/detect"
	"github.com/ppiankov/promptguard/internal/inputguard"
	"github.com/ppiankov/promptguard/internal/metrics"
	"github.com/ppiankov/promptguard/internal/model"
	"github.com/ppiankov/promptguard/internal/outputguard"
	"github.com/ppiankov/promptguard/internal/rules"
)

var tracer = otel.Tracer("promptguard.policy")

// Manager owns both validators and the event log.
// Configuration is read-only after New.
type Manager struct {
	cfg     *Config
	input   *inputguard.Validator
	output  *outputguard.Validator
	events  *audit.EventLog
	ownsLog bool
	logger  zerolog.Logger
	now     func() time.Time
}

type options struct {
	rules           *rules.Set
	events          *audit.EventLog
	logger          zerolog.Logger
	inputDetectors  []detect.Detector
	outputDetectors []detect.Detector
	invoker         detect.Invoker
	now             func() time.Time
}

// Option configures a Manager.
type Option func(*options)

// WithRules overrides the rule set. Takes precedence over safety.rules_file.
func WithRules(set *rules.Set) Option {
	return func(o *options) { o.rules = set }
}

// WithEventLog shares an existing event log. The manager does not close it.
func WithEventLog(l *audit.EventLog) Option {
	return func(o *options) { o.events = l }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithInputDetectors adds advanced detectors to the input validator.
func WithInputDetectors(d ...detect.Detector) Option {
	return func(o *options) { o.inputDetectors = append(o.inputDetectors, d...) }
}

// WithOutputDetectors adds advanced detectors to the output validator.
func WithOutputDetectors(d ...detect.Detector) Option {
	return func(o *options) { o.outputDetectors = append(o.outputDetectors, d...) }
}

// WithInvoker supplies the model client used when the classifier is enabled,
// instead of dialing Bedrock.
func WithInvoker(inv detect.Invoker) Option {
	return func(o *options) { o.invoker = inv }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New validates cfg and builds a Manager. A nil cfg uses DefaultConfig.
// ctx bounds any connections made while wiring sinks and the classifier.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	set := o.rules
	if set == nil {
		var err error
		set, err = loadRules(cfg.Safety.RulesFile)
		if err != nil {
			return nil, err
		}
	}

	inDetectors, outDetectors, err := classifierDetectors(ctx, cfg, o.invoker)
	if err != nil {
		return nil, err
	}
	inDetectors = append(inDetectors, o.inputDetectors...)
	outDetectors = append(outDetectors, o.outputDetectors...)

	events := o.events
	ownsLog := false
	if events == nil {
		events, err = NewEventLog(ctx, cfg, o.logger)
		if err != nil {
			return nil, err
		}
		ownsLog = true
	}

	m := &Manager{
		cfg: cfg,
		input: inputguard.New(set,
			inputguard.WithTopic(cfg.System.Topic),
			inputguard.WithTopicKeywords(cfg.System.TopicKeywords),
			inputguard.WithDetectors(inDetectors...),
			inputguard.WithLogger(o.logger),
		),
		output: outputguard.New(set,
			outputguard.WithProhibitedCategories(cfg.Safety.ProhibitedCategories),
			outputguard.WithDetectors(outDetectors...),
			outputguard.WithLogger(o.logger),
		),
		events:  events,
		ownsLog: ownsLog,
		logger:  o.logger,
		now:     o.now,
	}

	m.logger.Info().
		Bool("enabled", cfg.Safety.Enabled).
		Str("action", string(cfg.Safety.OnViolation.Action)).
		Str("topic", cfg.System.Topic).
		Int("input_detectors", len(inDetectors)).
		Int("output_detectors", len(outDetectors)).
		Msg("safety guardrails initialized")
	return m, nil
}

// Config returns the policy the manager was built with. Callers must not modify it.
func (m *Manager) Config() *Config { return m.cfg }

// EventLog returns the event log, for sharing with a replacement manager.
func (m *Manager) EventLog() *audit.EventLog { return m.events }

// CheckInput validates a query. Disabled policy passes everything through
// without inspection.
func (m *Manager) CheckInput(ctx context.Context, query string) model.InputResult {
	if !m.cfg.Safety.Enabled {
		return model.InputResult{Safe: true, Violations: []model.Violation{}, SanitizedQuery: query}
	}

	ctx, span := tracer.Start(ctx, "policy.Manager.CheckInput",
		trace.WithAttributes(attribute.Int("query_len", len(query))))
	defer span.End()
	start := time.Now()

	verdict, err := m.runInput(ctx, query)
	if err != nil {
		m.noteFailure(span, model.DirectionInput, err)
		return failOpenInput(query, err)
	}

	res := InputDecision(query, verdict)
	m.record(ctx, model.DirectionInput, query, verdict)
	metrics.ObserveCheck(model.DirectionInput, res.Outcome(), res.Violations, time.Since(start))
	span.SetAttributes(
		attribute.Bool("safe", res.Safe),
		attribute.Int("violations", len(res.Violations)),
	)
	return res
}

// CheckOutput validates a response against optional sources and applies
// the on_violation action when it is unsafe.
func (m *Manager) CheckOutput(ctx context.Context, response string, sources []model.Source) model.OutputResult {
	if !m.cfg.Safety.Enabled {
		return model.OutputResult{Safe: true, Violations: []model.Violation{}, Response: response}
	}

	ctx, span := tracer.Start(ctx, "policy.Manager.CheckOutput",
		trace.WithAttributes(
			attribute.Int("response_len", len(response)),
			attribute.Int("sources", len(sources)),
		))
	defer span.End()
	start := time.Now()

	verdict, err := m.runOutput(ctx, response, sources)
	if err != nil {
		m.noteFailure(span, model.DirectionOutput, err)
		return failOpenOutput(response, err)
	}

	res := OutputDecision(response, verdict, m.cfg.Safety.OnViolation)
	m.record(ctx, model.DirectionOutput, response, verdict)
	metrics.ObserveCheck(model.DirectionOutput, res.Outcome(), res.Violations, time.Since(start))
	span.SetAttributes(
		attribute.Bool("safe", res.Safe),
		attribute.Int("violations", len(res.Violations)),
		attribute.String("outcome", string(res.Outcome())),
	)
	return res
}

func (m *Manager) runInput(ctx context.Context, query string) (v model.Verdict, err error) {
	defer recoverCheck(model.DirectionInput, &err)
	v, err = m.input.Validate(ctx, query)
	if err != nil {
		return model.Verdict{}, &CheckExecutionError{Direction: model.DirectionInput, Err: err}
	}
	return v, nil
}

func (m *Manager) runOutput(ctx context.Context, response string, sources []model.Source) (v model.Verdict, err error) {
	defer recoverCheck(model.DirectionOutput, &err)
	v, err = m.output.Validate(ctx, response, sources)
	if err != nil {
		return model.Verdict{}, &CheckExecutionError{Direction: model.DirectionOutput, Err: err}
	}
	return v, nil
}

func recoverCheck(dir model.Direction, err *error) {
	if r := recover(); r != nil {
		*err = &CheckExecutionError{Direction: dir, Err: fmt.Errorf("panic: %v", r)}
	}
}

func (m *Manager) noteFailure(span trace.Span, dir model.Direction, err error) {
	m.logger.Error().Err(err).Str("direction", string(dir)).Msg("safety check failed, allowing content")
	metrics.ObserveError(dir)
	span.RecordError(err)
	span.SetStatus(codes.Error, "check failed open")
}

// record appends one event when logging is on and the check qualifies.
// Sink failures are logged by the event log and never reach the caller.
func (m *Manager) record(ctx context.Context, dir model.Direction, text string, v model.Verdict) {
	if !v.Valid {
		m.logger.Warn().
			Str("direction", string(dir)).
			Int("violations", len(v.Violations)).
			Str("max_severity", string(v.MaxSeverity())).
			Msg("safety violation")
	}
	if !m.cfg.Safety.LogEvents {
		return
	}
	if v.Valid && !m.cfg.Safety.LogAllChecks {
		return
	}

	ev := model.SafetyEvent{
		ID:             uuid.NewString(),
		Timestamp:      m.now().UTC(),
		Direction:      dir,
		Verdict:        v,
		ContentPreview: model.Preview(text),
	}
	if err := m.events.Append(ctx, ev); err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
	}
}

// Events returns a copy of the logged events.
func (m *Manager) Events() []model.SafetyEvent { return m.events.Events() }

// Stats aggregates the current event log.
func (m *Manager) Stats() model.Stats { return m.events.Stats() }

// ClearEvents empties the in-memory event log. Configuration is untouched.
func (m *Manager) ClearEvents() { m.events.Clear() }

// Close releases the event log sinks when the manager created them.
func (m *Manager) Close() error {
	if !m.ownsLog {
		return nil
	}
	return m.events.Close()
}
