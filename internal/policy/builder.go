package policy

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"

	"github.com/ppiankov/promptguard/internal/alert"
	"github.com/ppiankov/promptguard/internal/audit"
	"github.com/ppiankov/promptguard/internal/bedrock"
	"github.com/ppiankov/promptguard/internal/detect"
	"github.com/ppiankov/promptguard/internal/model"
	"github.com/ppiankov/promptguard/internal/rules"
)

const redisConnectAttempts = 3

// RedisPasswordEnv supplies the Redis password when the policy file has none.
const RedisPasswordEnv = "PROMPTGUARD_REDIS_PASSWORD"

func loadRules(path string) (*rules.Set, error) {
	if path == "" {
		return rules.Default(), nil
	}
	set, err := rules.LoadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Field: "safety.rules_file", Err: err}
	}
	return set, nil
}

func classifierDetectors(ctx context.Context, cfg *Config, inv detect.Invoker) (in, out []detect.Detector, err error) {
	cc := cfg.Safety.Classifier
	if !cc.Enabled {
		return nil, nil, nil
	}
	if inv == nil {
		client, err := bedrock.NewClient(ctx, cc.Region, cc.ModelID)
		if err != nil {
			return nil, nil, &ConfigurationError{Field: "safety.classifier", Err: err}
		}
		inv = client
	}
	in = []detect.Detector{detect.NewClassifier(inv, model.DirectionInput, cfg.System.Topic)}
	if cc.Output {
		out = []detect.Detector{detect.NewClassifier(inv, model.DirectionOutput, cfg.System.Topic)}
	}
	return in, out, nil
}

// NewEventLog builds the event log described by cfg: the JSONL file sink,
// the Redis and SQLite sinks, and a webhook alert hook. Sinks that fail to
// open are a configuration error; sinks opened before the failure are closed.
func NewEventLog(ctx context.Context, cfg *Config, logger zerolog.Logger) (*audit.EventLog, error) {
	var sinks []audit.Sink
	fail := func(field string, err error) (*audit.EventLog, error) {
		var errs []error
		for _, s := range sinks {
			errs = append(errs, s.Close())
		}
		if cerr := errors.Join(errs...); cerr != nil {
			logger.Warn().Err(cerr).Msg("closing partially opened sinks")
		}
		return nil, &ConfigurationError{Field: field, Err: err}
	}

	s := cfg.Safety
	if s.SafetyLogFile != "" {
		fs, err := audit.OpenFile(s.SafetyLogFile)
		if err != nil {
			return fail("safety.safety_log_file", err)
		}
		sinks = append(sinks, fs)
	}
	if rc := s.Sinks.Redis; rc.Addr != "" {
		password := rc.Password
		if password == "" {
			password = os.Getenv(RedisPasswordEnv)
		}
		client, err := audit.ConnectRedis(ctx, rc.Addr, password, redisConnectAttempts, logger)
		if err != nil {
			return fail("safety.sinks.redis", err)
		}
		sinks = append(sinks, audit.NewRedisSink(client, rc.Stream, rc.MaxLen))
	}
	if path := s.Sinks.SQLite.Path; path != "" {
		db, err := audit.OpenSQLite(path)
		if err != nil {
			return fail("safety.sinks.sqlite", err)
		}
		sinks = append(sinks, db)
	}

	opts := []audit.Option{audit.WithLogger(logger)}
	for _, sink := range sinks {
		opts = append(opts, audit.WithSink(sink))
	}
	if d := alert.NewDispatcher(s.Alerts, logger); d != nil {
		opts = append(opts, audit.WithHook(d.Hook))
	}
	return audit.NewEventLog(opts...), nil
}
