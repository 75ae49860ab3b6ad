// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jeranaias/ifscenter-tui/internal/activity"
	"github.com/jeranaias/ifscenter-tui/internal/api"
	"github.com/jeranaias/ifscenter-tui/internal/config"
	"github.com/jeranaias/ifscenter-tui/internal/logging"
	"github.com/jeranaias/ifscenter-tui/internal/session"
	"github.com/jeranaias/ifscenter-tui/internal/storage"
)

// =============================================================================
// RUNTIME
// =============================================================================

// Runtime owns every handle a command needs. Close releases them in reverse
// order of creation.
type Runtime struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    storage.KV
	Client   *api.Client
	Bus      *activity.Bus
	Registry *prometheus.Registry
	Metrics  *session.Metrics
	Session  *session.Manager

	closers []io.Closer
}

// RuntimeOptions overrides parts of the runtime. Zero values are built from
// the configuration.
type RuntimeOptions struct {
	Config *config.Config
	Logger *zerolog.Logger
	Store  storage.KV

	// Output selects the log destination when Logger is nil.
	Output logging.Output
}

// LoadConfig loads the configuration named by args, applying --api.
// A broken default config file is reported on stderr and defaults are used.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil && !args.Quiet {
			fmt.Fprintf(os.Stderr, "%s %v (using defaults)\n", WarningStyle.Render("[!]"), err)
		}
	}
	if args.APIURL != "" {
		cfg.API.BaseURL = args.APIURL
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --api: %w", err)
		}
	}
	return cfg, nil
}

// NewRuntime builds the runtime. The session manager is created but not
// started.
func NewRuntime(ctx context.Context, args Args, opts RuntimeOptions) (rt *Runtime, err error) {
	rt = &Runtime{}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	rt.Config = opts.Config
	if rt.Config == nil {
		if rt.Config, err = LoadConfig(args); err != nil {
			return rt, err
		}
	}

	if opts.Logger != nil {
		rt.Logger = *opts.Logger
	} else {
		out := opts.Output
		if args.Verbose && out == logging.ToFile {
			out = logging.ToBoth
		}
		logger, closer, err := logging.Setup(rt.Config, out)
		if err != nil {
			return rt, fmt.Errorf("set up logging: %w", err)
		}
		rt.Logger = logger
		rt.closers = append(rt.closers, closer)
	}

	rt.Store = opts.Store
	if rt.Store == nil {
		path := ""
		if rt.Config.Storage.Backend != config.BackendRedis && rt.Config.Storage.Backend != config.BackendMemory {
			if path, err = rt.Config.StoragePath(); err != nil {
				return rt, err
			}
		}
		rt.Store, err = storage.Open(ctx, storage.Options{
			Backend:       rt.Config.Storage.Backend,
			Path:          path,
			RedisURL:      rt.Config.Storage.RedisURL,
			RedisPassword: rt.Config.Storage.RedisPassword,
			KeyPrefix:     rt.Config.Storage.KeyPrefix,
		})
		if err != nil {
			return rt, fmt.Errorf("open %s token storage: %w", rt.Config.Storage.Backend, err)
		}
		rt.closers = append(rt.closers, rt.Store)
	}

	rt.Client = api.New(rt.Config.API.BaseURL).
		WithTimeout(rt.Config.API.Timeout()).
		WithRateLimit(rt.Config.API.RateLimitRPS, rt.Config.API.RateBurst).
		WithLogger(logging.Component(rt.Logger, "api"))

	rt.Bus = activity.NewBus()
	rt.Registry = prometheus.NewRegistry()
	rt.Metrics = session.NewMetrics(rt.Registry)

	rt.Session, err = session.NewManager(session.ConfigFrom(rt.Config), session.Deps{
		Client:   rt.Client,
		Storage:  rt.Store,
		Activity: rt.Bus,
		Logger:   rt.Logger,
		Metrics:  rt.Metrics,
	})
	if err != nil {
		return rt, err
	}
	return rt, nil
}

// Close releases the runtime. The persisted token is kept. Non-zero
// session counters are written to the audit log before the log closes.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Session != nil {
		rt.Session.Close()
	}
	rt.logMetrics()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			rt.Logger.Debug().Err(err).Msg("close")
		}
	}
	rt.closers = nil
}

// logMetrics writes one SESSION_METRICS line per non-zero sample gathered
// from the registry.
func (rt *Runtime) logMetrics() {
	if rt.Registry == nil {
		return
	}
	families, err := rt.Registry.Gather()
	if err != nil {
		rt.Logger.Debug().Err(err).Msg("gather metrics")
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			default:
				continue
			}
			if value == 0 {
				continue
			}
			ev := rt.Logger.Info().
				Str("event", "SESSION_METRICS").
				Str("metric", mf.GetName())
			for _, lp := range m.GetLabel() {
				ev = ev.Str(lp.GetName(), lp.GetValue())
			}
			ev.Float64("value", value).Msg("session metrics")
		}
	}
}
