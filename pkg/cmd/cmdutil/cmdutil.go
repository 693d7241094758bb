// Package cmdutil holds the setup steps shared by the commands.
package cmdutil

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/redlight-race-go/log"
	"github.com/mpapenbr/redlight-race-go/pkg/config"
	"github.com/mpapenbr/redlight-race-go/pkg/db/postgres"
	"github.com/mpapenbr/redlight-race-go/pkg/utils"
)

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger creates the logger configured by the log flags and installs it as default
func SetupLogger(w io.Writer) (*log.Logger, error) {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if config.LogFilter != "" {
		filter, err := log.ParseFilter(config.LogFilter)
		if err != nil {
			return nil, err
		}
		opts = append(opts, log.WithFilter(filter))
	}
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(w, parseLogLevel(config.LogLevel, log.InfoLevel), opts...)
	default:
		logger = log.DevLogger(w, parseLogLevel(config.LogLevel, log.InfoLevel), opts...)
	}
	log.ResetDefault(logger)
	return logger, nil
}

// SetupTelemetry enables telemetry if requested. The returned function shuts it down.
func SetupTelemetry(ctx context.Context) func() {
	if !config.EnableTelemetry {
		return func() {}
	}
	log.Info("Enabling telemetry")
	telemetry, err := config.SetupTelemetry(ctx, config.WithEndpoint(config.TelemetryEndpoint))
	if err != nil {
		log.Warn("Could not setup telemetry", log.ErrorField(err))
		return func() {}
	}
	err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
	if err != nil {
		log.Warn("Could not start runtime metrics", log.ErrorField(err))
	}
	return telemetry.Shutdown
}

func WaitTimeout() time.Duration {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	return timeout
}

// OpenDB waits for the database configured by --db and returns a connection pool
func OpenDB(ctx context.Context) (*pgxpool.Pool, error) {
	if config.DB == "" {
		return nil, errors.New("no database configured (--db)")
	}
	if addr := utils.ExtractFromDBURL(config.DB); addr != "" {
		if err := utils.WaitForTCP(ctx, addr, WaitTimeout()); err != nil {
			return nil, err
		}
	}
	traceOption := postgres.WithTracer(log.Default(), parseLogLevel(config.SQLLogLevel, log.DebugLevel))
	if config.EnableTelemetry {
		traceOption = postgres.WithOtlpTracer()
	}
	return postgres.InitWithURL(ctx, config.DB, traceOption)
}
