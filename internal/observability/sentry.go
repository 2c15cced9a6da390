package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

const sentryFlushTimeout = 5 * time.Second

// SentryConfig holds error reporting configuration.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
	Debug       bool
}

// InitSentry initializes the global Sentry client.
// Returns a flush function to call on shutdown. If DSN is empty, Sentry stays
// disabled and the returned function is a no-op.
func InitSentry(cfg SentryConfig, logger zerolog.Logger) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  cfg.SampleRate,
		Debug:       cfg.Debug,
		ServerName:  "scholar-search-service",
	})
	if err != nil {
		return func() {}, fmt.Errorf("initializing sentry: %w", err)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Float64("sample_rate", cfg.SampleRate).
		Msg("sentry error reporting enabled")

	return func() {
		sentry.Flush(sentryFlushTimeout)
	}, nil
}

// CapturePanic reports a recovered panic value, tagging it with the request
// and correlation IDs found in ctx. It is a no-op when Sentry is not initialized.
func CapturePanic(ctx context.Context, recovered any) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	if hub.Client() == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		if id := RequestIDFromContext(ctx); id != "" {
			scope.SetTag("request_id", id)
		}
		if id := CorrelationIDFromContext(ctx); id != "" {
			scope.SetTag("correlation_id", id)
		}
		hub.RecoverWithContext(ctx, recovered)
	})
}

// CaptureError reports err with the current context. It is a no-op when
// Sentry is not initialized.
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
