package logging

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bivex/storekit-manager/internal/infrastructure/config"
)

var Logger = zap.NewNop()

var sentryEnabled bool

// Init initializes the global logger for the server environment and, when a
// DSN is configured, Sentry
func Init(environment string, cfg *config.SentryConfig) error {
	if environment == "" {
		environment = "production"
	}
	zapConfig := newZapConfig(environment)

	sentryEnvironment := environment
	if cfg != nil && cfg.Environment != "" {
		sentryEnvironment = cfg.Environment
	}

	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	var opts []zap.Option
	if cfg != nil && cfg.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.DSN,
			Environment: sentryEnvironment,
			Release:     cfg.Release,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		sentryEnabled = true
		opts = append(opts, zap.Hooks(SentryHook(captureMessage)))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		return err
	}
	Logger = logger

	if sentryEnabled {
		Logger.Info("Sentry error reporting enabled", zap.String("environment", sentryEnvironment))
	}
	return nil
}

// newZapConfig uses the development encoder in development, production otherwise
func newZapConfig(environment string) zap.Config {
	if environment == "development" {
		zapConfig := zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapConfig
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapConfig
}

// SentryHook returns a zap hook forwarding error-level entries to capture
func SentryHook(capture func(entry zapcore.Entry)) func(zapcore.Entry) error {
	return func(entry zapcore.Entry) error {
		if entry.Level >= zapcore.ErrorLevel {
			capture(entry)
		}
		return nil
	}
}

func captureMessage(entry zapcore.Entry) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		if entry.LoggerName != "" {
			scope.SetTag("logger", entry.LoggerName)
		}
		if entry.Caller.Defined {
			scope.SetExtra("caller", entry.Caller.TrimmedPath())
		}
		sentry.CaptureMessage(entry.Message)
	})
}

// Sync flushes any buffered log entries and pending Sentry events
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}

// WithComponent creates a child logger with a component field
func WithComponent(component string) *zap.Logger {
	return Logger.With(zap.String("component", component))
}

// WithRequestID creates a child logger with a request_id field
func WithRequestID(requestID string) *zap.Logger {
	return Logger.With(zap.String("request_id", requestID))
}
