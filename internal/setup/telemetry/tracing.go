package telemetry

import (
	"context"

	"github.com/kwservices/xptracker/internal/setup/config"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.uber.org/zap"
)

// ServiceName is the OpenTelemetry service name reported by every binary.
const ServiceName = "xptracker"

// ConfigureTracing installs the Uptrace OpenTelemetry exporter when a DSN is configured.
// Returns a shutdown function that flushes pending spans; it is a no-op when tracing is disabled.
func ConfigureTracing(cfg *config.Uptrace, component, version string, logger *zap.Logger) func(context.Context) {
	if cfg.DSN == "" {
		return func(context.Context) {}
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.DSN),
		uptrace.WithServiceName(ServiceName+"-"+component),
		uptrace.WithServiceVersion(version),
		uptrace.WithDeploymentEnvironment(cfg.Environment),
	)

	logger.Info("OpenTelemetry tracing enabled", zap.String("environment", cfg.Environment))

	return func(ctx context.Context) {
		if err := uptrace.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown tracing", zap.Error(err))
		}
	}
}
