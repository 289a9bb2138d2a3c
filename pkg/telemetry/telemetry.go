// Package telemetry wires optional OpenTelemetry trace export.
//
// Spans are always created through otel.Tracer; without Init they go to the
// default no-op provider. Export is configured from the standard variables:
//
//	OTEL_ENABLED                    - Enable export (default: false)
//	OTEL_SERVICE_NAME               - Service name (default: dtriage)
//	OTEL_SERVICE_VERSION            - Service version (default: unknown)
//	OTEL_EXPORTER_OTLP_ENDPOINT     - OTLP collector endpoint
//	OTEL_EXPORTER_OTLP_PROTOCOL     - grpc or http/protobuf (default: grpc)
//	OTEL_EXPORTER_OTLP_HEADERS      - Exporter headers, key=value pairs
//	OTEL_EXPORTER_OTLP_INSECURE     - Disable TLS (default: false)
//	OTEL_TRACES_SAMPLER             - Sampler name (default: always_on)
//	OTEL_TRACES_SAMPLER_ARG         - Sampler ratio
//	OTEL_RESOURCE_ATTRIBUTES        - Extra resource attributes
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
)

// ShutdownFunc flushes and stops the exporter.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(_ context.Context) error {
	return nil
}

// Init installs a global TracerProvider exporting to OTLP when cfg.Enabled.
// A disabled config leaves the no-op provider in place.
func Init(ctx context.Context, cfg *Config) (ShutdownFunc, error) {
	if cfg == nil || !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := buildResource(cfg)
	if err != nil {
		return noopShutdown, err
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(exporter),
		trace.WithSampler(cfg.sampler()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
