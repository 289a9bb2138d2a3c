package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"google.golang.org/grpc/credentials/insecure"
)

// splitEndpoint strips a URL scheme from endpoint and reports whether the
// connection should skip TLS.
func splitEndpoint(cfg *Config) (host string, plaintext bool) {
	host = cfg.Endpoint
	switch {
	case strings.HasPrefix(host, "http://"):
		host, plaintext = strings.TrimPrefix(host, "http://"), true
	case strings.HasPrefix(host, "https://"):
		host = strings.TrimPrefix(host, "https://")
	}
	return host, plaintext || cfg.Insecure
}

// createExporter creates an OTLP trace exporter, gRPC unless the protocol
// names HTTP.
func createExporter(ctx context.Context, cfg *Config) (*otlptrace.Exporter, error) {
	host, plaintext := splitEndpoint(cfg)

	switch strings.ToLower(cfg.Protocol) {
	case "http/protobuf", "http":
		opts := []otlptracehttp.Option{}
		if host != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(host))
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		if plaintext {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		opts := []otlptracegrpc.Option{}
		if host != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(host))
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		if plaintext {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		return otlptracegrpc.New(ctx, opts...)
	}
}
