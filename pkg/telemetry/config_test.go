package telemetry

import (
	"strings"
	"testing"
)

var otelEnv = []string{
	"OTEL_ENABLED",
	"OTEL_SERVICE_NAME",
	"OTEL_SERVICE_VERSION",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_EXPORTER_OTLP_PROTOCOL",
	"OTEL_EXPORTER_OTLP_HEADERS",
	"OTEL_EXPORTER_OTLP_INSECURE",
	"OTEL_TRACES_SAMPLER",
	"OTEL_TRACES_SAMPLER_ARG",
	"OTEL_RESOURCE_ATTRIBUTES",
}

func clearEnv(t *testing.T) {
	for _, k := range otelEnv {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)
		cfg := LoadFromEnv()

		if cfg.Enabled {
			t.Error("Expected Enabled to be false by default")
		}
		if cfg.ServiceName != DefaultServiceName {
			t.Errorf("Expected ServiceName %q, got %q", DefaultServiceName, cfg.ServiceName)
		}
		if cfg.ServiceVersion != "unknown" {
			t.Errorf("Expected ServiceVersion 'unknown', got %q", cfg.ServiceVersion)
		}
		if cfg.Protocol != "grpc" {
			t.Errorf("Expected Protocol 'grpc', got %q", cfg.Protocol)
		}
	})

	t.Run("enabled_case_insensitive", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OTEL_ENABLED", "TRUE")
		if !LoadFromEnv().Enabled {
			t.Error("Expected Enabled to be true for 'TRUE'")
		}
	})

	t.Run("custom_values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OTEL_SERVICE_NAME", "triage-batch")
		t.Setenv("OTEL_SERVICE_VERSION", "1.0.0")
		t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://collector.example.com:4317")
		t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "http/protobuf")
		t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
		t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "Authorization=Bearer token123,X-Custom=value")

		cfg := LoadFromEnv()
		if cfg.ServiceName != "triage-batch" || cfg.ServiceVersion != "1.0.0" {
			t.Errorf("unexpected service %q %q", cfg.ServiceName, cfg.ServiceVersion)
		}
		if cfg.Endpoint != "https://collector.example.com:4317" {
			t.Errorf("unexpected Endpoint %q", cfg.Endpoint)
		}
		if cfg.Protocol != "http/protobuf" {
			t.Errorf("unexpected Protocol %q", cfg.Protocol)
		}
		if !cfg.Insecure {
			t.Error("Expected Insecure to be true")
		}
		if cfg.Headers["Authorization"] != "Bearer token123" {
			t.Errorf("unexpected Authorization header %q", cfg.Headers["Authorization"])
		}
	})
}

func TestParseKeyValuePairs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"single_pair", "key=value", map[string]string{"key": "value"}},
		{"with_spaces", " key1 = value1 , key2 = value2 ", map[string]string{"key1": "value1", "key2": "value2"}},
		{"value_with_equals", "Authorization=Bearer token=abc", map[string]string{"Authorization": "Bearer token=abc"}},
		{"empty_value", "key=", map[string]string{"key": ""}},
		{"mixed_valid_invalid", "valid=value,invalid,=x,another=test", map[string]string{"valid": "value", "another": "test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseKeyValuePairs(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("Expected %d pairs, got %d", len(tt.expected), len(result))
			}
			for k, v := range tt.expected {
				if result[k] != v {
					t.Errorf("Expected %s=%q, got %q", k, v, result[k])
				}
			}
		})
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		sampler    string
		arg        string
		wantPrefix string
	}{
		{"", "", "AlwaysOnSampler"},
		{"always_on", "", "AlwaysOnSampler"},
		{"always_off", "", "AlwaysOffSampler"},
		{"traceidratio", "0.5", "TraceIDRatioBased{0.5}"},
		{"parentbased_always_on", "", "ParentBased{root:AlwaysOnSampler"},
		{"parentbased_always_off", "", "ParentBased{root:AlwaysOffSampler"},
		{"parentbased_traceidratio", "0.1", "ParentBased{root:TraceIDRatioBased{0.1}"},
	}

	for _, tt := range tests {
		t.Run(tt.sampler, func(t *testing.T) {
			cfg := &Config{Sampler: tt.sampler, SamplerArg: tt.arg}
			desc := cfg.sampler().Description()
			if !strings.HasPrefix(desc, tt.wantPrefix) {
				t.Errorf("Description() = %q, want prefix %q", desc, tt.wantPrefix)
			}
		})
	}
}

func TestParseRatio(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"", 1.0},
		{"0.5", 0.5},
		{"0", 0},
		{"1", 1.0},
		{"invalid", 1.0},
		{"-0.5", 0},
		{"1.5", 1.0},
	}

	for _, tt := range tests {
		if got := parseRatio(tt.input); got != tt.expected {
			t.Errorf("parseRatio(%q) = %f, want %f", tt.input, got, tt.expected)
		}
	}
}
