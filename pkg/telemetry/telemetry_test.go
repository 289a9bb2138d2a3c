package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []*Config{nil, {Enabled: false, Endpoint: "localhost:4317"}} {
		shutdown, err := Init(ctx, cfg)
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
		if shutdown == nil {
			t.Fatal("Expected shutdown function to be non-nil")
		}
		if err := shutdown(ctx); err != nil {
			t.Errorf("Expected no error on shutdown, got %v", err)
		}
	}
}

func TestBuildResource(t *testing.T) {
	cfg := &Config{
		ServiceName:    "dtriage",
		ServiceVersion: "1.2.3",
		ResourceAttrs:  map[string]string{"deployment.environment": "test"},
	}
	res, err := buildResource(cfg)
	if err != nil {
		t.Fatalf("buildResource failed: %v", err)
	}

	want := map[attribute.Key]string{
		"service.name":           "dtriage",
		"service.version":        "1.2.3",
		"deployment.environment": "test",
	}
	got := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		got[kv.Key] = kv.Value.Emit()
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("attribute %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint  string
		insecure  bool
		wantHost  string
		wantPlain bool
	}{
		{"collector:4317", false, "collector:4317", false},
		{"http://collector:4318", false, "collector:4318", true},
		{"https://collector:4318", false, "collector:4318", false},
		{"https://collector:4318", true, "collector:4318", true},
		{"", false, "", false},
	}

	for _, tt := range tests {
		host, plain := splitEndpoint(&Config{Endpoint: tt.endpoint, Insecure: tt.insecure})
		if host != tt.wantHost || plain != tt.wantPlain {
			t.Errorf("splitEndpoint(%q, %v) = %q, %v; want %q, %v",
				tt.endpoint, tt.insecure, host, plain, tt.wantHost, tt.wantPlain)
		}
	}
}

func TestInit_EnabledHTTP(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Init(ctx, &Config{
		Enabled:     true,
		ServiceName: "dtriage",
		Endpoint:    "http://127.0.0.1:1",
		Protocol:    "http/protobuf",
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	// Nothing was exported, so shutdown does not need the collector.
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}
