package recorder

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/annotation-study/registration/internal/config"
)

func TestFromConfig(t *testing.T) {
	cfg := &config.RecorderConfig{
		Sinks:   []string{"webhook", "csv"},
		CSV:     config.CSVSinkConfig{Path: filepath.Join(t.TempDir(), "r.csv")},
		Webhook: config.WebhookSinkConfig{URL: "http://127.0.0.1:1/hook", TimeoutSecs: 1},
		Timeout: 5 * time.Second,
	}
	r, err := FromConfig(context.Background(), cfg, Dependencies{})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if got := strings.Join(r.Sinks(), ","); got != "webhook,csv" {
		t.Errorf("Sinks() = %s", got)
	}

	// webhook is unreachable, csv takes the record
	if err := r.Record(context.Background(), sampleRecord()); err != nil {
		t.Errorf("Record() error = %v", err)
	}
}

func TestFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name  string
		sinks []string
	}{
		{"postgres without database", []string{"postgres"}},
		{"objectstore without storage", []string{"objectstore"}},
		{"unknown sink", []string{"carrier-pigeon"}},
		{"sheets without credentials", []string{"sheets"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.RecorderConfig{Sinks: tt.sinks}
			if _, err := FromConfig(context.Background(), cfg, Dependencies{}); err == nil {
				t.Error("FromConfig() = nil error")
			}
		})
	}
}
