package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/storage"
)

// Dependencies carries the shared resources some sinks need. Fields may be nil
// when the corresponding sink is not configured.
type Dependencies struct {
	Registrations registrationStore
	Storage       storage.Storage
}

// FromConfig builds a recorder with the sinks listed in cfg.Sinks, in order
func FromConfig(ctx context.Context, cfg *config.RecorderConfig, deps Dependencies) (*Recorder, error) {
	sinks := make([]Sink, 0, len(cfg.Sinks))
	for _, name := range cfg.Sinks {
		sink, err := buildSink(ctx, name, cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s sink: %w", name, err)
		}
		sinks = append(sinks, sink)
	}
	return New(cfg.Timeout, sinks...), nil
}

func buildSink(ctx context.Context, name string, cfg *config.RecorderConfig, deps Dependencies) (Sink, error) {
	switch name {
	case "csv":
		return NewCSVSink(cfg.CSV.Path), nil
	case "sheets":
		return NewSheetsSink(ctx, &cfg.Sheets)
	case "postgres":
		if deps.Registrations == nil {
			return nil, fmt.Errorf("database is not connected")
		}
		return NewPostgresSink(deps.Registrations), nil
	case "objectstore":
		if deps.Storage == nil {
			return nil, fmt.Errorf("storage backend is not configured")
		}
		return NewObjectStoreSink(deps.Storage, cfg.ObjectStore.Prefix), nil
	case "webhook":
		return NewWebhookSink(cfg.Webhook.URL, cfg.Webhook.Headers,
			time.Duration(cfg.Webhook.TimeoutSecs)*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown sink type: %s", name)
	}
}
