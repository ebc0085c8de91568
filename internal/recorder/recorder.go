// Package recorder appends registration records to one of several sinks.
//
// Sinks are tried in the configured order and the first one that accepts the
// record wins. A failed sink is logged and counted; the record is only lost
// when every sink rejects it.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/annotation-study/registration/internal/registration"
	"github.com/annotation-study/registration/internal/telemetry"
)

// ErrNoSinkAccepted is returned by Record when every sink failed
var ErrNoSinkAccepted = errors.New("no sink accepted the registration record")

// Sink is one destination for registration records
type Sink interface {
	// Name identifies the sink in logs and metrics
	Name() string
	// Append stores one record. Implementations must be safe for concurrent use.
	Append(ctx context.Context, rec *registration.Record) error
}

// Recorder is an ordered fallback chain of sinks
type Recorder struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a recorder trying sinks in the given order. timeout bounds each
// sink attempt; zero leaves the caller's context untouched.
func New(timeout time.Duration, sinks ...Sink) *Recorder {
	return &Recorder{
		sinks:   sinks,
		timeout: timeout,
		logger:  slog.Default().With("component", "recorder"),
	}
}

// Sinks returns the sink names in fallback order
func (r *Recorder) Sinks() []string {
	names := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		names[i] = s.Name()
	}
	return names
}

// Record appends rec to the first sink that accepts it
func (r *Recorder) Record(ctx context.Context, rec *registration.Record) error {
	var errs []error
	for _, sink := range r.sinks {
		err := r.append(ctx, sink, rec)
		if err == nil {
			telemetry.RegistrationSinkWritesTotal.WithLabelValues(sink.Name()).Inc()
			if len(errs) > 0 {
				r.logger.Info("registration recorded by fallback sink",
					"registration_id", rec.ID, "sink", sink.Name(), "failed_sinks", len(errs))
			}
			return nil
		}

		telemetry.RegistrationSinkFailuresTotal.WithLabelValues(sink.Name()).Inc()
		r.logger.Warn("registration sink failed",
			"registration_id", rec.ID, "sink", sink.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
	}

	telemetry.RegistrationRecordsLostTotal.Inc()
	r.logger.Error("registration record lost",
		"registration_id", rec.ID, "username", rec.Username, "sinks", r.Sinks())
	return fmt.Errorf("%w: %w", ErrNoSinkAccepted, errors.Join(errs...))
}

func (r *Recorder) append(ctx context.Context, sink Sink, rec *registration.Record) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return sink.Append(ctx, rec)
}
