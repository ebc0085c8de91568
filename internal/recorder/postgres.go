package recorder

import (
	"context"
	"fmt"

	"github.com/annotation-study/registration/internal/db/models"
	"github.com/annotation-study/registration/internal/registration"
)

// registrationStore is the subset of RegistrationRepository the sink needs
type registrationStore interface {
	Create(ctx context.Context, reg *models.Registration) error
}

// PostgresSink inserts one registrations row per record
type PostgresSink struct {
	store registrationStore
}

// NewPostgresSink creates a sink backed by the registrations table
func NewPostgresSink(store registrationStore) *PostgresSink {
	return &PostgresSink{store: store}
}

// Name implements Sink
func (s *PostgresSink) Name() string { return "postgres" }

// Append implements Sink
func (s *PostgresSink) Append(ctx context.Context, rec *registration.Record) error {
	row, err := models.RegistrationFromRecord(rec)
	if err != nil {
		return err
	}
	if err := s.store.Create(ctx, row); err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}
