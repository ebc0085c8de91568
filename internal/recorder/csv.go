package recorder

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/annotation-study/registration/internal/registration"
)

// CSVSink appends records to a local CSV file. The header row is written when
// the file is new or empty.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

// NewCSVSink creates a CSV sink writing to path. The file is opened per append.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Name implements Sink
func (s *CSVSink) Name() string { return "csv" }

// Append implements Sink
func (s *CSVSink) Append(ctx context.Context, rec *registration.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(registration.Header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := w.Write(rec.Fields()); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", s.path, err)
	}
	return f.Sync()
}
