package recorder

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/annotation-study/registration/internal/registration"
	"github.com/annotation-study/registration/internal/storage"
	"github.com/annotation-study/registration/pkg/checksum"
)

// ErrChecksumMismatch is returned when the stored object digest differs from
// the uploaded bytes
var ErrChecksumMismatch = errors.New("stored object checksum mismatch")

// ObjectStoreSink writes each record as its own CSV object (header plus one
// row) at <prefix>/<YYYY-MM-DD>/<registration_id>.csv
type ObjectStoreSink struct {
	store  storage.Storage
	prefix string
}

// NewObjectStoreSink creates a sink on the given storage backend
func NewObjectStoreSink(store storage.Storage, prefix string) *ObjectStoreSink {
	return &ObjectStoreSink{store: store, prefix: strings.Trim(prefix, "/")}
}

// Name implements Sink
func (s *ObjectStoreSink) Name() string { return "objectstore" }

// Key returns the object key for rec
func (s *ObjectStoreSink) Key(rec *registration.Record) string {
	return path.Join(s.prefix, rec.RegisteredAt.UTC().Format("2006-01-02"), rec.ID+".csv")
}

// Append implements Sink
func (s *ObjectStoreSink) Append(ctx context.Context, rec *registration.Record) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(registration.Header)
	_ = w.Write(rec.Fields())
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	data := buf.Bytes()

	key := s.Key(rec)
	result, err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	if !checksum.Matches(data, result.Checksum) {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, key)
	}
	return nil
}
