package recorder

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/annotation-study/registration/internal/registration"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return rows
}

func TestCSVSink_HeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registrations.csv")
	s := NewCSVSink(path)

	first := sampleRecord()
	second := sampleRecord()
	for _, rec := range []*registration.Record{first, second} {
		if err := s.Append(context.Background(), rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "registration_id" || len(rows[0]) != len(registration.Header) {
		t.Errorf("header = %v", rows[0])
	}

	back, err := registration.ParseRecord(rows[0], rows[2])
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	if back.ID != second.ID || back.Username != second.Username || back.ProjectsAssigned() != 1 {
		t.Errorf("round trip = %+v", back)
	}
}

func TestCSVSink_ExistingEmptyFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registrations.csv")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := NewCSVSink(path).Append(context.Background(), sampleRecord()); err != nil {
		t.Fatal(err)
	}
	if rows := readCSV(t, path); len(rows) != 2 || rows[0][0] != "registration_id" {
		t.Errorf("rows = %v", rows)
	}
}

func TestCSVSink_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registrations.csv")
	s := NewCSVSink(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Append(context.Background(), sampleRecord()); err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if rows := readCSV(t, path); len(rows) != 21 {
		t.Errorf("rows = %d, want 21", len(rows))
	}
}

func TestCSVSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "registrations.csv")
	if err := NewCSVSink(path).Append(ctx, sampleRecord()); err == nil {
		t.Error("Append() = nil error for cancelled context")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file created despite cancelled context")
	}
}

func TestCSVSink_Unwritable(t *testing.T) {
	dir := t.TempDir()
	if err := NewCSVSink(dir).Append(context.Background(), sampleRecord()); err == nil {
		t.Error("Append() to a directory path = nil error")
	}
}
