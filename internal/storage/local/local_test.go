package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/storage"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := New(&config.LocalStorageConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatal("New:", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_CreatesDirectory(t *testing.T) {
	subDir := filepath.Join(t.TempDir(), "a", "b", "c")
	if _, err := New(&config.LocalStorageConfig{BasePath: subDir}); err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := os.Stat(subDir); os.IsNotExist(err) {
		t.Error("New() did not create base directory")
	}
}

func TestNew_EmptyBasePath(t *testing.T) {
	if _, err := New(&config.LocalStorageConfig{}); err == nil {
		t.Error("New() = nil error, want error for empty base_path")
	}
}

// ---------------------------------------------------------------------------
// Put / Get / Exists
// ---------------------------------------------------------------------------

func TestPut(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	content := "registration_id,languages\nabc,German\n"
	result, err := s.Put(ctx, "registrations/2026-05-01/abc.csv", strings.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if result.Key != "registrations/2026-05-01/abc.csv" {
		t.Errorf("Key = %q", result.Key)
	}
	if result.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", result.Size, len(content))
	}
	if len(result.Checksum) != 64 {
		t.Errorf("Checksum len = %d, want 64 (SHA256 hex)", len(result.Checksum))
	}

	data, err := os.ReadFile(filepath.Join(s.basePath, "registrations", "2026-05-01", "abc.csv"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != content {
		t.Errorf("file content = %q", data)
	}

	entries, _ := os.ReadDir(filepath.Join(s.basePath, "registrations", "2026-05-01"))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the object (no temp files)", len(entries))
	}
}

func TestPut_Overwrites(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, body := range []string{"first", "second"} {
		if _, err := s.Put(ctx, "k.txt", strings.NewReader(body), int64(len(body))); err != nil {
			t.Fatalf("Put(%q) error: %v", body, err)
		}
	}
	rc, err := s.Get(ctx, "k.txt")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "second" {
		t.Errorf("content = %q, want second", got)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestPut_ReaderErrorLeavesNothing(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.Put(context.Background(), "dir/broken.csv", failingReader{}, 10); err == nil {
		t.Fatal("Put() = nil error, want reader error")
	}
	entries, _ := os.ReadDir(filepath.Join(s.basePath, "dir"))
	if len(entries) != 0 {
		t.Errorf("directory has %d entries after failed Put", len(entries))
	}
}

func TestInvalidKeys(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape.csv", "a/../../escape.csv", "/abs/path.csv"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), 1); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) error = %v, want ErrInvalidKey", key, err)
		}
		if _, err := s.Exists(ctx, key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Exists(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.Get(context.Background(), "missing.csv")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestExists(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "r.csv")
	if err != nil || ok {
		t.Fatalf("Exists() before Put = %v, %v", ok, err)
	}
	if _, err := s.Put(ctx, "r.csv", strings.NewReader("x"), 1); err != nil {
		t.Fatal(err)
	}
	ok, err = s.Exists(ctx, "r.csv")
	if err != nil || !ok {
		t.Errorf("Exists() after Put = %v, %v", ok, err)
	}
}

func TestRegisteredWithFactory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.DefaultBackend = "local"
	cfg.Storage.Local.BasePath = t.TempDir()

	s, err := storage.NewStorage(cfg)
	if err != nil {
		t.Fatalf("NewStorage() error: %v", err)
	}
	if _, ok := s.(*LocalStorage); !ok {
		t.Errorf("NewStorage() = %T, want *LocalStorage", s)
	}
}
