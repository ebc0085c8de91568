package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	gocache "github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"github.com/annotation-study/registration/internal/telemetry"
)

const filePrefix = "annotation_setup_"

var extensions = []string{".json", ".yaml", ".yml"}

var (
	// ErrNotFound is returned when no content file exists for a language code
	ErrNotFound = errors.New("content not found")
	// ErrInvalidContent is returned for files that parse but cannot be served
	ErrInvalidContent = errors.New("invalid content")
)

// Loader reads content files on demand and caches the parsed result.
// It is safe for concurrent use.
type Loader struct {
	dir    string
	skip   map[string]bool
	cache  *gocache.Cache
	logger *slog.Logger
}

// NewLoader creates a loader for dir. Parsed files stay cached for ttl or
// until Watch sees them change. skip lists section headings that are dropped,
// compared case-insensitively.
func NewLoader(dir string, ttl time.Duration, skip []string) *Loader {
	skipSet := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipSet[strings.ToLower(strings.TrimSpace(s))] = true
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Loader{
		dir:    dir,
		skip:   skipSet,
		cache:  gocache.New(ttl, 10*time.Minute),
		logger: slog.Default().With("component", "content"),
	}
}

// Load returns the content for an ISO language code
func (l *Loader) Load(code string) (*Setup, error) {
	if cached, ok := l.cache.Get(code); ok {
		return cached.(*Setup), nil
	}

	path, err := l.find(code)
	if err != nil {
		return nil, err
	}
	setup, err := l.parseFile(path)
	if err != nil {
		return nil, err
	}

	l.cache.SetDefault(code, setup)
	return setup, nil
}

// Available reports whether a content file exists for code
func (l *Loader) Available(code string) bool {
	_, err := l.Load(code)
	return err == nil
}

func (l *Loader) find(code string) (string, error) {
	if code == "" || strings.ContainsAny(code, `/\.`) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, code)
	}
	for _, ext := range extensions {
		path := filepath.Join(l.dir, filePrefix+code+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, code)
}

func (l *Loader) parseFile(path string) (*Setup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var setup Setup
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &setup)
	} else {
		err = yaml.Unmarshal(data, &setup)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidContent, filepath.Base(path), err)
	}
	if err := validate(&setup); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidContent, filepath.Base(path), err)
	}

	sections := setup.Instructions.Sections[:0]
	for _, s := range setup.Instructions.Sections {
		if l.skip[strings.ToLower(strings.TrimSpace(s.Heading))] {
			continue
		}
		classify(&s)
		sections = append(sections, s)
	}
	setup.Instructions.Sections = sections
	return &setup, nil
}

func validate(s *Setup) error {
	questions := s.ExampleAnnotations.ComprehensionCheck.Questions
	if len(questions) == 0 {
		return errors.New("comprehension check has no questions")
	}
	seen := make(map[string]bool, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			return fmt.Errorf("question %d has no id", i+1)
		}
		if seen[q.ID] {
			return fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true
		if len(q.Options) == 0 {
			return fmt.Errorf("question %q has no options", q.ID)
		}
		if q.CorrectAnswer == "" {
			return fmt.Errorf("question %q has no correct answer", q.ID)
		}
	}
	return nil
}

// codeFromFile extracts the language code from a content file name
func codeFromFile(name string) (string, bool) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	if !strings.HasPrefix(base, filePrefix) {
		return "", false
	}
	for _, e := range extensions {
		if ext == e {
			return strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), ext), true
		}
	}
	return "", false
}

// Watch invalidates cached content when files in the content directory
// change. It blocks until ctx is cancelled.
func (l *Loader) Watch(ctx context.Context) error {
	return l.watch(ctx, nil)
}

func (l *Loader) watch(ctx context.Context, ready chan<- struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(l.dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", l.dir, err)
	}
	l.logger.Info("watching content directory", "dir", l.dir)
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			code, ok := codeFromFile(event.Name)
			if !ok {
				continue
			}
			l.cache.Delete(code)
			telemetry.ContentReloadsTotal.Inc()
			l.logger.Info("content changed, cache invalidated", "code", code, "op", event.Op.String())

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("content watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}
