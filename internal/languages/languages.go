// Package languages holds the table mapping the language names shown to
// registrants to their ISO 639 code and the platform project that collects
// annotations for that language.
package languages

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/annotation-study/registration/internal/config"
)

// ErrUnknownLanguage is returned when a selection names a language missing from the table.
var ErrUnknownLanguage = errors.New("unknown language")

// Language is one entry of the table.
type Language struct {
	Name    string       `json:"name"`
	Code    string       `json:"code"`
	Project string       `json:"project"`
	Tag     language.Tag `json:"-"`
}

// Table is an immutable, validated language table. It is safe for concurrent use.
type Table struct {
	ordered []Language
	byName  map[string]Language
}

// New validates the configured entries and builds a table. Names must be
// unique, codes must be ISO 639 base language codes, and every entry needs a
// project name.
func New(entries []config.LanguageConfig) (*Table, error) {
	if len(entries) == 0 {
		return nil, errors.New("language table is empty")
	}

	t := &Table{
		ordered: make([]Language, 0, len(entries)),
		byName:  make(map[string]Language, len(entries)),
	}
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("language %d: name is required", i)
		}
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("language %q: duplicate name", name)
		}
		base, err := language.ParseBase(e.Code)
		if err != nil {
			return nil, fmt.Errorf("language %q: invalid ISO 639 code %q: %w", name, e.Code, err)
		}
		tag, err := language.Compose(base)
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", name, err)
		}
		if strings.TrimSpace(e.Project) == "" {
			return nil, fmt.Errorf("language %q: project is required", name)
		}

		l := Language{Name: name, Code: base.String(), Project: e.Project, Tag: tag}
		t.ordered = append(t.ordered, l)
		t.byName[name] = l
	}
	return t, nil
}

// Lookup returns the entry for a display name. Matching is exact.
func (t *Table) Lookup(name string) (Language, error) {
	l, ok := t.byName[name]
	if !ok {
		return Language{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
	}
	return l, nil
}

// Resolve looks up every name in order. Duplicates are kept. The first unknown
// name aborts resolution.
func (t *Table) Resolve(names []string) ([]Language, error) {
	out := make([]Language, 0, len(names))
	for _, n := range names {
		l, err := t.Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Names returns the display names in configured order.
func (t *Table) Names() []string {
	names := make([]string, len(t.ordered))
	for i, l := range t.ordered {
		names[i] = l.Name
	}
	return names
}

// All returns a copy of the table entries in configured order.
func (t *Table) All() []Language {
	out := make([]Language, len(t.ordered))
	copy(out, t.ordered)
	return out
}
