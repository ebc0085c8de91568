package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const germanSetup = `{
  "instructions": {
    "sections": [
      {"heading": "Einleitung", "content": "Lesen Sie jeden Satz sorgfältig."},
      {"heading": "Akteursrollen", "content": "Drei Gruppen:\n**Protagonist** (Held): führt die Handlung\n- Retter: rettet andere\n- Anführer: leitet\n**Antagonist**\n- Täter"},
      {"heading": "Handlungskategorien", "content": "**Deskriptive Handlungsverben (DAV)**: beschreibt eine Handlung\n**Interpretative Handlungsverben (IAV)**: deutet eine Handlung"},
      {"heading": "Qualitätsstandards", "content": "intern"}
    ]
  },
  "example_annotations": {
    "instructions": "Sehen Sie sich die Beispiele an.",
    "worked_examples": [
      {"text": "Der Feuerwehrmann rettete das Kind.",
       "analysis": {"actors": [{"mention": "Feuerwehrmann", "role_explanation": "Protagonist"}],
                    "actions": [{"word": "rettete", "category": "DAV", "explanation": "beschreibend"}]}}
    ],
    "practice_questions": [
      {"id": "p1", "text": "Satz", "task": "Rollen?", "hint": "Wer handelt?", "sample_answer": {"Actor": "Protagonist"}}
    ],
    "comprehension_check": {
      "title": "Verständnis",
      "instructions": "Beantworten Sie alle Fragen.",
      "questions": [
        {"id": "q1", "question": "Wer ist der Protagonist?", "options": ["A) Kind", "B) Feuerwehrmann"], "correct_answer": "B"},
        {"id": "q2", "question": "Was ist DAV?", "options": ["A) deskriptiv", "B) interpretativ"], "correct_answer": "A"},
        {"id": "q3", "question": "Was ist IAV?", "options": ["A) deskriptiv", "B) interpretativ"], "correct_answer": "B"},
        {"id": "q4", "question": "Wie viele Gruppen?", "options": ["A) zwei", "B) drei"], "correct_answer": "B"}
      ]
    }
  }
}`

const englishSetup = `
instructions:
  sections:
    - heading: Introduction
      content: Read each sentence.
    - heading: Quality Standards
      content: internal
example_annotations:
  instructions: See the examples.
  worked_examples: []
  practice_questions: []
  comprehension_check:
    title: Check
    instructions: Answer all questions.
    questions:
      - id: q1
        question: Who acts?
        options: ["A) nobody", "B) the actor"]
        correct_answer: B
`

func writeContent(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newTestLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	writeContent(t, dir, "annotation_setup_de.json", germanSetup)
	writeContent(t, dir, "annotation_setup_en.yaml", englishSetup)
	return NewLoader(dir, time.Hour, []string{"Quality Standards", "qualitätsstandards"}), dir
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoad_JSON(t *testing.T) {
	l, _ := newTestLoader(t)
	setup, err := l.Load("de")
	if err != nil {
		t.Fatalf("Load(de) error = %v", err)
	}

	sections := setup.Instructions.Sections
	if len(sections) != 3 {
		t.Fatalf("sections = %d, want 3 (skip list applied)", len(sections))
	}
	if sections[0].Kind != KindText {
		t.Errorf("sections[0].Kind = %q", sections[0].Kind)
	}

	actors := sections[1]
	if actors.Kind != KindActors || actors.Intro != "Drei Gruppen:" || len(actors.Groups) != 2 {
		t.Fatalf("actors section = %+v", actors)
	}
	if actors.Groups[0].Title != "Protagonist (Held)" || len(actors.Groups[0].Roles) != 2 {
		t.Errorf("group 0 = %+v", actors.Groups[0])
	}
	if r := actors.Groups[0].Roles[0]; r.Role != "Retter" || r.Description != "rettet andere" {
		t.Errorf("role = %+v", r)
	}
	if r := actors.Groups[1].Roles[0]; r.Role != "Täter" || r.Description != "" {
		t.Errorf("role without description = %+v", r)
	}

	actions := sections[2]
	if actions.Kind != KindActions || len(actions.Actions) != 2 {
		t.Fatalf("actions section = %+v", actions)
	}
	want := ActionEntry{Category: "Deskriptive Handlungsverben", Code: "DAV", Description: "beschreibt eine Handlung"}
	if actions.Actions[0] != want {
		t.Errorf("action = %+v, want %+v", actions.Actions[0], want)
	}

	if n := len(setup.ExampleAnnotations.ComprehensionCheck.Questions); n != 4 {
		t.Errorf("questions = %d, want 4", n)
	}
}

func TestLoad_YAML(t *testing.T) {
	l, _ := newTestLoader(t)
	setup, err := l.Load("en")
	if err != nil {
		t.Fatalf("Load(en) error = %v", err)
	}
	if len(setup.Instructions.Sections) != 1 {
		t.Errorf("sections = %+v, want only Introduction", setup.Instructions.Sections)
	}
	if q := setup.ExampleAnnotations.ComprehensionCheck.Questions[0]; q.CorrectAnswer != "B" || len(q.Options) != 2 {
		t.Errorf("question = %+v", q)
	}
}

func TestLoad_NotFound(t *testing.T) {
	l, _ := newTestLoader(t)
	for _, code := range []string{"cs", "", "../de", "de.json"} {
		if _, err := l.Load(code); !errors.Is(err, ErrNotFound) {
			t.Errorf("Load(%q) error = %v, want ErrNotFound", code, err)
		}
	}
	if l.Available("cs") || !l.Available("de") {
		t.Error("Available() mismatch")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"malformed":    `{"instructions":`,
		"no questions": `{"instructions":{"sections":[]},"example_annotations":{"comprehension_check":{"questions":[]}}}`,
		"no answer":    `{"example_annotations":{"comprehension_check":{"questions":[{"id":"q1","question":"?","options":["A) x"]}]}}}`,
		"duplicate id": `{"example_annotations":{"comprehension_check":{"questions":[{"id":"q1","options":["A"],"correct_answer":"A"},{"id":"q1","options":["A"],"correct_answer":"A"}]}}}`,
		"no options":   `{"example_annotations":{"comprehension_check":{"questions":[{"id":"q1","correct_answer":"A"}]}}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeContent(t, dir, "annotation_setup_ga.json", body)
			if _, err := NewLoader(dir, 0, nil).Load("ga"); !errors.Is(err, ErrInvalidContent) {
				t.Errorf("Load() error = %v, want ErrInvalidContent", err)
			}
		})
	}
}

func TestLoad_Cached(t *testing.T) {
	l, dir := newTestLoader(t)
	first, err := l.Load("en")
	if err != nil {
		t.Fatal(err)
	}
	writeContent(t, dir, "annotation_setup_en.yaml", strings.Replace(englishSetup, "Who acts?", "Changed?", 1))

	second, err := l.Load("en")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("Load() re-read the file while cached")
	}
}

// ---------------------------------------------------------------------------
// Watch
// ---------------------------------------------------------------------------

func TestWatch_InvalidatesOnChange(t *testing.T) {
	l, dir := newTestLoader(t)
	if _, err := l.Load("en"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- l.watch(ctx, ready) }()
	<-ready

	writeContent(t, dir, "annotation_setup_en.yaml", strings.Replace(englishSetup, "Who acts?", "Changed?", 1))

	deadline := time.Now().Add(5 * time.Second)
	for {
		setup, err := l.Load("en")
		if err == nil && setup.ExampleAnnotations.ComprehensionCheck.Questions[0].Question == "Changed?" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("content not reloaded after file change")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watch() error = %v", err)
	}
}

func TestWatch_MissingDir(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "missing"), 0, nil)
	if err := l.Watch(context.Background()); err == nil {
		t.Error("Watch() = nil error for missing directory")
	}
}

func TestCodeFromFile(t *testing.T) {
	tests := []struct {
		name string
		code string
		ok   bool
	}{
		{"/data/annotation_setup_de.json", "de", true},
		{"annotation_setup_uk.yml", "uk", true},
		{"annotation_setup_cs.yaml", "cs", true},
		{"annotation_setup_cs.yaml.swp", "", false},
		{"notes.json", "", false},
	}
	for _, tt := range tests {
		code, ok := codeFromFile(tt.name)
		if code != tt.code || ok != tt.ok {
			t.Errorf("codeFromFile(%q) = %q, %v", tt.name, code, ok)
		}
	}
}

func TestRedacted(t *testing.T) {
	l, _ := newTestLoader(t)
	setup, _ := l.Load("de")
	check := setup.ExampleAnnotations.ComprehensionCheck

	red := check.Redacted()
	for _, q := range red.Questions {
		if q.CorrectAnswer != "" {
			t.Errorf("question %s still carries its answer", q.ID)
		}
	}
	if check.Questions[0].CorrectAnswer != "B" {
		t.Error("Redacted() modified the cached content")
	}
}

// ---------------------------------------------------------------------------
// Sections
// ---------------------------------------------------------------------------

func TestClassify_PlainWhenNoBlocks(t *testing.T) {
	s := Section{Heading: "Actor roles", Content: "Just prose."}
	classify(&s)
	if s.Kind != KindText || s.Groups != nil {
		t.Errorf("classify() = %+v, want plain text", s)
	}
}

func TestClassify_ActionCodeFromParenthetical(t *testing.T) {
	s := Section{Heading: "Action categories", Content: "**Descriptive verbs** (DAV): states what happened"}
	classify(&s)
	if len(s.Actions) != 1 {
		t.Fatalf("actions = %+v", s.Actions)
	}
	want := ActionEntry{Category: "Descriptive verbs", Code: "DAV", Description: "states what happened"}
	if s.Actions[0] != want {
		t.Errorf("action = %+v, want %+v", s.Actions[0], want)
	}
}
