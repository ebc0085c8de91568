// Package content loads the per-language annotation instructions and the
// comprehension check that gates registration.
//
// Each language has one file in the content directory named
// annotation_setup_<code>.json, .yaml or .yml, where <code> is the ISO 639
// code from the language table.
package content

// Setup is the parsed content of one language file
type Setup struct {
	Instructions       Instructions `json:"instructions" yaml:"instructions"`
	ExampleAnnotations Examples     `json:"example_annotations" yaml:"example_annotations"`
}

// Instructions is the ordered list of instruction sections
type Instructions struct {
	Sections []Section `json:"sections" yaml:"sections"`
}

// Section is one instruction heading with its markdown body. Kind, Intro,
// Groups and Actions are derived at load time.
type Section struct {
	Heading string `json:"heading" yaml:"heading"`
	Content string `json:"content" yaml:"content"`

	Kind    SectionKind   `json:"kind" yaml:"-"`
	Intro   string        `json:"intro,omitempty" yaml:"-"`
	Groups  []ActorGroup  `json:"groups,omitempty" yaml:"-"`
	Actions []ActionEntry `json:"actions,omitempty" yaml:"-"`
}

// SectionKind tells clients how to lay out a section
type SectionKind string

const (
	KindText    SectionKind = "text"
	KindActors  SectionKind = "actors"
	KindActions SectionKind = "actions"
)

// ActorGroup is one bold-headed block of actor roles
type ActorGroup struct {
	Title string     `json:"title"`
	Roles []RoleItem `json:"roles"`
}

// RoleItem is a "- Role: description" line
type RoleItem struct {
	Role        string `json:"role"`
	Description string `json:"description"`
}

// ActionEntry is one action portrayal category
type ActionEntry struct {
	Category    string `json:"category"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description"`
}

// Examples holds the worked examples, practice questions and the check
type Examples struct {
	Instructions       string             `json:"instructions" yaml:"instructions"`
	WorkedExamples     []WorkedExample    `json:"worked_examples" yaml:"worked_examples"`
	PracticeQuestions  []PracticeQuestion `json:"practice_questions" yaml:"practice_questions"`
	ComprehensionCheck ComprehensionCheck `json:"comprehension_check" yaml:"comprehension_check"`
}

type WorkedExample struct {
	Text     string   `json:"text" yaml:"text"`
	Analysis Analysis `json:"analysis" yaml:"analysis"`
}

type Analysis struct {
	Actors  []ActorAnalysis  `json:"actors" yaml:"actors"`
	Actions []ActionAnalysis `json:"actions" yaml:"actions"`
}

type ActorAnalysis struct {
	Mention         string `json:"mention" yaml:"mention"`
	RoleExplanation string `json:"role_explanation" yaml:"role_explanation"`
}

type ActionAnalysis struct {
	Word        string `json:"word" yaml:"word"`
	Category    string `json:"category" yaml:"category"`
	Explanation string `json:"explanation" yaml:"explanation"`
}

type PracticeQuestion struct {
	ID           string            `json:"id" yaml:"id"`
	Text         string            `json:"text" yaml:"text"`
	Task         string            `json:"task" yaml:"task"`
	Hint         string            `json:"hint" yaml:"hint"`
	SampleAnswer map[string]string `json:"sample_answer" yaml:"sample_answer"`
}

// ComprehensionCheck is the multiple-choice quiz
type ComprehensionCheck struct {
	Title        string     `json:"title" yaml:"title"`
	Instructions string     `json:"instructions" yaml:"instructions"`
	Questions    []Question `json:"questions" yaml:"questions"`
}

// Question is one quiz item. Options start with their answer letter, e.g.
// "B) The protagonist".
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty" yaml:"correct_answer"`
}

// Redacted returns a copy of the check without the correct answers
func (c ComprehensionCheck) Redacted() ComprehensionCheck {
	out := c
	out.Questions = make([]Question, len(c.Questions))
	for i, q := range c.Questions {
		q.CorrectAnswer = ""
		out.Questions[i] = q
	}
	return out
}
