package content

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultPassThreshold is the number of correct answers needed to proceed
const DefaultPassThreshold = 3

// Evaluation is the scored result of one comprehension check submission
type Evaluation struct {
	Score    int  `json:"score"`
	Total    int  `json:"total"`
	Required int  `json:"required"`
	Passed   bool `json:"passed"`
	// Missed holds the question texts answered wrong or left blank, in quiz order
	Missed []string `json:"missed"`
}

// Evaluate scores answers, keyed by question id, against the check. An answer
// is correct when its first character equals the question's answer letter.
// A threshold below 1 uses DefaultPassThreshold.
func Evaluate(check ComprehensionCheck, answers map[string]string, threshold int) Evaluation {
	if threshold < 1 {
		threshold = DefaultPassThreshold
	}

	ev := Evaluation{
		Total:    len(check.Questions),
		Required: threshold,
		Missed:   []string{},
	}
	for _, q := range check.Questions {
		if correct(answers[q.ID], q.CorrectAnswer) {
			ev.Score++
		} else {
			ev.Missed = append(ev.Missed, q.Question)
		}
	}
	ev.Passed = ev.Score >= threshold
	return ev
}

func correct(chosen, letter string) bool {
	if chosen == "" || letter == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(chosen)
	want, _ := utf8.DecodeRuneInString(letter)
	return r == want
}

// Message is the feedback shown for a failed submission
func (e Evaluation) Message() string {
	if e.Passed {
		return ""
	}
	msg := fmt.Sprintf("You answered %d out of %d correctly. %d are required to proceed. "+
		"Please review the instructions above and try again.", e.Score, e.Total, e.Required)
	if len(e.Missed) > 0 {
		msg += " Questions to revisit: " + strings.Join(e.Missed, "; ") + "."
	}
	return msg
}
