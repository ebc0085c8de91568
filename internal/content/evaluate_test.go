package content

import (
	"strings"
	"testing"
)

func fourQuestions() ComprehensionCheck {
	return ComprehensionCheck{Questions: []Question{
		{ID: "q1", Question: "One?", CorrectAnswer: "B"},
		{ID: "q2", Question: "Two?", CorrectAnswer: "A"},
		{ID: "q3", Question: "Three?", CorrectAnswer: "C"},
		{ID: "q4", Question: "Four?", CorrectAnswer: "D"},
	}}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		answers map[string]string
		score   int
		passed  bool
		missed  []string
	}{
		{"all correct", map[string]string{"q1": "B) x", "q2": "A) y", "q3": "C) z", "q4": "D) w"}, 4, true, nil},
		{"three correct", map[string]string{"q1": "B) x", "q2": "A) y", "q3": "C) z", "q4": "A) w"}, 3, true, []string{"Four?"}},
		{"two correct", map[string]string{"q1": "B) x", "q2": "A) y"}, 2, false, []string{"Three?", "Four?"}},
		{"nothing answered", nil, 0, false, []string{"One?", "Two?", "Three?", "Four?"}},
		{"lowercase letter is wrong", map[string]string{"q1": "b) x", "q2": "A", "q3": "C", "q4": "D"}, 3, true, []string{"One?"}},
		{"unknown ids ignored", map[string]string{"q9": "B", "q1": "B", "q2": "A", "q3": "C"}, 3, true, []string{"Four?"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Evaluate(fourQuestions(), tt.answers, 3)
			if ev.Score != tt.score || ev.Passed != tt.passed || ev.Total != 4 || ev.Required != 3 {
				t.Errorf("Evaluate() = %+v", ev)
			}
			if strings.Join(ev.Missed, "|") != strings.Join(tt.missed, "|") {
				t.Errorf("Missed = %v, want %v", ev.Missed, tt.missed)
			}
		})
	}
}

func TestEvaluate_DefaultThreshold(t *testing.T) {
	ev := Evaluate(fourQuestions(), map[string]string{"q1": "B", "q2": "A", "q3": "C"}, 0)
	if ev.Required != DefaultPassThreshold || !ev.Passed {
		t.Errorf("Evaluate() = %+v", ev)
	}
}

func TestEvaluation_Message(t *testing.T) {
	ev := Evaluate(fourQuestions(), map[string]string{"q1": "B"}, 3)
	msg := ev.Message()
	if !strings.HasPrefix(msg, "You answered 1 out of 4 correctly. 3 are required to proceed.") {
		t.Errorf("Message() = %q", msg)
	}
	if !strings.HasSuffix(msg, "Questions to revisit: Two?; Three?; Four?.") {
		t.Errorf("Message() = %q", msg)
	}

	passed := Evaluate(fourQuestions(), map[string]string{"q1": "B", "q2": "A", "q3": "C", "q4": "D"}, 3)
	if passed.Message() != "" {
		t.Errorf("Message() for a pass = %q", passed.Message())
	}
}
