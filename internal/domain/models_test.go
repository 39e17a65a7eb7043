package domain

import (
	"errors"
	"testing"
)

func TestFallbackQuestionsAreWellFormed(t *testing.T) {
	questions := FallbackQuestions()
	if len(questions) != 5 {
		t.Fatalf("expected 5 fallback questions, got %d", len(questions))
	}
	if err := ValidateQuestions(questions); err != nil {
		t.Fatalf("fallback set invalid: %v", err)
	}

	// Mutating the copy must not leak into the embedded set.
	questions[0].Options[0] = "changed"
	if FallbackQuestions()[0].Options[0] != "Casablanca" {
		t.Fatalf("expected embedded fallback set to be immutable")
	}
}

func TestQuestionValidate(t *testing.T) {
	base := Question{
		ID:                 "q1",
		Text:               "Pick one",
		Options:            []string{"a", "b", "c", "d"},
		CorrectAnswerIndex: 3,
		Category:           CategoryMusic,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid question, got %v", err)
	}

	cases := map[string]func(q *Question){
		"three options":  func(q *Question) { q.Options = q.Options[:3] },
		"index too high": func(q *Question) { q.CorrectAnswerIndex = 4 },
		"negative index": func(q *Question) { q.CorrectAnswerIndex = -1 },
		"bad category":   func(q *Question) { q.Category = "Sports" },
		"missing id":     func(q *Question) { q.ID = "" },
		"missing text":   func(q *Question) { q.Text = "" },
	}
	for name, mutate := range cases {
		q := base
		q.Options = append([]string(nil), base.Options...)
		mutate(&q)
		if err := q.Validate(); !errors.Is(err, ErrMalformedQuestion) {
			t.Fatalf("%s: expected malformed error, got %v", name, err)
		}
	}
}
