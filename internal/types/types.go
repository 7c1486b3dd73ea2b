// Package types holds the shared data model for the generation pipeline.
// Everything here is plain data: drafts, questions, critiques, contexts.
// Components (provider, budget, agent, orchestrator) depend on this package;
// it depends on nothing inside the module.
package types

import (
	"fmt"
	"strings"
)

// QuestionType is the closed set of supported question kinds.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	FillInBlank    QuestionType = "fill_in_blank"
	ShortAnswer    QuestionType = "short_answer"
	Matching       QuestionType = "matching"
	Essay          QuestionType = "essay"
)

// AllQuestionTypes lists every valid question type in a stable order.
var AllQuestionTypes = []QuestionType{
	MultipleChoice, TrueFalse, FillInBlank, ShortAnswer, Matching, Essay,
}

// Valid reports whether t is a member of the closed question-type set.
func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, FillInBlank, ShortAnswer, Matching, Essay:
		return true
	}
	return false
}

// Question is a single entry in a Draft.
type Question struct {
	Type           QuestionType `json:"type"`
	Prompt         string       `json:"prompt"`
	Options        []string     `json:"options,omitempty"`
	Answer         string       `json:"answer"`
	Points         int          `json:"points"`
	CognitiveLevel string       `json:"cognitive_level,omitempty"`
}

// Draft is one versioned candidate assessment. Drafts are immutable once
// created; revision produces a new Draft with a higher version.
type Draft struct {
	ID        string     `json:"id"`
	Version   int        `json:"version"`
	Round     int        `json:"round"`
	Questions []Question `json:"questions"`
}

// TypeCounts returns the number of questions per type in the draft.
func (d *Draft) TypeCounts() map[QuestionType]int {
	counts := make(map[QuestionType]int, len(d.Questions))
	for _, q := range d.Questions {
		counts[q.Type]++
	}
	return counts
}

// StyleProfile captures stylistic parameters inferred from example material.
// It is produced once per session and reused across rounds.
type StyleProfile struct {
	Tone         string                   `json:"tone"`
	ReadingLevel int                      `json:"reading_level"`
	TypeMix      map[QuestionType]float64 `json:"type_mix,omitempty"`
}

// DefaultStyleProfile is used when no example material is available.
func DefaultStyleProfile() *StyleProfile {
	return &StyleProfile{Tone: "neutral", ReadingLevel: 8}
}

// GenerationContext is the immutable per-round input to the Generator.
// Folding critique feedback in derives a new context via WithFeedback; a
// context is never mutated in place.
type GenerationContext struct {
	Segments      []string             `json:"segments"`
	Style         *StyleProfile        `json:"style,omitempty"`
	TargetCount   int                  `json:"target_count"`
	Distribution  map[QuestionType]int `json:"distribution,omitempty"`
	PriorCritique *CritiqueReport      `json:"prior_critique,omitempty"`
}

// Validate checks the constraints the Generator requires: non-empty source
// material, a positive target count, and a distribution (when present) whose
// total matches the target.
func (c GenerationContext) Validate() error {
	nonEmpty := false
	for _, s := range c.Segments {
		if strings.TrimSpace(s) != "" {
			nonEmpty = true
			break
		}
	}
	if !nonEmpty {
		return fmt.Errorf("generation context has no source material")
	}
	if c.TargetCount <= 0 {
		return fmt.Errorf("target question count must be positive, got %d", c.TargetCount)
	}
	if len(c.Distribution) > 0 {
		total := 0
		for t, n := range c.Distribution {
			if !t.Valid() {
				return fmt.Errorf("distribution references unknown question type %q", t)
			}
			if n < 0 {
				return fmt.Errorf("distribution count for %s is negative", t)
			}
			total += n
		}
		if total != c.TargetCount {
			return fmt.Errorf("distribution total %d does not match target count %d", total, c.TargetCount)
		}
	}
	return nil
}

// WithFeedback derives a new context carrying the critique from the previous
// round. Segments and style are shared (both are read-only by convention);
// the receiver is not modified.
func (c GenerationContext) WithFeedback(report *CritiqueReport) GenerationContext {
	next := c
	next.PriorCritique = report
	return next
}
