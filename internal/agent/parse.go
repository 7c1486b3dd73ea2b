package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"quizsmith/internal/provider"
	"quizsmith/internal/types"
)

// extractJSON pulls the first JSON object out of a model response, tolerating
// markdown fences and surrounding prose. Models wrap JSON in ```json fences
// often enough that parsing the raw text directly is not workable.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		} else {
			text = rest
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

type questionPayload struct {
	Type           string   `json:"type"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	Answer         string   `json:"answer"`
	Points         int      `json:"points"`
	CognitiveLevel string   `json:"cognitive_level"`
}

type draftPayload struct {
	Questions []questionPayload `json:"questions"`
}

// parseDraft validates a generation response against the expected shape:
// parseable JSON, the target question count, valid types, and the requested
// distribution when one was given. Any violation is a malformed response so
// the caller retries with a stricter instruction.
func parseDraft(backend, text string, gctx types.GenerationContext) ([]types.Question, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, &provider.MalformedResponseError{Backend: backend, Reason: "no JSON object in response", Raw: text}
	}
	var payload draftPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &provider.MalformedResponseError{Backend: backend, Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: text}
	}
	if len(payload.Questions) != gctx.TargetCount {
		return nil, &provider.MalformedResponseError{
			Backend: backend,
			Reason:  fmt.Sprintf("expected %d questions, got %d", gctx.TargetCount, len(payload.Questions)),
		}
	}

	questions := make([]types.Question, 0, len(payload.Questions))
	counts := make(map[types.QuestionType]int)
	for i, qp := range payload.Questions {
		qt := types.QuestionType(qp.Type)
		if !qt.Valid() {
			return nil, &provider.MalformedResponseError{
				Backend: backend,
				Reason:  fmt.Sprintf("question %d has unknown type %q", i+1, qp.Type),
			}
		}
		points := qp.Points
		if points <= 0 {
			points = 1
		}
		counts[qt]++
		questions = append(questions, types.Question{
			Type:           qt,
			Prompt:         strings.TrimSpace(qp.Prompt),
			Options:        qp.Options,
			Answer:         strings.TrimSpace(qp.Answer),
			Points:         points,
			CognitiveLevel: qp.CognitiveLevel,
		})
	}

	if len(gctx.Distribution) > 0 {
		for _, qt := range types.AllQuestionTypes {
			if want := gctx.Distribution[qt]; counts[qt] != want {
				return nil, &provider.MalformedResponseError{
					Backend: backend,
					Reason:  fmt.Sprintf("distribution mismatch for %s: want %d, got %d", qt, want, counts[qt]),
				}
			}
		}
	}
	return questions, nil
}

type issuePayload struct {
	Rule          string `json:"rule"`
	Severity      string `json:"severity"`
	QuestionIndex *int   `json:"question_index"`
	Message       string `json:"message"`
}

type critiquePayload struct {
	Issues []issuePayload `json:"issues"`
}

// parseCritique validates a critique response and maps it onto issue values.
// The model's own verdict, if any, is ignored: the verdict is recomputed from
// the blocking count so the approve/blocking invariant holds by construction.
func parseCritique(backend, text string, questionCount int) ([]types.Issue, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, &provider.MalformedResponseError{Backend: backend, Reason: "no JSON object in response", Raw: text}
	}
	var payload critiquePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &provider.MalformedResponseError{Backend: backend, Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: text}
	}

	issues := make([]types.Issue, 0, len(payload.Issues))
	for i, ip := range payload.Issues {
		var severity types.Severity
		switch strings.ToLower(ip.Severity) {
		case "blocking":
			severity = types.SeverityBlocking
		case "advisory":
			severity = types.SeverityAdvisory
		default:
			return nil, &provider.MalformedResponseError{
				Backend: backend,
				Reason:  fmt.Sprintf("issue %d has unknown severity %q", i+1, ip.Severity),
			}
		}
		index := types.DraftLevelIssue
		if ip.QuestionIndex != nil {
			index = *ip.QuestionIndex
			if index < 0 || index >= questionCount {
				return nil, &provider.MalformedResponseError{
					Backend: backend,
					Reason:  fmt.Sprintf("issue %d references question index %d outside the draft", i+1, index),
				}
			}
		}
		rule := strings.TrimSpace(ip.Rule)
		if rule == "" {
			rule = "model_judgment"
		}
		issues = append(issues, types.Issue{
			Rule:          rule,
			Severity:      severity,
			QuestionIndex: index,
			Message:       strings.TrimSpace(ip.Message),
		})
	}
	return issues, nil
}

type stylePayload struct {
	Tone         string             `json:"tone"`
	ReadingLevel int                `json:"reading_level"`
	TypeMix      map[string]float64 `json:"type_mix"`
}

func parseStyle(backend, text string) (*types.StyleProfile, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, &provider.MalformedResponseError{Backend: backend, Reason: "no JSON object in response", Raw: text}
	}
	var payload stylePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &provider.MalformedResponseError{Backend: backend, Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: text}
	}
	profile := types.DefaultStyleProfile()
	if payload.Tone != "" {
		profile.Tone = payload.Tone
	}
	if payload.ReadingLevel > 0 {
		profile.ReadingLevel = payload.ReadingLevel
	}
	if len(payload.TypeMix) > 0 {
		profile.TypeMix = make(map[types.QuestionType]float64, len(payload.TypeMix))
		for k, v := range payload.TypeMix {
			qt := types.QuestionType(k)
			if qt.Valid() && v > 0 {
				profile.TypeMix[qt] = v
			}
		}
	}
	return profile, nil
}
