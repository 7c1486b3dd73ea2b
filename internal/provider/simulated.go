package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"sync"
)

// Simulated is the zero-cost deterministic backend. It fabricates responses
// keyed by the request shape so the whole pipeline is exercisable without
// touching the network. The same request always yields the same response.
//
// Tests can script it: Enqueue pushes a canned response for a shape,
// EnqueueError pushes a failure. Queued entries are consumed before the
// default fabrication kicks in.
type Simulated struct {
	mu     sync.Mutex
	queues map[ResponseShape][]scripted
}

type scripted struct {
	text string
	err  error
}

// NewSimulated returns the default backend.
func NewSimulated() *Simulated {
	return &Simulated{queues: make(map[ResponseShape][]scripted)}
}

// Name implements Client.
func (s *Simulated) Name() string { return "simulated" }

// ZeroCost marks this backend as free for the budget governor.
func (s *Simulated) ZeroCost() bool { return true }

// Enqueue scripts the next response for the given shape.
func (s *Simulated) Enqueue(shape ResponseShape, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[shape] = append(s.queues[shape], scripted{text: text})
}

// EnqueueError scripts the next call for the given shape to fail.
func (s *Simulated) EnqueueError(shape ResponseShape, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[shape] = append(s.queues[shape], scripted{err: err})
}

// Generate implements Client.
func (s *Simulated) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Backend: s.Name(), Err: err}
	}

	s.mu.Lock()
	queue := s.queues[req.Shape]
	if len(queue) > 0 {
		next := queue[0]
		s.queues[req.Shape] = queue[1:]
		s.mu.Unlock()
		if next.err != nil {
			return nil, next.err
		}
		return &Response{Text: next.text, Model: "simulated"}, nil
	}
	s.mu.Unlock()

	var text string
	switch req.Shape {
	case ShapeQuestions:
		text = s.fabricateDraft(req)
	case ShapeCritique:
		text = `{"verdict":"approve","issues":[]}`
	case ShapeStyle:
		text = `{"tone":"neutral","reading_level":8}`
	default:
		return nil, &MalformedResponseError{
			Backend: s.Name(),
			Reason:  fmt.Sprintf("unknown response shape %q", req.Shape),
		}
	}
	return &Response{Text: text, Model: "simulated"}, nil
}

var (
	targetCountRe  = regexp.MustCompile(`Target question count: (\d+)`)
	distributionRe = regexp.MustCompile(`- ([a-z_]+): (\d+)`)
)

// fabricateDraft builds a syntactically valid draft payload matching the
// target count and distribution stated in the prompt. Question text is
// derived from a digest of the content so distinct inputs produce distinct
// but stable drafts.
func (s *Simulated) fabricateDraft(req Request) string {
	count := 5
	if m := targetCountRe.FindStringSubmatch(req.Content); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			count = n
		}
	}

	var sequence []string
	for _, m := range distributionRe.FindAllStringSubmatch(req.Content, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		for i := 0; i < n; i++ {
			sequence = append(sequence, m[1])
		}
	}
	if len(sequence) == 0 {
		cycle := []string{"multiple_choice", "true_false", "short_answer"}
		for i := 0; i < count; i++ {
			sequence = append(sequence, cycle[i%len(cycle)])
		}
	}
	if len(sequence) > count {
		sequence = sequence[:count]
	}
	for len(sequence) < count {
		sequence = append(sequence, "short_answer")
	}

	digest := contentDigest(req.Content)
	questions := make([]map[string]any, 0, count)
	for i, qtype := range sequence {
		questions = append(questions, fabricateQuestion(qtype, i, digest))
	}
	payload := map[string]any{"questions": questions}
	data, _ := json.Marshal(payload)
	return string(data)
}

func fabricateQuestion(qtype string, index int, digest string) map[string]any {
	q := map[string]any{
		"type":            qtype,
		"prompt":          fmt.Sprintf("Question %d (%s): which statement about the source material is correct?", index+1, digest),
		"points":          1,
		"cognitive_level": "recall",
	}
	switch qtype {
	case "multiple_choice":
		q["options"] = []string{
			fmt.Sprintf("The source states claim %d-a", index+1),
			fmt.Sprintf("The source states claim %d-b", index+1),
			fmt.Sprintf("The source states claim %d-c", index+1),
			fmt.Sprintf("The source states claim %d-d", index+1),
		}
		q["answer"] = fmt.Sprintf("The source states claim %d-a", index+1)
	case "true_false":
		q["prompt"] = fmt.Sprintf("True or false %d (%s): the source supports this statement.", index+1, digest)
		q["options"] = []string{"True", "False"}
		q["answer"] = "True"
	case "fill_in_blank":
		q["prompt"] = fmt.Sprintf("Fill in the blank %d (%s): the key term is ____.", index+1, digest)
		q["answer"] = fmt.Sprintf("term-%d", index+1)
	case "matching":
		q["prompt"] = fmt.Sprintf("Matching set %d (%s): pair each term with its definition.", index+1, digest)
		q["options"] = []string{"1) term-a", "2) term-b", "a) definition-a", "b) definition-b"}
		q["answer"] = "1-a;2-b"
	case "essay":
		q["prompt"] = fmt.Sprintf("Essay %d (%s): discuss the central argument of the source.", index+1, digest)
		q["answer"] = "A complete response addresses the central argument with supporting evidence."
		q["points"] = 5
		q["cognitive_level"] = "analysis"
	default: // short_answer
		q["prompt"] = fmt.Sprintf("Short answer %d (%s): summarize the relevant passage.", index+1, digest)
		q["answer"] = fmt.Sprintf("Summary of passage %d.", index+1)
	}
	return q
}

func contentDigest(content string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(content))
	return fmt.Sprintf("%08x", h.Sum32())
}
