package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/unclebandit/outreach-campaigns/internal/model"
)

// SequenceWriter asks the model for an email sequence.
type SequenceWriter struct {
	LLM Completer
}

func (w *SequenceWriter) GenerateSequence(ctx context.Context, params model.CampaignParameters) ([]model.EmailStep, error) {
	raw, err := w.LLM.Complete(ctx, sequenceSystemPrompt, sequencePrompt(params), true)
	if err != nil {
		return nil, err
	}
	return parseSequence(raw)
}

// looseInt accepts 3, 3.0 and "3".
type looseInt int

func (n *looseInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("delay %q is not a number", s)
	}
	*n = looseInt(f)
	return nil
}

type rawStep struct {
	Subject   string   `json:"subject"`
	Content   string   `json:"content"`
	Body      string   `json:"body"`
	Delay     looseInt `json:"delay"`
	DelayUnit string   `json:"delay_unit"`
}

type rawSequence struct {
	Steps []rawStep `json:"steps"`
}

// parseSequence decodes either {"steps":[...]} or a bare array, tolerating a
// surrounding markdown fence. Delay units are passed through untouched.
func parseSequence(raw string) ([]model.EmailStep, error) {
	text := stripFence(raw)

	var seq rawSequence
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &seq.Steps); err != nil {
			return nil, fmt.Errorf("decode sequence: %w", err)
		}
	} else if err := json.Unmarshal([]byte(text), &seq); err != nil {
		return nil, fmt.Errorf("decode sequence: %w", err)
	}

	steps := make([]model.EmailStep, len(seq.Steps))
	for i, r := range seq.Steps {
		content := r.Content
		if content == "" {
			content = r.Body
		}
		steps[i] = model.EmailStep{
			Type:      model.StepEmail,
			Subject:   r.Subject,
			Content:   content,
			Delay:     int(r.Delay),
			DelayUnit: model.DelayUnit(r.DelayUnit),
		}
	}
	return steps, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
