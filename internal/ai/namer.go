package ai

import (
	"context"
	"strings"

	"github.com/unclebandit/outreach-campaigns/internal/model"
)

const maxNameLength = 80

// CampaignNamer asks the model for a short campaign name.
type CampaignNamer struct {
	LLM Completer
}

func (n *CampaignNamer) GenerateName(ctx context.Context, t model.CampaignType, audience, goal string) (string, error) {
	raw, err := n.LLM.Complete(ctx, nameSystemPrompt, namePrompt(t, audience, goal), false)
	if err != nil {
		return "", err
	}
	return cleanName(raw), nil
}

// cleanName keeps the first line, drops wrapping quotes and caps the length.
func cleanName(raw string) string {
	name := strings.TrimSpace(raw)
	if i := strings.IndexByte(name, '\n'); i >= 0 {
		name = name[:i]
	}
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	if r := []rune(name); len(r) > maxNameLength {
		name = strings.TrimSpace(string(r[:maxNameLength]))
	}
	return name
}
