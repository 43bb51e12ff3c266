package ai

import (
	"fmt"
	"strings"

	"github.com/unclebandit/outreach-campaigns/internal/model"
)

const sequenceSystemPrompt = `You write recruiting outreach email sequences.
Reply with one JSON object of the form
{"steps":[{"subject":"...","content":"...","delay":0,"delay_unit":"immediately"}]}.
The first step is sent immediately with delay 0. Every later step uses
"delay_unit":"business days" and a positive delay.
Personalize only with these tokens, spelled exactly:
{{First Name}}, {{Current Company}}, {{Company Name}}, {{Your Name}}.`

const nameSystemPrompt = `You name recruiting outreach campaigns.
Reply with the name only: at most six words, no quotes, no punctuation at the end.`

func sequencePrompt(p model.CampaignParameters) string {
	words := p.EmailLength.Words()

	var b strings.Builder
	fmt.Fprintf(&b, "Campaign type: %s\n", p.Type.Label())
	fmt.Fprintf(&b, "Target audience: %s\n", p.TargetAudience)
	fmt.Fprintf(&b, "Goal: %s\n", p.Goal)
	if p.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", p.Tone)
	}
	fmt.Fprintf(&b, "Each email body should be %d-%d words.\n", words.Min, words.Max)
	if p.CompanyName != "" {
		fmt.Fprintf(&b, "Hiring company: %s\n", p.CompanyName)
	}
	if p.SenderName != "" {
		fmt.Fprintf(&b, "Sender: %s\n", p.SenderName)
	}
	if len(p.ContentSources) > 0 {
		b.WriteString("\nReference material:\n")
		for _, src := range p.ContentSources {
			fmt.Fprintf(&b, "## %s\n%s\n", src.Title, src.Body)
		}
	}
	if strings.TrimSpace(p.AIInstructions) != "" {
		fmt.Fprintf(&b, "\nAdditional instructions: %s\n", p.AIInstructions)
	}
	return b.String()
}

func namePrompt(t model.CampaignType, audience, goal string) string {
	return fmt.Sprintf("Campaign type: %s\nTarget audience: %s\nGoal: %s", t.Label(), audience, goal)
}
