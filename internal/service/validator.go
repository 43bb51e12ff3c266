package service

import (
	"fmt"
	"strings"

	"github.com/unclebandit/outreach-campaigns/internal/model"
)

// ValidateDraft lists every reason draft cannot be saved for owner. An empty
// result means the draft may be saved. Messages come out in a fixed order.
func ValidateDraft(draft model.CampaignDraft, owner model.Owner) []string {
	var violations []string
	p := draft.Parameters

	if strings.TrimSpace(draft.Name) == "" {
		violations = append(violations, "Campaign name is required")
	}
	if strings.TrimSpace(string(p.Type)) == "" {
		violations = append(violations, "Campaign type is required")
	} else if !p.Type.Valid() {
		violations = append(violations, fmt.Sprintf("Campaign type %q is not supported", p.Type))
	}
	if strings.TrimSpace(p.TargetAudience) == "" {
		violations = append(violations, "Target audience is required")
	}
	if strings.TrimSpace(p.Goal) == "" {
		violations = append(violations, "Campaign goal is required")
	}
	if len(draft.Steps) == 0 {
		violations = append(violations, "At least one email step is required")
	}
	for i, st := range draft.Steps {
		n := i + 1
		if strings.TrimSpace(st.Subject) == "" {
			violations = append(violations, fmt.Sprintf("Step %d: subject is required", n))
		}
		if strings.TrimSpace(st.Content) == "" {
			violations = append(violations, fmt.Sprintf("Step %d: content is required", n))
		}
		if !st.DelayUnit.Valid() {
			violations = append(violations, fmt.Sprintf("Step %d: delay unit must be %q or %q", n, model.DelayImmediately, model.DelayBusinessDays))
		}
		if st.Delay < 0 {
			violations = append(violations, fmt.Sprintf("Step %d: delay cannot be negative", n))
		}
	}
	if strings.TrimSpace(owner.UserID) == "" {
		violations = append(violations, "You must be signed in to save a campaign")
	}
	if strings.TrimSpace(owner.ProjectID) == "" {
		violations = append(violations, "A project must be selected")
	}
	return violations
}

// MissingGenerationInputs lists the parameters required before generation.
func MissingGenerationInputs(p model.CampaignParameters) []string {
	var missing []string
	if strings.TrimSpace(string(p.Type)) == "" {
		missing = append(missing, "Campaign type is required")
	}
	if strings.TrimSpace(p.TargetAudience) == "" {
		missing = append(missing, "Target audience is required")
	}
	if strings.TrimSpace(p.Goal) == "" {
		missing = append(missing, "Campaign goal is required")
	}
	return missing
}
