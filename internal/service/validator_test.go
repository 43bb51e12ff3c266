package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unclebandit/outreach-campaigns/internal/model"
)

func TestValidateDraftAcceptsMinimalDraft(t *testing.T) {
	assert.Empty(t, ValidateDraft(oneStepDraft(), validOwner()))
}

func TestValidateDraftCollectsEverythingInOrder(t *testing.T) {
	draft := model.CampaignDraft{
		Steps: []model.EmailStep{
			{Subject: "ok", Content: "ok", DelayUnit: model.DelayImmediately},
			{Subject: " ", Content: "", DelayUnit: "weeks", Delay: -1},
		},
	}

	got := ValidateDraft(draft, model.Owner{})
	assert.Equal(t, []string{
		"Campaign name is required",
		"Campaign type is required",
		"Target audience is required",
		"Campaign goal is required",
		"Step 2: subject is required",
		"Step 2: content is required",
		`Step 2: delay unit must be "immediately" or "business days"`,
		"Step 2: delay cannot be negative",
		"You must be signed in to save a campaign",
		"A project must be selected",
	}, got)
}

func TestValidateDraftEmptyStepsAlwaysFails(t *testing.T) {
	draft := oneStepDraft()
	draft.Steps = nil

	got := ValidateDraft(draft, validOwner())
	assert.Equal(t, []string{"At least one email step is required"}, got)
}

func TestValidateDraftUnsupportedType(t *testing.T) {
	draft := oneStepDraft()
	draft.Parameters.Type = "cold-call"

	got := ValidateDraft(draft, validOwner())
	assert.Equal(t, []string{`Campaign type "cold-call" is not supported`}, got)
}

func TestMissingGenerationInputs(t *testing.T) {
	assert.Empty(t, MissingGenerationInputs(validParams()))
	assert.Equal(t, []string{"Target audience is required", "Campaign goal is required"},
		MissingGenerationInputs(model.CampaignParameters{Type: model.CampaignEnrichment, Goal: "  "}))
}
