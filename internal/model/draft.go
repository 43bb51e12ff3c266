// internal/model/draft.go
package model

// CampaignDraft is the authoring session's in-memory campaign. EditingCampaign
// is set only when the draft was opened to edit an existing row.
type CampaignDraft struct {
	Name            string             `json:"name"`
	Parameters      CampaignParameters `json:"parameters"`
	Steps           []EmailStep        `json:"steps"`
	EditingCampaign *Campaign          `json:"editing_campaign,omitempty"`
}

// Owner is the explicit actor/destination pair a save is performed for.
type Owner struct {
	UserID    string
	ProjectID string
}

// CandidateLink attaches recipients to a campaign.
type CandidateLink struct {
	CampaignID   int64    `json:"campaign_id"`
	CandidateIDs []string `json:"candidate_ids"`
	Source       string   `json:"source"`
}
