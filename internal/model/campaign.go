// internal/model/campaign.go
package model

import (
	"strings"
	"time"
)

type CampaignType string

const (
	CampaignNurture    CampaignType = "nurture"
	CampaignEnrichment CampaignType = "enrichment"
	CampaignKeepWarm   CampaignType = "keep-warm"
	CampaignReengage   CampaignType = "reengage"
)

var campaignTypeLabels = map[CampaignType]string{
	CampaignNurture:    "Nurture",
	CampaignEnrichment: "Enrichment",
	CampaignKeepWarm:   "Keep Warm",
	CampaignReengage:   "Re-engage",
}

func (t CampaignType) Valid() bool {
	_, ok := campaignTypeLabels[t]
	return ok
}

// Label is the human readable form used in names and prompts.
func (t CampaignType) Label() string {
	if l, ok := campaignTypeLabels[t]; ok {
		return l
	}
	return strings.TrimSpace(string(t))
}

type CampaignStatus string

const (
	StatusDraft     CampaignStatus = "draft"
	StatusActive    CampaignStatus = "active"
	StatusPaused    CampaignStatus = "paused"
	StatusCompleted CampaignStatus = "completed"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// CampaignStats are aggregate counters kept on the header row.
type CampaignStats struct {
	Candidates int `db:"candidates_count" json:"candidates"`
	Sent       int `db:"emails_sent" json:"sent"`
	Opened     int `db:"emails_opened" json:"opened"`
	Replied    int `db:"emails_replied" json:"replied"`
}

// Campaign is the persisted header row. One per project/user pair at creation
// time; steps hang off it by campaign_id.
type Campaign struct {
	ID             int64          `db:"id" json:"id"`
	UserID         string         `db:"user_id" json:"user_id"`
	ProjectID      string         `db:"project_id" json:"project_id"`
	Name           string         `db:"name" json:"name"`
	Type           CampaignType   `db:"campaign_type" json:"type"`
	TargetAudience string         `db:"target_audience" json:"target_audience"`
	Goal           string         `db:"goal" json:"goal"`
	Tone           Tone           `db:"tone" json:"tone"`
	EmailLength    EmailLength    `db:"email_length" json:"email_length"`
	AIInstructions string         `db:"ai_instructions" json:"ai_instructions,omitempty"`
	CompanyName    string         `db:"company_name" json:"company_name,omitempty"`
	SenderName     string         `db:"sender_name" json:"sender_name,omitempty"`
	Status         CampaignStatus `db:"status" json:"status"`
	Stats          CampaignStats  `json:"stats"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// CampaignPatch carries the header fields an in-place update may change.
type CampaignPatch struct {
	Name           string
	Type           CampaignType
	TargetAudience string
	Goal           string
	Tone           Tone
	EmailLength    EmailLength
	AIInstructions string
	CompanyName    string
	SenderName     string
}

// CampaignFilter narrows a campaign listing. Empty fields match everything.
type CampaignFilter struct {
	ProjectID string
	Status    CampaignStatus
}
