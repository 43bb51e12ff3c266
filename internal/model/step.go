// internal/model/step.go
package model

import "time"

type DelayUnit string

const (
	DelayImmediately  DelayUnit = "immediately"
	DelayBusinessDays DelayUnit = "business days"
)

func (u DelayUnit) Valid() bool {
	return u == DelayImmediately || u == DelayBusinessDays
}

type StepType string

const StepEmail StepType = "email"

// EmailStep is one email in an in-memory sequence. Unit is deliberately not
// constrained here; the normalizer and validator own that.
type EmailStep struct {
	ID        string    `json:"id"`
	Type      StepType  `json:"type"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Delay     int       `json:"delay"`
	DelayUnit DelayUnit `json:"delay_unit"`
}

// PersistedStep is a campaign_steps row.
type PersistedStep struct {
	ID         int64     `db:"id" json:"id"`
	CampaignID int64     `db:"campaign_id" json:"campaign_id"`
	StepOrder  int       `db:"step_order" json:"step_order"`
	Type       StepType  `db:"step_type" json:"type"`
	Subject    string    `db:"subject" json:"subject"`
	Content    string    `db:"content" json:"content"`
	Delay      int       `db:"delay_amount" json:"delay"`
	DelayUnit  DelayUnit `db:"delay_unit" json:"delay_unit"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
