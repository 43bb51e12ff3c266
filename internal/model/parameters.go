// internal/model/parameters.go
package model

type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneCasual       Tone = "casual"
	ToneEnthusiastic Tone = "enthusiastic"
	ToneFormal       Tone = "formal"
)

func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneFriendly, ToneCasual, ToneEnthusiastic, ToneFormal:
		return true
	}
	return false
}

type EmailLength string

const (
	LengthShort   EmailLength = "short"
	LengthConcise EmailLength = "concise"
	LengthMedium  EmailLength = "medium"
	LengthLong    EmailLength = "long"
)

// WordRange is the target body length for a length class.
type WordRange struct {
	Min int
	Max int
}

var lengthRanges = map[EmailLength]WordRange{
	LengthShort:   {Min: 50, Max: 100},
	LengthConcise: {Min: 100, Max: 150},
	LengthMedium:  {Min: 150, Max: 250},
	LengthLong:    {Min: 250, Max: 400},
}

func (l EmailLength) Valid() bool {
	_, ok := lengthRanges[l]
	return ok
}

// Words returns the target range, falling back to concise for unknown classes.
func (l EmailLength) Words() WordRange {
	if r, ok := lengthRanges[l]; ok {
		return r
	}
	return lengthRanges[LengthConcise]
}

// ContentSource is an excerpt the model may draw on (job post, company blurb).
type ContentSource struct {
	Title string `json:"title" validate:"required"`
	Body  string `json:"body" validate:"required"`
}

// CampaignParameters are the inputs to sequence generation.
type CampaignParameters struct {
	Type           CampaignType    `json:"type"`
	TargetAudience string          `json:"target_audience"`
	Goal           string          `json:"goal"`
	ContentSources []ContentSource `json:"content_sources,omitempty" validate:"omitempty,dive"`
	AIInstructions string          `json:"ai_instructions,omitempty"`
	Tone           Tone            `json:"tone" validate:"omitempty,oneof=professional friendly casual enthusiastic formal"`
	EmailLength    EmailLength     `json:"email_length" validate:"omitempty,oneof=short concise medium long"`
	CompanyName    string          `json:"company_name,omitempty"`
	SenderName     string          `json:"sender_name,omitempty"`
}
