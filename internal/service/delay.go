package service

import (
	"strings"

	"github.com/unclebandit/outreach-campaigns/internal/model"
)

// DefaultFollowUpDelay is the business-day gap given to every step after the first.
const DefaultFollowUpDelay = 3

// NormalizeDelayUnit coerces a raw unit into the two-value domain. Valid
// values pass through; anything else resolves by position, so only the first
// step may fire immediately.
func NormalizeDelayUnit(raw string, index int) model.DelayUnit {
	u := model.DelayUnit(strings.TrimSpace(raw))
	if u.Valid() {
		return u
	}
	if index == 0 {
		return model.DelayImmediately
	}
	return model.DelayBusinessDays
}

// NormalizeSteps returns a copy of steps with every unit coerced. It is
// idempotent.
func NormalizeSteps(steps []model.EmailStep) []model.EmailStep {
	out := make([]model.EmailStep, len(steps))
	for i, s := range steps {
		s.DelayUnit = NormalizeDelayUnit(string(s.DelayUnit), i)
		out[i] = s
	}
	return out
}

func firstStepDefaults(s *model.EmailStep) {
	s.Delay = 0
	s.DelayUnit = model.DelayImmediately
}

func followUpDefaults(s *model.EmailStep, delay int) {
	if delay <= 0 {
		delay = DefaultFollowUpDelay
	}
	s.Delay = delay
	s.DelayUnit = model.DelayBusinessDays
}
