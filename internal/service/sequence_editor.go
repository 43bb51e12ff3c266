package service

import (
	"github.com/google/uuid"

	"github.com/unclebandit/outreach-campaigns/internal/model"
)

// newStepID mints identifiers for added and duplicated steps.
var newStepID = func() string {
	return "step-" + uuid.NewString()
}

// StepTemplate seeds a manually added step.
type StepTemplate struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

var DefaultStepTemplate = StepTemplate{
	Subject: "Quick follow-up",
	Content: "Hi {{First Name}},\n\nI wanted to follow up on my previous note.\n\nBest,\n{{Your Name}}",
}

// StepPatch changes the fields that are set. The editor does not check the
// values; the validator does.
type StepPatch struct {
	Type      *model.StepType  `json:"type,omitempty"`
	Subject   *string          `json:"subject,omitempty"`
	Content   *string          `json:"content,omitempty"`
	Delay     *int             `json:"delay,omitempty"`
	DelayUnit *model.DelayUnit `json:"delay_unit,omitempty"`
}

// Sequence is an ordered list of steps plus the active selection. Every
// operation returns a new Sequence and never aliases the receiver's slice.
// Operations on unknown ids are no-ops.
type Sequence struct {
	Steps         []model.EmailStep `json:"steps"`
	Active        string            `json:"active_step_id,omitempty"`
	FollowUpDelay int               `json:"-"`
}

// NewSequence wraps existing steps, selecting the first one.
func NewSequence(steps []model.EmailStep, followUpDelay int) Sequence {
	s := Sequence{Steps: cloneSteps(steps), FollowUpDelay: followUpDelay}
	if len(s.Steps) > 0 {
		s.Active = s.Steps[0].ID
	}
	return s
}

func cloneSteps(steps []model.EmailStep) []model.EmailStep {
	out := make([]model.EmailStep, len(steps))
	copy(out, steps)
	return out
}

func (s Sequence) clone() Sequence {
	s.Steps = cloneSteps(s.Steps)
	return s
}

func (s Sequence) indexOf(id string) int {
	for i, st := range s.Steps {
		if st.ID == id {
			return i
		}
	}
	return -1
}

// Len is the number of steps.
func (s Sequence) Len() int { return len(s.Steps) }

// Step returns the step with id.
func (s Sequence) Step(id string) (model.EmailStep, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.Steps[i], true
	}
	return model.EmailStep{}, false
}

// ActiveStep returns the selected step, if any.
func (s Sequence) ActiveStep() (model.EmailStep, bool) {
	return s.Step(s.Active)
}

// Add appends a step built from tpl. The first step of an empty sequence is
// immediate; every other added step gets the follow-up default.
func (s Sequence) Add(tpl StepTemplate) Sequence {
	out := s.clone()
	st := model.EmailStep{
		ID:      newStepID(),
		Type:    model.StepEmail,
		Subject: tpl.Subject,
		Content: tpl.Content,
	}
	if len(out.Steps) == 0 {
		firstStepDefaults(&st)
	} else {
		followUpDefaults(&st, out.FollowUpDelay)
	}
	out.Steps = append(out.Steps, st)
	out.Active = st.ID
	return out
}

// Update applies patch to the step with id.
func (s Sequence) Update(id string, patch StepPatch) Sequence {
	i := s.indexOf(id)
	if i < 0 {
		return s.clone()
	}
	out := s.clone()
	st := &out.Steps[i]
	if patch.Type != nil {
		st.Type = *patch.Type
	}
	if patch.Subject != nil {
		st.Subject = *patch.Subject
	}
	if patch.Content != nil {
		st.Content = *patch.Content
	}
	if patch.Delay != nil {
		st.Delay = *patch.Delay
	}
	if patch.DelayUnit != nil {
		st.DelayUnit = *patch.DelayUnit
	}
	return out
}

// Remove deletes the step with id. The selection moves to the previous step,
// else to the new first step, else clears.
func (s Sequence) Remove(id string) Sequence {
	i := s.indexOf(id)
	if i < 0 {
		return s.clone()
	}
	out := s.clone()
	out.Steps = append(out.Steps[:i], out.Steps[i+1:]...)
	switch {
	case len(out.Steps) == 0:
		out.Active = ""
	case i > 0:
		out.Active = out.Steps[i-1].ID
	default:
		out.Active = out.Steps[0].ID
	}
	return out
}

// Duplicate inserts a copy right after the step with id. The copy always gets
// the follow-up delay, so duplicating never yields a second immediate step.
func (s Sequence) Duplicate(id string) Sequence {
	i := s.indexOf(id)
	if i < 0 {
		return s.clone()
	}
	out := s.clone()
	cp := out.Steps[i]
	cp.ID = newStepID()
	cp.Subject = cp.Subject + " (Copy)"
	followUpDefaults(&cp, out.FollowUpDelay)

	steps := make([]model.EmailStep, 0, len(out.Steps)+1)
	steps = append(steps, out.Steps[:i+1]...)
	steps = append(steps, cp)
	steps = append(steps, out.Steps[i+1:]...)
	out.Steps = steps
	out.Active = cp.ID
	return out
}

// Select makes id the active step.
func (s Sequence) Select(id string) Sequence {
	out := s.clone()
	if out.indexOf(id) >= 0 {
		out.Active = id
	}
	return out
}
