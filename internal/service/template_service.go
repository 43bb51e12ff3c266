// internal/service/template_service.go
package service

import (
	"strings"

	appErrors "github.com/unclebandit/outreach-campaigns/internal/errors"
	"github.com/unclebandit/outreach-campaigns/internal/model"
)

// Recognized personalization tokens.
const (
	TokenFirstName      = "{{First Name}}"
	TokenCurrentCompany = "{{Current Company}}"
	TokenCompanyName    = "{{Company Name}}"
	TokenYourName       = "{{Your Name}}"
)

// Persona is the recipient a step is rendered for: a sample persona in
// preview, a real candidate at send time.
type Persona struct {
	Name           string `json:"name"`
	CurrentCompany string `json:"current_company"`
	Title          string `json:"title,omitempty"`
}

// PreviewPersonas are the sample recipients offered in the preview pane.
var PreviewPersonas = []Persona{
	{Name: "John Smith", CurrentCompany: "Acme Corp", Title: "Senior Software Engineer"},
	{Name: "Maria Garcia", CurrentCompany: "Globex", Title: "Product Designer"},
	{Name: "Wei Chen", CurrentCompany: "Initech", Title: "Data Scientist"},
}

// RenderContext supplies values for every recognized token.
type RenderContext struct {
	Persona     Persona
	CompanyName string
	SenderName  string
}

// FirstName is the first whitespace separated word of a full name.
func FirstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// RenderTokens replaces every recognized token in text. Unrecognized
// {{...}} spellings are left exactly as written.
func RenderTokens(text string, rc RenderContext) string {
	r := strings.NewReplacer(
		TokenFirstName, FirstName(rc.Persona.Name),
		TokenCurrentCompany, rc.Persona.CurrentCompany,
		TokenCompanyName, rc.CompanyName,
		TokenYourName, rc.SenderName,
	)
	return r.Replace(text)
}

// RenderedEmail is a step after token substitution.
type RenderedEmail struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// RenderStep renders subject and content of one step with the same rule set
// used for preview and send time.
func RenderStep(subject, content string, rc RenderContext) RenderedEmail {
	return RenderedEmail{
		Subject: RenderTokens(subject, rc),
		Content: RenderTokens(content, rc),
	}
}

// PreviewPersona returns the sample persona at index, wrapping out of range
// values to the first one.
func PreviewPersona(index int) Persona {
	if index < 0 || index >= len(PreviewPersonas) {
		return PreviewPersonas[0]
	}
	return PreviewPersonas[index]
}

// RenderForCandidate renders every persisted step of c, in step order, for
// one real recipient.
func RenderForCandidate(c *model.Campaign, steps []model.PersistedStep, candidate Persona) ([]RenderedEmail, error) {
	if len(steps) == 0 {
		return nil, appErrors.ErrNoSteps
	}
	rc := RenderContext{Persona: candidate, CompanyName: c.CompanyName, SenderName: c.SenderName}
	out := make([]RenderedEmail, len(steps))
	for i, st := range StepsFromPersisted(steps) {
		out[i] = RenderStep(st.Subject, st.Content, rc)
	}
	return out, nil
}
