package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unclebandit/outreach-campaigns/internal/handler"
)

// NewRouter wires every HTTP route.
func NewRouter(drafts *DraftController, campaigns *CampaignController, reads *handler.CampaignHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Draft lifecycle
	r.Post("/drafts", drafts.CreateDraft)
	r.Post("/drafts/from-campaign/{id}", drafts.OpenCampaign)
	r.Route("/drafts/{draftID}", func(r chi.Router) {
		r.Get("/", drafts.GetDraft)
		r.Delete("/", drafts.DeleteDraft)
		r.Put("/parameters", drafts.SetParameters)
		r.Put("/name", drafts.SetName)
		r.Post("/name/generate", drafts.GenerateName)
		r.Post("/generate", drafts.Generate)
		r.Post("/back", drafts.Back)
		r.Post("/steps", drafts.AddStep)
		r.Patch("/steps/{stepID}", drafts.UpdateStep)
		r.Delete("/steps/{stepID}", drafts.RemoveStep)
		r.Post("/steps/{stepID}/duplicate", drafts.DuplicateStep)
		r.Put("/active/{stepID}", drafts.SelectStep)
		r.Post("/preview", drafts.Preview)
		r.Post("/save", drafts.Save)
	})

	// Campaign routes
	r.Get("/campaigns", reads.ListCampaignsHandler)
	r.Get("/campaigns/{id}", reads.GetCampaignHandler)
	r.Patch("/campaigns/{id}/status", reads.UpdateStatusHandler)
	r.Post("/campaigns/{id}/personalized-preview", campaigns.PersonalizedPreview)

	return r
}
