// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-campaigns/internal/handler"
	"github.com/unclebandit/outreach-campaigns/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Log             *zap.Logger
	validator       *validator.Validate
}

func NewCampaignController(svc *service.CampaignService, log *zap.Logger) *CampaignController {
	if log == nil {
		log = zap.NewNop()
	}
	return &CampaignController{CampaignService: svc, Log: log, validator: validator.New()}
}

type previewCandidateRequest struct {
	Name           string `json:"name" validate:"required"`
	CurrentCompany string `json:"current_company"`
	Title          string `json:"title"`
}

// PersonalizedPreview renders every step of a saved campaign for one
// candidate with the send-time token rules.
func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := handler.CampaignID(r)
	if !ok {
		handler.BadRequest(w, "invalid campaign id")
		return
	}

	var body previewCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		handler.BadRequest(w, "invalid body")
		return
	}
	if err := c.validator.Struct(body); err != nil {
		handler.BadRequest(w, err.Error())
		return
	}

	rendered, err := c.CampaignService.PersonalizedPreview(r.Context(), id, service.Persona{
		Name:           body.Name,
		CurrentCompany: body.CurrentCompany,
		Title:          body.Title,
	})
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"campaign_id": id,
		"emails":      rendered,
	})
}
