// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-campaigns/internal/model"
	"github.com/unclebandit/outreach-campaigns/internal/service"
)

// CampaignHandler serves reads and status changes for saved campaigns.
type CampaignHandler struct {
	Service   *service.CampaignService
	Log       *zap.Logger
	validator *validator.Validate
}

func NewCampaignHandler(svc *service.CampaignService, log *zap.Logger) *CampaignHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CampaignHandler{Service: svc, Log: log, validator: validator.New()}
}

// CampaignID parses the {id} URL parameter.
func CampaignID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// ListCampaignsHandler returns a paginated list of campaigns
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	filter := model.CampaignFilter{
		ProjectID: q.Get("project_id"),
		Status:    model.CampaignStatus(q.Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		BadRequest(w, "unknown status "+string(filter.Status))
		return
	}

	campaigns, pagination, err := h.Service.ListCampaigns(r.Context(), page, pageSize, filter)
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"data":       campaigns,
		"pagination": pagination,
	})
}

// GetCampaignHandler returns a campaign with its steps in order.
func (h *CampaignHandler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := CampaignID(r)
	if !ok {
		BadRequest(w, "invalid campaign id")
		return
	}

	details, err := h.Service.GetCampaignDetails(r.Context(), id)
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	WriteJSON(w, http.StatusOK, details)
}

type statusRequest struct {
	Status model.CampaignStatus `json:"status" validate:"required,oneof=draft active paused completed"`
}

func (h *CampaignHandler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := CampaignID(r)
	if !ok {
		BadRequest(w, "invalid campaign id")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.Service.UpdateStatus(r.Context(), id, req.Status); err != nil {
		WriteError(w, h.Log, err)
		return
	}
	h.Log.Info("campaign status changed", zap.Int64("campaign_id", id), zap.String("status", string(req.Status)))
	WriteJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}
