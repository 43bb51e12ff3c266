package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-campaigns/internal/handler"
	"github.com/unclebandit/outreach-campaigns/internal/model"
	"github.com/unclebandit/outreach-campaigns/internal/service"
)

// UserHeader carries the acting user's id.
const UserHeader = "X-User-ID"

// DraftController exposes the authoring lifecycle over HTTP. Each draft is a
// service.Lifecycle held in the registry under a uuid.
type DraftController struct {
	Drafts            *service.DraftRegistry
	Campaigns         *service.CampaignService
	Deps              service.LifecycleDeps
	Log               *zap.Logger
	GenerationTimeout time.Duration
	SaveTimeout       time.Duration
	validator         *validator.Validate
}

func NewDraftController(drafts *service.DraftRegistry, campaigns *service.CampaignService, deps service.LifecycleDeps, log *zap.Logger) *DraftController {
	if log == nil {
		log = zap.NewNop()
	}
	return &DraftController{
		Drafts:            drafts,
		Campaigns:         campaigns,
		Deps:              deps,
		Log:               log,
		GenerationTimeout: 2 * time.Minute,
		SaveTimeout:       30 * time.Second,
		validator:         validator.New(),
	}
}

type draftResponse struct {
	ID    string            `json:"id"`
	Draft service.DraftView `json:"draft"`
}

func (c *DraftController) session(w http.ResponseWriter, r *http.Request) (string, *service.Lifecycle, bool) {
	id := chi.URLParam(r, "draftID")
	l, ok := c.Drafts.Get(id)
	if !ok {
		handler.WriteJSON(w, http.StatusNotFound, map[string]any{"error": "draft not found"})
		return id, nil, false
	}
	return id, l, true
}

// decode reads an optional JSON body into v and validates it. An empty body
// leaves v untouched.
func (c *DraftController) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		handler.BadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	if err := c.validator.Struct(v); err != nil {
		handler.BadRequest(w, err.Error())
		return false
	}
	return true
}

type createDraftRequest struct {
	Name       string                    `json:"name"`
	Parameters *model.CampaignParameters `json:"parameters"`
}

func (c *DraftController) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if !c.decode(w, r, &req) {
		return
	}

	l := service.NewDraft(c.Deps)
	if req.Parameters != nil {
		if err := c.validator.Struct(req.Parameters); err != nil {
			handler.BadRequest(w, err.Error())
			return
		}
		if err := l.SetParameters(*req.Parameters); err != nil {
			handler.WriteError(w, c.Log, err)
			return
		}
	}
	if req.Name != "" {
		if err := l.SetName(req.Name); err != nil {
			handler.WriteError(w, c.Log, err)
			return
		}
	}

	id := c.Drafts.Add(l)
	c.Log.Info("draft created", zap.String("draft_id", id))
	handler.WriteJSON(w, http.StatusCreated, draftResponse{ID: id, Draft: l.View()})
}

// OpenCampaign loads a saved campaign into a new draft, either to edit it in
// place or as a clone that saves as a new campaign.
func (c *DraftController) OpenCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := handler.CampaignID(r)
	if !ok {
		handler.BadRequest(w, "invalid campaign id")
		return
	}
	mode := service.OpenMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = service.OpenEdit
	}
	if mode != service.OpenEdit && mode != service.OpenClone {
		handler.BadRequest(w, "mode must be edit or clone")
		return
	}

	details, err := c.Campaigns.GetCampaignDetails(r.Context(), campaignID)
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}

	l := service.OpenCampaign(c.Deps, details.Campaign, details.Steps, mode)
	id := c.Drafts.Add(l)
	c.Log.Info("draft opened from campaign",
		zap.String("draft_id", id),
		zap.Int64("campaign_id", campaignID),
		zap.String("mode", string(mode)),
	)
	handler.WriteJSON(w, http.StatusCreated, draftResponse{ID: id, Draft: l.View()})
}

func (c *DraftController) GetDraft(w http.ResponseWriter, r *http.Request) {
	id, l, ok := c.session(w, r)
	if !ok {
		return
	}
	handler.WriteJSON(w, http.StatusOK, draftResponse{ID: id, Draft: l.View()})
}

func (c *DraftController) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if !c.Drafts.Remove(chi.URLParam(r, "draftID")) {
		handler.WriteJSON(w, http.StatusNotFound, map[string]any{"error": "draft not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *DraftController) SetParameters(w http.ResponseWriter, r *http.Request) {
	id, l, ok := c.session(w, r)
	if !ok {
		return
	}
	var params model.CampaignParameters
	if !c.decode(w, r, &params) {
		return
	}
	if err := l.SetParameters(params); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, draftResponse{ID: id, Draft: l.View()})
}

type nameRequest struct {
	Name string `json:"name" validate:"max=200"`
}

func (c *DraftController) SetName(w http.ResponseWriter, r *http.Request) {
	id, l, ok := c.session(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if !c.decode(w, r, &req) {
		return
	}
	if err := l.SetName(req.Name); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, draftResponse{ID: id, Draft: l.View()})
}

func (c *DraftController) GenerateName(w http.ResponseWriter, r *http.Request) {
	_, l, ok := c.session(w, r)
	if !ok {
		return
	}
	name, err := l.AutoName(r.Context())
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"name": name})
}

// Generate starts sequence generation and returns at once; clients poll the
// draft for progress. The generation outlives the request.
func (c *DraftController) Generate(w http.ResponseWriter, r *http.Request) {
	id, l, ok := c.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), c.GenerationTimeout)
	done, err := l.StartGeneration(ctx)
	if err != nil {
		cancel()
		handler.WriteError(w, c.Log, err)
		return
	}
	go func() {
		defer cancel()
		if err := <-done; err != nil {
			c.Log.Warn("generation finished with error", zap.String("draft_id", id), zap.Error(err))
			return
		}
		c.Log.Info("generation finished", zap.String("draft_id", id))
	}()

	handler.WriteJSON(w, http.StatusAccepted, draftResponse{ID: id, Draft: l.View()})
}

func (c *DraftController) Back(w http.ResponseWriter, r *http.Request) {
	id, l, ok := c.session(w, r)
	if !ok {
		return
	}
	if err := l.Back(); err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, draftResponse{ID: id, Draft: l.View()})
}

func (c *DraftController) respondSequence(w http.ResponseWriter, status int, seq service.Sequence, err error) {
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.WriteJSON(w, status, seq)
}

func (c *DraftController) AddStep(w http.ResponseWriter, r *http.Request) {
	_, l, ok := c.session(w, r)
	if !ok {
		return
	}
	var tpl service.StepTemplate
	if !c.decode(w, r, &tpl) {
		return
	}
	if strings.TrimSpace(tpl.Subject) == "" && strings.TrimSpace(tpl.Content) == "" {
		tpl = service.DefaultStepTemplate
	}
	seq, err := l.AddStep(tpl)
	c.respondSequence(w, http.StatusCreated, seq, err)
}

func (c *DraftController) UpdateStep(w http.ResponseWriter, r *http.Request) {
	_, l, ok := c.session(w, r)
	if !ok {
		return
	}
	var patch service.StepPatch
	if !c.decode(w, r, &patch) {
		return
	}
	seq, err := l.UpdateStep(chi.URLParam(r, "stepID"), patch)
	c.respondSequence(w, http.StatusOK, seq, err)
}

func (c *DraftController) RemoveStep(w http.ResponseWriter, r *http.Request) {
	_, l, ok := c.session(w, r)
	if !ok {
		return
	}
	seq, err := l.RemoveStep(chi.URLParam(r, "stepID"))
	c.respondSequence(w, http.StatusOK, seq, err)
}

func (c *DraftController) DuplicateStep(w http.ResponseWriter, r *http.Request) {
	_, l, ok := c.session(w, r)
	if !ok {
		return
	}
	seq, err := l.DuplicateStep(chi.URLParam(r, "stepID"))
	c.respondSequence(w, http.StatusCreated, seq, err)
}

func (c *DraftController) SelectStep(w http.ResponseWriter, r *http.Request) {
	_, l, ok := c.session(w, r)
	if !ok {
		return
	}
	seq, err := l.SelectStep(chi.URLParam(r, "stepID"))
	c.respondSequence(w, http.StatusOK, seq, err)
}

type previewRequest struct {
	StepID       string           `json:"step_id"`
	PersonaIndex *int             `json:"persona_index" validate:"omitempty,min=0"`
	Persona      *service.Persona `json:"persona"`
}

// Preview renders one step for a sample persona (by index) or for an
// explicit persona.
func (c *DraftController) Preview(w http.ResponseWriter, r *http.Request) {
	_, l, ok := c.session(w, r)
	if !ok {
		return
	}
	var req previewRequest
	if !c.decode(w, r, &req) {
		return
	}

	persona := service.PreviewPersona(0)
	switch {
	case req.Persona != nil:
		persona = *req.Persona
	case req.PersonaIndex != nil:
		persona = service.PreviewPersona(*req.PersonaIndex)
	}

	rendered, err := l.Preview(req.StepID, persona)
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"persona": persona,
		"email":   rendered,
	})
}

type saveRequest struct {
	ProjectID    string   `json:"project_id"`
	CandidateIDs []string `json:"candidate_ids" validate:"omitempty,dive,required"`
	Source       string   `json:"source"`
}

// Save validates and commits the draft. The actor comes from the X-User-ID
// header and the destination project from the body.
func (c *DraftController) Save(w http.ResponseWriter, r *http.Request) {
	id, l, ok := c.session(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if !c.decode(w, r, &req) {
		return
	}

	owner := model.Owner{
		UserID:    strings.TrimSpace(r.Header.Get(UserHeader)),
		ProjectID: strings.TrimSpace(req.ProjectID),
	}
	updating := l.View().EditingID != nil

	// A dropped connection must not stop an update between its step delete
	// and insert.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), c.SaveTimeout)
	defer cancel()

	saved, err := l.Save(ctx, owner, service.SaveOptions{CandidateIDs: req.CandidateIDs, Source: req.Source})
	if err != nil {
		handler.WriteError(w, c.Log, err)
		return
	}

	status := http.StatusCreated
	if updating {
		status = http.StatusOK
	}
	c.Log.Info("draft saved", zap.String("draft_id", id), zap.Bool("update", updating))
	handler.WriteJSON(w, status, saved)
}
