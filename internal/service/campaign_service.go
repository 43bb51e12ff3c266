// internal/service/campaign_service.go
package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-campaigns/internal/errors"
	"github.com/unclebandit/outreach-campaigns/internal/metrics"
	"github.com/unclebandit/outreach-campaigns/internal/model"
	"github.com/unclebandit/outreach-campaigns/internal/repository"
)

// CampaignService commits drafts as a header row plus ordered step rows. The
// row store gives no transactions, so ordering and compensation live here.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	StepRepo     repository.StepRepositoryInterface
	Linker       CandidateLinker
	Log          *zap.Logger
}

func NewCampaignService(campaigns repository.CampaignRepositoryInterface, steps repository.StepRepositoryInterface, linker CandidateLinker, log *zap.Logger) *CampaignService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CampaignService{CampaignRepo: campaigns, StepRepo: steps, Linker: linker, Log: log}
}

// ProjectMismatchViolation is the violation reported when an update names a
// project other than the campaign's own.
const ProjectMismatchViolation = "Campaign belongs to a different project"

// SaveOptions are extras applied on create.
type SaveOptions struct {
	CandidateIDs []string
	Source       string
}

// SavedCampaign is the committed header and its steps in order.
type SavedCampaign struct {
	Campaign *model.Campaign       `json:"campaign"`
	Steps    []model.PersistedStep `json:"steps"`
}

// CampaignDetails is a campaign as read back for display.
type CampaignDetails struct {
	*model.Campaign
	Steps []model.PersistedStep `json:"steps"`
}

// ToPersistedSteps assigns dense 1-based step_order in sequence order.
func ToPersistedSteps(steps []model.EmailStep) []model.PersistedStep {
	out := make([]model.PersistedStep, len(steps))
	for i, st := range steps {
		typ := st.Type
		if typ == "" {
			typ = model.StepEmail
		}
		out[i] = model.PersistedStep{
			StepOrder: i + 1,
			Type:      typ,
			Subject:   strings.TrimSpace(st.Subject),
			Content:   st.Content,
			Delay:     st.Delay,
			DelayUnit: st.DelayUnit,
		}
	}
	return out
}

func patchFromDraft(d model.CampaignDraft) model.CampaignPatch {
	p := d.Parameters
	return model.CampaignPatch{
		Name:           strings.TrimSpace(d.Name),
		Type:           p.Type,
		TargetAudience: strings.TrimSpace(p.TargetAudience),
		Goal:           strings.TrimSpace(p.Goal),
		Tone:           p.Tone,
		EmailLength:    p.EmailLength,
		AIInstructions: p.AIInstructions,
		CompanyName:    p.CompanyName,
		SenderName:     p.SenderName,
	}
}

// prepare validates, then runs the save-time normalization pass. Nothing
// reaches the store unless the validator returned no violations.
func prepare(draft model.CampaignDraft, owner model.Owner) (model.CampaignDraft, error) {
	if violations := ValidateDraft(draft, owner); len(violations) > 0 {
		return draft, appErrors.NewValidationError(violations)
	}
	draft.Steps = NormalizeSteps(draft.Steps)
	return draft, nil
}

// Save routes to Update when the draft edits an existing campaign and to
// Create otherwise.
func (s *CampaignService) Save(ctx context.Context, draft model.CampaignDraft, owner model.Owner, opts SaveOptions) (*SavedCampaign, error) {
	if draft.EditingCampaign != nil && draft.EditingCampaign.ID != 0 {
		return s.Update(ctx, draft.EditingCampaign.ID, draft, owner, true)
	}
	return s.Create(ctx, draft, owner, opts)
}

// Create inserts the header and then every step. If the steps cannot be
// written the header is deleted again and the step error is returned.
// Candidate linking afterwards is best effort.
func (s *CampaignService) Create(ctx context.Context, draft model.CampaignDraft, owner model.Owner, opts SaveOptions) (*SavedCampaign, error) {
	draft, err := prepare(draft, owner)
	if err != nil {
		return nil, err
	}

	p := patchFromDraft(draft)
	c := &model.Campaign{
		UserID:         owner.UserID,
		ProjectID:      owner.ProjectID,
		Name:           p.Name,
		Type:           p.Type,
		TargetAudience: p.TargetAudience,
		Goal:           p.Goal,
		Tone:           p.Tone,
		EmailLength:    p.EmailLength,
		AIInstructions: p.AIInstructions,
		CompanyName:    p.CompanyName,
		SenderName:     p.SenderName,
		Status:         model.StatusDraft,
	}
	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		metrics.Saves.WithLabelValues("create", "failure").Inc()
		s.Log.Error("failed to insert campaign header", zap.Error(err))
		return nil, &appErrors.PersistenceError{Stage: appErrors.StageHeader, Err: err}
	}
	log := s.Log.With(zap.Int64("campaign_id", c.ID))

	steps, err := s.StepRepo.InsertSteps(ctx, c.ID, ToPersistedSteps(draft.Steps))
	if err != nil {
		log.Error("failed to insert campaign steps, removing header", zap.Error(err))
		s.compensateHeader(ctx, log, c.ID)
		metrics.Saves.WithLabelValues("create", "failure").Inc()
		return nil, &appErrors.PersistenceError{Stage: appErrors.StageInsertSteps, CampaignID: c.ID, Err: err}
	}

	if len(opts.CandidateIDs) > 0 {
		s.linkCandidates(ctx, log, model.CandidateLink{CampaignID: c.ID, CandidateIDs: opts.CandidateIDs, Source: opts.Source})
	}

	metrics.Saves.WithLabelValues("create", "success").Inc()
	log.Info("campaign created", zap.Int("steps", len(steps)))
	return &SavedCampaign{Campaign: c, Steps: steps}, nil
}

func (s *CampaignService) compensateHeader(ctx context.Context, log *zap.Logger, id int64) {
	// The caller's ctx may already be cancelled; the delete must still run.
	if err := s.CampaignRepo.Delete(context.WithoutCancel(ctx), id); err != nil {
		metrics.Compensations.WithLabelValues("failure").Inc()
		log.Error("compensating header delete failed, campaign row orphaned", zap.Error(err))
		return
	}
	metrics.Compensations.WithLabelValues("success").Inc()
}

func (s *CampaignService) linkCandidates(ctx context.Context, log *zap.Logger, link model.CandidateLink) {
	if s.Linker == nil {
		log.Warn("no candidate linker configured, skipping", zap.Int("candidates", len(link.CandidateIDs)))
		return
	}
	if err := s.Linker.LinkCandidates(ctx, link); err != nil {
		metrics.CandidateLinkFailures.Inc()
		log.Warn("candidate linking failed", zap.Int("candidates", len(link.CandidateIDs)), zap.Error(err))
	}
}

// Update rewrites an existing campaign in place. With replaceSteps the old
// step rows are deleted first; a failed delete aborts before anything else
// changes. A failure after the delete leaves the campaign with zero steps and
// is reported with StepsLost set; the caller still holds the draft and may
// retry the same save.
func (s *CampaignService) Update(ctx context.Context, id int64, draft model.CampaignDraft, owner model.Owner, replaceSteps bool) (*SavedCampaign, error) {
	draft, err := prepare(draft, owner)
	if err != nil {
		return nil, err
	}
	log := s.Log.With(zap.Int64("campaign_id", id))

	existing, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// A campaign stays with the project that created it.
	if existing.ProjectID != owner.ProjectID {
		log.Warn("update rejected, project mismatch",
			zap.String("campaign_project", existing.ProjectID),
			zap.String("requested_project", owner.ProjectID),
		)
		return nil, appErrors.NewValidationError([]string{ProjectMismatchViolation})
	}

	fail := func(stage appErrors.PersistStage, lost bool, err error) (*SavedCampaign, error) {
		metrics.Saves.WithLabelValues("update", "failure").Inc()
		log.Error("campaign update failed", zap.String("stage", string(stage)), zap.Bool("steps_lost", lost), zap.Error(err))
		return nil, &appErrors.PersistenceError{Stage: stage, CampaignID: id, StepsLost: lost, Err: err}
	}

	if replaceSteps {
		if err := s.StepRepo.DeleteSteps(ctx, id); err != nil {
			return fail(appErrors.StageDeleteSteps, false, err)
		}
	}

	if err := s.CampaignRepo.Update(ctx, id, patchFromDraft(draft)); err != nil {
		return fail(appErrors.StageHeaderUpdate, replaceSteps, err)
	}

	var steps []model.PersistedStep
	if replaceSteps {
		steps, err = s.StepRepo.InsertSteps(ctx, id, ToPersistedSteps(draft.Steps))
		if err != nil {
			return fail(appErrors.StageInsertSteps, true, err)
		}
	} else if steps, err = s.StepRepo.ListSteps(ctx, id); err != nil {
		log.Warn("failed to reload steps after header update", zap.Error(err))
	}

	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		log.Warn("failed to reload campaign after update", zap.Error(err))
		c = nil
	}
	metrics.Saves.WithLabelValues("update", "success").Inc()
	log.Info("campaign updated", zap.Bool("steps_replaced", replaceSteps), zap.Int("steps", len(steps)))
	return &SavedCampaign{Campaign: c, Steps: steps}, nil
}

// GetCampaignDetails fetches a campaign with its steps in step_order.
func (s *CampaignService) GetCampaignDetails(ctx context.Context, id int64) (*CampaignDetails, error) {
	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	steps, err := s.StepRepo.ListSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{Campaign: c, Steps: steps}, nil
}

// PersonalizedPreview renders a stored campaign for candidate.
func (s *CampaignService) PersonalizedPreview(ctx context.Context, id int64, candidate Persona) ([]RenderedEmail, error) {
	d, err := s.GetCampaignDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	return RenderForCandidate(d.Campaign, d.Steps, candidate)
}

// UpdateStatus moves a campaign between draft/active/paused/completed.
func (s *CampaignService) UpdateStatus(ctx context.Context, id int64, status model.CampaignStatus) error {
	if !status.Valid() {
		return appErrors.NewValidationError([]string{"Unknown campaign status " + string(status)})
	}
	return s.CampaignRepo.UpdateStatus(ctx, id, status)
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, filter model.CampaignFilter) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, offset, pageSize, filter)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return campaigns, pagination, nil
}

// IsNotFound reports whether err is a missing campaign.
func IsNotFound(err error) bool {
	var nf *appErrors.ErrCampaignNotFound
	return errors.As(err, &nf)
}
