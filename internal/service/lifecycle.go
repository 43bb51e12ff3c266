package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-campaigns/internal/errors"
	"github.com/unclebandit/outreach-campaigns/internal/model"
)

type DraftState string

const (
	StateSetup      DraftState = "setup"
	StateGenerating DraftState = "generating"
	StateSteps      DraftState = "steps"
	StateSaved      DraftState = "saved"
)

// OpenMode says how a persisted campaign enters the editor.
type OpenMode string

const (
	OpenEdit  OpenMode = "edit"
	OpenClone OpenMode = "clone"
)

var ErrStepNotFound = errors.New("step not found")

// Saver commits a validated draft.
type Saver interface {
	Save(ctx context.Context, draft model.CampaignDraft, owner model.Owner, opts SaveOptions) (*SavedCampaign, error)
}

// LifecycleDeps are the collaborators every draft session is built with.
type LifecycleDeps struct {
	Generator     SequenceGenerator
	Namer         NameGenerator
	Saver         Saver
	Log           *zap.Logger
	MinStageHold  time.Duration
	MaxStageHold  time.Duration
	FollowUpDelay int
}

// DraftView is a point-in-time copy of a session for display.
type DraftView struct {
	State        DraftState               `json:"state"`
	Name         string                   `json:"name"`
	Parameters   model.CampaignParameters `json:"parameters"`
	Steps        []model.EmailStep        `json:"steps"`
	ActiveStepID string                   `json:"active_step_id,omitempty"`
	EditingID    *int64                   `json:"editing_campaign_id,omitempty"`
	Progress     *Progress                `json:"progress,omitempty"`
	Error        string                   `json:"error,omitempty"`
	Violations   []string                 `json:"violations,omitempty"`
	Saved        *SavedCampaign           `json:"saved,omitempty"`
}

// Lifecycle is one authoring session: setup -> generating -> steps -> saved,
// with back transitions to setup. All methods are safe for concurrent use;
// the mutex is never held across a collaborator call.
type Lifecycle struct {
	mu sync.Mutex

	state          DraftState
	name           string
	nameOverridden bool
	params         model.CampaignParameters
	seq            Sequence
	editing        *model.Campaign

	progress   *Progress
	lastError  string
	violations []string
	saved      *SavedCampaign

	genToken  uint64
	cancelGen context.CancelFunc
	naming    bool
	saving    bool

	gen   *GenerationOrchestrator
	namer NameGenerator
	saver Saver
	log   *zap.Logger
}

func newLifecycle(deps LifecycleDeps) *Lifecycle {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Lifecycle{
		state: StateSetup,
		seq:   Sequence{FollowUpDelay: deps.FollowUpDelay},
		gen:   NewGenerationOrchestrator(deps.Generator, log, deps.MinStageHold, deps.MaxStageHold),
		namer: deps.Namer,
		saver: deps.Saver,
		log:   log,
	}
}

// NewDraft starts an empty session in setup.
func NewDraft(deps LifecycleDeps) *Lifecycle {
	return newLifecycle(deps)
}

// OpenCampaign enters the steps state directly from a persisted campaign.
// Edit keeps the campaign reference so saving updates it; clone drops it and
// marks the name as a copy so saving creates a new campaign.
func OpenCampaign(deps LifecycleDeps, c *model.Campaign, rows []model.PersistedStep, mode OpenMode) *Lifecycle {
	l := newLifecycle(deps)
	l.params = model.CampaignParameters{
		Type:           c.Type,
		TargetAudience: c.TargetAudience,
		Goal:           c.Goal,
		AIInstructions: c.AIInstructions,
		Tone:           c.Tone,
		EmailLength:    c.EmailLength,
		CompanyName:    c.CompanyName,
		SenderName:     c.SenderName,
	}
	l.name = c.Name
	l.nameOverridden = true
	if mode == OpenClone {
		l.name = c.Name + " (Copy)"
	} else {
		cp := *c
		l.editing = &cp
	}
	l.seq = NewSequence(StepsFromPersisted(rows), deps.FollowUpDelay)
	l.state = StateSteps
	return l
}

// StepsFromPersisted rebuilds editor steps in step_order, deriving ids from
// the position since rows carry no editor identifiers.
func StepsFromPersisted(rows []model.PersistedStep) []model.EmailStep {
	sorted := append([]model.PersistedStep(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StepOrder < sorted[j].StepOrder })

	steps := make([]model.EmailStep, len(sorted))
	for i, r := range sorted {
		typ := r.Type
		if typ == "" {
			typ = model.StepEmail
		}
		steps[i] = model.EmailStep{
			ID:        fmt.Sprintf("step-%d", i+1),
			Type:      typ,
			Subject:   r.Subject,
			Content:   r.Content,
			Delay:     r.Delay,
			DelayUnit: r.DelayUnit,
		}
	}
	return steps
}

func (l *Lifecycle) requireState(op string, allowed ...DraftState) error {
	for _, s := range allowed {
		if l.state == s {
			return nil
		}
	}
	return appErrors.NewStateError(op, string(l.state))
}

// State is the current lifecycle state.
func (l *Lifecycle) State() DraftState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// View snapshots the session.
func (l *Lifecycle) View() DraftView {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := DraftView{
		State:        l.state,
		Name:         l.name,
		Parameters:   l.params,
		Steps:        cloneSteps(l.seq.Steps),
		ActiveStepID: l.seq.Active,
		Error:        l.lastError,
		Violations:   append([]string(nil), l.violations...),
		Saved:        l.saved,
	}
	if l.editing != nil {
		id := l.editing.ID
		v.EditingID = &id
	}
	if l.progress != nil {
		p := *l.progress
		v.Progress = &p
	}
	return v
}

// Draft assembles the current CampaignDraft.
func (l *Lifecycle) Draft() model.CampaignDraft {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.draftLocked()
}

func (l *Lifecycle) draftLocked() model.CampaignDraft {
	d := model.CampaignDraft{
		Name:       l.name,
		Parameters: l.params,
		Steps:      cloneSteps(l.seq.Steps),
	}
	if l.editing != nil {
		cp := *l.editing
		d.EditingCampaign = &cp
	}
	return d
}

// SetParameters replaces the campaign parameters.
func (l *Lifecycle) SetParameters(p model.CampaignParameters) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireState("edit parameters", StateSetup, StateSteps); err != nil {
		return err
	}
	l.params = p
	l.lastError = ""
	return nil
}

// SetName overrides the campaign name. An empty name hands naming back to
// auto-generation.
func (l *Lifecycle) SetName(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireState("rename", StateSetup, StateSteps); err != nil {
		return err
	}
	l.name = strings.TrimSpace(name)
	l.nameOverridden = l.name != ""
	return nil
}

// AutoName derives a name from type, audience and goal. It never fails on a
// generator error; the deterministic default is used instead. A name typed
// by the user while the call was outstanding wins.
func (l *Lifecycle) AutoName(ctx context.Context) (string, error) {
	l.mu.Lock()
	if err := l.requireState("generate a name", StateSetup, StateSteps); err != nil {
		l.mu.Unlock()
		return "", err
	}
	if missing := MissingGenerationInputs(l.params); len(missing) > 0 {
		l.mu.Unlock()
		return "", appErrors.NewValidationError(missing)
	}
	if l.naming {
		l.mu.Unlock()
		return "", appErrors.ErrGenerationInProgress
	}
	l.naming = true
	p := l.params
	l.mu.Unlock()

	name := SuggestName(ctx, l.namer, l.log, p.Type, p.TargetAudience, p.Goal)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.naming = false
	if l.nameOverridden {
		return l.name, nil
	}
	l.name = name
	return name, nil
}

// StartGeneration moves setup -> generating and runs the orchestrator in the
// background. The returned channel yields the outcome once. Validation
// failures are reported synchronously and leave the draft in setup.
func (l *Lifecycle) StartGeneration(ctx context.Context) (<-chan error, error) {
	l.mu.Lock()
	if l.state == StateGenerating {
		l.mu.Unlock()
		return nil, appErrors.ErrGenerationInProgress
	}
	if err := l.requireState("generate", StateSetup); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	if missing := MissingGenerationInputs(l.params); len(missing) > 0 {
		l.violations = missing
		l.mu.Unlock()
		return nil, appErrors.NewValidationError(missing)
	}

	genCtx, cancel := context.WithCancel(ctx)
	l.genToken++
	token := l.genToken
	l.cancelGen = cancel
	l.state = StateGenerating
	l.lastError = ""
	l.violations = nil
	l.progress = &Progress{Stage: StageIdle}
	params := l.params
	// A cancelled run may still be unwinding; the draft state is the guard.
	gen := l.gen.fork()
	l.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer cancel()
		steps, err := gen.Generate(genCtx, params, func(p Progress) {
			l.mu.Lock()
			if l.genToken == token && l.state == StateGenerating {
				l.progress = &p
			}
			l.mu.Unlock()
		})
		done <- l.finishGeneration(token, steps, err)
	}()
	return done, nil
}

// Generate is StartGeneration followed by waiting for the outcome.
func (l *Lifecycle) Generate(ctx context.Context) error {
	done, err := l.StartGeneration(ctx)
	if err != nil {
		return err
	}
	return <-done
}

func (l *Lifecycle) finishGeneration(token uint64, steps []model.EmailStep, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.genToken != token || l.state != StateGenerating {
		l.log.Info("discarding stale generation result")
		if err != nil {
			return err
		}
		return context.Canceled
	}
	l.cancelGen = nil

	if err != nil {
		l.state = StateSetup
		l.progress = nil
		var ge *appErrors.GenerationError
		if errors.As(err, &ge) {
			l.lastError = ge.Message
		} else {
			l.lastError = appErrors.GenerationFailedMessage
		}
		return err
	}

	l.seq = NewSequence(steps, l.seq.FollowUpDelay)
	l.state = StateSteps
	l.progress = nil
	return nil
}

// Back returns to setup from steps or from an outstanding generation. An
// outstanding generation's result is discarded when it arrives.
func (l *Lifecycle) Back() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireState("go back", StateSteps, StateGenerating); err != nil {
		return err
	}
	if l.state == StateGenerating {
		l.genToken++
		if l.cancelGen != nil {
			l.cancelGen()
			l.cancelGen = nil
		}
	}
	l.state = StateSetup
	l.progress = nil
	l.violations = nil
	return nil
}

// Discard cancels any outstanding work and empties the draft.
func (l *Lifecycle) Discard() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.genToken++
	if l.cancelGen != nil {
		l.cancelGen()
		l.cancelGen = nil
	}
	l.seq = Sequence{FollowUpDelay: l.seq.FollowUpDelay}
	l.state = StateSetup
	l.progress = nil
}

func (l *Lifecycle) edit(op string, fn func(Sequence) Sequence) (Sequence, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireState(op, StateSteps); err != nil {
		return Sequence{}, err
	}
	l.seq = fn(l.seq)
	l.violations = nil
	return l.seq.clone(), nil
}

func (l *Lifecycle) AddStep(tpl StepTemplate) (Sequence, error) {
	return l.edit("add a step", func(s Sequence) Sequence { return s.Add(tpl) })
}

func (l *Lifecycle) UpdateStep(id string, patch StepPatch) (Sequence, error) {
	return l.edit("update a step", func(s Sequence) Sequence { return s.Update(id, patch) })
}

func (l *Lifecycle) RemoveStep(id string) (Sequence, error) {
	return l.edit("remove a step", func(s Sequence) Sequence { return s.Remove(id) })
}

func (l *Lifecycle) DuplicateStep(id string) (Sequence, error) {
	return l.edit("duplicate a step", func(s Sequence) Sequence { return s.Duplicate(id) })
}

func (l *Lifecycle) SelectStep(id string) (Sequence, error) {
	return l.edit("select a step", func(s Sequence) Sequence { return s.Select(id) })
}

// Preview renders the step with id, or the active step when id is empty,
// for persona.
func (l *Lifecycle) Preview(id string, persona Persona) (RenderedEmail, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireState("preview", StateSteps); err != nil {
		return RenderedEmail{}, err
	}
	if id == "" {
		id = l.seq.Active
	}
	st, ok := l.seq.Step(id)
	if !ok {
		return RenderedEmail{}, ErrStepNotFound
	}
	return RenderStep(st.Subject, st.Content, RenderContext{
		Persona:     persona,
		CompanyName: l.params.CompanyName,
		SenderName:  l.params.SenderName,
	}), nil
}

// Validate runs the save gate without saving.
func (l *Lifecycle) Validate(owner model.Owner) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.violations = ValidateDraft(l.draftLocked(), owner)
	return append([]string(nil), l.violations...)
}

// Save validates and commits the draft. On failure the draft stays in steps
// with everything intact so the same save can be retried.
func (l *Lifecycle) Save(ctx context.Context, owner model.Owner, opts SaveOptions) (*SavedCampaign, error) {
	l.mu.Lock()
	if err := l.requireState("save", StateSteps); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	if l.saving {
		l.mu.Unlock()
		return nil, appErrors.NewStateError("save", "saving")
	}
	draft := l.draftLocked()
	if violations := ValidateDraft(draft, owner); len(violations) > 0 {
		l.violations = violations
		l.mu.Unlock()
		return nil, appErrors.NewValidationError(violations)
	}
	l.saving = true
	l.violations = nil
	l.mu.Unlock()

	saved, err := l.saver.Save(ctx, draft, owner, opts)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.saving = false
	if err != nil {
		l.lastError = err.Error()
		var ve *appErrors.ValidationError
		if errors.As(err, &ve) {
			l.violations = ve.Violations
		}
		return nil, err
	}
	l.lastError = ""
	l.saved = saved
	l.state = StateSaved
	if saved.Campaign != nil && l.editing != nil {
		cp := *saved.Campaign
		l.editing = &cp
	}
	return saved, nil
}

var _ Saver = (*CampaignService)(nil)
