package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-campaigns/internal/errors"
	"github.com/unclebandit/outreach-campaigns/internal/metrics"
	"github.com/unclebandit/outreach-campaigns/internal/model"
)

// SequenceGenerator produces an ordered list of raw steps from parameters.
// Delay units in the output are untrusted.
type SequenceGenerator interface {
	GenerateSequence(ctx context.Context, params model.CampaignParameters) ([]model.EmailStep, error)
}

// NameGenerator suggests a campaign name.
type NameGenerator interface {
	GenerateName(ctx context.Context, t model.CampaignType, audience, goal string) (string, error)
}

type Stage string

const (
	StageIdle       Stage = "idle"
	StagePreparing  Stage = "preparing"
	StageAnalyzing  Stage = "analyzing"
	StageGenerating Stage = "generating"
	StageFinalizing Stage = "finalizing"
	StageComplete   Stage = "complete"
	StageFailed     Stage = "failed"
)

// Progress is what the blocking overlay shows.
type Progress struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

type stageStep struct {
	stage   Stage
	percent int
	message string
}

// progressPlan is walked in order, one hold interval per entry. It is purely
// cosmetic and independent of when the generator returns.
var progressPlan = []stageStep{
	{StagePreparing, 10, "Preparing campaign parameters"},
	{StageAnalyzing, 30, "Analyzing audience and goals"},
	{StageGenerating, 60, "Writing your email sequence"},
	{StageFinalizing, 90, "Finalizing steps"},
}

var ErrMalformedSequence = errors.New("generator returned a malformed sequence")

// GenerationOrchestrator runs one sequence generation at a time, reporting
// paced progress while the generator call runs concurrently.
type GenerationOrchestrator struct {
	Generator SequenceGenerator
	Logger    *zap.Logger
	MinHold   time.Duration
	MaxHold   time.Duration

	after   func(time.Duration) <-chan time.Time
	running atomic.Bool
}

func NewGenerationOrchestrator(gen SequenceGenerator, logger *zap.Logger, minHold, maxHold time.Duration) *GenerationOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxHold < minHold {
		maxHold = minHold
	}
	return &GenerationOrchestrator{
		Generator: gen,
		Logger:    logger,
		MinHold:   minHold,
		MaxHold:   maxHold,
		after:     time.After,
	}
}

// fork returns an orchestrator with the same settings and its own
// in-progress flag.
func (o *GenerationOrchestrator) fork() *GenerationOrchestrator {
	return &GenerationOrchestrator{
		Generator: o.Generator,
		Logger:    o.Logger,
		MinHold:   o.MinHold,
		MaxHold:   o.MaxHold,
		after:     o.after,
	}
}

// Running reports whether a generation is outstanding.
func (o *GenerationOrchestrator) Running() bool { return o.running.Load() }

func (o *GenerationOrchestrator) hold() time.Duration {
	span := o.MaxHold - o.MinHold
	if span <= 0 {
		return o.MinHold
	}
	return o.MinHold + rand.N(span+1)
}

type generationResult struct {
	steps []model.EmailStep
	err   error
}

// Generate drives the progress stages and returns normalized steps. Any
// generator error or malformed output yields a GenerationError and no steps.
// Cancelling ctx stops progress reporting and returns ctx.Err().
func (o *GenerationOrchestrator) Generate(ctx context.Context, params model.CampaignParameters, report func(Progress)) ([]model.EmailStep, error) {
	if missing := MissingGenerationInputs(params); len(missing) > 0 {
		return nil, appErrors.NewValidationError(missing)
	}
	if !o.running.CompareAndSwap(false, true) {
		return nil, appErrors.ErrGenerationInProgress
	}
	defer o.running.Store(false)

	if report == nil {
		report = func(Progress) {}
	}
	log := o.Logger.With(zap.String("campaign_type", string(params.Type)))

	done := make(chan generationResult, 1)
	go func() {
		steps, err := o.Generator.GenerateSequence(ctx, params)
		done <- generationResult{steps: steps, err: err}
	}()

	var res *generationResult
	for i, st := range progressPlan {
		if i > 0 && res == nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case r := <-done:
				res = &r
			case <-o.after(o.hold()):
			}
		}
		if res != nil && res.err != nil {
			break
		}
		report(Progress{Stage: st.stage, Percent: st.percent, Message: st.message})
	}
	if res == nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-done:
			res = &r
		}
	}

	steps := res.steps
	err := res.err
	if err == nil {
		steps, err = CoerceGeneratedSteps(steps)
	}
	if err != nil {
		log.Error("sequence generation failed", zap.Error(err))
		metrics.Generations.WithLabelValues("failure").Inc()
		report(Progress{Stage: StageFailed, Percent: 0, Message: appErrors.GenerationFailedMessage})
		return nil, appErrors.NewGenerationError(err)
	}

	log.Info("sequence generated", zap.Int("steps", len(steps)))
	metrics.Generations.WithLabelValues("success").Inc()
	report(Progress{Stage: StageComplete, Percent: 100, Message: "Sequence ready"})
	return steps, nil
}

// CoerceGeneratedSteps turns raw generator output into editor-ready steps:
// ids are assigned by position, empty subjects or bodies reject the whole
// output, and units go through the normalizer.
func CoerceGeneratedSteps(raw []model.EmailStep) ([]model.EmailStep, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrMalformedSequence)
	}
	out := make([]model.EmailStep, len(raw))
	for i, st := range raw {
		st.Subject = strings.TrimSpace(st.Subject)
		st.Content = strings.TrimSpace(st.Content)
		if st.Subject == "" || st.Content == "" {
			return nil, fmt.Errorf("%w: step %d is missing subject or content", ErrMalformedSequence, i+1)
		}
		st.ID = fmt.Sprintf("step-%d", i+1)
		st.Type = model.StepEmail
		if st.Delay < 0 {
			st.Delay = 0
		}
		out[i] = st
	}
	return NormalizeSteps(out), nil
}

// DefaultCampaignName is the deterministic fallback name.
func DefaultCampaignName(t model.CampaignType) string {
	label := t.Label()
	if label == "" {
		return "Campaign"
	}
	return label + " Campaign"
}

// SuggestName asks namer for a campaign name and falls back to
// DefaultCampaignName on any failure.
func SuggestName(ctx context.Context, namer NameGenerator, logger *zap.Logger, t model.CampaignType, audience, goal string) string {
	if namer == nil {
		return DefaultCampaignName(t)
	}
	name, err := namer.GenerateName(ctx, t, audience, goal)
	name = strings.TrimSpace(name)
	if err != nil || name == "" {
		if logger != nil {
			logger.Warn("campaign name generation failed, using default", zap.Error(err))
		}
		metrics.NameGenerations.WithLabelValues("fallback").Inc()
		return DefaultCampaignName(t)
	}
	metrics.NameGenerations.WithLabelValues("success").Inc()
	return name
}
