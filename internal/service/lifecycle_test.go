package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/outreach-campaigns/internal/errors"
	"github.com/unclebandit/outreach-campaigns/internal/model"
)

type lifecycleFixture struct {
	*serviceFixture
	gen   *MockGenerator
	namer *MockNamer
	deps  LifecycleDeps
}

func newLifecycleFixture() *lifecycleFixture {
	f := &lifecycleFixture{
		serviceFixture: newServiceFixture(),
		gen:            &MockGenerator{Steps: threeSteps()},
		namer:          &MockNamer{Name: "Go Engineers Nurture"},
	}
	f.deps = LifecycleDeps{
		Generator:     f.gen,
		Namer:         f.namer,
		Saver:         f.svc,
		FollowUpDelay: DefaultFollowUpDelay,
	}
	return f
}

func (f *lifecycleFixture) draft() *Lifecycle {
	l := NewDraft(f.deps)
	l.gen.after = instant
	return l
}

// inSteps returns a draft that has generated the standard three steps.
func (f *lifecycleFixture) inSteps(t *testing.T) *Lifecycle {
	t.Helper()
	l := f.draft()
	require.NoError(t, l.SetParameters(validParams()))
	require.NoError(t, l.SetName("Test"))
	require.NoError(t, l.Generate(context.Background()))
	require.Equal(t, StateSteps, l.State())
	return l
}

func TestLifecycleGenerationFailureStaysInSetup(t *testing.T) {
	f := newLifecycleFixture()
	f.gen.Steps = nil
	f.gen.Err = errors.New("model unavailable")

	l := f.draft()
	require.NoError(t, l.SetParameters(model.CampaignParameters{
		Type: model.CampaignNurture, TargetAudience: "new grads", Goal: "keep warm",
	}))

	err := l.Generate(context.Background())
	var ge *appErrors.GenerationError
	require.ErrorAs(t, err, &ge)

	v := l.View()
	assert.Equal(t, StateSetup, v.State)
	assert.Empty(t, v.Steps)
	assert.Equal(t, appErrors.GenerationFailedMessage, v.Error)
	assert.Nil(t, v.Progress)
}

func TestLifecycleGenerationSuccess(t *testing.T) {
	f := newLifecycleFixture()
	l := f.inSteps(t)

	v := l.View()
	assert.Len(t, v.Steps, 3)
	assert.Equal(t, "step-1", v.ActiveStepID)
	assert.Empty(t, v.Error)
}

func TestLifecycleGenerationNeedsInputs(t *testing.T) {
	f := newLifecycleFixture()
	l := f.draft()

	_, err := l.StartGeneration(context.Background())
	var ve *appErrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Violations, 3)
	assert.Equal(t, StateSetup, l.State())
	assert.Equal(t, 0, f.gen.Calls())
}

func TestLifecycleGuardsDuplicateGeneration(t *testing.T) {
	f := newLifecycleFixture()
	f.gen.Release = make(chan struct{})
	l := f.draft()
	require.NoError(t, l.SetParameters(validParams()))

	done, err := l.StartGeneration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateGenerating, l.State())

	_, err = l.StartGeneration(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrGenerationInProgress)

	close(f.gen.Release)
	require.NoError(t, <-done)
	assert.Equal(t, StateSteps, l.State())
}

func TestLifecycleBackDiscardsOutstandingGeneration(t *testing.T) {
	f := newLifecycleFixture()
	f.gen.Release = make(chan struct{})
	l := f.draft()
	require.NoError(t, l.SetParameters(validParams()))

	done, err := l.StartGeneration(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.gen.Calls() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, l.Back())
	assert.Equal(t, StateSetup, l.State())
	assert.Error(t, <-done)
	close(f.gen.Release)

	v := l.View()
	assert.Equal(t, StateSetup, v.State)
	assert.Empty(t, v.Steps)
	assert.Empty(t, v.Error)
}

func TestLifecycleRegenerateRightAfterBack(t *testing.T) {
	for i := 0; i < 200; i++ {
		f := newLifecycleFixture()
		f.gen.Release = make(chan struct{})
		l := f.draft()
		require.NoError(t, l.SetParameters(validParams()))

		first, err := l.StartGeneration(context.Background())
		require.NoError(t, err)
		require.Eventually(t, func() bool { return f.gen.Calls() == 1 }, time.Second, time.Millisecond)

		require.NoError(t, l.Back())
		second, err := l.StartGeneration(context.Background())
		require.NoError(t, err)
		close(f.gen.Release)

		assert.Error(t, <-first)
		require.NoError(t, <-second, "iteration %d", i)
		v := l.View()
		require.Equal(t, StateSteps, v.State)
		require.Empty(t, v.Error)
		require.Len(t, v.Steps, 3)
	}
}

func TestLifecycleEditorOnlyInSteps(t *testing.T) {
	f := newLifecycleFixture()
	l := f.draft()

	var se *appErrors.StateError
	_, err := l.AddStep(DefaultStepTemplate)
	assert.ErrorAs(t, err, &se)
	_, err = l.Preview("", PreviewPersona(0))
	assert.ErrorAs(t, err, &se)
	_, err = l.Save(context.Background(), validOwner(), SaveOptions{})
	assert.ErrorAs(t, err, &se)
	assert.ErrorAs(t, l.Back(), &se)
}

func TestLifecycleEditAndPreview(t *testing.T) {
	withStepIDs(t)
	f := newLifecycleFixture()
	l := f.inSteps(t)
	require.NoError(t, l.SetParameters(model.CampaignParameters{
		Type: model.CampaignNurture, TargetAudience: "X", Goal: "Y", CompanyName: "Initech", SenderName: "Dana",
	}))

	content := "Hi {{First Name}} from {{Company Name}}, {{Your Name}}"
	seq, err := l.UpdateStep("step-2", StepPatch{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, content, seq.Steps[1].Content)

	seq, err = l.SelectStep("step-2")
	require.NoError(t, err)
	assert.Equal(t, "step-2", seq.Active)

	out, err := l.Preview("", PreviewPersona(0))
	require.NoError(t, err)
	assert.Equal(t, "Hi John from Initech, Dana", out.Content)

	seq, err = l.DuplicateStep("step-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"step-1", "step-2", "new-1", "step-3"}, ids(seq))

	seq, err = l.RemoveStep("new-1")
	require.NoError(t, err)
	assert.Equal(t, "step-2", seq.Active)

	seq, err = l.AddStep(DefaultStepTemplate)
	require.NoError(t, err)
	assert.Equal(t, 4, seq.Len())

	_, err = l.Preview("missing", PreviewPersona(0))
	assert.ErrorIs(t, err, ErrStepNotFound)
}

func TestLifecycleBackKeepsParameters(t *testing.T) {
	f := newLifecycleFixture()
	l := f.inSteps(t)

	require.NoError(t, l.Back())
	v := l.View()
	assert.Equal(t, StateSetup, v.State)
	assert.Equal(t, "X", v.Parameters.TargetAudience)
	assert.Equal(t, "Test", v.Name)
}

func TestLifecycleSaveValidationKeepsDraft(t *testing.T) {
	f := newLifecycleFixture()
	l := f.inSteps(t)

	_, err := l.Save(context.Background(), model.Owner{UserID: "user-1"}, SaveOptions{})
	var ve *appErrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"A project must be selected"}, ve.Violations)

	v := l.View()
	assert.Equal(t, StateSteps, v.State)
	assert.Equal(t, ve.Violations, v.Violations)
	assert.Empty(t, f.campaigns.Calls())
}

func TestLifecycleSaveCreates(t *testing.T) {
	f := newLifecycleFixture()
	l := f.inSteps(t)

	saved, err := l.Save(context.Background(), validOwner(), SaveOptions{CandidateIDs: []string{"c1"}})
	require.NoError(t, err)
	assert.Equal(t, "Test", saved.Campaign.Name)
	assert.Len(t, saved.Steps, 3)
	assert.Equal(t, StateSaved, l.State())
	assert.Len(t, f.linker.links, 1)

	var se *appErrors.StateError
	_, err = l.Save(context.Background(), validOwner(), SaveOptions{})
	assert.ErrorAs(t, err, &se)
}

func TestLifecycleSaveFailureCanBeRetried(t *testing.T) {
	f := newLifecycleFixture()
	l := f.inSteps(t)
	f.steps.InsertErr = errors.New("insert refused")

	_, err := l.Save(context.Background(), validOwner(), SaveOptions{})
	var pe *appErrors.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StateSteps, l.State())
	assert.NotEmpty(t, l.View().Error)
	assert.Len(t, l.View().Steps, 3)

	f.steps.InsertErr = nil
	_, err = l.Save(context.Background(), validOwner(), SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, StateSaved, l.State())
	assert.Equal(t, 1, f.campaigns.Count())
}

func TestOpenCampaignForEdit(t *testing.T) {
	f := newLifecycleFixture()
	seeded := f.seed(t)

	l := OpenCampaign(f.deps, seeded.Campaign, seeded.Steps, OpenEdit)
	v := l.View()
	assert.Equal(t, StateSteps, v.State)
	require.NotNil(t, v.EditingID)
	assert.Equal(t, seeded.Campaign.ID, *v.EditingID)
	assert.Equal(t, []string{"step-1", "step-2", "step-3"}, ids(Sequence{Steps: v.Steps}))
	assert.Equal(t, "step-1", v.ActiveStepID)

	require.NoError(t, l.SetName("Edited"))
	_, err := l.RemoveStep("step-3")
	require.NoError(t, err)
	saved, err := l.Save(context.Background(), validOwner(), SaveOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, f.campaigns.Count())
	assert.Equal(t, "Edited", saved.Campaign.Name)
	rows, _ := f.steps.ListSteps(context.Background(), seeded.Campaign.ID)
	assert.Len(t, rows, 2)
}

func TestOpenCampaignAsClone(t *testing.T) {
	f := newLifecycleFixture()
	seeded := f.seed(t)

	l := OpenCampaign(f.deps, seeded.Campaign, seeded.Steps, OpenClone)
	v := l.View()
	assert.Nil(t, v.EditingID)
	assert.Equal(t, "Test (Copy)", v.Name)

	saved, err := l.Save(context.Background(), validOwner(), SaveOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, seeded.Campaign.ID, saved.Campaign.ID)
	assert.Equal(t, 2, f.campaigns.Count())
}

func TestStepsFromPersistedOrdersByStepOrder(t *testing.T) {
	rows := []model.PersistedStep{
		{StepOrder: 3, Subject: "c"},
		{StepOrder: 1, Subject: "a", Type: model.StepEmail},
		{StepOrder: 2, Subject: "b"},
	}
	steps := StepsFromPersisted(rows)
	require.Len(t, steps, 3)
	assert.Equal(t, "a", steps[0].Subject)
	assert.Equal(t, "step-1", steps[0].ID)
	assert.Equal(t, "c", steps[2].Subject)
	assert.Equal(t, model.StepEmail, steps[2].Type)
}

func TestAutoName(t *testing.T) {
	f := newLifecycleFixture()
	l := f.draft()

	_, err := l.AutoName(context.Background())
	var ve *appErrors.ValidationError
	require.ErrorAs(t, err, &ve)

	require.NoError(t, l.SetParameters(validParams()))
	name, err := l.AutoName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Go Engineers Nurture", name)
	assert.Equal(t, name, l.View().Name)

	f.namer.Err = errors.New("down")
	require.NoError(t, l.SetName(""))
	name, err = l.AutoName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Nurture Campaign", name)

	require.NoError(t, l.SetName("Mine"))
	name, err = l.AutoName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Mine", name, "user override wins")
}

func TestDraftRegistry(t *testing.T) {
	f := newLifecycleFixture()
	r := NewDraftRegistry()

	id := r.Add(f.draft())
	other := r.Add(f.draft())
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, r.Len())

	_, ok := r.Get(id)
	assert.True(t, ok)
	assert.True(t, r.Remove(id))
	assert.False(t, r.Remove(id))
	_, ok = r.Get(id)
	assert.False(t, ok)
}

func TestDraftRegistrySweepsIdleAndSavedDrafts(t *testing.T) {
	f := newLifecycleFixture()
	r := NewDraftRegistry()
	clock := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	idle := r.Add(f.draft())
	busy := r.Add(f.draft())

	saved := f.inSteps(t)
	_, err := saved.Save(context.Background(), validOwner(), SaveOptions{})
	require.NoError(t, err)
	done := r.Add(saved)

	clock = clock.Add(r.SavedTTL)
	_, ok := r.Get(busy)
	require.True(t, ok)
	assert.Equal(t, 1, r.Sweep())
	_, ok = r.Get(done)
	assert.False(t, ok, "saved draft evicted after SavedTTL")

	clock = clock.Add(r.IdleTTL - r.SavedTTL)
	assert.Equal(t, 1, r.Sweep())
	_, ok = r.Get(idle)
	assert.False(t, ok, "untouched draft evicted after IdleTTL")
	_, ok = r.Get(busy)
	assert.True(t, ok, "recently used draft kept")
	assert.Equal(t, 1, r.Len())
}

func TestDraftRegistryRunStopsWithContext(t *testing.T) {
	f := newLifecycleFixture()
	r := NewDraftRegistry()
	r.IdleTTL = 0
	r.Add(f.draft())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond, nil)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
