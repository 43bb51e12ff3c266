package service

import (
	"context"
	"sync"
	"time"

	appErrors "github.com/unclebandit/outreach-campaigns/internal/errors"
	"github.com/unclebandit/outreach-campaigns/internal/model"
	"github.com/unclebandit/outreach-campaigns/internal/repository"
)

// --- Mock Repositories ---

type MockCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int64]*model.Campaign
	nextID    int64
	calls     []string

	CreateErr error
	UpdateErr error
	DeleteErr error
}

func NewMockCampaignRepo() *MockCampaignRepo {
	return &MockCampaignRepo{campaigns: map[int64]*model.Campaign{}, nextID: 1}
}

func (m *MockCampaignRepo) record(call string) {
	m.calls = append(m.calls, call)
}

func (m *MockCampaignRepo) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockCampaignRepo) Create(_ context.Context, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("campaign.create")
	if m.CreateErr != nil {
		return m.CreateErr
	}
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now().UTC()
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *MockCampaignRepo) Update(_ context.Context, id int64, p model.CampaignPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("campaign.update")
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Name, c.Type, c.TargetAudience, c.Goal = p.Name, p.Type, p.TargetAudience, p.Goal
	c.Tone, c.EmailLength, c.AIInstructions = p.Tone, p.EmailLength, p.AIInstructions
	c.CompanyName, c.SenderName = p.CompanyName, p.SenderName
	now := time.Now().UTC()
	c.UpdatedAt = &now
	return nil
}

func (m *MockCampaignRepo) UpdateStatus(_ context.Context, id int64, status model.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("campaign.status")
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = status
	return nil
}

func (m *MockCampaignRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("campaign.delete")
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.campaigns, id)
	return nil
}

func (m *MockCampaignRepo) GetByID(_ context.Context, id int64) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *MockCampaignRepo) ListCampaigns(_ context.Context, offset, limit int, filter model.CampaignFilter) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*model.Campaign
	for id := m.nextID - 1; id >= 1; id-- {
		c, ok := m.campaigns[id]
		if !ok {
			continue
		}
		if filter.ProjectID != "" && c.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		cp := *c
		matched = append(matched, &cp)
	}
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *MockCampaignRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.campaigns)
}

type MockStepRepo struct {
	mu     sync.Mutex
	steps  map[int64][]model.PersistedStep
	nextID int64

	InsertErr error
	DeleteErr error
}

func NewMockStepRepo() *MockStepRepo {
	return &MockStepRepo{steps: map[int64][]model.PersistedStep{}, nextID: 1}
}

func (m *MockStepRepo) InsertSteps(_ context.Context, campaignID int64, steps []model.PersistedStep) ([]model.PersistedStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}
	out := make([]model.PersistedStep, len(steps))
	for i, st := range steps {
		st.ID = m.nextID
		m.nextID++
		st.CampaignID = campaignID
		out[i] = st
	}
	m.steps[campaignID] = append(m.steps[campaignID], out...)
	return out, nil
}

func (m *MockStepRepo) DeleteSteps(_ context.Context, campaignID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.steps, campaignID)
	return nil
}

func (m *MockStepRepo) ListSteps(_ context.Context, campaignID int64) ([]model.PersistedStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PersistedStep{}, m.steps[campaignID]...), nil
}

type MockCandidateRepo struct {
	mu    sync.Mutex
	links []model.CandidateLink
	Err   error
}

func (m *MockCandidateRepo) LinkCandidates(_ context.Context, link model.CandidateLink) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	m.links = append(m.links, link)
	return len(link.CandidateIDs), nil
}

func (m *MockCandidateRepo) ListCandidateIDs(_ context.Context, campaignID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, l := range m.links {
		if l.CampaignID == campaignID {
			ids = append(ids, l.CandidateIDs...)
		}
	}
	return ids, nil
}

var (
	_ repository.CampaignRepositoryInterface  = (*MockCampaignRepo)(nil)
	_ repository.StepRepositoryInterface      = (*MockStepRepo)(nil)
	_ repository.CandidateRepositoryInterface = (*MockCandidateRepo)(nil)
)

type MockLinker struct {
	mu    sync.Mutex
	links []model.CandidateLink
	Err   error
}

func (m *MockLinker) LinkCandidates(_ context.Context, link model.CandidateLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return m.Err
}

// --- Mock generators ---

type MockGenerator struct {
	mu      sync.Mutex
	Steps   []model.EmailStep
	Err     error
	Release chan struct{} // when set, GenerateSequence blocks until closed
	calls   int
}

func (m *MockGenerator) GenerateSequence(ctx context.Context, _ model.CampaignParameters) ([]model.EmailStep, error) {
	m.mu.Lock()
	m.calls++
	release := m.Release
	m.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.Steps, m.Err
}

func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type MockNamer struct {
	Name string
	Err  error
}

func (m *MockNamer) GenerateName(context.Context, model.CampaignType, string, string) (string, error) {
	return m.Name, m.Err
}

// --- Fixtures ---

func validParams() model.CampaignParameters {
	return model.CampaignParameters{
		Type:           model.CampaignNurture,
		TargetAudience: "X",
		Goal:           "Y",
		Tone:           model.ToneProfessional,
		EmailLength:    model.LengthConcise,
	}
}

func validOwner() model.Owner {
	return model.Owner{UserID: "user-1", ProjectID: "project-1"}
}

func oneStepDraft() model.CampaignDraft {
	return model.CampaignDraft{
		Name:       "Test",
		Parameters: validParams(),
		Steps: []model.EmailStep{
			{ID: "step-1", Type: model.StepEmail, Subject: "Hi", Content: "Hello {{First Name}}", Delay: 0, DelayUnit: model.DelayImmediately},
		},
	}
}

func threeSteps() []model.EmailStep {
	return []model.EmailStep{
		{ID: "step-1", Type: model.StepEmail, Subject: "One", Content: "First", Delay: 0, DelayUnit: model.DelayImmediately},
		{ID: "step-2", Type: model.StepEmail, Subject: "Two", Content: "Second", Delay: 3, DelayUnit: model.DelayBusinessDays},
		{ID: "step-3", Type: model.StepEmail, Subject: "Three", Content: "Third", Delay: 4, DelayUnit: model.DelayBusinessDays},
	}
}

// instant makes every progress hold elapse immediately.
func instant(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}
