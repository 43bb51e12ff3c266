package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-campaigns/internal/model"
	"github.com/unclebandit/outreach-campaigns/internal/queue"
	"github.com/unclebandit/outreach-campaigns/internal/repository"
)

// CandidateLinker attaches recipients to a saved campaign. Callers treat it
// as best effort.
type CandidateLinker interface {
	LinkCandidates(ctx context.Context, link model.CandidateLink) error
}

// QueueLinker hands link jobs to the queue for the worker to apply.
type QueueLinker struct {
	Queue queue.Queue
}

func (l *QueueLinker) LinkCandidates(_ context.Context, link model.CandidateLink) error {
	return l.Queue.Publish(queue.TopicCandidateLinks, link)
}

// LinkWorker applies queued link jobs to the candidate store.
type LinkWorker struct {
	Repo    repository.CandidateRepositoryInterface
	Log     *zap.Logger
	Timeout time.Duration
}

func NewLinkWorker(repo repository.CandidateRepositoryInterface, log *zap.Logger) *LinkWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &LinkWorker{Repo: repo, Log: log, Timeout: 10 * time.Second}
}

// Handle processes one job. Undecodable jobs are dropped rather than retried.
func (w *LinkWorker) Handle(body []byte) error {
	var link model.CandidateLink
	if err := json.Unmarshal(body, &link); err != nil {
		w.Log.Warn("invalid candidate link job", zap.Error(err))
		return nil
	}
	if link.CampaignID == 0 || len(link.CandidateIDs) == 0 {
		w.Log.Warn("empty candidate link job", zap.Int64("campaign_id", link.CampaignID))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.Timeout)
	defer cancel()

	added, err := w.Repo.LinkCandidates(ctx, link)
	if err != nil {
		return fmt.Errorf("link candidates to campaign %d: %w", link.CampaignID, err)
	}
	w.Log.Info("candidates linked",
		zap.Int64("campaign_id", link.CampaignID),
		zap.Int("requested", len(link.CandidateIDs)),
		zap.Int("added", added),
		zap.String("source", link.Source),
	)
	return nil
}

// Start subscribes the worker to the candidate link topic.
func (w *LinkWorker) Start(q queue.Queue) error {
	return q.Subscribe(queue.TopicCandidateLinks, w.Handle)
}
