package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type draftEntry struct {
	draft   *Lifecycle
	touched time.Time
}

// DraftRegistry holds the live authoring sessions. Sessions never share
// state; each one serialises its own operations. Sessions untouched for
// IdleTTL, or saved and untouched for SavedTTL, are evicted by Sweep.
type DraftRegistry struct {
	IdleTTL  time.Duration
	SavedTTL time.Duration

	mu     sync.Mutex
	drafts map[string]*draftEntry
	now    func() time.Time
}

func NewDraftRegistry() *DraftRegistry {
	return &DraftRegistry{
		IdleTTL:  30 * time.Minute,
		SavedTTL: 5 * time.Minute,
		drafts:   make(map[string]*draftEntry),
		now:      time.Now,
	}
}

// Add registers l and returns its session id.
func (r *DraftRegistry) Add(l *Lifecycle) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.drafts[id] = &draftEntry{draft: l, touched: r.now()}
	r.mu.Unlock()
	return id
}

// Get returns the session and marks it as used.
func (r *DraftRegistry) Get(id string) (*Lifecycle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.drafts[id]
	if !ok {
		return nil, false
	}
	e.touched = r.now()
	return e.draft, true
}

// Remove discards the session, cancelling any outstanding generation.
func (r *DraftRegistry) Remove(id string) bool {
	r.mu.Lock()
	e, ok := r.drafts[id]
	delete(r.drafts, id)
	r.mu.Unlock()
	if ok {
		e.draft.Discard()
	}
	return ok
}

func (r *DraftRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}

// Sweep evicts expired sessions and returns how many were removed.
func (r *DraftRegistry) Sweep() int {
	now := r.now()
	var expired []*Lifecycle

	r.mu.Lock()
	for id, e := range r.drafts {
		idle := now.Sub(e.touched)
		if idle >= r.IdleTTL || (idle >= r.SavedTTL && e.draft.State() == StateSaved) {
			expired = append(expired, e.draft)
			delete(r.drafts, id)
		}
	}
	r.mu.Unlock()

	for _, l := range expired {
		l.Discard()
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *DraftRegistry) Run(ctx context.Context, interval time.Duration, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Info("evicted draft sessions", zap.Int("evicted", n), zap.Int("live", r.Len()))
			}
		}
	}
}
