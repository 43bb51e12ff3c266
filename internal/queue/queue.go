package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// TopicCandidateLinks carries model.CandidateLink jobs.
const TopicCandidateLinks = "campaign_candidate_links"

// Handler processes one JSON encoded message. A non-nil error asks for a retry.
type Handler func(body []byte) error

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler Handler) error
	Close() error
}

// InMemoryQueue delivers to subscribers in-process with retry. Payloads are
// JSON encoded so handlers see the same bytes they would from AMQP.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	wg         sync.WaitGroup
	log        *zap.Logger
	MaxRetries uint64
	Interval   time.Duration
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(log *zap.Logger) *InMemoryQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		log:        log,
		MaxRetries: 3,
		Interval:   500 * time.Millisecond,
	}
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}

	q.mu.Lock()
	handlers := append([]Handler(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, h := range handlers {
		q.wg.Add(1)
		go q.process(topic, h, body)
	}
	return nil
}

// process retries with exponential backoff and gives up after MaxRetries.
func (q *InMemoryQueue) process(topic string, h Handler, body []byte) {
	defer q.wg.Done()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.Interval
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := h(body); err != nil {
			q.log.Warn("job failed",
				zap.String("topic", topic),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return nil
	}, backoff.WithMaxRetries(b, q.MaxRetries))
	if err != nil {
		q.log.Error("job permanently failed", zap.String("topic", topic), zap.Int("attempts", attempt), zap.Error(err))
		return
	}
	q.log.Debug("job processed", zap.String("topic", topic))
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Drain waits for in-flight jobs or ctx.
func (q *InMemoryQueue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) Close() error {
	return q.Drain(context.Background())
}

var _ Queue = (*InMemoryQueue)(nil)
