package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue() *InMemoryQueue {
	q := NewInMemoryQueue(nil)
	q.Interval = time.Millisecond
	return q
}

func drain(t *testing.T, q *InMemoryQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Drain(ctx))
}

func TestPublishEncodesJSON(t *testing.T) {
	q := newTestQueue()
	got := make(chan string, 1)
	require.NoError(t, q.Subscribe("t", func(body []byte) error {
		got <- string(body)
		return nil
	}))

	require.NoError(t, q.Publish("t", map[string]int{"campaign_id": 1}))
	drain(t, q)
	assert.JSONEq(t, `{"campaign_id":1}`, <-got)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	assert.Error(t, newTestQueue().Publish("nobody", 1))
}

func TestFailedJobsAreRetried(t *testing.T) {
	q := newTestQueue()
	var attempts atomic.Int32
	require.NoError(t, q.Subscribe("t", func([]byte) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}))

	require.NoError(t, q.Publish("t", "job"))
	drain(t, q)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRetriesAreBounded(t *testing.T) {
	q := newTestQueue()
	q.MaxRetries = 2
	var attempts atomic.Int32
	require.NoError(t, q.Subscribe("t", func([]byte) error {
		attempts.Add(1)
		return errors.New("permanent")
	}))

	require.NoError(t, q.Publish("t", "job"))
	drain(t, q)
	assert.Equal(t, int32(3), attempts.Load(), "first attempt plus two retries")
}

func TestRedeliveryCount(t *testing.T) {
	assert.Equal(t, 0, redeliveryCount(nil))
	assert.Equal(t, 2, redeliveryCount(amqp.Table{"x-retry-count": int32(2)}))
	assert.Equal(t, 3, redeliveryCount(amqp.Table{"x-retry-count": int64(3)}))
	assert.Equal(t, 0, redeliveryCount(amqp.Table{"x-retry-count": "x"}))
}

func TestDrainGivesUpAtDeadline(t *testing.T) {
	q := newTestQueue()
	release := make(chan struct{})
	defer close(release)
	require.NoError(t, q.Subscribe("jobs", func([]byte) error {
		<-release
		return nil
	}))
	require.NoError(t, q.Publish("jobs", "stuck"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Drain(ctx), context.DeadlineExceeded)
}
