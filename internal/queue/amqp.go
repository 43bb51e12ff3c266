package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const maxRedeliveries = 3

// AMQPQueue publishes and consumes durable RabbitMQ queues, one per topic.
type AMQPQueue struct {
	conn *amqp.Connection
	mu   sync.Mutex
	ch   *amqp.Channel
	log  *zap.Logger
}

// DialAMQP connects with exponential backoff so the server and worker can
// start before the broker is ready.
func DialAMQP(url string, maxWait time.Duration, log *zap.Logger) (*AMQPQueue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait

	var conn *amqp.Connection
	err := backoff.Retry(func() error {
		c, err := amqp.Dial(url)
		if err != nil {
			log.Warn("rabbitmq not reachable yet", zap.Error(err))
			return err
		}
		conn = c
		return nil
	}, b)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch, log: log}, nil
}

func (q *AMQPQueue) declare(topic string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, err := q.declare(topic); err != nil {
		return fmt.Errorf("declare %s: %w", topic, err)
	}
	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Subscribe consumes topic with manual acks. Failed deliveries are requeued
// until they have been redelivered maxRedeliveries times, then dropped.
func (q *AMQPQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	qd, err := q.declare(topic)
	if err != nil {
		q.mu.Unlock()
		return fmt.Errorf("declare %s: %w", topic, err)
	}
	msgs, err := q.ch.Consume(qd.Name, "", false, false, false, false, nil)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("consume %s: %w", topic, err)
	}

	go func() {
		for d := range msgs {
			if err := handler(d.Body); err != nil {
				retries := redeliveryCount(d.Headers)
				q.log.Warn("job failed", zap.String("topic", topic), zap.Int("retries", retries), zap.Error(err))
				if retries < maxRedeliveries {
					q.requeue(topic, d, retries+1)
					continue
				}
				q.log.Error("job dropped after retries", zap.String("topic", topic))
			}
			d.Ack(false)
		}
		q.log.Info("consumer stopped", zap.String("topic", topic))
	}()
	return nil
}

// requeue republishes with an incremented x-retry-count and acks the original.
func (q *AMQPQueue) requeue(topic string, d amqp.Delivery, retries int) {
	q.mu.Lock()
	err := q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{"x-retry-count": int32(retries)},
		Body:         d.Body,
	})
	q.mu.Unlock()
	if err != nil {
		q.log.Error("requeue failed, returning to broker", zap.Error(err))
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

func redeliveryCount(h amqp.Table) int {
	switch v := h["x-retry-count"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
