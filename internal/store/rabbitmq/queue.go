// Package rabbitmq carries summary tasks between the gateway and the queue
// worker. Topology: a main queue dead-lettering to <queue>.dlq, plus a
// <queue>.retry queue whose TTL dead-letters expired tasks back to main, so
// a transiently failed summary gets another pass before it lands in the DLQ.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/orangecountyai/clem/internal/store"
)

// retryDelay is how long a requeued task sits before flowing back to main.
const retryDelay = 15 * time.Second

// SummaryTask is the wire form of a queued summary job. The database row is
// authoritative; the task carries the link so the DLQ stays readable on its
// own, and Attempt so the worker knows when to stop requeueing.
type SummaryTask struct {
	JobID   string         `json:"job_id"`
	Kind    store.LinkKind `json:"kind"`
	URL     string         `json:"url"`
	Attempt int            `json:"attempt"`
}

// DecodeTask parses a delivery body. A task without a job ID is malformed.
func DecodeTask(body []byte) (SummaryTask, error) {
	var t SummaryTask
	if err := json.Unmarshal(body, &t); err != nil {
		return SummaryTask{}, err
	}
	if t.JobID == "" {
		return SummaryTask{}, errors.New("rabbitmq: task missing job_id")
	}
	return t, nil
}

// Queue is one connection to the broker with the summary topology declared.
// Both the gateway (enqueue side) and the worker (consume side) open one.
type Queue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	name string
}

func Dial(url, name string) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := declareTopology(ch, name); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Queue{conn: conn, ch: ch, name: name}, nil
}

func declareTopology(ch *amqp.Channel, name string) error {
	retryQ := name + ".retry"
	dlqQ := name + ".dlq"

	if _, err := ch.QueueDeclare(
		dlqQ,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		return err
	}

	// Retry queue: tasks expire after retryDelay and dead-letter back to main.
	if _, err := ch.QueueDeclare(
		retryQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-message-ttl":             int32(retryDelay / time.Millisecond),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": name,
		},
	); err != nil {
		return err
	}

	// Main queue: rejected tasks (nack without requeue) land in the DLQ.
	if _, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dlqQ,
		},
	); err != nil {
		return err
	}
	return nil
}

func (q *Queue) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// Enqueue publishes a fresh task for a just-created summary job.
func (q *Queue) Enqueue(ctx context.Context, job *store.SummaryJob) error {
	return q.publish(ctx, q.name, SummaryTask{
		JobID: job.ID,
		Kind:  job.Kind,
		URL:   job.URL,
	})
}

// Requeue sends a failed task through the retry queue with its attempt
// counter bumped. The broker routes it back to main after retryDelay.
func (q *Queue) Requeue(ctx context.Context, t SummaryTask) error {
	t.Attempt++
	return q.publish(ctx, q.name+".retry", t)
}

// Consume registers the worker side: prefetch-bounded deliveries that must
// be acked or nacked by the caller.
func (q *Queue) Consume(prefetch int) (<-chan amqp.Delivery, error) {
	if err := q.ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	return q.ch.Consume(q.name, "", false, false, false, false, nil)
}

func (q *Queue) publish(ctx context.Context, routingKey string, t SummaryTask) error {
	body, err := json.Marshal(t)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return q.ch.PublishWithContext(cctx,
		"", // default exchange
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}
