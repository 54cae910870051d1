package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueNotifications = "jobs:notifications"

	maxNotificationAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// NotificationIntent is what the core emits when a customer should be
// notified. Delivery (SMS or otherwise) belongs to an external collaborator;
// the core never learns whether it succeeded.
type NotificationIntent struct {
	CustomerID  string            `json:"customer_id"`
	Phone       string            `json:"phone"`
	TemplateKey string            `json:"template_key"`
	Params      map[string]string `json:"params,omitempty"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueNotification pushes a notification intent to Redis.
func (d *Dispatcher) EnqueueNotification(ctx context.Context, intent NotificationIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	job := Job{Type: "notification", Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueueNotifications, encoded).Err()
}

// NotificationSender hands an intent to the delivery collaborator.
type NotificationSender interface {
	Send(ctx context.Context, intent NotificationIntent) error
}

// WorkerHandlers holds the per-job-type processors wired at the composition
// root.
type WorkerHandlers struct {
	Sender NotificationSender
}

// StartWorkerPool launches numWorkers goroutines consuming the notification
// queue. Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueNotifications).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	var intent NotificationIntent
	if err := json.Unmarshal(job.Payload, &intent); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal notification intent")
		return
	}

	if handlers == nil || handlers.Sender == nil {
		log.Debug().Str("template", intent.TemplateKey).Msg("no notification sender wired, dropping intent")
		return
	}

	if err := handlers.Sender.Send(ctx, intent); err != nil {
		job.Attempts++
		if job.Attempts >= maxNotificationAttempts {
			SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), job.Attempts)
			return
		}
		// Re-queue for another attempt
		if encoded, merr := json.Marshal(job); merr == nil {
			_ = rdb.LPush(ctx, queue, encoded).Err()
		}
		log.Warn().Err(err).
			Str("template", intent.TemplateKey).
			Int("attempts", job.Attempts).
			Msg("notification send failed, re-queued")
		return
	}

	log.Info().
		Str("template", intent.TemplateKey).
		Str("customer_id", intent.CustomerID).
		Msg("notification intent handed off")
}
