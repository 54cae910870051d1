package worker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// QueueOutbox is the handoff list the delivery collaborator consumes.
const QueueOutbox = "outbox:notifications"

// OutboxSender hands notification intents to the delivery collaborator over a
// Redis list. Delivery outcome never flows back into the core.
type OutboxSender struct {
	rdb *redis.Client
}

func NewOutboxSender(rdb *redis.Client) *OutboxSender {
	return &OutboxSender{rdb: rdb}
}

func (s *OutboxSender) Send(ctx context.Context, intent NotificationIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return s.rdb.LPush(ctx, QueueOutbox, data).Err()
}
