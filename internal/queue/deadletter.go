package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"deskwise.app/triage/common/id"
)

// DeadLetterLog records side effects that failed after the pipeline
// already committed its result. Entries are appended to a Redis stream
// for operator replay; recording itself is best-effort.
type DeadLetterLog struct {
	client *redis.Client
	stream string
}

func NewDeadLetterLog(client *redis.Client, stream string) *DeadLetterLog {
	return &DeadLetterLog{client: client, stream: stream}
}

func (d *DeadLetterLog) Record(ctx context.Context, effect string, ticketID int64, errMsg string) {
	values := map[string]any{
		"entry_id":  id.New(),
		"effect":    effect,
		"ticket_id": ticketID,
		"error":     errMsg,
		"failed_at": time.Now().UTC().Format(time.RFC3339),
	}

	if err := d.client.XAdd(ctx, &redis.XAddArgs{
		Stream: d.stream,
		Values: values,
	}).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to record dead letter",
			"effect", effect,
			"ticket_id", ticketID,
			"error", err)
	}
}
