package repository

import (
	"context"
	"time"
)

// WebhookEvent is one received gateway delivery, kept for audit. Duplicate
// deliveries create duplicate rows: the pipeline tolerates replays, so
// nothing is gained by deduplicating here.
type WebhookEvent struct {
	Provider   string
	EventType  string
	EventID    string
	Payload    []byte
	ReceivedAt time.Time
}

// WebhookEventRepository records received gateway deliveries
type WebhookEventRepository interface {
	// Insert appends one delivery row
	Insert(ctx context.Context, event WebhookEvent) error
}
