package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/coop_market/internal/logging"
)

// EventPublisher is satisfied by events.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key, eventType string, data any) error
}

const publishTimeout = 5 * time.Second

// publish runs after commit. A broker failure is logged and never undoes
// or fails the operation that produced the event.
func publish(ctx context.Context, p EventPublisher, topic, key, eventType string, data any) {
	if p == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.PublishEvent(pctx, topic, key, eventType, data); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed",
			"topic", topic, "type", eventType, "key", key, "error", err)
	}
}
