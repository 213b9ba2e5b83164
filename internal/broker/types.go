package broker

import (
	"context"

	"payrelay/pkg/models"
)

// Producer mirrors committed relay events onto a message broker. The mirror
// is strictly best effort and never gates webhook delivery or ledger commits.
type Producer interface {
	Publish(ctx context.Context, topic string, msg models.EventEnvelope) error
	Close() error
}
