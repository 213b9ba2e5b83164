package notify

import (
	"context"
	"fmt"
	"time"

	"payrelay/internal/broker"
	"payrelay/internal/detect"
	"payrelay/internal/logger"
	"payrelay/internal/subscription"
	"payrelay/pkg/cel"
	"payrelay/pkg/logging"
	"payrelay/pkg/metrics"
	"payrelay/pkg/models"
)

// SubscriptionSource supplies the enabled subscriptions for one dispatch
// phase.
type SubscriptionSource interface {
	SnapshotEnabled(ctx context.Context) ([]subscription.Subscription, error)
}

// Fanout routes each detected event to every enabled subscription of the
// matching type. Targets are independent: one endpoint failing, timing out,
// or being filtered out never affects the others, and delivery outcomes
// never affect HandleEvent's result.
type Fanout struct {
	source    SubscriptionSource
	renderer  *Renderer
	deliverer *WebhookDispatcher
	evaluator *cel.Evaluator
	producer  broker.Producer
	topic     string
	logger    logger.Logger

	// snapshot holds the subscriptions for the current tick, grouped by
	// event type. BeginTick replaces it; the poll loop never overlaps
	// ticks, so no locking is needed.
	snapshot map[detect.EventType][]subscription.Subscription
}

type FanoutOption func(*Fanout)

// WithFilterEvaluation enables per-subscription CEL filters. Without it,
// filters are ignored and every event of the subscribed type is delivered.
func WithFilterEvaluation(evaluator *cel.Evaluator) FanoutOption {
	return func(f *Fanout) {
		f.evaluator = evaluator
	}
}

// WithEventMirror publishes every dispatched event to a broker topic.
func WithEventMirror(producer broker.Producer, topic string) FanoutOption {
	return func(f *Fanout) {
		f.producer = producer
		f.topic = topic
	}
}

func NewFanout(source SubscriptionSource, renderer *Renderer, deliverer *WebhookDispatcher, log logger.Logger, opts ...FanoutOption) *Fanout {
	f := &Fanout{
		source:    source,
		renderer:  renderer,
		deliverer: deliverer,
		logger:    log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BeginTick snapshots the enabled subscriptions. An error here means the
// subscription set is unknown and the caller must not dispatch this tick.
func (f *Fanout) BeginTick(ctx context.Context) error {
	subs, err := f.source.SnapshotEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot subscriptions: %w", err)
	}

	snapshot := make(map[detect.EventType][]subscription.Subscription)
	for _, sub := range subs {
		t := detect.EventType(sub.EventType)
		snapshot[t] = append(snapshot[t], sub)
	}
	f.snapshot = snapshot

	return nil
}

// HandleEvent delivers ev to every matching subscription from the current
// snapshot, then mirrors it to the broker if one is configured. It returns
// nil even when every delivery fails; only the inability to attempt dispatch
// at all would be an error, and that is caught in BeginTick.
func (f *Fanout) HandleEvent(ctx context.Context, ev detect.Event) error {
	ctx = logging.WithEventID(ctx, ev.Identity.String())

	for _, sub := range f.snapshot[ev.Type] {
		if !f.filterMatches(ctx, sub, ev) {
			continue
		}

		title := f.renderer.Render(sub.Title, ev)
		text := f.renderer.Render(sub.Text, ev)

		start := time.Now()
		if err := f.deliverer.Deliver(ctx, sub.URL, title, text); err != nil {
			metrics.ObserveWebhookDelivery(time.Since(start), "error")
			f.logger.ErrorwCtx(ctx, "Webhook delivery failed",
				"subscription_id", sub.ID,
				"subscription_name", sub.Name,
				"url", sub.URL,
				"error", err,
			)
			continue
		}
		metrics.ObserveWebhookDelivery(time.Since(start), "ok")
		f.logger.InfowCtx(ctx, "Webhook delivered",
			"subscription_id", sub.ID,
			"subscription_name", sub.Name,
		)
	}

	f.mirror(ctx, ev)

	return nil
}

// filterMatches evaluates the subscription's CEL filter. Evaluation errors
// count as no match so a broken filter cannot flood its endpoint.
func (f *Fanout) filterMatches(ctx context.Context, sub subscription.Subscription, ev detect.Event) bool {
	if sub.Filter == "" || f.evaluator == nil {
		return true
	}

	match, err := f.evaluator.EvaluateFilter(ctx, sub.Filter, ev.Payload())
	if err != nil {
		f.logger.WarnwCtx(ctx, "Filter evaluation failed, skipping delivery",
			"subscription_id", sub.ID,
			"filter", sub.Filter,
			"error", err,
		)
		return false
	}
	return match
}

func (f *Fanout) mirror(ctx context.Context, ev detect.Event) {
	if f.producer == nil || f.topic == "" {
		return
	}

	envelope := models.EventEnvelope{
		ID:        ev.Identity.String(),
		Source:    "relay",
		EventType: string(ev.Type),
		Timestamp: time.Now().UTC(),
		Payload:   ev.Payload(),
	}

	if err := f.producer.Publish(ctx, f.topic, envelope); err != nil {
		f.logger.WarnwCtx(ctx, "Event mirror publish failed",
			"topic", f.topic,
			"error", err,
		)
	}
}
