package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrelay/internal/detect"
	"payrelay/internal/logger"
	"payrelay/internal/provider"
	"payrelay/internal/subscription"
	"payrelay/pkg/cel"
	"payrelay/pkg/models"
)

type staticSource struct {
	subs []subscription.Subscription
	err  error
}

func (s *staticSource) SnapshotEnabled(ctx context.Context) ([]subscription.Subscription, error) {
	return s.subs, s.err
}

type capturingProducer struct {
	published []models.EventEnvelope
	topic     string
	err       error
}

func (p *capturingProducer) Publish(ctx context.Context, topic string, msg models.EventEnvelope) error {
	if p.err != nil {
		return p.err
	}
	p.topic = topic
	p.published = append(p.published, msg)
	return nil
}

func (p *capturingProducer) Close() error { return nil }

func countingServer(t *testing.T, status int, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func testSaleEvent(id string, amount int64) detect.Event {
	return detect.Event{
		Type:     detect.EventSalePaid,
		Identity: detect.Identity{Kind: detect.SubjectTransaction, RecordID: id, Suffix: "paid"},
		Transaction: &provider.Transaction{
			ID:            id,
			Status:        "paid",
			Amount:        amount,
			PaymentMethod: "pix",
		},
	}
}

func newTestFanout(t *testing.T, source SubscriptionSource, opts ...FanoutOption) *Fanout {
	t.Helper()
	return NewFanout(source, NewRenderer(), NewWebhookDispatcher(2*time.Second), logger.NopLogger(), opts...)
}

func TestFanout_RoutesByEventType(t *testing.T) {
	var saleHits, refundHits atomic.Int32
	saleServer := countingServer(t, http.StatusOK, &saleHits)
	refundServer := countingServer(t, http.StatusOK, &refundHits)

	source := &staticSource{subs: []subscription.Subscription{
		{ID: "1", Name: "sales", URL: saleServer.URL, Title: "t", Text: "x", EventType: "sale_paid", Enabled: true},
		{ID: "2", Name: "refunds", URL: refundServer.URL, Title: "t", Text: "x", EventType: "refund", Enabled: true},
	}}

	f := newTestFanout(t, source)
	ctx := context.Background()

	require.NoError(t, f.BeginTick(ctx))
	require.NoError(t, f.HandleEvent(ctx, testSaleEvent("T1", 5000)))

	assert.Equal(t, int32(1), saleHits.Load())
	assert.Equal(t, int32(0), refundHits.Load())
}

func TestFanout_DeliveryFailureIsolation(t *testing.T) {
	var failingHits, healthyHits atomic.Int32
	failing := countingServer(t, http.StatusInternalServerError, &failingHits)
	healthy := countingServer(t, http.StatusOK, &healthyHits)

	source := &staticSource{subs: []subscription.Subscription{
		{ID: "1", Name: "broken", URL: failing.URL, Title: "t", Text: "x", EventType: "sale_paid", Enabled: true},
		{ID: "2", Name: "working", URL: healthy.URL, Title: "t", Text: "x", EventType: "sale_paid", Enabled: true},
	}}

	f := newTestFanout(t, source)
	ctx := context.Background()

	require.NoError(t, f.BeginTick(ctx))
	// HandleEvent reports success even though one target failed; delivery is
	// at most once and failures are terminal.
	require.NoError(t, f.HandleEvent(ctx, testSaleEvent("T1", 5000)))

	assert.Equal(t, int32(1), failingHits.Load())
	assert.Equal(t, int32(1), healthyHits.Load())
}

func TestFanout_FilterExpression(t *testing.T) {
	evaluator, err := cel.NewEvaluator()
	require.NoError(t, err)

	var hits atomic.Int32
	server := countingServer(t, http.StatusOK, &hits)

	source := &staticSource{subs: []subscription.Subscription{
		{
			ID: "1", Name: "big-sales", URL: server.URL, Title: "t", Text: "x",
			EventType: "sale_paid", Filter: `event.amount >= 10000`, Enabled: true,
		},
	}}

	f := newTestFanout(t, source, WithFilterEvaluation(evaluator))
	ctx := context.Background()

	require.NoError(t, f.BeginTick(ctx))

	require.NoError(t, f.HandleEvent(ctx, testSaleEvent("T1", 5000)))
	assert.Equal(t, int32(0), hits.Load(), "below threshold must be filtered out")

	require.NoError(t, f.HandleEvent(ctx, testSaleEvent("T2", 20000)))
	assert.Equal(t, int32(1), hits.Load())
}

func TestFanout_FilterErrorSkipsDelivery(t *testing.T) {
	evaluator, err := cel.NewEvaluator()
	require.NoError(t, err)

	var hits atomic.Int32
	server := countingServer(t, http.StatusOK, &hits)

	source := &staticSource{subs: []subscription.Subscription{
		{
			ID: "1", Name: "bad-filter", URL: server.URL, Title: "t", Text: "x",
			EventType: "sale_paid", Filter: `event.nonexistent.deep == 1`, Enabled: true,
		},
	}}

	f := newTestFanout(t, source, WithFilterEvaluation(evaluator))
	ctx := context.Background()

	require.NoError(t, f.BeginTick(ctx))
	require.NoError(t, f.HandleEvent(ctx, testSaleEvent("T1", 5000)))
	assert.Equal(t, int32(0), hits.Load())
}

func TestFanout_BeginTickPropagatesSourceError(t *testing.T) {
	source := &staticSource{err: errors.New("db down")}

	f := newTestFanout(t, source)
	assert.Error(t, f.BeginTick(context.Background()))
}

func TestFanout_MirrorPublishesEnvelope(t *testing.T) {
	producer := &capturingProducer{}

	source := &staticSource{}
	f := newTestFanout(t, source, WithEventMirror(producer, "relay.events"))
	ctx := context.Background()

	require.NoError(t, f.BeginTick(ctx))
	require.NoError(t, f.HandleEvent(ctx, testSaleEvent("T1", 5000)))

	require.Len(t, producer.published, 1)
	assert.Equal(t, "relay.events", producer.topic)
	env := producer.published[0]
	assert.Equal(t, "transaction-T1-paid", env.ID)
	assert.Equal(t, "sale_paid", env.EventType)
	assert.Equal(t, "relay", env.Source)
	assert.Equal(t, "T1", env.Payload["id"])
}

func TestFanout_MirrorFailureDoesNotFailEvent(t *testing.T) {
	producer := &capturingProducer{err: errors.New("broker unreachable")}

	var hits atomic.Int32
	server := countingServer(t, http.StatusOK, &hits)

	source := &staticSource{subs: []subscription.Subscription{
		{ID: "1", Name: "sales", URL: server.URL, Title: "t", Text: "x", EventType: "sale_paid", Enabled: true},
	}}

	f := newTestFanout(t, source, WithEventMirror(producer, "relay.events"))
	ctx := context.Background()

	require.NoError(t, f.BeginTick(ctx))
	require.NoError(t, f.HandleEvent(ctx, testSaleEvent("T1", 5000)))
	assert.Equal(t, int32(1), hits.Load())
}
