package detect

import (
	"context"
	"sync"
	"time"

	"payrelay/internal/logger"
	"payrelay/internal/provider"
	"payrelay/pkg/logging"
	"payrelay/pkg/metrics"
)

// EventSink receives every newly detected event. BeginTick is called once
// per tick before any event is handed over, so implementations can snapshot
// the subscription list for the whole dispatch phase.
type EventSink interface {
	BeginTick(ctx context.Context) error
	HandleEvent(ctx context.Context, ev Event) error
}

// LedgerWriter is the poll loop's view of the dedup ledger. The poll loop is
// the only writer.
type LedgerWriter interface {
	Contains(id string) bool
	Add(id string)
	Persist(ctx context.Context) error
	Size() int
}

// Poller drives the fetch-classify-dispatch-persist cycle on a fixed
// interval. The first tick runs immediately at start.
type Poller struct {
	fetcher    provider.Fetcher
	classifier *Classifier
	ledger     LedgerWriter
	sink       EventSink
	interval   time.Duration
	logger     logger.Logger

	// tickMu enforces at most one concurrent tick.
	tickMu sync.Mutex
}

func NewPoller(fetcher provider.Fetcher, ledger LedgerWriter, sink EventSink, interval time.Duration, log logger.Logger) *Poller {
	return &Poller{
		fetcher:    fetcher,
		classifier: NewClassifier(),
		ledger:     ledger,
		sink:       sink,
		interval:   interval,
		logger:     log,
	}
}

// Run blocks until ctx is cancelled. Tick failures are logged and never stop
// the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.InfowCtx(ctx, "Poller starting",
		"interval", p.interval,
		"ledger_size", p.ledger.Size(),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.InfowCtx(ctx, "Poller stopping")
			return nil
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one full cycle. A tick arriving while another is still running
// is skipped rather than queued, so one fetch window is never classified
// twice.
func (p *Poller) Tick(ctx context.Context) {
	if !p.tickMu.TryLock() {
		metrics.PollTicksTotal.WithLabelValues("skipped").Inc()
		p.logger.WarnwCtx(ctx, "Previous tick still running, skipping")
		return
	}
	defer p.tickMu.Unlock()

	transactions, err := p.fetcher.FetchTransactions(ctx)
	if err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to fetch transactions", "error", err)
		transactions = nil
	}

	withdrawals, err := p.fetcher.FetchWithdrawals(ctx)
	if err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to fetch withdrawals", "error", err)
		withdrawals = nil
	}

	events := p.classifier.Classify(transactions, withdrawals, p.ledger)
	if len(events) == 0 {
		p.logger.DebugwCtx(ctx, "No new events")
		// A previous persist failure leaves the ledger dirty; flush it here
		// so the retry does not wait for the next event-bearing tick.
		p.persistLedger(ctx)
		metrics.PollTicksTotal.WithLabelValues("ok").Inc()
		return
	}

	if err := p.sink.BeginTick(ctx); err != nil {
		// Without a subscription snapshot no dispatch is initiated, so no
		// identity may be committed; the same events are redetected next tick.
		p.logger.ErrorwCtx(ctx, "Subscription snapshot unavailable, deferring dispatch", "error", err)
		metrics.PollTicksTotal.WithLabelValues("error").Inc()
		return
	}

	for _, ev := range events {
		evCtx := logging.WithEventID(ctx, ev.Identity.String())
		metrics.EventsDetectedTotal.WithLabelValues(string(ev.Type)).Inc()
		p.logger.InfowCtx(evCtx, "New event detected",
			"event_type", ev.Type,
			"record_id", ev.Identity.RecordID,
		)

		if err := p.sink.HandleEvent(evCtx, ev); err != nil {
			p.logger.ErrorwCtx(evCtx, "Event dispatch not initiated", "error", err)
			continue
		}

		p.ledger.Add(ev.Identity.String())
	}

	p.persistLedger(ctx)

	metrics.SetLedgerSize(p.ledger.Size())
	metrics.PollTicksTotal.WithLabelValues("ok").Inc()
}

func (p *Poller) persistLedger(ctx context.Context) {
	if err := p.ledger.Persist(ctx); err != nil {
		metrics.LedgerPersistFailuresTotal.Inc()
		p.logger.ErrorwCtx(ctx, "Failed to persist ledger", "error", err)
	}
}
