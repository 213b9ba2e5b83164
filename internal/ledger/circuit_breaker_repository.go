package ledger

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"

	"payrelay/internal/config"
	"payrelay/pkg/circuitbreaker"
	pkgerrors "payrelay/pkg/errors"
)

// CircuitBreakerStore shields the poll loop from a misbehaving ledger
// backend. With the breaker open, Save fails fast and the in-memory ledger
// stays authoritative.
type CircuitBreakerStore struct {
	store Store
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerStore(store Store, cfg config.CircuitBreakerConfig) *CircuitBreakerStore {
	if !cfg.Enabled {
		return &CircuitBreakerStore{
			store: store,
			cb:    nil,
		}
	}

	cbConfig := circuitbreaker.DefaultConfig("ledger-store")
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		}
	}

	return &CircuitBreakerStore{
		store: store,
		cb:    circuitbreaker.NewWrapper(cbConfig),
	}
}

func (s *CircuitBreakerStore) Load(ctx context.Context) ([]string, error) {
	if s.cb == nil {
		return s.store.Load(ctx)
	}

	result, err := s.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return s.store.Load(ctx)
	})

	s.cb.RecordRequest(err == nil)

	if err != nil {
		if s.cb.IsOpen() {
			return nil, pkgerrors.ErrServiceUnavailable.WithCause(err).
				WithDetail("message", "circuit breaker is open for ledger-store")
		}
		return nil, err
	}

	ids, ok := result.([]string)
	if !ok {
		return nil, fmt.Errorf("store returned invalid result type")
	}

	return ids, nil
}

func (s *CircuitBreakerStore) Save(ctx context.Context, ids []string) error {
	if s.cb == nil {
		return s.store.Save(ctx, ids)
	}

	_, err := s.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, s.store.Save(ctx, ids)
	})

	s.cb.RecordRequest(err == nil)

	if err != nil {
		if s.cb.IsOpen() {
			return pkgerrors.ErrServiceUnavailable.WithCause(err).
				WithDetail("message", "circuit breaker is open for ledger-store")
		}
		return err
	}

	return nil
}

func (s *CircuitBreakerStore) IsOpen() bool {
	if s.cb == nil {
		return false
	}
	return s.cb.IsOpen()
}
