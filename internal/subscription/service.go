package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"payrelay/internal/detect"
	"payrelay/internal/provider"
	pkgerrors "payrelay/pkg/errors"
)

type Service interface {
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*Subscription, error)
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	UpdateSubscription(ctx context.Context, id string, req UpdateSubscriptionRequest) (*Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	TestDelivery(ctx context.Context, id string) (*TestDeliveryResponse, error)
	SnapshotEnabled(ctx context.Context) ([]Subscription, error)
	Status(ctx context.Context) (*Status, error)
}

// Renderer and Deliverer are the two pieces of the notification pipeline the
// test endpoint borrows. They are satisfied by the notify package and wired
// in at startup.
type Renderer interface {
	Render(template string, ev detect.Event) string
}

type Deliverer interface {
	Deliver(ctx context.Context, url, title, text string) error
}

// ProcessedCounter reports how many events have been committed so far.
type ProcessedCounter interface {
	Size() int
}

type service struct {
	repo            Repository
	renderer        Renderer
	deliverer       Deliverer
	processed       ProcessedCounter
	intervalSeconds int
}

type ServiceOption func(*service)

// WithTestDelivery enables POST /subscriptions/:id/test.
func WithTestDelivery(renderer Renderer, deliverer Deliverer) ServiceOption {
	return func(s *service) {
		s.renderer = renderer
		s.deliverer = deliverer
	}
}

// WithStatusSource feeds the status endpoint from the live relay state.
func WithStatusSource(processed ProcessedCounter, intervalSeconds int) ServiceOption {
	return func(s *service) {
		s.processed = processed
		s.intervalSeconds = intervalSeconds
	}
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*Subscription, error) {
	if err := ValidateSubscription(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	sub := &Subscription{
		ID:        uuid.New().String(),
		Name:      req.Name,
		URL:       req.URL,
		Title:     req.Title,
		Text:      req.Text,
		EventType: req.EventType,
		Filter:    req.Filter,
		Enabled:   getEnabledValue(req.Enabled),
	}

	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		if pkgerrors.IsConflict(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	return sub, nil
}

func (s *service) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return subs, nil
}

func (s *service) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return sub, nil
}

func (s *service) UpdateSubscription(ctx context.Context, id string, req UpdateSubscriptionRequest) (*Subscription, error) {
	if err := ValidateUpdateSubscription(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	applySubscriptionUpdate(sub, req)

	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		if pkgerrors.IsNotFound(err) || pkgerrors.IsConflict(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	return sub, nil
}

func (s *service) DeleteSubscription(ctx context.Context, id string) error {
	if err := s.repo.DeleteSubscription(ctx, id); err != nil {
		if pkgerrors.IsNotFound(err) {
			return err
		}
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return nil
}

// TestDelivery renders the subscription's templates against a synthetic
// record and posts the result to its endpoint. Disabled subscriptions can be
// tested too.
func (s *service) TestDelivery(ctx context.Context, id string) (*TestDeliveryResponse, error) {
	if s.renderer == nil || s.deliverer == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "test delivery not configured")
	}

	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	ev := sampleEvent(sub.EventType)
	resp := &TestDeliveryResponse{
		Title: s.renderer.Render(sub.Title, ev),
		Text:  s.renderer.Render(sub.Text, ev),
	}

	if err := s.deliverer.Deliver(ctx, sub.URL, resp.Title, resp.Text); err != nil {
		resp.Error = err.Error()
		return resp, nil
	}

	resp.Success = true
	return resp, nil
}

func (s *service) SnapshotEnabled(ctx context.Context) ([]Subscription, error) {
	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}

	enabled := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.Enabled {
			enabled = append(enabled, sub)
		}
	}
	return enabled, nil
}

func (s *service) Status(ctx context.Context) (*Status, error) {
	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	status := &Status{
		Running:            s.processed != nil,
		IntervalSeconds:    s.intervalSeconds,
		SubscriptionsCount: len(subs),
	}
	for _, sub := range subs {
		if sub.Enabled {
			status.ActiveSubscriptions++
		}
	}
	if s.processed != nil {
		status.ProcessedCount = s.processed.Size()
	}

	return status, nil
}

// sampleEvent builds the fixed record used by the test endpoint.
func sampleEvent(eventType string) detect.Event {
	id := fmt.Sprintf("TEST-%d", time.Now().UnixMilli())

	switch detect.EventType(eventType) {
	case detect.EventWithdrawalRequested:
		return detect.Event{
			Type:       detect.EventWithdrawalRequested,
			Identity:   detect.Identity{Kind: detect.SubjectWithdrawal, RecordID: id, Suffix: "requested"},
			Withdrawal: &provider.Withdrawal{ID: id, Status: "pending", Amount: 10000},
		}
	case detect.EventWithdrawalApproved:
		return detect.Event{
			Type:       detect.EventWithdrawalApproved,
			Identity:   detect.Identity{Kind: detect.SubjectWithdrawal, RecordID: id, Suffix: "approved"},
			Withdrawal: &provider.Withdrawal{ID: id, Status: "approved", Amount: 10000},
		}
	}

	status := "paid"
	suffix := "paid"
	eventCase := detect.EventSalePaid
	if detect.EventType(eventType) == detect.EventRefund {
		status = "refunded"
		suffix = "refunded"
		eventCase = detect.EventRefund
	}

	return detect.Event{
		Type:     eventCase,
		Identity: detect.Identity{Kind: detect.SubjectTransaction, RecordID: id, Suffix: suffix},
		Transaction: &provider.Transaction{
			ID:     id,
			Status: status,
			Amount: 10000,
			Customer: &provider.Customer{
				Name:     "Cliente Teste",
				Email:    "teste@email.com",
				Document: "123.456.789-00",
			},
			PaymentMethod: "pix",
			Installments:  1,
		},
	}
}

func applySubscriptionUpdate(sub *Subscription, req UpdateSubscriptionRequest) {
	if req.Name != nil {
		sub.Name = *req.Name
	}
	if req.URL != nil {
		sub.URL = *req.URL
	}
	if req.Title != nil {
		sub.Title = *req.Title
	}
	if req.Text != nil {
		sub.Text = *req.Text
	}
	if req.EventType != nil {
		sub.EventType = *req.EventType
	}
	if req.Filter != nil {
		sub.Filter = *req.Filter
	}
	if req.Enabled != nil {
		sub.Enabled = *req.Enabled
	}
}

func getEnabledValue(reqEnabled *bool) bool {
	if reqEnabled == nil {
		return true
	}
	return *reqEnabled
}
