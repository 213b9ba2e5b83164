package subscription

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrelay/internal/detect"
	"payrelay/internal/logger"
	pkgerrors "payrelay/pkg/errors"
)

type stubRenderer struct{}

func (stubRenderer) Render(template string, ev detect.Event) string {
	return strings.NewReplacer("{ID}", ev.Identity.RecordID).Replace(template)
}

type stubDeliverer struct {
	url   string
	title string
	text  string
	err   error
}

func (d *stubDeliverer) Deliver(ctx context.Context, url, title, text string) error {
	d.url, d.title, d.text = url, title, text
	return d.err
}

type stubCounter struct{ n int }

func (c stubCounter) Size() int { return c.n }

func newTestService(t *testing.T, opts ...ServiceOption) Service {
	t.Helper()
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "subscriptions.json"), logger.NopLogger())
	require.NoError(t, err)
	return NewService(repo, opts...)
}

func TestService_CreateSubscription(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sub, err := svc.CreateSubscription(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.True(t, sub.Enabled, "enabled defaults to true")
	assert.False(t, sub.CreatedAt.IsZero())

	retrieved, err := svc.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.Name, retrieved.Name)
}

func TestService_CreateSubscription_ExplicitlyDisabled(t *testing.T) {
	svc := newTestService(t)

	disabled := false
	req := validCreateRequest()
	req.Enabled = &disabled

	sub, err := svc.CreateSubscription(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, sub.Enabled)
}

func TestService_CreateSubscription_Validation(t *testing.T) {
	svc := newTestService(t)

	req := validCreateRequest()
	req.EventType = "bogus"

	_, err := svc.CreateSubscription(context.Background(), req)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestService_CreateSubscription_DuplicateName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSubscription(ctx, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.CreateSubscription(ctx, validCreateRequest())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestService_GetSubscription_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetSubscription(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestService_UpdateSubscription_PartialFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sub, err := svc.CreateSubscription(ctx, validCreateRequest())
	require.NoError(t, err)

	newTitle := "Novo título"
	disabled := false
	updated, err := svc.UpdateSubscription(ctx, sub.ID, UpdateSubscriptionRequest{
		Title:   &newTitle,
		Enabled: &disabled,
	})
	require.NoError(t, err)

	assert.Equal(t, newTitle, updated.Title)
	assert.False(t, updated.Enabled)
	assert.Equal(t, sub.Name, updated.Name, "untouched fields survive")
	assert.Equal(t, sub.URL, updated.URL)
}

func TestService_UpdateSubscription_NotFound(t *testing.T) {
	svc := newTestService(t)

	name := "x"
	_, err := svc.UpdateSubscription(context.Background(), "missing", UpdateSubscriptionRequest{Name: &name})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestService_DeleteSubscription(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sub, err := svc.CreateSubscription(ctx, validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSubscription(ctx, sub.ID))

	_, err = svc.GetSubscription(ctx, sub.ID)
	assert.True(t, pkgerrors.IsNotFound(err))

	err = svc.DeleteSubscription(ctx, sub.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestService_SnapshotEnabled(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	enabled := validCreateRequest()
	_, err := svc.CreateSubscription(ctx, enabled)
	require.NoError(t, err)

	off := false
	disabled := validCreateRequest()
	disabled.Name = "disabled-hook"
	disabled.Enabled = &off
	_, err = svc.CreateSubscription(ctx, disabled)
	require.NoError(t, err)

	subs, err := svc.SnapshotEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sales-hook", subs[0].Name)
}

func TestService_Status(t *testing.T) {
	svc := newTestService(t, WithStatusSource(stubCounter{n: 7}, 5))
	ctx := context.Background()

	off := false
	first := validCreateRequest()
	_, err := svc.CreateSubscription(ctx, first)
	require.NoError(t, err)

	second := validCreateRequest()
	second.Name = "other"
	second.Enabled = &off
	_, err = svc.CreateSubscription(ctx, second)
	require.NoError(t, err)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, 5, status.IntervalSeconds)
	assert.Equal(t, 7, status.ProcessedCount)
	assert.Equal(t, 2, status.SubscriptionsCount)
	assert.Equal(t, 1, status.ActiveSubscriptions)
}

func TestService_TestDelivery(t *testing.T) {
	deliverer := &stubDeliverer{}
	svc := newTestService(t, WithTestDelivery(stubRenderer{}, deliverer))
	ctx := context.Background()

	req := validCreateRequest()
	req.Title = "Pedido {ID}"
	req.Text = "Detalhes de {ID}"
	sub, err := svc.CreateSubscription(ctx, req)
	require.NoError(t, err)

	resp, err := svc.TestDelivery(ctx, sub.ID)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.Equal(t, sub.URL, deliverer.url)
	assert.Contains(t, resp.Title, "Pedido TEST-")
	assert.Contains(t, resp.Text, "Detalhes de TEST-")
	assert.Equal(t, resp.Title, deliverer.title)
}

func TestService_TestDelivery_EndpointFailure(t *testing.T) {
	deliverer := &stubDeliverer{err: errors.New("endpoint returned status 500")}
	svc := newTestService(t, WithTestDelivery(stubRenderer{}, deliverer))
	ctx := context.Background()

	sub, err := svc.CreateSubscription(ctx, validCreateRequest())
	require.NoError(t, err)

	resp, err := svc.TestDelivery(ctx, sub.ID)
	require.NoError(t, err, "a failing endpoint is a result, not an API error")
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "500")
	assert.NotEmpty(t, resp.Title, "rendered content is reported even on failure")
}

func TestService_TestDelivery_NotFound(t *testing.T) {
	svc := newTestService(t, WithTestDelivery(stubRenderer{}, &stubDeliverer{}))

	_, err := svc.TestDelivery(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestService_TestDelivery_NotConfigured(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.TestDelivery(context.Background(), "anything")
	assert.Error(t, err)
}
