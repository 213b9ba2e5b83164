package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrelay/internal/logger"
)

type stubStore struct {
	loaded    []string
	loadErr   error
	saved     [][]string
	saveErr   error
	saveCalls int
}

func (s *stubStore) Load(ctx context.Context) ([]string, error) {
	return s.loaded, s.loadErr
}

func (s *stubStore) Save(ctx context.Context, ids []string) error {
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, ids)
	return nil
}

func TestLedger_LoadAndContains(t *testing.T) {
	store := &stubStore{loaded: []string{"transaction-T1-paid", "withdrawal-W1-approved"}}
	l := NewLedger(store, logger.NopLogger())
	l.Load(context.Background())

	assert.True(t, l.Contains("transaction-T1-paid"))
	assert.True(t, l.Contains("withdrawal-W1-approved"))
	assert.False(t, l.Contains("transaction-T2-paid"))
	assert.Equal(t, 2, l.Size())
}

func TestLedger_LoadErrorStartsEmpty(t *testing.T) {
	store := &stubStore{loadErr: errors.New("backend down")}
	l := NewLedger(store, logger.NopLogger())
	l.Load(context.Background())

	assert.Equal(t, 0, l.Size())
}

func TestLedger_PersistOnlyWhenDirty(t *testing.T) {
	store := &stubStore{}
	l := NewLedger(store, logger.NopLogger())
	ctx := context.Background()

	require.NoError(t, l.Persist(ctx))
	assert.Equal(t, 0, store.saveCalls, "clean ledger must not hit the store")

	l.Add("transaction-T1-paid")
	require.NoError(t, l.Persist(ctx))
	assert.Equal(t, 1, store.saveCalls)

	require.NoError(t, l.Persist(ctx))
	assert.Equal(t, 1, store.saveCalls, "persist clears the dirty flag")

	l.Add("transaction-T1-paid")
	require.NoError(t, l.Persist(ctx))
	assert.Equal(t, 1, store.saveCalls, "re-adding an existing id is not a change")
}

func TestLedger_PersistWritesSortedSnapshot(t *testing.T) {
	store := &stubStore{}
	l := NewLedger(store, logger.NopLogger())

	l.Add("withdrawal-W1-requested")
	l.Add("transaction-T1-paid")
	l.Add("transaction-A1-refunded")

	require.NoError(t, l.Persist(context.Background()))
	require.Len(t, store.saved, 1)
	assert.Equal(t, []string{
		"transaction-A1-refunded",
		"transaction-T1-paid",
		"withdrawal-W1-requested",
	}, store.saved[0])
}

func TestLedger_PersistFailureKeepsDirty(t *testing.T) {
	store := &stubStore{saveErr: errors.New("write failed")}
	l := NewLedger(store, logger.NopLogger())
	ctx := context.Background()

	l.Add("transaction-T1-paid")
	require.Error(t, l.Persist(ctx))
	assert.True(t, l.Contains("transaction-T1-paid"))

	store.saveErr = nil
	require.NoError(t, l.Persist(ctx))
	require.Len(t, store.saved, 1)
	assert.Equal(t, []string{"transaction-T1-paid"}, store.saved[0])
}
