package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrelay/internal/ledger"
	"payrelay/internal/logger"
)

func TestRedisStore_RoundTrip(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true)

	store := ledger.NewRedisStore(infra.RedisClient)
	ctx := context.Background()

	ids := []string{
		"transaction-T1-paid",
		"transaction-T2-refunded",
		"withdrawal-W1-approved",
	}
	require.NoError(t, store.Save(ctx, ids))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, loaded)
}

func TestRedisStore_EmptyKey(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true)

	store := ledger.NewRedisStore(infra.RedisClient)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestRedisStore_SaveIsIdempotent(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true)

	store := ledger.NewRedisStore(infra.RedisClient)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []string{"transaction-T1-paid"}))
	require.NoError(t, store.Save(ctx, []string{"transaction-T1-paid", "transaction-T2-paid"}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"transaction-T1-paid", "transaction-T2-paid"}, loaded)
}

func TestLedger_RestartSurvivesWithRedis(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true)
	ctx := context.Background()

	store := ledger.NewRedisStore(infra.RedisClient)
	first := ledger.NewLedger(store, logger.NopLogger())
	first.Load(ctx)

	first.Add("transaction-T1-paid")
	first.Add("withdrawal-W1-requested")
	require.NoError(t, first.Persist(ctx))

	// A fresh instance against the same backend sees the committed set.
	second := ledger.NewLedger(ledger.NewRedisStore(infra.RedisClient), logger.NopLogger())
	second.Load(ctx)

	assert.True(t, second.Contains("transaction-T1-paid"))
	assert.True(t, second.Contains("withdrawal-W1-requested"))
	assert.Equal(t, 2, second.Size())
}
