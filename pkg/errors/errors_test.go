package errors

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	first := ErrNotFound.WithDetail("message", "subscription 'A' not found")
	second := ErrNotFound.WithDetail("message", "subscription 'B' not found")

	assert.Equal(t, "NOT_FOUND: subscription 'A' not found", first.Error())
	assert.Equal(t, "NOT_FOUND: subscription 'B' not found", second.Error())
	assert.Empty(t, ErrNotFound.Details)
}

func TestWithCauseDoesNotAliasSentinelDetails(t *testing.T) {
	derived := ErrConflict.WithCause(errors.New("duplicate key")).WithDetail("message", "name taken")

	require.Contains(t, derived.Details, "message")
	assert.Empty(t, ErrConflict.Details)
	assert.Nil(t, ErrConflict.Cause)
}

func TestWithDetailConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				err := ErrNotFound.WithDetail("message", fmt.Sprintf("worker %d iteration %d", n, j))
				assert.Equal(t, "NOT_FOUND", err.Code)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, ErrNotFound.Details)
}

func TestDerivedErrorsAreIndependent(t *testing.T) {
	base := ErrValidation.WithDetail("field", "url")
	extended := base.WithDetail("message", "url must be http or https")

	assert.Len(t, base.Details, 1)
	assert.Len(t, extended.Details, 2)
}
