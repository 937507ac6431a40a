package usage_test

import (
	"sync"
	"testing"

	"github.com/queryloom/queryloom/pkg/modeladapter/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Empty(t *testing.T) {
	var tr usage.Tracker

	_, ok := tr.Last()
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Count())
	assert.Equal(t, usage.TokenCount{}, tr.Total())
}

func TestTracker_AddAndTotal(t *testing.T) {
	var tr usage.Tracker

	tr.Add(usage.TokenCount{PromptTokens: 10, CompletionTokens: 5})
	tr.Add(usage.TokenCount{PromptTokens: 20, CompletionTokens: 15})

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, 20, last.PromptTokens)
	assert.Equal(t, 15, last.CompletionTokens)

	total := tr.Total()
	assert.Equal(t, 30, total.PromptTokens)
	assert.Equal(t, 20, total.CompletionTokens)
	assert.Equal(t, 50, total.Total())
	assert.Equal(t, 2, tr.Count())
}

func TestTracker_ConcurrentAdds(t *testing.T) {
	var tr usage.Tracker
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Add(usage.TokenCount{PromptTokens: 1, CompletionTokens: 1})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, tr.Count())
	assert.Equal(t, 100, tr.Total().Total())
}
