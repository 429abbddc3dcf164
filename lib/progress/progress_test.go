package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_IndeterminateUntilTotalsKnown(t *testing.T) {
	agg := NewAggregator()
	assert.True(t, agg.IsIndeterminate())

	publish := agg.Track()
	publish(Token{Processed: 0, Total: 100})
	assert.False(t, agg.IsIndeterminate())
	assert.InDelta(t, 0.0, agg.Fraction(), 1e-9)

	publish(Token{Processed: 50, Total: 100})
	assert.InDelta(t, 0.5, agg.Fraction(), 1e-9)
}

func TestAggregator_SumsAcrossSubtasks(t *testing.T) {
	agg := NewAggregator()
	p1 := agg.Track()
	p2 := agg.Track()

	p1(Token{Processed: 10, Total: 20})
	p2(Token{Processed: 5, Total: 10})

	assert.Equal(t, int64(15), agg.Processed())
	assert.Equal(t, int64(30), agg.Total())
	assert.InDelta(t, 0.5, agg.Fraction(), 1e-9)
}

func TestAggregator_OnCompletedFiresOnceWhenAllDone(t *testing.T) {
	agg := NewAggregator()
	p1 := agg.Track()
	p2 := agg.Track()

	calls := 0
	agg.OnCompleted(func() { calls++ })

	p1(Token{Processed: 10, Total: 10})
	assert.Equal(t, 0, calls, "second subtask not yet complete")

	p2(Token{Processed: 5, Total: 5})
	assert.Equal(t, 1, calls)

	p2(Token{Processed: 5, Total: 5})
	assert.Equal(t, 1, calls, "republishing the same token must not refire")
}

func TestAggregator_OnCompletedRunsImmediatelyIfAlreadyDone(t *testing.T) {
	agg := NewAggregator()
	publish := agg.Track()
	publish(Token{Processed: 1, Total: 1})

	calls := 0
	agg.OnCompleted(func() { calls++ })
	require.Equal(t, 1, calls)
}

func TestAggregator_String(t *testing.T) {
	agg := NewAggregator()
	assert.Equal(t, "0 B/?", agg.String())

	publish := agg.Track()
	publish(Token{Processed: 1024, Total: 2048})
	assert.Equal(t, "1.0 kB/2.0 kB", agg.String())
}
