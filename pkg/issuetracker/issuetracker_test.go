package issuetracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTracker_YieldsIssuesInOrderThenExhausts(t *testing.T) {
	tr := NewMemoryTracker([]Issue{
		{ID: "1", Title: "first"},
		{ID: "2", Title: "second"},
	})
	ctx := context.Background()

	first, ok, err := tr.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, 1, tr.Remaining())

	second, ok, err := tr.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", second.ID)

	_, ok, err = tr.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryTracker_RespectsCancelledContext(t *testing.T) {
	tr := NewMemoryTracker([]Issue{{ID: "1"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := tr.Next(ctx)
	assert.Error(t, err)
}

func TestMemoryTracker_DoesNotShareBackingSliceWithCaller(t *testing.T) {
	issues := []Issue{{ID: "1"}}
	tr := NewMemoryTracker(issues)
	issues[0].ID = "mutated"

	first, _, _ := tr.Next(context.Background())
	assert.Equal(t, "1", first.ID)
}
