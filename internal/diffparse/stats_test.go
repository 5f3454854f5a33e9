package diffparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	stats, err := Stats(simpleDiff)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	assert.Equal(t, "src/main.py", stats[0].Path)
	assert.Equal(t, 2, stats[0].Added)
	assert.Equal(t, 1, stats[0].Deleted)
}

func TestStats_Empty(t *testing.T) {
	stats, err := Stats("  \n")
	require.NoError(t, err)
	assert.Empty(t, stats)
}
