package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		part, total int
		want        float64
	}{
		{0, 0, 0},
		{1, 0, 0},
		{1, 2, 50},
		{1, 3, 33.33},
		{3, 3, 100},
		{2, 3, 66.67},
		{0, 10, 0},
		{5, -1, 0},
		{7, 8, 87.5},
		{1, 7, 14.29},
		{10, 10, 100},
		{999, 1000, 99.9},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.part, tt.total), "Percent(%d, %d)", tt.part, tt.total)
	}
}

func TestCleanTokens(t *testing.T) {
	got := CleanTokens([]string{" TC-1 ", "", "TC" + ListDelimiter + "-2", "   "})
	assert.Equal(t, []string{"TC-1", "TC-2"}, got)

	empty := CleanTokens(nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDedup(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, Dedup([]string{"b", "a", "b", "c", "a"}))
	assert.NotNil(t, Dedup(nil))
}
