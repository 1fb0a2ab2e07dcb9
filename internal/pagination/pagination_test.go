package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcdonald/savebak/internal/metadata"
)

func makeSaves(numbers ...int) map[int]metadata.Slot {
	saves := make(map[int]metadata.Slot, len(numbers))
	for _, n := range numbers {
		saves[n] = metadata.Slot{SaveNumber: n, Date: "2024-12-15 10:00:00", Description: "save"}
	}
	return saves
}

func saveNumbers(slots []metadata.Slot) []int {
	out := make([]int, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.SaveNumber)
	}
	return out
}

func TestPageSize(t *testing.T) {
	tests := []struct {
		height int
		want   int
	}{
		{height: 8, want: 4},
		{height: 24, want: 20},
		{height: 4, want: 0},
		{height: 2, want: 0},
		{height: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageSize(tt.height), "PageSize(%d)", tt.height)
	}
}

func TestMaxPage(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		height int
		want   int
	}{
		{name: "seven saves four per page", total: 7, height: 8, want: 2},
		{name: "exact fit", total: 8, height: 8, want: 2},
		{name: "single save", total: 1, height: 8, want: 1},
		{name: "no saves", total: 0, height: 8, want: 0},
		{name: "no rows and no saves", total: 0, height: 3, want: 0},
		{name: "no rows with saves", total: 5, height: 3, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxPage(tt.total, tt.height))
		})
	}
}

func TestPageWindow(t *testing.T) {
	saves := makeSaves(1, 2, 3, 4, 5, 6, 7)

	assert.Equal(t, []int{7, 6, 5, 4}, saveNumbers(PageWindow(saves, 1, 8)))
	assert.Equal(t, []int{3, 2, 1}, saveNumbers(PageWindow(saves, 2, 8)))
	assert.Empty(t, PageWindow(saves, 3, 8))
}

func TestPageWindowWithGaps(t *testing.T) {
	saves := makeSaves(1, 2, 3, 4, 6, 7)
	require.Equal(t, 2, MaxPage(len(saves), 8))

	page1 := PageWindow(saves, 1, 8)
	page2 := PageWindow(saves, 2, 8)

	assert.Equal(t, []int{7, 6, 4, 3}, saveNumbers(page1))
	assert.Equal(t, []int{2, 1}, saveNumbers(page2))
}

func TestPageWindowEdgeCases(t *testing.T) {
	assert.Empty(t, PageWindow(nil, 1, 8), "empty collection")
	assert.Empty(t, PageWindow(makeSaves(1, 2), 1, 4), "zero page size")
	assert.Empty(t, PageWindow(makeSaves(1, 2), 0, 8), "page before the first")
}

func TestPageWindowCoversEverySaveOnce(t *testing.T) {
	saves := makeSaves(2, 3, 5, 8, 13, 21, 34, 55, 89)
	height := 7

	seen := make(map[int]int)
	for page := 1; page <= MaxPage(len(saves), height); page++ {
		window := PageWindow(saves, page, height)
		assert.LessOrEqual(t, len(window), PageSize(height))
		for _, s := range window {
			seen[s.SaveNumber]++
		}
	}
	assert.Len(t, seen, len(saves))
	for n, count := range seen {
		assert.Equal(t, 1, count, "save %d listed %d times", n, count)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(0, 3))
	assert.Equal(t, 2, Clamp(2, 3))
	assert.Equal(t, 3, Clamp(9, 3))
	assert.Equal(t, 1, Clamp(1, 0))
}
