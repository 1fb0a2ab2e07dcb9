// Package pagination splits the save list into screen-sized pages, newest
// save first. Functions here are pure; page numbers are clamped by callers.
package pagination

import (
	"sort"

	"github.com/jmcdonald/savebak/internal/metadata"
)

// ReservedRows is the number of display rows kept for headers and prompts.
const ReservedRows = 4

// PageSize returns how many saves fit on a display of the given height.
func PageSize(displayHeight int) int {
	return max(displayHeight-ReservedRows, 0)
}

// MaxPage returns the number of pages needed for totalSaves.
// A display too small to show any rows still has one (empty) page when
// there are saves, so callers always have somewhere to land.
func MaxPage(totalSaves, displayHeight int) int {
	if totalSaves <= 0 {
		return 0
	}
	size := PageSize(displayHeight)
	if size == 0 {
		return 1
	}
	return (totalSaves + size - 1) / size
}

// PageWindow returns the saves shown on page (1-based), ordered by save
// number descending. Missing save numbers are skipped, so every page but the
// last is full.
//
// Pages are cut by rank, not by walking down from save number len(saves):
// with a gap that walk would leave the newest saves off every page.
func PageWindow(saves map[int]metadata.Slot, page, displayHeight int) []metadata.Slot {
	size := PageSize(displayHeight)
	if len(saves) == 0 || size == 0 || page < 1 {
		return nil
	}

	numbers := make([]int, 0, len(saves))
	for n := range saves {
		numbers = append(numbers, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(numbers)))

	start := size * (page - 1)
	if start >= len(numbers) {
		return nil
	}
	end := min(start+size, len(numbers))

	window := make([]metadata.Slot, 0, end-start)
	for _, n := range numbers[start:end] {
		window = append(window, saves[n])
	}
	return window
}

// Clamp limits page to [1, max(maxPage, 1)].
func Clamp(page, maxPage int) int {
	return max(1, min(page, maxPage))
}
