// Package majority finds the most frequent values in a set of votes.
package majority

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// Resolve returns every value that occurs the maximum number of times,
// deduplicated and sorted ascending. Ties yield more than one value.
// An empty input yields an empty, non-nil slice.
func Resolve[V cmp.Ordered](values []V) []V {
	return ResolveFunc(values, cmp.Compare[V])
}

// ResolveFunc is Resolve with a caller supplied ordering.
func ResolveFunc[V comparable](values []V, compare func(a, b V) int) []V {
	if len(values) == 0 {
		return []V{}
	}

	counts := lo.CountValues(values)
	top := lo.Max(lo.Values(counts))

	winners := lo.Filter(lo.Keys(counts), func(v V, _ int) bool {
		return counts[v] == top
	})
	slices.SortFunc(winners, compare)
	return winners
}
