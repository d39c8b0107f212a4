// Package retrieval picks and executes the fetch strategy for a search:
// bounded direct paging, deep scroll paging, or random sampling. It also maps
// the closed sort vocabulary onto index sort directives.
package retrieval

import (
	"strings"

	"github.com/tuforums/chartdex/internal/index"
)

// SortRandom is the sort key that triggers the random-sampling strategy on
// either collection.
const SortRandom = "random"

// Level sort keys.
const (
	LevelSortNewest     = "newest"
	LevelSortOldest     = "oldest"
	LevelSortDifficulty = "difficulty"
	LevelSortClears     = "clears"
	LevelSortLikes      = "likes"
	LevelSortRating     = "rating"
)

// Pass sort keys.
const (
	PassSortScore    = "score"
	PassSortAccuracy = "accuracy"
	PassSortDate     = "date"
)

// defaultSort is the fallback for unrecognized keys: identifier descending.
// It is also the terminal tie-breaker of every non-random chain, so ordering
// is deterministic across pages.
var defaultSort = index.Sort{Fields: []index.SortField{{Field: "id", Desc: true}}}

// ResolveLevelSort maps a level sort key to its index sort directive. Unknown
// keys fall back to id-descending rather than erroring.
func ResolveLevelSort(key string) index.Sort {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case SortRandom:
		return index.Sort{Random: true}
	case LevelSortNewest:
		return chain(index.SortField{Field: "createdAt", Desc: true})
	case LevelSortOldest:
		return index.Sort{Fields: []index.SortField{
			{Field: "createdAt"},
			{Field: "id"},
		}}
	case LevelSortDifficulty:
		return chain(
			index.SortField{Field: "diffId", Desc: true},
			index.SortField{Field: "baseScore", Desc: true},
		)
	case LevelSortClears:
		return chain(index.SortField{Field: "clears", Desc: true})
	case LevelSortLikes:
		return chain(index.SortField{Field: "likes", Desc: true})
	case LevelSortRating:
		return chain(index.SortField{Field: "baseScore", Desc: true})
	default:
		return defaultSort
	}
}

// ResolvePassSort maps a pass sort key to its index sort directive, following
// the clear sort priority of the score pipeline (score, accuracy, date).
func ResolvePassSort(key string) index.Sort {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case SortRandom:
		return index.Sort{Random: true}
	case PassSortScore:
		return chain(
			index.SortField{Field: "score", Desc: true},
			index.SortField{Field: "accuracy", Desc: true},
		)
	case PassSortAccuracy:
		return chain(
			index.SortField{Field: "accuracy", Desc: true},
			index.SortField{Field: "score", Desc: true},
		)
	case PassSortDate:
		return chain(index.SortField{Field: "date", Desc: true})
	default:
		return defaultSort
	}
}

// chain appends the stable id tie-breaker to the given fields.
func chain(fields ...index.SortField) index.Sort {
	return index.Sort{Fields: append(fields, index.SortField{Field: "id", Desc: true})}
}
