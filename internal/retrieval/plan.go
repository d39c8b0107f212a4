package retrieval

import "github.com/tuforums/chartdex/internal/index"

// Strategy is one of the three ways a page can be fetched from the index.
type Strategy int

const (
	// StrategyBounded is a single direct query with from/size paging, valid
	// while offset+limit stays inside the index's direct result window.
	StrategyBounded Strategy = iota
	// StrategyScroll reads the result stream through a server-side cursor and
	// slices the requested page locally; needed past the direct window.
	StrategyScroll
	// StrategyRandom samples documents at random offsets. The index cannot
	// produce a globally random order efficiently, so randomness comes from
	// the offsets, not the sort.
	StrategyRandom
)

func (s Strategy) String() string {
	switch s {
	case StrategyScroll:
		return "scroll"
	case StrategyRandom:
		return "random"
	default:
		return "bounded"
	}
}

// Plan decides the fetch strategy from the resolved sort and the requested
// page. Random sort always wins, regardless of offset and limit.
func Plan(sort index.Sort, offset, limit, window int) Strategy {
	if sort.Random {
		return StrategyRandom
	}
	if offset+limit > window {
		return StrategyScroll
	}
	return StrategyBounded
}
