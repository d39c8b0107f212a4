// Package index defines the document search index boundary and provides the
// Bleve-backed implementation. The rest of the system talks to the index only
// through the Searcher and Scroll interfaces, so the retrieval strategies can
// be tested against fakes.
package index

import (
	"context"

	"github.com/tuforums/chartdex/internal/query"
)

// SortField orders results by one field.
type SortField struct {
	Field string
	Desc  bool
}

// Sort is a resolved sort specification: either a random scoring directive or
// an ordered tie-break chain of fields.
type Sort struct {
	Random bool
	Fields []SortField
}

// Hit is one matched document. Raw holds the stored JSON source exactly as it
// was indexed (codec-encoded).
type Hit struct {
	ID  string
	Raw []byte
}

// Page is a slice of the result stream plus the full match count. Total
// always reflects every matching document, not the page size.
type Page struct {
	Hits  []Hit
	Total uint64
}

// Searcher is the read side of the index.
type Searcher interface {
	// Search runs a direct query with from/size paging.
	Search(ctx context.Context, q query.Node, sort Sort, from, size int) (*Page, error)
	// Count returns the number of matching documents without fetching any.
	Count(ctx context.Context, q query.Node) (uint64, error)
	// OpenScroll opens a cursor over the full sorted result stream, reading
	// size hits per advance. The cursor holds index-side state and must be
	// closed on every exit path.
	OpenScroll(ctx context.Context, q query.Node, sort Sort, size int) (Scroll, error)
}

// Scroll is a stateful cursor over a large result set. Next returns an empty
// page once the stream is exhausted.
type Scroll interface {
	Next(ctx context.Context) (*Page, error)
	Close(ctx context.Context) error
}
