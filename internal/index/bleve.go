package index

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	"github.com/tuforums/chartdex/internal/query"
)

// analyzerName is the lowercase keyword analyzer every text field uses: the
// whole value becomes a single lowercased term, so Term queries give
// case-insensitive whole-value equality and Wildcard queries give
// case-insensitive containment. Values are codec-encoded before they get
// here, so no wildcard metacharacter survives inside a term.
const analyzerName = "keyword_lower"

// rawField stores the JSON source of each document; it is stored but not
// indexed.
const rawField = "raw"

// scrollTTL bounds how long an unreleased cursor keeps its state. Cursors are
// normally closed within a single retrieval call; the TTL only covers leaks.
const scrollTTL = 2 * time.Minute

// nestedRewrite maps a nested-collection query onto the flattened fields the
// backend derives at indexing time. Bleve has no nested query type, so the
// one-to-many collections are projected into per-role and per-kind fields
// whose values preserve the entry-level matching semantics.
type nestedRewrite func(*query.Nested) (query.Node, error)

// bleveIndex is the shared core of the level and pass indexes.
type bleveIndex struct {
	idx    bleve.Index
	nested nestedRewrite

	mu      sync.Mutex
	scrolls map[string]*scrollState
}

type scrollState struct {
	q       blevequery.Query
	sortBy  []string
	size    int
	after   []string
	started bool
	created time.Time
}

func openBleve(path string, newMapping func() (*mapping.IndexMappingImpl, error), nested nestedRewrite) (*bleveIndex, error) {
	var idx bleve.Index
	if _, err := os.Stat(path); err == nil {
		idx, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
	} else {
		im, err := newMapping()
		if err != nil {
			return nil, fmt.Errorf("failed to build index mapping: %w", err)
		}
		idx, err = bleve.New(path, im)
		if err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}
	return &bleveIndex{
		idx:     idx,
		nested:  nested,
		scrolls: make(map[string]*scrollState),
	}, nil
}

// baseMapping returns an index mapping with the lowercase keyword analyzer
// registered and dynamic field mapping disabled, so only explicitly mapped
// fields are searchable.
func baseMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}
	return im, nil
}

// Search runs a direct query with from/size paging.
func (b *bleveIndex) Search(ctx context.Context, q query.Node, sort Sort, from, size int) (*Page, error) {
	bq, err := b.toBleve(q)
	if err != nil {
		return nil, err
	}
	req := bleve.NewSearchRequestOptions(bq, size, from, false)
	req.Fields = []string{rawField}
	if len(sort.Fields) > 0 {
		req.SortBy(sortBy(sort))
	}
	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}
	return pageFromResult(res), nil
}

// Count returns the full match count without fetching documents.
func (b *bleveIndex) Count(ctx context.Context, q query.Node) (uint64, error) {
	bq, err := b.toBleve(q)
	if err != nil {
		return 0, err
	}
	req := bleve.NewSearchRequestOptions(bq, 0, 0, false)
	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("index count failed: %w", err)
	}
	return res.Total, nil
}

// OpenScroll registers a cursor keyed by uuid. The cursor advances with
// search_after under a deterministic sort, which is why a random sort is
// rejected here.
func (b *bleveIndex) OpenScroll(ctx context.Context, q query.Node, sort Sort, size int) (Scroll, error) {
	if sort.Random || len(sort.Fields) == 0 {
		return nil, fmt.Errorf("scroll requires a deterministic sort")
	}
	bq, err := b.toBleve(q)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	b.mu.Lock()
	b.purgeExpiredLocked()
	b.scrolls[id] = &scrollState{
		q:       bq,
		sortBy:  sortBy(sort),
		size:    size,
		created: time.Now(),
	}
	b.mu.Unlock()
	return &bleveScroll{b: b, id: id}, nil
}

func (b *bleveIndex) purgeExpiredLocked() {
	now := time.Now()
	for id, st := range b.scrolls {
		if now.Sub(st.created) > scrollTTL {
			delete(b.scrolls, id)
		}
	}
}

type bleveScroll struct {
	b  *bleveIndex
	id string
}

// Next reads the next page of the cursor's result stream. Returns an empty
// page when the stream is exhausted.
func (s *bleveScroll) Next(ctx context.Context) (*Page, error) {
	s.b.mu.Lock()
	st, ok := s.b.scrolls[s.id]
	s.b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("scroll cursor %s expired or closed", s.id)
	}

	req := bleve.NewSearchRequestOptions(st.q, st.size, 0, false)
	req.Fields = []string{rawField}
	req.SortBy(st.sortBy)
	if st.started {
		if len(st.after) == 0 {
			return &Page{}, nil
		}
		req.SearchAfter = st.after
	}
	res, err := s.b.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scroll advance failed: %w", err)
	}

	st.started = true
	if n := len(res.Hits); n > 0 {
		st.after = res.Hits[n-1].Sort
	} else {
		st.after = nil
	}
	return pageFromResult(res), nil
}

// Close releases the cursor's state.
func (s *bleveScroll) Close(ctx context.Context) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	delete(s.b.scrolls, s.id)
	return nil
}

// DocCount returns the number of indexed documents.
func (b *bleveIndex) DocCount() (uint64, error) {
	return b.idx.DocCount()
}

// Close closes the underlying index.
func (b *bleveIndex) Close() error {
	return b.idx.Close()
}

func pageFromResult(res *bleve.SearchResult) *Page {
	page := &Page{Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		h := Hit{ID: hit.ID}
		if raw, ok := hit.Fields[rawField].(string); ok {
			h.Raw = []byte(raw)
		}
		page.Hits = append(page.Hits, h)
	}
	return page
}

func sortBy(sort Sort) []string {
	out := make([]string, 0, len(sort.Fields))
	for _, f := range sort.Fields {
		if f.Desc {
			out = append(out, "-"+f.Field)
		} else {
			out = append(out, f.Field)
		}
	}
	return out
}

// toBleve translates the compiled AST into bleve's native query types.
func (b *bleveIndex) toBleve(n query.Node) (blevequery.Query, error) {
	switch q := n.(type) {
	case *query.MatchAll:
		return bleve.NewMatchAllQuery(), nil

	case *query.Term:
		tq := blevequery.NewTermQuery(strings.ToLower(q.Value))
		tq.SetField(q.Field)
		return tq, nil

	case *query.Wildcard:
		wq := blevequery.NewWildcardQuery("*" + strings.ToLower(q.Value) + "*")
		wq.SetField(q.Field)
		return wq, nil

	case *query.BoolTerm:
		bq := blevequery.NewBoolFieldQuery(q.Value)
		bq.SetField(q.Field)
		return bq, nil

	case *query.NumericRange:
		incMin, incMax := q.InclusiveMin, q.InclusiveMax
		nq := blevequery.NewNumericRangeInclusiveQuery(q.Min, q.Max, &incMin, &incMax)
		nq.SetField(q.Field)
		return nq, nil

	case *query.In:
		inc := true
		alts := make([]blevequery.Query, 0, len(q.Values))
		for _, v := range q.Values {
			val := float64(v)
			nq := blevequery.NewNumericRangeInclusiveQuery(&val, &val, &inc, &inc)
			nq.SetField(q.Field)
			alts = append(alts, nq)
		}
		return blevequery.NewDisjunctionQuery(alts), nil

	case *query.IDs:
		return blevequery.NewDocIDQuery(q.Values), nil

	case *query.Exists:
		// Non-empty test: empty values are omitted at indexing time, so any
		// term at all means the field holds a value.
		wq := blevequery.NewWildcardQuery("*")
		wq.SetField(q.Field)
		return wq, nil

	case *query.Nested:
		if b.nested == nil {
			return nil, fmt.Errorf("collection has no nested fields (path %q)", q.Path)
		}
		flat, err := b.nested(q)
		if err != nil {
			return nil, err
		}
		return b.toBleve(flat)

	case *query.Bool:
		must, err := b.toBleveList(q.Must)
		if err != nil {
			return nil, err
		}
		should, err := b.toBleveList(q.Should)
		if err != nil {
			return nil, err
		}
		mustNot, err := b.toBleveList(q.MustNot)
		if err != nil {
			return nil, err
		}
		// A pure negation still needs a positive clause to match against.
		if len(must) == 0 && len(should) == 0 {
			must = []blevequery.Query{bleve.NewMatchAllQuery()}
		}
		return blevequery.NewBooleanQuery(must, should, mustNot), nil

	default:
		return nil, fmt.Errorf("unsupported query node %T", n)
	}
}

func (b *bleveIndex) toBleveList(nodes []query.Node) ([]blevequery.Query, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	out := make([]blevequery.Query, 0, len(nodes))
	for _, n := range nodes {
		q, err := b.toBleve(n)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}
