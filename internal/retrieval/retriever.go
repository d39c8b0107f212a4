package retrieval

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tuforums/chartdex/internal/index"
	"github.com/tuforums/chartdex/internal/query"
)

// Clamping bounds. Applied silently before any index call.
const (
	maxOffset = math.MaxInt32
	maxLimit  = 100
)

// Config tunes the retrieval strategies.
type Config struct {
	// MaxResultWindow is the largest offset+limit the index serves directly.
	MaxResultWindow int
	// ScrollPageSize is the cursor read size for the scroll strategy.
	ScrollPageSize int
	// MaxScrollPages caps cursor advances, bounding worst-case cost when the
	// match set is far larger than the requested page.
	MaxScrollPages int
}

// DefaultConfig matches the limits of common search engines.
var DefaultConfig = Config{
	MaxResultWindow: 10000,
	ScrollPageSize:  1000,
	MaxScrollPages:  200,
}

// Retriever executes a compiled query against the index using whichever
// strategy the requested page calls for. It performs no internal retries;
// index failures propagate to the caller.
type Retriever struct {
	idx index.Searcher
	log *zap.Logger
	cfg Config
}

// New creates a retriever. Zero config fields take their defaults.
func New(idx index.Searcher, log *zap.Logger, cfg Config) *Retriever {
	if cfg.MaxResultWindow <= 0 {
		cfg.MaxResultWindow = DefaultConfig.MaxResultWindow
	}
	if cfg.ScrollPageSize <= 0 {
		cfg.ScrollPageSize = DefaultConfig.ScrollPageSize
	}
	if cfg.MaxScrollPages <= 0 {
		cfg.MaxScrollPages = DefaultConfig.MaxScrollPages
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{idx: idx, log: log, cfg: cfg}
}

// Retrieve fetches one page of results plus the full match count. Offset and
// limit are clamped, never rejected.
func (r *Retriever) Retrieve(ctx context.Context, q query.Node, sort index.Sort, offset, limit int) (*index.Page, error) {
	offset = clampOffset(offset)
	limit = clampLimit(limit)

	switch Plan(sort, offset, limit, r.cfg.MaxResultWindow) {
	case StrategyRandom:
		return r.randomPage(ctx, q, limit)
	case StrategyScroll:
		return r.scrollPage(ctx, q, sort, offset, limit)
	default:
		return r.boundedPage(ctx, q, sort, offset, limit)
	}
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func (r *Retriever) boundedPage(ctx context.Context, q query.Node, sort index.Sort, offset, limit int) (*index.Page, error) {
	page, err := r.idx.Search(ctx, q, sort, offset, limit)
	if err != nil {
		r.log.Error("bounded retrieval failed",
			zap.String("strategy", StrategyBounded.String()),
			zap.Int("offset", offset), zap.Int("limit", limit),
			zap.Error(err))
		return nil, fmt.Errorf("bounded retrieval: %w", err)
	}
	return page, nil
}

// scrollPage reads the sorted result stream through a cursor until it covers
// offset+limit, then slices the requested page locally. The cursor is
// released on every exit path; a failed release is logged but never escalated
// because the page has already been produced.
func (r *Retriever) scrollPage(ctx context.Context, q query.Node, sort index.Sort, offset, limit int) (*index.Page, error) {
	want := offset + limit
	size := r.cfg.ScrollPageSize
	if want < size {
		size = want
	}

	sc, err := r.idx.OpenScroll(ctx, q, sort, size)
	if err != nil {
		r.log.Error("scroll open failed",
			zap.String("strategy", StrategyScroll.String()),
			zap.Int("offset", offset), zap.Int("limit", limit),
			zap.Error(err))
		return nil, fmt.Errorf("scroll retrieval: %w", err)
	}
	defer func() {
		if cerr := sc.Close(context.WithoutCancel(ctx)); cerr != nil {
			r.log.Warn("scroll cursor release failed", zap.Error(cerr))
		}
	}()

	var (
		hits  []index.Hit
		total uint64
	)
	for pages := 0; pages < r.cfg.MaxScrollPages; pages++ {
		page, err := sc.Next(ctx)
		if err != nil {
			r.log.Error("scroll advance failed",
				zap.String("strategy", StrategyScroll.String()),
				zap.Int("offset", offset), zap.Int("limit", limit),
				zap.Int("accumulated", len(hits)),
				zap.Error(err))
			return nil, fmt.Errorf("scroll retrieval: %w", err)
		}
		total = page.Total
		if len(page.Hits) == 0 {
			break
		}
		hits = append(hits, page.Hits...)
		if len(hits) >= want {
			break
		}
	}

	if offset >= len(hits) {
		return &index.Page{Total: total}, nil
	}
	end := want
	if end > len(hits) {
		end = len(hits)
	}
	return &index.Page{Hits: hits[offset:end], Total: total}, nil
}

// randomPage samples up to limit documents at distinct random offsets under
// the engine's default document order. Draws are distinct, but a concurrent
// write between the count and the fetches can still surface one document at
// two offsets; that race is inherited behavior and is not guarded here.
func (r *Retriever) randomPage(ctx context.Context, q query.Node, limit int) (*index.Page, error) {
	count, err := r.idx.Count(ctx, q)
	if err != nil {
		r.log.Error("random count failed",
			zap.String("strategy", StrategyRandom.String()),
			zap.Int("limit", limit),
			zap.Error(err))
		return nil, fmt.Errorf("random retrieval: %w", err)
	}
	if count == 0 {
		return &index.Page{}, nil
	}

	total := int(count)
	if count > maxOffset {
		total = maxOffset
	}

	var offsets []int
	if total <= limit {
		offsets = make([]int, total)
		for i := range offsets {
			offsets[i] = i
		}
	} else {
		seen := make(map[int]struct{}, limit)
		for len(offsets) < limit {
			v := rand.IntN(total)
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			offsets = append(offsets, v)
		}
	}

	// Independent read-only singleton fetches with no ordering dependency;
	// limit <= 100 bounds the fan-out.
	results := make([]*index.Hit, len(offsets))
	g, gctx := errgroup.WithContext(ctx)
	for i, off := range offsets {
		g.Go(func() error {
			page, err := r.idx.Search(gctx, q, index.Sort{}, off, 1)
			if err != nil {
				return fmt.Errorf("random fetch at offset %d: %w", off, err)
			}
			if len(page.Hits) > 0 {
				results[i] = &page.Hits[0]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.log.Error("random retrieval failed",
			zap.String("strategy", StrategyRandom.String()),
			zap.Int("limit", limit),
			zap.Error(err))
		return nil, fmt.Errorf("random retrieval: %w", err)
	}

	page := &index.Page{Total: count}
	for _, h := range results {
		if h != nil {
			page.Hits = append(page.Hits, *h)
		}
	}
	return page, nil
}
