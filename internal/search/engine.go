// Package search is the top of the query pipeline: it parses the raw query,
// resolves difficulty tiers, compiles the boolean query, retrieves a page, and
// decodes the stored documents back into API models.
package search

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/tuforums/chartdex/internal/codec"
	"github.com/tuforums/chartdex/internal/dsl"
	"github.com/tuforums/chartdex/internal/index"
	"github.com/tuforums/chartdex/internal/models"
	"github.com/tuforums/chartdex/internal/query"
	"github.com/tuforums/chartdex/internal/retrieval"
	"github.com/tuforums/chartdex/internal/tier"
)

// LevelEngine answers level searches.
type LevelEngine struct {
	ret   *retrieval.Retriever
	tiers tier.Resolver
	log   *zap.Logger
}

// NewLevelEngine wires a level index, the tier resolver, and retrieval tuning
// into an engine.
func NewLevelEngine(idx index.Searcher, tiers tier.Resolver, log *zap.Logger, cfg retrieval.Config) *LevelEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &LevelEngine{
		ret:   retrieval.New(idx, log, cfg),
		tiers: tiers,
		log:   log,
	}
}

// Search runs a raw query plus filters against the level collection.
func (e *LevelEngine) Search(ctx context.Context, raw string, f models.Filters) (*models.LevelResult, error) {
	tiers, empty, err := e.resolveTiers(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("level search: %w", err)
	}
	// A requested tier constraint that resolves to no tiers can match nothing.
	// Returning early keeps an unknown tier name from degrading into an
	// unconstrained query.
	if empty {
		return &models.LevelResult{Hits: []*models.Level{}}, nil
	}

	groups := dsl.Parse(raw)
	node := query.CompileLevels(groups, f, tiers)
	sort := retrieval.ResolveLevelSort(f.Sort)

	page, err := e.ret.Retrieve(ctx, node, sort, f.Offset, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("level search: %w", err)
	}

	res := &models.LevelResult{
		Hits:  make([]*models.Level, 0, len(page.Hits)),
		Total: page.Total,
	}
	for _, h := range page.Hits {
		var lvl models.Level
		if err := json.Unmarshal(h.Raw, &lvl); err != nil {
			e.log.Error("stored level document is corrupt",
				zap.String("id", h.ID), zap.Error(err))
			return nil, fmt.Errorf("level search: decode document %s: %w", h.ID, err)
		}
		lvl.ApplyText(codec.Decode)
		res.Hits = append(res.Hits, &lvl)
	}
	return res, nil
}

// resolveTiers turns the filter's tier names into id sets. The second return
// is true when a tier constraint was requested but nothing resolved.
func (e *LevelEngine) resolveTiers(ctx context.Context, f models.Filters) (query.TierIDs, bool, error) {
	var out query.TierIDs

	rangeRequested := f.LowDiff != "" || f.HighDiff != ""
	if rangeRequested {
		ids, err := e.tiers.ResolveRange(ctx, f.LowDiff, f.HighDiff)
		if err != nil {
			return out, false, fmt.Errorf("resolve tier range: %w", err)
		}
		out.Range = ids
	}
	if len(f.SpecialDiffs) > 0 {
		ids, err := e.tiers.ResolveNamed(ctx, f.SpecialDiffs)
		if err != nil {
			return out, false, fmt.Errorf("resolve special tiers: %w", err)
		}
		out.Special = ids
	}

	requested := rangeRequested || len(f.SpecialDiffs) > 0
	return out, requested && out.Empty(), nil
}

// PassEngine answers level-clear searches.
type PassEngine struct {
	ret *retrieval.Retriever
	log *zap.Logger
}

// NewPassEngine wires a pass index and retrieval tuning into an engine.
func NewPassEngine(idx index.Searcher, log *zap.Logger, cfg retrieval.Config) *PassEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &PassEngine{ret: retrieval.New(idx, log, cfg), log: log}
}

// Search runs a raw query plus filters against the pass collection.
func (e *PassEngine) Search(ctx context.Context, raw string, f models.Filters) (*models.PassResult, error) {
	groups := dsl.Parse(raw)
	node := query.CompilePasses(groups, f)
	sort := retrieval.ResolvePassSort(f.Sort)

	page, err := e.ret.Retrieve(ctx, node, sort, f.Offset, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("pass search: %w", err)
	}

	res := &models.PassResult{
		Hits:  make([]*models.Pass, 0, len(page.Hits)),
		Total: page.Total,
	}
	for _, h := range page.Hits {
		var p models.Pass
		if err := json.Unmarshal(h.Raw, &p); err != nil {
			e.log.Error("stored pass document is corrupt",
				zap.String("id", h.ID), zap.Error(err))
			return nil, fmt.Errorf("pass search: decode document %s: %w", h.ID, err)
		}
		p.ApplyText(codec.Decode)
		res.Hits = append(res.Hits, &p)
	}
	return res, nil
}
