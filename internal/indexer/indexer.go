// Package indexer writes level and pass documents into the search indices.
// All text passes through the codec on the way in, so the index only ever
// sees the substitution alphabet.
package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tuforums/chartdex/internal/codec"
	"github.com/tuforums/chartdex/internal/models"
)

// LevelWriter is the write side of the level index.
type LevelWriter interface {
	Upsert(ctx context.Context, l *models.Level) error
	UpsertBatch(ctx context.Context, levels []*models.Level) error
	Delete(ctx context.Context, id int) error
}

// PassWriter is the write side of the pass index.
type PassWriter interface {
	Upsert(ctx context.Context, p *models.Pass) error
	UpsertBatch(ctx context.Context, passes []*models.Pass) error
	Delete(ctx context.Context, id int) error
}

// Indexer encodes documents and writes them to the indices.
type Indexer struct {
	levels LevelWriter
	passes PassWriter
	logger *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer over the two index write sides.
func NewIndexer(levels LevelWriter, passes PassWriter, opts ...IndexerOption) *Indexer {
	idx := &Indexer{levels: levels, passes: passes, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexLevel encodes and upserts one level. The caller's document is not
// mutated.
func (idx *Indexer) IndexLevel(ctx context.Context, l *models.Level) error {
	enc := cloneLevel(l)
	enc.ApplyText(codec.Encode)
	if err := idx.levels.Upsert(ctx, enc); err != nil {
		return fmt.Errorf("failed to index level %d: %w", l.ID, err)
	}
	idx.logger.Debug("level indexed", zap.Int("id", l.ID))
	return nil
}

// IndexPass encodes and upserts one pass. The caller's document is not
// mutated.
func (idx *Indexer) IndexPass(ctx context.Context, p *models.Pass) error {
	enc := *p
	enc.ApplyText(codec.Encode)
	if err := idx.passes.Upsert(ctx, &enc); err != nil {
		return fmt.Errorf("failed to index pass %d: %w", p.ID, err)
	}
	idx.logger.Debug("pass indexed", zap.Int("id", p.ID))
	return nil
}

// DeleteLevel removes a level from the index.
func (idx *Indexer) DeleteLevel(ctx context.Context, id int) error {
	if err := idx.levels.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete level %d: %w", id, err)
	}
	idx.logger.Debug("level deleted", zap.Int("id", id))
	return nil
}

// DeletePass removes a pass from the index.
func (idx *Indexer) DeletePass(ctx context.Context, id int) error {
	if err := idx.passes.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete pass %d: %w", id, err)
	}
	idx.logger.Debug("pass deleted", zap.Int("id", id))
	return nil
}

// cloneLevel deep-copies the alias lists, credits, and team so in-place
// encoding cannot leak into the caller's document.
func cloneLevel(l *models.Level) *models.Level {
	clone := *l
	clone.Aliases = append([]string(nil), l.Aliases...)
	if l.Credits != nil {
		clone.Credits = make([]models.Credit, len(l.Credits))
		for i, c := range l.Credits {
			clone.Credits[i] = c
			clone.Credits[i].Aliases = append([]string(nil), c.Aliases...)
		}
	}
	if l.Team != nil {
		team := *l.Team
		team.Aliases = append([]string(nil), l.Team.Aliases...)
		clone.Team = &team
	}
	return &clone
}
