package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tuforums/chartdex/internal/codec"
	"github.com/tuforums/chartdex/internal/models"
	"github.com/tuforums/chartdex/internal/score"
	"github.com/tuforums/chartdex/internal/tier"
)

// Dump file names expected under the data directory.
const (
	LevelsDump       = "levels.json"
	PassesDump       = "passes.json"
	DifficultiesDump = "difficulties.json"
)

// desertBusDiffID marks the chart whose speed multiplier curve is inverted.
const desertBusDiffID = 64

// TierSeeder replaces the difficulty-tier table contents.
type TierSeeder interface {
	Seed(ctx context.Context, tiers []tier.Tier) error
}

// Stats reports how many documents a dump load wrote.
type Stats struct {
	Levels int
	Passes int
	Tiers  int
}

type tierDump struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	SortOrder int    `json:"sortOrder"`
}

// LoadDumps rebuilds the indices and the tier table from the JSON dumps under
// dataDir. Pass score and accuracy are derived from judgements against the
// owning level, and the earliest live clear of each level gets the
// worlds-first flag. Missing dump files are skipped, not errors, so partial
// data sets load.
func (idx *Indexer) LoadDumps(ctx context.Context, dataDir string, tiers TierSeeder) (Stats, error) {
	var stats Stats

	if tiers != nil {
		n, err := idx.loadTiers(ctx, filepath.Join(dataDir, DifficultiesDump), tiers)
		if err != nil {
			return stats, err
		}
		stats.Tiers = n
	}

	levels, err := readDump[models.Level](filepath.Join(dataDir, LevelsDump))
	if err != nil {
		return stats, err
	}
	byID := make(map[int]*models.Level, len(levels))
	if len(levels) > 0 {
		encoded := make([]*models.Level, len(levels))
		for i := range levels {
			byID[levels[i].ID] = &levels[i]
			enc := cloneLevel(&levels[i])
			enc.ApplyText(codec.Encode)
			encoded[i] = enc
		}
		if err := idx.levels.UpsertBatch(ctx, encoded); err != nil {
			return stats, fmt.Errorf("failed to load level dump: %w", err)
		}
		stats.Levels = len(encoded)
	}

	passes, err := readDump[models.Pass](filepath.Join(dataDir, PassesDump))
	if err != nil {
		return stats, err
	}
	if len(passes) > 0 {
		derivePassFields(passes, byID)
		encoded := make([]*models.Pass, len(passes))
		for i := range passes {
			enc := passes[i]
			enc.ApplyText(codec.Encode)
			encoded[i] = &enc
		}
		if err := idx.passes.UpsertBatch(ctx, encoded); err != nil {
			return stats, fmt.Errorf("failed to load pass dump: %w", err)
		}
		stats.Passes = len(encoded)
	}

	idx.logger.Info("dump load complete",
		zap.String("dir", dataDir),
		zap.Int("levels", stats.Levels),
		zap.Int("passes", stats.Passes),
		zap.Int("tiers", stats.Tiers))
	return stats, nil
}

func (idx *Indexer) loadTiers(ctx context.Context, path string, seeder TierSeeder) (int, error) {
	dumps, err := readDump[tierDump](path)
	if err != nil {
		return 0, err
	}
	if len(dumps) == 0 {
		return 0, nil
	}
	tiers := make([]tier.Tier, len(dumps))
	for i, d := range dumps {
		tiers[i] = tier.Tier{ID: d.ID, Name: d.Name, Type: d.Type, SortOrder: d.SortOrder}
	}
	if err := seeder.Seed(ctx, tiers); err != nil {
		return 0, fmt.Errorf("failed to seed tiers: %w", err)
	}
	return len(tiers), nil
}

// derivePassFields fills accuracy, score, and the worlds-first flag in place.
// Passes over unknown levels keep whatever score the dump carried.
func derivePassFields(passes []models.Pass, levels map[int]*models.Level) {
	for i := range passes {
		p := &passes[i]
		lvl, ok := levels[p.LevelID]
		if !ok {
			continue
		}
		p.Accuracy = score.Accuracy(p.Judgements)
		p.Score = score.ScoreV2(p, lvl.BaseScore, lvl.DiffID == desertBusDiffID)
	}

	// Earliest live clear per level is the world's first.
	firstByLevel := make(map[int]int)
	for i := range passes {
		p := &passes[i]
		p.IsWorldsFirst = false
		if p.IsDeleted {
			continue
		}
		if j, ok := firstByLevel[p.LevelID]; !ok || p.Date.Before(passes[j].Date) {
			firstByLevel[p.LevelID] = i
		}
	}
	for _, i := range firstByLevel {
		passes[i].IsWorldsFirst = true
	}
}

// readDump unmarshals a JSON array dump. A missing file yields an empty
// slice.
func readDump[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dump %s: %w", path, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse dump %s: %w", path, err)
	}
	return out, nil
}
