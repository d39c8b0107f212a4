package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/tuforums/chartdex/internal/models"
)

// PassIndex is the bleve-backed index of the level-clear collection.
type PassIndex struct {
	*bleveIndex
}

// OpenPasses opens or creates the pass index at path.
func OpenPasses(path string) (*PassIndex, error) {
	// Pass documents have no one-to-many collections, so nested queries are
	// rejected by the shared core.
	b, err := openBleve(path, passMapping, nil)
	if err != nil {
		return nil, fmt.Errorf("pass index: %w", err)
	}
	return &PassIndex{bleveIndex: b}, nil
}

// Upsert indexes one pass. Text fields must already be codec-encoded.
func (ix *PassIndex) Upsert(ctx context.Context, p *models.Pass) error {
	doc, err := passDoc(p)
	if err != nil {
		return err
	}
	return ix.idx.Index(strconv.Itoa(p.ID), doc)
}

// UpsertBatch indexes many passes in one batch.
func (ix *PassIndex) UpsertBatch(ctx context.Context, passes []*models.Pass) error {
	batch := ix.idx.NewBatch()
	for _, p := range passes {
		doc, err := passDoc(p)
		if err != nil {
			return err
		}
		if err := batch.Index(strconv.Itoa(p.ID), doc); err != nil {
			return err
		}
	}
	return ix.idx.Batch(batch)
}

// Delete removes a pass from the index.
func (ix *PassIndex) Delete(ctx context.Context, id int) error {
	return ix.idx.Delete(strconv.Itoa(id))
}

func passDoc(p *models.Pass) (map[string]interface{}, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pass %d: %w", p.ID, err)
	}
	doc := map[string]interface{}{
		"id":            p.ID,
		"levelId":       p.LevelID,
		"playerId":      p.PlayerID,
		"player":        p.Player,
		"song":          p.Song,
		"artist":        p.Artist,
		"score":         p.Score,
		"accuracy":      p.Accuracy,
		"speed":         p.Speed,
		"isWorldsFirst": p.IsWorldsFirst,
		"is12K":         p.Is12K,
		"is16K":         p.Is16K,
		"isNoHold":      p.IsNoHold,
		"isDeleted":     p.IsDeleted,
		"date":          p.Date,
		rawField:        string(raw),
	}
	putString(doc, "videoLink", p.VideoLink)
	return doc, nil
}

func passMapping() (*mapping.IndexMappingImpl, error) {
	im, err := baseMapping()
	if err != nil {
		return nil, err
	}

	dm := bleve.NewDocumentMapping()
	dm.Dynamic = false
	for _, f := range []string{"player", "song", "artist", "videoLink"} {
		dm.AddFieldMappingsAt(f, keywordTextField())
	}
	for _, f := range []string{"id", "levelId", "playerId", "score", "accuracy", "speed"} {
		dm.AddFieldMappingsAt(f, numericField())
	}
	for _, f := range []string{"isWorldsFirst", "is12K", "is16K", "isNoHold", "isDeleted"} {
		dm.AddFieldMappingsAt(f, booleanField())
	}
	dm.AddFieldMappingsAt("date", dateField())
	dm.AddFieldMappingsAt(rawField, rawStoredField())

	im.DefaultMapping = dm
	return im, nil
}
