package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/tuforums/chartdex/internal/models"
	"github.com/tuforums/chartdex/internal/query"
)

// Derived fields the level documents carry so nested credit queries can be
// answered without a nested query type: the credit list is projected into
// per-role name lists at indexing time, which preserves the "name and role in
// the same entry" semantics exactly.
const (
	fieldCreditNames   = "creditNames"
	fieldCreditAliases = "creditAliases"
	fieldCharterNames  = "charterNames"
	fieldVfxerNames    = "vfxerNames"
	fieldHasUnverified = "hasUnverifiedCredit"
)

// LevelIndex is the bleve-backed index of the level collection.
type LevelIndex struct {
	*bleveIndex
}

// OpenLevels opens or creates the level index at path.
func OpenLevels(path string) (*LevelIndex, error) {
	b, err := openBleve(path, levelMapping, rewriteLevelNested)
	if err != nil {
		return nil, fmt.Errorf("level index: %w", err)
	}
	return &LevelIndex{bleveIndex: b}, nil
}

// Upsert indexes one level. The level's text fields must already be
// codec-encoded; the stored raw source keeps the encoded form.
func (ix *LevelIndex) Upsert(ctx context.Context, l *models.Level) error {
	doc, err := levelDoc(l)
	if err != nil {
		return err
	}
	return ix.idx.Index(strconv.Itoa(l.ID), doc)
}

// UpsertBatch indexes many levels in one batch.
func (ix *LevelIndex) UpsertBatch(ctx context.Context, levels []*models.Level) error {
	batch := ix.idx.NewBatch()
	for _, l := range levels {
		doc, err := levelDoc(l)
		if err != nil {
			return err
		}
		if err := batch.Index(strconv.Itoa(l.ID), doc); err != nil {
			return err
		}
	}
	return ix.idx.Batch(batch)
}

// Delete removes a level from the index.
func (ix *LevelIndex) Delete(ctx context.Context, id int) error {
	return ix.idx.Delete(strconv.Itoa(id))
}

func levelDoc(l *models.Level) (map[string]interface{}, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal level %d: %w", l.ID, err)
	}

	var (
		creditNames   []string
		creditAliases []string
		charterNames  []string
		vfxerNames    []string
		hasUnverified bool
	)
	for _, c := range l.Credits {
		creditNames = append(creditNames, c.Name)
		creditAliases = append(creditAliases, c.Aliases...)
		switch c.Role {
		case models.RoleCharter:
			charterNames = append(charterNames, c.Name)
		case models.RoleVfxer:
			vfxerNames = append(vfxerNames, c.Name)
		}
		if !c.Verified {
			hasUnverified = true
		}
	}

	doc := map[string]interface{}{
		"id":                     l.ID,
		"song":                   l.Song,
		"artist":                 l.Artist,
		"creator":                l.Creator,
		"diffId":                 l.DiffID,
		"baseScore":              l.BaseScore,
		"clears":                 l.Clears,
		"likes":                  l.Likes,
		"isDeleted":              l.IsDeleted,
		"isHidden":               l.IsHidden,
		query.LevelFieldExternal: l.IsExternal,
		fieldHasUnverified:       hasUnverified,
		"createdAt":              l.CreatedAt,
		rawField:                 string(raw),
	}
	putStrings(doc, query.LevelFieldAliases, l.Aliases)
	putStrings(doc, fieldCreditNames, creditNames)
	putStrings(doc, fieldCreditAliases, creditAliases)
	putStrings(doc, fieldCharterNames, charterNames)
	putStrings(doc, fieldVfxerNames, vfxerNames)
	putString(doc, query.LevelFieldDLLink, l.DLLink)
	putString(doc, query.LevelFieldLegacyLink, l.LegacyLink)
	putString(doc, query.LevelFieldVideoLink, l.VideoLink)
	putString(doc, query.LevelFieldWorkshopLink, l.WorkshopLink)
	if l.Team != nil {
		team := map[string]interface{}{"name": l.Team.Name}
		putStrings(team, "aliases", l.Team.Aliases)
		doc["team"] = team
	}
	return doc, nil
}

// putString omits empty values so the existence test (any term at all) means
// "holds a non-empty value".
func putString(doc map[string]interface{}, field, v string) {
	if v != "" {
		doc[field] = v
	}
}

func putStrings(doc map[string]interface{}, field string, vs []string) {
	if len(vs) > 0 {
		doc[field] = vs
	}
}

// rewriteLevelNested flattens a nested credit or alias query onto the derived
// fields. Only the shapes the compiler emits are supported; anything else is
// a programming error worth surfacing.
func rewriteLevelNested(n *query.Nested) (query.Node, error) {
	if n.Path != query.NestedPathCredits {
		return nil, fmt.Errorf("unsupported nested path %q", n.Path)
	}
	switch inner := n.Query.(type) {
	case *query.Term:
		if f, ok := creditField(inner.Field); ok {
			return &query.Term{Field: f, Value: inner.Value}, nil
		}
	case *query.Wildcard:
		if f, ok := creditField(inner.Field); ok {
			return &query.Wildcard{Field: f, Value: inner.Value}, nil
		}
	case *query.BoolTerm:
		if inner.Field == query.CreditFieldVerified && !inner.Value {
			return &query.BoolTerm{Field: fieldHasUnverified, Value: true}, nil
		}
	case *query.Bool:
		if flat, ok := roleScopedName(inner); ok {
			return flat, nil
		}
	}
	return nil, fmt.Errorf("unsupported nested credit query %T", n.Query)
}

func creditField(inner string) (string, bool) {
	switch inner {
	case query.CreditFieldName:
		return fieldCreditNames, true
	case query.CreditFieldAliases:
		return fieldCreditAliases, true
	}
	return "", false
}

// roleScopedName recognizes the "name matches AND role equals" conjunction
// and maps it onto the per-role name list, which guarantees both constraints
// hold within a single credit entry.
func roleScopedName(b *query.Bool) (query.Node, bool) {
	if len(b.Must) != 2 || len(b.Should) != 0 || len(b.MustNot) != 0 {
		return nil, false
	}
	var nameMatch query.Node
	var role string
	for _, m := range b.Must {
		switch q := m.(type) {
		case *query.Term:
			switch q.Field {
			case query.CreditFieldName:
				nameMatch = q
			case query.CreditFieldRole:
				role = q.Value
			}
		case *query.Wildcard:
			if q.Field == query.CreditFieldName {
				nameMatch = q
			}
		}
	}
	if nameMatch == nil || role == "" {
		return nil, false
	}
	var field string
	switch role {
	case models.RoleCharter:
		field = fieldCharterNames
	case models.RoleVfxer:
		field = fieldVfxerNames
	default:
		return nil, false
	}
	switch q := nameMatch.(type) {
	case *query.Term:
		return &query.Term{Field: field, Value: q.Value}, true
	case *query.Wildcard:
		return &query.Wildcard{Field: field, Value: q.Value}, true
	}
	return nil, false
}

func levelMapping() (*mapping.IndexMappingImpl, error) {
	im, err := baseMapping()
	if err != nil {
		return nil, err
	}

	dm := bleve.NewDocumentMapping()
	dm.Dynamic = false
	for _, f := range []string{
		"song", "artist", "creator",
		query.LevelFieldAliases,
		fieldCreditNames, fieldCreditAliases, fieldCharterNames, fieldVfxerNames,
		query.LevelFieldDLLink, query.LevelFieldLegacyLink,
		query.LevelFieldVideoLink, query.LevelFieldWorkshopLink,
	} {
		dm.AddFieldMappingsAt(f, keywordTextField())
	}
	for _, f := range []string{"id", "diffId", "baseScore", "clears", "likes"} {
		dm.AddFieldMappingsAt(f, numericField())
	}
	for _, f := range []string{
		"isDeleted", "isHidden", query.LevelFieldExternal, fieldHasUnverified,
	} {
		dm.AddFieldMappingsAt(f, booleanField())
	}
	dm.AddFieldMappingsAt("createdAt", dateField())
	dm.AddFieldMappingsAt(rawField, rawStoredField())

	team := bleve.NewDocumentMapping()
	team.Dynamic = false
	team.AddFieldMappingsAt("name", keywordTextField())
	team.AddFieldMappingsAt("aliases", keywordTextField())
	dm.AddSubDocumentMapping("team", team)

	im.DefaultMapping = dm
	return im, nil
}

func keywordTextField() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = analyzerName
	fm.Store = false
	fm.IncludeInAll = false
	fm.IncludeTermVectors = false
	return fm
}

func numericField() *mapping.FieldMapping {
	fm := bleve.NewNumericFieldMapping()
	fm.Store = false
	fm.IncludeInAll = false
	return fm
}

func booleanField() *mapping.FieldMapping {
	fm := bleve.NewBooleanFieldMapping()
	fm.Store = false
	fm.IncludeInAll = false
	return fm
}

func dateField() *mapping.FieldMapping {
	fm := bleve.NewDateTimeFieldMapping()
	fm.Store = false
	fm.IncludeInAll = false
	return fm
}

func rawStoredField() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Index = false
	fm.Store = true
	fm.IncludeInAll = false
	return fm
}
