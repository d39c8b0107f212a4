package index

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tuforums/chartdex/internal/models"
	"github.com/tuforums/chartdex/internal/query"
)

func TestRewriteLevelNested(t *testing.T) {
	tests := []struct {
		name string
		in   *query.Nested
		want query.Node
	}{
		{
			"credit name wildcard",
			&query.Nested{Path: query.NestedPathCredits,
				Query: &query.Wildcard{Field: query.CreditFieldName, Value: "bob"}},
			&query.Wildcard{Field: fieldCreditNames, Value: "bob"},
		},
		{
			"credit alias wildcard",
			&query.Nested{Path: query.NestedPathCredits,
				Query: &query.Wildcard{Field: query.CreditFieldAliases, Value: "bobby"}},
			&query.Wildcard{Field: fieldCreditAliases, Value: "bobby"},
		},
		{
			"unverified credit flag",
			&query.Nested{Path: query.NestedPathCredits,
				Query: &query.BoolTerm{Field: query.CreditFieldVerified, Value: false}},
			&query.BoolTerm{Field: fieldHasUnverified, Value: true},
		},
		{
			"charter-scoped exact name",
			&query.Nested{Path: query.NestedPathCredits,
				Query: &query.Bool{Must: []query.Node{
					&query.Term{Field: query.CreditFieldName, Value: "alice"},
					&query.Term{Field: query.CreditFieldRole, Value: models.RoleCharter},
				}}},
			&query.Term{Field: fieldCharterNames, Value: "alice"},
		},
		{
			"vfxer-scoped contains name",
			&query.Nested{Path: query.NestedPathCredits,
				Query: &query.Bool{Must: []query.Node{
					&query.Wildcard{Field: query.CreditFieldName, Value: "bob"},
					&query.Term{Field: query.CreditFieldRole, Value: models.RoleVfxer},
				}}},
			&query.Wildcard{Field: fieldVfxerNames, Value: "bob"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rewriteLevelNested(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRewriteLevelNestedRejectsUnknownShapes(t *testing.T) {
	if _, err := rewriteLevelNested(&query.Nested{Path: "likes", Query: &query.MatchAll{}}); err == nil {
		t.Error("unknown path should be rejected")
	}
	if _, err := rewriteLevelNested(&query.Nested{Path: query.NestedPathCredits,
		Query: &query.MatchAll{}}); err == nil {
		t.Error("unsupported inner query should be rejected")
	}
}

func TestSortByTranslation(t *testing.T) {
	got := sortBy(Sort{Fields: []SortField{
		{Field: "score", Desc: true},
		{Field: "id"},
	}})
	want := []string{"-score", "id"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sortBy = %v, want %v", got, want)
	}
}

func openTestLevels(t *testing.T) *LevelIndex {
	t.Helper()
	ix, err := OpenLevels(filepath.Join(t.TempDir(), "levels"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestScrollWalksTheFullStream(t *testing.T) {
	ix := openTestLevels(t)
	ctx := context.Background()

	levels := make([]*models.Level, 25)
	for i := range levels {
		levels[i] = &models.Level{ID: i + 1, Song: "song", Artist: "artist"}
	}
	if err := ix.UpsertBatch(ctx, levels); err != nil {
		t.Fatal(err)
	}

	sc, err := ix.OpenScroll(ctx, &query.MatchAll{}, Sort{Fields: []SortField{{Field: "id"}}}, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer sc.Close(ctx)

	var ids []string
	for {
		page, err := sc.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Hits) == 0 {
			break
		}
		if page.Total != 25 {
			t.Fatalf("page total = %d, want 25", page.Total)
		}
		for _, h := range page.Hits {
			ids = append(ids, h.ID)
		}
	}
	if len(ids) != 25 {
		t.Fatalf("scrolled %d ids, want 25", len(ids))
	}
	seen := make(map[string]struct{})
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s in scroll stream", id)
		}
		seen[id] = struct{}{}
	}
}

func TestScrollRejectsRandomSort(t *testing.T) {
	ix := openTestLevels(t)
	if _, err := ix.OpenScroll(context.Background(), &query.MatchAll{}, Sort{Random: true}, 10); err == nil {
		t.Error("random sort should not open a cursor")
	}
}

func TestClosedScrollCursorIsGone(t *testing.T) {
	ix := openTestLevels(t)
	ctx := context.Background()
	if err := ix.Upsert(ctx, &models.Level{ID: 1, Song: "x"}); err != nil {
		t.Fatal(err)
	}
	sc, err := ix.OpenScroll(ctx, &query.MatchAll{}, Sort{Fields: []SortField{{Field: "id"}}}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := sc.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := sc.Next(ctx); err == nil {
		t.Error("next on a closed cursor should fail")
	}
}

func TestPassIndexAnalyzesLikeTheLevelIndex(t *testing.T) {
	ix, err := OpenPasses(filepath.Join(t.TempDir(), "passes"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	ctx := context.Background()

	if err := ix.Upsert(ctx, &models.Pass{ID: 1, Player: "Ace", Song: "Hello"}); err != nil {
		t.Fatal(err)
	}
	page, err := ix.Search(ctx, &query.Term{Field: "player", Value: "ACE"}, Sort{}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Hits) != 1 {
		t.Errorf("case-insensitive term match: got %d hits, want 1", len(page.Hits))
	}
}

func TestDeleteRemovesDocument(t *testing.T) {
	ix := openTestLevels(t)
	ctx := context.Background()
	if err := ix.Upsert(ctx, &models.Level{ID: 7, Song: "gone soon"}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Delete(ctx, 7); err != nil {
		t.Fatal(err)
	}
	n, err := ix.Count(ctx, &query.MatchAll{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("count after delete = %d, want 0", n)
	}
}
