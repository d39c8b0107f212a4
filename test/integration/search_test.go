// Package integration tests the full query pipeline against real indices
// (bleve on disk, sqlite tiers).
package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tuforums/chartdex/internal/index"
	"github.com/tuforums/chartdex/internal/indexer"
	"github.com/tuforums/chartdex/internal/models"
	"github.com/tuforums/chartdex/internal/retrieval"
	"github.com/tuforums/chartdex/internal/search"
	"github.com/tuforums/chartdex/internal/tier"
)

func fixtureLevels() []*models.Level {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*models.Level{
		{
			ID: 1, Song: "Hello World", Artist: "Camellia", Creator: "Alice",
			Credits: []models.Credit{
				{Name: "Alice", Role: models.RoleCharter, Verified: true},
				{Name: "Bob", Role: models.RoleVfxer, Aliases: []string{"bobby"}},
			},
			Team:   &models.Team{Name: "ECS", Aliases: []string{"EpilepticCatSquad"}},
			DiffID: 18, BaseScore: 100, Clears: 5,
			DLLink:    "https://example.com/dl/1",
			CreatedAt: base,
		},
		{
			ID: 2, Song: "Goodbye (VIP)", Artist: "cYsmix", Creator: "Dana",
			Credits:   []models.Credit{{Name: "Dana", Role: models.RoleCharter, Verified: true}},
			DiffID:    20, BaseScore: 250,
			IsDeleted: true,
			CreatedAt: base.Add(24 * time.Hour),
		},
		{
			ID: 3, Song: "hello again", Artist: "Frums", Creator: "Charlie",
			Credits:   []models.Credit{{Name: "Charlie", Role: models.RoleCharter}},
			DiffID:    21, BaseScore: 300, Clears: 2,
			CreatedAt: base.Add(48 * time.Hour),
		},
	}
}

func fixturePasses() []*models.Pass {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return []*models.Pass{
		{ID: 10, LevelID: 1, Player: "ace", Song: "Hello World", Artist: "Camellia",
			Score: 1100, Accuracy: 1, Speed: 1, Is12K: true, Date: base},
		{ID: 11, LevelID: 1, Player: "runner-up", Song: "Hello World", Artist: "Camellia",
			Score: 900, Accuracy: 0.99, Speed: 1, Date: base.Add(time.Hour)},
		{ID: 12, LevelID: 3, Player: "ace", Song: "hello again", Artist: "Frums",
			Score: 2000, Accuracy: 0.995, Speed: 1.1, Date: base.Add(2 * time.Hour)},
	}
}

type env struct {
	levels *search.LevelEngine
	passes *search.PassEngine
}

func setup(t *testing.T, cfg retrieval.Config) *env {
	t.Helper()
	dir := t.TempDir()

	levelIdx, err := index.OpenLevels(filepath.Join(dir, "levels"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = levelIdx.Close() })
	passIdx, err := index.OpenPasses(filepath.Join(dir, "passes"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = passIdx.Close() })
	tiers, err := tier.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tiers.Close() })

	ctx := context.Background()
	err = tiers.Seed(ctx, []tier.Tier{
		{ID: 18, Name: "G5", Type: "pgu", SortOrder: 180},
		{ID: 20, Name: "U2", Type: "pgu", SortOrder: 200},
		{ID: 21, Name: "U3", Type: "pgu", SortOrder: 210},
	})
	if err != nil {
		t.Fatal(err)
	}

	ing := indexer.NewIndexer(levelIdx, passIdx)
	for _, l := range fixtureLevels() {
		if err := ing.IndexLevel(ctx, l); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range fixturePasses() {
		if err := ing.IndexPass(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	return &env{
		levels: search.NewLevelEngine(levelIdx, tiers, nil, cfg),
		passes: search.NewPassEngine(passIdx, nil, cfg),
	}
}

func levelIDs(res *models.LevelResult) []int {
	out := make([]int, len(res.Hits))
	for i, l := range res.Hits {
		out[i] = l.ID
	}
	return out
}

func searchLevels(t *testing.T, e *env, q string, f models.Filters) *models.LevelResult {
	t.Helper()
	if f.Limit == 0 {
		f.Limit = 30
	}
	res, err := e.levels.Search(context.Background(), q, f)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestContainsAndExactMatching(t *testing.T) {
	e := setup(t, retrieval.Config{})

	res := searchLevels(t, e, "song:hello", models.Filters{})
	if got := levelIDs(res); len(got) != 2 {
		t.Fatalf("contains: got ids %v, want levels 1 and 3", got)
	}

	res = searchLevels(t, e, "song=hello world", models.Filters{})
	if got := levelIDs(res); len(got) != 1 || got[0] != 1 {
		t.Fatalf("exact: got ids %v, want [1]", got)
	}

	// Equality is case-insensitive.
	res = searchLevels(t, e, "song=HELLO WORLD", models.Filters{})
	if got := levelIDs(res); len(got) != 1 || got[0] != 1 {
		t.Fatalf("case-insensitive exact: got ids %v, want [1]", got)
	}

	// Whole-value equality does not match a substring.
	res = searchLevels(t, e, "song=hello", models.Filters{})
	if len(res.Hits) != 0 {
		t.Fatalf("exact should not match substrings, got %v", levelIDs(res))
	}
}

func TestSpecialCharactersSurviveTheIndex(t *testing.T) {
	e := setup(t, retrieval.Config{})

	res := searchLevels(t, e, "song:(vip)", models.Filters{})
	if got := levelIDs(res); len(got) != 1 || got[0] != 2 {
		t.Fatalf("parenthesized search: got ids %v, want [2]", got)
	}
	if res.Hits[0].Song != "Goodbye (VIP)" {
		t.Errorf("stored song came back as %q", res.Hits[0].Song)
	}
	for _, r := range res.Hits[0].Song {
		if r >= 0xE000 && r <= 0xF8FF {
			t.Fatalf("private-use rune leaked into result: %q", res.Hits[0].Song)
		}
	}
}

func TestCreditRoleScoping(t *testing.T) {
	e := setup(t, retrieval.Config{})

	// Bob is only credited as vfxer; a charter-scoped search must not find him.
	if res := searchLevels(t, e, "charter:bob", models.Filters{}); len(res.Hits) != 0 {
		t.Errorf("charter:bob matched %v", levelIDs(res))
	}
	if res := searchLevels(t, e, "vfxer:bob", models.Filters{}); len(res.Hits) != 1 || res.Hits[0].ID != 1 {
		t.Errorf("vfxer:bob = %v, want [1]", levelIDs(res))
	}
	if res := searchLevels(t, e, "creator:bob", models.Filters{}); len(res.Hits) != 1 || res.Hits[0].ID != 1 {
		t.Errorf("creator:bob = %v, want [1]", levelIDs(res))
	}
}

func TestAliasMatchingToggle(t *testing.T) {
	e := setup(t, retrieval.Config{})

	if res := searchLevels(t, e, "bobby", models.Filters{}); len(res.Hits) != 1 || res.Hits[0].ID != 1 {
		t.Errorf("alias free text = %v, want [1]", levelIDs(res))
	}
	res := searchLevels(t, e, "bobby", models.Filters{ExcludeAliases: true})
	if len(res.Hits) != 0 {
		t.Errorf("excluded aliases still matched %v", levelIDs(res))
	}
	// Credit names themselves always match.
	res = searchLevels(t, e, "bob", models.Filters{ExcludeAliases: true})
	if len(res.Hits) != 1 || res.Hits[0].ID != 1 {
		t.Errorf("credit name with excluded aliases = %v, want [1]", levelIDs(res))
	}
}

func TestNegationAndGroups(t *testing.T) {
	e := setup(t, retrieval.Config{})

	res := searchLevels(t, e, `\!artist:camellia`, models.Filters{})
	for _, l := range res.Hits {
		if l.ID == 1 {
			t.Fatalf("negated artist still present: %v", levelIDs(res))
		}
	}
	if len(res.Hits) != 2 {
		t.Fatalf("negation: got %v", levelIDs(res))
	}

	// OR of two exact songs.
	res = searchLevels(t, e, "song=hello world|song=hello again", models.Filters{})
	if len(res.Hits) != 2 {
		t.Fatalf("or-group: got %v", levelIDs(res))
	}

	// AND within a group.
	res = searchLevels(t, e, "song:hello, artist:frums", models.Filters{})
	if got := levelIDs(res); len(got) != 1 || got[0] != 3 {
		t.Fatalf("and-group: got %v, want [3]", got)
	}
}

func TestLevelFilters(t *testing.T) {
	e := setup(t, retrieval.Config{})

	res := searchLevels(t, e, "", models.Filters{Deleted: models.VisibilityHide})
	if got := levelIDs(res); len(got) != 2 {
		t.Fatalf("deleted hide: got %v", got)
	}
	res = searchLevels(t, e, "", models.Filters{Deleted: models.VisibilityOnly})
	if got := levelIDs(res); len(got) != 1 || got[0] != 2 {
		t.Fatalf("deleted only: got %v", got)
	}

	res = searchLevels(t, e, "", models.Filters{Cleared: models.VisibilityOnly})
	if got := levelIDs(res); len(got) != 2 {
		t.Fatalf("cleared only: got %v", got)
	}

	res = searchLevels(t, e, "", models.Filters{Availability: models.VisibilityOnly})
	if got := levelIDs(res); len(got) != 1 || got[0] != 1 {
		t.Fatalf("availability only: got %v", got)
	}

	// Level 1 has an unverified credit; level 2 is fully verified.
	res = searchLevels(t, e, "", models.Filters{HideVerified: true})
	for _, l := range res.Hits {
		if l.ID == 2 {
			t.Fatalf("fully verified level kept by hideVerified: %v", levelIDs(res))
		}
	}
}

func TestTierRangeFilter(t *testing.T) {
	e := setup(t, retrieval.Config{})

	res := searchLevels(t, e, "", models.Filters{LowDiff: "U2", HighDiff: "U3"})
	if got := levelIDs(res); len(got) != 2 {
		t.Fatalf("tier range: got %v, want levels 2 and 3", got)
	}

	res = searchLevels(t, e, "", models.Filters{LowDiff: "Nonexistent"})
	if len(res.Hits) != 0 || res.Total != 0 {
		t.Fatalf("unknown tier bound should match nothing, got %v", levelIDs(res))
	}
}

func TestSortOrders(t *testing.T) {
	e := setup(t, retrieval.Config{})

	res := searchLevels(t, e, "", models.Filters{Sort: "newest"})
	got := levelIDs(res)
	if len(got) != 3 || got[0] != 3 || got[1] != 2 || got[2] != 1 {
		t.Fatalf("newest: got %v, want [3 2 1]", got)
	}

	res = searchLevels(t, e, "", models.Filters{Sort: "oldest"})
	got = levelIDs(res)
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("oldest: got %v", got)
	}
}

func TestScrollRetrievalForDeepPages(t *testing.T) {
	// A tiny result window forces the cursor strategy.
	e := setup(t, retrieval.Config{MaxResultWindow: 2, ScrollPageSize: 2, MaxScrollPages: 10})

	res := searchLevels(t, e, "", models.Filters{Offset: 1, Limit: 2})
	if got := levelIDs(res); len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Fatalf("scrolled page: got %v, want [2 1]", got)
	}
	if res.Total != 3 {
		t.Errorf("total = %d, want 3", res.Total)
	}
}

func TestRandomRetrieval(t *testing.T) {
	e := setup(t, retrieval.Config{})

	res := searchLevels(t, e, "", models.Filters{Sort: "random", Limit: 2})
	if len(res.Hits) != 2 || res.Total != 3 {
		t.Fatalf("random: got %d hits, total %d", len(res.Hits), res.Total)
	}
	if res.Hits[0].ID == res.Hits[1].ID {
		t.Errorf("random page repeated a document: %v", levelIDs(res))
	}
}

func TestPassSearch(t *testing.T) {
	e := setup(t, retrieval.Config{})
	ctx := context.Background()

	res, err := e.passes.Search(ctx, "player=ace", models.Filters{Limit: 30, Sort: "score"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 2 {
		t.Fatalf("player=ace: got %d hits", len(res.Hits))
	}
	if res.Hits[0].ID != 12 || res.Hits[1].ID != 10 {
		t.Errorf("score sort order: got %d, %d", res.Hits[0].ID, res.Hits[1].ID)
	}

	res, err = e.passes.Search(ctx, "", models.Filters{Limit: 30, Only12K: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != 10 {
		t.Errorf("only12k: got %+v", res.Hits)
	}
}
