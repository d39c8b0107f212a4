package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/tuforums/chartdex/internal/codec"
	"github.com/tuforums/chartdex/internal/config"
	"github.com/tuforums/chartdex/internal/index"
	"github.com/tuforums/chartdex/internal/indexer"
	"github.com/tuforums/chartdex/internal/models"
	"github.com/tuforums/chartdex/internal/query"
	"github.com/tuforums/chartdex/internal/retrieval"
	"github.com/tuforums/chartdex/internal/search"
)

type stubIndex struct {
	hits []index.Hit
	err  error
}

func (s *stubIndex) Search(context.Context, query.Node, index.Sort, int, int) (*index.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &index.Page{Hits: s.hits, Total: uint64(len(s.hits))}, nil
}

func (s *stubIndex) Count(context.Context, query.Node) (uint64, error) {
	return uint64(len(s.hits)), s.err
}

func (s *stubIndex) OpenScroll(context.Context, query.Node, index.Sort, int) (index.Scroll, error) {
	return nil, errors.New("not expected in these tests")
}

type stubTiers struct{}

func (stubTiers) ResolveRange(context.Context, string, string) ([]int, error) { return nil, nil }
func (stubTiers) ResolveNamed(context.Context, []string) ([]int, error)       { return nil, nil }

type stubCounts struct {
	levels, passes uint64
	err            error
}

func (s stubCounts) CountLevels(context.Context) (uint64, error) { return s.levels, s.err }
func (s stubCounts) CountPasses(context.Context) (uint64, error) { return s.passes, s.err }

func testServer(t *testing.T, levelIdx, passIdx index.Searcher, reload ReloadFunc) *Server {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return NewServer(
		search.NewLevelEngine(levelIdx, stubTiers{}, nil, retrieval.Config{}),
		search.NewPassEngine(passIdx, nil, retrieval.Config{}),
		stubCounts{levels: 12, passes: 340},
		reload,
		cfg,
		zap.NewNop(),
	)
}

func encodedLevelHit(t *testing.T, lvl models.Level) index.Hit {
	t.Helper()
	lvl.ApplyText(codec.Encode)
	raw, err := json.Marshal(&lvl)
	if err != nil {
		t.Fatal(err)
	}
	return index.Hit{ID: "1", Raw: raw}
}

func TestSearchLevelsEndpoint(t *testing.T) {
	idx := &stubIndex{hits: []index.Hit{encodedLevelHit(t, models.Level{
		ID: 1, Song: "Hello (World)", Artist: "Camellia",
	})}}
	srv := testServer(t, idx, &stubIndex{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/levels?query=hello&limit=5", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res models.LevelResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || len(res.Hits) != 1 {
		t.Fatalf("got %d hits, total %d", len(res.Hits), res.Total)
	}
	if res.Hits[0].Song != "Hello (World)" {
		t.Errorf("song not decoded in response: %q", res.Hits[0].Song)
	}
}

func TestSearchLevelsIndexFailure(t *testing.T) {
	srv := testServer(t, &stubIndex{err: errors.New("index gone")}, &stubIndex{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/levels", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Errorf("expected error body, got %s", rec.Body.String())
	}
}

func TestSearchPassesEndpoint(t *testing.T) {
	p := models.Pass{ID: 5, Player: "ace"}
	raw, err := json.Marshal(&p)
	if err != nil {
		t.Fatal(err)
	}
	srv := testServer(t, &stubIndex{}, &stubIndex{hits: []index.Hit{{ID: "5", Raw: raw}}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/passes?query=player=ace", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res models.PassResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 || res.Hits[0].Player != "ace" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestParseSearchParams(t *testing.T) {
	u, _ := url.Parse("/api/v1/levels?query=song:x&sort=newest&offset=30&limit=15" +
		"&deletedFilter=hide&clearedFilter=only&availabilityFilter=hide" +
		"&hideVerified=true&likedIds=3,9,bad,12&lowDiff=P1&highDiff=U5" +
		"&specialDiffs=Gimmick,%20Impossible&excludeAliases=true&only12k=true")
	r := &http.Request{URL: u}

	raw, f := parseSearchParams(r, 30)
	if raw != "song:x" {
		t.Errorf("query = %q", raw)
	}
	want := models.Filters{
		Deleted:        models.VisibilityHide,
		Cleared:        models.VisibilityOnly,
		Availability:   models.VisibilityHide,
		HideVerified:   true,
		LikedIDs:       []int{3, 9, 12},
		LowDiff:        "P1",
		HighDiff:       "U5",
		SpecialDiffs:   []string{"Gimmick", "Impossible"},
		ExcludeAliases: true,
		Only12K:        true,
		Sort:           "newest",
		Offset:         30,
		Limit:          15,
	}
	if !reflect.DeepEqual(f, want) {
		t.Errorf("filters = %+v\nwant      %+v", f, want)
	}
}

func TestParseSearchParamsDefaults(t *testing.T) {
	u, _ := url.Parse("/api/v1/levels?offset=junk")
	_, f := parseSearchParams(&http.Request{URL: u}, 30)
	if f.Offset != 0 || f.Limit != 30 {
		t.Errorf("offset=%d limit=%d, want 0/30", f.Offset, f.Limit)
	}
}

func TestReindexEndpoint(t *testing.T) {
	called := false
	reload := func(context.Context) (indexer.Stats, error) {
		called = true
		return indexer.Stats{Levels: 7, Passes: 40, Tiers: 5}, nil
	}
	srv := testServer(t, &stubIndex{}, &stubIndex{}, reload)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reindex", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !called {
		t.Fatalf("status = %d, called = %v", rec.Code, called)
	}
	if !strings.Contains(rec.Body.String(), `"levels":7`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestReindexDisabled(t *testing.T) {
	srv := testServer(t, &stubIndex{}, &stubIndex{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reindex", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := testServer(t, &stubIndex{}, &stubIndex{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["levels"] != float64(12) || body["passes"] != float64(340) {
		t.Errorf("counts = %v / %v", body["levels"], body["passes"])
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	srv := testServer(t, &stubIndex{}, &stubIndex{}, nil)
	router := srv.Router()

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}
