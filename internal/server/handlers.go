package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tuforums/chartdex/internal/models"
)

func (s *Server) handleSearchLevels(w http.ResponseWriter, r *http.Request) {
	raw, filters := parseSearchParams(r, s.config.Search.DefaultLimit)
	s.logger.Debug("level search request",
		zap.String("query", raw), zap.String("sort", filters.Sort),
		zap.Int("offset", filters.Offset), zap.Int("limit", filters.Limit))

	start := time.Now()
	res, err := s.levels.Search(r.Context(), raw, filters)
	s.metrics.observeSearch("levels", err, time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("level search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSearchPasses(w http.ResponseWriter, r *http.Request) {
	raw, filters := parseSearchParams(r, s.config.Search.DefaultLimit)
	s.logger.Debug("pass search request",
		zap.String("query", raw), zap.String("sort", filters.Sort),
		zap.Int("offset", filters.Offset), zap.Int("limit", filters.Limit))

	start := time.Now()
	res, err := s.passes.Search(r.Context(), raw, filters)
	s.metrics.observeSearch("passes", err, time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("pass search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// parseSearchParams maps the URL query onto the raw search string plus
// filters. Malformed numeric values fall back to defaults; retrieval clamps
// the page bounds, so nothing here rejects.
func parseSearchParams(r *http.Request, defaultLimit int) (string, models.Filters) {
	q := r.URL.Query()
	f := models.Filters{
		Deleted:      models.VisibilityMode(q.Get("deletedFilter")),
		Cleared:      models.VisibilityMode(q.Get("clearedFilter")),
		Availability: models.VisibilityMode(q.Get("availabilityFilter")),

		HideVerified:   boolParam(q.Get("hideVerified")),
		LikedIDs:       intListParam(q.Get("likedIds")),
		LowDiff:        q.Get("lowDiff"),
		HighDiff:       q.Get("highDiff"),
		SpecialDiffs:   listParam(q.Get("specialDiffs")),
		ExcludeAliases: boolParam(q.Get("excludeAliases")),
		Only12K:        boolParam(q.Get("only12k")),

		Sort:   q.Get("sort"),
		Offset: intParam(q.Get("offset"), 0),
		Limit:  intParam(q.Get("limit"), defaultLimit),
	}
	return q.Get("query"), f
}

func boolParam(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

func intParam(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func listParam(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intListParam(v string) []int {
	var out []int
	for _, s := range listParam(v) {
		if n, err := strconv.Atoi(s); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.reload == nil {
		s.respondError(w, http.StatusNotImplemented, "reindex not enabled")
		return
	}
	s.logger.Info("reindex requested")
	stats, err := s.reload(r.Context())
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.reindexes.Inc()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "reindexed",
		"levels": stats.Levels,
		"passes": stats.Passes,
		"tiers":  stats.Tiers,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	levelCount, err := s.counts.CountLevels(ctx)
	if err != nil {
		s.logger.Error("status: count levels failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	passCount, err := s.counts.CountPasses(ctx)
	if err != nil {
		s.logger.Error("status: count passes failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"levels": levelCount,
		"passes": passCount,
		"config": map[string]interface{}{
			"max_result_window": s.config.Search.MaxResultWindow,
			"scroll_page_size":  s.config.Search.ScrollPageSize,
			"default_limit":     s.config.Search.DefaultLimit,
			"level_index_path":  s.config.Storage.LevelIndexPath,
			"pass_index_path":   s.config.Storage.PassIndexPath,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
