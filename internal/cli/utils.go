// Package cli provides CLI utilities for chartdex.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tuforums/chartdex/internal/models"
	"github.com/tuforums/chartdex/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat validates a format flag value.
func ParseOutputFormat(v string) (SearchOutputFormat, error) {
	switch v {
	case "json":
		return OutputJSON, nil
	case "text", "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", v)
	}
}

// WriteLevelResults writes level search results to w in the given format.
func WriteLevelResults(w io.Writer, res *models.LevelResult, format SearchOutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(w, "\nFound %d levels (showing %d)\n\n", res.Total, len(res.Hits))
	for _, lvl := range res.Hits {
		fmt.Fprintln(w, strings.Repeat("-", 57))
		fmt.Fprintf(w, "#%d  %s | %s\n", lvl.ID, utils.Truncate(lvl.Song, 60), utils.Truncate(lvl.Artist, 40))
		fmt.Fprintf(w, "by %s", lvl.Creator)
		if lvl.Team != nil && lvl.Team.Name != "" {
			fmt.Fprintf(w, " [%s]", lvl.Team.Name)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "diff %d | base %.0f | %d clears | %d likes\n",
			lvl.DiffID, lvl.BaseScore, lvl.Clears, lvl.Likes)
		if names := creditLine(lvl.Credits); names != "" {
			fmt.Fprintf(w, "credits: %s\n", names)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WritePassResults writes pass search results to w in the given format.
func WritePassResults(w io.Writer, res *models.PassResult, format SearchOutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(w, "\nFound %d passes (showing %d)\n\n", res.Total, len(res.Hits))
	for _, p := range res.Hits {
		fmt.Fprintln(w, strings.Repeat("-", 57))
		fmt.Fprintf(w, "#%d  %s on %s | %s\n",
			p.ID, p.Player, utils.Truncate(p.Song, 60), utils.Truncate(p.Artist, 40))
		fmt.Fprintf(w, "score %.2f | acc %.4f | speed %.2fx | %s\n",
			p.Score, p.Accuracy, p.Speed, p.Date.Format("2006-01-02"))
		if p.IsWorldsFirst {
			fmt.Fprintln(w, "world's first")
		}
		fmt.Fprintln(w)
	}
	return nil
}

func creditLine(credits []models.Credit) string {
	if len(credits) == 0 {
		return ""
	}
	parts := make([]string, len(credits))
	for i, c := range credits {
		parts[i] = fmt.Sprintf("%s (%s)", c.Name, c.Role)
	}
	return utils.Truncate(strings.Join(parts, ", "), 120)
}
