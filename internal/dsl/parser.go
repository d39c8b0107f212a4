// Package dsl parses the level-search query language.
//
// Grammar:
//
//	query := group ('|' group)*
//	group := term (',' term)*
//	term  := ['\!'] (field '=' value | field ':' value | freeText)
//
// Groups are OR-ed together, terms within a group are AND-ed. '=' is
// case-insensitive whole-value equality, ':' is case-insensitive containment,
// and the '\!' prefix negates the term. Anything that does not match a known
// field name degrades to a free-text term; parsing never fails.
package dsl

import (
	"strings"

	"github.com/tuforums/chartdex/internal/codec"
)

// Field identifies which document field a term is scoped to.
type Field string

// The closed set of recognized field names. FieldAny is the free-text
// fallback, not a name users can type.
const (
	FieldAny          Field = "any"
	FieldSong         Field = "song"
	FieldArtist       Field = "artist"
	FieldCharter      Field = "charter"
	FieldVfxer        Field = "vfxer"
	FieldCreator      Field = "creator"
	FieldTeam         Field = "team"
	FieldPlayer       Field = "player"
	FieldDownloadLink Field = "dllink"
	FieldLegacyLink   Field = "legacydllink"
	FieldVideoLink    Field = "videolink"
)

var knownFields = map[string]Field{
	"song":         FieldSong,
	"artist":       FieldArtist,
	"charter":      FieldCharter,
	"vfxer":        FieldVfxer,
	"creator":      FieldCreator,
	"team":         FieldTeam,
	"player":       FieldPlayer,
	"dllink":       FieldDownloadLink,
	"legacydllink": FieldLegacyLink,
	"videolink":    FieldVideoLink,
}

// notMarker negates the term it prefixes.
const notMarker = `\!`

// FieldSearch is one atomic predicate. Value is already codec-encoded.
type FieldSearch struct {
	Field Field
	Value string
	Exact bool
	IsNot bool
}

// Group is a conjunction of field searches; it matches only if every term
// matches.
type Group struct {
	Terms []FieldSearch
}

// Parse turns a raw query string into OR-groups of AND-terms. Empty terms and
// empty groups are dropped; an entirely empty result means "no text
// constraint". Every value in the result has passed through codec.Encode so
// downstream comparison happens in the index-safe character space.
func Parse(raw string) []Group {
	var groups []Group
	for _, part := range strings.Split(raw, "|") {
		var g Group
		for _, term := range strings.Split(part, ",") {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			g.Terms = append(g.Terms, parseTerm(term))
		}
		if len(g.Terms) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

func parseTerm(term string) FieldSearch {
	fs := FieldSearch{Field: FieldAny, Exact: false}
	if strings.HasPrefix(term, notMarker) {
		fs.IsNot = true
		term = strings.TrimSpace(strings.TrimPrefix(term, notMarker))
	}

	if field, value, exact, ok := splitScoped(term); ok {
		fs.Field = field
		fs.Value = codec.Encode(value)
		fs.Exact = exact
		return fs
	}

	fs.Value = codec.Encode(term)
	return fs
}

// splitScoped recognizes "<field>=<value>" (exact) and "<field>:<value>"
// (contains) for known field names. Unknown names are rejected so the caller
// falls back to free text; malformed field syntax never raises.
func splitScoped(term string) (Field, string, bool, bool) {
	eq := strings.Index(term, "=")
	col := strings.Index(term, ":")

	// Whichever separator comes first wins, so values containing the other
	// character stay intact.
	sep, exact := -1, false
	switch {
	case eq >= 0 && (col < 0 || eq < col):
		sep, exact = eq, true
	case col >= 0:
		sep, exact = col, false
	default:
		return "", "", false, false
	}

	name := strings.ToLower(strings.TrimSpace(term[:sep]))
	field, ok := knownFields[name]
	if !ok {
		return "", "", false, false
	}
	return field, strings.TrimSpace(term[sep+1:]), exact, true
}
