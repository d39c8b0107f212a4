// Package query builds structured boolean queries from parsed search terms
// and structured filters. The AST produced here is opaque to callers; the
// index backend translates it into its native query types.
package query

// Node is one node of a compiled boolean query.
type Node interface {
	node()
}

// MatchAll matches every document. An empty query compiles to this, never to
// a match-nothing query.
type MatchAll struct{}

// Term matches a field by case-insensitive whole-value equality. The value is
// codec-encoded.
type Term struct {
	Field string
	Value string
}

// Wildcard matches a field by case-insensitive substring containment. The
// value is codec-encoded and therefore free of wildcard metacharacters.
type Wildcard struct {
	Field string
	Value string
}

// BoolTerm matches a boolean flag field exactly.
type BoolTerm struct {
	Field string
	Value bool
}

// NumericRange matches a numeric field against optional inclusive or
// exclusive bounds. A nil bound is open.
type NumericRange struct {
	Field        string
	Min, Max     *float64
	InclusiveMin bool
	InclusiveMax bool
}

// In matches a numeric field against an explicit value set.
type In struct {
	Field  string
	Values []int
}

// IDs matches documents by identifier.
type IDs struct {
	Values []string
}

// Exists matches documents whose field holds a non-empty value.
type Exists struct {
	Field string
}

// Nested matches one-to-many sub-documents (the credit list) as self-contained
// units: every constraint of the inner query must hold within a single entry.
// Inner field names are relative to the path.
type Nested struct {
	Path  string
	Query Node
}

// Bool combines sub-queries: all of Must, at least one of Should, none of
// MustNot.
type Bool struct {
	Must    []Node
	Should  []Node
	MustNot []Node
}

func (*MatchAll) node()     {}
func (*Term) node()         {}
func (*Wildcard) node()     {}
func (*BoolTerm) node()     {}
func (*NumericRange) node() {}
func (*In) node()           {}
func (*IDs) node()          {}
func (*Exists) node()       {}
func (*Nested) node()       {}
func (*Bool) node()         {}

// Logical field names of the level collection. The index backend maps these
// onto its document schema.
const (
	LevelFieldSong         = "song"
	LevelFieldArtist       = "artist"
	LevelFieldCreator      = "creator"
	LevelFieldAliases      = "aliases"
	LevelFieldTeamName     = "team.name"
	LevelFieldTeamAliases  = "team.aliases"
	LevelFieldDLLink       = "dlLink"
	LevelFieldLegacyLink   = "legacyDllink"
	LevelFieldVideoLink    = "videoLink"
	LevelFieldWorkshopLink = "workshopLink"
	LevelFieldClears       = "clears"
	LevelFieldDiffID       = "diffId"
	LevelFieldDeleted      = "isDeleted"
	LevelFieldHidden       = "isHidden"
	LevelFieldExternal     = "isExternallyAvailable"
)

// Credit list nesting: path and entry-relative field names.
const (
	NestedPathCredits   = "credits"
	CreditFieldName     = "name"
	CreditFieldRole     = "role"
	CreditFieldAliases  = "aliases"
	CreditFieldVerified = "verified"
)

// Logical field names of the pass collection.
const (
	PassFieldPlayer    = "player"
	PassFieldSong      = "song"
	PassFieldArtist    = "artist"
	PassFieldVideoLink = "videoLink"
	PassFieldDeleted   = "isDeleted"
	PassField12K       = "is12K"
)
