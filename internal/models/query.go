package models

// VisibilityMode narrows results on a boolean document property.
type VisibilityMode string

// Visibility modes. The zero value leaves the property unrestricted.
const (
	VisibilityAny  VisibilityMode = ""
	VisibilityHide VisibilityMode = "hide"
	VisibilityOnly VisibilityMode = "only"
)

// Filters are the structured, independently-applicable constraints that
// accompany a text query. Tier names are resolved to id lists outside the
// query compiler, by the difficulty resolver.
type Filters struct {
	Deleted      VisibilityMode `json:"deletedFilter,omitempty"`
	Cleared      VisibilityMode `json:"clearedFilter,omitempty"`
	Availability VisibilityMode `json:"availabilityFilter,omitempty"`

	HideVerified   bool     `json:"hideVerified,omitempty"`
	LikedIDs       []int    `json:"likedIds,omitempty"`
	LowDiff        string   `json:"lowDiff,omitempty"`
	HighDiff       string   `json:"highDiff,omitempty"`
	SpecialDiffs   []string `json:"specialDiffs,omitempty"`
	ExcludeAliases bool     `json:"excludeAliases,omitempty"`
	Only12K        bool     `json:"only12k,omitempty"`

	Sort   string `json:"sort,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// LevelResult is one page of decoded level hits plus the full match count.
type LevelResult struct {
	Hits  []*Level `json:"results"`
	Total uint64   `json:"count"`
}

// PassResult is one page of decoded pass hits plus the full match count.
type PassResult struct {
	Hits  []*Pass `json:"results"`
	Total uint64  `json:"count"`
}
