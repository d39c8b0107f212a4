package query

import (
	"strconv"

	"github.com/tuforums/chartdex/internal/dsl"
	"github.com/tuforums/chartdex/internal/models"
)

// TierIDs carries the difficulty-tier filters after the difficulty resolver
// has turned tier names into concrete id lists. The compiler never resolves
// names itself; it only ORs an id-set constraint per resolved source.
type TierIDs struct {
	Range   []int
	Special []int
}

// Empty reports whether no tier constraint was requested.
func (t TierIDs) Empty() bool {
	return len(t.Range) == 0 && len(t.Special) == 0
}

// CompileLevels builds the boolean query for the level collection: the OR of
// the compiled search groups AND-ed with every applicable filter clause. An
// empty query with no filters compiles to MatchAll.
func CompileLevels(groups []dsl.Group, f models.Filters, tiers TierIDs) Node {
	text := compileGroups(groups, func(fs dsl.FieldSearch) Node {
		return compileLevelTerm(fs, f.ExcludeAliases)
	})
	return assemble(text, levelFilterClauses(f, tiers))
}

// CompilePasses builds the boolean query for the pass collection.
func CompilePasses(groups []dsl.Group, f models.Filters) Node {
	text := compileGroups(groups, compilePassTerm)
	return assemble(text, passFilterClauses(f))
}

// assemble ANDs the text query with the filter clauses, eliding redundant
// wrappers when either side is absent.
func assemble(text Node, clauses []Node) Node {
	switch {
	case text == nil && len(clauses) == 0:
		return &MatchAll{}
	case len(clauses) == 0:
		return text
	case text == nil && len(clauses) == 1:
		return clauses[0]
	case text == nil:
		return &Bool{Must: clauses}
	default:
		return &Bool{Must: append([]Node{text}, clauses...)}
	}
}

// compileGroups ORs groups together and ANDs the terms within each group.
// Single-element groups and single-group queries are not wrapped. Returns nil
// when there is no text constraint at all.
func compileGroups(groups []dsl.Group, term func(dsl.FieldSearch) Node) Node {
	var branches []Node
	for _, g := range groups {
		if len(g.Terms) == 0 {
			continue
		}
		var musts []Node
		for _, fs := range g.Terms {
			musts = append(musts, term(fs))
		}
		if len(musts) == 1 {
			branches = append(branches, musts[0])
		} else {
			branches = append(branches, &Bool{Must: musts})
		}
	}
	switch len(branches) {
	case 0:
		return nil
	case 1:
		return branches[0]
	default:
		return &Bool{Should: branches}
	}
}

// match builds the leaf for a direct field predicate: exact terms use
// whole-value equality, everything else containment.
func match(field string, fs dsl.FieldSearch) Node {
	if fs.Exact {
		return &Term{Field: field, Value: fs.Value}
	}
	return &Wildcard{Field: field, Value: fs.Value}
}

// negate wraps the fully assembled query for a field in a must-not. Negation
// applies to the whole disjunction, never to individual alternatives.
func negate(n Node, isNot bool) Node {
	if !isNot {
		return n
	}
	return &Bool{MustNot: []Node{n}}
}

// oneOrAny collapses a single-alternative disjunction.
func oneOrAny(should []Node) Node {
	if len(should) == 1 {
		return should[0]
	}
	return &Bool{Should: should}
}

func compileLevelTerm(fs dsl.FieldSearch, excludeAliases bool) Node {
	switch fs.Field {
	case dsl.FieldSong:
		return negate(match(LevelFieldSong, fs), fs.IsNot)
	case dsl.FieldArtist:
		return negate(match(LevelFieldArtist, fs), fs.IsNot)

	case dsl.FieldCharter:
		return negate(creditRoleSearch(fs, models.RoleCharter), fs.IsNot)
	case dsl.FieldVfxer:
		return negate(creditRoleSearch(fs, models.RoleVfxer), fs.IsNot)
	case dsl.FieldCreator:
		// No role constraint: any credit entry counts.
		return negate(oneOrAny([]Node{
			match(LevelFieldCreator, fs),
			&Nested{Path: NestedPathCredits, Query: match(CreditFieldName, fs)},
		}), fs.IsNot)

	case dsl.FieldTeam:
		should := []Node{match(LevelFieldTeamName, fs)}
		if !excludeAliases {
			should = append(should, match(LevelFieldTeamAliases, fs))
		}
		return negate(oneOrAny(should), fs.IsNot)

	case dsl.FieldDownloadLink:
		return negate(match(LevelFieldDLLink, fs), fs.IsNot)
	case dsl.FieldLegacyLink:
		return negate(match(LevelFieldLegacyLink, fs), fs.IsNot)
	case dsl.FieldVideoLink:
		return negate(match(LevelFieldVideoLink, fs), fs.IsNot)

	default:
		// FieldAny, plus fields that only exist on the other collection.
		return negate(freeTextLevel(fs, excludeAliases), fs.IsNot)
	}
}

// creditRoleSearch matches either the flattened creator-name field or a single
// credit entry whose name matches and whose role equals the given literal.
func creditRoleSearch(fs dsl.FieldSearch, role string) Node {
	return oneOrAny([]Node{
		match(LevelFieldCreator, fs),
		&Nested{Path: NestedPathCredits, Query: &Bool{Must: []Node{
			match(CreditFieldName, fs),
			&Term{Field: CreditFieldRole, Value: role},
		}}},
	})
}

// freeTextLevel spreads an unscoped predicate across the top-level text fields
// and, unless alias matching is excluded, the document's alias list and the
// alias list of every credited person. Credit names themselves are always
// searched; excludeAliases narrows alias-based matching only.
func freeTextLevel(fs dsl.FieldSearch, excludeAliases bool) Node {
	contains := func(field string) Node {
		return &Wildcard{Field: field, Value: fs.Value}
	}
	should := []Node{
		contains(LevelFieldSong),
		contains(LevelFieldArtist),
		contains(LevelFieldCreator),
		&Nested{Path: NestedPathCredits, Query: contains(CreditFieldName)},
	}
	if !excludeAliases {
		should = append(should,
			contains(LevelFieldAliases),
			&Nested{Path: NestedPathCredits, Query: contains(CreditFieldAliases)},
		)
	}
	return &Bool{Should: should}
}

func compilePassTerm(fs dsl.FieldSearch) Node {
	switch fs.Field {
	case dsl.FieldPlayer:
		return negate(match(PassFieldPlayer, fs), fs.IsNot)
	case dsl.FieldSong:
		return negate(match(PassFieldSong, fs), fs.IsNot)
	case dsl.FieldArtist:
		return negate(match(PassFieldArtist, fs), fs.IsNot)
	case dsl.FieldVideoLink:
		return negate(match(PassFieldVideoLink, fs), fs.IsNot)
	default:
		return negate(&Bool{Should: []Node{
			&Wildcard{Field: PassFieldPlayer, Value: fs.Value},
			&Wildcard{Field: PassFieldSong, Value: fs.Value},
			&Wildcard{Field: PassFieldArtist, Value: fs.Value},
		}}, fs.IsNot)
	}
}

func levelFilterClauses(f models.Filters, tiers TierIDs) []Node {
	var clauses []Node

	switch f.Deleted {
	case models.VisibilityHide:
		clauses = append(clauses,
			&BoolTerm{Field: LevelFieldDeleted, Value: false},
			&BoolTerm{Field: LevelFieldHidden, Value: false},
		)
	case models.VisibilityOnly:
		clauses = append(clauses, &Bool{Should: []Node{
			&BoolTerm{Field: LevelFieldDeleted, Value: true},
			&BoolTerm{Field: LevelFieldHidden, Value: true},
		}})
	}

	switch f.Cleared {
	case models.VisibilityHide:
		zero := 0.0
		clauses = append(clauses, &NumericRange{
			Field: LevelFieldClears,
			Min:   &zero, Max: &zero,
			InclusiveMin: true, InclusiveMax: true,
		})
	case models.VisibilityOnly:
		zero := 0.0
		clauses = append(clauses, &NumericRange{
			Field: LevelFieldClears,
			Min:   &zero,
		})
	}

	switch f.Availability {
	case models.VisibilityOnly:
		clauses = append(clauses, availableExternally())
	case models.VisibilityHide:
		clauses = append(clauses, &Bool{MustNot: []Node{availableExternally()}})
	}

	if f.HideVerified {
		clauses = append(clauses, &Nested{
			Path:  NestedPathCredits,
			Query: &BoolTerm{Field: CreditFieldVerified, Value: false},
		})
	}

	if len(f.LikedIDs) > 0 {
		ids := make([]string, len(f.LikedIDs))
		for i, id := range f.LikedIDs {
			ids[i] = strconv.Itoa(id)
		}
		clauses = append(clauses, &IDs{Values: ids})
	}

	if !tiers.Empty() {
		var should []Node
		if len(tiers.Range) > 0 {
			should = append(should, &In{Field: LevelFieldDiffID, Values: tiers.Range})
		}
		if len(tiers.Special) > 0 {
			should = append(should, &In{Field: LevelFieldDiffID, Values: tiers.Special})
		}
		clauses = append(clauses, oneOrAny(should))
	}

	return clauses
}

// availableExternally is the disjunction behind the availability filter: an
// explicit flag, or a non-empty download or workshop link.
func availableExternally() Node {
	return &Bool{Should: []Node{
		&BoolTerm{Field: LevelFieldExternal, Value: true},
		&Exists{Field: LevelFieldDLLink},
		&Exists{Field: LevelFieldWorkshopLink},
	}}
}

func passFilterClauses(f models.Filters) []Node {
	var clauses []Node
	switch f.Deleted {
	case models.VisibilityHide:
		clauses = append(clauses, &BoolTerm{Field: PassFieldDeleted, Value: false})
	case models.VisibilityOnly:
		clauses = append(clauses, &BoolTerm{Field: PassFieldDeleted, Value: true})
	}
	if f.Only12K {
		clauses = append(clauses, &BoolTerm{Field: PassField12K, Value: true})
	}
	return clauses
}
