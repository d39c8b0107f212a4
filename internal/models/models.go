// Package models defines the records held in the search index and the
// request/response types of the search API.
package models

import "time"

// Credit is one entry of a level's one-to-many credit list. A credit must be
// matched as a self-contained unit: a query for a charter named X has to find
// a single entry whose name matches X and whose role is charter, not an X in
// one entry and a charter role in another.
type Credit struct {
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Aliases  []string `json:"aliases,omitempty"`
	Verified bool     `json:"verified"`
}

// Credit roles used by the query compiler.
const (
	RoleCharter = "charter"
	RoleVfxer   = "vfxer"
)

// Team is the team a level is credited to, with its alias list.
type Team struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// Level is an indexed chart document.
type Level struct {
	ID           int       `json:"id"`
	Song         string    `json:"song"`
	Artist       string    `json:"artist"`
	Creator      string    `json:"creator"`
	Aliases      []string  `json:"aliases,omitempty"`
	Credits      []Credit  `json:"credits,omitempty"`
	Team         *Team     `json:"team,omitempty"`
	DiffID       int       `json:"diffId"`
	BaseScore    float64   `json:"baseScore"`
	Clears       int       `json:"clears"`
	Likes        int       `json:"likes"`
	DLLink       string    `json:"dlLink,omitempty"`
	LegacyLink   string    `json:"legacyDllink,omitempty"`
	VideoLink    string    `json:"videoLink,omitempty"`
	WorkshopLink string    `json:"workshopLink,omitempty"`
	IsDeleted    bool      `json:"isDeleted"`
	IsHidden     bool      `json:"isHidden"`
	IsExternal   bool      `json:"isExternallyAvailable"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ApplyText runs fn over every text field of the level, including nested
// aliases, credit entries, and the team. The indexer uses it with the codec's
// encode step and the engine with the decode step, so both sides of the index
// boundary share one substitution table.
func (l *Level) ApplyText(fn func(string) string) {
	l.Song = fn(l.Song)
	l.Artist = fn(l.Artist)
	l.Creator = fn(l.Creator)
	l.DLLink = fn(l.DLLink)
	l.LegacyLink = fn(l.LegacyLink)
	l.VideoLink = fn(l.VideoLink)
	l.WorkshopLink = fn(l.WorkshopLink)
	for i := range l.Aliases {
		l.Aliases[i] = fn(l.Aliases[i])
	}
	for i := range l.Credits {
		l.Credits[i].Name = fn(l.Credits[i].Name)
		for j := range l.Credits[i].Aliases {
			l.Credits[i].Aliases[j] = fn(l.Credits[i].Aliases[j])
		}
	}
	if l.Team != nil {
		l.Team.Name = fn(l.Team.Name)
		for i := range l.Team.Aliases {
			l.Team.Aliases[i] = fn(l.Team.Aliases[i])
		}
	}
}

// Judgements holds per-clear hit counts, tightest to loosest.
type Judgements struct {
	EarlyDouble int `json:"earlyDouble"`
	EarlySingle int `json:"earlySingle"`
	EPerfect    int `json:"ePerfect"`
	Perfect     int `json:"perfect"`
	LPerfect    int `json:"lPerfect"`
	LateSingle  int `json:"lateSingle"`
	LateDouble  int `json:"lateDouble"`
}

// Total returns the number of judged inputs.
func (j Judgements) Total() int {
	return j.EarlyDouble + j.EarlySingle + j.EPerfect + j.Perfect +
		j.LPerfect + j.LateSingle + j.LateDouble
}

// Pass is an indexed level-clear document. Song and artist are denormalized
// from the level so clears are searchable without a join.
type Pass struct {
	ID            int        `json:"id"`
	LevelID       int        `json:"levelId"`
	Player        string     `json:"player"`
	PlayerID      int        `json:"playerId"`
	Song          string     `json:"song"`
	Artist        string     `json:"artist"`
	Score         float64    `json:"score"`
	Accuracy      float64    `json:"accuracy"`
	Speed         float64    `json:"speed"`
	Judgements    Judgements `json:"judgements"`
	IsWorldsFirst bool       `json:"isWorldsFirst"`
	Is12K         bool       `json:"is12K"`
	Is16K         bool       `json:"is16K"`
	IsNoHold      bool       `json:"isNoHold"`
	VideoLink     string     `json:"videoLink,omitempty"`
	Date          time.Time  `json:"date"`
	IsDeleted     bool       `json:"isDeleted"`
}

// ApplyText runs fn over every text field of the pass.
func (p *Pass) ApplyText(fn func(string) string) {
	p.Player = fn(p.Player)
	p.Song = fn(p.Song)
	p.Artist = fn(p.Artist)
	p.VideoLink = fn(p.VideoLink)
}
