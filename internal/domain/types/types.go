// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry: a contestant's best score.
type Entry struct {
	Rank  int     `json:"rank"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Podium splits a ranking for display. Top holds the leading entries, Others
// the rest in the same order; both are always non-nil.
type Podium struct {
	Top    []Entry `json:"top3"`
	Others []Entry `json:"others"`
}

// Len returns the total number of ranked entries.
func (p Podium) Len() int { return len(p.Top) + len(p.Others) }

// All returns Top followed by Others.
func (p Podium) All() []Entry {
	out := make([]Entry, 0, p.Len())
	out = append(out, p.Top...)
	return append(out, p.Others...)
}
