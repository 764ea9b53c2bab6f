// Package budget turns optional tenant limits into concrete, validated
// numeric budgets.
package budget

import (
	"math"
	"strconv"
)

// Limit is an optional positive integer. The zero value means "no limit
// configured"; a set Limit always holds a value >= 1.
type Limit struct {
	n int
}

// None is the unset Limit.
var None = Limit{}

// Some returns a Limit holding n, or None when n <= 0.
func Some(n int) Limit {
	if n <= 0 {
		return None
	}
	return Limit{n: n}
}

// Normalize converts a raw preference value into a Limit. Absent,
// non-finite, zero and negative values yield None; fractional values are
// floored, and a value that floors to zero yields None.
func Normalize(v *float64) Limit {
	if v == nil {
		return None
	}
	f := *v
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return None
	}
	floored := math.Floor(f)
	if floored > math.MaxInt32 {
		return Limit{n: math.MaxInt32}
	}
	return Some(int(floored))
}

// Get returns the value and whether the limit is set.
func (l Limit) Get() (int, bool) {
	return l.n, l.n > 0
}

// IsSet reports whether the limit holds a value.
func (l Limit) IsSet() bool {
	return l.n > 0
}

// Or returns the value, or def when the limit is unset.
func (l Limit) Or(def int) int {
	if l.n > 0 {
		return l.n
	}
	return def
}

// String renders the value, or "none".
func (l Limit) String() string {
	if l.n <= 0 {
		return "none"
	}
	return strconv.Itoa(l.n)
}

// Raw holds preference values as stored: each may be absent, and present
// values are not yet validated.
type Raw struct {
	MaxOutputTokens     *float64
	HistoryMessageLimit *float64
	RAGMaxChunks        *float64
	RAGChunkMaxChars    *float64
	RAGMaxContextChars  *float64
}

// Budgets is the normalized form of Raw. Unset fields mean the consuming
// component applies its own fallback.
type Budgets struct {
	MaxOutputTokens     Limit
	HistoryMessageLimit Limit
	RAGMaxChunks        Limit
	RAGChunkMaxChars    Limit
	RAGMaxContextChars  Limit
}

// Resolve normalizes every field of raw. It is pure: the same input always
// produces the same Budgets.
func Resolve(raw Raw) Budgets {
	return Budgets{
		MaxOutputTokens:     Normalize(raw.MaxOutputTokens),
		HistoryMessageLimit: Normalize(raw.HistoryMessageLimit),
		RAGMaxChunks:        Normalize(raw.RAGMaxChunks),
		RAGChunkMaxChars:    Normalize(raw.RAGChunkMaxChars),
		RAGMaxContextChars:  Normalize(raw.RAGMaxContextChars),
	}
}
