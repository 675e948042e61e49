// Package completion supplies autocompletion candidates for node labels.
//
// A [Provider] maps the current label text to an ordered candidate list.
// The canvas queries its provider on every edit and shows the candidates in
// a floating list below the label; an empty result hides the list.
//
// Three providers ship with the package:
//   - [None] never completes and is the canvas default.
//   - [Prefix] proposes class names that start with the typed word.
//   - [Fuzzy] ranks class names with fzf's matching algorithm.
package completion

import (
	"slices"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Provider returns completion candidates for a label.
type Provider interface {
	Complete(text string) []string
}

// Func adapts a function to [Provider].
type Func func(text string) []string

// Complete calls f.
func (f Func) Complete(text string) []string { return f(text) }

// None is the provider that never proposes anything.
var None Provider = Func(func(string) []string { return nil })

// word returns the first word of a label, the part class resolution reads.
// Labels that already carry arguments are not completed.
func word(text string) (string, bool) {
	t := strings.TrimLeft(text, " \t")
	if t == "" || strings.ContainsAny(t, " \t") {
		return "", false
	}
	return t, true
}

// =============================================================================
// Prefix
// =============================================================================

// Prefix completes the first word of a label against a sorted name list.
type Prefix struct {
	names []string
	limit int
}

// NewPrefix builds a prefix provider over names. A limit <= 0 returns every
// match.
func NewPrefix(names []string, limit int) *Prefix {
	n := slices.Clone(names)
	slices.Sort(n)
	return &Prefix{names: n, limit: limit}
}

// Complete returns names starting with the typed word, excluding an exact
// match. Matching is case-insensitive.
func (p *Prefix) Complete(text string) []string {
	w, ok := word(text)
	if !ok {
		return nil
	}
	lw := strings.ToLower(w)
	var out []string
	for _, name := range p.names {
		if name == w || !strings.HasPrefix(strings.ToLower(name), lw) {
			continue
		}
		out = append(out, name)
		if p.limit > 0 && len(out) == p.limit {
			break
		}
	}
	return out
}

// =============================================================================
// Fuzzy
// =============================================================================

// Fuzzy ranks names by fzf's FuzzyMatchV2 score.
type Fuzzy struct {
	names []string
	limit int

	mu   sync.Mutex
	slab *util.Slab
}

// NewFuzzy builds a fuzzy provider over names. A limit <= 0 returns every
// match.
func NewFuzzy(names []string, limit int) *Fuzzy {
	n := slices.Clone(names)
	slices.Sort(n)
	return &Fuzzy{names: n, limit: limit, slab: util.MakeSlab(100*1024, 2048)}
}

type scored struct {
	name  string
	score int
}

// Complete returns names matching the typed word as a subsequence, best
// score first. Ties keep lexical order. An exact match is excluded.
func (f *Fuzzy) Complete(text string) []string {
	w, ok := word(text)
	if !ok {
		return nil
	}
	pattern := []rune(strings.ToLower(w))

	f.mu.Lock()
	defer f.mu.Unlock()

	var hits []scored
	for _, name := range f.names {
		if name == w {
			continue
		}
		chars := util.ToChars([]byte(name))
		res, _ := algo.FuzzyMatchV2(false, true, true, &chars, pattern, false, f.slab)
		if res.Start < 0 {
			continue
		}
		hits = append(hits, scored{name: name, score: res.Score})
	}
	slices.SortStableFunc(hits, func(a, b scored) int { return b.score - a.score })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.name)
		if f.limit > 0 && len(out) == f.limit {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// =============================================================================
// Selection by name
// =============================================================================

// Modes lists the accepted [New] mode names.
var Modes = []string{"none", "prefix", "fuzzy"}

// New returns the provider for a configuration mode over names.
// Unknown modes yield false.
func New(mode string, names []string, limit int) (Provider, bool) {
	switch strings.ToLower(mode) {
	case "", "none":
		return None, true
	case "prefix":
		return NewPrefix(names, limit), true
	case "fuzzy":
		return NewFuzzy(names, limit), true
	}
	return nil, false
}
