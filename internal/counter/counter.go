// Package counter implements the per-worker line accumulator. An
// Accumulator owns a private word count map and is never shared between
// goroutines while it is processing lines.
package counter

import (
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/collapser"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/textrules"
)

const minTokenLength = 2

// WordCount maps a normalised word to its number of occurrences.
type WordCount map[string]uint64

// Total returns the sum of all counts.
func (wc WordCount) Total() uint64 {
	var total uint64
	for _, n := range wc {
		total += n
	}
	return total
}

// Rules bundles the read-only configuration every accumulator of a run
// shares. None of its fields may be mutated while a run is in progress.
type Rules struct {
	Separators *textrules.SeparatorSet
	NoiseWords *textrules.NoiseWordSet
	Collapser  *collapser.Table
}

// Accumulator tokenises lines and counts the surviving words.
type Accumulator struct {
	rules  Rules
	counts WordCount
	lines  uint64
}

// New returns an empty Accumulator. Nil rule fields behave as empty sets.
func New(rules Rules) *Accumulator {
	if rules.Separators == nil {
		rules.Separators = textrules.NewSeparatorSet()
	}
	if rules.NoiseWords == nil {
		rules.NoiseWords = textrules.NewNoiseWordSet()
	}
	if rules.Collapser == nil {
		rules.Collapser = collapser.New()
	}
	return &Accumulator{
		rules:  rules,
		counts: make(WordCount),
	}
}

// ProcessLine splits line into tokens and counts every token that survives
// filtering, after lower-casing and synonym collapsing.
func (a *Accumulator) ProcessLine(line string) {
	a.lines++
	for token := range a.rules.Separators.Split(line) {
		word, ok := a.normalize(token)
		if !ok {
			continue
		}
		a.RegisterWord(word, 1)
	}
}

func (a *Accumulator) normalize(token string) (string, bool) {
	if len(token) > 0 {
		switch token[0] {
		case '\t', '\r', '\n':
			token = token[1:]
		}
	}
	token = strings.TrimSuffix(token, "\r\n")

	if utf8.RuneCountInString(token) < minTokenLength {
		return "", false
	}
	if isDigits(token) {
		return "", false
	}
	word := strings.ToLower(token)
	if a.rules.NoiseWords.Contains(word) {
		return "", false
	}
	if canonical, ok := a.rules.Collapser.Collapse(word); ok {
		return canonical, true
	}
	return word, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// RegisterWord adds delta to word's count, inserting it when absent. Counts
// never decrease.
func (a *Accumulator) RegisterWord(word string, delta uint64) {
	a.counts[word] += delta
}

// Merge folds every entry of counts into the accumulator.
func (a *Accumulator) Merge(counts WordCount) {
	for word, n := range counts {
		a.RegisterWord(word, n)
	}
}

// Counts returns the accumulator's map. Ownership passes to the caller; the
// accumulator must not be used afterwards.
func (a *Accumulator) Counts() WordCount {
	return a.counts
}

// LinesProcessed returns the number of lines passed to ProcessLine.
func (a *Accumulator) LinesProcessed() uint64 {
	return a.lines
}
