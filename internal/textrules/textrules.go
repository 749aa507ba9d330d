// Package textrules holds the immutable tokenisation rules shared by every
// line accumulator: the separator characters that split a line into tokens
// and the sorted noise words that are never counted.
package textrules

import (
	"iter"
	"slices"
	"strings"
	"unicode/utf8"
)

// SeparatorSet is a fixed set of token boundary characters. The zero value
// contains no separators.
type SeparatorSet struct {
	ascii [utf8.RuneSelf]bool
	other map[rune]struct{}
	runes []rune
}

// NewSeparatorSet builds a SeparatorSet from the given characters.
// Duplicates are ignored.
func NewSeparatorSet(seps ...rune) *SeparatorSet {
	s := &SeparatorSet{}
	for _, r := range seps {
		if s.Contains(r) {
			continue
		}
		if r >= 0 && r < utf8.RuneSelf {
			s.ascii[r] = true
		} else {
			if s.other == nil {
				s.other = make(map[rune]struct{})
			}
			s.other[r] = struct{}{}
		}
		s.runes = append(s.runes, r)
	}
	slices.Sort(s.runes)
	return s
}

// Contains reports whether r is a separator.
func (s *SeparatorSet) Contains(r rune) bool {
	if r >= 0 && r < utf8.RuneSelf {
		return s.ascii[r]
	}
	_, ok := s.other[r]
	return ok
}

// Runes returns the separators in ascending order.
func (s *SeparatorSet) Runes() []rune {
	return slices.Clone(s.runes)
}

func (s *SeparatorSet) Len() int {
	return len(s.runes)
}

// Split yields the substrings of line between separator characters. Empty
// substrings between adjacent separators are yielded as well; filtering them
// is the caller's job. An empty line yields a single empty token.
func (s *SeparatorSet) Split(line string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := 0
		for i := 0; i < len(line); {
			r, size := utf8.DecodeRuneInString(line[i:])
			if s.Contains(r) && (r != utf8.RuneError || size > 1) {
				if !yield(line[start:i]) {
					return
				}
				start = i + size
			}
			i += size
		}
		yield(line[start:])
	}
}

// NoiseWordSet is a sorted, de-duplicated list of lower-case words excluded
// from counting.
type NoiseWordSet struct {
	words []string
}

// NewNoiseWordSet lower-cases, sorts and de-duplicates words. The input
// slice is not modified.
func NewNoiseWordSet(words ...string) *NoiseWordSet {
	sorted := make([]string, 0, len(words))
	for _, w := range words {
		sorted = append(sorted, strings.ToLower(w))
	}
	slices.Sort(sorted)
	return &NoiseWordSet{words: slices.Compact(sorted)}
}

// Contains reports whether word is a noise word. Matching is exact; callers
// lower-case tokens before asking.
func (n *NoiseWordSet) Contains(word string) bool {
	_, found := slices.BinarySearch(n.words, word)
	return found
}

// Words returns a copy of the sorted noise words.
func (n *NoiseWordSet) Words() []string {
	return slices.Clone(n.words)
}

func (n *NoiseWordSet) Len() int {
	return len(n.words)
}
