// Package ranking orders merged word counts by frequency.
//
// Entries with equal counts have no guaranteed relative order: the order
// depends on map iteration and heap layout and may differ between runs.
// Callers that need a stable presentation must sort ties themselves.
package ranking

import (
	"container/heap"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/counter"
)

// Entry is one ranked word. It encodes to JSON as a two-element array,
// ["word", count], which is the shape the word-cloud client consumes.
type Entry struct {
	Word  string
	Count uint64
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Word, e.Count})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decoding ranked entry: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decoding ranked entry: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Word); err != nil {
		return fmt.Errorf("decoding ranked word: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Count); err != nil {
		return fmt.Errorf("decoding ranked count: %w", err)
	}
	return nil
}

// Rank returns the limit most frequent words, highest count first. A
// non-positive limit returns every word.
func Rank(counts counter.WordCount, limit int) []Entry {
	if limit <= 0 || limit >= len(counts) {
		return sortAll(counts)
	}
	h := make(entryHeap, 0, limit+1)
	for word, n := range counts {
		heap.Push(&h, Entry{Word: word, Count: n})
		if h.Len() > limit {
			heap.Pop(&h)
		}
	}
	result := make([]Entry, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(Entry)
	}
	return result
}

func sortAll(counts counter.WordCount) []Entry {
	result := make([]Entry, 0, len(counts))
	for word, n := range counts {
		result = append(result, Entry{Word: word, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}

// Truncate returns at most n leading entries of ranked.
func Truncate(ranked []Entry, n int) []Entry {
	if n >= 0 && len(ranked) > n {
		return ranked[:n]
	}
	return ranked
}

// entryHeap is a min-heap on Count so the smallest retained entry is
// evicted first.
type entryHeap []Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool { return h[i].Count < h[j].Count }

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(Entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
