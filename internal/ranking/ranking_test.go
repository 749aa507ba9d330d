package ranking

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/counter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireRanked(t *testing.T, entries []Entry) {
	t.Helper()
	for i := 1; i < len(entries); i++ {
		require.GreaterOrEqual(t, entries[i-1].Count, entries[i].Count,
			"entry %d (%v) ranked above %d (%v)", i-1, entries[i-1], i, entries[i])
	}
}

func TestRankTieTruncation(t *testing.T) {
	counts := counter.WordCount{"a": 5, "b": 5, "c": 10}

	got := Rank(counts, 2)
	require.Len(t, got, 2)
	requireRanked(t, got)
	assert.Equal(t, Entry{Word: "c", Count: 10}, got[0])
	assert.Contains(t, []string{"a", "b"}, got[1].Word)
	assert.Equal(t, uint64(5), got[1].Count)
}

func TestRankLimits(t *testing.T) {
	counts := make(counter.WordCount)
	for i := 1; i <= 250; i++ {
		counts[fmt.Sprintf("w%03d", i)] = uint64(i % 40)
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"top 100", 100, 100},
		{"top 30", 30, 30},
		{"zero means all", 0, 250},
		{"negative means all", -1, 250},
		{"limit above size", 1000, 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(counts, tt.limit)
			assert.Len(t, got, tt.want)
			requireRanked(t, got)
			if len(got) > 0 {
				assert.Equal(t, uint64(39), got[0].Count)
			}
		})
	}
}

func TestRankHeapMatchesFullSortCounts(t *testing.T) {
	counts := make(counter.WordCount)
	for i := 0; i < 500; i++ {
		counts[fmt.Sprintf("word%d", i)] = uint64((i * 7919) % 97)
	}
	full := Rank(counts, 0)
	top := Rank(counts, 25)
	for i := range top {
		assert.Equal(t, full[i].Count, top[i].Count, "position %d", i)
	}
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(counter.WordCount{}, 10))
}

func TestTruncate(t *testing.T) {
	ranked := []Entry{{"c", 3}, {"b", 2}, {"a", 1}}
	assert.Len(t, Truncate(ranked, 2), 2)
	assert.Len(t, Truncate(ranked, 5), 3)
	assert.Empty(t, Truncate(ranked, 0))
}

func TestEntryJSON(t *testing.T) {
	data, err := json.Marshal([]Entry{{"renzo", 585}, {"tutto", 520}})
	require.NoError(t, err)
	assert.JSONEq(t, `[["renzo",585],["tutto",520]]`, string(data))

	var decoded []Entry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []Entry{{"renzo", 585}, {"tutto", 520}}, decoded)

	var bad Entry
	assert.Error(t, json.Unmarshal([]byte(`["only"]`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`{"word":"x"}`), &bad))
}
