package counter

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/collapser"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/textrules"
	"github.com/stretchr/testify/assert"
)

func scenarioRules(c *collapser.Table) Rules {
	return Rules{
		Separators: textrules.NewSeparatorSet(' ', '\n'),
		NoiseWords: textrules.NewNoiseWordSet("the", "a"),
		Collapser:  c,
	}
}

func process(rules Rules, lines ...string) WordCount {
	acc := New(rules)
	for _, line := range lines {
		acc.ProcessLine(line)
	}
	return acc.Counts()
}

func TestProcessLineScenarios(t *testing.T) {
	kitten := collapser.New()
	kitten.Add("cat", "kitten")

	tests := []struct {
		name  string
		rules Rules
		lines []string
		want  WordCount
	}{
		{
			name:  "noise words removed",
			rules: scenarioRules(nil),
			lines: []string{"the cat sat", "a cat ran"},
			want:  WordCount{"cat": 2, "sat": 1, "ran": 1},
		},
		{
			name:  "synonyms collapse to canonical",
			rules: scenarioRules(kitten),
			lines: []string{"kitten ran", "cat ran"},
			want:  WordCount{"cat": 2, "ran": 2},
		},
		{
			name:  "digits and single characters dropped",
			rules: scenarioRules(nil),
			lines: []string{"123 45", "x"},
			want:  WordCount{},
		},
		{
			name:  "case insensitive noise and lower-cased output",
			rules: scenarioRules(nil),
			lines: []string{"The CAT Sat\n"},
			want:  WordCount{"cat": 1, "sat": 1},
		},
		{
			name:  "mixed digits are words",
			rules: scenarioRules(nil),
			lines: []string{"r2d2 1984 3x"},
			want:  WordCount{"r2d2": 1, "3x": 1},
		},
		{
			name:  "length counts characters not bytes",
			rules: scenarioRules(nil),
			lines: []string{"è perché"},
			want:  WordCount{"perché": 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, process(tt.rules, tt.lines...))
		})
	}
}

func TestProcessLineStripsControlCharacters(t *testing.T) {
	rules := Rules{Separators: textrules.NewSeparatorSet(' ')}

	tests := []struct {
		name string
		line string
		want WordCount
	}{
		{"leading tab", "\tcane", WordCount{"cane": 1}},
		{"leading carriage return", "\rcane", WordCount{"cane": 1}},
		{"only one leading character stripped", "\t\tcane", WordCount{"\tcane": 1}},
		{"trailing crlf", "cane\r\n", WordCount{"cane": 1}},
		{"bare trailing newline kept", "cane\n", WordCount{"cane\n": 1}},
		{"crlf alone", "\r\n", WordCount{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, process(rules, tt.line))
		})
	}
}

func TestCollapseAppliesAfterLowercase(t *testing.T) {
	c := collapser.New()
	c.Add("cat", "kitten")
	got := process(scenarioRules(c), "KITTEN Kitten kitten")
	assert.Equal(t, WordCount{"cat": 3}, got)
}

func TestNoiseCheckedBeforeCollapse(t *testing.T) {
	c := collapser.New()
	c.Add("cat", "the")
	got := process(scenarioRules(c), "the cat")
	assert.Equal(t, WordCount{"cat": 1}, got)
}

func TestRegisterWordIsMonotonic(t *testing.T) {
	acc := New(Rules{})
	acc.RegisterWord("cane", 3)
	assert.Equal(t, uint64(3), acc.Counts()["cane"], "unseen words start at delta")

	acc.RegisterWord("cane", 0)
	assert.Equal(t, uint64(3), acc.Counts()["cane"])

	acc.RegisterWord("cane", 2)
	assert.Equal(t, uint64(5), acc.Counts()["cane"])
}

func TestMergeAndTotals(t *testing.T) {
	acc := New(Rules{})
	acc.Merge(WordCount{"a1": 1, "b2": 2})
	acc.Merge(WordCount{"b2": 3})
	assert.Equal(t, WordCount{"a1": 1, "b2": 5}, acc.Counts())
	assert.Equal(t, uint64(6), acc.Counts().Total())
}

func TestLinesProcessed(t *testing.T) {
	acc := New(scenarioRules(nil))
	for _, line := range []string{"", "the", "cat"} {
		acc.ProcessLine(line)
	}
	assert.Equal(t, uint64(3), acc.LinesProcessed())
}

func BenchmarkProcessLine(b *testing.B) {
	acc := New(scenarioRules(nil))
	line := "Quel ramo del lago di Como, che volge a mezzogiorno, tra due catene non interrotte di monti\n"
	b.ReportAllocs()
	b.SetBytes(int64(len(line)))
	for i := 0; i < b.N; i++ {
		acc.ProcessLine(line)
	}
}
