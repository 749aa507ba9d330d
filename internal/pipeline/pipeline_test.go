package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/collapser"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/counter"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/textrules"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
)

func scenarioRules(c *collapser.Table) counter.Rules {
	return counter.Rules{
		Separators: textrules.NewSeparatorSet(' ', '\n'),
		NoiseWords: textrules.NewNoiseWordSet("the", "a"),
		Collapser:  c,
	}
}

func TestProcessDocumentScenarios(t *testing.T) {
	kitten := collapser.New()
	kitten.Add("cat", "kitten")

	hundredHi := make([]string, 100)
	for i := range hundredHi {
		hundredHi[i] = "hi"
	}

	tests := []struct {
		name     string
		rules    counter.Rules
		document []string
		workers  int
		want     counter.WordCount
	}{
		{
			name:     "A noise words",
			rules:    scenarioRules(nil),
			document: []string{"the cat sat", "a cat ran"},
			workers:  2,
			want:     counter.WordCount{"cat": 2, "sat": 1, "ran": 1},
		},
		{
			name:     "B synonyms",
			rules:    scenarioRules(kitten),
			document: []string{"kitten ran", "cat ran"},
			workers:  3,
			want:     counter.WordCount{"cat": 2, "ran": 2},
		},
		{
			name:     "C digits and short tokens",
			rules:    scenarioRules(nil),
			document: []string{"123 45", "x"},
			workers:  2,
			want:     counter.WordCount{},
		},
		{
			name:     "D many workers",
			rules:    scenarioRules(nil),
			document: hundredHi,
			workers:  4,
			want:     counter.WordCount{"hi": 100},
		},
		{
			name:     "empty document",
			rules:    scenarioRules(nil),
			document: nil,
			workers:  4,
			want:     counter.WordCount{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ProcessDocument(context.Background(), tt.document, tt.rules, tt.workers)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Counts)
			assert.Equal(t, uint64(len(tt.document)), res.Lines)
			assert.Equal(t, tt.workers, res.Workers)
		})
	}
}

func TestMergeIndependentOfWorkerCount(t *testing.T) {
	words := []string{"renzo", "lucia", "Don", "Abbondio", "bravi", "lago", "Como", "the", "42", "x"}
	document := make([]string, 0, 997)
	for i := 0; i < cap(document); i++ {
		document = append(document, fmt.Sprintf("%s %s %s", words[i%len(words)], words[(i*3)%len(words)], words[(i*7)%len(words)]))
	}
	rules := scenarioRules(nil)

	want, err := ProcessDocument(context.Background(), document, rules, 1)
	require.NoError(t, err)
	require.NotEmpty(t, want.Counts)

	for _, n := range []int{2, 3, 4, 7, 16, 64, 2000} {
		for _, queue := range []int{0, 1, 256} {
			d, err := New(n, WithQueueSize(queue))
			require.NoError(t, err)
			got, err := d.ProcessLines(context.Background(), document, rules)
			require.NoError(t, err)
			assert.Equal(t, want.Counts, got.Counts, "workers=%d queue=%d", n, queue)
		}
	}
}

func TestNewRejectsEmptyPool(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = ProcessDocument(context.Background(), []string{"hi"}, counter.Rules{}, -1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestProcessReaderKeepsTerminators(t *testing.T) {
	d, err := New(2)
	require.NoError(t, err)
	rules := counter.Rules{
		Separators: textrules.NewSeparatorSet(' '),
		NoiseWords: textrules.NewNoiseWordSet("the", "a"),
	}
	res, err := d.ProcessReader(context.Background(),
		strings.NewReader("the cat sat\r\na cat ran\r\nlast line"), rules)
	require.NoError(t, err)
	assert.Equal(t, counter.WordCount{"cat": 2, "sat": 1, "ran": 1, "last": 1, "line": 1}, res.Counts)
	assert.Equal(t, uint64(3), res.Lines)
}

func TestReadFailure(t *testing.T) {
	d, err := New(2)
	require.NoError(t, err)
	r := io.MultiReader(strings.NewReader("cat sat\n"), iotest.ErrReader(errors.New("disk gone")))
	res, err := d.ProcessReader(context.Background(), r, scenarioRules(nil))
	assert.Nil(t, res)
	require.ErrorIs(t, err, apperrors.ErrIO)

	var se *apperrors.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.StageRead, se.Stage)
	assert.Contains(t, err.Error(), "disk gone")
}

type panicAccumulator struct{}

func (panicAccumulator) ProcessLine(string)        { panic("broken worker") }
func (panicAccumulator) Counts() counter.WordCount { return nil }
func (panicAccumulator) LinesProcessed() uint64    { return 0 }

func panicking(counter.Rules) Accumulator { return panicAccumulator{} }

func TestDispatchFailure(t *testing.T) {
	d, err := New(1, WithQueueSize(0), WithAccumulatorFactory(panicking))
	require.NoError(t, err)

	res, err := d.ProcessLines(context.Background(), []string{"one", "two", "three"}, counter.Rules{})
	assert.Nil(t, res)
	require.ErrorIs(t, err, apperrors.ErrDispatch)
	assert.NotErrorIs(t, err, apperrors.ErrCollect)

	var se *apperrors.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.StageDispatch, se.Stage)
	assert.Equal(t, 0, se.Worker)
	assert.Contains(t, err.Error(), "broken worker")
}

func TestCollectFailure(t *testing.T) {
	d, err := New(1, WithQueueSize(0), WithAccumulatorFactory(panicking))
	require.NoError(t, err)

	res, err := d.ProcessLines(context.Background(), []string{"only"}, counter.Rules{})
	assert.Nil(t, res)
	require.ErrorIs(t, err, apperrors.ErrCollect)

	var se *apperrors.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.StageCollect, se.Stage)
	assert.Equal(t, 0, se.Worker)
}

func TestOneBrokenWorkerFailsWholeRun(t *testing.T) {
	factoryCalls := 0
	factory := func(rules counter.Rules) Accumulator {
		factoryCalls++
		if factoryCalls == 3 {
			return panicAccumulator{}
		}
		return counter.New(rules)
	}
	d, err := New(4, WithQueueSize(2), WithAccumulatorFactory(factory))
	require.NoError(t, err)

	document := make([]string, 200)
	for i := range document {
		document[i] = "hi there"
	}
	res, err := d.ProcessLines(context.Background(), document, scenarioRules(nil))
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDispatch) || errors.Is(err, apperrors.ErrCollect), err.Error())
	assert.Equal(t, 500, apperrors.HTTPStatusCode(err))
}

func TestResultRanked(t *testing.T) {
	res, err := ProcessDocument(context.Background(),
		[]string{"lago lago lago", "como como", "renzo"}, scenarioRules(nil), 2)
	require.NoError(t, err)

	top := res.Ranked(2)
	require.Len(t, top, 2)
	assert.Equal(t, "lago", top[0].Word)
	assert.Equal(t, uint64(3), top[0].Count)
	assert.Equal(t, "como", top[1].Word)
	assert.Len(t, res.Ranked(0), 3)
}

func TestLinesStopsEarly(t *testing.T) {
	var got []string
	for line, err := range Lines(strings.NewReader("a\nb\nc\n")) {
		require.NoError(t, err)
		got = append(got, line)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a\n", "b\n"}, got)
}

func BenchmarkProcessLines(b *testing.B) {
	document := make([]string, 20000)
	for i := range document {
		document[i] = "quel ramo del lago di Como che volge a mezzogiorno tra due catene non interrotte di monti"
	}
	rules := counter.Rules{
		Separators: textrules.NewSeparatorSet(' ', ',', '.', '\n'),
		NoiseWords: textrules.NewNoiseWordSet("di", "del", "che", "tra", "non"),
	}
	for _, n := range []int{1, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", n), func(b *testing.B) {
			d, err := New(n)
			require.NoError(b, err)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := d.ProcessLines(context.Background(), document, rules); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
