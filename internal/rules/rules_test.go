package rules

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/collapser"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/counter"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/textrules"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
)

func writeRules(t *testing.T, dir string) Source {
	t.Helper()
	src := Source{
		SeparatorsFile: filepath.Join(dir, "separators.txt"),
		NoiseWordsFile: filepath.Join(dir, "noise.txt"),
		SynonymsFile:   filepath.Join(dir, "synonyms.txt"),
	}
	require.NoError(t, os.WriteFile(src.SeparatorsFile, []byte(" \n,\n"), 0o644))
	require.NoError(t, os.WriteFile(src.NoiseWordsFile, []byte("the\nA\n"), 0o644))
	require.NoError(t, os.WriteFile(src.SynonymsFile, []byte("kitten;cat\n"), 0o644))
	return src
}

func TestLoadDefaults(t *testing.T) {
	snap, err := Load(context.Background(), Source{})
	require.NoError(t, err)
	assert.True(t, snap.Separators.Contains(' '))
	assert.True(t, snap.Separators.Contains('\n'))
	assert.Equal(t, 0, snap.NoiseWords.Len())
	assert.Equal(t, 0, snap.Collapser.Len())
	assert.Equal(t, uint64(0), snap.Generation)
}

func TestLoadFiles(t *testing.T) {
	src := writeRules(t, t.TempDir())
	snap, err := Load(context.Background(), src)
	require.NoError(t, err)

	assert.True(t, snap.Separators.Contains(','))
	assert.True(t, snap.NoiseWords.Contains("a"))
	canonical, ok := snap.Collapser.Collapse("kitten")
	assert.True(t, ok)
	assert.Equal(t, "cat", canonical)

	acc := counter.New(snap.Rules())
	acc.ProcessLine("the kitten, a cat")
	assert.Equal(t, counter.WordCount{"cat": 2}, acc.Counts())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(context.Background(), Source{NoiseWordsFile: filepath.Join(dir, "missing.txt")})
	assert.ErrorIs(t, err, apperrors.ErrIO)

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("no delimiter\n"), 0o644))
	_, err = Load(context.Background(), Source{SynonymsFile: bad})
	assert.ErrorIs(t, err, apperrors.ErrFormat)
}

func TestFingerprintFollowsContent(t *testing.T) {
	dir := t.TempDir()
	src := writeRules(t, dir)
	first, err := Load(context.Background(), src)
	require.NoError(t, err)
	again, err := Load(context.Background(), src)
	require.NoError(t, err)
	require.NotEmpty(t, first.Fingerprint)
	assert.Equal(t, first.Fingerprint, again.Fingerprint)

	require.NoError(t, os.WriteFile(src.SynonymsFile, []byte("kitten;cat\npuppy;dog\n"), 0o644))
	synonyms, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, synonyms.Fingerprint)

	require.NoError(t, os.WriteFile(src.NoiseWordsFile, []byte("the\n"), 0o644))
	noise, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.NotEqual(t, synonyms.Fingerprint, noise.Fingerprint)

	require.NoError(t, os.WriteFile(src.SeparatorsFile, []byte(" \n"), 0o644))
	separators, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.NotEqual(t, noise.Fingerprint, separators.Fingerprint)
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	a := collapser.New()
	a.Add("bc", "a")
	b := collapser.New()
	b.Add("c", "ab")
	fp := func(table *collapser.Table) string {
		return (&Snapshot{Collapser: table}).ComputeFingerprint()
	}
	assert.NotEqual(t, fp(a), fp(b))
}

func TestStoreReloadKeepsPreviousOnFailure(t *testing.T) {
	src := writeRules(t, t.TempDir())
	var okReloads, failedReloads atomic.Int32
	hook := func(snap *Snapshot, err error) {
		if err != nil {
			failedReloads.Add(1)
			return
		}
		okReloads.Add(1)
	}

	store, err := NewStore(context.Background(), src, WithReloadHook(hook))
	require.NoError(t, err)
	first := store.Current()
	assert.Equal(t, uint64(1), first.Generation)

	require.NoError(t, os.WriteFile(src.SynonymsFile, []byte("gattino;cat\n"), 0o644))
	second, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Generation)
	assert.Same(t, second, store.Current())

	_, ok := first.Collapser.Collapse("kitten")
	assert.True(t, ok, "published snapshots must not change")
	_, ok = second.Collapser.Collapse("kitten")
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(src.SynonymsFile, []byte(";cat\n"), 0o644))
	_, err = store.Reload(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrFormat)
	assert.Same(t, second, store.Current())

	assert.Equal(t, int32(2), okReloads.Load())
	assert.Equal(t, int32(1), failedReloads.Load())
}

func TestNewStoreFailsWithoutSnapshot(t *testing.T) {
	_, err := NewStore(context.Background(), Source{SeparatorsFile: filepath.Join(t.TempDir(), "nope")})
	assert.ErrorIs(t, err, apperrors.ErrIO)
}

func TestStaticStore(t *testing.T) {
	table := collapser.New()
	table.Add("cat", "kitten")
	store := NewStaticStore(&Snapshot{
		Separators: textrules.NewSeparatorSet(' '),
		NoiseWords: textrules.NewNoiseWordSet(),
		Collapser:  table,
	})
	assert.Equal(t, uint64(1), store.Current().Generation)
	assert.NotEmpty(t, store.Current().Fingerprint)

	snap, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Same(t, table, snap.Collapser)
	assert.Equal(t, store.Current().Fingerprint, snap.Fingerprint)
}

func TestSourceFiles(t *testing.T) {
	src := Source{SeparatorsFile: "s", SynonymsFile: "y"}
	assert.Equal(t, []string{"s", "y"}, src.Files())
}

func TestWatcherReloadsOnChange(t *testing.T) {
	src := writeRules(t, t.TempDir())
	store, err := NewStore(context.Background(), src)
	require.NoError(t, err)

	w, err := NewWatcher(store, 20*time.Millisecond)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(src.NoiseWordsFile, []byte("the\na\ncat\n"), 0o644))

	require.Eventually(t, func() bool {
		return store.Current().NoiseWords.Contains("cat")
	}, 3*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, store.Current().Generation, uint64(2))

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	src := writeRules(t, dir)
	store, err := NewStore(context.Background(), src)
	require.NoError(t, err)

	w, err := NewWatcher(store, 10*time.Millisecond)
	require.NoError(t, err)
	w.Start(context.Background())
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, uint64(1), store.Current().Generation)
}
