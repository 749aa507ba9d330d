// Package rules owns the tokenizer and synonym configuration shared by every
// run. A Snapshot is immutable once published; reloading builds a new
// Snapshot and swaps the pointer, so a run that already holds a Snapshot
// keeps reading the rules it started with.
package rules

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/collapser"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/counter"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/textrules"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/logger"
)

// DefaultSeparators is used when no separators file is configured.
const DefaultSeparators = " \t\r\n.,;:!?\"'()[]{}<>«»-_"

// Snapshot is one generation of rules. Generation is local to the process;
// Fingerprint identifies the rule content and is stable across processes.
type Snapshot struct {
	Separators  *textrules.SeparatorSet
	NoiseWords  *textrules.NoiseWordSet
	Collapser   *collapser.Table
	Generation  uint64
	Fingerprint string
	LoadedAt    time.Time
}

// ComputeFingerprint hashes the separators, noise words and synonym
// bindings. Two snapshots with equal fingerprints count every text the same.
func (s *Snapshot) ComputeFingerprint() string {
	h := sha256.New()
	if s.Separators != nil {
		writeField(h, string(s.Separators.Runes()))
	}
	h.Write([]byte{0})
	if s.NoiseWords != nil {
		for _, w := range s.NoiseWords.Words() {
			writeField(h, w)
		}
	}
	h.Write([]byte{0})
	if s.Collapser != nil {
		for _, b := range s.Collapser.Bindings() {
			writeField(h, b.Synonym)
			writeField(h, b.Canonical)
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func writeField(h hash.Hash, v string) {
	fmt.Fprintf(h, "%d:%s", len(v), v)
}

// Rules returns the snapshot as accumulator rules.
func (s *Snapshot) Rules() counter.Rules {
	return counter.Rules{
		Separators: s.Separators,
		NoiseWords: s.NoiseWords,
		Collapser:  s.Collapser,
	}
}

// Source says where each rule set comes from. Empty file paths select the
// defaults: DefaultSeparators, no noise words, no synonyms. When SynonymsDB
// is set it takes precedence over SynonymsFile.
type Source struct {
	SeparatorsFile string
	NoiseWordsFile string
	SynonymsFile   string
	SynonymsDB     collapser.Querier
}

// Files returns the configured rule files, skipping empty paths.
func (src Source) Files() []string {
	var files []string
	for _, f := range []string{src.SeparatorsFile, src.NoiseWordsFile} {
		if f != "" {
			files = append(files, f)
		}
	}
	if src.SynonymsDB == nil && src.SynonymsFile != "" {
		files = append(files, src.SynonymsFile)
	}
	return files
}

// Load reads every rule set named by src. The returned snapshot has
// generation 0.
func Load(ctx context.Context, src Source) (*Snapshot, error) {
	snap := &Snapshot{LoadedAt: time.Now()}
	var err error

	if src.SeparatorsFile != "" {
		if snap.Separators, err = textrules.LoadSeparatorsFile(src.SeparatorsFile); err != nil {
			return nil, err
		}
	} else {
		snap.Separators = textrules.NewSeparatorSet([]rune(DefaultSeparators)...)
	}

	if src.NoiseWordsFile != "" {
		if snap.NoiseWords, err = textrules.LoadNoiseWordsFile(src.NoiseWordsFile); err != nil {
			return nil, err
		}
	} else {
		snap.NoiseWords = textrules.NewNoiseWordSet()
	}

	switch {
	case src.SynonymsDB != nil:
		snap.Collapser, err = collapser.LoadSQL(ctx, src.SynonymsDB)
	case src.SynonymsFile != "":
		snap.Collapser, err = collapser.LoadFile(src.SynonymsFile)
	default:
		snap.Collapser = collapser.New()
	}
	if err != nil {
		return nil, err
	}
	snap.Fingerprint = snap.ComputeFingerprint()
	return snap, nil
}

// ReloadHook observes every reload attempt. snap is nil when err is not.
type ReloadHook func(snap *Snapshot, err error)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithReloadHook registers a hook called after each reload attempt.
func WithReloadHook(h ReloadHook) StoreOption {
	return func(s *Store) { s.hooks = append(s.hooks, h) }
}

// Store publishes the current Snapshot.
type Store struct {
	source  Source
	current atomic.Pointer[Snapshot]
	gen     atomic.Uint64
	mu      sync.Mutex
	static  bool
	hooks   []ReloadHook
	logger  *slog.Logger
}

// NewStore loads the initial snapshot. A failure here is fatal to the
// caller since there is no previous snapshot to fall back to.
func NewStore(ctx context.Context, src Source, opts ...StoreOption) (*Store, error) {
	s := &Store{
		source: src,
		logger: logger.WithComponent("rules"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.Reload(ctx); err != nil {
		return nil, fmt.Errorf("loading initial rules: %w", err)
	}
	return s, nil
}

// NewStaticStore wraps an already built snapshot. Reload returns the same
// snapshot under a new generation.
func NewStaticStore(snap *Snapshot) *Store {
	s := &Store{static: true, logger: logger.WithComponent("rules")}
	published := *snap
	published.Fingerprint = published.ComputeFingerprint()
	published.Generation = s.gen.Add(1)
	s.current.Store(&published)
	return s
}

// Current returns the active snapshot. Callers should fetch it once per run.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Source returns the configured rule source.
func (s *Store) Source() Source {
	return s.source
}

// Reload rebuilds the snapshot from the source and publishes it. On error
// the previous snapshot stays active.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		snap *Snapshot
		err  error
	)
	if s.static {
		prev := *s.current.Load()
		snap = &prev
	} else {
		snap, err = Load(ctx, s.source)
	}
	if err != nil {
		s.logger.Error("rules reload failed, keeping previous snapshot", "error", err)
		for _, h := range s.hooks {
			h(nil, err)
		}
		return nil, err
	}

	snap.Generation = s.gen.Add(1)
	s.current.Store(snap)
	s.logger.Info("rules loaded",
		"generation", snap.Generation,
		"separators", snap.Separators.Len(),
		"noise_words", snap.NoiseWords.Len(),
		"synonyms", snap.Collapser.Len(),
		"fingerprint", snap.Fingerprint,
	)
	for _, h := range s.hooks {
		h(snap, nil)
	}
	return snap, nil
}
