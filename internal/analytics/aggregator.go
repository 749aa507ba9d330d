package analytics

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/kafka"
)

const maxLatencySamples = 10000

type Stats struct {
	TotalRuns      int64       `json:"total_runs"`
	ComputedRuns   int64       `json:"computed_runs"`
	CachedRuns     int64       `json:"cached_runs"`
	FailedRuns     int64       `json:"failed_runs"`
	CacheHitRate   float64     `json:"cache_hit_rate"`
	LinesProcessed uint64      `json:"lines_processed"`
	WordsCounted   uint64      `json:"words_counted"`
	AvgLatencyMs   float64     `json:"avg_latency_ms"`
	P50LatencyMs   int64       `json:"p50_latency_ms"`
	P95LatencyMs   int64       `json:"p95_latency_ms"`
	P99LatencyMs   int64       `json:"p99_latency_ms"`
	TopTexts       []TextCount `json:"top_texts"`
	RunsPerMinute  float64     `json:"runs_per_minute"`
}

type TextCount struct {
	Text  string `json:"text"`
	Count int64  `json:"count"`
}

// Aggregator keeps running statistics over RunEvents. Latencies are kept in
// a ring of the most recent samples.
type Aggregator struct {
	mu             sync.RWMutex
	totalRuns      atomic.Int64
	cachedRuns     atomic.Int64
	failedRuns     atomic.Int64
	linesProcessed atomic.Uint64
	wordsCounted   atomic.Uint64
	latencies      []int64
	nextLatency    int
	textCounts     map[string]int64
	startTime      time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:  make([]int64, 0, 1024),
		textCounts: make(map[string]int64),
		startTime:  time.Now(),
		logger:     slog.Default().With("component", "analytics-aggregator"),
	}
}

// ConsumeFrom attaches a Kafka consumer whose handler should be
// HandleMessage. Start then blocks on it.
func (a *Aggregator) ConsumeFrom(consumer *kafka.Consumer) {
	a.consumer = consumer
}

// Start consumes the attached topic until ctx is cancelled. Without a
// consumer it returns immediately.
func (a *Aggregator) Start(ctx context.Context) error {
	if a.consumer == nil {
		return nil
	}
	a.logger.Info("analytics aggregator consuming")
	return a.consumer.Start(ctx)
}

// HandleMessage decodes a RunEvent from a Kafka message. Undecodable
// messages are logged and skipped so they are committed rather than
// redelivered forever.
func (a *Aggregator) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[RunEvent](value)
	if err != nil {
		a.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
		return nil
	}
	a.Record(event)
	return nil
}

// PublishBatch records events in-process, letting the Aggregator stand in
// for Kafka when no broker is configured.
func (a *Aggregator) PublishBatch(_ context.Context, events []kafka.Event) error {
	for _, e := range events {
		event, ok := e.Value.(RunEvent)
		if !ok {
			return fmt.Errorf("unexpected analytics event type %T", e.Value)
		}
		a.Record(event)
	}
	return nil
}

// Record folds one event into the statistics.
func (a *Aggregator) Record(event RunEvent) {
	a.totalRuns.Add(1)
	switch {
	case event.Failed:
		a.failedRuns.Add(1)
	case event.Cached:
		a.cachedRuns.Add(1)
	default:
		a.linesProcessed.Add(event.Lines)
		a.wordsCounted.Add(event.TotalWords)
	}

	a.mu.Lock()
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.nextLatency] = event.LatencyMs
		a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
	}
	if !event.Failed {
		a.textCounts[event.Text]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		TotalRuns:      a.totalRuns.Load(),
		CachedRuns:     a.cachedRuns.Load(),
		FailedRuns:     a.failedRuns.Load(),
		LinesProcessed: a.linesProcessed.Load(),
		WordsCounted:   a.wordsCounted.Load(),
	}
	stats.ComputedRuns = stats.TotalRuns - stats.CachedRuns - stats.FailedRuns
	if served := stats.CachedRuns + stats.ComputedRuns; served > 0 {
		stats.CacheHitRate = float64(stats.CachedRuns) / float64(served)
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopTexts = topN(a.textCounts, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.RunsPerMinute = float64(stats.TotalRuns) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []TextCount {
	result := make([]TextCount, 0, len(counts))
	for text, count := range counts {
		result = append(result, TextCount{Text: text, Count: count})
	}
	slices.SortFunc(result, func(a, b TextCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Text, b.Text)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
