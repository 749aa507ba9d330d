// Package api serves ranked word counts over HTTP. Service runs a text
// through the pipeline with the current rule snapshot and caches the
// ranking; Handler maps requests and errors onto it.
package api

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/rules"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/texts"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/tracing"
)

// Tracker receives one event per served ranking.
type Tracker interface {
	Track(event analytics.RunEvent)
}

// ServiceConfig sizes the output of a run.
type ServiceConfig struct {
	TopK            int
	LogTopN         int
	TraceSampleRate float64
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

func WithTracker(t Tracker) ServiceOption {
	return func(s *Service) { s.tracker = t }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

type Service struct {
	library    *texts.Library
	rules      *rules.Store
	dispatcher *pipeline.Dispatcher
	cache      *cache.Cache
	tracker    Tracker
	metrics    *metrics.Metrics
	cfg        ServiceConfig
	logger     *slog.Logger
}

func NewService(library *texts.Library, store *rules.Store, dispatcher *pipeline.Dispatcher, resultCache *cache.Cache, cfg ServiceConfig, opts ...ServiceOption) *Service {
	if resultCache == nil {
		resultCache = cache.New(nil)
	}
	s := &Service{
		library:    library,
		rules:      store,
		dispatcher: dispatcher,
		cache:      resultCache,
		cfg:        cfg,
		logger:     slog.Default().With("component", "wordfreq-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TopK returns the ranking depth of every run.
func (s *Service) TopK() int { return s.cfg.TopK }

// Rank returns the top-K ranking of the named text, computing it when no
// cached ranking matches the text's current version and rules generation.
func (s *Service) Rank(ctx context.Context, name string) (*cache.Value, bool, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	var span *tracing.Span
	if s.cfg.TraceSampleRate > 0 && rand.Float64() < s.cfg.TraceSampleRate {
		traceID := logger.RequestID(ctx)
		if traceID == "" {
			traceID = tracing.NewTraceID()
		}
		ctx, span = tracing.StartSpan(ctx, "rank", traceID)
		span.SetAttr("text", name)
		defer func() {
			span.End()
			span.Log(log)
		}()
	}

	info, err := s.library.Resolve(name)
	if err != nil {
		return nil, false, err
	}
	snap := s.rules.Current()
	key := cache.Key{
		Text:       info.Name,
		Size:       info.Size,
		ModTime:    info.ModTime,
		Generation: snap.Generation,
		Rules:      snap.Fingerprint,
		TopK:       s.cfg.TopK,
	}

	v, cached, err := s.cache.GetOrCompute(ctx, key, func() (*cache.Value, error) {
		return s.compute(ctx, info.Name, snap)
	})
	latency := time.Since(start)
	if span != nil {
		span.SetAttr("cached", cached)
	}
	if err != nil {
		s.recordFailure(ctx, info.Name, latency, err)
		return nil, false, err
	}
	s.recordSuccess(ctx, v, cached, latency)
	return v, cached, nil
}

func (s *Service) compute(ctx context.Context, name string, snap *rules.Snapshot) (*cache.Value, error) {
	rc, _, err := s.library.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	res, err := s.dispatcher.ProcessReader(ctx, rc, snap.Rules())
	if err != nil {
		return nil, err
	}

	ranked := res.Ranked(s.cfg.TopK)
	s.logTop(ctx, name, ranked)
	if s.metrics != nil {
		s.metrics.LinesProcessedTotal.Add(float64(res.Lines))
		s.metrics.WordsCountedTotal.Add(float64(res.Counts.Total()))
		s.metrics.DistinctWords.WithLabelValues().Observe(float64(len(res.Counts)))
	}
	return &cache.Value{
		Text:          name,
		Words:         ranked,
		TotalWords:    res.Counts.Total(),
		DistinctWords: len(res.Counts),
		Lines:         res.Lines,
		Workers:       res.Workers,
		Generation:    snap.Generation,
	}, nil
}

func (s *Service) logTop(ctx context.Context, name string, ranked []ranking.Entry) {
	if s.cfg.LogTopN <= 0 {
		return
	}
	top := ranking.Truncate(ranked, s.cfg.LogTopN)
	attrs := make([]any, 0, len(top))
	for _, e := range top {
		attrs = append(attrs, slog.Uint64(e.Word, e.Count))
	}
	logger.FromContext(ctx).Info("top words",
		"text", name,
		slog.Group("ranking", attrs...),
	)
}

func (s *Service) recordSuccess(ctx context.Context, v *cache.Value, cached bool, latency time.Duration) {
	cacheStatus := "miss"
	outcome := "ok"
	if cached {
		cacheStatus = "hit"
		outcome = "cached"
	}
	if s.metrics != nil {
		s.metrics.RunsTotal.WithLabelValues(outcome).Inc()
		s.metrics.RunDuration.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	}
	logger.FromContext(ctx).Info("ranking served",
		"text", v.Text,
		"cached", cached,
		"lines", v.Lines,
		"distinct_words", v.DistinctWords,
		"latency_ms", latency.Milliseconds(),
	)
	if s.tracker != nil {
		s.tracker.Track(analytics.RunEvent{
			Text:          v.Text,
			Lines:         v.Lines,
			TotalWords:    v.TotalWords,
			DistinctWords: v.DistinctWords,
			Workers:       v.Workers,
			LatencyMs:     latency.Milliseconds(),
			Cached:        cached,
			TopWords:      ranking.Truncate(v.Words, 10),
			Timestamp:     time.Now().UTC(),
			RequestID:     logger.RequestID(ctx),
		})
	}
}

func (s *Service) recordFailure(ctx context.Context, name string, latency time.Duration, err error) {
	if s.metrics != nil {
		s.metrics.RunsTotal.WithLabelValues("error").Inc()
		var se *apperrors.StageError
		if errors.As(err, &se) {
			s.metrics.StageFailuresTotal.WithLabelValues(string(se.Stage)).Inc()
		}
	}
	logger.FromContext(ctx).Error("ranking failed", "text", name, "error", err)
	if s.tracker != nil {
		s.tracker.Track(analytics.RunEvent{
			Text:      name,
			LatencyMs: latency.Milliseconds(),
			Failed:    true,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}
}
