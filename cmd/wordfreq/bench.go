package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var benchFlags struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	texts       []string
	limit       int
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load-test a running wordfreq service",
	Long: `Requests rankings from a running service with a pool of concurrent
clients and reports throughput, latency percentiles, status codes and the
cache hit rate. Texts default to everything GET /api/v1/texts lists.`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	f := benchCmd.Flags()
	f.StringVar(&benchFlags.baseURL, "url", "http://localhost:3005", "base URL of the service")
	f.IntVarP(&benchFlags.concurrency, "concurrency", "c", 10, "concurrent clients")
	f.DurationVarP(&benchFlags.duration, "duration", "d", 30*time.Second, "test duration")
	f.StringSliceVar(&benchFlags.texts, "text", nil, "text to request (repeatable)")
	f.IntVar(&benchFlags.limit, "limit", 10, "ranked entries per request")
}

type benchStats struct {
	total     atomic.Int64
	success   atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int64
}

func newBenchStats() *benchStats {
	return &benchStats{
		latencies: make([]time.Duration, 0, 100000),
		statuses:  make(map[int]int64),
	}
}

func (s *benchStats) record(d time.Duration, status int, cached bool, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
		if cached {
			s.cacheHits.Add(1)
		}
	} else {
		s.failed.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statuses[status]++
	s.mu.Unlock()
}

func runBench(cmd *cobra.Command, _ []string) error {
	if benchFlags.concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        benchFlags.concurrency * 2,
			MaxIdleConnsPerHost: benchFlags.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	names := benchFlags.texts
	if len(names) == 0 {
		var err error
		if names, err = listTexts(cmd.Context(), client, benchFlags.baseURL); err != nil {
			return err
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no texts to request at %s", benchFlags.baseURL)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "target %s, %d clients, %s, %d texts\n",
		benchFlags.baseURL, benchFlags.concurrency, benchFlags.duration, len(names))

	ctx, cancel := context.WithTimeout(cmd.Context(), benchFlags.duration)
	defer cancel()
	stats := bench(ctx, client, benchFlags.baseURL, names, benchFlags.limit, benchFlags.concurrency)
	printBenchReport(out, stats, benchFlags.duration)
	if stats.total.Load() == 0 {
		return fmt.Errorf("no requests completed, is the service running?")
	}
	return nil
}

func listTexts(ctx context.Context, client *http.Client, baseURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/texts", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing texts: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing texts: status %d", resp.StatusCode)
	}
	var body struct {
		Texts []struct {
			Name string `json:"name"`
		} `json:"texts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding text list: %w", err)
	}
	names := make([]string, 0, len(body.Texts))
	for _, t := range body.Texts {
		names = append(names, t.Name)
	}
	return names, nil
}

// bench runs concurrency clients until ctx is done. Client i starts at text
// i so the first round spreads over the library.
func bench(ctx context.Context, client *http.Client, baseURL string, names []string, limit, concurrency int) *benchStats {
	stats := newBenchStats()
	var g errgroup.Group
	for i := range concurrency {
		g.Go(func() error {
			for n := i; ctx.Err() == nil; n++ {
				target := fmt.Sprintf("%s/api/v1/texts/%s/words?limit=%d",
					baseURL, url.PathEscape(names[n%len(names)]), limit)
				start := time.Now()
				status, cached, err := fetchRanking(ctx, client, target)
				if ctx.Err() != nil {
					return nil
				}
				stats.record(time.Since(start), status, cached, err)
			}
			return nil
		})
	}
	g.Wait()
	return stats
}

func fetchRanking(ctx context.Context, client *http.Client, target string) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	var body struct {
		Cached bool `json:"cached"`
	}
	if resp.StatusCode == http.StatusOK {
		json.NewDecoder(resp.Body).Decode(&body)
	}
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, body.Cached, nil
}

func printBenchReport(w io.Writer, s *benchStats, duration time.Duration) {
	total := s.total.Load()
	fmt.Fprintf(w, "\nrequests   %d\n", total)
	fmt.Fprintf(w, "successful %d\n", s.success.Load())
	fmt.Fprintf(w, "failed     %d\n", s.failed.Load())
	if total > 0 {
		fmt.Fprintf(w, "req/sec    %.2f\n", float64(total)/duration.Seconds())
	}
	if ok := s.success.Load(); ok > 0 {
		fmt.Fprintf(w, "cache hits %.1f%%\n", float64(s.cacheHits.Load())/float64(ok)*100)
	}

	s.mu.Lock()
	latencies := slices.Clone(s.latencies)
	statuses := make(map[int]int64, len(s.statuses))
	for code, n := range s.statuses {
		statuses[code] = n
	}
	s.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		fmt.Fprintf(w, "\nlatency min %s avg %s p50 %s p90 %s p99 %s max %s\n",
			latencies[0],
			sum/time.Duration(len(latencies)),
			latencyPercentile(latencies, 50),
			latencyPercentile(latencies, 90),
			latencyPercentile(latencies, 99),
			latencies[len(latencies)-1],
		)
	}

	codes := make([]int, 0, len(statuses))
	for code := range statuses {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "status %d: %d\n", code, statuses[code])
	}
}

func latencyPercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
