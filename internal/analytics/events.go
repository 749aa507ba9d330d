package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/ranking"
)

// RunEvent describes one served ranking, computed or cached.
type RunEvent struct {
	Text          string          `json:"text"`
	Lines         uint64          `json:"lines"`
	TotalWords    uint64          `json:"total_words"`
	DistinctWords int             `json:"distinct_words"`
	Workers       int             `json:"workers"`
	LatencyMs     int64           `json:"latency_ms"`
	Cached        bool            `json:"cached"`
	Failed        bool            `json:"failed,omitempty"`
	TopWords      []ranking.Entry `json:"top_words,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	RequestID     string          `json:"request_id,omitempty"`
}
