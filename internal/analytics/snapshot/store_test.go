package snapshot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/postgres"
)

func TestSaveAndLatest(t *testing.T) {
	host := os.Getenv("WF_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("WF_TEST_POSTGRES_HOST not set")
	}
	cfg := config.Default().Postgres
	cfg.Host = host
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := postgres.New(ctx, cfg)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	defer client.Close()
	require.NoError(t, client.EnsureSchema(ctx))

	agg := analytics.NewAggregator()
	agg.Record(analytics.RunEvent{Text: "promessi.txt", Lines: 10, TotalWords: 50, LatencyMs: 12})
	agg.Record(analytics.RunEvent{Text: "promessi.txt", Cached: true, LatencyMs: 1})

	store := NewStore(client.DB)
	require.NoError(t, store.Save(ctx, agg.Stats()))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(2), latest.TotalRuns)
	assert.Equal(t, int64(1), latest.CachedRuns)

	list, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
