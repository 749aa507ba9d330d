package collapser

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/postgres"
)

// Runs against the database named by WF_TEST_POSTGRES_HOST and skips when
// none is reachable.
func testClient(t *testing.T) *postgres.Client {
	t.Helper()
	host := os.Getenv("WF_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("WF_TEST_POSTGRES_HOST not set")
	}
	cfg := config.Default().Postgres
	cfg.Host = host
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := postgres.New(ctx, cfg)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.EnsureSchema(ctx))
	return client
}

func TestSQLRoundTrip(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	src := New()
	src.Add("cat", "kitten")
	src.Add("cat", "gattino")
	src.Add("dog", "puppy")

	require.NoError(t, client.InTx(ctx, func(tx *sql.Tx) error {
		return src.SaveSQL(ctx, tx)
	}))

	loaded, err := LoadSQL(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, src.Bindings(), loaded.Bindings())
	for _, b := range src.Bindings() {
		got, ok := loaded.Collapse(b.Synonym)
		assert.True(t, ok)
		assert.Equal(t, b.Canonical, got)
	}
}
