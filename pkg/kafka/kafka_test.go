package kafka

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/config"
)

type run struct {
	Text  string `json:"text"`
	Lines int    `json:"lines"`
}

func TestEncodeMessages(t *testing.T) {
	msgs, err := encodeMessages([]Event{
		{Key: "promessi.txt", Value: run{Text: "promessi.txt", Lines: 3}},
		{Key: "inferno.txt", Value: run{Text: "inferno.txt", Lines: 1}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "promessi.txt", string(msgs[0].Key))
	assert.JSONEq(t, `{"text":"promessi.txt","lines":3}`, string(msgs[0].Value))

	_, err = encodeMessages([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[run]([]byte(`{"text":"inferno.txt","lines":7}`))
	require.NoError(t, err)
	assert.Equal(t, run{Text: "inferno.txt", Lines: 7}, got)

	_, err = DecodeJSON[run]([]byte(`{"text":`))
	assert.ErrorContains(t, err, "decoding kafka message")
}

func TestPingWithoutBrokers(t *testing.T) {
	p := NewProducer(config.KafkaConfig{Topic: "wordfreq-runs"})
	defer p.Close()
	assert.ErrorContains(t, p.Ping(context.Background()), "no brokers configured")
}

func TestRoundTrip(t *testing.T) {
	brokers := os.Getenv("WF_TEST_KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("WF_TEST_KAFKA_BROKERS not set")
	}
	cfg := config.KafkaConfig{
		Brokers:       strings.Split(brokers, ","),
		Topic:         "wordfreq-test-" + time.Now().Format("150405.000"),
		ConsumerGroup: "wordfreq-test",
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p := NewProducer(cfg)
	defer p.Close()
	if err := p.Ping(ctx); err != nil {
		t.Skipf("kafka unreachable: %v", err)
	}

	received := make(chan run, 1)
	c := NewConsumer(cfg, func(_ context.Context, _ []byte, value []byte) error {
		r, err := DecodeJSON[run](value)
		if err != nil {
			return err
		}
		select {
		case received <- r:
		default:
		}
		return nil
	})
	defer c.Close()
	go c.Start(ctx)

	// The consumer starts at the latest offset, so publish until one lands.
	for {
		_ = p.Publish(ctx, Event{Key: "promessi.txt", Value: run{Text: "promessi.txt", Lines: 3}})
		select {
		case r := <-received:
			assert.Equal(t, "promessi.txt", r.Text)
			return
		case <-time.After(time.Second):
		case <-ctx.Done():
			t.Fatal("no message consumed")
		}
	}
}
