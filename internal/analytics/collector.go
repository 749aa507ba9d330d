// Package analytics records what the service computes. A Collector buffers
// RunEvents and publishes them in batches; an Aggregator folds events into
// in-memory statistics, either directly or by consuming the Kafka topic the
// Collector publishes to.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/kafka"
)

// Publisher delivers a batch of events. *kafka.Producer and *Aggregator
// both satisfy it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector decouples request handling from event delivery. Track never
// blocks; events are dropped when the buffer is full.
type Collector struct {
	publisher     Publisher
	eventCh       chan RunEvent
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}
}

func NewCollector(publisher Publisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan RunEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the delivery loop. It runs until ctx is cancelled or Close
// is called, flushing whatever is buffered before returning.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.Background(), batch)
					return
				}
				batch = append(batch, kafka.Event{Key: event.Text, Value: event})
				if len(batch) >= c.batchSize {
					c.flush(ctx, batch)
					batch = batch[:0]
				}
			case <-ticker.C:
				c.flush(ctx, batch)
				batch = batch[:0]
			case <-ctx.Done():
				batch = c.drainRemaining(batch)
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.flush(flushCtx, batch)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track enqueues an event without blocking.
func (c *Collector) Track(event RunEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "text", event.Text)
	}
}

// Close stops accepting events and waits for the final flush. Track must not
// be called afterwards.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) drainRemaining(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, kafka.Event{Key: event.Text, Value: event})
		default:
			return batch
		}
	}
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
		return
	}
	c.logger.Debug("analytics events published", "count", len(batch))
}
