// Package clickstream carries redirect hits from the request path to the
// mapping store without ever blocking a redirect.
//
// Producers append {short_code, timestamp} entries to a Redis Stream; one
// periodic consumer drains the stream, folds the entries into per-code counts,
// bulk-applies them, and deletes the consumed entries only after the apply
// succeeds. A failed cycle leaves the stream untouched and retries on the next
// tick, so delivery is at-least-once.
package clickstream

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"urlshortener/pkg/logger"
)

// StreamKey is the Redis Stream holding pending click events.
const StreamKey = "url:click:stream"

// DefaultInterval is how often the consumer drains the stream.
const DefaultInterval = 30 * time.Second

type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish appends one click event. Best-effort: a failure is logged and
// swallowed so the redirect response is never delayed or failed by tracking.
func (p *Publisher) Publish(ctx context.Context, shortCode string) {
	err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		Values: map[string]interface{}{
			"short_code": shortCode,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		logger.Error().Err(err).Str("code", shortCode).Msg("failed to publish click event")
	}
}

type event struct {
	id        string
	shortCode string
}

// streamSource lets tests drive the consumer without Redis.
type streamSource interface {
	readAll(ctx context.Context) ([]event, error)
	delete(ctx context.Context, ids []string) error
}

type redisStream struct {
	rdb *redis.Client
}

func (s redisStream) readAll(ctx context.Context) ([]event, error) {
	msgs, err := s.rdb.XRange(ctx, StreamKey, "-", "+").Result()
	if err != nil {
		return nil, err
	}
	events := make([]event, 0, len(msgs))
	for _, msg := range msgs {
		ev := event{id: msg.ID}
		if v, ok := msg.Values["short_code"].(string); ok {
			ev.shortCode = v
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s redisStream) delete(ctx context.Context, ids []string) error {
	return s.rdb.XDel(ctx, StreamKey, ids...).Err()
}

// ClickSink receives the aggregated counts of one consumer cycle.
type ClickSink interface {
	BulkIncrementClicks(ctx context.Context, counts map[string]int64) error
}

type Consumer struct {
	src      streamSource
	sink     ClickSink
	interval time.Duration
}

func NewConsumer(rdb *redis.Client, sink ClickSink, interval time.Duration) *Consumer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Consumer{src: redisStream{rdb: rdb}, sink: sink, interval: interval}
}

// Run drains the stream on a fixed interval until ctx is cancelled. Cycle
// errors are logged and retried on the next tick.
func (c *Consumer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", c.interval).Msg("click consumer started")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("click consumer stopped")
			return
		case <-ticker.C:
			if err := c.ConsumeOnce(ctx); err != nil {
				logger.Error().Err(err).Msg("click consume cycle failed")
			}
		}
	}
}

// ConsumeOnce runs a single drain cycle. Consumed entries are deleted only
// after the bulk increment succeeds; any earlier failure leaves them queued.
func (c *Consumer) ConsumeOnce(ctx context.Context) error {
	events, err := c.src.readAll(ctx)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	counts := make(map[string]int64)
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.shortCode != "" {
			counts[ev.shortCode]++
		}
		ids = append(ids, ev.id)
	}

	if len(counts) > 0 {
		if err := c.sink.BulkIncrementClicks(ctx, counts); err != nil {
			return err
		}
	}

	if err := c.src.delete(ctx, ids); err != nil {
		// the entries will be re-applied next tick; accepted double-count
		// window of the at-least-once contract
		return err
	}

	logger.Debug().Int("events", len(events)).Int("codes", len(counts)).Msg("click events applied")
	return nil
}
