package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// TickRepository stores ingested price ticks
type TickRepository interface {
	CreatePriceTicksBatch(ctx context.Context, ticks []models.PriceTick) (int64, error)
}

// IngestObserver receives the number of ticks stored per message
type IngestObserver interface {
	RecordTicksIngested(n int)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// TickConsumer feeds the price tick store from the ingestion topic
type TickConsumer struct {
	reader   messageReader
	repo     TickRepository
	observer IngestObserver
	logger   *slog.Logger
	now      func() time.Time
}

// NewTickConsumer creates a consumer for PRICE_TICKS events
func NewTickConsumer(brokers []string, topic, groupID string, repo TickRepository, observer IngestObserver, logger *slog.Logger) *TickConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &TickConsumer{
		reader:   reader,
		repo:     repo,
		observer: observer,
		logger:   logger.With("component", "tick_consumer"),
		now:      time.Now,
	}
}

// Start begins consuming messages until ctx is cancelled
func (c *TickConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting tick consumer", "topic", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("tick consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				c.logger.Error("error reading message", "error", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error("error processing message",
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
			}
		}
	}
}

func (c *TickConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PriceTickEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal price tick event: %w", err)
	}

	if event.EventType != models.EventTypePriceTicks {
		c.logger.Debug("ignoring event type", "event_type", event.EventType)
		return nil
	}

	ticks := c.convertEntries(event)
	if len(ticks) == 0 {
		return nil
	}

	n, err := c.repo.CreatePriceTicksBatch(ctx, ticks)
	if err != nil {
		return fmt.Errorf("failed to save price ticks: %w", err)
	}
	if c.observer != nil {
		c.observer.RecordTicksIngested(int(n))
	}

	c.logger.Debug("stored price ticks", "received", len(ticks), "inserted", n, "source", event.Source)
	return nil
}

// convertEntries drops entries with an unusable asset key or price. An
// unparseable sample time falls back to the envelope timestamp, and only
// then to the current time.
func (c *TickConsumer) convertEntries(event models.PriceTickEvent) []models.PriceTick {
	ticks := make([]models.PriceTick, 0, len(event.Data))
	for _, e := range event.Data {
		key := strings.TrimSpace(e.AssetKey)
		if key == "" {
			c.logger.Warn("dropping price tick without asset key", "source", event.Source)
			continue
		}

		price, err := decimal.NewFromString(strings.TrimSpace(e.Price))
		if err != nil || price.IsNegative() {
			c.logger.Warn("dropping price tick with invalid price", "asset", key, "price", e.Price)
			continue
		}

		sampledAt, ok := parseTimestamp(e.SampledAt)
		if !ok {
			sampledAt, ok = parseTimestamp(event.Timestamp)
			if !ok {
				sampledAt = c.now()
				c.logger.Error("invalid price tick timestamp, falling back to now",
					"asset", key,
					"sampled_at", e.SampledAt,
					"event_timestamp", event.Timestamp,
				)
			} else {
				c.logger.Warn("invalid price tick timestamp, using event timestamp",
					"asset", key,
					"sampled_at", e.SampledAt,
				)
			}
		}

		ticks = append(ticks, models.PriceTick{
			AssetKey:  key,
			Price:     price,
			SampledAt: sampledAt.UTC(),
		})
	}
	return ticks
}

// parseTimestamp accepts RFC3339, a zoneless ISO time (read as UTC) or
// unix seconds/milliseconds.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, true
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		if n > 1e12 {
			return time.UnixMilli(n), true
		}
		return time.Unix(n, 0), true
	}
	return time.Time{}, false
}

// Close closes the Kafka consumer
func (c *TickConsumer) Close() error {
	return c.reader.Close()
}
