package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/market-notifier/internal/models"
)

// PriceUpdateEvent is the only event type the price consumer applies
const PriceUpdateEvent = "PRICE_UPDATE"

// messageReader is the subset of *kafka.Reader the consumer needs
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// PriceConsumer keeps the latest price per symbol from the price topic and
// serves them as a price source. Volatility and expected return come from the
// base catalogue unless an event carries them.
type PriceConsumer struct {
	reader messageReader
	log    zerolog.Logger

	mu     sync.RWMutex
	latest map[string]models.PriceModel
}

// NewPriceConsumer creates a consumer for price events
func NewPriceConsumer(brokers []string, topic, groupID string, base []models.PriceModel, log zerolog.Logger) *PriceConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})
	return newPriceConsumer(reader, base, log)
}

func newPriceConsumer(reader messageReader, base []models.PriceModel, log zerolog.Logger) *PriceConsumer {
	c := &PriceConsumer{
		reader: reader,
		log:    log.With().Str("component", "price_consumer").Logger(),
		latest: make(map[string]models.PriceModel, len(base)),
	}
	for _, p := range base {
		c.latest[p.Symbol] = p
	}
	return c
}

// Start consumes messages until ctx is cancelled
func (c *PriceConsumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("starting price consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("price consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.log.Error().Err(err).Msg("error reading message")
				continue
			}

			if err := c.processMessage(msg); err != nil {
				c.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping price message")
			}
		}
	}
}

// processMessage applies a single price event
func (c *PriceConsumer) processMessage(msg kafka.Message) error {
	var event models.PriceEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal price event: %w", err)
	}

	if event.EventType != PriceUpdateEvent {
		c.log.Debug().Str("event_type", event.EventType).Msg("ignoring event type")
		return nil
	}

	symbol := strings.ToUpper(strings.TrimSpace(event.Symbol))
	if symbol == "" {
		symbol = strings.ToUpper(string(msg.Key))
	}

	price, err := decimal.NewFromString(event.Price)
	if err != nil {
		return fmt.Errorf("invalid price %q for %s: %w", event.Price, symbol, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	model := c.latest[symbol]
	model.Symbol = symbol
	model.CurrentPrice = price.InexactFloat64()
	if event.Name != "" {
		model.Name = event.Name
	}
	if event.Volatility != nil {
		model.Volatility = *event.Volatility
	}
	if event.AnnualReturn != nil {
		model.AnnualReturn = *event.AnnualReturn
	}
	model.ObservedAt = event.Timestamp
	if model.ObservedAt.IsZero() {
		model.ObservedAt = time.Now().UTC()
	}

	if err := model.Validate(); err != nil {
		return fmt.Errorf("rejected price event for %s: %w", symbol, err)
	}
	c.latest[symbol] = model
	return nil
}

// CurrentPrices returns the latest known price of every symbol, ordered by symbol
func (c *PriceConsumer) CurrentPrices(ctx context.Context) ([]models.PriceModel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	prices := make([]models.PriceModel, 0, len(c.latest))
	for _, p := range c.latest {
		prices = append(prices, p)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Symbol < prices[j].Symbol })
	return prices, nil
}

// Close closes the Kafka reader
func (c *PriceConsumer) Close() error {
	return c.reader.Close()
}
