package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/trogers1052/market-notifier/internal/models"
)

// Source is anything that supplies current prices
type Source interface {
	CurrentPrices(ctx context.Context) ([]models.PriceModel, error)
}

// BreakerConfig tunes when the breaker opens
type BreakerConfig struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Breaker stops calling a failing price source until it has had time to recover.
// While open, CurrentPrices fails fast with gobreaker.ErrOpenState.
type Breaker struct {
	source Source
	cb     *gobreaker.CircuitBreaker
}

// NewBreaker wraps source in a circuit breaker
func NewBreaker(source Source, cfg BreakerConfig, log zerolog.Logger) *Breaker {
	if cfg.Name == "" {
		cfg.Name = "price-source"
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	log = log.With().Str("component", "price_breaker").Logger()

	st := gobreaker.Settings{Name: cfg.Name}
	st.Timeout = cfg.OpenTimeout
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("breaker state changed")
	}

	return &Breaker{source: source, cb: gobreaker.NewCircuitBreaker(st)}
}

// CurrentPrices calls the wrapped source through the breaker
func (b *Breaker) CurrentPrices(ctx context.Context) ([]models.PriceModel, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.source.CurrentPrices(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	return out.([]models.PriceModel), nil
}

// State reports the breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
