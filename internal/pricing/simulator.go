// Package pricing provides price sources for the monitor: a random-walk
// simulator for demo mode and a circuit breaker wrapper for remote feeds.
package pricing

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/market-notifier/internal/models"
)

const (
	// MaxStepChange bounds a single random-walk step to +/-3%
	MaxStepChange = 0.03
	// MinPrice is the floor a simulated price never drops below
	MinPrice = 0.01
)

// PriceWriter persists simulated prices
type PriceWriter interface {
	UpdateInvestmentPrice(ctx context.Context, symbol string, price float64) error
}

// Simulator walks every price by a uniform step in [-3%, +3%) each time
// prices are read.
type Simulator struct {
	mu     sync.Mutex
	prices map[string]models.PriceModel
	rng    *rand.Rand
	writer PriceWriter
	now    func() time.Time
	log    zerolog.Logger
}

// NewSimulator creates a Simulator starting from base. A nil rng is seeded from the clock.
func NewSimulator(base []models.PriceModel, rng *rand.Rand, log zerolog.Logger) *Simulator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	prices := make(map[string]models.PriceModel, len(base))
	for _, p := range base {
		prices[p.Symbol] = p
	}
	return &Simulator{
		prices: prices,
		rng:    rng,
		now:    time.Now,
		log:    log.With().Str("component", "price_simulator").Logger(),
	}
}

// WithWriter makes the simulator persist every step through w
func (s *Simulator) WithWriter(w PriceWriter) *Simulator {
	s.writer = w
	return s
}

// CurrentPrices advances the walk one step and returns the new prices ordered by symbol
func (s *Simulator) CurrentPrices(ctx context.Context) ([]models.PriceModel, error) {
	prices := s.Step()

	if s.writer != nil {
		for _, p := range prices {
			if err := s.writer.UpdateInvestmentPrice(ctx, p.Symbol, p.CurrentPrice); err != nil {
				return nil, fmt.Errorf("failed to persist simulated price for %s: %w", p.Symbol, err)
			}
		}
	}
	return prices, nil
}

// Step moves every price once and returns the result
func (s *Simulator) Step() []models.PriceModel {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]models.PriceModel, 0, len(s.prices))
	for symbol, p := range s.prices {
		change := (s.rng.Float64()*2 - 1) * MaxStepChange
		p.CurrentPrice = NextPrice(p.CurrentPrice, change)
		p.ObservedAt = now
		s.prices[symbol] = p
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })

	s.log.Debug().Int("symbols", len(out)).Msg("simulated price step")
	return out
}

// NextPrice applies a fractional change, clamped to +/-MaxStepChange, rounds
// to cents and enforces the MinPrice floor
func NextPrice(price, change float64) float64 {
	change = math.Max(-MaxStepChange, math.Min(MaxStepChange, change))
	next := math.Round(price*(1+change)*100) / 100
	return math.Max(next, MinPrice)
}
