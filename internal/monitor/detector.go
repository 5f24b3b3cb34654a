package monitor

import (
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/trogers1052/market-notifier/internal/models"
)

// Significance decides whether a computed delta is worth alerting on
type Significance func(models.PriceDelta) bool

// AlwaysSignificant accepts every delta
func AlwaysSignificant(models.PriceDelta) bool { return true }

// ThresholdSignificance accepts deltas whose absolute change exceeds minPercent
func ThresholdSignificance(minPercent float64) Significance {
	return func(d models.PriceDelta) bool {
		return math.Abs(d.PercentChange) > minPercent
	}
}

// RandomSignificance accepts a delta with the given probability.
// Only meant for demo mode where no real feed exists.
func RandomSignificance(probability float64, r *rand.Rand) Significance {
	var mu sync.Mutex
	return func(models.PriceDelta) bool {
		mu.Lock()
		defer mu.Unlock()
		return r.Float64() < probability
	}
}

// ChangeDetector remembers the last observed price per symbol and reports
// deltas against it. It is owned by the monitor's tick and is not safe for
// concurrent use.
type ChangeDetector struct {
	previous    map[string]float64
	significant Significance
}

// NewChangeDetector creates a detector. A nil predicate accepts every delta.
func NewChangeDetector(significant Significance) *ChangeDetector {
	if significant == nil {
		significant = AlwaysSignificant
	}
	return &ChangeDetector{
		previous:    make(map[string]float64),
		significant: significant,
	}
}

// Observe compares the snapshot against the previous observation of each
// symbol. Unseen symbols are recorded without producing a delta. The stored
// price always advances to the current one. Deltas are sorted by symbol.
func (d *ChangeDetector) Observe(current map[string]models.PriceModel) []models.PriceDelta {
	symbols := make([]string, 0, len(current))
	for symbol := range current {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var deltas []models.PriceDelta
	for _, symbol := range symbols {
		model := current[symbol]
		prev, seen := d.previous[symbol]
		d.previous[symbol] = model.CurrentPrice
		if !seen {
			continue
		}

		delta := models.PriceDelta{
			Symbol:        symbol,
			Name:          model.Name,
			PreviousPrice: prev,
			CurrentPrice:  model.CurrentPrice,
			PercentChange: (model.CurrentPrice - prev) / prev * 100,
		}
		if d.significant(delta) {
			deltas = append(deltas, delta)
		}
	}
	return deltas
}

// Previous returns the stored comparison price for a symbol
func (d *ChangeDetector) Previous(symbol string) (float64, bool) {
	p, ok := d.previous[symbol]
	return p, ok
}
