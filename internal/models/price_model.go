package models

import (
	"fmt"
	"math"
	"time"
)

// PriceModel is an immutable price snapshot for one instrument.
type PriceModel struct {
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name,omitempty"`
	CurrentPrice float64   `json:"current_price"`
	Volatility   float64   `json:"volatility"`    // annualized stddev fraction
	AnnualReturn float64   `json:"annual_return"` // expected, as a fraction
	ObservedAt   time.Time `json:"observed_at,omitempty"`
}

// DisplayName returns the instrument name, falling back to the symbol
func (p PriceModel) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Symbol
}

// Validate checks the snapshot invariants
func (p PriceModel) Validate() error {
	if p.Symbol == "" {
		return NewInvalidArgument("symbol", "must not be empty")
	}
	if !(p.CurrentPrice > 0) || math.IsInf(p.CurrentPrice, 0) {
		return NewInvalidArgument("currentPrice", fmt.Sprintf("must be positive, got %v", p.CurrentPrice))
	}
	if p.Volatility < 0 || math.IsNaN(p.Volatility) {
		return NewInvalidArgument("volatility", fmt.Sprintf("must not be negative, got %v", p.Volatility))
	}
	return nil
}

// PriceDelta is a percentage change between two consecutive observations of a symbol
type PriceDelta struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	PreviousPrice float64 `json:"previous_price"`
	CurrentPrice  float64 `json:"current_price"`
	PercentChange float64 `json:"percent_change"`
}

// Direction describes the sign of the change in words
func (d PriceDelta) Direction() string {
	if d.PercentChange > 0 {
		return "increased"
	}
	return "decreased"
}

// DisplayName returns the instrument name, falling back to the symbol
func (d PriceDelta) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Symbol
}

// PriceEvent is a price update received from the price topic.
// Prices travel as decimal strings.
type PriceEvent struct {
	EventType    string    `json:"event_type"`
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name,omitempty"`
	Price        string    `json:"price"`
	Volatility   *float64  `json:"volatility,omitempty"`
	AnnualReturn *float64  `json:"annual_return,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
