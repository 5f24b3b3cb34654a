// Package projection projects an investment's value under optimistic, moderate
// and pessimistic scenarios with quarterly compounding and gaussian noise.
package projection

import (
	"fmt"
	"math"
	"time"

	"github.com/trogers1052/market-notifier/internal/models"
	"gonum.org/v1/gonum/stat"
)

const (
	quartersPerYear = 4
	monthsPerStep   = 3

	optimisticMultiplier  = 1.3
	pessimisticMultiplier = 0.7
	pessimisticFloor      = 0.01

	// noise is scaled by volatility/8 per quarter
	noiseDivisor = 8
)

// ScenarioRates are the annual return rates used for each path
type ScenarioRates struct {
	Optimistic  float64
	Moderate    float64
	Pessimistic float64
}

// RatesFor derives the three scenario rates from the expected annual return
func RatesFor(baseReturn float64) ScenarioRates {
	return ScenarioRates{
		Optimistic:  baseReturn * optimisticMultiplier,
		Moderate:    baseReturn,
		Pessimistic: math.Max(baseReturn*pessimisticMultiplier, pessimisticFloor),
	}
}

// Project runs a projection starting today
func Project(initialCapital float64, horizonYears int, model models.PriceModel, rng RandomSource) (*models.ProjectionResult, error) {
	return ProjectAt(time.Now(), initialCapital, horizonYears, model, rng)
}

// ProjectAt runs a projection whose first data point is dated start.
// A nil rng uses a wall-clock seeded normal source.
func ProjectAt(start time.Time, initialCapital float64, horizonYears int, model models.PriceModel, rng RandomSource) (*models.ProjectionResult, error) {
	if !(initialCapital > 0) || math.IsInf(initialCapital, 0) {
		return nil, models.NewInvalidArgument("initialCapital", fmt.Sprintf("must be positive, got %v", initialCapital))
	}
	if horizonYears < 1 {
		return nil, models.NewInvalidArgument("horizonYears", fmt.Sprintf("must be at least 1, got %d", horizonYears))
	}
	if model.Volatility < 0 || math.IsNaN(model.Volatility) {
		return nil, models.NewInvalidArgument("volatility", fmt.Sprintf("must not be negative, got %v", model.Volatility))
	}
	if rng == nil {
		rng = NewTimeSeededSource()
	}

	rates := RatesFor(model.AnnualReturn)
	steps := horizonYears * quartersPerYear
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())

	result := &models.ProjectionResult{
		Symbol:         model.Symbol,
		InitialCapital: initialCapital,
		HorizonYears:   horizonYears,
		StartDate:      start,
		Series:         make([]models.DataPoint, 0, steps+1),
	}

	date := start
	optimistic, moderate, pessimistic := initialCapital, initialCapital, initialCapital
	result.Series = append(result.Series, models.DataPoint{
		Date:        start,
		Optimistic:  optimistic,
		Moderate:    moderate,
		Pessimistic: pessimistic,
	})

	for q := 1; q <= steps; q++ {
		optimistic *= growth(rates.Optimistic, model.Volatility, rng)
		moderate *= growth(rates.Moderate, model.Volatility, rng)
		pessimistic *= growth(rates.Pessimistic, model.Volatility, rng)
		date = addMonths(date, monthsPerStep)

		result.Series = append(result.Series, models.DataPoint{
			Date:        date,
			Optimistic:  optimistic,
			Moderate:    moderate,
			Pessimistic: pessimistic,
		})
	}

	last := result.Series[len(result.Series)-1]
	result.EndDate = last.Date
	result.FinalOptimistic = last.Optimistic
	result.FinalModerate = last.Moderate
	result.FinalPessimistic = last.Pessimistic
	return result, nil
}

// addMonths moves t forward n months, clamping the day to the end of the
// target month instead of overflowing into the next one
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return first.AddDate(0, 0, day-1)
}

func growth(annualRate, volatility float64, rng RandomSource) float64 {
	noise := rng.Gaussian() * volatility / noiseDivisor
	return 1 + annualRate/quartersPerYear + noise
}

// ScenarioMeans is the average value of each scenario across a series
type ScenarioMeans struct {
	Optimistic  float64 `json:"optimistic"`
	Moderate    float64 `json:"moderate"`
	Pessimistic float64 `json:"pessimistic"`
}

// SeriesMeans averages each scenario across the whole series
func SeriesMeans(r *models.ProjectionResult) ScenarioMeans {
	n := len(r.Series)
	opt := make([]float64, n)
	mod := make([]float64, n)
	pes := make([]float64, n)
	for i, p := range r.Series {
		opt[i], mod[i], pes[i] = p.Optimistic, p.Moderate, p.Pessimistic
	}
	return ScenarioMeans{
		Optimistic:  stat.Mean(opt, nil),
		Moderate:    stat.Mean(mod, nil),
		Pessimistic: stat.Mean(pes, nil),
	}
}
