package models

import (
	"math"
	"time"
)

// DataPoint is one quarterly sample of the three projected scenarios
type DataPoint struct {
	Date        time.Time `json:"date"`
	Optimistic  float64   `json:"optimistic"`
	Moderate    float64   `json:"moderate"`
	Pessimistic float64   `json:"pessimistic"`
}

// ProjectionResult is the complete output of one projection request
type ProjectionResult struct {
	Symbol           string      `json:"symbol"`
	InitialCapital   float64     `json:"initial_capital"`
	HorizonYears     int         `json:"horizon_years"`
	StartDate        time.Time   `json:"start_date"`
	EndDate          time.Time   `json:"end_date"`
	Series           []DataPoint `json:"series"`
	FinalOptimistic  float64     `json:"final_optimistic"`
	FinalModerate    float64     `json:"final_moderate"`
	FinalPessimistic float64     `json:"final_pessimistic"`
}

// ScenarioSummary describes how one scenario ended up
type ScenarioSummary struct {
	FinalValue float64 `json:"final_value"`
	Gain       float64 `json:"gain"`
	GainPct    float64 `json:"gain_pct"`
	CAGR       float64 `json:"cagr"`
}

// ProjectionSummary groups the per-scenario summaries
type ProjectionSummary struct {
	Optimistic  ScenarioSummary `json:"optimistic"`
	Moderate    ScenarioSummary `json:"moderate"`
	Pessimistic ScenarioSummary `json:"pessimistic"`
}

// Summary computes gain and compound annual growth per scenario
func (r *ProjectionResult) Summary() ProjectionSummary {
	return ProjectionSummary{
		Optimistic:  r.summarize(r.FinalOptimistic),
		Moderate:    r.summarize(r.FinalModerate),
		Pessimistic: r.summarize(r.FinalPessimistic),
	}
}

func (r *ProjectionResult) summarize(final float64) ScenarioSummary {
	s := ScenarioSummary{FinalValue: final}
	if r.InitialCapital <= 0 || r.HorizonYears < 1 {
		return s
	}
	s.Gain = final - r.InitialCapital
	s.GainPct = s.Gain / r.InitialCapital * 100
	if final > 0 {
		s.CAGR = math.Pow(final/r.InitialCapital, 1/float64(r.HorizonYears)) - 1
	}
	return s
}
