package monitor

import (
	"math"

	"github.com/trogers1052/market-notifier/internal/models"
)

// HighPriorityChangePercent is the absolute move above which a price alert is High
const HighPriorityChangePercent = 5.0

// Classify maps a price delta to a notification priority
func Classify(delta models.PriceDelta) models.Priority {
	if math.Abs(delta.PercentChange) > HighPriorityChangePercent {
		return models.PriorityHigh
	}
	return models.PriorityMedium
}
