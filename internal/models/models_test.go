package models

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferenceAllows(t *testing.T) {
	priorities := []Priority{PriorityHigh, PriorityMedium, PriorityLow}

	for _, p := range priorities {
		assert.True(t, PreferenceAll.Allows(p), p)
		assert.False(t, PreferenceNone.Allows(p), p)
	}
	assert.True(t, PreferenceImportantOnly.Allows(PriorityHigh))
	assert.True(t, PreferenceImportantOnly.Allows(PriorityMedium))
	assert.False(t, PreferenceImportantOnly.Allows(PriorityLow))
	assert.False(t, Preference("BOGUS").Allows(PriorityHigh))
}

func TestParse(t *testing.T) {
	pref, err := ParsePreference("IMPORTANT")
	require.NoError(t, err)
	assert.Equal(t, PreferenceImportantOnly, pref)

	_, err = ParsePreference("important")
	var invalid *InvalidArgumentError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "preference", invalid.Field)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	prio, err := ParsePriority("LOW")
	require.NoError(t, err)
	assert.Equal(t, PriorityLow, prio)
	_, err = ParsePriority("URGENT")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	typ, err := ParseNotificationType("SYSTEM_NOTIFICATION")
	require.NoError(t, err)
	assert.Equal(t, TypeSystemNotification, typ)
	_, err = ParseNotificationType("")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPriceModelValidate(t *testing.T) {
	valid := PriceModel{Symbol: "AAPL", CurrentPrice: 170.5, Volatility: 0.25}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		model PriceModel
		field string
	}{
		{"empty symbol", PriceModel{CurrentPrice: 1}, "symbol"},
		{"zero price", PriceModel{Symbol: "X"}, "currentPrice"},
		{"negative price", PriceModel{Symbol: "X", CurrentPrice: -1}, "currentPrice"},
		{"NaN price", PriceModel{Symbol: "X", CurrentPrice: math.NaN()}, "currentPrice"},
		{"infinite price", PriceModel{Symbol: "X", CurrentPrice: math.Inf(1)}, "currentPrice"},
		{"negative volatility", PriceModel{Symbol: "X", CurrentPrice: 1, Volatility: -0.1}, "volatility"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.model.Validate()
			var invalid *InvalidArgumentError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestPriceDelta(t *testing.T) {
	up := PriceDelta{Symbol: "AAPL", Name: "Apple Inc.", PercentChange: 1}
	assert.Equal(t, "increased", up.Direction())
	assert.Equal(t, "Apple Inc.", up.DisplayName())

	down := PriceDelta{Symbol: "BTC", PercentChange: -0.01}
	assert.Equal(t, "decreased", down.Direction())
	assert.Equal(t, "BTC", down.DisplayName())
}

func TestProjectionSummary(t *testing.T) {
	r := &ProjectionResult{
		InitialCapital:   1000,
		HorizonYears:     2,
		FinalOptimistic:  1440,
		FinalModerate:    1210,
		FinalPessimistic: 810,
	}

	s := r.Summary()
	assert.InDelta(t, 440, s.Optimistic.Gain, 1e-9)
	assert.InDelta(t, 44, s.Optimistic.GainPct, 1e-9)
	assert.InDelta(t, 0.2, s.Optimistic.CAGR, 1e-9)
	assert.InDelta(t, 0.1, s.Moderate.CAGR, 1e-9)
	assert.InDelta(t, -0.1, s.Pessimistic.CAGR, 1e-9)
	assert.Equal(t, 810.0, s.Pessimistic.FinalValue)
}
