package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/market-notifier/internal/config"
	"github.com/trogers1052/market-notifier/internal/models"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestProjectCommand(t *testing.T) {
	t.Run("seeded output is reproducible", func(t *testing.T) {
		first, err := runCLI(t, "project", "--symbol", "aapl", "--capital", "1000", "--years", "3", "--seed", "9", "--series")
		require.NoError(t, err)
		second, err := runCLI(t, "project", "--symbol", "AAPL", "--capital", "1000", "--years", "3", "--seed", "9", "--series")
		require.NoError(t, err)
		assert.JSONEq(t, first, second)

		var out projectOutput
		require.NoError(t, json.Unmarshal([]byte(first), &out))
		assert.Equal(t, "AAPL", out.Symbol)
		assert.Len(t, out.Series, 13)
		assert.Equal(t, out.Final.Moderate, out.Summary.Moderate.FinalValue)
	})

	t.Run("zero volatility is deterministic", func(t *testing.T) {
		raw, err := runCLI(t, "project", "--symbol", "CUSTOM", "--return", "0.1", "--volatility", "0", "--capital", "100", "--years", "1")
		require.NoError(t, err)

		var out projectOutput
		require.NoError(t, json.Unmarshal([]byte(raw), &out))
		assert.InDelta(t, 100*1.025*1.025*1.025*1.025, out.Final.Moderate, 1e-9)
		assert.Empty(t, out.Series)
	})

	t.Run("rejects unknown symbols without parameters", func(t *testing.T) {
		_, err := runCLI(t, "project", "--symbol", "NOPE")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown symbol NOPE")
	})

	t.Run("invalid arguments surface the field", func(t *testing.T) {
		_, err := runCLI(t, "project", "--capital=-5")
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)

		_, err = runCLI(t, "project", "--years", "0")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})
}

func TestSignificanceFromConfig(t *testing.T) {
	small := models.PriceDelta{PercentChange: 0.5}
	large := models.PriceDelta{PercentChange: -2}

	always := significance(config.MonitorConfig{Significance: config.SignificanceAlways})
	assert.True(t, always(models.PriceDelta{}))

	threshold := significance(config.MonitorConfig{Significance: config.SignificanceThreshold, SignificanceThreshold: 1})
	assert.False(t, threshold(small))
	assert.True(t, threshold(large))

	never := significance(config.MonitorConfig{Significance: config.SignificanceRandom, SignificanceProbability: 0})
	assert.False(t, never(large))
	certain := significance(config.MonitorConfig{Significance: config.SignificanceRandom, SignificanceProbability: 1})
	assert.True(t, certain(small))
}
