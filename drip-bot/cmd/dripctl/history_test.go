package main

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vignesh-goutham/drip/pkg/types"
)

func TestSummarize(t *testing.T) {
	results := []types.OrderResult{
		{Symbol: "A", BuyAmount: decimal.RequireFromString("510.25"), Result: types.PlacementResult{Response: "ok"}},
		{Symbol: "B", BuyAmount: decimal.RequireFromString("0.5"), Result: types.PlacementResult{Error: types.ErrOrderRejected.Error()}},
		{Symbol: "C", BuyAmount: decimal.RequireFromString("1000"), Result: types.PlacementResult{Response: "ok"}},
	}

	invested, failed := summarize(results, "CAD")

	assert.Equal(t, "$1,510.25", invested)
	assert.Equal(t, 1, failed)
}

func TestPlanCommandIsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"run", "plan", "otp", "history"} {
		assert.True(t, names[name], name)
	}
}

func TestRenderPlan(t *testing.T) {
	var out bytes.Buffer
	results := []types.OrderResult{
		{Symbol: "VFV", BuyAmount: decimal.RequireFromString("510"), DividendAmount: decimal.RequireFromString("10"), Result: types.PlacementResult{Response: "debug mode"}},
		{Symbol: "XEQT", BuyAmount: decimal.RequireFromString("0.5"), Result: types.PlacementResult{Response: "debug mode"}},
	}

	err := renderPlan(&out, results, "CAD")

	require.NoError(t, err)
	assert.Contains(t, out.String(), "VFV")
	assert.Contains(t, out.String(), "$510.00")
	assert.Contains(t, out.String(), "$10.00")
	assert.Contains(t, out.String(), "fractional")
}

func TestHistoryRejectsNonPositiveLimit(t *testing.T) {
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		historyLimit = 10
	})

	for _, limit := range []string{"0", "-3"} {
		t.Run(limit, func(t *testing.T) {
			rootCmd.SetArgs([]string{"history", "--limit=" + limit})

			err := rootCmd.Execute()

			assert.EqualError(t, err, "--limit must be at least 1, got "+limit)
		})
	}
}
