package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/optionstaxhub/backend/src/models"
)

func lotWithPrice(symbol string, purchased time.Time, qty, costBasis, currentPrice float64) *models.TaxLot {
	price := currentPrice
	return &models.TaxLot{
		Symbol:            symbol,
		Quantity:          qty,
		CostBasisPerShare: costBasis,
		TotalCostBasis:    costBasis * qty,
		PurchaseDate:      purchased,
		CurrentPrice:      &price,
		AssetType:         models.AssetTypeStock,
	}
}

func TestComputeLotMetricsScenario(t *testing.T) {
	h := NewHarvestingProcessor()
	lots := []*models.TaxLot{
		lotWithPrice("AAPL", day(2025, 1, 15), 10, 100, 90),
	}

	h.ComputeLotMetrics(lots, day(2025, 6, 1))

	require.NotNil(t, lots[0].UnrealizedPnL)
	assert.InDelta(t, -100.00, *lots[0].UnrealizedPnL, 1e-9)
	assert.InDelta(t, -10.00, *lots[0].UnrealizedPnLPct, 1e-9)
	assert.Equal(t, 137, lots[0].HoldingPeriodDays)
	assert.False(t, lots[0].IsLongTerm)
}

func TestComputeLotMetricsLongTermBoundary(t *testing.T) {
	h := NewHarvestingProcessor()
	reference := day(2026, 1, 1)

	exactly365 := lotWithPrice("A", reference.AddDate(0, 0, -365), 1, 10, 9)
	days366 := lotWithPrice("B", reference.AddDate(0, 0, -366), 1, 10, 9)
	h.ComputeLotMetrics([]*models.TaxLot{exactly365, days366}, reference)

	assert.Equal(t, 365, exactly365.HoldingPeriodDays)
	assert.False(t, exactly365.IsLongTerm)
	assert.Equal(t, 366, days366.HoldingPeriodDays)
	assert.True(t, days366.IsLongTerm)
}

func TestComputeLotMetricsZeroCostBasis(t *testing.T) {
	h := NewHarvestingProcessor()
	lot := lotWithPrice("FREE", day(2025, 1, 1), 10, 0, 5)
	h.ComputeLotMetrics([]*models.TaxLot{lot}, day(2025, 6, 1))

	require.NotNil(t, lot.UnrealizedPnLPct)
	assert.Equal(t, 0.0, *lot.UnrealizedPnLPct)
	assert.InDelta(t, 50.0, *lot.UnrealizedPnL, 1e-9)
}

func TestComputeLotMetricsNoPrice(t *testing.T) {
	h := NewHarvestingProcessor()
	lot := &models.TaxLot{Symbol: "X", Quantity: 1, CostBasisPerShare: 10, TotalCostBasis: 10, PurchaseDate: day(2025, 1, 1)}
	h.ComputeLotMetrics([]*models.TaxLot{lot}, day(2025, 6, 1))

	assert.Nil(t, lot.UnrealizedPnL)
	assert.Equal(t, 151, lot.HoldingPeriodDays)
}

func TestAggregatePositions(t *testing.T) {
	h := NewHarvestingProcessor()
	lots := []*models.TaxLot{
		lotWithPrice("AAPL", day(2025, 1, 1), 10, 100, 90),
		lotWithPrice("AAPL", day(2025, 3, 1), 10, 80, 90),
		lotWithPrice("MSFT", day(2024, 1, 1), 5, 300, 400),
	}
	h.ComputeLotMetrics(lots, day(2025, 6, 1))

	positions := h.AggregatePositions(lots)
	require.Len(t, positions, 2)

	aapl := positions[0]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, 20.0, aapl.Quantity)
	assert.InDelta(t, 90.0, aapl.AvgCostBasis, 1e-9)
	assert.InDelta(t, 1800.0, aapl.TotalCostBasis, 1e-9)
	require.NotNil(t, aapl.MarketValue)
	assert.InDelta(t, 1800.0, *aapl.MarketValue, 1e-9)
	assert.Equal(t, day(2025, 1, 1), aapl.EarliestPurchaseDate)
	assert.Len(t, aapl.TaxLots, 2)

	msft := positions[1]
	assert.Equal(t, "MSFT", msft.Symbol)
	assert.True(t, msft.IsLongTerm)
}

func TestGenerateSuggestionsRankingAndPriority(t *testing.T) {
	h := NewHarvestingProcessor()
	lots := []*models.TaxLot{
		lotWithPrice("AAPL", day(2025, 1, 1), 10, 100, 90),  // loss 100
		lotWithPrice("NVDA", day(2025, 1, 1), 10, 500, 400), // loss 1000
		lotWithPrice("MSFT", day(2025, 1, 1), 10, 300, 350), // gain, excluded
	}
	h.ComputeLotMetrics(lots, day(2025, 9, 1))

	p := profile(models.FilingSingle, 100000, 2025)
	suggestions := h.GenerateSuggestions(lots, nil, p, nil, day(2025, 9, 1))

	require.Len(t, suggestions, 2)
	assert.Equal(t, "NVDA", suggestions[0].Symbol)
	assert.Equal(t, 1, suggestions[0].Priority)
	assert.Equal(t, "AAPL", suggestions[1].Symbol)
	assert.Equal(t, 2, suggestions[1].Priority)
	assert.Greater(t, suggestions[0].TaxSavingsEstimate, suggestions[1].TaxSavingsEstimate)
	assert.Equal(t, "SELL", suggestions[0].Action)
	assert.InDelta(t, 1000.0, suggestions[0].EstimatedLoss, 1e-9)
	assert.InDelta(t, 220.0, suggestions[0].TaxSavingsEstimate, 1e-9)
}

func TestGenerateSuggestionsExcludesLotInOwnWashWindow(t *testing.T) {
	h := NewHarvestingProcessor()
	reference := day(2025, 9, 1)

	// The lot itself was purchased 10 days ago; selling it now cannot avoid
	// a wash sale.
	recent := lotWithPrice("AAPL", reference.AddDate(0, 0, -10), 10, 100, 90)
	h.ComputeLotMetrics([]*models.TaxLot{recent}, reference)
	transactions := []models.Transaction{
		buy("AAPL", reference.AddDate(0, 0, -10), 10, 100),
	}

	p := profile(models.FilingSingle, 100000, 2025)
	suggestions := h.GenerateSuggestions([]*models.TaxLot{recent}, transactions, p, nil, reference)
	assert.Empty(t, suggestions)
}

func TestGenerateSuggestionsFlagsRiskFromOtherPurchase(t *testing.T) {
	h := NewHarvestingProcessor()
	reference := day(2025, 9, 1)

	// Old lot at a loss plus a fresh same-symbol buy: flagged but kept.
	oldLot := lotWithPrice("AAPL", day(2025, 1, 1), 10, 100, 90)
	h.ComputeLotMetrics([]*models.TaxLot{oldLot}, reference)
	transactions := []models.Transaction{
		buy("AAPL", day(2025, 1, 1), 10, 100),
		buy("AAPL", reference.AddDate(0, 0, -5), 5, 92),
	}

	p := profile(models.FilingSingle, 100000, 2025)
	suggestions := h.GenerateSuggestions([]*models.TaxLot{oldLot}, transactions, p, nil, reference)

	require.Len(t, suggestions, 1)
	assert.True(t, suggestions[0].WashSaleRisk)
	assert.Contains(t, suggestions[0].WashSaleExplanation, "Wash-sale risk")
}

func TestGenerateSuggestionsAdvisorReplacements(t *testing.T) {
	h := NewHarvestingProcessor()
	lots := []*models.TaxLot{lotWithPrice("AAPL", day(2025, 1, 1), 10, 100, 90)}
	h.ComputeLotMetrics(lots, day(2025, 9, 1))

	advisor := map[string]models.AdvisorSuggestion{
		"AAPL": {
			Symbol:      "AAPL",
			Explanation: "Harvest now to offset gains.",
			Replacements: []models.ReplacementCandidate{
				{Symbol: "VGT", Name: "Vanguard Information Technology ETF", Reason: "Sector exposure"},
				{Symbol: "", Name: "bogus", Reason: "filtered out"},
			},
		},
	}

	p := profile(models.FilingSingle, 100000, 2025)
	suggestions := h.GenerateSuggestions(lots, nil, p, advisor, day(2025, 9, 1))

	require.Len(t, suggestions, 1)
	assert.True(t, suggestions[0].AIGenerated)
	assert.Equal(t, "Harvest now to offset gains.", suggestions[0].AIExplanation)
	require.Len(t, suggestions[0].ReplacementCandidates, 1)
	assert.Equal(t, "VGT", suggestions[0].ReplacementCandidates[0].Symbol)
}

func TestFallbackReplacements(t *testing.T) {
	aapl := FallbackReplacements("AAPL")
	require.Len(t, aapl, 2)
	assert.Equal(t, "XLK", aapl[0].Symbol)
	assert.Equal(t, "QQQ", aapl[1].Symbol)

	unknown := FallbackReplacements("ZZZZ")
	require.Len(t, unknown, 2)
	assert.Equal(t, "VTI", unknown[0].Symbol)
	assert.Equal(t, "SPY", unknown[1].Symbol)
}

func TestCapSuggestionsToTarget(t *testing.T) {
	h := NewHarvestingProcessor()
	p := profile(models.FilingSingle, 100000, 2025)
	reference := day(2025, 9, 1)

	suggestions := []models.HarvestingSuggestion{
		{Symbol: "A", EstimatedLoss: 2500, TaxSavingsEstimate: 550, Priority: 1},
		{Symbol: "B", EstimatedLoss: 2000, TaxSavingsEstimate: 440, Priority: 2},
		{Symbol: "C", EstimatedLoss: 1000, TaxSavingsEstimate: 220, Priority: 3},
	}

	// No realized gains: target is the 3000 loss limit. A (2500) does not
	// meet it alone, so B is added; C is cut.
	capped := h.CapSuggestionsToTarget(suggestions, nil, p, reference)
	require.Len(t, capped, 2)
	assert.Equal(t, "A", capped[0].Symbol)
	assert.Equal(t, "B", capped[1].Symbol)
	assert.Equal(t, 1, capped[0].Priority)
	assert.Equal(t, 2, capped[1].Priority)
}

func TestCapSuggestionsAlwaysKeepsOne(t *testing.T) {
	h := NewHarvestingProcessor()
	p := profile(models.FilingSingle, 100000, 2025)

	suggestions := []models.HarvestingSuggestion{
		{Symbol: "A", EstimatedLoss: 50000, TaxSavingsEstimate: 11000, Priority: 1},
		{Symbol: "B", EstimatedLoss: 100, TaxSavingsEstimate: 22, Priority: 2},
	}
	capped := h.CapSuggestionsToTarget(suggestions, nil, p, day(2025, 9, 1))
	require.Len(t, capped, 1)
	assert.Equal(t, "A", capped[0].Symbol)

	assert.Empty(t, h.CapSuggestionsToTarget(nil, nil, p, day(2025, 9, 1)))
}

func TestCapSuggestionsUsesRealizedGains(t *testing.T) {
	h := NewHarvestingProcessor()
	p := profile(models.FilingSingle, 100000, 2025)
	reference := day(2025, 9, 1)

	// Realized gain of 5000 raises the target to 8000. A alone falls short,
	// A+B reaches 8500, so C is cut.
	transactions := []models.Transaction{
		buy("NVDA", day(2025, 1, 1), 10, 100),
		sell("NVDA", day(2025, 2, 1), 10, 600),
	}
	suggestions := []models.HarvestingSuggestion{
		{Symbol: "A", EstimatedLoss: 4500, TaxSavingsEstimate: 990, Priority: 1},
		{Symbol: "B", EstimatedLoss: 4000, TaxSavingsEstimate: 880, Priority: 2},
		{Symbol: "C", EstimatedLoss: 1000, TaxSavingsEstimate: 220, Priority: 3},
	}

	capped := h.CapSuggestionsToTarget(suggestions, transactions, p, reference)
	require.Len(t, capped, 2)
	assert.Equal(t, "B", capped[1].Symbol)
}

func TestBuildSummary(t *testing.T) {
	h := NewHarvestingProcessor()
	lots := []*models.TaxLot{
		lotWithPrice("AAPL", day(2025, 1, 1), 10, 100, 90),  // loss 100
		lotWithPrice("MSFT", day(2025, 1, 1), 5, 300, 400),  // gain 500
	}
	h.ComputeLotMetrics(lots, day(2025, 6, 1))
	positions := h.AggregatePositions(lots)

	suggestions := []models.HarvestingSuggestion{
		{Symbol: "AAPL", EstimatedLoss: 100, TaxSavingsEstimate: 22},
	}
	flags := []models.WashSaleFlag{{Symbol: "AAPL"}}

	summary := h.BuildSummary(positions, suggestions, flags)
	assert.InDelta(t, 2900.0, summary.TotalMarketValue, 1e-9)
	assert.InDelta(t, 2500.0, summary.TotalCostBasis, 1e-9)
	assert.InDelta(t, 400.0, summary.TotalUnrealizedPnL, 1e-9)
	assert.InDelta(t, 16.0, summary.TotalUnrealizedPnLPct, 1e-9)
	assert.InDelta(t, 100.0, summary.TotalHarvestableLosses, 1e-9)
	assert.InDelta(t, 22.0, summary.EstimatedTaxSavings, 1e-9)
	assert.Equal(t, 2, summary.PositionsCount)
	assert.Equal(t, 1, summary.LotsWithLosses)
	assert.Equal(t, 1, summary.LotsWithGains)
	assert.Equal(t, 1, summary.WashSaleFlagsCount)
}

func TestBuildSummaryEmpty(t *testing.T) {
	h := NewHarvestingProcessor()
	summary := h.BuildSummary(nil, nil, nil)
	assert.Equal(t, 0, summary.PositionsCount)
	assert.Equal(t, 0.0, summary.TotalUnrealizedPnLPct)
}
