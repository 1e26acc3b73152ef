package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/optionstaxhub/backend/src/models"
)

const advisorJSON = `{
  "suggestions": {
    "aapl": {
      "replacements": [
        {"symbol": "xlk", "name": "Technology Select Sector SPDR Fund", "reason": "Broad tech sector exposure"},
        {"symbol": "QQQ", "name": "Invesco QQQ Trust", "reason": "Nasdaq-100 exposure"}
      ],
      "explanation": "Harvesting this loss offsets short-term gains.",
      "priority_reasoning": "Largest loss in the portfolio."
    }
  },
  "overall_strategy": "Harvest the largest short-term losses first.",
  "disclaimer": "Educational purposes only."
}`

func TestParseAdvisorResponse(t *testing.T) {
	suggestions, err := parseAdvisorResponse(advisorJSON)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	s, ok := suggestions["AAPL"]
	require.True(t, ok, "symbols are uppercased")
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, "Harvesting this loss offsets short-term gains.", s.Explanation)
	require.Len(t, s.Replacements, 2)
	assert.Equal(t, "XLK", s.Replacements[0].Symbol)
	assert.Equal(t, "Technology Select Sector SPDR Fund", s.Replacements[0].Name)
	assert.Equal(t, "QQQ", s.Replacements[1].Symbol)
}

func TestParseAdvisorResponseStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + advisorJSON + "\n```"

	suggestions, err := parseAdvisorResponse(fenced)
	require.NoError(t, err)
	assert.Len(t, suggestions, 1)
}

func TestParseAdvisorResponseInvalidJSON(t *testing.T) {
	_, err := parseAdvisorResponse("I cannot help with that.")
	require.Error(t, err)
}

func TestPreparePositionsForAdvisor(t *testing.T) {
	loss := -500.0
	gain := 200.0
	price := 100.0

	lots := []*models.TaxLot{
		{Symbol: "AAPL", Quantity: 10, CostBasisPerShare: 150, CurrentPrice: &price, UnrealizedPnL: &loss, HoldingPeriodDays: 120},
		{Symbol: "MSFT", Quantity: 5, CurrentPrice: &price, UnrealizedPnL: &gain},
		{Symbol: "NOPRICE", Quantity: 5, PurchaseDate: time.Now()},
	}

	positions := PreparePositionsForAdvisor(lots)
	require.Len(t, positions, 1, "only loss positions with a known PnL are sent")
	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.Equal(t, -500.0, positions[0].UnrealizedPnL)
	assert.Equal(t, 120, positions[0].HoldingPeriodDays)
}
