package processors

import (
	"sort"
	"time"

	"github.com/username/optionstaxhub/backend/src/models"
	"github.com/username/optionstaxhub/backend/src/utils"
)

// Fallback replacement candidates used when the AI advisor is unavailable.
// Maps a ticker to securities with similar exposure that are not
// "substantially identical" under the wash-sale rule.
var xlcReplacement = models.ReplacementCandidate{Symbol: "XLC", Name: "Communication Services Select Sector SPDR"}

var fallbackReplacements = map[string][]models.ReplacementCandidate{
	"AAPL": {
		{Symbol: "XLK", Name: "Technology Select Sector SPDR", Reason: "Broad tech sector ETF"},
		{Symbol: "QQQ", Name: "Invesco QQQ Trust", Reason: "Nasdaq-100 index ETF with heavy AAPL weight"},
	},
	"MSFT": {
		{Symbol: "VGT", Name: "Vanguard Information Technology ETF", Reason: "Broad IT sector exposure"},
		{Symbol: "IGV", Name: "iShares Expanded Tech-Software ETF", Reason: "Software sector ETF"},
	},
	"GOOGL": {
		{Symbol: xlcReplacement.Symbol, Name: xlcReplacement.Name, Reason: "Communication services sector ETF"},
		{Symbol: "VOX", Name: "Vanguard Communication Services ETF", Reason: "Broad communication services exposure"},
	},
	"TSLA": {
		{Symbol: "DRIV", Name: "Global X Autonomous & Electric Vehicles ETF", Reason: "EV and autonomous driving sector ETF"},
		{Symbol: "QCLN", Name: "First Trust NASDAQ Clean Edge Green Energy", Reason: "Clean energy focus including EV"},
	},
	"NVDA": {
		{Symbol: "SMH", Name: "VanEck Semiconductor ETF", Reason: "Broad semiconductor sector ETF"},
		{Symbol: "SOXX", Name: "iShares Semiconductor ETF", Reason: "Semiconductor index exposure"},
	},
	"AMZN": {
		{Symbol: "XLY", Name: "Consumer Discretionary Select Sector SPDR", Reason: "Consumer discretionary sector ETF"},
		{Symbol: "IBUY", Name: "Amplify Online Retail ETF", Reason: "E-commerce focused ETF"},
	},
	"META": {
		{Symbol: xlcReplacement.Symbol, Name: xlcReplacement.Name, Reason: "Communication services sector"},
		{Symbol: "SOCL", Name: "Global X Social Media ETF", Reason: "Social media focused ETF"},
	},
	"AMD": {
		{Symbol: "SMH", Name: "VanEck Semiconductor ETF", Reason: "Semiconductor sector ETF"},
		{Symbol: "PSI", Name: "Invesco Dynamic Semiconductors ETF", Reason: "Dynamic semiconductor exposure"},
	},
	"NFLX": {
		{Symbol: xlcReplacement.Symbol, Name: xlcReplacement.Name, Reason: "Communication services sector"},
		{Symbol: "PEJ", Name: "Invesco Dynamic Leisure & Entertainment ETF", Reason: "Entertainment sector ETF"},
	},
	"DIS": {
		{Symbol: "PEJ", Name: "Invesco Dynamic Leisure & Entertainment ETF", Reason: "Leisure and entertainment sector"},
		{Symbol: xlcReplacement.Symbol, Name: xlcReplacement.Name, Reason: "Communication services exposure"},
	},
}

var defaultReplacements = []models.ReplacementCandidate{
	{Symbol: "VTI", Name: "Vanguard Total Stock Market ETF", Reason: "Broad US market exposure"},
	{Symbol: "SPY", Name: "SPDR S&P 500 ETF", Reason: "S&P 500 index ETF"},
}

// HarvestingProcessor turns computed tax lots into ranked harvesting
// suggestions and dashboard summaries.
type HarvestingProcessor struct {
	washSales *WashSaleProcessor
}

func NewHarvestingProcessor() *HarvestingProcessor {
	return &HarvestingProcessor{washSales: NewWashSaleProcessor()}
}

// ComputeLotMetrics fills in unrealized P&L, holding period, and long-term
// status for each lot. Holding period is measured in whole days against
// referenceDate; long-term means strictly more than 365 days.
func (h *HarvestingProcessor) ComputeLotMetrics(lots []*models.TaxLot, referenceDate time.Time) []*models.TaxLot {
	for _, lot := range lots {
		if lot.CurrentPrice != nil {
			pnl := utils.RoundCents((*lot.CurrentPrice - lot.CostBasisPerShare) * lot.Quantity)
			lot.UnrealizedPnL = &pnl

			pct := 0.0
			if lot.TotalCostBasis > 0 {
				pct = utils.RoundCents(pnl / lot.TotalCostBasis * 100)
			}
			lot.UnrealizedPnLPct = &pct
		}

		lot.HoldingPeriodDays = utils.DaysBetween(lot.PurchaseDate, referenceDate)
		lot.IsLongTerm = lot.HoldingPeriodDays > 365
	}
	return lots
}

// AggregatePositions groups computed lots into one Position per symbol, in
// first-seen order.
func (h *HarvestingProcessor) AggregatePositions(lots []*models.TaxLot) []models.Position {
	bySymbol := make(map[string][]*models.TaxLot)
	var order []string
	for _, lot := range lots {
		if _, ok := bySymbol[lot.Symbol]; !ok {
			order = append(order, lot.Symbol)
		}
		bySymbol[lot.Symbol] = append(bySymbol[lot.Symbol], lot)
	}

	positions := make([]models.Position, 0, len(order))
	for _, symbol := range order {
		symbolLots := bySymbol[symbol]

		var totalQty, totalCost, totalPnL float64
		for _, lot := range symbolLots {
			totalQty += lot.Quantity
			totalCost += lot.TotalCostBasis
			if lot.UnrealizedPnL != nil {
				totalPnL += *lot.UnrealizedPnL
			}
		}

		avgCost := 0.0
		if totalQty > 0 {
			avgCost = totalCost / totalQty
		}
		pnlPct := 0.0
		if totalCost > 0 {
			pnlPct = totalPnL / totalCost * 100
		}

		// All lots for a symbol carry the same quote.
		currentPrice := symbolLots[0].CurrentPrice
		var marketValue *float64
		if currentPrice != nil {
			mv := utils.RoundCents(*currentPrice * totalQty)
			marketValue = &mv
		}

		earliest := symbolLots[0].PurchaseDate
		holdingDays := 0
		isLongTerm := false
		washRisk := false
		for _, lot := range symbolLots {
			if lot.PurchaseDate.Before(earliest) {
				earliest = lot.PurchaseDate
			}
			if lot.HoldingPeriodDays > holdingDays {
				holdingDays = lot.HoldingPeriodDays
			}
			if lot.IsLongTerm {
				isLongTerm = true
			}
			if lot.WashSaleDisallowed > 0 {
				washRisk = true
			}
		}

		positions = append(positions, models.Position{
			Symbol:               symbol,
			Quantity:             totalQty,
			AvgCostBasis:         utils.RoundCents(avgCost),
			TotalCostBasis:       utils.RoundCents(totalCost),
			CurrentPrice:         currentPrice,
			MarketValue:          marketValue,
			UnrealizedPnL:        utils.RoundCents(totalPnL),
			UnrealizedPnLPct:     utils.RoundCents(pnlPct),
			EarliestPurchaseDate: earliest,
			HoldingPeriodDays:    holdingDays,
			IsLongTerm:           isLongTerm,
			AssetType:            symbolLots[0].AssetType,
			TaxLots:              symbolLots,
			WashSaleRisk:         washRisk,
		})
	}

	return positions
}

// GenerateSuggestions builds ranked harvesting suggestions from lots with
// unrealized losses.
//
// A lot whose own purchase falls inside the trailing 30-day window is
// excluded outright: selling it now cannot avoid a wash sale against its own
// acquisition. Lots at risk only because of other recent same-symbol buys
// are flagged but kept.
func (h *HarvestingProcessor) GenerateSuggestions(
	lots []*models.TaxLot,
	transactions []models.Transaction,
	profile models.TaxProfile,
	advisorSuggestions map[string]models.AdvisorSuggestion,
	referenceDate time.Time,
) []models.HarvestingSuggestion {
	var suggestions []models.HarvestingSuggestion

	for _, lot := range lots {
		if lot.UnrealizedPnL == nil || *lot.UnrealizedPnL >= 0 {
			continue
		}
		lossAmount := utils.AbsFloat(*lot.UnrealizedPnL)

		washRisk, washExplanation := h.washSales.CheckProspectiveRisk(lot.Symbol, transactions, referenceDate)
		if washRisk && h.ownPurchaseInWindow(lot, referenceDate) {
			continue
		}

		taxSavings := CalculateTaxSavings(lossAmount, lot.IsLongTerm, profile)

		replacements, aiExplanation, aiGenerated := resolveReplacements(lot.Symbol, advisorSuggestions)

		suggestions = append(suggestions, models.HarvestingSuggestion{
			Symbol:                lot.Symbol,
			Action:                "SELL",
			Quantity:              lot.Quantity,
			CurrentPrice:          lot.CurrentPrice,
			CostBasisPerShare:     lot.CostBasisPerShare,
			EstimatedLoss:         utils.RoundCents(lossAmount),
			TaxSavingsEstimate:    utils.RoundCents(taxSavings),
			HoldingPeriodDays:     lot.HoldingPeriodDays,
			IsLongTerm:            lot.IsLongTerm,
			WashSaleRisk:          washRisk,
			WashSaleExplanation:   washExplanation,
			ReplacementCandidates: replacements,
			AIExplanation:         aiExplanation,
			AIGenerated:           aiGenerated,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].TaxSavingsEstimate > suggestions[j].TaxSavingsEstimate
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}

	return suggestions
}

// ownPurchaseInWindow reports whether the lot itself was acquired within the
// trailing wash-sale window ending at referenceDate.
func (h *HarvestingProcessor) ownPurchaseInWindow(lot *models.TaxLot, referenceDate time.Time) bool {
	windowStart := referenceDate.AddDate(0, 0, -WashSaleWindowDays)
	return !lot.PurchaseDate.Before(windowStart) && !lot.PurchaseDate.After(referenceDate)
}

// CapSuggestionsToTarget trims the ranked suggestion list so the cumulative
// estimated loss does not run far past the harvest target: realized
// year-to-date gains plus the ordinary-income capital loss limit. At least
// one suggestion is always kept when any exist. Priorities are reassigned so
// the surviving list stays contiguous from 1.
func (h *HarvestingProcessor) CapSuggestionsToTarget(
	suggestions []models.HarvestingSuggestion,
	transactions []models.Transaction,
	profile models.TaxProfile,
	referenceDate time.Time,
) []models.HarvestingSuggestion {
	if len(suggestions) == 0 {
		return suggestions
	}

	realizedGains := h.washSales.RealizedGainsForYear(transactions, referenceDate.Year())
	target := realizedGains + CapitalLossLimit(profile)

	capped := suggestions[:0:0]
	cumulative := 0.0
	for _, s := range suggestions {
		if len(capped) > 0 && cumulative >= target {
			break
		}
		capped = append(capped, s)
		cumulative += s.EstimatedLoss
	}

	for i := range capped {
		capped[i].Priority = i + 1
	}
	return capped
}

// BuildSummary aggregates positions, suggestions, and wash-sale flags into
// the dashboard totals.
func (h *HarvestingProcessor) BuildSummary(
	positions []models.Position,
	suggestions []models.HarvestingSuggestion,
	washSaleFlags []models.WashSaleFlag,
) models.PortfolioSummary {
	var totalMarketValue, totalCostBasis, totalPnL float64
	lotsWithLosses := 0
	lotsWithGains := 0

	for _, p := range positions {
		if p.MarketValue != nil {
			totalMarketValue += *p.MarketValue
		}
		totalCostBasis += p.TotalCostBasis
		totalPnL += p.UnrealizedPnL

		for _, lot := range p.TaxLots {
			if lot.UnrealizedPnL == nil {
				continue
			}
			if *lot.UnrealizedPnL < 0 {
				lotsWithLosses++
			} else if *lot.UnrealizedPnL > 0 {
				lotsWithGains++
			}
		}
	}

	pnlPct := 0.0
	if totalCostBasis > 0 {
		pnlPct = totalPnL / totalCostBasis * 100
	}

	var totalHarvestable, totalSavings float64
	for _, s := range suggestions {
		totalHarvestable += s.EstimatedLoss
		totalSavings += s.TaxSavingsEstimate
	}

	return models.PortfolioSummary{
		TotalMarketValue:       utils.RoundCents(totalMarketValue),
		TotalCostBasis:         utils.RoundCents(totalCostBasis),
		TotalUnrealizedPnL:     utils.RoundCents(totalPnL),
		TotalUnrealizedPnLPct:  utils.RoundCents(pnlPct),
		TotalHarvestableLosses: utils.RoundCents(totalHarvestable),
		EstimatedTaxSavings:    utils.RoundCents(totalSavings),
		PositionsCount:         len(positions),
		LotsWithLosses:         lotsWithLosses,
		LotsWithGains:          lotsWithGains,
		WashSaleFlagsCount:     len(washSaleFlags),
	}
}

// resolveReplacements picks advisor-supplied replacements when usable,
// otherwise the static fallback table.
func resolveReplacements(symbol string, advisorSuggestions map[string]models.AdvisorSuggestion) ([]models.ReplacementCandidate, string, bool) {
	if advisorSuggestions != nil {
		if s, ok := advisorSuggestions[symbol]; ok {
			var usable []models.ReplacementCandidate
			for _, r := range s.Replacements {
				if r.Symbol != "" {
					usable = append(usable, r)
				}
			}
			if len(usable) > 0 {
				return usable, s.Explanation, true
			}
			return FallbackReplacements(symbol), s.Explanation, true
		}
	}
	return FallbackReplacements(symbol), "", false
}

// FallbackReplacements returns the static replacement candidates for a
// symbol, defaulting to broad-market ETFs for unmapped tickers.
func FallbackReplacements(symbol string) []models.ReplacementCandidate {
	if r, ok := fallbackReplacements[symbol]; ok {
		return append([]models.ReplacementCandidate(nil), r...)
	}
	return append([]models.ReplacementCandidate(nil), defaultReplacements...)
}
