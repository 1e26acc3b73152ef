package processors

import (
	"fmt"
	"sort"
	"time"

	"github.com/username/optionstaxhub/backend/src/logger"
	"github.com/username/optionstaxhub/backend/src/models"
	"github.com/username/optionstaxhub/backend/src/utils"
)

// WashSaleWindowDays is the half-width of the IRS wash-sale window: a loss is
// disallowed when substantially identical securities are purchased within 30
// days before or after the sale (61 days total).
const WashSaleWindowDays = 30

// WashSaleProcessor detects wash sales across a transaction history and
// applies the resulting cost-basis adjustments to open lots.
type WashSaleProcessor struct{}

func NewWashSaleProcessor() *WashSaleProcessor {
	return &WashSaleProcessor{}
}

// DetectWashSales scans every Sell/STC that realized a loss and checks for a
// qualifying repurchase inside the 61-day window. Loss per sale is computed
// against a running FIFO ledger of buys, separate from the open-lot queues:
// each sale consumes buy quantity on or before its date, so a later sale
// cannot re-use basis already matched to an earlier one.
//
// One flag is emitted per qualifying sale. When qualifying repurchase
// quantity covers the sale the whole loss is disallowed; otherwise the
// disallowed amount is prorated linearly and never exceeds the realized loss.
// The earliest qualifying repurchase anchors the cost-basis adjustment.
func (p *WashSaleProcessor) DetectWashSales(transactions []models.Transaction) []models.WashSaleFlag {
	if len(transactions) == 0 {
		return nil
	}

	var buys, sells []models.Transaction
	for _, t := range transactions {
		if t.TransCode.IsBuySide() {
			buys = append(buys, t)
		} else if t.TransCode.IsClosing() {
			sells = append(sells, t)
		}
	}

	sort.SliceStable(buys, func(i, j int) bool {
		return buys[i].ActivityDate.Before(buys[j].ActivityDate)
	})
	sort.SliceStable(sells, func(i, j int) bool {
		return sells[i].ActivityDate.Before(sells[j].ActivityDate)
	})

	var flags []models.WashSaleFlag
	usedBuyQty := make(map[int]float64)

	for _, sell := range sells {
		loss := matchedSaleLoss(sell, buys, usedBuyQty)
		if loss <= 0 {
			continue
		}

		qualifying := qualifyingRepurchases(sell, buys)
		if len(qualifying) == 0 {
			continue
		}

		var totalRepurchaseQty float64
		for _, b := range qualifying {
			totalRepurchaseQty += b.Quantity
		}

		disallowed := loss
		if totalRepurchaseQty < sell.Quantity {
			disallowed = loss * (totalRepurchaseQty / sell.Quantity)
		}

		earliest := qualifying[0]
		for _, b := range qualifying[1:] {
			if b.ActivityDate.Before(earliest.ActivityDate) {
				earliest = b
			}
		}
		originalCost := earliest.Price * utils.MinFloat(earliest.Quantity, sell.Quantity)
		adjustedCost := originalCost + disallowed

		flags = append(flags, models.WashSaleFlag{
			Symbol:             sell.Instrument,
			SaleDate:           sell.ActivityDate,
			SaleQuantity:       sell.Quantity,
			SaleLoss:           loss,
			RepurchaseDate:     earliest.ActivityDate,
			RepurchaseQuantity: utils.MinFloat(totalRepurchaseQty, sell.Quantity),
			DisallowedLoss:     utils.RoundCents(disallowed),
			AdjustedCostBasis:  utils.RoundCents(adjustedCost),
			Explanation:        washSaleExplanation(sell, earliest, loss, disallowed),
		})
	}

	return flags
}

// matchedSaleLoss computes the realized loss for one sell using FIFO cost
// basis from buys dated on or before the sell. Matched quantities are
// recorded in usedBuyQty so subsequent sells see the depleted ledger.
// Returns loss as a positive number; a gain yields a value <= 0.
func matchedSaleLoss(sell models.Transaction, buysSorted []models.Transaction, usedBuyQty map[int]float64) float64 {
	remaining := sell.Quantity
	totalCostBasis := 0.0
	matchedAny := false

	for i, buy := range buysSorted {
		if remaining <= 0 {
			break
		}
		if buy.Instrument != sell.Instrument || buy.ActivityDate.After(sell.ActivityDate) {
			continue
		}
		available := buy.Quantity - usedBuyQty[i]
		if available <= 0 {
			continue
		}
		matched := utils.MinFloat(available, remaining)
		totalCostBasis += matched * buy.Price
		usedBuyQty[i] += matched
		remaining -= matched
		matchedAny = true
	}

	if !matchedAny {
		return 0
	}
	saleProceeds := sell.Quantity * sell.Price
	return totalCostBasis - saleProceeds
}

// qualifyingRepurchases returns the buys of the same symbol inside the
// [sale-30d, sale+30d] window, in chronological order. Same-day purchases
// count; the triggering sale itself is never in the buy list.
func qualifyingRepurchases(sell models.Transaction, buysSorted []models.Transaction) []models.Transaction {
	windowStart := sell.ActivityDate.AddDate(0, 0, -WashSaleWindowDays)
	windowEnd := sell.ActivityDate.AddDate(0, 0, WashSaleWindowDays)

	var qualifying []models.Transaction
	for _, b := range buysSorted {
		if b.Instrument != sell.Instrument {
			continue
		}
		if b.ActivityDate.Before(windowStart) || b.ActivityDate.After(windowEnd) {
			continue
		}
		qualifying = append(qualifying, b)
	}
	return qualifying
}

// washSaleExplanation builds the human-readable explanation with the correct
// chronological direction (bought-then-sold vs sold-then-repurchased).
func washSaleExplanation(sell, repurchase models.Transaction, loss, disallowed float64) string {
	if repurchase.ActivityDate.Before(sell.ActivityDate) {
		return fmt.Sprintf(
			"Wash sale: Bought %g %s on %s, then sold %g shares at a loss of $%.2f on %s "+
				"(within 30 days of the purchase). $%.2f of the loss is disallowed and added "+
				"to the cost basis of the replacement shares.",
			repurchase.Quantity, sell.Instrument, utils.FormatDate(repurchase.ActivityDate),
			sell.Quantity, loss, utils.FormatDate(sell.ActivityDate), disallowed)
	}
	return fmt.Sprintf(
		"Wash sale: Sold %g %s on %s at a loss of $%.2f, then repurchased %g shares on %s "+
			"(within 30 days of the sale). $%.2f of the loss is disallowed and added to the "+
			"cost basis of the replacement shares.",
		sell.Quantity, sell.Instrument, utils.FormatDate(sell.ActivityDate), loss,
		repurchase.Quantity, utils.FormatDate(repurchase.ActivityDate), disallowed)
}

// AdjustLots applies detected wash-sale flags to the open lots: the lot whose
// symbol and purchase date match the flag's anchoring repurchase absorbs the
// disallowed loss into its cost basis. A flag whose replacement lot is
// already closed produces no mutation. Returns the same slice for chaining.
func (p *WashSaleProcessor) AdjustLots(lots []*models.TaxLot, flags []models.WashSaleFlag) []*models.TaxLot {
	for _, flag := range flags {
		for _, lot := range lots {
			if lot.Symbol != flag.Symbol || !sameDay(lot.PurchaseDate, flag.RepurchaseDate) {
				continue
			}
			lot.WashSaleDisallowed += flag.DisallowedLoss
			if lot.Quantity > 0 {
				lot.CostBasisPerShare += flag.DisallowedLoss / lot.Quantity
			}
			lot.TotalCostBasis = lot.CostBasisPerShare * lot.Quantity
			logger.L.Info("Adjusted cost basis for wash sale",
				"symbol", lot.Symbol,
				"purchaseDate", utils.FormatDate(lot.PurchaseDate),
				"disallowedLoss", flag.DisallowedLoss)
			break
		}
	}
	return lots
}

// CheckProspectiveRisk reports whether selling a symbol on referenceDate
// would create a wash sale because of a purchase within the trailing 30
// days. Only historical buys are considered; the explanation names the
// earliest safe resale date (purchase date + 31 days).
func (p *WashSaleProcessor) CheckProspectiveRisk(symbol string, transactions []models.Transaction, referenceDate time.Time) (bool, string) {
	windowStart := referenceDate.AddDate(0, 0, -WashSaleWindowDays)

	var latestBuy *models.Transaction
	for i, t := range transactions {
		if t.Instrument != symbol || !t.TransCode.IsBuySide() {
			continue
		}
		if t.ActivityDate.Before(windowStart) || t.ActivityDate.After(referenceDate) {
			continue
		}
		if latestBuy == nil || t.ActivityDate.After(latestBuy.ActivityDate) {
			latestBuy = &transactions[i]
		}
	}

	if latestBuy == nil {
		return false, ""
	}

	daysAgo := utils.DaysBetween(latestBuy.ActivityDate, referenceDate)
	safeDate := latestBuy.ActivityDate.AddDate(0, 0, WashSaleWindowDays+1)
	return true, fmt.Sprintf(
		"Wash-sale risk: %s was purchased %d day(s) ago on %s. Selling now and repurchasing "+
			"within 30 days would trigger a wash sale, disallowing the loss deduction. "+
			"Consider waiting until %s to avoid this.",
		symbol, daysAgo, utils.FormatDate(latestBuy.ActivityDate), utils.FormatDate(safeDate))
}

// RealizedGainsForYear sums the realized gains (gains only, losses excluded)
// from sells in the given calendar year, using the same running FIFO ledger
// as wash-sale detection. Used as the harvest target baseline.
func (p *WashSaleProcessor) RealizedGainsForYear(transactions []models.Transaction, year int) float64 {
	var buys, sells []models.Transaction
	for _, t := range transactions {
		if t.TransCode.IsBuySide() {
			buys = append(buys, t)
		} else if t.TransCode.IsClosing() {
			sells = append(sells, t)
		}
	}
	sort.SliceStable(buys, func(i, j int) bool {
		return buys[i].ActivityDate.Before(buys[j].ActivityDate)
	})
	sort.SliceStable(sells, func(i, j int) bool {
		return sells[i].ActivityDate.Before(sells[j].ActivityDate)
	})

	usedBuyQty := make(map[int]float64)
	total := 0.0
	for _, sell := range sells {
		// The ledger must advance for every sell, irrespective of year.
		loss := matchedSaleLoss(sell, buys, usedBuyQty)
		if sell.ActivityDate.Year() != year {
			continue
		}
		if gain := -loss; gain > 0 {
			total += gain
		}
	}
	return total
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
