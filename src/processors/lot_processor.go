package processors

import (
	"fmt"
	"sort"

	"github.com/username/optionstaxhub/backend/src/models"
	"github.com/username/optionstaxhub/backend/src/utils"
)

// LotProcessor aggregates a transaction history into the currently-open tax
// lots using FIFO matching.
type LotProcessor struct{}

func NewLotProcessor() *LotProcessor {
	return &LotProcessor{}
}

// Process sorts transactions chronologically (stable, so same-day events keep
// their export order) and replays them against per-symbol FIFO queues.
//
// Buy/BTO open a lot; STO opens a lot tagged as an option short position,
// tracked the same way as a long lot, and BTC is not given distinct closing
// semantics. This is a deliberate modeling simplification for short option
// accounting. Sell/STC consume from the oldest lot first; OEXP/OASGN remove
// quantity the same way but with no proceeds; SPR/OCA are informational only.
//
// Returns the flattened open lots and a list of warnings for sells that
// could not be matched. Unmatched sells never go negative.
func (p *LotProcessor) Process(transactions []models.Transaction) ([]*models.TaxLot, []string) {
	var warnings []string

	sorted := make([]models.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ActivityDate.Before(sorted[j].ActivityDate)
	})

	openLots := make(map[string][]*models.TaxLot)
	var symbolOrder []string

	addLot := func(txn models.Transaction, assetType models.AssetType) {
		if _, seen := openLots[txn.Instrument]; !seen {
			symbolOrder = append(symbolOrder, txn.Instrument)
		}
		openLots[txn.Instrument] = append(openLots[txn.Instrument], &models.TaxLot{
			Symbol:            txn.Instrument,
			Quantity:          txn.Quantity,
			CostBasisPerShare: txn.Price,
			TotalCostBasis:    txn.Price * txn.Quantity,
			PurchaseDate:      txn.ActivityDate,
			AssetType:         assetType,
		})
	}

	for _, txn := range sorted {
		switch txn.TransCode {
		case models.TransCodeBuy, models.TransCodeBTO:
			addLot(txn, txn.AssetType)

		case models.TransCodeSTO:
			// Sell to Open creates a short option position, tracked as a lot.
			addLot(txn, models.AssetTypeOption)

		case models.TransCodeSell, models.TransCodeSTC:
			warnings = append(warnings, p.closeLotsFIFO(openLots, txn)...)

		case models.TransCodeOEXP, models.TransCodeOASGN:
			// Expiration or assignment removes quantity with no proceeds.
			p.removeLotsFIFO(openLots, txn.Instrument, txn.Quantity)

		case models.TransCodeSPR, models.TransCodeOCA, models.TransCodeBTC:
			// Corporate actions are informational; BTC carries no distinct
			// closing semantics in this model.
		}
	}

	var allOpen []*models.TaxLot
	for _, symbol := range symbolOrder {
		allOpen = append(allOpen, openLots[symbol]...)
	}
	return allOpen, warnings
}

// closeLotsFIFO consumes quantity from the oldest lots of a symbol for a sell
// transaction. A sale that exceeds the open quantity emits a warning for the
// unmatched remainder and stops.
func (p *LotProcessor) closeLotsFIFO(openLots map[string][]*models.TaxLot, txn models.Transaction) []string {
	symbol := txn.Instrument
	remaining := txn.Quantity

	if len(openLots[symbol]) == 0 {
		return []string{fmt.Sprintf(
			"Sell of %g %s on %s but no open lots found (short sale or prior history not in CSV)",
			txn.Quantity, symbol, utils.FormatDate(txn.ActivityDate))}
	}

	for remaining > 0 && len(openLots[symbol]) > 0 {
		oldest := openLots[symbol][0]
		if oldest.Quantity <= remaining {
			remaining -= oldest.Quantity
			openLots[symbol] = openLots[symbol][1:]
		} else {
			oldest.Quantity -= remaining
			oldest.TotalCostBasis = oldest.CostBasisPerShare * oldest.Quantity
			remaining = 0
		}
	}

	if remaining > 0 {
		return []string{fmt.Sprintf(
			"Sell of %s on %s: %g shares could not be matched to open lots",
			symbol, utils.FormatDate(txn.ActivityDate), remaining)}
	}
	return nil
}

// removeLotsFIFO removes quantity from the front of a symbol's queue with no
// proceeds implication. Missing lots are ignored.
func (p *LotProcessor) removeLotsFIFO(openLots map[string][]*models.TaxLot, symbol string, quantity float64) {
	remaining := quantity
	for remaining > 0 && len(openLots[symbol]) > 0 {
		oldest := openLots[symbol][0]
		if oldest.Quantity <= remaining {
			remaining -= oldest.Quantity
			openLots[symbol] = openLots[symbol][1:]
		} else {
			oldest.Quantity -= remaining
			oldest.TotalCostBasis = oldest.CostBasisPerShare * oldest.Quantity
			remaining = 0
		}
	}
}
