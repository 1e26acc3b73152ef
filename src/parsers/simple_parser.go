// backend/src/parsers/simple_parser.go
package parsers

import (
	"fmt"
	"strings"
	"time"

	"github.com/username/optionstaxhub/backend/src/models"
	"github.com/username/optionstaxhub/backend/src/utils"
)

// parseSimpleRows parses the simplified snapshot format
// (symbol, quantity, purchase_price, current_price[, purchase_date])
// directly into TaxLots, one per row. Without a purchase_date column every
// position is dated today and therefore treated as short-term.
func parseSimpleRows(header []string, rows [][]string) *ParseResult {
	idx := columnIndex(header)
	result := &ParseResult{}

	_, hasDates := idx["purchase_date"]
	if !hasDates {
		result.Issues = append(result.Issues,
			"CSV has no purchase_date column, all positions treated as short-term. "+
				"Add a purchase_date column (MM/DD/YYYY) for accurate short-term vs long-term classification.")
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)

	for i, row := range rows {
		rowNum := i + 1

		symbol := strings.ToUpper(fieldAt(row, idx, "symbol"))
		if symbol == "" {
			result.Issues = append(result.Issues, fmt.Sprintf("Row %d: Missing symbol", rowNum))
			continue
		}

		quantity := ParseExportQuantity(fieldAt(row, idx, "quantity"))
		if quantity <= 0 {
			result.Issues = append(result.Issues, fmt.Sprintf("Row %d: Invalid quantity for %s", rowNum, symbol))
			continue
		}

		purchasePrice := ParseExportAmount(fieldAt(row, idx, "purchase_price"))
		currentPrice := ParseExportAmount(fieldAt(row, idx, "current_price"))

		purchaseDate := today
		if hasDates {
			parsed := utils.ParseDate(fieldAt(row, idx, "purchase_date"))
			if parsed.IsZero() {
				result.Issues = append(result.Issues,
					fmt.Sprintf("Row %d: Could not parse purchase_date for %s, using today", rowNum, symbol))
			} else {
				purchaseDate = parsed
			}
		}

		price := currentPrice
		result.TaxLots = append(result.TaxLots, &models.TaxLot{
			Symbol:            symbol,
			Quantity:          quantity,
			CostBasisPerShare: purchasePrice,
			TotalCostBasis:    purchasePrice * quantity,
			PurchaseDate:      purchaseDate,
			CurrentPrice:      &price,
			AssetType:         models.AssetTypeStock,
		})
	}

	return result
}
