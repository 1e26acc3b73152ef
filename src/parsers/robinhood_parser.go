// backend/src/parsers/robinhood_parser.go
package parsers

import (
	"fmt"
	"strings"

	"github.com/username/optionstaxhub/backend/src/models"
	"github.com/username/optionstaxhub/backend/src/utils"
)

var validTransCodes = map[models.TransCode]bool{
	models.TransCodeBuy:   true,
	models.TransCodeSell:  true,
	models.TransCodeSTO:   true,
	models.TransCodeBTC:   true,
	models.TransCodeBTO:   true,
	models.TransCodeSTC:   true,
	models.TransCodeOEXP:  true,
	models.TransCodeOASGN: true,
	models.TransCodeSPR:   true,
	models.TransCodeOCA:   true,
}

var optionTransCodes = map[models.TransCode]bool{
	models.TransCodeSTO:   true,
	models.TransCodeBTC:   true,
	models.TransCodeBTO:   true,
	models.TransCodeSTC:   true,
	models.TransCodeOEXP:  true,
	models.TransCodeOASGN: true,
	models.TransCodeOCA:   true,
}

// parseRobinhoodRows parses Robinhood transaction history rows into
// Transactions. Row numbering in issue messages is 1-based over data rows,
// matching the numbers a user sees in a spreadsheet below the header.
func parseRobinhoodRows(header []string, rows [][]string) *ParseResult {
	idx := columnIndex(header)
	result := &ParseResult{}

	for i, row := range rows {
		rowNum := i + 1
		txn, issue := parseRobinhoodRow(row, idx, rowNum)
		if issue != "" {
			result.Issues = append(result.Issues, issue)
			continue
		}
		if txn != nil {
			result.Transactions = append(result.Transactions, *txn)
		}
	}

	return result
}

// parseRobinhoodRow parses one row. Returns (nil, "") for rows that should be
// silently skipped (account-level activity, cash movements).
func parseRobinhoodRow(row []string, idx map[string]int, rowNum int) (*models.Transaction, string) {
	activityDate := utils.ParseDate(fieldAt(row, idx, colActivityDate))
	if activityDate.IsZero() {
		return nil, fmt.Sprintf("Row %d: Missing or invalid Activity Date", rowNum)
	}

	instrument := strings.ToUpper(fieldAt(row, idx, colInstrument))
	if instrument == "" {
		// Account-level rows (deposits, interest) carry no instrument.
		return nil, ""
	}

	rawCode := fieldAt(row, idx, colTransCode)
	if accountActivityCodes[rawCode] {
		return nil, ""
	}
	transCode := models.TransCode(rawCode)
	if !validTransCodes[transCode] {
		return nil, fmt.Sprintf("Row %d: Unknown Trans Code '%s' for %s", rowNum, rawCode, instrument)
	}

	description := fieldAt(row, idx, colDescription)

	txn := &models.Transaction{
		ActivityDate: activityDate,
		ProcessDate:  utils.ParseDate(fieldAt(row, idx, colProcessDate)),
		SettleDate:   utils.ParseDate(fieldAt(row, idx, colSettleDate)),
		Instrument:   instrument,
		Description:  description,
		TransCode:    transCode,
		Quantity:     ParseExportQuantity(fieldAt(row, idx, colQuantity)),
		Price:        utils.AbsFloat(ParseExportAmount(fieldAt(row, idx, colPrice))),
		Amount:       ParseExportAmount(fieldAt(row, idx, colAmount)),
		AssetType:    determineAssetType(transCode, description),
	}
	return txn, ""
}

// determineAssetType classifies a transaction as stock or option.
// Options are identified by their trans code or by Call/Put keywords in the
// description (covering assignments recorded under stock codes).
func determineAssetType(code models.TransCode, description string) models.AssetType {
	if optionTransCodes[code] {
		return models.AssetTypeOption
	}
	descLower := strings.ToLower(description)
	if strings.Contains(descLower, " call ") || strings.Contains(descLower, " put ") {
		return models.AssetTypeOption
	}
	return models.AssetTypeStock
}
