// backend/src/parsers/csv_parser.go
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/username/optionstaxhub/backend/src/logger"
)

// Column name constants for the Robinhood export format.
const (
	colActivityDate = "Activity Date"
	colProcessDate  = "Process Date"
	colSettleDate   = "Settle Date"
	colInstrument   = "Instrument"
	colDescription  = "Description"
	colTransCode    = "Trans Code"
	colQuantity     = "Quantity"
	colPrice        = "Price"
	colAmount       = "Amount"
)

// Non-trading account activity codes (skipped during parsing).
var accountActivityCodes = map[string]bool{
	"ACH":    true,
	"RTP":    true,
	"FUTSWP": true,
	"MINT":   true,
	"ROC":    true,
	"GOLD":   true,
	"INT":    true,
	"CDIV":   true,
}

// CSVParser auto-detects the export format and parses accordingly.
type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// Parse reads the whole CSV and dispatches on the detected header format.
func (p *CSVParser) Parse(file io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Exports sometimes have ragged trailing columns
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	header := records[0]
	rows := records[1:]

	switch detectFormat(header) {
	case formatRobinhood:
		logger.L.Info("Detected Robinhood transaction history CSV format")
		return parseRobinhoodRows(header, rows), nil
	case formatSimple:
		logger.L.Info("Detected simplified portfolio CSV format")
		return parseSimpleRows(header, rows), nil
	default:
		return nil, fmt.Errorf("unrecognized CSV format. Expected either the Robinhood transaction history format " +
			"(Activity Date, Process Date, Settle Date, Instrument, Description, Trans Code, Quantity, Price, Amount) " +
			"or the simplified format (symbol, quantity, purchase_price, current_price)")
	}
}

type csvFormat int

const (
	formatUnknown csvFormat = iota
	formatRobinhood
	formatSimple
)

// detectFormat inspects the header row. Robinhood detection is
// case-sensitive on the export's column names; the simplified format is
// matched case-insensitively.
func detectFormat(header []string) csvFormat {
	columns := make(map[string]bool, len(header))
	columnsLower := make(map[string]bool, len(header))
	for _, h := range header {
		trimmed := strings.TrimSpace(h)
		columns[trimmed] = true
		columnsLower[strings.ToLower(trimmed)] = true
	}

	robinhoodRequired := []string{colActivityDate, colInstrument, colTransCode, colQuantity, colPrice}
	hasAll := true
	for _, c := range robinhoodRequired {
		if !columns[c] {
			hasAll = false
			break
		}
	}
	if hasAll {
		return formatRobinhood
	}

	simpleRequired := []string{"symbol", "quantity", "purchase_price", "current_price"}
	for _, c := range simpleRequired {
		if !columnsLower[c] {
			return formatUnknown
		}
	}
	return formatSimple
}

// columnIndex builds a lookup from (lowercased, trimmed) header name to index.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func fieldAt(row []string, idx map[string]int, name string) string {
	i, ok := idx[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseExportAmount parses a Robinhood numeric/currency field.
// Handles: $7.70, ($732.00), ($2,440.10), empty strings.
// Parenthesized values are treated as negative.
func ParseExportAmount(value string) float64 {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0
	}
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	replacer := strings.NewReplacer("$", "", ",", "", "(", "", ")", "")
	s = replacer.Replace(s)
	if s == "" {
		return 0
	}
	result, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if negative {
		return -result
	}
	return result
}

// ParseExportQuantity parses a Robinhood Quantity field.
// Handles numeric strings and the "400S" suffix (S = shares out in corporate
// actions). Always returns a non-negative magnitude.
func ParseExportQuantity(value string) float64 {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0
	}
	s = strings.TrimRight(s, "Ss")
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	result, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if result < 0 {
		return -result
	}
	return result
}
