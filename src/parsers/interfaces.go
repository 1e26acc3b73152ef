package parsers

import (
	"io"

	"github.com/username/optionstaxhub/backend/src/models"
)

// ParseResult holds the output of parsing one uploaded export file.
//
// Robinhood transaction-history exports populate Transactions; the simplified
// snapshot format has no history and populates TaxLots directly. Issues
// collects row-level problems (bad dates, unknown codes); a bad row never
// aborts the batch.
type ParseResult struct {
	Transactions []models.Transaction
	TaxLots      []*models.TaxLot
	Issues       []string
}

// Parser defines the interface for parsing an uploaded portfolio export.
type Parser interface {
	Parse(file io.Reader) (*ParseResult, error)
}
