package models

import "time"

// TransCode identifies the type of a brokerage ledger event, using the codes
// found in Robinhood transaction history exports.
type TransCode string

const (
	TransCodeBuy  TransCode = "Buy"
	TransCodeSell TransCode = "Sell"
	// Options transaction codes
	TransCodeSTO   TransCode = "STO"   // Sell to Open
	TransCodeBTC   TransCode = "BTC"   // Buy to Close
	TransCodeBTO   TransCode = "BTO"   // Buy to Open
	TransCodeSTC   TransCode = "STC"   // Sell to Close
	TransCodeOEXP  TransCode = "OEXP"  // Option Expiration
	TransCodeOASGN TransCode = "OASGN" // Option Assignment
	// Corporate action codes (no lot effect by themselves)
	TransCodeSPR TransCode = "SPR" // Stock split / reverse split
	TransCodeOCA TransCode = "OCA" // Option corporate action
)

// AssetType distinguishes stock from option positions.
type AssetType string

const (
	AssetTypeStock  AssetType = "stock"
	AssetTypeOption AssetType = "option"
)

// IsOpening reports whether the code opens a position (creates a lot).
func (c TransCode) IsOpening() bool {
	return c == TransCodeBuy || c == TransCodeBTO || c == TransCodeSTO
}

// IsClosing reports whether the code closes lots with sale proceeds.
func (c TransCode) IsClosing() bool {
	return c == TransCodeSell || c == TransCodeSTC
}

// IsBuySide reports whether the code is a purchase for wash-sale purposes.
// Only Buy and BTO count as qualifying repurchases.
func (c TransCode) IsBuySide() bool {
	return c == TransCodeBuy || c == TransCodeBTO
}

// Transaction is a single ledger event from a brokerage export.
// Quantity and Price are always non-negative magnitudes; direction is carried
// by the TransCode, not by the sign. Amount keeps the export's sign
// (negative for buys). Transactions are created at parse time and never mutated.
type Transaction struct {
	ActivityDate time.Time `json:"activity_date"`
	ProcessDate  time.Time `json:"process_date,omitempty"`
	SettleDate   time.Time `json:"settle_date,omitempty"`
	Instrument   string    `json:"instrument"` // Ticker symbol, uppercased
	Description  string    `json:"description,omitempty"`
	TransCode    TransCode `json:"trans_code"`
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	Amount       float64   `json:"amount"`
	AssetType    AssetType `json:"asset_type"`
}
