package models

// AdvisorPosition is the anonymized view of a losing position sent to the
// AI advisor. No account identifiers or absolute portfolio values beyond the
// position itself leave the server.
type AdvisorPosition struct {
	Symbol            string   `json:"symbol"`
	Quantity          float64  `json:"quantity"`
	CostBasisPerShare float64  `json:"cost_basis_per_share"`
	CurrentPrice      *float64 `json:"current_price,omitempty"`
	UnrealizedPnL     float64  `json:"unrealized_pnl"`
	HoldingPeriodDays int      `json:"holding_period_days"`
	IsLongTerm        bool     `json:"is_long_term"`
}

// AdvisorSuggestion is the advisor's enrichment for one symbol: a short
// explanation plus replacement candidates that avoid the wash-sale rule.
type AdvisorSuggestion struct {
	Symbol       string                 `json:"symbol"`
	Explanation  string                 `json:"explanation"`
	Replacements []ReplacementCandidate `json:"replacements"`
}
