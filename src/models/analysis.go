package models

import "time"

// TaxLot is an individual slice of an open position sharing one acquisition
// event. Lots are the fundamental unit for gain/loss calculations and
// wash-sale tracking. Matching is FIFO only.
//
// Invariant: TotalCostBasis == CostBasisPerShare * Quantity after any mutation.
type TaxLot struct {
	Symbol            string    `json:"symbol"`
	Quantity          float64   `json:"quantity"`
	CostBasisPerShare float64   `json:"cost_basis_per_share"`
	TotalCostBasis    float64   `json:"total_cost_basis"`
	PurchaseDate      time.Time `json:"purchase_date"`
	CurrentPrice      *float64  `json:"current_price,omitempty"`
	AssetType         AssetType `json:"asset_type"`

	// Computed fields populated during analysis
	UnrealizedPnL      *float64 `json:"unrealized_pnl,omitempty"`
	UnrealizedPnLPct   *float64 `json:"unrealized_pnl_pct,omitempty"`
	HoldingPeriodDays  int      `json:"holding_period_days"`
	IsLongTerm         bool     `json:"is_long_term"`
	WashSaleDisallowed float64  `json:"wash_sale_disallowed"` // Loss amount disallowed by the wash-sale rule
}

// Position aggregates all tax lots for one symbol into a single dashboard view.
// Positions are recomputed fresh on every analysis and never persisted on
// their own.
type Position struct {
	Symbol               string    `json:"symbol"`
	Quantity             float64   `json:"quantity"`
	AvgCostBasis         float64   `json:"avg_cost_basis"`
	TotalCostBasis       float64   `json:"total_cost_basis"`
	CurrentPrice         *float64  `json:"current_price,omitempty"`
	MarketValue          *float64  `json:"market_value,omitempty"`
	UnrealizedPnL        float64   `json:"unrealized_pnl"`
	UnrealizedPnLPct     float64   `json:"unrealized_pnl_pct"`
	EarliestPurchaseDate time.Time `json:"earliest_purchase_date"`
	HoldingPeriodDays    int       `json:"holding_period_days"`
	IsLongTerm           bool      `json:"is_long_term"`
	AssetType            AssetType `json:"asset_type"`
	TaxLots              []*TaxLot `json:"tax_lots"`
	WashSaleRisk         bool      `json:"wash_sale_risk"`
}

// WashSaleFlag records one sale-at-a-loss that triggered the wash-sale rule.
// One flag is emitted per qualifying sale; multiple qualifying repurchases are
// aggregated and anchored to the earliest one. Flags are never mutated after
// detection.
type WashSaleFlag struct {
	Symbol             string    `json:"symbol"`
	SaleDate           time.Time `json:"sale_date"`
	SaleQuantity       float64   `json:"sale_quantity"`
	SaleLoss           float64   `json:"sale_loss"` // Realized loss, positive number
	RepurchaseDate     time.Time `json:"repurchase_date"`
	RepurchaseQuantity float64   `json:"repurchase_quantity"`
	DisallowedLoss     float64   `json:"disallowed_loss"`
	AdjustedCostBasis  float64   `json:"adjusted_cost_basis"`
	Explanation        string    `json:"explanation"`
}

// ReplacementCandidate is a security that keeps similar market exposure
// without being substantially identical to the position being sold.
type ReplacementCandidate struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// HarvestingSuggestion is one ranked tax-loss harvesting recommendation.
type HarvestingSuggestion struct {
	Symbol                string                 `json:"symbol"`
	Action                string                 `json:"action"` // Always "SELL"
	Quantity              float64                `json:"quantity"`
	CurrentPrice          *float64               `json:"current_price,omitempty"`
	CostBasisPerShare     float64                `json:"cost_basis_per_share"`
	EstimatedLoss         float64                `json:"estimated_loss"` // Positive number
	TaxSavingsEstimate    float64                `json:"tax_savings_estimate"`
	HoldingPeriodDays     int                    `json:"holding_period_days"`
	IsLongTerm            bool                   `json:"is_long_term"`
	WashSaleRisk          bool                   `json:"wash_sale_risk"`
	WashSaleExplanation   string                 `json:"wash_sale_explanation,omitempty"`
	ReplacementCandidates []ReplacementCandidate `json:"replacement_candidates"`
	AIExplanation         string                 `json:"ai_explanation,omitempty"`
	AIGenerated           bool                   `json:"ai_generated"`
	Priority              int                    `json:"priority"` // 1 = highest tax benefit
}

// PortfolioSummary holds the high-level metrics for the dashboard cards.
type PortfolioSummary struct {
	TotalMarketValue       float64 `json:"total_market_value"`
	TotalCostBasis         float64 `json:"total_cost_basis"`
	TotalUnrealizedPnL     float64 `json:"total_unrealized_pnl"`
	TotalUnrealizedPnLPct  float64 `json:"total_unrealized_pnl_pct"`
	TotalHarvestableLosses float64 `json:"total_harvestable_losses"`
	EstimatedTaxSavings    float64 `json:"estimated_tax_savings"`
	PositionsCount         int     `json:"positions_count"`
	LotsWithLosses         int     `json:"lots_with_losses"`
	LotsWithGains          int     `json:"lots_with_gains"`
	WashSaleFlagsCount     int     `json:"wash_sale_flags_count"`
}

// Disclaimer is attached to every analysis response. All outputs are
// simulation estimates, not tax or investment advice.
const Disclaimer = "This analysis is for educational and simulation purposes only. " +
	"It does not constitute financial, tax, or investment advice. " +
	"Consult a qualified tax professional before making investment decisions."

// PortfolioAnalysis is the complete analysis response produced for one upload.
type PortfolioAnalysis struct {
	Positions     []Position             `json:"positions"`
	TaxLots       []*TaxLot              `json:"tax_lots"`
	Suggestions   []HarvestingSuggestion `json:"suggestions"`
	WashSaleFlags []WashSaleFlag         `json:"wash_sale_flags"`
	Summary       PortfolioSummary       `json:"summary"`
	TaxProfile    *TaxProfile            `json:"tax_profile,omitempty"`
	Disclaimer    string                 `json:"disclaimer"`
	Errors        []string               `json:"errors"`
	Warnings      []string               `json:"warnings"`
}

// AnalysisRecord is one persisted analysis history row.
type AnalysisRecord struct {
	ID               string             `json:"id"`
	UserID           int64              `json:"user_id"`
	Filename         string             `json:"filename"`
	UploadedAt       time.Time          `json:"uploaded_at"`
	Summary          PortfolioSummary   `json:"summary"`
	PositionsCount   int                `json:"positions_count"`
	TotalMarketValue float64            `json:"total_market_value"`
	Result           *PortfolioAnalysis `json:"result,omitempty"`
}
