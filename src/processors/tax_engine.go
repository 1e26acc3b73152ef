package processors

import (
	"math"

	"github.com/username/optionstaxhub/backend/src/models"
	"github.com/username/optionstaxhub/backend/src/utils"
)

// Tax brackets source: IRS Revenue Procedures (inflation-adjusted annually).
// The engine supports tax years 2025 and 2026; profiles are clamped to that
// range before lookup.
//
// Rate lookup is deliberately non-marginal across segments: the applicable
// rate for an income level is the single rate of the bracket the income falls
// in, not a blended effective rate. This mirrors how the estimate is meant to
// price the next dollar of gain or loss.

// TaxBracket is one (upper bound, rate) step; the last step in every table
// has an infinite upper bound.
type TaxBracket struct {
	UpTo float64 `json:"up_to"`
	Rate float64 `json:"rate"`
}

var inf = math.Inf(1)

// Long-term capital gains brackets, 2025 (filed in 2026).
var ltcgBrackets2025 = map[models.FilingStatus][]TaxBracket{
	models.FilingSingle: {
		{48_350, 0.00}, {533_400, 0.15}, {inf, 0.20},
	},
	models.FilingMarriedFilingJointly: {
		{96_700, 0.00}, {600_050, 0.15}, {inf, 0.20},
	},
	models.FilingMarriedFilingSeparately: {
		{48_350, 0.00}, {300_000, 0.15}, {inf, 0.20},
	},
	models.FilingHeadOfHousehold: {
		{64_750, 0.00}, {566_700, 0.15}, {inf, 0.20},
	},
}

// Long-term capital gains brackets, 2026 (filed in 2027).
var ltcgBrackets2026 = map[models.FilingStatus][]TaxBracket{
	models.FilingSingle: {
		{49_450, 0.00}, {545_500, 0.15}, {inf, 0.20},
	},
	models.FilingMarriedFilingJointly: {
		{98_900, 0.00}, {613_700, 0.15}, {inf, 0.20},
	},
	models.FilingMarriedFilingSeparately: {
		{49_450, 0.00}, {306_850, 0.15}, {inf, 0.20},
	},
	models.FilingHeadOfHousehold: {
		{66_200, 0.00}, {579_600, 0.15}, {inf, 0.20},
	},
}

// Ordinary income brackets (short-term capital gains are taxed as ordinary
// income), 2025.
var ordinaryBrackets2025 = map[models.FilingStatus][]TaxBracket{
	models.FilingSingle: {
		{11_925, 0.10}, {48_475, 0.12}, {103_350, 0.22}, {197_300, 0.24},
		{250_525, 0.32}, {626_350, 0.35}, {inf, 0.37},
	},
	models.FilingMarriedFilingJointly: {
		{23_850, 0.10}, {96_950, 0.12}, {206_700, 0.22}, {394_600, 0.24},
		{501_050, 0.32}, {751_600, 0.35}, {inf, 0.37},
	},
	models.FilingMarriedFilingSeparately: {
		{11_925, 0.10}, {48_475, 0.12}, {103_350, 0.22}, {197_300, 0.24},
		{250_525, 0.32}, {375_800, 0.35}, {inf, 0.37},
	},
	models.FilingHeadOfHousehold: {
		{17_000, 0.10}, {64_850, 0.12}, {103_350, 0.22}, {197_300, 0.24},
		{250_500, 0.32}, {626_350, 0.35}, {inf, 0.37},
	},
}

// Ordinary income brackets, 2026.
var ordinaryBrackets2026 = map[models.FilingStatus][]TaxBracket{
	models.FilingSingle: {
		{12_150, 0.10}, {49_475, 0.12}, {105_525, 0.22}, {201_450, 0.24},
		{255_800, 0.32}, {639_750, 0.35}, {inf, 0.37},
	},
	models.FilingMarriedFilingJointly: {
		{24_300, 0.10}, {98_950, 0.12}, {211_050, 0.22}, {402_900, 0.24},
		{511_550, 0.32}, {767_550, 0.35}, {inf, 0.37},
	},
	models.FilingMarriedFilingSeparately: {
		{12_150, 0.10}, {49_475, 0.12}, {105_525, 0.22}, {201_450, 0.24},
		{255_800, 0.32}, {383_775, 0.35}, {inf, 0.37},
	},
	models.FilingHeadOfHousehold: {
		{17_350, 0.10}, {66_200, 0.12}, {105_525, 0.22}, {201_450, 0.24},
		{255_800, 0.32}, {639_750, 0.35}, {inf, 0.37},
	},
}

// NIIT: additional 3.8% on investment income above the MAGI threshold.
const NIITRate = 0.038

var niitThresholds = map[models.FilingStatus]float64{
	models.FilingSingle:                  200_000,
	models.FilingMarriedFilingJointly:    250_000,
	models.FilingMarriedFilingSeparately: 125_000,
	models.FilingHeadOfHousehold:         200_000,
}

// Annual capital loss deduction limit against ordinary income.
const (
	CapitalLossDeductionLimit    = 3_000
	CapitalLossDeductionLimitMFS = 1_500 // Married filing separately
)

// GetLTCGBrackets returns the long-term capital gains table for a tax year.
func GetLTCGBrackets(taxYear int) map[models.FilingStatus][]TaxBracket {
	if taxYear >= 2026 {
		return ltcgBrackets2026
	}
	return ltcgBrackets2025
}

// GetOrdinaryBrackets returns the ordinary income table for a tax year.
func GetOrdinaryBrackets(taxYear int) map[models.FilingStatus][]TaxBracket {
	if taxYear >= 2026 {
		return ordinaryBrackets2026
	}
	return ordinaryBrackets2025
}

func bracketsFor(tables map[models.FilingStatus][]TaxBracket, status models.FilingStatus) []TaxBracket {
	if b, ok := tables[status]; ok {
		return b
	}
	return tables[models.FilingSingle]
}

// MarginalOrdinaryRate returns the ordinary income tax rate applied to the
// next dollar of short-term capital gains at the given income level.
func MarginalOrdinaryRate(income float64, profile models.TaxProfile) float64 {
	for _, b := range bracketsFor(GetOrdinaryBrackets(profile.TaxYear), profile.FilingStatus) {
		if income <= b.UpTo {
			return b.Rate
		}
	}
	return 0.37
}

// LTCGRate returns the long-term capital gains rate at the given income level.
func LTCGRate(income float64, profile models.TaxProfile) float64 {
	for _, b := range bracketsFor(GetLTCGBrackets(profile.TaxYear), profile.FilingStatus) {
		if income <= b.UpTo {
			return b.Rate
		}
	}
	return 0.20
}

// NIITApplies reports whether the 3.8% Net Investment Income Tax applies.
// The threshold itself does not trigger it; income must exceed it.
func NIITApplies(income float64, profile models.TaxProfile) bool {
	threshold, ok := niitThresholds[profile.FilingStatus]
	if !ok {
		threshold = 200_000
	}
	return income > threshold
}

// CalculateTaxOnGain estimates the tax on a capital gain (negative input
// models a loss and yields a negative estimated tax, i.e. a saving).
func CalculateTaxOnGain(gain float64, isLongTerm bool, profile models.TaxProfile) models.TaxEstimate {
	income := profile.EstimatedAnnualIncome
	niit := NIITApplies(income, profile)

	baseRate := MarginalOrdinaryRate(income, profile)
	if isLongTerm {
		baseRate = LTCGRate(income, profile)
	}

	effectiveRate := baseRate
	if niit {
		effectiveRate += NIITRate
	}

	return models.TaxEstimate{
		ShortTermRate: MarginalOrdinaryRate(income, profile),
		LongTermRate:  LTCGRate(income, profile),
		NIITApplies:   niit,
		EffectiveRate: effectiveRate,
		EstimatedTax:  gain * effectiveRate,
	}
}

// CalculateTaxSavings estimates the tax saved by harvesting a capital loss
// (passed as a positive number). The loss is modeled as fully deductible at
// the applicable marginal rate; no netting of short-term against long-term
// gains and no carryforward ledger is applied. This is a documented
// simplification that gives a reasonable estimate for suggestion ranking.
// A non-positive loss saves exactly zero.
func CalculateTaxSavings(loss float64, isLongTerm bool, profile models.TaxProfile) float64 {
	if loss <= 0 {
		return 0
	}
	estimate := CalculateTaxOnGain(loss, isLongTerm, profile)
	return math.Abs(estimate.EstimatedTax)
}

// CapitalLossLimit returns the annual capital loss deduction limit against
// ordinary income: $3,000 for most filers, $1,500 for married filing
// separately.
func CapitalLossLimit(profile models.TaxProfile) float64 {
	if profile.FilingStatus == models.FilingMarriedFilingSeparately {
		return CapitalLossDeductionLimitMFS
	}
	return CapitalLossDeductionLimit
}

// BracketSummary is the display payload for the tax-brackets endpoint.
type BracketSummary struct {
	TaxYear               int                 `json:"tax_year"`
	FilingStatus          models.FilingStatus `json:"filing_status"`
	OrdinaryBrackets      []BracketStep       `json:"ordinary_income_brackets"`
	LTCGBrackets          []BracketStep       `json:"long_term_capital_gains_brackets"`
	NIITThreshold         float64             `json:"niit_threshold"`
	NIITRate              float64             `json:"niit_rate"`
	CapitalLossLimit      float64             `json:"capital_loss_limit"`
	MarginalOrdinaryRate  float64             `json:"marginal_ordinary_rate"`
	ApplicableLTCGRate    float64             `json:"applicable_ltcg_rate"`
	EstimatedAnnualIncome float64             `json:"estimated_annual_income"`
}

// BracketStep renders one bracket row; the top bracket has a nil upper bound.
type BracketStep struct {
	UpTo *float64 `json:"up_to"`
	Rate float64  `json:"rate"`
}

// GetBracketSummary builds the bracket display payload for a profile.
func GetBracketSummary(profile models.TaxProfile) BracketSummary {
	toSteps := func(brackets []TaxBracket) []BracketStep {
		steps := make([]BracketStep, 0, len(brackets))
		for _, b := range brackets {
			step := BracketStep{Rate: b.Rate}
			if !math.IsInf(b.UpTo, 1) {
				upTo := b.UpTo
				step.UpTo = &upTo
			}
			steps = append(steps, step)
		}
		return steps
	}

	threshold, ok := niitThresholds[profile.FilingStatus]
	if !ok {
		threshold = 200_000
	}

	return BracketSummary{
		TaxYear:               profile.TaxYear,
		FilingStatus:          profile.FilingStatus,
		OrdinaryBrackets:      toSteps(bracketsFor(GetOrdinaryBrackets(profile.TaxYear), profile.FilingStatus)),
		LTCGBrackets:          toSteps(bracketsFor(GetLTCGBrackets(profile.TaxYear), profile.FilingStatus)),
		NIITThreshold:         threshold,
		NIITRate:              NIITRate,
		CapitalLossLimit:      CapitalLossLimit(profile),
		MarginalOrdinaryRate:  utils.RoundFloat(MarginalOrdinaryRate(profile.EstimatedAnnualIncome, profile), 4),
		ApplicableLTCGRate:    utils.RoundFloat(LTCGRate(profile.EstimatedAnnualIncome, profile), 4),
		EstimatedAnnualIncome: profile.EstimatedAnnualIncome,
	}
}
