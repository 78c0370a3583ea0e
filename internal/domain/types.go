// Package domain provides core domain models and types.
package domain

// BaseCurrency is the currency every snapshot is valued in. Living expenses
// are AUD-denominated, so all percentage rules are anchored here.
const BaseCurrency = "AUD"

// InstrumentType represents the type of financial instrument
type InstrumentType string

const (
	InstrumentEquity        InstrumentType = "equity"
	InstrumentETF           InstrumentType = "etf"
	InstrumentGovtBondNom   InstrumentType = "govt_bond_nominal"
	InstrumentGovtBondIndex InstrumentType = "govt_bond_indexed"
	InstrumentCredit        InstrumentType = "credit"
	InstrumentListedFund    InstrumentType = "listed_fund"
	InstrumentCash          InstrumentType = "cash"
	InstrumentOther         InstrumentType = "other"
)

// CapitalRole is the strategic bucket a holding belongs to.
type CapitalRole string

const (
	// RoleStabiliser - capital preservation and liquidity (bonds, cash-like)
	RoleStabiliser CapitalRole = "stabiliser"
	// RoleCompounder - long-term growth engine (equities, growth funds)
	RoleCompounder CapitalRole = "compounder"
	// RoleOptionality - convex crisis-insurance payoff
	RoleOptionality CapitalRole = "optionality"
	// RoleUnclassified - reserved bucket for holdings with no role tag.
	// Never assigned explicitly; aggregation places untagged holdings here
	// so they are visible rather than silently dropped.
	RoleUnclassified CapitalRole = "unclassified"
)

// Classification carries the hand-maintained strategy metadata for one
// instrument. All fields are optional; absence follows one canonical policy:
//   - nil Role            → aggregates under RoleUnclassified
//   - nil AssetClass      → instrument type decides which sizing cap applies
//   - nil EconomicCurrency → listing currency is the exposure currency
//   - nil Hedged          → treated as unhedged
//   - nil LiquidityDays   → treated as liquid, surfaced as an assumption
//   - nil DurationYears   → "unknown" bucket, excluded from ratio checks
type Classification struct {
	Role             *CapitalRole `json:"capital_role"`
	AssetClass       *string      `json:"asset_class"`
	EconomicCurrency *string      `json:"economic_currency"`
	MacroDrivers     []string     `json:"macro_drivers"`
	CorporateGroup   *string      `json:"corporate_group"`
	StressGroup      *string      `json:"stress_correlation_group"`
	LiquidityDays    *int         `json:"liquidity_days"`
	DurationYears    *float64     `json:"duration_years"`
	InflationLinked  bool         `json:"is_inflation_linked"`
	Hedged           *bool        `json:"hedged"`

	// Convexity attributes for the optionality payoff test (0-3 score).
	// nil means the attribute has never been assessed.
	ConvexDownside    *bool `json:"convexity_defined_downside"`
	ConvexUpside      *bool `json:"convexity_nonlinear_upside"`
	ConvexStressAlpha *bool `json:"convexity_stress_outperform"`

	YieldDominant bool `json:"yield_dominant"`
}

// HasConvexityData reports whether the payoff-shape attributes were assessed.
func (c Classification) HasConvexityData() bool {
	return c.ConvexDownside != nil || c.ConvexUpside != nil || c.ConvexStressAlpha != nil
}

// ConvexityScore counts satisfied payoff-shape attributes (0-3).
func (c Classification) ConvexityScore() int {
	score := 0
	for _, attr := range []*bool{c.ConvexDownside, c.ConvexUpside, c.ConvexStressAlpha} {
		if attr != nil && *attr {
			score++
		}
	}
	return score
}

// IsHedged reports the hedging flag, defaulting to unhedged when unset.
// Deliberately the conservative direction for the hedging rule: an untagged
// international holding counts toward the unhedged minimum.
func (c Classification) IsHedged() bool {
	return c.Hedged != nil && *c.Hedged
}
