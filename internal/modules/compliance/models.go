// Package compliance evaluates the portfolio rulebook against a snapshot.
// The engine is a pure function of (snapshot, parameters); persistence is
// limited to an explicit audit-log append of a finished run.
package compliance

// Status is the outcome of one rule evaluation.
type Status string

const (
	StatusPass    Status = "pass"
	StatusWarning Status = "warning"
	StatusBreach  Status = "breach"
)

// RuleID identifies one rule in the rulebook. The numbering groups rules by
// category; the set is closed, so switching on RuleID is exhaustive.
type RuleID string

const (
	RuleUnclassified    RuleID = "1.1a"
	RuleStabiliserBand  RuleID = "1.1-S"
	RuleCompounderBand  RuleID = "1.1-C"
	RuleOptionalityBand RuleID = "1.1-O"

	RuleIncomeSubstitution RuleID = "2.1"
	RuleIncomeShockCap     RuleID = "2.2"

	RuleSingleCredit   RuleID = "3.1-cr"
	RuleSingleEquity   RuleID = "3.1-eq"
	RuleSingleSpec     RuleID = "3.1-sp"
	RuleAggregateSpec  RuleID = "3.1-sp-agg"
	RuleCorporateGroup RuleID = "3.2"

	RuleAustraliaConcentration RuleID = "4.1"
	RuleMacroDriver            RuleID = "4.2"

	RuleAUDGrowthShare RuleID = "5.1"
	RuleUnhedgedShare  RuleID = "5.2"

	RuleConvexityScore   RuleID = "6.1"
	RuleYieldOptionality RuleID = "6.2"

	RuleLiquidity       RuleID = "7.1"
	RuleDurationBucket  RuleID = "7.2"
	RuleInflationLinked RuleID = "7.3"

	RuleDrawdownTolerance RuleID = "8.1"
	RuleStressGroups      RuleID = "8.2"

	RuleReviewTriggers RuleID = "9.1"

	RulePriceFreshness RuleID = "D.1"
	RuleFXFreshness    RuleID = "D.2"
)

// ruleLabels holds the human label for each rule.
var ruleLabels = map[RuleID]string{
	RuleUnclassified:    "Unclassified holdings",
	RuleStabiliserBand:  "Stabiliser allocation band",
	RuleCompounderBand:  "Compounder allocation band",
	RuleOptionalityBand: "Optionality allocation band",

	RuleIncomeSubstitution: "Income substitution coverage",
	RuleIncomeShockCap:     "Income-shock optionality cap",

	RuleSingleCredit:   "Single credit position size",
	RuleSingleEquity:   "Single equity position size",
	RuleSingleSpec:     "Single speculative position size",
	RuleAggregateSpec:  "Aggregate speculative exposure",
	RuleCorporateGroup: "Corporate group concentration",

	RuleAustraliaConcentration: "Australia concentration",
	RuleMacroDriver:            "Macro driver concentration",

	RuleAUDGrowthShare: "AUD share of growth capital",
	RuleUnhedgedShare:  "Unhedged international growth",

	RuleConvexityScore:   "Optionality convexity quality",
	RuleYieldOptionality: "Yield-dominant optionality cap",

	RuleLiquidity:       "Stabiliser liquidity",
	RuleDurationBucket:  "Stabiliser duration concentration",
	RuleInflationLinked: "Inflation-linked stabiliser share",

	RuleDrawdownTolerance: "Drawdown tolerance",
	RuleStressGroups:      "Stress-correlation group size",

	RuleReviewTriggers: "Review triggers",

	RulePriceFreshness: "Price data freshness",
	RuleFXFreshness:    "FX data freshness",
}

// Label returns the human label for a rule.
func (r RuleID) Label() string { return ruleLabels[r] }

// CheckResult is the outcome of one rule against one snapshot.
// Value and Threshold carry the measured quantity and its limit when the
// rule is numeric; both are nil for purely qualitative rules.
type CheckResult struct {
	RuleID    RuleID   `json:"rule_id"`
	Label     string   `json:"label"`
	Status    Status   `json:"status"`
	Detail    string   `json:"detail"`
	Value     *float64 `json:"value,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Summary tallies results by status.
type Summary struct {
	Pass    int `json:"pass"`
	Warning int `json:"warning"`
	Breach  int `json:"breach"`
}

// Summarise counts results by status.
func Summarise(results []CheckResult) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			s.Pass++
		case StatusWarning:
			s.Warning++
		case StatusBreach:
			s.Breach++
		}
	}
	return s
}

// Run is a persisted compliance run.
type Run struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"`
	TotalValueAUD float64 `json:"total_value_aud"`
	CreatedAt     string  `json:"created_at"`
}
