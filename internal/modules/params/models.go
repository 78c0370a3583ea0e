// Package params provides the persistent parameter store for analytic
// thresholds and state flags. Every number a compliance rule compares against
// lives here, not in code, so thresholds can move without a rebuild.
package params

// Params is the resolved, typed view of the parameter store. Missing keys
// fall back to the defaults below, so a fresh database produces a fully
// populated Params.
type Params struct {
	// MonthlyExpensesAUD anchors the income-shock rules. The 24-month floor
	// and income-bridge months both derive from it.
	MonthlyExpensesAUD float64

	// RealReturnPA is the assumed real return for recovery-time arithmetic.
	RealReturnPA float64

	// Capital role allocation bands (fractions of total investable assets).
	StabiliserMin  float64
	StabiliserMax  float64
	CompounderMin  float64
	CompounderMax  float64
	OptionalityMin float64
	OptionalityMax float64

	// Expense floor sizing.
	ExpenseFloorMonths float64

	// Position sizing caps.
	SingleCreditMax   float64
	SingleEquityMax   float64
	SingleSpecMax     float64
	AggregateSpecMax  float64
	CorporateGroupMax float64
	StressGroupMax    float64

	// Geographic and macro concentration.
	AustraliaMax   float64
	MacroDriverMax float64

	// Currency rules (fractions of growth capital).
	AUDGrowthMin float64
	AUDGrowthMax float64
	UnhedgedMin  float64

	// Optionality discipline.
	OptionalityShockMax float64
	YieldOptionalityMax float64

	// Structural ratios.
	LiquidMin          float64
	DurationBucketMax  float64
	InflationLinkedMin float64

	// Data freshness (days).
	PriceMaxAgeDays int
	FXMaxAgeDays    int

	// Review trigger state flags, set by hand when the world changes.
	IncomeShockActive            bool
	InflationShiftActive         bool
	CurrencyRegimeActive         bool
	CorrelationConvergenceActive bool
}

// Defaults holds the fallback value for every parameter key. Stored values
// override these; unknown keys in the store are ignored by Resolve.
var Defaults = map[string]string{
	"monthly_expenses_aud": "9000",
	"real_return_pa":       "0.065",

	"stabiliser_min":  "0.15",
	"stabiliser_max":  "0.25",
	"compounder_min":  "0.50",
	"compounder_max":  "0.65",
	"optionality_min": "0.10",
	"optionality_max": "0.20",

	"expense_floor_months": "24",

	"single_credit_max":   "0.07",
	"single_equity_max":   "0.10",
	"single_spec_max":     "0.01",
	"aggregate_spec_max":  "0.03",
	"corporate_group_max": "0.20",
	"stress_group_max":    "0.20",

	"australia_max":    "0.55",
	"macro_driver_max": "0.30",

	"aud_growth_min": "0.50",
	"aud_growth_max": "0.70",
	"unhedged_min":   "0.40",

	"optionality_shock_max": "0.10",
	"yield_optionality_max": "0.25",

	"liquid_min":           "0.70",
	"duration_bucket_max":  "0.40",
	"inflation_linked_min": "0.25",

	"price_max_age_days": "7",
	"fx_max_age_days":    "7",

	"income_shock_active":            "false",
	"inflation_shift_active":         "false",
	"currency_regime_active":         "false",
	"correlation_convergence_active": "false",
}

// Descriptions documents each key for the params CLI listing.
var Descriptions = map[string]string{
	"monthly_expenses_aud": "Baseline monthly living expenses in AUD",
	"real_return_pa":       "Assumed real return p.a. for recovery-time estimates",

	"stabiliser_min":  "Minimum stabiliser share of investable assets",
	"stabiliser_max":  "Maximum stabiliser share of investable assets",
	"compounder_min":  "Minimum compounder share of investable assets",
	"compounder_max":  "Maximum compounder share of investable assets",
	"optionality_min": "Minimum optionality share of investable assets",
	"optionality_max": "Maximum optionality share of investable assets",

	"expense_floor_months": "Months of expenses the stabiliser floor must cover",

	"single_credit_max":   "Maximum single credit position share",
	"single_equity_max":   "Maximum single equity position share",
	"single_spec_max":     "Maximum single speculative position share",
	"aggregate_spec_max":  "Maximum aggregate speculative share",
	"corporate_group_max": "Maximum corporate-group exposure share",
	"stress_group_max":    "Stress-correlation group share above which the group is treated as one position",

	"australia_max":    "Maximum Australia exposure excluding government bonds",
	"macro_driver_max": "Maximum exposure per macro driver",

	"aud_growth_min": "Minimum AUD-exposed share of growth capital",
	"aud_growth_max": "Maximum AUD-exposed share of growth capital",
	"unhedged_min":   "Minimum unhedged share of international growth capital",

	"optionality_shock_max": "Maximum optionality deployable per shock event",
	"yield_optionality_max": "Maximum yield-dominant share of optionality",

	"liquid_min":           "Minimum share liquidatable within five trading days",
	"duration_bucket_max":  "Maximum stabiliser share in any one duration bucket",
	"inflation_linked_min": "Minimum inflation-linked share of stabilisers",

	"price_max_age_days": "Maximum price age in days before a freshness warning",
	"fx_max_age_days":    "Maximum FX rate age in days before a freshness warning",

	"income_shock_active":            "Manual flag: income shock under way",
	"inflation_shift_active":         "Manual flag: sustained inflation regime shift",
	"currency_regime_active":         "Manual flag: structural AUD regime change",
	"correlation_convergence_active": "Manual flag: cross-asset correlations converging",
}
