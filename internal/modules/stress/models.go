// Package stress replays crisis scenarios against the current portfolio:
// one synthetic flat shock and three historical peak-to-trough windows.
package stress

import (
	"github.com/aknight/ballast/internal/domain"
	"github.com/aknight/ballast/internal/modules/compliance"
)

// ScenarioID identifies a stress scenario. The set is closed; an unknown id
// is a caller error, never silently ignored.
type ScenarioID string

const (
	ScenarioFlat35    ScenarioID = "flat35"
	ScenarioCovid2020 ScenarioID = "covid2020"
	ScenarioGFC2008   ScenarioID = "gfc2008"
	ScenarioRates2022 ScenarioID = "rates2022"
)

// AllScenarioIDs lists every scenario in batch-run order.
var AllScenarioIDs = []ScenarioID{
	ScenarioFlat35,
	ScenarioCovid2020,
	ScenarioGFC2008,
	ScenarioRates2022,
}

// Scenario defines one stress scenario. Historical scenarios carry a
// peak-to-trough window plus a per-instrument-type proxy table used when a
// holding's own price history does not span the window. Proxy tables differ
// per scenario: a rate shock hurts bonds that an equity crash flatters.
type Scenario struct {
	ID          ScenarioID
	Name        string
	Description string
	Synthetic   bool
	PeakDate    string
	TroughDate  string
	// ProxyDrawdowns maps instrument type to fractional return over the
	// window (-0.35 means a 35% fall).
	ProxyDrawdowns map[domain.InstrumentType]float64
}

// proxyFallback applies to instrument types absent from a proxy table.
const proxyFallback = -0.20

// syntheticGrowthShock is the flat35 drawdown applied to growth capital.
const syntheticGrowthShock = -0.35

var scenarios = map[ScenarioID]Scenario{
	ScenarioFlat35: {
		ID:          ScenarioFlat35,
		Name:        "Flat 35% growth shock",
		Description: "a uniform 35% decline across all compounder and optionality holdings",
		Synthetic:   true,
	},
	ScenarioCovid2020: {
		ID:          ScenarioCovid2020,
		Name:        "COVID crash 2020",
		Description: "the February-March 2020 pandemic drawdown",
		PeakDate:    "2020-02-19",
		TroughDate:  "2020-03-23",
		ProxyDrawdowns: map[domain.InstrumentType]float64{
			domain.InstrumentEquity:        -0.35,
			domain.InstrumentETF:           -0.30,
			domain.InstrumentCredit:        -0.15,
			domain.InstrumentListedFund:    -0.25,
			domain.InstrumentGovtBondNom:   0.02,
			domain.InstrumentGovtBondIndex: 0.00,
			domain.InstrumentCash:          0.00,
			domain.InstrumentOther:         -0.20,
		},
	},
	ScenarioGFC2008: {
		ID:          ScenarioGFC2008,
		Name:        "Global financial crisis 2008",
		Description: "the October 2007 to March 2009 credit-crisis drawdown",
		PeakDate:    "2007-10-09",
		TroughDate:  "2009-03-09",
		ProxyDrawdowns: map[domain.InstrumentType]float64{
			domain.InstrumentEquity:        -0.55,
			domain.InstrumentETF:           -0.45,
			domain.InstrumentCredit:        -0.30,
			domain.InstrumentListedFund:    -0.40,
			domain.InstrumentGovtBondNom:   0.10,
			domain.InstrumentGovtBondIndex: 0.05,
			domain.InstrumentCash:          0.00,
			domain.InstrumentOther:         -0.30,
		},
	},
	ScenarioRates2022: {
		ID:          ScenarioRates2022,
		Name:        "Rates shock 2022",
		Description: "the 2022 inflation-driven simultaneous equity and bond selloff",
		PeakDate:    "2022-01-03",
		TroughDate:  "2022-10-14",
		ProxyDrawdowns: map[domain.InstrumentType]float64{
			domain.InstrumentEquity:        -0.25,
			domain.InstrumentETF:           -0.20,
			domain.InstrumentCredit:        -0.10,
			domain.InstrumentListedFund:    -0.15,
			domain.InstrumentGovtBondNom:   -0.15,
			domain.InstrumentGovtBondIndex: -0.10,
			domain.InstrumentCash:          0.00,
			domain.InstrumentOther:         -0.15,
		},
	},
}

// StressSource records where a holding's drawdown came from.
type StressSource string

const (
	SourceHistorical StressSource = "historical" // the instrument's own prices
	SourceProxy      StressSource = "proxy"      // type-based fallback table
	SourceSynthetic  StressSource = "synthetic"  // flat scenario definition
)

// HoldingStress is one holding's shock.
type HoldingStress struct {
	Ticker      string       `json:"ticker"`
	PreAUD      float64      `json:"pre_aud"`
	PostAUD     float64      `json:"post_aud"`
	DrawdownPct float64      `json:"drawdown_pct"` // negative for losses
	Source      StressSource `json:"source"`
}

// ObjectiveAssessment compares the five standing objectives before and after
// the shock.
type ObjectiveAssessment struct {
	ForcedLiquidation bool `json:"forced_liquidation"`

	IncomeBridgeMonthsPre  float64 `json:"income_bridge_months_pre"`
	IncomeBridgeMonthsPost float64 `json:"income_bridge_months_post"`
	IncomeBridgeMonthsLost float64 `json:"income_bridge_months_lost"`
	IncomeBridgeIntact     bool    `json:"income_bridge_intact"`

	CompounderPreAUD   float64 `json:"compounder_pre_aud"`
	CompounderPostAUD  float64 `json:"compounder_post_aud"`
	CompounderLossAUD  float64 `json:"compounder_loss_aud"`
	CompounderLossPct  float64 `json:"compounder_loss_pct"`
	RecoveryYears      float64 `json:"recovery_years"`

	OptionalityPreAUD    float64 `json:"optionality_pre_aud"`
	OptionalityPostAUD   float64 `json:"optionality_post_aud"`
	OptionalityChangePct float64 `json:"optionality_change_pct"`
	OptionalityPerformed bool    `json:"optionality_performed"`

	TotalPreAUD  float64 `json:"total_pre_aud"`
	TotalPostAUD float64 `json:"total_post_aud"`
	TotalLossAUD float64 `json:"total_loss_aud"`
	TotalLossPct float64 `json:"total_loss_pct"`
}

// Result is one scenario's full outcome: per-holding shocks, the objective
// assessment, and the post-shock compliance run as corroborating evidence.
type Result struct {
	ScenarioID ScenarioID                `json:"scenario_id"`
	Name       string                    `json:"name"`
	Holdings   []HoldingStress           `json:"holdings"`
	Assessment ObjectiveAssessment       `json:"assessment"`
	Compliance []compliance.CheckResult  `json:"compliance,omitempty"`
	Post       *domain.Snapshot          `json:"-"`
}
