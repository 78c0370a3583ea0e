// Package sensitivity grades how close the portfolio sits to its own
// objectives: not whether a rule passes today, but how small a market move
// would break it tomorrow.
package sensitivity

// Severity grades a fragility finding.
type Severity string

const (
	SeveritySafe     Severity = "safe"
	SeverityWatch    Severity = "watch"
	SeverityFragile  Severity = "fragile"
	SeverityCritical Severity = "critical"
)

// Objective identifies one of the five standing objectives.
type Objective string

const (
	ObjectiveIncomeBridge      Objective = "income_bridge"
	ObjectiveForcedLiquidation Objective = "forced_liquidation"
	ObjectiveCompounding       Objective = "compounding_capital"
	ObjectiveAUDMatching       Objective = "aud_liability_matching"
	ObjectiveOptionalitySizing Objective = "optionality_sizing"
)

// ObjectiveSensitivity is one fragility finding. All four text fields are
// mandatory and describe the same numbers: what the headline states, the
// current measurement, the market move that breaks it, and what breaking it
// costs.
type ObjectiveSensitivity struct {
	Objective    Objective `json:"objective"`
	Severity     Severity  `json:"severity"`
	Headline     string    `json:"headline"`
	CurrentState string    `json:"current_state"`
	Trigger      string    `json:"trigger"`
	Consequence  string    `json:"consequence"`
}

// RuleBuffer expresses a sizing cap as remaining headroom instead of
// pass/fail. Buffer is in percentage points; negative means already over.
type RuleBuffer struct {
	Name       string  `json:"name"`
	CurrentPct float64 `json:"current_pct"`
	LimitPct   float64 `json:"limit_pct"`
	BufferPct  float64 `json:"buffer_pct"`
}

// Report is a full sensitivity analysis: exactly five objective findings
// plus every sizing cap sorted by remaining buffer, tightest first.
type Report struct {
	Objectives  []ObjectiveSensitivity `json:"objectives"`
	RuleBuffers []RuleBuffer           `json:"rule_buffers"`
}

// Find returns the finding for one objective.
func (r *Report) Find(obj Objective) (ObjectiveSensitivity, bool) {
	for _, o := range r.Objectives {
		if o.Objective == obj {
			return o, true
		}
	}
	return ObjectiveSensitivity{}, false
}
