// Package correlation measures how the held instruments actually move
// together, then judges the portfolio's diversification assumptions at pair,
// role and group granularity.
package correlation

// Verdict vocabulary for role-level diversification.
const (
	VerdictWellDiversified  = "well_diversified"
	VerdictModerate         = "moderate"
	VerdictConcentrated     = "concentrated"
	VerdictFalseDiversified = "false_diversification"
	VerdictNotApplicable    = "n/a"
)

// Cross-role verdict vocabulary.
const (
	VerdictProtective = "protective"
	VerdictNeutral    = "neutral"
	VerdictCoMoving   = "co_moving"
	VerdictUnknown    = "unknown"
)

// Pair flag vocabulary. An over-grouped pair shares a tag but diversifies
// better than the tag assumes; an under-grouped pair shares no tag but is
// effectively one bet.
const (
	FlagOverGrouped  = "over_grouped"
	FlagUnderGrouped = "under_grouped"
)

// PairCorrelation is the measured relationship between two held instruments.
// Nil correlation fields mean insufficient overlapping history for that
// statistic, never a silent zero.
type PairCorrelation struct {
	TickerA string `json:"ticker_a"`
	TickerB string `json:"ticker_b"`

	WindowCorr *float64 `json:"window_corr,omitempty"` // over the requested rolling window
	Corr60     *float64 `json:"corr_60,omitempty"`     // trailing 60 trading days
	StressCorr *float64 `json:"stress_corr,omitempty"` // stress-masked days only

	OverlapDays int `json:"overlap_days"`
	StressDays  int `json:"stress_days"`

	SharedGroup string `json:"shared_group,omitempty"`
	Flag        string `json:"flag,omitempty"`
}

// Reference returns the most stress-relevant correlation for tag validation:
// the stress correlation when measurable, else the window correlation.
// With stressOnly set, only the stress correlation qualifies.
func (p PairCorrelation) Reference(stressOnly bool) *float64 {
	if p.StressCorr != nil {
		return p.StressCorr
	}
	if stressOnly {
		return nil
	}
	return p.WindowCorr
}

// RoleDiversification judges diversification within one capital role.
type RoleDiversification struct {
	Role        string   `json:"role"`
	Verdict     string   `json:"verdict"`
	AvgCorr     *float64 `json:"avg_corr,omitempty"`
	MaxPairA    string   `json:"max_pair_a,omitempty"`
	MaxPairB    string   `json:"max_pair_b,omitempty"`
	MaxPairCorr *float64 `json:"max_pair_corr,omitempty"`
	Members     int      `json:"members"`
}

// CrossRoleAssessment judges whether one role still does its job when
// another is under stress.
type CrossRoleAssessment struct {
	RoleA         string   `json:"role_a"`
	RoleB         string   `json:"role_b"`
	Verdict       string   `json:"verdict"`
	AvgStressCorr *float64 `json:"avg_stress_corr,omitempty"`
	PairCount     int      `json:"pair_count"`
}

// GroupValidation checks a manually-tagged correlation group against the
// data: the tag holds only if every member pair is genuinely correlated.
type GroupValidation struct {
	Group    string   `json:"group"`
	Members  int      `json:"members"`
	AvgCorr  *float64 `json:"avg_corr,omitempty"`
	MinCorr  *float64 `json:"min_corr,omitempty"`
	Measured bool     `json:"measured"`
	Valid    bool     `json:"valid"`
}

// Report is a full correlation analysis.
type Report struct {
	Window     int    `json:"window"` // requested rolling window in trading days
	StressOnly bool   `json:"stress_only"`
	AsOf       string `json:"as_of"` // latest price date in the dataset

	StressDays  int    `json:"stress_days"` // trading days under the stress mask
	StressProxy string `json:"stress_proxy,omitempty"`

	Pairs      []PairCorrelation     `json:"pairs"`
	Roles      []RoleDiversification `json:"roles"`
	CrossRoles []CrossRoleAssessment `json:"cross_roles"`
	Groups     []GroupValidation     `json:"groups"`

	Notes []string `json:"notes,omitempty"`
}
