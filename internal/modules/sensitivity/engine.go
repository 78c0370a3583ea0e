package sensitivity

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aknight/ballast/internal/domain"
	"github.com/aknight/ballast/internal/modules/params"
)

// Engine produces sensitivity reports. Pure function of (snapshot, params).
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a sensitivity engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "sensitivity").Logger()}
}

// Analyse produces the five objective findings plus the sorted rule buffers.
// The report always carries all five objectives; data gaps surface in the
// finding's own text, never as a missing entry.
func (e *Engine) Analyse(snap *domain.Snapshot, p *params.Params) (*Report, error) {
	total := snap.TotalAUD()
	if total <= 0 {
		return nil, fmt.Errorf("snapshot total is %.2f AUD; sensitivity requires a positive total", total)
	}

	roles := snap.ByCapitalRole()
	report := &Report{
		Objectives: []ObjectiveSensitivity{
			e.incomeBridge(snap, roles, p),
			e.forcedLiquidation(roles, total, p),
			e.compoundingCapital(roles, total, p),
			e.audLiabilityMatching(snap, p),
			e.optionalitySizing(roles, total),
		},
		RuleBuffers: e.ruleBuffers(snap, roles, total, p),
	}

	e.log.Debug().Int("buffers", len(report.RuleBuffers)).Msg("Sensitivity analysis complete")
	return report, nil
}

// incomeBridge measures how large a market decline in stabiliser holdings
// would push expense coverage below the floor. Cash cannot lose value in a
// market move, so an all-cash stabiliser is unbreakable by markets.
func (e *Engine) incomeBridge(snap *domain.Snapshot, roles map[domain.CapitalRole]float64, p *params.Params) ObjectiveSensitivity {
	stabiliser := roles[domain.RoleStabiliser]
	floor := p.ExpenseFloorAUD()
	months := 0.0
	if p.MonthlyExpensesAUD > 0 {
		months = stabiliser / p.MonthlyExpensesAUD
	}

	finding := ObjectiveSensitivity{
		Objective: ObjectiveIncomeBridge,
		CurrentState: fmt.Sprintf("stabiliser A$%.0f covers %.1f months against the %.0f-month floor",
			stabiliser, months, p.ExpenseFloorMonths),
		Consequence: "living expenses would force selling growth assets, potentially into a drawdown",
	}

	if months < p.ExpenseFloorMonths {
		finding.Severity = SeverityCritical
		finding.Headline = fmt.Sprintf("Income bridge already broken at %.1f months", months)
		finding.Trigger = "no market move required; the floor is already breached"
		return finding
	}

	cash := snap.InvestableCashAUD()
	holdingsValue := stabiliser - cash
	if holdingsValue <= 0 {
		finding.Severity = SeveritySafe
		finding.Headline = fmt.Sprintf("Income bridge unbreakable: %.1f months held entirely in cash", months)
		finding.Trigger = "no market decline can reduce cash value"
		return finding
	}
	if cash >= floor {
		finding.Severity = SeveritySafe
		finding.Headline = fmt.Sprintf("Income bridge at %.1f months; cash alone covers the floor", months)
		finding.Trigger = "even a total loss of stabiliser holdings leaves the floor covered by cash"
		return finding
	}

	breachPct := (stabiliser - floor) / holdingsValue * 100
	switch {
	case breachPct > 50:
		finding.Severity = SeveritySafe
	case breachPct > 20:
		finding.Severity = SeverityWatch
	case breachPct > 10:
		finding.Severity = SeverityFragile
	default:
		finding.Severity = SeverityCritical
	}
	finding.Headline = fmt.Sprintf("Income bridge at %.1f months; a %.1f%% stabiliser holdings decline breaks it",
		months, breachPct)
	finding.Trigger = fmt.Sprintf("a %.1f%% market decline in stabiliser holdings pushes coverage below %.0f months",
		breachPct, p.ExpenseFloorMonths)
	return finding
}

// forcedLiquidation measures the stabiliser excess over the floor as a share
// of total wealth.
func (e *Engine) forcedLiquidation(roles map[domain.CapitalRole]float64, total float64, p *params.Params) ObjectiveSensitivity {
	stabiliser := roles[domain.RoleStabiliser]
	floor := p.ExpenseFloorAUD()
	excess := stabiliser - floor
	excessPct := excess / total * 100

	finding := ObjectiveSensitivity{
		Objective: ObjectiveForcedLiquidation,
		CurrentState: fmt.Sprintf("stabiliser A$%.0f holds A$%.0f (%.1f%% of total) above the A$%.0f floor",
			stabiliser, excess, excessPct, floor),
		Consequence: "growth assets would be sold under duress, crystallising drawdown losses",
	}

	if stabiliser < floor {
		finding.Severity = SeverityCritical
		finding.Headline = fmt.Sprintf("Stabiliser A$%.0f below the A$%.0f floor", stabiliser, floor)
		finding.Trigger = "no buffer exists; any call on capital forces liquidation now"
		return finding
	}

	switch {
	case excessPct > 20:
		finding.Severity = SeveritySafe
	case excessPct > 10:
		finding.Severity = SeverityWatch
	case excessPct > 5:
		finding.Severity = SeverityFragile
	default:
		finding.Severity = SeverityCritical
	}
	finding.Headline = fmt.Sprintf("Forced-liquidation buffer at %.1f%% of total wealth", excessPct)
	finding.Trigger = fmt.Sprintf("unplanned spending above A$%.0f exhausts the buffer", excess)
	return finding
}

// compoundingCapital quantifies what equity declines cost the compounder
// bucket and how long the loss takes to regrow at the assumed real return.
func (e *Engine) compoundingCapital(roles map[domain.CapitalRole]float64, total float64, p *params.Params) ObjectiveSensitivity {
	compounder := roles[domain.RoleCompounder]
	share := compounder / total * 100
	loss10 := compounder * 0.10
	loss35 := compounder * 0.35
	recovery35 := recoveryYears(compounder, compounder*0.65, p.RealReturnPA)

	var severity Severity
	switch {
	case share < 30:
		severity = SeverityCritical
	case share < 50:
		severity = SeverityFragile
	case share <= 65:
		severity = SeveritySafe
	default:
		// Overweight compounders is also a finding, not a virtue.
		severity = SeverityWatch
	}

	return ObjectiveSensitivity{
		Objective: ObjectiveCompounding,
		Severity:  severity,
		Headline: fmt.Sprintf("Compounders at %.1f%% of total; a 35%% decline costs A$%.0f", share, loss35),
		CurrentState: fmt.Sprintf("compounder capital A$%.0f (%.1f%% of total)", compounder, share),
		Trigger: fmt.Sprintf("a 10%% equity decline costs A$%.0f; a 35%% decline costs A$%.0f and takes %.1f years to regrow at %.1f%% real",
			loss10, loss35, recovery35, p.RealReturnPA*100),
		Consequence: "compounding restarts from a lower base; the recovery period is spent regaining, not gaining",
	}
}

// audLiabilityMatching measures how far a foreign-asset rally would dilute
// the AUD share of growth capital below half.
func (e *Engine) audLiabilityMatching(snap *domain.Snapshot, p *params.Params) ObjectiveSensitivity {
	var growth, aud float64
	for _, h := range snap.GrowthHoldings() {
		growth += h.ValueAUD
		if h.ExposureCurrency() == domain.BaseCurrency {
			aud += h.ValueAUD
		}
	}

	finding := ObjectiveSensitivity{
		Objective:   ObjectiveAUDMatching,
		Consequence: "AUD-denominated living expenses lose their natural hedge against currency swings",
	}

	if growth <= 0 {
		finding.Severity = SeverityWatch
		finding.Headline = "No growth capital to match against AUD liabilities"
		finding.CurrentState = "growth capital is zero; the AUD share is undefined"
		finding.Trigger = "adding unclassified or foreign growth assets without AUD exposure"
		return finding
	}

	share := aud / growth * 100
	nonAud := growth - aud
	finding.CurrentState = fmt.Sprintf("AUD growth A$%.0f of A$%.0f (%.1f%%)", aud, growth, share)

	if share < 50 {
		finding.Severity = SeverityCritical
		finding.Headline = fmt.Sprintf("AUD share of growth already below half at %.1f%%", share)
		finding.Trigger = "no market move required; the matching floor is already breached"
		return finding
	}
	if nonAud <= 0 {
		finding.Severity = SeveritySafe
		finding.Headline = "All growth capital is AUD-exposed"
		finding.Trigger = "no foreign rally can dilute a fully domestic growth book"
		return finding
	}

	rallyPct := (aud/nonAud - 1) * 100
	switch {
	case rallyPct < 5:
		finding.Severity = SeverityFragile
	case rallyPct < 15:
		finding.Severity = SeverityWatch
	default:
		finding.Severity = SeveritySafe
	}
	finding.Headline = fmt.Sprintf("AUD share at %.1f%%; a %.1f%% foreign rally dilutes it below half", share, rallyPct)
	finding.Trigger = fmt.Sprintf("foreign growth assets rallying %.1f%% relative to AUD assets pushes the AUD share below 50%%", rallyPct)
	return finding
}

// optionalitySizing checks that crisis insurance is big enough to matter.
func (e *Engine) optionalitySizing(roles map[domain.CapitalRole]float64, total float64) ObjectiveSensitivity {
	optionality := roles[domain.RoleOptionality]
	share := optionality / total * 100

	var severity Severity
	switch {
	case share < 2:
		severity = SeverityCritical
	case share < 10:
		severity = SeverityFragile
	default:
		severity = SeveritySafe
	}

	return ObjectiveSensitivity{
		Objective:    ObjectiveOptionalitySizing,
		Severity:     severity,
		Headline:     fmt.Sprintf("Optionality at %.1f%% of total wealth", share),
		CurrentState: fmt.Sprintf("optionality capital A$%.0f (%.1f%% of total)", optionality, share),
		Trigger: fmt.Sprintf("in a crisis, even a 100%% optionality gain adds only A$%.0f against growth losses",
			optionality),
		Consequence: "crisis insurance too small to fund rebalancing into a drawdown when it matters",
	}
}

// ruleBuffers re-expresses the sizing caps as remaining headroom, tightest
// first. Negative buffers (already over the cap) sort to the top.
func (e *Engine) ruleBuffers(snap *domain.Snapshot, roles map[domain.CapitalRole]float64, total float64, p *params.Params) []RuleBuffer {
	var buffers []RuleBuffer
	add := func(name string, currentPct, limitPct float64) {
		buffers = append(buffers, RuleBuffer{
			Name:       name,
			CurrentPct: currentPct,
			LimitPct:   limitPct,
			BufferPct:  limitPct - currentPct,
		})
	}

	var specTotal float64
	for _, h := range snap.Holdings {
		share := h.ValueAUD / total * 100
		if h.Speculative {
			specTotal += h.ValueAUD
			add(fmt.Sprintf("speculative position %s", h.Ticker), share, p.SingleSpecMax*100)
		}
		switch {
		case h.EffectiveAssetClass() == "credit":
			add(fmt.Sprintf("credit position %s", h.Ticker), share, p.SingleCreditMax*100)
		case h.SizedAsEquity():
			add(fmt.Sprintf("equity position %s", h.Ticker), share, p.SingleEquityMax*100)
		}
	}
	if specTotal > 0 {
		add("aggregate speculative exposure", specTotal/total*100, p.AggregateSpecMax*100)
	}

	for group, value := range snap.ByCorporateGroup() {
		add(fmt.Sprintf("corporate group %s", group), value/total*100, p.CorporateGroupMax*100)
	}

	if stabiliser := roles[domain.RoleStabiliser]; stabiliser > 0 {
		buckets := make(map[string]float64)
		for _, h := range snap.RoleHoldings(domain.RoleStabiliser) {
			if h.Classification.DurationYears == nil {
				continue
			}
			bucket := fmt.Sprintf("%.0fy", math.Round(*h.Classification.DurationYears))
			buckets[bucket] += h.ValueAUD
		}
		for bucket, value := range buckets {
			add(fmt.Sprintf("duration bucket %s", bucket), value/stabiliser*100, p.DurationBucketMax*100)
		}
	}

	sort.Slice(buffers, func(i, j int) bool {
		if buffers[i].BufferPct != buffers[j].BufferPct {
			return buffers[i].BufferPct < buffers[j].BufferPct
		}
		return buffers[i].Name < buffers[j].Name
	})
	return buffers
}

// recoveryYears returns how long post-loss capital takes to regrow to its
// pre-loss level at annual rate r: ln(pre/post) / ln(1+r).
func recoveryYears(pre, post, r float64) float64 {
	if pre <= 0 || post <= 0 || post >= pre || r <= 0 {
		return 0
	}
	return math.Log(pre/post) / math.Log(1+r)
}
