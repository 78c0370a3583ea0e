package stress

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aknight/ballast/internal/domain"
	"github.com/aknight/ballast/internal/modules/compliance"
	"github.com/aknight/ballast/internal/modules/historical"
	"github.com/aknight/ballast/internal/modules/params"
)

// Engine runs stress scenarios. Historical drawdowns come from the stored
// price history; the compliance engine corroborates each post-shock snapshot.
type Engine struct {
	prices     *historical.Repository
	compliance *compliance.Engine
	log        zerolog.Logger
}

// NewEngine creates a stress engine.
func NewEngine(prices *historical.Repository, comp *compliance.Engine, log zerolog.Logger) *Engine {
	return &Engine{
		prices:     prices,
		compliance: comp,
		log:        log.With().Str("component", "stress").Logger(),
	}
}

// RunScenario applies one scenario to the snapshot. An unknown scenario id or
// a non-positive snapshot total is a caller error.
func (e *Engine) RunScenario(snap *domain.Snapshot, id ScenarioID, p *params.Params) (*Result, error) {
	scenario, ok := scenarios[id]
	if !ok {
		return nil, fmt.Errorf("unknown stress scenario %q", id)
	}
	if snap.TotalAUD() <= 0 {
		return nil, fmt.Errorf("snapshot total is non-positive; cannot stress")
	}

	post := snap.Clone()
	holdings := make([]HoldingStress, 0, len(snap.Holdings))
	for i := range post.Holdings {
		h := &post.Holdings[i]
		drawdown, source, err := e.drawdownFor(scenario, snap.Holdings[i])
		if err != nil {
			return nil, err
		}
		pre := h.ValueAUD
		h.ValueAUD = pre * (1 + drawdown)
		h.LocalValue *= 1 + drawdown
		holdings = append(holdings, HoldingStress{
			Ticker:      h.Ticker,
			PreAUD:      pre,
			PostAUD:     h.ValueAUD,
			DrawdownPct: drawdown * 100,
			Source:      source,
		})
	}

	result := &Result{
		ScenarioID: scenario.ID,
		Name:       scenario.Name,
		Holdings:   holdings,
		Assessment: assess(snap, post, p),
		Post:       post,
	}

	// Post-shock compliance is corroborating evidence, not the verdict; a
	// degenerate post-shock snapshot just skips it.
	if checks, err := e.compliance.RunAllChecks(post, p); err == nil {
		result.Compliance = checks
	} else {
		e.log.Warn().Err(err).Str("scenario", string(id)).
			Msg("Skipping post-shock compliance run")
	}

	e.log.Info().
		Str("scenario", string(id)).
		Float64("total_loss_pct", result.Assessment.TotalLossPct).
		Msg("Stress scenario complete")
	return result, nil
}

// RunScenarios runs each named scenario, tolerating individual failures: a
// scenario that errors is logged and skipped, and the rest still return.
func (e *Engine) RunScenarios(snap *domain.Snapshot, ids []ScenarioID, p *params.Params) []*Result {
	results := make([]*Result, 0, len(ids))
	for _, id := range ids {
		result, err := e.RunScenario(snap, id, p)
		if err != nil {
			e.log.Error().Err(err).Str("scenario", string(id)).
				Msg("Stress scenario failed; continuing batch")
			continue
		}
		results = append(results, result)
	}
	return results
}

// RunAllScenarios runs the full scenario set.
func (e *Engine) RunAllScenarios(snap *domain.Snapshot, p *params.Params) []*Result {
	return e.RunScenarios(snap, AllScenarioIDs, p)
}

// drawdownFor resolves one holding's drawdown under a scenario.
// Synthetic: growth holdings take the flat shock, everything else is flat.
// Historical: the instrument's own peak-to-trough return when its history
// spans the window, otherwise the scenario's per-type proxy table.
func (e *Engine) drawdownFor(scenario Scenario, h domain.Holding) (float64, StressSource, error) {
	if scenario.Synthetic {
		if h.IsGrowth() {
			return syntheticGrowthShock, SourceSynthetic, nil
		}
		return 0, SourceSynthetic, nil
	}

	if h.InstrumentType == domain.InstrumentCash {
		return 0, SourceProxy, nil
	}

	peak, err := e.prices.PriceOnOrBefore(h.Ticker, scenario.PeakDate)
	if err != nil {
		return 0, "", err
	}
	trough, err := e.prices.PriceOnOrBefore(h.Ticker, scenario.TroughDate)
	if err != nil {
		return 0, "", err
	}
	if peak != nil && trough != nil && peak.Price > 0 && trough.Date > peak.Date {
		return trough.Price/peak.Price - 1, SourceHistorical, nil
	}

	if drawdown, ok := scenario.ProxyDrawdowns[h.InstrumentType]; ok {
		return drawdown, SourceProxy, nil
	}
	return proxyFallback, SourceProxy, nil
}

// assess compares the five standing objectives across the shock.
func assess(pre, post *domain.Snapshot, p *params.Params) ObjectiveAssessment {
	preRoles := pre.ByCapitalRole()
	postRoles := post.ByCapitalRole()
	floor := p.ExpenseFloorAUD()

	var a ObjectiveAssessment

	postStab := postRoles[domain.RoleStabiliser]
	a.ForcedLiquidation = postStab < floor

	if p.MonthlyExpensesAUD > 0 {
		a.IncomeBridgeMonthsPre = preRoles[domain.RoleStabiliser] / p.MonthlyExpensesAUD
		a.IncomeBridgeMonthsPost = postStab / p.MonthlyExpensesAUD
	}
	a.IncomeBridgeMonthsLost = a.IncomeBridgeMonthsPre - a.IncomeBridgeMonthsPost
	a.IncomeBridgeIntact = a.IncomeBridgeMonthsPost >= p.ExpenseFloorMonths

	a.CompounderPreAUD = preRoles[domain.RoleCompounder]
	a.CompounderPostAUD = postRoles[domain.RoleCompounder]
	a.CompounderLossAUD = a.CompounderPreAUD - a.CompounderPostAUD
	if a.CompounderPreAUD > 0 {
		a.CompounderLossPct = a.CompounderLossAUD / a.CompounderPreAUD * 100
	}
	if a.CompounderPostAUD > 0 && a.CompounderPostAUD < a.CompounderPreAUD {
		a.RecoveryYears = math.Log(a.CompounderPreAUD/a.CompounderPostAUD) / math.Log(1+p.RealReturnPA)
	}

	a.OptionalityPreAUD = preRoles[domain.RoleOptionality]
	a.OptionalityPostAUD = postRoles[domain.RoleOptionality]
	if a.OptionalityPreAUD > 0 {
		a.OptionalityChangePct = (a.OptionalityPostAUD - a.OptionalityPreAUD) / a.OptionalityPreAUD * 100
	}
	compChangePct := -a.CompounderLossPct
	// Optionality "performed" when it gained outright, or fell more than 10
	// points less than compounders did (it cushioned the drawdown). An empty
	// optionality sleeve still clears the second clause when compounders fall
	// hard: holding nothing beat holding what fell.
	a.OptionalityPerformed = a.OptionalityChangePct > 0 ||
		a.OptionalityChangePct > compChangePct+10

	a.TotalPreAUD = pre.TotalAUD()
	a.TotalPostAUD = post.TotalAUD()
	a.TotalLossAUD = a.TotalPreAUD - a.TotalPostAUD
	if a.TotalPreAUD > 0 {
		a.TotalLossPct = a.TotalLossAUD / a.TotalPreAUD * 100
	}
	return a
}
