package correlation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aknight/ballast/internal/domain"
	"github.com/aknight/ballast/internal/modules/historical"
)

const (
	// minOverlapDays is the least overlapping return history for any pair
	// statistic at all.
	minOverlapDays = 30
	// minTrailingDays gates the trailing 60-day correlation.
	minTrailingDays = 60
	// minStressDays gates the stress-conditioned correlation.
	minStressDays = 20
	// maxForwardFill caps gap filling in a price series.
	maxForwardFill = 5

	// Stress mask: a trading day is "stress" when the proxy's rolling
	// 60-day cumulative log return sits below -15%.
	stressMaskWindow     = 60
	stressMaskMinPeriods = 20
	stressMaskThreshold  = -0.15

	overGroupedBelow  = 0.5
	underGroupedAbove = 0.7
	groupValidMin     = 0.5

	crossProtectiveBelow = -0.2
	crossNeutralBelow    = 0.3
)

// stressProxyCandidates are tried in order as the broad-equity proxy that
// defines stress periods. Without any of them in the dataset the stress mask
// is empty and stress-conditioned statistics report as unmeasured.
var stressProxyCandidates = []string{"VAS.AX", "BHP.AX", "VGS.AX", "SOL.AX"}

// Engine computes correlation reports. An optional cache short-circuits
// repeat runs over unchanged data.
type Engine struct {
	prices *historical.Repository
	cache  *Cache
	log    zerolog.Logger
}

// NewEngine creates a correlation engine. cache may be nil.
func NewEngine(prices *historical.Repository, cache *Cache, log zerolog.Logger) *Engine {
	return &Engine{
		prices: prices,
		cache:  cache,
		log:    log.With().Str("component", "correlation").Logger(),
	}
}

// Compute builds the correlation report for the held instruments over the
// requested rolling window (60 or 252 trading days). With stressOnly set,
// only stress-conditioned correlations drive flags and verdicts; pairs
// without stress data report as unknown instead of falling back.
func (e *Engine) Compute(snap *domain.Snapshot, window int, stressOnly bool) (*Report, error) {
	if window <= 0 {
		return nil, fmt.Errorf("correlation window must be positive, got %d", window)
	}

	tickers, roles, groups := holdingsIndex(snap)
	report := &Report{Window: window, StressOnly: stressOnly}
	if len(tickers) < 2 {
		report.Notes = append(report.Notes, "fewer than two held instruments; nothing to correlate")
		return report, nil
	}

	dates, closes, err := e.loadAligned(tickers)
	if err != nil {
		return nil, err
	}
	if len(dates) > 0 {
		report.AsOf = dates[len(dates)-1]
	}

	if e.cache != nil {
		key := cacheKey(window, stressOnly, report.AsOf, tickers)
		if cached, ok := e.cache.Get(key); ok {
			e.log.Debug().Str("key", key).Msg("Correlation report served from cache")
			return cached, nil
		}
		defer func() { e.cache.Put(key, report) }()
	}

	returns := logReturns(dates, closes)
	mask, proxy := e.stressMask(dates, returns, tickers)
	report.StressProxy = proxy
	for _, s := range mask {
		if s {
			report.StressDays++
		}
	}
	if proxy == "" {
		report.Notes = append(report.Notes,
			"no broad-equity proxy held; stress-conditioned statistics are unmeasured")
	}

	report.Pairs = e.pairwise(tickers, returns, mask, groups, window, stressOnly)
	report.Roles = e.intraRole(report.Pairs, roles, stressOnly)
	report.CrossRoles = e.crossRole(report.Pairs, roles)
	report.Groups = e.validateGroups(report.Pairs, groups, stressOnly)

	e.log.Info().
		Int("tickers", len(tickers)).
		Int("pairs", len(report.Pairs)).
		Int("stress_days", report.StressDays).
		Msg("Correlation report computed")
	return report, nil
}

// holdingsIndex extracts the sorted unique tickers plus role and
// stress-group lookups from a snapshot.
func holdingsIndex(snap *domain.Snapshot) ([]string, map[string]domain.CapitalRole, map[string]string) {
	roles := make(map[string]domain.CapitalRole)
	groups := make(map[string]string)
	seen := make(map[string]bool)
	var tickers []string
	for _, h := range snap.Holdings {
		if !seen[h.Ticker] {
			seen[h.Ticker] = true
			tickers = append(tickers, h.Ticker)
		}
		if r := h.Role(); r != domain.RoleUnclassified {
			roles[h.Ticker] = r
		}
		if g := h.Classification.StressGroup; g != nil && *g != "" {
			groups[h.Ticker] = *g
		}
	}
	sort.Strings(tickers)
	return tickers, roles, groups
}

// loadAligned loads every ticker's close series and aligns them on the union
// of trading days, forward-filling gaps up to maxForwardFill days. Remaining
// gaps stay NaN.
func (e *Engine) loadAligned(tickers []string) ([]string, map[string][]float64, error) {
	series, err := e.prices.SeriesForTickers(tickers, "0001-01-01", "9999-12-31")
	if err != nil {
		return nil, nil, err
	}

	dateSet := make(map[string]bool)
	byTicker := make(map[string]map[string]float64, len(series))
	for _, s := range series {
		closes := make(map[string]float64, len(s.Points))
		for _, p := range s.Points {
			closes[p.Date] = p.Close
			dateSet[p.Date] = true
		}
		byTicker[s.Ticker] = closes
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	aligned := make(map[string][]float64, len(tickers))
	for _, ticker := range tickers {
		closes := byTicker[ticker]
		row := make([]float64, len(dates))
		last := math.NaN()
		gap := 0
		for i, d := range dates {
			if v, ok := closes[d]; ok {
				last = v
				gap = 0
				row[i] = v
				continue
			}
			gap++
			if !math.IsNaN(last) && gap <= maxForwardFill {
				row[i] = last
			} else {
				row[i] = math.NaN()
			}
		}
		aligned[ticker] = row
	}
	return dates, aligned, nil
}

// logReturns converts aligned closes to daily log returns, NaN where either
// endpoint is missing.
func logReturns(dates []string, closes map[string][]float64) map[string][]float64 {
	returns := make(map[string][]float64, len(closes))
	for ticker, row := range closes {
		ret := make([]float64, len(dates))
		if len(ret) > 0 {
			ret[0] = math.NaN()
		}
		for i := 1; i < len(row); i++ {
			if math.IsNaN(row[i]) || math.IsNaN(row[i-1]) || row[i-1] <= 0 || row[i] <= 0 {
				ret[i] = math.NaN()
				continue
			}
			ret[i] = math.Log(row[i] / row[i-1])
		}
		returns[ticker] = ret
	}
	return returns
}

// stressMask flags trading days inside broad-equity drawdowns, using the
// first held proxy candidate with usable returns.
func (e *Engine) stressMask(dates []string, returns map[string][]float64, tickers []string) ([]bool, string) {
	mask := make([]bool, len(dates))
	held := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		held[t] = true
	}

	for _, candidate := range stressProxyCandidates {
		if !held[candidate] {
			continue
		}
		ret := returns[candidate]
		usable := 0
		for _, v := range ret {
			if !math.IsNaN(v) {
				usable++
			}
		}
		if usable < stressMaskMinPeriods {
			continue
		}

		for i := range dates {
			sum := 0.0
			valid := 0
			for j := i - stressMaskWindow + 1; j <= i; j++ {
				if j < 0 {
					continue
				}
				if v := ret[j]; !math.IsNaN(v) {
					sum += v
					valid++
				}
			}
			mask[i] = valid >= stressMaskMinPeriods && sum < stressMaskThreshold
		}
		return mask, candidate
	}
	return mask, ""
}

// pairwise computes every pair's statistics and tag-validation flag.
func (e *Engine) pairwise(tickers []string, returns map[string][]float64, mask []bool, groups map[string]string, window int, stressOnly bool) []PairCorrelation {
	var pairs []PairCorrelation
	for i := 0; i < len(tickers); i++ {
		for j := i + 1; j < len(tickers); j++ {
			a, b := tickers[i], tickers[j]
			pair := e.pairStats(a, b, returns[a], returns[b], mask, window)

			groupA, groupB := groups[a], groups[b]
			if groupA != "" && groupA == groupB {
				pair.SharedGroup = groupA
			}
			if ref := pair.Reference(stressOnly); ref != nil {
				switch {
				case pair.SharedGroup != "" && *ref < overGroupedBelow:
					pair.Flag = FlagOverGrouped
				case pair.SharedGroup == "" && *ref > underGroupedAbove:
					pair.Flag = FlagUnderGrouped
				}
			}
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

// pairStats computes the three correlations for one pair over its
// overlapping return days. The window correlation uses the most recent
// `window` overlapping days, or the full overlap when history is shorter.
func (e *Engine) pairStats(a, b string, retA, retB []float64, mask []bool, window int) PairCorrelation {
	pair := PairCorrelation{TickerA: a, TickerB: b}

	var overlapA, overlapB []float64
	var stressA, stressB []float64
	// overlap order follows date order, so tail slices are the most recent days
	for i := range retA {
		if math.IsNaN(retA[i]) || math.IsNaN(retB[i]) {
			continue
		}
		overlapA = append(overlapA, retA[i])
		overlapB = append(overlapB, retB[i])
		if mask[i] {
			stressA = append(stressA, retA[i])
			stressB = append(stressB, retB[i])
		}
	}

	pair.OverlapDays = len(overlapA)
	pair.StressDays = len(stressA)
	if pair.OverlapDays < minOverlapDays {
		return pair
	}

	pair.WindowCorr = tailCorrelation(overlapA, overlapB, window)
	if pair.StressDays >= minStressDays {
		pair.StressCorr = correlation(stressA, stressB)
	}
	if pair.OverlapDays >= minTrailingDays {
		pair.Corr60 = tailCorrelation(overlapA, overlapB, minTrailingDays)
	}
	return pair
}

// tailCorrelation correlates the most recent n entries of two equal-length
// aligned slices.
func tailCorrelation(a, b []float64, n int) *float64 {
	if n <= 0 || n > len(a) {
		n = len(a)
	}
	return correlation(a[len(a)-n:], b[len(b)-n:])
}

func correlation(a, b []float64) *float64 {
	if len(a) < 2 {
		return nil
	}
	c := stat.Correlation(a, b, nil)
	if math.IsNaN(c) {
		return nil
	}
	return &c
}

// intraRole judges diversification within each capital role.
func (e *Engine) intraRole(pairs []PairCorrelation, roles map[string]domain.CapitalRole, stressOnly bool) []RoleDiversification {
	var out []RoleDiversification
	for _, role := range []domain.CapitalRole{domain.RoleStabiliser, domain.RoleCompounder, domain.RoleOptionality} {
		members := 0
		for _, r := range roles {
			if r == role {
				members++
			}
		}
		rd := RoleDiversification{Role: string(role), Members: members}
		if members < 2 {
			rd.Verdict = VerdictNotApplicable
			out = append(out, rd)
			continue
		}

		// The stress average and the trailing average are kept apart; the
		// trailing one is a whole-role fallback for when no pair at all has
		// stress data, never blended in pair by pair.
		var stressVals, trailingVals []float64
		for _, p := range pairs {
			if roles[p.TickerA] != role || roles[p.TickerB] != role {
				continue
			}
			if p.StressCorr != nil {
				stressVals = append(stressVals, *p.StressCorr)
			}
			if p.Corr60 != nil {
				trailingVals = append(trailingVals, *p.Corr60)
			}
			if v := pairValue(p, stressOnly); v != nil {
				if rd.MaxPairCorr == nil || *v > *rd.MaxPairCorr {
					c := *v
					rd.MaxPairCorr = &c
					rd.MaxPairA, rd.MaxPairB = p.TickerA, p.TickerB
				}
			}
		}

		vals := stressVals
		if len(vals) == 0 && !stressOnly {
			vals = trailingVals
		}
		if len(vals) == 0 {
			rd.Verdict = VerdictNotApplicable
			out = append(out, rd)
			continue
		}

		avg := mean(vals)
		rd.AvgCorr = &avg
		switch {
		case avg < 0.2:
			rd.Verdict = VerdictWellDiversified
		case avg < 0.5:
			rd.Verdict = VerdictModerate
		case avg < 0.7:
			rd.Verdict = VerdictConcentrated
		default:
			rd.Verdict = VerdictFalseDiversified
		}
		out = append(out, rd)
	}
	return out
}

// crossRole judges each role pairing by average stress-period correlation.
// Only stress-conditioned data qualifies: a cross-role claim ("stabilisers
// protect when compounders fall") is only testable under stress.
func (e *Engine) crossRole(pairs []PairCorrelation, roles map[string]domain.CapitalRole) []CrossRoleAssessment {
	combos := [][2]domain.CapitalRole{
		{domain.RoleStabiliser, domain.RoleCompounder},
		{domain.RoleOptionality, domain.RoleCompounder},
		{domain.RoleStabiliser, domain.RoleOptionality},
	}

	var out []CrossRoleAssessment
	for _, combo := range combos {
		assessment := CrossRoleAssessment{RoleA: string(combo[0]), RoleB: string(combo[1])}
		var vals []float64
		for _, p := range pairs {
			ra, okA := roles[p.TickerA]
			rb, okB := roles[p.TickerB]
			if !okA || !okB {
				continue
			}
			spans := (ra == combo[0] && rb == combo[1]) || (ra == combo[1] && rb == combo[0])
			if !spans || p.StressCorr == nil {
				continue
			}
			vals = append(vals, *p.StressCorr)
		}
		assessment.PairCount = len(vals)
		if len(vals) == 0 {
			assessment.Verdict = VerdictUnknown
			out = append(out, assessment)
			continue
		}
		avg := mean(vals)
		assessment.AvgStressCorr = &avg
		switch {
		case avg < crossProtectiveBelow:
			assessment.Verdict = VerdictProtective
		case avg < crossNeutralBelow:
			assessment.Verdict = VerdictNeutral
		default:
			assessment.Verdict = VerdictCoMoving
		}
		out = append(out, assessment)
	}
	return out
}

// validateGroups checks every tagged correlation group with at least two
// held members: the tag is valid only when the weakest member pair is still
// strongly correlated.
func (e *Engine) validateGroups(pairs []PairCorrelation, groups map[string]string, stressOnly bool) []GroupValidation {
	memberCount := make(map[string]int)
	for _, g := range groups {
		memberCount[g]++
	}

	names := make([]string, 0, len(memberCount))
	for g, n := range memberCount {
		if n >= 2 {
			names = append(names, g)
		}
	}
	sort.Strings(names)

	var out []GroupValidation
	for _, name := range names {
		gv := GroupValidation{Group: name, Members: memberCount[name]}
		expectedPairs := memberCount[name] * (memberCount[name] - 1) / 2
		// The group average is stress-conditioned only; the weakest pair uses
		// each pair's reference correlation, so a group can carry a trailing
		// minimum while its stress average stays unmeasured.
		var stressVals, refVals []float64
		for _, p := range pairs {
			if groups[p.TickerA] != name || groups[p.TickerB] != name {
				continue
			}
			if p.StressCorr != nil {
				stressVals = append(stressVals, *p.StressCorr)
			}
			if v := pairValue(p, stressOnly); v != nil {
				refVals = append(refVals, *v)
			}
		}
		if len(stressVals) > 0 {
			avg := mean(stressVals)
			gv.AvgCorr = &avg
		}
		if len(refVals) > 0 {
			min := refVals[0]
			for _, v := range refVals[1:] {
				if v < min {
					min = v
				}
			}
			gv.MinCorr = &min
			gv.Measured = len(refVals) == expectedPairs
			gv.Valid = gv.Measured && min >= groupValidMin
		}
		out = append(out, gv)
	}
	return out
}

// pairValue is the per-pair reference statistic used to pick extreme pairs:
// stress correlation with a 60-day fallback, or stress-only when requested.
// Averages never use it; they fall back at the role or group level instead.
func pairValue(p PairCorrelation, stressOnly bool) *float64 {
	if p.StressCorr != nil {
		return p.StressCorr
	}
	if stressOnly {
		return nil
	}
	return p.Corr60
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func cacheKey(window int, stressOnly bool, asOf string, tickers []string) string {
	return fmt.Sprintf("corr:v1:w%d:s%t:%s:%s", window, stressOnly, asOf, strings.Join(tickers, ","))
}
