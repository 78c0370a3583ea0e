package correlation

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aknight/ballast/internal/database"
	"github.com/aknight/ballast/internal/domain"
	"github.com/aknight/ballast/internal/modules/historical"
	testhelpers "github.com/aknight/ballast/internal/testing"
)

func newTestEngine(t *testing.T) (*Engine, *database.DB) {
	t.Helper()
	db, _ := testhelpers.NewTestDB(t)
	prices := historical.NewRepository(db.Conn(), zerolog.Nop())
	return NewEngine(prices, nil, zerolog.Nop()), db
}

func holding(ticker string, r domain.CapitalRole, group string) domain.Holding {
	h := domain.Holding{
		Ticker: ticker, InstrumentType: domain.InstrumentETF, Currency: "AUD",
		ValueAUD: 10000, LocalValue: 10000, FXRate: 1,
		Classification: domain.Classification{Role: &r},
	}
	if group != "" {
		h.Classification.StressGroup = testhelpers.Ptr(group)
	}
	return h
}

// seedDailySeries inserts consecutive daily closes starting at start.
func seedDailySeries(t *testing.T, db *database.DB, instrumentID int64, start time.Time, closes []float64) {
	t.Helper()
	for i, c := range closes {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		testhelpers.SeedPrice(t, db, instrumentID, date, c, "AUD")
	}
}

// patternCloses walks a price path by cycling through the given daily
// multiplicative factors.
func patternCloses(start float64, n int, factors ...float64) []float64 {
	closes := make([]float64, n)
	closes[0] = start
	for i := 1; i < n; i++ {
		closes[i] = closes[i-1] * factors[(i-1)%len(factors)]
	}
	return closes
}

func TestFewerThanTwoHoldings(t *testing.T) {
	e, _ := newTestEngine(t)
	snap := &domain.Snapshot{
		Holdings: []domain.Holding{holding("VAS.AX", domain.RoleCompounder, "")},
	}
	report, err := e.Compute(snap, 60, false)
	require.NoError(t, err)
	assert.Empty(t, report.Pairs)
	require.Len(t, report.Notes, 1)
	assert.Contains(t, report.Notes[0], "fewer than two")
}

func TestInvalidWindow(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Compute(&domain.Snapshot{}, 0, false)
	assert.Error(t, err)
}

// stressReturns builds two aligned return series whose stress-day sample
// correlation is exactly rho: on stress days a is an alternating unit
// pattern and b mixes it with an orthogonal equal-variance pattern.
func stressReturns(rho float64) (retA, retB []float64, mask []bool) {
	const calm, stress = 20, 40
	n := calm + stress
	retA = make([]float64, n)
	retB = make([]float64, n)
	mask = make([]bool, n)

	xPattern := []float64{1, -1, 1, -1}
	yPattern := []float64{1, 1, -1, -1}
	for i := 0; i < calm; i++ {
		retA[i] = xPattern[i%4] * 0.002
		retB[i] = yPattern[i%4] * 0.002
	}
	for i := 0; i < stress; i++ {
		x := xPattern[i%4]
		y := yPattern[i%4]
		retA[calm+i] = x
		retB[calm+i] = rho*x + math.Sqrt(1-rho*rho)*y
		mask[calm+i] = true
	}
	return retA, retB, mask
}

func TestSharedGroupFlaggedOverGroupedAtLowStressCorrelation(t *testing.T) {
	e, _ := newTestEngine(t)
	retA, retB, mask := stressReturns(0.3)
	returns := map[string][]float64{"AAA.AX": retA, "BBB.AX": retB}
	groups := map[string]string{"AAA.AX": "banks", "BBB.AX": "banks"}

	pairs := e.pairwise([]string{"AAA.AX", "BBB.AX"}, returns, mask, groups, 60, false)
	require.Len(t, pairs, 1)
	require.NotNil(t, pairs[0].StressCorr)
	assert.InDelta(t, 0.3, *pairs[0].StressCorr, 1e-9)
	assert.Equal(t, "banks", pairs[0].SharedGroup)
	assert.Equal(t, FlagOverGrouped, pairs[0].Flag)
}

func TestSharedGroupNotFlaggedAtModerateStressCorrelation(t *testing.T) {
	e, _ := newTestEngine(t)
	retA, retB, mask := stressReturns(0.6)
	returns := map[string][]float64{"AAA.AX": retA, "BBB.AX": retB}
	groups := map[string]string{"AAA.AX": "banks", "BBB.AX": "banks"}

	pairs := e.pairwise([]string{"AAA.AX", "BBB.AX"}, returns, mask, groups, 60, false)
	require.Len(t, pairs, 1)
	require.NotNil(t, pairs[0].StressCorr)
	assert.InDelta(t, 0.6, *pairs[0].StressCorr, 1e-9)
	assert.Empty(t, pairs[0].Flag)
}

func TestUnderGroupedFlagFromWindowCorrelation(t *testing.T) {
	e, db := newTestEngine(t)

	// Identical return patterns, no shared tag: the pair is one bet.
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	a := testhelpers.SeedInstrument(t, db, "CBA.AX", "equity", "AUD")
	b := testhelpers.SeedInstrument(t, db, "WBC.AX", "equity", "AUD")
	seedDailySeries(t, db, a, start, patternCloses(100, 70, 1.01, 0.995))
	seedDailySeries(t, db, b, start, patternCloses(50, 70, 1.01, 0.995))

	snap := &domain.Snapshot{
		Holdings: []domain.Holding{
			holding("CBA.AX", domain.RoleCompounder, "banks"),
			holding("WBC.AX", domain.RoleCompounder, "miners"),
		},
	}
	report, err := e.Compute(snap, 60, false)
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	pair := report.Pairs[0]
	assert.Equal(t, 69, pair.OverlapDays)
	require.NotNil(t, pair.WindowCorr)
	assert.InDelta(t, 1.0, *pair.WindowCorr, 1e-9)
	assert.Empty(t, pair.SharedGroup)
	assert.Equal(t, FlagUnderGrouped, pair.Flag)
	assert.Equal(t, start.AddDate(0, 0, 69).Format("2006-01-02"), report.AsOf)
}

func TestGroupValidationAndRoleVerdicts(t *testing.T) {
	e, db := newTestEngine(t)

	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	a := testhelpers.SeedInstrument(t, db, "CBA.AX", "equity", "AUD")
	b := testhelpers.SeedInstrument(t, db, "WBC.AX", "equity", "AUD")
	seedDailySeries(t, db, a, start, patternCloses(100, 70, 1.01, 0.995))
	seedDailySeries(t, db, b, start, patternCloses(50, 70, 1.01, 0.995))

	snap := &domain.Snapshot{
		Holdings: []domain.Holding{
			holding("CBA.AX", domain.RoleCompounder, "banks"),
			holding("WBC.AX", domain.RoleCompounder, "banks"),
		},
	}
	report, err := e.Compute(snap, 60, false)
	require.NoError(t, err)

	// Perfectly correlated members: the tag holds.
	require.Len(t, report.Groups, 1)
	group := report.Groups[0]
	assert.Equal(t, "banks", group.Group)
	assert.Equal(t, 2, group.Members)
	assert.True(t, group.Measured)
	assert.True(t, group.Valid)
	require.NotNil(t, group.MinCorr)
	assert.InDelta(t, 1.0, *group.MinCorr, 1e-9)

	// Two compounders moving in lockstep is false diversification; the
	// other roles have too few members to judge.
	byRole := make(map[string]RoleDiversification)
	for _, r := range report.Roles {
		byRole[r.Role] = r
	}
	assert.Equal(t, VerdictFalseDiversified, byRole[string(domain.RoleCompounder)].Verdict)
	assert.Equal(t, VerdictNotApplicable, byRole[string(domain.RoleStabiliser)].Verdict)
	assert.Equal(t, VerdictNotApplicable, byRole[string(domain.RoleOptionality)].Verdict)

	// No stress mask without a crashing proxy, so cross-role is unknown.
	for _, cr := range report.CrossRoles {
		assert.Equal(t, VerdictUnknown, cr.Verdict)
	}
}

func TestInsufficientOverlapLeavesPairUnmeasured(t *testing.T) {
	e, db := newTestEngine(t)

	start := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	a := testhelpers.SeedInstrument(t, db, "CBA.AX", "equity", "AUD")
	b := testhelpers.SeedInstrument(t, db, "WBC.AX", "equity", "AUD")
	seedDailySeries(t, db, a, start, patternCloses(100, 10, 1.01, 0.995))
	seedDailySeries(t, db, b, start, patternCloses(50, 10, 1.01, 0.995))

	snap := &domain.Snapshot{
		Holdings: []domain.Holding{
			holding("CBA.AX", domain.RoleCompounder, "banks"),
			holding("WBC.AX", domain.RoleCompounder, "banks"),
		},
	}
	report, err := e.Compute(snap, 60, false)
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	assert.Equal(t, 9, report.Pairs[0].OverlapDays)
	assert.Nil(t, report.Pairs[0].WindowCorr)
	assert.Empty(t, report.Pairs[0].Flag)

	require.Len(t, report.Groups, 1)
	assert.False(t, report.Groups[0].Measured)
	assert.False(t, report.Groups[0].Valid)
}

func TestStressOnlySuppressesWindowFallback(t *testing.T) {
	e, _ := newTestEngine(t)

	// High window correlation but no stress data: in stress-only mode the
	// pair has no reference correlation and cannot be flagged.
	retA, retB, _ := stressReturns(0.3)
	mask := make([]bool, len(retA))
	returns := map[string][]float64{"AAA.AX": retA, "BBB.AX": retB}

	pairs := e.pairwise([]string{"AAA.AX", "BBB.AX"}, returns, mask, nil, 60, true)
	require.Len(t, pairs, 1)
	assert.Nil(t, pairs[0].StressCorr)
	assert.NotNil(t, pairs[0].WindowCorr)
	assert.Nil(t, pairs[0].Reference(true))
	assert.Empty(t, pairs[0].Flag)
}

func TestForwardFillLimit(t *testing.T) {
	e, db := newTestEngine(t)

	// Ticker A trades every day; ticker B has a 7-day hole. Fills stop
	// after five days, so two of the hole days stay missing.
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	a := testhelpers.SeedInstrument(t, db, "CBA.AX", "equity", "AUD")
	b := testhelpers.SeedInstrument(t, db, "WBC.AX", "equity", "AUD")
	for i := 0; i < 20; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		testhelpers.SeedPrice(t, db, a, date, 100+float64(i), "AUD")
		if i < 5 || i >= 12 {
			testhelpers.SeedPrice(t, db, b, date, 50+float64(i), "AUD")
		}
	}

	dates, closes, err := e.loadAligned([]string{"CBA.AX", "WBC.AX"})
	require.NoError(t, err)
	require.Len(t, dates, 20)

	bRow := closes["WBC.AX"]
	for i := 5; i < 10; i++ {
		assert.InDelta(t, 54, bRow[i], 1e-9, "day %d should be forward-filled", i)
	}
	assert.True(t, math.IsNaN(bRow[10]))
	assert.True(t, math.IsNaN(bRow[11]))
	assert.InDelta(t, 62, bRow[12], 1e-9)
}

func TestStressMaskFromProxyDrawdown(t *testing.T) {
	e, _ := newTestEngine(t)

	// A steady -0.5% daily log return crosses the -15% rolling threshold
	// once 31 days accumulate in the window.
	n := 100
	ret := make([]float64, n)
	for i := range ret {
		ret[i] = -0.005
	}
	dates := make([]string, n)
	returns := map[string][]float64{"VAS.AX": ret}

	mask, proxy := e.stressMask(dates, returns, []string{"VAS.AX", "XYZ.AX"})
	assert.Equal(t, "VAS.AX", proxy)
	assert.False(t, mask[29])
	assert.True(t, mask[30])
	assert.True(t, mask[n-1])
}

func TestStressMaskProxyPreferenceOrder(t *testing.T) {
	e, _ := newTestEngine(t)

	n := 60
	flat := make([]float64, n)
	falling := make([]float64, n)
	for i := range falling {
		falling[i] = -0.005
	}
	dates := make([]string, n)
	returns := map[string][]float64{"BHP.AX": falling, "VGS.AX": flat}

	// VAS.AX is absent, so BHP.AX is the proxy even though VGS.AX is also held.
	_, proxy := e.stressMask(dates, returns, []string{"BHP.AX", "VGS.AX"})
	assert.Equal(t, "BHP.AX", proxy)
}

func TestCacheRoundTrip(t *testing.T) {
	db, _ := testhelpers.NewTestDB(t)
	c := NewCache(db.Conn(), zerolog.Nop())

	corr := 0.42
	report := &Report{
		Window: 60,
		AsOf:   "2026-08-24",
		Pairs: []PairCorrelation{
			{TickerA: "CBA.AX", TickerB: "WBC.AX", WindowCorr: &corr, OverlapDays: 120},
		},
	}
	key := cacheKey(60, false, "2026-08-24", []string{"CBA.AX", "WBC.AX"})

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, report)
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, report.Window, got.Window)
	require.Len(t, got.Pairs, 1)
	require.NotNil(t, got.Pairs[0].WindowCorr)
	assert.InDelta(t, 0.42, *got.Pairs[0].WindowCorr, 1e-9)
}

func TestCacheExpiry(t *testing.T) {
	db, _ := testhelpers.NewTestDB(t)
	c := NewCache(db.Conn(), zerolog.Nop())

	key := "corr:test:expired"
	c.Put(key, &Report{Window: 60})

	_, err := db.Exec("UPDATE report_cache SET expires_at = ? WHERE key = ?",
		time.Now().Add(-time.Hour).Unix(), key)
	require.NoError(t, err)

	_, ok := c.Get(key)
	assert.False(t, ok)

	// The expired row is evicted on read.
	var count int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM report_cache WHERE key = ?", key).Scan(&count))
	assert.Zero(t, count)
}

func TestComputeServesFromCache(t *testing.T) {
	db, _ := testhelpers.NewTestDB(t)
	prices := historical.NewRepository(db.Conn(), zerolog.Nop())
	e := NewEngine(prices, NewCache(db.Conn(), zerolog.Nop()), zerolog.Nop())

	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	a := testhelpers.SeedInstrument(t, db, "CBA.AX", "equity", "AUD")
	b := testhelpers.SeedInstrument(t, db, "WBC.AX", "equity", "AUD")
	seedDailySeries(t, db, a, start, patternCloses(100, 70, 1.01, 0.995))
	seedDailySeries(t, db, b, start, patternCloses(50, 70, 1.01, 0.995))

	snap := &domain.Snapshot{
		Holdings: []domain.Holding{
			holding("CBA.AX", domain.RoleCompounder, ""),
			holding("WBC.AX", domain.RoleCompounder, ""),
		},
	}
	first, err := e.Compute(snap, 60, false)
	require.NoError(t, err)

	// Poison the stored prices; a cache hit ignores them.
	_, err = db.Exec("DELETE FROM prices WHERE instrument_id = ?", b)
	require.NoError(t, err)

	second, err := e.Compute(snap, 60, false)
	require.NoError(t, err)
	require.Len(t, second.Pairs, len(first.Pairs))
	assert.Equal(t, first.AsOf, second.AsOf)
}

func TestPairValueFallsBackToTrailing(t *testing.T) {
	c60 := 0.55
	p := PairCorrelation{Corr60: &c60}
	require.NotNil(t, pairValue(p, false))
	assert.InDelta(t, 0.55, *pairValue(p, false), 1e-9)
	assert.Nil(t, pairValue(p, true))

	sc := -0.1
	p.StressCorr = &sc
	assert.InDelta(t, -0.1, *pairValue(p, true), 1e-9)
}

func TestRoleAverageIgnoresTrailingWhenStressMeasured(t *testing.T) {
	e, _ := newTestEngine(t)
	comp := domain.RoleCompounder
	roles := map[string]domain.CapitalRole{"AAA.AX": comp, "BBB.AX": comp, "CCC.AX": comp}
	sc, t60 := 0.8, 0.1
	pairs := []PairCorrelation{
		{TickerA: "AAA.AX", TickerB: "BBB.AX", StressCorr: &sc},
		{TickerA: "AAA.AX", TickerB: "CCC.AX", Corr60: &t60},
		{TickerA: "BBB.AX", TickerB: "CCC.AX", Corr60: &t60},
	}

	byRole := make(map[string]RoleDiversification)
	for _, rd := range e.intraRole(pairs, roles, false) {
		byRole[rd.Role] = rd
	}
	rd := byRole[string(comp)]

	// One pair has stress data, so the role average is stress-conditioned;
	// the trailing-only pairs stay out of it entirely.
	require.NotNil(t, rd.AvgCorr)
	assert.InDelta(t, 0.8, *rd.AvgCorr, 1e-9)
	assert.Equal(t, VerdictFalseDiversified, rd.Verdict)
}

func TestRoleAverageFallsBackToTrailingAsAWhole(t *testing.T) {
	e, _ := newTestEngine(t)
	comp := domain.RoleCompounder
	roles := map[string]domain.CapitalRole{"AAA.AX": comp, "BBB.AX": comp}
	t60 := 0.3
	pairs := []PairCorrelation{{TickerA: "AAA.AX", TickerB: "BBB.AX", Corr60: &t60}}

	// No stress data anywhere in the role: the whole average falls back to
	// the trailing statistic.
	for _, rd := range e.intraRole(pairs, roles, false) {
		if rd.Role != string(comp) {
			continue
		}
		require.NotNil(t, rd.AvgCorr)
		assert.InDelta(t, 0.3, *rd.AvgCorr, 1e-9)
		assert.Equal(t, VerdictModerate, rd.Verdict)
	}

	// Stress-only mode leaves nothing to average.
	for _, rd := range e.intraRole(pairs, roles, true) {
		if rd.Role == string(comp) {
			assert.Nil(t, rd.AvgCorr)
			assert.Equal(t, VerdictNotApplicable, rd.Verdict)
		}
	}
}

func TestGroupAverageIsStressOnly(t *testing.T) {
	e, _ := newTestEngine(t)
	groups := map[string]string{"AAA.AX": "banks", "BBB.AX": "banks", "CCC.AX": "banks"}
	sc, t60 := 0.8, 0.6
	pairs := []PairCorrelation{
		{TickerA: "AAA.AX", TickerB: "BBB.AX", StressCorr: &sc},
		{TickerA: "AAA.AX", TickerB: "CCC.AX", Corr60: &t60},
		{TickerA: "BBB.AX", TickerB: "CCC.AX", Corr60: &t60},
	}

	out := e.validateGroups(pairs, groups, false)
	require.Len(t, out, 1)
	g := out[0]

	// The average is stress-conditioned only; the weakest pair still uses
	// each pair's reference correlation.
	require.NotNil(t, g.AvgCorr)
	assert.InDelta(t, 0.8, *g.AvgCorr, 1e-9)
	require.NotNil(t, g.MinCorr)
	assert.InDelta(t, 0.6, *g.MinCorr, 1e-9)
	assert.True(t, g.Measured)
	assert.True(t, g.Valid)
}
