package stress

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aknight/ballast/internal/database"
	"github.com/aknight/ballast/internal/domain"
	"github.com/aknight/ballast/internal/modules/compliance"
	"github.com/aknight/ballast/internal/modules/historical"
	"github.com/aknight/ballast/internal/modules/params"
	testhelpers "github.com/aknight/ballast/internal/testing"
)

func testParams() *params.Params {
	return &params.Params{
		MonthlyExpensesAUD: 9000,
		RealReturnPA:       0.065,
		ExpenseFloorMonths: 24,
		StabiliserMin:      0.15, StabiliserMax: 0.25,
		CompounderMin: 0.50, CompounderMax: 0.65,
		OptionalityMin: 0.10, OptionalityMax: 0.20,
		SingleCreditMax: 0.07, SingleEquityMax: 0.10,
		SingleSpecMax: 0.01, AggregateSpecMax: 0.03,
		CorporateGroupMax: 0.20, StressGroupMax: 0.20,
		AustraliaMax: 0.55, MacroDriverMax: 0.30,
		AUDGrowthMin: 0.50, AUDGrowthMax: 0.70, UnhedgedMin: 0.40,
		OptionalityShockMax: 0.10, YieldOptionalityMax: 0.25,
		LiquidMin: 0.70, DurationBucketMax: 0.40, InflationLinkedMin: 0.25,
		PriceMaxAgeDays: 7, FXMaxAgeDays: 7,
	}
}

func newTestEngine(t *testing.T) (*Engine, *database.DB) {
	t.Helper()
	db, _ := testhelpers.NewTestDB(t)
	prices := historical.NewRepository(db.Conn(), zerolog.Nop())
	return NewEngine(prices, compliance.NewEngine(zerolog.Nop()), zerolog.Nop()), db
}

func role(r domain.CapitalRole) *domain.CapitalRole { return &r }

func holding(ticker string, instrumentType domain.InstrumentType, value float64, r domain.CapitalRole) domain.Holding {
	return domain.Holding{
		Ticker: ticker, InstrumentType: instrumentType, Currency: "AUD",
		PriceDate: "2026-08-24", ValueAUD: value, LocalValue: value, FXRate: 1,
		Classification: domain.Classification{Role: role(r)},
	}
}

func TestFlat35Arithmetic(t *testing.T) {
	e, _ := newTestEngine(t)
	snap := &domain.Snapshot{
		Holdings: []domain.Holding{
			holding("VAS.AX", domain.InstrumentETF, 100000, domain.RoleCompounder),
		},
	}

	result, err := e.RunScenario(snap, ScenarioFlat35, testParams())
	require.NoError(t, err)

	a := result.Assessment
	assert.InDelta(t, 100000, a.CompounderPreAUD, 1e-9)
	assert.InDelta(t, 65000, a.CompounderPostAUD, 1e-9)
	assert.InDelta(t, 35.0, a.CompounderLossPct, 1e-9)
	expected := math.Log(100000.0/65000.0) / math.Log(1.065)
	assert.InDelta(t, expected, a.RecoveryYears, 1e-9)

	require.Len(t, result.Holdings, 1)
	assert.Equal(t, SourceSynthetic, result.Holdings[0].Source)
	assert.InDelta(t, -35.0, result.Holdings[0].DrawdownPct, 1e-9)

	// The input snapshot is untouched.
	assert.InDelta(t, 100000, snap.Holdings[0].ValueAUD, 1e-9)
}

func TestFlat35LeavesStabilisersUntouched(t *testing.T) {
	e, _ := newTestEngine(t)
	snap := &domain.Snapshot{
		Holdings: []domain.Holding{
			holding("VAS.AX", domain.InstrumentETF, 600000, domain.RoleCompounder),
			holding("GSBI33.AX", domain.InstrumentGovtBondIndex, 200000, domain.RoleStabiliser),
		},
		Cash: []domain.CashBalance{
			{Currency: "AUD", ValueAUD: 200000, Investable: true},
		},
	}

	result, err := e.RunScenario(snap, ScenarioFlat35, testParams())
	require.NoError(t, err)

	post := result.Post.ByCapitalRole()
	assert.InDelta(t, 400000, post[domain.RoleStabiliser], 1e-9)
	assert.InDelta(t, 390000, post[domain.RoleCompounder], 1e-9)
}

func TestUnknownScenarioIsError(t *testing.T) {
	e, _ := newTestEngine(t)
	snap := &domain.Snapshot{
		Cash: []domain.CashBalance{{Currency: "AUD", ValueAUD: 1000, Investable: true}},
	}
	_, err := e.RunScenario(snap, ScenarioID("dotcom1999"), testParams())
	assert.Error(t, err)
}

func TestForcedLiquidationStrictlyBelowFloor(t *testing.T) {
	e, _ := newTestEngine(t)
	// Stabiliser exactly at the 216,000 floor survives; one dollar less does not.
	snap := &domain.Snapshot{
		Holdings: []domain.Holding{
			holding("VAS.AX", domain.InstrumentETF, 500000, domain.RoleCompounder),
		},
		Cash: []domain.CashBalance{{Currency: "AUD", ValueAUD: 216000, Investable: true}},
	}
	result, err := e.RunScenario(snap, ScenarioFlat35, testParams())
	require.NoError(t, err)
	assert.False(t, result.Assessment.ForcedLiquidation)
	assert.True(t, result.Assessment.IncomeBridgeIntact)

	snap.Cash[0].ValueAUD = 215999
	result, err = e.RunScenario(snap, ScenarioFlat35, testParams())
	require.NoError(t, err)
	assert.True(t, result.Assessment.ForcedLiquidation)
	assert.False(t, result.Assessment.IncomeBridgeIntact)
}

func TestHistoricalScenarioUsesOwnHistoryThenProxy(t *testing.T) {
	e, db := newTestEngine(t)

	// VAS has history spanning the covid window: its own peak-to-trough is used.
	vas := testhelpers.SeedInstrument(t, db, "VAS.AX", "etf", "AUD")
	testhelpers.SeedPrice(t, db, vas, "2020-02-19", 100, "AUD")
	testhelpers.SeedPrice(t, db, vas, "2020-03-23", 64, "AUD")

	// GSBG33 has no history: the covid proxy for nominal government bonds applies.
	testhelpers.SeedInstrument(t, db, "GSBG33.AX", "govt_bond_nominal", "AUD")

	snap := &domain.Snapshot{
		Holdings: []domain.Holding{
			holding("VAS.AX", domain.InstrumentETF, 100000, domain.RoleCompounder),
			holding("GSBG33.AX", domain.InstrumentGovtBondNom, 50000, domain.RoleStabiliser),
		},
	}
	result, err := e.RunScenario(snap, ScenarioCovid2020, testParams())
	require.NoError(t, err)
	require.Len(t, result.Holdings, 2)

	own := result.Holdings[0]
	assert.Equal(t, SourceHistorical, own.Source)
	assert.InDelta(t, -36.0, own.DrawdownPct, 1e-9)
	assert.InDelta(t, 64000, own.PostAUD, 1e-9)

	proxied := result.Holdings[1]
	assert.Equal(t, SourceProxy, proxied.Source)
	assert.InDelta(t, 2.0, proxied.DrawdownPct, 1e-9)
	assert.InDelta(t, 51000, proxied.PostAUD, 1e-9)
}

func TestHistoricalProxyFallbackForUnlistedType(t *testing.T) {
	e, _ := newTestEngine(t)
	odd := holding("ODD.AX", domain.InstrumentType("private_debt"), 10000, domain.RoleCompounder)

	snap := &domain.Snapshot{Holdings: []domain.Holding{odd}}
	result, err := e.RunScenario(snap, ScenarioGFC2008, testParams())
	require.NoError(t, err)
	assert.Equal(t, SourceProxy, result.Holdings[0].Source)
	assert.InDelta(t, -20.0, result.Holdings[0].DrawdownPct, 1e-9)
}

func TestOptionalityPerformedFlag(t *testing.T) {
	e, db := newTestEngine(t)

	// Compounder falls 50%, optionality gains 10%: performed.
	comp := testhelpers.SeedInstrument(t, db, "VAS.AX", "etf", "AUD")
	testhelpers.SeedPrice(t, db, comp, "2020-02-19", 100, "AUD")
	testhelpers.SeedPrice(t, db, comp, "2020-03-23", 50, "AUD")
	gold := testhelpers.SeedInstrument(t, db, "GOLD.AX", "etf", "AUD")
	testhelpers.SeedPrice(t, db, gold, "2020-02-19", 100, "AUD")
	testhelpers.SeedPrice(t, db, gold, "2020-03-23", 110, "AUD")

	snap := &domain.Snapshot{
		Holdings: []domain.Holding{
			holding("VAS.AX", domain.InstrumentETF, 100000, domain.RoleCompounder),
			holding("GOLD.AX", domain.InstrumentETF, 20000, domain.RoleOptionality),
		},
	}
	result, err := e.RunScenario(snap, ScenarioCovid2020, testParams())
	require.NoError(t, err)
	assert.True(t, result.Assessment.OptionalityPerformed)

	// Optionality falling 30% while compounders fall 50% still counts as
	// cushioning (better by more than 10 points).
	_, err = db.Exec("UPDATE prices SET close_price = 70 WHERE instrument_id = ? AND date = '2020-03-23'", gold)
	require.NoError(t, err)
	result, err = e.RunScenario(snap, ScenarioCovid2020, testParams())
	require.NoError(t, err)
	assert.InDelta(t, -30.0, result.Assessment.OptionalityChangePct, 1e-9)
	assert.True(t, result.Assessment.OptionalityPerformed)

	// Falling in line with compounders is not performance.
	_, err = db.Exec("UPDATE prices SET close_price = 55 WHERE instrument_id = ? AND date = '2020-03-23'", gold)
	require.NoError(t, err)
	result, err = e.RunScenario(snap, ScenarioCovid2020, testParams())
	require.NoError(t, err)
	assert.False(t, result.Assessment.OptionalityPerformed)
}

func TestEmptyOptionalityPerformsWhenCompoundersFallHard(t *testing.T) {
	e, db := newTestEngine(t)

	comp := testhelpers.SeedInstrument(t, db, "VAS.AX", "etf", "AUD")
	testhelpers.SeedPrice(t, db, comp, "2020-02-19", 100, "AUD")
	testhelpers.SeedPrice(t, db, comp, "2020-03-23", 50, "AUD")

	// No optionality sleeve at all. Its 0% change still beats compounders
	// down 50% by more than 10 points.
	snap := &domain.Snapshot{
		Holdings: []domain.Holding{
			holding("VAS.AX", domain.InstrumentETF, 100000, domain.RoleCompounder),
		},
	}
	result, err := e.RunScenario(snap, ScenarioCovid2020, testParams())
	require.NoError(t, err)
	assert.InDelta(t, 0.0, result.Assessment.OptionalityChangePct, 1e-9)
	assert.True(t, result.Assessment.OptionalityPerformed)
}

func TestRunScenariosBatchPartialFailure(t *testing.T) {
	e, _ := newTestEngine(t)
	snap := &domain.Snapshot{
		Holdings: []domain.Holding{
			holding("VAS.AX", domain.InstrumentETF, 100000, domain.RoleCompounder),
		},
	}

	ids := []ScenarioID{ScenarioFlat35, ScenarioCovid2020, ScenarioID("bogus"), ScenarioRates2022}
	results := e.RunScenarios(snap, ids, testParams())
	require.Len(t, results, 3)
	assert.Equal(t, ScenarioFlat35, results[0].ScenarioID)
	assert.Equal(t, ScenarioCovid2020, results[1].ScenarioID)
	assert.Equal(t, ScenarioRates2022, results[2].ScenarioID)
}

func TestPostShockComplianceIncluded(t *testing.T) {
	e, _ := newTestEngine(t)
	snap := &domain.Snapshot{
		Holdings: []domain.Holding{
			holding("VAS.AX", domain.InstrumentETF, 600000, domain.RoleCompounder),
		},
		Cash: []domain.CashBalance{{Currency: "AUD", ValueAUD: 400000, Investable: true, AsOfDate: "2026-08-24"}},
	}

	result, err := e.RunScenario(snap, ScenarioFlat35, testParams())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Compliance)
}
