package sensitivity

import (
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aknight/ballast/internal/domain"
	"github.com/aknight/ballast/internal/modules/params"
)

func testParams() *params.Params {
	return &params.Params{
		MonthlyExpensesAUD: 9000,
		RealReturnPA:       0.065,
		ExpenseFloorMonths: 24,
		SingleCreditMax:    0.07, SingleEquityMax: 0.10,
		SingleSpecMax: 0.01, AggregateSpecMax: 0.03,
		CorporateGroupMax: 0.20, DurationBucketMax: 0.40,
	}
}

func role(r domain.CapitalRole) *domain.CapitalRole { return &r }

func holding(ticker string, value float64, r domain.CapitalRole) domain.Holding {
	return domain.Holding{
		Ticker: ticker, InstrumentType: domain.InstrumentETF, Currency: "AUD",
		ValueAUD: value, Classification: domain.Classification{Role: role(r)},
	}
}

func cash(value float64) domain.CashBalance {
	return domain.CashBalance{Currency: "AUD", ValueAUD: value, Investable: true}
}

func analyse(t *testing.T, snap *domain.Snapshot) *Report {
	t.Helper()
	report, err := NewEngine(zerolog.Nop()).Analyse(snap, testParams())
	require.NoError(t, err)
	require.Len(t, report.Objectives, 5)
	return report
}

func TestAnalyseRejectsNonPositiveTotal(t *testing.T) {
	_, err := NewEngine(zerolog.Nop()).Analyse(&domain.Snapshot{}, testParams())
	assert.Error(t, err)
}

func TestIncomeBridgeAlreadyBelowFloorIsCritical(t *testing.T) {
	// 200,000 all-cash stabiliser at 9,000/month is 22.2 months: under the
	// floor, so critical even though cash itself cannot fall.
	report := analyse(t, &domain.Snapshot{Cash: []domain.CashBalance{cash(200000)}})

	f, ok := report.Find(ObjectiveIncomeBridge)
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, f.Severity)
	assert.Contains(t, f.CurrentState, "22.2 months")
}

func TestIncomeBridgeAllCashAboveFloorIsSafe(t *testing.T) {
	report := analyse(t, &domain.Snapshot{Cash: []domain.CashBalance{cash(300000)}})

	f, ok := report.Find(ObjectiveIncomeBridge)
	require.True(t, ok)
	assert.Equal(t, SeveritySafe, f.Severity)
	assert.Contains(t, f.Headline, "cash")
}

func TestIncomeBridgeBreachPercentTiers(t *testing.T) {
	// Floor 216,000. Cash 100,000 + holdings 150,000 = 250,000 stabiliser.
	// Breach needs a (250,000-216,000)/150,000 = 22.7% holdings decline: watch.
	snap := &domain.Snapshot{
		Holdings: []domain.Holding{holding("GSBI33.AX", 150000, domain.RoleStabiliser)},
		Cash:     []domain.CashBalance{cash(100000)},
	}
	f, ok := analyse(t, snap).Find(ObjectiveIncomeBridge)
	require.True(t, ok)
	assert.Equal(t, SeverityWatch, f.Severity)
	assert.Contains(t, f.Trigger, "22.7%")
}

func TestForcedLiquidationTiers(t *testing.T) {
	// Stabiliser 250,000, floor 216,000, total 500,000: excess 6.8% → fragile.
	snap := &domain.Snapshot{
		Holdings: []domain.Holding{holding("VAS.AX", 250000, domain.RoleCompounder)},
		Cash:     []domain.CashBalance{cash(250000)},
	}
	f, ok := analyse(t, snap).Find(ObjectiveForcedLiquidation)
	require.True(t, ok)
	assert.Equal(t, SeverityFragile, f.Severity)

	// Below the floor is critical outright.
	snap = &domain.Snapshot{
		Holdings: []domain.Holding{holding("VAS.AX", 400000, domain.RoleCompounder)},
		Cash:     []domain.CashBalance{cash(100000)},
	}
	f, ok = analyse(t, snap).Find(ObjectiveForcedLiquidation)
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, f.Severity)
}

func TestCompoundingCapitalRecoveryArithmetic(t *testing.T) {
	snap := &domain.Snapshot{
		Holdings: []domain.Holding{holding("VAS.AX", 100000, domain.RoleCompounder)},
		Cash:     []domain.CashBalance{cash(60000)},
	}
	f, ok := analyse(t, snap).Find(ObjectiveCompounding)
	require.True(t, ok)

	// 100,000 at 62.5% of total: safe band; 35% loss recovery years from the
	// log formula.
	assert.Equal(t, SeveritySafe, f.Severity)
	years := math.Log(100000.0/65000.0) / math.Log(1.065)
	assert.Contains(t, f.Trigger, "A$35000")
	assert.Contains(t, f.Trigger, fmt.Sprintf("%.1f years", years))
}

func TestCompoundingOverweightIsWatch(t *testing.T) {
	snap := &domain.Snapshot{
		Holdings: []domain.Holding{holding("VAS.AX", 800000, domain.RoleCompounder)},
		Cash:     []domain.CashBalance{cash(200000)},
	}
	f, ok := analyse(t, snap).Find(ObjectiveCompounding)
	require.True(t, ok)
	assert.Equal(t, SeverityWatch, f.Severity)
}

func TestAUDMatchingRallyToBreach(t *testing.T) {
	audHolding := holding("VAS.AX", 600000, domain.RoleCompounder)
	usd := holding("VGS.AX", 400000, domain.RoleCompounder)
	usd.Classification.EconomicCurrency = strp("USD")

	snap := &domain.Snapshot{Holdings: []domain.Holding{audHolding, usd}}
	f, ok := analyse(t, snap).Find(ObjectiveAUDMatching)
	require.True(t, ok)

	// x = 600/400 - 1 = 50% rally to dilute below half: safe.
	assert.Equal(t, SeveritySafe, f.Severity)
	assert.Contains(t, f.Headline, "50.0%")
}

func TestAUDMatchingAlreadyBelowHalfIsCritical(t *testing.T) {
	audHolding := holding("VAS.AX", 300000, domain.RoleCompounder)
	usd := holding("VGS.AX", 700000, domain.RoleCompounder)
	usd.Classification.EconomicCurrency = strp("USD")

	snap := &domain.Snapshot{Holdings: []domain.Holding{audHolding, usd}}
	f, ok := analyse(t, snap).Find(ObjectiveAUDMatching)
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, f.Severity)
}

func TestOptionalitySizingTiers(t *testing.T) {
	for _, tc := range []struct {
		value    float64
		expected Severity
	}{
		{10000, SeverityCritical}, // 1%
		{50000, SeverityFragile},  // 5%
		{150000, SeveritySafe},    // 15%
	} {
		snap := &domain.Snapshot{
			Holdings: []domain.Holding{
				holding("GOLD.AX", tc.value, domain.RoleOptionality),
				holding("VAS.AX", 1000000-tc.value, domain.RoleCompounder),
			},
		}
		f, ok := analyse(t, snap).Find(ObjectiveOptionalitySizing)
		require.True(t, ok)
		assert.Equal(t, tc.expected, f.Severity, "optionality A$%.0f", tc.value)
	}
}

func TestRuleBuffersSortedTightestFirst(t *testing.T) {
	credit := holding("CRED.AX", 60000, domain.RoleStabiliser)
	credit.Classification.AssetClass = strp("credit")
	equity := holding("BIGCO.AX", 50000, domain.RoleCompounder)
	equity.Classification.AssetClass = strp("equity")

	snap := &domain.Snapshot{
		Holdings: []domain.Holding{credit, equity},
		Cash:     []domain.CashBalance{cash(890000)},
	}
	report := analyse(t, snap)
	require.NotEmpty(t, report.RuleBuffers)

	// Credit at 6% of 7% cap (1 pt buffer) is tighter than equity at 5% of
	// 10% (5 pt buffer).
	assert.Contains(t, report.RuleBuffers[0].Name, "CRED.AX")
	assert.InDelta(t, 1.0, report.RuleBuffers[0].BufferPct, 1e-6)
	for i := 1; i < len(report.RuleBuffers); i++ {
		assert.GreaterOrEqual(t, report.RuleBuffers[i].BufferPct, report.RuleBuffers[i-1].BufferPct)
	}
}

func TestRuleBuffersCoverUnclassifiedListedFunds(t *testing.T) {
	// An ETF with no asset-class override still consumes equity-cap headroom.
	fund := holding("VDHG.AX", 500000, domain.RoleCompounder)
	snap := &domain.Snapshot{
		Holdings: []domain.Holding{fund},
		Cash:     []domain.CashBalance{cash(500000)},
	}
	report := analyse(t, snap)

	var buf *RuleBuffer
	for i := range report.RuleBuffers {
		if report.RuleBuffers[i].Name == "equity position VDHG.AX" {
			buf = &report.RuleBuffers[i]
		}
	}
	require.NotNil(t, buf)
	assert.InDelta(t, 50.0, buf.CurrentPct, 1e-6)
	assert.InDelta(t, -40.0, buf.BufferPct, 1e-6)
}

func strp(s string) *string { return &s }
