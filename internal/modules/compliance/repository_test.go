package compliance

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "github.com/aknight/ballast/internal/testing"
)

func TestStoreRunAndReadBack(t *testing.T) {
	db, _ := testhelpers.NewTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())

	results := []CheckResult{
		{RuleID: RuleIncomeSubstitution, Label: RuleIncomeSubstitution.Label(),
			Status: StatusBreach, Detail: "stabiliser covers 22.2 months of expenses (floor 24)"},
		{RuleID: RuleReviewTriggers, Label: RuleReviewTriggers.Label(),
			Status: StatusPass, Detail: "no discretionary rebalancing absent a trigger"},
	}

	runID, err := repo.StoreRun(results, 1234567.89)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	runs, err := repo.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.InDelta(t, 1234567.89, runs[0].TotalValueAUD, 1e-6)

	stored, err := repo.ResultsForRun(runID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, RuleIncomeSubstitution, stored[0].RuleID)
	assert.Equal(t, StatusBreach, stored[0].Status)
	assert.Equal(t, results[0].Detail, stored[0].Detail)
}

func TestRecentRunsOrdering(t *testing.T) {
	db, _ := testhelpers.NewTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())

	first, err := repo.StoreRun(nil, 100)
	require.NoError(t, err)
	second, err := repo.StoreRun(nil, 200)
	require.NoError(t, err)

	runs, err := repo.RecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	// Both runs share a created_at second in the worst case; accept either
	// but never a run outside the stored set.
	assert.Contains(t, []string{first, second}, runs[0].ID)
}
