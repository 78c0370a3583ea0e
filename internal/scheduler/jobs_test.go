package scheduler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aknight/ballast/internal/modules/compliance"
	"github.com/aknight/ballast/internal/modules/historical"
	"github.com/aknight/ballast/internal/modules/params"
	"github.com/aknight/ballast/internal/modules/valuation"
	testhelpers "github.com/aknight/ballast/internal/testing"
)

func TestComplianceJobStoresRun(t *testing.T) {
	db, _ := testhelpers.NewTestDB(t)

	inst := testhelpers.SeedInstitution(t, db, "Test Broker", "broker")
	acct := testhelpers.SeedAccount(t, db, inst, "Trading", "trading", "AUD")
	vas := testhelpers.SeedInstrument(t, db, "VAS.AX", "etf", "AUD")
	testhelpers.SeedHolding(t, db, acct, vas, 1000)
	testhelpers.SeedPrice(t, db, vas, "2026-08-24", 95, "AUD")
	testhelpers.SeedClassification(t, db, vas, testhelpers.ClassificationSeed{
		CapitalRole: testhelpers.Ptr("compounder"),
	})
	testhelpers.SeedCash(t, db, acct, "AUD", 30000, "2026-08-24")

	conn := db.Conn()
	job := NewComplianceJob(
		valuation.NewService(valuation.NewRepository(conn, zerolog.Nop()), historical.NewRepository(conn, zerolog.Nop()), zerolog.Nop()),
		params.NewRepository(conn, zerolog.Nop()),
		compliance.NewEngine(zerolog.Nop()),
		compliance.NewRepository(conn, zerolog.Nop()),
		zerolog.Nop(),
	)

	require.Equal(t, "compliance", job.Name())
	require.NoError(t, job.Run())

	var runs int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM compliance_runs").Scan(&runs))
	assert.Equal(t, 1, runs)

	var results int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM compliance_results").Scan(&results))
	assert.Greater(t, results, 0)
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &MaintenanceJob{})
	assert.Error(t, err)
}
