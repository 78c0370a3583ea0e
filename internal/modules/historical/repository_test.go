package historical

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aknight/ballast/internal/database"
	testhelpers "github.com/aknight/ballast/internal/testing"
)

func newTestRepo(t *testing.T) (*Repository, *database.DB) {
	t.Helper()
	db, _ := testhelpers.NewTestDB(t)
	return NewRepository(db.Conn(), zerolog.Nop()), db
}

func TestPriceOnOrBefore(t *testing.T) {
	repo, db := newTestRepo(t)
	id := testhelpers.SeedInstrument(t, db, "VAS.AX", "etf", "AUD")
	testhelpers.SeedPrice(t, db, id, "2026-08-20", 98.50, "AUD")
	testhelpers.SeedPrice(t, db, id, "2026-08-21", 99.10, "AUD")
	testhelpers.SeedPrice(t, db, id, "2026-08-24", 97.80, "AUD")

	latest, err := repo.LatestPrice("VAS.AX")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.InDelta(t, 97.80, latest.Price, 1e-9)
	assert.Equal(t, "2026-08-24", latest.Date)

	// Weekend reference date resolves to the last trading day before it.
	obs, err := repo.PriceOnOrBefore("VAS.AX", "2026-08-23")
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.InDelta(t, 99.10, obs.Price, 1e-9)

	// Before all history: nil, not an error.
	obs, err = repo.PriceOnOrBefore("VAS.AX", "2026-08-01")
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestLatestPriceUnknownTicker(t *testing.T) {
	repo, _ := newTestRepo(t)
	obs, err := repo.LatestPrice("NOPE.AX")
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestUpsertPrice(t *testing.T) {
	repo, db := newTestRepo(t)
	testhelpers.SeedInstrument(t, db, "BHP.AX", "equity", "AUD")

	require.NoError(t, repo.UpsertPrice("BHP.AX", "2026-08-24", 44.20, "AUD", "manual"))
	require.NoError(t, repo.UpsertPrice("BHP.AX", "2026-08-24", 44.35, "AUD", "manual"))

	obs, err := repo.LatestPrice("BHP.AX")
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.InDelta(t, 44.35, obs.Price, 1e-9)

	assert.Error(t, repo.UpsertPrice("MISSING.AX", "2026-08-24", 1, "AUD", "manual"))
}

func TestClosePricesWindow(t *testing.T) {
	repo, db := newTestRepo(t)
	id := testhelpers.SeedInstrument(t, db, "VGS.AX", "etf", "AUD")
	for i, close := range []float64{100, 101, 99, 102} {
		date := []string{"2026-08-18", "2026-08-19", "2026-08-20", "2026-08-21"}[i]
		testhelpers.SeedPrice(t, db, id, date, close, "AUD")
	}

	points, err := repo.ClosePrices("VGS.AX", "2026-08-19", "2026-08-20")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2026-08-19", points[0].Date)
	assert.Equal(t, "2026-08-20", points[1].Date)
}

func TestSeriesForTickersIncludesEmpty(t *testing.T) {
	repo, db := newTestRepo(t)
	id := testhelpers.SeedInstrument(t, db, "VAS.AX", "etf", "AUD")
	testhelpers.SeedInstrument(t, db, "NEW.AX", "equity", "AUD")
	testhelpers.SeedPrice(t, db, id, "2026-08-21", 99.10, "AUD")

	series, err := repo.SeriesForTickers([]string{"VAS.AX", "NEW.AX"}, "2026-01-01", "2026-12-31")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Len(t, series[0].Points, 1)
	assert.Empty(t, series[1].Points)
}

func TestFXRateDirectAndInverse(t *testing.T) {
	repo, db := newTestRepo(t)
	testhelpers.SeedFXRate(t, db, "USD", "AUD", "2026-08-21", 1.52)

	obs, err := repo.LatestFXRate("USD", "AUD")
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.InDelta(t, 1.52, obs.Rate, 1e-9)

	// Inverse pair resolves via reciprocal.
	obs, err = repo.LatestFXRate("AUD", "USD")
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.InDelta(t, 1/1.52, obs.Rate, 1e-9)

	// Identity conversion is always 1.
	obs, err = repo.LatestFXRate("AUD", "AUD")
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.InDelta(t, 1.0, obs.Rate, 1e-9)

	// Unknown pair: nil, not an error.
	obs, err = repo.LatestFXRate("GBP", "AUD")
	require.NoError(t, err)
	assert.Nil(t, obs)
}
