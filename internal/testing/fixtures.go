package testing

import (
	"encoding/json"
	"testing"

	"github.com/aknight/ballast/internal/database"
)

// SeedInstitution inserts an institution and returns its id.
func SeedInstitution(t *testing.T, db *database.DB, name, institutionType string) int64 {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO institutions (name, institution_type) VALUES (?, ?)",
		name, institutionType,
	)
	if err != nil {
		t.Fatalf("Failed to seed institution %s: %v", name, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// SeedAccount inserts an account and returns its id.
func SeedAccount(t *testing.T, db *database.DB, institutionID int64, name, accountType, currency string) int64 {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO accounts (institution_id, name, account_type, currency) VALUES (?, ?, ?, ?)",
		institutionID, name, accountType, currency,
	)
	if err != nil {
		t.Fatalf("Failed to seed account %s: %v", name, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// SeedInstrument inserts an instrument and returns its id.
func SeedInstrument(t *testing.T, db *database.DB, ticker, instrumentType, currency string) int64 {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO instruments (ticker, name, instrument_type, currency) VALUES (?, ?, ?, ?)",
		ticker, ticker, instrumentType, currency,
	)
	if err != nil {
		t.Fatalf("Failed to seed instrument %s: %v", ticker, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// SeedSpeculativeInstrument inserts an instrument flagged speculative.
func SeedSpeculativeInstrument(t *testing.T, db *database.DB, ticker, instrumentType, currency string) int64 {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO instruments (ticker, name, instrument_type, currency, is_speculative) VALUES (?, ?, ?, ?, 1)",
		ticker, ticker, instrumentType, currency,
	)
	if err != nil {
		t.Fatalf("Failed to seed instrument %s: %v", ticker, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// SeedHolding inserts a holding row.
func SeedHolding(t *testing.T, db *database.DB, accountID, instrumentID int64, quantity float64) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO holdings (account_id, instrument_id, quantity) VALUES (?, ?, ?)",
		accountID, instrumentID, quantity,
	)
	if err != nil {
		t.Fatalf("Failed to seed holding: %v", err)
	}
}

// SeedCash inserts a cash balance row.
func SeedCash(t *testing.T, db *database.DB, accountID int64, currency string, balance float64, asOfDate string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO cash_balances (account_id, currency, balance, as_of_date) VALUES (?, ?, ?, ?)",
		accountID, currency, balance, asOfDate,
	)
	if err != nil {
		t.Fatalf("Failed to seed cash balance: %v", err)
	}
}

// SeedPrice inserts a daily close.
func SeedPrice(t *testing.T, db *database.DB, instrumentID int64, date string, close float64, currency string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO prices (instrument_id, date, close_price, currency) VALUES (?, ?, ?, ?)",
		instrumentID, date, close, currency,
	)
	if err != nil {
		t.Fatalf("Failed to seed price: %v", err)
	}
}

// SeedFXRate inserts an FX rate observation.
func SeedFXRate(t *testing.T, db *database.DB, from, to, date string, rate float64) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO fx_rates (from_currency, to_currency, date, rate) VALUES (?, ?, ?, ?)",
		from, to, date, rate,
	)
	if err != nil {
		t.Fatalf("Failed to seed fx rate: %v", err)
	}
}

// ClassificationSeed mirrors the nullable classification columns; nil fields
// stay NULL in the database.
type ClassificationSeed struct {
	CapitalRole       *string
	AssetClass        *string
	EconomicCurrency  *string
	MacroDrivers      []string
	CorporateGroup    *string
	StressGroup       *string
	LiquidityDays     *int
	DurationYears     *float64
	InflationLinked   bool
	Hedged            *bool
	ConvexDownside    *bool
	ConvexUpside      *bool
	ConvexStressAlpha *bool
	YieldDominant     bool
}

// SeedClassification inserts a classification row for an instrument.
func SeedClassification(t *testing.T, db *database.DB, instrumentID int64, seed ClassificationSeed) {
	t.Helper()

	drivers := "[]"
	if len(seed.MacroDrivers) > 0 {
		raw, err := json.Marshal(seed.MacroDrivers)
		if err != nil {
			t.Fatalf("Failed to marshal macro drivers: %v", err)
		}
		drivers = string(raw)
	}

	_, err := db.Exec(`
		INSERT INTO instrument_classifications (
			instrument_id, capital_role, asset_class, economic_currency,
			macro_drivers, corporate_group, stress_correlation_group,
			liquidity_days, duration_years, is_inflation_linked, hedged,
			convexity_defined_downside, convexity_nonlinear_upside,
			convexity_stress_outperform, yield_dominant
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		instrumentID, seed.CapitalRole, seed.AssetClass, seed.EconomicCurrency,
		drivers, seed.CorporateGroup, seed.StressGroup,
		seed.LiquidityDays, seed.DurationYears, seed.InflationLinked, seed.Hedged,
		seed.ConvexDownside, seed.ConvexUpside, seed.ConvexStressAlpha,
		seed.YieldDominant,
	)
	if err != nil {
		t.Fatalf("Failed to seed classification: %v", err)
	}
}

// Ptr returns a pointer to v. Keeps fixture literals short.
func Ptr[T any](v T) *T { return &v }
