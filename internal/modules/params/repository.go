package params

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Repository handles parameter persistence in the parameters table.
// Values are stored as strings and parsed on resolution; a stored value that
// fails to parse falls back to the default with a warning rather than failing
// the whole analysis.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new parameter repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "params").Logger(),
	}
}

// Get retrieves a parameter value by key.
// Returns nil if the parameter has never been set (not an error).
func (r *Repository) Get(key string) (*string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM parameters WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parameter %s: %w", key, err)
	}
	return &value, nil
}

// Set stores a parameter value, creating or updating as needed. Unknown keys
// are rejected so a typo cannot silently create a dead parameter.
func (r *Repository) Set(key string, value string) error {
	if _, ok := Defaults[key]; !ok {
		return fmt.Errorf("unknown parameter key %q", key)
	}

	_, err := r.db.Exec(`
		INSERT INTO parameters (key, value, description, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, Descriptions[key])
	if err != nil {
		return fmt.Errorf("failed to set parameter %s: %w", key, err)
	}
	return nil
}

// GetAll retrieves the effective value of every known parameter: defaults
// overlaid with whatever has been stored.
func (r *Repository) GetAll() (map[string]string, error) {
	result := make(map[string]string, len(Defaults))
	for k, v := range Defaults {
		result[k] = v
	}

	rows, err := r.db.Query("SELECT key, value FROM parameters")
	if err != nil {
		return nil, fmt.Errorf("failed to load parameters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan parameter row")
			continue
		}
		if _, ok := Defaults[key]; !ok {
			r.log.Warn().Str("key", key).Msg("Ignoring unknown parameter key in store")
			continue
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parameters: %w", err)
	}
	return result, nil
}

// Delete removes a stored override so the default applies again. Idempotent.
func (r *Repository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM parameters WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete parameter %s: %w", key, err)
	}
	return nil
}

// Resolve loads the store and produces the typed Params used by the engines.
// Parse failures on individual keys revert that key to its default.
func (r *Repository) Resolve() (*Params, error) {
	raw, err := r.GetAll()
	if err != nil {
		return nil, err
	}

	f := func(key string) float64 {
		v, err := strconv.ParseFloat(raw[key], 64)
		if err != nil {
			r.log.Warn().Str("key", key).Str("value", raw[key]).
				Msg("Unparseable parameter, using default")
			v, _ = strconv.ParseFloat(Defaults[key], 64)
		}
		return v
	}
	n := func(key string) int {
		v, err := strconv.Atoi(raw[key])
		if err != nil {
			r.log.Warn().Str("key", key).Str("value", raw[key]).
				Msg("Unparseable parameter, using default")
			v, _ = strconv.Atoi(Defaults[key])
		}
		return v
	}
	b := func(key string) bool {
		switch strings.ToLower(raw[key]) {
		case "true", "1", "yes", "on":
			return true
		}
		return false
	}

	return &Params{
		MonthlyExpensesAUD: f("monthly_expenses_aud"),
		RealReturnPA:       f("real_return_pa"),

		StabiliserMin:  f("stabiliser_min"),
		StabiliserMax:  f("stabiliser_max"),
		CompounderMin:  f("compounder_min"),
		CompounderMax:  f("compounder_max"),
		OptionalityMin: f("optionality_min"),
		OptionalityMax: f("optionality_max"),

		ExpenseFloorMonths: f("expense_floor_months"),

		SingleCreditMax:   f("single_credit_max"),
		SingleEquityMax:   f("single_equity_max"),
		SingleSpecMax:     f("single_spec_max"),
		AggregateSpecMax:  f("aggregate_spec_max"),
		CorporateGroupMax: f("corporate_group_max"),
		StressGroupMax:    f("stress_group_max"),

		AustraliaMax:   f("australia_max"),
		MacroDriverMax: f("macro_driver_max"),

		AUDGrowthMin: f("aud_growth_min"),
		AUDGrowthMax: f("aud_growth_max"),
		UnhedgedMin:  f("unhedged_min"),

		OptionalityShockMax: f("optionality_shock_max"),
		YieldOptionalityMax: f("yield_optionality_max"),

		LiquidMin:          f("liquid_min"),
		DurationBucketMax:  f("duration_bucket_max"),
		InflationLinkedMin: f("inflation_linked_min"),

		PriceMaxAgeDays: n("price_max_age_days"),
		FXMaxAgeDays:    n("fx_max_age_days"),

		IncomeShockActive:            b("income_shock_active"),
		InflationShiftActive:         b("inflation_shift_active"),
		CurrencyRegimeActive:         b("currency_regime_active"),
		CorrelationConvergenceActive: b("correlation_convergence_active"),
	}, nil
}

// ExpenseFloorAUD returns the stabiliser expense floor in AUD.
func (p *Params) ExpenseFloorAUD() float64 {
	return p.ExpenseFloorMonths * p.MonthlyExpensesAUD
}
