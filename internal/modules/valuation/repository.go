package valuation

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aknight/ballast/internal/domain"
)

// Repository reads the portfolio composition tables: holdings, cash balances
// and classifications. Prices and FX come from the historical repository.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new valuation repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "valuation").Logger(),
	}
}

// HoldingRow is a holding joined with its instrument, account and
// classification, before pricing.
type HoldingRow struct {
	Ticker          string
	Name            string
	InstrumentType  domain.InstrumentType
	Exchange        string
	Currency        string
	Country         string
	AccountName     string
	InstitutionName string
	Quantity        float64
	Speculative     bool
	Classification  domain.Classification
}

// CashRow is the latest cash balance per account and currency.
type CashRow struct {
	AccountName     string
	InstitutionName string
	AccountType     string
	Currency        string
	Balance         float64
	AsOfDate        string
}

// Investable reports whether the balance counts toward investable assets.
// Credit accounts carry liabilities; "other" covers receivables and similar
// non-deployable balances.
func (c CashRow) Investable() bool {
	return c.AccountType != "credit" && c.AccountType != "other"
}

// HoldingRows loads every holding with its classification tags.
func (r *Repository) HoldingRows() ([]HoldingRow, error) {
	rows, err := r.db.Query(`
		SELECT
			i.ticker, COALESCE(i.name, i.ticker), i.instrument_type,
			COALESCE(i.exchange, ''), i.currency, COALESCE(i.country_domicile, ''),
			a.name, inst.name, h.quantity, i.is_speculative,
			c.capital_role, c.asset_class, c.economic_currency,
			c.macro_drivers, c.corporate_group, c.stress_correlation_group,
			c.liquidity_days, c.duration_years, c.is_inflation_linked, c.hedged,
			c.convexity_defined_downside, c.convexity_nonlinear_upside,
			c.convexity_stress_outperform, c.yield_dominant
		FROM holdings h
		JOIN instruments i ON i.id = h.instrument_id
		JOIN accounts a ON a.id = h.account_id
		JOIN institutions inst ON inst.id = a.institution_id
		LEFT JOIN instrument_classifications c ON c.instrument_id = i.id
		WHERE h.quantity != 0
		ORDER BY i.ticker
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var out []HoldingRow
	for rows.Next() {
		var h HoldingRow
		var instrumentType string
		cls, targets := classificationScanTargets()
		dest := append([]interface{}{
			&h.Ticker, &h.Name, &instrumentType,
			&h.Exchange, &h.Currency, &h.Country,
			&h.AccountName, &h.InstitutionName, &h.Quantity, &h.Speculative,
		}, targets...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan holding row: %w", err)
		}
		h.InstrumentType = domain.InstrumentType(instrumentType)
		h.Classification = cls.toDomain()
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return out, nil
}

// CashRows loads the most recent balance per account and currency.
func (r *Repository) CashRows() ([]CashRow, error) {
	rows, err := r.db.Query(`
		SELECT a.name, inst.name, a.account_type, cb.currency, cb.balance, cb.as_of_date
		FROM cash_balances cb
		JOIN accounts a ON a.id = cb.account_id
		JOIN institutions inst ON inst.id = a.institution_id
		WHERE cb.as_of_date = (
			SELECT MAX(cb2.as_of_date) FROM cash_balances cb2
			WHERE cb2.account_id = cb.account_id AND cb2.currency = cb.currency
		)
		ORDER BY inst.name, a.name, cb.currency
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash balances: %w", err)
	}
	defer rows.Close()

	var out []CashRow
	for rows.Next() {
		var c CashRow
		if err := rows.Scan(&c.AccountName, &c.InstitutionName, &c.AccountType,
			&c.Currency, &c.Balance, &c.AsOfDate); err != nil {
			return nil, fmt.Errorf("failed to scan cash row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cash balances: %w", err)
	}
	return out, nil
}

// ClassificationFor returns the stored classification for a ticker, or false
// when the instrument is unknown or untagged. Used by trade projection to
// classify new positions before falling back to trade overrides.
func (r *Repository) ClassificationFor(ticker string) (domain.Classification, bool, error) {
	cls, targets := classificationScanTargets()
	err := r.db.QueryRow(`
		SELECT c.capital_role, c.asset_class, c.economic_currency,
			c.macro_drivers, c.corporate_group, c.stress_correlation_group,
			c.liquidity_days, c.duration_years, c.is_inflation_linked, c.hedged,
			c.convexity_defined_downside, c.convexity_nonlinear_upside,
			c.convexity_stress_outperform, c.yield_dominant
		FROM instrument_classifications c
		JOIN instruments i ON i.id = c.instrument_id
		WHERE i.ticker = ?
	`, ticker).Scan(targets...)
	if err == sql.ErrNoRows {
		return domain.Classification{}, false, nil
	}
	if err != nil {
		return domain.Classification{}, false, fmt.Errorf("failed to get classification for %s: %w", ticker, err)
	}
	return cls.toDomain(), true, nil
}

// classificationScan holds the nullable scan targets for a classification row.
type classificationScan struct {
	role              sql.NullString
	assetClass        sql.NullString
	economicCurrency  sql.NullString
	macroDrivers      sql.NullString
	corporateGroup    sql.NullString
	stressGroup       sql.NullString
	liquidityDays     sql.NullInt64
	durationYears     sql.NullFloat64
	inflationLinked   sql.NullBool
	hedged            sql.NullBool
	convexDownside    sql.NullBool
	convexUpside      sql.NullBool
	convexStressAlpha sql.NullBool
	yieldDominant     sql.NullBool
}

func classificationScanTargets() (*classificationScan, []interface{}) {
	var c classificationScan
	return &c, []interface{}{
		&c.role, &c.assetClass, &c.economicCurrency,
		&c.macroDrivers, &c.corporateGroup, &c.stressGroup,
		&c.liquidityDays, &c.durationYears, &c.inflationLinked, &c.hedged,
		&c.convexDownside, &c.convexUpside, &c.convexStressAlpha, &c.yieldDominant,
	}
}

func (c *classificationScan) toDomain() domain.Classification {
	var out domain.Classification
	if c.role.Valid {
		role := domain.CapitalRole(c.role.String)
		out.Role = &role
	}
	if c.assetClass.Valid {
		out.AssetClass = &c.assetClass.String
	}
	if c.economicCurrency.Valid {
		out.EconomicCurrency = &c.economicCurrency.String
	}
	if c.macroDrivers.Valid && c.macroDrivers.String != "" {
		var drivers []string
		if err := json.Unmarshal([]byte(c.macroDrivers.String), &drivers); err == nil {
			out.MacroDrivers = drivers
		}
	}
	if c.corporateGroup.Valid {
		out.CorporateGroup = &c.corporateGroup.String
	}
	if c.stressGroup.Valid {
		out.StressGroup = &c.stressGroup.String
	}
	if c.liquidityDays.Valid {
		days := int(c.liquidityDays.Int64)
		out.LiquidityDays = &days
	}
	if c.durationYears.Valid {
		out.DurationYears = &c.durationYears.Float64
	}
	out.InflationLinked = c.inflationLinked.Valid && c.inflationLinked.Bool
	if c.hedged.Valid {
		out.Hedged = &c.hedged.Bool
	}
	if c.convexDownside.Valid {
		out.ConvexDownside = &c.convexDownside.Bool
	}
	if c.convexUpside.Valid {
		out.ConvexUpside = &c.convexUpside.Bool
	}
	if c.convexStressAlpha.Valid {
		out.ConvexStressAlpha = &c.convexStressAlpha.Bool
	}
	out.YieldDominant = c.yieldDominant.Valid && c.yieldDominant.Bool
	return out
}
