package database

// schemaStatements is the single source of truth for the ballast.db schema.
// Applied by Migrate; every statement is idempotent.
var schemaStatements = []string{
	// --- Reference data ---
	`CREATE TABLE IF NOT EXISTS institutions (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		name             TEXT    NOT NULL UNIQUE,
		institution_type TEXT    NOT NULL CHECK(institution_type IN ('broker','bank','fintech','other')),
		base_currency    TEXT    NOT NULL DEFAULT 'AUD',
		notes            TEXT,
		created_at       TEXT    NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		institution_id INTEGER NOT NULL REFERENCES institutions(id),
		name           TEXT    NOT NULL,
		account_type   TEXT    NOT NULL CHECK(account_type IN ('trading','savings','everyday','credit','other')),
		currency       TEXT    NOT NULL DEFAULT 'AUD',
		notes          TEXT,
		created_at     TEXT    NOT NULL DEFAULT (datetime('now')),
		UNIQUE(institution_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS instruments (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker           TEXT    NOT NULL UNIQUE,
		name             TEXT,
		instrument_type  TEXT    NOT NULL CHECK(instrument_type IN (
			'equity','etf','govt_bond_nominal','govt_bond_indexed',
			'credit','listed_fund','cash','other'
		)),
		exchange         TEXT,
		currency         TEXT    NOT NULL,
		country_domicile TEXT,
		is_speculative   INTEGER NOT NULL DEFAULT 0,
		notes            TEXT,
		created_at       TEXT    NOT NULL DEFAULT (datetime('now'))
	)`,

	// --- Portfolio data ---
	`CREATE TABLE IF NOT EXISTS holdings (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id          INTEGER NOT NULL REFERENCES accounts(id),
		instrument_id       INTEGER NOT NULL REFERENCES instruments(id),
		quantity            REAL    NOT NULL,
		cost_basis          REAL,
		cost_basis_currency TEXT,
		date_acquired       TEXT,
		notes               TEXT,
		updated_at          TEXT    NOT NULL DEFAULT (datetime('now')),
		UNIQUE(account_id, instrument_id)
	)`,
	`CREATE TABLE IF NOT EXISTS cash_balances (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		currency   TEXT    NOT NULL,
		balance    REAL    NOT NULL,
		as_of_date TEXT    NOT NULL DEFAULT (date('now')),
		notes      TEXT,
		UNIQUE(account_id, currency, as_of_date)
	)`,

	// --- Market data ---
	`CREATE TABLE IF NOT EXISTS prices (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		instrument_id INTEGER NOT NULL REFERENCES instruments(id),
		date          TEXT    NOT NULL,
		close_price   REAL    NOT NULL,
		currency      TEXT    NOT NULL,
		source        TEXT,
		UNIQUE(instrument_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS fx_rates (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		from_currency TEXT    NOT NULL,
		to_currency   TEXT    NOT NULL,
		date          TEXT    NOT NULL,
		rate          REAL    NOT NULL,
		source        TEXT,
		UNIQUE(from_currency, to_currency, date)
	)`,

	// --- Classification & tagging ---
	`CREATE TABLE IF NOT EXISTS instrument_classifications (
		id                          INTEGER PRIMARY KEY AUTOINCREMENT,
		instrument_id               INTEGER NOT NULL UNIQUE REFERENCES instruments(id),
		capital_role                TEXT    CHECK(capital_role IN ('stabiliser','compounder','optionality')),
		asset_class                 TEXT,
		economic_currency           TEXT,
		macro_drivers               TEXT    DEFAULT '[]',
		corporate_group             TEXT,
		stress_correlation_group    TEXT,
		liquidity_days              INTEGER,
		duration_years              REAL,
		is_inflation_linked         INTEGER NOT NULL DEFAULT 0,
		hedged                      INTEGER,
		convexity_defined_downside  INTEGER,
		convexity_nonlinear_upside  INTEGER,
		convexity_stress_outperform INTEGER,
		yield_dominant              INTEGER NOT NULL DEFAULT 0,
		notes                       TEXT,
		updated_at                  TEXT    NOT NULL DEFAULT (datetime('now'))
	)`,

	// --- System parameters ---
	`CREATE TABLE IF NOT EXISTS parameters (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		description TEXT,
		updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	// --- Compliance audit log ---
	`CREATE TABLE IF NOT EXISTS compliance_runs (
		id              TEXT PRIMARY KEY,
		date            TEXT NOT NULL,
		total_value_aud REAL NOT NULL,
		created_at      TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS compliance_results (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL REFERENCES compliance_runs(id),
		rule_id    TEXT NOT NULL,
		status     TEXT NOT NULL CHECK(status IN ('pass','warning','breach')),
		detail     TEXT,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	// --- Report cache (ephemeral) ---
	`CREATE TABLE IF NOT EXISTS report_cache (
		key        TEXT    PRIMARY KEY,
		data       BLOB    NOT NULL,
		expires_at INTEGER NOT NULL
	)`,

	// --- Indexes ---
	`CREATE INDEX IF NOT EXISTS idx_holdings_account ON holdings(account_id)`,
	`CREATE INDEX IF NOT EXISTS idx_holdings_instrument ON holdings(instrument_id)`,
	`CREATE INDEX IF NOT EXISTS idx_prices_instrument_date ON prices(instrument_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_fx_rates_pair_date ON fx_rates(from_currency, to_currency, date)`,
	`CREATE INDEX IF NOT EXISTS idx_compliance_results_run ON compliance_results(run_id)`,
}
