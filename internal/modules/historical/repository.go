package historical

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// Repository handles price and FX rate persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new historical data repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "historical").Logger(),
	}
}

// UpsertPrice stores a daily close for a ticker, replacing any existing
// observation for the same date.
func (r *Repository) UpsertPrice(ticker, date string, close float64, currency, source string) error {
	res, err := r.db.Exec(`
		INSERT INTO prices (instrument_id, date, close_price, currency, source)
		SELECT id, ?, ?, ?, ? FROM instruments WHERE ticker = ?
		ON CONFLICT(instrument_id, date) DO UPDATE SET
			close_price = excluded.close_price,
			currency    = excluded.currency,
			source      = excluded.source
	`, date, close, currency, source, ticker)
	if err != nil {
		return fmt.Errorf("failed to upsert price for %s: %w", ticker, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unknown instrument %s", ticker)
	}
	return nil
}

// UpsertFXRate stores an FX rate observation for a currency pair and date.
func (r *Repository) UpsertFXRate(from, to, date string, rate float64, source string) error {
	_, err := r.db.Exec(`
		INSERT INTO fx_rates (from_currency, to_currency, date, rate, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(from_currency, to_currency, date) DO UPDATE SET
			rate   = excluded.rate,
			source = excluded.source
	`, from, to, date, rate, source)
	if err != nil {
		return fmt.Errorf("failed to upsert fx rate %s/%s: %w", from, to, err)
	}
	return nil
}

// LatestPrice returns the most recent close for a ticker.
// Returns nil when the ticker has no price history (not an error — callers
// surface it as a data-quality gap).
func (r *Repository) LatestPrice(ticker string) (*PriceObservation, error) {
	return r.PriceOnOrBefore(ticker, "9999-12-31")
}

// PriceOnOrBefore returns the most recent close at or before the given date.
// The stress engine uses this to value a portfolio as of a peak or trough
// that may fall on a non-trading day for some instruments.
func (r *Repository) PriceOnOrBefore(ticker, date string) (*PriceObservation, error) {
	var obs PriceObservation
	err := r.db.QueryRow(`
		SELECT p.close_price, p.currency, p.date
		FROM prices p
		JOIN instruments i ON i.id = p.instrument_id
		WHERE i.ticker = ? AND p.date <= ?
		ORDER BY p.date DESC
		LIMIT 1
	`, ticker, date).Scan(&obs.Price, &obs.Currency, &obs.Date)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price for %s: %w", ticker, err)
	}
	return &obs, nil
}

// ClosePrices returns the close series for a ticker between two dates
// inclusive, ascending by date.
func (r *Repository) ClosePrices(ticker, fromDate, toDate string) ([]PricePoint, error) {
	rows, err := r.db.Query(`
		SELECT p.date, p.close_price
		FROM prices p
		JOIN instruments i ON i.id = p.instrument_id
		WHERE i.ticker = ? AND p.date >= ? AND p.date <= ?
		ORDER BY p.date ASC
	`, ticker, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", ticker, err)
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price row for %s: %w", ticker, err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices for %s: %w", ticker, err)
	}
	return points, nil
}

// SeriesForTickers loads close series for several tickers over one window.
// Tickers with no data in the window come back with an empty Points slice so
// the correlation engine can report insufficient history per ticker.
func (r *Repository) SeriesForTickers(tickers []string, fromDate, toDate string) ([]Series, error) {
	out := make([]Series, 0, len(tickers))
	for _, ticker := range tickers {
		points, err := r.ClosePrices(ticker, fromDate, toDate)
		if err != nil {
			return nil, err
		}
		out = append(out, Series{Ticker: ticker, Points: points})
	}
	return out, nil
}

// LatestFXRate returns the most recent rate converting from one currency to
// another. When only the inverse pair is stored, the reciprocal is returned.
// Identity pairs always resolve to 1 with today's date semantics left to the
// caller (an identity conversion is never stale).
func (r *Repository) LatestFXRate(from, to string) (*FXObservation, error) {
	return r.FXRateOnOrBefore(from, to, "9999-12-31")
}

// FXRateOnOrBefore returns the most recent rate at or before the given date,
// consulting the inverse pair when the direct pair is absent.
func (r *Repository) FXRateOnOrBefore(from, to, date string) (*FXObservation, error) {
	if from == to {
		return &FXObservation{Rate: 1, Date: date}, nil
	}

	var obs FXObservation
	err := r.db.QueryRow(`
		SELECT rate, date FROM fx_rates
		WHERE from_currency = ? AND to_currency = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`, from, to, date).Scan(&obs.Rate, &obs.Date)
	if err == nil {
		return &obs, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get fx rate %s/%s: %w", from, to, err)
	}

	err = r.db.QueryRow(`
		SELECT rate, date FROM fx_rates
		WHERE from_currency = ? AND to_currency = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`, to, from, date).Scan(&obs.Rate, &obs.Date)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inverse fx rate %s/%s: %w", to, from, err)
	}
	if obs.Rate == 0 {
		return nil, fmt.Errorf("stored fx rate %s/%s is zero", to, from)
	}
	obs.Rate = 1 / obs.Rate
	return &obs, nil
}
