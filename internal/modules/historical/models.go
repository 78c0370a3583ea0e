// Package historical provides access to stored price and FX history.
// All engines read market data through this package; none of them talk to
// the prices or fx_rates tables directly.
package historical

// PricePoint is one daily close for an instrument.
type PricePoint struct {
	Date  string  `json:"date"` // ISO date (YYYY-MM-DD)
	Close float64 `json:"close"`
}

// PriceObservation is the most recent close at or before a reference date,
// with its own date so callers can judge staleness.
type PriceObservation struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Date     string  `json:"date"`
}

// FXObservation is an FX rate with the date it was observed.
type FXObservation struct {
	Rate float64 `json:"rate"`
	Date string  `json:"date"`
}

// Series is a dated close series for one ticker, ascending by date.
type Series struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}
