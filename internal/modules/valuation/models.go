// Package valuation builds portfolio snapshots from stored holdings, cash,
// prices and FX rates, and projects hypothetical trades onto them.
package valuation

import "github.com/aknight/ballast/internal/domain"

// Valuation is a built snapshot plus the data-quality notes collected while
// building it. Gaps (missing prices, missing FX) never abort a build; they
// are recorded here and the affected position carries a zero value.
type Valuation struct {
	Date     string           `json:"date"` // valuation date (latest data date used)
	Snapshot *domain.Snapshot `json:"snapshot"`
	Warnings []string         `json:"warnings"`
}

// Trade is one hypothetical buy or sell expressed in AUD.
// A negative DeltaAUD sells down (or out of) an existing position; a positive
// DeltaAUD adds to an existing position or opens a new one.
type Trade struct {
	Ticker   string  `json:"ticker"`
	DeltaAUD float64 `json:"delta_aud"`

	// Overrides supplies classification tags for a brand-new position that
	// has no stored classification. Ignored for existing positions.
	Overrides *domain.Classification `json:"overrides,omitempty"`

	// InstrumentType for a brand-new position. Defaults to equity.
	InstrumentType domain.InstrumentType `json:"instrument_type,omitempty"`
}
