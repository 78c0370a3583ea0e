package valuation

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aknight/ballast/internal/domain"
	"github.com/aknight/ballast/internal/modules/historical"
)

// sellEpsilon absorbs rounding when a trade sells "the whole position".
const sellEpsilon = 0.01

// Service assembles snapshots and projects trades onto them.
type Service struct {
	repo   *Repository
	prices *historical.Repository
	log    zerolog.Logger
}

// NewService creates a new valuation service.
func NewService(repo *Repository, prices *historical.Repository, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		prices: prices,
		log:    log.With().Str("component", "valuation").Logger(),
	}
}

// Build assembles the current portfolio snapshot: every holding priced at its
// latest close and converted to AUD, every cash balance converted to AUD.
//
// Missing prices or FX rates never fail the build. The position is carried at
// zero value and the gap is recorded in Warnings, so a report still covers
// the whole portfolio and the gap is visible instead of silently dropped.
func (s *Service) Build() (*Valuation, error) {
	holdingRows, err := s.repo.HoldingRows()
	if err != nil {
		return nil, err
	}
	cashRows, err := s.repo.CashRows()
	if err != nil {
		return nil, err
	}

	v := &Valuation{Snapshot: &domain.Snapshot{}}
	var maxDate string

	for _, row := range holdingRows {
		h := domain.Holding{
			Ticker:          row.Ticker,
			Name:            row.Name,
			InstrumentType:  row.InstrumentType,
			Exchange:        row.Exchange,
			Currency:        row.Currency,
			Country:         row.Country,
			AccountName:     row.AccountName,
			InstitutionName: row.InstitutionName,
			Quantity:        row.Quantity,
			Speculative:     row.Speculative,
			Classification:  row.Classification,
		}

		obs, err := s.prices.LatestPrice(row.Ticker)
		if err != nil {
			return nil, err
		}
		if obs == nil {
			v.Warnings = append(v.Warnings,
				fmt.Sprintf("%s: no price history, valued at zero", row.Ticker))
			v.Snapshot.Holdings = append(v.Snapshot.Holdings, h)
			continue
		}

		h.Price = obs.Price
		h.PriceDate = obs.Date
		h.LocalValue = row.Quantity * obs.Price
		if obs.Date > maxDate {
			maxDate = obs.Date
		}

		rate, fxDate, warn, err := s.resolveFX(obs.Currency)
		if err != nil {
			return nil, err
		}
		if warn != "" {
			v.Warnings = append(v.Warnings, fmt.Sprintf("%s: %s, valued at zero", row.Ticker, warn))
			v.Snapshot.Holdings = append(v.Snapshot.Holdings, h)
			continue
		}
		h.FXRate = rate
		h.FXDate = fxDate
		h.ValueAUD = h.LocalValue * rate
		v.Snapshot.Holdings = append(v.Snapshot.Holdings, h)
	}

	for _, row := range cashRows {
		c := domain.CashBalance{
			AccountName:     row.AccountName,
			InstitutionName: row.InstitutionName,
			Currency:        row.Currency,
			Balance:         row.Balance,
			AsOfDate:        row.AsOfDate,
			Investable:      row.Investable(),
		}

		rate, fxDate, warn, err := s.resolveFX(row.Currency)
		if err != nil {
			return nil, err
		}
		if warn != "" {
			v.Warnings = append(v.Warnings,
				fmt.Sprintf("cash %s/%s: %s, valued at zero", row.AccountName, row.Currency, warn))
			v.Snapshot.Cash = append(v.Snapshot.Cash, c)
			continue
		}
		c.FXRate = rate
		c.FXDate = fxDate
		c.ValueAUD = row.Balance * rate
		v.Snapshot.Cash = append(v.Snapshot.Cash, c)
	}

	if maxDate == "" {
		maxDate = time.Now().Format("2006-01-02")
	}
	v.Date = maxDate

	s.log.Debug().
		Int("holdings", len(v.Snapshot.Holdings)).
		Int("cash_balances", len(v.Snapshot.Cash)).
		Float64("total_aud", v.Snapshot.TotalAUD()).
		Int("warnings", len(v.Warnings)).
		Msg("Snapshot built")
	return v, nil
}

// resolveFX returns the AUD conversion rate and its observation date for a
// currency, or a warning string when no rate is stored.
func (s *Service) resolveFX(currency string) (float64, string, string, error) {
	if currency == domain.BaseCurrency {
		return 1, "", "", nil
	}
	obs, err := s.prices.LatestFXRate(currency, domain.BaseCurrency)
	if err != nil {
		return 0, "", "", err
	}
	if obs == nil {
		return 0, "", fmt.Sprintf("no %s/%s rate", currency, domain.BaseCurrency), nil
	}
	return obs.Rate, obs.Date, "", nil
}

// Project applies a list of hypothetical AUD trades to a snapshot and returns
// the resulting snapshot. The input snapshot is never mutated.
//
// Sells credit investable cash with the amount sold; a sell covering the
// whole position removes the holding. Buys debit cash; a buy of an unheld
// ticker creates exactly one new holding, classified from the database when
// the ticker is known there, otherwise from the trade's overrides.
//
// A malformed trade (empty ticker, zero delta, selling an unheld ticker,
// selling more than is held) is a caller error and aborts the projection.
func (s *Service) Project(snap *domain.Snapshot, trades []Trade) (*domain.Snapshot, error) {
	for i, tr := range trades {
		if tr.Ticker == "" {
			return nil, fmt.Errorf("trade %d: empty ticker", i)
		}
		if tr.DeltaAUD == 0 {
			return nil, fmt.Errorf("trade %d (%s): zero delta", i, tr.Ticker)
		}
	}

	out := snap.Clone()
	var cashDelta float64

	for i, tr := range trades {
		idx := holdingIndex(out, tr.Ticker)

		if tr.DeltaAUD < 0 {
			if idx < 0 {
				return nil, fmt.Errorf("trade %d: cannot sell unheld ticker %s", i, tr.Ticker)
			}
			h := &out.Holdings[idx]
			sell := -tr.DeltaAUD
			if sell > h.ValueAUD+sellEpsilon {
				return nil, fmt.Errorf("trade %d: sell %.2f exceeds %s position value %.2f",
					i, sell, tr.Ticker, h.ValueAUD)
			}
			if sell >= h.ValueAUD-sellEpsilon {
				cashDelta += h.ValueAUD
				out.Holdings = append(out.Holdings[:idx], out.Holdings[idx+1:]...)
				continue
			}
			factor := (h.ValueAUD - sell) / h.ValueAUD
			h.ValueAUD -= sell
			h.LocalValue *= factor
			h.Quantity *= factor
			cashDelta += sell
			continue
		}

		if idx >= 0 {
			h := &out.Holdings[idx]
			if h.ValueAUD > 0 {
				factor := (h.ValueAUD + tr.DeltaAUD) / h.ValueAUD
				h.LocalValue *= factor
				h.Quantity *= factor
			} else {
				h.LocalValue = tr.DeltaAUD
			}
			h.ValueAUD += tr.DeltaAUD
			cashDelta -= tr.DeltaAUD
			continue
		}

		cls, found, err := s.repo.ClassificationFor(tr.Ticker)
		if err != nil {
			return nil, err
		}
		if !found && tr.Overrides != nil {
			cls = *tr.Overrides
		}
		instrumentType := tr.InstrumentType
		if instrumentType == "" {
			instrumentType = domain.InstrumentEquity
		}
		out.Holdings = append(out.Holdings, domain.Holding{
			Ticker:         tr.Ticker,
			Name:           tr.Ticker,
			InstrumentType: instrumentType,
			Currency:       domain.BaseCurrency,
			AccountName:    "projected",
			FXRate:         1,
			LocalValue:     tr.DeltaAUD,
			ValueAUD:       tr.DeltaAUD,
			Classification: cls,
		})
		cashDelta -= tr.DeltaAUD
	}

	applyCashDelta(out, cashDelta)
	return out, nil
}

func holdingIndex(s *domain.Snapshot, ticker string) int {
	for i, h := range s.Holdings {
		if h.Ticker == ticker {
			return i
		}
	}
	return -1
}

// applyCashDelta settles the net trade amount against investable AUD cash,
// preferring an existing balance and creating a settlement line otherwise.
func applyCashDelta(s *domain.Snapshot, delta float64) {
	if math.Abs(delta) < sellEpsilon {
		return
	}
	for i := range s.Cash {
		c := &s.Cash[i]
		if c.Investable && c.Currency == domain.BaseCurrency {
			c.Balance += delta
			c.ValueAUD += delta
			return
		}
	}
	s.Cash = append(s.Cash, domain.CashBalance{
		AccountName:     "projected settlement",
		InstitutionName: "projected",
		Currency:        domain.BaseCurrency,
		Balance:         delta,
		FXRate:          1,
		ValueAUD:        delta,
		Investable:      true,
	})
}
