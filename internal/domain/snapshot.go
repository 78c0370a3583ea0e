package domain

// Holding is a single valued position inside a snapshot.
type Holding struct {
	Ticker          string         `json:"ticker"`
	Name            string         `json:"name"`
	InstrumentType  InstrumentType `json:"instrument_type"`
	Exchange        string         `json:"exchange"`
	Currency        string         `json:"currency"` // listing currency
	Country         string         `json:"country"`
	AccountName     string         `json:"account_name"`
	InstitutionName string         `json:"institution_name"`
	Quantity        float64        `json:"quantity"`
	Price           float64        `json:"price"`
	PriceDate       string         `json:"price_date"` // ISO date, empty when unpriced
	LocalValue      float64        `json:"local_value"`
	FXRate          float64        `json:"fx_rate"`
	FXDate          string         `json:"fx_date"` // date of the FX observation, empty for AUD
	ValueAUD        float64        `json:"value_aud"`
	Speculative     bool           `json:"is_speculative"`

	Classification Classification `json:"classification"`
}

// Role returns the capital role, mapping an absent tag to RoleUnclassified.
func (h Holding) Role() CapitalRole {
	if h.Classification.Role == nil {
		return RoleUnclassified
	}
	return *h.Classification.Role
}

// IsGrowth reports whether the holding is growth capital (compounder or
// optionality). Currency-exposure rules operate on growth capital only.
func (h Holding) IsGrowth() bool {
	r := h.Role()
	return r == RoleCompounder || r == RoleOptionality
}

// EffectiveAssetClass returns the sizing asset class: the explicit override
// when present, otherwise the instrument type. Credit inside an ETF wrapper
// is still credit for sizing purposes.
func (h Holding) EffectiveAssetClass() string {
	if h.Classification.AssetClass != nil && *h.Classification.AssetClass != "" {
		return *h.Classification.AssetClass
	}
	return string(h.InstrumentType)
}

// SizedAsEquity reports whether the holding falls under the single-equity
// sizing cap. The effective asset class decides first; a listed instrument
// with no overriding class is still sized as equity.
func (h Holding) SizedAsEquity() bool {
	switch h.EffectiveAssetClass() {
	case "credit":
		return false
	case "equity", "infrastructure":
		return true
	}
	switch h.InstrumentType {
	case InstrumentEquity, InstrumentETF, InstrumentListedFund:
		return true
	}
	return false
}

// ExposureCurrency returns the currency of true underlying exposure:
// the economic currency when tagged, otherwise the listing currency.
func (h Holding) ExposureCurrency() string {
	if h.Classification.EconomicCurrency != nil && *h.Classification.EconomicCurrency != "" {
		return *h.Classification.EconomicCurrency
	}
	return h.Currency
}

// CashBalance is a single cash balance inside a snapshot.
type CashBalance struct {
	AccountName     string  `json:"account_name"`
	InstitutionName string  `json:"institution_name"`
	Currency        string  `json:"currency"`
	Balance         float64 `json:"balance"`
	FXRate          float64 `json:"fx_rate"`
	FXDate          string  `json:"fx_date"`
	ValueAUD        float64 `json:"value_aud"`
	AsOfDate        string  `json:"as_of_date"`
	// Investable is false for receivables and credit-card liabilities.
	// Non-investable cash never enters a percentage denominator.
	Investable bool `json:"is_investable"`
}

// Snapshot is a complete portfolio valuation: every holding and cash balance
// converted to AUD, with classification tags resolved. A snapshot is built
// once per analysis and treated as immutable; stress scenarios and trade
// projections derive fresh snapshots rather than mutating one in place.
type Snapshot struct {
	Holdings []Holding     `json:"holdings"`
	Cash     []CashBalance `json:"cash"`
}

// TotalHoldingsAUD returns the AUD value of all holdings.
func (s *Snapshot) TotalHoldingsAUD() float64 {
	var total float64
	for _, h := range s.Holdings {
		total += h.ValueAUD
	}
	return total
}

// InvestableCashAUD returns cash included in investable assets
// (excludes receivables and credit liabilities).
func (s *Snapshot) InvestableCashAUD() float64 {
	var total float64
	for _, c := range s.Cash {
		if c.Investable {
			total += c.ValueAUD
		}
	}
	return total
}

// NonInvestableCashAUD returns cash excluded from investable assets.
func (s *Snapshot) NonInvestableCashAUD() float64 {
	var total float64
	for _, c := range s.Cash {
		if !c.Investable {
			total += c.ValueAUD
		}
	}
	return total
}

// TotalAUD returns total investable assets (holdings + investable cash).
// Every percentage-based rule and role aggregate uses this as denominator;
// using a different total is a defect.
func (s *Snapshot) TotalAUD() float64 {
	return s.TotalHoldingsAUD() + s.InvestableCashAUD()
}

// ByCapitalRole aggregates AUD value by capital role.
//
// Investable cash is always attributed to stabiliser: cash satisfies every
// stabiliser criterion (liquid, short duration, yield-bearing), and its
// option value is a portfolio-level property, not an instrument payoff shape.
// Holdings without a role tag land in RoleUnclassified, never dropped.
func (s *Snapshot) ByCapitalRole() map[CapitalRole]float64 {
	result := make(map[CapitalRole]float64)
	for _, h := range s.Holdings {
		result[h.Role()] += h.ValueAUD
	}
	if cash := s.InvestableCashAUD(); cash > 0 {
		result[RoleStabiliser] += cash
	}
	return result
}

// ByInstrumentType aggregates AUD value by instrument type (holdings only).
func (s *Snapshot) ByInstrumentType() map[InstrumentType]float64 {
	result := make(map[InstrumentType]float64)
	for _, h := range s.Holdings {
		result[h.InstrumentType] += h.ValueAUD
	}
	return result
}

// ByMacroDriver aggregates AUD value by macro driver tag. An instrument may
// carry several drivers and contributes its full value to each; instruments
// with no tags aggregate under "untagged".
func (s *Snapshot) ByMacroDriver() map[string]float64 {
	result := make(map[string]float64)
	for _, h := range s.Holdings {
		drivers := h.Classification.MacroDrivers
		if len(drivers) == 0 {
			drivers = []string{"untagged"}
		}
		for _, d := range drivers {
			result[d] += h.ValueAUD
		}
	}
	return result
}

// ByCorporateGroup aggregates AUD value by corporate-group tag.
// Ungrouped holdings are omitted — the issuer-concentration rule only
// applies to explicitly grouped instruments.
func (s *Snapshot) ByCorporateGroup() map[string]float64 {
	result := make(map[string]float64)
	for _, h := range s.Holdings {
		if h.Classification.CorporateGroup != nil && *h.Classification.CorporateGroup != "" {
			result[*h.Classification.CorporateGroup] += h.ValueAUD
		}
	}
	return result
}

// ByStressGroup aggregates AUD value by stress-correlation-group tag.
func (s *Snapshot) ByStressGroup() map[string]float64 {
	result := make(map[string]float64)
	for _, h := range s.Holdings {
		if h.Classification.StressGroup != nil && *h.Classification.StressGroup != "" {
			result[*h.Classification.StressGroup] += h.ValueAUD
		}
	}
	return result
}

// GrowthHoldings returns the compounder and optionality holdings.
func (s *Snapshot) GrowthHoldings() []Holding {
	var growth []Holding
	for _, h := range s.Holdings {
		if h.IsGrowth() {
			growth = append(growth, h)
		}
	}
	return growth
}

// RoleHoldings returns the holdings tagged with the given role.
func (s *Snapshot) RoleHoldings(role CapitalRole) []Holding {
	var out []Holding
	for _, h := range s.Holdings {
		if h.Role() == role {
			out = append(out, h)
		}
	}
	return out
}

// FindHolding returns the holding with the given ticker, if present.
func (s *Snapshot) FindHolding(ticker string) (Holding, bool) {
	for _, h := range s.Holdings {
		if h.Ticker == ticker {
			return h, true
		}
	}
	return Holding{}, false
}

// Clone returns a deep copy of the snapshot. Derived snapshots (stress,
// projection) start from a clone so the original is never touched.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Holdings: make([]Holding, len(s.Holdings)),
		Cash:     make([]CashBalance, len(s.Cash)),
	}
	copy(out.Cash, s.Cash)
	for i, h := range s.Holdings {
		out.Holdings[i] = cloneHolding(h)
	}
	return out
}

func cloneHolding(h Holding) Holding {
	c := h.Classification
	h.Classification = Classification{
		Role:              clonePtr(c.Role),
		AssetClass:        clonePtr(c.AssetClass),
		EconomicCurrency:  clonePtr(c.EconomicCurrency),
		MacroDrivers:      append([]string(nil), c.MacroDrivers...),
		CorporateGroup:    clonePtr(c.CorporateGroup),
		StressGroup:       clonePtr(c.StressGroup),
		LiquidityDays:     clonePtr(c.LiquidityDays),
		DurationYears:     clonePtr(c.DurationYears),
		InflationLinked:   c.InflationLinked,
		Hedged:            clonePtr(c.Hedged),
		ConvexDownside:    clonePtr(c.ConvexDownside),
		ConvexUpside:      clonePtr(c.ConvexUpside),
		ConvexStressAlpha: clonePtr(c.ConvexStressAlpha),
		YieldDominant:     c.YieldDominant,
	}
	return h
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
