// Package models defines the core data types shared across the application.
package models

// OptionType identifies the option contract type.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// Side identifies the direction of a leg.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Greeks holds the first-order price sensitivities of an option or a
// strategy. Leg Greeks are signed: sell legs carry negated values.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

// SideQuote is one normalized side (call or put) of a strike. Bid and Ask
// are nil when the quote was inverted or absent and could not be repaired.
type SideQuote struct {
	Bid        *float64
	Ask        *float64
	Delta      float64
	Gamma      float64
	Theta      float64
	Vega       float64
	IV         float64
	Volume     int64
	OI         int64
	WideSpread bool
}

// Mid returns the bid/ask midpoint, or 0 when either side is missing.
func (q *SideQuote) Mid() float64 {
	if q == nil || q.Bid == nil || q.Ask == nil {
		return 0
	}
	return (*q.Bid + *q.Ask) / 2
}

// HasPrice reports whether the side carries a usable quote.
func (q *SideQuote) HasPrice() bool {
	if q == nil {
		return false
	}
	return (q.Bid != nil && *q.Bid > 0) || (q.Ask != nil && *q.Ask > 0)
}

// StrikeRecord is one row of the normalized strike table.
type StrikeRecord struct {
	Strike float64
	Call   SideQuote
	Put    SideQuote
}

// ChainSnapshot is the market-data collaborator's view of one expiration:
// the normalized strike table plus the context needed to price strategies.
// IV30 and HV30 are decimals (0.247 = 24.7%) and zero when unavailable.
type ChainSnapshot struct {
	Symbol     string
	SpotPrice  float64
	IVRank     float64 // 0..1
	Expiration string
	DTE        int
	IV30       float64
	HV30       float64
	Strikes    []StrikeRecord
}
