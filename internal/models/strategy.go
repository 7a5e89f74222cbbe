package models

// StrategyKind enumerates the supported strategy families. Tables keyed by
// strategy (probability floors, credit-family membership, backtest type
// identifiers) are total functions over this enum.
type StrategyKind int

const (
	KindCustom StrategyKind = iota
	KindIronCondor
	KindPutCreditSpread
	KindCallCreditSpread
	KindShortStrangle
	KindShortStraddle
	KindBullCallSpread
	KindDebitSpread
	KindLongStraddle
	KindLongStrangle
	KindJadeLizard
)

// String returns the display name of the strategy family.
func (k StrategyKind) String() string {
	switch k {
	case KindIronCondor:
		return "Iron Condor"
	case KindPutCreditSpread:
		return "Put Credit Spread"
	case KindCallCreditSpread:
		return "Call Credit Spread"
	case KindShortStrangle:
		return "Short Strangle"
	case KindShortStraddle:
		return "Short Straddle"
	case KindBullCallSpread:
		return "Bull Call Spread"
	case KindDebitSpread:
		return "Debit Spread"
	case KindLongStraddle:
		return "Long Straddle"
	case KindLongStrangle:
		return "Long Strangle"
	case KindJadeLizard:
		return "Jade Lizard"
	default:
		return "Custom"
	}
}

// IsCreditFamily reports whether the family sells net premium. Credit
// families use the volatility-adjusted probability basis for expected value
// and receive the credit-oriented backtest management defaults.
func (k StrategyKind) IsCreditFamily() bool {
	switch k {
	case KindIronCondor, KindPutCreditSpread, KindCallCreditSpread,
		KindShortStrangle, KindShortStraddle, KindJadeLizard:
		return true
	case KindBullCallSpread, KindDebitSpread, KindLongStraddle,
		KindLongStrangle, KindCustom:
		return false
	default:
		return false
	}
}

// Leg is one option position within a strategy. Price is the per-share entry
// price and is always positive: bid for sells, ask for buys. Greeks are
// signed by side. Legs are immutable once constructed and owned by the card
// that contains them.
type Leg struct {
	Type       OptionType
	Side       Side
	Strike     float64
	Price      float64
	Greeks     Greeks
	WideSpread bool
}

// PayoffPoint is one sample of the expiration P&L curve, in dollars for a
// 100-multiplier contract.
type PayoffPoint struct {
	Price float64
	PnL   float64
}

// StrategyCard is a fully priced strategy candidate. Exactly one of
// NetCredit and NetDebit is non-nil (per-share dollars). MaxLoss is nil only
// when risk is structurally unbounded. A card is built once by a generator
// or the custom builder and mutated in two places only: probability/EV
// enrichment and ranking-driven relabeling.
type StrategyCard struct {
	Label           string
	Kind            StrategyKind
	Name            string
	Legs            []Leg
	Expiration      string
	DTE             int
	NetCredit       *float64
	NetDebit        *float64
	MaxProfit       float64
	MaxLoss         *float64
	Breakevens      []float64
	PoP             float64
	VolAdjustedPoP  *float64
	Greeks          Greeks
	ThetaPerDay     float64
	UnlimitedRisk   bool
	UnlimitedProfit bool
	Payoff          []PayoffPoint
	RiskReward      *float64
	EV              float64
	EVPerRisk       float64
	EffectiveRisk   float64
	Score           float64
	WideSpread      bool
}

// ShortPut reports whether the card carries a sold put leg.
func (c *StrategyCard) ShortPut() bool {
	for _, leg := range c.Legs {
		if leg.Side == SideSell && leg.Type == OptionPut {
			return true
		}
	}
	return false
}

// ShortCall reports whether the card carries a sold call leg.
func (c *StrategyCard) ShortCall() bool {
	for _, leg := range c.Legs {
		if leg.Side == SideSell && leg.Type == OptionCall {
			return true
		}
	}
	return false
}
