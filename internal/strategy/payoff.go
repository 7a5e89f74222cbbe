package strategy

import (
	"math"
	"sort"

	"optionedge/internal/models"
)

// payoffSamples is the number of points on the sampled expiration curve.
const payoffSamples = 51

// contractMultiplier converts per-share values to per-contract dollars.
const contractMultiplier = 100.0

// Payoff is the full expiration-risk analysis of a set of legs. Exactly one
// of NetCredit and NetDebit is non-nil. MaxLoss is nil when risk is
// structurally unbounded.
type Payoff struct {
	NetCredit       *float64
	NetDebit        *float64
	MaxProfit       float64
	MaxLoss         *float64
	Breakevens      []float64
	Curve           []models.PayoffPoint
	Greeks          models.Greeks
	ThetaPerDay     float64
	UnlimitedRisk   bool
	UnlimitedProfit bool
	RiskReward      *float64
}

// ComputePayoff evaluates the piecewise-linear expiration P&L of the legs
// around the current underlying price.
func ComputePayoff(legs []models.Leg, spot float64) Payoff {
	var p Payoff

	cash := 0.0 // per share: credits received minus debits paid
	for _, leg := range legs {
		if leg.Side == models.SideSell {
			cash += leg.Price
		} else {
			cash -= leg.Price
		}
		p.Greeks.Delta += leg.Greeks.Delta
		p.Greeks.Gamma += leg.Greeks.Gamma
		p.Greeks.Theta += leg.Greeks.Theta
		p.Greeks.Vega += leg.Greeks.Vega
	}
	if cash >= 0 {
		credit := cash
		p.NetCredit = &credit
	} else {
		debit := -cash
		p.NetDebit = &debit
	}

	p.ThetaPerDay = roundCents(p.Greeks.Theta * contractMultiplier)
	p.UnlimitedRisk, p.UnlimitedProfit = tailExposure(legs)

	lo, hi := strikeRange(legs)
	span := hi - lo
	margin := span + spot*0.10
	start := lo - margin
	if start < 0 {
		start = 0
	}
	end := hi + margin

	p.Curve = sampleCurve(legs, start, end)
	p.Breakevens = findBreakevens(p.Curve)

	p.MaxProfit = p.Curve[0].PnL
	for _, pt := range p.Curve[1:] {
		if pt.PnL > p.MaxProfit {
			p.MaxProfit = pt.PnL
		}
	}

	if !p.UnlimitedRisk {
		// The worst case of a piecewise-linear payoff is always at a
		// breakpoint, so evaluate at zero, every strike, and a far tail
		// instead of trusting the sampled grid.
		critical := []float64{0, 2 * hi}
		for _, leg := range legs {
			critical = append(critical, leg.Strike)
		}
		worst := math.Inf(1)
		for _, price := range critical {
			if v := pnlAt(legs, price); v < worst {
				worst = v
			}
		}
		if worst < 0 {
			loss := -worst
			p.MaxLoss = &loss
		} else {
			zero := 0.0
			p.MaxLoss = &zero
		}
	}

	if p.MaxLoss != nil && *p.MaxLoss > 0 {
		rr := p.MaxProfit / *p.MaxLoss
		p.RiskReward = &rr
	}

	return p
}

// pnlAt returns the expiration P&L in dollars per contract at the given
// underlying price.
func pnlAt(legs []models.Leg, price float64) float64 {
	total := 0.0
	for _, leg := range legs {
		var intrinsic float64
		if leg.Type == models.OptionCall {
			intrinsic = math.Max(price-leg.Strike, 0)
		} else {
			intrinsic = math.Max(leg.Strike-price, 0)
		}
		if leg.Side == models.SideBuy {
			total += intrinsic - leg.Price
		} else {
			total += leg.Price - intrinsic
		}
	}
	return total * contractMultiplier
}

func sampleCurve(legs []models.Leg, start, end float64) []models.PayoffPoint {
	curve := make([]models.PayoffPoint, payoffSamples)
	step := (end - start) / float64(payoffSamples-1)
	for i := range curve {
		price := start + step*float64(i)
		curve[i] = models.PayoffPoint{Price: price, PnL: pnlAt(legs, price)}
	}
	return curve
}

// findBreakevens linearly interpolates every sign change between
// consecutive sampled points.
func findBreakevens(curve []models.PayoffPoint) []float64 {
	var breakevens []float64
	for i := 1; i < len(curve); i++ {
		y0, y1 := curve[i-1].PnL, curve[i].PnL
		if y0 == 0 {
			breakevens = append(breakevens, curve[i-1].Price)
			continue
		}
		if y0*y1 < 0 {
			x0, x1 := curve[i-1].Price, curve[i].Price
			breakevens = append(breakevens, x0+(x1-x0)*(-y0)/(y1-y0))
		}
	}
	sort.Float64s(breakevens)
	return breakevens
}

// tailExposure reports whether the structure carries unbounded loss or
// profit beyond the outermost strikes. A net sold call leaves the upside
// open and a net sold put behaves the same way toward zero.
func tailExposure(legs []models.Leg) (unlimitedRisk, unlimitedProfit bool) {
	var netCalls, netPuts int
	for _, leg := range legs {
		n := 1
		if leg.Side == models.SideSell {
			n = -1
		}
		if leg.Type == models.OptionCall {
			netCalls += n
		} else {
			netPuts += n
		}
	}
	unlimitedRisk = netCalls < 0 || netPuts < 0
	unlimitedProfit = netCalls > 0 || netPuts > 0
	return unlimitedRisk, unlimitedProfit
}

func strikeRange(legs []models.Leg) (lo, hi float64) {
	lo, hi = legs[0].Strike, legs[0].Strike
	for _, leg := range legs[1:] {
		if leg.Strike < lo {
			lo = leg.Strike
		}
		if leg.Strike > hi {
			hi = leg.Strike
		}
	}
	return lo, hi
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
