package strategy

import (
	"math"

	"optionedge/internal/models"
)

// ModelParams holds the tunable constants of the probability and
// expected-value model. The defaults mirror long-standing practice but are
// deliberately configurable rather than hard-coded.
type ModelParams struct {
	// IVHVRatioCap bounds how far implied vol may exceed the realized vol
	// used for sigma, avoiding pathological probability inflation.
	IVHVRatioCap float64
	// UnlimitedLossMultiplier scales the 1-sigma expected move into the
	// proxy loss used for unlimited-risk structures.
	UnlimitedLossMultiplier float64
}

// DefaultModelParams returns the standard model constants.
func DefaultModelParams() ModelParams {
	return ModelParams{
		IVHVRatioCap:            4.0,
		UnlimitedLossMultiplier: 2.5,
	}
}

// deltaPoP is the delta-implied probability of profit. Net-credit
// structures use 1 minus the summed absolute short-leg deltas, clamped to
// [0, 1]; net-debit structures use the absolute delta of the first long
// leg.
func deltaPoP(card *models.StrategyCard) float64 {
	if card.NetCredit != nil {
		shortDelta := 0.0
		for _, leg := range card.Legs {
			if leg.Side == models.SideSell {
				shortDelta += math.Abs(leg.Greeks.Delta)
			}
		}
		return clamp01(1 - shortDelta)
	}
	for _, leg := range card.Legs {
		if leg.Side == models.SideBuy {
			return clamp01(math.Abs(leg.Greeks.Delta))
		}
	}
	return 0
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// cappedHV applies the IV/HV ratio cap to a realized-volatility input.
func cappedHV(iv, hv float64, params ModelParams) float64 {
	if hv <= 0 {
		return 0
	}
	if iv > 0 && params.IVHVRatioCap > 0 && iv/hv > params.IVHVRatioCap {
		hv = iv / params.IVHVRatioCap
	}
	return hv
}

// proxyHV is the volatility used for the unlimited-risk loss proxy. Unlike
// the probability sigma it falls back to implied vol when no realized vol
// is available.
func proxyHV(iv, hv float64, params ModelParams) float64 {
	if hv <= 0 {
		hv = iv
	}
	return cappedHV(iv, hv, params)
}

// volAdjustedPoP models the terminal distribution as normal with standard
// deviation spot * HV * sqrt(dte/365) and integrates the profitable region
// between the breakevens. It returns nil when the model cannot be applied,
// in which case the delta-based probability stands unchanged.
func volAdjustedPoP(card *models.StrategyCard, snap *models.ChainSnapshot, params ModelParams) *float64 {
	if card.NetCredit == nil {
		return nil
	}
	hv := cappedHV(snap.IV30, snap.HV30, params)
	if hv <= 0 || card.DTE <= 0 || snap.SpotPrice <= 0 {
		// No usable realized vol: the delta-based probability stands.
		return nil
	}
	sigma := snap.SpotPrice * hv * math.Sqrt(float64(card.DTE)/365)
	if sigma <= 0 || len(card.Breakevens) == 0 {
		return nil
	}

	spot := snap.SpotPrice
	shortPut := card.ShortPut()
	shortCall := card.ShortCall()

	var pop float64
	switch {
	case shortPut && shortCall:
		if len(card.Breakevens) < 2 {
			return nil
		}
		lower := card.Breakevens[0]
		upper := card.Breakevens[len(card.Breakevens)-1]
		zDown := (spot - lower) / sigma
		zUp := (upper - spot) / sigma
		pop = normCDF(zDown) + normCDF(zUp) - 1
	case shortPut:
		pop = normCDF((spot - card.Breakevens[0]) / sigma)
	case shortCall:
		pop = normCDF((card.Breakevens[0] - spot) / sigma)
	default:
		return nil
	}

	pop = clamp01(pop)
	return &pop
}

// Enrich fills in the volatility-adjusted probability and the expected
// value of a card. This is one of the two sanctioned post-construction
// mutations; the other is ranking-driven relabeling.
func Enrich(card *models.StrategyCard, snap *models.ChainSnapshot, params ModelParams) {
	if card.Kind.IsCreditFamily() {
		vp := volAdjustedPoP(card, snap, params)
		if vp == nil {
			// Fallback path: keep the field populated for premium
			// sellers but equal to the delta-based probability.
			fallback := card.PoP
			vp = &fallback
		}
		card.VolAdjustedPoP = vp
	}

	pop := card.PoP
	if card.Kind.IsCreditFamily() && card.VolAdjustedPoP != nil {
		pop = *card.VolAdjustedPoP
	}

	effLoss := 0.0
	switch {
	case card.MaxLoss != nil && *card.MaxLoss > 0:
		effLoss = *card.MaxLoss
	case card.UnlimitedRisk:
		// Naked structures have no defined max loss; substitute a
		// multiple of the 1-sigma expected move so expected value stays
		// meaningful.
		hv := proxyHV(snap.IV30, snap.HV30, params)
		if hv > 0 && card.DTE > 0 {
			effLoss = snap.SpotPrice * hv * math.Sqrt(float64(card.DTE)/365) *
				params.UnlimitedLossMultiplier * contractMultiplier
		}
	}

	card.EffectiveRisk = effLoss
	if effLoss <= 0 {
		card.EV = 0
		card.EVPerRisk = 0
		return
	}
	card.EV = pop*card.MaxProfit - (1-pop)*effLoss
	card.EVPerRisk = card.EV / effLoss
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
