// Package strategy builds and evaluates multi-leg option strategies: leg
// construction, payoff analysis, probability and expected-value modeling,
// candidate generation, and the gate/ranking pipeline.
package strategy

import "optionedge/internal/models"

// BuildLeg constructs a priced leg from a strike record, or reports false
// when the required price is missing. Sells are priced at the bid, buys at
// the ask. Greeks come from the matching side, default to 0 when absent,
// and are negated for sells.
func BuildLeg(rec models.StrikeRecord, typ models.OptionType, side models.Side) (models.Leg, bool) {
	quote := rec.Put
	if typ == models.OptionCall {
		quote = rec.Call
	}

	var price *float64
	if side == models.SideSell {
		price = quote.Bid
	} else {
		price = quote.Ask
	}
	if price == nil || *price <= 0 {
		return models.Leg{}, false
	}

	greeks := models.Greeks{
		Delta: quote.Delta,
		Gamma: quote.Gamma,
		Theta: quote.Theta,
		Vega:  quote.Vega,
	}
	if side == models.SideSell {
		greeks.Delta = -greeks.Delta
		greeks.Gamma = -greeks.Gamma
		greeks.Theta = -greeks.Theta
		greeks.Vega = -greeks.Vega
	}

	return models.Leg{
		Type:       typ,
		Side:       side,
		Strike:     rec.Strike,
		Price:      *price,
		Greeks:     greeks,
		WideSpread: quote.WideSpread,
	}, true
}
