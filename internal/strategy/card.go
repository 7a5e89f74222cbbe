package strategy

import "optionedge/internal/models"

// NewCard assembles a strategy card from constructed legs: payoff analysis,
// delta-based probability of profit, and the wide-spread flag. Expected
// value and the volatility-adjusted probability are filled in later by
// Enrich.
func NewCard(kind models.StrategyKind, legs []models.Leg, snap *models.ChainSnapshot) *models.StrategyCard {
	p := ComputePayoff(legs, snap.SpotPrice)

	card := &models.StrategyCard{
		Kind:            kind,
		Name:            kind.String(),
		Legs:            legs,
		Expiration:      snap.Expiration,
		DTE:             snap.DTE,
		NetCredit:       p.NetCredit,
		NetDebit:        p.NetDebit,
		MaxProfit:       p.MaxProfit,
		MaxLoss:         p.MaxLoss,
		Breakevens:      p.Breakevens,
		Greeks:          p.Greeks,
		ThetaPerDay:     p.ThetaPerDay,
		UnlimitedRisk:   p.UnlimitedRisk,
		UnlimitedProfit: p.UnlimitedProfit,
		Payoff:          p.Curve,
		RiskReward:      p.RiskReward,
	}
	card.PoP = deltaPoP(card)
	for _, leg := range legs {
		if leg.WideSpread {
			card.WideSpread = true
			break
		}
	}
	return card
}
