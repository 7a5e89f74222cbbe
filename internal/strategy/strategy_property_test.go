package strategy

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"optionedge/internal/models"
)

// Property: for any priced leg set, the payoff analysis keeps its structural
// invariants: exactly one of credit/debit is set, max loss exists exactly
// when risk is bounded, and breakevens come out sorted.

func legGen() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(50, 150),  // strike
		gen.Float64Range(0.05, 20), // price
		gen.Float64Range(0.01, 0.99),
		gen.Bool(), // call?
		gen.Bool(), // sell?
	).Map(func(vals []interface{}) models.Leg {
		strike := vals[0].(float64)
		price := vals[1].(float64)
		delta := vals[2].(float64)
		isCall := vals[3].(bool)
		isSell := vals[4].(bool)

		typ := models.OptionPut
		if isCall {
			typ = models.OptionCall
		}
		side := models.SideBuy
		if isSell {
			side = models.SideSell
			delta = -delta
		}
		if typ == models.OptionPut {
			delta = -delta
		}
		return models.Leg{Type: typ, Side: side, Strike: strike, Price: price,
			Greeks: models.Greeks{Delta: delta}}
	})
}

func legsGen() gopter.Gen {
	return gen.SliceOfN(4, legGen()).Map(func(legs []models.Leg) []models.Leg {
		if len(legs) == 0 {
			legs = append(legs, models.Leg{
				Type: models.OptionPut, Side: models.SideSell, Strike: 100, Price: 1,
				Greeks: models.Greeks{Delta: -0.3},
			})
		}
		return legs
	})
}

func TestProperty_PayoffStructuralInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("exactly one of credit and debit is set", prop.ForAll(
		func(legs []models.Leg) bool {
			p := ComputePayoff(legs, 100)
			return (p.NetCredit != nil) != (p.NetDebit != nil)
		},
		legsGen(),
	))

	properties.Property("max loss is defined exactly when risk is bounded", prop.ForAll(
		func(legs []models.Leg) bool {
			p := ComputePayoff(legs, 100)
			if p.UnlimitedRisk {
				return p.MaxLoss == nil
			}
			return p.MaxLoss != nil && *p.MaxLoss >= 0
		},
		legsGen(),
	))

	properties.Property("bounded max loss covers every sampled point", prop.ForAll(
		func(legs []models.Leg) bool {
			p := ComputePayoff(legs, 100)
			if p.MaxLoss == nil {
				return true
			}
			for _, pt := range p.Curve {
				if pt.PnL < -*p.MaxLoss-1e-6 {
					return false
				}
			}
			return true
		},
		legsGen(),
	))

	properties.Property("breakevens are sorted ascending", prop.ForAll(
		func(legs []models.Leg) bool {
			p := ComputePayoff(legs, 100)
			return sort.Float64sAreSorted(p.Breakevens)
		},
		legsGen(),
	))

	properties.TestingRun(t)
}

func TestProperty_ProbabilityWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("delta PoP and EV enrichment stay well-formed", prop.ForAll(
		func(legs []models.Leg, iv, hv float64) bool {
			snap := &models.ChainSnapshot{
				Symbol: "XYZ", SpotPrice: 100, IVRank: 0.5,
				Expiration: "2026-10-16", DTE: 45, IV30: iv, HV30: hv,
			}
			card := NewCard(models.KindIronCondor, legs, snap)
			Enrich(card, snap, DefaultModelParams())

			if card.PoP < 0 || card.PoP > 1 {
				return false
			}
			if card.VolAdjustedPoP != nil &&
				(*card.VolAdjustedPoP < 0 || *card.VolAdjustedPoP > 1) {
				return false
			}
			if math.IsNaN(card.EV) || math.IsInf(card.EV, 0) {
				return false
			}
			if card.EffectiveRisk <= 0 && (card.EV != 0 || card.EVPerRisk != 0) {
				return false
			}
			return true
		},
		legsGen(),
		gen.Float64Range(0, 2),
		gen.Float64Range(0, 2),
	))

	properties.TestingRun(t)
}

func TestProperty_RankLabelsUniqueAndOrdered(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("labels are unique over any rank range", prop.ForAll(
		func(n int) bool {
			seen := make(map[string]bool, n)
			for i := 0; i < n; i++ {
				label := rankLabel(i)
				if label == "" || seen[label] {
					return false
				}
				seen[label] = true
			}
			return true
		},
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t)
}
