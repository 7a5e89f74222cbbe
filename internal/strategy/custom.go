package strategy

import (
	"fmt"

	"optionedge/internal/models"
)

// CustomLeg describes one leg of a user-defined strategy by strike rather
// than by delta target.
type CustomLeg struct {
	Strike float64
	Type   models.OptionType
	Side   models.Side
}

// BuildCustom prices an arbitrary leg set against the snapshot and runs it
// through the same payoff and probability machinery as the generated
// families. The card ranks and gates like any other candidate.
func BuildCustom(snap *models.ChainSnapshot, specs []CustomLeg) (*models.StrategyCard, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("custom strategy needs at least one leg")
	}

	legs := make([]models.Leg, 0, len(specs))
	for _, spec := range specs {
		rec, ok := strikeAt(snap.Strikes, spec.Strike)
		if !ok {
			return nil, fmt.Errorf("strike %.2f not in chain", spec.Strike)
		}
		leg, ok := BuildLeg(rec, spec.Type, spec.Side)
		if !ok {
			return nil, fmt.Errorf("no usable %s quote at strike %.2f", spec.Type, spec.Strike)
		}
		legs = append(legs, leg)
	}
	return NewCard(models.KindCustom, legs, snap), nil
}

func strikeAt(strikes []models.StrikeRecord, strike float64) (models.StrikeRecord, bool) {
	for _, rec := range strikes {
		if rec.Strike == strike {
			return rec, true
		}
	}
	return models.StrikeRecord{}, false
}
