package strategy

import (
	"math"

	"optionedge/internal/models"
)

// Delta scan buckets per family, ascending. Directional and volatility
// buying families use fixed targets instead of a scan because the debit
// paid already bounds their risk.
var (
	condorDeltas   = []float64{0.10, 0.12, 0.16, 0.20, 0.25}
	spreadDeltas   = []float64{0.15, 0.20, 0.25, 0.30}
	strangleDeltas = []float64{0.10, 0.12, 0.16, 0.20, 0.25}
)

const (
	atmDelta         = 0.50
	wingDelta        = 0.30
	farWingDelta     = 0.15
	jadePutDelta     = 0.20
	jadeCallDelta    = 0.25
	minUsableStrikes = 3
)

// Generator searches the strike table for the best candidate per strategy
// family.
type Generator struct {
	emitter Emitter
}

// NewGenerator creates a generator. A nil emitter disables diagnostics.
func NewGenerator(emitter Emitter) *Generator {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &Generator{emitter: emitter}
}

// Generate builds candidate strategies for the snapshot. The families
// scanned depend on the IV-rank regime: premium selling in high rank,
// defined-risk income plus a directional spread mid-rank, and volatility
// buying in low rank. Returns nil when fewer than three strikes carry
// usable delta and price data.
func (g *Generator) Generate(snap *models.ChainSnapshot) []*models.StrategyCard {
	if usableStrikes(snap.Strikes) < minUsableStrikes {
		g.emitter.Emit(Event{
			Stage:   StageScan,
			Verdict: VerdictDiscard,
			Reason:  "fewer than 3 usable strikes",
		})
		return nil
	}

	var cards []*models.StrategyCard
	add := func(c *models.StrategyCard) {
		if c != nil {
			cards = append(cards, c)
		}
	}

	switch {
	case snap.IVRank > 0.50:
		add(g.IronCondor(snap))
		add(g.CreditSpread(snap))
		add(g.ShortStrangle(snap))
	case snap.IVRank >= 0.20:
		add(g.BullCallSpread(snap))
		add(g.IronCondor(snap))
		add(g.CreditSpread(snap))
	default:
		add(g.LongStraddle(snap))
		add(g.LongStrangle(snap))
		add(g.DebitSpread(snap))
	}
	return cards
}

// IronCondor scans the condor delta buckets for the best-scoring short
// put spread plus short call spread combination.
func (g *Generator) IronCondor(snap *models.ChainSnapshot) *models.StrategyCard {
	var best *models.StrategyCard
	bestScore := math.Inf(-1)

	for _, target := range condorDeltas {
		spIdx, ok := findByDelta(snap.Strikes, models.OptionPut, target)
		if !ok || spIdx == 0 {
			continue
		}
		scIdx, ok := findByDelta(snap.Strikes, models.OptionCall, target)
		if !ok || scIdx == len(snap.Strikes)-1 {
			continue
		}

		legs, ok := buildLegs(snap.Strikes, []legSpec{
			{spIdx, models.OptionPut, models.SideSell},
			{spIdx - 1, models.OptionPut, models.SideBuy},
			{scIdx, models.OptionCall, models.SideSell},
			{scIdx + 1, models.OptionCall, models.SideBuy},
		})
		if !ok {
			g.discard(models.KindIronCondor, "leg construction failed", target)
			continue
		}

		card := NewCard(models.KindIronCondor, legs, snap)
		if !creditViable(card) || card.MaxLoss == nil || *card.MaxLoss <= 0 {
			g.discard(models.KindIronCondor, "uneconomic candidate", target)
			continue
		}

		score := card.PoP * (card.MaxProfit / *card.MaxLoss)
		if score > bestScore {
			bestScore = score
			best = card
		}
	}
	return g.emitBest(best, bestScore)
}

// CreditSpread scans both put and call verticals and keeps the better side.
func (g *Generator) CreditSpread(snap *models.ChainSnapshot) *models.StrategyCard {
	var best *models.StrategyCard
	bestScore := math.Inf(-1)

	for _, target := range spreadDeltas {
		if idx, ok := findByDelta(snap.Strikes, models.OptionPut, target); ok && idx > 0 {
			legs, ok := buildLegs(snap.Strikes, []legSpec{
				{idx, models.OptionPut, models.SideSell},
				{idx - 1, models.OptionPut, models.SideBuy},
			})
			if ok {
				g.considerSpread(models.KindPutCreditSpread, legs, snap, &best, &bestScore)
			} else {
				g.discard(models.KindPutCreditSpread, "leg construction failed", target)
			}
		}
		if idx, ok := findByDelta(snap.Strikes, models.OptionCall, target); ok && idx < len(snap.Strikes)-1 {
			legs, ok := buildLegs(snap.Strikes, []legSpec{
				{idx, models.OptionCall, models.SideSell},
				{idx + 1, models.OptionCall, models.SideBuy},
			})
			if ok {
				g.considerSpread(models.KindCallCreditSpread, legs, snap, &best, &bestScore)
			} else {
				g.discard(models.KindCallCreditSpread, "leg construction failed", target)
			}
		}
	}
	return g.emitBest(best, bestScore)
}

func (g *Generator) considerSpread(kind models.StrategyKind, legs []models.Leg, snap *models.ChainSnapshot, best **models.StrategyCard, bestScore *float64) {
	card := NewCard(kind, legs, snap)
	if !creditViable(card) || card.MaxLoss == nil || *card.MaxLoss <= 0 {
		g.discard(kind, "uneconomic candidate", 0)
		return
	}
	score := card.PoP * (card.MaxProfit / *card.MaxLoss)
	if score > *bestScore {
		*bestScore = score
		*best = card
	}
}

// ShortStrangle scans for the best naked put plus naked call pair, scored
// by probability-weighted credit since risk is unbounded.
func (g *Generator) ShortStrangle(snap *models.ChainSnapshot) *models.StrategyCard {
	var best *models.StrategyCard
	bestScore := math.Inf(-1)

	for _, target := range strangleDeltas {
		spIdx, ok := findByDelta(snap.Strikes, models.OptionPut, target)
		if !ok {
			continue
		}
		scIdx, ok := findByDelta(snap.Strikes, models.OptionCall, target)
		if !ok {
			continue
		}
		legs, ok := buildLegs(snap.Strikes, []legSpec{
			{spIdx, models.OptionPut, models.SideSell},
			{scIdx, models.OptionCall, models.SideSell},
		})
		if !ok {
			g.discard(models.KindShortStrangle, "leg construction failed", target)
			continue
		}

		card := NewCard(models.KindShortStrangle, legs, snap)
		if !creditViable(card) {
			g.discard(models.KindShortStrangle, "uneconomic candidate", target)
			continue
		}
		score := card.PoP * *card.NetCredit * contractMultiplier
		if score > bestScore {
			bestScore = score
			best = card
		}
	}
	return g.emitBest(best, bestScore)
}

// BullCallSpread builds the fixed-delta directional debit spread: long the
// 50-delta call, short the 30-delta call above it.
func (g *Generator) BullCallSpread(snap *models.ChainSnapshot) *models.StrategyCard {
	return g.callDebitSpread(snap, models.KindBullCallSpread, atmDelta, wingDelta)
}

// DebitSpread is the low-IV flavor of the call debit spread, bought further
// out of the money.
func (g *Generator) DebitSpread(snap *models.ChainSnapshot) *models.StrategyCard {
	return g.callDebitSpread(snap, models.KindDebitSpread, wingDelta, farWingDelta)
}

func (g *Generator) callDebitSpread(snap *models.ChainSnapshot, kind models.StrategyKind, longDelta, shortDelta float64) *models.StrategyCard {
	buyIdx, ok := findByDelta(snap.Strikes, models.OptionCall, longDelta)
	if !ok {
		return nil
	}
	sellIdx, ok := findByDelta(snap.Strikes, models.OptionCall, shortDelta)
	if !ok || sellIdx <= buyIdx {
		g.discard(kind, "no short strike above long strike", shortDelta)
		return nil
	}
	legs, ok := buildLegs(snap.Strikes, []legSpec{
		{buyIdx, models.OptionCall, models.SideBuy},
		{sellIdx, models.OptionCall, models.SideSell},
	})
	if !ok {
		g.discard(kind, "leg construction failed", longDelta)
		return nil
	}
	card := NewCard(kind, legs, snap)
	if card.NetDebit == nil || *card.NetDebit <= 0 || card.MaxLoss == nil || *card.MaxLoss <= 0 {
		g.discard(kind, "uneconomic candidate", longDelta)
		return nil
	}
	return g.emitBest(card, card.PoP)
}

// LongStraddle buys the at-the-money call and put on the same strike.
func (g *Generator) LongStraddle(snap *models.ChainSnapshot) *models.StrategyCard {
	idx, ok := findByDelta(snap.Strikes, models.OptionCall, atmDelta)
	if !ok {
		return nil
	}
	legs, ok := buildLegs(snap.Strikes, []legSpec{
		{idx, models.OptionCall, models.SideBuy},
		{idx, models.OptionPut, models.SideBuy},
	})
	if !ok {
		g.discard(models.KindLongStraddle, "leg construction failed", atmDelta)
		return nil
	}
	card := NewCard(models.KindLongStraddle, legs, snap)
	if card.NetDebit == nil || *card.NetDebit <= 0 || card.MaxLoss == nil || *card.MaxLoss <= 0 {
		g.discard(models.KindLongStraddle, "uneconomic candidate", atmDelta)
		return nil
	}
	return g.emitBest(card, card.PoP)
}

// LongStrangle buys the 30-delta call and put.
func (g *Generator) LongStrangle(snap *models.ChainSnapshot) *models.StrategyCard {
	callIdx, ok := findByDelta(snap.Strikes, models.OptionCall, wingDelta)
	if !ok {
		return nil
	}
	putIdx, ok := findByDelta(snap.Strikes, models.OptionPut, wingDelta)
	if !ok {
		return nil
	}
	legs, ok := buildLegs(snap.Strikes, []legSpec{
		{callIdx, models.OptionCall, models.SideBuy},
		{putIdx, models.OptionPut, models.SideBuy},
	})
	if !ok {
		g.discard(models.KindLongStrangle, "leg construction failed", wingDelta)
		return nil
	}
	card := NewCard(models.KindLongStrangle, legs, snap)
	if card.NetDebit == nil || *card.NetDebit <= 0 || card.MaxLoss == nil || *card.MaxLoss <= 0 {
		g.discard(models.KindLongStrangle, "uneconomic candidate", wingDelta)
		return nil
	}
	return g.emitBest(card, card.PoP)
}

// JadeLizard sells a put and a call credit spread so total credit exceeds
// the call spread width, leaving no upside risk. Not part of the IV-rank
// dispatch; available to callers that want it explicitly.
func (g *Generator) JadeLizard(snap *models.ChainSnapshot) *models.StrategyCard {
	putIdx, ok := findByDelta(snap.Strikes, models.OptionPut, jadePutDelta)
	if !ok {
		return nil
	}
	callIdx, ok := findByDelta(snap.Strikes, models.OptionCall, jadeCallDelta)
	if !ok || callIdx == len(snap.Strikes)-1 {
		return nil
	}
	legs, ok := buildLegs(snap.Strikes, []legSpec{
		{putIdx, models.OptionPut, models.SideSell},
		{callIdx, models.OptionCall, models.SideSell},
		{callIdx + 1, models.OptionCall, models.SideBuy},
	})
	if !ok {
		g.discard(models.KindJadeLizard, "leg construction failed", jadePutDelta)
		return nil
	}
	card := NewCard(models.KindJadeLizard, legs, snap)
	if !creditViable(card) {
		g.discard(models.KindJadeLizard, "uneconomic candidate", jadePutDelta)
		return nil
	}
	return g.emitBest(card, card.PoP)
}

type legSpec struct {
	idx  int
	typ  models.OptionType
	side models.Side
}

func buildLegs(strikes []models.StrikeRecord, specs []legSpec) ([]models.Leg, bool) {
	legs := make([]models.Leg, 0, len(specs))
	for _, s := range specs {
		if s.idx < 0 || s.idx >= len(strikes) {
			return nil, false
		}
		leg, ok := BuildLeg(strikes[s.idx], s.typ, s.side)
		if !ok {
			return nil, false
		}
		legs = append(legs, leg)
	}
	return legs, true
}

func creditViable(card *models.StrategyCard) bool {
	return card.NetCredit != nil && *card.NetCredit > 0
}

// findByDelta returns the index of the strike whose delta magnitude on the
// given side is closest to the target. Ties keep the first strike found in
// ascending scan order. Sides without a usable price or delta are skipped.
func findByDelta(strikes []models.StrikeRecord, typ models.OptionType, target float64) (int, bool) {
	bestIdx := -1
	bestDiff := math.Inf(1)
	for i, rec := range strikes {
		quote := rec.Put
		if typ == models.OptionCall {
			quote = rec.Call
		}
		if quote.Delta == 0 || !quote.HasPrice() {
			continue
		}
		diff := math.Abs(math.Abs(quote.Delta) - target)
		if diff < bestDiff {
			bestDiff = diff
			bestIdx = i
		}
	}
	return bestIdx, bestIdx >= 0
}

func usableStrikes(strikes []models.StrikeRecord) int {
	count := 0
	for _, rec := range strikes {
		callOK := rec.Call.Delta != 0 && rec.Call.HasPrice()
		putOK := rec.Put.Delta != 0 && rec.Put.HasPrice()
		if callOK || putOK {
			count++
		}
	}
	return count
}

func (g *Generator) discard(kind models.StrategyKind, reason string, target float64) {
	ev := Event{
		Stage:    StageConstruct,
		Strategy: kind.String(),
		Verdict:  VerdictDiscard,
		Reason:   reason,
	}
	if target > 0 {
		ev.Metrics = map[string]float64{"target_delta": target}
	}
	g.emitter.Emit(ev)
}

func (g *Generator) emitBest(card *models.StrategyCard, score float64) *models.StrategyCard {
	if card == nil {
		return nil
	}
	g.emitter.Emit(Event{
		Stage:    StageConstruct,
		Strategy: card.Name,
		Verdict:  VerdictPass,
		Metrics:  map[string]float64{"score": score, "pop": card.PoP},
	})
	return card
}
