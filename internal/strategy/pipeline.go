package strategy

import (
	"math"
	"sort"

	"optionedge/internal/models"
)

// creditEpsilon absorbs float noise at the minimum-credit boundary so a
// credit of exactly the floor is accepted.
const creditEpsilon = 1e-9

// PipelineParams holds the economics of the admission gates on top of the
// probability model constants.
type PipelineParams struct {
	Model ModelParams
	// MinCreditPerShare is the floor under any defined net credit,
	// in dollars per share.
	MinCreditPerShare float64
}

// DefaultPipelineParams returns the standard gate economics.
func DefaultPipelineParams() PipelineParams {
	return PipelineParams{
		Model:             DefaultModelParams(),
		MinCreditPerShare: 0.10,
	}
}

// Pipeline enriches candidates, applies the admission gates in order, and
// ranks the survivors.
type Pipeline struct {
	params  PipelineParams
	emitter Emitter
}

// NewPipeline creates a pipeline. A nil emitter disables diagnostics.
func NewPipeline(params PipelineParams, emitter Emitter) *Pipeline {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &Pipeline{params: params, emitter: emitter}
}

// Run filters and ranks the candidates. An empty result is a valid outcome,
// not an error: it means nothing survived gating. Gate rejections are
// emitted as events so they stay distinguishable from construction
// failures.
func (p *Pipeline) Run(snap *models.ChainSnapshot, cards []*models.StrategyCard) []*models.StrategyCard {
	survivors := make([]*models.StrategyCard, 0, len(cards))
	for _, card := range cards {
		Enrich(card, snap, p.params.Model)
		if !p.admit(card) {
			continue
		}
		survivors = append(survivors, card)
	}
	p.rank(survivors, snap)
	return survivors
}

// admit applies the three gates in order, emitting a verdict per gate.
func (p *Pipeline) admit(card *models.StrategyCard) bool {
	// Gate A: expected value, on the EV probability basis (volatility
	// adjusted for credit families).
	if card.EV <= 0 {
		p.reject(StageGateEV, card, "expected value not positive", map[string]float64{"ev": card.EV})
		return false
	}
	p.pass(StageGateEV, card, map[string]float64{"ev": card.EV})

	// Gate B: the conservative delta-based probability must clear the
	// per-family floor, deliberately decoupled from the EV gate's
	// volatility-adjusted basis.
	floor := popFloor(card.Kind)
	if card.PoP < floor {
		p.reject(StageGatePoP, card, "probability below family floor", map[string]float64{"pop": card.PoP, "floor": floor})
		return false
	}
	p.pass(StageGatePoP, card, map[string]float64{"pop": card.PoP, "floor": floor})

	// Gate C: credits below the floor are economic noise.
	if card.NetCredit != nil && *card.NetCredit < p.params.MinCreditPerShare-creditEpsilon {
		p.reject(StageGateCredit, card, "net credit below minimum", map[string]float64{"credit": *card.NetCredit})
		return false
	}
	p.pass(StageGateCredit, card, nil)
	return true
}

// popFloor is the Gate B probability floor, total over the strategy enum.
func popFloor(k models.StrategyKind) float64 {
	switch k {
	case models.KindIronCondor:
		return 0.50
	case models.KindPutCreditSpread, models.KindCallCreditSpread, models.KindJadeLizard:
		return 0.55
	case models.KindShortStrangle, models.KindShortStraddle:
		return 0.60
	case models.KindBullCallSpread, models.KindDebitSpread:
		return 0.30
	case models.KindLongStraddle, models.KindLongStrangle:
		return 0.25
	case models.KindCustom:
		return 0.40
	default:
		return 0.40
	}
}

// rank orders survivors by the composite score and relabels them so labels
// always reflect final rank, not generation order. The sort is stable:
// ties keep their original order.
func (p *Pipeline) rank(cards []*models.StrategyCard, snap *models.ChainSnapshot) {
	for _, card := range cards {
		card.Score = compositeScore(card, snap)
	}
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Score > cards[j].Score
	})
	for i, card := range cards {
		card.Label = rankLabel(i)
		p.emitter.Emit(Event{
			Stage:    StageRank,
			Strategy: card.Name,
			Verdict:  VerdictPass,
			Metrics:  map[string]float64{"rank": float64(i + 1), "score": card.Score},
		})
	}
}

// compositeScore blends EV efficiency, theta efficiency, and the
// volatility edge: 50x EV per risk, 30x theta-per-day yield on effective
// risk, 20x the IV-over-HV edge ratio.
func compositeScore(card *models.StrategyCard, snap *models.ChainSnapshot) float64 {
	score := 50 * card.EVPerRisk
	if card.EffectiveRisk > 0 {
		score += 30 * (math.Abs(card.ThetaPerDay) / card.EffectiveRisk * 100)
	}
	score += 20 * edgeRatio(snap.IV30, snap.HV30)
	return score
}

// edgeRatio is the premium of implied over realized volatility, zero when
// IV is absent or below HV.
func edgeRatio(iv, hv float64) float64 {
	if iv <= 0 {
		return 0
	}
	return math.Max(0, iv-hv) / iv
}

// rankLabel maps a zero-based rank to "A", "B", ..., "Z", "AA", "AB", ...
func rankLabel(i int) string {
	label := ""
	for {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
		if i < 0 {
			return label
		}
	}
}

func (p *Pipeline) pass(stage string, card *models.StrategyCard, metrics map[string]float64) {
	p.emitter.Emit(Event{Stage: stage, Strategy: card.Name, Verdict: VerdictPass, Metrics: metrics})
}

func (p *Pipeline) reject(stage string, card *models.StrategyCard, reason string, metrics map[string]float64) {
	p.emitter.Emit(Event{Stage: stage, Strategy: card.Name, Verdict: VerdictReject, Reason: reason, Metrics: metrics})
}
