package strategy

import (
	"math"
	"testing"

	"optionedge/internal/models"
)

func testSnapshot(ivRank, iv30, hv30 float64) *models.ChainSnapshot {
	return &models.ChainSnapshot{
		Symbol:     "XYZ",
		SpotPrice:  100,
		IVRank:     ivRank,
		Expiration: "2026-10-16",
		DTE:        45,
		IV30:       iv30,
		HV30:       hv30,
	}
}

func creditSpreadCard(snap *models.ChainSnapshot, shortDelta float64) *models.StrategyCard {
	legs := []models.Leg{
		leg(models.OptionPut, models.SideSell, 90, 1.20, shortDelta),
		leg(models.OptionPut, models.SideBuy, 85, 0.40, shortDelta/2),
	}
	return NewCard(models.KindPutCreditSpread, legs, snap)
}

func TestDeltaPoPCreditSpread(t *testing.T) {
	snap := testSnapshot(0.60, 0.30, 0.25)
	card := creditSpreadCard(snap, 0.30)
	if math.Abs(card.PoP-0.70) > 1e-9 {
		t.Errorf("PoP = %v, want 0.70 (1 - short delta)", card.PoP)
	}
}

func TestDeltaPoPDebitSpread(t *testing.T) {
	snap := testSnapshot(0.30, 0.30, 0.25)
	legs := []models.Leg{
		leg(models.OptionCall, models.SideBuy, 100, 3.20, 0.50),
		leg(models.OptionCall, models.SideSell, 105, 1.80, 0.30),
	}
	card := NewCard(models.KindBullCallSpread, legs, snap)
	if math.Abs(card.PoP-0.50) > 1e-9 {
		t.Errorf("PoP = %v, want the 0.50 long delta", card.PoP)
	}
}

func TestDeltaPoPClamped(t *testing.T) {
	snap := testSnapshot(0.60, 0.30, 0.25)
	legs := []models.Leg{
		leg(models.OptionPut, models.SideSell, 100, 3.00, 0.60),
		leg(models.OptionCall, models.SideSell, 100, 3.20, 0.60),
	}
	card := NewCard(models.KindShortStraddle, legs, snap)
	if card.PoP < 0 || card.PoP > 1 {
		t.Errorf("PoP = %v, must stay in [0, 1]", card.PoP)
	}
	if card.PoP != 0 {
		t.Errorf("PoP = %v, want 0 when short deltas sum past 1", card.PoP)
	}
}

func TestEnrichFallbackWithoutRealizedVol(t *testing.T) {
	// No realized vol available: the vol-adjusted probability must fall back
	// to exactly the delta-based value, implied vol notwithstanding.
	snap := testSnapshot(0.60, 0.40, 0)
	card := creditSpreadCard(snap, 0.30)
	Enrich(card, snap, DefaultModelParams())

	if card.VolAdjustedPoP == nil {
		t.Fatal("credit family card should always carry a vol-adjusted PoP")
	}
	if *card.VolAdjustedPoP != card.PoP {
		t.Errorf("fallback vol-adjusted PoP = %v, want exactly the delta PoP %v",
			*card.VolAdjustedPoP, card.PoP)
	}
}

func TestEnrichVolAdjustedTwoSided(t *testing.T) {
	snap := testSnapshot(0.60, 0.30, 0.25)
	legs := []models.Leg{
		leg(models.OptionPut, models.SideSell, 90, 0.55, 0.20),
		leg(models.OptionPut, models.SideBuy, 85, 0.35, 0.10),
		leg(models.OptionCall, models.SideSell, 115, 0.55, 0.16),
		leg(models.OptionCall, models.SideBuy, 120, 0.35, 0.10),
	}
	card := NewCard(models.KindIronCondor, legs, snap)
	Enrich(card, snap, DefaultModelParams())

	if card.VolAdjustedPoP == nil {
		t.Fatal("vol-adjusted PoP should be computed with realized vol present")
	}
	vp := *card.VolAdjustedPoP
	if vp < 0 || vp > 1 {
		t.Fatalf("vol-adjusted PoP = %v, must stay in [0, 1]", vp)
	}

	// Hand-computed: sigma = 100 * 0.25 * sqrt(45/365), profitable region
	// between the two breakevens.
	sigma := 100 * 0.25 * math.Sqrt(45.0/365.0)
	lower := card.Breakevens[0]
	upper := card.Breakevens[len(card.Breakevens)-1]
	want := normCDF((100-lower)/sigma) + normCDF((upper-100)/sigma) - 1
	if math.Abs(vp-want) > 1e-9 {
		t.Errorf("vol-adjusted PoP = %v, want %v", vp, want)
	}
}

func TestEnrichSkipsVolAdjustedForDebit(t *testing.T) {
	snap := testSnapshot(0.30, 0.30, 0.25)
	legs := []models.Leg{
		leg(models.OptionCall, models.SideBuy, 100, 3.20, 0.50),
		leg(models.OptionCall, models.SideSell, 105, 1.80, 0.30),
	}
	card := NewCard(models.KindBullCallSpread, legs, snap)
	Enrich(card, snap, DefaultModelParams())

	if card.VolAdjustedPoP != nil {
		t.Error("debit families keep the delta-based probability only")
	}
}

func TestCappedHV(t *testing.T) {
	params := DefaultModelParams()
	if got := cappedHV(0.80, 0.10, params); math.Abs(got-0.20) > 1e-9 {
		t.Errorf("capped HV = %v, want 0.20 (IV/4)", got)
	}
	if got := cappedHV(0.30, 0.25, params); got != 0.25 {
		t.Errorf("uncapped HV = %v, want 0.25 unchanged", got)
	}
	if got := cappedHV(0.30, 0, params); got != 0 {
		t.Errorf("cappedHV with no realized vol = %v, want 0 (no IV fallback)", got)
	}
}

func TestProxyHVFallsBackToImplied(t *testing.T) {
	params := DefaultModelParams()
	if got := proxyHV(0.40, 0, params); math.Abs(got-0.40) > 1e-9 {
		t.Errorf("proxy HV = %v, want the 0.40 implied vol", got)
	}
}

func TestEnrichUnlimitedRiskUsesProxyLoss(t *testing.T) {
	snap := testSnapshot(0.70, 0.30, 0.25)
	legs := []models.Leg{
		leg(models.OptionPut, models.SideSell, 90, 0.55, 0.20),
		leg(models.OptionCall, models.SideSell, 110, 1.00, 0.25),
	}
	card := NewCard(models.KindShortStrangle, legs, snap)
	Enrich(card, snap, DefaultModelParams())

	want := 100 * 0.25 * math.Sqrt(45.0/365.0) * 2.5 * 100
	if math.Abs(card.EffectiveRisk-want) > 1e-6 {
		t.Errorf("effective risk = %v, want proxy %v", card.EffectiveRisk, want)
	}
	if card.EV == 0 && card.EffectiveRisk > 0 {
		t.Error("EV should be computed against the proxy loss")
	}
}

func TestEnrichNoVolNoRiskMeansZeroEV(t *testing.T) {
	snap := testSnapshot(0.70, 0, 0)
	legs := []models.Leg{
		leg(models.OptionPut, models.SideSell, 90, 0.55, 0.20),
		leg(models.OptionCall, models.SideSell, 110, 1.00, 0.25),
	}
	card := NewCard(models.KindShortStrangle, legs, snap)
	Enrich(card, snap, DefaultModelParams())

	if card.EV != 0 || card.EVPerRisk != 0 {
		t.Errorf("EV = %v, EV/risk = %v; want both 0 when no loss estimate exists",
			card.EV, card.EVPerRisk)
	}
}

func TestEnrichEVArithmetic(t *testing.T) {
	snap := testSnapshot(0.60, 0.40, 0) // forces the delta-PoP fallback basis
	card := creditSpreadCard(snap, 0.30)
	Enrich(card, snap, DefaultModelParams())

	if card.MaxLoss == nil {
		t.Fatal("defined-risk spread must have a max loss")
	}
	want := 0.70*card.MaxProfit - 0.30**card.MaxLoss
	if math.Abs(card.EV-want) > 1e-6 {
		t.Errorf("EV = %v, want %v", card.EV, want)
	}
	if math.Abs(card.EVPerRisk-want/ *card.MaxLoss) > 1e-9 {
		t.Errorf("EV/risk = %v, want %v", card.EVPerRisk, want/ *card.MaxLoss)
	}
}
