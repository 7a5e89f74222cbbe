package strategy

import (
	"testing"

	"optionedge/internal/models"
)

func quote(bid, ask, delta float64) models.SideQuote {
	return models.SideQuote{Bid: &bid, Ask: &ask, Delta: delta}
}

// ladderSnapshot builds a clean nine-strike chain around spot 100 with
// monotone deltas and tight quotes on both sides.
func ladderSnapshot(ivRank float64) *models.ChainSnapshot {
	type row struct {
		strike    float64
		callBid   float64
		callAsk   float64
		callDelta float64
		putBid    float64
		putAsk    float64
		putDelta  float64
	}
	rows := []row{
		{80, 20.00, 20.40, 0.95, 0.10, 0.20, -0.05},
		{85, 15.20, 15.60, 0.90, 0.25, 0.35, -0.10},
		{90, 10.60, 11.00, 0.80, 0.55, 0.65, -0.20},
		{95, 6.40, 6.70, 0.65, 1.20, 1.30, -0.35},
		{100, 3.00, 3.20, 0.50, 2.80, 3.00, -0.50},
		{105, 1.80, 1.90, 0.35, 6.30, 6.60, -0.65},
		{110, 1.00, 1.10, 0.25, 10.50, 10.90, -0.75},
		{115, 0.55, 0.65, 0.16, 15.10, 15.50, -0.84},
		{120, 0.25, 0.35, 0.10, 19.90, 20.30, -0.90},
	}

	strikes := make([]models.StrikeRecord, 0, len(rows))
	for _, r := range rows {
		strikes = append(strikes, models.StrikeRecord{
			Strike: r.strike,
			Call:   quote(r.callBid, r.callAsk, r.callDelta),
			Put:    quote(r.putBid, r.putAsk, r.putDelta),
		})
	}
	return &models.ChainSnapshot{
		Symbol:     "XYZ",
		SpotPrice:  100,
		IVRank:     ivRank,
		Expiration: "2026-10-16",
		DTE:        45,
		IV30:       0.32,
		HV30:       0.25,
		Strikes:    strikes,
	}
}

func TestGenerateHighIVRankFamilies(t *testing.T) {
	snap := ladderSnapshot(0.80)
	cards := NewGenerator(nil).Generate(snap)
	if len(cards) == 0 {
		t.Fatal("high IV rank should produce premium-selling candidates")
	}

	kinds := make(map[models.StrategyKind]bool)
	for _, card := range cards {
		kinds[card.Kind] = true
	}
	if !kinds[models.KindIronCondor] {
		t.Error("expected an iron condor in the high-rank regime")
	}
	if !kinds[models.KindShortStrangle] {
		t.Error("expected a short strangle in the high-rank regime")
	}
	if kinds[models.KindLongStraddle] || kinds[models.KindLongStrangle] {
		t.Error("volatility buying does not belong in the high-rank regime")
	}
}

func TestGenerateMidIVRankFamilies(t *testing.T) {
	snap := ladderSnapshot(0.35)
	cards := NewGenerator(nil).Generate(snap)

	kinds := make(map[models.StrategyKind]bool)
	for _, card := range cards {
		kinds[card.Kind] = true
	}
	if !kinds[models.KindBullCallSpread] {
		t.Error("expected a bull call spread in the mid-rank regime")
	}
	if kinds[models.KindShortStrangle] {
		t.Error("naked strangles do not belong in the mid-rank regime")
	}
}

func TestGenerateLowIVRankFamilies(t *testing.T) {
	snap := ladderSnapshot(0.10)
	cards := NewGenerator(nil).Generate(snap)

	kinds := make(map[models.StrategyKind]bool)
	for _, card := range cards {
		kinds[card.Kind] = true
	}
	if !kinds[models.KindLongStraddle] {
		t.Error("expected a long straddle in the low-rank regime")
	}
	if kinds[models.KindIronCondor] {
		t.Error("premium selling does not belong in the low-rank regime")
	}
}

func TestGenerateTooFewStrikes(t *testing.T) {
	snap := ladderSnapshot(0.80)
	snap.Strikes = snap.Strikes[:2]
	if cards := NewGenerator(nil).Generate(snap); cards != nil {
		t.Errorf("expected nil with fewer than 3 usable strikes, got %d cards", len(cards))
	}
}

func TestIronCondorStructure(t *testing.T) {
	snap := ladderSnapshot(0.80)
	card := NewGenerator(nil).IronCondor(snap)
	if card == nil {
		t.Fatal("expected a condor from the full ladder")
	}
	if len(card.Legs) != 4 {
		t.Fatalf("condor has %d legs, want 4", len(card.Legs))
	}
	if card.NetCredit == nil || *card.NetCredit <= 0 {
		t.Error("condor must collect a net credit")
	}
	if card.MaxLoss == nil || *card.MaxLoss <= 0 {
		t.Error("condor must have defined risk")
	}

	// Wings sit exactly one strike outside the shorts.
	var shortPut, longPut, shortCall, longCall float64
	for _, l := range card.Legs {
		switch {
		case l.Type == models.OptionPut && l.Side == models.SideSell:
			shortPut = l.Strike
		case l.Type == models.OptionPut && l.Side == models.SideBuy:
			longPut = l.Strike
		case l.Type == models.OptionCall && l.Side == models.SideSell:
			shortCall = l.Strike
		case l.Type == models.OptionCall && l.Side == models.SideBuy:
			longCall = l.Strike
		}
	}
	if longPut >= shortPut || shortCall >= longCall || shortPut >= shortCall {
		t.Errorf("condor strikes out of order: %v < %v < %v < %v expected",
			longPut, shortPut, shortCall, longCall)
	}
}

func TestIronCondorSellsSixteenDeltaLegs(t *testing.T) {
	// Both sides carry an exact 0.16-delta strike, and the neighboring
	// deltas are far enough away that every scan bucket resolves to it.
	strikes := []models.StrikeRecord{
		{Strike: 80, Call: quote(21.00, 21.40, 0.97), Put: quote(0.10, 0.20, -0.07)},
		{Strike: 90, Call: quote(11.00, 11.40, 0.85), Put: quote(0.60, 0.70, -0.16)},
		{Strike: 100, Call: quote(3.00, 3.20, 0.45), Put: quote(2.80, 3.00, -0.45)},
		{Strike: 110, Call: quote(0.60, 0.70, 0.16), Put: quote(9.80, 10.20, -0.80)},
		{Strike: 120, Call: quote(0.15, 0.25, 0.08), Put: quote(19.90, 20.30, -0.92)},
	}
	snap := &models.ChainSnapshot{
		Symbol:     "XYZ",
		SpotPrice:  100,
		IVRank:     0.80,
		Expiration: "2026-10-16",
		DTE:        45,
		IV30:       0.32,
		HV30:       0.25,
		Strikes:    strikes,
	}

	card := NewGenerator(nil).IronCondor(snap)
	if card == nil {
		t.Fatal("expected a condor from this ladder")
	}

	var shortPut, shortCall float64
	for _, l := range card.Legs {
		if l.Side != models.SideSell {
			continue
		}
		if l.Type == models.OptionPut {
			shortPut = l.Strike
		} else {
			shortCall = l.Strike
		}
	}
	if shortPut != 90 || shortCall != 110 {
		t.Errorf("shorts = %v/%v, want the 0.16-delta strikes 90/110", shortPut, shortCall)
	}
	if card.NetCredit == nil || *card.NetCredit <= 0 {
		t.Error("condor must collect a net credit")
	}
}

func TestCreditSpreadKeepsBetterSide(t *testing.T) {
	snap := ladderSnapshot(0.80)
	card := NewGenerator(nil).CreditSpread(snap)
	if card == nil {
		t.Fatal("expected a credit spread from the full ladder")
	}
	if card.Kind != models.KindPutCreditSpread && card.Kind != models.KindCallCreditSpread {
		t.Errorf("unexpected kind %v", card.Kind)
	}
	if len(card.Legs) != 2 {
		t.Fatalf("spread has %d legs, want 2", len(card.Legs))
	}
	if card.NetCredit == nil || *card.NetCredit <= 0 {
		t.Error("credit spread must collect a net credit")
	}
}

func TestBullCallSpreadFixedDeltas(t *testing.T) {
	snap := ladderSnapshot(0.35)
	card := NewGenerator(nil).BullCallSpread(snap)
	if card == nil {
		t.Fatal("expected a bull call spread")
	}
	if card.NetDebit == nil || *card.NetDebit <= 0 {
		t.Fatal("bull call spread pays a debit")
	}
	// 50-delta long at 100, 35-delta short at 105 on this ladder.
	if card.Legs[0].Strike != 100 || card.Legs[1].Strike != 105 {
		t.Errorf("strikes = %v/%v, want 100/105", card.Legs[0].Strike, card.Legs[1].Strike)
	}
}

func TestJadeLizardNoUpsideRisk(t *testing.T) {
	snap := ladderSnapshot(0.80)
	card := NewGenerator(nil).JadeLizard(snap)
	if card == nil {
		t.Fatal("expected a jade lizard from the full ladder")
	}
	if len(card.Legs) != 3 {
		t.Fatalf("jade lizard has %d legs, want 3", len(card.Legs))
	}
	if !card.UnlimitedRisk {
		t.Error("the naked put leaves downside risk open")
	}
}

func TestFindByDelta(t *testing.T) {
	snap := ladderSnapshot(0.80)

	idx, ok := findByDelta(snap.Strikes, models.OptionCall, 0.16)
	if !ok || snap.Strikes[idx].Strike != 115 {
		t.Errorf("call 0.16 target picked strike %v, want 115", snap.Strikes[idx].Strike)
	}
	idx, ok = findByDelta(snap.Strikes, models.OptionPut, 0.16)
	if !ok || snap.Strikes[idx].Strike != 90 {
		t.Errorf("put 0.16 target picked strike %v, want 90", snap.Strikes[idx].Strike)
	}
}

func TestFindByDeltaSkipsUnusable(t *testing.T) {
	strikes := []models.StrikeRecord{
		{Strike: 90, Put: models.SideQuote{Delta: -0.20}}, // no price
		{Strike: 95, Put: quote(1.00, 1.10, 0)},           // no delta
		{Strike: 100, Put: quote(2.80, 3.00, -0.50)},
	}
	idx, ok := findByDelta(strikes, models.OptionPut, 0.20)
	if !ok || strikes[idx].Strike != 100 {
		t.Error("unpriced and zero-delta strikes must be skipped")
	}
}

func TestFindByDeltaTieKeepsFirst(t *testing.T) {
	strikes := []models.StrikeRecord{
		{Strike: 90, Put: quote(0.50, 0.60, -0.25)},
		{Strike: 95, Put: quote(1.00, 1.10, -0.35)},
	}
	// 0.30 is equidistant from both; the strict comparison keeps strike 90.
	idx, ok := findByDelta(strikes, models.OptionPut, 0.30)
	if !ok || strikes[idx].Strike != 90 {
		t.Error("delta ties should keep the first strike in ascending order")
	}
}

func TestBuildCustomStrategy(t *testing.T) {
	snap := ladderSnapshot(0.60)
	card, err := BuildCustom(snap, []CustomLeg{
		{Strike: 90, Type: models.OptionPut, Side: models.SideSell},
		{Strike: 85, Type: models.OptionPut, Side: models.SideBuy},
	})
	if err != nil {
		t.Fatalf("BuildCustom: %v", err)
	}
	if card.Kind != models.KindCustom {
		t.Errorf("kind = %v, want custom", card.Kind)
	}
	if card.NetCredit == nil {
		t.Error("this leg set collects a credit")
	}

	if _, err := BuildCustom(snap, []CustomLeg{
		{Strike: 91, Type: models.OptionPut, Side: models.SideSell},
	}); err == nil {
		t.Error("unknown strike must be rejected")
	}
	if _, err := BuildCustom(snap, nil); err == nil {
		t.Error("empty leg set must be rejected")
	}
}
