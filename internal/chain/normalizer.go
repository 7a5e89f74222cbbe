// Package chain converts raw market-data payloads into the normalized
// strike table. Nothing untyped flows past this package: quotes are repaired
// or nulled here and the rest of the pipeline only sees models.StrikeRecord.
package chain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"optionedge/internal/models"
)

// wideSpreadThreshold flags quotes whose spread exceeds half the midpoint.
const wideSpreadThreshold = 0.50

// RawStrike is one per-strike record as delivered by the market-data
// collaborator. Call and Put are untyped quote/Greeks maps keyed by the
// provider's field names.
type RawStrike struct {
	Strike float64        `json:"strike"`
	Call   map[string]any `json:"call"`
	Put    map[string]any `json:"put"`
}

// RawSnapshot is the wire shape of a chain snapshot.
type RawSnapshot struct {
	Symbol     string      `json:"symbol"`
	SpotPrice  float64     `json:"spot-price"`
	IVRank     float64     `json:"iv-rank"`
	Expiration string      `json:"expiration"`
	DTE        int         `json:"dte"`
	IV30       float64     `json:"iv30"`
	HV30       float64     `json:"hv30"`
	Strikes    []RawStrike `json:"strikes"`
}

// ParseSnapshot decodes and normalizes a raw chain snapshot.
func ParseSnapshot(data []byte) (*models.ChainSnapshot, error) {
	var raw RawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding chain snapshot: %w", err)
	}
	if raw.SpotPrice <= 0 {
		return nil, fmt.Errorf("chain snapshot for %q has no spot price", raw.Symbol)
	}
	return &models.ChainSnapshot{
		Symbol:     raw.Symbol,
		SpotPrice:  raw.SpotPrice,
		IVRank:     raw.IVRank,
		Expiration: raw.Expiration,
		DTE:        raw.DTE,
		IV30:       raw.IV30,
		HV30:       raw.HV30,
		Strikes:    Normalize(raw.Strikes),
	}, nil
}

// Normalize converts raw strike records into the uniform strike table,
// sorted ascending by strike. Degenerate quotes are repaired per side:
// a zero bid against a positive ask synthesizes bid = ask * 0.4, a zero ask
// against a positive bid synthesizes ask = bid * 2.5, and a still-inverted
// quote is nulled rather than repaired twice.
func Normalize(raw []RawStrike) []models.StrikeRecord {
	records := make([]models.StrikeRecord, 0, len(raw))
	for _, rs := range raw {
		if rs.Strike <= 0 {
			continue
		}
		records = append(records, models.StrikeRecord{
			Strike: rs.Strike,
			Call:   normalizeSide(rs.Call),
			Put:    normalizeSide(rs.Put),
		})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Strike < records[j].Strike
	})
	return records
}

func normalizeSide(raw map[string]any) models.SideQuote {
	q := models.SideQuote{
		Delta:  asFloat(raw, "delta"),
		Gamma:  asFloat(raw, "gamma"),
		Theta:  asFloat(raw, "theta"),
		Vega:   asFloat(raw, "vega"),
		IV:     asFloat(raw, "iv", "implied-volatility"),
		Volume: int64(asFloat(raw, "volume")),
		OI:     int64(asFloat(raw, "open-interest", "oi")),
	}

	bid := asFloat(raw, "bid")
	ask := asFloat(raw, "ask")

	if bid == 0 && ask > 0 {
		bid = ask * 0.4
	}
	if ask == 0 && bid > 0 {
		ask = bid * 2.5
	}

	// Inverted after repair means the quote is untrustworthy. Null it out
	// instead of swapping; the side simply cannot host a leg.
	if bid > ask || bid <= 0 || ask <= 0 {
		return q
	}

	q.Bid = &bid
	q.Ask = &ask
	if mid := q.Mid(); mid > 0 {
		q.WideSpread = (ask-bid)/mid > wideSpreadThreshold
	}
	return q
}

// asFloat coerces the first present key to a float64, falling back to 0.
func asFloat(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case float32:
			return float64(n)
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case json.Number:
			f, err := n.Float64()
			if err == nil {
				return f
			}
		case string:
			f, err := strconv.ParseFloat(n, 64)
			if err == nil {
				return f
			}
		}
	}
	return 0
}
