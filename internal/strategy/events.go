package strategy

import "github.com/rs/zerolog"

// Event is one structured diagnostic record emitted by the scanning and
// gating pipeline. Verdicts and rejection reasons travel here instead of
// being interleaved with control flow, so tests and observability sinks can
// consume them.
type Event struct {
	Stage    string
	Strategy string
	Verdict  string
	Reason   string
	Metrics  map[string]float64
}

// Pipeline stages and verdicts.
const (
	StageScan      = "scan"
	StageConstruct = "construct"
	StageGateEV    = "gate_ev"
	StageGatePoP   = "gate_pop"
	StageGateCredit = "gate_credit"
	StageRank      = "rank"

	VerdictPass    = "pass"
	VerdictReject  = "reject"
	VerdictDiscard = "discard"
)

// Emitter receives pipeline events.
type Emitter interface {
	Emit(ev Event)
}

// LogEmitter writes events through a zerolog logger at debug level.
type LogEmitter struct {
	logger zerolog.Logger
}

// NewLogEmitter creates an Emitter backed by the given logger.
func NewLogEmitter(logger zerolog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs the event.
func (e *LogEmitter) Emit(ev Event) {
	entry := e.logger.Debug().
		Str("stage", ev.Stage).
		Str("strategy", ev.Strategy).
		Str("verdict", ev.Verdict)
	if ev.Reason != "" {
		entry = entry.Str("reason", ev.Reason)
	}
	for k, v := range ev.Metrics {
		entry = entry.Float64(k, v)
	}
	entry.Msg("pipeline event")
}

// NopEmitter discards all events.
type NopEmitter struct{}

// Emit does nothing.
func (NopEmitter) Emit(Event) {}
