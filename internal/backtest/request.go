package backtest

import "optionedge/internal/models"

// Request is the wire shape of a backtest submission. Field names are
// contractual with the external service.
type Request struct {
	Symbol       string            `json:"symbol"`
	StrategyType string            `json:"strategy-type"`
	Legs         []RequestLeg      `json:"legs"`
	TargetDTE    int               `json:"target-dte"`
	StartDate    string            `json:"start-date"`
	EndDate      string            `json:"end-date"`
	Management   RequestManagement `json:"management"`
}

// RequestLeg is one quantized leg on the wire.
type RequestLeg struct {
	Side       string `json:"side"`
	OptionType string `json:"option-type"`
	Delta      int    `json:"delta"`
}

// RequestManagement carries the management rules on the wire.
type RequestManagement struct {
	ProfitTargetPercent float64 `json:"profit-target-percent"`
	StopLossPercent     float64 `json:"stop-loss-percent"`
	ExitDTE             int     `json:"exit-dte"`
}

// NewRequest builds the wire request for a configuration.
func NewRequest(cfg models.BacktestConfig) Request {
	legs := make([]RequestLeg, 0, len(cfg.Legs))
	for _, leg := range cfg.Legs {
		legs = append(legs, RequestLeg{
			Side:       string(leg.Side),
			OptionType: string(leg.Type),
			Delta:      leg.Delta,
		})
	}
	return Request{
		Symbol:       cfg.Symbol,
		StrategyType: cfg.StrategyType,
		Legs:         legs,
		TargetDTE:    cfg.TargetDTE,
		StartDate:    cfg.StartDate,
		EndDate:      cfg.EndDate,
		Management: RequestManagement{
			ProfitTargetPercent: cfg.Management.ProfitTargetPercent,
			StopLossPercent:     cfg.Management.StopLossPercent,
			ExitDTE:             cfg.Management.ExitDTE,
		},
	}
}

// Config reverses NewRequest, reconstructing the typed configuration from
// the wire shape.
func (r Request) Config() models.BacktestConfig {
	legs := make([]models.BacktestLeg, 0, len(r.Legs))
	for _, leg := range r.Legs {
		legs = append(legs, models.BacktestLeg{
			Side:  models.Side(leg.Side),
			Type:  models.OptionType(leg.OptionType),
			Delta: leg.Delta,
		})
	}
	return models.BacktestConfig{
		Symbol:       r.Symbol,
		StrategyType: r.StrategyType,
		Legs:         legs,
		TargetDTE:    r.TargetDTE,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		Management: models.BacktestManagement{
			ProfitTargetPercent: r.Management.ProfitTargetPercent,
			StopLossPercent:     r.Management.StopLossPercent,
			ExitDTE:             r.Management.ExitDTE,
		},
	}
}
