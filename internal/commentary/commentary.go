// Package commentary narrates ranked strategy cards in natural language.
// It sits on the presentation side of the engine: it only reads the ranked
// card list and never feeds anything back into generation or gating.
package commentary

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"optionedge/internal/models"
	"optionedge/pkg/utils"
)

const systemPrompt = `You are an options strategist writing short, factual
commentary for experienced traders. Describe each strategy's structure,
risk profile, and probability of profit. Do not invent numbers; use only
the figures provided. No financial advice disclaimers.`

// Narrator produces natural-language commentary via OpenAI.
type Narrator struct {
	client *openai.Client
	model  string
}

// NewNarrator creates a narrator.
func NewNarrator(apiKey, model string) *Narrator {
	return &Narrator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Narrate describes the ranked cards for a symbol.
func (n *Narrator) Narrate(ctx context.Context, symbol string, cards []*models.StrategyCard) (string, error) {
	if len(cards) == 0 {
		return "", fmt.Errorf("nothing to narrate: no strategies survived gating")
	}

	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(symbol, cards)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

// buildPrompt summarizes the cards with everything needed to narrate
// without re-deriving any figure.
func buildPrompt(symbol string, cards []*models.StrategyCard) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ranked strategies for %s:\n\n", symbol)
	for _, card := range cards {
		fmt.Fprintf(&sb, "%s. %s (%d DTE, exp %s)\n", card.Label, card.Name, card.DTE, card.Expiration)
		for _, leg := range card.Legs {
			fmt.Fprintf(&sb, "  %s %s %.2f @ %s\n", leg.Side, leg.Type, leg.Strike, utils.FormatMoney(leg.Price))
		}
		if card.NetCredit != nil {
			fmt.Fprintf(&sb, "  net credit %s/share", utils.FormatMoney(*card.NetCredit))
		} else if card.NetDebit != nil {
			fmt.Fprintf(&sb, "  net debit %s/share", utils.FormatMoney(*card.NetDebit))
		}
		fmt.Fprintf(&sb, ", max profit %s", utils.FormatMoney(card.MaxProfit))
		if card.MaxLoss != nil {
			fmt.Fprintf(&sb, ", max loss %s", utils.FormatMoney(*card.MaxLoss))
		} else {
			sb.WriteString(", unlimited risk")
		}
		fmt.Fprintf(&sb, "\n  PoP %.0f%%", card.PoP*100)
		if card.VolAdjustedPoP != nil {
			fmt.Fprintf(&sb, " (vol-adjusted %.0f%%)", *card.VolAdjustedPoP*100)
		}
		fmt.Fprintf(&sb, ", EV %s, breakevens %v\n\n", utils.FormatMoney(card.EV), card.Breakevens)
	}
	return sb.String()
}
