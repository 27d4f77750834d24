// Package generation produces the grounded assistant answer for a chat job,
// streaming fragments to the caller as the model emits them.
package generation

import (
	"context"
	"fmt"
	"strings"

	"trade-intel-be/internal/entity"
	"trade-intel-be/pkg/extract"
	"trade-intel-be/pkg/intent"
	"trade-intel-be/pkg/llm"
	"trade-intel-be/pkg/retrieval"
)

// Result is the fully assembled answer after streaming finishes.
type Result struct {
	Text      string
	Citations []entity.Citation
}

type Generator struct {
	provider llm.LLMProvider
}

func NewGenerator(provider llm.LLMProvider) *Generator {
	return &Generator{
		provider: provider,
	}
}

const basePrompt = `You are a trade intelligence assistant specialized in international trade: HS commodity codes, shipments, tariffs, and trade regulations.
Answer the user's question accurately and concisely. When you reference an HS code, write it in its dotted form (e.g. 0808.10).
Do not invent HS codes: only mention codes from the reference data below or codes you are certain of.`

func buildSystemPrompt(label intent.Label, candidates []retrieval.Candidate) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	switch label {
	case intent.HsCodeAnalysis:
		b.WriteString("\nThe user wants help identifying or understanding HS codes for a product.")
	case intent.ShipmentTracking:
		b.WriteString("\nThe user is asking about a shipment. If you lack live tracking data, explain what the shipment status fields mean and how to obtain them.")
	case intent.GeneralTradeInfo:
		b.WriteString("\nThe user is asking a general trade question.")
	}

	if len(candidates) > 0 {
		b.WriteString("\n\nReference HS codes relevant to this query:\n")
		for _, c := range candidates {
			fmt.Fprintf(&b, "- %s: %s", c.Code, c.Name)
			if c.Description != "" {
				fmt.Fprintf(&b, " (%s)", c.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("Prefer these codes when they fit the question.")
	}

	return b.String()
}

// Stream generates the answer, invoking onFragment for every model chunk in
// order. The returned Result carries the concatenated text and citations for
// each reference candidate actually mentioned in the answer.
func (g *Generator) Stream(
	ctx context.Context,
	label intent.Label,
	query string,
	history []llm.Message,
	candidates []retrieval.Candidate,
	onFragment func(fragment string) error,
) (*Result, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: buildSystemPrompt(label, candidates)})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: query})

	var full strings.Builder
	err := g.provider.ChatStream(ctx, messages, func(fragment string) error {
		full.WriteString(fragment)
		return onFragment(fragment)
	})
	if err != nil {
		return nil, fmt.Errorf("answer generation: %w", err)
	}

	text := full.String()
	return &Result{
		Text:      text,
		Citations: citationsFor(text, candidates),
	}, nil
}

// citationsFor keeps only the candidates whose code the answer actually
// mentions, in candidate (score) order.
func citationsFor(text string, candidates []retrieval.Candidate) []entity.Citation {
	if len(candidates) == 0 {
		return nil
	}
	mentioned := make(map[string]bool)
	for _, code := range extract.Extract(text) {
		mentioned[extract.Normalize(code)] = true
	}

	var citations []entity.Citation
	for _, c := range candidates {
		if mentioned[extract.Normalize(c.Code)] {
			citations = append(citations, entity.Citation{
				Code: c.Code,
				Name: c.Name,
			})
		}
	}
	return citations
}
