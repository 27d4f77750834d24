// Package intent classifies a user query into one of the supported trade
// intents using an LLM. Classification never guesses: if the model cannot
// be reached or returns something unparseable, the caller gets an error,
// not a default label.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trade-intel-be/pkg/llm"
)

type Label string

const (
	HsCodeAnalysis   Label = "HS_CODE_ANALYSIS"
	ShipmentTracking Label = "SHIPMENT_TRACKING"
	GeneralTradeInfo Label = "GENERAL_TRADE_INFO"
	OutOfScope       Label = "OUT_OF_SCOPE"
)

var validLabels = map[Label]bool{
	HsCodeAnalysis:   true,
	ShipmentTracking: true,
	GeneralTradeInfo: true,
	OutOfScope:       true,
}

type Classification struct {
	Label      Label
	Confidence float64
}

const systemPrompt = `You are an intent classifier for an international trade assistant.
Classify the user query into exactly one of these intents:
- HS_CODE_ANALYSIS: the user wants to identify, look up, or understand HS (Harmonized System) commodity codes for a product.
- SHIPMENT_TRACKING: the user asks about the status, route, or history of a shipment.
- GENERAL_TRADE_INFO: the user asks about tariffs, regulations, documentation, or other general trade topics.
- OUT_OF_SCOPE: the query is unrelated to international trade.

Respond with ONLY a JSON object, no prose:
{"intent": "<one of the labels>", "confidence": <0.0 to 1.0>}`

type Classifier struct {
	provider llm.LLMProvider
	timeout  time.Duration
	retries  int
	backoff  time.Duration
}

func NewClassifier(provider llm.LLMProvider, timeout time.Duration) *Classifier {
	return &Classifier{
		provider: provider,
		timeout:  timeout,
		retries:  1,
		backoff:  500 * time.Millisecond,
	}
}

// Classify asks the model for the intent of the query. One retry on failure;
// both attempts share the classifier's timeout budget.
func (c *Classifier) Classify(ctx context.Context, query string) (*Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("intent classification timed out: %w", ctx.Err())
			case <-time.After(c.backoff):
			}
		}

		result, err := c.classifyOnce(ctx, query)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("intent classification timed out: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("intent classification failed: %w", lastErr)
}

func (c *Classifier) classifyOnce(ctx context.Context, query string) (*Classification, error) {
	raw, err := c.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: query},
	}, llm.WithTemperature(0.0))
	if err != nil {
		return nil, err
	}
	return parseResponse(raw)
}

type classifierResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func parseResponse(raw string) (*Classification, error) {
	// Models sometimes wrap JSON in markdown fences; strip down to the object.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("classifier response contains no JSON object: %q", raw)
	}

	var resp classifierResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("unparseable classifier response: %w", err)
	}

	label := Label(strings.ToUpper(strings.TrimSpace(resp.Intent)))
	if !validLabels[label] {
		return nil, fmt.Errorf("classifier returned unknown intent %q", resp.Intent)
	}

	confidence := resp.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &Classification{
		Label:      label,
		Confidence: confidence,
	}, nil
}
