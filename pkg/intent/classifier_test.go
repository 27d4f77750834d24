package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-intel-be/pkg/llm"
)

// stubProvider returns canned responses per call, in order.
type stubProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no more stubbed responses")
}

func (s *stubProvider) ChatStream(ctx context.Context, history []llm.Message, onFragment func(string) error, opts ...llm.Option) error {
	resp, err := s.Chat(ctx, history, opts...)
	if err != nil {
		return err
	}
	return onFragment(resp)
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func TestClassifier_ParsesCleanResponse(t *testing.T) {
	provider := &stubProvider{
		responses: []string{`{"intent": "HS_CODE_ANALYSIS", "confidence": 0.92}`},
	}
	c := NewClassifier(provider, 5*time.Second)

	result, err := c.Classify(context.Background(), "what is the HS code for fresh apples")
	require.NoError(t, err)
	assert.Equal(t, HsCodeAnalysis, result.Label)
	assert.InDelta(t, 0.92, result.Confidence, 0.001)
}

func TestClassifier_StripsMarkdownFences(t *testing.T) {
	provider := &stubProvider{
		responses: []string{"```json\n{\"intent\": \"SHIPMENT_TRACKING\", \"confidence\": 0.8}\n```"},
	}
	c := NewClassifier(provider, 5*time.Second)

	result, err := c.Classify(context.Background(), "where is my container")
	require.NoError(t, err)
	assert.Equal(t, ShipmentTracking, result.Label)
}

func TestClassifier_RetriesOnceOnFailure(t *testing.T) {
	provider := &stubProvider{
		errs:      []error{errors.New("connection refused"), nil},
		responses: []string{"", `{"intent": "GENERAL_TRADE_INFO", "confidence": 0.7}`},
	}
	c := NewClassifier(provider, 5*time.Second)
	c.backoff = time.Millisecond

	result, err := c.Classify(context.Background(), "what documents do I need to export coffee")
	require.NoError(t, err)
	assert.Equal(t, GeneralTradeInfo, result.Label)
	assert.Equal(t, 2, provider.calls)
}

func TestClassifier_ErrorsAfterRetryExhausted(t *testing.T) {
	provider := &stubProvider{
		errs: []error{errors.New("boom"), errors.New("boom again")},
	}
	c := NewClassifier(provider, 5*time.Second)
	c.backoff = time.Millisecond

	_, err := c.Classify(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestClassifier_NeverGuessesOnGarbage(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"no json", "I think this is about HS codes"},
		{"unknown label", `{"intent": "SOMETHING_ELSE", "confidence": 0.9}`},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{
				responses: []string{tt.response, tt.response},
			}
			c := NewClassifier(provider, 5*time.Second)
			c.backoff = time.Millisecond

			_, err := c.Classify(context.Background(), "some query")
			assert.Error(t, err)
		})
	}
}

func TestClassifier_ClampsConfidence(t *testing.T) {
	provider := &stubProvider{
		responses: []string{`{"intent": "OUT_OF_SCOPE", "confidence": 1.7}`},
	}
	c := NewClassifier(provider, 5*time.Second)

	result, err := c.Classify(context.Background(), "write me a poem")
	require.NoError(t, err)
	assert.Equal(t, OutOfScope, result.Label)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestClassifier_TimeoutPropagates(t *testing.T) {
	provider := &stubProvider{
		errs: []error{context.DeadlineExceeded},
	}
	c := NewClassifier(provider, time.Millisecond)
	c.backoff = 50 * time.Millisecond

	start := time.Now()
	_, err := c.Classify(context.Background(), "slow query")
	require.Error(t, err)
	// The retry backoff must not outlive the timeout budget.
	assert.Less(t, time.Since(start), 2*time.Second)
}
