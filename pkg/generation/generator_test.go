package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-intel-be/pkg/intent"
	"trade-intel-be/pkg/llm"
	"trade-intel-be/pkg/retrieval"
)

// streamStub emits fixed fragments, recording the prompt it was given.
type streamStub struct {
	fragments []string
	err       error
	gotPrompt []llm.Message
}

func (s *streamStub) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return strings.Join(s.fragments, ""), s.err
}

func (s *streamStub) ChatStream(ctx context.Context, history []llm.Message, onFragment func(string) error, opts ...llm.Option) error {
	s.gotPrompt = history
	if s.err != nil {
		return s.err
	}
	for _, f := range s.fragments {
		if err := onFragment(f); err != nil {
			return err
		}
	}
	return nil
}

func (s *streamStub) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, nil, opts...)
}

func TestGenerator_StreamsFragmentsInOrder(t *testing.T) {
	stub := &streamStub{fragments: []string{"Fresh apples ", "fall under ", "0808.10."}}
	g := NewGenerator(stub)

	var got []string
	result, err := g.Stream(context.Background(), intent.HsCodeAnalysis, "HS code for apples?", nil, nil, func(f string) error {
		got = append(got, f)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fresh apples ", "fall under ", "0808.10."}, got)
	assert.Equal(t, "Fresh apples fall under 0808.10.", result.Text)
}

func TestGenerator_CitesOnlyMentionedCandidates(t *testing.T) {
	stub := &streamStub{fragments: []string{"Fresh apples fall under 0808.10."}}
	g := NewGenerator(stub)

	candidates := []retrieval.Candidate{
		{Code: "0808.10", Name: "Apples, fresh", Score: 0.9},
		{Code: "0808.30", Name: "Pears, fresh", Score: 0.7},
	}
	result, err := g.Stream(context.Background(), intent.HsCodeAnalysis, "apples", nil, candidates, func(string) error { return nil })
	require.NoError(t, err)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, "0808.10", result.Citations[0].Code)
	assert.Equal(t, "Apples, fresh", result.Citations[0].Name)
}

func TestGenerator_PromptCarriesCandidatesAndHistory(t *testing.T) {
	stub := &streamStub{fragments: []string{"ok"}}
	g := NewGenerator(stub)

	history := []llm.Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	candidates := []retrieval.Candidate{{Code: "0901.11", Name: "Coffee, not roasted"}}

	_, err := g.Stream(context.Background(), intent.GeneralTradeInfo, "follow-up", history, candidates, func(string) error { return nil })
	require.NoError(t, err)

	require.Len(t, stub.gotPrompt, 4)
	assert.Equal(t, "system", stub.gotPrompt[0].Role)
	assert.Contains(t, stub.gotPrompt[0].Content, "0901.11")
	assert.Equal(t, "earlier question", stub.gotPrompt[1].Content)
	assert.Equal(t, "follow-up", stub.gotPrompt[3].Content)
}

func TestGenerator_ProviderErrorSurfaces(t *testing.T) {
	stub := &streamStub{err: errors.New("model unavailable")}
	g := NewGenerator(stub)

	_, err := g.Stream(context.Background(), intent.GeneralTradeInfo, "q", nil, nil, func(string) error { return nil })
	assert.Error(t, err)
}

func TestGenerator_FragmentCallbackErrorAborts(t *testing.T) {
	stub := &streamStub{fragments: []string{"a", "b", "c"}}
	g := NewGenerator(stub)

	calls := 0
	_, err := g.Stream(context.Background(), intent.GeneralTradeInfo, "q", nil, nil, func(string) error {
		calls++
		if calls == 2 {
			return errors.New("client gone")
		}
		return nil
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestGenerator_NoCandidatesMeansNoCitations(t *testing.T) {
	stub := &streamStub{fragments: []string{"General trade guidance without codes."}}
	g := NewGenerator(stub)

	result, err := g.Stream(context.Background(), intent.GeneralTradeInfo, "q", nil, nil, func(string) error { return nil })
	require.NoError(t, err)
	assert.Empty(t, result.Citations)
}
