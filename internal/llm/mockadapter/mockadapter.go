// Package mockadapter provides a scriptable llm.Adapter for tests,
// grounded on the teacher's MockLLMClient function-field pattern.
package mockadapter

import (
	"context"
	"fmt"

	"github.com/aldermoor/governor/internal/llm"
)

// Adapter cycles through Responses on successive calls, and fails with Err
// on the FailOnCall'th invocation (1-indexed; 0 disables failure injection).
type Adapter struct {
	Provider  string
	ModelName string
	Responses []string
	FailOnCall int
	Err        error

	calls int
}

// New builds a mock adapter returning responses in order, starting again
// from the first once exhausted.
func New(provider, model string, responses ...string) *Adapter {
	return &Adapter{Provider: provider, ModelName: model, Responses: responses}
}

// ProviderName implements llm.Adapter.
func (a *Adapter) ProviderName() string { return a.Provider }

// Model implements llm.Adapter.
func (a *Adapter) Model() string { return a.ModelName }

// Calls reports how many times Invoke has been called.
func (a *Adapter) Calls() int { return a.calls }

// Invoke implements llm.Adapter.
func (a *Adapter) Invoke(ctx context.Context, systemPrompt, userContent string) (*llm.CallResult, error) {
	a.calls++
	if a.FailOnCall > 0 && a.calls == a.FailOnCall {
		if a.Err != nil {
			return nil, a.Err
		}
		return nil, fmt.Errorf("mockadapter: injected failure on call %d", a.calls)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	response := "mock response"
	if len(a.Responses) > 0 {
		idx := (a.calls - 1) % len(a.Responses)
		response = a.Responses[idx]
	}

	return &llm.CallResult{
		Content:      response,
		Provider:     a.Provider,
		Model:        a.ModelName,
		InputTokens:  int64((len(systemPrompt) + len(userContent)) / 4),
		OutputTokens: int64(len(response) / 4),
		Attempts:     1,
	}, nil
}
