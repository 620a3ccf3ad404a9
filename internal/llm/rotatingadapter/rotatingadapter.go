// Package rotatingadapter wraps a credential.Rotator in the llm.Adapter
// interface so workflow nodes can treat a rotating-credential backend the
// same as any other provider.
package rotatingadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/aldermoor/governor/internal/credential"
	"github.com/aldermoor/governor/internal/llm"
)

// Inner is the shape of a per-credential call: given ctx, a credential
// secret, the system prompt and the user content, produce a CallResult or
// an error the rotator can classify.
type Inner func(ctx context.Context, secret, systemPrompt, content string) (*llm.CallResult, error)

// Adapter presents a credential.Rotator as an llm.Adapter.
type Adapter struct {
	Rotator   *credential.Rotator
	Provider  string
	ModelName string
	call      Inner
}

// New builds a rotating adapter. call performs one attempt against the
// underlying provider using the credential secret handed to it by the
// rotator; it must not persist the secret beyond the call.
//
// forbiddenModels rejects construction outright if model is on the list.
// requiredModel, if non-nil, must return true for model or construction
// fails; pass nil to skip the predicate check.
func New(rotator *credential.Rotator, provider, model string, forbiddenModels []string, requiredModel func(string) bool, call Inner) (*Adapter, error) {
	for _, forbidden := range forbiddenModels {
		if forbidden == model {
			return nil, fmt.Errorf("rotatingadapter: model %q is on the forbidden-model list", model)
		}
	}
	if requiredModel != nil && !requiredModel(model) {
		return nil, fmt.Errorf("rotatingadapter: model %q does not satisfy the required-model predicate", model)
	}
	return &Adapter{Rotator: rotator, Provider: provider, ModelName: model, call: call}, nil
}

// ProviderName implements llm.Adapter.
func (a *Adapter) ProviderName() string { return a.Provider }

// Model implements llm.Adapter.
func (a *Adapter) Model() string { return a.ModelName }

// Invoke implements llm.Adapter, routing through the rotator and surfacing
// which credential answered the call.
func (a *Adapter) Invoke(ctx context.Context, systemPrompt, content string) (*llm.CallResult, error) {
	var out *llm.CallResult
	start := time.Now()

	outcome, err := a.Rotator.Invoke(ctx, func(ctx context.Context, secret string) (string, error) {
		result, err := a.call(ctx, secret, systemPrompt, content)
		if err != nil {
			return "", err
		}
		out = result
		return result.Content, nil
	})
	if err != nil {
		return nil, err
	}
	if out.Duration == 0 {
		out.Duration = time.Since(start)
	}
	if out.Provider == "" {
		out.Provider = a.Provider
	}
	out.CredentialUsed = outcome.CredentialUsed
	out.RotationOccurred = outcome.RotationOccurred
	out.Attempts = outcome.Attempts
	return out, nil
}
