package llm

import (
	"context"
	"time"
)

// Fallback composes a primary and a fallback Adapter. It partitions the
// caller's deadline so the primary gets at most primaryTimeout (or the
// caller's remaining budget, whichever is smaller) and, on primary failure,
// the fallback gets the caller's full original timeout. Grounded on
// FallbackProvider.invoke in the Python original this spec was distilled
// from.
type Fallback struct {
	Primary        Adapter
	Secondary      Adapter
	PrimaryTimeout time.Duration
}

// NewFallback builds a Fallback composer with the given primary timeout.
func NewFallback(primary, secondary Adapter, primaryTimeout time.Duration) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary, PrimaryTimeout: primaryTimeout}
}

// ProviderName reports the primary adapter's provider name; callers that
// need to know whether the fallback fired should inspect CallResult.Provider.
func (f *Fallback) ProviderName() string { return f.Primary.ProviderName() }

// Model reports the primary adapter's model.
func (f *Fallback) Model() string { return f.Primary.Model() }

// Invoke tries Primary within a bounded sub-timeout, then retries the full
// call against Secondary if Primary fails or times out.
func (f *Fallback) Invoke(ctx context.Context, systemPrompt, content string) (*CallResult, error) {
	primaryBudget := f.PrimaryTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < primaryBudget {
			primaryBudget = remaining
		}
	}

	primaryCtx, cancel := context.WithTimeout(ctx, primaryBudget)
	result, err := f.Primary.Invoke(primaryCtx, systemPrompt, content)
	cancel()
	if err == nil {
		return result, nil
	}

	if f.Secondary == nil {
		return nil, err
	}
	return f.Secondary.Invoke(ctx, systemPrompt, content)
}
