package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	provider string
	model    string
	result   *CallResult
	err      error
	delay    time.Duration
}

func (s *stubAdapter) ProviderName() string { return s.provider }
func (s *stubAdapter) Model() string        { return s.model }
func (s *stubAdapter) Invoke(ctx context.Context, systemPrompt, content string) (*CallResult, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestFallbackReturnsPrimaryResultOnSuccess(t *testing.T) {
	primary := &stubAdapter{provider: "a", result: &CallResult{Content: "from primary"}}
	secondary := &stubAdapter{provider: "b", result: &CallResult{Content: "from secondary"}}

	f := NewFallback(primary, secondary, time.Second)
	result, err := f.Invoke(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "from primary", result.Content)
}

func TestFallbackFiresOnPrimaryError(t *testing.T) {
	primary := &stubAdapter{provider: "a", err: errors.New("primary down")}
	secondary := &stubAdapter{provider: "b", result: &CallResult{Content: "from secondary"}}

	f := NewFallback(primary, secondary, time.Second)
	result, err := f.Invoke(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "from secondary", result.Content)
}

func TestFallbackPartitionsPrimaryTimeoutWithinCallerDeadline(t *testing.T) {
	primary := &stubAdapter{provider: "a", delay: 50 * time.Millisecond, result: &CallResult{Content: "too slow"}}
	secondary := &stubAdapter{provider: "b", result: &CallResult{Content: "fallback"}}

	f := NewFallback(primary, secondary, 10*time.Millisecond)
	result, err := f.Invoke(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "fallback", result.Content, "primary must be cut off at PrimaryTimeout, not run to completion")
}

func TestFallbackReturnsErrorWhenNoSecondary(t *testing.T) {
	primary := &stubAdapter{provider: "a", err: errors.New("primary down")}

	f := NewFallback(primary, nil, time.Second)
	_, err := f.Invoke(context.Background(), "system", "prompt")
	assert.Error(t, err)
}
