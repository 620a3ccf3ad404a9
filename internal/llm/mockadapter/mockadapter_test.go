package mockadapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeCyclesResponses(t *testing.T) {
	a := New("cli-provider", "provider:model-a", "first", "second")

	r1, err := a.Invoke(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "first", r1.Content)

	r2, err := a.Invoke(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "second", r2.Content)

	r3, err := a.Invoke(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "first", r3.Content, "cycles back to the first response once exhausted")

	assert.Equal(t, 3, a.Calls())
}

func TestInvokeInjectsFailureOnNthCall(t *testing.T) {
	a := New("cli-provider", "provider:model-a", "ok")
	a.FailOnCall = 2

	_, err := a.Invoke(context.Background(), "system", "p")
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), "system", "p")
	require.Error(t, err)

	_, err = a.Invoke(context.Background(), "system", "p")
	require.NoError(t, err, "failure injection only fires once, on the Nth call")
}

func TestInvokeRespectsCancelledContext(t *testing.T) {
	a := New("cli-provider", "provider:model-a", "ok")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Invoke(ctx, "system", "p")
	assert.Error(t, err)
}
