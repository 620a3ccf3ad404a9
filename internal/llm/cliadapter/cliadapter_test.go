package cliadapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldermoor/governor/internal/werrors"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-cli.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestInvokeParsesJSONResponse(t *testing.T) {
	script := writeScript(t, `cat <<'EOF'
{"result": "hello from cli", "usage": {"input_tokens": 10, "output_tokens": 5}, "total_cost_usd": 0.002}
EOF`)

	a := New(script, "provider:model-a", nil, 5*time.Second)
	result, err := a.Invoke(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "hello from cli", result.Content)
	assert.Equal(t, int64(10), result.InputTokens)
	assert.Equal(t, int64(5), result.OutputTokens)
	assert.Equal(t, "cli-provider", result.Provider)
}

func TestInvokeClassifiesNonZeroExit(t *testing.T) {
	script := writeScript(t, `echo "429 rate limit exceeded" 1>&2; exit 1`)

	a := New(script, "provider:model-a", nil, 5*time.Second)
	_, err := a.Invoke(context.Background(), "system", "prompt")
	require.Error(t, err)

	kind, ok := werrors.AsCategorized(err)
	require.True(t, ok)
	assert.Equal(t, werrors.KindQuota, kind.Kind())
}

func TestInvokeReturnsParseErrorOnMalformedJSON(t *testing.T) {
	script := writeScript(t, `echo "not json"`)

	a := New(script, "provider:model-a", nil, 5*time.Second)
	_, err := a.Invoke(context.Background(), "system", "prompt")
	require.Error(t, err)

	kind, ok := werrors.AsCategorized(err)
	require.True(t, ok)
	assert.Equal(t, werrors.KindParse, kind.Kind())
}

func TestInvokeTimesOut(t *testing.T) {
	script := writeScript(t, `sleep 2; echo '{"result": "too slow"}'`)

	a := New(script, "provider:model-a", nil, 10*time.Millisecond)
	_, err := a.Invoke(context.Background(), "system", "prompt")
	require.Error(t, err)

	kind, ok := werrors.AsCategorized(err)
	require.True(t, ok)
	assert.Equal(t, werrors.KindTimeout, kind.Kind())
}

func TestFindBinaryMissingReturnsError(t *testing.T) {
	_, err := FindBinary(fmt.Sprintf("definitely-not-a-real-binary-%d", os.Getpid()))
	assert.Error(t, err)
}
