package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldermoor/governor/internal/werrors"
)

func TestDefaultPricingDerivesCacheMultipliers(t *testing.T) {
	p := DefaultPricing(10.0, 30.0)
	assert.Equal(t, 10.0, p.InputPerMTok)
	assert.Equal(t, 30.0, p.OutputPerMTok)
	assert.InDelta(t, 1.0, p.CacheReadPerMTok, 0.0001)
	assert.InDelta(t, 12.5, p.CacheWritePerMTok, 0.0001)
}

func TestLoadDotEnvKeyStripsQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OTHER=1\nAPI_KEY=\"sk-test-value\"\n"), 0o600))

	val, err := LoadDotEnvKey(path, "API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-value", val)
}

func TestLoadDotEnvKeyMissingKeyErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OTHER=1\n"), 0o600))

	_, err := LoadDotEnvKey(path, "API_KEY")
	assert.Error(t, err)
}

func TestInvokeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(messageResponse{
			Content: "hello from http",
			Usage: struct {
				InputTokens      int64 `json:"input_tokens"`
				OutputTokens     int64 `json:"output_tokens"`
				CacheReadTokens  int64 `json:"cache_read_tokens"`
				CacheWriteTokens int64 `json:"cache_write_tokens"`
			}{InputTokens: 100, OutputTokens: 50},
		})
	}))
	defer server.Close()

	a := New(server.URL, "provider:model-a", "test-key", DefaultPricing(1, 2), 5*time.Second)
	result, err := a.Invoke(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "hello from http", result.Content)
	assert.Equal(t, int64(100), result.InputTokens)
	assert.Greater(t, result.CostUSD, 0.0)
}

func TestInvokeClassifiesQuotaStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	a := New(server.URL, "provider:model-a", "test-key", DefaultPricing(1, 2), 5*time.Second)
	_, err := a.Invoke(context.Background(), "system", "prompt")
	require.Error(t, err)

	kind, ok := werrors.AsCategorized(err)
	require.True(t, ok)
	assert.Equal(t, werrors.KindQuota, kind.Kind())
}

func TestInvokeClassifiesAuthStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	a := New(server.URL, "provider:model-a", "test-key", DefaultPricing(1, 2), 5*time.Second)
	_, err := a.Invoke(context.Background(), "system", "prompt")
	require.Error(t, err)

	kind, ok := werrors.AsCategorized(err)
	require.True(t, ok)
	assert.Equal(t, werrors.KindAuth, kind.Kind())
}

func TestInvokeClassifiesServerErrorAsCapacity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	a := New(server.URL, "provider:model-a", "test-key", DefaultPricing(1, 2), 5*time.Second)
	_, err := a.Invoke(context.Background(), "system", "prompt")
	require.Error(t, err)

	kind, ok := werrors.AsCategorized(err)
	require.True(t, ok)
	assert.Equal(t, werrors.KindCapacity, kind.Kind())
}
