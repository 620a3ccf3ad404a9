// Package httpadapter implements llm.Adapter as a raw HTTP client against a
// generic "messages" style completion endpoint. Grounded on the direct-API
// provider in the original implementation this spec was distilled from
// (net/http, an .env-sourced secret never read from the process
// environment, and a cache-aware pricing table), generalized away from any
// single vendor SDK per the provider-agnostic adapter contract.
package httpadapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aldermoor/governor/internal/llm"
	"github.com/aldermoor/governor/internal/werrors"
)

// Pricing holds the per-million-token rates used to estimate CallResult.CostUSD.
// CacheReadRate and CacheWriteRate follow the 10%-of-input / 125%-of-input
// convention the pack's pricing tables use for prompt caching.
type Pricing struct {
	InputPerMTok      float64
	OutputPerMTok     float64
	CacheReadPerMTok  float64
	CacheWritePerMTok float64
}

// DefaultPricing derives a Pricing from a base input/output rate using the
// standard cache-read (10%) / cache-write (125%) multipliers.
func DefaultPricing(inputPerMTok, outputPerMTok float64) Pricing {
	return Pricing{
		InputPerMTok:      inputPerMTok,
		OutputPerMTok:     outputPerMTok,
		CacheReadPerMTok:  inputPerMTok * 0.10,
		CacheWritePerMTok: inputPerMTok * 1.25,
	}
}

// defaultMaxOutputTokens bounds max_tokens on every request regardless of
// caller input, a hard upper bound against runaway completions.
const defaultMaxOutputTokens = 8192

// Adapter calls a generic messages-style HTTP endpoint directly.
type Adapter struct {
	Endpoint       string
	ModelName      string
	APIKey         string
	Pricing        Pricing
	Timeout        time.Duration
	MaxOutputTokens int
	HTTPClient     *http.Client
}

// LoadDotEnvKey reads key from an .env file at path, never from the process
// environment, mirroring the original's refusal to trust os.environ for
// long-lived secrets. Values may be quoted; surrounding quotes are stripped.
func LoadDotEnvKey(path, key string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("httpadapter: reading %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	prefix := key + "="
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		val := strings.TrimPrefix(line, prefix)
		val = strings.Trim(val, `"'`)
		return val, nil
	}
	return "", fmt.Errorf("httpadapter: key %q not found in %s", key, path)
}

// New builds an HTTP-direct adapter.
func New(endpoint, model, apiKey string, pricing Pricing, timeout time.Duration) *Adapter {
	return &Adapter{
		Endpoint:        endpoint,
		ModelName:       model,
		APIKey:          apiKey,
		Pricing:         pricing,
		Timeout:         timeout,
		MaxOutputTokens: defaultMaxOutputTokens,
		HTTPClient:      &http.Client{Timeout: timeout},
	}
}

// ProviderName implements llm.Adapter.
func (a *Adapter) ProviderName() string { return "http-direct" }

// Model implements llm.Adapter.
func (a *Adapter) Model() string { return a.ModelName }

// message is one turn in the messages-API content array.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messageRequest is the provider's messages-API request shape: the system
// prompt travels in its own field, never concatenated into the content array.
type messageRequest struct {
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type messageResponse struct {
	Content string `json:"content"`
	Usage   struct {
		InputTokens      int64 `json:"input_tokens"`
		OutputTokens     int64 `json:"output_tokens"`
		CacheReadTokens  int64 `json:"cache_read_tokens"`
		CacheWriteTokens int64 `json:"cache_write_tokens"`
	} `json:"usage"`
}

// Invoke implements llm.Adapter. systemPrompt and content are sent as the
// messages API's separate system field and user message, never merged into
// one string.
func (a *Adapter) Invoke(ctx context.Context, systemPrompt, content string) (*llm.CallResult, error) {
	start := time.Now()
	maxTokens := a.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}
	body, err := json.Marshal(messageRequest{
		Model:     a.ModelName,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: content}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, werrors.Wrap(werrors.KindUnknown, "http-direct: encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, werrors.Wrap(werrors.KindUnknown, "http-direct: building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.APIKey)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, werrors.Wrap(werrors.KindTimeout, "http-direct: call timed out", ctx.Err())
		}
		return nil, werrors.Wrap(werrors.KindCapacity, "http-direct: request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, werrors.Wrap(werrors.KindParse, "http-direct: reading response body", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, werrors.New(werrors.KindAuth, fmt.Sprintf("http-direct: auth error, status %d", resp.StatusCode))
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, werrors.New(werrors.KindQuota, "http-direct: rate limited")
	}
	if resp.StatusCode >= 500 {
		return nil, werrors.New(werrors.KindCapacity, fmt.Sprintf("http-direct: server error, status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, werrors.New(werrors.KindUnknown, fmt.Sprintf("http-direct: unexpected status %d", resp.StatusCode))
	}

	var decoded messageResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, werrors.Wrap(werrors.KindParse, "http-direct: malformed JSON response", err)
	}

	cost := a.estimateCost(decoded.Usage.InputTokens, decoded.Usage.OutputTokens,
		decoded.Usage.CacheReadTokens, decoded.Usage.CacheWriteTokens)

	return &llm.CallResult{
		Content:          decoded.Content,
		Provider:         a.ProviderName(),
		Model:            a.ModelName,
		InputTokens:      decoded.Usage.InputTokens,
		OutputTokens:     decoded.Usage.OutputTokens,
		CacheReadTokens:  decoded.Usage.CacheReadTokens,
		CacheWriteTokens: decoded.Usage.CacheWriteTokens,
		CostUSD:          cost,
		Duration:         time.Since(start),
		Attempts:         1,
		RawResponse:      string(raw),
	}, nil
}

func (a *Adapter) estimateCost(inputTok, outputTok, cacheReadTok, cacheWriteTok int64) float64 {
	const million = 1_000_000.0
	return float64(inputTok)/million*a.Pricing.InputPerMTok +
		float64(outputTok)/million*a.Pricing.OutputPerMTok +
		float64(cacheReadTok)/million*a.Pricing.CacheReadPerMTok +
		float64(cacheWriteTok)/million*a.Pricing.CacheWritePerMTok
}
