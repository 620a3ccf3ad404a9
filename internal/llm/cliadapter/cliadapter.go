// Package cliadapter implements llm.Adapter over a locally installed CLI
// tool, invoked as a subprocess once per call. Grounded on the CLI provider
// in the original implementation this spec was distilled from: a PATH
// lookup with a fixed fallback-location list, prompt delivered over stdin,
// and a JSON result/usage envelope read back from stdout.
package cliadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/aldermoor/governor/internal/llm"
	"github.com/aldermoor/governor/internal/werrors"
)

// fallbackLocations are checked, in order, if the binary is not on PATH.
var fallbackLocations = []string{
	"/usr/local/bin",
	"/opt/homebrew/bin",
}

// FindBinary resolves binName to an absolute path, checking PATH first and
// then fallbackLocations.
func FindBinary(binName string) (string, error) {
	if path, err := exec.LookPath(binName); err == nil {
		return path, nil
	}
	for _, dir := range fallbackLocations {
		candidate := dir + "/" + binName
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("cliadapter: %q not found on PATH or in fallback locations", binName)
}

// cliResponse is the JSON envelope the subprocess writes to stdout.
type cliResponse struct {
	Result string `json:"result"`
	Usage  struct {
		InputTokens       int64 `json:"input_tokens"`
		OutputTokens      int64 `json:"output_tokens"`
		CacheReadTokens   int64 `json:"cache_read_input_tokens"`
		CacheCreateTokens int64 `json:"cache_creation_input_tokens"`
	} `json:"usage"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// Adapter invokes binary as a subprocess, feeding it a prompt on stdin and
// parsing a JSON result from stdout.
type Adapter struct {
	Binary    string
	ModelName string
	Args      []string // extra args appended before invocation, e.g. model flags
	Timeout   time.Duration
}

// New builds a CLI adapter. args are appended verbatim to the subprocess
// invocation (e.g. ["-p", "--output-format", "json", "--model", model]).
func New(binary, model string, args []string, timeout time.Duration) *Adapter {
	return &Adapter{Binary: binary, ModelName: model, Args: args, Timeout: timeout}
}

// ProviderName implements llm.Adapter.
func (a *Adapter) ProviderName() string { return "cli-provider" }

// Model implements llm.Adapter.
func (a *Adapter) Model() string { return a.ModelName }

// Invoke implements llm.Adapter. content is delivered over stdin; systemPrompt
// and the model id are delivered as command-line flags, mirroring the
// original CLI provider's two-channel invocation.
func (a *Adapter) Invoke(ctx context.Context, systemPrompt, content string) (*llm.CallResult, error) {
	callCtx := ctx
	var cancel context.CancelFunc
	if a.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, a.Args...), "--system", systemPrompt, "--model", a.ModelName)

	binPath, findErr := FindBinary(a.Binary)
	if findErr != nil {
		return nil, werrors.Wrap(werrors.KindUnknown, "cli-provider: locating binary", findErr)
	}

	start := time.Now()
	cmd := exec.CommandContext(callCtx, binPath, args...)
	cmd.Stdin = strings.NewReader(content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	if callCtx.Err() != nil {
		return nil, werrors.Wrap(werrors.KindTimeout, "cli-provider: call timed out", callCtx.Err())
	}
	if err != nil {
		kind, _ := werrors.Classify(stderr.String())
		if kind == werrors.KindUnknown {
			kind = werrors.KindCapacity
		}
		return nil, werrors.Wrap(kind, "cli-provider: subprocess failed", err)
	}

	var resp cliResponse
	if decodeErr := json.Unmarshal(stdout.Bytes(), &resp); decodeErr != nil {
		return nil, werrors.Wrap(werrors.KindParse, "cli-provider: malformed JSON response", decodeErr)
	}

	return &llm.CallResult{
		Content:          resp.Result,
		Provider:         a.ProviderName(),
		Model:            a.ModelName,
		InputTokens:      resp.Usage.InputTokens,
		OutputTokens:     resp.Usage.OutputTokens,
		CacheReadTokens:  resp.Usage.CacheReadTokens,
		CacheWriteTokens: resp.Usage.CacheCreateTokens,
		CostUSD:          resp.TotalCostUSD,
		Duration:         duration,
		Attempts:         1,
		RawResponse:      stdout.String(),
	}, nil
}
