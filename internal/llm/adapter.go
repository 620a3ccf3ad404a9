package llm

import "context"

// Adapter is the contract every LLM backend implements: CLI subprocess,
// raw HTTP, a rotating-credential wrapper, or a mock for tests. It mirrors
// the teacher's LLMClient interface, trimmed to what the governance nodes
// actually need (no token counting or model-info probe, since every call
// here is a single synchronous generate-and-bill round trip).
type Adapter interface {
	// Invoke sends systemPrompt and content to the backend as two distinct
	// channels (never concatenated into one blob) and returns a normalized
	// result. ctx carries the caller's deadline; adapters must respect it.
	Invoke(ctx context.Context, systemPrompt, content string) (*CallResult, error)

	// ProviderName identifies the adapter kind, e.g. "cli-provider".
	ProviderName() string

	// Model returns the provider:model identifier this adapter targets.
	Model() string
}
