// Package llm defines the provider-agnostic adapter contract used by every
// workflow node that needs to call an LLM, and the concrete adapters
// (cliadapter, httpadapter, rotatingadapter, mockadapter) that implement it.
package llm

import "time"

// CallResult is the normalized outcome of a single Adapter.Invoke call,
// regardless of which backend produced it.
type CallResult struct {
	Content          string        // generated text
	Provider         string        // e.g. "cli-provider", "http-direct"
	Model            string        // provider:model identifier actually used
	InputTokens      int64         // prompt tokens billed
	OutputTokens     int64         // completion tokens billed
	CacheReadTokens  int64         // tokens served from a prompt cache, if any
	CacheWriteTokens int64         // tokens written to a prompt cache, if any
	CostUSD          float64       // estimated dollar cost of this call
	Duration         time.Duration // wall-clock time spent in the call
	RateLimited      bool          // true if the provider signalled rate limiting before succeeding

	CredentialUsed   string // name of the credential that produced this result, set by rotating adapters
	RotationOccurred bool   // true if a rotating adapter moved off the pool's first credential to get this result
	Attempts         int    // number of provider calls made to produce this result, including failed ones
	RawResponse      string // unparsed response body/stdout, kept for audit trails
}
