// Package llm provides an abstraction over the local model runtime.
package llm

import "context"

// CompletionRequest carries a formatted prompt and generation parameters to
// the runtime. The runtime is a black box: given the prompt and parameters
// it returns a text completion, possibly empty.
type CompletionRequest struct {
	Prompt        string   `json:"prompt"`
	NPredict      int      `json:"n_predict"`
	Temperature   float64  `json:"temperature"`
	TopK          int      `json:"top_k"`
	TopP          float64  `json:"top_p"`
	RepeatPenalty float64  `json:"repeat_penalty"`
	MinP          float64  `json:"min_p"`
	Stop          []string `json:"stop,omitempty"`
}

// Generator defines the model runtime contract.
type Generator interface {
	// Generate runs a single completion and returns the generated text.
	// Calls are serialized by the runtime itself; callers should not expect
	// parallel throughput from concurrent generations.
	Generate(ctx context.Context, req *CompletionRequest) (string, error)
}

// Ensure implementations satisfy the interface.
var (
	_ Generator = (*Client)(nil)
	_ Generator = (*MockClient)(nil)
	_ Generator = (*Lazy)(nil)
)
