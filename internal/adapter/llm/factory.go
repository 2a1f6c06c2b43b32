package llm

import (
	"context"
	"log"
	"os"
	"sync"
)

const (
	// EnvLLMMode is the environment variable name for mode selection.
	EnvLLMMode = "LLM_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewGenerator creates a runtime client based on the LLM_MODE environment
// variable. If LLM_MODE=MOCK, returns a MockClient; otherwise a lazily
// initialized real client.
func NewGenerator(baseURL string) Generator {
	if os.Getenv(EnvLLMMode) == ModeMock {
		log.Println("LLM_MODE=MOCK detected, using mock model client")
		return NewMockClient()
	}
	return NewLazy(func() Generator { return NewClient(baseURL) })
}

// Lazy defers construction of the runtime handle until first use and then
// shares the one handle across all callers. The runtime is expensive to
// initialize and must never be reloaded per request.
type Lazy struct {
	once sync.Once
	init func() Generator
	gen  Generator
}

// NewLazy wraps a constructor in a once-only initialization guard.
func NewLazy(init func() Generator) *Lazy {
	return &Lazy{init: init}
}

// Generate initializes the shared handle on first call and delegates.
func (l *Lazy) Generate(ctx context.Context, req *CompletionRequest) (string, error) {
	l.once.Do(func() {
		log.Println("llm: initializing model runtime handle")
		l.gen = l.init()
	})
	return l.gen.Generate(ctx, req)
}
