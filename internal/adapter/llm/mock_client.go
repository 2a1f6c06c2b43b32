package llm

import (
	"context"
	"strings"
	"sync"
)

// MockClient is a scripted implementation of Generator for tests and local
// development without a model.
type MockClient struct {
	mu sync.Mutex

	// Responses are returned in order; once exhausted the last one repeats.
	Responses []string

	// Err, if set, is returned by every call.
	Err error

	calls int

	// Requests records every request for assertions.
	Requests []*CompletionRequest
}

// NewMockClient creates a mock that approves every topic and grades every
// essay with a minimal valid object.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Generate returns the next scripted response.
func (m *MockClient) Generate(ctx context.Context, req *CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return m.defaultResponse(req), nil
	}
	i := m.calls
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	m.calls++
	return m.Responses[i], nil
}

// Calls reports how many generations ran.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

func (m *MockClient) defaultResponse(req *CompletionRequest) string {
	if strings.Contains(req.Prompt, `"valid"`) {
		return `{"valid": true, "message": ""}`
	}
	return `{"criteries": {}, "common_mistakes": []}`
}
