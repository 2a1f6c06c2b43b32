package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lingwo/essayd/internal/domain"
)

// Client talks to a llama.cpp completion server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a runtime client. No timeout is set on the HTTP client:
// grading generations run multi-second and an external supervisor may impose
// its own deadline through ctx.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// completionResponse is the subset of the server response we consume.
type completionResponse struct {
	Content string `json:"content"`
}

// Generate posts the request to /completion and returns the generated text.
func (c *Client) Generate(ctx context.Context, req *CompletionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: model runtime: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read model response: %v", domain.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: model runtime status %d: %s", domain.ErrUpstream, resp.StatusCode, truncate(string(respBody), 200))
	}

	var out completionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%w: decode model response: %v", domain.ErrUpstream, err)
	}
	return strings.TrimSpace(out.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
