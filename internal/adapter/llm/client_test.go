package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingwo/essayd/internal/domain"
)

func TestClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/completion", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 256, req.NPredict)
		assert.Equal(t, 64, req.TopK)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"content":"  {\"valid\": true}  "}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	out, err := client.Generate(context.Background(), &CompletionRequest{
		Prompt:   "check this",
		NPredict: 256,
		TopK:     64,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"valid": true}`, out)
}

func TestClientGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "model exploded")
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Generate(context.Background(), &CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
}

func TestClientGenerateUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	_, err := client.Generate(context.Background(), &CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
}

func TestLazyInitializesOnce(t *testing.T) {
	var inits int
	var mu sync.Mutex
	mock := NewMockClient()
	lazy := NewLazy(func() Generator {
		mu.Lock()
		inits++
		mu.Unlock()
		return mock
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lazy.Generate(context.Background(), &CompletionRequest{Prompt: "p"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inits)
}
