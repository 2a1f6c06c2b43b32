// Package topics supplies essay topics: semantic suggestions from the topic
// search service with a static list fallback.
package topics

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// MaxSections is the most section labels a suggestion query may carry.
const MaxSections = 3

// Provider picks topics for users.
type Provider struct {
	serviceURL string
	topicsPath string
	httpClient *http.Client

	loadOnce sync.Once
	static   []string
	loadErr  error
}

// NewProvider creates a provider backed by the topic search service at
// serviceURL and the static topics file at topicsPath.
func NewProvider(serviceURL, topicsPath string) *Provider {
	return &Provider{
		serviceURL: strings.TrimSuffix(serviceURL, "/"),
		topicsPath: topicsPath,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// suggestRequest is the topic search query: up to 3 section labels.
type suggestRequest struct {
	Sections []string `json:"sections"`
	Limit    int      `json:"limit"`
}

type suggestResponse struct {
	Topics []string `json:"topics"`
}

// Suggest returns candidate topics for the given sections. A failing or
// empty service response falls back to the static list.
func (p *Provider) Suggest(ctx context.Context, sections []string) ([]string, error) {
	if len(sections) > MaxSections {
		return nil, fmt.Errorf("at most %d sections allowed", MaxSections)
	}

	candidates := p.query(ctx, sections)
	if len(candidates) > 0 {
		return candidates, nil
	}
	return p.staticTopics()
}

// Random picks one topic: from suggestions when sections are given,
// otherwise from the static list.
func (p *Provider) Random(ctx context.Context, sections []string) (string, error) {
	var candidates []string
	var err error
	if len(sections) > 0 {
		candidates, err = p.Suggest(ctx, sections)
	} else {
		candidates, err = p.staticTopics()
	}
	if err != nil {
		return "", err
	}
	return candidates[rand.Intn(len(candidates))], nil
}

func (p *Provider) query(ctx context.Context, sections []string) []string {
	if p.serviceURL == "" || len(sections) == 0 {
		return nil
	}

	body, err := json.Marshal(suggestRequest{Sections: sections, Limit: 60})
	if err != nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serviceURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Printf("topics: suggestion service unavailable, falling back to static list: %v", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("topics: suggestion service status %d, falling back to static list", resp.StatusCode)
		return nil
	}

	var out suggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("topics: bad suggestion response, falling back to static list: %v", err)
		return nil
	}

	topics := make([]string, 0, len(out.Topics))
	for _, topic := range out.Topics {
		if t := strings.TrimSpace(topic); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// staticTopics loads the bundled topic list once. Lines are of the form
// "123. Тема" and the numeric prefix is stripped.
func (p *Provider) staticTopics() ([]string, error) {
	p.loadOnce.Do(func() {
		p.static, p.loadErr = loadTopicsFile(p.topicsPath)
	})
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return p.static, nil
}

func loadTopicsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("topics file: %w", err)
	}
	defer f.Close()

	var topics []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if i := strings.Index(line, "."); i != -1 {
			line = strings.TrimSpace(line[i+1:])
		}
		if line != "" {
			topics = append(topics, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read topics file: %w", err)
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("topics file %s is empty", path)
	}
	return topics, nil
}
