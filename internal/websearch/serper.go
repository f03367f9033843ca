// Package websearch wraps the Serper.dev Google-search API and formats the
// results for LLM consumption.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultEndpoint = "https://google.serper.dev/search"
	maxResults      = 3
	resultDivider   = "\n\n---\n\n"
)

// Searcher runs a web search and returns a text summary of the top results.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SerperClient implements Searcher on the Serper.dev API.
type SerperClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// NewSerperClient creates a Serper.dev search client.
func NewSerperClient(apiKey string) *SerperClient {
	return &SerperClient{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search runs the query and returns the top organic results formatted as
// source/title/summary blocks, in Portuguese field labels to match the
// assistant's replies.
func (c *SerperClient) Search(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return "", fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search request returned %d", resp.StatusCode)
	}

	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	if len(parsed.Organic) == 0 {
		return "Nenhum resultado encontrado.", nil
	}

	results := parsed.Organic
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("Fonte: %s\nTítulo: %s\nResumo: %s", r.Link, r.Title, r.Snippet))
	}
	return strings.Join(blocks, resultDivider), nil
}
