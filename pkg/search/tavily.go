package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const tavilyBaseURL = "https://api.tavily.com/search"

// TavilyClient searches the web through the Tavily API. A missing API key is
// a configuration error; provider and HTTP failures propagate to the caller.
type TavilyClient struct {
	HTTPClient *http.Client
	BaseURL    string

	apiKey string
}

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Content    string  `json:"content"`
		RawContent *string `json:"raw_content"`
	} `json:"results"`
}

// NewTavilyClient creates a client from the TAVILY_API_KEY environment
// variable. Absence of the key is fatal to the Tavily path.
func NewTavilyClient() (*TavilyClient, error) {
	apiKey := os.Getenv("TAVILY_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("TAVILY_API_KEY environment variable is not set")
	}
	return &TavilyClient{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    tavilyBaseURL,
		apiKey:     apiKey,
	}, nil
}

// Search performs a single synchronous search call. No retry is applied.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int, includeRawContent bool) (Response, error) {
	reqBody, err := json.Marshal(tavilyRequest{
		APIKey:            c.apiKey,
		Query:             query,
		MaxResults:        maxResults,
		IncludeRawContent: includeRawContent,
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Response{}, fmt.Errorf("tavily API returned status %d: %s", resp.StatusCode, string(body))
	}

	var tavilyResp tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tavilyResp); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]Result, 0, len(tavilyResp.Results))
	for _, r := range tavilyResp.Results {
		results = append(results, Result{
			Title:      r.Title,
			URL:        r.URL,
			Content:    r.Content,
			RawContent: r.RawContent,
		})
	}

	return Response{Results: results}, nil
}
