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

const (
	perplexityBaseURL      = "https://api.perplexity.ai/chat/completions"
	perplexityModel        = "sonar-pro"
	perplexitySystemPrompt = "Search the web and provide factual information with sources."
)

// PerplexityClient searches the web through the Perplexity chat-completion
// API. HTTP and provider failures propagate to the caller.
type PerplexityClient struct {
	HTTPClient *http.Client
	BaseURL    string

	apiKey string
}

// NewPerplexityClient creates a client reading PERPLEXITY_API_KEY from the
// environment. A missing key is not checked here; the provider rejects the
// request with an authorization failure.
func NewPerplexityClient() *PerplexityClient {
	return &PerplexityClient{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		BaseURL:    perplexityBaseURL,
		apiKey:     os.Getenv("PERPLEXITY_API_KEY"),
	}
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityRequest struct {
	Model    string              `json:"model"`
	Messages []perplexityMessage `json:"messages"`
}

type perplexityResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

// Search issues one chat-completion request and maps the answer plus its
// citations into the common result shape. The first citation carries the
// full answer; the remaining citations are placeholder references. loopCount
// is the zero-based research loop iteration used in result titles.
func (c *PerplexityClient) Search(ctx context.Context, query string, loopCount int) (Response, error) {
	reqBody, err := json.Marshal(perplexityRequest{
		Model: perplexityModel,
		Messages: []perplexityMessage{
			{Role: "system", Content: perplexitySystemPrompt},
			{Role: "user", Content: query},
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return Response{}, fmt.Errorf("perplexity API returned status %d: %s", resp.StatusCode, string(body))
	}

	var pplxResp perplexityResponse
	if err := json.NewDecoder(resp.Body).Decode(&pplxResp); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(pplxResp.Choices) == 0 {
		return Response{}, fmt.Errorf("perplexity returned no choices")
	}

	content := pplxResp.Choices[0].Message.Content
	citations := pplxResp.Citations
	if len(citations) == 0 {
		citations = []string{"https://perplexity.ai"}
	}

	results := []Result{{
		Title:      fmt.Sprintf("Perplexity Search %d, Source 1", loopCount+1),
		URL:        citations[0],
		Content:    content,
		RawContent: &content,
	}}
	for i, citation := range citations[1:] {
		results = append(results, Result{
			Title:      fmt.Sprintf("Perplexity Search %d, Source %d", loopCount+1, i+2),
			URL:        citation,
			Content:    "See above for full content",
			RawContent: nil,
		})
	}

	return Response{Results: results}, nil
}
