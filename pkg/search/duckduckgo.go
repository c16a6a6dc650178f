package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const duckDuckGoBaseURL = "https://html.duckduckgo.com/html/"

// errRateLimited marks a transient rate-limit response from DuckDuckGo.
var errRateLimited = errors.New("duckduckgo rate limited")

// DuckDuckGoClient searches the web through the DuckDuckGo HTML interface.
// No API key is required. Rate-limit responses are retried with exponential
// backoff; any other failure degrades to an empty result set.
type DuckDuckGoClient struct {
	HTTPClient *http.Client
	Logger     *slog.Logger

	// BaseURL overrides the search endpoint, used by tests.
	BaseURL string
	// Sleep overrides the inter-retry delay function, used by tests.
	Sleep func(time.Duration)

	maxRetries   int
	initialDelay time.Duration
}

// NewDuckDuckGoClient creates a client with the default retry budget of
// 3 attempts starting at a 2 second delay.
func NewDuckDuckGoClient() *DuckDuckGoClient {
	return &DuckDuckGoClient{
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		Logger:       slog.Default(),
		BaseURL:      duckDuckGoBaseURL,
		Sleep:        time.Sleep,
		maxRetries:   3,
		initialDelay: 2 * time.Second,
	}
}

// Search executes a text search. On rate limiting it retries within the
// fixed budget; on any other error it logs and returns an empty response.
// When fetchFullPage is set the linked page is fetched and stripped to text
// best-effort, falling back to the snippet on failure.
func (c *DuckDuckGoClient) Search(ctx context.Context, query string, maxResults int, fetchFullPage bool) Response {
	var results []Result

	err := retryWithBackoff(c.maxRetries, c.initialDelay, c.Sleep,
		func(err error) bool { return errors.Is(err, errRateLimited) },
		func() error {
			var err error
			results, err = c.searchOnce(ctx, query, maxResults)
			if errors.Is(err, errRateLimited) {
				c.Logger.Warn("duckduckgo rate limit hit, retrying", "query", query)
			}
			return err
		})
	if err != nil {
		c.Logger.Error("duckduckgo search failed", "query", query, "error", err)
		return Response{Results: []Result{}}
	}

	if fetchFullPage {
		for i := range results {
			page, err := c.fetchPageText(ctx, results[i].URL)
			if err != nil {
				c.Logger.Warn("failed to fetch full page content, falling back to snippet",
					"url", results[i].URL, "error", err)
				continue
			}
			results[i].RawContent = &page
		}
	}

	return Response{Results: results}
}

func (c *DuckDuckGoClient) searchOnce(ctx context.Context, query string, maxResults int) ([]Result, error) {
	searchURL := c.BaseURL + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// DuckDuckGo answers rate-limited clients with 429 or an empty 202.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusAccepted {
		return nil, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return c.parseResults(string(body), maxResults), nil
}

// parseResults extracts search results from the DuckDuckGo HTML, skipping
// records missing a title, url, or snippet.
func (c *DuckDuckGoClient) parseResults(htmlContent string, maxResults int) []Result {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		c.Logger.Warn("failed to parse duckduckgo response", "error", err)
		return nil
	}

	results := []Result{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" {
			class := attrValue(n, "class")
			if strings.Contains(class, "result") && strings.Contains(class, "results_links") {
				title, href, snippet := extractResultFields(n)
				if title == "" || href == "" || snippet == "" {
					c.Logger.Warn("incomplete result from duckduckgo, skipping",
						"title", title, "url", href)
					return
				}
				snippetCopy := snippet
				results = append(results, Result{
					Title:      title,
					URL:        href,
					Content:    snippet,
					RawContent: &snippetCopy,
				})
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return results
}

// extractResultFields pulls the link, title, and snippet out of one result
// div. DuckDuckGo redirect links are unwrapped to the target URL.
func extractResultFields(n *html.Node) (title, href, snippet string) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			class := attrValue(n, "class")
			if strings.Contains(class, "result__a") {
				href = attrValue(n, "href")
				title = textContent(n)
			} else if strings.Contains(class, "result__snippet") {
				snippet = textContent(n)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	// Result links come back as redirect URLs, scheme-relative or absolute.
	for _, prefix := range []string{"//duckduckgo.com/l/?uddg=", "https://duckduckgo.com/l/?uddg="} {
		if !strings.HasPrefix(href, prefix) {
			continue
		}
		if decoded, err := url.QueryUnescape(strings.TrimPrefix(href, prefix)); err == nil {
			if idx := strings.Index(decoded, "&"); idx > 0 {
				decoded = decoded[:idx]
			}
			href = decoded
		}
		break
	}

	return title, href, snippet
}

// fetchPageText downloads a page and strips it to plain text.
func (c *DuckDuckGoClient) fetchPageText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	return textContent(doc), nil
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// textContent returns the concatenated text of a node tree, skipping script
// and style elements.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
