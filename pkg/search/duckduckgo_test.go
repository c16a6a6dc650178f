package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const ddgResultHTML = `<html><body>
<div class="result results_links results_links_deep web-result">
  <a class="result__a" href="http://example.com/1">Example 1</a>
  <a class="result__snippet">Snippet one</a>
</div>
<div class="result results_links results_links_deep web-result">
  <a class="result__a" href="http://example.com/2">Example 2</a>
  <a class="result__snippet">Snippet two</a>
</div>
</body></html>`

// HTML with a record missing its snippet, which must be skipped.
const ddgIncompleteHTML = `<html><body>
<div class="result results_links results_links_deep web-result">
  <a class="result__a" href="http://example.com/broken">Broken</a>
</div>
<div class="result results_links results_links_deep web-result">
  <a class="result__a" href="http://example.com/ok">OK</a>
  <a class="result__snippet">Fine</a>
</div>
</body></html>`

// Result links wrapped in the redirect endpoint, scheme-relative and absolute.
const ddgRedirectHTML = `<html><body>
<div class="result results_links results_links_deep web-result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=http%3A%2F%2Fexample.com%2Frelative&amp;rut=abc">Relative</a>
  <a class="result__snippet">Snippet r</a>
</div>
<div class="result results_links results_links_deep web-result">
  <a class="result__a" href="https://duckduckgo.com/l/?uddg=http%3A%2F%2Fexample.com%2Fabsolute&amp;rut=def">Absolute</a>
  <a class="result__snippet">Snippet a</a>
</div>
</body></html>`

func newDDGTestClient(serverURL string) (*DuckDuckGoClient, *[]time.Duration) {
	delays := &[]time.Duration{}
	c := NewDuckDuckGoClient()
	c.BaseURL = serverURL
	c.Sleep = func(d time.Duration) { *delays = append(*delays, d) }
	return c, delays
}

func TestDuckDuckGoSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ddgResultHTML)
	}))
	defer server.Close()

	client, _ := newDDGTestClient(server.URL)
	resp := client.Search(context.Background(), "test query", 3, false)

	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	first := resp.Results[0]
	if first.Title != "Example 1" || first.URL != "http://example.com/1" || first.Content != "Snippet one" {
		t.Errorf("unexpected first result: %+v", first)
	}
	if first.RawContent == nil || *first.RawContent != "Snippet one" {
		t.Error("raw content should default to the snippet")
	}
}

func TestDuckDuckGoSearchUnwrapsRedirectLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, ddgRedirectHTML)
	}))
	defer server.Close()

	client, _ := newDDGTestClient(server.URL)
	resp := client.Search(context.Background(), "test query", 3, false)

	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if got := resp.Results[0].URL; got != "http://example.com/relative" {
		t.Errorf("scheme-relative redirect not unwrapped, got %q", got)
	}
	if got := resp.Results[1].URL; got != "http://example.com/absolute" {
		t.Errorf("absolute redirect not unwrapped, got %q", got)
	}
}

func TestDuckDuckGoSearchMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ddgResultHTML)
	}))
	defer server.Close()

	client, _ := newDDGTestClient(server.URL)
	resp := client.Search(context.Background(), "test query", 1, false)

	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(resp.Results))
	}
}

func TestDuckDuckGoSearchSkipsIncompleteResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ddgIncompleteHTML)
	}))
	defer server.Close()

	client, _ := newDDGTestClient(server.URL)
	resp := client.Search(context.Background(), "test query", 5, false)

	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want 1 (incomplete record skipped)", len(resp.Results))
	}
	if resp.Results[0].URL != "http://example.com/ok" {
		t.Errorf("surviving result = %q, want the complete record", resp.Results[0].URL)
	}
}

func TestDuckDuckGoSearchRetriesRateLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, ddgResultHTML)
	}))
	defer server.Close()

	client, delays := newDDGTestClient(server.URL)
	resp := client.Search(context.Background(), "test query", 3, false)

	if attempts != 3 {
		t.Errorf("server hit %d times, want 3", attempts)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results after retries, want 2", len(resp.Results))
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*delays) != 2 || (*delays)[0] != want[0] || (*delays)[1] != want[1] {
		t.Errorf("backoff delays = %v, want %v", *delays, want)
	}
}

func TestDuckDuckGoSearchRateLimitBudgetExhausted(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := newDDGTestClient(server.URL)
	resp := client.Search(context.Background(), "test query", 3, false)

	if attempts != 3 {
		t.Errorf("server hit %d times, want 3", attempts)
	}
	if len(resp.Results) != 0 {
		t.Errorf("got %d results, want empty set after exhausting retries", len(resp.Results))
	}
}

func TestDuckDuckGoSearchPermanentErrorDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, delays := newDDGTestClient(server.URL)
	resp := client.Search(context.Background(), "test query", 3, false)

	if len(resp.Results) != 0 {
		t.Errorf("got %d results, want empty set", len(resp.Results))
	}
	if len(*delays) != 0 {
		t.Error("permanent errors must not be retried")
	}
}

func TestDuckDuckGoSearchFetchFullPage(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Full page text.</p><script>ignored()</script></body></html>`)
	})
	// The catch-all "/" pattern would otherwise serve 200 for this path too.
	mux.HandleFunc("/missing", http.NotFound)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<div class="result results_links">
  <a class="result__a" href="%s/page">Page</a>
  <a class="result__snippet">Short snippet</a>
</div>
<div class="result results_links">
  <a class="result__a" href="%s/missing">Gone</a>
  <a class="result__snippet">Fallback snippet</a>
</div>
</body></html>`, server.URL, server.URL)
	})

	client, _ := newDDGTestClient(server.URL)
	resp := client.Search(context.Background(), "test query", 3, true)

	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].RawContent == nil || *resp.Results[0].RawContent != "Full page text." {
		t.Errorf("full page fetch did not replace raw content: %v", resp.Results[0].RawContent)
	}
	// The second page 404s; the snippet must survive as raw content.
	if resp.Results[1].RawContent == nil || *resp.Results[1].RawContent != "Fallback snippet" {
		t.Errorf("failed fetch should fall back to snippet: %v", resp.Results[1].RawContent)
	}
}
