// Package search provides web search provider clients and helpers to
// normalize their results into a common source shape.
package search

// Result is a single search result in the normalized shape shared by all
// providers. URL is the deduplication key.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	// RawContent is the full page content when the provider supplies it,
	// nil when absent.
	RawContent *string `json:"raw_content"`
}

// Response is one batch of results as returned by a provider call.
type Response struct {
	Results []Result `json:"results"`
}
