package search

import (
	"fmt"
	"log/slog"
	"strings"
)

// DeduplicateAndFormatSources flattens the given response batches into one
// sequence, deduplicates by URL keeping the first occurrence, and renders
// each unique source as a human-readable block. Raw content is included only
// when includeRawContent is set and is capped at maxTokensPerSource*4
// characters (rough 4 chars/token estimate).
func DeduplicateAndFormatSources(responses []Response, maxTokensPerSource int, includeRawContent bool) string {
	var sources []Result
	for _, resp := range responses {
		sources = append(sources, resp.Results...)
	}

	seen := make(map[string]bool, len(sources))
	unique := make([]Result, 0, len(sources))
	for _, src := range sources {
		if seen[src.URL] {
			continue
		}
		seen[src.URL] = true
		unique = append(unique, src)
	}

	var sb strings.Builder
	sb.WriteString("Sources:\n\n")
	for _, src := range unique {
		fmt.Fprintf(&sb, "Source %s:\n===\n", src.Title)
		fmt.Fprintf(&sb, "URL: %s\n===\n", src.URL)
		fmt.Fprintf(&sb, "Most relevant content from source: %s\n===\n", src.Content)
		if includeRawContent {
			charLimit := maxTokensPerSource * 4
			raw := ""
			if src.RawContent != nil {
				raw = *src.RawContent
			} else {
				slog.Warn("no raw_content found for source", "url", src.URL)
			}
			// Limit counts characters, not bytes, so a cut never splits a rune.
			if runes := []rune(raw); len(runes) > charLimit {
				raw = string(runes[:charLimit]) + "... [truncated]"
			}
			fmt.Fprintf(&sb, "Full source content limited to %d tokens: %s\n\n", maxTokensPerSource, raw)
		}
	}

	return strings.TrimSpace(sb.String())
}

// FormatSources renders a response as a bullet list of "title : url" lines.
// No deduplication is applied.
func FormatSources(resp Response) string {
	lines := make([]string, 0, len(resp.Results))
	for _, src := range resp.Results {
		lines = append(lines, fmt.Sprintf("* %s : %s", src.Title, src.URL))
	}
	return strings.Join(lines, "\n")
}
