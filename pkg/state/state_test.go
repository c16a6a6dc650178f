package state

import (
	"testing"

	"github.com/localrag/research-assistant/pkg/search"
)

func TestNewSummaryState(t *testing.T) {
	s := NewSummaryState("Test Topic")

	if s.ResearchTopic != "Test Topic" {
		t.Errorf("ResearchTopic = %q", s.ResearchTopic)
	}
	if s.SearchQuery != "" {
		t.Errorf("SearchQuery = %q, want empty", s.SearchQuery)
	}
	if s.WebResearchResults == nil || len(s.WebResearchResults) != 0 {
		t.Error("WebResearchResults should initialize to an empty slice")
	}
	if s.SourcesGathered == nil || len(s.SourcesGathered) != 0 {
		t.Error("SourcesGathered should initialize to an empty slice")
	}
	if s.ResearchLoopCount != 0 {
		t.Errorf("ResearchLoopCount = %d, want 0", s.ResearchLoopCount)
	}
	if s.RunningSummary != "" {
		t.Errorf("RunningSummary = %q, want empty", s.RunningSummary)
	}
	if s.LocalContext != "" {
		t.Errorf("LocalContext = %q, want empty", s.LocalContext)
	}
}

func TestAddWebResults(t *testing.T) {
	s := NewSummaryState("topic")

	resp := search.Response{Results: []search.Result{
		{Title: "A", URL: "http://a.example", Content: "content"},
	}}

	s.AddWebResults(resp, "* A : http://a.example")
	s.AddWebResults(search.Response{}, "")

	if len(s.WebResearchResults) != 2 {
		t.Errorf("WebResearchResults length = %d, want 2 (append-only)", len(s.WebResearchResults))
	}
	if len(s.SourcesGathered) != 1 {
		t.Errorf("SourcesGathered length = %d, want 1 (empty formatting skipped)", len(s.SourcesGathered))
	}
}

func TestStateProjections(t *testing.T) {
	in := SummaryStateInput{ResearchTopic: "Test Topic"}
	if in.ResearchTopic != "Test Topic" {
		t.Errorf("input projection topic = %q", in.ResearchTopic)
	}

	out := SummaryStateOutput{RunningSummary: "Test Summary"}
	if out.RunningSummary != "Test Summary" {
		t.Errorf("output projection summary = %q", out.RunningSummary)
	}
}
