package state

import "github.com/localrag/research-assistant/pkg/search"

// SummaryState threads a research session through the pipeline nodes. It is
// owned by a single caller; nodes return partial updates which the caller
// merges back in. No internal locking, concurrent mutation is not supported.
type SummaryState struct {
	ResearchTopic      string            `json:"research_topic,omitempty"`
	SearchQuery        string            `json:"search_query,omitempty"`
	WebResearchResults []search.Response `json:"web_research_results"`
	SourcesGathered    []string          `json:"sources_gathered"`
	ResearchLoopCount  int               `json:"research_loop_count"`
	RunningSummary     string            `json:"running_summary,omitempty"`
	LocalContext       string            `json:"local_context"`
}

// NewSummaryState returns a state with empty (non-nil) accumulators.
func NewSummaryState(topic string) *SummaryState {
	return &SummaryState{
		ResearchTopic:      topic,
		WebResearchResults: []search.Response{},
		SourcesGathered:    []string{},
	}
}

// SummaryStateInput is the projection the orchestrator seeds a session with.
type SummaryStateInput struct {
	ResearchTopic string `json:"research_topic,omitempty"`
}

// SummaryStateOutput is the projection returned at session end.
type SummaryStateOutput struct {
	RunningSummary string `json:"running_summary,omitempty"`
}

// AddWebResults appends a search response batch and its formatted source
// listing to the session accumulators.
func (s *SummaryState) AddWebResults(resp search.Response, formatted string) {
	s.WebResearchResults = append(s.WebResearchResults, resp)
	if formatted != "" {
		s.SourcesGathered = append(s.SourcesGathered, formatted)
	}
}
