package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewTavilyClientMissingKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")

	if _, err := NewTavilyClient(); err == nil {
		t.Fatal("NewTavilyClient() with no key should fail")
	}
}

func TestTavilySearch(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "test-key")

	var gotReq tavilyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		fmt.Fprint(w, `{"results":[
			{"title":"Example","url":"http://example.com","content":"snippet","raw_content":"full text"},
			{"title":"No raw","url":"http://example.com/2","content":"snippet 2","raw_content":null}
		]}`)
	}))
	defer server.Close()

	client, err := NewTavilyClient()
	if err != nil {
		t.Fatalf("NewTavilyClient() error = %v", err)
	}
	client.BaseURL = server.URL

	resp, err := client.Search(context.Background(), "test query", 3, true)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotReq.APIKey != "test-key" || gotReq.Query != "test query" || gotReq.MaxResults != 3 || !gotReq.IncludeRawContent {
		t.Errorf("unexpected request payload: %+v", gotReq)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	first := resp.Results[0]
	if first.Title != "Example" || first.URL != "http://example.com" || first.Content != "snippet" {
		t.Errorf("unexpected first result: %+v", first)
	}
	if first.RawContent == nil || *first.RawContent != "full text" {
		t.Error("raw content not carried through")
	}
	if resp.Results[1].RawContent != nil {
		t.Error("null raw_content should map to nil")
	}
}

func TestTavilySearchHTTPErrorPropagates(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer server.Close()

	client, err := NewTavilyClient()
	if err != nil {
		t.Fatalf("NewTavilyClient() error = %v", err)
	}
	client.BaseURL = server.URL

	if _, err := client.Search(context.Background(), "test query", 3, true); err == nil {
		t.Fatal("Search() should propagate provider errors")
	}
}
