package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

func queryResponse(points ...map[string]any) []byte {
	raw, _ := json.Marshal(map[string]any{
		"result": map[string]any{"points": points},
	})
	return raw
}

func intPtr(v int) *int { return &v }

func TestSearchDensePushesRangeFilterDown(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/contacts/points/query" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = w.Write(queryResponse(
			map[string]any{"id": 7, "score": 0.91, "payload": map[string]any{"contact_id": 7}},
			map[string]any{"id": 3, "score": 0.77, "payload": map[string]any{"contact_id": 3}},
		))
	}))
	defer server.Close()

	client := New(server.URL, "contacts")
	candidates, err := client.SearchDense(context.Background(), domain.SemanticFieldProfile, []float32{0.1, 0.2}, 10, domain.RangeRestriction{
		ProximityMin: intPtr(40),
	})
	if err != nil {
		t.Fatalf("SearchDense() error = %v", err)
	}
	if len(candidates) != 2 || candidates[0].ContactID != 7 {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}

	if captured["using"] != "profile" {
		t.Fatalf("using = %v, want profile", captured["using"])
	}
	raw, _ := json.Marshal(captured["filter"])
	if !strings.Contains(string(raw), `"proximity_score"`) || !strings.Contains(string(raw), `"gte":40`) {
		t.Fatalf("range restriction not pushed down: %s", raw)
	}
}

func TestSearchLexicalUsesSparseVector(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write(queryResponse())
	}))
	defer server.Close()

	client := New(server.URL, "contacts")
	if _, err := client.SearchLexical(context.Background(), "river trust climbers", 20, domain.RangeRestriction{}); err != nil {
		t.Fatalf("SearchLexical() error = %v", err)
	}

	if captured["using"] != lexicalVectorName {
		t.Fatalf("using = %v, want %s", captured["using"], lexicalVectorName)
	}
	query, ok := captured["query"].(map[string]any)
	if !ok {
		t.Fatalf("query should be a sparse vector object, got %T", captured["query"])
	}
	if _, ok := query["indices"]; !ok {
		t.Fatalf("sparse query missing indices: %v", query)
	}
}

func TestSearchLexicalNoiseOnlyQuerySkipsRoundTrip(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = w.Write(queryResponse())
	}))
	defer server.Close()

	client := New(server.URL, "contacts")
	candidates, err := client.SearchLexical(context.Background(), "!!! ---", 10, domain.RangeRestriction{})
	if err != nil {
		t.Fatalf("SearchLexical() error = %v", err)
	}
	if called || len(candidates) != 0 {
		t.Fatalf("expected no request for an unencodable query")
	}
}

func TestSearchSimilarDropsTheAnchor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(queryResponse(
			map[string]any{"id": 5, "score": 1.0, "payload": map[string]any{"contact_id": 5}},
			map[string]any{"id": 9, "score": 0.8, "payload": map[string]any{"contact_id": 9}},
		))
	}))
	defer server.Close()

	client := New(server.URL, "contacts")
	candidates, err := client.SearchSimilar(context.Background(), 5, domain.SemanticFieldInterests, 10)
	if err != nil {
		t.Fatalf("SearchSimilar() error = %v", err)
	}
	if len(candidates) != 1 || candidates[0].ContactID != 9 {
		t.Fatalf("anchor must not appear in its own similarity list: %+v", candidates)
	}
}

func TestQueryIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection missing", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "contacts")
	_, err := client.SearchDense(context.Background(), domain.SemanticFieldProfile, []float32{0.1}, 5, domain.RangeRestriction{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "collection missing") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}
