package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

type fakePathFinder struct {
	hops []domain.IntroHop
	err  error
}

func (f *fakePathFinder) IntroPath(context.Context, int64, int64, int) ([]domain.IntroHop, error) {
	return f.hops, f.err
}

type fakeExporter struct {
	path    string
	results int
}

func (f *fakeExporter) Export(_ context.Context, results []domain.SearchResult) (string, error) {
	f.results = len(results)
	return f.path, nil
}

type fakePublisher struct {
	published []int64
}

func (f *fakePublisher) PublishOutreachQueued(_ context.Context, contactID int64) error {
	f.published = append(f.published, contactID)
	return nil
}

func registryFixture(repo *fakeContactRepo, ledger *Ledger) *ToolRegistry {
	structured := NewStructuredSearchUseCase(repo)
	hybrid := NewHybridSearchUseCase(&fakeEmbedder{}, &fakeVectorIndex{}, repo, 10, 60)
	return NewToolRegistry(ToolDeps{
		Searcher: NewSearchUseCase(structured, hybrid),
		Contacts: repo,
		Vectors:  &fakeVectorIndex{},
	}, ledger)
}

func TestDispatchUnknownToolIsErrorShaped(t *testing.T) {
	registry := registryFixture(&fakeContactRepo{}, nil)

	result := registry.Dispatch(context.Background(), domain.ToolRequest{ID: "c1", Name: "forecast_weather"})
	if result.Status != domain.ToolStatusError {
		t.Fatalf("status = %s, want error", result.Status)
	}
	if !strings.Contains(result.Content, "unknown tool") {
		t.Fatalf("content should name the failure, got %q", result.Content)
	}
	if result.CallID != "c1" {
		t.Fatalf("result must keep the request's call id")
	}
}

func TestDispatchMissingRequiredArgument(t *testing.T) {
	registry := registryFixture(&fakeContactRepo{}, nil)

	result := registry.Dispatch(context.Background(), domain.ToolRequest{
		Name: toolContactDetail,
		Args: map[string]any{},
	})
	if result.Status != domain.ToolStatusError {
		t.Fatalf("status = %s, want error", result.Status)
	}
	if !strings.Contains(result.Content, "contact_id") {
		t.Fatalf("error should name the missing argument, got %q", result.Content)
	}
}

func TestDispatchEnumViolation(t *testing.T) {
	registry := registryFixture(&fakeContactRepo{}, nil)

	result := registry.Dispatch(context.Background(), domain.ToolRequest{
		Name: toolSimilarContacts,
		Args: map[string]any{"contact_id": float64(1), "field": "astrology"},
	})
	if result.Status != domain.ToolStatusError {
		t.Fatalf("status = %s, want error", result.Status)
	}
	if !strings.Contains(result.Content, "profile") {
		t.Fatalf("error should list the allowed values, got %q", result.Content)
	}
}

func TestDispatchHandlerErrorIsAbsorbed(t *testing.T) {
	repo := &fakeContactRepo{contacts: map[int64]domain.Contact{}}
	registry := registryFixture(repo, nil)

	result := registry.Dispatch(context.Background(), domain.ToolRequest{
		Name: toolContactDetail,
		Args: map[string]any{"contact_id": float64(77)},
	})
	if result.Status != domain.ToolStatusError {
		t.Fatalf("status = %s, want error", result.Status)
	}
	if !strings.Contains(result.Content, "error") {
		t.Fatalf("failures must surface as error payloads, got %q", result.Content)
	}
}

func TestContactDetailLookupsAreCachedWithinRun(t *testing.T) {
	repo := &fakeContactRepo{contacts: map[int64]domain.Contact{
		5: {ID: 5, FirstName: "Mira"},
	}}
	ledger := NewLedger(nil)
	registry := registryFixture(repo, ledger)

	for i := 0; i < 3; i++ {
		result := registry.Dispatch(context.Background(), domain.ToolRequest{
			Name: toolContactDetail,
			Args: map[string]any{"contact_id": float64(5)},
		})
		if result.Status != domain.ToolStatusOK {
			t.Fatalf("dispatch %d failed: %s", i, result.Content)
		}
	}

	summary := ledger.Summary()
	if summary.Operations[domain.OpEnrichmentLookup] != 3 {
		t.Fatalf("lookups recorded = %d, want 3", summary.Operations[domain.OpEnrichmentLookup])
	}
	if summary.CacheHits != 2 {
		t.Fatalf("cache hits = %d, want 2 (only the first fetch misses)", summary.CacheHits)
	}
}

func TestOptionalToolsRegisterOnlyWithTheirDeps(t *testing.T) {
	base := registryFixture(&fakeContactRepo{}, nil)
	for _, schema := range base.Schemas() {
		if schema.Name == toolNetworkPath || schema.Name == toolExportContacts || schema.Name == toolOutreachContext {
			t.Fatalf("tool %s must not register without its collaborator", schema.Name)
		}
	}

	full := NewToolRegistry(ToolDeps{
		Searcher: NewSearchUseCase(NewStructuredSearchUseCase(&fakeContactRepo{}), nil),
		Contacts: &fakeContactRepo{},
		Vectors:  &fakeVectorIndex{},
		Paths:    &fakePathFinder{},
		Exporter: &fakeExporter{},
		Outreach: &fakePublisher{},
	}, nil)
	if len(full.Schemas()) != 6 {
		t.Fatalf("expected all 6 tools registered, got %d", len(full.Schemas()))
	}
}

func TestNetworkPathTool(t *testing.T) {
	finder := &fakePathFinder{hops: []domain.IntroHop{
		{ContactID: 1, Name: "Ava Chen"},
		{ContactID: 8, Name: "Ben Ortiz"},
		{ContactID: 3, Name: "Cal Reyes"},
	}}
	registry := NewToolRegistry(ToolDeps{
		Searcher: NewSearchUseCase(NewStructuredSearchUseCase(&fakeContactRepo{}), nil),
		Contacts: &fakeContactRepo{},
		Vectors:  &fakeVectorIndex{},
		Paths:    finder,
	}, nil)

	result := registry.Dispatch(context.Background(), domain.ToolRequest{
		Name: toolNetworkPath,
		Args: map[string]any{"from_contact_id": float64(1), "to_contact_id": float64(3)},
	})
	if result.Status != domain.ToolStatusOK {
		t.Fatalf("dispatch failed: %s", result.Content)
	}
	if !strings.Contains(result.Content, "Ben Ortiz") {
		t.Fatalf("path payload should carry intermediate hops, got %q", result.Content)
	}

	finder.hops = nil
	finder.err = errors.New("no path within hop bound")
	result = registry.Dispatch(context.Background(), domain.ToolRequest{
		Name: toolNetworkPath,
		Args: map[string]any{"from_contact_id": float64(1), "to_contact_id": float64(9)},
	})
	if result.Status != domain.ToolStatusError {
		t.Fatalf("unreachable target must be error-shaped, got %s", result.Status)
	}
}

func TestExportContactsReturnsArtifact(t *testing.T) {
	repo := &fakeContactRepo{searchResult: []domain.Contact{{ID: 1}, {ID: 2}}}
	exporter := &fakeExporter{path: "/tmp/contacts-20260831.xlsx"}
	registry := NewToolRegistry(ToolDeps{
		Searcher: NewSearchUseCase(NewStructuredSearchUseCase(repo), nil),
		Contacts: repo,
		Vectors:  &fakeVectorIndex{},
		Exporter: exporter,
	}, nil)

	result := registry.Dispatch(context.Background(), domain.ToolRequest{
		Name: toolExportContacts,
		Args: map[string]any{"limit": float64(10)},
	})
	if result.Status != domain.ToolStatusOK {
		t.Fatalf("dispatch failed: %s", result.Content)
	}
	if result.Artifact != exporter.path {
		t.Fatalf("artifact = %q, want the export path", result.Artifact)
	}
	if exporter.results != 2 {
		t.Fatalf("exporter received %d results, want 2", exporter.results)
	}
}

func TestOutreachContextQueuesOnRequest(t *testing.T) {
	repo := &fakeContactRepo{contacts: map[int64]domain.Contact{
		4: {ID: 4, FirstName: "Dana", ProximityScore: intPtr(85)},
	}}
	publisher := &fakePublisher{}
	registry := NewToolRegistry(ToolDeps{
		Searcher: NewSearchUseCase(NewStructuredSearchUseCase(repo), nil),
		Contacts: repo,
		Vectors:  &fakeVectorIndex{},
		Outreach: publisher,
	}, nil)

	result := registry.Dispatch(context.Background(), domain.ToolRequest{
		Name: toolOutreachContext,
		Args: map[string]any{"contact_id": float64(4)},
	})
	if result.Status != domain.ToolStatusOK {
		t.Fatalf("dispatch failed: %s", result.Content)
	}
	if !strings.Contains(result.Content, "personal") {
		t.Fatalf("an inner-tier contact should get the personal tone, got %q", result.Content)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("must not queue unless asked")
	}

	result = registry.Dispatch(context.Background(), domain.ToolRequest{
		Name: toolOutreachContext,
		Args: map[string]any{"contact_id": float64(4), "queue": true},
	})
	if result.Status != domain.ToolStatusOK {
		t.Fatalf("queueing dispatch failed: %s", result.Content)
	}
	if len(publisher.published) != 1 || publisher.published[0] != 4 {
		t.Fatalf("expected one publish for contact 4, got %v", publisher.published)
	}
}

func TestFilterFromArgsCoercion(t *testing.T) {
	filter := filterFromArgs(map[string]any{
		"semantic_query": "climate funders",
		"proximity_min":  "40",
		"fit_types":      []any{"funder", "advisor"},
		"limit":          float64(25),
		"sort_by":        "capacity",
	})
	if filter.SemanticQuery != "climate funders" {
		t.Fatalf("semantic query = %q", filter.SemanticQuery)
	}
	if filter.ProximityMin == nil || *filter.ProximityMin != 40 {
		t.Fatalf("proximity_min should coerce from string, got %v", filter.ProximityMin)
	}
	if len(filter.FitTypes) != 2 || filter.FitTypes[1] != "advisor" {
		t.Fatalf("fit types = %v", filter.FitTypes)
	}
	if filter.Limit != 25 || filter.SortBy != domain.SortCapacity {
		t.Fatalf("limit/sort = %d/%s", filter.Limit, filter.SortBy)
	}
}
