package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

type fakeEmbedder struct{}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeVectorIndex struct {
	dense   []domain.Candidate
	lexical []domain.Candidate
}

func (f *fakeVectorIndex) SearchDense(context.Context, domain.SemanticField, []float32, int, domain.RangeRestriction) ([]domain.Candidate, error) {
	return f.dense, nil
}

func (f *fakeVectorIndex) SearchLexical(context.Context, string, int, domain.RangeRestriction) ([]domain.Candidate, error) {
	return f.lexical, nil
}

func (f *fakeVectorIndex) SearchSimilar(context.Context, int64, domain.SemanticField, int) ([]domain.Candidate, error) {
	return nil, nil
}

type fakeContactRepo struct {
	contacts     map[int64]domain.Contact
	searchResult []domain.Contact
	searchCalls  []domain.Filter
	resolveCalls int
}

func (f *fakeContactRepo) Search(_ context.Context, filter domain.Filter) ([]domain.Contact, error) {
	f.searchCalls = append(f.searchCalls, filter)
	return f.searchResult, nil
}

func (f *fakeContactRepo) GetByID(_ context.Context, id int64) (*domain.Contact, error) {
	contact, ok := f.contacts[id]
	if !ok {
		return nil, domain.ErrContactNotFound
	}
	return &contact, nil
}

func (f *fakeContactRepo) ResolveByIDs(_ context.Context, ids []int64) ([]domain.Contact, error) {
	f.resolveCalls++
	// Deliberately resolves in reverse request order: the store does
	// not guarantee resolution order and the executor must not rely on it.
	out := make([]domain.Contact, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if contact, ok := f.contacts[ids[i]]; ok {
			out = append(out, contact)
		}
	}
	return out, nil
}

func (f *fakeContactRepo) MarkOutreachQueued(context.Context, int64, time.Time) error {
	return nil
}

func intPtr(v int) *int { return &v }

func hybridFixture(vectors *fakeVectorIndex, repo *fakeContactRepo) *HybridSearchUseCase {
	return NewHybridSearchUseCase(&fakeEmbedder{}, vectors, repo, 100, 60)
}

func TestHybridSearchAgreementBeatsSingleFirstPlace(t *testing.T) {
	// X ranks #1 dense and #3 lexical; Y ranks #2 dense and #1 lexical.
	// Y's fused score 1/62+1/61 exceeds X's 1/61+1/63.
	vectors := &fakeVectorIndex{
		dense: []domain.Candidate{
			{ContactID: 1, Score: 0.99}, // X
			{ContactID: 2, Score: 0.98}, // Y
		},
		lexical: []domain.Candidate{
			{ContactID: 2, Score: 10},
			{ContactID: 3, Score: 9},
			{ContactID: 1, Score: 8},
		},
	}
	repo := &fakeContactRepo{contacts: map[int64]domain.Contact{
		1: {ID: 1, FirstName: "Xan", ProximityScore: intPtr(70)},
		2: {ID: 2, FirstName: "Yara", ProximityScore: intPtr(65)},
		3: {ID: 3, FirstName: "Zed", ProximityScore: intPtr(50)},
	}}

	results, err := hybridFixture(vectors, repo).Search(context.Background(), domain.Filter{
		SemanticQuery: "outdoor equity",
		ProximityMin:  intPtr(40),
		Limit:         10,
		SemanticField: domain.SemanticFieldProfile,
	}.Normalized())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Contact.ID != 2 {
		t.Fatalf("expected contact 2 (agreement across modes) first, got %d", results[0].Contact.ID)
	}
	want := 1.0/62.0 + 1.0/61.0
	if diff := results[0].HybridScore - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("hybrid score = %v, want %v", results[0].HybridScore, want)
	}
	for i := 1; i < len(results); i++ {
		if results[i].HybridScore > results[i-1].HybridScore {
			t.Fatalf("hybrid scores not non-increasing at %d", i)
		}
	}
}

func TestHybridSearchNeverFabricatesResults(t *testing.T) {
	vectors := &fakeVectorIndex{
		dense:   []domain.Candidate{{ContactID: 1}},
		lexical: []domain.Candidate{{ContactID: 2}},
	}
	repo := &fakeContactRepo{contacts: map[int64]domain.Contact{
		1: {ID: 1},
		2: {ID: 2},
		9: {ID: 9},
	}}

	results, err := hybridFixture(vectors, repo).Search(context.Background(), domain.Filter{
		SemanticQuery: "anything",
	}.Normalized())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, result := range results {
		if result.Contact.ID != 1 && result.Contact.ID != 2 {
			t.Fatalf("result %d appeared in neither candidate list", result.Contact.ID)
		}
	}
}

func TestHybridSearchPostFilterPreservesOrderAndShrinks(t *testing.T) {
	vectors := &fakeVectorIndex{
		dense: []domain.Candidate{
			{ContactID: 1}, {ContactID: 2}, {ContactID: 3}, {ContactID: 4},
		},
	}
	repo := &fakeContactRepo{contacts: map[int64]domain.Contact{
		1: {ID: 1, Familiarity: 4},
		2: {ID: 2, Familiarity: 0},
		3: {ID: 3, Familiarity: 3},
		4: {ID: 4, Familiarity: 2},
	}}

	results, err := hybridFixture(vectors, repo).Search(context.Background(), domain.Filter{
		SemanticQuery:  "anything",
		FamiliarityMin: intPtr(2),
		Limit:          4,
	}.Normalized())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected the post-filter to shrink to 3, got %d", len(results))
	}
	wantOrder := []int64{1, 3, 4}
	for i, want := range wantOrder {
		if results[i].Contact.ID != want {
			t.Fatalf("post-filter reordered survivors: position %d = %d, want %d", i, results[i].Contact.ID, want)
		}
	}
}

func TestHybridSearchEmptyCandidatesSkipsResolution(t *testing.T) {
	vectors := &fakeVectorIndex{}
	repo := &fakeContactRepo{contacts: map[int64]domain.Contact{}}

	results, err := hybridFixture(vectors, repo).Search(context.Background(), domain.Filter{
		SemanticQuery: "nothing matches",
	}.Normalized())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result, got %d", len(results))
	}
	if repo.resolveCalls != 0 {
		t.Fatalf("expected no resolution round-trip, got %d", repo.resolveCalls)
	}
}
