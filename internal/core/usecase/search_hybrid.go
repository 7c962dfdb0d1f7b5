package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
	"github.com/kirillkom/relationship-assistant/internal/core/ports"
)

// HybridSearchUseCase answers filters that carry a semantic query by
// fusing a vector nearest-neighbor list with a lexical list.
type HybridSearchUseCase struct {
	embedder       ports.Embedder
	vectors        ports.VectorIndex
	contacts       ports.ContactRepository
	candidateDepth int
	rrfK           int
}

func NewHybridSearchUseCase(
	embedder ports.Embedder,
	vectors ports.VectorIndex,
	contacts ports.ContactRepository,
	candidateDepth int,
	rrfK int,
) *HybridSearchUseCase {
	if candidateDepth <= 0 {
		candidateDepth = 100
	}
	if rrfK <= 0 {
		rrfK = 60
	}
	return &HybridSearchUseCase{
		embedder:       embedder,
		vectors:        vectors,
		contacts:       contacts,
		candidateDepth: candidateDepth,
		rrfK:           rrfK,
	}
}

func (uc *HybridSearchUseCase) Search(ctx context.Context, filter domain.Filter) ([]domain.SearchResult, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, filter.SemanticQuery)
	if err != nil {
		return nil, fmt.Errorf("embed semantic query: %w", err)
	}

	depth := uc.candidateDepth
	if depth < filter.Limit {
		depth = filter.Limit
	}
	restrict := filter.PushDown()

	dense, err := uc.vectors.SearchDense(ctx, filter.SemanticField, queryVector, depth, restrict)
	if err != nil {
		return nil, fmt.Errorf("dense candidate search: %w", err)
	}
	lexical, err := uc.vectors.SearchLexical(ctx, filter.SemanticQuery, depth, restrict)
	if err != nil {
		return nil, fmt.Errorf("lexical candidate search: %w", err)
	}

	fused := trimFused(fuseRRF([][]domain.Candidate{dense, lexical}, uc.rrfK), filter.Limit)
	if len(fused) == 0 {
		// Nothing matched either list; skip the resolution round-trip.
		return []domain.SearchResult{}, nil
	}

	ids := make([]int64, 0, len(fused))
	for _, candidate := range fused {
		ids = append(ids, candidate.contactID)
	}
	resolved, err := uc.contacts.ResolveByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve fused contacts: %w", err)
	}

	byID := make(map[int64]domain.Contact, len(resolved))
	for _, contact := range resolved {
		byID[contact.ID] = contact
	}

	// Re-sort resolved records by fused score: the store does not
	// guarantee resolution order. The remaining filter dimensions then
	// apply as a pure post-filter, preserving fused order and never
	// re-ranking. The result may shrink below the limit; that is a
	// normal outcome, not an error.
	out := make([]domain.SearchResult, 0, len(fused))
	for _, candidate := range fused {
		contact, ok := byID[candidate.contactID]
		if !ok {
			continue
		}
		if !filter.MatchesPostFilter(contact) {
			continue
		}
		out = append(out, domain.SearchResult{
			Contact:     contact,
			Score:       candidate.score,
			HybridScore: candidate.score,
		})
	}
	return out, nil
}
