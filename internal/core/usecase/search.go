package usecase

import (
	"context"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

// SearchUseCase normalizes and validates a filter, then routes it:
// filters with a semantic query go hybrid, everything else structured.
// The routing is total and exhaustive.
type SearchUseCase struct {
	structured *StructuredSearchUseCase
	hybrid     *HybridSearchUseCase
}

func NewSearchUseCase(structured *StructuredSearchUseCase, hybrid *HybridSearchUseCase) *SearchUseCase {
	return &SearchUseCase{structured: structured, hybrid: hybrid}
}

func (uc *SearchUseCase) Search(ctx context.Context, filter domain.Filter) ([]domain.SearchResult, error) {
	filter = filter.Normalized()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.IsHybrid() {
		return uc.hybrid.Search(ctx, filter)
	}
	return uc.structured.Search(ctx, filter)
}
