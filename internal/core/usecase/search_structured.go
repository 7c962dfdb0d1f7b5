package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
	"github.com/kirillkom/relationship-assistant/internal/core/ports"
)

// StructuredSearchUseCase answers filters without a semantic query. All
// predicate translation, sort resolution and pagination happen in the
// repository; the one thing the store cannot order by natively is a
// goal-scoped readiness value, which is approximated here.
type StructuredSearchUseCase struct {
	contacts ports.ContactRepository
}

func NewStructuredSearchUseCase(contacts ports.ContactRepository) *StructuredSearchUseCase {
	return &StructuredSearchUseCase{contacts: contacts}
}

func (uc *StructuredSearchUseCase) Search(ctx context.Context, filter domain.Filter) ([]domain.SearchResult, error) {
	if goal, ok := filter.SortBy.GoalTarget(); ok {
		return uc.searchByGoalReadiness(ctx, filter, goal)
	}

	contacts, err := uc.contacts.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("structured contact search: %w", err)
	}

	out := make([]domain.SearchResult, 0, len(contacts))
	for _, contact := range contacts {
		out = append(out, domain.SearchResult{
			Contact: contact,
			Score:   sortKeyValue(contact, filter.SortBy),
		})
	}
	return out, nil
}

// searchByGoalReadiness sorts by a value nested under a per-goal key,
// which the store cannot order by natively. It fetches twice the limit
// ordered by the proximity proxy, sorts in memory and truncates. This is
// an approximation of true top-K, kept deliberately: scanning the full
// table would change resource usage materially.
func (uc *StructuredSearchUseCase) searchByGoalReadiness(ctx context.Context, filter domain.Filter, goal string) ([]domain.SearchResult, error) {
	proxy := filter
	proxy.SortBy = domain.SortProximity
	proxy.SortDesc = true
	proxy.Limit = filter.Limit * 2
	if proxy.Limit > domain.MaxSearchLimit {
		proxy.Limit = domain.MaxSearchLimit
	}

	contacts, err := uc.contacts.Search(ctx, proxy)
	if err != nil {
		return nil, fmt.Errorf("goal readiness candidate fetch: %w", err)
	}

	type scored struct {
		contact domain.Contact
		score   int
		scored  bool
	}
	candidates := make([]scored, 0, len(contacts))
	for _, contact := range contacts {
		value, ok := contact.GoalScore(goal)
		candidates = append(candidates, scored{contact: contact, score: value, scored: ok})
	}

	// Unscored goals sort after every scored one; zero is a real score.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].scored != candidates[j].scored {
			return candidates[i].scored
		}
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].contact.ID < candidates[j].contact.ID
	})

	if len(candidates) > filter.Limit {
		candidates = candidates[:filter.Limit]
	}
	out := make([]domain.SearchResult, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, domain.SearchResult{
			Contact: candidate.contact,
			Score:   float64(candidate.score),
		})
	}
	return out, nil
}

func sortKeyValue(contact domain.Contact, key domain.SortKey) float64 {
	switch key {
	case domain.SortProximity:
		return float64(intOrZero(contact.ProximityScore))
	case domain.SortCapacity:
		return float64(intOrZero(contact.CapacityScore))
	case domain.SortLastContact:
		if contact.LastContactAt == nil {
			return 0
		}
		return float64(contact.LastContactAt.Unix())
	case domain.SortInteractions:
		return float64(contact.InteractionCount)
	case domain.SortName:
		return 0
	default:
		return float64(contact.Familiarity)
	}
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
