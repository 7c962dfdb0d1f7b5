package domain

// Candidate is one entry of a ranked candidate list returned by the
// vector index. Rank is implied by position (1-based).
type Candidate struct {
	ContactID int64   `json:"contact_id"`
	Score     float64 `json:"score"`
}

// RangeRestriction carries the only predicates proven safe to push down
// into the fused vector and lexical queries.
type RangeRestriction struct {
	ProximityMin *int
	CapacityMin  *int
}

// PushDown extracts the native restriction of a filter.
func (f Filter) PushDown() RangeRestriction {
	return RangeRestriction{
		ProximityMin: f.ProximityMin,
		CapacityMin:  f.CapacityMin,
	}
}

// SearchResult is a contact plus its ordering score. HybridScore is the
// transient RRF value of one hybrid response; it never persists on the
// contact.
type SearchResult struct {
	Contact     Contact `json:"contact"`
	Score       float64 `json:"score"`
	HybridScore float64 `json:"hybrid_score,omitempty"`
}

// IntroHop is one node on an introduction path through the relationship
// graph.
type IntroHop struct {
	ContactID int64  `json:"contact_id"`
	Name      string `json:"name"`
}
