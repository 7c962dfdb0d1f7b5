package domain

import (
	"fmt"
	"strings"
)

type SortKey string

const (
	SortDefault      SortKey = ""
	SortProximity    SortKey = "proximity"
	SortCapacity     SortKey = "capacity"
	SortFamiliarity  SortKey = "familiarity"
	SortLastContact  SortKey = "last_contact"
	SortInteractions SortKey = "interactions"
	SortName         SortKey = "name"

	goalSortPrefix = "goal:"
)

// GoalTarget reports the goal identifier when the key requests a
// goal-scoped readiness sort ("goal:<id>").
func (k SortKey) GoalTarget() (string, bool) {
	raw := string(k)
	if !strings.HasPrefix(raw, goalSortPrefix) {
		return "", false
	}
	goal := strings.TrimSpace(strings.TrimPrefix(raw, goalSortPrefix))
	if goal == "" {
		return "", false
	}
	return goal, true
}

type SemanticField string

const (
	SemanticFieldProfile   SemanticField = "profile"
	SemanticFieldInterests SemanticField = "interests"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 500
)

// Filter is a normalized retrieval intent. All supplied dimensions are
// combined conjunctively; membership lists OR within their own dimension.
type Filter struct {
	ProximityMin   *int     `json:"proximity_min,omitempty"`
	CapacityMin    *int     `json:"capacity_min,omitempty"`
	FamiliarityMin *int     `json:"familiarity_min,omitempty"`
	ProximityTiers []string `json:"proximity_tiers,omitempty"`
	CapacityTiers  []string `json:"capacity_tiers,omitempty"`
	FitTypes       []string `json:"fit_types,omitempty"`

	Organization string `json:"organization,omitempty"`
	Name         string `json:"name,omitempty"`
	Region       string `json:"region,omitempty"`

	SemanticQuery string        `json:"semantic_query,omitempty"`
	SemanticField SemanticField `json:"semantic_field,omitempty"`

	SortBy   SortKey `json:"sort_by,omitempty"`
	SortDesc bool    `json:"sort_desc,omitempty"`
	Limit    int     `json:"limit,omitempty"`
}

// IsHybrid decides the execution path. The routing is total: a filter with
// a semantic query always takes the hybrid path, everything else the
// structured path.
func (f Filter) IsHybrid() bool {
	return strings.TrimSpace(f.SemanticQuery) != ""
}

// Normalized trims free text, lower-cases enumerations and applies limit
// and semantic-field defaults.
func (f Filter) Normalized() Filter {
	out := f
	out.Organization = strings.TrimSpace(f.Organization)
	out.Name = strings.TrimSpace(f.Name)
	out.Region = strings.TrimSpace(f.Region)
	out.SemanticQuery = strings.TrimSpace(f.SemanticQuery)
	out.ProximityTiers = normalizeList(f.ProximityTiers)
	out.CapacityTiers = normalizeList(f.CapacityTiers)
	out.FitTypes = normalizeList(f.FitTypes)
	out.SortBy = SortKey(strings.TrimSpace(string(f.SortBy)))
	if out.Limit <= 0 {
		out.Limit = DefaultSearchLimit
	}
	if out.Limit > MaxSearchLimit {
		out.Limit = MaxSearchLimit
	}
	if out.SemanticField == "" {
		out.SemanticField = SemanticFieldProfile
	}
	return out
}

func (f Filter) Validate() error {
	if err := validateScoreMin("proximity_min", f.ProximityMin, 0, 100); err != nil {
		return err
	}
	if err := validateScoreMin("capacity_min", f.CapacityMin, 0, 100); err != nil {
		return err
	}
	if err := validateScoreMin("familiarity_min", f.FamiliarityMin, 0, 4); err != nil {
		return err
	}
	for _, tier := range f.ProximityTiers {
		if !containsString(ProximityTiers(), tier) {
			return WrapError(ErrInvalidInput, "validate filter", fmt.Errorf("unknown proximity tier: %s", tier))
		}
	}
	for _, tier := range f.CapacityTiers {
		if !containsString(CapacityTiers(), tier) {
			return WrapError(ErrInvalidInput, "validate filter", fmt.Errorf("unknown capacity tier: %s", tier))
		}
	}
	for _, fit := range f.FitTypes {
		if _, ok := ParseFitType(fit); !ok {
			return WrapError(ErrInvalidInput, "validate filter", fmt.Errorf("unknown fit type: %s", fit))
		}
	}
	switch f.SemanticField {
	case "", SemanticFieldProfile, SemanticFieldInterests:
	default:
		return WrapError(ErrInvalidInput, "validate filter", fmt.Errorf("unknown semantic field: %s", f.SemanticField))
	}
	if _, ok := f.SortBy.GoalTarget(); ok {
		return nil
	}
	switch f.SortBy {
	case SortDefault, SortProximity, SortCapacity, SortFamiliarity, SortLastContact, SortInteractions, SortName:
		return nil
	default:
		return WrapError(ErrInvalidInput, "validate filter", fmt.Errorf("unknown sort key: %s", f.SortBy))
	}
}

// MatchesPostFilter applies the dimensions the fused vector query cannot
// express natively. Proximity and capacity minimums are excluded here:
// those two are pushed down into both candidate queries.
func (f Filter) MatchesPostFilter(c Contact) bool {
	if f.FamiliarityMin != nil && c.Familiarity < *f.FamiliarityMin {
		return false
	}
	if len(f.ProximityTiers) > 0 && !containsString(f.ProximityTiers, c.ProximityTier()) {
		return false
	}
	if len(f.CapacityTiers) > 0 && !containsString(f.CapacityTiers, c.CapacityTier()) {
		return false
	}
	if len(f.FitTypes) > 0 && !containsString(f.FitTypes, string(c.FitType)) {
		return false
	}
	if f.Organization != "" && !containsFold(c.Organization, f.Organization) {
		return false
	}
	if f.Region != "" && !containsFold(c.Region, f.Region) {
		return false
	}
	if f.Name != "" && !containsFold(c.FirstName, f.Name) && !containsFold(c.LastName, f.Name) {
		return false
	}
	return true
}

// Matches applies every supplied predicate, including the natively pushed
// down score minimums.
func (f Filter) Matches(c Contact) bool {
	if f.ProximityMin != nil && (c.ProximityScore == nil || *c.ProximityScore < *f.ProximityMin) {
		return false
	}
	if f.CapacityMin != nil && (c.CapacityScore == nil || *c.CapacityScore < *f.CapacityMin) {
		return false
	}
	return f.MatchesPostFilter(c)
}

func validateScoreMin(field string, value *int, lo, hi int) error {
	if value == nil {
		return nil
	}
	if *value < lo || *value > hi {
		return WrapError(ErrInvalidInput, "validate filter", fmt.Errorf("%s must be between %d and %d", field, lo, hi))
	}
	return nil
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || containsString(out, v) {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
