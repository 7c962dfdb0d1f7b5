package domain

import (
	"strings"
	"time"
)

type FitType string

const (
	FitFunder    FitType = "funder"
	FitPartner   FitType = "partner"
	FitAdvisor   FitType = "advisor"
	FitOperator  FitType = "operator"
	FitPress     FitType = "press"
	FitCommunity FitType = "community"
)

func ParseFitType(raw string) (FitType, bool) {
	switch FitType(strings.ToLower(strings.TrimSpace(raw))) {
	case FitFunder:
		return FitFunder, true
	case FitPartner:
		return FitPartner, true
	case FitAdvisor:
		return FitAdvisor, true
	case FitOperator:
		return FitOperator, true
	case FitPress:
		return FitPress, true
	case FitCommunity:
		return FitCommunity, true
	default:
		return "", false
	}
}

// GoalReadiness is the readiness of a contact for one named goal.
// A missing map entry means the goal was never scored, which is distinct
// from a goal scored zero.
type GoalReadiness struct {
	Score int    `json:"score"`
	Note  string `json:"note,omitempty"`
}

// Contact is one relationship record. Scores and the readiness map are
// populated by external batch jobs; the core treats contacts as read-mostly.
type Contact struct {
	ID               int64                    `json:"id"`
	FirstName        string                   `json:"first_name"`
	LastName         string                   `json:"last_name"`
	Organization     string                   `json:"organization,omitempty"`
	Role             string                   `json:"role,omitempty"`
	Region           string                   `json:"region,omitempty"`
	FitType          FitType                  `json:"fit_type,omitempty"`
	ProximityScore   *int                     `json:"proximity_score,omitempty"`
	CapacityScore    *int                     `json:"capacity_score,omitempty"`
	Familiarity      int                      `json:"familiarity"`
	LastContactAt    *time.Time               `json:"last_contact_at,omitempty"`
	InteractionCount int                      `json:"interaction_count"`
	AskReadiness     map[string]GoalReadiness `json:"ask_readiness,omitempty"`
	OutreachQueuedAt *time.Time               `json:"outreach_queued_at,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

func (c Contact) FullName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return "(unnamed)"
	}
	return name
}

// GoalScore reports the readiness score for a goal and whether the goal
// has ever been scored.
func (c Contact) GoalScore(goal string) (int, bool) {
	if c.AskReadiness == nil {
		return 0, false
	}
	readiness, ok := c.AskReadiness[goal]
	if !ok {
		return 0, false
	}
	return readiness.Score, true
}

// Tier thresholds for the 0-100 computed scores. Both dimensions cut at
// 20/40/60/80.
var (
	proximityTierNames = [5]string{"distant", "familiar", "warm", "close", "inner"}
	capacityTierNames  = [5]string{"low", "modest", "mid", "high", "major"}
)

func ProximityTiers() []string {
	return proximityTierNames[:]
}

func CapacityTiers() []string {
	return capacityTierNames[:]
}

func (c Contact) ProximityTier() string {
	return tierLabel(c.ProximityScore, proximityTierNames)
}

func (c Contact) CapacityTier() string {
	return tierLabel(c.CapacityScore, capacityTierNames)
}

func tierLabel(score *int, names [5]string) string {
	if score == nil {
		return ""
	}
	idx := *score / 20
	if idx < 0 {
		idx = 0
	}
	if idx > 4 {
		idx = 4
	}
	return names[idx]
}
