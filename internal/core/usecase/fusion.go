package usecase

import (
	"sort"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

type fusedCandidate struct {
	contactID int64
	score     float64
}

// fuseRRF combines ranked candidate lists with Reciprocal Rank Fusion:
// each contact scores sum(1/(k+rank)) over every list it appears in,
// ranks 1-based. Presence in several lists accumulates several terms,
// which is how agreement across retrieval modes beats a single strong
// hit in one mode.
func fuseRRF(lists [][]domain.Candidate, rrfK int) []fusedCandidate {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[int64]float64)
	for _, list := range lists {
		for rank, candidate := range list {
			acc[candidate.ContactID] += 1.0 / float64(rrfK+rank+1)
		}
	}

	out := make([]fusedCandidate, 0, len(acc))
	for id, score := range acc {
		out = append(out, fusedCandidate{contactID: id, score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].contactID < out[j].contactID
	})

	return out
}

func trimFused(candidates []fusedCandidate, limit int) []fusedCandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
