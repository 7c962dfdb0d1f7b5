package usecase

import (
	"math"
	"testing"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

func TestFuseRRFAccumulatesBothLists(t *testing.T) {
	dense := []domain.Candidate{
		{ContactID: 10, Score: 0.95},
		{ContactID: 20, Score: 0.90},
		{ContactID: 30, Score: 0.80},
	}
	lexical := []domain.Candidate{
		{ContactID: 20, Score: 12.0},
		{ContactID: 40, Score: 8.0},
		{ContactID: 10, Score: 5.0},
	}

	fused := fuseRRF([][]domain.Candidate{dense, lexical}, 60)
	if len(fused) != 4 {
		t.Fatalf("expected 4 fused candidates, got %d", len(fused))
	}

	// Contact 20: rank 2 dense, rank 1 lexical. Contact 10: rank 1
	// dense, rank 3 lexical. Agreement near the top of both lists wins
	// over a single first place.
	if fused[0].contactID != 20 {
		t.Fatalf("expected contact 20 first, got %d", fused[0].contactID)
	}
	want := 1.0/62.0 + 1.0/61.0
	if math.Abs(fused[0].score-want) > 1e-12 {
		t.Fatalf("fused score = %v, want %v", fused[0].score, want)
	}

	for i := 1; i < len(fused); i++ {
		if fused[i].score > fused[i-1].score {
			t.Fatalf("fused scores not non-increasing at %d: %v > %v", i, fused[i].score, fused[i-1].score)
		}
	}
}

func TestFuseRRFSingleListContribution(t *testing.T) {
	lexical := []domain.Candidate{{ContactID: 7, Score: 3.0}}

	fused := fuseRRF([][]domain.Candidate{nil, lexical}, 60)
	if len(fused) != 1 {
		t.Fatalf("expected 1 fused candidate, got %d", len(fused))
	}
	if math.Abs(fused[0].score-1.0/61.0) > 1e-12 {
		t.Fatalf("fused score = %v, want %v", fused[0].score, 1.0/61.0)
	}
}

func TestFuseRRFTieBreaksByContactID(t *testing.T) {
	dense := []domain.Candidate{{ContactID: 9}}
	lexical := []domain.Candidate{{ContactID: 3}}

	fused := fuseRRF([][]domain.Candidate{dense, lexical}, 60)
	if len(fused) != 2 {
		t.Fatalf("expected 2 fused candidates, got %d", len(fused))
	}
	if fused[0].contactID != 3 {
		t.Fatalf("expected tie-break by contact id, got first=%d", fused[0].contactID)
	}
}

func TestTrimFused(t *testing.T) {
	in := []fusedCandidate{{contactID: 1}, {contactID: 2}, {contactID: 3}}
	if got := trimFused(in, 2); len(got) != 2 {
		t.Fatalf("expected 2 candidates after trim, got %d", len(got))
	}
	if got := trimFused(in, 0); len(got) != 3 {
		t.Fatalf("expected no trim for non-positive limit, got %d", len(got))
	}
}
