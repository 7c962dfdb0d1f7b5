package qdrant

import "testing"

func TestEncodeSparseQueryDeterministic(t *testing.T) {
	v1 := encodeSparseQuery("Funders interested in outdoor equity")
	v2 := encodeSparseQuery("Funders interested in outdoor equity")
	if len(v1.Indices) != len(v2.Indices) || len(v1.Values) != len(v2.Values) {
		t.Fatalf("vector sizes mismatch: v1=%d/%d v2=%d/%d", len(v1.Indices), len(v1.Values), len(v2.Indices), len(v2.Values))
	}
	for i := range v1.Indices {
		if v1.Indices[i] != v2.Indices[i] {
			t.Fatalf("indices mismatch at %d: %d vs %d", i, v1.Indices[i], v2.Indices[i])
		}
		if v1.Values[i] != v2.Values[i] {
			t.Fatalf("values mismatch at %d: %f vs %f", i, v1.Values[i], v2.Values[i])
		}
	}
}

func TestEncodeSparseQuerySortsIndices(t *testing.T) {
	v := encodeSparseQuery("zulu alpha beta gamma")
	if len(v.Indices) == 0 {
		t.Fatalf("expected non-empty sparse vector")
	}
	for i := 1; i < len(v.Indices); i++ {
		if v.Indices[i-1] > v.Indices[i] {
			t.Fatalf("indices not sorted at %d: %d > %d", i, v.Indices[i-1], v.Indices[i])
		}
	}
}

func TestEncodeSparseQueryRepeatedTermsSaturate(t *testing.T) {
	once := encodeSparseQuery("climbing")
	thrice := encodeSparseQuery("climbing climbing climbing")
	if len(once.Values) != 1 || len(thrice.Values) != 1 {
		t.Fatalf("expected single-term vectors")
	}
	if thrice.Values[0] <= once.Values[0] {
		t.Fatalf("repeated term should weigh more: %f vs %f", thrice.Values[0], once.Values[0])
	}
	if thrice.Values[0] >= 3*once.Values[0] {
		t.Fatalf("term weight must saturate, got %f vs 3x%f", thrice.Values[0], once.Values[0])
	}
}

func TestEncodeSparseQueryEmptyNoiseInput(t *testing.T) {
	v := encodeSparseQuery("___---!!!")
	if len(v.Indices) != 0 || len(v.Values) != 0 {
		t.Fatalf("expected empty sparse vector, got %+v", v)
	}
}

func TestTokenizeAlphaNumSplitsOnPunctuation(t *testing.T) {
	tokens := tokenizeAlphaNum("Chen, Ava (River-Trust) org2024")
	foundOrg := false
	foundYear := false
	for _, tok := range tokens {
		if tok == "org2024" {
			foundOrg = true
		}
		if tok == "trust" {
			foundYear = true
		}
	}
	if !foundOrg || !foundYear {
		t.Fatalf("expected org2024 and trust tokens, got %v", tokens)
	}
}
