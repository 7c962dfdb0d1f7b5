package config

import "testing"

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("HYBRID_CANDIDATE_DEPTH", "")
	t.Setenv("FUSION_RRF_K", "")
	t.Setenv("AGENT_MAX_ITERATIONS", "")

	cfg := Load()
	if cfg.HybridCandidateDepth != 100 {
		t.Fatalf("expected default candidate depth 100, got %d", cfg.HybridCandidateDepth)
	}
	if cfg.FusionRRFK != 60 {
		t.Fatalf("expected default fusion rrf k 60, got %d", cfg.FusionRRFK)
	}
	if cfg.AgentMaxIterations != 10 {
		t.Fatalf("expected default agent iterations 10, got %d", cfg.AgentMaxIterations)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("HYBRID_CANDIDATE_DEPTH", "40")
	t.Setenv("FUSION_RRF_K", "75")
	t.Setenv("AGENT_MAX_ITERATIONS", "4")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")

	cfg := Load()
	if cfg.HybridCandidateDepth != 40 {
		t.Fatalf("expected candidate depth 40, got %d", cfg.HybridCandidateDepth)
	}
	if cfg.FusionRRFK != 75 {
		t.Fatalf("expected fusion rrf k 75, got %d", cfg.FusionRRFK)
	}
	if cfg.AgentMaxIterations != 4 {
		t.Fatalf("expected agent iterations 4, got %d", cfg.AgentMaxIterations)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.APIRateLimitRPS)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("FUSION_RRF_K", "not-a-number")
	t.Setenv("API_RATE_LIMIT_RPS", "fast")

	cfg := Load()
	if cfg.FusionRRFK != 60 {
		t.Fatalf("malformed int must fall back to default, got %d", cfg.FusionRRFK)
	}
	if cfg.APIRateLimitRPS != 0 {
		t.Fatalf("malformed float must fall back to default, got %v", cfg.APIRateLimitRPS)
	}
}
