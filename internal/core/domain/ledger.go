package domain

// Billable operation types tracked by the per-run cost ledger.
const (
	OpChatCompletion   = "chat_completion"
	OpEmbedding        = "embedding"
	OpEnrichmentLookup = "enrichment_lookup"
)

// LedgerSummary aggregates one run's billable external operations.
type LedgerSummary struct {
	Operations       map[string]int `json:"operations"`
	TotalCalls       int            `json:"total_calls"`
	CacheHits        int            `json:"cache_hits"`
	EstimatedCostUSD float64        `json:"estimated_cost_usd"`
}
