package usecase

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

func TestLedgerSummaryPricesOnlyMisses(t *testing.T) {
	ledger := NewLedger(PriceTable{
		domain.OpChatCompletion:   4000,
		domain.OpEnrichmentLookup: 2000,
	})

	ledger.Record(domain.OpChatCompletion, false)
	ledger.Record(domain.OpChatCompletion, false)
	ledger.Record(domain.OpEnrichmentLookup, false)
	ledger.Record(domain.OpEnrichmentLookup, true)

	summary := ledger.Summary()
	if summary.TotalCalls != 4 {
		t.Fatalf("total calls = %d, want 4", summary.TotalCalls)
	}
	if summary.CacheHits != 1 {
		t.Fatalf("cache hits = %d, want 1", summary.CacheHits)
	}
	if summary.Operations[domain.OpChatCompletion] != 2 {
		t.Fatalf("chat completions = %d, want 2", summary.Operations[domain.OpChatCompletion])
	}
	if summary.Operations[domain.OpEnrichmentLookup] != 2 {
		t.Fatalf("enrichment lookups = %d, want 2", summary.Operations[domain.OpEnrichmentLookup])
	}
	want := (2*4000 + 2000) / 1e6
	if math.Abs(summary.EstimatedCostUSD-float64(want)) > 1e-12 {
		t.Fatalf("estimated cost = %v, want %v", summary.EstimatedCostUSD, want)
	}
}

func TestLedgerResetClearsEntries(t *testing.T) {
	ledger := NewLedger(nil)
	ledger.Record(domain.OpEmbedding, false)
	ledger.Reset()

	summary := ledger.Summary()
	if summary.TotalCalls != 0 || summary.EstimatedCostUSD != 0 {
		t.Fatalf("expected an empty summary after reset, got %+v", summary)
	}
}

func TestLoadPriceTableFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.yaml")
	if err := os.WriteFile(path, []byte("chat_completion: 9000\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	table, err := LoadPriceTableFile(path)
	if err != nil {
		t.Fatalf("LoadPriceTableFile() error = %v", err)
	}
	if table[domain.OpChatCompletion] != 9000 {
		t.Fatalf("overridden price = %d, want 9000", table[domain.OpChatCompletion])
	}
	if table[domain.OpEmbedding] != DefaultPriceTable()[domain.OpEmbedding] {
		t.Fatalf("untouched operations must keep their default price")
	}
}

func TestLoadPriceTableFileEmptyPath(t *testing.T) {
	table, err := LoadPriceTableFile("")
	if err != nil {
		t.Fatalf("LoadPriceTableFile(\"\") error = %v", err)
	}
	if len(table) != len(DefaultPriceTable()) {
		t.Fatalf("expected the defaults for an empty path")
	}
}
