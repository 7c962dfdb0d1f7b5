package usecase

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

// PriceTable maps billable operation types to a price in micro-USD.
// Integer micro-dollars keep ledger arithmetic exact; the summary
// converts once.
type PriceTable map[string]int64

func DefaultPriceTable() PriceTable {
	return PriceTable{
		domain.OpChatCompletion:   4000,
		domain.OpEmbedding:        100,
		domain.OpEnrichmentLookup: 2000,
	}
}

// LoadPriceTableFile overlays prices from a YAML file onto the defaults.
// An empty path returns the defaults unchanged.
func LoadPriceTableFile(path string) (PriceTable, error) {
	table := DefaultPriceTable()
	if path == "" {
		return table, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price table: %w", err)
	}
	var overlay map[string]int64
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return nil, fmt.Errorf("parse price table: %w", err)
	}
	for op, price := range overlay {
		table[op] = price
	}
	return table, nil
}

type ledgerEntry struct {
	operation string
	cacheHit  bool
}

// Ledger accumulates one orchestration run's billable external
// operations. A fresh ledger is created per run and discarded after its
// summary is emitted; it is never shared across runs.
type Ledger struct {
	mu      sync.Mutex
	prices  PriceTable
	entries []ledgerEntry
}

func NewLedger(prices PriceTable) *Ledger {
	if prices == nil {
		prices = DefaultPriceTable()
	}
	return &Ledger{prices: prices}
}

// Record appends one billable operation. Cache hits are counted but not
// priced.
func (l *Ledger) Record(operation string, cacheHit bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ledgerEntry{operation: operation, cacheHit: cacheHit})
}

func (l *Ledger) Summary() domain.LedgerSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	summary := domain.LedgerSummary{
		Operations: make(map[string]int),
	}
	var microUSD int64
	for _, entry := range l.entries {
		summary.Operations[entry.operation]++
		summary.TotalCalls++
		if entry.cacheHit {
			summary.CacheHits++
			continue
		}
		microUSD += l.prices[entry.operation]
	}
	summary.EstimatedCostUSD = float64(microUSD) / 1e6
	return summary
}

func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
