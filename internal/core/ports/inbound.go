package ports

import (
	"context"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

// ContactSearcher is the inbound contract for structured and hybrid
// contact search.
type ContactSearcher interface {
	Search(ctx context.Context, filter domain.Filter) ([]domain.SearchResult, error)
}

// FilterTranslator turns free-form operator intent into a validated
// filter specification.
type FilterTranslator interface {
	Translate(ctx context.Context, text string) (domain.Filter, error)
}

// FrameSink receives ordered stream frames as the orchestrator produces
// them. An Emit error means the caller is gone and the run should stop.
type FrameSink interface {
	Emit(frame domain.StreamFrame) error
}

// AgentRunner drives one bounded tool-using conversation run.
type AgentRunner interface {
	Run(ctx context.Context, req domain.AgentRequest, sink FrameSink) error
}
