package ports

import (
	"context"
	"time"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

// ContactRepository reads contact state from the relational store and
// performs the one point write the outreach tool needs.
type ContactRepository interface {
	Search(ctx context.Context, filter domain.Filter) ([]domain.Contact, error)
	GetByID(ctx context.Context, id int64) (*domain.Contact, error)
	ResolveByIDs(ctx context.Context, ids []int64) ([]domain.Contact, error)
	MarkOutreachQueued(ctx context.Context, id int64, queuedAt time.Time) error
}

// VectorIndex issues ranked candidate queries against the external
// nearest-neighbor index.
type VectorIndex interface {
	SearchDense(ctx context.Context, field domain.SemanticField, vector []float32, limit int, restrict domain.RangeRestriction) ([]domain.Candidate, error)
	SearchLexical(ctx context.Context, query string, limit int, restrict domain.RangeRestriction) ([]domain.Candidate, error)
	SearchSimilar(ctx context.Context, contactID int64, field domain.SemanticField, limit int) ([]domain.Candidate, error)
}

// Embedder materializes the query-time embedding.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChatCompleter is the completion-service boundary: one transcript plus
// the declared tool schemas in, free text and/or tool requests out.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatMessage, tools []domain.ToolSchema) (*domain.Completion, error)
}

// JSONGenerator produces a single JSON object for a prompt, used by the
// filter translation call.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// IntroPathFinder resolves introduction paths through the relationship
// graph.
type IntroPathFinder interface {
	IntroPath(ctx context.Context, fromID, toID int64, maxHops int) ([]domain.IntroHop, error)
}

// OutreachPublisher hands queued outreach to the external delivery
// system. Delivery guarantees are out of scope here.
type OutreachPublisher interface {
	PublishOutreachQueued(ctx context.Context, contactID int64) error
}

// ResultExporter writes search results to an exportable artifact and
// returns its path.
type ResultExporter interface {
	Export(ctx context.Context, results []domain.SearchResult) (string, error)
}
