package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/relationship-assistant/internal/config"
	"github.com/kirillkom/relationship-assistant/internal/core/ports"
	"github.com/kirillkom/relationship-assistant/internal/core/usecase"
	"github.com/kirillkom/relationship-assistant/internal/infrastructure/export/excel"
	"github.com/kirillkom/relationship-assistant/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/relationship-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/relationship-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/relationship-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/relationship-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/relationship-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/relationship-assistant/internal/observability/metrics"
)

// App wires configuration into the running object graph. Neo4j and NATS
// are optional: leaving their URLs empty disables the tools that need
// them instead of failing startup.
type App struct {
	Config config.Config

	Contacts    ports.ContactRepository
	SearchUC    ports.ContactSearcher
	TranslateUC ports.FilterTranslator
	AgentUC     ports.AgentRunner
	Metrics     *metrics.HTTPServerMetrics

	toolDeps usecase.ToolDeps
	prices   usecase.PriceTable

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewContactRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	vectors := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaChatModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	completer := ollama.NewChatCompleter(ollamaClient)

	exporter, err := excel.New(cfg.ExportDir)
	if err != nil {
		return nil, fmt.Errorf("init export dir: %w", err)
	}

	var graph *neo4j.Client
	if cfg.Neo4jURI != "" {
		graph, err = neo4j.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			return nil, fmt.Errorf("init neo4j: %w", err)
		}
	}

	var queue *nats.Queue
	if cfg.NATSURL != "" {
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSOutreachSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
	}

	structured := usecase.NewStructuredSearchUseCase(repo)
	hybrid := usecase.NewHybridSearchUseCase(embedder, vectors, repo, cfg.HybridCandidateDepth, cfg.FusionRRFK)
	searchUC := usecase.NewSearchUseCase(structured, hybrid)
	translateUC := usecase.NewFilterTranslateUseCase(generator)

	prices, err := usecase.LoadPriceTableFile(cfg.AgentPriceTablePath)
	if err != nil {
		return nil, fmt.Errorf("load price table: %w", err)
	}

	toolDeps := usecase.ToolDeps{
		Searcher: searchUC,
		Contacts: repo,
		Vectors:  vectors,
		Exporter: exporter,
	}
	if graph != nil {
		toolDeps.Paths = graph
	}
	if queue != nil {
		toolDeps.Outreach = queue
	}

	agentUC := usecase.NewAgentRunUseCase(completer, toolDeps, prices, usecase.AgentLimits{
		MaxIterations:     cfg.AgentMaxIterations,
		RunTimeout:        time.Duration(cfg.AgentRunTimeoutSeconds) * time.Second,
		CompletionTimeout: time.Duration(cfg.AgentCompletionTimeoutSecs) * time.Second,
		ToolTimeout:       time.Duration(cfg.AgentToolTimeoutSeconds) * time.Second,
		StreamChunkChars:  cfg.AgentStreamChunkChars,
	})

	return &App{
		Config: cfg,

		Contacts:    repo,
		SearchUC:    searchUC,
		TranslateUC: translateUC,
		AgentUC:     agentUC,
		Metrics:     metrics.NewHTTPServerMetrics("api"),

		toolDeps: toolDeps,
		prices:   prices,

		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			if graph != nil {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = graph.Close(closeCtx)
			}
			_ = db.Close()
		},
	}, nil
}

// ToolRegistry builds a registry over the app's tool dependencies with
// its own ledger, for callers that invoke tools outside a chat run.
func (a *App) ToolRegistry() *usecase.ToolRegistry {
	return usecase.NewToolRegistry(a.toolDeps, usecase.NewLedger(a.prices))
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
