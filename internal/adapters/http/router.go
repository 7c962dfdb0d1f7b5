package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
	"github.com/kirillkom/relationship-assistant/internal/core/ports"
	"github.com/kirillkom/relationship-assistant/internal/observability/metrics"
)

type Config struct {
	Service string

	RateLimitRPS   float64
	RateLimitBurst int

	MaxInFlight      int
	BackpressureWait time.Duration
}

type Router struct {
	cfg        Config
	searcher   ports.ContactSearcher
	translator ports.FilterTranslator
	agent      ports.AgentRunner
	contacts   ports.ContactRepository
	metrics    *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg Config,
	searcher ports.ContactSearcher,
	translator ports.FilterTranslator,
	agent ports.AgentRunner,
	contacts ports.ContactRepository,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	if cfg.Service == "" {
		cfg.Service = "api"
	}
	return &Router{
		cfg:        cfg,
		searcher:   searcher,
		translator: translator,
		agent:      agent,
		contacts:   contacts,
		metrics:    serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/v1/contacts/search", rt.searchContacts)
	mux.HandleFunc("/v1/contacts/", rt.getContactByID)
	mux.HandleFunc("/v1/filters/translate", rt.translateFilter)
	mux.HandleFunc("/v1/agent/chat", rt.agentChat)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, rt.cfg.BackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.Service, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchResponseItem struct {
	Contact     domain.Contact `json:"contact"`
	Score       float64        `json:"score"`
	HybridScore float64        `json:"hybrid_score,omitempty"`
}

func (rt *Router) searchContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var filter domain.Filter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	results, err := rt.searcher.Search(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		mode := "structured"
		if filter.IsHybrid() {
			mode = "hybrid"
		}
		rt.metrics.RecordSearch(rt.cfg.Service, mode, len(results), time.Since(start))
	}

	items := make([]searchResponseItem, 0, len(results))
	for _, result := range results {
		items = append(items, searchResponseItem{
			Contact:     result.Contact,
			Score:       result.Score,
			HybridScore: result.HybridScore,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(items),
		"results": items,
	})
}

func (rt *Router) getContactByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/v1/contacts/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contact id must be a positive integer"})
		return
	}

	contact, err := rt.contacts.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (rt *Router) translateFilter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	filter, err := rt.translator.Translate(r.Context(), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, filter)
}

func (rt *Router) agentChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one message is required"})
		return
	}

	sink, err := newSSESink(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	observed := sink.observe(rt.recordAgentFrames)
	if err := rt.agent.Run(r.Context(), req, observed); err != nil {
		// Terminal frames were already streamed by the run itself.
		slog.Error("agent_run_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
	}
}

func (rt *Router) recordAgentFrames(frame domain.StreamFrame) {
	if rt.metrics == nil {
		return
	}
	switch frame.Type {
	case domain.FrameToolActivity:
		if frame.Tool != nil {
			rt.metrics.RecordAgentToolCall(rt.cfg.Service, frame.Tool.Name)
		}
	case domain.FrameSummary:
		if frame.Summary != nil {
			rt.metrics.RecordAgentRun(
				rt.cfg.Service,
				frame.Summary.Terminated,
				frame.Summary.Iterations,
				frame.Summary.Ledger.CacheHits,
				frame.Summary.Ledger.EstimatedCostUSD,
			)
		}
	case domain.FrameError:
		rt.metrics.RecordAgentRun(rt.cfg.Service, "error", 0, 0, 0)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
