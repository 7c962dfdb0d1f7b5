package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
	"github.com/kirillkom/relationship-assistant/internal/core/ports"
)

const (
	toolContactSearch   = "contact_search"
	toolSimilarContacts = "similar_contacts"
	toolContactDetail   = "contact_detail"
	toolOutreachContext = "outreach_context"
	toolExportContacts  = "export_contacts"
	toolNetworkPath     = "network_path"
)

// ToolDeps are the collaborators tool handlers may reach. Optional
// members (Paths, Exporter, Outreach) disable their tool when nil.
type ToolDeps struct {
	Searcher ports.ContactSearcher
	Contacts ports.ContactRepository
	Vectors  ports.VectorIndex
	Paths    ports.IntroPathFinder
	Exporter ports.ResultExporter
	Outreach ports.OutreachPublisher
}

type toolHandler func(ctx context.Context, args map[string]any) (content string, artifact string, err error)

type registeredTool struct {
	schema  domain.ToolSchema
	handler toolHandler
}

// ToolRegistry is the fixed vocabulary of operations one orchestration
// run may invoke. It is built fresh per run so the run's ledger and
// lookup cache stay scoped to that run.
type ToolRegistry struct {
	deps   ToolDeps
	ledger *Ledger
	tools  map[string]registeredTool
	order  []string

	contactCache map[int64]*domain.Contact
}

func NewToolRegistry(deps ToolDeps, ledger *Ledger) *ToolRegistry {
	r := &ToolRegistry{
		deps:         deps,
		ledger:       ledger,
		tools:        make(map[string]registeredTool),
		contactCache: make(map[int64]*domain.Contact),
	}
	r.register(contactSearchSchema(), r.handleContactSearch)
	r.register(similarContactsSchema(), r.handleSimilarContacts)
	r.register(contactDetailSchema(), r.handleContactDetail)
	if deps.Outreach != nil {
		r.register(outreachContextSchema(), r.handleOutreachContext)
	}
	if deps.Exporter != nil {
		r.register(exportContactsSchema(), r.handleExportContacts)
	}
	if deps.Paths != nil {
		r.register(networkPathSchema(), r.handleNetworkPath)
	}
	return r
}

func (r *ToolRegistry) register(schema domain.ToolSchema, handler toolHandler) {
	r.tools[schema.Name] = registeredTool{schema: schema, handler: handler}
	r.order = append(r.order, schema.Name)
}

func (r *ToolRegistry) Schemas() []domain.ToolSchema {
	out := make([]domain.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].schema)
	}
	return out
}

// Dispatch validates and executes one tool request. Failures of any kind
// become error-shaped tool results rather than errors: the driving
// conversation decides how to react.
func (r *ToolRegistry) Dispatch(ctx context.Context, req domain.ToolRequest) domain.ToolResult {
	result := domain.ToolResult{
		CallID: req.ID,
		Seq:    req.Seq,
		Name:   req.Name,
	}

	tool, ok := r.tools[req.Name]
	if !ok {
		result.Status = domain.ToolStatusError
		result.Content = errorPayload(fmt.Sprintf("unknown tool: %s", req.Name))
		return result
	}
	if err := validateArgs(tool.schema, req.Args); err != nil {
		result.Status = domain.ToolStatusError
		result.Content = errorPayload(err.Error())
		return result
	}

	content, artifact, err := tool.handler(ctx, req.Args)
	if err != nil {
		result.Status = domain.ToolStatusError
		result.Content = errorPayload(err.Error())
		return result
	}
	result.Status = domain.ToolStatusOK
	result.Content = content
	result.Artifact = artifact
	return result
}

func errorPayload(message string) string {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return string(payload)
}

// validateArgs checks the incoming arguments against the declared spec
// before the handler runs. Unknown arguments are tolerated; missing
// required ones and wrong types are not.
func validateArgs(schema domain.ToolSchema, args map[string]any) error {
	for _, spec := range schema.Args {
		value, ok := args[spec.Name]
		if !ok || value == nil {
			if spec.Required {
				return fmt.Errorf("missing required argument: %s", spec.Name)
			}
			continue
		}
		if err := checkArgType(spec, value); err != nil {
			return err
		}
		if len(spec.Enum) > 0 {
			raw := strings.ToLower(strings.TrimSpace(fmt.Sprint(value)))
			found := false
			for _, allowed := range spec.Enum {
				if raw == allowed {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("argument %s must be one of %s", spec.Name, strings.Join(spec.Enum, ", "))
			}
		}
	}
	return nil
}

func checkArgType(spec domain.ArgSpec, value any) error {
	switch spec.Type {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("argument %s must be a string", spec.Name)
		}
	case "integer", "number":
		switch value.(type) {
		case float64, int, int64:
		case string:
			if _, err := strconv.ParseFloat(strings.TrimSpace(value.(string)), 64); err != nil {
				return fmt.Errorf("argument %s must be a number", spec.Name)
			}
		default:
			return fmt.Errorf("argument %s must be a number", spec.Name)
		}
	case "boolean":
		switch value.(type) {
		case bool:
		case string:
			if _, err := strconv.ParseBool(strings.TrimSpace(value.(string))); err != nil {
				return fmt.Errorf("argument %s must be a boolean", spec.Name)
			}
		default:
			return fmt.Errorf("argument %s must be a boolean", spec.Name)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("argument %s must be an array", spec.Name)
		}
	}
	return nil
}

func contactSearchSchema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        toolContactSearch,
		Description: "Search the relationship dataset with structured filters and an optional semantic query. Returns ranked contacts.",
		Args: []domain.ArgSpec{
			{Name: "semantic_query", Type: "string", Description: "Open-ended intent to match semantically"},
			{Name: "organization", Type: "string", Description: "Organization substring filter"},
			{Name: "name", Type: "string", Description: "First or last name substring filter"},
			{Name: "region", Type: "string", Description: "Region substring filter"},
			{Name: "proximity_min", Type: "integer", Description: "Minimum proximity score 0-100"},
			{Name: "capacity_min", Type: "integer", Description: "Minimum capacity score 0-100"},
			{Name: "familiarity_min", Type: "integer", Description: "Minimum familiarity rating 0-4"},
			{Name: "proximity_tiers", Type: "array", Description: "Proximity tier names to include"},
			{Name: "capacity_tiers", Type: "array", Description: "Capacity tier names to include"},
			{Name: "fit_types", Type: "array", Description: "Fit types to include"},
			{Name: "sort_by", Type: "string", Description: "Sort key: proximity, capacity, familiarity, last_contact, interactions, name, or goal:<id>"},
			{Name: "limit", Type: "integer", Description: "Maximum results, default 50"},
		},
	}
}

func similarContactsSchema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        toolSimilarContacts,
		Description: "Find contacts semantically similar to a given contact.",
		Args: []domain.ArgSpec{
			{Name: "contact_id", Type: "integer", Required: true, Description: "Anchor contact id"},
			{Name: "field", Type: "string", Enum: []string{"profile", "interests"}, Description: "Embedding to compare, default profile"},
			{Name: "limit", Type: "integer", Description: "Maximum results, default 10"},
		},
	}
}

func contactDetailSchema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        toolContactDetail,
		Description: "Fetch the full record of one contact.",
		Args: []domain.ArgSpec{
			{Name: "contact_id", Type: "integer", Required: true, Description: "Contact id"},
		},
	}
}

func outreachContextSchema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        toolOutreachContext,
		Description: "Fetch outreach context for a contact (recency, tier, suggested tone) and queue it for outreach.",
		Args: []domain.ArgSpec{
			{Name: "contact_id", Type: "integer", Required: true, Description: "Contact id"},
			{Name: "queue", Type: "boolean", Description: "Queue the contact for outreach, default false"},
		},
	}
}

func exportContactsSchema() domain.ToolSchema {
	schema := contactSearchSchema()
	schema.Name = toolExportContacts
	schema.Description = "Run a contact search and export the results to a spreadsheet file."
	return schema
}

func networkPathSchema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        toolNetworkPath,
		Description: "Find the shortest introduction path between two contacts in the relationship graph.",
		Args: []domain.ArgSpec{
			{Name: "from_contact_id", Type: "integer", Required: true, Description: "Starting contact id"},
			{Name: "to_contact_id", Type: "integer", Required: true, Description: "Target contact id"},
			{Name: "max_hops", Type: "integer", Description: "Maximum path length, default 4"},
		},
	}
}

type contactSummary struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Organization  string  `json:"organization,omitempty"`
	Role          string  `json:"role,omitempty"`
	Region        string  `json:"region,omitempty"`
	ProximityTier string  `json:"proximity_tier,omitempty"`
	CapacityTier  string  `json:"capacity_tier,omitempty"`
	Familiarity   int     `json:"familiarity"`
	Score         float64 `json:"score"`
}

func summarizeResults(results []domain.SearchResult) []contactSummary {
	out := make([]contactSummary, 0, len(results))
	for _, result := range results {
		out = append(out, contactSummary{
			ID:            result.Contact.ID,
			Name:          result.Contact.FullName(),
			Organization:  result.Contact.Organization,
			Role:          result.Contact.Role,
			Region:        result.Contact.Region,
			ProximityTier: result.Contact.ProximityTier(),
			CapacityTier:  result.Contact.CapacityTier(),
			Familiarity:   result.Contact.Familiarity,
			Score:         result.Score,
		})
	}
	return out
}

func (r *ToolRegistry) handleContactSearch(ctx context.Context, args map[string]any) (string, string, error) {
	filter := filterFromArgs(args)
	results, err := r.runSearch(ctx, filter)
	if err != nil {
		return "", "", err
	}
	payload, _ := json.Marshal(map[string]any{
		"count":    len(results),
		"contacts": summarizeResults(results),
	})
	return string(payload), "", nil
}

func (r *ToolRegistry) runSearch(ctx context.Context, filter domain.Filter) ([]domain.SearchResult, error) {
	results, err := r.deps.Searcher.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("contact search: %w", err)
	}
	if r.ledger != nil && filter.IsHybrid() {
		r.ledger.Record(domain.OpEmbedding, false)
	}
	return results, nil
}

func (r *ToolRegistry) handleSimilarContacts(ctx context.Context, args map[string]any) (string, string, error) {
	contactID := int64Input(args, "contact_id", 0)
	limit := intInput(args, "limit", 10)
	field := domain.SemanticField(stringInput(args, "field", string(domain.SemanticFieldProfile)))

	candidates, err := r.deps.Vectors.SearchSimilar(ctx, contactID, field, limit)
	if err != nil {
		return "", "", fmt.Errorf("similar contacts: %w", err)
	}
	if len(candidates) == 0 {
		payload, _ := json.Marshal(map[string]any{"count": 0, "contacts": []contactSummary{}})
		return string(payload), "", nil
	}

	ids := make([]int64, 0, len(candidates))
	for _, candidate := range candidates {
		ids = append(ids, candidate.ContactID)
	}
	resolved, err := r.deps.Contacts.ResolveByIDs(ctx, ids)
	if err != nil {
		return "", "", fmt.Errorf("resolve similar contacts: %w", err)
	}
	byID := make(map[int64]domain.Contact, len(resolved))
	for _, contact := range resolved {
		byID[contact.ID] = contact
	}
	results := make([]domain.SearchResult, 0, len(candidates))
	for _, candidate := range candidates {
		contact, ok := byID[candidate.ContactID]
		if !ok {
			continue
		}
		results = append(results, domain.SearchResult{Contact: contact, Score: candidate.Score})
	}
	payload, _ := json.Marshal(map[string]any{
		"count":    len(results),
		"contacts": summarizeResults(results),
	})
	return string(payload), "", nil
}

// lookupContact is the run-scoped enrichment lookup: repeated fetches of
// the same contact within one run hit the cache and cost nothing.
func (r *ToolRegistry) lookupContact(ctx context.Context, contactID int64) (*domain.Contact, error) {
	if contact, ok := r.contactCache[contactID]; ok {
		if r.ledger != nil {
			r.ledger.Record(domain.OpEnrichmentLookup, true)
		}
		return contact, nil
	}
	contact, err := r.deps.Contacts.GetByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if r.ledger != nil {
		r.ledger.Record(domain.OpEnrichmentLookup, false)
	}
	r.contactCache[contactID] = contact
	return contact, nil
}

func (r *ToolRegistry) handleContactDetail(ctx context.Context, args map[string]any) (string, string, error) {
	contactID := int64Input(args, "contact_id", 0)
	contact, err := r.lookupContact(ctx, contactID)
	if err != nil {
		return "", "", fmt.Errorf("contact detail: %w", err)
	}
	payload, _ := json.Marshal(contact)
	return string(payload), "", nil
}

func (r *ToolRegistry) handleOutreachContext(ctx context.Context, args map[string]any) (string, string, error) {
	contactID := int64Input(args, "contact_id", 0)
	contact, err := r.lookupContact(ctx, contactID)
	if err != nil {
		return "", "", fmt.Errorf("outreach context: %w", err)
	}

	now := time.Now().UTC()
	info := map[string]any{
		"contact_id":        contact.ID,
		"name":              contact.FullName(),
		"proximity_tier":    contact.ProximityTier(),
		"capacity_tier":     contact.CapacityTier(),
		"familiarity":       contact.Familiarity,
		"interaction_count": contact.InteractionCount,
		"suggested_tone":    suggestedTone(*contact),
	}
	if contact.LastContactAt != nil {
		info["days_since_contact"] = int(now.Sub(*contact.LastContactAt).Hours() / 24)
	}

	if boolInput(args, "queue", false) {
		if err := r.deps.Contacts.MarkOutreachQueued(ctx, contact.ID, now); err != nil {
			return "", "", fmt.Errorf("mark outreach queued: %w", err)
		}
		if err := r.deps.Outreach.PublishOutreachQueued(ctx, contact.ID); err != nil {
			return "", "", fmt.Errorf("publish outreach event: %w", err)
		}
		info["queued"] = true
	}

	payload, _ := json.Marshal(info)
	return string(payload), "", nil
}

func suggestedTone(contact domain.Contact) string {
	switch contact.ProximityTier() {
	case "inner", "close":
		return "personal"
	case "warm":
		return "friendly"
	default:
		return "formal"
	}
}

func (r *ToolRegistry) handleExportContacts(ctx context.Context, args map[string]any) (string, string, error) {
	filter := filterFromArgs(args)
	results, err := r.runSearch(ctx, filter)
	if err != nil {
		return "", "", err
	}
	path, err := r.deps.Exporter.Export(ctx, results)
	if err != nil {
		return "", "", fmt.Errorf("export contacts: %w", err)
	}
	payload, _ := json.Marshal(map[string]any{
		"count": len(results),
		"file":  path,
	})
	return string(payload), path, nil
}

func (r *ToolRegistry) handleNetworkPath(ctx context.Context, args map[string]any) (string, string, error) {
	fromID := int64Input(args, "from_contact_id", 0)
	toID := int64Input(args, "to_contact_id", 0)
	maxHops := intInput(args, "max_hops", 4)

	hops, err := r.deps.Paths.IntroPath(ctx, fromID, toID, maxHops)
	if err != nil {
		return "", "", fmt.Errorf("network path: %w", err)
	}
	payload, _ := json.Marshal(map[string]any{
		"hops": len(hops),
		"path": hops,
	})
	return string(payload), "", nil
}

func filterFromArgs(args map[string]any) domain.Filter {
	filter := domain.Filter{
		SemanticQuery: stringInput(args, "semantic_query", ""),
		Organization:  stringInput(args, "organization", ""),
		Name:          stringInput(args, "name", ""),
		Region:        stringInput(args, "region", ""),
		SortBy:        domain.SortKey(stringInput(args, "sort_by", "")),
		Limit:         intInput(args, "limit", 0),
	}
	filter.ProximityMin = optionalIntInput(args, "proximity_min")
	filter.CapacityMin = optionalIntInput(args, "capacity_min")
	filter.FamiliarityMin = optionalIntInput(args, "familiarity_min")
	filter.ProximityTiers = stringListInput(args, "proximity_tiers")
	filter.CapacityTiers = stringListInput(args, "capacity_tiers")
	filter.FitTypes = stringListInput(args, "fit_types")
	return filter
}

func stringInput(input map[string]any, key, fallback string) string {
	if input == nil {
		return fallback
	}
	value, ok := input[key]
	if !ok || value == nil {
		return fallback
	}
	switch typed := value.(type) {
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

func intInput(input map[string]any, key string, fallback int) int {
	if input == nil {
		return fallback
	}
	value, ok := input[key]
	if !ok || value == nil {
		return fallback
	}
	switch typed := value.(type) {
	case float64:
		return int(typed)
	case int:
		return typed
	case int64:
		return int(typed)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return fallback
		}
		return n
	default:
		return fallback
	}
}

func int64Input(input map[string]any, key string, fallback int64) int64 {
	return int64(intInput(input, key, int(fallback)))
}

func optionalIntInput(input map[string]any, key string) *int {
	if input == nil {
		return nil
	}
	if value, ok := input[key]; !ok || value == nil {
		return nil
	}
	n := intInput(input, key, 0)
	return &n
}

func stringListInput(input map[string]any, key string) []string {
	if input == nil {
		return nil
	}
	value, ok := input[key]
	if !ok || value == nil {
		return nil
	}
	switch typed := value.(type) {
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return typed
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil
		}
		parts := strings.Split(typed, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			out = append(out, strings.TrimSpace(part))
		}
		return out
	default:
		return nil
	}
}

func boolInput(input map[string]any, key string, fallback bool) bool {
	if input == nil {
		return fallback
	}
	value, ok := input[key]
	if !ok || value == nil {
		return fallback
	}
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return fallback
		}
		return parsed
	default:
		return fallback
	}
}
