package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
	"github.com/kirillkom/relationship-assistant/internal/core/ports"
)

// FilterTranslateUseCase turns a natural-language intent into a
// validated filter with a single-shot JSON completion and at most one
// repair retry.
type FilterTranslateUseCase struct {
	generator ports.JSONGenerator
}

func NewFilterTranslateUseCase(generator ports.JSONGenerator) *FilterTranslateUseCase {
	return &FilterTranslateUseCase{generator: generator}
}

func (uc *FilterTranslateUseCase) Translate(ctx context.Context, text string) (domain.Filter, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Filter{}, domain.WrapError(domain.ErrInvalidInput, "translate filter", fmt.Errorf("intent text is required"))
	}

	raw, err := uc.generator.GenerateJSON(ctx, buildTranslatePrompt(text))
	if err != nil {
		return domain.Filter{}, fmt.Errorf("translate filter: %w", err)
	}

	filter, err := parseFilterJSON(raw)
	if err != nil {
		repaired, repairErr := uc.generator.GenerateJSON(ctx, buildTranslateRepairPrompt(raw))
		if repairErr != nil {
			return domain.Filter{}, fmt.Errorf("translate filter repair: %w", repairErr)
		}
		filter, err = parseFilterJSON(repaired)
		if err != nil {
			return domain.Filter{}, domain.WrapError(domain.ErrInvalidInput, "translate filter", err)
		}
	}

	filter = filter.Normalized()
	if err := filter.Validate(); err != nil {
		return domain.Filter{}, err
	}
	return filter, nil
}

func parseFilterJSON(raw string) (domain.Filter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Filter{}, fmt.Errorf("empty translation response")
	}
	var filter domain.Filter
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &filter); err != nil {
		return domain.Filter{}, fmt.Errorf("unmarshal filter json: %w", err)
	}
	return filter, nil
}

// extractJSONObject tolerates prose around the object, a habit of
// smaller instruction-tuned models.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func buildTranslatePrompt(text string) string {
	return fmt.Sprintf(`Translate the operator's request into a JSON search filter.
Return ONLY a valid JSON object with this schema (omit fields that do not apply):
{"proximity_min":0-100,"capacity_min":0-100,"familiarity_min":0-4,
"proximity_tiers":["distant","familiar","warm","close","inner"],
"capacity_tiers":["low","modest","mid","high","major"],
"fit_types":["funder","partner","advisor","operator","press","community"],
"organization":"substring","name":"substring","region":"substring",
"semantic_query":"open-ended intent, only when the request is semantic",
"sort_by":"proximity|capacity|familiarity|last_contact|interactions|name|goal:<id>",
"sort_desc":true,"limit":50}

Operator request:
%s`, text)
}

func buildTranslateRepairPrompt(raw string) string {
	return fmt.Sprintf(`Convert the following text into a single valid JSON object matching the
search filter schema. Return only JSON.
Text:
%s`, raw)
}
