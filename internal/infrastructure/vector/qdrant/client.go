package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

const (
	lexicalVectorName = "lexical"
)

// Client talks to one qdrant collection holding contact points. Each
// point carries two named dense vectors (profile, interests), one named
// sparse vector (lexical) and a contact_id payload. The vectors are
// written by the enrichment batch pipeline; this client only reads.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) SearchDense(
	ctx context.Context,
	field domain.SemanticField,
	queryVector []float32,
	limit int,
	restriction domain.RangeRestriction,
) ([]domain.Candidate, error) {
	if len(queryVector) == 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"query":        queryVector,
		"using":        string(field),
		"limit":        limit,
		"with_payload": true,
	}
	if filter := rangeFilter(restriction); filter != nil {
		reqBody["filter"] = filter
	}
	return c.queryPoints(ctx, reqBody, "dense query")
}

func (c *Client) SearchLexical(
	ctx context.Context,
	query string,
	limit int,
	restriction domain.RangeRestriction,
) ([]domain.Candidate, error) {
	sparse := encodeSparseQuery(query)
	if len(sparse.Indices) == 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"query":        sparse,
		"using":        lexicalVectorName,
		"limit":        limit,
		"with_payload": true,
	}
	if filter := rangeFilter(restriction); filter != nil {
		reqBody["filter"] = filter
	}
	return c.queryPoints(ctx, reqBody, "lexical query")
}

func (c *Client) SearchSimilar(
	ctx context.Context,
	contactID int64,
	field domain.SemanticField,
	limit int,
) ([]domain.Candidate, error) {
	reqBody := map[string]any{
		"query": map[string]any{
			"recommend": map[string]any{
				"positive": []int64{contactID},
			},
		},
		"using":        string(field),
		"limit":        limit,
		"with_payload": true,
	}
	candidates, err := c.queryPoints(ctx, reqBody, "recommend query")
	if err != nil {
		return nil, err
	}
	// The anchor can come back as its own best match.
	out := candidates[:0]
	for _, candidate := range candidates {
		if candidate.ContactID == contactID {
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}

func rangeFilter(restriction domain.RangeRestriction) map[string]any {
	must := make([]map[string]any, 0, 2)
	if restriction.ProximityMin != nil {
		must = append(must, map[string]any{
			"key":   "proximity_score",
			"range": map[string]any{"gte": *restriction.ProximityMin},
		})
	}
	if restriction.CapacityMin != nil {
		must = append(must, map[string]any{
			"key":   "capacity_score",
			"range": map[string]any{"gte": *restriction.CapacityMin},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

func (c *Client) queryPoints(ctx context.Context, reqBody map[string]any, operation string) ([]domain.Candidate, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", operation, err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/query", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		cause := fmt.Errorf("status %s", resp.Status)
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			cause = fmt.Errorf("status %s: %s", resp.Status, msg)
		}
		return nil, domain.WrapError(domain.ErrCollaborator, "qdrant "+operation, cause)
	}

	var queryResp struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", operation, err)
	}

	out := make([]domain.Candidate, 0, len(queryResp.Result.Points))
	for _, point := range queryResp.Result.Points {
		contactID := getInt64Payload(point.Payload, "contact_id")
		if contactID == 0 {
			contactID = coerceInt64(point.ID)
		}
		if contactID == 0 {
			continue
		}
		out = append(out, domain.Candidate{ContactID: contactID, Score: point.Score})
	}
	return out, nil
}

func getInt64Payload(payload map[string]any, key string) int64 {
	value, ok := payload[key]
	if !ok {
		return 0
	}
	return coerceInt64(value)
}

func coerceInt64(value any) int64 {
	switch typed := value.(type) {
	case float64:
		return int64(typed)
	case int64:
		return typed
	case int:
		return int64(typed)
	case json.Number:
		n, err := typed.Int64()
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
