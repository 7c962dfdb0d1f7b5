package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

// Client answers introduction-path queries over the relationship graph.
// The graph mirrors the contact table: (:Contact {contact_id, name})
// nodes and KNOWS edges, maintained by the enrichment batch pipeline.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

func New(ctx context.Context, uri, user, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Client{driver: driver, database: database}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// IntroPath finds the shortest chain of acquaintances from one contact to
// another, inclusive of both endpoints. An unreachable target within the
// hop bound is a not-found error, not an empty path.
func (c *Client) IntroPath(ctx context.Context, fromID, toID int64, maxHops int) ([]domain.IntroHop, error) {
	if maxHops <= 0 {
		maxHops = 4
	}

	// The variable-length bound cannot be parameterized in cypher.
	query := fmt.Sprintf(`
MATCH (from:Contact {contact_id: $from_id}), (to:Contact {contact_id: $to_id})
MATCH p = shortestPath((from)-[:KNOWS*..%d]-(to))
RETURN [n IN nodes(p) | {contact_id: n.contact_id, name: n.name}] AS hops
`, maxHops)

	result, err := neo4j.ExecuteQuery(ctx, c.driver, query,
		map[string]any{"from_id": fromID, "to_id": toID},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database),
	)
	if err != nil {
		return nil, fmt.Errorf("intro path query: %w", err)
	}
	if len(result.Records) == 0 {
		return nil, domain.WrapError(domain.ErrContactNotFound, "intro path",
			fmt.Errorf("no path from %d to %d within %d hops", fromID, toID, maxHops))
	}

	raw, ok := result.Records[0].Get("hops")
	if !ok {
		return nil, fmt.Errorf("intro path query: missing hops column")
	}
	nodes, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("intro path query: unexpected hops shape %T", raw)
	}

	hops := make([]domain.IntroHop, 0, len(nodes))
	for _, node := range nodes {
		fields, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("intro path query: unexpected node shape %T", node)
		}
		hop := domain.IntroHop{}
		if id, ok := fields["contact_id"].(int64); ok {
			hop.ContactID = id
		}
		if name, ok := fields["name"].(string); ok {
			hop.Name = name
		}
		hops = append(hops, hop)
	}
	return hops, nil
}
