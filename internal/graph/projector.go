package graph

import (
	"context"
	"fmt"

	"github.com/mymonad/aura/pkg/aura"
)

const (
	upsertPrincipal = `MERGE (p:Principal {id: $principal})
SET p.registered_at = coalesce(p.registered_at, $at), p.active = true`

	setActive = `MERGE (p:Principal {id: $principal})
SET p.active = $active`

	recordMatch = `MERGE (a:Principal {id: $principal})
MERGE (b:Principal {id: $counterpart})
MERGE (a)-[m:MATCHED {match_id: $match_id}]->(b)
SET m.score = $score, m.at = $at`

	recordReveal = `MERGE (a:Principal {id: $principal})
MERGE (b:Principal {id: $counterpart})
MERGE (a)-[r:REVEALED_TO {match_id: $match_id}]->(b)
SET r.at = $at`

	recordMutual = `MATCH ()-[m:MATCHED {match_id: $match_id}]->()
SET m.mutual_revealed_at = $at`

	matchedWith = `MATCH (p:Principal {id: $principal})-[m:MATCHED]-(other:Principal)
RETURN other.id AS counterpart, m.match_id AS match_id, m.score AS score,
       m.mutual_revealed_at IS NOT NULL AS revealed
ORDER BY m.at`
)

// Projector writes match and reveal relationships into the graph.
type Projector struct {
	client Client
}

// NewProjector creates a Projector over client.
func NewProjector(client Client) *Projector {
	return &Projector{client: client}
}

// Name implements audit.Handler.
func (p *Projector) Name() string { return "graph" }

// Handle implements audit.Handler. Events that carry no relationship are
// ignored.
func (p *Projector) Handle(ctx context.Context, e aura.Event) error {
	params := map[string]any{
		"principal": e.Principal.String(),
		"at":        e.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	var cypher string
	switch e.Kind {
	case aura.EventRegistered:
		cypher = upsertPrincipal
	case aura.EventActiveChanged:
		cypher = setActive
		params["active"] = e.Active
	case aura.EventMatchFound:
		cypher = recordMatch
		params["counterpart"] = e.Counterpart.String()
		params["match_id"] = e.MatchID.String()
		params["score"] = int64(e.Score)
	case aura.EventRevealInitiated:
		cypher = recordReveal
		params["counterpart"] = e.Counterpart.String()
		params["match_id"] = e.MatchID.String()
	case aura.EventRevealed:
		// One revealed event is emitted per side; the update is idempotent.
		cypher = recordMutual
		params["match_id"] = e.MatchID.String()
	default:
		return nil
	}

	if _, err := p.client.ExecuteWrite(ctx, cypher, params); err != nil {
		return fmt.Errorf("project %s event %d: %w", e.Kind, e.Seq, err)
	}
	return nil
}

// Edge is one match relationship seen from a principal.
type Edge struct {
	Counterpart string `json:"counterpart"`
	MatchID     string `json:"match_id"`
	Score       int64  `json:"score"`
	Revealed    bool   `json:"revealed"`
}

// MatchedWith lists the matches principal took part in, oldest first.
func (p *Projector) MatchedWith(ctx context.Context, principal aura.Principal) ([]Edge, error) {
	res, err := p.client.ExecuteRead(ctx, matchedWith, map[string]any{
		"principal": principal.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}

	edges := make([]Edge, 0, len(res.Records))
	for _, rec := range res.Records {
		var e Edge
		e.Counterpart, _ = rec["counterpart"].(string)
		e.MatchID, _ = rec["match_id"].(string)
		e.Score, _ = rec["score"].(int64)
		e.Revealed, _ = rec["revealed"].(bool)
		edges = append(edges, e)
	}
	return edges, nil
}
