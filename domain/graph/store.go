// Package graph maintains the property-graph projection of the current
// bundle: non-relationship objects become nodes, relationship objects become
// directed edges. The projection is derived state and is rebuilt from
// scratch on every sync.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/stixgraph/stixgraph/domain/stix"
	"github.com/stixgraph/stixgraph/internal/config"
	"github.com/stixgraph/stixgraph/pkg/apperror"
	"github.com/stixgraph/stixgraph/pkg/logger"
)

const clearCypher = "MATCH (n:StixObject) DETACH DELETE n"

const adjacentCypher = `
MATCH (n:StixObject {stix_id: $stix_id})
OPTIONAL MATCH (n)-[r]-(other:StixObject)
WHERE other.stix_id <> n.stix_id
RETURN properties(n) AS center,
       type(r) AS rel_type,
       properties(r) AS rel_props,
       properties(other) AS neighbor,
       startNode(r).stix_id = $stix_id AS from_center`

const edgesTouchingCypher = `
MATCH (a:StixObject)-[r]->(b:StixObject)
WHERE a.stix_id = $stix_id OR b.stix_id = $stix_id
RETURN properties(a) AS source,
       type(r) AS rel_type,
       properties(r) AS rel_props,
       properties(b) AS target`

// Store executes Cypher against the graph database. Every failure that
// reaches the driver surfaces as ErrGraphUnavailable so callers can tell a
// down graph store apart from a missing node or a down document store.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	log      *slog.Logger
}

// NewStore creates a new graph store
func NewStore(driver neo4j.DriverWithContext, cfg *config.Config, log *slog.Logger) *Store {
	return &Store{
		driver:   driver,
		database: cfg.Graph.Database,
		log:      log.With(logger.Scope("graph.store")),
	}
}

// Rebuild replaces the whole projection with the given bundle inside one
// write transaction: clear, merge nodes, create edges. Relationship objects
// with a missing or dangling endpoint are skipped; they stay visible in the
// document store only.
func (s *Store) Rebuild(ctx context.Context, bundle *stix.Bundle) (*RebuildStats, error) {
	nodesByLabel, edgesByType, stats := projectBundle(bundle)

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, clearCypher, nil); err != nil {
			return nil, fmt.Errorf("clear projection: %w", err)
		}

		for label, rows := range nodesByLabel {
			cypher := fmt.Sprintf(
				"UNWIND $rows AS row MERGE (n%s {stix_id: row.stix_id}) SET n += row.props",
				nodeLabelPattern(label),
			)
			if _, err := tx.Run(ctx, cypher, map[string]any{"rows": rows}); err != nil {
				return nil, fmt.Errorf("merge %s nodes: %w", label, err)
			}
		}

		for relType, rows := range edgesByType {
			cypher := fmt.Sprintf(
				"UNWIND $rows AS row "+
					"MATCH (a:StixObject {stix_id: row.source}), (b:StixObject {stix_id: row.target}) "+
					"CREATE (a)-[r:%s {stix_id: row.stix_id}]->(b)",
				relType,
			)
			if _, err := tx.Run(ctx, cypher, map[string]any{"rows": rows}); err != nil {
				return nil, fmt.Errorf("create %s edges: %w", relType, err)
			}
		}

		return nil, nil
	})
	if err != nil {
		return nil, apperror.ErrGraphUnavailable.WithInternal(err)
	}

	return stats, nil
}

// Adjacent returns the node with the given stix_id and its one-hop
// neighborhood in both directions. A missing node returns (nil, nil);
// only a store failure returns an error.
func (s *Store) Adjacent(ctx context.Context, stixID string) (*Adjacency, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, adjacentCypher, map[string]any{"stix_id": stixID})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, apperror.ErrGraphUnavailable.WithInternal(err)
	}

	return parseAdjacency(result.([]*neo4j.Record)), nil
}

// EdgesTouching returns every directed edge where the node with the given
// stix_id is either endpoint. An empty slice is a valid answer.
func (s *Store) EdgesTouching(ctx context.Context, stixID string) ([]EdgeTriple, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, edgesTouchingCypher, map[string]any{"stix_id": stixID})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, apperror.ErrGraphUnavailable.WithInternal(err)
	}

	return parseEdges(result.([]*neo4j.Record)), nil
}

// projectBundle partitions a bundle into node rows grouped by label and
// edge rows grouped by relationship type. Relationships with missing
// fields or endpoints absent from the bundle are counted as skipped.
func projectBundle(bundle *stix.Bundle) (map[string][]any, map[string][]any, *RebuildStats) {
	ids := make(map[string]struct{}, len(bundle.Objects))
	for i := range bundle.Objects {
		ids[bundle.Objects[i].ID] = struct{}{}
	}

	nodesByLabel := make(map[string][]any)
	edgesByType := make(map[string][]any)
	stats := &RebuildStats{}

	for i := range bundle.Objects {
		obj := &bundle.Objects[i]

		if !obj.IsRelationship() {
			label := stix.NodeLabel(obj.Type)
			nodesByLabel[label] = append(nodesByLabel[label], map[string]any{
				"stix_id": obj.ID,
				"props":   toCypherProps(obj.NodeProps()),
			})
			stats.Nodes++
			continue
		}

		if obj.SourceRef == "" || obj.TargetRef == "" || obj.RelationshipType == "" {
			stats.SkippedEdges++
			continue
		}
		if _, ok := ids[obj.SourceRef]; !ok {
			stats.SkippedEdges++
			continue
		}
		if _, ok := ids[obj.TargetRef]; !ok {
			stats.SkippedEdges++
			continue
		}

		relType := stix.EdgeType(obj.RelationshipType)
		edgesByType[relType] = append(edgesByType[relType], map[string]any{
			"source":  obj.SourceRef,
			"target":  obj.TargetRef,
			"stix_id": obj.ID,
		})
		stats.Edges++
	}

	return nodesByLabel, edgesByType, stats
}

// parseAdjacency maps adjacency query records to the response shape. A row
// whose rel_type is null comes from the OPTIONAL MATCH finding no neighbor
// and contributes only the center node.
func parseAdjacency(records []*neo4j.Record) *Adjacency {
	if len(records) == 0 {
		return nil
	}

	center, _ := records[0].Get("center")
	centerProps := asProps(center)
	if centerProps == nil {
		return nil
	}

	adjacency := &Adjacency{
		Node:     centerProps,
		Adjacent: make([]AdjacentEntry, 0, len(records)),
	}
	for _, record := range records {
		relType, _ := record.Get("rel_type")
		typeName, ok := relType.(string)
		if !ok {
			continue
		}
		neighbor, _ := record.Get("neighbor")
		neighborProps := asProps(neighbor)
		if neighborProps == nil {
			continue
		}

		relProps, _ := record.Get("rel_props")
		relationship := map[string]any{"type": typeName}
		for k, v := range asProps(relProps) {
			relationship[k] = v
		}

		fromCenter, _ := record.Get("from_center")
		direction := DirectionIncoming
		if b, ok := fromCenter.(bool); ok && b {
			direction = DirectionOutgoing
		}

		adjacency.Adjacent = append(adjacency.Adjacent, AdjacentEntry{
			Relationship: relationship,
			Direction:    direction,
			Node:         neighborProps,
		})
	}

	return adjacency
}

// parseEdges maps edge query records to response triples
func parseEdges(records []*neo4j.Record) []EdgeTriple {
	edges := make([]EdgeTriple, 0, len(records))
	for _, record := range records {
		relType, _ := record.Get("rel_type")
		typeName, ok := relType.(string)
		if !ok {
			continue
		}
		source, _ := record.Get("source")
		target, _ := record.Get("target")

		relProps, _ := record.Get("rel_props")
		relationship := map[string]any{"type": typeName}
		for k, v := range asProps(relProps) {
			relationship[k] = v
		}

		edges = append(edges, EdgeTriple{
			Source:       asProps(source),
			Relationship: relationship,
			Target:       asProps(target),
		})
	}

	return edges
}

// Ping verifies the graph store is reachable
func (s *Store) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return apperror.ErrGraphUnavailable.WithInternal(err)
	}
	return nil
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

// nodeLabelPattern renders the label part of a node pattern. Every node
// carries the base label; mapped types add their own on top.
func nodeLabelPattern(label string) string {
	if label == stix.FallbackNodeLabel {
		return ":" + stix.FallbackNodeLabel
	}
	return ":" + stix.FallbackNodeLabel + ":" + label
}

// toCypherProps rewrites string lists as []any for the driver's parameter
// encoding
func toCypherProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if ss, ok := v.([]string); ok {
			list := make([]any, len(ss))
			for i := range ss {
				list[i] = ss[i]
			}
			out[k] = list
			continue
		}
		out[k] = v
	}
	return out
}

func asProps(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
