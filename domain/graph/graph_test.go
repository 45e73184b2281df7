package graph

import (
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stixgraph/stixgraph/domain/stix"
	"github.com/stixgraph/stixgraph/pkg/apperror"
)

func testBundle(t *testing.T) *stix.Bundle {
	t.Helper()
	bundle, err := stix.ParseBundle([]byte(`{
		"type": "bundle",
		"spec_version": "2.1",
		"objects": [
			{"type": "attack-pattern", "id": "attack-pattern--1", "name": "Phishing"},
			{"type": "attack-pattern", "id": "attack-pattern--2", "name": "Drive-by Compromise"},
			{"type": "intrusion-set", "id": "intrusion-set--3", "name": "APT1"},
			{"type": "relationship", "id": "relationship--4",
			 "relationship_type": "uses",
			 "source_ref": "intrusion-set--3", "target_ref": "attack-pattern--1"},
			{"type": "relationship", "id": "relationship--5",
			 "relationship_type": "uses",
			 "source_ref": "intrusion-set--3", "target_ref": "attack-pattern--99"},
			{"type": "relationship", "id": "relationship--6",
			 "relationship_type": "mitigates",
			 "source_ref": "", "target_ref": "attack-pattern--1"}
		]
	}`))
	require.NoError(t, err)
	return bundle
}

func TestProjectBundle(t *testing.T) {
	nodesByLabel, edgesByType, stats := projectBundle(testBundle(t))

	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 1, stats.Edges)
	// One dangling target, one missing source_ref.
	assert.Equal(t, 2, stats.SkippedEdges)

	require.Len(t, nodesByLabel["AttackPattern"], 2)
	require.Len(t, nodesByLabel["IntrusionSet"], 1)

	require.Len(t, edgesByType["USES"], 1)
	edge := edgesByType["USES"][0].(map[string]any)
	assert.Equal(t, "intrusion-set--3", edge["source"])
	assert.Equal(t, "attack-pattern--1", edge["target"])
	assert.Equal(t, "relationship--4", edge["stix_id"])
	assert.Empty(t, edgesByType["MITIGATES"])
}

func TestProjectBundle_NodeRows(t *testing.T) {
	nodesByLabel, _, _ := projectBundle(testBundle(t))

	row := nodesByLabel["IntrusionSet"][0].(map[string]any)
	assert.Equal(t, "intrusion-set--3", row["stix_id"])

	props := row["props"].(map[string]any)
	assert.Equal(t, "APT1", props["name"])
	assert.Equal(t, "intrusion-set--3", props["stix_id"])
}

func TestNodeLabelPattern(t *testing.T) {
	assert.Equal(t, ":StixObject:AttackPattern", nodeLabelPattern("AttackPattern"))
	assert.Equal(t, ":StixObject", nodeLabelPattern(stix.FallbackNodeLabel))
}

func TestToCypherProps(t *testing.T) {
	props := toCypherProps(map[string]any{
		"name":    "Phishing",
		"revoked": false,
		"domains": []string{"enterprise-attack", "mobile-attack"},
	})

	assert.Equal(t, "Phishing", props["name"])
	assert.Equal(t, false, props["revoked"])
	assert.Equal(t, []any{"enterprise-attack", "mobile-attack"}, props["domains"])
}

func adjacencyRecord(center, neighbor map[string]any, relType any, relProps map[string]any, fromCenter any) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{"center", "rel_type", "rel_props", "neighbor", "from_center"},
		Values: []any{center, relType, relProps, neighbor, fromCenter},
	}
}

func TestParseAdjacency(t *testing.T) {
	center := map[string]any{"stix_id": "attack-pattern--1", "name": "Phishing"}
	user := map[string]any{"stix_id": "intrusion-set--3", "name": "APT1"}
	mitigation := map[string]any{"stix_id": "course-of-action--7", "name": "User Training"}

	records := []*neo4j.Record{
		adjacencyRecord(center, user, "USES", map[string]any{"stix_id": "relationship--4"}, false),
		adjacencyRecord(center, mitigation, "MITIGATES", map[string]any{"stix_id": "relationship--8"}, false),
	}

	adjacency := parseAdjacency(records)
	require.NotNil(t, adjacency)
	assert.Equal(t, center, adjacency.Node)
	require.Len(t, adjacency.Adjacent, 2)

	// Both neighbors point at the center, so both edges are incoming.
	for _, entry := range adjacency.Adjacent {
		assert.Equal(t, DirectionIncoming, entry.Direction)
	}
	assert.Equal(t, "USES", adjacency.Adjacent[0].Relationship["type"])
	assert.Equal(t, "relationship--4", adjacency.Adjacent[0].Relationship["stix_id"])
	assert.Equal(t, user, adjacency.Adjacent[0].Node)
}

func TestParseAdjacency_DirectionFollowsEdgeStart(t *testing.T) {
	center := map[string]any{"stix_id": "intrusion-set--3"}
	target := map[string]any{"stix_id": "attack-pattern--1"}

	out := parseAdjacency([]*neo4j.Record{
		adjacencyRecord(center, target, "USES", nil, true),
	})
	require.NotNil(t, out)
	require.Len(t, out.Adjacent, 1)
	assert.Equal(t, DirectionOutgoing, out.Adjacent[0].Direction)

	in := parseAdjacency([]*neo4j.Record{
		adjacencyRecord(center, target, "TARGETS", nil, false),
	})
	require.Len(t, in.Adjacent, 1)
	assert.Equal(t, DirectionIncoming, in.Adjacent[0].Direction)
}

func TestParseAdjacency_IsolatedNode(t *testing.T) {
	center := map[string]any{"stix_id": "attack-pattern--1"}

	// OPTIONAL MATCH with no neighbor yields one row with null
	// relationship columns.
	adjacency := parseAdjacency([]*neo4j.Record{
		adjacencyRecord(center, nil, nil, nil, nil),
	})
	require.NotNil(t, adjacency)
	assert.Equal(t, center, adjacency.Node)
	assert.Empty(t, adjacency.Adjacent)
}

func TestParseAdjacency_NoRecords(t *testing.T) {
	assert.Nil(t, parseAdjacency(nil))
	assert.Nil(t, parseAdjacency([]*neo4j.Record{}))
}

func TestParseEdges(t *testing.T) {
	a := map[string]any{"stix_id": "intrusion-set--3", "name": "APT1"}
	b := map[string]any{"stix_id": "attack-pattern--1", "name": "Phishing"}

	records := []*neo4j.Record{
		{
			Keys:   []string{"source", "rel_type", "rel_props", "target"},
			Values: []any{a, "USES", map[string]any{"stix_id": "relationship--4"}, b},
		},
	}

	edges := parseEdges(records)
	require.Len(t, edges, 1)
	assert.Equal(t, a, edges[0].Source)
	assert.Equal(t, b, edges[0].Target)
	assert.Equal(t, "USES", edges[0].Relationship["type"])
	assert.Equal(t, "relationship--4", edges[0].Relationship["stix_id"])
}

func TestParseEdges_Empty(t *testing.T) {
	edges := parseEdges(nil)
	assert.NotNil(t, edges)
	assert.Empty(t, edges)
}

func TestGraphUnavailableDistinctFromNotFound(t *testing.T) {
	err := apperror.ErrGraphUnavailable.WithInternal(errors.New("dial tcp: connection refused"))

	assert.True(t, errors.Is(err, apperror.ErrGraphUnavailable))
	assert.False(t, errors.Is(err, apperror.ErrNotFound))
	assert.False(t, errors.Is(err, apperror.ErrStoreUnavailable))
}
