package stix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBundle(t *testing.T) {
	raw := []byte(`{
		"type": "bundle",
		"id": "bundle--0001",
		"spec_version": "2.1",
		"objects": [
			{"type": "attack-pattern", "id": "attack-pattern--0001", "name": "Phishing", "description": "Adversaries may send phishing messages.", "x_mitre_platforms": ["Linux", "Windows"]},
			{"type": "intrusion-set", "id": "intrusion-set--0001", "name": "APT1", "aliases": ["Comment Crew"]},
			{"type": "relationship", "id": "relationship--0001", "relationship_type": "uses", "source_ref": "intrusion-set--0001", "target_ref": "attack-pattern--0001"}
		]
	}`)

	bundle, err := ParseBundle(raw)
	require.NoError(t, err)

	assert.Equal(t, "bundle", bundle.Type)
	assert.Equal(t, "bundle--0001", bundle.ID)
	assert.Equal(t, "2.1", bundle.SpecVersion)
	require.Len(t, bundle.Objects, 3)

	ap := bundle.Objects[0]
	assert.Equal(t, "attack-pattern", ap.Type)
	assert.Equal(t, "attack-pattern--0001", ap.ID)
	assert.Equal(t, "Phishing", ap.Name)
	assert.Equal(t, []string{"Linux", "Windows"}, ap.XMitrePlatforms)
	assert.False(t, ap.IsRelationship())

	rel := bundle.Objects[2]
	assert.True(t, rel.IsRelationship())
	assert.Equal(t, "uses", rel.RelationshipType)
	assert.Equal(t, "intrusion-set--0001", rel.SourceRef)
	assert.Equal(t, "attack-pattern--0001", rel.TargetRef)
}

func TestParseBundleRetainsRawObjectBytes(t *testing.T) {
	raw := []byte(`{"type":"bundle","spec_version":"2.1","objects":[{"type":"malware","id":"malware--0001","name":"WannaCry","x_custom_field":{"nested":true}}]}`)

	bundle, err := ParseBundle(raw)
	require.NoError(t, err)
	require.Len(t, bundle.Objects, 1)

	// Unknown fields survive in the retained bytes even though the typed
	// view has no place for them.
	assert.JSONEq(t,
		`{"type":"malware","id":"malware--0001","name":"WannaCry","x_custom_field":{"nested":true}}`,
		string(bundle.Objects[0].Raw))
}

func TestParseBundleDefaults(t *testing.T) {
	// Missing type defaults to bundle; missing objects is an empty list.
	bundle, err := ParseBundle([]byte(`{"spec_version":"2.1"}`))
	require.NoError(t, err)
	assert.Equal(t, "bundle", bundle.Type)
	assert.Empty(t, bundle.Objects)
}

func TestParseBundleErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid JSON", `{"type": "bundle"`},
		{"wrong bundle type", `{"type":"report","spec_version":"2.1","objects":[]}`},
		{"missing spec_version", `{"type":"bundle","objects":[]}`},
		{"blank spec_version", `{"type":"bundle","spec_version":"  ","objects":[]}`},
		{"objects not an array", `{"type":"bundle","spec_version":"2.1","objects":{"a":1}}`},
		{"object missing id", `{"type":"bundle","spec_version":"2.1","objects":[{"type":"malware"}]}`},
		{"object missing type", `{"type":"bundle","spec_version":"2.1","objects":[{"id":"malware--0001"}]}`},
		{"object not an object", `{"type":"bundle","spec_version":"2.1","objects":["nope"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBundle([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestNodeLabel(t *testing.T) {
	tests := []struct {
		entityType string
		want       string
	}{
		{"attack-pattern", "AttackPattern"},
		{"intrusion-set", "IntrusionSet"},
		{"course-of-action", "CourseOfAction"},
		{"x-mitre-tactic", "XMitreTactic"},
		{"malware", "Malware"},
		{"tool", "Tool"},
		{"ATTACK-PATTERN", "AttackPattern"},
		{"", "StixObject"},
		{"   ", "StixObject"},
		{"---", "StixObject"},
	}

	for _, tt := range tests {
		t.Run(tt.entityType, func(t *testing.T) {
			assert.Equal(t, tt.want, NodeLabel(tt.entityType))
		})
	}
}

func TestEdgeType(t *testing.T) {
	tests := []struct {
		relType string
		want    string
	}{
		{"uses", "USES"},
		{"mitigated-by", "MITIGATED_BY"},
		{"subtechnique-of", "SUBTECHNIQUE_OF"},
		{"attributed-to", "ATTRIBUTED_TO"},
		{"revoked by", "REVOKED_BY"},
		{"", "RELATED_TO"},
		{"   ", "RELATED_TO"},
	}

	for _, tt := range tests {
		t.Run(tt.relType, func(t *testing.T) {
			assert.Equal(t, tt.want, EdgeType(tt.relType))
		})
	}
}

func TestHasObject(t *testing.T) {
	bundle := &Bundle{Objects: []Object{
		{Type: "malware", ID: "malware--0001"},
		{Type: "relationship", ID: "relationship--0001"},
	}}

	assert.True(t, bundle.HasObject("malware--0001"))
	assert.True(t, bundle.HasObject("relationship--0001"))
	assert.False(t, bundle.HasObject("malware--9999"))
	assert.False(t, bundle.HasObject(""))
}

func TestNodeProps(t *testing.T) {
	revoked := true
	obj := Object{
		Type:            "attack-pattern",
		ID:              "attack-pattern--0001",
		SpecVersion:     "2.1",
		Name:            "Phishing",
		Description:     "Adversaries may send phishing messages.",
		Modified:        "2024-04-11T00:00:00.000Z",
		Revoked:         &revoked,
		XMitrePlatforms: []string{"Linux", "macOS"},
		XMitreDomains:   []string{"enterprise-attack"},
		ExternalReferences: []ExternalReference{
			{SourceName: "mitre-attack", ExternalID: "T1566"},
		},
		KillChainPhases: []KillChainPhase{
			{KillChainName: "mitre-attack", PhaseName: "initial-access"},
		},
	}

	props := obj.NodeProps()

	assert.Equal(t, "attack-pattern--0001", props["stix_id"])
	assert.Equal(t, "attack-pattern--0001", props["id"])
	assert.Equal(t, "attack-pattern", props["type"])
	assert.Equal(t, "Phishing", props["name"])
	assert.Equal(t, "2024-04-11T00:00:00.000Z", props["modified"])
	assert.Equal(t, true, props["revoked"])
	assert.Equal(t, []string{"Linux", "macOS"}, props["x_mitre_platforms"])
	assert.Equal(t, []string{"enterprise-attack"}, props["x_mitre_domains"])

	// Nested structures stay out of the graph projection.
	assert.NotContains(t, props, "external_references")
	assert.NotContains(t, props, "kill_chain_phases")

	// Unset fields are not materialized as empty values.
	assert.NotContains(t, props, "created")
	assert.NotContains(t, props, "x_mitre_deprecated")
	assert.NotContains(t, props, "aliases")
}

func TestNodePropsSkipsRelationshipTriple(t *testing.T) {
	rel := Object{
		Type:             "relationship",
		ID:               "relationship--0001",
		RelationshipType: "uses",
		SourceRef:        "intrusion-set--0001",
		TargetRef:        "attack-pattern--0001",
		StartTime:        "2020-01-01T00:00:00Z",
	}

	props := rel.NodeProps()

	assert.Equal(t, "relationship--0001", props["stix_id"])
	assert.NotContains(t, props, "relationship_type")
	assert.NotContains(t, props, "source_ref")
	assert.NotContains(t, props, "target_ref")
	assert.NotContains(t, props, "start_time")
	assert.NotContains(t, props, "stop_time")
}

func TestEmbeddingText(t *testing.T) {
	tests := []struct {
		name        string
		objName     string
		description string
		want        string
	}{
		{
			name:        "name and description",
			objName:     "Phishing",
			description: "Adversaries may send phishing messages.",
			want:        "name: Phishing. description: Adversaries may send phishing messages.",
		},
		{
			name:    "name only",
			objName: "Phishing",
			want:    "Phishing",
		},
		{
			name:        "description only",
			description: "Adversaries may send phishing messages.",
			want:        "Adversaries may send phishing messages.",
		},
		{
			name: "both empty",
			want: "",
		},
		{
			name:        "whitespace only",
			objName:     "   ",
			description: "\t\n",
			want:        "",
		},
		{
			name:        "surrounding whitespace trimmed",
			objName:     " Phishing ",
			description: " Sends messages. ",
			want:        "name: Phishing. description: Sends messages.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := Object{Name: tt.objName, Description: tt.description}
			assert.Equal(t, tt.want, obj.EmbeddingText())
		})
	}
}

func TestNewVersionMeta(t *testing.T) {
	now := time.Date(2025, 4, 11, 15, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	meta := NewVersionMeta("17.0", 2048, now)

	assert.Equal(t, "17.0", meta.Version)
	assert.Equal(t, 2048, meta.SizeBytes)
	assert.Equal(t, "application/json", meta.ContentType)
	assert.Equal(t, time.UTC, meta.LastModified.Location())
	assert.Equal(t, now.UTC(), meta.LastModified)
}
