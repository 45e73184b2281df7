// Package stix models STIX-style threat-intelligence bundles and the
// projections derived from them: node labels and flat property sets for the
// graph store, and embedding text for the entity cache.
package stix

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RelationshipType is the object type whose instances become graph edges
// instead of nodes.
const RelationshipType = "relationship"

// FallbackNodeLabel is used when an object type cannot be mapped to a label.
const FallbackNodeLabel = "StixObject"

// FallbackEdgeType is used when a relationship carries no usable type.
const FallbackEdgeType = "RELATED_TO"

// ExternalReference points at source material for an object (e.g. a MITRE
// technique page). Retained in the document store, dropped from the graph
// projection.
type ExternalReference struct {
	SourceName  string `json:"source_name"`
	URL         string `json:"url,omitempty"`
	ExternalID  string `json:"external_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// KillChainPhase ties an object to a phase of a named kill chain.
type KillChainPhase struct {
	KillChainName string `json:"kill_chain_name"`
	PhaseName     string `json:"phase_name"`
}

// Object is a single STIX-style entity in a bundle. Typed fields cover the
// projection-relevant subset; Raw holds the object's original bytes so the
// entity cache can store each document without re-serialization loss.
type Object struct {
	Type                    string              `json:"type"`
	ID                      string              `json:"id"`
	SpecVersion             string              `json:"spec_version,omitempty"`
	Name                    string              `json:"name,omitempty"`
	Description             string              `json:"description,omitempty"`
	Created                 string              `json:"created,omitempty"`
	Modified                string              `json:"modified,omitempty"`
	CreatedByRef            string              `json:"created_by_ref,omitempty"`
	Revoked                 *bool               `json:"revoked,omitempty"`
	ExternalReferences      []ExternalReference `json:"external_references,omitempty"`
	XMitreVersion           string              `json:"x_mitre_version,omitempty"`
	XMitreModifiedByRef     string              `json:"x_mitre_modified_by_ref,omitempty"`
	XMitreDeprecated        *bool               `json:"x_mitre_deprecated,omitempty"`
	XMitreDomains           []string            `json:"x_mitre_domains,omitempty"`
	XMitrePlatforms         []string            `json:"x_mitre_platforms,omitempty"`
	XMitreContributors      []string            `json:"x_mitre_contributors,omitempty"`
	XMitreAttackSpecVersion string              `json:"x_mitre_attack_spec_version,omitempty"`
	XMitreShortname         string              `json:"x_mitre_shortname,omitempty"`
	KillChainPhases         []KillChainPhase    `json:"kill_chain_phases,omitempty"`
	Aliases                 []string            `json:"aliases,omitempty"`
	ObjectMarkingRefs       []string            `json:"object_marking_refs,omitempty"`

	// Relationship triple, set only on relationship-typed objects.
	RelationshipType string `json:"relationship_type,omitempty"`
	SourceRef        string `json:"source_ref,omitempty"`
	TargetRef        string `json:"target_ref,omitempty"`
	StartTime        string `json:"start_time,omitempty"`
	StopTime         string `json:"stop_time,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Bundle is the typed view of an ingested bundle document.
type Bundle struct {
	Type        string   `json:"type"`
	ID          string   `json:"id,omitempty"`
	SpecVersion string   `json:"spec_version"`
	Objects     []Object `json:"objects"`
}

// VersionMeta is the metadata stored alongside a bundle document.
type VersionMeta struct {
	Version      string    `json:"version"`
	LastModified time.Time `json:"last_modified"`
	SizeBytes    int       `json:"size"`
	ContentType  string    `json:"type"`
}

// NewVersionMeta derives storage metadata for a bundle ingested now.
func NewVersionMeta(version string, sizeBytes int, now time.Time) VersionMeta {
	return VersionMeta{
		Version:      version,
		LastModified: now.UTC(),
		SizeBytes:    sizeBytes,
		ContentType:  "application/json",
	}
}

// ParseBundle decodes a raw bundle document into its typed view. Unknown
// fields are tolerated; each object keeps its original bytes in Raw.
func ParseBundle(raw []byte) (*Bundle, error) {
	var envelope struct {
		Type        string            `json:"type"`
		ID          string            `json:"id"`
		SpecVersion string            `json:"spec_version"`
		Objects     []json.RawMessage `json:"objects"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("invalid bundle JSON: %w", err)
	}
	if envelope.Type != "" && envelope.Type != "bundle" {
		return nil, fmt.Errorf("unexpected bundle type %q", envelope.Type)
	}
	if strings.TrimSpace(envelope.SpecVersion) == "" {
		return nil, fmt.Errorf("bundle is missing spec_version")
	}

	bundle := &Bundle{
		Type:        "bundle",
		ID:          envelope.ID,
		SpecVersion: envelope.SpecVersion,
		Objects:     make([]Object, 0, len(envelope.Objects)),
	}
	for i, rawObj := range envelope.Objects {
		var obj Object
		if err := json.Unmarshal(rawObj, &obj); err != nil {
			return nil, fmt.Errorf("invalid object at index %d: %w", i, err)
		}
		if obj.Type == "" || obj.ID == "" {
			return nil, fmt.Errorf("object at index %d is missing type or id", i)
		}
		obj.Raw = rawObj
		bundle.Objects = append(bundle.Objects, obj)
	}
	return bundle, nil
}

// IsRelationship reports whether the object becomes a graph edge.
func (o *Object) IsRelationship() bool {
	return o.Type == RelationshipType
}

// HasObject reports whether the bundle contains an object with the given id.
func (b *Bundle) HasObject(id string) bool {
	for i := range b.Objects {
		if b.Objects[i].ID == id {
			return true
		}
	}
	return false
}

// NodeLabel converts a STIX object type to a graph node label. Hyphenated
// lowercase types become PascalCase ("attack-pattern" -> "AttackPattern");
// empty or unmappable types fall back to StixObject.
func NodeLabel(entityType string) string {
	fields := strings.Fields(strings.ReplaceAll(entityType, "-", " "))
	if len(fields) == 0 {
		return FallbackNodeLabel
	}
	var b strings.Builder
	for _, f := range fields {
		r := []rune(f)
		b.WriteString(strings.ToUpper(string(r[0])))
		b.WriteString(strings.ToLower(string(r[1:])))
	}
	return b.String()
}

// EdgeType converts a STIX relationship_type to a graph relationship type:
// uppercased, hyphens and spaces to underscores ("mitigated-by" ->
// "MITIGATED_BY"). Empty input falls back to RELATED_TO.
func EdgeType(relType string) string {
	relType = strings.TrimSpace(relType)
	if relType == "" {
		return FallbackEdgeType
	}
	t := strings.ToUpper(relType)
	t = strings.ReplaceAll(t, "-", "_")
	return strings.ReplaceAll(t, " ", "_")
}

// NodeProps flattens an object into graph node properties: scalars and
// string lists only. Nested structures, empty values and the relationship
// triple are skipped. The entity id is always present under stix_id.
func (o *Object) NodeProps() map[string]any {
	props := map[string]any{"stix_id": o.ID}

	setStr := func(key, val string) {
		if val != "" {
			props[key] = val
		}
	}
	setBool := func(key string, val *bool) {
		if val != nil {
			props[key] = *val
		}
	}
	setList := func(key string, val []string) {
		if len(val) > 0 {
			props[key] = val
		}
	}

	setStr("id", o.ID)
	setStr("type", o.Type)
	setStr("spec_version", o.SpecVersion)
	setStr("name", o.Name)
	setStr("description", o.Description)
	setStr("created", o.Created)
	setStr("modified", o.Modified)
	setStr("created_by_ref", o.CreatedByRef)
	setStr("x_mitre_version", o.XMitreVersion)
	setStr("x_mitre_modified_by_ref", o.XMitreModifiedByRef)
	setStr("x_mitre_attack_spec_version", o.XMitreAttackSpecVersion)
	setStr("x_mitre_shortname", o.XMitreShortname)
	setBool("revoked", o.Revoked)
	setBool("x_mitre_deprecated", o.XMitreDeprecated)
	setList("x_mitre_domains", o.XMitreDomains)
	setList("x_mitre_platforms", o.XMitrePlatforms)
	setList("x_mitre_contributors", o.XMitreContributors)
	setList("aliases", o.Aliases)
	setList("object_marking_refs", o.ObjectMarkingRefs)

	return props
}

// EmbeddingText builds the text embedded for an entity. Both name and
// description present: "name: {name}. description: {description}"; one
// present: that part alone; neither: empty string (no embedding).
func (o *Object) EmbeddingText() string {
	name := strings.TrimSpace(o.Name)
	desc := strings.TrimSpace(o.Description)
	switch {
	case name != "" && desc != "":
		return "name: " + name + ". description: " + desc
	case name != "":
		return name
	default:
		return desc
	}
}
