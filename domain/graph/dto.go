package graph

// Direction values for adjacency entries, relative to the center node.
const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

// AdjacentEntry is one neighbor of the center node together with the
// relationship that connects them
type AdjacentEntry struct {
	Relationship map[string]any `json:"relationship"`
	Direction    string         `json:"direction"`
	Node         map[string]any `json:"node"`
}

// Adjacency is the center node and its one-hop neighborhood
type Adjacency struct {
	Node     map[string]any  `json:"node"`
	Adjacent []AdjacentEntry `json:"adjacent"`
}

// EdgeTriple is one directed edge with both endpoint nodes, as stored
type EdgeTriple struct {
	Source       map[string]any `json:"source"`
	Relationship map[string]any `json:"relationship"`
	Target       map[string]any `json:"target"`
}

// EdgesResponse wraps the edge list for the visualization feed
type EdgesResponse struct {
	Edges []EdgeTriple `json:"edges"`
}

// RebuildStats reports what one projection rebuild wrote
type RebuildStats struct {
	Nodes        int `json:"nodes"`
	Edges        int `json:"edges"`
	SkippedEdges int `json:"skipped_edges"`
}

// SyncStats is the response of a manual resync
type SyncStats struct {
	Version      string `json:"version"`
	Nodes        int    `json:"nodes"`
	Edges        int    `json:"edges"`
	SkippedEdges int    `json:"skipped_edges"`
	DurationMS   int64  `json:"duration_ms"`
}
