package bundles

import (
	"encoding/json"

	"github.com/stixgraph/stixgraph/domain/stix"
)

// VersionResponse is the body of GET /api/bundles/version
type VersionResponse struct {
	Version string `json:"version"`
}

// ContentResponse is the body of GET /api/bundles: the stored document
// embedded verbatim plus its metadata.
type ContentResponse struct {
	Version  string           `json:"version"`
	Content  json.RawMessage  `json:"content"`
	Metadata stix.VersionMeta `json:"metadata"`
}

// VersionInfo is a single entry of the versions listing
type VersionInfo struct {
	Version  string           `json:"version"`
	Metadata stix.VersionMeta `json:"metadata"`
}

// VersionsResponse is the body of GET /api/bundles/versions, newest first
type VersionsResponse struct {
	Versions []VersionInfo `json:"versions"`
}

// PutResponse is the body of PUT /api/bundles (create) and
// PUT /api/bundles/:version (replace)
type PutResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Message string `json:"message,omitempty"`
}

// Put statuses
const (
	PutStatusCreated = "created"
	PutStatusUpdated = "updated"
)
