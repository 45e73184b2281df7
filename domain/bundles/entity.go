package bundles

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"

	"github.com/stixgraph/stixgraph/domain/stix"
)

// Bundle is a stored bundle document in the intel.bundles table, one row per
// version. Document holds the ingested bundle verbatim.
type Bundle struct {
	bun.BaseModel `bun:"table:intel.bundles,alias:b"`

	Version      string          `bun:"version,pk" json:"version"`
	Document     json.RawMessage `bun:"document,type:jsonb,notnull" json:"document"`
	LastModified time.Time       `bun:"last_modified,notnull" json:"last_modified"`
	SizeBytes    int64           `bun:"size_bytes,notnull" json:"size"`
	ContentType  string          `bun:"content_type,notnull,default:'application/json'" json:"type"`
	CreatedAt    time.Time       `bun:"created_at,notnull,default:now()" json:"-"`
	UpdatedAt    time.Time       `bun:"updated_at,notnull,default:now()" json:"-"`
}

// Meta returns the stored metadata view of the bundle row
func (b *Bundle) Meta() stix.VersionMeta {
	return stix.VersionMeta{
		Version:      b.Version,
		LastModified: b.LastModified,
		SizeBytes:    int(b.SizeBytes),
		ContentType:  b.ContentType,
	}
}

// CurrentVersion is the single-row pointer in intel.current_version naming
// which stored bundle is current. ID is always "current"; the table's check
// constraint keeps it that way.
type CurrentVersion struct {
	bun.BaseModel `bun:"table:intel.current_version,alias:cv"`

	ID        string    `bun:"id,pk" json:"-"`
	Version   string    `bun:"version,notnull" json:"version"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:now()" json:"-"`
}

// CurrentVersionID is the fixed primary key of the pointer row
const CurrentVersionID = "current"

// Entity is a row of the latest-entities cache in intel.entities. The cache
// always reflects the most recently written bundle: every successful write
// clears it and reinserts one row per object, embedding included when the
// gateway produced one. Rows written without a vector are picked up by the
// scheduler's backfill task.
type Entity struct {
	bun.BaseModel `bun:"table:intel.entities,alias:e"`

	ID          string          `bun:"id,pk" json:"id"`
	Type        string          `bun:"type,notnull" json:"type"`
	Name        string          `bun:"name" json:"name,omitempty"`
	Description string          `bun:"description" json:"description,omitempty"`
	ShortName   string          `bun:"short_name" json:"short_name,omitempty"`
	Document    json.RawMessage `bun:"document,type:jsonb,notnull" json:"document"`
	Embedding   *string         `bun:"embedding,type:vector(768)" json:"-"`
	CreatedAt   time.Time       `bun:"created_at,notnull,default:now()" json:"-"`
}
