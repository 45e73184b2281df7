package bundles

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stixgraph/stixgraph/domain/stix"
	"github.com/stixgraph/stixgraph/pkg/apperror"
	"github.com/stixgraph/stixgraph/pkg/embeddings"
)

const testBundle = `{
	"type": "bundle",
	"id": "bundle--9c1d",
	"spec_version": "2.1",
	"objects": [
		{
			"type": "attack-pattern",
			"id": "attack-pattern--0001",
			"name": "Phishing",
			"description": "Adversaries may send phishing messages.",
			"x_mitre_shortname": "phishing"
		},
		{
			"type": "course-of-action",
			"id": "course-of-action--0002",
			"name": "User Training"
		},
		{
			"type": "relationship",
			"id": "relationship--0003",
			"relationship_type": "mitigates",
			"source_ref": "course-of-action--0002",
			"target_ref": "attack-pattern--0001"
		}
	]
}`

func newTestService() *Service {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return &Service{
		embedder: embeddings.NewNoopService(log),
		log:      log,
	}
}

func TestBuildRows(t *testing.T) {
	raw := []byte(testBundle)
	bundle, err := stix.ParseBundle(raw)
	require.NoError(t, err)

	now := time.Date(2024, 4, 23, 12, 0, 0, 0, time.UTC)
	row, entities := buildRows("2.1", raw, bundle, now)

	assert.Equal(t, "2.1", row.Version)
	assert.Equal(t, json.RawMessage(raw), row.Document)
	assert.Equal(t, now, row.LastModified)
	assert.Equal(t, int64(len(raw)), row.SizeBytes)
	assert.Equal(t, "application/json", row.ContentType)

	// Every object lands in the cache, relationship rows included.
	require.Len(t, entities, 3)
	assert.Equal(t, "attack-pattern--0001", entities[0].ID)
	assert.Equal(t, "attack-pattern", entities[0].Type)
	assert.Equal(t, "Phishing", entities[0].Name)
	assert.Equal(t, "phishing", entities[0].ShortName)
	assert.Equal(t, "relationship", entities[2].Type)

	// Cached documents are the objects' original bytes.
	var cached map[string]any
	require.NoError(t, json.Unmarshal(entities[0].Document, &cached))
	assert.Equal(t, "Phishing", cached["name"])
}

func TestBuildRows_MetadataFromRawSize(t *testing.T) {
	raw := []byte(`{"type":"bundle","spec_version":"15.1","objects":[]}`)
	bundle, err := stix.ParseBundle(raw)
	require.NoError(t, err)

	row, entities := buildRows("15.1", raw, bundle, time.Now())

	assert.Equal(t, int64(len(raw)), row.SizeBytes)
	assert.Empty(t, entities)
}

func TestBundleMeta(t *testing.T) {
	modified := time.Date(2024, 4, 23, 12, 0, 0, 0, time.UTC)
	row := &Bundle{
		Version:      "2.1",
		LastModified: modified,
		SizeBytes:    1024,
		ContentType:  "application/json",
	}

	meta := row.Meta()
	assert.Equal(t, "2.1", meta.Version)
	assert.Equal(t, modified, meta.LastModified)
	assert.Equal(t, 1024, meta.SizeBytes)
	assert.Equal(t, "application/json", meta.ContentType)
}

func TestEmbedEntities_DisabledGateway(t *testing.T) {
	svc := newTestService()
	entities := []Entity{
		{ID: "attack-pattern--0001", Name: "Phishing", Description: "Sends messages."},
	}

	// No provider configured: rows keep a NULL vector and the write
	// proceeds; the backfill task picks them up if a provider appears.
	svc.embedEntities(t.Context(), entities)
	assert.Nil(t, entities[0].Embedding)
}

func TestCreate_InvalidJSON(t *testing.T) {
	svc := newTestService()

	_, err := svc.Create(t.Context(), []byte(`{not json`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestCreate_MissingSpecVersion(t *testing.T) {
	svc := newTestService()

	_, err := svc.Create(t.Context(), []byte(`{"type":"bundle","objects":[]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Contains(t, err.Error(), "spec_version")
}

func TestReplace_InvalidJSON(t *testing.T) {
	svc := newTestService()

	_, err := svc.Replace(t.Context(), "2.1", []byte(`[]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestPutResponse_MessageOmittedWhenEmpty(t *testing.T) {
	created, err := json.Marshal(PutResponse{
		Status:  PutStatusCreated,
		Version: "2.1",
		Message: "Bundle created successfully.",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"created","version":"2.1","message":"Bundle created successfully."}`, string(created))

	updated, err := json.Marshal(PutResponse{
		Status:  PutStatusUpdated,
		Version: "2.1",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"updated","version":"2.1"}`, string(updated))
}

func TestHandlerReadBody(t *testing.T) {
	h := &Handler{log: slog.New(slog.NewTextHandler(os.Stdout, nil))}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid body", body: `{"type":"bundle"}`, wantErr: false},
		{name: "empty body", body: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPut, "/api/bundles", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			raw, err := h.readBody(c)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperror.ErrBadRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(raw))
		})
	}
}
