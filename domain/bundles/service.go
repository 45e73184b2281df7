package bundles

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/stixgraph/stixgraph/domain/stix"
	"github.com/stixgraph/stixgraph/pkg/apperror"
	"github.com/stixgraph/stixgraph/pkg/embeddings"
	"github.com/stixgraph/stixgraph/pkg/logger"
	"github.com/stixgraph/stixgraph/pkg/pgutils"
	"github.com/stixgraph/stixgraph/pkg/tracing"
)

// Syncer rebuilds the graph projection from a bundle. Satisfied by the graph
// service; declared here so ingestion does not depend on that package.
type Syncer interface {
	Sync(ctx context.Context, bundle *stix.Bundle) error
}

// backfillBatchSize bounds how many cache rows are embedded per round.
const backfillBatchSize = 100

// Service handles bundle ingestion and retrieval. Writes go to the document
// store synchronously, entity vectors included; graph sync and archival run
// as detached best-effort hooks afterwards.
type Service struct {
	repo     *Repository
	embedder *embeddings.Service
	archiver *Archiver
	syncer   Syncer
	log      *slog.Logger
}

// NewService creates a new bundles service
func NewService(
	repo *Repository,
	embedder *embeddings.Service,
	archiver *Archiver,
	syncer Syncer,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		embedder: embedder,
		archiver: archiver,
		syncer:   syncer,
		log:      log.With(logger.Scope("bundles.svc")),
	}
}

// GetCurrentVersion returns the version the pointer currently names
func (s *Service) GetCurrentVersion(ctx context.Context) (string, error) {
	version, err := s.repo.GetCurrentVersion(ctx)
	if err != nil {
		return "", err
	}
	if version == "" {
		return "", apperror.ErrNotFound.WithMessage("No bundle data loaded yet")
	}
	return version, nil
}

// GetContent returns a stored bundle document with its metadata. An empty
// version resolves to the current one.
func (s *Service) GetContent(ctx context.Context, version string) (*ContentResponse, error) {
	var (
		bundle *Bundle
		err    error
	)
	if version == "" {
		bundle, err = s.repo.GetCurrentBundle(ctx)
	} else {
		bundle, err = s.repo.GetBundle(ctx, version)
	}
	if err != nil {
		return nil, err
	}
	if bundle == nil {
		if version == "" {
			return nil, apperror.ErrNotFound.WithMessage(
				"Bundle data not found. Load data first via PUT /api/bundles or PUT /api/bundles/{version}.",
			)
		}
		return nil, apperror.ErrVersionNotFound.WithMessage(
			fmt.Sprintf("Bundle version '%s' not found", version),
		)
	}

	return &ContentResponse{
		Version:  bundle.Version,
		Content:  bundle.Document,
		Metadata: bundle.Meta(),
	}, nil
}

// ListVersions returns every stored version with its metadata, newest first
func (s *Service) ListVersions(ctx context.Context) (*VersionsResponse, error) {
	rows, err := s.repo.ListVersions(ctx)
	if err != nil {
		return nil, err
	}

	resp := &VersionsResponse{Versions: make([]VersionInfo, 0, len(rows))}
	for i := range rows {
		resp.Versions = append(resp.Versions, VersionInfo{
			Version:  rows[i].Version,
			Metadata: rows[i].Meta(),
		})
	}
	return resp, nil
}

// Create ingests a new bundle. The version key is taken from the bundle's
// spec_version; an already stored version is rejected with a conflict.
func (s *Service) Create(ctx context.Context, raw []byte) (*PutResponse, error) {
	bundle, err := stix.ParseBundle(raw)
	if err != nil {
		return nil, apperror.ErrValidation.WithMessage(err.Error())
	}

	version := bundle.SpecVersion
	row, entities := buildRows(version, raw, bundle, time.Now())
	s.embedEntities(ctx, entities)
	if err := s.repo.CreateBundle(ctx, row, entities); err != nil {
		return nil, err
	}
	IngestsTotal.WithLabelValues("created").Inc()

	s.afterWrite(version, raw, bundle)

	return &PutResponse{
		Status:  PutStatusCreated,
		Version: version,
		Message: "Bundle created successfully.",
	}, nil
}

// Replace stores a bundle under the given version, overwriting any previous
// document for it. The current-version pointer moves to this version even
// when it previously named a different one.
func (s *Service) Replace(ctx context.Context, version string, raw []byte) (*PutResponse, error) {
	bundle, err := stix.ParseBundle(raw)
	if err != nil {
		return nil, apperror.ErrValidation.WithMessage(err.Error())
	}

	row, entities := buildRows(version, raw, bundle, time.Now())
	s.embedEntities(ctx, entities)
	if err := s.repo.ReplaceBundle(ctx, row, entities); err != nil {
		return nil, err
	}
	IngestsTotal.WithLabelValues("updated").Inc()

	s.afterWrite(version, raw, bundle)

	return &PutResponse{
		Status:  PutStatusUpdated,
		Version: version,
	}, nil
}

// afterWrite kicks off the post-write hooks: graph sync and the archive
// upload. Both run detached from the request context and only log on
// failure; the document write already succeeded.
func (s *Service) afterWrite(version string, raw []byte, bundle *stix.Bundle) {
	go func() {
		ctx := context.Background()
		if err := s.syncer.Sync(ctx, bundle); err != nil {
			s.log.Error("graph sync failed after write",
				slog.String("version", version),
				logger.Error(err),
			)
		}
	}()

	go s.archiver.Archive(context.Background(), version, raw)
}

// embedEntities attaches a vector to every cache row with embeddable text.
// A gateway failure logs and leaves the rows vector-less so the write can
// proceed; the scheduler's backfill task heals them later.
func (s *Service) embedEntities(ctx context.Context, entities []Entity) {
	if !s.embedder.IsEnabled() || len(entities) == 0 {
		return
	}

	texts := make([]string, len(entities))
	for i := range entities {
		obj := stix.Object{Name: entities[i].Name, Description: entities[i].Description}
		texts[i] = obj.EmbeddingText()
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		s.log.Warn("entity embedding failed, storing without vectors",
			slog.Int("entities", len(entities)),
			logger.Error(err),
		)
		return
	}

	for i := range entities {
		if i < len(vectors) && len(vectors[i]) > 0 {
			v := pgutils.FormatVector(vectors[i])
			entities[i].Embedding = &v
		}
	}
}

// BackfillEmbeddings embeds cache rows that have text but no vector yet,
// in batches. Returns the number of rows updated. Run periodically by the
// scheduler so ingests that degraded while the gateway was down heal on
// their own.
func (s *Service) BackfillEmbeddings(ctx context.Context) (int, error) {
	if !s.embedder.IsEnabled() {
		return 0, nil
	}

	ctx, span := tracing.Start(ctx, "bundles.embedding_backfill")
	defer span.End()

	total := 0
	defer func() {
		span.SetAttributes(attribute.Int("stixgraph.backfill.updated", total))
	}()

	for {
		entities, err := s.repo.EntitiesMissingEmbedding(ctx, backfillBatchSize)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return total, err
		}
		if len(entities) == 0 {
			return total, nil
		}

		texts := make([]string, len(entities))
		for i := range entities {
			obj := stix.Object{Name: entities[i].Name, Description: entities[i].Description}
			texts[i] = obj.EmbeddingText()
		}

		vectors, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return total, err
		}

		updated := 0
		for i := range entities {
			if i >= len(vectors) || len(vectors[i]) == 0 {
				continue
			}
			if err := s.repo.UpdateEntityEmbedding(ctx, entities[i].ID, vectors[i]); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return total, err
			}
			updated++
		}
		total += updated

		// Rows the provider returned nothing for would be reselected
		// forever; stop once a round makes no progress.
		if updated == 0 {
			return total, nil
		}
		if len(entities) < backfillBatchSize {
			return total, nil
		}
	}
}

// buildRows derives the document row and the latest-entities cache rows for
// one ingested bundle
func buildRows(version string, raw []byte, bundle *stix.Bundle, now time.Time) (*Bundle, []Entity) {
	meta := stix.NewVersionMeta(version, len(raw), now)

	row := &Bundle{
		Version:      version,
		Document:     json.RawMessage(raw),
		LastModified: meta.LastModified,
		SizeBytes:    int64(meta.SizeBytes),
		ContentType:  meta.ContentType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	entities := make([]Entity, 0, len(bundle.Objects))
	for i := range bundle.Objects {
		obj := &bundle.Objects[i]
		entities = append(entities, Entity{
			ID:          obj.ID,
			Type:        obj.Type,
			Name:        obj.Name,
			Description: obj.Description,
			ShortName:   obj.XMitreShortname,
			Document:    obj.Raw,
		})
	}

	return row, entities
}
