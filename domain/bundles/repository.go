package bundles

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/stixgraph/stixgraph/internal/database"
	"github.com/stixgraph/stixgraph/pkg/apperror"
	"github.com/stixgraph/stixgraph/pkg/logger"
	"github.com/stixgraph/stixgraph/pkg/pgutils"
)

// Repository handles database operations for bundle documents, the
// current-version pointer, and the latest-entities cache.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new bundles repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("bundles.repo")),
	}
}

// GetCurrentVersion returns the version the pointer row names, or "" when no
// bundle has been stored yet.
func (r *Repository) GetCurrentVersion(ctx context.Context) (string, error) {
	var pointer CurrentVersion
	err := r.db.NewSelect().
		Model(&pointer).
		Where("id = ?", CurrentVersionID).
		Scan(ctx)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		r.log.Error("failed to get current version", logger.Error(err))
		return "", apperror.ErrStoreUnavailable.WithInternal(err)
	}

	return pointer.Version, nil
}

// GetBundle retrieves a stored bundle by version, or nil when absent
func (r *Repository) GetBundle(ctx context.Context, version string) (*Bundle, error) {
	var bundle Bundle
	err := r.db.NewSelect().
		Model(&bundle).
		Where("version = ?", version).
		Scan(ctx)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("failed to get bundle",
			slog.String("version", version),
			logger.Error(err),
		)
		return nil, apperror.ErrStoreUnavailable.WithInternal(err)
	}

	return &bundle, nil
}

// GetCurrentBundle retrieves the bundle the pointer names, or nil when no
// bundle has been stored yet
func (r *Repository) GetCurrentBundle(ctx context.Context) (*Bundle, error) {
	version, err := r.GetCurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	if version == "" {
		return nil, nil
	}
	return r.GetBundle(ctx, version)
}

// ListVersions returns all stored bundles ordered newest first by
// last_modified
func (r *Repository) ListVersions(ctx context.Context) ([]Bundle, error) {
	var rows []Bundle
	err := r.db.NewSelect().
		Model(&rows).
		Column("version", "last_modified", "size_bytes", "content_type").
		Order("last_modified DESC", "version DESC").
		Scan(ctx)

	if err != nil {
		r.log.Error("failed to list versions", logger.Error(err))
		return nil, apperror.ErrStoreUnavailable.WithInternal(err)
	}

	return rows, nil
}

// Exists reports whether a bundle is stored under the given version
func (r *Repository) Exists(ctx context.Context, version string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*Bundle)(nil)).
		Where("version = ?", version).
		Exists(ctx)

	if err != nil {
		r.log.Error("failed to check version existence",
			slog.String("version", version),
			logger.Error(err),
		)
		return false, apperror.ErrStoreUnavailable.WithInternal(err)
	}

	return exists, nil
}

// CreateBundle inserts a new bundle document and, in the same transaction,
// rebuilds the latest-entities cache and advances the current-version
// pointer. A version collision yields ErrDuplicateVersion and leaves every
// table untouched.
func (r *Repository) CreateBundle(ctx context.Context, bundle *Bundle, entities []Entity) error {
	tx, err := database.BeginSafeTx(ctx, r.db)
	if err != nil {
		return apperror.ErrStoreUnavailable.WithInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.NewInsert().Model(bundle).Exec(ctx); err != nil {
		if pgutils.IsUniqueViolation(err) {
			return apperror.ErrDuplicateVersion.WithMessage(
				fmt.Sprintf("Bundle version '%s' already exists", bundle.Version),
			)
		}
		r.log.Error("failed to insert bundle",
			slog.String("version", bundle.Version),
			logger.Error(err),
		)
		return apperror.ErrStoreUnavailable.WithInternal(err)
	}

	if err := r.replaceEntityCacheTx(ctx, tx, entities); err != nil {
		return err
	}
	if err := r.setCurrentVersionTx(ctx, tx, bundle.Version); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.ErrStoreUnavailable.WithInternal(err)
	}

	r.log.Info("bundle created",
		slog.String("version", bundle.Version),
		slog.Int("entities", len(entities)),
	)
	return nil
}

// ReplaceBundle upserts a bundle document under the given version and, in
// the same transaction, rebuilds the latest-entities cache and advances the
// pointer. The pointer moves to this version even when it previously named
// a different one.
func (r *Repository) ReplaceBundle(ctx context.Context, bundle *Bundle, entities []Entity) error {
	tx, err := database.BeginSafeTx(ctx, r.db)
	if err != nil {
		return apperror.ErrStoreUnavailable.WithInternal(err)
	}
	defer tx.Rollback()

	_, err = tx.NewInsert().
		Model(bundle).
		On("CONFLICT (version) DO UPDATE").
		Set("document = EXCLUDED.document").
		Set("last_modified = EXCLUDED.last_modified").
		Set("size_bytes = EXCLUDED.size_bytes").
		Set("content_type = EXCLUDED.content_type").
		Set("updated_at = now()").
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to upsert bundle",
			slog.String("version", bundle.Version),
			logger.Error(err),
		)
		return apperror.ErrStoreUnavailable.WithInternal(err)
	}

	if err := r.replaceEntityCacheTx(ctx, tx, entities); err != nil {
		return err
	}
	if err := r.setCurrentVersionTx(ctx, tx, bundle.Version); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.ErrStoreUnavailable.WithInternal(err)
	}

	r.log.Info("bundle replaced",
		slog.String("version", bundle.Version),
		slog.Int("entities", len(entities)),
	)
	return nil
}

// replaceEntityCacheTx clears the latest-entities cache and inserts the
// given entities. Rows whose Embedding is nil land with a NULL vector.
func (r *Repository) replaceEntityCacheTx(ctx context.Context, tx *database.SafeTx, entities []Entity) error {
	if _, err := tx.NewDelete().
		Model((*Entity)(nil)).
		Where("TRUE").
		Exec(ctx); err != nil {
		r.log.Error("failed to clear entity cache", logger.Error(err))
		return apperror.ErrStoreUnavailable.WithInternal(err)
	}

	if len(entities) == 0 {
		return nil
	}

	if _, err := tx.NewInsert().
		Model(&entities).
		Column("id", "type", "name", "description", "short_name", "document", "embedding").
		Exec(ctx); err != nil {
		r.log.Error("failed to insert entity cache",
			slog.Int("entities", len(entities)),
			logger.Error(err),
		)
		return apperror.ErrStoreUnavailable.WithInternal(err)
	}

	return nil
}

// setCurrentVersionTx points the single pointer row at the given version
func (r *Repository) setCurrentVersionTx(ctx context.Context, tx *database.SafeTx, version string) error {
	pointer := &CurrentVersion{
		ID:        CurrentVersionID,
		Version:   version,
		UpdatedAt: time.Now(),
	}

	_, err := tx.NewInsert().
		Model(pointer).
		On("CONFLICT (id) DO UPDATE").
		Set("version = EXCLUDED.version").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to set current version",
			slog.String("version", version),
			logger.Error(err),
		)
		return apperror.ErrStoreUnavailable.WithInternal(err)
	}

	return nil
}

// EntitiesMissingEmbedding returns cached entities that have embeddable text
// but no stored vector yet, oldest first
func (r *Repository) EntitiesMissingEmbedding(ctx context.Context, limit int) ([]Entity, error) {
	var entities []Entity
	err := r.db.NewSelect().
		Model(&entities).
		Column("id", "type", "name", "description").
		Where("embedding IS NULL").
		Where("(name <> '' OR description <> '')").
		Order("created_at ASC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		r.log.Error("failed to list entities missing embeddings", logger.Error(err))
		return nil, apperror.ErrStoreUnavailable.WithInternal(err)
	}

	return entities, nil
}

// UpdateEntityEmbedding stores the embedding vector for a cached entity
func (r *Repository) UpdateEntityEmbedding(ctx context.Context, id string, embedding []float32) error {
	if len(embedding) == 0 {
		return nil
	}

	vectorStr := pgutils.FormatVector(embedding)
	_, err := r.db.NewUpdate().
		Model((*Entity)(nil)).
		Set("embedding = ?::vector", vectorStr).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to update entity embedding",
			slog.String("id", id),
			logger.Error(err),
		)
		return apperror.ErrStoreUnavailable.WithInternal(err)
	}

	return nil
}
