package bundles

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/stixgraph/stixgraph/internal/storage"
	"github.com/stixgraph/stixgraph/pkg/logger"
)

// Archiver copies each ingested bundle to object storage as a raw JSON
// archive. Archival is best effort: failures are logged and never affect
// the write that triggered them.
type Archiver struct {
	storage *storage.Service
	log     *slog.Logger
}

// NewArchiver creates a new bundle archiver
func NewArchiver(storageSvc *storage.Service, log *slog.Logger) *Archiver {
	return &Archiver{
		storage: storageSvc,
		log:     log.With(logger.Scope("bundles.archiver")),
	}
}

// Archive uploads the raw bundle document under a key derived from its
// version. No-op when object storage is not configured.
func (a *Archiver) Archive(ctx context.Context, version string, raw []byte) {
	if !a.storage.Enabled() {
		return
	}

	key := storage.ArchiveKey(version)
	result, err := a.storage.Upload(ctx, key, bytes.NewReader(raw), int64(len(raw)), storage.UploadOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"version": version},
	})
	if err != nil {
		a.log.Error("bundle archive upload failed",
			slog.String("version", version),
			slog.String("key", key),
			logger.Error(err),
		)
		return
	}

	a.log.Info("bundle archived",
		slog.String("version", version),
		slog.String("key", result.Key),
		slog.Int64("size", result.Size),
	)
}
