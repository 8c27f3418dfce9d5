package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/constants"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
	"github.com/joseph-ayodele/policy-structurer/internal/repository"
	"github.com/joseph-ayodele/policy-structurer/internal/storage"
)

// FSIngestor copies local files into Storage and registers document rows.
// Objects are content-addressed per tenant, so re-ingesting the same bytes
// reuses the stored object.
type FSIngestor struct {
	Docs    repository.DocumentRepository
	Storage storage.Storage
	log     *slog.Logger
}

func NewFSIngestor(docs repository.DocumentRepository, st storage.Storage, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Docs: docs, Storage: st, log: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, tenantID uuid.UUID, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !constants.AllowedExt(ext) {
		i.log.Warn("ingest.unsupported_extension", "path", abs, "ext", ext)
		return out, fmt.Errorf("%w: unsupported or missing extension %q", common.ErrInvalidInput, ext)
	}

	sum, err := hashFile(abs)
	if err != nil {
		i.log.Error("ingest.hash_failed", "path", abs, "err", err)
		return out, err
	}
	out.HashHex = hex.EncodeToString(sum)
	out.StoragePath = fmt.Sprintf("%s/%s.%s", tenantID, out.HashHex, ext)

	rc, err := i.Storage.Download(ctx, out.StoragePath)
	switch {
	case err == nil:
		_ = rc.Close()
		out.Deduplicated = true
	case errors.Is(err, common.ErrNotFound):
		if err := i.upload(ctx, abs, out.StoragePath); err != nil {
			i.log.Error("ingest.upload_failed", "path", abs, "err", err)
			return out, err
		}
	default:
		return out, err
	}

	doc, err := i.Docs.Create(ctx, &entity.Document{
		TenantID:    tenantID,
		StoragePath: out.StoragePath,
		Filename:    filepath.Base(abs),
	})
	if err != nil {
		return out, err
	}
	out.DocumentID = doc.ID.String()
	i.log.Info("ingest.ok", "document_id", doc.ID, "tenant_id", tenantID, "path", abs, "deduplicated", out.Deduplicated)
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(
	ctx context.Context,
	tenantID uuid.UUID,
	root string,
	skipHidden bool,
) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, fmt.Errorf("%w: root path is required", common.ErrInvalidInput)
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !constants.AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, tenantID, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func (i *FSIngestor) upload(ctx context.Context, src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return i.Storage.Upload(ctx, dst, f)
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
