package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/constants"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
)

// TextResult is the text-stage outcome recorded on a document.
type TextResult struct {
	PageCount        int
	QualityScore     float64
	AppearsScanned   bool
	ScannedPageCount int
	IsHybrid         bool
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) (*entity.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, errMsg *string) error
	UpdateTextResult(ctx context.Context, id uuid.UUID, res TextResult) error
}

type documentRepo struct {
	db  *DB
	log *slog.Logger
}

func NewDocumentRepository(db *DB, log *slog.Logger) DocumentRepository {
	return &documentRepo{db: db, log: log}
}

var documentColumns = []string{
	"id", "tenant_id", "storage_path", "filename", "status", "page_count", "quality_score",
	"appears_scanned", "scanned_page_count", "is_hybrid", "error_message", "created_at", "updated_at",
}

func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	out := *doc
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if out.Status == "" {
		out.Status = string(constants.DocumentStatusUploaded)
	}
	now := time.Now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now

	q, args := r.db.builder().Insert("documents").
		Columns(documentColumns...).
		Values(out.ID, out.TenantID, out.StoragePath, out.Filename, out.Status, out.PageCount, out.QualityScore,
			out.AppearsScanned, out.ScannedPageCount, out.IsHybrid, nullable(out.ErrorMessage), now, now).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("document create failed", "document_id", out.ID, "err", err)
		return nil, fmt.Errorf("%w: create document: %v", common.ErrDatabase, err)
	}
	r.log.Info("document created", "document_id", out.ID, "tenant_id", out.TenantID, "filename", out.Filename)
	return &out, nil
}

func (r *documentRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	q, args := r.db.builder().Select(documentColumns...).
		From(entsql.Table("documents")).
		Where(entsql.EQ("id", id)).
		Query()

	var found *entity.Document
	err := query(ctx, r.db.drv, q, args, func(rows *entsql.Rows) error {
		var (
			d                    entity.Document
			errMsg               sql.NullString
			createdAt, updatedAt any
		)
		if err := rows.Scan(&d.ID, &d.TenantID, &d.StoragePath, &d.Filename, &d.Status, &d.PageCount, &d.QualityScore,
			&d.AppearsScanned, &d.ScannedPageCount, &d.IsHybrid, &errMsg, &createdAt, &updatedAt); err != nil {
			return err
		}
		d.ErrorMessage = stringPtr(errMsg)
		var err error
		if d.CreatedAt, err = asTime(createdAt); err != nil {
			return err
		}
		if d.UpdatedAt, err = asTime(updatedAt); err != nil {
			return err
		}
		found = &d
		return nil
	})
	if err != nil {
		r.log.Error("document get failed", "document_id", id, "err", err)
		return nil, fmt.Errorf("%w: get document: %v", common.ErrDatabase, err)
	}
	if found == nil {
		return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	return found, nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, errMsg *string) error {
	q, args := r.db.builder().Update("documents").
		Set("status", string(status)).
		Set("error_message", nullable(errMsg)).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	return r.execOne(ctx, id, "update status", q, args)
}

func (r *documentRepo) UpdateTextResult(ctx context.Context, id uuid.UUID, res TextResult) error {
	q, args := r.db.builder().Update("documents").
		Set("page_count", res.PageCount).
		Set("quality_score", res.QualityScore).
		Set("appears_scanned", res.AppearsScanned).
		Set("scanned_page_count", res.ScannedPageCount).
		Set("is_hybrid", res.IsHybrid).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	return r.execOne(ctx, id, "update text result", q, args)
}

func (r *documentRepo) execOne(ctx context.Context, id uuid.UUID, op, q string, args []any) error {
	var res sql.Result
	if err := r.db.drv.Exec(ctx, q, args, &res); err != nil {
		r.log.Error("document "+op+" failed", "document_id", id, "err", err)
		return fmt.Errorf("%w: %s: %v", common.ErrDatabase, op, err)
	}
	if n, err := affected(res); err == nil && n == 0 {
		return fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	return nil
}
