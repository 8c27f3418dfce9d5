package repository

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/constants"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
)

// Keeps multi-row inserts under SQLite's bound-parameter limit.
const chunkInsertBatch = 500

type ChunkRepository interface {
	// ReplaceChunks swaps the stored chunks of a document atomically.
	ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []entity.Chunk) error
	// ListChunks returns a tenant's chunks for a document ordered by index.
	ListChunks(ctx context.Context, documentID, tenantID uuid.UUID) ([]entity.Chunk, error)
}

type chunkRepo struct {
	db  *DB
	log *slog.Logger
}

func NewChunkRepository(db *DB, log *slog.Logger) ChunkRepository {
	return &chunkRepo{db: db, log: log}
}

func (r *chunkRepo) ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []entity.Chunk) error {
	err := r.db.withTx(ctx, func(tx dialect.Tx) error {
		q, args := r.db.builder().Delete("document_chunks").
			Where(entsql.EQ("document_id", documentID)).
			Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			return err
		}
		for start := 0; start < len(chunks); start += chunkInsertBatch {
			end := min(start+chunkInsertBatch, len(chunks))
			ins := r.db.builder().Insert("document_chunks").Columns(
				"document_id", "tenant_id", "chunk_index", "text", "page_start", "page_end", "estimated_tokens", "section_type")
			for _, c := range chunks[start:end] {
				section := c.SectionType
				if section == "" {
					section = constants.SectionNone
				}
				ins.Values(documentID, c.TenantID, c.Index, c.Text, c.PageStart, c.PageEnd, c.EstimatedTokens, string(section))
			}
			q, args = ins.Query()
			if err := tx.Exec(ctx, q, args, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.Error("replace chunks failed", "document_id", documentID, "err", err)
		return fmt.Errorf("%w: replace chunks: %v", common.ErrDatabase, err)
	}
	r.log.Info("chunks stored", "document_id", documentID, "count", len(chunks))
	return nil
}

func (r *chunkRepo) ListChunks(ctx context.Context, documentID, tenantID uuid.UUID) ([]entity.Chunk, error) {
	q, args := r.db.builder().
		Select("document_id", "tenant_id", "chunk_index", "text", "page_start", "page_end", "estimated_tokens", "section_type").
		From(entsql.Table("document_chunks")).
		Where(entsql.And(entsql.EQ("document_id", documentID), entsql.EQ("tenant_id", tenantID))).
		OrderBy("chunk_index").
		Query()

	out := []entity.Chunk{}
	err := query(ctx, r.db.drv, q, args, func(rows *entsql.Rows) error {
		var (
			c       entity.Chunk
			section string
		)
		if err := rows.Scan(&c.DocumentID, &c.TenantID, &c.Index, &c.Text, &c.PageStart, &c.PageEnd, &c.EstimatedTokens, &section); err != nil {
			return err
		}
		c.SectionType = constants.SectionType(section)
		out = append(out, c)
		return nil
	})
	if err != nil {
		r.log.Error("list chunks failed", "document_id", documentID, "err", err)
		return nil, fmt.Errorf("%w: list chunks: %v", common.ErrDatabase, err)
	}
	return out, nil
}
