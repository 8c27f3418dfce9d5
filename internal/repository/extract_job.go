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

// JobOutcome is what a finished structuring run records on its audit row.
type JobOutcome struct {
	PolicyID    *uuid.UUID
	Confidence  *float64
	NeedsReview bool
}

type ExtractJobRepository interface {
	Start(ctx context.Context, documentID, tenantID uuid.UUID) (*entity.ExtractJob, error)
	UpdateState(ctx context.Context, jobID uuid.UUID, state constants.PipelineState) error
	FinishSuccess(ctx context.Context, jobID uuid.UUID, outcome JobOutcome) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, state constants.PipelineState, message string) error
	Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	return &extractJobRepo{db: db, log: log}
}

var extractJobColumns = []string{
	"id", "document_id", "tenant_id", "policy_id", "status", "state",
	"started_at", "finished_at", "error_message", "confidence", "needs_review",
}

func (r *extractJobRepo) Start(ctx context.Context, documentID, tenantID uuid.UUID) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:         uuid.New(),
		DocumentID: documentID,
		TenantID:   tenantID,
		Status:     string(constants.JobStatusRunning),
		State:      string(constants.StateNotStarted),
		StartedAt:  time.Now().UTC(),
	}
	q, args := r.db.builder().Insert("extract_job").
		Columns("id", "document_id", "tenant_id", "status", "state", "started_at", "needs_review").
		Values(job.ID, documentID, tenantID, job.Status, job.State, job.StartedAt, false).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("extract_job start failed", "document_id", documentID, "err", err)
		return nil, fmt.Errorf("%w: start extract job: %v", common.ErrDatabase, err)
	}
	r.log.Info("extract_job started", "job_id", job.ID, "document_id", documentID)
	return job, nil
}

func (r *extractJobRepo) UpdateState(ctx context.Context, jobID uuid.UUID, state constants.PipelineState) error {
	q, args := r.db.builder().Update("extract_job").
		Set("state", string(state)).
		Where(entsql.EQ("id", jobID)).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("extract_job state update failed", "job_id", jobID, "state", state, "err", err)
		return fmt.Errorf("%w: update extract job: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, outcome JobOutcome) error {
	q, args := r.db.builder().Update("extract_job").
		Set("status", string(constants.JobStatusCompleted)).
		Set("state", string(constants.StateCompleted)).
		Set("finished_at", time.Now().UTC()).
		Set("policy_id", nullable(outcome.PolicyID)).
		Set("confidence", nullable(outcome.Confidence)).
		Set("needs_review", outcome.NeedsReview).
		Where(entsql.EQ("id", jobID)).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("extract_job finish(OK) failed", "job_id", jobID, "err", err)
		return fmt.Errorf("%w: finish extract job: %v", common.ErrDatabase, err)
	}
	r.log.Info("extract_job finished (COMPLETED)", "job_id", jobID, "policy_id", outcome.PolicyID)
	return nil
}

// FinishFailure records the failure and the state the run failed in.
func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, state constants.PipelineState, message string) error {
	q, args := r.db.builder().Update("extract_job").
		Set("status", string(constants.JobStatusFailed)).
		Set("state", string(state)).
		Set("finished_at", time.Now().UTC()).
		Set("error_message", message).
		Where(entsql.EQ("id", jobID)).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return fmt.Errorf("%w: fail extract job: %v", common.ErrDatabase, err)
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "state", state, "error", message)
	return nil
}

func (r *extractJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	jobs, err := r.list(ctx, entsql.EQ("id", jobID))
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("extract job %s: %w", jobID, common.ErrNotFound)
	}
	return &jobs[0], nil
}

func (r *extractJobRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]entity.ExtractJob, error) {
	return r.list(ctx, entsql.EQ("document_id", documentID))
}

func (r *extractJobRepo) list(ctx context.Context, pred *entsql.Predicate) ([]entity.ExtractJob, error) {
	q, args := r.db.builder().Select(extractJobColumns...).
		From(entsql.Table("extract_job")).
		Where(pred).
		OrderBy("started_at").
		Query()

	out := []entity.ExtractJob{}
	err := query(ctx, r.db.drv, q, args, func(rows *entsql.Rows) error {
		var (
			j                     entity.ExtractJob
			policyID              uuid.NullUUID
			errMsg                sql.NullString
			confidence            sql.NullFloat64
			startedAt, finishedAt any
		)
		if err := rows.Scan(&j.ID, &j.DocumentID, &j.TenantID, &policyID, &j.Status, &j.State,
			&startedAt, &finishedAt, &errMsg, &confidence, &j.NeedsReview); err != nil {
			return err
		}
		if policyID.Valid {
			j.PolicyID = &policyID.UUID
		}
		j.ErrorMessage, j.Confidence = stringPtr(errMsg), floatPtr(confidence)

		var err error
		if j.StartedAt, err = asTime(startedAt); err != nil {
			return err
		}
		if j.FinishedAt, err = nullTime(finishedAt); err != nil {
			return err
		}
		out = append(out, j)
		return nil
	})
	if err != nil {
		r.log.Error("extract_job list failed", "err", err)
		return nil, fmt.Errorf("%w: list extract jobs: %v", common.ErrDatabase, err)
	}
	return out, nil
}
