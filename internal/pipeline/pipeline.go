// Package pipeline drives a document from stored PDF to persisted Policy:
// the text stage extracts and chunks, the extraction pipeline classifies,
// extracts, validates and saves.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/policy-structurer/constants"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
	"github.com/joseph-ayodele/policy-structurer/internal/events"
	"github.com/joseph-ayodele/policy-structurer/internal/extract"
	"github.com/joseph-ayodele/policy-structurer/internal/repository"
	"github.com/joseph-ayodele/policy-structurer/internal/validate"
)

const defaultCoverageConcurrency = 4

// Deps are the collaborators of the extraction pipeline.
type Deps struct {
	Documents  repository.DocumentRepository
	Chunks     repository.ChunkRepository
	Policies   repository.PolicyRepository
	Jobs       repository.ExtractJobRepository
	Classifier extract.Classifier
	Policy     extract.PolicyFieldExtractor
	Coverage   extract.CoverageExtractor
	Validator  *validate.Validator
	Publisher  events.Publisher
}

type Pipeline struct {
	deps        Deps
	concurrency int
	logger      *slog.Logger

	// OnTransition, when set, is called after every state change.
	OnTransition TransitionFunc
}

func New(deps Deps, coverageConcurrency int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if coverageConcurrency <= 0 {
		coverageConcurrency = defaultCoverageConcurrency
	}
	if deps.Validator == nil {
		deps.Validator = validate.New(validate.DefaultConfig())
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewLogPublisher(logger)
	}
	return &Pipeline{deps: deps, concurrency: coverageConcurrency, logger: logger}
}

// issuesJSON is the validation_issues column payload.
type issuesJSON struct {
	Errors   []validate.Issue `json:"errors"`
	Warnings []validate.Issue `json:"warnings"`
}

// ExtractStructuredData runs classification, policy and coverage extraction,
// validation and persistence for a document whose chunks are stored. It
// returns the new policy id, or nil with an error when the run failed.
func (p *Pipeline) ExtractStructuredData(ctx context.Context, documentID, tenantID uuid.UUID) (*uuid.UUID, error) {
	start := time.Now()
	ctx = common.WithTenantID(common.WithDocumentID(ctx, documentID.String()), tenantID.String())
	r := &run{
		documentID: documentID,
		tenantID:   tenantID,
		state:      constants.StateNotStarted,
		entered:    start,
		log:        p.logger,
		observe:    p.OnTransition,
	}

	// A document that is missing or owned by another tenant is reported as
	// not found before anything is written.
	doc, getErr := p.deps.Documents.Get(ctx, documentID)
	if errors.Is(getErr, common.ErrNotFound) || (getErr == nil && doc.TenantID != tenantID) {
		p.logger.Warn("pipeline.document_not_found", "document_id", documentID, "tenant_id", tenantID)
		return nil, fmt.Errorf("document %s: %w", documentID, common.ErrNotFound)
	}

	var jobID uuid.UUID
	if job, err := p.deps.Jobs.Start(ctx, documentID, tenantID); err == nil {
		jobID = job.ID
		r.onChange = func(s constants.PipelineState) {
			if s.Terminal() {
				return
			}
			if err := p.deps.Jobs.UpdateState(context.WithoutCancel(ctx), jobID, s); err != nil {
				p.logger.Warn("pipeline.job_state_failed", "job_id", jobID, "err", err)
			}
		}
	} else {
		p.logger.Warn("pipeline.job_start_failed", "document_id", documentID, "err", err)
	}
	if getErr != nil {
		return p.fail(ctx, r, jobID, getErr)
	}

	chunks, err := p.deps.Chunks.ListChunks(ctx, documentID, tenantID)
	if err != nil {
		return p.fail(ctx, r, jobID, err)
	}
	if len(chunks) == 0 {
		return p.fail(ctx, r, jobID, common.ErrNoChunks)
	}
	if err := p.deps.Documents.UpdateStatus(ctx, documentID, constants.DocumentStatusExtracting, nil); err != nil {
		p.logger.Warn("pipeline.status_update_failed", "document_id", documentID, "err", err)
	}

	if err := r.advance(constants.StateClassifying); err != nil {
		return p.fail(ctx, r, jobID, err)
	}
	classification := p.deps.Classifier.Classify(ctx, chunks)
	p.logger.Info("pipeline.classify.ok",
		"document_id", documentID,
		"document_type", classification.DocumentType,
		"coverages", len(classification.CoveragesDetected),
		"confidence", classification.Confidence,
	)

	if err := r.advance(constants.StateExtractingPolicy); err != nil {
		return p.fail(ctx, r, jobID, err)
	}
	policy := p.deps.Policy.ExtractPolicy(ctx, chunks)

	if err := r.advance(constants.StateExtractingCoverages); err != nil {
		return p.fail(ctx, r, jobID, err)
	}
	coverages := p.extractCoverages(ctx, classification.CoveragesDetected, chunks)

	if err := r.advance(constants.StateValidating); err != nil {
		return p.fail(ctx, r, jobID, err)
	}
	result := p.deps.Validator.ValidateComplete(validate.Input{
		Classification: classification,
		Policy:         policy,
		Coverages:      coverages,
		AppearsScanned: doc.AppearsScanned,
	})
	p.logger.Info("pipeline.validate.ok",
		"document_id", documentID,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
		"confidence", result.AdjustedConfidence,
		"needs_review", result.NeedsHumanReview,
	)

	if err := r.advance(constants.StatePersisting); err != nil {
		return p.fail(ctx, r, jobID, err)
	}
	row, rows, err := toEntities(doc, classification, policy, coverages, result)
	if err != nil {
		return p.fail(ctx, r, jobID, err)
	}
	policyID, err := p.deps.Policies.SavePolicy(ctx, row, rows)
	if err != nil {
		return p.fail(ctx, r, jobID, err)
	}

	if err := r.advance(constants.StateCompleted); err != nil {
		return p.fail(ctx, r, jobID, err)
	}
	bg := context.WithoutCancel(ctx)
	if err := p.deps.Documents.UpdateStatus(bg, documentID, constants.DocumentStatusExtracted, nil); err != nil {
		p.logger.Warn("pipeline.status_update_failed", "document_id", documentID, "err", err)
	}
	if jobID != uuid.Nil {
		confidence := result.AdjustedConfidence
		outcome := repository.JobOutcome{PolicyID: &policyID, Confidence: &confidence, NeedsReview: result.NeedsHumanReview}
		if err := p.deps.Jobs.FinishSuccess(bg, jobID, outcome); err != nil {
			p.logger.Warn("pipeline.job_finish_failed", "job_id", jobID, "err", err)
		}
	}
	p.publish(bg, events.ExtractionCompleted{DocumentID: documentID, TenantID: tenantID, PolicyID: &policyID, Success: true})

	p.logger.Info("pipeline.completed",
		"document_id", documentID,
		"tenant_id", tenantID,
		"policy_id", policyID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &policyID, nil
}

// extractCoverages fans out one extractor call per detected type. Results are
// stored by index, so output order follows the classifier's order.
func (p *Pipeline) extractCoverages(ctx context.Context, types []constants.CoverageType, chunks []entity.Chunk) []extract.CoverageResult {
	results := make([]extract.CoverageResult, len(types))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, t := range types {
		g.Go(func() error {
			results[i] = p.deps.Coverage.ExtractCoverage(gctx, t, chunks)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// fail moves the run to Failed, marks the document, closes the audit row and
// publishes the failure event. Bookkeeping ignores caller cancellation.
func (p *Pipeline) fail(ctx context.Context, r *run, jobID uuid.UUID, cause error) (*uuid.UUID, error) {
	bg := context.WithoutCancel(ctx)
	failedIn := r.state
	if err := r.advance(constants.StateFailed); err != nil {
		p.logger.Error("pipeline.transition_failed", "document_id", r.documentID, "err", err)
	}
	p.logger.Error("pipeline.failed", "document_id", r.documentID, "tenant_id", r.tenantID, "state", failedIn, "err", cause)

	msg := cause.Error()
	if err := p.deps.Documents.UpdateStatus(bg, r.documentID, constants.DocumentStatusExtractionFailed, &msg); err != nil {
		p.logger.Warn("pipeline.status_update_failed", "document_id", r.documentID, "err", err)
	}
	if jobID != uuid.Nil {
		if err := p.deps.Jobs.FinishFailure(bg, jobID, failedIn, msg); err != nil {
			p.logger.Warn("pipeline.job_finish_failed", "job_id", jobID, "err", err)
		}
	}
	p.publish(bg, events.ExtractionCompleted{DocumentID: r.documentID, TenantID: r.tenantID, Success: false, Error: msg})
	return nil, cause
}

func (p *Pipeline) publish(ctx context.Context, ev events.ExtractionCompleted) {
	ev.OccurredAt = time.Now().UTC()
	if err := p.deps.Publisher.Publish(ctx, ev); err != nil {
		p.logger.Warn("pipeline.publish_failed", "document_id", ev.DocumentID, "err", err)
	}
}

func toEntities(
	doc *entity.Document,
	classification extract.ClassificationResult,
	policy extract.PolicyResult,
	coverages []extract.CoverageResult,
	result validate.Result,
) (*entity.Policy, []entity.Coverage, error) {
	issues, err := json.Marshal(issuesJSON{Errors: result.Errors, Warnings: result.Warnings})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal validation issues: %w", err)
	}
	row := policy.ToEntity()
	row.DocumentID = doc.ID
	row.TenantID = doc.TenantID
	row.DocumentType = classification.DocumentType
	row.Confidence = result.AdjustedConfidence
	row.NeedsHumanReview = result.NeedsHumanReview
	row.ValidationIssues = issues

	rows := make([]entity.Coverage, len(coverages))
	for i, c := range coverages {
		rows[i] = c.ToEntity()
	}
	return row, rows, nil
}
