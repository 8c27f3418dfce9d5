package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/internal/async"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
	"github.com/joseph-ayodele/policy-structurer/internal/ingest"
	"github.com/joseph-ayodele/policy-structurer/internal/repository"
)

type fakeExtractor struct {
	policyID uuid.UUID
	err      error
	gotDoc   uuid.UUID
	gotTen   uuid.UUID
}

func (f *fakeExtractor) ExtractStructuredData(_ context.Context, documentID, tenantID uuid.UUID) (*uuid.UUID, error) {
	f.gotDoc, f.gotTen = documentID, tenantID
	if f.err != nil {
		return nil, f.err
	}
	id := f.policyID
	return &id, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []async.Job
}

func (q *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Shutdown(context.Context) {}

func (q *fakeQueue) Jobs() []async.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]async.Job(nil), q.jobs...)
}

type fakePolicies struct {
	repository.PolicyRepository
	byID map[uuid.UUID]*entity.Policy
}

func (f *fakePolicies) GetPolicy(_ context.Context, id, tenantID uuid.UUID) (*entity.Policy, error) {
	p, ok := f.byID[id]
	if !ok || p.TenantID != tenantID {
		return nil, common.ErrNotFound
	}
	return p, nil
}

type fakeIngestor struct {
	ingest.Ingestor
	documentID uuid.UUID
	skipHidden bool
}

func (f *fakeIngestor) IngestPath(_ context.Context, _ uuid.UUID, path string) (ingest.IngestionResult, error) {
	return ingest.IngestionResult{SourcePath: path, DocumentID: f.documentID.String(), StoragePath: "t/abc.pdf", HashHex: "abc"}, nil
}

func (f *fakeIngestor) IngestDirectory(_ context.Context, _ uuid.UUID, root string, skipHidden bool) ([]ingest.IngestionResult, ingest.DirStats, error) {
	f.skipHidden = skipHidden
	return []ingest.IngestionResult{
		{SourcePath: root + "/a.pdf", DocumentID: uuid.NewString(), HashHex: "a"},
		{SourcePath: root + "/b.pdf", DocumentID: uuid.NewString(), HashHex: "b", Deduplicated: true},
		{SourcePath: root + "/c.pdf", Err: "unreadable"},
	}, ingest.DirStats{Scanned: 4, Matched: 3, Succeeded: 2, Deduplicated: 1, Failed: 1}, nil
}

type fakeExporter struct {
	from, to *time.Time
}

func (f *fakeExporter) ExportPoliciesXLSX(_ context.Context, _ uuid.UUID, from, to *time.Time) ([]byte, error) {
	f.from, f.to = from, to
	return []byte("PK-xlsx"), nil
}

func samplePolicy() *entity.Policy {
	num, insured := "GL-2024-TEST-001", "Acme Manufacturing LLC"
	return &entity.Policy{
		ID:           uuid.New(),
		DocumentID:   uuid.New(),
		TenantID:     uuid.New(),
		PolicyNumber: &num,
		InsuredName:  &insured,
		DocumentType: "policy",
		Confidence:   0.87,
		Coverages: []entity.Coverage{
			{CoverageType: "general_liability", Confidence: 0.9},
		},
	}
}

func testServices() (Services, *fakeExtractor, *fakeQueue, *entity.Policy) {
	p := samplePolicy()
	ext := &fakeExtractor{policyID: p.ID}
	q := &fakeQueue{}
	return Services{
		Extractor: ext,
		Queue:     q,
		Policies:  &fakePolicies{byID: map[uuid.UUID]*entity.Policy{p.ID: p}},
		Ingestor:  &fakeIngestor{documentID: uuid.New()},
		Export:    &fakeExporter{},
		Health:    func(context.Context) error { return nil },
	}, ext, q, p
}
