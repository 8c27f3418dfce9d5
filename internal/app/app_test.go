package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/internal/async"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/llm/llmtest"
	"github.com/joseph-ayodele/policy-structurer/internal/pdftext/pdftexttest"
)

func testConfig(t *testing.T) *common.Config {
	cfg := common.DefaultConfig()
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = ":memory:"
	cfg.Storage.Root = t.TempDir()
	cfg.Queue.Workers = 1
	cfg.Queue.ProcessTimeout = 10 * time.Second
	return cfg
}

func gateway() *llmtest.Router {
	return &llmtest.Router{Rules: []llmtest.Rule{
		{Match: "You classify", Reply: `{"documentType": "policy", "coveragesDetected": ["general_liability"], "confidence": 0.9}`},
		{Match: "You read the declarations pages", Reply: `{"policyNumber": "GL-2024-TEST-001", "insuredName": "Test Company Inc.", "effectiveDate": "2024-01-01", "expirationDate": "2025-01-01", "confidence": 0.9}`},
		{Match: "Coverage type: general_liability", Reply: `{"eachOccurrenceLimit": 1000000, "aggregateLimit": 2000000, "isOccurrenceForm": true, "isClaimsMade": false, "confidence": 0.9}`},
	}}
}

func TestWiredIngestProcessExport(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	cfg := testConfig(t)

	db, err := ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	gw := gateway()
	a, err := New(cfg, db, gw, logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(a.Close)

	src := filepath.Join(t.TempDir(), "gl-policy.pdf")
	pdf := pdftexttest.BuildPDF([][]string{{
		"COMMERCIAL GENERAL LIABILITY DECLARATIONS",
		"Policy Number: GL-2024-TEST-001",
		"Named Insured: Test Company Inc.",
		"Policy Period: January 1, 2024 to January 1, 2025",
		"Each Occurrence $1,000,000  General Aggregate $2,000,000",
	}})
	if err := os.WriteFile(src, pdf, 0o644); err != nil {
		t.Fatal(err)
	}

	tenantID := uuid.New()
	res, err := a.Ingestor.IngestPath(ctx, tenantID, src)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	docID := uuid.MustParse(res.DocumentID)

	policyID, err := a.Processor.ProcessDocument(ctx, docID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	p, err := a.Policies.GetPolicy(ctx, *policyID, tenantID)
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if p.TenantID != tenantID || len(p.Coverages) != 1 {
		t.Errorf("policy = %+v", p)
	}
	if n := gw.CallsMatching("Coverage type: general_liability"); n != 1 {
		t.Errorf("coverage calls = %d, want 1", n)
	}

	svc := a.Services(nil)
	if err := svc.Health(ctx); err != nil {
		t.Errorf("health: %v", err)
	}
	xlsx, err := svc.Export.ExportPoliciesXLSX(ctx, tenantID, nil, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(xlsx) < 2 || string(xlsx[:2]) != "PK" {
		t.Errorf("export is not a zip container")
	}
}

func TestQueueProcessesSubmittedDocument(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	cfg := testConfig(t)

	db, err := ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	a, err := New(cfg, db, gateway(), logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(a.Close)

	src := filepath.Join(t.TempDir(), "policy.pdf")
	if err := os.WriteFile(src, pdftexttest.BuildPDF([][]string{{"Policy Number: GL-2024-TEST-001"}}), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := a.Ingestor.IngestPath(ctx, uuid.New(), src)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	docID := uuid.MustParse(res.DocumentID)

	q := a.NewQueue()
	if err := a.Services(q).Queue.Enqueue(ctx, async.Job{DocumentID: docID, SubmittedAt: time.Now()}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	n, err := a.Policies.CountByDocument(ctx, docID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("policies for document = %d, want 1", n)
	}
}
