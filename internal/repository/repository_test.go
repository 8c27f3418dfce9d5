package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/constants"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	db, err := OpenSQLite(context.Background(), ":memory:", logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { Close(db, logger) })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedDocument(t *testing.T, db *DB) *entity.Document {
	t.Helper()
	docs := NewDocumentRepository(db, slog.New(slog.DiscardHandler))
	doc, err := docs.Create(context.Background(), &entity.Document{
		TenantID:    uuid.New(),
		StoragePath: "tenant/policy.pdf",
		Filename:    "policy.pdf",
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func ptr[T any](v T) *T { return &v }

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := db.CheckSchema(context.Background()); err != nil {
		t.Fatalf("check schema: %v", err)
	}
}

func TestConnectDrivers(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	db, err := Connect(context.Background(), Config{Driver: "sqlite", DSN: ":memory:"}, logger)
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	defer Close(db, logger)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := Connect(context.Background(), Config{Driver: "mysql"}, logger); err == nil {
		t.Error("expected an error for an unsupported driver")
	}
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	docs := NewDocumentRepository(db, slog.New(slog.DiscardHandler))
	doc := seedDocument(t, db)

	if doc.Status != string(constants.DocumentStatusUploaded) {
		t.Fatalf("status = %q, want UPLOADED", doc.Status)
	}
	if err := docs.UpdateTextResult(ctx, doc.ID, TextResult{PageCount: 3, QualityScore: 82.5, ScannedPageCount: 1, IsHybrid: true}); err != nil {
		t.Fatalf("update text result: %v", err)
	}
	msg := "no text chunks"
	if err := docs.UpdateStatus(ctx, doc.ID, constants.DocumentStatusExtractionFailed, &msg); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := docs.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PageCount != 3 || got.QualityScore != 82.5 || !got.IsHybrid || got.AppearsScanned {
		t.Errorf("text result not stored: %+v", got)
	}
	if got.Status != string(constants.DocumentStatusExtractionFailed) {
		t.Errorf("status = %q", got.Status)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != msg {
		t.Errorf("error message = %v", got.ErrorMessage)
	}
	if got.CreatedAt.IsZero() {
		t.Errorf("created_at not scanned")
	}

	if _, err := docs.Get(ctx, uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("missing document err = %v, want ErrNotFound", err)
	}
	if err := docs.UpdateStatus(ctx, uuid.New(), constants.DocumentStatusExtracted, nil); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("missing document update err = %v, want ErrNotFound", err)
	}
}

func TestReplaceAndListChunks(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	doc := seedDocument(t, db)
	chunks := NewChunkRepository(db, slog.New(slog.DiscardHandler))

	first := []entity.Chunk{
		{TenantID: doc.TenantID, Index: 0, Text: "DECLARATIONS", PageStart: 1, PageEnd: 1, EstimatedTokens: 3, SectionType: constants.SectionDeclarations},
		{TenantID: doc.TenantID, Index: 1, Text: "old", PageStart: 1, PageEnd: 2, EstimatedTokens: 1},
	}
	if err := chunks.ReplaceChunks(ctx, doc.ID, first); err != nil {
		t.Fatalf("replace: %v", err)
	}
	second := []entity.Chunk{
		{TenantID: doc.TenantID, Index: 1, Text: "b", PageStart: 2, PageEnd: 3, EstimatedTokens: 1},
		{TenantID: doc.TenantID, Index: 0, Text: "a", PageStart: 1, PageEnd: 2, EstimatedTokens: 1},
	}
	if err := chunks.ReplaceChunks(ctx, doc.ID, second); err != nil {
		t.Fatalf("replace again: %v", err)
	}

	got, err := chunks.ListChunks(ctx, doc.ID, doc.TenantID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Text != "a" || got[1].Text != "b" {
		t.Fatalf("chunks = %+v", got)
	}
	if got[0].SectionType != constants.SectionNone {
		t.Errorf("blank section stored as %q, want none", got[0].SectionType)
	}

	other, err := chunks.ListChunks(ctx, doc.ID, uuid.New())
	if err != nil {
		t.Fatalf("list other tenant: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("other tenant sees %d chunks", len(other))
	}
}

func TestSaveAndGetPolicy(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	doc := seedDocument(t, db)
	policies := NewPolicyRepository(db, slog.New(slog.DiscardHandler))

	eff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	exp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	retro := time.Date(2019, 6, 15, 0, 0, 0, 0, time.UTC)
	policy := &entity.Policy{
		DocumentID:       doc.ID,
		TenantID:         doc.TenantID,
		PolicyNumber:     ptr("GL-2024-TEST-001"),
		InsuredName:      ptr("Acme Manufacturing LLC"),
		EffectiveDate:    &eff,
		ExpirationDate:   &exp,
		TotalPremium:     ptr(12500.0),
		DocumentType:     "policy",
		Confidence:       0.91,
		ValidationIssues: json.RawMessage(`{"errors":[],"warnings":[]}`),
	}
	coverages := []entity.Coverage{
		{
			CoverageType:        "general_liability",
			EachOccurrenceLimit: ptr(1000000.0),
			AggregateLimit:      ptr(2000000.0),
			IsOccurrenceForm:    ptr(true),
			Details:             json.RawMessage(`{"endorsements":["CG 20 10"]}`),
			Confidence:          0.9,
			RawOutput:           "{}",
		},
		{
			CoverageType:    "professional_liability",
			IsClaimsMade:    ptr(true),
			RetroactiveDate: &retro,
			Confidence:      0.8,
		},
	}

	id, err := policies.SavePolicy(ctx, policy, coverages)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := policies.GetPolicy(ctx, id, doc.TenantID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PolicyNumber == nil || *got.PolicyNumber != "GL-2024-TEST-001" {
		t.Errorf("policy number = %v", got.PolicyNumber)
	}
	if got.EffectiveDate == nil || !got.EffectiveDate.Equal(eff) {
		t.Errorf("effective date = %v, want %v", got.EffectiveDate, eff)
	}
	if got.CarrierName != nil {
		t.Errorf("carrier = %v, want nil", *got.CarrierName)
	}
	if len(got.Coverages) != 2 {
		t.Fatalf("coverages = %d, want 2", len(got.Coverages))
	}
	gl := got.Coverages[0]
	if gl.CoverageType != "general_liability" || gl.EachOccurrenceLimit == nil || *gl.EachOccurrenceLimit != 1000000 {
		t.Errorf("gl coverage = %+v", gl)
	}
	if gl.IsOccurrenceForm == nil || !*gl.IsOccurrenceForm || gl.IsClaimsMade != nil {
		t.Errorf("gl booleans = %v %v", gl.IsOccurrenceForm, gl.IsClaimsMade)
	}
	if string(gl.Details) != `{"endorsements":["CG 20 10"]}` {
		t.Errorf("details = %s", gl.Details)
	}
	pl := got.Coverages[1]
	if pl.RetroactiveDate == nil || !pl.RetroactiveDate.Equal(retro) {
		t.Errorf("retro date = %v", pl.RetroactiveDate)
	}

	// Reprocessing creates a new row.
	if _, err := policies.SavePolicy(ctx, policy, nil); err != nil {
		t.Fatalf("second save: %v", err)
	}
	n, err := policies.CountByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	list, err := policies.ListByTenant(ctx, doc.TenantID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %d, want 2", len(list))
	}
	total := len(list[0].Coverages) + len(list[1].Coverages)
	if total != 2 {
		t.Errorf("listed coverages = %d, want 2", total)
	}

	if _, err := policies.GetPolicy(ctx, uuid.New(), doc.TenantID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("missing policy err = %v", err)
	}
	if _, err := policies.GetPolicy(ctx, id, uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("other tenant err = %v", err)
	}
}

func TestSavePolicyRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	doc := seedDocument(t, db)
	policies := NewPolicyRepository(db, slog.New(slog.DiscardHandler))

	// No document row: the foreign key rejects the insert.
	orphan := &entity.Policy{DocumentID: uuid.New(), TenantID: doc.TenantID, DocumentType: "policy"}
	if _, err := policies.SavePolicy(ctx, orphan, []entity.Coverage{{CoverageType: "crime"}}); !errors.Is(err, common.ErrDatabase) {
		t.Fatalf("err = %v, want ErrDatabase", err)
	}
	n, err := policies.CountByDocument(ctx, orphan.DocumentID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("rolled back policy still stored")
	}
}

func TestExtractJobAudit(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	doc := seedDocument(t, db)
	jobs := NewExtractJobRepository(db, slog.New(slog.DiscardHandler))

	ok, err := jobs.Start(ctx, doc.ID, doc.TenantID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := jobs.UpdateState(ctx, ok.ID, constants.StateValidating); err != nil {
		t.Fatalf("update state: %v", err)
	}
	policyID := uuid.New()
	if err := jobs.FinishSuccess(ctx, ok.ID, JobOutcome{PolicyID: &policyID, Confidence: ptr(0.88)}); err != nil {
		t.Fatalf("finish: %v", err)
	}

	failed, err := jobs.Start(ctx, doc.ID, doc.TenantID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := jobs.FinishFailure(ctx, failed.ID, constants.StateFailed, "no text chunks"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	got, err := jobs.Get(ctx, ok.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != string(constants.JobStatusCompleted) || got.State != string(constants.StateCompleted) {
		t.Errorf("job = %s/%s", got.Status, got.State)
	}
	if got.PolicyID == nil || *got.PolicyID != policyID || got.FinishedAt == nil {
		t.Errorf("job outcome not stored: %+v", got)
	}

	all, err := jobs.ListByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("jobs = %d, want 2", len(all))
	}
	var sawFailure bool
	for _, j := range all {
		if j.Status == string(constants.JobStatusFailed) {
			sawFailure = true
			if j.ErrorMessage == nil || *j.ErrorMessage != "no text chunks" || j.PolicyID != nil {
				t.Errorf("failed job = %+v", j)
			}
		}
	}
	if !sawFailure {
		t.Errorf("failed job missing")
	}
}
