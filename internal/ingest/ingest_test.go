package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/internal/repository"
	"github.com/joseph-ayodele/policy-structurer/internal/storage"
)

func newIngestor(t *testing.T) (*FSIngestor, repository.DocumentRepository) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	db, err := repository.OpenSQLite(context.Background(), ":memory:", logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { repository.Close(db, logger) })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	docs := repository.NewDocumentRepository(db, logger)
	return NewFSIngestor(docs, st, logger), docs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIngestPath(t *testing.T) {
	ing, docs := newIngestor(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "Policy.PDF")
	writeFile(t, src, "%PDF-1.4 body")
	tenant := uuid.New()

	first, err := ing.IngestPath(context.Background(), tenant, src)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if first.Deduplicated {
		t.Errorf("first ingest marked deduplicated")
	}
	second, err := ing.IngestPath(context.Background(), tenant, src)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Deduplicated || second.StoragePath != first.StoragePath {
		t.Errorf("second ingest = %+v", second)
	}
	if second.DocumentID == first.DocumentID {
		t.Errorf("each ingest registers its own document")
	}

	doc, err := docs.Get(context.Background(), uuid.MustParse(first.DocumentID))
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.Filename != "Policy.PDF" || doc.TenantID != tenant {
		t.Errorf("document = %+v", doc)
	}

	if _, err := ing.IngestPath(context.Background(), tenant, filepath.Join(dir, "notes.txt")); err == nil {
		t.Errorf("expected unsupported extension error")
	}
}

func TestIngestDirectory(t *testing.T) {
	ing, _ := newIngestor(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "a")
	writeFile(t, filepath.Join(root, "nested", "b.pdf"), "b")
	writeFile(t, filepath.Join(root, "readme.md"), "skip")
	writeFile(t, filepath.Join(root, ".hidden", "c.pdf"), "c")

	results, stats, err := ing.IngestDirectory(context.Background(), uuid.New(), root, true)
	if err != nil {
		t.Fatalf("ingest dir: %v", err)
	}
	if stats.Matched != 2 || stats.Succeeded != 2 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want 2", len(results))
	}

	if _, _, err := ing.IngestDirectory(context.Background(), uuid.New(), " ", false); err == nil {
		t.Errorf("expected error for blank root")
	}
}
