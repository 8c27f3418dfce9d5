package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/joseph-ayodele/policy-structurer/internal/common"
)

func TestFSRoundTrip(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("new fs: %v", err)
	}
	ctx := context.Background()
	if err := s.Upload(ctx, "tenant-a/policy.pdf", strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	rc, err := s.Download(ctx, "tenant-a/policy.pdf")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "%PDF-1.4" {
		t.Errorf("content = %q", b)
	}
}

func TestFSPaths(t *testing.T) {
	root := t.TempDir()
	s, err := NewFS(root)
	if err != nil {
		t.Fatalf("new fs: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Download(ctx, "missing.pdf"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
	if _, err := s.Download(ctx, "  "); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("blank err = %v, want ErrInvalidInput", err)
	}

	// Traversal stays inside the root.
	if err := s.Upload(ctx, "../../escape.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	rc, err := s.Download(ctx, "escape.pdf")
	if err != nil {
		t.Fatalf("traversal path not rooted: %v", err)
	}
	rc.Close()
}
