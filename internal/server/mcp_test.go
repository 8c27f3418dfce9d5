package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
)

func TestMCPExtractPolicy(t *testing.T) {
	svc, ext, _, p := testServices()
	h := NewMCPHandlers(svc, slog.New(slog.DiscardHandler))

	docID, tenantID := uuid.New(), uuid.New()
	_, out, err := h.ExtractPolicy(context.Background(), nil, ExtractPolicyQuery{
		DocumentID: docID.String(),
		TenantID:   tenantID.String(),
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out.PolicyID != p.ID.String() || out.ResourcePath != "policy://"+tenantID.String()+"/"+p.ID.String() {
		t.Errorf("response = %+v", out)
	}
	if ext.gotDoc != docID {
		t.Errorf("document = %s", ext.gotDoc)
	}

	_, _, err = h.ExtractPolicy(context.Background(), nil, ExtractPolicyQuery{DocumentID: docID.String()})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("missing tenant err = %v", err)
	}
}

func TestMCPGetAndReadPolicy(t *testing.T) {
	svc, _, _, p := testServices()
	h := NewMCPHandlers(svc, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	_, got, err := h.GetPolicy(ctx, nil, GetPolicyQuery{PolicyID: p.ID.String(), TenantID: p.TenantID.String()})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["id"] != p.ID.String() {
		t.Errorf("id = %v", got["id"])
	}

	res, err := h.ReadPolicy(ctx, "policy://"+p.TenantID.String()+"/"+p.ID.String())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(res.Contents) != 1 || res.Contents[0].MIMEType != "application/json" {
		t.Fatalf("contents = %+v", res.Contents)
	}
	var decoded entity.Policy
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.PolicyNumber == nil || *decoded.PolicyNumber != "GL-2024-TEST-001" {
		t.Errorf("policy_number = %v", decoded.PolicyNumber)
	}

	if _, err := h.ReadPolicy(ctx, "pdf://"+p.ID.String()); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("foreign scheme err = %v", err)
	}
	if _, err := h.ReadPolicy(ctx, "policy://"+p.TenantID.String()+"/"+uuid.NewString()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("missing policy err = %v", err)
	}
	if _, err := h.ReadPolicy(ctx, "policy://"+uuid.NewString()+"/"+p.ID.String()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("other tenant err = %v", err)
	}
	if _, err := h.ReadPolicy(ctx, "policy://"+p.ID.String()); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("uri without tenant err = %v", err)
	}
	if _, _, err := h.GetPolicy(ctx, nil, GetPolicyQuery{PolicyID: p.ID.String()}); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("missing tenant err = %v", err)
	}
}

func TestMCPToolSchemas(t *testing.T) {
	for _, tool := range []struct {
		name     string
		required string
		schema   func() any
	}{
		{"policy-extract", "tenant_id", func() any { return ExtractPolicyTool().InputSchema }},
		{"policy-get", "policy_id", func() any { return GetPolicyTool().InputSchema }},
	} {
		b, err := json.Marshal(tool.schema())
		if err != nil {
			t.Fatalf("%s: %v", tool.name, err)
		}
		var s struct {
			Properties map[string]any `json:"properties"`
		}
		if err := json.Unmarshal(b, &s); err != nil {
			t.Fatal(err)
		}
		if _, ok := s.Properties[tool.required]; !ok {
			t.Errorf("%s schema lacks %s: %s", tool.name, tool.required, b)
		}
	}
}

func TestNewMCPServer(t *testing.T) {
	svc, _, _, _ := testServices()
	if NewMCPServer(svc, "test", slog.New(slog.DiscardHandler)) == nil {
		t.Fatal("nil server")
	}
}
