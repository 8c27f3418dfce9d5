package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
)

const policyURIScheme = "policy://"

type ExtractPolicyQuery struct {
	DocumentID string `json:"document_id" jsonschema:"id of a document whose text has been chunked"`
	TenantID   string `json:"tenant_id" jsonschema:"tenant that owns the document"`
}

type ExtractPolicyResponse struct {
	PolicyID     string `json:"policy_id"`
	ResourcePath string `json:"resource_path"`
}

type GetPolicyQuery struct {
	PolicyID string `json:"policy_id" jsonschema:"id returned by policy-extract"`
	TenantID string `json:"tenant_id" jsonschema:"tenant that owns the policy"`
}

func mustSchema[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		panic(err)
	}
	return s
}

func ExtractPolicyTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "policy-extract",
		Description: "Run structured extraction over a chunked insurance policy document and return the stored policy id.",
		InputSchema: mustSchema[ExtractPolicyQuery](),
	}
}

func GetPolicyTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "policy-get",
		Description: "Fetch a stored policy with its coverages, confidence and validation issues.",
		InputSchema: mustSchema[GetPolicyQuery](),
	}
}

// MCPHandlers adapts Services to MCP tool and resource handlers.
type MCPHandlers struct {
	svc    Services
	logger *slog.Logger
}

func NewMCPHandlers(svc Services, logger *slog.Logger) *MCPHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPHandlers{svc: svc, logger: logger}
}

// NewMCPServer registers the policy tools and the policy:// resource template.
func NewMCPServer(svc Services, version string, logger *slog.Logger) *mcp.Server {
	h := NewMCPHandlers(svc, logger)
	server := mcp.NewServer(&mcp.Implementation{Name: "policy-structurer", Version: version}, nil)

	mcp.AddTool(server, ExtractPolicyTool(), h.ExtractPolicy)
	mcp.AddTool(server, GetPolicyTool(), h.GetPolicy)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: policyURIScheme + "{tenantId}/{policyId}",
		Name:        "policy",
		Description: "Structured policy record with coverages",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return h.ReadPolicy(ctx, req.Params.URI)
	})
	return server
}

func (h *MCPHandlers) ExtractPolicy(ctx context.Context, _ *mcp.CallToolRequest, q ExtractPolicyQuery) (*mcp.CallToolResult, *ExtractPolicyResponse, error) {
	h.logger.Info("mcp.policy_extract", "document_id", q.DocumentID)
	if h.svc.Extractor == nil {
		return nil, nil, unavailable("extraction")
	}
	documentID, err := parseID("document_id", q.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	tenantID, err := parseID("tenant_id", q.TenantID)
	if err != nil {
		return nil, nil, err
	}
	policyID, err := h.svc.Extractor.ExtractStructuredData(ctx, documentID, tenantID)
	if err != nil {
		h.logger.Error("mcp.policy_extract.failed", "document_id", documentID, "err", err)
		return nil, nil, err
	}
	return nil, &ExtractPolicyResponse{
		PolicyID:     policyID.String(),
		ResourcePath: policyURI(tenantID, *policyID),
	}, nil
}

// GetPolicy returns the policy as a plain JSON object so the inferred output
// schema stays generic.
func (h *MCPHandlers) GetPolicy(ctx context.Context, _ *mcp.CallToolRequest, q GetPolicyQuery) (*mcp.CallToolResult, map[string]any, error) {
	p, err := h.lookup(ctx, q.TenantID, q.PolicyID)
	if err != nil {
		return nil, nil, err
	}
	out, err := asObject(p)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// ReadPolicy serves policy://{tenantId}/{policyId}.
func (h *MCPHandlers) ReadPolicy(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	tenant, policy, ok := strings.Cut(strings.TrimPrefix(uri, policyURIScheme), "/")
	if !strings.HasPrefix(uri, policyURIScheme) || !ok {
		return nil, fmt.Errorf("%w: unsupported resource %q", common.ErrInvalidInput, uri)
	}
	p, err := h.lookup(ctx, tenant, policy)
	if err != nil {
		return nil, err
	}
	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "application/json", Text: string(body)}},
	}, nil
}

func (h *MCPHandlers) lookup(ctx context.Context, tenant, id string) (*entity.Policy, error) {
	if h.svc.Policies == nil {
		return nil, unavailable("policies")
	}
	policyID, err := parseID("policy_id", id)
	if err != nil {
		return nil, err
	}
	tenantID, err := parseID("tenant_id", tenant)
	if err != nil {
		return nil, err
	}
	return h.svc.Policies.GetPolicy(ctx, policyID, tenantID)
}

func policyURI(tenantID, policyID uuid.UUID) string {
	return policyURIScheme + tenantID.String() + "/" + policyID.String()
}
