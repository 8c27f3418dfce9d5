package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/policy-structurer/internal/async"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/ingest"
)

const extractionServiceName = "policy.v1.ExtractionService"

// ExtractionServer is the policy.v1.ExtractionService contract. Messages are
// google.protobuf.Struct so clients need no generated stubs.
type ExtractionServer interface {
	IngestFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IngestDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExtractStructuredData(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPolicy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportPolicies(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryMethod(name string, call func(ExtractionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ExtractionServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + extractionServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ExtractionServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ExtractionServiceDesc describes the service for grpc.ServiceRegistrar.
var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: extractionServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("IngestFile", ExtractionServer.IngestFile),
		unaryMethod("IngestDirectory", ExtractionServer.IngestDirectory),
		unaryMethod("SubmitDocument", ExtractionServer.SubmitDocument),
		unaryMethod("ExtractStructuredData", ExtractionServer.ExtractStructuredData),
		unaryMethod("GetPolicy", ExtractionServer.GetPolicy),
		unaryMethod("ExportPolicies", ExtractionServer.ExportPolicies),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "policy/v1/extraction.proto",
}

func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

type ExtractionService struct {
	svc    Services
	logger *slog.Logger
}

func NewExtractionService(svc Services, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{svc: svc, logger: logger}
}

func field(req *structpb.Struct, key string) string {
	return strings.TrimSpace(req.GetFields()[key].GetStringValue())
}

func flag(req *structpb.Struct, key string) bool {
	return req.GetFields()[key].GetBoolValue()
}

// IngestFile stores a local file as a document and queues it for processing.
// With skip_duplicates set, content already in storage is registered but not
// queued.
func (s *ExtractionService) IngestFile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.svc.Ingestor == nil {
		return nil, unavailable("ingest")
	}
	path := field(req, "path")
	if err := common.ValidateAndReturnError(common.NewValidator().
		Field("tenant_id", field(req, "tenant_id"), common.Required, common.UUID).
		Field("path", path, common.Required)); err != nil {
		return nil, err
	}
	tenantID := uuid.MustParse(field(req, "tenant_id"))

	s.logger.Info("starting file ingest", "tenant_id", tenantID, "path", path)
	r, err := s.svc.Ingestor.IngestPath(ctx, tenantID, path)
	if err != nil {
		return nil, err
	}
	queued, err := s.enqueueIngested(ctx, r, flag(req, "skip_duplicates"))
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(ingestedFields(r, queued))
}

// IngestDirectory walks a local directory and queues every stored file.
// Hidden entries are skipped unless include_hidden is set.
func (s *ExtractionService) IngestDirectory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.svc.Ingestor == nil {
		return nil, unavailable("ingest")
	}
	root := field(req, "root_path")
	if err := common.ValidateAndReturnError(common.NewValidator().
		Field("tenant_id", field(req, "tenant_id"), common.Required, common.UUID).
		Field("root_path", root, common.Required)); err != nil {
		return nil, err
	}
	tenantID := uuid.MustParse(field(req, "tenant_id"))
	skipHidden := !flag(req, "include_hidden")
	skipDuplicates := flag(req, "skip_duplicates")

	s.logger.Info("starting directory ingest", "tenant_id", tenantID, "root", root, "skip_hidden", skipHidden)
	results, stats, err := s.svc.Ingestor.IngestDirectory(ctx, tenantID, root, skipHidden)
	if err != nil {
		return nil, err
	}

	items := make([]any, 0, len(results))
	queuedCount := 0
	for _, r := range results {
		queued, err := s.enqueueIngested(ctx, r, skipDuplicates)
		if err != nil {
			s.logger.Error("enqueue failed for document", "document_id", r.DocumentID, "err", err)
			r.Err = err.Error()
		}
		if queued {
			queuedCount++
		}
		items = append(items, ingestedFields(r, queued))
	}
	s.logger.Info("directory ingest completed", "tenant_id", tenantID, "scanned", stats.Scanned, "matched", stats.Matched,
		"succeeded", stats.Succeeded, "deduplicated", stats.Deduplicated, "failed", stats.Failed, "queued", queuedCount)

	return structpb.NewStruct(map[string]any{
		"results": items,
		"stats": map[string]any{
			"scanned":      stats.Scanned,
			"matched":      stats.Matched,
			"succeeded":    stats.Succeeded,
			"deduplicated": stats.Deduplicated,
			"failed":       stats.Failed,
			"queued":       queuedCount,
		},
	})
}

func (s *ExtractionService) enqueueIngested(ctx context.Context, r ingest.IngestionResult, skipDuplicates bool) (bool, error) {
	if s.svc.Queue == nil || r.Err != "" || r.DocumentID == "" {
		return false, nil
	}
	if r.Deduplicated && skipDuplicates {
		s.logger.Info("skipping processing (duplicate)", "document_id", r.DocumentID, "path", r.SourcePath)
		return false, nil
	}
	documentID, err := uuid.Parse(r.DocumentID)
	if err != nil {
		return false, fmt.Errorf("%w: document id %q", common.ErrInternal, r.DocumentID)
	}
	job := async.Job{DocumentID: documentID, SubmittedAt: time.Now(), TraceID: common.RequestIDFromContext(ctx)}
	if err := s.svc.Queue.Enqueue(ctx, job); err != nil {
		return false, err
	}
	return true, nil
}

func ingestedFields(r ingest.IngestionResult, queued bool) map[string]any {
	m := map[string]any{
		"source_path":      r.SourcePath,
		"document_id":      r.DocumentID,
		"storage_path":     r.StoragePath,
		"deduplicated":     r.Deduplicated,
		"content_hash_hex": r.HashHex,
		"queued":           queued,
	}
	if r.Err != "" {
		m["error"] = r.Err
	}
	return m
}

// SubmitDocument queues an uploaded document for the text stage and extraction.
func (s *ExtractionService) SubmitDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.svc.Queue == nil {
		return nil, unavailable("queue")
	}
	documentID, err := parseID("document_id", field(req, "document_id"))
	if err != nil {
		return nil, err
	}
	job := async.Job{DocumentID: documentID, SubmittedAt: time.Now(), TraceID: common.RequestIDFromContext(ctx)}
	if err := s.svc.Queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"document_id": documentID.String(), "queued": true})
}

func (s *ExtractionService) ExtractStructuredData(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.svc.Extractor == nil {
		return nil, unavailable("extraction")
	}
	documentID, err := parseID("document_id", field(req, "document_id"))
	if err != nil {
		return nil, err
	}
	tenantID, err := parseID("tenant_id", field(req, "tenant_id"))
	if err != nil {
		return nil, err
	}
	policyID, err := s.svc.Extractor.ExtractStructuredData(ctx, documentID, tenantID)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"policy_id": policyID.String()})
}

func (s *ExtractionService) GetPolicy(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.svc.Policies == nil {
		return nil, unavailable("policies")
	}
	policyID, err := parseID("policy_id", field(req, "policy_id"))
	if err != nil {
		return nil, err
	}
	tenantID, err := parseID("tenant_id", field(req, "tenant_id"))
	if err != nil {
		return nil, err
	}
	p, err := s.svc.Policies.GetPolicy(ctx, policyID, tenantID)
	if err != nil {
		return nil, err
	}
	return toStruct(p)
}

// ExportPolicies returns the review workbook as base64.
func (s *ExtractionService) ExportPolicies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.svc.Export == nil {
		return nil, unavailable("export")
	}
	tenantID, err := parseID("tenant_id", field(req, "tenant_id"))
	if err != nil {
		return nil, err
	}
	from, err := parseDate("from_date", field(req, "from_date"))
	if err != nil {
		return nil, err
	}
	to, err := parseDate("to_date", field(req, "to_date"))
	if err != nil {
		return nil, err
	}
	xlsx, err := s.svc.Export.ExportPoliciesXLSX(ctx, tenantID, from, to)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "tenant_id", tenantID, "err", err)
		return nil, err
	}
	return structpb.NewStruct(map[string]any{
		"xlsx_base64": base64.StdEncoding.EncodeToString(xlsx),
		"size":        len(xlsx),
	})
}

func toStruct(v any) (*structpb.Struct, error) {
	m, err := asObject(v)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// UnaryInterceptor tags each call with a request id, logs it and maps
// application errors onto gRPC status codes.
func UnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 {
				requestID = v[0]
			}
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, requestID)

		resp, err := handler(ctx, req)
		err = common.ToStatus(err)
		logger.Info("grpc.call",
			"method", info.FullMethod,
			"req_id", requestID,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
