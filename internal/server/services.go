// Package server exposes the pipeline over gRPC, an ops HTTP router and MCP
// tools. All three surfaces share one Services value.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/internal/async"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/ingest"
	"github.com/joseph-ayodele/policy-structurer/internal/repository"
)

// StructuredExtractor runs the extraction pipeline on stored chunks.
type StructuredExtractor interface {
	ExtractStructuredData(ctx context.Context, documentID, tenantID uuid.UUID) (*uuid.UUID, error)
}

type Exporter interface {
	ExportPoliciesXLSX(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]byte, error)
}

// Services are the collaborators behind every transport. Nil members
// disable the operations that need them.
type Services struct {
	Extractor StructuredExtractor
	Queue     async.Queue
	Policies  repository.PolicyRepository
	Ingestor  ingest.Ingestor
	Export    Exporter
	Health    func(ctx context.Context) error
}

func parseID(field, value string) (uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", common.ErrInvalidInput, field)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", common.ErrInvalidInput, field)
	}
	return id, nil
}

// parseDate reads an optional YYYY-MM-DD value.
func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", common.ErrInvalidInput, field)
	}
	return &t, nil
}

func unavailable(op string) error {
	return common.NewAppError("UNAVAILABLE", op+" is not configured", common.ErrInternal)
}

// asObject round-trips v through JSON so transports see the same field names.
func asObject(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
