package export

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/policy-structurer/internal/entity"
	"github.com/joseph-ayodele/policy-structurer/internal/repository"
)

type stubPolicies struct {
	repository.PolicyRepository
	list []entity.Policy
}

func (s stubPolicies) ListByTenant(context.Context, uuid.UUID, int) ([]entity.Policy, error) {
	return s.list, nil
}

func ptr[T any](v T) *T { return &v }

func TestExportPoliciesXLSX(t *testing.T) {
	now := time.Now().UTC()
	eff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := entity.Policy{
		ID:               uuid.New(),
		DocumentID:       uuid.New(),
		PolicyNumber:     ptr("GL-2024-TEST-001"),
		InsuredName:      ptr("Test Company Inc."),
		EffectiveDate:    &eff,
		TotalPremium:     ptr(12500.0),
		DocumentType:     "policy",
		Confidence:       0.9,
		CreatedAt:        now,
		ValidationIssues: json.RawMessage(`{"errors":[{"field":"insured_name","code":"required","message":"missing"}],"warnings":[{"field":"carrier_naic_code","code":"invalid_naic","message":"bad"}]}`),
		Coverages: []entity.Coverage{
			{CoverageType: "general_liability", EachOccurrenceLimit: ptr(1000000.0), IsOccurrenceForm: ptr(true)},
			{CoverageType: "umbrella"},
		},
	}
	old := entity.Policy{ID: uuid.New(), DocumentType: "policy", CreatedAt: now.AddDate(0, 0, -30)}

	svc := NewService(stubPolicies{list: []entity.Policy{recent, old}}, slog.New(slog.DiscardHandler))
	from := now.AddDate(0, 0, -7)
	data, err := svc.ExportPoliciesXLSX(context.Background(), uuid.New(), &from, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 3 || got[0] != sheetPolicies || got[1] != sheetCoverages || got[2] != sheetIssues {
		t.Fatalf("sheets = %v", got)
	}

	policies, err := f.GetRows(sheetPolicies)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("policy rows = %d, want header + 1 (old policy filtered)", len(policies))
	}
	if policies[1][2] != "GL-2024-TEST-001" || policies[1][6] != "2024-01-01" || policies[1][8] != "12500" {
		t.Errorf("policy row = %v", policies[1])
	}

	coverages, _ := f.GetRows(sheetCoverages)
	if len(coverages) != 3 {
		t.Fatalf("coverage rows = %d, want 3", len(coverages))
	}
	if coverages[1][3] != "general_liability" || coverages[1][5] != "1000000" || coverages[1][9] != "yes" {
		t.Errorf("coverage row = %v", coverages[1])
	}

	issues, _ := f.GetRows(sheetIssues)
	if len(issues) != 3 {
		t.Fatalf("issue rows = %d, want 3", len(issues))
	}
	if issues[1][2] != "error" || issues[1][4] != "required" || issues[2][2] != "warning" {
		t.Errorf("issue rows = %v", issues[1:])
	}
}
