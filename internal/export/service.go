package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/policy-structurer/internal/entity"
	"github.com/joseph-ayodele/policy-structurer/internal/repository"
	"github.com/joseph-ayodele/policy-structurer/internal/validate"
)

const (
	sheetPolicies  = "Policies"
	sheetCoverages = "Coverages"
	sheetIssues    = "Issues"
	dateLayout     = "2006-01-02"
)

// Service produces the XLSX review workbook for a tenant.
type Service struct {
	policies repository.PolicyRepository
	logger   *slog.Logger
}

func NewService(policies repository.PolicyRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{policies: policies, logger: logger}
}

// ExportPoliciesXLSX returns a workbook (as bytes) of the tenant's policies
// created inside the date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all policies for the tenant.
func (s *Service) ExportPoliciesXLSX(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()
	fromDate, toDate := window(from, to)

	all, err := s.policies.ListByTenant(ctx, tenantID, 0)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}
	policies := make([]entity.Policy, 0, len(all))
	for _, p := range all {
		day := truncateDay(p.CreatedAt)
		if fromDate != nil && day.Before(*fromDate) {
			continue
		}
		if toDate != nil && day.After(*toDate) {
			continue
		}
		policies = append(policies, p)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetPolicies); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetCoverages, sheetIssues} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	w := &writer{f: f}
	w.headers(sheetPolicies, "Policy ID", "Document ID", "Policy Number", "Named Insured", "Carrier", "NAIC",
		"Effective", "Expiration", "Total Premium", "Document Type", "Confidence", "Needs Review", "Created")
	w.headers(sheetCoverages, "Policy ID", "Policy Number", "#", "Coverage Type", "Subtype", "Each Occurrence",
		"Aggregate", "Deductible", "Premium", "Occurrence Form", "Claims Made", "Retro Date", "Confidence", "Details")
	w.headers(sheetIssues, "Policy ID", "Policy Number", "Severity", "Field", "Code", "Message")

	covRow, issueRow := 2, 2
	for i, p := range policies {
		number := deref(p.PolicyNumber)
		w.row(sheetPolicies, i+2,
			p.ID.String(), p.DocumentID.String(), number, deref(p.InsuredName), deref(p.CarrierName),
			deref(p.CarrierNAICCode), date(p.EffectiveDate), date(p.ExpirationDate), money(p.TotalPremium),
			p.DocumentType, p.Confidence, p.NeedsHumanReview, p.CreatedAt.Format(time.RFC3339))

		for j, c := range p.Coverages {
			w.row(sheetCoverages, covRow,
				p.ID.String(), number, j+1, c.CoverageType, deref(c.CoverageSubtype),
				money(c.EachOccurrenceLimit), money(c.AggregateLimit), money(c.Deductible), money(c.Premium),
				flag(c.IsOccurrenceForm), flag(c.IsClaimsMade), date(c.RetroactiveDate), c.Confidence,
				truncate(string(c.Details), 500))
			covRow++
		}

		var issues struct {
			Errors   []validate.Issue `json:"errors"`
			Warnings []validate.Issue `json:"warnings"`
		}
		if len(p.ValidationIssues) > 0 {
			if err := json.Unmarshal(p.ValidationIssues, &issues); err != nil {
				s.logger.Warn("export.issues_unreadable", "policy_id", p.ID, "err", err)
			}
		}
		for _, group := range []struct {
			severity string
			list     []validate.Issue
		}{{"error", issues.Errors}, {"warning", issues.Warnings}} {
			for _, is := range group.list {
				w.row(sheetIssues, issueRow, p.ID.String(), number, group.severity, is.Field, is.Code, is.Message)
				issueRow++
			}
		}
	}
	if w.err != nil {
		return nil, fmt.Errorf("xlsx cells: %w", w.err)
	}

	// Widen a few columns
	_ = f.SetColWidth(sheetPolicies, "A", "B", 38) // ids
	_ = f.SetColWidth(sheetPolicies, "C", "E", 28)
	_ = f.SetColWidth(sheetCoverages, "A", "A", 38)
	_ = f.SetColWidth(sheetCoverages, "D", "D", 26)
	_ = f.SetColWidth(sheetCoverages, "N", "N", 60) // details
	_ = f.SetColWidth(sheetIssues, "A", "A", 38)
	_ = f.SetColWidth(sheetIssues, "F", "F", 60) // message
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"tenant_id", tenantID.String(),
		"policies", len(policies),
		"coverages", covRow-2,
		"issues", issueRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// writer keeps the first cell error so rows can be written without checks.
type writer struct {
	f   *excelize.File
	err error
}

func (w *writer) headers(sheet string, names ...string) {
	values := make([]any, len(names))
	for i, n := range names {
		values[i] = n
	}
	w.row(sheet, 1, values...)
}

func (w *writer) row(sheet string, row int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func window(from, to *time.Time) (*time.Time, *time.Time) {
	var fromDate, toDate *time.Time
	if from != nil {
		f := truncateDay(*from)
		fromDate = &f
	}
	if to != nil {
		t := truncateDay(*to)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		t := truncateDay(time.Now())
		toDate = &t
	}
	return fromDate, toDate
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// money leaves absent amounts blank rather than writing 0.
func money(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func flag(b *bool) string {
	switch {
	case b == nil:
		return ""
	case *b:
		return "yes"
	default:
		return "no"
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
