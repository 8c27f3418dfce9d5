package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/entity"
)

type PolicyRepository interface {
	// SavePolicy writes the policy and its coverages in one transaction and
	// returns the new policy id. Prior policies of the document are untouched.
	SavePolicy(ctx context.Context, policy *entity.Policy, coverages []entity.Coverage) (uuid.UUID, error)
	// GetPolicy returns a policy owned by tenantID; other tenants' policies
	// are not found.
	GetPolicy(ctx context.Context, id, tenantID uuid.UUID) (*entity.Policy, error)
	// ListByTenant returns the newest policies first, coverages included.
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]entity.Policy, error)
	CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error)
}

type policyRepo struct {
	db  *DB
	log *slog.Logger
}

func NewPolicyRepository(db *DB, log *slog.Logger) PolicyRepository {
	return &policyRepo{db: db, log: log}
}

var policyColumns = []string{
	"id", "document_id", "tenant_id", "policy_number", "insured_name", "carrier_name", "carrier_naic_code",
	"effective_date", "expiration_date", "total_premium", "status", "document_type", "confidence",
	"needs_human_review", "validation_issues", "created_at",
}

var coverageColumns = []string{
	"id", "policy_id", "position", "coverage_type", "coverage_subtype", "each_occurrence_limit",
	"aggregate_limit", "deductible", "premium", "is_occurrence_form", "is_claims_made",
	"retroactive_date", "details", "confidence", "raw_output",
}

func (r *policyRepo) SavePolicy(ctx context.Context, p *entity.Policy, coverages []entity.Coverage) (uuid.UUID, error) {
	id := uuid.New()
	now := time.Now().UTC()

	err := r.db.withTx(ctx, func(tx dialect.Tx) error {
		q, args := r.db.builder().Insert("policies").
			Columns(policyColumns...).
			Values(id, p.DocumentID, p.TenantID, nullable(p.PolicyNumber), nullable(p.InsuredName),
				nullable(p.CarrierName), nullable(p.CarrierNAICCode), r.db.dateArg(p.EffectiveDate),
				r.db.dateArg(p.ExpirationDate), nullable(p.TotalPremium), nullable(p.Status), p.DocumentType,
				p.Confidence, p.NeedsHumanReview, jsonArg(p.ValidationIssues), now).
			Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			return fmt.Errorf("insert policy: %w", err)
		}
		if len(coverages) == 0 {
			return nil
		}

		ins := r.db.builder().Insert("coverages").Columns(coverageColumns...)
		for i, c := range coverages {
			ins.Values(uuid.New(), id, i, c.CoverageType, nullable(c.CoverageSubtype), nullable(c.EachOccurrenceLimit),
				nullable(c.AggregateLimit), nullable(c.Deductible), nullable(c.Premium), nullable(c.IsOccurrenceForm),
				nullable(c.IsClaimsMade), r.db.dateArg(c.RetroactiveDate), jsonArg(c.Details), c.Confidence, c.RawOutput)
		}
		q, args = ins.Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			return fmt.Errorf("insert coverages: %w", err)
		}
		return nil
	})
	if err != nil {
		r.log.Error("save policy failed", "document_id", p.DocumentID, "err", err)
		return uuid.Nil, fmt.Errorf("%w: save policy: %v", common.ErrDatabase, err)
	}
	r.log.Info("policy saved", "policy_id", id, "document_id", p.DocumentID, "coverages", len(coverages))
	return id, nil
}

func (r *policyRepo) GetPolicy(ctx context.Context, id, tenantID uuid.UUID) (*entity.Policy, error) {
	q, args := r.db.builder().Select(policyColumns...).
		From(entsql.Table("policies")).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("tenant_id", tenantID))).
		Query()
	policies, err := r.selectPolicies(ctx, q, args)
	if err != nil {
		r.log.Error("get policy failed", "policy_id", id, "err", err)
		return nil, fmt.Errorf("%w: get policy: %v", common.ErrDatabase, err)
	}
	if len(policies) == 0 {
		return nil, fmt.Errorf("policy %s: %w", id, common.ErrNotFound)
	}
	if err := r.attachCoverages(ctx, policies); err != nil {
		return nil, fmt.Errorf("%w: get coverages: %v", common.ErrDatabase, err)
	}
	return &policies[0], nil
}

func (r *policyRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]entity.Policy, error) {
	sel := r.db.builder().Select(policyColumns...).
		From(entsql.Table("policies")).
		Where(entsql.EQ("tenant_id", tenantID)).
		OrderBy(entsql.Desc("created_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	q, args := sel.Query()
	policies, err := r.selectPolicies(ctx, q, args)
	if err != nil {
		r.log.Error("list policies failed", "tenant_id", tenantID, "err", err)
		return nil, fmt.Errorf("%w: list policies: %v", common.ErrDatabase, err)
	}
	if err := r.attachCoverages(ctx, policies); err != nil {
		return nil, fmt.Errorf("%w: list coverages: %v", common.ErrDatabase, err)
	}
	return policies, nil
}

func (r *policyRepo) CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	q, args := r.db.builder().Select(entsql.Count("*")).
		From(entsql.Table("policies")).
		Where(entsql.EQ("document_id", documentID)).
		Query()
	var n int
	err := query(ctx, r.db.drv, q, args, func(rows *entsql.Rows) error {
		return rows.Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count policies: %v", common.ErrDatabase, err)
	}
	return n, nil
}

func (r *policyRepo) selectPolicies(ctx context.Context, q string, args []any) ([]entity.Policy, error) {
	out := []entity.Policy{}
	err := query(ctx, r.db.drv, q, args, func(rows *entsql.Rows) error {
		var (
			p                                  entity.Policy
			number, insured, carrier, naic, st sql.NullString
			issues                             sql.NullString
			premium                            sql.NullFloat64
			effective, expiration, createdAt   any
		)
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.TenantID, &number, &insured, &carrier, &naic,
			&effective, &expiration, &premium, &st, &p.DocumentType, &p.Confidence,
			&p.NeedsHumanReview, &issues, &createdAt); err != nil {
			return err
		}
		p.PolicyNumber, p.InsuredName = stringPtr(number), stringPtr(insured)
		p.CarrierName, p.CarrierNAICCode = stringPtr(carrier), stringPtr(naic)
		p.Status, p.TotalPremium = stringPtr(st), floatPtr(premium)
		p.ValidationIssues = rawJSON(issues)

		var err error
		if p.EffectiveDate, err = nullTime(effective); err != nil {
			return err
		}
		if p.ExpirationDate, err = nullTime(expiration); err != nil {
			return err
		}
		if p.CreatedAt, err = asTime(createdAt); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

func (r *policyRepo) attachCoverages(ctx context.Context, policies []entity.Policy) error {
	if len(policies) == 0 {
		return nil
	}
	ids := make([]any, len(policies))
	index := make(map[uuid.UUID]int, len(policies))
	for i, p := range policies {
		ids[i] = p.ID
		index[p.ID] = i
	}
	q, args := r.db.builder().Select(coverageColumns...).
		From(entsql.Table("coverages")).
		Where(entsql.In("policy_id", ids...)).
		OrderBy("policy_id", "position").
		Query()

	return query(ctx, r.db.drv, q, args, func(rows *entsql.Rows) error {
		var (
			c                                   entity.Coverage
			position                            int
			subtype, details                    sql.NullString
			occurrence, aggregate, deduct, prem sql.NullFloat64
			occurrenceForm, claimsMade          sql.NullBool
			retro                               any
		)
		if err := rows.Scan(&c.ID, &c.PolicyID, &position, &c.CoverageType, &subtype, &occurrence,
			&aggregate, &deduct, &prem, &occurrenceForm, &claimsMade, &retro, &details,
			&c.Confidence, &c.RawOutput); err != nil {
			return err
		}
		c.CoverageSubtype = stringPtr(subtype)
		c.EachOccurrenceLimit, c.AggregateLimit = floatPtr(occurrence), floatPtr(aggregate)
		c.Deductible, c.Premium = floatPtr(deduct), floatPtr(prem)
		c.IsOccurrenceForm, c.IsClaimsMade = boolPtr(occurrenceForm), boolPtr(claimsMade)
		c.Details = rawJSON(details)

		var err error
		if c.RetroactiveDate, err = nullTime(retro); err != nil {
			return err
		}
		i := index[c.PolicyID]
		policies[i].Coverages = append(policies[i].Coverages, c)
		return nil
	})
}
