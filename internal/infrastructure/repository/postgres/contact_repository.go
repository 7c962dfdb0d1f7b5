package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
)

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ContactRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS contacts (
	id BIGSERIAL PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	organization TEXT,
	role TEXT,
	region TEXT,
	fit_type TEXT,
	proximity_score INTEGER,
	capacity_score INTEGER,
	familiarity INTEGER NOT NULL DEFAULT 0,
	last_contact_at TIMESTAMPTZ,
	interaction_count INTEGER NOT NULL DEFAULT 0,
	ask_readiness JSONB NOT NULL DEFAULT '{}'::jsonb,
	outreach_queued_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_proximity ON contacts(proximity_score DESC NULLS LAST);
CREATE INDEX IF NOT EXISTS idx_contacts_capacity ON contacts(capacity_score DESC NULLS LAST);
CREATE INDEX IF NOT EXISTS idx_contacts_last_contact ON contacts(last_contact_at DESC NULLS LAST);
CREATE INDEX IF NOT EXISTS idx_contacts_fit_type ON contacts(fit_type);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const contactColumns = `id, first_name, last_name, organization, role, region, fit_type,
	proximity_score, capacity_score, familiarity, last_contact_at,
	interaction_count, ask_readiness, outreach_queued_at, created_at, updated_at`

// Search translates every native predicate of the filter into SQL. All
// dimensions are ANDed; list membership ORs within its dimension.
func (r *ContactRepository) Search(ctx context.Context, filter domain.Filter) ([]domain.Contact, error) {
	query, args := buildSearchQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return out, nil
}

func buildSearchQuery(filter domain.Filter) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(contactColumns)
	sb.WriteString("\nFROM contacts\n")

	conditions := make([]string, 0, 8)
	args := make([]any, 0, 8)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ProximityMin != nil {
		conditions = append(conditions, fmt.Sprintf("proximity_score >= %s", arg(*filter.ProximityMin)))
	}
	if filter.CapacityMin != nil {
		conditions = append(conditions, fmt.Sprintf("capacity_score >= %s", arg(*filter.CapacityMin)))
	}
	if filter.FamiliarityMin != nil {
		conditions = append(conditions, fmt.Sprintf("familiarity >= %s", arg(*filter.FamiliarityMin)))
	}
	if clause := tierClause("proximity_score", domain.ProximityTiers(), filter.ProximityTiers, arg); clause != "" {
		conditions = append(conditions, clause)
	}
	if clause := tierClause("capacity_score", domain.CapacityTiers(), filter.CapacityTiers, arg); clause != "" {
		conditions = append(conditions, clause)
	}
	if len(filter.FitTypes) > 0 {
		placeholders := make([]string, 0, len(filter.FitTypes))
		for _, fit := range filter.FitTypes {
			placeholders = append(placeholders, arg(fit))
		}
		conditions = append(conditions, fmt.Sprintf("fit_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Organization != "" {
		conditions = append(conditions, fmt.Sprintf("organization ILIKE %s", arg("%"+filter.Organization+"%")))
	}
	if filter.Region != "" {
		conditions = append(conditions, fmt.Sprintf("region ILIKE %s", arg("%"+filter.Region+"%")))
	}
	if filter.Name != "" {
		pattern := arg("%" + filter.Name + "%")
		conditions = append(conditions, fmt.Sprintf("(first_name ILIKE %s OR last_name ILIKE %s)", pattern, pattern))
	}

	if len(conditions) > 0 {
		sb.WriteString("WHERE ")
		sb.WriteString(strings.Join(conditions, "\n  AND "))
		sb.WriteString("\n")
	}

	sb.WriteString("ORDER BY ")
	sb.WriteString(orderClause(filter))
	sb.WriteString("\nLIMIT ")
	sb.WriteString(arg(filter.Limit))
	return sb.String(), args
}

// tierClause turns a set of tier names into score-range disjunctions on
// the 20-point bands.
func tierClause(column string, ordered, selected []string, arg func(any) string) string {
	if len(selected) == 0 {
		return ""
	}
	ranges := make([]string, 0, len(selected))
	for idx, name := range ordered {
		if !containsTier(selected, name) {
			continue
		}
		lo := idx * 20
		if idx == len(ordered)-1 {
			ranges = append(ranges, fmt.Sprintf("%s >= %s", column, arg(lo)))
			continue
		}
		ranges = append(ranges, fmt.Sprintf("(%s >= %s AND %s < %s)", column, arg(lo), column, arg(lo+20)))
	}
	if len(ranges) == 0 {
		return ""
	}
	return "(" + strings.Join(ranges, " OR ") + ")"
}

func containsTier(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func orderClause(filter domain.Filter) string {
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	switch filter.SortBy {
	case domain.SortProximity:
		return "proximity_score " + direction + " NULLS LAST, id ASC"
	case domain.SortCapacity:
		return "capacity_score " + direction + " NULLS LAST, id ASC"
	case domain.SortFamiliarity:
		return "familiarity " + direction + ", id ASC"
	case domain.SortLastContact:
		return "last_contact_at " + direction + " NULLS LAST, id ASC"
	case domain.SortInteractions:
		return "interaction_count " + direction + ", id ASC"
	case domain.SortName:
		return "last_name " + direction + ", first_name " + direction + ", id ASC"
	default:
		return "familiarity DESC, last_contact_at DESC NULLS LAST, id ASC"
	}
}

func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*domain.Contact, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+contactColumns+`
FROM contacts
WHERE id = $1
`, id)

	contact, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrContactNotFound, "get contact", fmt.Errorf("id=%d", id))
		}
		return nil, fmt.Errorf("get contact by id: %w", err)
	}
	return &contact, nil
}

// ResolveByIDs fetches a batch of contacts. Missing ids are silently
// dropped and the returned order is unspecified.
func (r *ContactRepository) ResolveByIDs(ctx context.Context, ids []int64) ([]domain.Contact, error) {
	if len(ids) == 0 {
		return []domain.Contact{}, nil
	}

	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+contactColumns+`
FROM contacts
WHERE id IN (`+strings.Join(placeholders, ",")+`)
`, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve contacts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Contact, 0, len(ids))
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolved contacts: %w", err)
	}
	return out, nil
}

func (r *ContactRepository) MarkOutreachQueued(ctx context.Context, id int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE contacts
SET outreach_queued_at = $2, updated_at = $2
WHERE id = $1
`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("mark outreach queued: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark outreach queued rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrContactNotFound, "mark outreach queued", fmt.Errorf("id=%d", id))
	}
	return nil
}

type contactScanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(row contactScanner) (domain.Contact, error) {
	var contact domain.Contact
	var organization, role, region, fitType sql.NullString
	var proximity, capacity sql.NullInt64
	var lastContact, outreachQueued sql.NullTime
	var readinessRaw []byte

	err := row.Scan(
		&contact.ID,
		&contact.FirstName,
		&contact.LastName,
		&organization,
		&role,
		&region,
		&fitType,
		&proximity,
		&capacity,
		&contact.Familiarity,
		&lastContact,
		&contact.InteractionCount,
		&readinessRaw,
		&outreachQueued,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		return domain.Contact{}, err
	}

	contact.Organization = organization.String
	contact.Role = role.String
	contact.Region = region.String
	contact.FitType = domain.FitType(fitType.String)
	if proximity.Valid {
		score := int(proximity.Int64)
		contact.ProximityScore = &score
	}
	if capacity.Valid {
		score := int(capacity.Int64)
		contact.CapacityScore = &score
	}
	if lastContact.Valid {
		t := lastContact.Time
		contact.LastContactAt = &t
	}
	if outreachQueued.Valid {
		t := outreachQueued.Time
		contact.OutreachQueuedAt = &t
	}
	if len(readinessRaw) > 0 {
		if err := json.Unmarshal(readinessRaw, &contact.AskReadiness); err != nil {
			return domain.Contact{}, fmt.Errorf("unmarshal ask readiness: %w", err)
		}
	}
	return contact, nil
}
