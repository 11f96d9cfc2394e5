// Package repository provides the core.Store implementations: Postgres for
// production and Memory for tests.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/caseflow/caseflow/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL error code for unique-constraint hits.
const uniqueViolation = "23505"

// Postgres implements core.Store over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// InTx runs fn inside one transaction, committing on nil and rolling back
// on error. This is the per-row scope the batch reconciler relies on.
func (p *Postgres) InTx(ctx context.Context, fn func(core.Tx) error) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func (p *Postgres) CreateImport(ctx context.Context, b *core.ImportBatch) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO imports (id, file_name, total_rows, status, success_count, failure_count, imported_by, created_at)
		VALUES ($1, $2, $3, $4, 0, 0, $5, $6)
	`, b.ID, b.FileName, b.TotalRows, string(b.Status), b.ImportedBy, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert import: %w", err)
	}
	return nil
}

func (p *Postgres) GetImport(ctx context.Context, id string) (*core.ImportBatch, error) {
	var b core.ImportBatch
	err := p.pool.QueryRow(ctx, `
		SELECT id, file_name, total_rows, status, success_count, failure_count, imported_by, created_at
		FROM imports WHERE id = $1
	`, id).Scan(&b.ID, &b.FileName, &b.TotalRows, &b.Status, &b.SuccessCount, &b.FailureCount, &b.ImportedBy, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select import: %w", err)
	}
	return &b, nil
}

// AddImportCounts increments the batch counters in place so concurrent or
// resumed chunk submissions stay additive.
func (p *Postgres) AddImportCounts(ctx context.Context, id string, success, failure int) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE imports
		SET success_count = success_count + $1,
			failure_count = failure_count + $2
		WHERE id = $3
	`, success, failure, id)
	if err != nil {
		return fmt.Errorf("update import counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (p *Postgres) GetCase(ctx context.Context, id string) (*core.Case, error) {
	return scanCase(p.pool.QueryRow(ctx, selectCase+` WHERE id = $1`, id))
}

func (p *Postgres) CaseHistory(ctx context.Context, caseRef string) ([]core.HistoryEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, case_id, action, user_id, new_value, created_at
		FROM case_history WHERE case_id = $1
		ORDER BY created_at DESC
	`, caseRef)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	entries := make([]core.HistoryEntry, 0)
	for rows.Next() {
		var h core.HistoryEntry
		if err := rows.Scan(&h.ID, &h.CaseRef, &h.Action, &h.UserID, &h.NewValue, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

func (p *Postgres) ListCases(ctx context.Context, f core.CaseFilter) ([]core.Case, error) {
	where, args := caseWhere(f)

	if f.Cursor != "" {
		where = append(where, fmt.Sprintf(
			"(created_at, id) <= (SELECT created_at, id FROM cases WHERE id = $%d)", len(args)+1))
		args = append(args, f.Cursor)
	}

	query := selectCase
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args)+1)
	args = append(args, f.Limit+1)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select cases: %w", err)
	}
	defer rows.Close()

	items := make([]core.Case, 0, f.Limit+1)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func (p *Postgres) CountCases(ctx context.Context, f core.CaseFilter) (int64, error) {
	where, args := caseWhere(f)
	query := "SELECT COUNT(*) FROM cases"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	var n int64
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return n, nil
}

// DeleteCase cascades the history delete and the case delete in one
// transaction.
func (p *Postgres) DeleteCase(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM case_history WHERE case_id = $1`, id); err != nil {
			return fmt.Errorf("delete history: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM cases WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete case: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return core.ErrNotFound
		}
		return nil
	})
}

// caseWhere builds the shared filter clauses for listing and counting.
func caseWhere(f core.CaseFilter) ([]string, []any) {
	var where []string
	var args []any

	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(case_id ILIKE $%d OR applicant_name ILIKE $%d OR email ILIKE $%d)", n, n, n))
	}
	return where, args
}

// pgTx adapts a pgx transaction to the core.Tx row scope.
type pgTx struct {
	tx pgx.Tx
}

const selectCase = `
	SELECT id, case_id, applicant_name, dob, email, phone, category, priority, status, import_id, created_at, updated_at
	FROM cases`

func (t *pgTx) FindCaseByCaseID(ctx context.Context, caseID string) (*core.Case, error) {
	return scanCase(t.tx.QueryRow(ctx, selectCase+` WHERE case_id = $1`, caseID))
}

func (t *pgTx) CreateCase(ctx context.Context, c *core.Case) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO cases (id, case_id, applicant_name, dob, email, phone, category, priority, status, import_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`, c.ID, c.CaseID, c.ApplicantName, c.DOB, nullable(c.Email), nullable(c.Phone),
		c.Category, c.Priority, string(c.Status), nullable(c.ImportID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("case %s: %w", c.CaseID, core.ErrCaseIDExists)
		}
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateCase(ctx context.Context, c *core.Case) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE cases
		SET applicant_name = $1, dob = $2, email = $3, phone = $4,
			category = $5, priority = $6, status = $7, import_id = $8, updated_at = NOW()
		WHERE case_id = $9
	`, c.ApplicantName, c.DOB, nullable(c.Email), nullable(c.Phone),
		c.Category, c.Priority, string(c.Status), nullable(c.ImportID), c.CaseID)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (t *pgTx) AppendHistory(ctx context.Context, h *core.HistoryEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO case_history (id, case_id, action, user_id, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, h.ID, h.CaseRef, string(h.Action), h.UserID, h.NewValue, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// nullable maps "" to SQL NULL for optional text columns.
func nullable(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*core.Case, error) {
	var (
		c                      core.Case
		email, phone, importID pgtype.Text
	)
	err := row.Scan(&c.ID, &c.CaseID, &c.ApplicantName, &c.DOB, &email, &phone,
		&c.Category, &c.Priority, &c.Status, &importID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan case: %w", err)
	}
	c.Email = email.String
	c.Phone = phone.String
	c.ImportID = importID.String
	return &c, nil
}
