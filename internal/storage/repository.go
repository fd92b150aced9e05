package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"familybudget/internal/core"
	"familybudget/internal/ledger"

	_ "modernc.org/sqlite"
)

const table = "expenses"

var _ ledger.Store = (*SQLiteRepository)(nil)

// SQLiteRepository keeps the ledger in a local SQLite file. Row order is the
// autoincrement id.
type SQLiteRepository struct {
	db  *sql.DB
	loc *time.Location
}

func NewSQLiteRepository(dbPath string, loc *time.Location) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}
	return &SQLiteRepository{db: db, loc: loc}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append inserts the row; amounts are stored as exact decimal text.
func (r *SQLiteRepository) Append(ctx context.Context, row core.ExpenseRow) error {
	if err := row.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	fields := core.LedgerSchema.Fields()
	vals := core.LedgerSchema.Values(rowIn(row, r.loc))
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = fmt.Sprint(v)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(fields, ", "), placeholders)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return core.NewStoreError("append", fmt.Errorf("insert expense: %w", err))
	}
	id, _ := res.LastInsertId()
	slog.DebugContext(ctx, "Expense saved to SQLite", "id", id, "category", row.Category, "amount", row.Amount.String())
	return nil
}

// ReadAll returns every row ordered by id.
func (r *SQLiteRepository) ReadAll(ctx context.Context) ([]core.ExpenseRow, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(core.LedgerSchema.Fields(), ", "), table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, core.NewStoreError("read", fmt.Errorf("query expenses: %w", err))
	}
	defer rows.Close()

	idx := core.LedgerSchema.Positional()
	n := len(core.LedgerSchema.Columns)
	var out []core.ExpenseRow
	rowNum := 0
	for rows.Next() {
		rowNum++
		cells := make([]string, n)
		ptrs := make([]any, n)
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, core.NewStoreError("read", fmt.Errorf("scan expense: %w", err))
		}
		anyCells := make([]any, n)
		for i, c := range cells {
			anyCells[i] = c
		}
		row, ok, err := core.LedgerSchema.Decode(idx, rowNum, anyCells, r.loc)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStoreError("read", err)
	}
	return out, nil
}

// Columns returns the ledger table's column names.
func (r *SQLiteRepository) Columns(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", table))
	if err != nil {
		return nil, core.NewStoreError("read", err)
	}
	defer rows.Close()
	return rows.Columns()
}

// CheckSchema verifies that every ledger field exists as a column.
func (r *SQLiteRepository) CheckSchema(ctx context.Context) error {
	cols, err := r.Columns(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c] = true
	}
	var missing []string
	for _, f := range core.LedgerSchema.Fields() {
		if !have[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &core.RowError{Err: fmt.Errorf("%w: table %s missing %s", core.ErrSchemaMismatch, table, strings.Join(missing, ","))}
	}
	return nil
}

func rowIn(row core.ExpenseRow, loc *time.Location) core.ExpenseRow {
	row.Timestamp = row.Timestamp.In(loc)
	return row
}
