// Package supabase stores the ledger in a Postgres table exposed through
// Supabase's PostgREST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"familybudget/internal/core"
	"familybudget/internal/ledger"
)

// pageSize stays below PostgREST's default max-rows.
const pageSize = 1000

// CreateTableSQL is the table the repository expects.
const CreateTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    id          BIGSERIAL PRIMARY KEY,
    recorded_at TEXT NOT NULL,
    user_name   TEXT NOT NULL,
    category    TEXT NOT NULL,
    amount      NUMERIC NOT NULL,
    comment     TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`

var _ ledger.Store = (*Repository)(nil)

type Repository struct {
	client *supabase.Client
	table  string
	loc    *time.Location
}

func NewRepository(url, key, table string, loc *time.Location) (*Repository, error) {
	if strings.TrimSpace(url) == "" || strings.TrimSpace(key) == "" {
		return nil, errors.New("missing SUPABASE_URL or SUPABASE_KEY")
	}
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	if table == "" {
		table = "expenses"
	}
	if loc == nil {
		loc = time.Local
	}
	return &Repository{client: client, table: table, loc: loc}, nil
}

// Append inserts one record. The context is only checked before the call;
// the PostgREST client has no per-request context.
func (r *Repository) Append(ctx context.Context, row core.ExpenseRow) error {
	if err := row.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return core.NewStoreError("append", err)
	}
	row.Timestamp = row.Timestamp.In(r.loc)
	_, _, err := r.client.From(r.table).Insert(encodeRecord(row), false, "", "minimal", "").Execute()
	if err != nil {
		return core.NewStoreError("append", fmt.Errorf("insert into %s: %w", r.table, err))
	}
	return nil
}

// ReadAll pages through the table in id order.
func (r *Repository) ReadAll(ctx context.Context) ([]core.ExpenseRow, error) {
	cols := strings.Join(core.LedgerSchema.Fields(), ",")
	return readPages(ctx, r.loc, func(from, to int) ([]byte, error) {
		data, _, err := r.client.From(r.table).
			Select(cols, "", false).
			Order("id", &postgrest.OrderOpts{Ascending: true}).
			Range(from, to, "").
			Execute()
		if err != nil {
			return nil, fmt.Errorf("select from %s: %w", r.table, err)
		}
		return data, nil
	})
}

// readPages fetches pages of pageSize records until a short page arrives.
// Row numbers in errors count every stored record, skipped empty ones too.
func readPages(ctx context.Context, loc *time.Location, fetch func(from, to int) ([]byte, error)) ([]core.ExpenseRow, error) {
	var out []core.ExpenseRow
	for from := 0; ; from += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, core.NewStoreError("read", err)
		}
		data, err := fetch(from, from+pageSize-1)
		if err != nil {
			return nil, core.NewStoreError("read", err)
		}
		page, n, err := decodeRecords(data, from, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if n < pageSize {
			return out, nil
		}
	}
}

func encodeRecord(row core.ExpenseRow) map[string]any {
	fields := core.LedgerSchema.Fields()
	vals := core.LedgerSchema.Values(row)
	rec := make(map[string]any, len(fields))
	for i, f := range fields {
		rec[f] = fmt.Sprint(vals[i])
	}
	return rec
}

// decodeRecords decodes one JSON page. offset is the number of records read
// before this page and is used for row numbers in errors. n counts records
// in the page including skipped empty ones.
func decodeRecords(data []byte, offset int, loc *time.Location) (rows []core.ExpenseRow, n int, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var recs []map[string]any
	if err := dec.Decode(&recs); err != nil {
		return nil, 0, core.NewStoreError("read", fmt.Errorf("decode records: %w", err))
	}
	fields := core.LedgerSchema.Fields()
	idx := core.LedgerSchema.Positional()
	for i, rec := range recs {
		cells := make([]any, len(fields))
		for j, f := range fields {
			v, ok := rec[f]
			if !ok && i == 0 {
				return nil, 0, &core.RowError{Err: fmt.Errorf("%w: missing field %s", core.ErrSchemaMismatch, f)}
			}
			if num, isNum := v.(json.Number); isNum {
				v = num.String()
			}
			cells[j] = v
		}
		row, ok, err := core.LedgerSchema.Decode(idx, offset+i+1, cells, loc)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return rows, len(recs), nil
}
