package core

import (
	"fmt"
	"strings"
	"time"
)

// Column names one ledger field. Header is the sheet header text that existing
// spreadsheets already use; Field is the key used by SQL and JSON backends.
type Column struct {
	Header string
	Field  string
}

var (
	ColumnTimestamp = Column{Header: "Дата", Field: "recorded_at"}
	ColumnUser      = Column{Header: "Користувач", Field: "user_name"}
	ColumnCategory  = Column{Header: "Категорія", Field: "category"}
	ColumnAmount    = Column{Header: "Сума", Field: "amount"}
	ColumnComment   = Column{Header: "Коментар", Field: "comment"}
)

// Schema is the ordered field list shared by the write path and the read path.
type Schema struct {
	Columns []Column
}

// LedgerSchema is the column layout of the expense ledger.
var LedgerSchema = Schema{Columns: []Column{
	ColumnTimestamp,
	ColumnUser,
	ColumnCategory,
	ColumnAmount,
	ColumnComment,
}}

// ColumnIndex maps a column header to its position in a stored row.
type ColumnIndex map[string]int

// Headers returns the header names in write order.
func (s Schema) Headers() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Header
	}
	return out
}

// Fields returns the field keys in write order.
func (s Schema) Fields() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Field
	}
	return out
}

// Values returns the row cells in write order. The amount is kept as a
// decimal; each backend picks its own wire representation.
func (s Schema) Values(r ExpenseRow) []any {
	out := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		switch c {
		case ColumnTimestamp:
			out[i] = r.Timestamp.Format(TimestampLayout)
		case ColumnUser:
			out[i] = r.User
		case ColumnCategory:
			out[i] = string(r.Category)
		case ColumnAmount:
			out[i] = r.Amount
		case ColumnComment:
			out[i] = r.Comment
		}
	}
	return out
}

// Positional returns the index for rows already laid out in schema order.
func (s Schema) Positional() ColumnIndex {
	idx := make(ColumnIndex, len(s.Columns))
	for i, c := range s.Columns {
		idx[c.Header] = i
	}
	return idx
}

// Index locates every schema column in a stored header row. Extra columns
// are allowed; a missing column is a schema mismatch.
func (s Schema) Index(header []string) (ColumnIndex, error) {
	idx := make(ColumnIndex, len(s.Columns))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := idx[h]; dup {
			continue
		}
		idx[h] = i
	}
	var missing []string
	for _, c := range s.Columns {
		if _, ok := idx[c.Header]; !ok {
			missing = append(missing, c.Header)
		}
	}
	if len(missing) > 0 {
		return nil, &RowError{Err: fmt.Errorf("%w: missing %s; got headers=%v", ErrSchemaMismatch, strings.Join(missing, ","), header)}
	}
	return idx, nil
}

// Decode turns one stored row into an ExpenseRow. rowNum is used for error
// reporting only. A row with every schema cell empty is skipped (ok=false).
// Timestamps are interpreted in loc.
func (s Schema) Decode(idx ColumnIndex, rowNum int, cells []any, loc *time.Location) (row ExpenseRow, ok bool, err error) {
	cell := func(c Column) any {
		i, found := idx[c.Header]
		if !found || i >= len(cells) || cells[i] == nil {
			return ""
		}
		return cells[i]
	}
	text := func(c Column) string {
		switch v := cell(c).(type) {
		case string:
			return strings.TrimSpace(v)
		default:
			return strings.TrimSpace(fmt.Sprint(v))
		}
	}

	empty := true
	for _, c := range s.Columns {
		if text(c) != "" {
			empty = false
			break
		}
	}
	if empty {
		return ExpenseRow{}, false, nil
	}

	if loc == nil {
		loc = time.Local
	}
	ts, err := time.ParseInLocation(TimestampLayout, text(ColumnTimestamp), loc)
	if err != nil {
		return ExpenseRow{}, false, &RowError{Row: rowNum, Column: ColumnTimestamp.Header, Err: fmt.Errorf("%w: %v", ErrMalformedRow, err)}
	}
	amount, err := parseStoredAmount(cell(ColumnAmount))
	if err != nil {
		return ExpenseRow{}, false, &RowError{Row: rowNum, Column: ColumnAmount.Header, Err: err}
	}

	return ExpenseRow{
		Timestamp: ts,
		User:      text(ColumnUser),
		Category:  Category(text(ColumnCategory)),
		Amount:    amount,
		Comment:   text(ColumnComment),
	}, true, nil
}
