package google

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"familybudget/internal/core"
)

// decodeValues converts a values matrix (as returned by the Sheets API) into
// ledger rows. The first row must be the header; columns are located by name
// so that reordered or extra columns are tolerated. An empty sheet is an
// empty ledger.
func decodeValues(values [][]any, loc *time.Location) ([]core.ExpenseRow, error) {
	if len(values) == 0 {
		return nil, nil
	}
	idx, err := core.LedgerSchema.Index(toStrings(values[0]))
	if err != nil {
		return nil, err
	}
	out := make([]core.ExpenseRow, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		r, ok, err := core.LedgerSchema.Decode(idx, i, values[i], loc)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// rowValues lays a row out in schema order. Amounts are written as numbers so
// that sheet formulas keep working, unless a float cannot hold the value
// exactly; then the decimal text is written and read back as such.
func rowValues(r core.ExpenseRow, loc *time.Location) []any {
	if loc != nil {
		r.Timestamp = r.Timestamp.In(loc)
	}
	vals := core.LedgerSchema.Values(r)
	for i, v := range vals {
		if d, ok := v.(decimal.Decimal); ok {
			vals[i] = amountCell(d)
		}
	}
	return vals
}

func amountCell(d decimal.Decimal) any {
	f, _ := d.Float64()
	if decimal.NewFromFloat(f).Equal(d) {
		return f
	}
	return d.String()
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
