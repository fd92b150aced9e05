package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the minute-precision layout used for ledger timestamps.
const TimestampLayout = "2006-01-02 15:04"

// DateLayout is the day prefix of TimestampLayout.
const DateLayout = "2006-01-02"

type (
	// Category is one of the fixed, named expense classifications.
	Category string

	// User identifies the person behind a chat message.
	User struct {
		ID          int64
		DisplayName string
	}

	// ExpenseRow is one committed expense. Rows are never updated or deleted;
	// their identity is their position in the ledger.
	ExpenseRow struct {
		Timestamp time.Time
		User      string
		Category  Category
		Amount    decimal.Decimal
		Comment   string
	}
)

func (c Category) String() string {
	return string(c)
}

// NewExpenseRow builds a row stamped at now, truncated to the minute.
func NewExpenseRow(now time.Time, user string, category Category, amount decimal.Decimal, comment string) ExpenseRow {
	return ExpenseRow{
		Timestamp: now.Truncate(time.Minute),
		User:      user,
		Category:  category,
		Amount:    amount,
		Comment:   comment,
	}
}

// Validate checks the invariants a row must satisfy before it is written.
func (r ExpenseRow) Validate() error {
	if r.Timestamp.IsZero() {
		return errors.New("timestamp cannot be zero")
	}
	if strings.TrimSpace(string(r.Category)) == "" {
		return ErrUnknownCategory
	}
	if r.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Day reports whether the row was recorded on the same calendar day as d,
// comparing in the location of d.
func (r ExpenseRow) Day(d time.Time) bool {
	return r.Timestamp.In(d.Location()).Format(DateLayout) == d.Format(DateLayout)
}
