package ledger

import (
	"context"

	"familybudget/internal/core"
)

// Ports for the ledger store. Rows are only ever appended; every aggregate is
// computed from a full read.
type (
	Appender interface {
		// Append writes one row at the end of the ledger.
		Append(ctx context.Context, row core.ExpenseRow) error
	}

	Reader interface {
		// ReadAll returns every row in insertion order. A row that cannot be
		// decoded fails the whole read with a *core.RowError.
		ReadAll(ctx context.Context) ([]core.ExpenseRow, error)
	}

	Store interface {
		Appender
		Reader
	}
)
