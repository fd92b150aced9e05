package adapters

import (
	"context"
	"time"

	"familybudget/internal/core"
	"familybudget/internal/ledger"
	"familybudget/internal/log"
	"familybudget/internal/metrics"
)

// InstrumentedStore decorates a ledger store with metrics and structured logs.
// It also guarantees that transport failures surface as *core.StoreError.
type InstrumentedStore struct {
	next    ledger.Store
	backend string
	logger  *log.Logger
}

var _ ledger.Store = (*InstrumentedStore)(nil)

func NewInstrumentedStore(next ledger.Store, backend string, logger *log.Logger) *InstrumentedStore {
	return &InstrumentedStore{next: next, backend: backend, logger: logger.WithComponent(log.ComponentLedger)}
}

// Append implements ledger.Appender
func (s *InstrumentedStore) Append(ctx context.Context, row core.ExpenseRow) error {
	start := time.Now()
	err := s.next.Append(ctx, row)
	s.observe(ctx, log.OpAppend, start, err, log.FieldCategory, string(row.Category))
	return core.NewStoreError(log.OpAppend, err)
}

// ReadAll implements ledger.Reader
func (s *InstrumentedStore) ReadAll(ctx context.Context) ([]core.ExpenseRow, error) {
	start := time.Now()
	rows, err := s.next.ReadAll(ctx)
	s.observe(ctx, log.OpRead, start, err, log.FieldRows, len(rows))
	if err != nil {
		return nil, core.NewStoreError(log.OpRead, err)
	}
	return rows, nil
}

// Unwrap returns the decorated store.
func (s *InstrumentedStore) Unwrap() ledger.Store { return s.next }

func (s *InstrumentedStore) observe(ctx context.Context, op string, start time.Time, err error, args ...any) {
	elapsed := time.Since(start)
	metrics.LedgerOperationDuration.WithLabelValues(s.backend, op).Observe(elapsed.Seconds())
	fields := append([]any{log.FieldBackend, s.backend, log.FieldOperation, op, log.FieldDuration, elapsed.Milliseconds()}, args...)
	if err != nil {
		metrics.LedgerOperationErrorsTotal.WithLabelValues(s.backend, op).Inc()
		s.logger.ErrorContext(ctx, "Ledger operation failed", append(fields, log.FieldError, err.Error())...)
		return
	}
	s.logger.DebugContext(ctx, "Ledger operation done", fields...)
}
