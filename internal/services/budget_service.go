package services

import (
	"context"
	"fmt"
	"time"

	"familybudget/internal/budget"
	"familybudget/internal/core"
	"familybudget/internal/ledger"
)

// BudgetService reads the ledger in full and derives the aggregate views.
// It never touches conversation state, so it is safe to call from any
// goroutine at any time.
type BudgetService struct {
	store   ledger.Reader
	catalog *core.Catalog
	now     func() time.Time
}

func NewBudgetService(store ledger.Reader, catalog *core.Catalog, now func() time.Time) *BudgetService {
	if now == nil {
		now = time.Now
	}
	return &BudgetService{store: store, catalog: catalog, now: now}
}

// Now returns the service clock's current time.
func (s *BudgetService) Now() time.Time { return s.now() }

// Balance returns the all-categories balance.
func (s *BudgetService) Balance(ctx context.Context) ([]budget.CategoryBalance, error) {
	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	return budget.BalanceAll(rows, s.catalog), nil
}

// MonthlyStatistics returns the month-to-date view. The clock is read once,
// so the window and the month label always agree.
func (s *BudgetService) MonthlyStatistics(ctx context.Context) (budget.MonthStatistics, error) {
	now := s.now()
	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		return budget.MonthStatistics{}, fmt.Errorf("monthly statistics: %w", err)
	}
	return budget.MonthlyStatistics(rows, s.catalog, now), nil
}

// DailyReport returns the report for date's calendar day; ok is false when
// nothing was recorded that day.
func (s *BudgetService) DailyReport(ctx context.Context, date time.Time) (rep budget.DayReport, ok bool, err error) {
	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		return budget.DayReport{}, false, fmt.Errorf("daily report: %w", err)
	}
	rep, ok = budget.DailyReport(rows, date)
	return rep, ok, nil
}

// Ping performs a full read to check that the ledger is reachable and well formed.
func (s *BudgetService) Ping(ctx context.Context) error {
	_, err := s.store.ReadAll(ctx)
	return err
}
