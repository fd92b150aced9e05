// Package budget derives balance, monthly statistics and daily report views
// from a full ledger snapshot. Every function here is pure: the same rows and
// catalog always yield the same result.
package budget

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"familybudget/internal/core"
)

var hundred = decimal.NewFromInt(100)

// CategoryBalance is the spent/limit view of one category.
type CategoryBalance struct {
	Category         core.Category
	Spent            decimal.Decimal
	Limit            decimal.Decimal
	Remaining        decimal.Decimal
	PercentRemaining decimal.Decimal
}

// OverBudget reports whether spending exceeded a set limit.
func (b CategoryBalance) OverBudget() bool {
	return b.Limit.IsPositive() && b.Remaining.IsNegative()
}

// TotalForCategory sums the amounts of rows recorded under cat.
func TotalForCategory(rows []core.ExpenseRow, cat core.Category) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		if r.Category == cat {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// Balance computes the balance of a single category.
func Balance(rows []core.ExpenseRow, catalog *core.Catalog, cat core.Category) CategoryBalance {
	return newBalance(cat, TotalForCategory(rows, cat), catalog.Limit(cat))
}

// BalanceAll returns one balance per catalog category in display order.
// Rows whose category is not in the catalog do not contribute.
func BalanceAll(rows []core.ExpenseRow, catalog *core.Catalog) []CategoryBalance {
	totals := make(map[core.Category]decimal.Decimal, catalog.Len())
	for _, r := range rows {
		totals[r.Category] = totals[r.Category].Add(r.Amount)
	}
	cats := catalog.Categories()
	out := make([]CategoryBalance, 0, len(cats))
	for _, c := range cats {
		out = append(out, newBalance(c, totals[c], catalog.Limit(c)))
	}
	return out
}

func newBalance(cat core.Category, spent, limit decimal.Decimal) CategoryBalance {
	b := CategoryBalance{
		Category:  cat,
		Spent:     spent,
		Limit:     limit,
		Remaining: limit.Sub(spent),
	}
	if limit.IsPositive() {
		b.PercentRemaining = hundred.Sub(percentOf(spent, limit))
	}
	return b
}

// percentOf returns part/whole*100 with enough precision for display rounding.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	return part.Mul(hundred).DivRound(whole, 8)
}

// CategoryUsage is one line of the monthly statistics listing.
type CategoryUsage struct {
	Category    core.Category
	Spent       decimal.Decimal
	Limit       decimal.Decimal
	PercentUsed decimal.Decimal
}

// CategoryTotal is an amount spent in one category.
type CategoryTotal struct {
	Category core.Category
	Total    decimal.Decimal
}

// MonthStatistics is the month-to-date view.
type MonthStatistics struct {
	From    time.Time
	To      time.Time
	Usage   []CategoryUsage
	Ranking []CategoryTotal
	Total   decimal.Decimal
}

// RankingSize is the number of categories in the monthly ranking.
const RankingSize = 3

// MonthStart returns midnight of the first day of now's month, in now's location.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// MonthlyStatistics aggregates rows recorded in [first of now's month, now].
//
// Usage lists every catalog category in display order, zero spend included.
// Ranking holds at most RankingSize categories with nonzero spend, ordered by
// spent amount descending. Equal amounts keep catalog order; categories not in
// the catalog follow in the order they first appear.
func MonthlyStatistics(rows []core.ExpenseRow, catalog *core.Catalog, now time.Time) MonthStatistics {
	from := MonthStart(now)
	totals := make(map[core.Category]decimal.Decimal)
	var unknown []core.Category
	total := decimal.Zero
	for _, r := range rows {
		if r.Timestamp.Before(from) || r.Timestamp.After(now) {
			continue
		}
		if _, seen := totals[r.Category]; !seen && !catalog.Contains(r.Category) {
			unknown = append(unknown, r.Category)
		}
		totals[r.Category] = totals[r.Category].Add(r.Amount)
		total = total.Add(r.Amount)
	}

	cats := catalog.Categories()
	stats := MonthStatistics{From: from, To: now, Total: total, Usage: make([]CategoryUsage, 0, len(cats))}
	for _, c := range cats {
		u := CategoryUsage{Category: c, Spent: totals[c], Limit: catalog.Limit(c)}
		if u.Limit.IsPositive() {
			u.PercentUsed = percentOf(u.Spent, u.Limit)
		}
		stats.Usage = append(stats.Usage, u)
	}

	var ranked []CategoryTotal
	candidates := append(append([]core.Category(nil), cats...), unknown...)
	for _, c := range candidates {
		if v := totals[c]; !v.IsZero() {
			ranked = append(ranked, CategoryTotal{Category: c, Total: v})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total.GreaterThan(ranked[j].Total)
	})
	if len(ranked) > RankingSize {
		ranked = ranked[:RankingSize]
	}
	stats.Ranking = ranked
	return stats
}

// DayReport is the itemised view of one calendar day.
type DayReport struct {
	Date   time.Time
	Items  []core.ExpenseRow
	Totals []CategoryTotal
	Total  decimal.Decimal
}

// DailyReport collects the rows recorded on date's calendar day. Items keep
// ledger order and Totals are grouped in the order categories first appear
// that day. ok is false when nothing was recorded.
func DailyReport(rows []core.ExpenseRow, date time.Time) (report DayReport, ok bool) {
	report = DayReport{Date: date, Total: decimal.Zero}
	pos := make(map[core.Category]int)
	for _, r := range rows {
		if !r.Day(date) {
			continue
		}
		report.Items = append(report.Items, r)
		i, seen := pos[r.Category]
		if !seen {
			i = len(report.Totals)
			pos[r.Category] = i
			report.Totals = append(report.Totals, CategoryTotal{Category: r.Category, Total: decimal.Zero})
		}
		report.Totals[i].Total = report.Totals[i].Total.Add(r.Amount)
		report.Total = report.Total.Add(r.Amount)
	}
	return report, len(report.Items) > 0
}
