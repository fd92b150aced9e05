package budget

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"familybudget/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func row(ts time.Time, cat core.Category, amount string) core.ExpenseRow {
	return core.NewExpenseRow(ts, "tester", cat, dec(amount), "-")
}

func testCatalog() *core.Catalog {
	return core.MustCatalog([]core.BudgetLimit{
		{Category: "Rent", Limit: dec("1000")},
		{Category: "Food", Limit: dec("400")},
		{Category: "Shopping", Limit: dec("200")},
		{Category: "Misc", Limit: decimal.Zero},
	})
}

func TestTotalForCategoryIsAdditive(t *testing.T) {
	ts := time.Date(2025, 4, 3, 12, 0, 0, 0, time.UTC)
	rows := []core.ExpenseRow{row(ts, "Food", "10.10"), row(ts, "Rent", "500")}
	beforeFood := TotalForCategory(rows, "Food")
	beforeRent := TotalForCategory(rows, "Rent")

	rows = append(rows, row(ts, "Food", "0.20"))
	if got := TotalForCategory(rows, "Food"); !got.Equal(beforeFood.Add(dec("0.20"))) {
		t.Fatalf("food total: got %s", got)
	}
	if got := TotalForCategory(rows, "Rent"); !got.Equal(beforeRent) {
		t.Fatalf("rent total changed: %s", got)
	}
	if got := TotalForCategory(rows, "Nope"); !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
}

func TestTotalForCategoryNoDrift(t *testing.T) {
	ts := time.Date(2025, 4, 3, 12, 0, 0, 0, time.UTC)
	var rows []core.ExpenseRow
	for i := 0; i < 1000; i++ {
		rows = append(rows, row(ts, "Food", "0.1"))
	}
	if got := TotalForCategory(rows, "Food"); !got.Equal(dec("100")) {
		t.Fatalf("expected exactly 100, got %s", got)
	}
}

func TestBalanceAll(t *testing.T) {
	cat := testCatalog()

	empty := BalanceAll(nil, cat)
	if len(empty) != cat.Len() {
		t.Fatalf("expected %d entries, got %d", cat.Len(), len(empty))
	}
	for i, b := range empty {
		if b.Category != cat.Categories()[i] {
			t.Fatalf("entry %d out of order: %s", i, b.Category)
		}
		if !b.Spent.IsZero() {
			t.Fatalf("%s: expected zero spent", b.Category)
		}
	}

	ts := time.Date(2025, 4, 3, 12, 0, 0, 0, time.UTC)
	rows := []core.ExpenseRow{
		row(ts, "Food", "100"),
		row(ts, "Shopping", "250"),
		row(ts, "Misc", "30"),
		row(ts, "Legacy", "999"),
	}
	got := BalanceAll(rows, cat)
	byCat := map[core.Category]CategoryBalance{}
	for _, b := range got {
		byCat[b.Category] = b
	}
	if _, ok := byCat["Legacy"]; ok || len(got) != cat.Len() {
		t.Fatalf("unknown category must not appear: %+v", got)
	}

	cases := []struct {
		cat       core.Category
		remaining string
		percent   string
	}{
		{"Rent", "1000", "100"},
		{"Food", "300", "75"},
		{"Shopping", "-50", "-25"},
		{"Misc", "-30", "0"},
	}
	for _, tc := range cases {
		b := byCat[tc.cat]
		if !b.Remaining.Equal(dec(tc.remaining)) {
			t.Errorf("%s remaining: want %s got %s", tc.cat, tc.remaining, b.Remaining)
		}
		if !b.PercentRemaining.Equal(dec(tc.percent)) {
			t.Errorf("%s percent: want %s got %s", tc.cat, tc.percent, b.PercentRemaining)
		}
	}
	if !byCat["Shopping"].OverBudget() || byCat["Misc"].OverBudget() {
		t.Fatal("unexpected over-budget flags")
	}
}

func TestBalanceSingleCategory(t *testing.T) {
	ts := time.Date(2025, 4, 3, 12, 0, 0, 0, time.UTC)
	rows := []core.ExpenseRow{row(ts, "Food", "40"), row(ts, "Food", "60"), row(ts, "Rent", "1")}
	b := Balance(rows, testCatalog(), "Food")
	if !b.Spent.Equal(dec("100")) || !b.Limit.Equal(dec("400")) || !b.Remaining.Equal(dec("300")) || !b.PercentRemaining.Equal(dec("75")) {
		t.Fatalf("unexpected balance: %+v", b)
	}
}

func TestMonthlyStatistics(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	rows := []core.ExpenseRow{
		row(time.Date(2025, 5, 31, 23, 59, 0, 0, time.UTC), "Rent", "9999"),
		row(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), "Rent", "100"),
		row(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), "Shopping", "300"),
		row(time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC), "Food", "300"),
		row(time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC), "Food", "0"),
	}
	st := MonthlyStatistics(rows, testCatalog(), now)

	if !st.From.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window start: %v", st.From)
	}
	if len(st.Usage) != 4 {
		t.Fatalf("expected every category listed, got %d", len(st.Usage))
	}
	if !st.Usage[0].Spent.Equal(dec("100")) || !st.Usage[0].PercentUsed.Equal(dec("10")) {
		t.Fatalf("rent usage: %+v", st.Usage[0])
	}
	if !st.Usage[3].Spent.IsZero() || !st.Usage[3].PercentUsed.IsZero() {
		t.Fatalf("misc usage: %+v", st.Usage[3])
	}
	if !st.Total.Equal(dec("700")) {
		t.Fatalf("total: %s", st.Total)
	}

	want := []core.Category{"Food", "Shopping", "Rent"}
	if len(st.Ranking) != len(want) {
		t.Fatalf("ranking: %+v", st.Ranking)
	}
	for i, c := range want {
		if st.Ranking[i].Category != c {
			t.Fatalf("ranking[%d]: want %s got %s", i, c, st.Ranking[i].Category)
		}
	}
}

func TestMonthlyStatisticsRankingLimitsAndUnknown(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	ts := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	rows := []core.ExpenseRow{
		row(ts, "Legacy", "50"),
		row(ts, "Misc", "50"),
		row(ts, "Rent", "10"),
		row(ts, "Food", "70"),
	}
	st := MonthlyStatistics(rows, testCatalog(), now)
	want := []core.Category{"Food", "Misc", "Legacy"}
	if len(st.Ranking) != RankingSize {
		t.Fatalf("expected %d ranked, got %+v", RankingSize, st.Ranking)
	}
	for i, c := range want {
		if st.Ranking[i].Category != c {
			t.Fatalf("ranking[%d]: want %s got %s", i, c, st.Ranking[i].Category)
		}
	}

	if st := MonthlyStatistics(nil, testCatalog(), now); len(st.Ranking) != 0 || len(st.Usage) != 4 {
		t.Fatalf("empty ledger: %+v", st)
	}
}

func TestDailyReport(t *testing.T) {
	day := time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)
	rows := []core.ExpenseRow{
		row(time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC), "Rent", "1"),
		row(time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC), "Food", "50"),
		row(time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC), "Food", "30"),
		row(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), "Rent", "200"),
		row(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), "Food", "5"),
	}
	rep, ok := DailyReport(rows, day)
	if !ok {
		t.Fatal("expected a report")
	}
	if len(rep.Items) != 3 || !rep.Items[0].Amount.Equal(dec("50")) || rep.Items[2].Category != "Rent" {
		t.Fatalf("items: %+v", rep.Items)
	}
	if !rep.Total.Equal(dec("280")) {
		t.Fatalf("total: %s", rep.Total)
	}
	if len(rep.Totals) != 2 ||
		rep.Totals[0].Category != "Food" || !rep.Totals[0].Total.Equal(dec("80")) ||
		rep.Totals[1].Category != "Rent" || !rep.Totals[1].Total.Equal(dec("200")) {
		t.Fatalf("totals: %+v", rep.Totals)
	}

	// first-seen order, not catalog order
	rows = []core.ExpenseRow{
		row(time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC), "Shopping", "1"),
		row(time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC), "Rent", "1"),
	}
	rep, _ = DailyReport(rows, day)
	if rep.Totals[0].Category != "Shopping" {
		t.Fatalf("expected first-seen order, got %+v", rep.Totals)
	}
}

func TestDailyReportEmpty(t *testing.T) {
	rows := []core.ExpenseRow{row(time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC), "Rent", "1")}
	if _, ok := DailyReport(rows, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)); ok {
		t.Fatal("expected empty report")
	}
	if _, ok := DailyReport(nil, time.Now()); ok {
		t.Fatal("expected empty report for empty ledger")
	}
}
