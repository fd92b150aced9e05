// Package render builds every user-visible text of the bot. Amounts are kept
// exact everywhere else and rounded to two decimals only here.
package render

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"familybudget/internal/budget"
	"familybudget/internal/core"
)

// Keyboard labels. The transport decodes them into typed intents once.
const (
	LabelBalance = "💰 Баланс"
	LabelAdd     = "➕ Додати витрату"
	LabelStats   = "📊 Статистика"
	LabelReport  = "📅 Звіт за сьогодні"
	LabelCancel  = "❌ Скасувати"
	LabelBack    = "🔙 Назад"
)

// Command is a bot command with its menu description.
type Command struct {
	Name        string
	Description string
}

// Commands is the command list registered with the chat platform.
var Commands = []Command{
	{Name: "start", Description: "Запустити бота / головне меню"},
	{Name: "balance", Description: "Переглянути баланс"},
	{Name: "add", Description: "Додати витрату"},
	{Name: "cancel", Description: "Скасувати дію"},
	{Name: "stats", Description: "Статистика за місяць"},
	{Name: "report", Description: "Звіт за день"},
}

// MainMenuRows is the layout of the main menu keyboard.
func MainMenuRows() [][]string {
	return [][]string{
		{LabelBalance},
		{LabelAdd, LabelStats},
		{LabelReport},
		{LabelCancel},
	}
}

// CategoryRows lays the catalog out two per row followed by the back button.
func CategoryRows(catalog *core.Catalog) [][]string {
	var rows [][]string
	var row []string
	for _, c := range catalog.Categories() {
		row = append(row, string(c))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return append(rows, []string{LabelBack})
}

// Texts renders messages with a fixed display currency.
type Texts struct {
	Currency string
}

func New(currency string) *Texts {
	if strings.TrimSpace(currency) == "" {
		currency = "zł"
	}
	return &Texts{Currency: currency}
}

func (t *Texts) MainMenu() string       { return "Оберіть дію:" }
func (t *Texts) CategoryPrompt() string { return "Оберіть категорію:" }
func (t *Texts) UnknownCategory() string {
	return "❗ Оберіть категорію з клавіатури."
}
func (t *Texts) InvalidAmount() string  { return "❗ Введіть число." }
func (t *Texts) NegativeAmount() string { return "❗ Сума не може бути від'ємною." }
func (t *Texts) CommentPrompt() string  { return "Введіть коментар (або '-' якщо немає):" }
func (t *Texts) Cancelled() string      { return "Скасовано" }
func (t *Texts) AccessDenied() string   { return "⛔ У вас немає доступу до цього бота." }
func (t *Texts) Busy() string           { return "⏳ Зачекайте, попередня витрата ще записується." }
func (t *Texts) RateLimited() string    { return "⏳ Забагато повідомлень. Спробуйте за хвилину." }
func (t *Texts) CommitFailed() string {
	return "⚠️ Не вдалося записати витрату. Надішліть коментар ще раз або натисніть «" + LabelCancel + "»."
}
func (t *Texts) ReadFailed() string { return "⚠️ Не вдалося отримати дані. Спробуйте пізніше." }

func (t *Texts) AmountPrompt(cat core.Category) string {
	return fmt.Sprintf("Категорія: %s\nВведіть суму витрати (в %s):", cat, t.Currency)
}

// Committed confirms a recorded row together with its category balance.
func (t *Texts) Committed(row core.ExpenseRow, b budget.CategoryBalance) string {
	return fmt.Sprintf("✅ Витрату додано:\nКатегорія: %s = %s %s\n%s / %s → Залишок: %s %s (%s%%)",
		row.Category, money(row.Amount), t.Currency,
		b.Limit.StringFixed(0), money(b.Spent),
		money(b.Remaining), t.Currency, b.PercentRemaining.StringFixed(0))
}

// CommittedNoBalance confirms a recorded row when the balance read failed.
func (t *Texts) CommittedNoBalance(row core.ExpenseRow) string {
	return fmt.Sprintf("✅ Витрату додано:\nКатегорія: %s = %s %s\n⚠️ Баланс тимчасово недоступний.",
		row.Category, money(row.Amount), t.Currency)
}

// Balance renders the all-categories view.
func (t *Texts) Balance(balances []budget.CategoryBalance) string {
	var b strings.Builder
	b.WriteString("📈 Баланс категорій:\n")
	for _, c := range balances {
		fmt.Fprintf(&b, "• %s: %s / %s → Залишок: %s %s (%s%%)",
			c.Category, money(c.Spent), c.Limit.String(), money(c.Remaining), t.Currency, c.PercentRemaining.StringFixed(0))
		if c.OverBudget() {
			b.WriteString(" ⚠️ перевищено")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// MonthStatistics renders the month-to-date listing and the ranking.
func (t *Texts) MonthStatistics(st budget.MonthStatistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Статистика за %s\n", st.To.Format("January 2006"))
	for _, u := range st.Usage {
		fmt.Fprintf(&b, "• %s: %s / %s %s (%s%%)\n", u.Category, money(u.Spent), u.Limit.String(), t.Currency, u.PercentUsed.StringFixed(0))
	}
	b.WriteString("\n🏆 Топ-3 категорії за витратами:\n")
	for _, r := range st.Ranking {
		fmt.Fprintf(&b, "%s: %s %s\n", r.Category, money(r.Total), t.Currency)
	}
	return b.String()
}

// DailyReport renders the two report messages: the itemised list, then the
// per-category totals with the day total.
func (t *Texts) DailyReport(rep budget.DayReport) (items, totals string) {
	lines := []string{fmt.Sprintf("📅 Витрати за %s:", rep.Date.Format(core.DateLayout))}
	for _, r := range rep.Items {
		lines = append(lines, fmt.Sprintf("• %s %s – %s (%s)", r.Amount.String(), t.Currency, r.Category, r.User))
	}
	items = strings.Join(lines, "\n")

	lines = []string{"📊 Підсумок по категоріях:"}
	for _, c := range rep.Totals {
		lines = append(lines, fmt.Sprintf("• %s: %s %s", c.Category, money(c.Total), t.Currency))
	}
	lines = append(lines, fmt.Sprintf("\n💸 Загальні витрати за день: %s %s", money(rep.Total), t.Currency))
	totals = strings.Join(lines, "\n")
	return items, totals
}

// ChartTitle is the caption of the monthly chart.
func (t *Texts) ChartTitle(st budget.MonthStatistics) string {
	return fmt.Sprintf("Витрати за %s, %s", st.To.Format("January 2006"), t.Currency)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
