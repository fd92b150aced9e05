package conversation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"familybudget/internal/core"
	"familybudget/internal/ledger/memory"
	"familybudget/internal/log"
	"familybudget/internal/render"
)

var fixedNow = time.Date(2025, 6, 15, 18, 42, 17, 0, time.UTC)

type fakeStore struct {
	*memory.Store
	mu        sync.Mutex
	appendErr error
	readErr   error
	appends   int
	// gate, when set, blocks Append until closed.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeStore() *fakeStore { return &fakeStore{Store: memory.New()} }

func (f *fakeStore) Append(ctx context.Context, r core.ExpenseRow) error {
	f.mu.Lock()
	f.appends++
	err, gate, entered := f.appendErr, f.gate, f.entered
	f.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}
	return f.Store.Append(ctx, r)
}

func (f *fakeStore) ReadAll(ctx context.Context) ([]core.ExpenseRow, error) {
	f.mu.Lock()
	err := f.readErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.ReadAll(ctx)
}

type fakePublisher struct {
	rows []core.ExpenseRow
	err  error
}

func (p *fakePublisher) PublishExpenseRecorded(_ context.Context, r core.ExpenseRow) error {
	p.rows = append(p.rows, r)
	return p.err
}

var olena = core.User{ID: 1, DisplayName: "Olena"}

func newTestManager(store *fakeStore, allowed ...int64) *Manager {
	return NewManager(Config{
		Catalog: core.DefaultCatalog(),
		Store:   store,
		Texts:   render.New("zł"),
		Allowed: allowed,
		Now:     func() time.Time { return fixedNow },
		Logger:  log.New(log.Config{Output: &bytes.Buffer{}}),
	})
}

func mustHandle(t *testing.T, m *Manager, u core.User, ev Event) Reply {
	t.Helper()
	r, err := m.Handle(context.Background(), u, ev)
	if err != nil {
		t.Fatalf("%s %q: unexpected error %v", ev.Kind, ev.Text, err)
	}
	return r
}

func TestFullTraversalCommitsOneRow(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	m := newTestManager(store)
	m.publisher = pub

	r := mustHandle(t, m, olena, Event{Kind: EventAddExpense})
	if r.Keyboard != KeyboardCategories || m.Snapshot(1).State != AwaitingCategory {
		t.Fatalf("expected category selector, got %+v", r)
	}
	r = mustHandle(t, m, olena, Text("Шопінг"))
	if !strings.Contains(r.Text, "Категорія: Шопінг") || m.Snapshot(1).State != AwaitingAmount {
		t.Fatalf("unexpected amount prompt: %+v", r)
	}
	mustHandle(t, m, olena, Text("12,5"))
	snap := m.Snapshot(1)
	if snap.State != AwaitingComment || !snap.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	r = mustHandle(t, m, olena, Text("шкарпетки"))

	rows, _ := store.ReadAll(context.Background())
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	got := rows[0]
	if got.Category != "Шопінг" || !got.Amount.Equal(decimal.RequireFromString("12.5")) ||
		got.User != "Olena" || got.Comment != "шкарпетки" || !got.Timestamp.Equal(fixedNow.Truncate(time.Minute)) {
		t.Fatalf("unexpected row: %+v", got)
	}
	want := "✅ Витрату додано:\nКатегорія: Шопінг = 12.50 zł\n742 / 12.50 → Залишок: 729.50 zł (98%)"
	if r.Text != want || r.Keyboard != KeyboardMainMenu {
		t.Fatalf("unexpected confirmation:\n%s", r.Text)
	}
	if snap := m.Snapshot(1); snap.State != Idle || snap.Category != "" || snap.HasAmount {
		t.Fatalf("session not reset: %+v", snap)
	}
	if len(pub.rows) != 1 {
		t.Fatalf("expected one published event, got %d", len(pub.rows))
	}
}

func TestUnknownCategoryStaysAndWritesNothing(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)
	mustHandle(t, m, olena, Event{Kind: EventAddExpense})

	for _, in := range []string{"шопінг", "Food", "", "12"} {
		r, err := m.Handle(context.Background(), olena, Text(in))
		if !errors.Is(err, core.ErrUnknownCategory) {
			t.Fatalf("%q: expected ErrUnknownCategory, got %v", in, err)
		}
		if r.Keyboard != KeyboardKeep || r.Text != "❗ Оберіть категорію з клавіатури." {
			t.Fatalf("%q: unexpected reply %+v", in, r)
		}
		if m.Snapshot(1).State != AwaitingCategory {
			t.Fatalf("%q: state changed", in)
		}
	}
	if store.appends != 0 {
		t.Fatalf("expected no writes, got %d", store.appends)
	}
}

func TestBackFromCategoryReturnsToIdle(t *testing.T) {
	m := newTestManager(newFakeStore())
	mustHandle(t, m, olena, Event{Kind: EventAddExpense})
	r := mustHandle(t, m, olena, Event{Kind: EventBack, Text: render.LabelBack})
	if r.Keyboard != KeyboardMainMenu || m.Snapshot(1).State != Idle {
		t.Fatalf("expected main menu, got %+v", r)
	}
}

func TestBackOutsideCategoryIsText(t *testing.T) {
	m := newTestManager(newFakeStore())
	mustHandle(t, m, olena, Event{Kind: EventAddExpense})
	mustHandle(t, m, olena, Text("Спорт"))
	_, err := m.Handle(context.Background(), olena, Event{Kind: EventBack, Text: render.LabelBack})
	if !errors.Is(err, core.ErrInvalidAmount) || m.Snapshot(1).State != AwaitingAmount {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestAmountValidation(t *testing.T) {
	m := newTestManager(newFakeStore())
	mustHandle(t, m, olena, Event{Kind: EventAddExpense})
	mustHandle(t, m, olena, Text("Спорт"))

	cases := []struct {
		in   string
		err  error
		text string
	}{
		{"abc", core.ErrInvalidAmount, "❗ Введіть число."},
		{"-5", core.ErrNegativeAmount, "❗ Сума не може бути від'ємною."},
		{"1,2,3", core.ErrInvalidAmount, "❗ Введіть число."},
	}
	for _, tc := range cases {
		r, err := m.Handle(context.Background(), olena, Text(tc.in))
		if !errors.Is(err, tc.err) || r.Text != tc.text {
			t.Fatalf("%q: got %v / %q", tc.in, err, r.Text)
		}
		if m.Snapshot(1).State != AwaitingAmount {
			t.Fatalf("%q: state changed", tc.in)
		}
	}

	mustHandle(t, m, olena, Text("0"))
	if m.Snapshot(1).State != AwaitingComment {
		t.Fatal("zero amount must be accepted")
	}
}

func TestCancelFromAnyState(t *testing.T) {
	steps := [][]Event{
		{},
		{{Kind: EventAddExpense}},
		{{Kind: EventAddExpense}, Text("Спорт")},
		{{Kind: EventAddExpense}, Text("Спорт"), Text("10")},
	}
	for i, prefix := range steps {
		store := newFakeStore()
		m := newTestManager(store)
		for _, ev := range prefix {
			mustHandle(t, m, olena, ev)
		}
		for n := 0; n < 2; n++ {
			r := mustHandle(t, m, olena, Event{Kind: EventCancel})
			if r.Text != "Скасовано" || r.Keyboard != KeyboardMainMenu {
				t.Fatalf("case %d: unexpected reply %+v", i, r)
			}
			snap := m.Snapshot(1)
			if snap.State != Idle || snap.Category != "" || snap.HasAmount {
				t.Fatalf("case %d: session not reset: %+v", i, snap)
			}
		}
		if store.appends != 0 {
			t.Fatalf("case %d: cancel must not write", i)
		}
	}
}

func TestAddExpenseRestartsFlow(t *testing.T) {
	m := newTestManager(newFakeStore())
	mustHandle(t, m, olena, Event{Kind: EventAddExpense})
	mustHandle(t, m, olena, Text("Спорт"))
	mustHandle(t, m, olena, Event{Kind: EventAddExpense})
	if snap := m.Snapshot(1); snap.State != AwaitingCategory || snap.Category != "" {
		t.Fatalf("expected fresh flow, got %+v", snap)
	}
}

func TestAccessControl(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store, 1)
	stranger := core.User{ID: 99, DisplayName: "Eve"}

	for _, ev := range []Event{{Kind: EventStart}, {Kind: EventAddExpense}} {
		r, err := m.Handle(context.Background(), stranger, ev)
		if !errors.Is(err, core.ErrAccessDenied) || r.Text != "⛔ У вас немає доступу до цього бота." {
			t.Fatalf("%s: expected access denied, got %v %q", ev.Kind, err, r.Text)
		}
		if m.Snapshot(99).State != Idle {
			t.Fatalf("%s: stranger left Idle", ev.Kind)
		}
	}
	if r := mustHandle(t, m, stranger, Text("Спорт")); r.Text != "" {
		t.Fatalf("idle text must be ignored, got %q", r.Text)
	}
	if !m.Authorized(1) || m.Authorized(99) {
		t.Fatal("unexpected authorization result")
	}
	if !newTestManager(store).Authorized(12345) {
		t.Fatal("empty allow-list must be unrestricted")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	m := newTestManager(newFakeStore())
	taras := core.User{ID: 2, DisplayName: "Taras"}
	mustHandle(t, m, olena, Event{Kind: EventAddExpense})
	mustHandle(t, m, taras, Event{Kind: EventAddExpense})
	mustHandle(t, m, olena, Text("Спорт"))
	mustHandle(t, m, taras, Event{Kind: EventCancel})

	if m.Snapshot(1).State != AwaitingAmount || m.Snapshot(2).State != Idle {
		t.Fatalf("sessions interfered: %+v %+v", m.Snapshot(1), m.Snapshot(2))
	}
}

func TestCommitFailureKeepsDraft(t *testing.T) {
	store := newFakeStore()
	store.appendErr = core.NewStoreError("append", errors.New("quota exceeded"))
	m := newTestManager(store)
	mustHandle(t, m, olena, Event{Kind: EventAddExpense})
	mustHandle(t, m, olena, Text("Спорт"))
	mustHandle(t, m, olena, Text("40"))

	r, err := m.Handle(context.Background(), olena, Text("-"))
	if !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("expected store error, got %v", err)
	}
	if strings.Contains(r.Text, "quota") {
		t.Fatalf("internal details leaked: %q", r.Text)
	}
	snap := m.Snapshot(1)
	if snap.State != AwaitingComment || snap.Category != "Спорт" || !snap.Amount.Equal(decimal.NewFromInt(40)) || snap.Busy {
		t.Fatalf("draft not preserved: %+v", snap)
	}

	store.mu.Lock()
	store.appendErr = nil
	store.mu.Unlock()
	mustHandle(t, m, olena, Text("-"))
	if store.Len() != 1 || m.Snapshot(1).State != Idle {
		t.Fatalf("retry did not commit: len=%d state=%s", store.Len(), m.Snapshot(1).State)
	}
}

func TestBalanceReadFailureAfterCommit(t *testing.T) {
	store := newFakeStore()
	store.readErr = core.NewStoreError("read", errors.New("timeout"))
	m := newTestManager(store)
	mustHandle(t, m, olena, Event{Kind: EventAddExpense})
	mustHandle(t, m, olena, Text("Спорт"))
	mustHandle(t, m, olena, Text("40"))
	r := mustHandle(t, m, olena, Text("-"))
	if !strings.Contains(r.Text, "✅ Витрату додано") || !strings.Contains(r.Text, "недоступний") {
		t.Fatalf("unexpected reply: %q", r.Text)
	}
	if store.Len() != 1 || m.Snapshot(1).State != Idle {
		t.Fatal("row must be committed and session reset")
	}
}

func TestEventsDuringCommitAreRejected(t *testing.T) {
	store := newFakeStore()
	store.gate = make(chan struct{})
	store.entered = make(chan struct{})
	m := newTestManager(store)
	mustHandle(t, m, olena, Event{Kind: EventAddExpense})
	mustHandle(t, m, olena, Text("Спорт"))
	mustHandle(t, m, olena, Text("40"))

	done := make(chan Reply)
	go func() {
		r, _ := m.Handle(context.Background(), olena, Text("first"))
		done <- r
	}()
	<-store.entered

	for _, ev := range []Event{Text("second"), {Kind: EventCancel}, {Kind: EventAddExpense}} {
		r, err := m.Handle(context.Background(), olena, ev)
		if !errors.Is(err, core.ErrSessionBusy) || !strings.HasPrefix(r.Text, "⏳") {
			t.Fatalf("%s: expected busy, got %v %q", ev.Kind, err, r.Text)
		}
	}
	if !m.Snapshot(1).Busy {
		t.Fatal("expected busy snapshot")
	}

	close(store.gate)
	r := <-done
	if !strings.Contains(r.Text, "✅") {
		t.Fatalf("commit failed: %q", r.Text)
	}
	rows, _ := store.ReadAll(context.Background())
	if len(rows) != 1 || rows[0].Comment != "first" {
		t.Fatalf("expected exactly the first commit, got %+v", rows)
	}
}

func TestPublisherFailureDoesNotFailCommit(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(store)
	m.publisher = &fakePublisher{err: errors.New("broker down")}
	mustHandle(t, m, olena, Event{Kind: EventAddExpense})
	mustHandle(t, m, olena, Text("Спорт"))
	mustHandle(t, m, olena, Text("40"))
	if r := mustHandle(t, m, olena, Text("-")); !strings.Contains(r.Text, "✅") {
		t.Fatalf("unexpected reply: %q", r.Text)
	}
}

func TestStartResetsSession(t *testing.T) {
	m := newTestManager(newFakeStore())
	mustHandle(t, m, olena, Event{Kind: EventAddExpense})
	r := mustHandle(t, m, olena, Event{Kind: EventStart})
	if r.Text != "Оберіть дію:" || r.Keyboard != KeyboardMainMenu || m.Snapshot(1).State != Idle {
		t.Fatalf("unexpected start reply %+v", r)
	}
}
