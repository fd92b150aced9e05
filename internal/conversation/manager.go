package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"familybudget/internal/budget"
	"familybudget/internal/core"
	"familybudget/internal/ledger"
	"familybudget/internal/log"
	"familybudget/internal/metrics"
	"familybudget/internal/render"
)

// Publisher is notified after a row has been committed.
type Publisher interface {
	PublishExpenseRecorded(ctx context.Context, row core.ExpenseRow) error
}

// Config wires a Manager.
type Config struct {
	Catalog *core.Catalog
	Store   ledger.Store
	Texts   *render.Texts
	// Allowed is the allow-list of user ids; empty means everyone.
	Allowed []int64
	// Now defaults to time.Now.
	Now       func() time.Time
	Publisher Publisher
	Logger    *log.Logger
}

// Manager owns every conversation session.
//
// The session table is guarded by one mutex that is never held across a
// ledger call. A commit marks its session busy for the duration of the write
// so that a second event from the same user cannot interleave with it.
type Manager struct {
	catalog   *core.Catalog
	store     ledger.Store
	texts     *render.Texts
	allowed   map[int64]struct{}
	now       func() time.Time
	publisher Publisher
	logger    *log.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewManager(cfg Config) *Manager {
	m := &Manager{
		catalog:   cfg.Catalog,
		store:     cfg.Store,
		texts:     cfg.Texts,
		allowed:   make(map[int64]struct{}, len(cfg.Allowed)),
		now:       cfg.Now,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		sessions:  make(map[int64]*session),
	}
	for _, id := range cfg.Allowed {
		m.allowed[id] = struct{}{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.texts == nil {
		m.texts = render.New("")
	}
	if m.logger == nil {
		m.logger = log.New(log.DefaultConfig())
	}
	m.logger = m.logger.WithComponent(log.ComponentConversation)
	return m
}

// Authorized reports whether userID may use the bot.
func (m *Manager) Authorized(userID int64) bool {
	if len(m.allowed) == 0 {
		return true
	}
	_, ok := m.allowed[userID]
	return ok
}

// Snapshot returns a copy of the user's session; unknown users are Idle.
func (m *Manager) Snapshot(userID int64) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s.snapshot()
	}
	return Snapshot{State: Idle}
}

// Handle advances the user's session by one event. The reply is always meant
// to be sent; err tells why the step did not advance (validation, access,
// busy session or ledger failure) and is for logging only.
func (m *Manager) Handle(ctx context.Context, user core.User, ev Event) (reply Reply, err error) {
	defer func() {
		metrics.ConversationEventsTotal.WithLabelValues(ev.Kind.String(), outcome(err)).Inc()
	}()

	m.mu.Lock()
	s := m.session(user.ID)
	if s.committing {
		m.mu.Unlock()
		return Reply{Text: m.texts.Busy()}, core.ErrSessionBusy
	}

	switch ev.Kind {
	case EventStart:
		s.reset()
		m.mu.Unlock()
		if !m.Authorized(user.ID) {
			return Reply{Text: m.texts.AccessDenied(), Keyboard: KeyboardRemove}, core.ErrAccessDenied
		}
		return Reply{Text: m.texts.MainMenu(), Keyboard: KeyboardMainMenu}, nil

	case EventCancel:
		s.reset()
		m.mu.Unlock()
		return Reply{Text: m.texts.Cancelled(), Keyboard: KeyboardMainMenu}, nil

	case EventAddExpense:
		if !m.Authorized(user.ID) {
			s.reset()
			m.mu.Unlock()
			return Reply{Text: m.texts.AccessDenied(), Keyboard: KeyboardRemove}, core.ErrAccessDenied
		}
		s.reset()
		s.state = AwaitingCategory
		m.mu.Unlock()
		return Reply{Text: m.texts.CategoryPrompt(), Keyboard: KeyboardCategories}, nil
	}

	switch s.state {
	case AwaitingCategory:
		defer m.mu.Unlock()
		if ev.Kind == EventBack {
			s.reset()
			return Reply{Text: m.texts.MainMenu(), Keyboard: KeyboardMainMenu}, nil
		}
		cat, err := m.catalog.Lookup(ev.Text)
		if err != nil {
			return Reply{Text: m.texts.UnknownCategory()}, err
		}
		s.draft.category = cat
		s.state = AwaitingAmount
		return Reply{Text: m.texts.AmountPrompt(cat), Keyboard: KeyboardRemove}, nil

	case AwaitingAmount:
		defer m.mu.Unlock()
		amount, err := core.ParseAmount(ev.Text)
		if errors.Is(err, core.ErrNegativeAmount) {
			return Reply{Text: m.texts.NegativeAmount()}, err
		}
		if err != nil {
			return Reply{Text: m.texts.InvalidAmount()}, err
		}
		s.draft.amount = amount
		s.draft.hasAmount = true
		s.state = AwaitingComment
		return Reply{Text: m.texts.CommentPrompt()}, nil

	case AwaitingComment:
		d := s.draft
		s.committing = true
		m.mu.Unlock()
		return m.commit(ctx, user, d, ev.Text)

	default:
		// Idle: free text outside the dialogue is not for us.
		m.mu.Unlock()
		return Reply{}, nil
	}
}

// commit writes the row and renders the confirmation. The session stays
// untouched until the write has either succeeded or failed.
func (m *Manager) commit(ctx context.Context, user core.User, d draft, comment string) (Reply, error) {
	row := core.NewExpenseRow(m.now(), user.DisplayName, d.category, d.amount, comment)
	err := m.store.Append(ctx, row)

	m.mu.Lock()
	s := m.session(user.ID)
	s.committing = false
	if err == nil {
		s.reset()
	}
	m.mu.Unlock()

	logger := log.FromContextOr(ctx, m.logger).WithComponent(log.ComponentConversation)
	fields := log.NewFields().WithUser(user.ID, user.DisplayName).WithExpense(string(row.Category), row.Amount.String()).WithOperation(log.OpCommit)
	if err != nil {
		logger.ErrorContext(ctx, "Expense commit failed", fields.WithError(err).ToSlice()...)
		return Reply{Text: m.texts.CommitFailed()}, err
	}
	metrics.ExpensesCommittedTotal.WithLabelValues(string(row.Category)).Inc()
	logger.InfoContext(ctx, "Expense committed", fields.ToSlice()...)

	if m.publisher != nil {
		if perr := m.publisher.PublishExpenseRecorded(ctx, row); perr != nil {
			logger.WarnContext(ctx, "Expense event not published", log.FieldError, perr.Error())
		}
	}

	rows, err := m.store.ReadAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Balance after commit unavailable", log.FieldError, err.Error())
		return Reply{Text: m.texts.CommittedNoBalance(row), Keyboard: KeyboardMainMenu}, nil
	}
	b := budget.Balance(rows, m.catalog, row.Category)
	return Reply{Text: m.texts.Committed(row, b), Keyboard: KeyboardMainMenu}, nil
}

// session returns the user's session, creating it on first contact. m.mu must be held.
func (m *Manager) session(userID int64) *session {
	s, ok := m.sessions[userID]
	if !ok {
		s = &session{}
		m.sessions[userID] = s
	}
	return s
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrAccessDenied):
		return "denied"
	case errors.Is(err, core.ErrSessionBusy):
		return "busy"
	case errors.Is(err, core.ErrStoreUnavailable):
		return "store_error"
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrNegativeAmount), errors.Is(err, core.ErrUnknownCategory):
		return "invalid"
	default:
		return "error"
	}
}
