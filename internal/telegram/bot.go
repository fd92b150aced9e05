// Package telegram is the chat transport. It decodes incoming messages into
// intents, forwards dialogue events to the conversation manager, serves the
// read-only views and sends the replies back.
package telegram

import (
	"context"
	"errors"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"familybudget/internal/charts"
	"familybudget/internal/conversation"
	"familybudget/internal/core"
	"familybudget/internal/log"
	"familybudget/internal/ratelimit"
	"familybudget/internal/render"
	"familybudget/internal/services"
)

const (
	pollTimeout   = 60
	userQueueSize = 16
)

// Reporter sends today's report to the given chats.
type Reporter interface {
	SendDailyReport(ctx context.Context, recipients []int64) error
}

type Config struct {
	Sender  Sender
	Manager *conversation.Manager
	Budget  *services.BudgetService
	Reports Reporter
	Catalog *core.Catalog
	Texts   *render.Texts
	// Limiter is optional.
	Limiter *ratelimit.Limiter
	Logger  *log.Logger
}

type Bot struct {
	api      Sender
	notifier *Notifier
	manager  *conversation.Manager
	budget   *services.BudgetService
	reports  Reporter
	catalog  *core.Catalog
	texts    *render.Texts
	limiter  *ratelimit.Limiter
	logger   *log.Logger
}

func NewBot(cfg Config) *Bot {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	texts := cfg.Texts
	if texts == nil {
		texts = render.New("")
	}
	return &Bot{
		api:      cfg.Sender,
		notifier: NewNotifier(cfg.Sender),
		manager:  cfg.Manager,
		budget:   cfg.Budget,
		reports:  cfg.Reports,
		catalog:  cfg.Catalog,
		texts:    texts,
		limiter:  cfg.Limiter,
		logger:   logger.WithComponent(log.ComponentBot),
	}
}

// RegisterCommands publishes the command menu.
func (b *Bot) RegisterCommands(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.api.Request(tgbotapi.NewSetMyCommands(commandList()...))
	return err
}

// Poll long-polls api for updates until ctx is cancelled.
func (b *Bot) Poll(ctx context.Context, api *tgbotapi.BotAPI) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := api.GetUpdatesChan(u)

	b.logger.Info("Polling for updates", "bot", api.Self.UserName)
	err := b.Serve(ctx, updates)
	api.StopReceivingUpdates()
	return err
}

// Serve dispatches updates until ctx is cancelled or the channel is closed.
// Every user gets a queue and a worker of their own: one user's updates are
// handled in arrival order while other users proceed independently. Serve
// returns after the workers have drained their queues.
func (b *Bot) Serve(ctx context.Context, updates <-chan tgbotapi.Update) (err error) {
	var g errgroup.Group
	queues := make(map[int64]chan tgbotapi.Update)
	defer func() {
		for _, q := range queues {
			close(q)
		}
		if werr := g.Wait(); err == nil {
			err = werr
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := update.Message
			if msg == nil || msg.From == nil {
				continue
			}
			q, found := queues[msg.From.ID]
			if !found {
				q = make(chan tgbotapi.Update, userQueueSize)
				queues[msg.From.ID] = q
				g.Go(func() error {
					for u := range q {
						b.HandleUpdate(ctx, u)
					}
					return nil
				})
			}
			select {
			case q <- update:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// HandleUpdate processes one update. Failures are logged and answered with a
// generic message; they never stop the bot.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	user := core.User{ID: msg.From.ID, DisplayName: displayName(msg.From)}
	logger := b.logger.WithFields(log.NewFields().
		WithCorrelationID(uuid.NewString()).
		WithUser(user.ID, user.DisplayName))
	ctx = log.WithContext(ctx, logger)
	chatID := msg.Chat.ID

	if b.limiter != nil && !b.limiter.Allow(user.ID) {
		logger.WarnContext(ctx, "Message rate limited")
		b.reply(ctx, chatID, b.texts.RateLimited(), nil)
		return
	}

	intent := DecodeIntent(msg.Text, msg.Command())
	logger.DebugContext(ctx, "Message decoded", "action", intent.Action.String(), log.FieldEvent, intent.Event.Kind.String())

	switch intent.Action {
	case ActionConversation:
		b.handleDialogue(ctx, chatID, user, intent.Event)
	case ActionBalance:
		b.handleBalance(ctx, chatID, user)
	case ActionStats:
		b.handleStats(ctx, chatID, user)
	case ActionReport:
		b.handleReport(ctx, chatID, user)
	}
}

func (b *Bot) handleDialogue(ctx context.Context, chatID int64, user core.User, ev conversation.Event) {
	logger := log.FromContextOr(ctx, b.logger)
	reply, err := b.manager.Handle(ctx, user, ev)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrAccessDenied):
		logger.WarnContext(ctx, "Access denied", log.FieldEvent, ev.Kind.String())
	case errors.Is(err, core.ErrSessionBusy):
		logger.InfoContext(ctx, "Event while commit in flight", log.FieldEvent, ev.Kind.String())
	case errors.Is(err, core.ErrStoreUnavailable):
		// logged by the manager with the draft attached
	default:
		logger.DebugContext(ctx, "Input rejected", log.FieldError, err.Error())
	}
	logger.DebugContext(ctx, "Dialogue step", log.FieldEvent, ev.Kind.String(), "state", b.manager.Snapshot(user.ID).State.String())
	if reply.Text == "" {
		return
	}
	b.reply(ctx, chatID, reply.Text, replyMarkup(reply.Keyboard, b.catalog))
}

// allow answers unauthorized users and reports whether the read may proceed.
func (b *Bot) allow(ctx context.Context, chatID int64, user core.User) bool {
	if b.manager.Authorized(user.ID) {
		return true
	}
	log.FromContextOr(ctx, b.logger).WarnContext(ctx, "Access denied")
	b.reply(ctx, chatID, b.texts.AccessDenied(), tgbotapi.NewRemoveKeyboard(false))
	return false
}

func (b *Bot) handleBalance(ctx context.Context, chatID int64, user core.User) {
	if !b.allow(ctx, chatID, user) {
		return
	}
	balances, err := b.budget.Balance(ctx)
	if err != nil {
		b.readFailed(ctx, chatID, "balance", err)
		return
	}
	b.reply(ctx, chatID, b.texts.Balance(balances), mainMenuKeyboard())
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, user core.User) {
	if !b.allow(ctx, chatID, user) {
		return
	}
	st, err := b.budget.MonthlyStatistics(ctx)
	if err != nil {
		b.readFailed(ctx, chatID, "stats", err)
		return
	}
	b.reply(ctx, chatID, b.texts.MonthStatistics(st), mainMenuKeyboard())

	logger := log.FromContextOr(ctx, b.logger)
	img, err := charts.MonthlyBarChart(st, b.texts.ChartTitle(st))
	if err != nil {
		logger.WarnContext(ctx, "Monthly chart not rendered", log.FieldError, err.Error())
		return
	}
	if img == nil {
		return
	}
	if err := b.notifier.SendPhoto(ctx, chatID, img, b.texts.ChartTitle(st)); err != nil {
		logger.WarnContext(ctx, "Monthly chart not sent", log.FieldError, err.Error())
	}
}

func (b *Bot) handleReport(ctx context.Context, chatID int64, user core.User) {
	if !b.allow(ctx, chatID, user) {
		return
	}
	err := b.reports.SendDailyReport(ctx, []int64{chatID})
	switch {
	case err == nil:
	case errors.Is(err, core.ErrDispatch):
		// the report could not reach this chat; nothing more to send
		log.FromContextOr(ctx, b.logger).WarnContext(ctx, "Manual report not delivered", log.FieldError, err.Error())
	default:
		b.readFailed(ctx, chatID, "report", err)
	}
}

func (b *Bot) readFailed(ctx context.Context, chatID int64, view string, err error) {
	log.FromContextOr(ctx, b.logger).ErrorContext(ctx, "View unavailable", "view", view, log.FieldError, err.Error())
	b.reply(ctx, chatID, b.texts.ReadFailed(), nil)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, markup interface{}) {
	if err := b.notifier.send(ctx, chatID, text, markup); err != nil {
		log.FromContextOr(ctx, b.logger).ErrorContext(ctx, "Reply not sent", log.FieldError, err.Error())
	}
}

func displayName(u *tgbotapi.User) string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.UserName != "":
		return u.UserName
	default:
		return strconv.FormatInt(u.ID, 10)
	}
}
