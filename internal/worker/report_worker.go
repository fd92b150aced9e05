package worker

import (
	"context"
	"errors"
	"time"

	"familybudget/internal/core"
	"familybudget/internal/log"
	"familybudget/internal/metrics"
	"familybudget/internal/render"
	"familybudget/internal/services"
)

// Notifier delivers one text message to one chat.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// ReportConfig wires a ReportWorker.
type ReportConfig struct {
	Budget   *services.BudgetService
	Texts    *render.Texts
	Notifier Notifier
	// Recipients receive the scheduled report.
	Recipients []int64
	// Hour and Minute are the wall clock fire time in Location.
	Hour, Minute int
	Location     *time.Location
	Logger       *log.Logger
}

// ReportWorker renders today's report and delivers it, either on demand or
// once a day at a fixed wall clock time.
type ReportWorker struct {
	budget     *services.BudgetService
	texts      *render.Texts
	notifier   Notifier
	recipients []int64
	hour       int
	minute     int
	loc        *time.Location
	logger     *log.Logger

	// timer is replaceable in tests
	timer func(d time.Duration) (<-chan time.Time, func() bool)
}

func NewReportWorker(cfg ReportConfig) *ReportWorker {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	texts := cfg.Texts
	if texts == nil {
		texts = render.New("")
	}
	return &ReportWorker{
		budget:     cfg.Budget,
		texts:      texts,
		notifier:   cfg.Notifier,
		recipients: append([]int64(nil), cfg.Recipients...),
		hour:       cfg.Hour,
		minute:     cfg.Minute,
		loc:        loc,
		logger:     logger.WithComponent(log.ComponentReport),
		timer: func(d time.Duration) (<-chan time.Time, func() bool) {
			t := time.NewTimer(d)
			return t.C, t.Stop
		},
	}
}

// SendDailyReport sends today's report to every recipient: the itemised list,
// then the totals. Nothing is sent when nothing was recorded today. A failed
// delivery to one recipient does not stop the others; every failure is
// returned as a *core.DispatchError joined into the result.
func (w *ReportWorker) SendDailyReport(ctx context.Context, recipients []int64) error {
	logger := log.FromContextOr(ctx, w.logger).WithComponent(log.ComponentReport)
	today := w.budget.Now().In(w.loc)

	rep, ok, err := w.budget.DailyReport(ctx, today)
	if err != nil {
		return err
	}
	if !ok {
		logger.InfoContext(ctx, "No expenses today, report skipped", "date", today.Format(core.DateLayout))
		return nil
	}

	items, totals := w.texts.DailyReport(rep)
	var errs []error
	for _, chatID := range recipients {
		if err := w.deliver(ctx, chatID, items, totals); err != nil {
			metrics.ReportDeliveriesTotal.WithLabelValues("failed").Inc()
			logger.WarnContext(ctx, "Report not delivered",
				log.FieldRecipient, chatID, log.FieldOperation, log.OpDispatch, log.FieldError, err.Error())
			errs = append(errs, &core.DispatchError{Recipient: chatID, Err: err})
			continue
		}
		metrics.ReportDeliveriesTotal.WithLabelValues("sent").Inc()
	}

	logger.InfoContext(ctx, "Daily report dispatched",
		"date", today.Format(core.DateLayout), "recipients", len(recipients), "failed", len(errs), log.FieldRows, len(rep.Items))
	return errors.Join(errs...)
}

// deliver stops at the first failed message so a recipient never gets the
// totals without the list.
func (w *ReportWorker) deliver(ctx context.Context, chatID int64, messages ...string) error {
	for _, text := range messages {
		if err := w.notifier.SendText(ctx, chatID, text); err != nil {
			return err
		}
	}
	return nil
}

// Run fires the scheduled report every day at the configured time until ctx
// is cancelled.
func (w *ReportWorker) Run(ctx context.Context) error {
	for {
		now := w.budget.Now()
		next := NextRun(now, w.hour, w.minute, w.loc)
		w.logger.InfoContext(ctx, "Next daily report scheduled", "at", next.Format(time.RFC3339))

		fire, stop := w.timer(next.Sub(now))
		select {
		case <-ctx.Done():
			stop()
			return nil
		case <-fire:
		}

		if err := w.SendDailyReport(ctx, w.recipients); err != nil {
			w.logger.ErrorContext(ctx, "Scheduled report failed", log.FieldError, err.Error())
		}
	}
}

// NextRun returns the first hour:minute wall clock time in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
