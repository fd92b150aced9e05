// Command ledger-check verifies that the configured ledger is reachable and
// laid out as the bot expects, then prints the current balance.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"familybudget/internal/adapters"
	"familybudget/internal/backend"
	"familybudget/internal/budget"
	"familybudget/internal/cli"
	"familybudget/internal/config"
	"familybudget/internal/core"
	gledger "familybudget/internal/ledger/google"
	"familybudget/internal/ledger/supabase"
	"familybudget/internal/render"
	"familybudget/internal/storage"
)

type options struct {
	initHeader bool
	probe      bool
}

func main() {
	initHeader := flag.Bool("init-header", false, "write the header row into an empty Google sheet")
	probe := flag.Bool("probe", false, "append a zero-amount probe row to test write access")
	printSQL := flag.Bool("print-sql", false, "print the Supabase table definition and exit")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := config.Load()

	if *printSQL {
		fmt.Printf(supabase.CreateTableSQL+"\n", cfg.SupabaseTable)
		return
	}
	if cfg.Catalog == nil || cfg.Location == nil {
		fatalf("configuration: %v", cfg.Validate())
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		fatalf("backend config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	res, err := backend.NewFactory(logger, cfg.Location).CreateBackend(ctx, backendCfg)
	if err != nil {
		cancel()
		fatalf("open ledger: %v", err)
	}
	err = check(ctx, os.Stdout, res, cfg, options{initHeader: *initHeader, probe: *probe})
	cancel()
	if err != nil {
		fatalf("%v", err)
	}
}

// check runs every step against an open ledger and always releases it.
func check(ctx context.Context, out io.Writer, res *backend.BackendResult, cfg *config.Config, opts options) (err error) {
	defer func() {
		if cerr := res.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close ledger: %w", cerr)
		}
	}()

	if err := checkLayout(ctx, out, res.Store, opts.initHeader); err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	if opts.probe {
		row := core.NewExpenseRow(time.Now().In(cfg.Location), "ledger-check", cfg.Catalog.Categories()[0], decimal.Zero, "probe")
		if err := res.Store.Append(ctx, row); err != nil {
			return fmt.Errorf("probe append: %w", err)
		}
		fmt.Fprintln(out, "probe row appended")
	}

	rows, err := res.Store.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	fmt.Fprintf(out, "backend %s: %d rows\n\n", res.Type, len(rows))
	fmt.Fprint(out, render.New(cfg.Currency).Balance(budget.BalanceAll(rows, cfg.Catalog)))
	return nil
}

// checkLayout prints the stored column layout and compares it with the schema.
func checkLayout(ctx context.Context, out io.Writer, store interface{}, initHeader bool) error {
	if is, ok := store.(*adapters.InstrumentedStore); ok {
		store = is.Unwrap()
	}
	want := strings.Join(core.LedgerSchema.Headers(), " | ")

	switch s := store.(type) {
	case *gledger.Client:
		if initHeader {
			written, err := s.EnsureHeader(ctx)
			if err != nil {
				return err
			}
			if written {
				fmt.Fprintln(out, "header written")
			}
		}
		header, err := s.Header(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "sheet %q header: %s\nexpected: %s\n", s.SheetName(), strings.Join(header, " | "), want)
		if len(header) == 0 {
			return fmt.Errorf("sheet is empty, run with -init-header")
		}
		_, err = core.LedgerSchema.Index(header)
		return err
	case *storage.SQLiteRepository:
		cols, err := s.Columns(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "table columns: %s\n", strings.Join(cols, ", "))
		return s.CheckSchema(ctx)
	default:
		fmt.Fprintf(out, "expected columns: %s\n", want)
		return nil
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ledger-check: "+format+"\n", args...)
	os.Exit(1)
}
