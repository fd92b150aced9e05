package backend

import (
	"context"
	"fmt"
	"time"

	"familybudget/internal/adapters"
	"familybudget/internal/ledger"
	gledger "familybudget/internal/ledger/google"
	"familybudget/internal/ledger/memory"
	"familybudget/internal/ledger/supabase"
	"familybudget/internal/log"
	"familybudget/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	loc    *time.Location
}

// NewFactory creates a new backend factory. Stored timestamps are read and
// written as wall clock time in loc.
func NewFactory(logger *log.Logger, loc *time.Location) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if loc == nil {
		loc = time.Local
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentLedger),
		loc:    loc,
	}
}

// CreateBackend implements Factory.CreateBackend. The returned store records
// metrics and reports transport failures as *core.StoreError.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   ledger.Store
		cleanup CleanupFunc
		err     error
	)
	switch config.Type {
	case SheetsBackend:
		store, err = f.createSheetsBackend(ctx, config)
	case SQLiteBackend:
		store, cleanup, err = f.createSQLiteBackend(config)
	case SupabaseBackend:
		store, err = f.createSupabaseBackend(config)
	case MemoryBackend:
		store, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	return &BackendResult{
		Store:   adapters.NewInstrumentedStore(store, config.Type.String(), f.logger),
		Type:    config.Type,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (ledger.Store, error) {
	cli, err := gledger.New(ctx, gledger.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleCredentialsJSON,
		CredentialsFile: config.GoogleCredentialsFile,
		Location:        f.loc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "sheet", cli.SheetName())
	return cli, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (ledger.Store, CleanupFunc, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.loc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, repo.Close, nil
}

func (f *DefaultFactory) createSupabaseBackend(config Config) (ledger.Store, error) {
	repo, err := supabase.NewRepository(config.SupabaseURL, config.SupabaseKey, config.SupabaseTable, f.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Supabase client: %w", err)
	}

	f.logger.Info("Initialized Supabase backend", "table", config.SupabaseTable)
	return repo, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (ledger.Store, error) {
	if config.MemorySeedFile == "" {
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	}

	store, err := memory.NewFromFile(config.MemorySeedFile, f.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile, "rows", store.Len())
	return store, nil
}
