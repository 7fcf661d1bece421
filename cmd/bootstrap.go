package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vibast-solutions/ms-go-account/app/notification"
	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/app/service"
	"github.com/vibast-solutions/ms-go-account/app/token"
	"github.com/vibast-solutions/ms-go-account/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// runtime holds the wired dependencies shared by serve and the operator
// commands.
type runtime struct {
	cfg      *config.Config
	db       *sql.DB
	accounts service.AccountService
}

func (r *runtime) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg}

	var store repository.Store
	switch cfg.Store.Driver {
	case config.StoreMemory:
		logrus.Warn("Using in-memory account store; data is lost on exit")
		store = repository.NewMemoryAccountRepository()
	default:
		db, err := openDB(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		rt.db = db
		if cfg.Store.MigrateOnStartup {
			if err = repository.Migrate(ctx, db, "up"); err != nil {
				rt.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		store = repository.NewAccountRepository(db)
	}

	registry, err := token.NewRegistry(cfg.Tokens.Domains())
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.accounts = service.NewAccountService(
		store,
		token.NewCodec(registry),
		service.NewBcryptHasher(cfg.Password.BcryptCost),
		cfg.Password.Policy,
		service.WithNotifier(newNotifier(cfg.Mail)),
		service.WithExposedTokens(!cfg.Mail.Enabled),
	)
	return rt, nil
}

func newNotifier(cfg config.MailConfig) notification.Notifier {
	if !cfg.Enabled {
		return notification.NewEmailNotifier(notification.LogTransport{}, cfg.BaseURL)
	}
	transport := notification.NewSMTPTransport(notification.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
	return notification.NewEmailNotifier(transport, cfg.BaseURL)
}
