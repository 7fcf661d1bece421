package cmd

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/config"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down|status>",
	Short:     "Apply or inspect the accounts schema migrations",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cobra.OnlyValidArgs(cmd, args); err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Store.Driver != config.StoreMySQL {
			return errors.New("migrations apply to the mysql store only")
		}
		if err = configureLogging(cfg); err != nil {
			return err
		}

		ctx := context.Background()
		db, err := openDB(ctx, cfg.DSN())
		if err != nil {
			return err
		}
		defer db.Close()

		return repository.Migrate(ctx, db, args[0])
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
