package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-account/app/service"
	"github.com/vibast-solutions/ms-go-account/app/types"
	"github.com/vibast-solutions/ms-go-account/config"

	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Inspect and manage accounts",
}

var accountShowCmd = &cobra.Command{
	Use:   "show <email>",
	Short: "Show the state of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withAccounts(func(ctx context.Context, accounts service.AccountService) error {
			profile, err := lookupAccount(ctx, accounts, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("account_id: %s\n", profile.AccountId)
			fmt.Printf("username: %s\n", profile.Username)
			fmt.Printf("email: %s\n", profile.Email)
			fmt.Printf("state: %s\n", profile.State)
			fmt.Printf("created_at: %s\n", time.Unix(profile.CreatedAt, 0).UTC().Format(time.RFC3339))
			return nil
		})
	},
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete <email>",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withAccounts(func(ctx context.Context, accounts service.AccountService) error {
			profile, err := lookupAccount(ctx, accounts, args[0])
			if err != nil {
				return err
			}
			if err = accounts.DeleteAccount(ctx, profile.AccountId); err != nil {
				return err
			}

			fmt.Printf("deleted account %s (%s)\n", profile.AccountId, profile.Email)
			return nil
		})
	},
}

var accountRevokeCmd = &cobra.Command{
	Use:   "revoke <email>",
	Short: "Revoke every session of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withAccounts(func(ctx context.Context, accounts service.AccountService) error {
			profile, err := lookupAccount(ctx, accounts, args[0])
			if err != nil {
				return err
			}
			if err = accounts.RevokeSessions(ctx, profile.AccountId); err != nil {
				return err
			}

			fmt.Printf("revoked sessions of account %s (%s)\n", profile.AccountId, profile.Email)
			return nil
		})
	},
}

func init() {
	accountCmd.AddCommand(accountShowCmd)
	accountCmd.AddCommand(accountDeleteCmd)
	accountCmd.AddCommand(accountRevokeCmd)
	rootCmd.AddCommand(accountCmd)
}

func withAccounts(fn func(ctx context.Context, accounts service.AccountService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Store.Driver != config.StoreMySQL {
		return errors.New("account commands need the mysql store")
	}

	ctx := context.Background()
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	return fn(ctx, rt.accounts)
}

func lookupAccount(ctx context.Context, accounts service.AccountService, email string) (*types.ProfileResponse, error) {
	profile, err := accounts.Lookup(ctx, email)
	if err != nil {
		if errors.Is(err, service.ErrNoSuchAccount) {
			return nil, fmt.Errorf("account %q not found", email)
		}
		return nil, err
	}
	return profile, nil
}
