package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/sentinel/internal/config"
)

var flagYes bool

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Maintain the symbol database",
}

var dbVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the database for corruption",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalOverrides())
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
		if err != nil {
			return fail(cmd, err)
		}
		defer a.close(ctx)

		if err := a.db.Verify(); err != nil {
			return fail(cmd, fmt.Errorf("database is corrupt: %w", err))
		}
		symbols, files, err := a.db.Count()
		if err != nil {
			return fail(cmd, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database OK: %d symbols, %d files at %s\n", symbols, files, cfg.Store.Path)
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every indexed symbol, hash and cached response",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagYes {
			return errors.New("refusing to reset without --yes")
		}
		cfg, err := config.Load(globalOverrides())
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
		if err != nil {
			return fail(cmd, err)
		}
		defer a.close(ctx)

		if err := a.db.Reset(); err != nil {
			return fail(cmd, err)
		}
		if a.weaviate != nil {
			if err := a.weaviate.Reset(ctx); err != nil {
				return fail(cmd, err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database reset.")
		return nil
	},
}

func init() {
	dbResetCmd.Flags().BoolVar(&flagYes, "yes", false, "Confirm the reset")

	dbCmd.AddCommand(dbVerifyCmd)
	dbCmd.AddCommand(dbResetCmd)
}
