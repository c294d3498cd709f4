package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/balance"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/journal"
	"github.com/cleared-dev/tally/internal/store/sqlstore"
)

func newDBCommand(opts *options) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the SQL line source",
	}
	dbCmd.AddCommand(newDBMigrateCommand(opts), newDBImportCommand(opts))
	return dbCmd
}

func newDBMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the SQL schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQL(cmd.Context(), opts, func(ctx context.Context, root string, st *sqlstore.Store) error {
				if err := st.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date")
				return nil
			})
		},
	}
}

func newDBImportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Replace the SQL contents with the CSV books in --repo",
		Long: "Copy the chart of accounts and every journal line, in every status, from the CSV\n" +
			"books into the configured SQL database. Existing rows are replaced.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQL(cmd.Context(), opts, func(ctx context.Context, root string, st *sqlstore.Store) error {
				csv := journal.NewStore(root, opts.log)
				accts, err := csv.LoadAccounts(ctx)
				if err != nil {
					return err
				}
				legs, err := csv.Fetch(ctx, balance.Filter{})
				if err != nil {
					return err
				}
				if err := st.Migrate(ctx); err != nil {
					return err
				}
				if err := st.Import(ctx, accts, legs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d accounts and %d lines\n", len(accts), len(legs))
				return nil
			})
		},
	}
}

// withSQL opens the SQL store named by the books config. It fails when the
// books are configured for CSV storage.
func withSQL(ctx context.Context, opts *options, fn func(ctx context.Context, root string, st *sqlstore.Store) error) error {
	root, err := opts.root()
	if err != nil {
		return err
	}
	cfg, err := config.LoadDir(root)
	if err != nil {
		return err
	}
	if cfg.Storage.Driver == config.DriverCSV {
		return fmt.Errorf("storage driver is csv; set storage.driver to sqlite or postgres in %s", config.FileName)
	}
	st, err := openSQL(ctx, root, cfg, opts.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			opts.log.Warn("closing database", zap.Error(err))
		}
	}()
	return fn(ctx, root, st)
}
