package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SedlarDavid/mssqlconn/internal/config"
	"github.com/SedlarDavid/mssqlconn/internal/db"
	"github.com/SedlarDavid/mssqlconn/internal/loader"
	"github.com/SedlarDavid/mssqlconn/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	verbosity int
	database  string
	host      string

	// load flags
	loadDir       string
	loadTable     string
	loadColumns   []string
	indexColumn   string
	createdColumn string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mssqlconn",
		Short:         "mssqlconn - SQL Server connection manager",
		Long:          `mssqlconn opens one SQL Server connection from MSSQL_* settings and runs queries, statements, SQL files and file loads over it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	rootCmd.PersistentFlags().StringVarP(&database, "database", "d", "", "Database to connect to (overrides MSSQL_DBNAME)")
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "", "Host name or alias such as prod/test (overrides MSSQL_HOST_PROD)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show the server and database the connection points at",
		Args:  cobra.NoArgs,
		RunE: withManager(func(ctx context.Context, m *db.Manager, args []string) error {
			info, err := m.CurrentConnectionInfo(ctx)
			if err != nil {
				return err
			}
			fmt.Println(info)
			return nil
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "query <sql> [params...]",
		Short: "Run a query and print the result table",
		Args:  cobra.MinimumNArgs(1),
		RunE: withManager(func(ctx context.Context, m *db.Manager, args []string) error {
			t, err := m.Query(ctx, args[0], stringParams(args[1:])...)
			if err != nil {
				return err
			}
			fmt.Println(t)
			return nil
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "exec <sql> [params...]",
		Short: "Execute a statement in its own transaction",
		Args:  cobra.MinimumNArgs(1),
		RunE: withManager(func(ctx context.Context, m *db.Manager, args []string) error {
			return m.Execute(ctx, args[0], stringParams(args[1:])...)
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run-file <path>",
		Short: "Execute every statement of a SQL file in one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: withManager(func(ctx context.Context, m *db.Manager, args []string) error {
			return m.ExecuteSQLFile(ctx, args[0])
		}),
	})

	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Insert rows from .txt and .xlsx files in a directory into a table",
		Args:  cobra.NoArgs,
		RunE: withManager(func(ctx context.Context, m *db.Manager, args []string) error {
			records, err := loader.ReadDir(loadDir, log.Logger)
			if err != nil {
				return err
			}
			res, err := loader.Save(ctx, m, loader.Options{
				Table:         loadTable,
				Columns:       loadColumns,
				IndexColumn:   indexColumn,
				CreatedColumn: createdColumn,
			}, records, log.Logger)
			if err != nil {
				return err
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d of %d records failed", res.Failed, len(records))
			}
			return nil
		}),
	}
	loadCmd.Flags().StringVar(&loadDir, "dir", "Files", "Directory with input files")
	loadCmd.Flags().StringVarP(&loadTable, "table", "t", "", "Target table, optionally schema-qualified (required)")
	loadCmd.Flags().StringSliceVarP(&loadColumns, "columns", "c", nil, "Target columns for the file values, in order (required)")
	loadCmd.Flags().StringVar(&indexColumn, "index-column", "idindex", "Column receiving the file index (empty to skip)")
	loadCmd.Flags().StringVar(&createdColumn, "created-column", "dtcreatedate", "Column receiving the insert time (empty to skip)")
	_ = loadCmd.MarkFlagRequired("table")
	_ = loadCmd.MarkFlagRequired("columns")
	rootCmd.AddCommand(loadCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "drivers",
		Short: "List installed ODBC drivers and the one that would be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Apply(config.LogConfig{}, verbosity, os.Stderr)
			available, err := db.DefaultCatalog().Drivers()
			if err != nil {
				return err
			}
			for _, d := range available {
				fmt.Println(d)
			}
			picked, err := db.PickDriver(available)
			if err != nil {
				return err
			}
			fmt.Printf("\nusing: %s\n", picked)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mssqlconn %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// withManager loads the config, connects, runs fn and closes the connection.
func withManager(fn func(ctx context.Context, m *db.Manager, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if database != "" {
			os.Setenv(config.EnvDatabase, database)
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logging.Apply(cfg.Log, verbosity, os.Stderr)
		if host != "" {
			cfg.Host = cfg.ResolveHost(host)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m, err := db.New(ctx, cfg.Settings(), cfg.ManagerOptions()...)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(ctx, m, args)
	}
}

// stringParams passes positional arguments as strings; "NULL" binds nil.
func stringParams(args []string) []any {
	params := make([]any, len(args))
	for i, a := range args {
		if strings.EqualFold(a, "NULL") {
			continue
		}
		params[i] = a
	}
	return params
}
