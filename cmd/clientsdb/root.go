package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"clientsdb/config"
	"clientsdb/demo"
	"clientsdb/logging"
	"clientsdb/report"
	"clientsdb/storage"
	"clientsdb/storage/memory"
	"clientsdb/storage/postgres"
)

// skipSchemaAnnotation marks commands that must not create the schema first
const skipSchemaAnnotation = "clientsdb/skip-schema"

type openFunc func(ctx context.Context, cfg *config.Config) (storage.Adapter, error)

// app holds the state shared by every command for one process run
type app struct {
	open    openFunc
	cfgFile string

	cfg      *config.Config
	registry storage.Adapter
	printer  *report.Printer
}

// openRegistry connects to the store selected by the config
func openRegistry(ctx context.Context, cfg *config.Config) (storage.Adapter, error) {
	if cfg.Driver == config.DriverMemory {
		return memory.New(), nil
	}

	return postgres.NewAdapter(ctx, cfg.Host, strconv.Itoa(cfg.Port), cfg.User, cfg.Database,
		postgres.WithPassword(cfg.Password),
		postgres.WithSSLMode(cfg.SSLMode),
		postgres.WithDriver(cfg.Driver),
	)
}

// close releases the registry if one was opened
func (a *app) close() {
	if a.registry == nil {
		return
	}
	if err := a.registry.Close(); err != nil {
		slog.Warn("failed to close registry", "error", err)
	}
	a.registry = nil
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clientsdb",
		Short: "Manage clients and their phone numbers",
		Long: `clientsdb keeps client records and their phone numbers in PostgreSQL.

Without a subcommand it ensures the schema exists and runs the demonstration
sequence, printing each lookup to stdout.`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.setup(cmd)
		},
		RunE:          a.runDemo,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./clientsdb.yaml)")
	flags.String("driver", "", "store driver (postgres|pgx|memory)")
	flags.String("host", "", "database host")
	flags.Int("port", 0, "database port")
	flags.String("database", "", "database name")
	flags.String("user", "", "database user")
	flags.String("password", "", "database password")
	flags.String("sslmode", "", "postgres sslmode")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.StringP("output", "o", "", "lookup output format (tuple|table); tuple prints (id, 'first', 'last', 'email', 'phone') with NULL for a client without phones")

	_ = rootCmd.RegisterFlagCompletionFunc("driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.DriverPostgres, config.DriverPgx, config.DriverMemory}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return report.Formats, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "demo",
			Short: "Run the demonstration sequence",
			Args:  cobra.NoArgs,
			RunE:  a.runDemo,
		},
		a.schemaCmd(),
		a.addClientCmd(),
		a.addPhoneCmd(),
		a.changeClientCmd(),
		a.deletePhoneCmd(),
		a.deleteClientCmd(),
		a.findCmd(),
		a.showCmd(),
	)

	return rootCmd
}

// setup loads the config, configures logging and opens the registry
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))
	if cfg.File != "" {
		slog.Debug("using config file", "path", cfg.File)
	}

	a.registry, err = a.open(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s registry: %w", cfg.Driver, err)
	}
	a.printer = report.NewPrinter(cmd.OutOrStdout(), cfg.Output)

	if cmd.Annotations[skipSchemaAnnotation] != "" {
		return nil
	}
	return a.registry.CreateSchema(cmd.Context())
}

func (a *app) runDemo(cmd *cobra.Command, _ []string) error {
	return demo.Run(cmd.Context(), a.registry, a.printer)
}
