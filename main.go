package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"library-circulation/config"
	"library-circulation/library"
	"library-circulation/logging"
	"library-circulation/notify"
)

// app is the state shared by every subcommand. It is filled in by the root
// command's pre-run hook and torn down by run.
type app struct {
	cfgPath  string
	dbPath   string
	outbox   string
	logLevel string

	cfg config.Config
	log *slog.Logger
	lm  *library.LibraryManager
	box *notify.Outbox

	closers []func()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "circulation",
		Short:         "Library circulation: items, patrons, loans, reservations and fines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", config.DefaultPath, "YAML config file")
	root.PersistentFlags().StringVarP(&a.dbPath, "db", "d", "", "SQLite database path (overrides config)")
	root.PersistentFlags().StringVar(&a.outbox, "outbox", "", "notification outbox path (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	root.AddCommand(
		a.itemsCmd(),
		a.patronsCmd(),
		a.librariansCmd(),
		a.checkoutCmd(),
		a.checkinCmd(),
		a.reserveCmd(),
		a.reportCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.notifyCmd(),
		a.serveCmd(),
		a.shellCmd(),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database = a.dbPath
	}
	if a.outbox != "" {
		cfg.Outbox = a.outbox
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	log, cleanup, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	a.log = log
	a.closers = append(a.closers, cleanup)

	box, err := notify.Open(cfg.Outbox)
	if err != nil {
		a.close()
		return err
	}
	a.box = box
	a.closers = append(a.closers, func() { box.Close() })

	lm, warnings, err := library.NewLibraryManager(cmd.Context(), cfg.Database,
		library.WithLogger(log), library.WithNotificationSink(box))
	if err != nil {
		a.close()
		return fmt.Errorf("open database: %w", err)
	}
	if len(warnings) > 0 {
		log.Warn("catalog loaded with skipped records", "count", len(warnings))
	}
	a.lm = lm
	a.closers = append(a.closers, func() { lm.Close() })

	// A fresh database starts from the snapshot document when one exists.
	if lm.Empty() && fileExists(cfg.Snapshot) {
		warnings, err := lm.Restore(cmd.Context(), cfg.Snapshot)
		if err != nil {
			return fmt.Errorf("seed from %s: %w", cfg.Snapshot, err)
		}
		log.Info("catalog seeded from snapshot", "path", cfg.Snapshot, "warnings", len(warnings))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// run executes one command line and releases everything it opened, also
// when the command fails.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode gives scripts a stable status per error class.
func exitCode(err error) int {
	switch library.ErrorCode(err) {
	case library.CodeNotFound:
		return 3
	case library.CodeConflict, library.CodeLimitReached:
		return 4
	case library.CodeInvalidArgument:
		return 2
	default:
		return 1
	}
}
