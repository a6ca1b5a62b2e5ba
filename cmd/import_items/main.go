// Command import_items seeds a circulation database from an exported JSON
// catalog document.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"library-circulation/library"
	"library-circulation/logging"
)

func main() {
	if err := newCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var dbPath string
	var fresh bool
	cmd := &cobra.Command{
		Use:          "import_items [DOCUMENT]",
		Short:        "Load a catalog document into the SQLite database",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "library_data.json"
			if len(args) == 1 {
				path = args[0]
			}
			out := cmd.OutOrStdout()
			if fresh {
				fmt.Fprintln(out, "Cleaning up existing database files...")
				for _, file := range []string{dbPath, dbPath + "-shm", dbPath + "-wal"} {
					if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
						fmt.Fprintf(out, "Warning: Could not remove %s: %v\n", file, err)
					}
				}
			}
			return importDocument(cmd.Context(), out, dbPath, path)
		},
	}
	cmd.Flags().StringVarP(&dbPath, "db", "d", "library.db", "SQLite database path")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "remove the database before importing")
	return cmd
}

func importDocument(ctx context.Context, out io.Writer, dbPath, path string) error {
	log := logging.New(slog.LevelError, os.Stdout, os.Stderr)
	manager, _, err := library.NewLibraryManager(ctx, dbPath, library.WithLogger(log))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer manager.Close()

	fmt.Fprintf(out, "Importing catalog from %s...\n", path)
	warnings, err := manager.ImportFile(ctx, path)
	for _, w := range warnings {
		fmt.Fprintf(out, "Warning: %v\n", w)
	}
	if err != nil {
		return err
	}

	items := manager.ListItems()
	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Items: %d, patrons: %d, skipped or repaired: %d\n",
		len(items), len(manager.ListPatrons()), len(warnings))
	if len(items) > 0 {
		fmt.Fprintln(out, "\nImported items:")
		fmt.Fprintf(out, "%-5s %-5s %-30s %-22s %-12s %s\n", "ID", "Type", "Title", "Author/Artist", "Status", "Loans")
		fmt.Fprintln(out, strings.Repeat("-", 85))
		for _, it := range items {
			fmt.Fprintln(out, library.PrettyItem(it))
		}
	}
	return nil
}
