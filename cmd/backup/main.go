package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"emotiva/internal/config"
	"emotiva/internal/database"
	"emotiva/internal/logging"
	"emotiva/internal/service"
)

var errAborted = errors.New("import cancelled")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// openFunc opens the configured database with migrations applied.
type openFunc func(ctx context.Context) (*database.DB, *service.BackupService, error)

func openConfigured(ctx context.Context) (*database.DB, *service.BackupService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.OpenWithConfig(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(ctx, cfg.Database.MigrationsPath); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, service.NewBackupService(db, logging.New(cfg.Log)), nil
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(openConfigured)
}

func newRootCmdWith(open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "backup",
		Short: "Export, import and migrate the Emotiva database",
		Long: "Export, import and migrate the Emotiva database.\n\n" +
			"The database is selected with DB_TYPE (sqlite, postgres or mysql),\n" +
			"DB_PATH for sqlite and DATABASE_URL for the others.",
		SilenceUsage: true,
	}
	root.AddCommand(newExportCmd(open), newImportCmd(open), newMigrateCmd(open))
	return root
}

func newExportCmd(open openFunc) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the database to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, backups, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			return runExport(cmd.Context(), backups, cmd.OutOrStdout(), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func newImportCmd(open openFunc) *cobra.Command {
	var (
		input string
		clear bool
		yes   bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSON backup into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, backups, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			return runImport(cmd.Context(), backups, cmd.InOrStdin(), cmd.OutOrStdout(), input, clear, yes)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "backup file to import")
	cmd.Flags().BoolVar(&clear, "clear", false, "delete all existing data before importing")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt for --clear")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newMigrateCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return err
		},
	}
}

func runExport(ctx context.Context, backups *service.BackupService, out io.Writer, path string) error {
	if path == "" {
		path = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	data, err := backups.Export(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "exported %s to %s\n", data.Summary(), path)
	return err
}

func runImport(ctx context.Context, backups *service.BackupService, in io.Reader, out io.Writer, path string, clear, yes bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if clear && !yes {
		fmt.Fprint(out, "This deletes all existing data. Type 'yes' to confirm: ")
		answer, _ := bufio.NewReader(in).ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			return errAborted
		}
	}

	data, err := backups.Import(ctx, f, clear)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "imported %s\n", data.Summary())
	return err
}
