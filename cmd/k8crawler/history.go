package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/k8crawler/internal/config"
	"github.com/nao1215/k8crawler/internal/database"
	"github.com/nao1215/k8crawler/internal/model"
	"github.com/nao1215/k8crawler/internal/report"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past crawl runs",
		Long: `History lists past crawl runs stored in the database, newest first.

With a run id it prints the full report of that run followed by the
records that were dead-lettered during it.

Examples:
  # List the last 20 runs
  k8crawler history

  # Show one run as Markdown
  k8crawler history --markdown 3f1c2a9e-...

  # Read the database of a specific configuration
  k8crawler history --config crawl.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file whose output.db_dir holds the database")
	cmd.Flags().String("db-dir", "",
		"Database directory (overrides --config)")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format (mutually exclusive with --json)")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := historyDBDir(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var writer report.Writer
	switch {
	case asJSON:
		writer = report.NewJSONWriter(out, report.WithPrettyPrint())
	case asMarkdown:
		writer = report.NewMarkdownWriter(out)
	default:
		writer = report.NewSimpleWriter(out, report.WithVerbose(getVerboseFlag(cmd)))
	}

	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		if len(args) == 1 {
			return fmt.Errorf("run not found: %s", args[0])
		}
		_, err := writer.WriteHistory(nil)
		return err
	}

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if len(args) == 1 {
		run, err := db.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run not found: %s", args[0])
		}
		if _, err := writer.Write(run); err != nil {
			return err
		}
		if asJSON || asMarkdown {
			return nil
		}
		letters, err := db.ListDeadLetters(ctx, run.ID)
		if err != nil {
			return err
		}
		writeDeadLetters(out, letters)
		return nil
	}

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	ptrs := make([]*model.RunSummary, len(runs))
	for i := range runs {
		ptrs[i] = &runs[i]
	}
	_, err = writer.WriteHistory(ptrs)
	return err
}

// historyDBDir resolves the database directory from --db-dir, --config or
// the XDG data directory.
func historyDBDir(cmd *cobra.Command) (string, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return "", err
	}
	if dbDir != "" {
		return dbDir, nil
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", err
	}
	path := config.FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return "", configError(fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath))
		}
		return config.XDGDataDir(), nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return "", configError(err)
	}
	if cfg.Output.DBDir == "" {
		return config.XDGDataDir(), nil
	}
	return cfg.Output.DBDir, nil
}

func writeDeadLetters(w io.Writer, letters []model.DeadLetter) {
	if len(letters) == 0 {
		return
	}
	fmt.Fprintf(w, "\nDead-lettered records (%d):\n", len(letters))
	for _, dl := range letters {
		fmt.Fprintf(w, "  * %s (%s)\n    %s\n", dl.Record.SourceURL, dl.Record.Fingerprint.Short(), dl.Error)
	}
}
