package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/k8crawler/internal/config"
	"github.com/nao1215/k8crawler/internal/crawler"
	"github.com/nao1215/k8crawler/internal/log"
	"github.com/nao1215/k8crawler/internal/model"
	"github.com/nao1215/k8crawler/internal/report"
)

// Report formats accepted by --report.
const (
	reportText     = "text"
	reportJSON     = "json"
	reportMarkdown = "markdown"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl the configured seeds for K-8 resources",
		Long: `Run crawls the seed URLs of the configuration file until no URL is left,
then prints a run report.

Records are written to the SQLite database in output.db_dir and, when
output.jsonl is set, appended to an NDJSON file. Each record is written
once; pages fetched within recrawl_cooldown are skipped, also across runs.

The first SIGINT or SIGTERM (or 'k8crawler stop') stops dispatching new
fetches and waits for the in-flight ones. A second signal aborts them.

Exit codes:
  0  the crawl drained
  1  the crawl failed, e.g. the database could not be opened
  2  the configuration is invalid

Examples:
  # Crawl with .k8crawler.yaml from the current directory
  k8crawler run

  # Use a specific configuration file
  k8crawler run --config crawl.yaml

  # Write a Markdown report to a file
  k8crawler run --report markdown --output report.md`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .k8crawler.yaml or the XDG config directory)")
	cmd.Flags().StringP("report", "r", reportText,
		"Report format: text, json or markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to the specified file path (creates directories if needed)")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")
	cmd.Flags().String("pid-file", defaultPIDFile(),
		"File recording the pid of the running crawl")

	return cmd
}

// runOptions are the flag values of the run command.
type runOptions struct {
	configPath string
	format     string
	reportPath string
	pidFile    string
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	var opts runOptions
	var err error
	if opts.configPath, err = cmd.Flags().GetString("config"); err != nil {
		return err
	}
	if opts.format, err = cmd.Flags().GetString("report"); err != nil {
		return err
	}
	if opts.reportPath, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	if opts.pidFile, err = cmd.Flags().GetString("pid-file"); err != nil {
		return err
	}
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}

	switch opts.format {
	case reportText, reportJSON, reportMarkdown:
	default:
		return configError(fmt.Errorf("unknown report format %q", opts.format))
	}

	cfg, path, err := loadConfig(opts.configPath)
	if err != nil {
		return configError(err)
	}
	opts.configPath = path

	level := log.Level(getVerboseFlag(cmd), slog.LevelInfo)
	logger := log.NewSecureLogger(cmd.ErrOrStderr(), level)
	if logJSON {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), level)
	}
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	summary, err := runCrawl(ctx, cfg, opts, logger, func(o *crawler.Orchestrator) func() {
		return handleSignals(o, cancel, logger)
	})
	if summary != nil {
		if rerr := writeReport(cmd.OutOrStdout(), opts, summary); rerr != nil {
			logger.Error("failed to write report", "error", rerr)
		}
	}
	if err != nil {
		return failedError(fmt.Errorf("crawl failed: %w", err))
	}
	return nil
}

// loadConfig finds, loads and validates the configuration file.
func loadConfig(configPath string) (*config.Config, string, error) {
	path := config.FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return nil, "", fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
		}
		return nil, "", fmt.Errorf("%w (run 'k8crawler init' to create one)", config.ErrConfigNotFound)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// runCrawl opens the outputs, runs one crawl and closes the outputs.
// watch is called with the orchestrator before the crawl starts; the
// function it returns is called when the crawl is over.
func runCrawl(
	ctx context.Context,
	cfg *config.Config,
	opts runOptions,
	logger *slog.Logger,
	watch func(*crawler.Orchestrator) func(),
) (*model.RunSummary, error) {
	runID := uuid.NewString()

	out, err := openOutputs(cfg, runID, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crawler.ErrSinkUnavailable, err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Error("failed to close outputs", "error", err)
		}
	}()

	deps := crawler.Deps{
		Sink:        out.sink,
		DeadLetters: out.deadLetters,
		ConfigPath:  opts.configPath,
		Logger:      logger,
	}
	if out.db != nil {
		deps.Journal = out.db
		deps.Runs = out.db
	}

	o, err := crawler.NewFromConfig(cfg, deps, crawler.WithRunID(runID))
	if err != nil {
		return nil, err
	}

	if opts.pidFile != "" {
		if err := writePIDFile(opts.pidFile); err != nil {
			logger.Warn("failed to write pid file, 'k8crawler stop' will not work", "path", opts.pidFile, "error", err)
		} else {
			defer removePIDFile(opts.pidFile)
		}
	}

	if watch != nil {
		defer watch(o)()
	}

	return o.Run(ctx)
}

// handleSignals stops the crawl on the first SIGINT or SIGTERM and aborts
// in-flight fetches on the second. The returned function unregisters it.
func handleSignals(o *crawler.Orchestrator, abort context.CancelFunc, logger *slog.Logger) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigCh:
		case <-done:
			return
		}
		logger.Info("received shutdown signal, waiting for in-flight fetches (signal again to abort)")
		o.Stop()

		select {
		case <-sigCh:
			logger.Warn("received second signal, aborting")
			abort()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// writeReport writes the run report to opts.reportPath, or to w.
func writeReport(w io.Writer, opts runOptions, summary *model.RunSummary) error {
	if opts.reportPath != "" {
		if dir := filepath.Dir(opts.reportPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(opts.reportPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	var writer report.Writer
	switch opts.format {
	case reportJSON:
		writer = report.NewJSONWriter(w, report.WithPrettyPrint())
	case reportMarkdown:
		writer = report.NewMarkdownWriter(w)
	default:
		writer = report.NewSimpleWriter(w)
	}
	_, err := writer.Write(summary)
	return err
}
