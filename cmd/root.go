// Package cmd implements the tablechat command line interface.
package cmd

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablechat/tablechat/internal/config"
	"github.com/tablechat/tablechat/internal/errors"
	"github.com/tablechat/tablechat/internal/llm"
	"github.com/tablechat/tablechat/internal/logging"
	"github.com/tablechat/tablechat/internal/pipeline"
	"github.com/tablechat/tablechat/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "tablechat",
	Short: "Ask questions about your spreadsheets in plain language",
	Long: `tablechat loads spreadsheet data into a SQL backend and answers
natural-language questions about it by generating, guarding, and executing
read-only SQL queries.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns a process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if suggestions := errorSuggestions(err); len(suggestions) > 0 {
			for _, s := range suggestions {
				fmt.Fprintf(os.Stderr, "  hint: %s\n", s)
			}
		}

		return 1
	}

	return 0
}

func errorSuggestions(err error) []string {
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		return appErr.Suggestions
	}

	return nil
}

// app bundles the wired components behind every command.
type app struct {
	cfg      *config.Config
	backend  *storage.Backend
	pipeline *pipeline.Pipeline
	logger   *logging.Logger
}

// newApp loads configuration, initializes logging, and opens the backend.
// The returned cleanup must run before exit.
func newApp() (*app, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, err
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return nil, nil, err
	}
	logger := logging.GetLogger()

	backend, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	generator, err := llm.NewManager(cfg.LLM, logger)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}

	var gen llm.Generator
	if generator != nil {
		gen = generator
	} else {
		logger.Warn("no LLM configured, falling back to deterministic answers")
	}

	pipe := pipeline.New(backend, gen, logger, cfg.QueryTimeoutDuration())

	cleanup := func() {
		_ = backend.Close()
		_ = logger.Close()
	}

	return &app{
		cfg:      cfg,
		backend:  backend,
		pipeline: pipe,
		logger:   logger,
	}, cleanup, nil
}
