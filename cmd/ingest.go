package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tablechat/tablechat/internal/errors"
	"github.com/tablechat/tablechat/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.csv> [more files...]",
	Short: "Load CSV files into a new upload",
	Long: `Load one or more CSV files into namespaced tables and print the upload
ID to use with the ask command. Each file becomes one table.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("upload-id", "", "reuse an existing upload namespace instead of minting one")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	application, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	namespace, _ := cmd.Flags().GetString("upload-id")
	if namespace == "" {
		namespace = ingest.NewNamespace()
	}

	ingestor := ingest.New(application.backend, application.logger)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Table", "Columns", "Rows"})

	for _, path := range args {
		file, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeValidation, "failed to open %s", path)
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		summary, err := ingestor.IngestCSV(cmd.Context(), namespace, name, file)
		_ = file.Close()
		if err != nil {
			return err
		}

		t.AppendRow(table.Row{summary.Table, len(summary.Columns), summary.RowCount})
	}

	t.Render()
	fmt.Printf("\nUpload ID: %s\n", namespace)

	return nil
}
