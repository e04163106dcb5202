package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tablechat/tablechat/internal/storage"
)

var askCmd = &cobra.Command{
	Use:   "ask <upload-id> <question>",
	Short: "Ask a question about an upload",
	Long: `Generate, guard, and execute a read-only SQL query answering the
question, then print the answer and the result rows.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Bool("show-sql", false, "print the executed SQL statement")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	application, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	uploadID := args[0]
	question := strings.Join(args[1:], " ")

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	spin.Suffix = " thinking..."
	spin.Start()

	resp, err := application.pipeline.Ask(cmd.Context(), uploadID, question)
	spin.Stop()
	if err != nil {
		return err
	}

	fmt.Println(resp.NaturalLanguageAnswer)
	fmt.Println()
	renderRows(resp.Columns, resp.QueryResultData)

	if showSQL, _ := cmd.Flags().GetBool("show-sql"); showSQL {
		fmt.Printf("\nSQL (%s): %s\n", resp.SQLProvenance, resp.SQL)
	}
	if resp.Visualization.ChartType != "table" {
		fmt.Printf("\nSuggested chart: %s (%s)\n", resp.Visualization.ChartType, resp.Visualization.Title)
	}

	return nil
}

// renderRows prints the result set in the query's column order.
func renderRows(columns []string, rows []storage.Row) {
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return
	}

	if len(columns) == 0 {
		columns = sortedColumns(rows[0])
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	header := make(table.Row, len(columns))
	for idx, col := range columns {
		header[idx] = col
	}
	t.AppendHeader(header)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for idx, col := range columns {
			cells[idx] = formatCell(row[col])
		}
		t.AppendRow(cells)
	}

	t.Render()
}

func sortedColumns(row storage.Row) []string {
	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}

	sort.Strings(columns)

	return columns
}

func formatCell(v interface{}) string {
	if v == nil {
		return ""
	}

	return fmt.Sprintf("%v", v)
}
