// Package prompt assembles the text sent to the language model for SQL
// generation, correction after a failed execution, and result summarization.
// Prompts are plain strings; the caller decides which model receives them.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tablechat/tablechat/internal/dialect"
	"github.com/tablechat/tablechat/internal/storage"
)

// PreviewRowLimit caps how many result rows are embedded in the summary
// prompt. Enough for the model to describe the shape of the data without
// shipping the whole result set.
const PreviewRowLimit = 5

// Generation builds the NL-to-SQL prompt from the rendered schema of the
// upload's tables and the user's question.
func Generation(schema, question string, d dialect.Dialect) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert %s analyst. Generate a single read-only SQL query to answer the user's question.\n\n", d)
	b.WriteString("Database schema:\n")
	b.WriteString(schema)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Output exactly one SELECT statement and nothing else.\n")
	b.WriteString("- No INSERT, UPDATE, DELETE, DROP, or ALTER statements.\n")
	fmt.Fprintf(&b, "- Quote identifiers with %s when they contain special characters.\n", d.Quoting())
	b.WriteString("- Only reference tables and columns that appear in the schema above.\n")
	b.WriteString("- Prefer aggregated results and add LIMIT 100 unless the question asks for everything.\n")
	b.WriteString("- Return raw SQL only. No markdown fences, no commentary.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question)

	return b.String()
}

// Correction builds the retry prompt after the backend rejected a generated
// statement. The failed SQL and the backend's error text give the model the
// context to emit a fixed statement.
func Correction(schema, question, failedSQL, backendErr string, d dialect.Dialect) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The following %s query failed to execute.\n\n", d)
	b.WriteString("Database schema:\n")
	b.WriteString(schema)
	fmt.Fprintf(&b, "\n\nQuestion: %s\n\n", question)
	fmt.Fprintf(&b, "Failed query:\n%s\n\n", failedSQL)
	fmt.Fprintf(&b, "Error:\n%s\n\n", backendErr)
	b.WriteString("Rewrite the query so it executes successfully. ")
	b.WriteString("Output exactly one corrected SELECT statement, raw SQL only, no markdown fences, no commentary.\n")

	return b.String()
}

// Summary builds the answer-and-chart prompt from the question and a preview
// of the executed result. The model must reply with a strict JSON object so
// the response can be decoded into a visualization suggestion.
func Summary(question string, result *storage.Result) string {
	preview := result.Rows
	if len(preview) > PreviewRowLimit {
		preview = preview[:PreviewRowLimit]
	}

	previewJSON, err := json.MarshalIndent(preview, "", "  ")
	if err != nil {
		previewJSON = []byte("[]")
	}

	var b strings.Builder

	b.WriteString("You are a data analyst. A user asked a question about their spreadsheet and a SQL query produced the result sample below.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "Result columns: %s\n", strings.Join(result.Columns, ", "))
	fmt.Fprintf(&b, "Result sample (first %d rows):\n%s\n\n", len(preview), previewJSON)
	b.WriteString("Respond with a single JSON object and nothing else, using exactly these fields:\n")
	b.WriteString(`{
  "natural_language_answer": "one or two sentences answering the question",
  "chart_type": "bar, line, pie, or table",
  "x_axis": "column name for the x axis, or null",
  "y_axis": ["column names for the y axis"],
  "title": "short chart title"
}`)
	b.WriteString("\n\nUse chart_type \"table\" with null axes when the result does not suit a chart. ")
	b.WriteString("Axis names must be columns from the result. No markdown fences.\n")

	return b.String()
}
