package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/tablechat/tablechat/internal/llm"
	"github.com/tablechat/tablechat/internal/prompt"
	"github.com/tablechat/tablechat/internal/storage"
)

const (
	// deterministicAnswer is returned when no generator is configured.
	deterministicAnswer = "Here are the first rows from your uploaded data."

	fallbackTitle = "Query Result"

	// maxRawAnswerLen truncates a malformed model reply reused as prose.
	maxRawAnswerLen = 500
)

var validChartTypes = map[string]bool{
	"bar":   true,
	"line":  true,
	"pie":   true,
	"table": true,
}

// summarize turns an executed result into prose and a chart suggestion.
// It never fails: a missing generator, a generation error, or malformed
// model output all degrade to a tabular suggestion so a successful query is
// never lost to a bad summary.
func (p *Pipeline) summarize(ctx context.Context, question string, result *storage.Result) (string, VisualizationSuggestion) {
	if p.generator == nil {
		return deterministicAnswer, tableSuggestion(fallbackTitle)
	}

	output, err := p.generator.Generate(ctx, prompt.Summary(question, result), true)
	if err != nil {
		p.logger.WithError(err).Warn("summary generation failed, using deterministic summary")
		return deterministicAnswer, tableSuggestion(fallbackTitle)
	}

	return parseSummary(llm.CleanResponse(output), result.Columns)
}

// rawSummary tolerates the field shapes models actually emit: x_axis as a
// string or null, y_axis as a string, a list, or absent.
type rawSummary struct {
	NaturalLanguageAnswer string          `json:"natural_language_answer"`
	ChartType             string          `json:"chart_type"`
	XAxis                 json.RawMessage `json:"x_axis"`
	YAxis                 json.RawMessage `json:"y_axis"`
	Title                 string          `json:"title"`
}

// parseSummary decodes the model's JSON reply and cross-checks the chart
// fields against the result columns. Undecodable output becomes a tabular
// suggestion whose prose is the truncated raw reply.
func parseSummary(raw string, columns []string) (string, VisualizationSuggestion) {
	var summary rawSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil || summary.NaturalLanguageAnswer == "" {
		answer := strings.TrimSpace(raw)
		if answer == "" {
			answer = deterministicAnswer
		}
		return truncate(answer, maxRawAnswerLen), tableSuggestion(fallbackTitle)
	}

	title := summary.Title
	if title == "" {
		title = fallbackTitle
	}

	chartType := strings.ToLower(summary.ChartType)
	if !validChartTypes[chartType] {
		chartType = "table"
	}

	viz := VisualizationSuggestion{ChartType: chartType, Title: title}
	if chartType != "table" {
		viz.XAxis = decodeAxis(summary.XAxis, columns)
		viz.YAxis = decodeAxisList(summary.YAxis, columns)
		if viz.XAxis == nil && len(viz.YAxis) == 0 {
			viz.ChartType = "table"
		}
	}

	return summary.NaturalLanguageAnswer, viz
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut]
}

func tableSuggestion(title string) VisualizationSuggestion {
	return VisualizationSuggestion{ChartType: "table", Title: title}
}

// decodeAxis accepts a JSON string and validates it against the result
// columns. Anything else decodes to nil.
func decodeAxis(raw json.RawMessage, columns []string) *string {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil || name == "" {
		return nil
	}

	if !containsColumn(columns, name) {
		return nil
	}

	return &name
}

// decodeAxisList accepts a JSON list of strings or a single string.
func decodeAxisList(raw json.RawMessage, columns []string) []string {
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil || single == "" {
			return nil
		}
		names = []string{single}
	}

	valid := make([]string, 0, len(names))
	for _, name := range names {
		if containsColumn(columns, name) {
			valid = append(valid, name)
		}
	}

	if len(valid) == 0 {
		return nil
	}

	return valid
}

func containsColumn(columns []string, name string) bool {
	for _, col := range columns {
		if strings.EqualFold(col, name) {
			return true
		}
	}

	return false
}
