// Package pipeline orchestrates the ask flow: introspect the upload's
// tables, generate SQL from the question, guard it, execute it, retry once
// with a corrected statement on failure, and summarize the result.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tablechat/tablechat/internal/dialect"
	"github.com/tablechat/tablechat/internal/errors"
	"github.com/tablechat/tablechat/internal/llm"
	"github.com/tablechat/tablechat/internal/logging"
	"github.com/tablechat/tablechat/internal/prompt"
	"github.com/tablechat/tablechat/internal/storage"
)

// fallbackRowLimit caps the deterministic preview query used when no
// generator is configured.
const fallbackRowLimit = 50

// Provenance records which attempt produced the executed statement.
type Provenance string

const (
	ProvenanceOriginal  Provenance = "original"
	ProvenanceCorrected Provenance = "corrected"
)

// VisualizationSuggestion tells the client how to chart the result. A
// chart_type of "table" carries null axes.
type VisualizationSuggestion struct {
	ChartType string   `json:"chart_type"`
	XAxis     *string  `json:"x_axis"`
	YAxis     []string `json:"y_axis"`
	Title     string   `json:"title"`
}

// Response is the full answer to a question: the prose summary, the
// normalized result rows, the chart suggestion, and the SQL that ran.
type Response struct {
	NaturalLanguageAnswer string                  `json:"natural_language_answer"`
	QueryResultData       []storage.Row           `json:"query_result_data"`
	Columns               []string                `json:"columns"`
	Visualization         VisualizationSuggestion `json:"visualization_suggestion"`
	SQL                   string                  `json:"sql"`
	SQLProvenance         Provenance              `json:"sql_provenance"`
}

// Pipeline wires the storage backend and an optional generator. A nil
// generator degrades every LLM step to its deterministic fallback.
type Pipeline struct {
	backend      *storage.Backend
	generator    llm.Generator
	logger       *logging.Logger
	queryTimeout time.Duration
}

// New builds a pipeline. generator may be nil.
func New(backend *storage.Backend, generator llm.Generator, logger *logging.Logger, queryTimeout time.Duration) *Pipeline {
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.GetLogger()
	}

	return &Pipeline{
		backend:      backend,
		generator:    generator,
		logger:       logger,
		queryTimeout: queryTimeout,
	}
}

// Ask answers a natural-language question against the tables of one upload
// namespace.
func (p *Pipeline) Ask(ctx context.Context, namespace, question string) (*Response, error) {
	tables, err := p.backend.ListTables(ctx, namespace)
	if err != nil {
		return nil, err
	}

	schema := storage.SchemaString(tables)
	d := dialect.Detect(p.backend.Driver())

	sql := p.generateSQL(ctx, schema, question, d, tables)

	guarded, err := GuardStatement(sql)
	if err != nil {
		return nil, err
	}

	result, executed, provenance, err := p.executeWithRetry(ctx, guarded, schema, question, d, tables)
	if err != nil {
		return nil, err
	}

	answer, viz := p.summarize(ctx, question, result)

	return &Response{
		NaturalLanguageAnswer: answer,
		QueryResultData:       result.Rows,
		Columns:               result.Columns,
		Visualization:         viz,
		SQL:                   executed,
		SQLProvenance:         provenance,
	}, nil
}

// generateSQL asks the model for a statement. With no generator configured,
// or when every model candidate fails, it degrades to a preview of the
// first table so the user still gets their data back.
func (p *Pipeline) generateSQL(ctx context.Context, schema, question string, d dialect.Dialect, tables []storage.TableSchema) string {
	if p.generator == nil {
		p.logger.Debug("no generator configured, using preview query")
		return p.fallbackQuery(tables)
	}

	output, err := p.generator.Generate(ctx, prompt.Generation(schema, question, d), false)
	if err != nil {
		p.logger.WithError(err).Warn("SQL generation failed, using preview query")
		return p.fallbackQuery(tables)
	}

	return llm.CleanResponse(output)
}

func (p *Pipeline) fallbackQuery(tables []storage.TableSchema) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d",
		p.backend.QuoteIdent(tables[0].Name), fallbackRowLimit)
}

// executeWithRetry runs the statement and, on failure, makes exactly one
// correction attempt. The default correction is the lossy dialect rewrite;
// when the failure looks like a syntax or reference error and a generator is
// configured, the model is asked to fix the statement instead.
func (p *Pipeline) executeWithRetry(ctx context.Context, sql, schema, question string, d dialect.Dialect, tables []storage.TableSchema) (*storage.Result, string, Provenance, error) {
	result, execErr := p.execute(ctx, sql)
	if execErr == nil {
		return result, sql, ProvenanceOriginal, nil
	}

	p.logger.WithField("sql", sql).WithError(execErr).Warn("query failed, attempting correction")

	corrected := dialect.Normalize(sql, d, storage.TableNames(tables))
	if p.generator != nil && isCorrectable(execErr) {
		if fixed := p.correctWithModel(ctx, schema, question, sql, execErr, d); fixed != "" {
			corrected = fixed
		}
	}

	guarded, err := GuardStatement(corrected)
	if err != nil || guarded == sql {
		return nil, "", "", errors.Wrap(execErr, errors.ErrTypeQueryExecution, "query execution failed")
	}

	result, retryErr := p.execute(ctx, guarded)
	if retryErr != nil {
		return nil, "", "", errors.Wrap(retryErr, errors.ErrTypeQueryExecution, "query execution failed after correction")
	}

	return result, guarded, ProvenanceCorrected, nil
}

func (p *Pipeline) correctWithModel(ctx context.Context, schema, question, failedSQL string, execErr error, d dialect.Dialect) string {
	output, err := p.generator.Generate(ctx, prompt.Correction(schema, question, failedSQL, execErr.Error(), d), false)
	if err != nil {
		p.logger.WithError(err).Warn("model correction failed, falling back to dialect rewrite")
		return ""
	}

	return llm.CleanResponse(output)
}

func (p *Pipeline) execute(ctx context.Context, sql string) (*storage.Result, error) {
	execCtx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	return p.backend.ExecuteReadOnly(execCtx, sql)
}

// isCorrectable reports whether a backend error is worth sending back to the
// model. Reference and syntax errors are; timeouts and connection failures
// are not.
func isCorrectable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"syntax",
		"no such column",
		"no such table",
		"no such function",
		"does not exist",
		"unknown column",
		"ambiguous",
		"parser error",
		"binder error",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
