// Package ingest loads delimited spreadsheet data into namespaced tables.
// Each upload gets a namespace, each sheet or file becomes one table named
// data_<namespace>_<name> with sanitized column identifiers and inferred
// column types.
package ingest

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tablechat/tablechat/internal/errors"
	"github.com/tablechat/tablechat/internal/logging"
	"github.com/tablechat/tablechat/internal/sanitize"
	"github.com/tablechat/tablechat/internal/storage"
)

const (
	// typeProbeRows bounds how many rows participate in type inference.
	typeProbeRows = 1000

	// insertBatchSize bounds rows per INSERT statement.
	insertBatchSize = 500
)

// Summary describes one ingested table.
type Summary struct {
	Namespace string           `json:"namespace"`
	Table     string           `json:"table"`
	Columns   []storage.Column `json:"columns"`
	RowCount  int              `json:"row_count"`
}

// Ingestor writes uploaded data into the storage backend.
type Ingestor struct {
	backend *storage.Backend
	logger  *logging.Logger
}

func New(backend *storage.Backend, logger *logging.Logger) *Ingestor {
	if logger == nil {
		logger = logging.GetLogger()
	}

	return &Ingestor{backend: backend, logger: logger}
}

// NewNamespace mints the namespace for a fresh upload.
func NewNamespace() string {
	return uuid.NewString()
}

// IngestCSV reads a CSV stream into the table data_<namespace>_<name>,
// replacing any previous table of the same name. The first record is the
// header; ragged data rows are padded or truncated to the header width.
func (i *Ingestor) IngestCSV(ctx context.Context, namespace, name string, r io.Reader) (*Summary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrTypeValidation, "file is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeValidation, "failed to read header row")
	}

	columns := sanitizeHeader(header)

	records := make([][]string, 0, 256)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeValidation, "failed to read data row")
		}
		records = append(records, normalizeWidth(record, len(columns)))
	}

	types := inferColumnTypes(records, len(columns))

	table := storage.NamespacePrefix(namespace) + sanitize.Identifier(name)
	schema := make([]storage.Column, len(columns))
	for idx, col := range columns {
		schema[idx] = storage.Column{Name: col, Type: types[idx]}
	}

	if err := i.createAndLoad(ctx, table, schema, records); err != nil {
		return nil, err
	}

	i.logger.WithFields(map[string]interface{}{
		"table": table,
		"rows":  len(records),
	}).Info("ingested table")

	return &Summary{
		Namespace: namespace,
		Table:     table,
		Columns:   schema,
		RowCount:  len(records),
	}, nil
}

// sanitizeHeader maps raw header cells to unique legal identifiers.
func sanitizeHeader(header []string) []string {
	seen := make(map[string]int)
	columns := make([]string, len(header))
	for idx, cell := range header {
		columns[idx] = sanitize.Unique(sanitize.Identifier(cell), seen)
	}

	return columns
}

func normalizeWidth(record []string, width int) []string {
	if len(record) == width {
		return record
	}
	if len(record) > width {
		return record[:width]
	}

	padded := make([]string, width)
	copy(padded, record)

	return padded
}

// inferColumnTypes probes the leading rows and assigns the narrowest SQL
// type every non-empty cell of a column fits. Empty cells are neutral; a
// column with no values at all stays TEXT.
func inferColumnTypes(records [][]string, width int) []string {
	allInt := make([]bool, width)
	allReal := make([]bool, width)
	hasValue := make([]bool, width)
	for idx := range allInt {
		allInt[idx] = true
		allReal[idx] = true
	}

	probe := records
	if len(probe) > typeProbeRows {
		probe = probe[:typeProbeRows]
	}

	for _, record := range probe {
		for idx, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			hasValue[idx] = true

			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				allInt[idx] = false
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				allReal[idx] = false
			}
		}
	}

	types := make([]string, width)
	for idx := range types {
		switch {
		case !hasValue[idx]:
			types[idx] = "TEXT"
		case allInt[idx]:
			types[idx] = "INTEGER"
		case allReal[idx]:
			types[idx] = "REAL"
		default:
			types[idx] = "TEXT"
		}
	}

	return types
}

// createAndLoad replaces the target table and bulk-inserts the records in
// one transaction.
func (i *Ingestor) createAndLoad(ctx context.Context, table string, schema []storage.Column, records [][]string) error {
	return i.backend.WithTx(ctx, func(tx *sql.Tx) error {
		quoted := i.backend.QuoteIdent(table)

		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
			return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to drop existing table %s", table)
		}

		defs := make([]string, len(schema))
		for idx, col := range schema {
			defs[idx] = fmt.Sprintf("%s %s", i.backend.QuoteIdent(col.Name), col.Type)
		}

		createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", quoted, strings.Join(defs, ", "))
		if _, err := tx.ExecContext(ctx, createSQL); err != nil {
			return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to create table %s", table)
		}

		for start := 0; start < len(records); start += insertBatchSize {
			end := start + insertBatchSize
			if end > len(records) {
				end = len(records)
			}
			if err := i.insertBatch(ctx, tx, quoted, schema, records[start:end]); err != nil {
				return err
			}
		}

		return nil
	})
}

func (i *Ingestor) insertBatch(ctx context.Context, tx *sql.Tx, quotedTable string, schema []storage.Column, records [][]string) error {
	if len(records) == 0 {
		return nil
	}

	columns := make([]string, len(schema))
	for idx, col := range schema {
		columns[idx] = i.backend.QuoteIdent(col.Name)
	}

	var sb strings.Builder
	args := make([]interface{}, 0, len(records)*len(schema))

	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", quotedTable, strings.Join(columns, ", "))
	for rowIdx, record := range records {
		if rowIdx > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for colIdx := range schema {
			if colIdx > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(i.backend.Placeholder(len(args) + 1))
			args = append(args, coerceValue(record[colIdx], schema[colIdx].Type))
		}
		sb.WriteString(")")
	}

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to insert rows")
	}

	return nil
}

// coerceValue converts a CSV cell to the Go value matching the column type.
// Empty cells become NULL; a cell that resists its column's type is stored
// as NULL rather than failing the upload.
func coerceValue(cell, colType string) interface{} {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}

	switch colType {
	case "INTEGER":
		if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return v
		}
		return nil
	case "REAL":
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			return v
		}
		return nil
	default:
		return cell
	}
}
