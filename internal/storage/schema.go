package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tablechat/tablechat/internal/errors"
	"github.com/tablechat/tablechat/internal/sanitize"
)

// Column is one (name, declared type) pair from table metadata.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableSchema is the introspected shape of one materialized table.
type TableSchema struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// NamespacePrefix returns the table-name prefix shared by every table that
// belongs to an upload namespace.
func NamespacePrefix(namespace string) string {
	return TablePrefix + sanitize.Namespace(namespace) + "_"
}

// ListTables returns the schema entries of every table whose name starts
// with the namespace prefix, ordered by table name. Fails with NotFound
// when zero tables match.
func (b *Backend) ListTables(ctx context.Context, namespace string) ([]TableSchema, error) {
	prefix := NamespacePrefix(namespace)

	var (
		tables []TableSchema
		err    error
	)

	if b.driver == "sqlite" {
		tables, err = b.listTablesSQLite(ctx, prefix)
	} else {
		tables, err = b.listTablesInformationSchema(ctx, prefix)
	}

	if err != nil {
		return nil, err
	}

	if len(tables) == 0 {
		return nil, errors.Newf(errors.ErrTypeNotFound, "no tables found for upload id %q", namespace).
			WithSuggestion("Upload a spreadsheet first, then query with the returned upload_id")
	}

	return tables, nil
}

// listTablesSQLite walks sqlite_master plus the table_info pragma.
func (b *Backend) listTablesSQLite(ctx context.Context, prefix string) ([]TableSchema, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE ? ORDER BY name`,
		prefix+"%")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to list tables")
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan table name")
		}

		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate tables")
	}

	var tables []TableSchema

	for _, name := range names {
		colRows, err := b.db.QueryContext(ctx,
			`SELECT name, type FROM pragma_table_info(?) ORDER BY cid`, name)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to describe table %s", name)
		}

		table := TableSchema{Name: name}

		for colRows.Next() {
			var col Column
			if err := colRows.Scan(&col.Name, &col.Type); err != nil {
				colRows.Close()
				return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan column")
			}

			table.Columns = append(table.Columns, col)
		}

		if err := colRows.Err(); err != nil {
			colRows.Close()
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate columns")
		}

		colRows.Close()

		tables = append(tables, table)
	}

	return tables, nil
}

// listTablesInformationSchema covers duckdb and postgres, both of which
// expose information_schema.columns.
func (b *Backend) listTablesInformationSchema(ctx context.Context, prefix string) ([]TableSchema, error) {
	query := fmt.Sprintf(`
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_name LIKE %s
		ORDER BY table_name, ordinal_position`, b.Placeholder(1))

	rows, err := b.db.QueryContext(ctx, query, prefix+"%")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to list tables")
	}
	defer rows.Close()

	byTable := make(map[string]*TableSchema)

	var order []string

	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan column metadata")
		}

		table, ok := byTable[tableName]
		if !ok {
			table = &TableSchema{Name: tableName}
			byTable[tableName] = table
			order = append(order, tableName)
		}

		table.Columns = append(table.Columns, Column{Name: columnName, Type: dataType})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to iterate column metadata")
	}

	sort.Strings(order)

	tables := make([]TableSchema, 0, len(order))
	for _, name := range order {
		tables = append(tables, *byTable[name])
	}

	return tables, nil
}

// SchemaString renders schema entries as prompt-ready text: one header line
// per table, one indented line per column with its declared type.
func SchemaString(tables []TableSchema) string {
	var sb strings.Builder

	for _, table := range tables {
		fmt.Fprintf(&sb, "Table '%s':\n", table.Name)

		for _, col := range table.Columns {
			fmt.Fprintf(&sb, "  - %s (%s)\n", col.Name, col.Type)
		}
	}

	return sb.String()
}

// TableNames extracts the names from schema entries in order.
func TableNames(tables []TableSchema) []string {
	names := make([]string, 0, len(tables))
	for _, table := range tables {
		names = append(names, table.Name)
	}

	return names
}
