package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablechat/tablechat/internal/errors"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return NewBackend(db, "sqlite")
}

func seedNamespace(t *testing.T, b *Backend, namespace string) {
	t.Helper()

	ctx := context.Background()
	prefix := NamespacePrefix(namespace)

	_, err := b.DB().ExecContext(ctx, `CREATE TABLE `+prefix+`sales (
		region TEXT,
		amount REAL,
		items INTEGER
	)`)
	require.NoError(t, err)

	_, err = b.DB().ExecContext(ctx, `INSERT INTO `+prefix+`sales (region, amount, items) VALUES
		('north', 120.5, 3),
		('south', 80.0, 2),
		('north', 42.0, 1)`)
	require.NoError(t, err)
}

func TestNamespacePrefix(t *testing.T) {
	assert.Equal(t, "data_abc_123_", NamespacePrefix("abc-123"))
}

func TestListTables(t *testing.T) {
	b := newTestBackend(t)
	seedNamespace(t, b, "abc-123")

	tables, err := b.ListTables(context.Background(), "abc-123")
	require.NoError(t, err)
	require.Len(t, tables, 1)

	assert.Equal(t, "data_abc_123_sales", tables[0].Name)
	require.Len(t, tables[0].Columns, 3)
	assert.Equal(t, "region", tables[0].Columns[0].Name)
	assert.Equal(t, "TEXT", tables[0].Columns[0].Type)
}

func TestListTablesNotFound(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.ListTables(context.Background(), "nothing-here")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestListTablesScopedToNamespace(t *testing.T) {
	b := newTestBackend(t)
	seedNamespace(t, b, "first-upload")
	seedNamespace(t, b, "second-upload")

	tables, err := b.ListTables(context.Background(), "first-upload")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "data_first_upload_sales", tables[0].Name)
}

func TestSchemaString(t *testing.T) {
	tables := []TableSchema{
		{
			Name: "data_x_sales",
			Columns: []Column{
				{Name: "region", Type: "TEXT"},
				{Name: "amount", Type: "REAL"},
			},
		},
	}

	want := "Table 'data_x_sales':\n  - region (TEXT)\n  - amount (REAL)\n"
	assert.Equal(t, want, SchemaString(tables))
}

func TestExecuteReadOnly(t *testing.T) {
	b := newTestBackend(t)
	seedNamespace(t, b, "abc-123")

	result, err := b.ExecuteReadOnly(context.Background(),
		`SELECT region, SUM(amount) AS total FROM data_abc_123_sales GROUP BY region ORDER BY region`)
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "total"}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "north", result.Rows[0]["region"])
	assert.InDelta(t, 162.5, result.Rows[0]["total"], 0.001)
}

func TestExecuteReadOnlyStableKeySets(t *testing.T) {
	b := newTestBackend(t)
	seedNamespace(t, b, "abc-123")

	result, err := b.ExecuteReadOnly(context.Background(),
		`SELECT region, amount, items FROM data_abc_123_sales`)
	require.NoError(t, err)
	require.NotEmpty(t, result.Rows)

	for _, row := range result.Rows {
		require.Len(t, row, len(result.Columns))

		for _, col := range result.Columns {
			_, ok := row[col]
			assert.True(t, ok, "row missing column %q", col)
		}
	}
}

func TestExecuteReadOnlyFailure(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.ExecuteReadOnly(context.Background(), `SELECT * FROM no_such_table`)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDatabase))
}

func TestNormalizeColumns(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"clean names untouched", []string{"region", "amount"}, []string{"region", "amount"}},
		{"placeholder renamed", []string{"?column?"}, []string{"value"}},
		{"empty renamed", []string{""}, []string{"value"}},
		{"column1 renamed", []string{"column1"}, []string{"value"}},
		{"punctuation renamed", []string{"--"}, []string{"value"}},
		{
			"duplicates after rewrite get suffixes",
			[]string{"?column?", "", "region"},
			[]string{"value", "value_2", "region"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColumns(tt.input))
		})
	}
}
