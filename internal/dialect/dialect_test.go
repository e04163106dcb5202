package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		driver string
		want   Dialect
	}{
		{"sqlite", SQLiteLike},
		{"duckdb", PostgresLike},
		{"postgres", PostgresLike},
		{"pgx", PostgresLike},
		{"", SQLiteLike},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.driver))
		})
	}
}

func TestToSQLite(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "to_char becomes strftime",
			input: "SELECT TO_CHAR(order_date, 'YYYY-MM') FROM data_u_sales",
			want:  "SELECT strftime('%Y-%m', order_date) FROM data_u_sales",
		},
		{
			name:  "time tokens",
			input: "SELECT TO_CHAR(ts, 'HH24:MI:SS') FROM data_u_log",
			want:  "SELECT strftime('%H:%M:%S', ts) FROM data_u_log",
		},
		{
			name:  "double colon cast",
			input: "SELECT amount::numeric FROM data_u_sales",
			want:  "SELECT CAST(amount AS REAL) FROM data_u_sales",
		},
		{
			name:  "integer cast",
			input: "SELECT qty::integer FROM data_u_sales",
			want:  "SELECT CAST(qty AS INTEGER) FROM data_u_sales",
		},
		{
			name:  "ilike becomes like",
			input: "SELECT * FROM data_u_sales WHERE region ILIKE '%west%'",
			want:  "SELECT * FROM data_u_sales WHERE region LIKE '%west%'",
		},
		{
			name:  "now becomes datetime",
			input: "SELECT NOW()",
			want:  "SELECT datetime('now')",
		},
		{
			name:  "extract year",
			input: "SELECT EXTRACT(YEAR FROM order_date) FROM data_u_sales",
			want:  "SELECT CAST(strftime('%Y', order_date) AS INTEGER) FROM data_u_sales",
		},
		{
			name:  "plain select untouched",
			input: "SELECT region, SUM(amount) FROM data_u_sales GROUP BY region",
			want:  "SELECT region, SUM(amount) FROM data_u_sales GROUP BY region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToSQLite(tt.input))
		})
	}
}

func TestToPostgres(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		tables []string
		want   string
	}{
		{
			name:  "strftime becomes to_char",
			input: "SELECT strftime('%Y-%m', order_date) FROM t",
			want:  "SELECT TO_CHAR(order_date, 'YYYY-MM') FROM t",
		},
		{
			name:  "numeric cast becomes permissive",
			input: "SELECT CAST(amount AS NUMERIC) FROM t",
			want:  "SELECT CAST(NULLIF(REGEXP_REPLACE(CAST(amount AS TEXT), '[^0-9.-]', '', 'g'), '') AS NUMERIC) FROM t",
		},
		{
			name:  "datetime now",
			input: "SELECT datetime('now')",
			want:  "SELECT NOW()",
		},
		{
			name:   "known table gains quotes",
			input:  "SELECT * FROM data_u1_sales WHERE x > 1",
			tables: []string{"data_u1_sales"},
			want:   `SELECT * FROM "data_u1_sales" WHERE x > 1`,
		},
		{
			name:   "already quoted table untouched",
			input:  `SELECT * FROM "data_u1_sales"`,
			tables: []string{"data_u1_sales"},
			want:   `SELECT * FROM "data_u1_sales"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPostgres(tt.input, tt.tables))
		})
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	pg := "SELECT TO_CHAR(d, 'YYYY-MM-DD') FROM t"
	lite := Normalize(pg, SQLiteLike, nil)
	assert.Equal(t, "SELECT strftime('%Y-%m-%d', d) FROM t", lite)
	assert.Equal(t, pg, Normalize(lite, PostgresLike, nil))
}
