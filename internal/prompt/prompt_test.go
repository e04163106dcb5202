package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tablechat/tablechat/internal/dialect"
	"github.com/tablechat/tablechat/internal/storage"
)

const testSchema = "Table 'data_u1_sales':\n  - region (TEXT)\n  - amount (REAL)"

func TestGeneration(t *testing.T) {
	p := Generation(testSchema, "total sales by region", dialect.SQLiteLike)

	assert.Contains(t, p, "SQLite")
	assert.Contains(t, p, testSchema)
	assert.Contains(t, p, "total sales by region")
	assert.Contains(t, p, "one SELECT statement")
	assert.Contains(t, p, "No markdown fences")
	assert.NotContains(t, p, "PostgreSQL")
}

func TestGenerationPostgres(t *testing.T) {
	p := Generation(testSchema, "top customers", dialect.PostgresLike)

	assert.Contains(t, p, "PostgreSQL")
}

func TestCorrection(t *testing.T) {
	p := Correction(testSchema, "total sales", "SELECT bogus FROM data_u1_sales", "no such column: bogus", dialect.SQLiteLike)

	assert.Contains(t, p, "SELECT bogus FROM data_u1_sales")
	assert.Contains(t, p, "no such column: bogus")
	assert.Contains(t, p, testSchema)
	assert.Contains(t, p, "corrected SELECT statement")
}

func TestSummary(t *testing.T) {
	result := &storage.Result{
		Columns: []string{"region", "total"},
		Rows: []storage.Row{
			{"region": "west", "total": 100},
			{"region": "east", "total": 50},
		},
	}

	p := Summary("sales by region", result)

	assert.Contains(t, p, "sales by region")
	assert.Contains(t, p, "region, total")
	assert.Contains(t, p, "west")
	assert.Contains(t, p, `"natural_language_answer"`)
	assert.Contains(t, p, `"chart_type"`)
	assert.Contains(t, p, `"y_axis"`)
}

func TestSummaryTruncatesPreview(t *testing.T) {
	result := &storage.Result{Columns: []string{"n"}}
	for i := 0; i < 20; i++ {
		result.Rows = append(result.Rows, storage.Row{"n": i})
	}

	p := Summary("count", result)

	assert.Contains(t, p, "first 5 rows")
	assert.Equal(t, 1, strings.Count(p, `"n": 4`))
	assert.NotContains(t, p, `"n": 5`)
}
