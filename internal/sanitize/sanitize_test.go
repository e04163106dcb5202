package sanitize

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Revenue", "revenue"},
		{"spaces", "Total Revenue (USD)", "total_revenue_usd"},
		{"leading digit", "2023 Sales", "sales"},
		{"punctuation run", "a -- b", "a_b"},
		{"unicode", "prix €", "prix"},
		{"already clean", "unit_price", "unit_price"},
		{"empty", "", FallbackToken},
		{"all invalid", "???", FallbackToken},
		{"only digits", "12345", FallbackToken},
		{"trailing underscore", "name_", "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Identifier(tt.input))
		})
	}
}

func TestIdentifierShape(t *testing.T) {
	inputs := []string{
		"Revenue", "2023 Sales", "?column?", "", "  ", "a b c", "ÄÖÜ", "x1",
		"total-revenue", "Sheet 1", "9lives", "__init__", "price ($)",
	}

	for _, in := range inputs {
		got := Identifier(in)
		if got != FallbackToken {
			assert.Regexp(t, identPattern, got, "input %q", in)
		}
	}
}

func TestIdentifierIdempotent(t *testing.T) {
	inputs := []string{"Revenue", "2023 Sales", "?column?", "", "Total Revenue (USD)", "unit_price"}

	for _, in := range inputs {
		once := Identifier(in)
		assert.Equal(t, once, Identifier(once), "input %q", in)
	}
}

func TestNamespace(t *testing.T) {
	assert.Equal(
		t,
		"550e8400_e29b_41d4_a716_446655440000",
		Namespace("550e8400-e29b-41d4-a716-446655440000"),
	)
	assert.Equal(t, "abc123", Namespace("ABC123"))
}

func TestUnique(t *testing.T) {
	seen := make(map[string]int)

	assert.Equal(t, "amount", Unique("amount", seen))
	assert.Equal(t, "amount_2", Unique("amount", seen))
	assert.Equal(t, "amount_3", Unique("amount", seen))
	assert.Equal(t, "other", Unique("other", seen))
}
