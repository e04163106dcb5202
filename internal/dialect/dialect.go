// Package dialect classifies the active SQL dialect and performs best-effort
// textual rewrites between the sqlite-like and postgres-like idioms a
// generator may emit. The rewrites are regex substitutions, not a parser:
// they are only used after a first execution attempt has already failed, and
// they aim to produce a more-likely-to-succeed statement, not a provably
// correct one.
package dialect

import (
	"regexp"
	"strings"
)

// Dialect is the syntax family the active backend expects.
type Dialect string

const (
	SQLiteLike   Dialect = "sqlite"
	PostgresLike Dialect = "postgres"
)

// Detect maps a storage driver name to its dialect family. DuckDB ships
// postgres-flavored syntax (ILIKE, :: casts, information_schema), so it is
// grouped with postgres.
func Detect(driver string) Dialect {
	switch strings.ToLower(driver) {
	case "postgres", "pgx", "duckdb":
		return PostgresLike
	default:
		return SQLiteLike
	}
}

// Quoting describes the identifier-quoting convention for prompt text.
func (d Dialect) Quoting() string {
	return `double quotes ("identifier")`
}

func (d Dialect) String() string {
	if d == PostgresLike {
		return "PostgreSQL"
	}

	return "SQLite"
}

// Normalize rewrites sql for the target dialect, assuming the statement was
// written for the other family.
func Normalize(sql string, target Dialect, knownTables []string) string {
	if target == PostgresLike {
		return ToPostgres(sql, knownTables)
	}

	return ToSQLite(sql)
}

var (
	toCharRe   = regexp.MustCompile(`(?i)TO_CHAR\s*\(\s*([^,()]+(?:\([^()]*\))?[^,()]*)\s*,\s*'([^']*)'\s*\)`)
	strftimeRe = regexp.MustCompile(`(?i)STRFTIME\s*\(\s*'([^']*)'\s*,\s*([^,()]+(?:\([^()]*\))?[^,()]*)\s*\)`)
	pgCastRe   = regexp.MustCompile(`(?i)(\([^()]*\)|"[^"]+"|[\w.]+)::(\w+)`)
	castNumRe  = regexp.MustCompile(`(?i)CAST\s*\(\s*([^()]+|\([^()]*\))\s+AS\s+(NUMERIC|DECIMAL|REAL|FLOAT8?|DOUBLE(?:\s+PRECISION)?|INT(?:EGER)?|BIGINT)\s*\)`)
	ilikeRe    = regexp.MustCompile(`(?i)\bILIKE\b`)
	nowRe      = regexp.MustCompile(`(?i)\bNOW\s*\(\s*\)`)
	dtNowRe    = regexp.MustCompile(`(?i)\bDATETIME\s*\(\s*'now'\s*\)`)
	extractRe  = regexp.MustCompile(`(?i)EXTRACT\s*\(\s*(YEAR|MONTH|DAY)\s+FROM\s+([^()]+|\([^()]*\))\s*\)`)
)

// pgToSQLiteFormats maps TO_CHAR tokens to strftime directives. Longer
// tokens first so HH24 wins over HH.
var pgToSQLiteFormats = [][2]string{
	{"YYYY", "%Y"},
	{"HH24", "%H"},
	{"HH12", "%I"},
	{"MON", "%b"},
	{"MM", "%m"},
	{"DD", "%d"},
	{"MI", "%M"},
	{"SS", "%S"},
}

var extractDirectives = map[string]string{
	"YEAR":  "%Y",
	"MONTH": "%m",
	"DAY":   "%d",
}

// ToSQLite rewrites postgres-flavored syntax into sqlite equivalents:
// TO_CHAR becomes strftime, :: casts become CAST(... AS ...), ILIKE drops
// to LIKE (sqlite LIKE is already case-insensitive for ASCII), NOW() and
// EXTRACT map onto datetime/strftime.
func ToSQLite(sql string) string {
	out := toCharRe.ReplaceAllStringFunc(sql, func(m string) string {
		groups := toCharRe.FindStringSubmatch(m)
		return "strftime('" + formatToStrftime(groups[2]) + "', " + strings.TrimSpace(groups[1]) + ")"
	})

	out = pgCastRe.ReplaceAllStringFunc(out, func(m string) string {
		groups := pgCastRe.FindStringSubmatch(m)
		return "CAST(" + groups[1] + " AS " + sqliteCastType(groups[2]) + ")"
	})

	out = extractRe.ReplaceAllStringFunc(out, func(m string) string {
		groups := extractRe.FindStringSubmatch(m)
		directive := extractDirectives[strings.ToUpper(groups[1])]

		return "CAST(strftime('" + directive + "', " + strings.TrimSpace(groups[2]) + ") AS INTEGER)"
	})

	out = ilikeRe.ReplaceAllString(out, "LIKE")
	out = nowRe.ReplaceAllString(out, "datetime('now')")

	return out
}

// ToPostgres rewrites sqlite-flavored syntax into postgres equivalents.
// Numeric casts become a permissive coercion that strips non-numeric
// characters before casting, so dirty text columns coerce to NULL-or-number
// instead of failing the whole query. Unquoted known table names gain
// double quotes.
func ToPostgres(sql string, knownTables []string) string {
	out := strftimeRe.ReplaceAllStringFunc(sql, func(m string) string {
		groups := strftimeRe.FindStringSubmatch(m)
		return "TO_CHAR(" + strings.TrimSpace(groups[2]) + ", '" + strftimeToFormat(groups[1]) + "')"
	})

	out = castNumRe.ReplaceAllStringFunc(out, func(m string) string {
		groups := castNumRe.FindStringSubmatch(m)
		expr := strings.TrimSpace(groups[1])

		return "CAST(NULLIF(REGEXP_REPLACE(CAST(" + expr + " AS TEXT), '[^0-9.-]', '', 'g'), '') AS NUMERIC)"
	})

	out = dtNowRe.ReplaceAllString(out, "NOW()")

	for _, table := range knownTables {
		re := regexp.MustCompile(`(^|[^"\w])(` + regexp.QuoteMeta(table) + `)([^"\w]|$)`)
		out = re.ReplaceAllString(out, `$1"$2"$3`)
	}

	return out
}

// formatToStrftime converts a TO_CHAR format string to strftime directives.
func formatToStrftime(format string) string {
	out := strings.ToUpper(format)
	for _, pair := range pgToSQLiteFormats {
		out = strings.ReplaceAll(out, pair[0], pair[1])
	}

	return out
}

// strftimeToFormat converts strftime directives to a TO_CHAR format string.
func strftimeToFormat(format string) string {
	out := format
	for _, pair := range pgToSQLiteFormats {
		out = strings.ReplaceAll(out, pair[1], pair[0])
	}

	return out
}

// sqliteCastType maps a postgres cast target onto sqlite's storage classes.
func sqliteCastType(pgType string) string {
	switch strings.ToUpper(pgType) {
	case "INT", "INTEGER", "BIGINT", "SMALLINT":
		return "INTEGER"
	case "TEXT", "VARCHAR", "CHAR":
		return "TEXT"
	default:
		return "REAL"
	}
}
