package pipeline

import (
	"regexp"
	"strings"

	"github.com/tablechat/tablechat/internal/errors"
)

var mutatingKeywordRe = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter)\b`)

// GuardStatement validates that a generated statement is a single read-only
// SELECT. It returns the trimmed statement ready for execution, or an
// invalid-statement error naming what was rejected. The check is textual and
// conservative: a mutating keyword anywhere in the statement rejects it,
// even inside a string literal, because a false rejection costs one retry
// while a false acceptance mutates the user's data.
func GuardStatement(raw string) (string, error) {
	stmt := strings.TrimSpace(raw)
	stmt = strings.TrimSuffix(stmt, ";")
	stmt = strings.TrimSpace(stmt)

	if stmt == "" {
		return "", errors.New(errors.ErrTypeInvalidStatement, "generated statement is empty")
	}

	if strings.Contains(stmt, ";") {
		return "", errors.New(errors.ErrTypeInvalidStatement, "multiple statements are not allowed")
	}

	if !strings.HasPrefix(strings.ToUpper(stmt), "SELECT") {
		return "", errors.Newf(errors.ErrTypeInvalidStatement, "only SELECT statements are allowed, got: %s", firstWord(stmt))
	}

	if m := mutatingKeywordRe.FindString(stmt); m != "" {
		return "", errors.Newf(errors.ErrTypeInvalidStatement, "statement contains forbidden keyword: %s", strings.ToUpper(m))
	}

	return stmt, nil
}

func firstWord(stmt string) string {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return ""
	}

	return strings.ToUpper(fields[0])
}
