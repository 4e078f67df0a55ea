package domain

import (
	"strconv"
	"strings"
)

// RebindDollar rewrites "?" placeholders to "$1", "$2", ... skipping quoted
// strings, quoted identifiers, line comments and block comments.
//
// A statement that already uses "$n" placeholders is returned unchanged, so
// PostgreSQL's jsonb "?" operators survive when written in that form. In a
// "?"-style statement every bare "?" is a placeholder.
func RebindDollar(sql string) string {
	if !strings.Contains(sql, "?") || hasDollarParam(sql) {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) + 8)

	n := 0
	for i := 0; i < len(sql); i++ {
		if end, ok := skipSpan(sql, i); ok {
			b.WriteString(sql[i:end])
			i = end - 1
			continue
		}
		if sql[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(sql[i])
	}
	return b.String()
}

// hasDollarParam reports whether sql contains "$<digit>" outside quotes and comments.
func hasDollarParam(sql string) bool {
	for i := 0; i < len(sql); i++ {
		if end, ok := skipSpan(sql, i); ok {
			i = end - 1
			continue
		}
		if sql[i] == '$' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9' {
			return true
		}
	}
	return false
}

// skipSpan returns the index just past a quoted string, quoted identifier or
// comment starting at i. An unterminated span runs to the end of sql.
func skipSpan(sql string, i int) (int, bool) {
	c := sql[i]
	switch {
	case c == '\'' || c == '"':
		return closingQuote(sql, i, c), true
	case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
		if end := strings.IndexByte(sql[i:], '\n'); end >= 0 {
			return i + end, true
		}
		return len(sql), true
	case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
		if end := strings.Index(sql[i+2:], "*/"); end >= 0 {
			return i + 2 + end + 2, true
		}
		return len(sql), true
	}
	return 0, false
}

// closingQuote returns the index just past the quote that closes the one at start.
// Doubled quotes are escapes.
func closingQuote(sql string, start int, q byte) int {
	for i := start + 1; i < len(sql); i++ {
		if sql[i] != q {
			continue
		}
		if i+1 < len(sql) && sql[i+1] == q {
			i++
			continue
		}
		return i + 1
	}
	return len(sql)
}
