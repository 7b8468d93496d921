package querybuilder

import (
	"strconv"
	"strings"
)

// argBinder collects positional arguments and hands out PostgreSQL
// placeholders. Placeholders are numbered in bind order, starting at $1.
type argBinder struct {
	values []any
}

func (b *argBinder) bind(value any) string {
	b.values = append(b.values, value)
	return placeholder(len(b.values))
}

// Predicate renders one WHERE fragment, binding any arguments it needs.
type Predicate func(binder *argBinder) string

// Eq matches column = $n.
func Eq(column string, value any) Predicate {
	return func(binder *argBinder) string {
		return column + " = " + binder.bind(value)
	}
}

// EqLiteral inlines the value as a quoted SQL literal instead of binding a
// placeholder. Exists for the PgBouncer fallback paths where prepared
// statements are unavailable; prefer Eq everywhere else.
func EqLiteral(column, value string) Predicate {
	return func(*argBinder) string {
		return column + " = " + quoteStringLiteral(value)
	}
}

// IsNull matches column IS NULL.
func IsNull(column string) Predicate {
	return func(*argBinder) string {
		return column + " IS NULL"
	}
}

// Expr passes raw SQL through. Each ? in the fragment is replaced with a
// bound placeholder for the matching argument; with no arguments the
// fragment is emitted untouched, question marks included.
func Expr(fragment string, args ...any) Predicate {
	return func(binder *argBinder) string {
		if len(args) == 0 {
			return fragment
		}
		var out strings.Builder
		next := 0
		for i := 0; i < len(fragment); i++ {
			if fragment[i] == '?' && next < len(args) {
				out.WriteString(binder.bind(args[next]))
				next++
				continue
			}
			out.WriteByte(fragment[i])
		}
		return out.String()
	}
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func quoteStringLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
