// Package querybuilder assembles the small slice of SQL this service
// actually issues. It is not an ORM: repositories still own their queries,
// the builder only keeps placeholder numbering and literal quoting honest.
package querybuilder

import (
	"errors"
	"strings"
)

var (
	errSelectNoColumns = errors.New("querybuilder: select needs at least one column")
	errSelectNoTable   = errors.New("querybuilder: select needs a table")
)

// SelectBuilder accumulates the pieces of a SELECT statement. The zero
// value is unusable; start from Select.
type SelectBuilder struct {
	columns   []string
	table     string
	filters   []Predicate
	orderings []string
}

// Select starts a statement projecting the given columns.
func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: columns}
}

// From names the table to select from.
func (sb *SelectBuilder) From(table string) *SelectBuilder {
	sb.table = table
	return sb
}

// Where adds predicates, all joined with AND.
func (sb *SelectBuilder) Where(predicates ...Predicate) *SelectBuilder {
	sb.filters = append(sb.filters, predicates...)
	return sb
}

// OrderBy adds ORDER BY terms in the given order.
func (sb *SelectBuilder) OrderBy(terms ...string) *SelectBuilder {
	sb.orderings = append(sb.orderings, terms...)
	return sb
}

// ToSQL renders the statement and its bound arguments.
func (sb *SelectBuilder) ToSQL() (string, []any, error) {
	if len(sb.columns) == 0 {
		return "", nil, errSelectNoColumns
	}
	if sb.table == "" {
		return "", nil, errSelectNoTable
	}

	binder := &argBinder{}
	clauses := []string{
		"SELECT " + strings.Join(sb.columns, ", "),
		"FROM " + sb.table,
	}
	if len(sb.filters) > 0 {
		fragments := make([]string, len(sb.filters))
		for i, predicate := range sb.filters {
			fragments[i] = predicate(binder)
		}
		clauses = append(clauses, "WHERE "+strings.Join(fragments, " AND "))
	}
	if len(sb.orderings) > 0 {
		clauses = append(clauses, "ORDER BY "+strings.Join(sb.orderings, ", "))
	}
	return strings.Join(clauses, " "), binder.values, nil
}
