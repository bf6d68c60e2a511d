package database

import (
	"context"
	"fmt"
	"strings"
)

// AggQuery is a filter -> group-by -> aggregate -> sort pipeline over one
// table. Identifiers (Table, Dimensions, aggregate fields) must already be
// validated against an allow-list by the caller; only filter values travel
// as bound arguments.
type AggQuery struct {
	Table      string
	Dimensions []string
	Aggregates []Aggregate
	Where      string
	Args       []interface{}
	Limit      int
}

// Aggregate is one (function, field) metric column.
type Aggregate struct {
	Func  string // SUM, AVG, MIN, MAX, COUNT
	Field string
	Alias string
}

// Build renders the SQL. Sorting is stable: first dimension, then the first
// metric alias.
func (q *AggQuery) Build() (string, []interface{}) {
	var cols []string
	cols = append(cols, q.Dimensions...)
	for _, a := range q.Aggregates {
		cols = append(cols, fmt.Sprintf("%s(%s) AS %s", a.Func, a.Field, a.Alias))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), q.Table)
	if q.Where != "" {
		b.WriteString(" WHERE " + q.Where)
	}
	if len(q.Dimensions) > 0 {
		b.WriteString(" GROUP BY " + strings.Join(q.Dimensions, ", "))
	}
	var order []string
	if len(q.Dimensions) > 0 {
		order = append(order, q.Dimensions[0])
	}
	if len(q.Aggregates) > 0 {
		order = append(order, q.Aggregates[0].Alias)
	}
	if len(order) > 0 {
		b.WriteString(" ORDER BY " + strings.Join(order, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), q.Args
}

// RunAggregation executes the pipeline and returns the column names with the
// raw result rows. The context is honored row by row, so a cancelled caller
// discards partial results.
func (d *Database) RunAggregation(ctx context.Context, q AggQuery) ([]string, [][]interface{}, error) {
	query, args := q.Build()
	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, wrapReportErr("aggregate", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, wrapReportErr("aggregate", err)
	}

	var out [][]interface{}
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, wrapReportErr("aggregate", err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, wrapReportErr("aggregate", err)
	}
	return cols, out, nil
}
