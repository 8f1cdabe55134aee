package db

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

// Table is a query result: named columns and rows of values in column order.
// A failed query yields an empty Table (no columns, no rows).
type Table struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// Value returns the cell at row i of the named column.
func (t *Table) Value(i int, column string) (any, bool) {
	if t == nil || i < 0 || i >= len(t.Rows) {
		return nil, false
	}
	for j, c := range t.Columns {
		if c == column {
			return t.Rows[i][j], true
		}
	}
	return nil, false
}

// Records returns the rows as column-name -> value maps.
func (t *Table) Records() []map[string]any {
	if t == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		m := make(map[string]any, len(t.Columns))
		for j, c := range t.Columns {
			m[c] = row[j]
		}
		out = append(out, m)
	}
	return out
}

// String renders the table as aligned text with a header line and no row
// index.
func (t *Table) String() string {
	if t == nil || len(t.Columns) == 0 {
		return "Empty Table"
	}
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formatValue(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

// scanTable reads all rows into a Table. []byte values are copied to strings
// since the driver reuses its buffers between rows.
func scanTable(rows *sql.Rows) (*Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := &Table{Columns: cols}
	if len(cols) == 0 {
		return t, rows.Err()
	}
	scan := make([]any, len(cols))
	for i := range scan {
		scan[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		row := make([]any, len(cols))
		for i := range cols {
			v := *(scan[i].(*any))
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}
