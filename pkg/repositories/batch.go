package repositories

import "github.com/huandu/go-sqlbuilder"

// maxBindParams is the PostgreSQL limit on parameters in one statement.
const maxBindParams = 65535

// rowsPerInsert returns how many rows of width cols fit in one statement.
func rowsPerInsert(cols int) int {
	if cols <= 0 {
		return 1
	}
	return maxBindParams / cols
}

// chunk splits n rows into [start, end) ranges of at most size rows.
func chunk(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// buildInsert renders a multi-row INSERT for cols with the given values
// followed by suffix (typically an ON CONFLICT clause).
func buildInsert(table string, cols []string, values [][]any, suffix string) (string, []any) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(cols...)
	for _, v := range values {
		ib.Values(v...)
	}
	query, args := ib.Build()
	if suffix != "" {
		query += " " + suffix
	}
	return query, args
}
