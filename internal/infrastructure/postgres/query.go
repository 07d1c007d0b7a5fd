package postgres

import (
	"strconv"
	"strings"
)

// where accumulates positional filter clauses.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", "$"+itoa(len(w.args))))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// page appends LIMIT/OFFSET placeholders for the next two args.
func (w *where) page(limit, offset int) string {
	if limit <= 0 {
		w.args = append(w.args, offset)
		return " OFFSET $" + itoa(len(w.args))
	}
	w.args = append(w.args, limit, offset)
	return " LIMIT $" + itoa(len(w.args)-1) + " OFFSET $" + itoa(len(w.args))
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
