package store

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"gigmap/internal/models"
)

// updatableColumns is the closed set of columns an update always rewrites.
// Column names never come from request input.
var updatableColumns = [...]string{"artist", "type", "province", "city", "venue", "notes", "date"}

const posterColumn = "poster"

// UpdateBuilder renders UPDATE statements for a table from a fixed column list.
type UpdateBuilder struct {
	Table     string
	Returning string
}

// Build returns the statement and its bound arguments. Every updatable column
// is written, absent optional values as NULL; poster is only included when a
// new one is supplied. The id is always the last argument.
func (b UpdateBuilder) Build(id int64, fields models.PerformanceFields, poster *string) (string, []any) {
	values := fieldValues(fields)

	sets := make([]string, 0, len(updatableColumns)+1)
	args := make([]any, 0, len(updatableColumns)+2)
	for i, col := range updatableColumns {
		args = append(args, values[i])
		sets = append(sets, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), len(args)))
	}
	if poster != nil {
		args = append(args, *poster)
		sets = append(sets, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(posterColumn), len(args)))
	}
	args = append(args, id)

	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET %s WHERE id = $%d", pq.QuoteIdentifier(b.Table), strings.Join(sets, ", "), len(args))
	if b.Returning != "" {
		sb.WriteString(" RETURNING ")
		sb.WriteString(b.Returning)
	}
	return sb.String(), args
}

// fieldValues lines the payload up with updatableColumns.
func fieldValues(f models.PerformanceFields) [len(updatableColumns)]any {
	return [...]any{f.Artist, f.Type, f.Province, f.City, f.Venue, f.Notes, f.Date}
}
