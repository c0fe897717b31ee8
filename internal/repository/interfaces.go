package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Row is a single table row keyed by column name.
type Row map[string]interface{}

// Filter operators.
const (
	OpEq    = "eq"
	OpILike = "ilike"
)

// Filter restricts a table operation to matching rows.
type Filter struct {
	Column string
	Op     string
	Value  interface{}
}

// Eq matches rows whose column equals value.
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// likeEscape marks the next pattern rune as a literal. It must not be a
// backslash: MySQL string literals consume those.
const likeEscape = '!'

// ILike matches rows whose column matches pattern case-insensitively.
// % and _ are wildcards; quote user text with EscapeLike.
func ILike(column, pattern string) Filter {
	return Filter{Column: column, Op: OpILike, Value: pattern}
}

// EscapeLike quotes the LIKE wildcards in s so it matches itself.
func EscapeLike(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '%' || r == '_' || r == likeEscape {
			b.WriteRune(likeEscape)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Contains matches rows whose column contains s, ignoring case.
func Contains(column, s string) Filter {
	return ILike(column, "%"+EscapeLike(s)+"%")
}

// Order sorts a select by one column.
type Order struct {
	Column    string
	Ascending bool
}

// Asc orders by column ascending.
func Asc(column string) *Order { return &Order{Column: column, Ascending: true} }

// Desc orders by column descending.
func Desc(column string) *Order { return &Order{Column: column} }

// Query describes a select.
type Query struct {
	Filters []Filter
	Order   *Order
	Limit   int
}

var (
	// ErrUnknownTable is returned for tables outside the schema.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn is returned for columns outside a table's schema.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrEmptyPatch is returned when an update has nothing to set.
	ErrEmptyPatch = errors.New("empty patch")

	// ErrMissingFilter is returned when an update or delete would touch every row.
	ErrMissingFilter = errors.New("update and delete require at least one filter")
)

// TableRepository defines row-level data access for the dashboard tables.
type TableRepository interface {
	// Select returns the rows of table matching q.
	Select(ctx context.Context, table string, q Query) ([]Row, error)

	// Insert writes rows and returns them as stored, including generated keys.
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)

	// Update applies patch to the matching rows and returns them as stored.
	Update(ctx context.Context, table string, patch Row, filters ...Filter) ([]Row, error)

	// Delete removes the matching rows and returns how many were removed.
	Delete(ctx context.Context, table string, filters ...Filter) (int64, error)

	// GetStats returns statistics about the database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}

// likeToRegex converts a LIKE pattern into an anchored regular expression.
func likeToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	escaped := false
	for _, r := range pattern {
		if !escaped && r == likeEscape {
			escaped = true
			continue
		}
		if escaped {
			escaped = false
			b.WriteString(regexp.QuoteMeta(string(r)))
			continue
		}
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		case '.', '*', '+', '?', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("$")
	return b.String()
}
