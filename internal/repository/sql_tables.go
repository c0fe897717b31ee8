package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// sqlDialect captures the differences between the SQL backends.
type sqlDialect struct {
	name      string
	returning bool // supports INSERT/UPDATE ... RETURNING *
	quote     func(string) string
}

func doubleQuote(ident string) string { return `"` + ident + `"` }

func backtick(ident string) string { return "`" + ident + "`" }

// sqlTables implements the table operations shared by every database/sql backend.
type sqlTables struct {
	db      *sqlx.DB
	dialect sqlDialect

	// serialize guards writers on single-writer backends (SQLite).
	serialize bool
	mu        sync.RWMutex
}

func (s *sqlTables) lock() func() {
	if !s.serialize {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *sqlTables) rlock() func() {
	if !s.serialize {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// execSchema runs each DDL statement in order.
func execSchema(db *sqlx.DB, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// where builds a WHERE clause using ? placeholders.
func (s *sqlTables) where(spec tableSpec, filters []Filter) (string, []interface{}, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters))
	for _, f := range filters {
		if err := spec.checkColumn(f.Column); err != nil {
			return "", nil, err
		}
		col := s.dialect.quote(f.Column)
		switch f.Op {
		case OpEq:
			if f.Value == nil {
				clauses = append(clauses, col+" IS NULL")
				continue
			}
			clauses = append(clauses, col+" = ?")
		case OpILike:
			clauses = append(clauses, "LOWER("+col+") LIKE LOWER(?) ESCAPE '!'")
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
		args = append(args, f.Value)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// Select returns the rows of table matching q.
func (s *sqlTables) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	spec, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	where, args, err := s.where(spec, q.Filters)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + s.dialect.quote(spec.name) + where
	if q.Order != nil {
		if err := spec.checkColumn(q.Order.Column); err != nil {
			return nil, err
		}
		dir := "DESC"
		if q.Order.Ascending {
			dir = "ASC"
		}
		query += " ORDER BY " + s.dialect.quote(q.Order.Column) + " " + dir
	}
	if q.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(q.Limit)
	}

	defer s.rlock()()
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", spec.name, err)
	}
	return scanRows(rows)
}

// Insert writes rows in one transaction and returns them as stored.
func (s *sqlTables) Insert(ctx context.Context, table string, rows ...Row) ([]Row, error) {
	spec, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []Row{}, nil
	}

	defer s.lock()()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		stored, err := s.insertOne(ctx, tx, spec, row)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return out, nil
}

func (s *sqlTables) insertOne(ctx context.Context, tx *sqlx.Tx, spec tableSpec, row Row) (Row, error) {
	cols, err := spec.insertColumns(row)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("failed to insert into %s: no columns", spec.name)
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, col := range cols {
		quoted[i] = s.dialect.quote(col)
		marks[i] = "?"
		args[i] = row[col]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.dialect.quote(spec.name), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	if s.dialect.returning {
		rows, err := tx.QueryxContext(ctx, tx.Rebind(query+" RETURNING *"), args...)
		if err != nil {
			return nil, fmt.Errorf("failed to insert into %s: %w", spec.name, err)
		}
		stored, err := scanRows(rows)
		if err != nil {
			return nil, err
		}
		if len(stored) == 0 {
			return nil, fmt.Errorf("failed to insert into %s: no row returned", spec.name)
		}
		return stored[0], nil
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", spec.name, err)
	}
	key := row[spec.primaryKey]
	if spec.autoIncrement && isZeroKey(key) {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read generated key for %s: %w", spec.name, err)
		}
		key = id
	}

	pk := s.dialect.quote(spec.primaryKey)
	rows, err := tx.QueryxContext(ctx, tx.Rebind("SELECT * FROM "+s.dialect.quote(spec.name)+" WHERE "+pk+" = ?"), key)
	if err != nil {
		return nil, fmt.Errorf("failed to read back %s row: %w", spec.name, err)
	}
	stored, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("failed to read back %s row %v", spec.name, key)
	}
	return stored[0], nil
}

// Update applies patch to the matching rows and returns them as stored.
func (s *sqlTables) Update(ctx context.Context, table string, patch Row, filters ...Filter) ([]Row, error) {
	spec, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return nil, ErrMissingFilter
	}
	cols, err := spec.patchColumns(patch)
	if err != nil {
		return nil, err
	}
	where, whereArgs, err := s.where(spec, filters)
	if err != nil {
		return nil, err
	}

	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+len(whereArgs))
	for i, col := range cols {
		sets[i] = s.dialect.quote(col) + " = ?"
		args = append(args, patch[col])
	}
	args = append(args, whereArgs...)
	table = s.dialect.quote(spec.name)
	update := "UPDATE " + table + " SET " + strings.Join(sets, ", ") + where

	defer s.lock()()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var out []Row
	if s.dialect.returning {
		rows, err := tx.QueryxContext(ctx, tx.Rebind(update+" RETURNING *"), args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update %s: %w", spec.name, err)
		}
		if out, err = scanRows(rows); err != nil {
			return nil, err
		}
	} else {
		pk := s.dialect.quote(spec.primaryKey)
		var keys []interface{}
		if err := tx.SelectContext(ctx, &keys, tx.Rebind("SELECT "+pk+" FROM "+table+where), whereArgs...); err != nil {
			return nil, fmt.Errorf("failed to select %s rows to update: %w", spec.name, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(update), args...); err != nil {
			return nil, fmt.Errorf("failed to update %s: %w", spec.name, err)
		}
		out = []Row{}
		if len(keys) > 0 {
			marks := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
			rows, err := tx.QueryxContext(ctx, tx.Rebind("SELECT * FROM "+table+" WHERE "+pk+" IN ("+marks+")"), keys...)
			if err != nil {
				return nil, fmt.Errorf("failed to read back %s rows: %w", spec.name, err)
			}
			if out, err = scanRows(rows); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return out, nil
}

// Delete removes the matching rows.
func (s *sqlTables) Delete(ctx context.Context, table string, filters ...Filter) (int64, error) {
	spec, err := lookupTable(table)
	if err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, ErrMissingFilter
	}
	where, args, err := s.where(spec, filters)
	if err != nil {
		return 0, err
	}

	defer s.lock()()
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM "+s.dialect.quote(spec.name)+where), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", spec.name, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// tableCounts returns the row count of every table.
func (s *sqlTables) tableCounts(ctx context.Context) (map[string]int64, error) {
	defer s.rlock()()
	counts := make(map[string]int64, len(tables))
	for _, name := range TableNames() {
		var n int64
		if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+s.dialect.quote(name)); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}

// Close closes the database connection.
func (s *sqlTables) Close() error {
	return s.db.Close()
}

// scanRows reads every row into a Row and closes rows.
func scanRows(rows *sqlx.Rows) ([]Row, error) {
	defer rows.Close()

	types := map[string]string{}
	if cts, err := rows.ColumnTypes(); err == nil {
		for _, ct := range cts {
			types[ct.Name()] = ct.DatabaseTypeName()
		}
	}

	out := []Row{}
	for rows.Next() {
		m := map[string]interface{}{}
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(Row, len(m))
		for col, v := range m {
			row[col] = normalizeValue(v, types[col])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}

// normalizeValue converts driver values into int64, float64, string or nil.
// MySQL returns every column as []byte, so the column type decides.
func normalizeValue(v interface{}, dbType string) interface{} {
	switch val := v.(type) {
	case []byte:
		s := string(val)
		switch strings.ToUpper(dbType) {
		case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT", "INT2", "INT4", "INT8":
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		case "REAL", "DOUBLE", "FLOAT", "DECIMAL", "NUMERIC", "FLOAT4", "FLOAT8":
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
		return s
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case float32:
		return float64(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	}
	return v
}
