package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLiteTableRepository implements TableRepository using SQLite.
// Writers are serialized; WAL mode keeps reads concurrent.
type SQLiteTableRepository struct {
	*sqlTables
	path string
}

// NewSQLiteTableRepository creates a new SQLite table repository.
// dbPath is the path to the SQLite database file (e.g., "./data/dumptrack.db")
func NewSQLiteTableRepository(dbPath string, logger *zap.Logger) (*SQLiteTableRepository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := execSchema(db, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("sqlite table repository initialized", zap.String("path", dbPath))
	return &SQLiteTableRepository{
		sqlTables: &sqlTables{
			db:        db,
			dialect:   sqlDialect{name: "sqlite", returning: true, quote: doubleQuote},
			serialize: true,
		},
		path: dbPath,
	}, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS auth_users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		firstname TEXT DEFAULT '',
		lastname TEXT DEFAULT '',
		username TEXT DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		created_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS dump_inventory (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dump_name TEXT NOT NULL,
		deposit REAL DEFAULT 0,
		date TEXT,
		rate REAL DEFAULT 0,
		quantity_deposited REAL DEFAULT 0,
		quantity_supplied REAL DEFAULT 0,
		total_amount_supplied REAL DEFAULT 0,
		amount_remaining REAL DEFAULT 0,
		quantity_remaining REAL DEFAULT 0,
		status TEXT,
		created_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dump_inventory_name ON dump_inventory(dump_name)`,
	`CREATE TABLE IF NOT EXISTS dump_metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dump_name TEXT NOT NULL,
		status TEXT,
		item_count INTEGER DEFAULT 0,
		created_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS tracking_dumps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'Active',
		created_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS tracking_batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL UNIQUE,
		batch_name TEXT,
		created_at TEXT,
		created_by TEXT,
		status TEXT,
		description TEXT,
		total_containers INTEGER DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS tracking_batch_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT,
		dump TEXT NOT NULL,
		date TEXT,
		container_no TEXT,
		driver TEXT,
		containers_delivered INTEGER DEFAULT 0,
		vessel_details TEXT,
		comments TEXT,
		created_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tracking_batch_data_dump ON tracking_batch_data(dump)`,
	`CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		type TEXT,
		title TEXT,
		created_at TEXT
	)`,
}

// GetStats returns statistics about the SQLite database.
func (r *SQLiteTableRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	counts, err := r.tableCounts(ctx)
	if err != nil {
		return nil, err
	}

	stats := map[string]interface{}{
		"driver": "sqlite",
		"path":   r.path,
		"tables": counts,
	}

	// Database file size (approximate from page count)
	var pageCount, pageSize sql.NullInt64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount.Int64 * pageSize.Int64

	return stats, nil
}

// Ensure SQLiteTableRepository implements TableRepository
var _ TableRepository = (*SQLiteTableRepository)(nil)
