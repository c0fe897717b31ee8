package repository

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// MySQLTableRepository implements TableRepository using MySQL.
// MySQL has no RETURNING, so writes read their rows back by primary key.
type MySQLTableRepository struct {
	*sqlTables
}

// NewMySQLTableRepository creates a new MySQL table repository.
func NewMySQLTableRepository(dsn string, logger *zap.Logger) (*MySQLTableRepository, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := execSchema(db, mysqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("mysql table repository initialized")
	return &MySQLTableRepository{
		sqlTables: &sqlTables{
			db:      db,
			dialect: sqlDialect{name: "mysql", quote: backtick},
		},
	}, nil
}

var mysqlSchema = []string{
	"CREATE TABLE IF NOT EXISTS auth_users (" +
		"id VARCHAR(64) PRIMARY KEY, " +
		"email VARCHAR(255) NOT NULL UNIQUE, " +
		"password_hash VARCHAR(255) NOT NULL, " +
		"created_at VARCHAR(40) NOT NULL)",
	"CREATE TABLE IF NOT EXISTS users (" +
		"id VARCHAR(64) PRIMARY KEY, " +
		"email VARCHAR(255) NOT NULL, " +
		"firstname VARCHAR(255) DEFAULT '', " +
		"lastname VARCHAR(255) DEFAULT '', " +
		"username VARCHAR(255) DEFAULT '', " +
		"role VARCHAR(32) NOT NULL DEFAULT 'user', " +
		"created_at VARCHAR(40))",
	"CREATE TABLE IF NOT EXISTS dump_inventory (" +
		"id BIGINT AUTO_INCREMENT PRIMARY KEY, " +
		"dump_name VARCHAR(255) NOT NULL, " +
		"deposit DOUBLE DEFAULT 0, " +
		"`date` VARCHAR(40), " +
		"rate DOUBLE DEFAULT 0, " +
		"quantity_deposited DOUBLE DEFAULT 0, " +
		"quantity_supplied DOUBLE DEFAULT 0, " +
		"total_amount_supplied DOUBLE DEFAULT 0, " +
		"amount_remaining DOUBLE DEFAULT 0, " +
		"quantity_remaining DOUBLE DEFAULT 0, " +
		"status VARCHAR(64), " +
		"created_at VARCHAR(40), " +
		"INDEX idx_dump_inventory_name (dump_name))",
	"CREATE TABLE IF NOT EXISTS dump_metadata (" +
		"id BIGINT AUTO_INCREMENT PRIMARY KEY, " +
		"dump_name VARCHAR(255) NOT NULL, " +
		"status VARCHAR(64), " +
		"item_count BIGINT DEFAULT 0, " +
		"created_at VARCHAR(40))",
	"CREATE TABLE IF NOT EXISTS tracking_dumps (" +
		"id BIGINT AUTO_INCREMENT PRIMARY KEY, " +
		"name VARCHAR(255) NOT NULL UNIQUE, " +
		"status VARCHAR(64) NOT NULL DEFAULT 'Active', " +
		"created_at VARCHAR(40))",
	"CREATE TABLE IF NOT EXISTS tracking_batches (" +
		"id BIGINT AUTO_INCREMENT PRIMARY KEY, " +
		"batch_id VARCHAR(64) NOT NULL UNIQUE, " +
		"batch_name VARCHAR(255), " +
		"created_at VARCHAR(40), " +
		"created_by VARCHAR(255), " +
		"status VARCHAR(64), " +
		"description TEXT, " +
		"total_containers INT DEFAULT 0)",
	"CREATE TABLE IF NOT EXISTS tracking_batch_data (" +
		"id BIGINT AUTO_INCREMENT PRIMARY KEY, " +
		"batch_id VARCHAR(64), " +
		"dump VARCHAR(255) NOT NULL, " +
		"`date` VARCHAR(40), " +
		"container_no VARCHAR(255), " +
		"driver VARCHAR(255), " +
		"containers_delivered INT DEFAULT 0, " +
		"vessel_details TEXT, " +
		"comments TEXT, " +
		"created_at VARCHAR(40), " +
		"INDEX idx_tracking_batch_data_dump (dump))",
	"CREATE TABLE IF NOT EXISTS reports (" +
		"id BIGINT AUTO_INCREMENT PRIMARY KEY, " +
		"content MEDIUMTEXT NOT NULL, " +
		"`type` VARCHAR(64), " +
		"title VARCHAR(255), " +
		"created_at VARCHAR(40))",
}

// GetStats returns statistics about the MySQL database.
func (r *MySQLTableRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	counts, err := r.tableCounts(ctx)
	if err != nil {
		return nil, err
	}

	dbStats := r.db.Stats()
	return map[string]interface{}{
		"driver": "mysql",
		"tables": counts,
		"connections": map[string]interface{}{
			"open":     dbStats.OpenConnections,
			"in_use":   dbStats.InUse,
			"idle":     dbStats.Idle,
			"max_open": dbStats.MaxOpenConnections,
		},
	}, nil
}

// Ensure MySQLTableRepository implements TableRepository
var _ TableRepository = (*MySQLTableRepository)(nil)
