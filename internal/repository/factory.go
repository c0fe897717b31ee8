package repository

import (
	"fmt"

	"go.uber.org/zap"
)

// Options selects and configures a table repository backend.
type Options struct {
	Type          string // sqlite, postgres, mysql or mongodb
	SQLitePath    string
	PostgresDSN   string
	MySQLDSN      string
	MongoURI      string
	MongoDatabase string
}

// Open creates the table repository named by opts.Type.
func Open(opts Options, logger *zap.Logger) (TableRepository, error) {
	switch opts.Type {
	case "mongodb", "mongo":
		return NewMongoDBTableRepository(opts.MongoURI, opts.MongoDatabase, logger)
	case "postgres", "postgresql":
		return NewPostgresTableRepository(opts.PostgresDSN, logger)
	case "mysql":
		return NewMySQLTableRepository(opts.MySQLDSN, logger)
	case "sqlite", "":
		return NewSQLiteTableRepository(opts.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unsupported database type %q", opts.Type)
	}
}
