package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"dumptrack-api/internal/repository"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Cache     CacheConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Logger    LoggerConfig
	Workspace WorkspaceConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"SERVER_ALLOWED_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"dumptrack-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// CacheConfig holds cache settings. The cache stores session tokens and
// the tracking side-cache.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix     string `envconfig:"CACHE_KEY_PREFIX" default:"dumptrack"`
}

// DatabaseConfig holds table repository settings.
type DatabaseConfig struct {
	Type string `envconfig:"DB_TYPE" default:"sqlite"` // sqlite, postgres, mysql or mongodb
	Path string `envconfig:"DB_PATH" default:"./data/dumptrack.db"`
	// PostgreSQL / MySQL settings
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"dumptrack"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASS" default:""`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI      string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"dumptrack"`
}

// AuthConfig holds identity and session settings.
type AuthConfig struct {
	TokenTTL          time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
	AdminEmailTrigger string        `envconfig:"AUTH_ADMIN_EMAIL_TRIGGER" default:"admin"`
	CookieSecret      string        `envconfig:"AUTH_COOKIE_SECRET" default:"dumptrack-dev-cookie-secret-change-me"`
	CookieName        string        `envconfig:"AUTH_COOKIE_NAME" default:"dumptrack_session"`
	CookieSecure      bool          `envconfig:"AUTH_COOKIE_SECURE" default:"false"`
	BcryptCost        int           `envconfig:"AUTH_BCRYPT_COST" default:"10"`
}

// LoggerConfig holds logging settings. Format is json or console; Output is
// stdout or file, rotated by size (MB) and age (days).
type LoggerConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	Format     string `envconfig:"LOG_FORMAT" default:"json"`
	Output     string `envconfig:"LOG_OUTPUT" default:"stdout"`
	FilePath   string `envconfig:"LOG_FILE_PATH" default:"./logs/dumptrack.log"`
	MaxSize    int    `envconfig:"LOG_MAX_SIZE" default:"100"`
	MaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`
	MaxAge     int    `envconfig:"LOG_MAX_AGE" default:"7"`
	Compress   bool   `envconfig:"LOG_COMPRESS" default:"true"`
}

// WorkspaceConfig holds per-session store settings.
type WorkspaceConfig struct {
	IdleTTL        time.Duration `envconfig:"WORKSPACE_IDLE_TTL" default:"1h"`
	SweepInterval  time.Duration `envconfig:"WORKSPACE_SWEEP_INTERVAL" default:"10m"`
	// SideCacheTTL of 0 keeps the tracking slot until it is overwritten.
	SideCacheTTL   time.Duration `envconfig:"WORKSPACE_SIDE_CACHE_TTL" default:"0s"`
	CompensateSaga bool          `envconfig:"WORKSPACE_COMPENSATE_BATCH" default:"false"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"METRICS_PATH" default:"/metrics"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (d *DatabaseConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// RepositoryOptions returns the options for opening the table repository.
func (d *DatabaseConfig) RepositoryOptions() repository.Options {
	return repository.Options{
		Type:          d.Type,
		SQLitePath:    d.Path,
		PostgresDSN:   d.PostgresDSN(),
		MySQLDSN:      d.MySQLDSN(),
		MongoURI:      d.MongoURI,
		MongoDatabase: d.MongoDatabase,
	}
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
