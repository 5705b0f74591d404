package database

import (
    "context"
    "database/sql"
    "fmt"
    "os"
    "strconv"
    "time"

    _ "github.com/lib/pq"
    "go.uber.org/zap"

    "stockdash/pkg/logger"
    "stockdash/pkg/metrics"
)

// DB represents the database connection with connection pooling
type DB struct {
    *sql.DB
    config *Config
}

// Config holds database configuration
type Config struct {
    Host            string
    Port            int
    User            string
    Password        string
    Database        string
    SSLMode         string
    MaxOpenConns    int
    MaxIdleConns    int
    ConnMaxLifetime time.Duration
    ConnMaxIdleTime time.Duration
}

// NewConfig creates a new database configuration from environment variables
func NewConfig() *Config {
    return &Config{
        Host:            getEnvOrDefault("DB_HOST", "localhost"),
        Port:            getEnvIntOrDefault("DB_PORT", 5432),
        User:            getEnvOrDefault("DB_USER", "postgres"),
        Password:        getEnvOrDefault("DB_PASSWORD", ""),
        Database:        getEnvOrDefault("DB_NAME", "stockdash"),
        SSLMode:         getEnvOrDefault("DB_SSLMODE", "disable"),
        MaxOpenConns:    getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 25),
        MaxIdleConns:    getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
        ConnMaxLifetime: getEnvDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
        ConnMaxIdleTime: getEnvDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
    }
}

// New creates a new database connection with connection pooling
func New(config *Config) (*DB, error) {
    dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
        config.Host, config.Port, config.User, config.Password, config.Database, config.SSLMode)

    db, err := sql.Open("postgres", dsn)
    if err != nil {
        return nil, fmt.Errorf("failed to open database: %w", err)
    }

    db.SetMaxOpenConns(config.MaxOpenConns)
    db.SetMaxIdleConns(config.MaxIdleConns)
    db.SetConnMaxLifetime(config.ConnMaxLifetime)
    db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()

    if err := db.PingContext(ctx); err != nil {
        db.Close()
        return nil, fmt.Errorf("failed to ping database: %w", err)
    }

    logger.Log.Info("database connected successfully",
        zap.String("host", config.Host),
        zap.Int("port", config.Port),
        zap.String("database", config.Database))

    return &DB{DB: db, config: config}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
    logger.Log.Info("closing database connection")
    return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
    start := time.Now()
    err := db.PingContext(ctx)
    duration := time.Since(start).Seconds()

    metrics.DatabaseOperationDuration.WithLabelValues("ping", statusLabel(err)).Observe(duration)
    if err != nil {
        metrics.DatabaseErrors.WithLabelValues("ping").Inc()
        return fmt.Errorf("database health check failed: %w", err)
    }
    return nil
}

// Transaction wraps a database transaction with proper error handling
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        return fmt.Errorf("failed to begin transaction: %w", err)
    }

    defer func() {
        if p := recover(); p != nil {
            tx.Rollback()
            panic(p)
        } else if err != nil {
            tx.Rollback()
        } else {
            err = tx.Commit()
        }
    }()

    err = fn(tx)
    return err
}

func statusLabel(err error) string {
    if err != nil {
        return "error"
    }
    return "success"
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
    if value := os.Getenv(key); value != "" {
        return value
    }
    return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
    if value := os.Getenv(key); value != "" {
        if parsed, err := strconv.Atoi(value); err == nil {
            return parsed
        }
    }
    return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
    if value := os.Getenv(key); value != "" {
        if parsed, err := time.ParseDuration(value); err == nil {
            return parsed
        }
    }
    return defaultValue
}
