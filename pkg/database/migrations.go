package database

import (
    "context"
    "fmt"

    "go.uber.org/zap"

    "stockdash/pkg/logger"
)

// Migration represents a database migration
type Migration struct {
    Version     int
    Description string
    UpSQL       string
    DownSQL     string
}

// Migrations holds all database migrations
var Migrations = []Migration{
    {
        Version:     1,
        Description: "Create initial schema",
        UpSQL: `
            -- Price history written on every live fetch
            CREATE TABLE IF NOT EXISTS stock_prices (
                id BIGSERIAL PRIMARY KEY,
                symbol VARCHAR(10) NOT NULL,
                price DECIMAL(20,8) NOT NULL CHECK (price >= 0),
                change_percent DECIMAL(10,4) NOT NULL DEFAULT 0,
                volume BIGINT NOT NULL DEFAULT 0,
                market_cap BIGINT NOT NULL DEFAULT 0,
                created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
            );

            CREATE INDEX IF NOT EXISTS idx_stock_prices_symbol ON stock_prices(symbol);
            CREATE INDEX IF NOT EXISTS idx_stock_prices_symbol_created_at
                ON stock_prices(symbol, created_at DESC);

            -- Per-user tracked symbols
            CREATE TABLE IF NOT EXISTS watchlist (
                id BIGSERIAL PRIMARY KEY,
                user_id VARCHAR(64) NOT NULL,
                symbol VARCHAR(10) NOT NULL,
                created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
                UNIQUE (user_id, symbol)
            );

            CREATE INDEX IF NOT EXISTS idx_watchlist_user_id ON watchlist(user_id);

            -- Chat exchanges, keyed by session for context replay
            CREATE TABLE IF NOT EXISTS chat_history (
                id BIGSERIAL PRIMARY KEY,
                session_id VARCHAR(64) NOT NULL,
                user_message TEXT NOT NULL,
                ai_response TEXT NOT NULL DEFAULT '',
                stock_symbol VARCHAR(10),
                created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
            );

            CREATE INDEX IF NOT EXISTS idx_chat_history_session_created_at
                ON chat_history(session_id, created_at DESC);
        `,
        DownSQL: `
            DROP TABLE IF EXISTS chat_history;
            DROP TABLE IF EXISTS watchlist;
            DROP TABLE IF EXISTS stock_prices;
        `,
    },
}

// RunMigrations runs all pending database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
    logger.Log.Info("starting database migrations")

    if err := db.createMigrationsTable(ctx); err != nil {
        return fmt.Errorf("failed to create migrations table: %w", err)
    }

    applied, err := db.getAppliedMigrations(ctx)
    if err != nil {
        return fmt.Errorf("failed to get applied migrations: %w", err)
    }

    for _, migration := range Migrations {
        if applied[migration.Version] {
            logger.Log.Debug("migration already applied", zap.Int("version", migration.Version))
            continue
        }

        logger.Log.Info("applying migration",
            zap.Int("version", migration.Version),
            zap.String("description", migration.Description))

        if err := db.applyMigration(ctx, migration); err != nil {
            return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
        }
    }

    logger.Log.Info("database migrations completed")
    return nil
}

// createMigrationsTable creates the migrations tracking table
func (db *DB) createMigrationsTable(ctx context.Context) error {
    query := `
        CREATE TABLE IF NOT EXISTS migrations (
            version INTEGER PRIMARY KEY,
            description TEXT NOT NULL,
            applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
        );
    `
    _, err := db.ExecContext(ctx, query)
    return err
}

// getAppliedMigrations returns a map of applied migration versions
func (db *DB) getAppliedMigrations(ctx context.Context) (map[int]bool, error) {
    rows, err := db.QueryContext(ctx, `SELECT version FROM migrations ORDER BY version`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    applied := make(map[int]bool)
    for rows.Next() {
        var version int
        if err := rows.Scan(&version); err != nil {
            return nil, err
        }
        applied[version] = true
    }

    return applied, rows.Err()
}

// applyMigration applies a single migration
func (db *DB) applyMigration(ctx context.Context, migration Migration) error {
    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer tx.Rollback()

    if _, err := tx.ExecContext(ctx, migration.UpSQL); err != nil {
        return fmt.Errorf("failed to execute migration SQL: %w", err)
    }

    query := `INSERT INTO migrations (version, description) VALUES ($1, $2)`
    if _, err := tx.ExecContext(ctx, query, migration.Version, migration.Description); err != nil {
        return fmt.Errorf("failed to record migration: %w", err)
    }

    return tx.Commit()
}
