package database

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "stockdash/pkg/metrics"
    "stockdash/pkg/models"
)

// PriceRepository persists quote history.
type PriceRepository interface {
    RecordQuote(ctx context.Context, q models.Quote) error
    RecentPrices(ctx context.Context, symbol string, limit int) ([]models.Quote, error)
}

// WatchlistRepository manages per-user tracked symbols.
type WatchlistRepository interface {
    Add(ctx context.Context, item models.WatchlistItem) error
    Remove(ctx context.Context, userID, symbol string) error
    List(ctx context.Context, userID string) ([]string, error)
}

// ChatRepository persists chat exchanges per session.
type ChatRepository interface {
    Save(ctx context.Context, msg models.ChatMessage) (int64, error)
    Recent(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)
}

// instrument wraps one database operation with duration and error metrics.
func instrument(operation string, fn func() error) error {
    start := time.Now()
    err := fn()
    duration := time.Since(start).Seconds()

    metrics.DatabaseOperationDuration.WithLabelValues(operation, statusLabel(err)).Observe(duration)
    if err != nil {
        metrics.DatabaseErrors.WithLabelValues(operation).Inc()
    }
    return err
}

type priceRepository struct {
    db *DB
}

// NewPriceRepository creates a price history repository.
func NewPriceRepository(db *DB) PriceRepository {
    return &priceRepository{db: db}
}

func (r *priceRepository) RecordQuote(ctx context.Context, q models.Quote) error {
    return instrument("record_quote", func() error {
        query := `
            INSERT INTO stock_prices (symbol, price, change_percent, volume, market_cap, created_at)
            VALUES ($1, $2, $3, $4, $5, $6)`
        _, err := r.db.ExecContext(ctx, query,
            q.Symbol, q.Price, q.ChangePercent, q.Volume, q.MarketCap, q.Timestamp.UTC())
        if err != nil {
            return fmt.Errorf("insert stock price: %w", err)
        }
        return nil
    })
}

func (r *priceRepository) RecentPrices(ctx context.Context, symbol string, limit int) ([]models.Quote, error) {
    var out []models.Quote
    err := instrument("recent_prices", func() error {
        query := `
            SELECT symbol, price, change_percent, volume, market_cap, created_at
            FROM stock_prices
            WHERE symbol = $1
            ORDER BY created_at DESC
            LIMIT $2`
        rows, err := r.db.QueryContext(ctx, query, symbol, limit)
        if err != nil {
            return fmt.Errorf("query stock prices: %w", err)
        }
        defer rows.Close()

        for rows.Next() {
            var q models.Quote
            if err := rows.Scan(&q.Symbol, &q.Price, &q.ChangePercent,
                &q.Volume, &q.MarketCap, &q.Timestamp); err != nil {
                return fmt.Errorf("scan stock price: %w", err)
            }
            out = append(out, q)
        }
        return rows.Err()
    })
    return out, err
}

type watchlistRepository struct {
    db *DB
}

// NewWatchlistRepository creates a watchlist repository.
func NewWatchlistRepository(db *DB) WatchlistRepository {
    return &watchlistRepository{db: db}
}

func (r *watchlistRepository) Add(ctx context.Context, item models.WatchlistItem) error {
    return instrument("watchlist_add", func() error {
        query := `
            INSERT INTO watchlist (user_id, symbol)
            VALUES ($1, $2)
            ON CONFLICT (user_id, symbol) DO NOTHING`
        _, err := r.db.ExecContext(ctx, query, item.UserID, item.Symbol)
        if err != nil {
            return fmt.Errorf("insert watchlist item: %w", err)
        }
        return nil
    })
}

func (r *watchlistRepository) Remove(ctx context.Context, userID, symbol string) error {
    return instrument("watchlist_remove", func() error {
        query := `DELETE FROM watchlist WHERE user_id = $1 AND symbol = $2`
        res, err := r.db.ExecContext(ctx, query, userID, symbol)
        if err != nil {
            return fmt.Errorf("delete watchlist item: %w", err)
        }
        if n, err := res.RowsAffected(); err == nil && n == 0 {
            return sql.ErrNoRows
        }
        return nil
    })
}

func (r *watchlistRepository) List(ctx context.Context, userID string) ([]string, error) {
    var symbols []string
    err := instrument("watchlist_list", func() error {
        query := `SELECT symbol FROM watchlist WHERE user_id = $1 ORDER BY created_at`
        rows, err := r.db.QueryContext(ctx, query, userID)
        if err != nil {
            return fmt.Errorf("query watchlist: %w", err)
        }
        defer rows.Close()

        for rows.Next() {
            var symbol string
            if err := rows.Scan(&symbol); err != nil {
                return fmt.Errorf("scan watchlist symbol: %w", err)
            }
            symbols = append(symbols, symbol)
        }
        return rows.Err()
    })
    return symbols, err
}

type chatRepository struct {
    db *DB
}

// NewChatRepository creates a chat history repository.
func NewChatRepository(db *DB) ChatRepository {
    return &chatRepository{db: db}
}

func (r *chatRepository) Save(ctx context.Context, msg models.ChatMessage) (int64, error) {
    var id int64
    err := instrument("chat_save", func() error {
        query := `
            INSERT INTO chat_history (session_id, user_message, ai_response, stock_symbol)
            VALUES ($1, $2, $3, $4)
            RETURNING id`
        err := r.db.QueryRowContext(ctx, query,
            msg.SessionID, msg.UserMessage, msg.AIResponse, nullable(msg.StockSymbol)).Scan(&id)
        if err != nil {
            return fmt.Errorf("insert chat message: %w", err)
        }
        return nil
    })
    return id, err
}

func (r *chatRepository) Recent(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
    var out []models.ChatMessage
    err := instrument("chat_recent", func() error {
        // Newest rows first, then reversed so callers see chronological order.
        query := `
            SELECT id, session_id, user_message, ai_response, COALESCE(stock_symbol, ''), created_at
            FROM chat_history
            WHERE session_id = $1
            ORDER BY created_at DESC
            LIMIT $2`
        rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
        if err != nil {
            return fmt.Errorf("query chat history: %w", err)
        }
        defer rows.Close()

        for rows.Next() {
            var m models.ChatMessage
            if err := rows.Scan(&m.ID, &m.SessionID, &m.UserMessage,
                &m.AIResponse, &m.StockSymbol, &m.CreatedAt); err != nil {
                return fmt.Errorf("scan chat message: %w", err)
            }
            out = append(out, m)
        }
        if err := rows.Err(); err != nil {
            return err
        }
        for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
            out[i], out[j] = out[j], out[i]
        }
        return nil
    })
    return out, err
}

func nullable(s string) interface{} {
    if s == "" {
        return nil
    }
    return s
}
