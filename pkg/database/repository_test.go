package database

import (
    "context"
    "database/sql"
    "errors"
    "testing"
    "time"

    sqlmock "github.com/DATA-DOG/go-sqlmock"

    "stockdash/pkg/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
    t.Helper()
    raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    t.Cleanup(func() { raw.Close() })
    return &DB{DB: raw}, mock
}

func TestPriceRepository_RecordQuote(t *testing.T) {
    db, mock := newMockDB(t)
    repo := NewPriceRepository(db)

    ts := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
    mock.ExpectExec(`INSERT INTO stock_prices`).
        WithArgs("AAPL", 178.50, 1.25, int64(50000000), int64(2800000000000), ts).
        WillReturnResult(sqlmock.NewResult(1, 1))

    err := repo.RecordQuote(context.Background(), models.Quote{
        Symbol:        "AAPL",
        Price:         178.50,
        ChangePercent: 1.25,
        Volume:        50000000,
        MarketCap:     2800000000000,
        Timestamp:     ts,
    })
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Errorf("unfulfilled expectations: %v", err)
    }
}

func TestPriceRepository_RecentPrices(t *testing.T) {
    db, mock := newMockDB(t)
    repo := NewPriceRepository(db)

    ts := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
    rows := sqlmock.NewRows([]string{"symbol", "price", "change_percent", "volume", "market_cap", "created_at"}).
        AddRow("AAPL", 179.00, 1.50, int64(100), int64(200), ts).
        AddRow("AAPL", 178.50, 1.25, int64(90), int64(200), ts.Add(-time.Minute))
    mock.ExpectQuery(`SELECT symbol, price, change_percent`).
        WithArgs("AAPL", 10).
        WillReturnRows(rows)

    got, err := repo.RecentPrices(context.Background(), "AAPL", 10)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if len(got) != 2 {
        t.Fatalf("len = %d; want 2", len(got))
    }
    if got[0].Price != 179.00 {
        t.Errorf("first price = %v; want 179.00", got[0].Price)
    }
}

func TestWatchlistRepository_AddIsIdempotent(t *testing.T) {
    db, mock := newMockDB(t)
    repo := NewWatchlistRepository(db)

    // ON CONFLICT DO NOTHING: zero rows affected is still success.
    mock.ExpectExec(`INSERT INTO watchlist`).
        WithArgs("u1", "AAPL").
        WillReturnResult(sqlmock.NewResult(0, 0))

    err := repo.Add(context.Background(), models.WatchlistItem{UserID: "u1", Symbol: "AAPL"})
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
}

func TestWatchlistRepository_RemoveMissingRow(t *testing.T) {
    db, mock := newMockDB(t)
    repo := NewWatchlistRepository(db)

    mock.ExpectExec(`DELETE FROM watchlist`).
        WithArgs("u1", "ZZZZ").
        WillReturnResult(sqlmock.NewResult(0, 0))

    err := repo.Remove(context.Background(), "u1", "ZZZZ")
    if !errors.Is(err, sql.ErrNoRows) {
        t.Errorf("err = %v; want sql.ErrNoRows", err)
    }
}

func TestWatchlistRepository_List(t *testing.T) {
    db, mock := newMockDB(t)
    repo := NewWatchlistRepository(db)

    rows := sqlmock.NewRows([]string{"symbol"}).AddRow("AAPL").AddRow("TSLA")
    mock.ExpectQuery(`SELECT symbol FROM watchlist`).
        WithArgs("u1").
        WillReturnRows(rows)

    got, err := repo.List(context.Background(), "u1")
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if len(got) != 2 || got[0] != "AAPL" || got[1] != "TSLA" {
        t.Errorf("got %v; want [AAPL TSLA]", got)
    }
}

func TestChatRepository_SaveReturnsID(t *testing.T) {
    db, mock := newMockDB(t)
    repo := NewChatRepository(db)

    mock.ExpectQuery(`INSERT INTO chat_history`).
        WithArgs("sess1", "how is AAPL doing", "Looking good.", "AAPL").
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

    id, err := repo.Save(context.Background(), models.ChatMessage{
        SessionID:   "sess1",
        UserMessage: "how is AAPL doing",
        AIResponse:  "Looking good.",
        StockSymbol: "AAPL",
    })
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if id != 7 {
        t.Errorf("id = %d; want 7", id)
    }
}

func TestChatRepository_RecentReturnsChronologicalOrder(t *testing.T) {
    db, mock := newMockDB(t)
    repo := NewChatRepository(db)

    ts := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
    // The query yields newest first; callers get oldest first.
    rows := sqlmock.NewRows([]string{"id", "session_id", "user_message", "ai_response", "stock_symbol", "created_at"}).
        AddRow(int64(2), "sess1", "second", "b", "", ts).
        AddRow(int64(1), "sess1", "first", "a", "", ts.Add(-time.Minute))
    mock.ExpectQuery(`SELECT id, session_id, user_message`).
        WithArgs("sess1", 5).
        WillReturnRows(rows)

    got, err := repo.Recent(context.Background(), "sess1", 5)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if len(got) != 2 {
        t.Fatalf("len = %d; want 2", len(got))
    }
    if got[0].UserMessage != "first" || got[1].UserMessage != "second" {
        t.Errorf("order = [%s %s]; want [first second]", got[0].UserMessage, got[1].UserMessage)
    }
}
