package main

import (
    "bytes"
    "context"
    "database/sql"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "stockdash/pkg/ai"
    "stockdash/pkg/models"
)

type stubFetcher struct {
    fetched []string
}

func (f *stubFetcher) Fetch(_ context.Context, symbol string) models.Quote {
    f.fetched = append(f.fetched, symbol)
    return models.Quote{Symbol: symbol, CompanyName: symbol + " Corp", Price: 100}
}

func (f *stubFetcher) FetchMany(ctx context.Context, symbols []string) []models.Quote {
    out := make([]models.Quote, 0, len(symbols))
    for _, s := range symbols {
        out = append(out, f.Fetch(ctx, s))
    }
    return out
}

type stubMarket struct {
    historyErr error
}

func (m *stubMarket) History(_ context.Context, symbol, period, interval string) ([]models.Candle, error) {
    if m.historyErr != nil {
        return nil, m.historyErr
    }
    return []models.Candle{{Timestamp: "2025-07-10T12:00:00Z", Close: 178.5}}, nil
}

func (m *stubMarket) Search(_ context.Context, query string) []models.SearchResult {
    return []models.SearchResult{{Symbol: "AAPL", Name: "Apple Inc."}}
}

type stubWatchlist struct {
    items     map[string][]string
    removeErr error
}

func (s *stubWatchlist) Add(_ context.Context, item models.WatchlistItem) error {
    if s.items == nil {
        s.items = map[string][]string{}
    }
    s.items[item.UserID] = append(s.items[item.UserID], item.Symbol)
    return nil
}

func (s *stubWatchlist) Remove(_ context.Context, userID, symbol string) error {
    return s.removeErr
}

func (s *stubWatchlist) List(_ context.Context, userID string) ([]string, error) {
    return s.items[userID], nil
}

type stubChats struct {
    saved   []models.ChatMessage
    history []models.ChatMessage
}

func (s *stubChats) Save(_ context.Context, msg models.ChatMessage) (int64, error) {
    s.saved = append(s.saved, msg)
    return int64(len(s.saved)), nil
}

func (s *stubChats) Recent(_ context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
    return s.history, nil
}

type stubPrices struct {
    stored []models.Quote
}

func (s *stubPrices) RecordQuote(_ context.Context, q models.Quote) error {
    s.stored = append(s.stored, q)
    return nil
}

func (s *stubPrices) RecentPrices(_ context.Context, symbol string, limit int) ([]models.Quote, error) {
    return s.stored, nil
}

func newTestServer() (*Server, *stubFetcher, *stubWatchlist, *stubChats) {
    fetcher := &stubFetcher{}
    watchlist := &stubWatchlist{}
    chats := &stubChats{}
    srv := &Server{
        quotes:    fetcher,
        market:    &stubMarket{},
        advisor:   ai.NewAdvisor("", ""),
        watchlist: watchlist,
        chats:     chats,
        symbols:   []string{"AAPL", "MSFT"},
    }
    return srv, fetcher, watchlist, chats
}

func do(srv *Server, method, target string, body string) *httptest.ResponseRecorder {
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
    } else {
        req = httptest.NewRequest(method, target, nil)
    }
    rec := httptest.NewRecorder()
    srv.routes().ServeHTTP(rec, req)
    return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
    t.Helper()
    var resp Response
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    return resp
}

func TestRoot_ListsEndpoints(t *testing.T) {
    srv, _, _, _ := newTestServer()
    rec := do(srv, "GET", "/", "")

    assert.Equal(t, http.StatusOK, rec.Code)
    var resp struct {
        Data struct {
            Service   string            `json:"service"`
            Endpoints map[string]string `json:"endpoints"`
        } `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, "stockdash", resp.Data.Service)
    assert.Contains(t, resp.Data.Endpoints, "stocks")
    assert.Contains(t, resp.Data.Endpoints, "websocket")
    assert.Contains(t, resp.Data.Endpoints, "chat_history")
}

func TestHealthHandler(t *testing.T) {
    srv, _, _, _ := newTestServer()
    rec := do(srv, "GET", "/health", "")

    assert.Equal(t, http.StatusOK, rec.Code)
    resp := decode(t, rec)
    assert.True(t, resp.Success)
}

func TestGetStocks_UsesTrackedSymbols(t *testing.T) {
    srv, fetcher, _, _ := newTestServer()
    rec := do(srv, "GET", "/api/stocks", "")

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, []string{"AAPL", "MSFT"}, fetcher.fetched)

    var resp struct {
        Success bool                 `json:"success"`
        Data    models.UpdatePayload `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, "stock_update", resp.Data.Type)
    require.Len(t, resp.Data.Data, 2)
}

func TestGetStock_SanitizesSymbol(t *testing.T) {
    srv, fetcher, _, _ := newTestServer()
    rec := do(srv, "GET", "/api/stocks/tsla", "")

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, []string{"TSLA"}, fetcher.fetched)
}

func TestGetStock_RejectsInvalidSymbol(t *testing.T) {
    srv, fetcher, _, _ := newTestServer()
    rec := do(srv, "GET", "/api/stocks/not_a_symbol!", "")

    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Empty(t, fetcher.fetched)
}

func TestGetBatch_DefaultsToTrackedSymbols(t *testing.T) {
    srv, fetcher, _, _ := newTestServer()
    rec := do(srv, "GET", "/api/stocks/batch", "")

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, []string{"AAPL", "MSFT"}, fetcher.fetched)
}

func TestGetBatch_PreservesOrder(t *testing.T) {
    srv, fetcher, _, _ := newTestServer()
    rec := do(srv, "GET", "/api/stocks/batch?symbols=tsla,aapl", "")

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, []string{"TSLA", "AAPL"}, fetcher.fetched)
}

func TestGetBatch_CapsSymbolCount(t *testing.T) {
    srv, _, _, _ := newTestServer()
    symbols := make([]string, maxBatchSymbols+1)
    for i := range symbols {
        symbols[i] = "AAPL"
    }
    rec := do(srv, "GET", "/api/stocks/batch?symbols="+strings.Join(symbols, ","), "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHistory_DefaultsPeriodAndInterval(t *testing.T) {
    srv, _, _, _ := newTestServer()
    rec := do(srv, "GET", "/api/stocks/AAPL/history", "")

    assert.Equal(t, http.StatusOK, rec.Code)
    var resp struct {
        Data struct {
            Period   string          `json:"period"`
            Interval string          `json:"interval"`
            Candles  []models.Candle `json:"candles"`
        } `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, "1d", resp.Data.Period)
    assert.Equal(t, "5m", resp.Data.Interval)
    require.Len(t, resp.Data.Candles, 1)
}

func TestGetHistory_UpstreamFailure(t *testing.T) {
    srv, _, _, _ := newTestServer()
    srv.market = &stubMarket{historyErr: context.DeadlineExceeded}

    rec := do(srv, "GET", "/api/stocks/AAPL/history", "")
    assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetHistory_FallsBackToStoredPrices(t *testing.T) {
    srv, _, _, _ := newTestServer()
    srv.market = &stubMarket{historyErr: context.DeadlineExceeded}
    srv.prices = &stubPrices{stored: []models.Quote{
        {Symbol: "AAPL", Price: 181.0, Volume: 1200, Timestamp: time.Date(2025, 7, 10, 12, 5, 0, 0, time.UTC)},
        {Symbol: "AAPL", Price: 180.5, Volume: 1000, Timestamp: time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)},
    }}

    rec := do(srv, "GET", "/api/stocks/AAPL/history", "")
    assert.Equal(t, http.StatusOK, rec.Code)

    var resp struct {
        Data struct {
            Source  string          `json:"source"`
            Candles []models.Candle `json:"candles"`
        } `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, "database", resp.Data.Source)
    require.Len(t, resp.Data.Candles, 2)

    // Stored rows come newest-first; candles must be chronological.
    assert.Equal(t, 180.5, resp.Data.Candles[0].Close)
    assert.Equal(t, 181.0, resp.Data.Candles[1].Close)
    assert.Equal(t, "2025-07-10T12:00:00Z", resp.Data.Candles[0].Timestamp)
}

func TestSearch_RequiresQuery(t *testing.T) {
    srv, _, _, _ := newTestServer()
    rec := do(srv, "GET", "/api/stocks/search", "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_ReturnsResults(t *testing.T) {
    srv, _, _, _ := newTestServer()
    rec := do(srv, "GET", "/api/stocks/search?q=apple", "")

    assert.Equal(t, http.StatusOK, rec.Code)
    var resp struct {
        Data []models.SearchResult `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    require.Len(t, resp.Data, 1)
    assert.Equal(t, "AAPL", resp.Data[0].Symbol)
}

func TestWatchlist_AddThenGetReturnsLiveQuotes(t *testing.T) {
    srv, fetcher, _, _ := newTestServer()

    rec := do(srv, "POST", "/api/watchlist", `{"user_id":"u1","symbol":"aapl"}`)
    assert.Equal(t, http.StatusCreated, rec.Code)

    rec = do(srv, "GET", "/api/watchlist/u1", "")
    assert.Equal(t, http.StatusOK, rec.Code)

    var resp struct {
        Data struct {
            UserID string         `json:"user_id"`
            Stocks []models.Quote `json:"stocks"`
        } `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, "u1", resp.Data.UserID)
    require.Len(t, resp.Data.Stocks, 1)
    assert.Equal(t, "AAPL", resp.Data.Stocks[0].Symbol)
    assert.Equal(t, 100.0, resp.Data.Stocks[0].Price)
    assert.Equal(t, []string{"AAPL"}, fetcher.fetched)
}

func TestWatchlist_EmptyListSkipsFetch(t *testing.T) {
    srv, fetcher, _, _ := newTestServer()
    rec := do(srv, "GET", "/api/watchlist/nobody", "")

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"stocks":[]`)
    assert.Empty(t, fetcher.fetched)
}

func TestWatchlist_AddRejectsBadSymbol(t *testing.T) {
    srv, _, _, _ := newTestServer()
    rec := do(srv, "POST", "/api/watchlist", `{"user_id":"u1","symbol":"way_too_long_symbol"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWatchlist_RemoveMissingIs404(t *testing.T) {
    srv, _, watchlist, _ := newTestServer()
    watchlist.removeErr = sql.ErrNoRows

    rec := do(srv, "DELETE", "/api/watchlist/u1/AAPL", "")
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat_RequiresSessionAndMessage(t *testing.T) {
    srv, _, _, _ := newTestServer()
    rec := do(srv, "POST", "/api/chat", `{"session_id":"","message":""}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_DisabledAdvisorStillReplies(t *testing.T) {
    srv, fetcher, _, chats := newTestServer()

    rec := do(srv, "POST", "/api/chat", `{"session_id":"sess1","message":"how is AAPL doing"}`)

    assert.Equal(t, http.StatusOK, rec.Code)
    var resp struct {
        Data chatReply `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, "sess1", resp.Data.SessionID)
    assert.NotEmpty(t, resp.Data.Response)
    assert.Equal(t, "AAPL", resp.Data.Symbol)

    // Only the mentioned symbol was fetched for context.
    assert.Equal(t, []string{"AAPL"}, fetcher.fetched)

    // The exchange was persisted with the extracted symbol.
    require.Len(t, chats.saved, 1)
    assert.Equal(t, "AAPL", chats.saved[0].StockSymbol)
}

func TestChatHistory_ReturnsTranscript(t *testing.T) {
    srv, _, _, chats := newTestServer()
    chats.history = []models.ChatMessage{
        {SessionID: "sess1", UserMessage: "how is AAPL", AIResponse: "fine", StockSymbol: "AAPL"},
        {SessionID: "sess1", UserMessage: "and MSFT", AIResponse: "also fine", StockSymbol: "MSFT"},
    }

    rec := do(srv, "GET", "/api/chat/history/sess1", "")
    assert.Equal(t, http.StatusOK, rec.Code)

    var resp struct {
        Data struct {
            SessionID string               `json:"session_id"`
            Messages  []models.ChatMessage `json:"messages"`
        } `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, "sess1", resp.Data.SessionID)
    require.Len(t, resp.Data.Messages, 2)
    assert.Equal(t, "how is AAPL", resp.Data.Messages[0].UserMessage)
}

func TestChatHistory_EmptySessionIsArray(t *testing.T) {
    srv, _, _, _ := newTestServer()
    rec := do(srv, "GET", "/api/chat/history/fresh-session", "")

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"messages":[]`)
}

func TestChatHistory_RejectsBadSessionID(t *testing.T) {
    srv, _, _, _ := newTestServer()
    rec := do(srv, "GET", "/api/chat/history/"+strings.Repeat("x", 65), "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}
