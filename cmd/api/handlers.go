package main

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/gorilla/mux"
    "go.uber.org/zap"

    "stockdash/pkg/ai"
    "stockdash/pkg/logger"
    "stockdash/pkg/models"
    "stockdash/pkg/validation"
)

const (
    // maxBatchSymbols bounds how many symbols one batch request may name.
    maxBatchSymbols = 20
    // maxStoredCandles bounds the database-sourced history fallback.
    maxStoredCandles = 100
    // maxChatHistory bounds one session transcript response.
    maxChatHistory = 100
)

// Response represents a standard API response
type Response struct {
    Success bool        `json:"success"`
    Data    interface{} `json:"data,omitempty"`
    Error   string      `json:"error,omitempty"`
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    if err := json.NewEncoder(w).Encode(data); err != nil {
        logger.Log.Error("JSON encoding error", zap.Error(err))
    }
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
    s.writeJSON(w, status, Response{
        Success: false,
        Error:   message,
    })
}

// getStocksHandler returns the tracked-symbol snapshot in the same envelope
// the websocket push uses, so clients can poll as a fallback.
func (s *Server) getStocksHandler(w http.ResponseWriter, r *http.Request) {
    qs := s.quotes.FetchMany(r.Context(), s.symbols)
    s.writeJSON(w, http.StatusOK, Response{
        Success: true,
        Data:    models.NewUpdatePayload(qs, time.Now()),
    })
}

// getBatchHandler resolves a comma-separated symbol list; without one it
// falls back to the tracked set, so bare requests still get data.
func (s *Server) getBatchHandler(w http.ResponseWriter, r *http.Request) {
    raw := r.URL.Query().Get("symbols")

    var symbols []string
    if strings.TrimSpace(raw) == "" {
        symbols = s.symbols
    } else {
        for _, part := range strings.Split(raw, ",") {
            symbol := validation.SanitizeSymbol(part)
            if symbol == "" {
                continue
            }
            if !validation.ValidTicker(symbol) {
                s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid symbol: %s", symbol))
                return
            }
            symbols = append(symbols, symbol)
        }
    }
    if len(symbols) == 0 {
        s.writeError(w, http.StatusBadRequest, "no valid symbols given")
        return
    }
    if len(symbols) > maxBatchSymbols {
        s.writeError(w, http.StatusBadRequest,
            fmt.Sprintf("too many symbols, limit is %d", maxBatchSymbols))
        return
    }

    qs := s.quotes.FetchMany(r.Context(), symbols)
    s.writeJSON(w, http.StatusOK, Response{
        Success: true,
        Data:    models.NewUpdatePayload(qs, time.Now()),
    })
}

// getStockHandler resolves a single symbol.
func (s *Server) getStockHandler(w http.ResponseWriter, r *http.Request) {
    symbol := validation.SanitizeSymbol(mux.Vars(r)["symbol"])
    if !validation.ValidTicker(symbol) {
        s.writeError(w, http.StatusBadRequest, "invalid symbol")
        return
    }

    q := s.quotes.Fetch(r.Context(), symbol)
    s.writeJSON(w, http.StatusOK, Response{Success: true, Data: q})
}

// getHistoryHandler serves historical candles straight from the provider.
func (s *Server) getHistoryHandler(w http.ResponseWriter, r *http.Request) {
    symbol := validation.SanitizeSymbol(mux.Vars(r)["symbol"])
    if !validation.ValidTicker(symbol) {
        s.writeError(w, http.StatusBadRequest, "invalid symbol")
        return
    }

    period := r.URL.Query().Get("period")
    if period == "" {
        period = "1d"
    }
    interval := r.URL.Query().Get("interval")
    if interval == "" {
        interval = "5m"
    }

    source := "upstream"
    candles, err := s.market.History(r.Context(), symbol, period, interval)
    if err != nil {
        logger.Log.Warn("history fetch failed, trying stored prices",
            zap.String("symbol", symbol), zap.Error(err))
        candles = s.storedCandles(r.Context(), symbol)
        source = "database"
    }
    if len(candles) == 0 {
        s.writeError(w, http.StatusBadGateway, "historical data unavailable")
        return
    }

    s.writeJSON(w, http.StatusOK, Response{
        Success: true,
        Data: map[string]interface{}{
            "symbol":   symbol,
            "period":   period,
            "interval": interval,
            "source":   source,
            "candles":  candles,
        },
    })
}

// storedCandles rebuilds a coarse candle series from recorded live quotes.
// Only the close price and volume are real observations; the series serves
// as a degraded answer when the upstream chart API fails.
func (s *Server) storedCandles(ctx context.Context, symbol string) []models.Candle {
    if s.prices == nil {
        return nil
    }
    stored, err := s.prices.RecentPrices(ctx, symbol, maxStoredCandles)
    if err != nil {
        logger.Log.Error("stored price lookup failed",
            zap.String("symbol", symbol), zap.Error(err))
        return nil
    }

    // Recorded prices arrive newest first; candles go out chronological.
    candles := make([]models.Candle, 0, len(stored))
    for i := len(stored) - 1; i >= 0; i-- {
        q := stored[i]
        candles = append(candles, models.Candle{
            Timestamp: q.Timestamp.UTC().Format(time.RFC3339),
            Open:      q.Price,
            High:      q.Price,
            Low:       q.Price,
            Close:     q.Price,
            Volume:    q.Volume,
        })
    }
    return candles
}

// searchHandler resolves a free-text query to candidate symbols.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
    query := validation.SanitizeString(r.URL.Query().Get("q"))
    if query == "" {
        s.writeError(w, http.StatusBadRequest, "q parameter is required")
        return
    }

    results := s.market.Search(r.Context(), query)
    s.writeJSON(w, http.StatusOK, Response{Success: true, Data: results})
}

// getWatchlistHandler returns a user's watchlist enriched with live quotes,
// so the dashboard renders it without a second round trip.
func (s *Server) getWatchlistHandler(w http.ResponseWriter, r *http.Request) {
    userID := validation.SanitizeString(mux.Vars(r)["userID"])
    if userID == "" {
        s.writeError(w, http.StatusBadRequest, "user id is required")
        return
    }

    symbols, err := s.watchlist.List(r.Context(), userID)
    if err != nil {
        logger.Log.Error("watchlist list failed", zap.String("user_id", userID), zap.Error(err))
        s.writeError(w, http.StatusInternalServerError, "failed to load watchlist")
        return
    }

    stocks := []models.Quote{}
    if len(symbols) > 0 {
        stocks = s.quotes.FetchMany(r.Context(), symbols)
    }

    s.writeJSON(w, http.StatusOK, Response{
        Success: true,
        Data: map[string]interface{}{
            "user_id": userID,
            "stocks":  stocks,
        },
    })
}

// addWatchlistHandler adds one symbol to a user's watchlist. Adding an
// already-tracked symbol succeeds without duplicating it.
func (s *Server) addWatchlistHandler(w http.ResponseWriter, r *http.Request) {
    var item models.WatchlistItem
    if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
        s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
        return
    }
    item.Sanitize()
    if err := item.Validate(); err != nil {
        s.writeError(w, http.StatusBadRequest, err.Error())
        return
    }

    if err := s.watchlist.Add(r.Context(), item); err != nil {
        logger.Log.Error("watchlist add failed",
            zap.String("user_id", item.UserID), zap.String("symbol", item.Symbol), zap.Error(err))
        s.writeError(w, http.StatusInternalServerError, "failed to update watchlist")
        return
    }

    s.writeJSON(w, http.StatusCreated, Response{Success: true, Data: item})
}

// removeWatchlistHandler deletes one watchlist entry.
func (s *Server) removeWatchlistHandler(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    userID := validation.SanitizeString(vars["userID"])
    symbol := validation.SanitizeSymbol(vars["symbol"])
    if userID == "" || !validation.ValidTicker(symbol) {
        s.writeError(w, http.StatusBadRequest, "user id and symbol are required")
        return
    }

    err := s.watchlist.Remove(r.Context(), userID, symbol)
    if errors.Is(err, sql.ErrNoRows) {
        s.writeError(w, http.StatusNotFound, "symbol not on watchlist")
        return
    }
    if err != nil {
        logger.Log.Error("watchlist remove failed",
            zap.String("user_id", userID), zap.String("symbol", symbol), zap.Error(err))
        s.writeError(w, http.StatusInternalServerError, "failed to update watchlist")
        return
    }

    s.writeJSON(w, http.StatusOK, Response{Success: true})
}

type chatRequest struct {
    SessionID string `json:"session_id"`
    Message   string `json:"message"`
}

type chatReply struct {
    SessionID string `json:"session_id"`
    Response  string `json:"response"`
    Symbol    string `json:"symbol,omitempty"`
}

// chatHandler answers a free-text question with quote context and persists
// the exchange.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
    var req chatRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
        return
    }
    req.SessionID = validation.SanitizeString(req.SessionID)
    req.Message = validation.SanitizeString(req.Message)
    if req.SessionID == "" || req.Message == "" {
        s.writeError(w, http.StatusBadRequest, "session_id and message are required")
        return
    }

    ctx := r.Context()

    // Scope quote context to the mentioned symbol when there is one,
    // otherwise hand the model the whole tracked set.
    symbol := ai.ExtractSymbol(req.Message, s.symbols)
    var stockData []models.Quote
    if symbol != "" {
        stockData = []models.Quote{s.quotes.Fetch(ctx, symbol)}
    } else {
        stockData = s.quotes.FetchMany(ctx, s.symbols)
    }

    var history []models.ChatMessage
    if s.chats != nil {
        var err error
        history, err = s.chats.Recent(ctx, req.SessionID, 5)
        if err != nil {
            logger.Log.Warn("chat history load failed",
                zap.String("session_id", req.SessionID), zap.Error(err))
        }
    }

    reply, err := s.advisor.Reply(ctx, req.Message, stockData, history)
    if err != nil {
        s.writeError(w, http.StatusBadGateway, "chat service unavailable")
        return
    }

    if s.chats != nil {
        msg := models.ChatMessage{
            SessionID:   req.SessionID,
            UserMessage: req.Message,
            AIResponse:  reply,
            StockSymbol: symbol,
        }
        if _, err := s.chats.Save(ctx, msg); err != nil {
            logger.Log.Warn("chat history save failed",
                zap.String("session_id", req.SessionID), zap.Error(err))
        }
    }

    s.writeJSON(w, http.StatusOK, Response{
        Success: true,
        Data:    chatReply{SessionID: req.SessionID, Response: reply, Symbol: symbol},
    })
}

// getChatHistoryHandler returns a session transcript in chronological order.
func (s *Server) getChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
    sessionID := validation.SanitizeString(mux.Vars(r)["sessionID"])
    if !validation.ValidSession(sessionID) {
        s.writeError(w, http.StatusBadRequest, "invalid session id")
        return
    }

    messages, err := s.chats.Recent(r.Context(), sessionID, maxChatHistory)
    if err != nil {
        logger.Log.Error("chat history load failed",
            zap.String("session_id", sessionID), zap.Error(err))
        s.writeError(w, http.StatusInternalServerError, "failed to load chat history")
        return
    }
    if messages == nil {
        messages = []models.ChatMessage{}
    }

    s.writeJSON(w, http.StatusOK, Response{
        Success: true,
        Data: map[string]interface{}{
            "session_id": sessionID,
            "messages":   messages,
        },
    })
}
