package main

import (
    "context"
    "net/http"

    "github.com/gorilla/mux"

    "stockdash/pkg/ai"
    "stockdash/pkg/broadcast"
    "stockdash/pkg/database"
    "stockdash/pkg/metrics"
    "stockdash/pkg/models"
    "stockdash/pkg/redisclient"
)

// quoteFetcher is the slice of the quote service the handlers need.
type quoteFetcher interface {
    Fetch(ctx context.Context, symbol string) models.Quote
    FetchMany(ctx context.Context, symbols []string) []models.Quote
}

// marketData covers the provider operations served straight from upstream,
// bypassing the quote cache.
type marketData interface {
    History(ctx context.Context, symbol, period, interval string) ([]models.Candle, error)
    Search(ctx context.Context, query string) []models.SearchResult
}

// Server bundles the request handlers with their collaborators.
type Server struct {
    quotes    quoteFetcher
    market    marketData
    hub       *broadcast.Hub
    advisor   *ai.Advisor
    prices    database.PriceRepository
    watchlist database.WatchlistRepository
    chats     database.ChatRepository
    db        *database.DB
    redis     *redisclient.Client
    symbols   []string
}

// routes builds the full HTTP surface.
func (s *Server) routes() *mux.Router {
    router := mux.NewRouter()

    router.Use(loggingMiddleware)
    router.Use(corsMiddleware)
    router.Use(metricsMiddleware)

    router.HandleFunc("/", s.rootHandler).Methods("GET")
    router.HandleFunc("/health", s.healthHandler).Methods("GET")
    router.Handle("/metrics", metrics.Handler()).Methods("GET")

    api := router.PathPrefix("/api").Subrouter()
    api.HandleFunc("/stocks", s.getStocksHandler).Methods("GET")
    api.HandleFunc("/stocks/batch", s.getBatchHandler).Methods("GET")
    api.HandleFunc("/stocks/search", s.searchHandler).Methods("GET")
    api.HandleFunc("/stocks/{symbol}", s.getStockHandler).Methods("GET")
    api.HandleFunc("/stocks/{symbol}/history", s.getHistoryHandler).Methods("GET")

    api.HandleFunc("/watchlist/{userID}", s.getWatchlistHandler).Methods("GET")
    api.HandleFunc("/watchlist", s.addWatchlistHandler).Methods("POST")
    api.HandleFunc("/watchlist/{userID}/{symbol}", s.removeWatchlistHandler).Methods("DELETE")

    api.HandleFunc("/chat", s.chatHandler).Methods("POST")
    api.HandleFunc("/chat/history/{sessionID}", s.getChatHistoryHandler).Methods("GET")

    router.HandleFunc("/ws/stocks", s.wsHandler).Methods("GET")

    return router
}

// rootHandler returns a service banner with the endpoint map so clients can
// discover the API surface on first contact.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
    s.writeJSON(w, http.StatusOK, Response{
        Success: true,
        Data: map[string]interface{}{
            "service": "stockdash",
            "endpoints": map[string]string{
                "stocks":       "/api/stocks",
                "batch":        "/api/stocks/batch?symbols=AAPL,MSFT",
                "search":       "/api/stocks/search?q=apple",
                "stock":        "/api/stocks/{symbol}",
                "history":      "/api/stocks/{symbol}/history",
                "watchlist":    "/api/watchlist/{userID}",
                "chat":         "/api/chat",
                "chat_history": "/api/chat/history/{sessionID}",
                "websocket":    "/ws/stocks",
                "health":       "/health",
                "metrics":      "/metrics",
            },
        },
    })
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
    ctx := r.Context()

    status := map[string]interface{}{
        "status":      "healthy",
        "subscribers": 0,
    }
    if s.hub != nil {
        status["subscribers"] = s.hub.SubscriberCount()
    }

    if s.db != nil {
        if err := s.db.HealthCheck(ctx); err != nil {
            s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
            return
        }
    }
    if s.redis != nil {
        if err := s.redis.Ping(ctx); err != nil {
            // Redis is best-effort fanout; report but stay healthy.
            status["redis"] = "unavailable"
        } else {
            status["redis"] = "ok"
        }
    }

    s.writeJSON(w, http.StatusOK, Response{Success: true, Data: status})
}
