package main

import (
    "context"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "go.uber.org/zap"

    "stockdash/pkg/ai"
    "stockdash/pkg/broadcast"
    "stockdash/pkg/config"
    "stockdash/pkg/database"
    "stockdash/pkg/logger"
    "stockdash/pkg/models"
    "stockdash/pkg/quotes"
    "stockdash/pkg/redisclient"
    "stockdash/pkg/yahoo"
)

// priceRecorder persists every live quote into the price history table.
type priceRecorder struct {
    repo database.PriceRepository
}

func (p priceRecorder) PublishQuote(ctx context.Context, q models.Quote) error {
    return p.repo.RecordQuote(ctx, q)
}

// multiPublisher fans one quote out to several targets; the first failure
// wins but all targets are attempted.
type multiPublisher []quotes.Publisher

func (m multiPublisher) PublishQuote(ctx context.Context, q models.Quote) error {
    var firstErr error
    for _, p := range m {
        if err := p.PublishQuote(ctx, q); err != nil && firstErr == nil {
            firstErr = err
        }
    }
    return firstErr
}

func main() {
    // .env is optional; real deployments set the environment directly.
    godotenv.Load()

    if err := logger.Init(); err != nil {
        panic("failed to initialize logger: " + err.Error())
    }
    defer logger.Sync()
    log := logger.Log

    log.Info("starting stockdash API server")

    cfg, err := config.Load()
    if err != nil {
        log.Fatal("failed to load configuration", zap.Error(err))
    }
    log.Info("configuration loaded",
        zap.Int("port", cfg.HTTPPort),
        zap.Strings("symbols", cfg.TrackedSymbols))

    // Database
    db, err := database.New(database.NewConfig())
    if err != nil {
        log.Fatal("failed to connect to database", zap.Error(err))
    }
    defer db.Close()

    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    if err := db.RunMigrations(ctx); err != nil {
        cancel()
        log.Fatal("failed to run database migrations", zap.Error(err))
    }
    cancel()

    priceRepo := database.NewPriceRepository(db)
    watchlistRepo := database.NewWatchlistRepository(db)
    chatRepo := database.NewChatRepository(db)

    // Publishers: price history always, Redis fanout when configured.
    publishers := multiPublisher{priceRecorder{repo: priceRepo}}

    var redisClient *redisclient.Client
    if cfg.RedisURL != "" {
        redisClient, err = redisclient.New(cfg.RedisURL)
        if err != nil {
            log.Warn("redis disabled", zap.Error(err))
        } else {
            defer redisClient.Close()
            publishers = append(publishers, redisClient)
            log.Info("redis fanout enabled")
        }
    }

    // Quote pipeline
    provider := yahoo.NewClient()
    quoteService := quotes.NewService(provider,
        quotes.WithTTL(cfg.CacheTTL),
        quotes.WithCooldown(cfg.Cooldown),
        quotes.WithPublisher(publishers),
    )

    hub := broadcast.NewHub(quoteService, cfg.TrackedSymbols, cfg.BroadcastInterval)

    advisor := ai.NewAdvisor(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
    if !advisor.Enabled() {
        log.Warn("AI chat disabled, OPENROUTER_API_KEY not set")
    }

    server := &Server{
        quotes:    quoteService,
        market:    provider,
        hub:       hub,
        advisor:   advisor,
        prices:    priceRepo,
        watchlist: watchlistRepo,
        chats:     chatRepo,
        db:        db,
        redis:     redisClient,
        symbols:   cfg.TrackedSymbols,
    }

    // Broadcast loop lives for the whole process.
    broadcastCtx, stopBroadcast := context.WithCancel(context.Background())
    defer stopBroadcast()
    go hub.Run(broadcastCtx)

    // Warm the cache from peer instances' fetches on the shared quota.
    if redisClient != nil {
        go redisClient.ListenQuotes(broadcastCtx, quoteService.Warm)
    }

    httpServer := &http.Server{
        Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
        Handler:      server.routes(),
        ReadTimeout:  30 * time.Second,
        WriteTimeout: 30 * time.Second,
        IdleTimeout:  120 * time.Second,
    }

    go func() {
        log.Info("starting HTTP server", zap.String("addr", httpServer.Addr))
        if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal("failed to start server", zap.Error(err))
        }
    }()

    quit := make(chan os.Signal, 1)
    signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
    <-quit

    log.Info("shutting down server...")
    stopBroadcast()

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()

    if err := httpServer.Shutdown(shutdownCtx); err != nil {
        log.Error("server forced to shutdown", zap.Error(err))
    }

    log.Info("server exited")
}
