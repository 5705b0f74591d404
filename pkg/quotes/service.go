package quotes

import (
    "context"
    "errors"
    "math/rand"
    "sync"
    "time"

    "go.uber.org/zap"

    "stockdash/pkg/logger"
    "stockdash/pkg/metrics"
    "stockdash/pkg/models"
    "stockdash/pkg/validation"
)

const (
    // DefaultTTL is how long a cached quote counts as fresh.
    DefaultTTL = 5 * time.Minute
    // DefaultCooldown is the gate cooldown after an upstream throttle signal.
    DefaultCooldown = 60 * time.Second

    // maxAttempts bounds upstream attempts per fetch, pacing included.
    maxAttempts = 2
)

// Sentinel errors a Provider implementation should wrap so the fetcher can
// classify failures.
var (
    // ErrRateLimited signals the upstream quota was exceeded.
    ErrRateLimited = errors.New("upstream rate limited")
    // ErrNoPrice signals the upstream answered without a usable price.
    ErrNoPrice = errors.New("no price data")
)

// Provider fetches live quotes from the upstream market-data source.
type Provider interface {
    Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// Publisher receives successfully fetched live quotes for fanout. Publish
// failures are logged and swallowed; they never affect the fetch result.
type Publisher interface {
    PublishQuote(ctx context.Context, q models.Quote) error
}

// Service orchestrates cache lookup, gate check, upstream retry and fallback
// substitution. Fetch and FetchMany are total: they always return a quote for
// every requested symbol, degrading to synthetic data rather than erroring.
type Service struct {
    provider  Provider
    cache     *Cache
    gate      *Gate
    fallback  *Generator
    publisher Publisher

    cooldown time.Duration

    // sleep and rng are injectable so tests run without real delays.
    sleep func(ctx context.Context, d time.Duration)
    rngMu sync.Mutex
    rng   *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides the cache freshness window.
func WithTTL(ttl time.Duration) Option {
    return func(s *Service) { s.cache = NewCache(ttl) }
}

// WithCooldown overrides the gate cooldown applied on a throttle signal.
func WithCooldown(d time.Duration) Option {
    return func(s *Service) { s.cooldown = d }
}

// WithPublisher attaches a fanout target for live quotes.
func WithPublisher(p Publisher) Option {
    return func(s *Service) { s.publisher = p }
}

// NewService builds a Service around the given upstream provider.
func NewService(provider Provider, opts ...Option) *Service {
    s := &Service{
        provider: provider,
        cache:    NewCache(DefaultTTL),
        gate:     NewGate(),
        fallback: NewGenerator(),
        cooldown: DefaultCooldown,
        sleep:    sleepCtx,
        rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
    }
    for _, opt := range opts {
        opt(s)
    }
    return s
}

// Fetch resolves one symbol. Cache hit wins; a blocked gate or any
// unrecoverable upstream condition degrades to a synthetic quote.
func (s *Service) Fetch(ctx context.Context, symbol string) models.Quote {
    symbol = validation.SanitizeSymbol(symbol)

    start := time.Now()
    defer func() {
        metrics.FetchLatency.Observe(time.Since(start).Seconds())
    }()

    if q, ok := s.cache.Get(symbol); ok {
        metrics.CacheHits.Inc()
        metrics.FetchCounter.WithLabelValues("cache").Inc()
        return q
    }
    metrics.CacheMisses.Inc()

    if s.gate.Blocked() {
        logger.Log.Debug("rate limit cooldown active, using fallback",
            zap.String("symbol", symbol))
        return s.degrade(symbol)
    }

    for attempt := 0; attempt < maxAttempts; attempt++ {
        if attempt == 0 {
            // Defensive pacing before the first call, not a retry delay.
            s.sleep(ctx, s.uniformDelay(200*time.Millisecond, 500*time.Millisecond))
        } else {
            s.sleep(ctx, time.Duration(attempt+1)*2*time.Second)
        }

        q, err := s.provider.Quote(ctx, symbol)
        if err == nil {
            q.Sanitize()
            s.cache.Put(symbol, q)
            s.publish(ctx, q)
            metrics.FetchCounter.WithLabelValues("live").Inc()
            return q
        }

        switch {
        case errors.Is(err, ErrRateLimited):
            logger.Log.Warn("upstream rate limited, tripping gate",
                zap.String("symbol", symbol))
            metrics.UpstreamErrors.WithLabelValues("rate_limited").Inc()
            metrics.GateTrips.Inc()
            s.gate.Trip(s.cooldown)
            return s.degrade(symbol)
        case errors.Is(err, ErrNoPrice):
            // Retrying will not conjure a price.
            metrics.UpstreamErrors.WithLabelValues("no_price").Inc()
            return s.degrade(symbol)
        default:
            logger.Log.Warn("upstream fetch failed",
                zap.String("symbol", symbol),
                zap.Int("attempt", attempt+1),
                zap.Error(err))
            metrics.UpstreamErrors.WithLabelValues("transient").Inc()
        }
    }

    return s.degrade(symbol)
}

// FetchMany resolves symbols in order, one quote per input entry. A
// randomized pacing delay runs strictly between successive fetches to spread
// load on the shared upstream quota.
func (s *Service) FetchMany(ctx context.Context, symbols []string) []models.Quote {
    results := make([]models.Quote, 0, len(symbols))
    for i, symbol := range symbols {
        results = append(results, s.Fetch(ctx, symbol))
        if i < len(symbols)-1 {
            s.sleep(ctx, s.uniformDelay(300*time.Millisecond, 800*time.Millisecond))
        }
    }
    return results
}

// Warm seeds the cache with a quote obtained elsewhere, typically a peer
// instance's fanout. Synthetic quotes never enter the cache.
func (s *Service) Warm(q models.Quote) {
    if q.Synthetic {
        return
    }
    q.Sanitize()
    s.cache.Put(q.Symbol, q)
}

func (s *Service) degrade(symbol string) models.Quote {
    metrics.FetchCounter.WithLabelValues("fallback").Inc()
    return s.fallback.QuoteFor(symbol)
}

func (s *Service) publish(ctx context.Context, q models.Quote) {
    if s.publisher == nil {
        return
    }
    if err := s.publisher.PublishQuote(ctx, q); err != nil {
        logger.Log.Warn("quote publish failed",
            zap.String("symbol", q.Symbol), zap.Error(err))
    }
}

func (s *Service) uniformDelay(min, max time.Duration) time.Duration {
    s.rngMu.Lock()
    defer s.rngMu.Unlock()
    return min + time.Duration(s.rng.Int63n(int64(max-min)))
}

// sleepCtx waits for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
    if d <= 0 {
        return
    }
    timer := time.NewTimer(d)
    defer timer.Stop()
    select {
    case <-ctx.Done():
    case <-timer.C:
    }
}
