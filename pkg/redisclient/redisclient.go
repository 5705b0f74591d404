// Package redisclient wraps go-redis with retries, per-operation timeouts
// and a small circuit breaker. The rest of the service treats Redis as a
// best-effort fan-out target, never as the source of truth.
package redisclient

import (
    "context"
    "errors"
    "fmt"
    "sync/atomic"
    "time"

    "github.com/cenkalti/backoff/v4"
    "github.com/go-redis/redis/v8"
    "go.uber.org/zap"

    "stockdash/pkg/logger"
    "stockdash/pkg/metrics"
    "stockdash/pkg/models"
)

var (
    ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

const (
    latestKeyPrefix = "quotes:latest:"
    updatesChannel  = "quotes:updates"
)

type Client struct {
    rdb *redis.Client
    // Circuit breaker state
    failureCount int64
    lastFailure  int64
    state        int32 // 0: closed, 1: open, 2: half-open
}

// New constructs a Client with sensible defaults & retry logic
func New(redisURL string) (*Client, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil {
        return nil, fmt.Errorf("invalid redis url: %w", err)
    }
    opt.PoolSize = 20
    opt.MinIdleConns = 5
    opt.MaxRetries = 3
    opt.DialTimeout = 5 * time.Second
    opt.ReadTimeout = 3 * time.Second
    opt.WriteTimeout = 3 * time.Second
    opt.IdleTimeout = 5 * time.Minute
    return &Client{rdb: redis.NewClient(opt)}, nil
}

// withMetrics wraps operations with metrics collection
func (c *Client) withMetrics(operation string, fn func() error) error {
    start := time.Now()
    err := fn()
    duration := time.Since(start).Seconds()

    metrics.RedisOperationDuration.WithLabelValues(operation, getStatus(err)).Observe(duration)
    if err != nil {
        metrics.RedisErrors.WithLabelValues(operation).Inc()
    }

    return err
}

func getStatus(err error) string {
    if err != nil {
        return "error"
    }
    return "success"
}

// checkCircuitBreaker checks if circuit breaker should be opened/closed
func (c *Client) checkCircuitBreaker(err error) {
    if err != nil {
        atomic.AddInt64(&c.failureCount, 1)
        atomic.StoreInt64(&c.lastFailure, time.Now().Unix())

        // Open circuit breaker after 5 consecutive failures
        if atomic.LoadInt64(&c.failureCount) >= 5 {
            atomic.CompareAndSwapInt32(&c.state, 0, 1) // closed -> open
            logger.Log.Warn("circuit breaker opened", zap.String("operation", "redis"))
        }
    } else {
        atomic.StoreInt64(&c.failureCount, 0)
        atomic.CompareAndSwapInt32(&c.state, 1, 2) // open -> half-open
    }
}

// PublishQuote mirrors a live quote into Redis: the latest-value hash for
// late joiners and the pub/sub channel for external consumers.
func (c *Client) PublishQuote(ctx context.Context, q models.Quote) error {
    data, err := q.ToJSON()
    if err != nil {
        return err
    }

    if err := c.HSet(ctx, latestKeyPrefix+q.Symbol, map[string]interface{}{
        "data": data,
    }); err != nil {
        return err
    }
    return c.Publish(ctx, updatesChannel, data)
}

// LatestQuote reads the mirrored quote for a symbol, if present.
func (c *Client) LatestQuote(ctx context.Context, symbol string) (models.Quote, bool, error) {
    fields, err := c.rdb.HGetAll(ctx, latestKeyPrefix+symbol).Result()
    if err != nil {
        metrics.RedisErrors.WithLabelValues("hgetall").Inc()
        return models.Quote{}, false, err
    }
    data, ok := fields["data"]
    if !ok {
        return models.Quote{}, false, nil
    }
    q, err := models.QuoteFromJSON(data)
    if err != nil {
        return models.Quote{}, false, err
    }
    return q, true, nil
}

// HSet sets a hash with retry
func (c *Client) HSet(ctx context.Context, key string, values map[string]interface{}) error {
    return c.withMetrics("hset", func() error {
        if atomic.LoadInt32(&c.state) == 1 {
            return ErrCircuitBreakerOpen
        }

        op := func() error {
            ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
            defer cancel()
            err := c.rdb.HSet(ctx, key, values).Err()
            c.checkCircuitBreaker(err)
            return err
        }
        return backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3))
    })
}

// Publish wraps rdb.Publish with a short timeout
func (c *Client) Publish(ctx context.Context, channel string, msg interface{}) error {
    return c.withMetrics("publish", func() error {
        if atomic.LoadInt32(&c.state) == 1 {
            return ErrCircuitBreakerOpen
        }

        ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
        defer cancel()
        err := c.rdb.Publish(ctx, channel, msg).Err()
        c.checkCircuitBreaker(err)
        return err
    })
}

// ListenQuotes consumes the quote fanout channel until ctx is cancelled,
// invoking handler for every valid quote. Peer instances share one upstream
// quota, so consuming their fetches avoids duplicate calls.
func (c *Client) ListenQuotes(ctx context.Context, handler func(models.Quote)) {
    pubsub := c.rdb.Subscribe(ctx, updatesChannel)
    defer pubsub.Close()

    ch := pubsub.Channel()
    for {
        select {
        case <-ctx.Done():
            return
        case msg, ok := <-ch:
            if !ok {
                return
            }
            q, err := models.QuoteFromJSON(msg.Payload)
            if err != nil {
                metrics.RedisErrors.WithLabelValues("listen").Inc()
                logger.Log.Warn("invalid quote on fanout channel", zap.Error(err))
                continue
            }
            handler(q)
        }
    }
}

// Ping verifies connectivity, used at startup and by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
    ctx, cancel := context.WithTimeout(ctx, time.Second)
    defer cancel()
    return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying connection pool
func (c *Client) Close() error {
    return c.rdb.Close()
}
