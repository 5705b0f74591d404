package quotes

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "stockdash/pkg/models"
)

type stubProvider struct {
    mu    sync.Mutex
    calls int
    fn    func(symbol string) (models.Quote, error)
}

func (p *stubProvider) Quote(_ context.Context, symbol string) (models.Quote, error) {
    p.mu.Lock()
    p.calls++
    p.mu.Unlock()
    return p.fn(symbol)
}

func (p *stubProvider) callCount() int {
    p.mu.Lock()
    defer p.mu.Unlock()
    return p.calls
}

type stubPublisher struct {
    published []models.Quote
    err       error
}

func (p *stubPublisher) PublishQuote(_ context.Context, q models.Quote) error {
    p.published = append(p.published, q)
    return p.err
}

// newTestService wires a Service with a fake clock and a sleep recorder so
// tests run instantly and can assert on pacing.
func newTestService(p Provider, opts ...Option) (*Service, *time.Time, *[]time.Duration) {
    now := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
    clock := &now
    var sleeps []time.Duration

    s := NewService(p, opts...)
    s.cache.now = func() time.Time { return *clock }
    s.gate.now = func() time.Time { return *clock }
    s.sleep = func(_ context.Context, d time.Duration) {
        sleeps = append(sleeps, d)
    }
    return s, clock, &sleeps
}

func liveQuote(symbol string) models.Quote {
    return models.Quote{
        Symbol:        symbol,
        CompanyName:   symbol + " Corp",
        Price:         123.45,
        ChangePercent: 1.5,
        Volume:        1000,
        MarketCap:     1000000,
        Timestamp:     time.Date(2025, 7, 10, 11, 0, 0, 0, time.UTC),
    }
}

func TestFetch_CacheHitSkipsUpstream(t *testing.T) {
    p := &stubProvider{fn: func(string) (models.Quote, error) {
        return models.Quote{}, errors.New("should not be called")
    }}
    s, _, _ := newTestService(p)

    want := liveQuote("AAPL")
    s.cache.Put("AAPL", want)

    got := s.Fetch(context.Background(), "AAPL")

    assert.Equal(t, want, got)
    assert.Equal(t, 0, p.callCount())
}

func TestFetch_SuccessPopulatesCache(t *testing.T) {
    p := &stubProvider{fn: func(sym string) (models.Quote, error) {
        return liveQuote(sym), nil
    }}
    s, _, _ := newTestService(p)

    first := s.Fetch(context.Background(), "msft")
    second := s.Fetch(context.Background(), "MSFT")

    // Second call is a cache hit: bit-identical data, no extra upstream call.
    assert.Equal(t, first, second)
    assert.Equal(t, 1, p.callCount())
    assert.False(t, first.Synthetic)
}

func TestFetch_BlockedGateUsesFallback(t *testing.T) {
    p := &stubProvider{fn: func(string) (models.Quote, error) {
        return models.Quote{}, errors.New("should not be called")
    }}
    s, _, _ := newTestService(p)
    s.gate.Trip(60 * time.Second)

    got := s.Fetch(context.Background(), "AAPL")

    assert.True(t, got.Synthetic)
    assert.Equal(t, 0, p.callCount())
}

func TestFetch_RateLimitTripsGateForCooldown(t *testing.T) {
    limited := true
    p := &stubProvider{fn: func(sym string) (models.Quote, error) {
        if limited {
            return models.Quote{}, fmt.Errorf("quote: %w", ErrRateLimited)
        }
        return liveQuote(sym), nil
    }}
    s, clock, _ := newTestService(p)

    got := s.Fetch(context.Background(), "AAPL")
    require.True(t, got.Synthetic)
    require.Equal(t, 1, p.callCount())

    // While the cooldown holds, no upstream call happens for any symbol.
    got = s.Fetch(context.Background(), "GOOGL")
    assert.True(t, got.Synthetic)
    assert.Equal(t, 1, p.callCount())

    // Just past the deadline, upstream is eligible again.
    *clock = clock.Add(60*time.Second + time.Millisecond)
    limited = false
    got = s.Fetch(context.Background(), "GOOGL")
    assert.False(t, got.Synthetic)
    assert.Equal(t, 2, p.callCount())
}

func TestFetch_NoPriceDegradesWithoutRetry(t *testing.T) {
    p := &stubProvider{fn: func(string) (models.Quote, error) {
        return models.Quote{}, fmt.Errorf("parse: %w", ErrNoPrice)
    }}
    s, _, _ := newTestService(p)

    got := s.Fetch(context.Background(), "AAPL")

    assert.True(t, got.Synthetic)
    assert.Equal(t, 1, p.callCount(), "zero-price answers are not retried")
    assert.False(t, s.gate.Blocked(), "no-price data is not a throttle signal")
}

func TestFetch_TransientErrorRetriedThenFallback(t *testing.T) {
    p := &stubProvider{fn: func(string) (models.Quote, error) {
        return models.Quote{}, errors.New("connection reset")
    }}
    s, _, sleeps := newTestService(p)

    got := s.Fetch(context.Background(), "AAPL")

    assert.True(t, got.Synthetic)
    assert.Equal(t, 2, p.callCount())

    require.Len(t, *sleeps, 2)
    // First attempt is preceded by a small pacing jitter, the retry by the
    // fixed increasing backoff.
    assert.GreaterOrEqual(t, (*sleeps)[0], 200*time.Millisecond)
    assert.LessOrEqual(t, (*sleeps)[0], 500*time.Millisecond)
    assert.Equal(t, 4*time.Second, (*sleeps)[1])
}

func TestFetchMany_PreservesOrderAndLength(t *testing.T) {
    p := &stubProvider{fn: func(sym string) (models.Quote, error) {
        if sym == "B" {
            return models.Quote{}, fmt.Errorf("quote: %w", ErrNoPrice)
        }
        return liveQuote(sym), nil
    }}
    s, _, _ := newTestService(p)

    got := s.FetchMany(context.Background(), []string{"A", "B", "C"})

    require.Len(t, got, 3)
    assert.Equal(t, "A", got[0].Symbol)
    assert.Equal(t, "B", got[1].Symbol)
    assert.Equal(t, "C", got[2].Symbol)
    assert.False(t, got[0].Synthetic)
    assert.True(t, got[1].Synthetic)
    assert.False(t, got[2].Synthetic)
}

func TestFetchMany_PacesBetweenFetchesOnly(t *testing.T) {
    p := &stubProvider{fn: func(sym string) (models.Quote, error) {
        return liveQuote(sym), nil
    }}
    s, _, sleeps := newTestService(p)

    s.FetchMany(context.Background(), []string{"A", "B", "C"})

    // Sequence: jitter(A), pace, jitter(B), pace, jitter(C).
    require.Len(t, *sleeps, 5)
    for _, i := range []int{1, 3} {
        assert.GreaterOrEqual(t, (*sleeps)[i], 300*time.Millisecond)
        assert.LessOrEqual(t, (*sleeps)[i], 800*time.Millisecond)
    }
}

func TestFetchMany_DuplicatesFetchedTwice(t *testing.T) {
    p := &stubProvider{fn: func(sym string) (models.Quote, error) {
        return liveQuote(sym), nil
    }}
    s, _, _ := newTestService(p)

    got := s.FetchMany(context.Background(), []string{"A", "A"})

    require.Len(t, got, 2)
    // Second fetch is a cache hit; upstream called once.
    assert.Equal(t, 1, p.callCount())
}

func TestWarm_SeedsCacheWithoutUpstreamCall(t *testing.T) {
    p := &stubProvider{fn: func(string) (models.Quote, error) {
        return models.Quote{}, errors.New("should not be called")
    }}
    s, _, _ := newTestService(p)

    s.Warm(liveQuote("AAPL"))
    got := s.Fetch(context.Background(), "AAPL")

    assert.Equal(t, liveQuote("AAPL"), got)
    assert.Equal(t, 0, p.callCount())
}

func TestWarm_IgnoresSyntheticQuotes(t *testing.T) {
    p := &stubProvider{fn: func(sym string) (models.Quote, error) {
        return liveQuote(sym), nil
    }}
    s, _, _ := newTestService(p)

    synthetic := liveQuote("AAPL")
    synthetic.Synthetic = true
    s.Warm(synthetic)

    got := s.Fetch(context.Background(), "AAPL")

    assert.False(t, got.Synthetic)
    assert.Equal(t, 1, p.callCount(), "synthetic seed must not satisfy the fetch")
}

func TestFetch_PublisherFailureDoesNotAffectResult(t *testing.T) {
    p := &stubProvider{fn: func(sym string) (models.Quote, error) {
        return liveQuote(sym), nil
    }}
    pub := &stubPublisher{err: errors.New("redis down")}
    s, _, _ := newTestService(p, WithPublisher(pub))

    got := s.Fetch(context.Background(), "AAPL")

    assert.False(t, got.Synthetic)
    assert.Len(t, pub.published, 1)

    // And the quote made it into the cache regardless.
    _, ok := s.cache.Get("AAPL")
    assert.True(t, ok)
}
