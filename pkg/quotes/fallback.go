package quotes

import (
    "fmt"
    "math/rand"
    "sync"
    "time"

    "stockdash/pkg/models"
)

// Generator produces synthetic quotes when live data is unavailable. It never
// fails and never touches the network; every read re-derives with fresh
// jitter so consecutive fallback reads look dynamic but stay plausible.
type Generator struct {
    mu  sync.Mutex
    rng *rand.Rand
    now func() time.Time
}

// NewGenerator returns a Generator seeded from the wall clock.
func NewGenerator() *Generator {
    return NewGeneratorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewGeneratorWithSource allows tests to pin the randomness source.
func NewGeneratorWithSource(src rand.Source) *Generator {
    return &Generator{
        rng: rand.New(src),
        now: time.Now,
    }
}

// QuoteFor returns a synthetic quote for symbol. Known symbols jitter around
// their baseline (price within 0.5%, change within 0.1 point); unknown
// symbols get placeholder data flagged as temporarily unavailable.
func (g *Generator) QuoteFor(symbol string) models.Quote {
    g.mu.Lock()
    defer g.mu.Unlock()

    now := g.now().UTC()
    if base, ok := baselines[symbol]; ok {
        variation := g.uniform(-0.5, 0.5)
        return models.Quote{
            Symbol:        symbol,
            CompanyName:   base.Name,
            Price:         models.Round2(base.Price * (1 + variation/100)),
            ChangePercent: models.Round2(base.Change + g.uniform(-0.1, 0.1)),
            Volume:        base.Volume,
            MarketCap:     base.MarketCap,
            Synthetic:     true,
            Timestamp:     now,
        }
    }

    return models.Quote{
        Symbol:        symbol,
        CompanyName:   fmt.Sprintf("%s (Data temporarily unavailable)", symbol),
        Price:         models.Round2(100.00 + g.uniform(-10, 10)),
        ChangePercent: models.Round2(g.uniform(-2, 2)),
        Volume:        g.intBetween(1_000_000, 50_000_000),
        MarketCap:     g.intBetween(10_000_000_000, 500_000_000_000),
        Synthetic:     true,
        Timestamp:     now,
    }
}

func (g *Generator) uniform(min, max float64) float64 {
    return min + g.rng.Float64()*(max-min)
}

func (g *Generator) intBetween(min, max int64) int64 {
    return min + g.rng.Int63n(max-min+1)
}
