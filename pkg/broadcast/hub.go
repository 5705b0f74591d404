// Package broadcast pushes periodic quote snapshots to a set of live
// subscribers, typically websocket connections.
package broadcast

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    "go.uber.org/zap"

    "stockdash/pkg/logger"
    "stockdash/pkg/metrics"
    "stockdash/pkg/models"
)

// DefaultInterval is the cadence of the periodic snapshot push.
const DefaultInterval = 30 * time.Second

// Fetcher produces the batch snapshot for one broadcast round.
// *quotes.Service satisfies it.
type Fetcher interface {
    FetchMany(ctx context.Context, symbols []string) []models.Quote
}

// Subscriber receives serialized update payloads. A Send error marks the
// subscriber dead; the hub drops it after the current tick.
type Subscriber interface {
    Send(data []byte) error
}

// Hub fans quote snapshots out to registered subscribers on a fixed
// interval. One batch fetch per tick is shared by all subscribers.
type Hub struct {
    fetcher  Fetcher
    symbols  []string
    interval time.Duration

    mu   sync.Mutex
    subs map[Subscriber]struct{}

    now func() time.Time
}

func NewHub(fetcher Fetcher, symbols []string, interval time.Duration) *Hub {
    if interval <= 0 {
        interval = DefaultInterval
    }
    return &Hub{
        fetcher:  fetcher,
        symbols:  symbols,
        interval: interval,
        subs:     make(map[Subscriber]struct{}),
        now:      time.Now,
    }
}

// Register adds a subscriber to the fan-out set.
func (h *Hub) Register(s Subscriber) {
    h.mu.Lock()
    h.subs[s] = struct{}{}
    n := len(h.subs)
    h.mu.Unlock()

    metrics.Subscribers.Set(float64(n))
    logger.Log.Info("subscriber registered", zap.Int("active", n))
}

// Unregister removes a subscriber. Safe to call for an already removed one.
func (h *Hub) Unregister(s Subscriber) {
    h.mu.Lock()
    delete(h.subs, s)
    n := len(h.subs)
    h.mu.Unlock()

    metrics.Subscribers.Set(float64(n))
    logger.Log.Info("subscriber unregistered", zap.Int("active", n))
}

// Snapshot fetches the current batch and serializes one update payload.
// Handlers use it to greet a new connection without waiting for the tick.
func (h *Hub) Snapshot(ctx context.Context) ([]byte, error) {
    qs := h.fetcher.FetchMany(ctx, h.symbols)
    payload := models.NewUpdatePayload(qs, h.now())
    data, err := json.Marshal(payload)
    if err != nil {
        return nil, fmt.Errorf("marshal update payload: %w", err)
    }
    return data, nil
}

// Run drives the periodic broadcast until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
    ticker := time.NewTicker(h.interval)
    defer ticker.Stop()

    for {
        select {
        case <-ctx.Done():
            logger.Log.Info("broadcast loop stopped")
            return
        case <-ticker.C:
            h.Tick(ctx)
        }
    }
}

// Tick performs one broadcast round: fetch the batch once, deliver it to
// every subscriber, then drop the ones whose Send failed. Failed
// subscribers still count as delivery targets within the same round.
func (h *Hub) Tick(ctx context.Context) {
    h.mu.Lock()
    targets := make([]Subscriber, 0, len(h.subs))
    for s := range h.subs {
        targets = append(targets, s)
    }
    h.mu.Unlock()

    if len(targets) == 0 {
        return
    }

    metrics.BroadcastTicks.Inc()

    data, err := h.Snapshot(ctx)
    if err != nil {
        metrics.BroadcastErrors.Inc()
        logger.Log.Error("broadcast snapshot failed", zap.Error(err))
        return
    }

    var failed []Subscriber
    for _, s := range targets {
        if err := s.Send(data); err != nil {
            metrics.BroadcastErrors.Inc()
            logger.Log.Warn("subscriber send failed, dropping", zap.Error(err))
            failed = append(failed, s)
        }
    }

    for _, s := range failed {
        h.Unregister(s)
    }
}

// SubscriberCount reports the number of active subscribers.
func (h *Hub) SubscriberCount() int {
    h.mu.Lock()
    defer h.mu.Unlock()
    return len(h.subs)
}
