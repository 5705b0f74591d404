package metrics

import (
  "net/http"

  "github.com/prometheus/client_golang/prometheus"
  "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
  // Quote fetch metrics
  FetchCounter = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "stockdash_fetch_total",
      Help: "Quote fetches by outcome (cache, live, fallback)",
    },
    []string{"outcome"},
  )
  FetchLatency = prometheus.NewHistogram(
    prometheus.HistogramOpts{
      Name:    "stockdash_fetch_latency_seconds",
      Help:    "Time to resolve one quote",
      Buckets: prometheus.DefBuckets,
    })
  UpstreamErrors = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "stockdash_upstream_errors_total",
      Help: "Upstream provider errors by kind",
    },
    []string{"kind"},
  )
  GateTrips = prometheus.NewCounter(
    prometheus.CounterOpts{
      Name: "stockdash_gate_trips_total",
      Help: "Rate-limit cooldown activations",
    })
  CacheHits = prometheus.NewCounter(
    prometheus.CounterOpts{
      Name: "stockdash_cache_hits_total",
      Help: "Quote cache hits",
    })
  CacheMisses = prometheus.NewCounter(
    prometheus.CounterOpts{
      Name: "stockdash_cache_misses_total",
      Help: "Quote cache misses (stale entries included)",
    })

  // Broadcast metrics
  BroadcastTicks = prometheus.NewCounter(
    prometheus.CounterOpts{
      Name: "stockdash_broadcast_ticks_total",
      Help: "Broadcast ticks executed",
    })
  BroadcastErrors = prometheus.NewCounter(
    prometheus.CounterOpts{
      Name: "stockdash_broadcast_errors_total",
      Help: "Failed subscriber deliveries",
    })
  Subscribers = prometheus.NewGauge(
    prometheus.GaugeOpts{
      Name: "stockdash_subscribers",
      Help: "Currently connected push subscribers",
    })

  // API metrics
  APIRequestDuration = prometheus.NewHistogramVec(
    prometheus.HistogramOpts{
      Name:    "api_request_duration_seconds",
      Help:    "API request duration",
      Buckets: prometheus.DefBuckets,
    },
    []string{"method", "endpoint", "status"},
  )
  APIRequestTotal = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "api_requests_total",
      Help: "Total API requests",
    },
    []string{"method", "endpoint", "status"},
  )

  // Redis metrics
  RedisOperationDuration = prometheus.NewHistogramVec(
    prometheus.HistogramOpts{
      Name:    "redis_operation_duration_seconds",
      Help:    "Redis operation duration",
      Buckets: prometheus.DefBuckets,
    },
    []string{"operation", "status"},
  )
  RedisErrors = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "redis_errors_total",
      Help: "Total Redis errors",
    },
    []string{"operation"},
  )

  // Database metrics
  DatabaseOperationDuration = prometheus.NewHistogramVec(
    prometheus.HistogramOpts{
      Name:    "database_operation_duration_seconds",
      Help:    "Database operation duration",
      Buckets: prometheus.DefBuckets,
    },
    []string{"operation", "status"},
  )
  DatabaseErrors = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "database_errors_total",
      Help: "Total database errors",
    },
    []string{"operation"},
  )

  // AI chat metrics
  ChatRequests = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "stockdash_chat_requests_total",
      Help: "AI chat completions by status",
    },
    []string{"status"},
  )
)

func init() {
  // MustRegister panics if registration fails (e.g. duplicate)
  prometheus.MustRegister(
    FetchCounter, FetchLatency, UpstreamErrors, GateTrips,
    CacheHits, CacheMisses,
    BroadcastTicks, BroadcastErrors, Subscribers,
    APIRequestDuration, APIRequestTotal,
    RedisOperationDuration, RedisErrors,
    DatabaseOperationDuration, DatabaseErrors,
    ChatRequests,
  )
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
  return promhttp.Handler()
}
