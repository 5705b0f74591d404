package config

import (
    "flag"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"
)

type Config struct {
    HTTPPort          int
    RedisURL          string
    TrackedSymbols    []string
    CacheTTL          time.Duration
    Cooldown          time.Duration
    BroadcastInterval time.Duration
    OpenRouterAPIKey  string
    OpenRouterModel   string
}

// Load reads environment variables and application flags (via a local FlagSet),
// strips out any -test.* flags, and validates required fields.
func Load() (*Config, error) {
    // 1. Build a fresh FlagSet so we don't collide with `go test` flags
    fs := flag.NewFlagSet("config", flag.ContinueOnError)

    // 2. Define only the flags this package cares about
    var httpPort int
    var redisURL string
    var symbols string
    fs.IntVar(&httpPort, "port", 8000, "HTTP listen port")
    fs.StringVar(&redisURL, "redis", os.Getenv("REDIS_URL"), "Redis connection URL (optional fanout)")
    fs.StringVar(&symbols, "symbols", getEnvOrDefault("TRACKED_SYMBOLS", "AAPL,GOOGL,MSFT,TSLA,AMZN"), "Default broadcast symbols")

    // 3. Filter out any -test.* args before parsing
    var appArgs []string
    for _, arg := range os.Args[1:] {
        if strings.HasPrefix(arg, "-test.") {
            continue
        }
        appArgs = append(appArgs, arg)
    }
    if err := fs.Parse(appArgs); err != nil {
        return nil, err
    }

    // 4. Populate our Config struct
    cfg := &Config{
        HTTPPort:          httpPort,
        RedisURL:          redisURL,
        TrackedSymbols:    splitAndTrim(symbols, ","),
        CacheTTL:          getDurationEnvOrDefault("CACHE_TTL", 5*time.Minute),
        Cooldown:          getDurationEnvOrDefault("RATE_LIMIT_COOLDOWN", 60*time.Second),
        BroadcastInterval: getDurationEnvOrDefault("BROADCAST_INTERVAL", 30*time.Second),
        OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
        OpenRouterModel:   getEnvOrDefault("OPENROUTER_MODEL", "anthropic/claude-3-haiku"),
    }

    // Check for PORT env var (overrides flag/default if set)
    if portEnv := os.Getenv("PORT"); portEnv != "" {
        if portVal, err := strconv.Atoi(portEnv); err == nil {
            cfg.HTTPPort = portVal
        } else {
            return nil, fmt.Errorf("invalid PORT env var: %v", err)
        }
    }

    // 5. Validate required fields
    if len(cfg.TrackedSymbols) == 0 {
        return nil, fmt.Errorf("no tracked symbols configured")
    }
    if cfg.CacheTTL <= 0 || cfg.Cooldown <= 0 || cfg.BroadcastInterval <= 0 {
        return nil, fmt.Errorf("durations must be positive")
    }

    return cfg, nil
}

// splitAndTrim splits s on sep, trims spaces, uppercases, and drops empty entries.
func splitAndTrim(s, sep string) []string {
    parts := []string{}
    for _, p := range strings.Split(s, sep) {
        if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
            parts = append(parts, t)
        }
    }
    return parts
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
    if value := os.Getenv(key); value != "" {
        return value
    }
    return defaultValue
}

// getDurationEnvOrDefault returns environment variable as duration or default
func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
    if value := os.Getenv(key); value != "" {
        if duration, err := time.ParseDuration(value); err == nil {
            return duration
        }
    }
    return defaultValue
}
