package models

import (
    "encoding/json"
    "fmt"
    "math"
    "time"

    "stockdash/pkg/validation"
)

// Quote is a single symbol's market snapshot at a point in time.
type Quote struct {
    Symbol        string    `json:"symbol" validate:"required,ticker"`
    CompanyName   string    `json:"company_name"`
    Price         float64   `json:"price" validate:"price"`
    ChangePercent float64   `json:"change_percent"`
    Volume        int64     `json:"volume" validate:"min=0"`
    MarketCap     int64     `json:"market_cap" validate:"min=0"`
    PreviousClose float64   `json:"previous_close,omitempty"`
    Open          float64   `json:"open,omitempty"`
    DayHigh       float64   `json:"day_high,omitempty"`
    DayLow        float64   `json:"day_low,omitempty"`
    YearHigh      float64   `json:"year_high,omitempty"`
    YearLow       float64   `json:"year_low,omitempty"`
    Synthetic     bool      `json:"synthetic,omitempty"`
    Timestamp     time.Time `json:"timestamp"`
}

// Validate validates the Quote struct
func (q Quote) Validate() error {
    if errors := validation.ValidateStruct(q); len(errors) > 0 {
        return errors
    }
    return nil
}

// Sanitize cleans the Quote data in place.
func (q *Quote) Sanitize() {
    q.Symbol = validation.SanitizeSymbol(q.Symbol)
    q.CompanyName = validation.SanitizeString(q.CompanyName)
    if q.Price < 0 {
        q.Price = 0
    }
    if q.Volume < 0 {
        q.Volume = 0
    }
    if q.MarketCap < 0 {
        q.MarketCap = 0
    }
    if q.Timestamp.IsZero() || q.Timestamp.After(time.Now()) {
        q.Timestamp = time.Now().UTC()
    }
}

// ToJSON converts to JSON string for pub/sub
func (q Quote) ToJSON() (string, error) {
    data, err := json.Marshal(q)
    if err != nil {
        return "", fmt.Errorf("json marshal error: %w", err)
    }
    return string(data), nil
}

// QuoteFromJSON creates a Quote from a JSON string.
func QuoteFromJSON(data string) (Quote, error) {
    var q Quote
    if err := json.Unmarshal([]byte(data), &q); err != nil {
        return q, fmt.Errorf("json unmarshal error: %w", err)
    }
    q.Sanitize()
    if err := q.Validate(); err != nil {
        return q, fmt.Errorf("validation failed: %w", err)
    }
    return q, nil
}

// Round2 rounds to two decimal places, the display precision for prices
// and change percentages.
func Round2(v float64) float64 {
    return math.Round(v*100) / 100
}

// ChangePercent computes the percent change of price against the previous
// close, rounded to two decimals. A zero or negative previous close yields 0.
func ChangePercent(price, previousClose float64) float64 {
    if previousClose <= 0 {
        return 0
    }
    return Round2((price - previousClose) / previousClose * 100)
}

// UpdatePayload is the envelope pushed to subscribers and returned by the
// polling endpoint.
type UpdatePayload struct {
    Type      string  `json:"type"`
    Data      []Quote `json:"data"`
    Timestamp string  `json:"timestamp"`
}

// NewUpdatePayload wraps a batch of quotes in the stock_update envelope.
func NewUpdatePayload(quotes []Quote, now time.Time) UpdatePayload {
    return UpdatePayload{
        Type:      "stock_update",
        Data:      quotes,
        Timestamp: now.UTC().Format(time.RFC3339),
    }
}

// Candle is one bar of historical price data.
type Candle struct {
    Timestamp string  `json:"timestamp"`
    Open      float64 `json:"open"`
    High      float64 `json:"high"`
    Low       float64 `json:"low"`
    Close     float64 `json:"close"`
    Volume    int64   `json:"volume"`
}

// SearchResult is one symbol match from the search endpoint.
type SearchResult struct {
    Symbol   string `json:"symbol"`
    Name     string `json:"name"`
    Exchange string `json:"exchange,omitempty"`
}

// WatchlistItem links a user to a tracked symbol.
type WatchlistItem struct {
    UserID string `json:"user_id" validate:"required"`
    Symbol string `json:"symbol" validate:"required,ticker"`
}

// Sanitize cleans the WatchlistItem in place.
func (w *WatchlistItem) Sanitize() {
    w.UserID = validation.SanitizeString(w.UserID)
    w.Symbol = validation.SanitizeSymbol(w.Symbol)
}

// Validate validates the WatchlistItem struct
func (w WatchlistItem) Validate() error {
    if errors := validation.ValidateStruct(w); len(errors) > 0 {
        return errors
    }
    return nil
}

// ChatMessage is one persisted user/assistant exchange.
type ChatMessage struct {
    ID          int64     `json:"id"`
    SessionID   string    `json:"session_id" validate:"required,session"`
    UserMessage string    `json:"user_message" validate:"required"`
    AIResponse  string    `json:"ai_response"`
    StockSymbol string    `json:"stock_symbol,omitempty"`
    CreatedAt   time.Time `json:"created_at"`
}

// Validate validates the ChatMessage struct
func (c ChatMessage) Validate() error {
    if errors := validation.ValidateStruct(c); len(errors) > 0 {
        return errors
    }
    return nil
}
