// Package yahoo implements the upstream market-data provider against the
// public Yahoo Finance endpoints. It is treated as untrusted, unreliable and
// quota-limited; callers classify failures through the quotes sentinels.
package yahoo

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"
    "time"

    "golang.org/x/time/rate"

    "stockdash/pkg/models"
    "stockdash/pkg/quotes"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; stockdash/1.0)"

// Client talks to the Yahoo Finance quote, chart and search APIs.
type Client struct {
    httpClient *http.Client
    limiter    *rate.Limiter

    quoteBaseURL  string
    searchBaseURL string
}

// NewClient builds a Client with a tuned transport and a conservative
// client-side request rate (2 req/s, burst 1) on top of the shared quota.
func NewClient() *Client {
    return &Client{
        httpClient: &http.Client{
            Timeout: 5 * time.Second,
            Transport: &http.Transport{
                MaxIdleConns:        10,
                MaxIdleConnsPerHost: 5,
                IdleConnTimeout:     30 * time.Second,
            },
        },
        limiter:       rate.NewLimiter(rate.Limit(2), 1),
        quoteBaseURL:  "https://query1.finance.yahoo.com",
        searchBaseURL: "https://query2.finance.yahoo.com",
    }
}

type quoteResponse struct {
    QuoteResponse struct {
        Result []struct {
            Symbol                     string  `json:"symbol"`
            LongName                   string  `json:"longName"`
            ShortName                  string  `json:"shortName"`
            RegularMarketPrice         float64 `json:"regularMarketPrice"`
            RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
            RegularMarketOpen          float64 `json:"regularMarketOpen"`
            RegularMarketDayHigh       float64 `json:"regularMarketDayHigh"`
            RegularMarketDayLow        float64 `json:"regularMarketDayLow"`
            FiftyTwoWeekHigh           float64 `json:"fiftyTwoWeekHigh"`
            FiftyTwoWeekLow            float64 `json:"fiftyTwoWeekLow"`
            RegularMarketVolume        int64   `json:"regularMarketVolume"`
            MarketCap                  int64   `json:"marketCap"`
        } `json:"result"`
        Error *struct {
            Code        string `json:"code"`
            Description string `json:"description"`
        } `json:"error"`
    } `json:"quoteResponse"`
}

// Quote fetches the live snapshot for one symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (models.Quote, error) {
    var q models.Quote

    if err := c.limiter.Wait(ctx); err != nil {
        return q, fmt.Errorf("rate wait: %w", err)
    }

    u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", c.quoteBaseURL, url.QueryEscape(symbol))
    var resp quoteResponse
    if err := c.getJSON(ctx, u, &resp); err != nil {
        return q, err
    }

    if resp.QuoteResponse.Error != nil {
        return q, fmt.Errorf("upstream error %s: %s",
            resp.QuoteResponse.Error.Code, resp.QuoteResponse.Error.Description)
    }
    if len(resp.QuoteResponse.Result) == 0 {
        return q, fmt.Errorf("quote %s: %w", symbol, quotes.ErrNoPrice)
    }

    r := resp.QuoteResponse.Result[0]
    if r.RegularMarketPrice == 0 {
        // Zero-price quotes are never returned as live data.
        return q, fmt.Errorf("quote %s: %w", symbol, quotes.ErrNoPrice)
    }

    name := r.LongName
    if name == "" {
        name = r.ShortName
    }
    if name == "" {
        name = symbol
    }

    return models.Quote{
        Symbol:        symbol,
        CompanyName:   name,
        Price:         models.Round2(r.RegularMarketPrice),
        ChangePercent: models.ChangePercent(r.RegularMarketPrice, r.RegularMarketPreviousClose),
        Volume:        r.RegularMarketVolume,
        MarketCap:     r.MarketCap,
        PreviousClose: r.RegularMarketPreviousClose,
        Open:          r.RegularMarketOpen,
        DayHigh:       r.RegularMarketDayHigh,
        DayLow:        r.RegularMarketDayLow,
        YearHigh:      r.FiftyTwoWeekHigh,
        YearLow:       r.FiftyTwoWeekLow,
        Timestamp:     time.Now().UTC(),
    }, nil
}

type chartResponse struct {
    Chart struct {
        Result []struct {
            Timestamp  []int64 `json:"timestamp"`
            Indicators struct {
                Quote []struct {
                    Open   []float64 `json:"open"`
                    High   []float64 `json:"high"`
                    Low    []float64 `json:"low"`
                    Close  []float64 `json:"close"`
                    Volume []int64   `json:"volume"`
                } `json:"quote"`
            } `json:"indicators"`
        } `json:"result"`
    } `json:"chart"`
}

// History fetches historical candles for symbol, e.g. period "1d" at
// interval "5m".
func (c *Client) History(ctx context.Context, symbol, period, interval string) ([]models.Candle, error) {
    if err := c.limiter.Wait(ctx); err != nil {
        return nil, fmt.Errorf("rate wait: %w", err)
    }

    u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
        c.quoteBaseURL, url.PathEscape(symbol), url.QueryEscape(period), url.QueryEscape(interval))
    var resp chartResponse
    if err := c.getJSON(ctx, u, &resp); err != nil {
        return nil, err
    }

    if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
        return nil, fmt.Errorf("history %s: empty chart result", symbol)
    }

    res := resp.Chart.Result[0]
    bars := res.Indicators.Quote[0]

    candles := make([]models.Candle, 0, len(res.Timestamp))
    for i, ts := range res.Timestamp {
        if i >= len(bars.Close) {
            break
        }
        candles = append(candles, models.Candle{
            Timestamp: time.Unix(ts, 0).UTC().Format(time.RFC3339),
            Open:      models.Round2(at(bars.Open, i)),
            High:      models.Round2(at(bars.High, i)),
            Low:       models.Round2(at(bars.Low, i)),
            Close:     models.Round2(at(bars.Close, i)),
            Volume:    atInt(bars.Volume, i),
        })
    }
    return candles, nil
}

// getJSON performs one GET and decodes the body, mapping throttle responses
// to the rate-limit sentinel.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
    if err != nil {
        return fmt.Errorf("build request: %w", err)
    }
    req.Header.Set("User-Agent", defaultUserAgent)

    resp, err := c.httpClient.Do(req)
    if err != nil {
        return fmt.Errorf("http get: %w", err)
    }
    defer resp.Body.Close()

    if resp.StatusCode == http.StatusTooManyRequests {
        return fmt.Errorf("http 429: %w", quotes.ErrRateLimited)
    }
    if resp.StatusCode != http.StatusOK {
        return fmt.Errorf("unexpected status %d", resp.StatusCode)
    }

    if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
        return fmt.Errorf("json decode: %w", err)
    }
    return nil
}

func at(s []float64, i int) float64 {
    if i < len(s) {
        return s[i]
    }
    return 0
}

func atInt(s []int64, i int) int64 {
    if i < len(s) {
        return s[i]
    }
    return 0
}
