package yahoo

import (
    "context"
    "fmt"
    "net/url"
    "strings"

    "go.uber.org/zap"

    "stockdash/pkg/logger"
    "stockdash/pkg/models"
)

const maxSearchResults = 8

// commonStocks is the local catalogue used when the upstream search API is
// unavailable. It mirrors the symbols covered by the synthetic baseline set.
var commonStocks = []models.SearchResult{
    {Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ"},
    {Symbol: "GOOGL", Name: "Alphabet Inc.", Exchange: "NASDAQ"},
    {Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "NASDAQ"},
    {Symbol: "TSLA", Name: "Tesla, Inc.", Exchange: "NASDAQ"},
    {Symbol: "AMZN", Name: "Amazon.com, Inc.", Exchange: "NASDAQ"},
    {Symbol: "META", Name: "Meta Platforms, Inc.", Exchange: "NASDAQ"},
    {Symbol: "NVDA", Name: "NVIDIA Corporation", Exchange: "NASDAQ"},
    {Symbol: "NFLX", Name: "Netflix, Inc.", Exchange: "NASDAQ"},
    {Symbol: "AMD", Name: "Advanced Micro Devices, Inc.", Exchange: "NASDAQ"},
    {Symbol: "INTC", Name: "Intel Corporation", Exchange: "NASDAQ"},
    {Symbol: "JPM", Name: "JPMorgan Chase & Co.", Exchange: "NYSE"},
    {Symbol: "V", Name: "Visa Inc.", Exchange: "NYSE"},
    {Symbol: "WMT", Name: "Walmart Inc.", Exchange: "NYSE"},
    {Symbol: "DIS", Name: "The Walt Disney Company", Exchange: "NYSE"},
    {Symbol: "BA", Name: "The Boeing Company", Exchange: "NYSE"},
    {Symbol: "KO", Name: "The Coca-Cola Company", Exchange: "NYSE"},
    {Symbol: "PFE", Name: "Pfizer Inc.", Exchange: "NYSE"},
    {Symbol: "XOM", Name: "Exxon Mobil Corporation", Exchange: "NYSE"},
    {Symbol: "BAC", Name: "Bank of America Corporation", Exchange: "NYSE"},
    {Symbol: "ORCL", Name: "Oracle Corporation", Exchange: "NYSE"},
    {Symbol: "CRM", Name: "Salesforce, Inc.", Exchange: "NYSE"},
    {Symbol: "UBER", Name: "Uber Technologies, Inc.", Exchange: "NYSE"},
    {Symbol: "SPOT", Name: "Spotify Technology S.A.", Exchange: "NYSE"},
    {Symbol: "PYPL", Name: "PayPal Holdings, Inc.", Exchange: "NASDAQ"},
    {Symbol: "ADBE", Name: "Adobe Inc.", Exchange: "NASDAQ"},
    {Symbol: "CSCO", Name: "Cisco Systems, Inc.", Exchange: "NASDAQ"},
}

type searchResponse struct {
    Quotes []struct {
        Symbol    string `json:"symbol"`
        LongName  string `json:"longname"`
        ShortName string `json:"shortname"`
        Exchange  string `json:"exchange"`
        QuoteType string `json:"quoteType"`
    } `json:"quotes"`
}

// Search resolves a free-text query to candidate symbols. It tries the
// upstream search API first and falls back to the local catalogue, so it
// always returns a (possibly empty) result set.
func (c *Client) Search(ctx context.Context, query string) []models.SearchResult {
    query = strings.TrimSpace(query)
    if query == "" {
        return nil
    }

    if results, err := c.searchUpstream(ctx, query); err == nil && len(results) > 0 {
        return results
    } else if err != nil {
        logger.Log.Warn("upstream search failed, using local catalogue", zap.Error(err))
    }
    return searchLocal(query)
}

func (c *Client) searchUpstream(ctx context.Context, query string) ([]models.SearchResult, error) {
    if err := c.limiter.Wait(ctx); err != nil {
        return nil, fmt.Errorf("rate wait: %w", err)
    }

    u := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=%d&newsCount=0",
        c.searchBaseURL, url.QueryEscape(query), maxSearchResults)
    var resp searchResponse
    if err := c.getJSON(ctx, u, &resp); err != nil {
        return nil, err
    }

    results := make([]models.SearchResult, 0, len(resp.Quotes))
    for _, q := range resp.Quotes {
        if q.QuoteType != "EQUITY" && q.QuoteType != "ETF" {
            continue
        }
        name := q.LongName
        if name == "" {
            name = q.ShortName
        }
        results = append(results, models.SearchResult{
            Symbol:   q.Symbol,
            Name:     name,
            Exchange: q.Exchange,
        })
        if len(results) == maxSearchResults {
            break
        }
    }
    return results, nil
}

func searchLocal(query string) []models.SearchResult {
    needle := strings.ToUpper(query)

    var results []models.SearchResult
    for _, s := range commonStocks {
        if strings.Contains(s.Symbol, needle) || strings.Contains(strings.ToUpper(s.Name), needle) {
            results = append(results, s)
            if len(results) == maxSearchResults {
                return results
            }
        }
    }
    return results
}
