package quotes

// baseline is a static reference quote used to synthesize plausible data for
// a symbol while the upstream provider is unavailable.
type baseline struct {
    Name      string
    Price     float64
    Change    float64
    Volume    int64
    MarketCap int64
}

// baselines covers the symbols the dashboard commonly tracks. Values are
// rough snapshots, not live data; the generator jitters them on every read.
var baselines = map[string]baseline{
    "AAPL":  {"Apple Inc.", 178.50, 1.25, 50000000, 2800000000000},
    "GOOGL": {"Alphabet Inc.", 142.30, -0.80, 25000000, 1800000000000},
    "MSFT":  {"Microsoft Corporation", 385.00, 2.10, 30000000, 2900000000000},
    "TSLA":  {"Tesla Inc.", 248.75, -1.50, 100000000, 790000000000},
    "AMZN":  {"Amazon.com Inc.", 158.20, 0.95, 40000000, 1650000000000},
    "META":  {"Meta Platforms Inc.", 505.00, 1.80, 20000000, 1300000000000},
    "NVDA":  {"NVIDIA Corporation", 875.50, 3.20, 45000000, 2150000000000},
    "JPM":   {"JPMorgan Chase & Co.", 198.25, 0.45, 12000000, 570000000000},
    "V":     {"Visa Inc.", 280.50, 0.65, 8000000, 580000000000},
    "WMT":   {"Walmart Inc.", 165.30, -0.25, 10000000, 450000000000},
    "AAL":   {"American Airlines Group Inc.", 14.50, -0.35, 35000000, 9500000000},
    "KO":    {"The Coca-Cola Company", 62.80, 0.55, 15000000, 270000000000},
    "DIS":   {"The Walt Disney Company", 112.40, 0.85, 12000000, 205000000000},
    "NFLX":  {"Netflix Inc.", 485.20, 1.45, 8000000, 215000000000},
    "BA":    {"The Boeing Company", 215.60, -1.20, 6000000, 130000000000},
    "INTC":  {"Intel Corporation", 45.30, -0.65, 25000000, 190000000000},
    "AMD":   {"Advanced Micro Devices Inc.", 165.80, 2.35, 50000000, 270000000000},
    "PYPL":  {"PayPal Holdings Inc.", 68.40, 0.95, 15000000, 75000000000},
    "CRM":   {"Salesforce Inc.", 275.30, 1.15, 5000000, 265000000000},
    "UBER":  {"Uber Technologies Inc.", 72.50, 1.85, 20000000, 150000000000},
    "SBUX":  {"Starbucks Corporation", 98.20, 0.45, 8000000, 112000000000},
    "NKE":   {"Nike Inc.", 108.50, -0.55, 7000000, 165000000000},
    "PEP":   {"PepsiCo Inc.", 178.90, 0.35, 6000000, 245000000000},
    "COST":  {"Costco Wholesale Corporation", 585.40, 0.75, 3000000, 260000000000},
    "HD":    {"The Home Depot Inc.", 365.20, 0.65, 4000000, 365000000000},
    "MCD":   {"McDonald's Corporation", 295.80, 0.25, 3500000, 215000000000},
    "XOM":   {"Exxon Mobil Corporation", 105.40, -0.85, 18000000, 420000000000},
    "CVX":   {"Chevron Corporation", 158.70, -0.45, 8000000, 295000000000},
    "BAC":   {"Bank of America Corporation", 35.80, 0.55, 45000000, 280000000000},
    "GS":    {"The Goldman Sachs Group Inc.", 385.60, 0.95, 2500000, 125000000000},
    "MS":    {"Morgan Stanley", 95.40, 0.75, 9000000, 155000000000},
    "T":     {"AT&T Inc.", 18.50, 0.15, 35000000, 132000000000},
    "VZ":    {"Verizon Communications Inc.", 42.80, 0.25, 20000000, 180000000000},
    "PFE":   {"Pfizer Inc.", 28.90, -0.35, 40000000, 165000000000},
    "JNJ":   {"Johnson & Johnson", 158.40, 0.45, 8000000, 385000000000},
    "UNH":   {"UnitedHealth Group Inc.", 525.30, 0.85, 4000000, 485000000000},
    "ABBV":  {"AbbVie Inc.", 165.20, 0.55, 6000000, 290000000000},
    "LLY":   {"Eli Lilly and Company", 585.80, 1.25, 3000000, 555000000000},
    "MRNA":  {"Moderna Inc.", 98.50, -1.85, 12000000, 38000000000},
    "F":     {"Ford Motor Company", 12.40, 0.65, 55000000, 50000000000},
    "GM":    {"General Motors Company", 38.90, 0.85, 15000000, 53000000000},
    "RIVN":  {"Rivian Automotive Inc.", 18.20, -2.15, 25000000, 18000000000},
    "LCID":  {"Lucid Group Inc.", 4.85, -1.45, 30000000, 11000000000},
    "PLTR":  {"Palantir Technologies Inc.", 22.40, 2.85, 45000000, 48000000000},
    "SNOW":  {"Snowflake Inc.", 185.60, 1.45, 5000000, 62000000000},
    "COIN":  {"Coinbase Global Inc.", 145.30, 3.25, 12000000, 35000000000},
    "SQ":    {"Block Inc.", 72.80, 1.65, 10000000, 45000000000},
    "SHOP":  {"Shopify Inc.", 68.40, 1.95, 8000000, 85000000000},
    "SPOT":  {"Spotify Technology S.A.", 185.20, 0.85, 3000000, 36000000000},
    "ABNB":  {"Airbnb Inc.", 145.60, 1.35, 6000000, 92000000000},
    "ZM":    {"Zoom Video Communications Inc.", 68.90, -0.75, 4000000, 21000000000},
    "ROKU":  {"Roku Inc.", 85.40, 1.15, 5000000, 12000000000},
    "SNAP":  {"Snap Inc.", 12.80, -0.95, 25000000, 21000000000},
    "PINS":  {"Pinterest Inc.", 32.50, 0.65, 12000000, 22000000000},
    "TWTR":  {"X Corp (Twitter)", 45.00, 0.00, 0, 0},
    "GOOG":  {"Alphabet Inc. Class C", 143.50, -0.75, 20000000, 1790000000000},
}
