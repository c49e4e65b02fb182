package journal

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scans (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    scanned_at TEXT NOT NULL,
    expiration TEXT NOT NULL,
    spot REAL NOT NULL,
    implied_vol REAL NOT NULL,
    time_to_expiry REAL NOT NULL,
    risk_free_rate REAL NOT NULL,
    sentiment REAL NOT NULL,
    quotes_in INTEGER NOT NULL,
    normalized INTEGER NOT NULL,
    candidates INTEGER NOT NULL,
    priced INTEGER NOT NULL,
    sized INTEGER NOT NULL,
    ranked INTEGER NOT NULL,
    outcome TEXT NOT NULL DEFAULT '',
    settled INTEGER NOT NULL DEFAULT 0,
    settle_price REAL,
    settled_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_scans_symbol_time ON scans(symbol, scanned_at);

CREATE TABLE IF NOT EXISTS recommendations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_id TEXT NOT NULL REFERENCES scans(id),
    rank INTEGER NOT NULL,
    long_strike REAL NOT NULL,
    short_strike REAL NOT NULL,
    long_premium REAL NOT NULL,
    short_premium REAL NOT NULL,
    net_debit REAL NOT NULL,
    max_profit REAL NOT NULL,
    max_loss REAL NOT NULL,
    breakeven REAL NOT NULL,
    probability REAL NOT NULL,
    risk_reward REAL NOT NULL,
    contracts INTEGER NOT NULL,
    total_risk REAL NOT NULL,
    total_reward REAL NOT NULL,
    expected_value REAL NOT NULL,
    score REAL NOT NULL,
    order_line TEXT NOT NULL,
    pnl REAL
);
CREATE INDEX IF NOT EXISTS idx_recommendations_scan ON recommendations(scan_id);

CREATE TABLE IF NOT EXISTS chain_quotes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_id TEXT NOT NULL REFERENCES scans(id),
    type TEXT NOT NULL,
    strike REAL NOT NULL,
    bid REAL NOT NULL,
    ask REAL NOT NULL,
    last REAL NOT NULL,
    volume INTEGER NOT NULL,
    open_interest INTEGER NOT NULL,
    implied_vol REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chain_quotes_scan ON chain_quotes(scan_id);
`
