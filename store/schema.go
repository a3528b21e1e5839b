package store

// schemaSQL is the DDL for all tables.
const schemaSQL = `
-- Resolved labels, one row per (kind, label). The row records the outcome
-- and whatever entity fields the endpoint returned.
CREATE TABLE IF NOT EXISTS resolutions (
    id INTEGER PRIMARY KEY,
    kind TEXT NOT NULL,
    label TEXT NOT NULL,
    outcome TEXT NOT NULL,
    uri TEXT,
    matched_label TEXT,
    lon REAL,
    lat REAL,
    population INTEGER,
    taxon TEXT,
    attempts INTEGER DEFAULT 0,
    resolved_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(kind, label)
);

-- Enrichment run log
CREATE TABLE IF NOT EXISTS enrichment_runs (
    id TEXT PRIMARY KEY,
    graph_facts INTEGER DEFAULT 0,
    places INTEGER DEFAULT 0,
    crops INTEGER DEFAULT 0,
    queries INTEGER DEFAULT 0,
    cache_hits INTEGER DEFAULT 0,
    interrupted INTEGER DEFAULT 0,
    started_at DATETIME NOT NULL,
    finished_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_resolutions_kind ON resolutions(kind);
CREATE INDEX IF NOT EXISTS idx_resolutions_outcome ON resolutions(outcome);
CREATE INDEX IF NOT EXISTS idx_runs_started ON enrichment_runs(started_at);
`
