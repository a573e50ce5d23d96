package store

// schemaSQL is the base DDL. Later changes go through migrations.
const schemaSQL = `
-- One row per pipeline instance
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One processed document per run
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    document TEXT NOT NULL,
    path TEXT NOT NULL,
    error TEXT,
    category TEXT,
    subprocess TEXT,
    process_number INTEGER,
    confidence REAL DEFAULT 0,
    text_length INTEGER DEFAULT 0,
    payload JSON NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(run_id, document)
);

CREATE TABLE IF NOT EXISTS entities (
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    entity_id INTEGER NOT NULL,
    text TEXT NOT NULL,
    type TEXT NOT NULL,
    PRIMARY KEY (document_id, entity_id)
);

CREATE TABLE IF NOT EXISTS relations (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    relation TEXT NOT NULL,
    source_type TEXT,
    target_type TEXT,
    context TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_run ON documents(run_id);
CREATE INDEX IF NOT EXISTS idx_relations_document ON relations(document_id);
`
