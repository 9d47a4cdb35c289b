package localstore

const schema = `
-- The collection is stored as a single JSON blob under a fixed key.
-- A kv table keeps the door open for further keys (settings, sync cursors)
-- without a migration.
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
