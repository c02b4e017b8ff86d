package storage

const schema = `
-- The 'pushes' table records every attempt to mirror a board to the backend.
CREATE TABLE IF NOT EXISTS pushes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    board_id TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    cards INTEGER NOT NULL DEFAULT 0,
    started_at DATETIME NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    status INTEGER NOT NULL DEFAULT 0, -- HTTP status, 0 when no response arrived
    error TEXT
);

CREATE INDEX IF NOT EXISTS pushes_board_started ON pushes(board_id, started_at);
`
