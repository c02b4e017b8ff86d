package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Pushes finish on their own goroutines; one connection keeps sqlite
	// writers from tripping over each other.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Push is one attempt to mirror a board to the backend.
type Push struct {
	ID          int64
	BoardID     string
	Fingerprint string
	Cards       int
	StartedAt   time.Time
	Duration    time.Duration
	Status      int
	Error       sql.NullString
}

// Succeeded reports whether the backend accepted the push.
func (p Push) Succeeded() bool {
	return !p.Error.Valid && p.Status >= 200 && p.Status < 300
}

// InsertPush records a push attempt and returns its ID.
func (db *DB) InsertPush(p Push) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO pushes (board_id, fingerprint, cards, started_at, duration_ms, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		p.BoardID,
		p.Fingerprint,
		p.Cards,
		p.StartedAt.UTC(),
		p.Duration.Milliseconds(),
		p.Status,
		p.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert push for board %s: %w", p.BoardID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for push: %w", err)
	}
	return id, nil
}

// RecentPushes returns up to limit pushes for a board, newest first. An
// empty boardID returns pushes for every board.
func (db *DB) RecentPushes(boardID string, limit int) ([]Push, error) {
	rows, err := db.conn.Query(`
		SELECT id, board_id, fingerprint, cards, started_at, duration_ms, status, error
		FROM pushes
		WHERE ? = '' OR board_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, boardID, boardID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pushes for board %q: %w", boardID, err)
	}
	defer rows.Close()

	var pushes []Push
	for rows.Next() {
		var p Push
		var ms int64
		if err := rows.Scan(
			&p.ID,
			&p.BoardID,
			&p.Fingerprint,
			&p.Cards,
			&p.StartedAt,
			&ms,
			&p.Status,
			&p.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan push row: %w", err)
		}
		p.Duration = time.Duration(ms) * time.Millisecond
		pushes = append(pushes, p)
	}
	return pushes, rows.Err()
}

// LastSuccessfulPush returns the newest accepted push for a board, or nil
// when there is none. An empty boardID considers every board.
func (db *DB) LastSuccessfulPush(boardID string) (*Push, error) {
	var p Push
	var ms int64
	row := db.conn.QueryRow(`
		SELECT id, board_id, fingerprint, cards, started_at, duration_ms, status, error
		FROM pushes
		WHERE (? = '' OR board_id = ?) AND error IS NULL AND status BETWEEN 200 AND 299
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`, boardID, boardID)

	err := row.Scan(&p.ID, &p.BoardID, &p.Fingerprint, &p.Cards, &p.StartedAt, &ms, &p.Status, &p.Error)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No successful push yet
		}
		return nil, fmt.Errorf("failed to find last push for board %s: %w", boardID, err)
	}
	p.Duration = time.Duration(ms) * time.Millisecond
	return &p, nil
}

// PrunePushes deletes pushes older than before and returns how many were
// removed.
func (db *DB) PrunePushes(before time.Time) (int64, error) {
	res, err := db.conn.Exec(`
		DELETE FROM pushes
		WHERE started_at < ?
	`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune pushes: %w", err)
	}
	return res.RowsAffected()
}
